package llcli

import (
	"encoding/json"
	"os"

	"github.com/nabla-containers/runllc/libcontainer/namespaces"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/urfave/cli"
)

// features is the runtime feature report of the OCI runtime features
// document. Only the parts this runtime implements are filled in.
type features struct {
	OCIVersionMin string        `json:"ociVersionMin"`
	OCIVersionMax string        `json:"ociVersionMax"`
	Hooks         []string      `json:"hooks"`
	MountOptions  []string      `json:"mountOptions"`
	Linux         linuxFeatures `json:"linux"`
}

type linuxFeatures struct {
	Namespaces []string       `json:"namespaces"`
	Cgroup     cgroupFeatures `json:"cgroup"`
	Seccomp    enabledFeature `json:"seccomp"`
	Apparmor   enabledFeature `json:"apparmor"`
	Selinux    enabledFeature `json:"selinux"`
}

type cgroupFeatures struct {
	V1      bool `json:"v1"`
	V2      bool `json:"v2"`
	Systemd bool `json:"systemd"`
}

type enabledFeature struct {
	Enabled bool `json:"enabled"`
}

func runtimeFeatures() features {
	var nss []string
	for _, t := range namespaces.Supported() {
		nss = append(nss, string(t))
	}
	return features{
		OCIVersionMin: "1.0.0",
		OCIVersionMax: specs.Version,
		Hooks:         []string{"prestart", "poststart", "poststop"},
		// pivot_root is the only mount this runtime performs.
		MountOptions: []string{"rslave"},
		Linux: linuxFeatures{
			Namespaces: nss,
			Cgroup:     cgroupFeatures{V2: true},
		},
	}
}

func newFeaturesCmd() cli.Command {
	return cli.Command{
		Name:      "features",
		Usage:     "show the enabled features",
		ArgsUsage: "",
		Description: `Show the enabled features.
   The result is parsable as a JSON.`,
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 0, exactArgs); err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "    ")
			return enc.Encode(runtimeFeatures())
		},
	}
}
