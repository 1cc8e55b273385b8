package configs

import (
	"fmt"
	"path/filepath"

	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
)

// ParseSpec checks the parts of the runtime spec the runtime depends on and
// builds the persisted Config. Relative root paths are resolved against the
// bundle directory.
func ParseSpec(s *specs.Spec, bundle string, cgroupRoot, id string) (*Config, error) {
	if s == nil {
		return nil, errors.New("Spec is nil")
	}
	if s.Process == nil || s.Process.Args == nil {
		return nil, errors.New("Process Args is nil")
	}
	if s.Root == nil {
		return nil, errors.New("Root is nil")
	}
	if s.Process.Cwd == "" || !filepath.IsAbs(s.Process.Cwd) {
		return nil, fmt.Errorf("Cwd must be an absolute path, got %q", s.Process.Cwd)
	}

	bundle, err := filepath.Abs(bundle)
	if err != nil {
		return nil, err
	}
	rootfs := s.Root.Path
	if !filepath.IsAbs(rootfs) {
		rootfs = filepath.Join(bundle, rootfs)
	}

	labels := []string{}
	for k, v := range s.Annotations {
		labels = append(labels, fmt.Sprintf("%s=%s", k, v))
	}
	labels = append(labels, "bundle="+bundle)

	userns, err := NewUserNamespaceConfig(s)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Spec:    s,
		Rootfs:  rootfs,
		Bundle:  bundle,
		Version: s.Version,
		Labels:  labels,
		Hooks:   s.Hooks,
		Cgroup:  NewCgroupConfig(s, cgroupRoot, id),
		UserNs:  userns,
	}

	return &cfg, nil
}
