package libcontainer

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/opencontainers/runc/libcontainer/utils"
)

const stateFilename = "state.json"

// StateStore persists container states keyed by container id.
type StateStore interface {
	Load(id string) (*State, error)
	Save(s *State) error
	Delete(id string) error
}

// FileStateStore keeps <Root>/<id>/state.json.
type FileStateStore struct {
	Root string
}

func NewFileStateStore(root string) *FileStateStore {
	return &FileStateStore{Root: root}
}

func (s *FileStateStore) dir(id string) string {
	return filepath.Join(s.Root, id)
}

func (s *FileStateStore) Load(id string) (*State, error) {
	f, err := os.Open(filepath.Join(s.dir(id), stateFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newGenericError(fmt.Errorf("container %q does not exist", id), ContainerNotExists)
		}
		return nil, newGenericError(err, SystemError)
	}
	defer f.Close()
	var state *State
	if err := json.NewDecoder(f).Decode(&state); err != nil {
		return nil, newGenericError(err, SystemError)
	}
	return state, nil
}

// Save replaces the state file atomically so readers never see a partial
// write.
func (s *FileStateStore) Save(st *State) error {
	dir := s.dir(st.ID)
	tmp, err := ioutil.TempFile(dir, "state-")
	if err != nil {
		return newSystemErrorWithCause(err, "creating temporary state file")
	}
	err = utils.WriteJSON(tmp, st)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(dir, stateFilename))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return newSystemErrorWithCause(err, "saving container state")
	}
	return nil
}

// Delete removes the container directory with everything in it.
func (s *FileStateStore) Delete(id string) error {
	if err := os.RemoveAll(s.dir(id)); err != nil {
		return newSystemErrorWithCausef(err, "removing state of %s", id)
	}
	return nil
}
