/*
Copyright 2011-2017 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirStore a staging store mapping each artifact to a file of a directory
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir, creating the directory if needed
func NewDirStore(dir string) (*DirStore, error) {
	if len(dir) == 0 {
		return nil, errors.New("Invalid empty staging directory")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("Cannot create staging directory '%v': %w", dir, err)
	}

	fi, err := os.Stat(dir)

	if err != nil {
		return nil, err
	}

	if fi.IsDir() == false {
		return nil, fmt.Errorf("Staging location '%v' is not a directory", dir)
	}

	return &DirStore{root: dir}, nil
}

// Root returns the staging directory
func (this *DirStore) Root() string {
	return this.root
}

// Path returns the location of the artifact on disk
func (this *DirStore) Path(name string) (string, error) {
	if len(name) == 0 || filepath.Base(name) != name || name == "." || name == ".." {
		return "", fmt.Errorf("Invalid artifact name '%v'", name)
	}

	return filepath.Join(this.root, name), nil
}

func (this *DirStore) Open(name string) (io.ReadSeekCloser, error) {
	path, err := this.Path(name)

	if err != nil {
		return nil, err
	}

	return os.Open(path)
}

func (this *DirStore) Create(name string) (io.WriteCloser, error) {
	path, err := this.Path(name)

	if err != nil {
		return nil, err
	}

	return os.Create(path)
}

func (this *DirStore) Remove(name string) error {
	path, err := this.Path(name)

	if err != nil {
		return err
	}

	if err = os.Remove(path); err != nil && errors.Is(err, os.ErrNotExist) == false {
		return err
	}

	return nil
}

func (this *DirStore) Size(name string) (int64, error) {
	path, err := this.Path(name)

	if err != nil {
		return 0, err
	}

	fi, err := os.Stat(path)

	if err != nil {
		return 0, err
	}

	return fi.Size(), nil
}
