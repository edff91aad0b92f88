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
	"sort"
	"sync"
)

// MemStore a staging store keeping every artifact in memory
type MemStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	this := &MemStore{}
	this.files = make(map[string][]byte)
	return this
}

// Open returns a reader over a snapshot of the artifact
func (this *MemStore) Open(name string) (io.ReadSeekCloser, error) {
	this.mu.Lock()
	defer this.mu.Unlock()

	buf, ok := this.files[name]

	if ok == false {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	return newMemFile(buf, nil, ""), nil
}

// Create returns a writer. The artifact is truncated immediately and
// its content becomes visible to readers when the writer is closed.
func (this *MemStore) Create(name string) (io.WriteCloser, error) {
	if len(name) == 0 {
		return nil, errors.New("Invalid empty artifact name")
	}

	this.mu.Lock()
	this.files[name] = []byte{}
	this.mu.Unlock()
	return newMemFile(nil, this, name), nil
}

// Remove deletes the artifact, a missing artifact is ignored
func (this *MemStore) Remove(name string) error {
	this.mu.Lock()
	delete(this.files, name)
	this.mu.Unlock()
	return nil
}

// Size returns the number of bytes of the artifact
func (this *MemStore) Size(name string) (int64, error) {
	this.mu.Lock()
	defer this.mu.Unlock()

	buf, ok := this.files[name]

	if ok == false {
		return 0, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}

	return int64(len(buf)), nil
}

// Names returns the names of all artifacts, sorted
func (this *MemStore) Names() []string {
	this.mu.Lock()
	defer this.mu.Unlock()

	res := make([]string, 0, len(this.files))

	for k := range this.files {
		res = append(res, k)
	}

	sort.Strings(res)
	return res
}

// Bytes returns a copy of the artifact content
func (this *MemStore) Bytes(name string) ([]byte, error) {
	this.mu.Lock()
	defer this.mu.Unlock()

	buf, ok := this.files[name]

	if ok == false {
		return nil, fmt.Errorf("Unknown artifact '%v'", name)
	}

	return append([]byte(nil), buf...), nil
}

// Put replaces the artifact content
func (this *MemStore) Put(name string, content []byte) {
	this.mu.Lock()
	this.files[name] = append([]byte(nil), content...)
	this.mu.Unlock()
}

// memFile a closable read/write stream of bytes backed by a slice
type memFile struct {
	buf    []byte
	off    int
	closed bool
	owner  *MemStore
	name   string
}

func newMemFile(buf []byte, owner *MemStore, name string) *memFile {
	this := &memFile{}
	this.buf = buf
	this.owner = owner
	this.name = name
	return this
}

// Write appends to the internal buffer (growing the buffer as needed)
func (this *memFile) Write(b []byte) (int, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	if this.owner == nil {
		return 0, errors.New("Stream opened for reading")
	}

	this.buf = append(this.buf, b...)
	return len(b), nil
}

// Read reads data from the internal buffer at the read offset position
func (this *memFile) Read(b []byte) (int, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	if this.off >= len(this.buf) {
		return 0, io.EOF
	}

	n := copy(b, this.buf[this.off:])
	this.off += n
	return n, nil
}

// Seek sets the offset of the read pointer
func (this *memFile) Seek(offset int64, whence int) (int64, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	var abs int64

	switch whence {
	case io.SeekStart:
		abs = offset

	case io.SeekCurrent:
		abs = int64(this.off) + offset

	case io.SeekEnd:
		abs = int64(len(this.buf)) + offset

	default:
		return 0, errors.New("Invalid whence")
	}

	if abs < 0 {
		return 0, errors.New("Invalid offset")
	}

	this.off = int(abs)
	return abs, nil
}

// Close makes the stream unavailable for further reads or writes and
// publishes written content to the owning store.
func (this *memFile) Close() error {
	if this.closed == true {
		return nil
	}

	this.closed = true

	if this.owner != nil {
		this.owner.mu.Lock()
		this.owner.files[this.name] = this.buf
		this.owner.mu.Unlock()
	}

	return nil
}
