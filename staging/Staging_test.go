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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	rbtz "github.com/flanglet/rbtz"
)

func TestStores(t *testing.T) {
	dir, err := NewDirStore(t.TempDir())

	if err != nil {
		t.Fatalf("Cannot create directory store: %v", err)
	}

	stores := map[string]rbtz.StagingStore{
		"mem": NewMemStore(),
		"dir": dir,
	}

	for name, store := range stores {
		if err := checkStore(store); err != nil {
			t.Errorf("%v store: %v", name, err)
		}
	}
}

func checkStore(store rbtz.StagingStore) error {
	w, err := CreateLineWriter(store, "a.txt", CRLF)

	if err != nil {
		return err
	}

	for _, s := range []string{"Bits: 64", "01", "", "10"} {
		if err = w.WriteLine(s); err != nil {
			return err
		}
	}

	if err = w.Close(); err != nil {
		return err
	}

	if n, err := store.Size("a.txt"); err != nil || n != 20 {
		return fmt.Errorf("Wrong size: %v (%v)", n, err)
	}

	r, err := OpenLineReader(store, "a.txt")

	if err != nil {
		return err
	}

	defer r.Close()
	lines, err := readAll(r)

	if err != nil {
		return err
	}

	if len(lines) != 4 || lines[0] != "Bits: 64" || lines[2] != "" || lines[3] != "10" {
		return fmt.Errorf("Unexpected lines %q", lines)
	}

	if err = r.Rewind(); err != nil {
		return err
	}

	if line, err := r.ReadLine(); err != nil || line != "Bits: 64" || r.Lines() != 1 {
		return fmt.Errorf("Rewind failed: %q (%v)", line, err)
	}

	if _, err = Concat(store, "b.txt", "a.txt", "a.txt"); err != nil {
		return err
	}

	if n, _ := store.Size("b.txt"); n != 40 {
		return fmt.Errorf("Wrong concatenation size: %v", n)
	}

	if err = store.Remove("b.txt"); err != nil {
		return err
	}

	if err = store.Remove("b.txt"); err != nil {
		return fmt.Errorf("Removing a missing artifact failed: %v", err)
	}

	if _, err = store.Open("b.txt"); errors.Is(err, os.ErrNotExist) == false {
		return fmt.Errorf("Expected a not found error, got %v", err)
	}

	return nil
}

func readAll(r *LineReader) ([]string, error) {
	res := []string{}

	for {
		line, err := r.ReadLine()

		if err == io.EOF {
			return res, nil
		}

		if err != nil {
			return nil, err
		}

		res = append(res, line)
	}
}

func TestLastLineWithoutTerminator(t *testing.T) {
	store := NewMemStore()
	store.Put("x", []byte("abc\r\ndef"))
	r, _ := OpenLineReader(store, "x")
	lines, err := readAll(r)

	if err != nil || len(lines) != 2 || lines[1] != "def" {
		t.Errorf("Unexpected lines %q (%v)", lines, err)
	}
}

func TestDetectEnding(t *testing.T) {
	store := NewMemStore()
	store.Put("crlf", []byte("Bits: 32\r\n01\n"))
	store.Put("lf", []byte("Bits:\r32\n01\r\n"))
	store.Put("none", []byte("0101"))
	store.Put("empty", nil)

	tests := map[string]string{"crlf": CRLF, "lf": LF, "none": "", "empty": ""}

	for name, expected := range tests {
		ending, ok, err := DetectEnding(store, name)

		if err != nil || ending != expected || ok != (len(expected) > 0) {
			t.Errorf("%v: unexpected ending %q, %v (%v)", name, ending, ok, err)
		}
	}

	if _, _, err := DetectEnding(store, "missing"); err == nil {
		t.Errorf("Detection on a missing artifact should fail")
	}
}

func TestEmbeddedCarriageReturn(t *testing.T) {
	store := NewMemStore()
	store.Put("x", []byte("a\rb\r\nc\r\r\n"))
	r, _ := OpenLineReader(store, "x")
	lines, err := readAll(r)

	if err != nil || len(lines) != 2 || lines[0] != "a\rb" || lines[1] != "c\r" {
		t.Errorf("Unexpected lines %q (%v)", lines, err)
	}
}

func TestCreateTruncates(t *testing.T) {
	store := NewMemStore()
	store.Put("x", []byte("old content"))
	w, _ := store.Create("x")

	if n, _ := store.Size("x"); n != 0 {
		t.Errorf("Artifact not truncated: size %v", n)
	}

	w.Write([]byte("new"))
	w.Close()

	if b, _ := store.Bytes("x"); bytes.Equal(b, []byte("new")) == false {
		t.Errorf("Unexpected content %q", b)
	}
}

func TestInvalidNames(t *testing.T) {
	dir, _ := NewDirStore(t.TempDir())

	for _, name := range []string{"", "..", "../x", "a/b"} {
		if _, err := dir.Create(name); err == nil {
			t.Errorf("Name '%v' should be rejected", name)
		}
	}

	if _, err := NewLineWriter(nil, LF); err == nil {
		t.Errorf("Null destination should be rejected")
	}

	if _, err := CreateLineWriter(NewMemStore(), "x", "\r"); err == nil {
		t.Errorf("Invalid line ending should be rejected")
	}
}

func TestDigest(t *testing.T) {
	store := NewMemStore()
	store.Put("a", []byte("0101"))
	store.Put("b", []byte("0101"))
	store.Put("c", []byte("0110"))
	da, na, err := Digest(store, "a")

	if err != nil || na != 4 || len(da) != 64 {
		t.Fatalf("Unexpected digest %v, size %v (%v)", da, na, err)
	}

	db, _, _ := Digest(store, "b")
	dc, _, _ := Digest(store, "c")

	if da != db || da == dc {
		t.Errorf("Digests do not track content: %v %v %v", da, db, dc)
	}

	if _, _, err := Digest(store, "missing"); err == nil {
		t.Errorf("Digest of a missing artifact should fail")
	}
}
