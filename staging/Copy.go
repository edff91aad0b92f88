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
	"encoding/hex"
	"fmt"
	"io"

	rbtz "github.com/flanglet/rbtz"
	"github.com/zeebo/blake3"
)

// Import copies src into the named artifact
func Import(store rbtz.StagingStore, name string, src io.Reader) (int64, error) {
	dst, err := store.Create(name)

	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)

	if err2 := dst.Close(); err == nil {
		err = err2
	}

	return n, err
}

// Export copies the named artifact to dst
func Export(store rbtz.StagingStore, name string, dst io.Writer) (int64, error) {
	src, err := store.Open(name)

	if err != nil {
		return 0, err
	}

	defer src.Close()
	return io.Copy(dst, src)
}

// Concat writes the byte concatenation of the source artifacts, in order,
// to the destination artifact.
func Concat(store rbtz.StagingStore, dst string, srcs ...string) (int64, error) {
	w, err := store.Create(dst)

	if err != nil {
		return 0, err
	}

	total := int64(0)

	for _, name := range srcs {
		var n int64

		if n, err = Export(store, name, w); err != nil {
			err = fmt.Errorf("Cannot append '%v' to '%v': %w", name, dst, err)
			break
		}

		total += n
	}

	if err2 := w.Close(); err == nil {
		err = err2
	}

	return total, err
}

// Digest returns the hex encoded BLAKE3-256 hash and the size of the artifact
func Digest(store rbtz.StagingStore, name string) (string, int64, error) {
	h := blake3.New()
	n, err := Export(store, name, h)

	if err != nil {
		return "", 0, err
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}
