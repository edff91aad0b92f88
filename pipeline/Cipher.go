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

package pipeline

import (
	"bufio"
	"io"
)

const _CIPHER_BUFFER_SIZE = 64 * 1024

// cipherArtifact streams every byte of src through the cipher. The same
// transform encrypts and decrypts.
func cipherArtifact(st *StageState, src, dst string) (err error) {
	in, err := st.store.Open(src)

	if err != nil {
		return storage(err)
	}

	defer in.Close()
	out, err := st.store.Create(dst)

	if err != nil {
		return storage(err)
	}

	st.run.addArtifact(dst)

	defer func() {
		if err2 := out.Close(); err == nil && err2 != nil {
			err = storage(err2)
		}
	}()

	br := bufio.NewReaderSize(in, _CIPHER_BUFFER_SIZE)
	bw := bufio.NewWriterSize(out, _CIPHER_BUFFER_SIZE)

	for {
		b, rerr := br.ReadByte()

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return storage(rerr)
		}

		c, cerr := st.acc.CipherByte(b, st.opts.Key)

		if cerr != nil {
			return device(cerr)
		}

		if werr := bw.WriteByte(c); werr != nil {
			return storage(werr)
		}

		st.Record()
	}

	return storage(bw.Flush())
}
