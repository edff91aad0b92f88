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

package rbtz

import (
	"bytes"
	"encoding/binary"
)

const (
	NO_MAGIC     = 0
	RBT_MAGIC    = 0x58696C69 // "Xili" as in "Xilinx ASCII Bitstream"
	BIT_MAGIC    = 0x00090FF0 // binary .bit file header
	BUNDLE_MAGIC = 0x42554E44 // ciphered bundle (decodes to a text header)
)

var rbtBanner = []byte("Xilinx ASCII Bitstream")

// GetMagicType checks the first bytes of the slice against the known input
// types. The key is used to recognize a ciphered bundle: its first bytes
// decipher to an ASCII bitstream banner.
func GetMagicType(src []byte, key byte) uint {
	if len(src) < 4 {
		return NO_MAGIC
	}

	if bytes.HasPrefix(src, rbtBanner) {
		return RBT_MAGIC
	}

	if uint(binary.BigEndian.Uint32(src)) == BIT_MAGIC {
		return BIT_MAGIC
	}

	n := len(rbtBanner)

	if len(src) < n {
		return NO_MAGIC
	}

	for i := 0; i < n; i++ {
		if src[i]^key != rbtBanner[i] {
			return NO_MAGIC
		}
	}

	return BUNDLE_MAGIC
}
