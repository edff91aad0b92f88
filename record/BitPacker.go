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

package record

import (
	"errors"
)

// BitPacker accumulates '0'/'1' characters into words of a fixed width,
// most significant bit first. Other characters are ignored.
type BitPacker struct {
	width   uint
	current uint32
	pending uint
	words   int64
}

func NewBitPacker(width uint) (*BitPacker, error) {
	if width == 0 || width > 32 {
		return nil, errors.New("Invalid word width: must be in [1..32]")
	}

	return &BitPacker{width: width}, nil
}

// Feed packs the bits of s, calling emit for each completed word
func (this *BitPacker) Feed(s string, emit func(word uint32) error) error {
	for i := 0; i < len(s); i++ {
		c := s[i]

		if c != '0' && c != '1' {
			continue
		}

		this.current = this.current<<1 | uint32(c-'0')
		this.pending++

		if this.pending == this.width {
			w := this.current
			this.current = 0
			this.pending = 0
			this.words++

			if err := emit(w); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flush returns the trailing partial word zero padded on the low order side
// and the number of meaningful bits in it. Returns ok == false when no bit
// is pending.
func (this *BitPacker) Flush() (word uint32, bits uint, ok bool) {
	if this.pending == 0 {
		return 0, 0, false
	}

	word = this.current << (this.width - this.pending)
	bits = this.pending
	this.current = 0
	this.pending = 0
	this.words++
	return word, bits, true
}

// Pending returns the number of bits not yet part of a word
func (this *BitPacker) Pending() uint {
	return this.pending
}

// Words returns the number of words produced, including a flushed one
func (this *BitPacker) Words() int64 {
	return this.words
}
