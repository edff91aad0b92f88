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

package huffman

import (
	"sort"
	"strings"

	rbtz "github.com/flanglet/rbtz"
)

// FrequencyTable  Symbol counts, a zero slot means the symbol is absent
type FrequencyTable [rbtz.MAX_SYMBOLS]uint32

// Total returns the sum of all slots
func (this *FrequencyTable) Total() uint64 {
	sum := uint64(0)

	for _, f := range this {
		sum += uint64(f)
	}

	return sum
}

// Present returns the number of symbols with a non null count
func (this *FrequencyTable) Present() int {
	n := 0

	for _, f := range this {
		if f > 0 {
			n++
		}
	}

	return n
}

// CodeEntry  The code assigned to one symbol. The codeword occupies the
// Length least significant bits of Code.
type CodeEntry struct {
	Symbol byte
	Code   uint32
	Length uint8
}

// Bits returns the codeword as a string of exactly Length '0'/'1' characters
func (this CodeEntry) Bits() string {
	var sb strings.Builder
	sb.Grow(int(this.Length))

	for i := int(this.Length) - 1; i >= 0; i-- {
		if (this.Code>>uint(i))&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}

	return sb.String()
}

// CodeTable  One entry per present symbol, by increasing symbol value
type CodeTable []CodeEntry

// Lookup returns the entry for symbol if present
func (this CodeTable) Lookup(symbol byte) (CodeEntry, bool) {
	i := sort.Search(len(this), func(i int) bool { return this[i].Symbol >= symbol })

	if i < len(this) && this[i].Symbol == symbol {
		return this[i], true
	}

	return CodeEntry{}, false
}

// IsPrefixFree returns true if no codeword is a prefix of another one
func (this CodeTable) IsPrefixFree() bool {
	for i := range this {
		for j := range this {
			if i == j {
				continue
			}

			a, b := this[i], this[j]

			if a.Length > b.Length {
				continue
			}

			// a is a prefix of b if the top a.Length bits of b match a
			if b.Code>>(b.Length-a.Length) == a.Code {
				return false
			}
		}
	}

	return true
}

// KraftSum returns the sum of 2^-length over all entries
func (this CodeTable) KraftSum() float64 {
	sum := 0.0

	for _, e := range this {
		sum += 1.0 / float64(uint64(1)<<e.Length)
	}

	return sum
}

// WeightedLength returns the number of bits required to encode a payload
// with the given symbol counts
func (this CodeTable) WeightedLength(freqs *FrequencyTable) uint64 {
	sum := uint64(0)

	for _, e := range this {
		sum += uint64(freqs[e.Symbol]) * uint64(e.Length)
	}

	return sum
}

// MaxLength returns the longest code length in the table
func (this CodeTable) MaxLength() uint8 {
	res := uint8(0)

	for _, e := range this {
		if e.Length > res {
			res = e.Length
		}
	}

	return res
}
