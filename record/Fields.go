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

// Package record implements the textual fixed-width binary records
// exchanged by the pipeline stages: '0'/'1' strings of 8 (symbol),
// 16 (codeword), 5 (code length) or 32 (word) characters per line.
package record

import (
	"errors"
	"fmt"
	"strings"

	rbtz "github.com/flanglet/rbtz"
)

var (
	// ErrWidth is returned when a record does not have the expected width
	ErrWidth = errors.New("Invalid record width")

	// ErrNotBinary is returned when a record contains a character other than '0' or '1'
	ErrNotBinary = errors.New("Invalid binary record")

	// ErrCodewordTooLong is returned when a codeword does not fit the codeword field.
	// It is always fatal.
	ErrCodewordTooLong = errors.New("Codeword longer than codeword field")
)

// FormatBits renders the width least significant bits of v, most significant first
func FormatBits(v uint32, width int) string {
	buf := make([]byte, width)

	for i := 0; i < width; i++ {
		if (v>>uint(width-1-i))&1 == 1 {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}

	return string(buf)
}

// ParseBits parses a record of exactly width binary characters
func ParseBits(s string, width int) (uint32, error) {
	if len(s) != width {
		return 0, fmt.Errorf("%w: expected %d bits, got %d", ErrWidth, width, len(s))
	}

	return BinaryValue(s)
}

// BinaryValue parses a binary string of at most 32 characters
func BinaryValue(s string) (uint32, error) {
	if len(s) > 32 {
		return 0, fmt.Errorf("%w: %d bits", ErrWidth, len(s))
	}

	v := uint32(0)

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			v <<= 1

		case '1':
			v = v<<1 | 1

		default:
			return 0, ErrNotBinary
		}
	}

	return v, nil
}

// IsBinary returns true if s is a non empty string of '0'/'1' characters
func IsBinary(s string) bool {
	if len(s) == 0 {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}

	return true
}

// StripNonBits removes every character that is not '0' or '1'
func StripNonBits(s string) string {
	if IsBinary(s) {
		return s
	}

	var sb strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == '0' || s[i] == '1' {
			sb.WriteByte(s[i])
		}
	}

	return sb.String()
}

// FormatSymbol renders a byte as an 8-bit record
func FormatSymbol(b byte) string {
	return FormatBits(uint32(b), rbtz.SYMBOL_BITS)
}

// ParseSymbol parses an 8-bit record
func ParseSymbol(s string) (byte, error) {
	v, err := ParseBits(s, rbtz.SYMBOL_BITS)
	return byte(v), err
}

// ParseOutputLine turns one line of encoded output into an occurrence:
// the codeword value and its length. Non bit characters are ignored and
// a line without bits yields ok == false.
func ParseOutputLine(line string) (code uint32, length uint8, ok bool, err error) {
	bits := StripNonBits(line)

	if len(bits) == 0 {
		return 0, 0, false, nil
	}

	if len(bits) > rbtz.CODEWORD_BITS {
		return 0, 0, false, fmt.Errorf("%w: %d bits", ErrCodewordTooLong, len(bits))
	}

	code, err = BinaryValue(bits)
	return code, uint8(len(bits)), err == nil, err
}
