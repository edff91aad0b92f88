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

package accel

import (
	"errors"
	"fmt"

	rbtz "github.com/flanglet/rbtz"
)

const (
	FREQ_MASK     = 0x00FFFFFF // width of the histogram counters
	CODEWORD_MASK = 0x00FFFFFF // width of the codeword output register
	CODELEN_MASK  = 0x1F
)

var (
	// ErrUnknownSymbol is returned when encoding a symbol that was never loaded
	ErrUnknownSymbol = errors.New("Symbol not present in the loaded code table")

	// ErrUnknownCodeword is returned when decoding a codeword that was never loaded
	ErrUnknownCodeword = errors.New("Codeword not present in the loaded code table")
)

type softCode struct {
	code   uint32
	length uint8
	valid  bool
}

// SoftAccelerator  A software model of the IP cores. Counters wrap at 24
// bits like the hardware registers they stand for.
type SoftAccelerator struct {
	counts [rbtz.MAX_SYMBOLS]uint32
	codes  [rbtz.MAX_SYMBOLS]softCode
	decode map[uint32]byte
	loaded int
}

func NewSoftAccelerator() *SoftAccelerator {
	this := &SoftAccelerator{}
	this.decode = make(map[uint32]byte)
	return this
}

func decodeKey(codeword uint32, length uint8) uint32 {
	return uint32(length)<<24 | (codeword & CODEWORD_MASK)
}

// Reset clears the counters and the code tables
func (this *SoftAccelerator) Reset() error {
	this.counts = [rbtz.MAX_SYMBOLS]uint32{}
	this.codes = [rbtz.MAX_SYMBOLS]softCode{}
	this.decode = make(map[uint32]byte)
	this.loaded = 0
	return nil
}

func (this *SoftAccelerator) ParseWord(word uint32) ([4]byte, error) {
	return [4]byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}, nil
}

func (this *SoftAccelerator) CountSymbol(symbol byte) error {
	this.counts[symbol] = (this.counts[symbol] + 1) & FREQ_MASK
	return nil
}

func (this *SoftAccelerator) ReadFrequency(symbol byte) (uint32, error) {
	return this.counts[symbol], nil
}

func (this *SoftAccelerator) LoadCodeEntry(symbol byte, codeword uint32, length uint8) error {
	if length&CODELEN_MASK != length {
		return fmt.Errorf("Invalid code length %v for symbol %02X", length, symbol)
	}

	if old := this.codes[symbol]; old.valid == true {
		delete(this.decode, decodeKey(old.code, old.length))
	} else {
		this.loaded++
	}

	this.codes[symbol] = softCode{code: codeword & CODEWORD_MASK, length: length, valid: true}
	this.decode[decodeKey(codeword, length)] = symbol
	return nil
}

func (this *SoftAccelerator) EncodeSymbol(symbol byte) (uint32, uint8, error) {
	c := this.codes[symbol]

	if c.valid == false {
		return 0, 0, fmt.Errorf("%w: %02X", ErrUnknownSymbol, symbol)
	}

	return c.code, c.length, nil
}

func (this *SoftAccelerator) DecodeCodeword(codeword uint32, length uint8) (byte, error) {
	s, ok := this.decode[decodeKey(codeword, length)]

	if ok == false {
		return 0, fmt.Errorf("%w: %v bits %X", ErrUnknownCodeword, length, codeword)
	}

	return s, nil
}

func (this *SoftAccelerator) MergeBytes4(b [4]byte) (uint32, error) {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (this *SoftAccelerator) CipherByte(b, key byte) (byte, error) {
	return b ^ key, nil
}

// Loaded returns the number of distinct symbols in the code table
func (this *SoftAccelerator) Loaded() int {
	return this.loaded
}
