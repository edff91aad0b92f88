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
	"time"

	rbtz "github.com/flanglet/rbtz"
)

// Bit parser registers
const (
	_BP_WORD_IN = 0x00
	_BP_BYTE0   = 0x04 // most significant byte, next bytes every 4
)

// Frequency counter registers
const (
	_FC_SYMBOL = 0x00
	_FC_LOAD   = 0x04
	_FC_DONE   = 0x08
	_FC_FREQ   = 0x0C
	_FC_ADDR   = 0x10
)

// Huffman encoder streaming registers
const (
	_HE_SYMBOL_IN = 0x00
	_HE_VALID_IN  = 0x04
	_HE_VALID_OUT = 0x08
	_HE_CODEWORD  = 0x0C
	_HE_CODELEN   = 0x10
)

// Huffman decoder streaming registers
const (
	_HD_CODELEN_IN  = 0x18
	_HD_CODEWORD_IN = 0x1C
	_HD_SYMBOL_OUT  = 0x20
)

// Word merger registers
const (
	_WM_BYTE0    = 0x00 // most significant byte, next bytes every 4
	_WM_WORD_OUT = 0x10
)

// Cipher registers
const (
	_CI_DATA_IN  = 0x00
	_CI_KEY      = 0x04
	_CI_DATA_OUT = 0x08
)

// loadLayout  Offsets of the table load registers of a Huffman unit
type loadLayout struct {
	symbol uint32
	code   uint32
	length uint32
	valid  uint32
	done   uint32
}

var (
	encoderLoad = loadLayout{symbol: 0x14, code: 0x18, length: 0x1C, valid: 0x20, done: 0x24}
	decoderLoad = loadLayout{symbol: 0x0C, code: 0x08, length: 0x04, valid: 0x00, done: 0x10}
)

// Bus  Register access to the memory mapped IP cores
type Bus interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, value uint32) error
	Write8(addr uint32, value uint8) error
}

// RegisterMap  Base addresses of the IP cores. A zero base means the core is
// absent from the FPGA image and its operations return rbtz.ErrUnsupported.
type RegisterMap struct {
	BitParser   uint32 `yaml:"bit_parser"`
	FreqCounter uint32 `yaml:"freq_counter"`
	HuffEncoder uint32 `yaml:"huff_encoder"`
	HuffDecoder uint32 `yaml:"huff_decoder"`
	Merger      uint32 `yaml:"merger"`
	Cipher      uint32 `yaml:"cipher"`
}

// CompressionMap returns the register map of the compression image
func CompressionMap() RegisterMap {
	return RegisterMap{
		BitParser:   0x43C00000,
		FreqCounter: 0x43C10000,
		HuffEncoder: 0x43C20000,
		Cipher:      0x43C30000,
	}
}

// DecompressionMap returns the register map of the decompression image
func DecompressionMap() RegisterMap {
	return RegisterMap{
		Merger:      0x43C00000,
		HuffDecoder: 0x43C10000,
		Cipher:      0x43C20000,
	}
}

// Bases returns the non null base addresses
func (this RegisterMap) Bases() []uint32 {
	res := make([]uint32, 0, 6)

	for _, b := range []uint32{this.BitParser, this.FreqCounter, this.HuffEncoder,
		this.HuffDecoder, this.Merger, this.Cipher} {
		if b != 0 {
			res = append(res, b)
		}
	}

	return res
}

// Timeouts  Poll interval and budgets of the handshakes that wait for the device
type Timeouts struct {
	PollInterval time.Duration
	Count        time.Duration
	Load         time.Duration
	Encode       time.Duration
}

// DefaultTimeouts returns the budgets used by the firmware: 10 us polls,
// 100 ms to load a table entry and 1 s to encode a symbol. The counter
// acknowledge gets 1 s.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PollInterval: 10 * time.Microsecond,
		Count:        time.Second,
		Load:         100 * time.Millisecond,
		Encode:       time.Second,
	}
}

// RegisterAccelerator  Drives the IP cores through their register handshakes
type RegisterAccelerator struct {
	bus      Bus
	regs     RegisterMap
	timeouts Timeouts
}

func NewRegisterAccelerator(bus Bus, regs RegisterMap, timeouts Timeouts) (*RegisterAccelerator, error) {
	if bus == nil {
		return nil, errors.New("Invalid null bus parameter")
	}

	if timeouts.PollInterval < 0 {
		return nil, errors.New("Invalid poll interval: must be positive or null")
	}

	if timeouts.Count <= 0 || timeouts.Load <= 0 || timeouts.Encode <= 0 {
		return nil, errors.New("Invalid timeouts: all budgets must be positive")
	}

	if len(regs.Bases()) == 0 {
		return nil, errors.New("Invalid register map: no IP core configured")
	}

	this := &RegisterAccelerator{}
	this.bus = bus
	this.regs = regs
	this.timeouts = timeouts
	return this, nil
}

func unsupported(core string) error {
	return fmt.Errorf("%w: no %v in register map", rbtz.ErrUnsupported, core)
}

// poll waits until bit 0 of the register equals want or the budget expires
func (this *RegisterAccelerator) poll(addr uint32, want bool, budget time.Duration) error {
	deadline := time.Now().Add(budget)

	for {
		v, err := this.bus.Read32(addr)

		if err != nil {
			return err
		}

		if (v&1 == 1) == want {
			return nil
		}

		if time.Now().After(deadline) {
			return rbtz.ErrDeviceTimeout
		}

		if this.timeouts.PollInterval > 0 {
			time.Sleep(this.timeouts.PollInterval)
		}
	}
}

// Reset clears the device state when the bus supports it
func (this *RegisterAccelerator) Reset() error {
	if r, ok := this.bus.(rbtz.Resetter); ok {
		return r.Reset()
	}

	return nil
}

func (this *RegisterAccelerator) ParseWord(word uint32) ([4]byte, error) {
	var res [4]byte
	base := this.regs.BitParser

	if base == 0 {
		return res, unsupported("bit parser")
	}

	if err := this.bus.Write32(base+_BP_WORD_IN, word); err != nil {
		return res, err
	}

	for i := range res {
		v, err := this.bus.Read32(base + _BP_BYTE0 + uint32(4*i))

		if err != nil {
			return res, err
		}

		res[i] = byte(v & 0xFF)
	}

	return res, nil
}

func (this *RegisterAccelerator) CountSymbol(symbol byte) error {
	base := this.regs.FreqCounter

	if base == 0 {
		return unsupported("frequency counter")
	}

	if err := this.bus.Write32(base+_FC_SYMBOL, uint32(symbol)); err != nil {
		return err
	}

	if err := this.bus.Write32(base+_FC_LOAD, 1); err != nil {
		return err
	}

	err := this.poll(base+_FC_DONE, true, this.timeouts.Count)

	if err2 := this.bus.Write32(base+_FC_LOAD, 0); err == nil {
		err = err2
	}

	if errors.Is(err, rbtz.ErrDeviceTimeout) {
		return fmt.Errorf("%w: counting symbol %02X", err, symbol)
	}

	return err
}

func (this *RegisterAccelerator) ReadFrequency(symbol byte) (uint32, error) {
	base := this.regs.FreqCounter

	if base == 0 {
		return 0, unsupported("frequency counter")
	}

	if err := this.bus.Write32(base+_FC_ADDR, uint32(symbol)); err != nil {
		return 0, err
	}

	v, err := this.bus.Read32(base + _FC_FREQ)
	return v & FREQ_MASK, err
}

// LoadCodeEntry programs the entry in every Huffman unit of the register map
func (this *RegisterAccelerator) LoadCodeEntry(symbol byte, codeword uint32, length uint8) error {
	if this.regs.HuffEncoder == 0 && this.regs.HuffDecoder == 0 {
		return unsupported("Huffman unit")
	}

	if this.regs.HuffEncoder != 0 {
		if err := this.load(this.regs.HuffEncoder, encoderLoad, symbol, codeword, length); err != nil {
			return err
		}
	}

	if this.regs.HuffDecoder != 0 {
		if err := this.load(this.regs.HuffDecoder, decoderLoad, symbol, codeword, length); err != nil {
			return err
		}
	}

	return nil
}

func (this *RegisterAccelerator) load(base uint32, layout loadLayout, symbol byte, codeword uint32, length uint8) error {
	writes := [...][2]uint32{
		{base + layout.symbol, uint32(symbol)},
		{base + layout.code, codeword},
		{base + layout.length, uint32(length)},
		{base + layout.valid, 1},
	}

	for _, w := range writes {
		if err := this.bus.Write32(w[0], w[1]); err != nil {
			return err
		}
	}

	err := this.poll(base+layout.done, true, this.timeouts.Load)

	if err2 := this.bus.Write32(base+layout.valid, 0); err == nil {
		err = err2
	}

	if errors.Is(err, rbtz.ErrDeviceTimeout) {
		return fmt.Errorf("%w: loading symbol %02X", err, symbol)
	}

	return err
}

func (this *RegisterAccelerator) EncodeSymbol(symbol byte) (uint32, uint8, error) {
	base := this.regs.HuffEncoder

	if base == 0 {
		return 0, 0, unsupported("Huffman encoder")
	}

	if err := this.bus.Write32(base+_HE_SYMBOL_IN, uint32(symbol)); err != nil {
		return 0, 0, err
	}

	if err := this.bus.Write32(base+_HE_VALID_IN, 1); err != nil {
		return 0, 0, err
	}

	if err := this.poll(base+_HE_VALID_OUT, true, this.timeouts.Encode); err != nil {
		this.bus.Write32(base+_HE_VALID_IN, 0)

		if errors.Is(err, rbtz.ErrDeviceTimeout) {
			err = fmt.Errorf("%w: encoding symbol %02X", err, symbol)
		}

		return 0, 0, err
	}

	cw, err := this.bus.Read32(base + _HE_CODEWORD)

	if err != nil {
		return 0, 0, err
	}

	cl, err := this.bus.Read32(base + _HE_CODELEN)

	if err != nil {
		return 0, 0, err
	}

	if err = this.bus.Write32(base+_HE_VALID_IN, 0); err != nil {
		return 0, 0, err
	}

	// The next symbol may only be presented once valid_out drops
	if err = this.poll(base+_HE_VALID_OUT, false, this.timeouts.Encode); err != nil {
		if errors.Is(err, rbtz.ErrDeviceTimeout) {
			err = fmt.Errorf("%w: waiting for the encoder to release symbol %02X", err, symbol)
		}

		return 0, 0, err
	}

	return cw & CODEWORD_MASK, uint8(cl & CODELEN_MASK), nil
}

func (this *RegisterAccelerator) DecodeCodeword(codeword uint32, length uint8) (byte, error) {
	base := this.regs.HuffDecoder

	if base == 0 {
		return 0, unsupported("Huffman decoder")
	}

	if err := this.bus.Write32(base+_HD_CODEWORD_IN, codeword); err != nil {
		return 0, err
	}

	if err := this.bus.Write32(base+_HD_CODELEN_IN, uint32(length)); err != nil {
		return 0, err
	}

	v, err := this.bus.Read32(base + _HD_SYMBOL_OUT)
	return byte(v & 0xFF), err
}

func (this *RegisterAccelerator) MergeBytes4(b [4]byte) (uint32, error) {
	base := this.regs.Merger

	if base == 0 {
		return 0, unsupported("word merger")
	}

	for i := range b {
		if err := this.bus.Write8(base+_WM_BYTE0+uint32(4*i), b[i]); err != nil {
			return 0, err
		}
	}

	return this.bus.Read32(base + _WM_WORD_OUT)
}

func (this *RegisterAccelerator) CipherByte(b, key byte) (byte, error) {
	base := this.regs.Cipher

	if base == 0 {
		return 0, unsupported("cipher")
	}

	if err := this.bus.Write32(base+_CI_DATA_IN, uint32(b)); err != nil {
		return 0, err
	}

	if err := this.bus.Write32(base+_CI_KEY, uint32(key)); err != nil {
		return 0, err
	}

	v, err := this.bus.Read32(base + _CI_DATA_OUT)
	return byte(v & 0xFF), err
}
