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
	"fmt"
)

// IP_WINDOW is the size of the register window of each IP core
const IP_WINDOW = 0x10000

// Faults  Handshake failures injected in a SimulatedBus
type Faults struct {
	CountStuck  bool // the counter never acknowledges a symbol
	LoadStuck   bool // load done never rises
	EncodeStuck bool // valid out never rises
	EncodeHeld  bool // valid out never drops
}

// SimulatedBus  Register level simulation of the IP cores at the addresses
// of a register map, backed by a SoftAccelerator
type SimulatedBus struct {
	regs    RegisterMap
	model   *SoftAccelerator
	faults  Faults
	regfile map[uint32]uint32
	writes  int64
}

func NewSimulatedBus(regs RegisterMap) *SimulatedBus {
	this := &SimulatedBus{}
	this.regs = regs
	this.model = NewSoftAccelerator()
	this.regfile = make(map[uint32]uint32)
	return this
}

// Inject replaces the active faults
func (this *SimulatedBus) Inject(f Faults) {
	this.faults = f
}

// Model returns the software model holding the simulated device state
func (this *SimulatedBus) Model() *SoftAccelerator {
	return this.model
}

// Writes returns the number of register writes
func (this *SimulatedBus) Writes() int64 {
	return this.writes
}

func (this *SimulatedBus) Reset() error {
	this.regfile = make(map[uint32]uint32)
	return this.model.Reset()
}

// inWindow tells whether the size bytes at addr fit in the register window
// starting at base. Written without addr+size so that windows at the top of
// the address space do not wrap.
func inWindow(addr, size, base uint32) bool {
	return size <= IP_WINDOW && addr >= base && addr-base <= IP_WINDOW-size
}

func within(addr, base uint32) bool {
	return base != 0 && inWindow(addr, 1, base)
}

func (this *SimulatedBus) check(addr uint32) error {
	for _, base := range this.regs.Bases() {
		if within(addr, base) {
			return nil
		}
	}

	return fmt.Errorf("Bus error: no device at address %08X", addr)
}

func (this *SimulatedBus) Read32(addr uint32) (uint32, error) {
	if err := this.check(addr); err != nil {
		return 0, err
	}

	return this.regfile[addr], nil
}

func (this *SimulatedBus) Write8(addr uint32, value uint8) error {
	return this.Write32(addr, uint32(value))
}

func (this *SimulatedBus) Write32(addr uint32, value uint32) error {
	if err := this.check(addr); err != nil {
		return err
	}

	this.writes++
	this.regfile[addr] = value

	switch {
	case within(addr, this.regs.BitParser):
		this.bitParser(this.regs.BitParser, addr-this.regs.BitParser)

	case within(addr, this.regs.FreqCounter):
		this.freqCounter(this.regs.FreqCounter, addr-this.regs.FreqCounter)

	case within(addr, this.regs.HuffEncoder):
		this.encoder(this.regs.HuffEncoder, addr-this.regs.HuffEncoder)

	case within(addr, this.regs.HuffDecoder):
		this.decoder(this.regs.HuffDecoder, addr-this.regs.HuffDecoder)

	case within(addr, this.regs.Merger):
		this.merger(this.regs.Merger, addr-this.regs.Merger)

	case within(addr, this.regs.Cipher):
		this.cipher(this.regs.Cipher, addr-this.regs.Cipher)
	}

	return nil
}

func (this *SimulatedBus) bitParser(base, off uint32) {
	if off != _BP_WORD_IN {
		return
	}

	b, _ := this.model.ParseWord(this.regfile[base+_BP_WORD_IN])

	for i := range b {
		this.regfile[base+_BP_BYTE0+uint32(4*i)] = uint32(b[i])
	}
}

func (this *SimulatedBus) freqCounter(base, off uint32) {
	switch off {
	case _FC_LOAD:
		if this.regfile[base+_FC_LOAD]&1 == 0 {
			this.regfile[base+_FC_DONE] = 0
			return
		}

		if this.faults.CountStuck == false && this.regfile[base+_FC_DONE] == 0 {
			this.model.CountSymbol(byte(this.regfile[base+_FC_SYMBOL]))
			this.regfile[base+_FC_DONE] = 1
		}

	case _FC_ADDR:
		f, _ := this.model.ReadFrequency(byte(this.regfile[base+_FC_ADDR]))
		this.regfile[base+_FC_FREQ] = f
	}
}

func (this *SimulatedBus) load(base, off uint32, layout loadLayout) bool {
	if off != layout.valid {
		return false
	}

	if this.regfile[base+layout.valid]&1 == 0 {
		this.regfile[base+layout.done] = 0
		return true
	}

	if this.faults.LoadStuck == false {
		err := this.model.LoadCodeEntry(byte(this.regfile[base+layout.symbol]), this.regfile[base+layout.code],
			uint8(this.regfile[base+layout.length]&CODELEN_MASK))

		if err == nil {
			this.regfile[base+layout.done] = 1
		}
	}

	return true
}

func (this *SimulatedBus) encoder(base, off uint32) {
	if this.load(base, off, encoderLoad) == true || off != _HE_VALID_IN {
		return
	}

	if this.regfile[base+_HE_VALID_IN]&1 == 0 {
		if this.faults.EncodeHeld == false {
			this.regfile[base+_HE_VALID_OUT] = 0
		}

		return
	}

	if this.faults.EncodeStuck == true {
		return
	}

	// An unknown symbol leaves valid out low
	cw, cl, err := this.model.EncodeSymbol(byte(this.regfile[base+_HE_SYMBOL_IN]))

	if err == nil {
		this.regfile[base+_HE_CODEWORD] = cw
		this.regfile[base+_HE_CODELEN] = uint32(cl)
		this.regfile[base+_HE_VALID_OUT] = 1
	}
}

func (this *SimulatedBus) decoder(base, off uint32) {
	if this.load(base, off, decoderLoad) == true {
		return
	}

	if off == _HD_CODELEN_IN || off == _HD_CODEWORD_IN {
		s, _ := this.model.DecodeCodeword(this.regfile[base+_HD_CODEWORD_IN],
			uint8(this.regfile[base+_HD_CODELEN_IN]&CODELEN_MASK))
		this.regfile[base+_HD_SYMBOL_OUT] = uint32(s)
	}
}

func (this *SimulatedBus) merger(base, off uint32) {
	if off > _WM_BYTE0+12 {
		return
	}

	var b [4]byte

	for i := range b {
		b[i] = byte(this.regfile[base+_WM_BYTE0+uint32(4*i)])
	}

	w, _ := this.model.MergeBytes4(b)
	this.regfile[base+_WM_WORD_OUT] = w
}

func (this *SimulatedBus) cipher(base, off uint32) {
	if off != _CI_DATA_IN && off != _CI_KEY {
		return
	}

	c, _ := this.model.CipherByte(byte(this.regfile[base+_CI_DATA_IN]), byte(this.regfile[base+_CI_KEY]))
	this.regfile[base+_CI_DATA_OUT] = uint32(c)
}
