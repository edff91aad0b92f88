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

//go:build linux

package accel

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMemBus  Register access through physical memory mappings of /dev/mem.
// One window of IP_WINDOW bytes is mapped per IP core of the register map.
type DevMemBus struct {
	fd      int
	windows map[uint32][]byte
}

// NewDevMemBus maps the register windows of every core of the map
func NewDevMemBus(path string, regs RegisterMap) (*DevMemBus, error) {
	bases := regs.Bases()

	if len(bases) == 0 {
		return nil, errors.New("Invalid register map: no IP core configured")
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)

	if err != nil {
		return nil, fmt.Errorf("Cannot open %v: %w", path, err)
	}

	this := &DevMemBus{fd: fd, windows: make(map[uint32][]byte, len(bases))}

	for _, base := range bases {
		if base%uint32(unix.Getpagesize()) != 0 {
			this.Close()
			return nil, fmt.Errorf("Invalid base address %08X: not page aligned", base)
		}

		data, err := unix.Mmap(fd, int64(base), IP_WINDOW, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)

		if err != nil {
			this.Close()
			return nil, fmt.Errorf("Cannot map registers at %08X: %w", base, err)
		}

		this.windows[base] = data
	}

	return this, nil
}

func (this *DevMemBus) locate(addr uint32, size uint32) ([]byte, uint32, error) {
	for base, win := range this.windows {
		if inWindow(addr, size, base) {
			off := addr - base

			if off%size != 0 {
				return nil, 0, fmt.Errorf("Unaligned register access at %08X", addr)
			}

			return win, off, nil
		}
	}

	return nil, 0, fmt.Errorf("Bus error: no device mapped at address %08X", addr)
}

func (this *DevMemBus) Read32(addr uint32) (uint32, error) {
	win, off, err := this.locate(addr, 4)

	if err != nil {
		return 0, err
	}

	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&win[off]))), nil
}

func (this *DevMemBus) Write32(addr uint32, value uint32) error {
	win, off, err := this.locate(addr, 4)

	if err != nil {
		return err
	}

	atomic.StoreUint32((*uint32)(unsafe.Pointer(&win[off])), value)
	return nil
}

func (this *DevMemBus) Write8(addr uint32, value uint8) error {
	win, off, err := this.locate(addr, 1)

	if err != nil {
		return err
	}

	win[off] = value
	return nil
}

// Close unmaps the register windows
func (this *DevMemBus) Close() error {
	var err error

	for base, win := range this.windows {
		if err2 := unix.Munmap(win); err == nil {
			err = err2
		}

		delete(this.windows, base)
	}

	if this.fd >= 0 {
		if err2 := unix.Close(this.fd); err == nil {
			err = err2
		}

		this.fd = -1
	}

	return err
}
