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

//go:build !linux

package accel

import (
	"errors"
)

type DevMemBus struct{}

func NewDevMemBus(path string, regs RegisterMap) (*DevMemBus, error) {
	return nil, errors.New("Physical memory access is only available on Linux")
}

func (this *DevMemBus) Read32(addr uint32) (uint32, error) {
	return 0, errors.New("Physical memory access is only available on Linux")
}

func (this *DevMemBus) Write32(addr uint32, value uint32) error {
	return errors.New("Physical memory access is only available on Linux")
}

func (this *DevMemBus) Write8(addr uint32, value uint8) error {
	return errors.New("Physical memory access is only available on Linux")
}

func (this *DevMemBus) Close() error {
	return nil
}
