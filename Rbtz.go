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
	"errors"
	"io"
)

const (
	ERR_MISSING_PARAM  = 1
	ERR_INVALID_PARAM  = 2
	ERR_OPEN_FILE      = 3
	ERR_CREATE_FILE    = 4
	ERR_OVERWRITE_FILE = 5
	ERR_STORAGE        = 6
	ERR_DEVICE_TIMEOUT = 7
	ERR_DEVICE         = 8
	ERR_VALIDATION     = 9
	ERR_CONSISTENCY    = 10
	ERR_BUSY           = 11
	ERR_CONFIG         = 12
	ERR_INVALID_FILE   = 13
	ERR_UNKNOWN        = 127
)

const (
	SYMBOL_BITS   = 8  // width of a symbol record
	CODEWORD_BITS = 16 // width of a codeword record
	LENGTH_BITS   = 5  // width of a code length record
	WORD_BITS     = 32 // width of a parsed/merged word record
	MAX_SYMBOLS   = 256
	MAX_CODE_LEN  = CODEWORD_BITS
	DEFAULT_KEY   = 0x5A
)

var (
	// ErrDeviceTimeout is returned (possibly wrapped) when a bounded accelerator
	// poll expires before the device signals completion.
	ErrDeviceTimeout = errors.New("Accelerator did not signal completion in time")

	// ErrUnsupported is returned when the accelerator does not provide an operation
	ErrUnsupported = errors.New("Operation not supported by accelerator")

	// ErrBusy is returned when a pipeline instance is already running
	ErrBusy = errors.New("Pipeline already running")
)

// Accelerator  The blocking operations offered by the fixed-function hardware.
// Calls are issued from a single goroutine and never overlap.
type Accelerator interface {
	// ParseWord  Split a 32-bit word into 4 bytes (most significant first)
	ParseWord(word uint32) ([4]byte, error)

	// CountSymbol  Accumulate one occurrence of symbol in the histogram counter.
	// Returns ErrDeviceTimeout if the counter does not acknowledge in time.
	CountSymbol(symbol byte) error

	// ReadFrequency  Return the accumulated count of symbol
	ReadFrequency(symbol byte) (uint32, error)

	// LoadCodeEntry  Program one (symbol, codeword, length) entry in the Huffman unit.
	// Returns ErrDeviceTimeout if the load is not acknowledged in time.
	LoadCodeEntry(symbol byte, codeword uint32, length uint8) error

	// EncodeSymbol  Return the codeword and code length of symbol.
	// Returns ErrDeviceTimeout if no valid output shows up in time.
	EncodeSymbol(symbol byte) (uint32, uint8, error)

	// DecodeCodeword  Return the symbol whose code is (codeword, length)
	DecodeCodeword(codeword uint32, length uint8) (byte, error)

	// MergeBytes4  Merge 4 bytes (most significant first) into a 32-bit word
	MergeBytes4(b [4]byte) (uint32, error)

	// CipherByte  Apply the single byte key cipher. The transform is involutory.
	CipherByte(b, key byte) (byte, error)
}

// Resetter  An accelerator that can clear its counters and tables between runs
type Resetter interface {
	Reset() error
}

// StagingStore  Named artifact storage shared by the pipeline stages
type StagingStore interface {
	// Open  Open an existing artifact for reading
	Open(name string) (io.ReadSeekCloser, error)

	// Create  Create an artifact for writing, truncating it if it exists
	Create(name string) (io.WriteCloser, error)

	// Remove  Delete an artifact. Removing a missing artifact is not an error.
	Remove(name string) error

	// Size  Return the size of an artifact in bytes
	Size(name string) (int64, error)
}
