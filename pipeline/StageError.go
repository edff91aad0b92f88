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

package pipeline

import (
	"errors"
	"fmt"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/huffman"
	"github.com/flanglet/rbtz/record"
)

// ErrorKind  Classification of a stage failure
type ErrorKind int

const (
	KindStorage ErrorKind = iota + 1
	KindDeviceTimeout
	KindDevice
	KindValidation
	KindConsistency
)

var (
	// ErrEmptyPayload is returned when the input holds no payload bit
	ErrEmptyPayload = errors.New("Empty payload")

	// ErrFrequencySum is returned when the counter totals do not match the symbols streamed
	ErrFrequencySum = errors.New("Frequency total does not match the number of symbols counted")

	// ErrSymbolOrder is returned when symbol rows are not in increasing order
	ErrSymbolOrder = errors.New("Symbols not in increasing order")

	// ErrZeroLength is returned when the encoder reports a code without bits
	ErrZeroLength = errors.New("Zero length code")
)

func (this ErrorKind) String() string {
	switch this {
	case KindStorage:
		return "storage"

	case KindDeviceTimeout:
		return "device timeout"

	case KindDevice:
		return "device"

	case KindValidation:
		return "validation"

	case KindConsistency:
		return "consistency"
	}

	return "unknown"
}

// ErrorCode returns the process exit code of the kind
func (this ErrorKind) ErrorCode() int {
	switch this {
	case KindStorage:
		return rbtz.ERR_STORAGE

	case KindDeviceTimeout:
		return rbtz.ERR_DEVICE_TIMEOUT

	case KindDevice:
		return rbtz.ERR_DEVICE

	case KindValidation:
		return rbtz.ERR_VALIDATION

	case KindConsistency:
		return rbtz.ERR_CONSISTENCY
	}

	return rbtz.ERR_UNKNOWN
}

// StageError an extended error naming the failed stage and the failure kind
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (this *StageError) Error() string {
	return fmt.Sprintf("Stage %v failed (%v): %v", this.Stage, this.Kind, this.Err)
}

// Message returns the message of the underlying error
func (this *StageError) Message() string {
	return this.Err.Error()
}

// ErrorCode returns the process exit code associated with the error
func (this *StageError) ErrorCode() int {
	return this.Kind.ErrorCode()
}

func (this *StageError) Unwrap() error {
	return this.Err
}

func fail(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}

	return &StageError{Kind: kind, Err: err}
}

func storage(err error) error {
	return fail(KindStorage, err)
}

func validation(err error) error {
	return fail(KindValidation, err)
}

func consistency(err error) error {
	return fail(KindConsistency, err)
}

// device classifies an accelerator failure
func device(err error) error {
	if errors.Is(err, rbtz.ErrDeviceTimeout) {
		return fail(KindDeviceTimeout, err)
	}

	return fail(KindDevice, err)
}

// classify turns any stage failure into a StageError for the named stage
func classify(stage string, err error) *StageError {
	var se *StageError

	if errors.As(err, &se) {
		res := *se
		res.Stage = stage
		return &res
	}

	res := &StageError{Stage: stage, Kind: KindStorage, Err: err}

	switch {
	case errors.Is(err, rbtz.ErrDeviceTimeout):
		res.Kind = KindDeviceTimeout

	case errors.Is(err, record.ErrRowCountMismatch), errors.Is(err, record.ErrDuplicateSymbol),
		errors.Is(err, ErrFrequencySum), errors.Is(err, ErrSymbolOrder):
		res.Kind = KindConsistency

	case errors.Is(err, huffman.ErrCodeTooLong), errors.Is(err, record.ErrCodewordTooLong),
		errors.Is(err, ErrEmptyPayload):
		res.Kind = KindValidation
	}

	return res
}
