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
	"fmt"
	"io"
	"sort"
	"strconv"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/huffman"
)

// DECIMAL is the width of a field holding a decimal number
const DECIMAL = 0

var (
	// ErrRowCountMismatch is returned when parallel streams do not have the same number of rows
	ErrRowCountMismatch = errors.New("Parallel streams have different row counts")

	// ErrDuplicateSymbol is returned when a table lists the same symbol twice
	ErrDuplicateSymbol = errors.New("Duplicate symbol in table")
)

// LineSource  A stream of lines, io.EOF at the end
type LineSource interface {
	ReadLine() (string, error)
}

// LineSink  A line oriented output
type LineSink interface {
	WriteLine(line string) error
}

// TableReader reads rows from parallel streams, row i of each stream
// belonging to the same entry. Rows with a malformed field are skipped.
type TableReader struct {
	srcs    []LineSource
	widths  []int
	values  []uint32
	rows    int64
	skipped int64
}

// NewTableReader creates a reader of len(srcs) parallel streams. Field i is
// validated against widths[i], DECIMAL meaning an unsigned decimal number.
func NewTableReader(widths []int, srcs ...LineSource) (*TableReader, error) {
	if len(srcs) == 0 || len(srcs) != len(widths) {
		return nil, errors.New("Invalid table reader parameters: one width per stream required")
	}

	for _, src := range srcs {
		if src == nil {
			return nil, errors.New("Invalid null stream parameter")
		}
	}

	this := &TableReader{}
	this.srcs = srcs
	this.widths = widths
	this.values = make([]uint32, len(srcs))
	return this, nil
}

// Next returns the fields of the next well formed row. The returned slice
// is reused by the following call. Returns io.EOF when all streams end
// together and ErrRowCountMismatch when they do not.
func (this *TableReader) Next() ([]uint32, error) {
	for {
		ended := 0
		valid := true

		for i, src := range this.srcs {
			line, err := src.ReadLine()

			if err == io.EOF {
				ended++
				continue
			}

			if err != nil {
				return nil, err
			}

			if ended > 0 {
				break
			}

			if this.values[i], err = parseField(line, this.widths[i]); err != nil {
				valid = false
			}
		}

		if ended == len(this.srcs) {
			return nil, io.EOF
		}

		if ended > 0 {
			return nil, fmt.Errorf("%w after %d rows", ErrRowCountMismatch, this.rows+this.skipped)
		}

		if valid == false {
			this.skipped++
			continue
		}

		this.rows++
		return this.values, nil
	}
}

// Rows returns the number of rows returned so far
func (this *TableReader) Rows() int64 {
	return this.rows
}

// Skipped returns the number of malformed rows skipped so far
func (this *TableReader) Skipped() int64 {
	return this.skipped
}

func parseField(s string, width int) (uint32, error) {
	if width != DECIMAL {
		return ParseBits(s, width)
	}

	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

// WriteCodeTable writes the table as three parallel streams: 8-bit symbols,
// 16-bit codewords and 5-bit lengths, in table order.
func WriteCodeTable(table huffman.CodeTable, symbols, codewords, lengths LineSink) error {
	for _, e := range table {
		if e.Length > rbtz.MAX_CODE_LEN {
			return fmt.Errorf("%w: symbol %d has %d bits", ErrCodewordTooLong, e.Symbol, e.Length)
		}

		if err := symbols.WriteLine(FormatSymbol(e.Symbol)); err != nil {
			return err
		}

		if err := codewords.WriteLine(FormatBits(e.Code, rbtz.CODEWORD_BITS)); err != nil {
			return err
		}

		if err := lengths.WriteLine(FormatBits(uint32(e.Length), rbtz.LENGTH_BITS)); err != nil {
			return err
		}
	}

	return nil
}

// NewCodeTableReader returns a reader of the three parallel table streams
func NewCodeTableReader(symbols, codewords, lengths LineSource) (*TableReader, error) {
	return NewTableReader([]int{rbtz.SYMBOL_BITS, rbtz.CODEWORD_BITS, rbtz.LENGTH_BITS},
		symbols, codewords, lengths)
}

// ReadCodeTable rebuilds a code table from three parallel streams. Rows may
// come in any order, the result is ordered by symbol. Returns the number of
// skipped rows.
func ReadCodeTable(symbols, codewords, lengths LineSource) (huffman.CodeTable, int64, error) {
	reader, err := NewCodeTableReader(symbols, codewords, lengths)

	if err != nil {
		return nil, 0, err
	}

	res := huffman.CodeTable{}
	var seen [rbtz.MAX_SYMBOLS]bool

	for {
		row, err := reader.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, reader.Skipped(), err
		}

		s := byte(row[0])

		if seen[s] == true {
			return nil, reader.Skipped(), fmt.Errorf("%w: %v", ErrDuplicateSymbol, FormatSymbol(s))
		}

		seen[s] = true
		res = append(res, huffman.CodeEntry{Symbol: s, Code: row[1], Length: uint8(row[2])})
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Symbol < res[j].Symbol })
	return res, reader.Skipped(), nil
}

// Promote returns the table unchanged unless it holds a single entry of
// length 0, which is replaced by the 1-bit code '0'. A zero width code
// cannot be carried by the records.
func Promote(table huffman.CodeTable) huffman.CodeTable {
	if len(table) != 1 || table[0].Length != 0 {
		return table
	}

	return huffman.CodeTable{{Symbol: table[0].Symbol, Code: 0, Length: 1}}
}
