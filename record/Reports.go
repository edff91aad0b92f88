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
	"strconv"
	"strings"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/huffman"
)

const (
	CODEBOOK_HEADER  = "Symbol       Codeword         Length"
	FREQUENCY_HEADER = "Symbol        Frequency"
	MAX_REPORT_LEN   = 31
)

var (
	CODEBOOK_SEPARATOR  = strings.Repeat("-", 38)
	FREQUENCY_SEPARATOR = strings.Repeat("-", 25)

	// ErrNotARow is returned for report lines that do not describe an entry
	ErrNotARow = errors.New("Not a codebook row")
)

// IsCodebookHeader returns true if the line is the codebook report column header
func IsCodebookHeader(line string) bool {
	return strings.TrimSpace(line) == strings.TrimSpace(CODEBOOK_HEADER)
}

// FormatCodebookRow renders an entry as a codebook report row: 8-bit
// symbol, variable length codeword, decimal length
func FormatCodebookRow(e huffman.CodeEntry) string {
	return fmt.Sprintf("%-10s %-20s %2d", FormatSymbol(e.Symbol), e.Bits(), e.Length)
}

// WriteCodebookReport writes the human readable codebook: title line,
// separator, then one row per entry.
func WriteCodebookReport(table huffman.CodeTable, dst LineSink) error {
	if err := dst.WriteLine(CODEBOOK_HEADER); err != nil {
		return err
	}

	if err := dst.WriteLine(CODEBOOK_SEPARATOR); err != nil {
		return err
	}

	for _, e := range table {
		if e.Length == 0 {
			return fmt.Errorf("Cannot report a zero length code for symbol %v", FormatSymbol(e.Symbol))
		}

		if err := dst.WriteLine(FormatCodebookRow(e)); err != nil {
			return err
		}
	}

	return nil
}

// ParseCodebookRow parses a codebook report row. Lines that are not a valid
// row (title, separator, malformed) return ErrNotARow and must be skipped.
// A codeword wider than the codeword field returns ErrCodewordTooLong.
func ParseCodebookRow(line string) (huffman.CodeEntry, error) {
	tokens := strings.Fields(line)

	if len(tokens) < 3 {
		return huffman.CodeEntry{}, ErrNotARow
	}

	symbol, err := ParseSymbol(tokens[0])

	if err != nil {
		return huffman.CodeEntry{}, ErrNotARow
	}

	if IsBinary(tokens[1]) == false {
		return huffman.CodeEntry{}, ErrNotARow
	}

	// An over-wide codeword is fatal whatever the length column holds
	if len(tokens[1]) > rbtz.CODEWORD_BITS {
		return huffman.CodeEntry{}, fmt.Errorf("%w: symbol %v has a %d bit codeword",
			ErrCodewordTooLong, tokens[0], len(tokens[1]))
	}

	length, err := strconv.Atoi(tokens[2])

	if err != nil || length < 0 || length > MAX_REPORT_LEN {
		return huffman.CodeEntry{}, ErrNotARow
	}

	code, _ := BinaryValue(tokens[1])
	return huffman.CodeEntry{Symbol: symbol, Code: code, Length: uint8(length)}, nil
}

// WriteFrequencyReport writes the human readable histogram of present symbols
func WriteFrequencyReport(freqs *huffman.FrequencyTable, dst LineSink) error {
	if err := dst.WriteLine(FREQUENCY_HEADER); err != nil {
		return err
	}

	if err := dst.WriteLine(FREQUENCY_SEPARATOR); err != nil {
		return err
	}

	for s, f := range freqs {
		if f == 0 {
			continue
		}

		if err := dst.WriteLine(fmt.Sprintf("%s        %d", FormatSymbol(byte(s)), f)); err != nil {
			return err
		}
	}

	return nil
}
