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
	"fmt"
	"io"
	"strconv"
	"strings"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/record"
	"github.com/flanglet/rbtz/staging"
)

// Compressor  The 6 stage compression pipeline: parse, count, codebook,
// encode, bundle and encrypt
type Compressor struct {
	engine
	names CompressionNames
}

func NewCompressor(store rbtz.StagingStore, acc rbtz.Accelerator, opts Options, names CompressionNames) (*Compressor, error) {
	if err := checkNames(names.all()); err != nil {
		return nil, err
	}

	this := &Compressor{}

	if err := this.engine.init(store, acc, opts); err != nil {
		return nil, err
	}

	this.names = names
	this.stages = []Stage{
		{Name: "parse", Run: this.parse},
		{Name: "count", Run: this.count},
		{Name: "codebook", Run: this.codebook},
		{Name: "encode", Run: this.encode},
		{Name: "bundle", Run: this.bundle},
		{Name: "encrypt", Run: this.encrypt},
	}

	return this, nil
}

func (this *Compressor) Names() CompressionNames {
	return this.names
}

// Compress runs the pipeline over the input artifact. The cipher text is
// written to the Encrypted artifact. The run is returned even on failure.
// Returns rbtz.ErrBusy if another execution is in progress.
func (this *Compressor) Compress(input string) (*Run, error) {
	for _, n := range this.names.all() {
		if n == input {
			return nil, fmt.Errorf("Invalid input artifact '%v': name used by a stage output", input)
		}
	}

	run := newRun(COMPRESSION, input, this.names.Encrypted)
	return run, this.execute(run, this.names.Intermediates())
}

// Header lines are copied up to and including the sentinel line. Payload
// bits are grouped in 32-bit words split by the bit parser.
func (this *Compressor) parse(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var in *staging.LineReader
	var header, parsed *staging.LineWriter

	if err = st.detectEnding(st.run.Input); err != nil {
		return err
	}

	if in, err = files.open(st.run.Input); err != nil {
		return err
	}

	if header, err = files.create(this.names.Header); err != nil {
		return err
	}

	if parsed, err = files.create(this.names.Parsed); err != nil {
		return err
	}

	packer, _ := record.NewBitPacker(rbtz.WORD_BITS)

	emit := func(word uint32) error {
		b, err := st.acc.ParseWord(word)

		if err != nil {
			return device(err)
		}

		for i := range b {
			if err := parsed.WriteLine(record.FormatSymbol(b[i])); err != nil {
				return storage(err)
			}
		}

		st.Record()
		return nil
	}

	inHeader := true

	for {
		line, err := in.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			return storage(err)
		}

		if inHeader == true {
			if err = header.WriteLine(line); err != nil {
				return storage(err)
			}

			inHeader = !strings.HasPrefix(line, st.opts.Sentinel)
			continue
		}

		if err = packer.Feed(line, emit); err != nil {
			return err
		}
	}

	if inHeader == true {
		st.logger.Warn("header sentinel not found", "sentinel", st.opts.Sentinel, "lines", in.Lines())
	}

	if word, bits, ok := packer.Flush(); ok == true {
		st.run.PaddingBits = rbtz.WORD_BITS - bits
		st.logger.Info("last word zero padded", "bits", bits, "padding", st.run.PaddingBits)
		return emit(word)
	}

	return nil
}

// The parsed bytes go through the frequency counter, then the counters
// are read back for every symbol.
func (this *Compressor) count(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var in *staging.LineReader
	var report, symbols, counts *staging.LineWriter

	if in, err = files.open(this.names.Parsed); err != nil {
		return err
	}

	packer, _ := record.NewBitPacker(rbtz.SYMBOL_BITS)
	streamed := int64(0)

	emit := func(b uint32) error {
		if err := st.acc.CountSymbol(byte(b)); err != nil {
			return device(err)
		}

		streamed++
		st.Record()
		return nil
	}

	for {
		line, err := in.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			return storage(err)
		}

		if err = packer.Feed(line, emit); err != nil {
			return err
		}
	}

	if streamed == 0 {
		return validation(fmt.Errorf("%w: no symbol in '%v'", ErrEmptyPayload, this.names.Parsed))
	}

	if packer.Pending() > 0 {
		st.logger.Warn("trailing bits ignored", "artifact", this.names.Parsed, "bits", packer.Pending())
	}

	freqs := &st.run.Freqs

	for s := range freqs {
		f, err := st.acc.ReadFrequency(byte(s))

		if err != nil {
			return device(err)
		}

		freqs[s] = f
	}

	st.run.Symbols = streamed

	if total := freqs.Total(); total != uint64(streamed) {
		return consistency(fmt.Errorf("%w: %d symbols counted, counters total %d", ErrFrequencySum, streamed, total))
	}

	if report, err = files.create(this.names.FreqRep); err != nil {
		return err
	}

	if symbols, err = files.create(this.names.Symbols); err != nil {
		return err
	}

	if counts, err = files.create(this.names.Counts); err != nil {
		return err
	}

	if err = record.WriteFrequencyReport(freqs, report); err != nil {
		return storage(err)
	}

	for s, f := range freqs {
		if f == 0 {
			continue
		}

		if err = symbols.WriteLine(record.FormatSymbol(byte(s))); err != nil {
			return storage(err)
		}

		if err = counts.WriteLine(strconv.FormatUint(uint64(f), 10)); err != nil {
			return storage(err)
		}
	}

	return nil
}

// The symbol and count rows are paired by position. They must be in the
// increasing symbol order the count stage writes them in.
func (this *Compressor) codebook(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var syms, counts *staging.LineReader
	var symIn, codewIn, codeLen, report *staging.LineWriter

	if syms, err = files.open(this.names.Symbols); err != nil {
		return err
	}

	if counts, err = files.open(this.names.Counts); err != nil {
		return err
	}

	reader, err := record.NewTableReader([]int{rbtz.SYMBOL_BITS, record.DECIMAL}, syms, counts)

	if err != nil {
		return err
	}

	freqs := &st.run.Freqs
	*freqs = [rbtz.MAX_SYMBOLS]uint32{}
	prev := -1

	for {
		row, err := reader.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		if int(row[0]) <= prev {
			return consistency(fmt.Errorf("%w: %v after %v at row %d", ErrSymbolOrder,
				record.FormatSymbol(byte(row[0])), record.FormatSymbol(byte(prev)), reader.Rows()))
		}

		prev = int(row[0])
		freqs[row[0]] = row[1]
		st.Record()
	}

	st.skipped += reader.Skipped()
	table, err := st.run.builder.Build(freqs)

	if err != nil {
		return validation(err)
	}

	if len(table) == 0 {
		return validation(fmt.Errorf("%w: no symbol in '%v'", ErrEmptyPayload, this.names.Symbols))
	}

	table = record.Promote(table)
	st.run.Table = table
	total := freqs.Total()
	st.run.Entropy1024 = rbtz.ComputeFirstOrderEntropy1024(total, freqs[:])
	st.logger.Info("code table built", "symbols", len(table), "max_length", table.MaxLength(),
		"entropy_1024", st.run.Entropy1024, "avg_length_1024", table.WeightedLength(freqs)*1024/total)

	if symIn, err = files.create(this.names.SymIn); err != nil {
		return err
	}

	if codewIn, err = files.create(this.names.CodewIn); err != nil {
		return err
	}

	if codeLen, err = files.create(this.names.CodeLen); err != nil {
		return err
	}

	if report, err = files.create(this.names.Codebook); err != nil {
		return err
	}

	if err = record.WriteCodeTable(table, symIn, codewIn, codeLen); err != nil {
		return err
	}

	return record.WriteCodebookReport(table, report)
}

// The code table is loaded entry by entry, then every parsed byte is
// encoded and written as a codeword of exactly its length.
func (this *Compressor) encode(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var syms, codes, lens, parsed *staging.LineReader
	var out *staging.LineWriter

	if syms, err = files.open(this.names.SymIn); err != nil {
		return err
	}

	if codes, err = files.open(this.names.CodewIn); err != nil {
		return err
	}

	if lens, err = files.open(this.names.CodeLen); err != nil {
		return err
	}

	if parsed, err = files.open(this.names.Parsed); err != nil {
		return err
	}

	if out, err = files.create(this.names.Encoded); err != nil {
		return err
	}

	loaded, err := loadTable(st, syms, codes, lens)

	if err != nil {
		return err
	}

	st.logger.Info("code table loaded", "entries", loaded)

	if err = parsed.Rewind(); err != nil {
		return storage(err)
	}

	for {
		line, err := parsed.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			return storage(err)
		}

		s, err := record.ParseSymbol(line)

		if err != nil {
			st.Skip(this.names.Parsed, parsed.Lines(), err.Error())
			continue
		}

		cw, cl, err := st.acc.EncodeSymbol(s)

		if err != nil {
			return device(err)
		}

		if cl == 0 || cl > rbtz.MAX_CODE_LEN {
			return device(fmt.Errorf("%w: encoder returned %d bits for symbol %v", ErrZeroLength, cl, line))
		}

		if err = out.WriteLine(record.FormatBits(cw, int(cl))); err != nil {
			return storage(err)
		}

		st.Record()
	}

	return nil
}

// loadTable programs every well formed row of the three table streams. The
// first failure stops the load.
func loadTable(st *StageState, syms, codes, lens record.LineSource) (int, error) {
	reader, err := record.NewCodeTableReader(syms, codes, lens)

	if err != nil {
		return 0, err
	}

	loaded := 0

	for {
		row, err := reader.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			return loaded, err
		}

		if err = st.acc.LoadCodeEntry(byte(row[0]), row[1], uint8(row[2])); err != nil {
			return loaded, device(err)
		}

		loaded++
	}

	st.skipped += reader.Skipped()
	return loaded, nil
}

func (this *Compressor) bundle(st *StageState) error {
	st.run.addArtifact(this.names.Bundle)
	n, err := staging.Concat(st.store, this.names.Bundle, this.names.Header, this.names.Codebook, this.names.Encoded)
	st.records = n
	return storage(err)
}

func (this *Compressor) encrypt(st *StageState) error {
	return cipherArtifact(st, this.names.Bundle, this.names.Encrypted)
}
