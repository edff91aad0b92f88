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
	"io"
	"strings"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/record"
	"github.com/flanglet/rbtz/staging"
)

// Decompressor  The 8 stage decompression pipeline: decrypt, split, table
// regeneration from the codebook and from the output, load, decode, merge
// of bytes into words and merge of the header with the words
type Decompressor struct {
	engine
	names DecompressionNames
}

func NewDecompressor(store rbtz.StagingStore, acc rbtz.Accelerator, opts Options, names DecompressionNames) (*Decompressor, error) {
	if err := checkNames(names.all()); err != nil {
		return nil, err
	}

	this := &Decompressor{}

	if err := this.engine.init(store, acc, opts); err != nil {
		return nil, err
	}

	this.names = names
	this.stages = []Stage{
		{Name: "decrypt", Run: this.decrypt},
		{Name: "split", Run: this.split},
		{Name: "regen-codebook", Run: this.regenCodebook},
		{Name: "regen-output", Run: this.regenOutput},
		{Name: "load", Run: this.load},
		{Name: "decode", Run: this.decode},
		{Name: "merge-bytes", Run: this.mergeBytes},
		{Name: "merge-final", Run: this.mergeFinal},
	}

	return this, nil
}

func (this *Decompressor) Names() DecompressionNames {
	return this.names
}

// Decompress runs the pipeline over the cipher text artifact. The
// reconstructed bitstream is written to the Final artifact. The run is
// returned even on failure. Returns rbtz.ErrBusy if another execution is
// in progress.
func (this *Decompressor) Decompress(input string) (*Run, error) {
	for _, n := range this.names.all() {
		if n == input {
			return nil, fmt.Errorf("Invalid input artifact '%v': name used by a stage output", input)
		}
	}

	run := newRun(DECOMPRESSION, input, this.names.Final)
	return run, this.execute(run, this.names.Intermediates())
}

func (this *Decompressor) decrypt(st *StageState) error {
	return cipherArtifact(st, st.run.Input, this.names.Decrypted)
}

func (this *Decompressor) split(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var in *staging.LineReader
	var sections [3]*staging.LineWriter

	if err = st.detectEnding(this.names.Decrypted); err != nil {
		return err
	}

	if in, err = files.open(this.names.Decrypted); err != nil {
		return err
	}

	for i, name := range []string{this.names.Header, this.names.Codebook, this.names.Encoded} {
		if sections[i], err = files.create(name); err != nil {
			return err
		}
	}

	splitter := NewSplitter()

	for {
		line, err := in.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			return storage(err)
		}

		if err = sections[splitter.Classify(line)].WriteLine(line); err != nil {
			return storage(err)
		}

		st.Record()
	}

	st.logger.Info("bundle split", "header", splitter.Lines(SECTION_HEADER),
		"codebook", splitter.Lines(SECTION_CODEBOOK), "output", splitter.Lines(SECTION_OUTPUT))

	if splitter.Lines(SECTION_CODEBOOK) == 0 {
		st.logger.Warn("no codebook found in bundle", "artifact", this.names.Decrypted)
	}

	return nil
}

func (this *Decompressor) regenCodebook(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var in *staging.LineReader
	var symIn, codewIn, codeLen *staging.LineWriter

	if in, err = files.open(this.names.Codebook); err != nil {
		return err
	}

	if symIn, err = files.create(this.names.SymIn); err != nil {
		return err
	}

	if codewIn, err = files.create(this.names.CodewIn); err != nil {
		return err
	}

	if codeLen, err = files.create(this.names.CodeLen); err != nil {
		return err
	}

	for {
		line, err := in.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			return storage(err)
		}

		e, err := record.ParseCodebookRow(line)

		if errors.Is(err, record.ErrNotARow) {
			trimmed := strings.TrimSpace(line)

			if len(trimmed) > 0 && record.IsCodebookHeader(trimmed) == false && trimmed != record.CODEBOOK_SEPARATOR {
				st.Skip(this.names.Codebook, in.Lines(), "not a codebook row")
			}

			continue
		}

		if err != nil {
			return validation(err)
		}

		if err = symIn.WriteLine(record.FormatSymbol(e.Symbol)); err != nil {
			return storage(err)
		}

		if err = codewIn.WriteLine(record.FormatBits(e.Code, rbtz.CODEWORD_BITS)); err != nil {
			return storage(err)
		}

		if err = codeLen.WriteLine(record.FormatBits(uint32(e.Length), rbtz.LENGTH_BITS)); err != nil {
			return storage(err)
		}

		st.Record()
	}

	return nil
}

// Each output line is one codeword occurrence
func (this *Decompressor) regenOutput(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var in *staging.LineReader
	var occCode, occLen *staging.LineWriter

	if in, err = files.open(this.names.Encoded); err != nil {
		return err
	}

	if occCode, err = files.create(this.names.OccCode); err != nil {
		return err
	}

	if occLen, err = files.create(this.names.OccLen); err != nil {
		return err
	}

	for {
		line, err := in.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			return storage(err)
		}

		code, length, ok, err := record.ParseOutputLine(line)

		if err != nil {
			return validation(fmt.Errorf("'%v' line %d: %w", this.names.Encoded, in.Lines(), err))
		}

		if ok == false {
			continue
		}

		if err = occCode.WriteLine(record.FormatBits(code, rbtz.CODEWORD_BITS)); err != nil {
			return storage(err)
		}

		if err = occLen.WriteLine(record.FormatBits(uint32(length), rbtz.LENGTH_BITS)); err != nil {
			return storage(err)
		}

		st.Record()
	}

	return nil
}

func (this *Decompressor) load(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var syms, codes, lens *staging.LineReader

	if syms, err = files.open(this.names.SymIn); err != nil {
		return err
	}

	if codes, err = files.open(this.names.CodewIn); err != nil {
		return err
	}

	if lens, err = files.open(this.names.CodeLen); err != nil {
		return err
	}

	loaded, err := loadTable(st, syms, codes, lens)
	st.records = int64(loaded)
	return err
}

func (this *Decompressor) decode(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var codes, lens *staging.LineReader
	var out *staging.LineWriter

	if codes, err = files.open(this.names.OccCode); err != nil {
		return err
	}

	if lens, err = files.open(this.names.OccLen); err != nil {
		return err
	}

	if out, err = files.create(this.names.SymStream); err != nil {
		return err
	}

	reader, err := record.NewTableReader([]int{rbtz.CODEWORD_BITS, rbtz.LENGTH_BITS}, codes, lens)

	if err != nil {
		return err
	}

	for {
		row, err := reader.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		s, err := st.acc.DecodeCodeword(row[0], uint8(row[1]))

		if err != nil {
			return device(err)
		}

		if err = out.WriteLine(record.FormatSymbol(s)); err != nil {
			return storage(err)
		}

		st.Record()
	}

	st.skipped += reader.Skipped()
	return nil
}

// Symbols are merged by groups of 4. An incomplete last group is dropped.
func (this *Decompressor) mergeBytes(st *StageState) (err error) {
	files := st.artifacts()
	defer files.close(&err)
	var in *staging.LineReader
	var out *staging.LineWriter

	if in, err = files.open(this.names.SymStream); err != nil {
		return err
	}

	if out, err = files.create(this.names.Merged); err != nil {
		return err
	}

	var group [4]byte
	n := 0

	for {
		line, err := in.ReadLine()

		if err == io.EOF {
			break
		}

		if err != nil {
			return storage(err)
		}

		s, err := record.ParseSymbol(line)

		if err != nil {
			st.Skip(this.names.SymStream, in.Lines(), err.Error())
			continue
		}

		group[n] = s
		n++

		if n < len(group) {
			continue
		}

		n = 0
		w, err := st.acc.MergeBytes4(group)

		if err != nil {
			return device(err)
		}

		if err = out.WriteLine(record.FormatBits(w, rbtz.WORD_BITS)); err != nil {
			return storage(err)
		}

		st.Record()
	}

	if n > 0 {
		st.run.DroppedSyms = n
		st.logger.Warn("incomplete merge group dropped", "symbols", n)
	}

	return nil
}

func (this *Decompressor) mergeFinal(st *StageState) error {
	st.run.addArtifact(this.names.Final)
	n, err := staging.Concat(st.store, this.names.Final, this.names.Header, this.names.Merged)
	st.records = n
	return storage(err)
}
