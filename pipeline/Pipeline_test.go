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
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/accel"
	"github.com/flanglet/rbtz/record"
	"github.com/flanglet/rbtz/staging"
)

const testInput = "design.rbt"

var testHeader = []string{
	"Xilinx ASCII Bitstream",
	"Created by Bitstream P.20131013",
	"Design name: \ttop;UserID=0XFFFFFFFF",
	"Architecture:\tzynq",
	"Part:        \t7z020clg484",
	"Date:        \tMon Oct 12 10:15:42 2026",
}

// bitstream renders an ASCII bitstream with one word per line. The last
// line holds tail bits when tail > 0.
func bitstream(words int, tail int) []byte {
	var sb strings.Builder
	alphabet := []byte{0x00, 0xFF, 0x12, 0x34, 0x00, 0xAA, 0x00, 0xFF, 0x5C}
	x := uint32(12345)
	next := func() byte {
		x = x*1664525 + 1013904223
		return alphabet[(x>>24)%uint32(len(alphabet))]
	}

	for _, h := range testHeader {
		sb.WriteString(h + "\n")
	}

	sb.WriteString(fmt.Sprintf("Bits:        \t%d\n", words*32+tail))

	for i := 0; i < words; i++ {
		w := uint32(next())<<24 | uint32(next())<<16 | uint32(next())<<8 | uint32(next())
		sb.WriteString(record.FormatBits(w, 32) + "\n")
	}

	if tail > 0 {
		sb.WriteString(record.FormatBits(uint32(next()), tail) + "\n")
	}

	return []byte(sb.String())
}

func testTimeouts() accel.Timeouts {
	return accel.Timeouts{
		PollInterval: time.Microsecond,
		Count:        50 * time.Millisecond,
		Load:         50 * time.Millisecond,
		Encode:       50 * time.Millisecond,
	}
}

func newSimulated(t *testing.T, regs accel.RegisterMap) (*accel.RegisterAccelerator, *accel.SimulatedBus) {
	bus := accel.NewSimulatedBus(regs)
	acc, err := accel.NewRegisterAccelerator(bus, regs, testTimeouts())

	if err != nil {
		t.Fatalf("Cannot create accelerator: %v", err)
	}

	return acc, bus
}

func compress(t *testing.T, store *staging.MemStore, acc rbtz.Accelerator, opts Options) (*Compressor, *Run, error) {
	c, err := NewCompressor(store, acc, opts, DefaultCompressionNames())

	if err != nil {
		t.Fatalf("Cannot create compressor: %v", err)
	}

	run, err := c.Compress(testInput)
	return c, run, err
}

// decompress deciphers the cipher text of a compression store in a new store
func decompress(t *testing.T, cipher []byte, acc rbtz.Accelerator, opts Options) (*staging.MemStore, *Run, error) {
	store := staging.NewMemStore()
	store.Put("image.bin", cipher)
	d, err := NewDecompressor(store, acc, opts, DefaultDecompressionNames())

	if err != nil {
		t.Fatalf("Cannot create decompressor: %v", err)
	}

	run, err := d.Decompress("image.bin")
	return store, run, err
}

func roundTrip(t *testing.T, input []byte, cacc, dacc rbtz.Accelerator) ([]byte, *Run, *Run) {
	cstore := staging.NewMemStore()
	cstore.Put(testInput, input)
	_, crun, err := compress(t, cstore, cacc, DefaultCompressionOptions())

	if err != nil {
		t.Fatalf("Compression failed: %v", err)
	}

	cipher, err := cstore.Bytes(DefaultCompressionNames().Encrypted)

	if err != nil {
		t.Fatalf("No cipher text: %v", err)
	}

	dstore, drun, err := decompress(t, cipher, dacc, DefaultDecompressionOptions())

	if err != nil {
		t.Fatalf("Decompression failed: %v", err)
	}

	output, err := dstore.Bytes(DefaultDecompressionNames().Final)

	if err != nil {
		t.Fatalf("No output: %v", err)
	}

	return output, crun, drun
}

func TestRoundTrip(t *testing.T) {
	for _, words := range []int{4, 64, 1000} {
		input := bitstream(words, 0)
		output, crun, drun := roundTrip(t, input, accel.NewSoftAccelerator(), accel.NewSoftAccelerator())

		if bytes.Equal(input, output) == false {
			t.Errorf("%d words: output differs from input", words)
		}

		if crun.Symbols != int64(4*words) || crun.PaddingBits != 0 {
			t.Errorf("%d words: unexpected run state: %d symbols, %d padding bits", words, crun.Symbols, crun.PaddingBits)
		}

		if drun.DroppedSyms != 0 {
			t.Errorf("%d words: %d symbols dropped", words, drun.DroppedSyms)
		}

		if crun.Table.IsPrefixFree() == false {
			t.Errorf("%d words: code table is not prefix free", words)
		}
	}
}

func TestRoundTripSimulated(t *testing.T) {
	input := bitstream(256, 0)
	cacc, cbus := newSimulated(t, accel.CompressionMap())
	dacc, dbus := newSimulated(t, accel.DecompressionMap())
	output, _, _ := roundTrip(t, input, cacc, dacc)

	if bytes.Equal(input, output) == false {
		t.Errorf("Output differs from input")
	}

	if cbus.Writes() == 0 || dbus.Writes() == 0 {
		t.Errorf("Expected register writes, got %d and %d", cbus.Writes(), dbus.Writes())
	}
}

func TestRoundTripCRLF(t *testing.T) {
	input := bytes.ReplaceAll(bitstream(16, 0), []byte("\n"), []byte("\r\n"))
	output, crun, drun := roundTrip(t, input, accel.NewSoftAccelerator(), accel.NewSoftAccelerator())

	if bytes.Equal(input, output) == false {
		t.Errorf("Output differs from input: %d bytes in, %d bytes out", len(input), len(output))
	}

	if crun.LineEnding != staging.CRLF || drun.LineEnding != staging.CRLF {
		t.Errorf("Expected CRLF artifacts, got %q and %q", crun.LineEnding, drun.LineEnding)
	}

	// The configured ending does not override the one of the input
	lf := bitstream(16, 0)
	cstore := staging.NewMemStore()
	cstore.Put(testInput, lf)
	opts := DefaultCompressionOptions()
	opts.LineEnding = staging.CRLF

	if _, _, err := compress(t, cstore, accel.NewSoftAccelerator(), opts); err != nil {
		t.Fatalf("Compression failed: %v", err)
	}

	if codebook, _ := cstore.Bytes(DefaultCompressionNames().Codebook); bytes.Contains(codebook, []byte("\r")) {
		t.Errorf("Unexpected CR in LF codebook")
	}

	cipher, _ := cstore.Bytes(DefaultCompressionNames().Encrypted)
	dopts := DefaultDecompressionOptions()
	dopts.LineEnding = staging.CRLF
	dstore, _, err := decompress(t, cipher, accel.NewSoftAccelerator(), dopts)

	if err != nil {
		t.Fatalf("Decompression failed: %v", err)
	}

	if output, _ = dstore.Bytes(DefaultDecompressionNames().Final); bytes.Equal(lf, output) == false {
		t.Errorf("LF output differs from input")
	}
}

func TestStrayCarriageReturn(t *testing.T) {
	input := bytes.Replace(bitstream(8, 0), []byte("Design name:"), []byte("Design\rname:"), 1)
	output, _, _ := roundTrip(t, input, accel.NewSoftAccelerator(), accel.NewSoftAccelerator())

	if bytes.Equal(input, output) == false {
		t.Errorf("Header line with a carriage return not copied as is")
	}
}

func TestPaddedTail(t *testing.T) {
	input := bitstream(8, 8)
	output, crun, drun := roundTrip(t, input, accel.NewSoftAccelerator(), accel.NewSoftAccelerator())

	if crun.PaddingBits != 24 {
		t.Errorf("Expected 24 padding bits, got %d", crun.PaddingBits)
	}

	if drun.DroppedSyms != 0 {
		t.Errorf("Expected no dropped symbol, got %d", drun.DroppedSyms)
	}

	if bytes.Equal(input, output) == true {
		t.Fatalf("Expected the padded word in the output")
	}

	in := strings.Split(strings.TrimSpace(string(input)), "\n")
	out := strings.Split(strings.TrimSpace(string(output)), "\n")

	if len(in) != len(out) {
		t.Fatalf("Expected %d lines, got %d", len(in), len(out))
	}

	last := out[len(out)-1]

	if last != in[len(in)-1]+strings.Repeat("0", 24) {
		t.Errorf("Unexpected last word %v for tail %v", last, in[len(in)-1])
	}
}

func TestSingleSymbol(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Xilinx ASCII Bitstream\nBits: 64\n")
	sb.WriteString(strings.Repeat("0", 32) + "\n")
	sb.WriteString(strings.Repeat("0", 32) + "\n")
	input := []byte(sb.String())
	output, crun, _ := roundTrip(t, input, accel.NewSoftAccelerator(), accel.NewSoftAccelerator())

	if len(crun.Table) != 1 || crun.Table[0].Length != 1 || crun.Table[0].Code != 0 {
		t.Errorf("Unexpected table %v", crun.Table)
	}

	if bytes.Equal(input, output) == false {
		t.Errorf("Output differs from input")
	}
}

func TestArtifacts(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(32, 0))
	c, run, err := compress(t, store, accel.NewSoftAccelerator(), DefaultCompressionOptions())

	if err != nil {
		t.Fatalf("Compression failed: %v", err)
	}

	names := c.Names()

	for _, n := range names.all() {
		if _, err := store.Size(n); err != nil {
			t.Errorf("Missing artifact %v", n)
		}
	}

	if len(run.Artifacts) != len(names.all()) || run.Cleaned == true {
		t.Errorf("Unexpected artifacts %v (cleaned: %v)", run.Artifacts, run.Cleaned)
	}

	header, _ := store.Bytes(names.Header)
	hlines := strings.Split(strings.TrimSpace(string(header)), "\n")

	if len(hlines) != len(testHeader)+1 || strings.HasPrefix(hlines[len(hlines)-1], DEFAULT_SENTINEL) == false {
		t.Errorf("Unexpected header %q", hlines)
	}

	// The bundle is the concatenation of the header, codebook and output
	var expected []byte

	for _, n := range []string{names.Header, names.Codebook, names.Encoded} {
		b, _ := store.Bytes(n)
		expected = append(expected, b...)
	}

	if bundle, _ := store.Bytes(names.Bundle); bytes.Equal(bundle, expected) == false {
		t.Errorf("Unexpected bundle content")
	}

	cipher, _ := store.Bytes(names.Encrypted)

	if rbtz.GetMagicType(cipher, rbtz.DEFAULT_KEY) != rbtz.BUNDLE_MAGIC {
		t.Errorf("Cipher text not recognized as a bundle")
	}

	counts, _ := store.Bytes(names.Counts)
	total := 0

	for _, l := range strings.Fields(string(counts)) {
		var n int
		fmt.Sscanf(l, "%d", &n)
		total += n
	}

	if total != 32*4 {
		t.Errorf("Expected counts totalling %d, got %d", 32*4, total)
	}
}

func TestCleanup(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(16, 0))
	opts := DefaultCompressionOptions()
	opts.Cleanup = true
	_, run, err := compress(t, store, accel.NewSoftAccelerator(), opts)

	if err != nil {
		t.Fatalf("Compression failed: %v", err)
	}

	names := store.Names()

	if len(names) != 2 || run.Cleaned == false {
		t.Errorf("Expected the input and the cipher text only, got %v", names)
	}

	cipher, _ := store.Bytes(DefaultCompressionNames().Encrypted)
	dstore, drun, err := decompress(t, cipher, accel.NewSoftAccelerator(), DefaultDecompressionOptions())

	if err != nil {
		t.Fatalf("Decompression failed: %v", err)
	}

	if names := dstore.Names(); len(names) != 2 || drun.Cleaned == false {
		t.Errorf("Expected the input and the output only, got %v", names)
	}
}

func TestDeviceTimeout(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(16, 0))
	acc, bus := newSimulated(t, accel.CompressionMap())
	bus.Inject(accel.Faults{EncodeStuck: true})
	opts := DefaultCompressionOptions()
	opts.Cleanup = true
	_, run, err := compress(t, store, acc, opts)

	var se *StageError

	if errors.As(err, &se) == false {
		t.Fatalf("Expected a stage error, got %v", err)
	}

	if se.Stage != "encode" || se.Kind != KindDeviceTimeout || se.ErrorCode() != rbtz.ERR_DEVICE_TIMEOUT {
		t.Errorf("Unexpected failure %v", se)
	}

	if errors.Is(err, rbtz.ErrDeviceTimeout) == false {
		t.Errorf("Expected a device timeout, got %v", err)
	}

	if run.Cleaned == true || len(run.Stages) != 4 || run.Failed() == nil {
		t.Errorf("Unexpected run state: %d stages, cleaned %v", len(run.Stages), run.Cleaned)
	}

	// Intermediates are kept for diagnosis, later stages never ran
	for _, n := range []string{"header.txt", "parsed.txt", "codebook.txt", "symin.txt"} {
		if _, err := store.Size(n); err != nil {
			t.Errorf("Missing intermediate %v", n)
		}
	}

	if _, err := store.Size("encr.bin"); err == nil {
		t.Errorf("Unexpected cipher text after failure")
	}
}

func TestCountTimeout(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(4, 0))
	acc, bus := newSimulated(t, accel.CompressionMap())
	bus.Inject(accel.Faults{CountStuck: true})
	_, _, err := compress(t, store, acc, DefaultCompressionOptions())

	var se *StageError

	if errors.As(err, &se) == false || se.Stage != "count" || se.Kind != KindDeviceTimeout {
		t.Errorf("Expected a count timeout, got %v", err)
	}
}

func TestEmptyPayload(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, []byte("Xilinx ASCII Bitstream\nBits: 0\n"))
	_, _, err := compress(t, store, accel.NewSoftAccelerator(), DefaultCompressionOptions())

	var se *StageError

	if errors.As(err, &se) == false || se.Stage != "count" || se.Kind != KindValidation || errors.Is(err, ErrEmptyPayload) == false {
		t.Errorf("Expected an empty payload failure, got %v", err)
	}
}

// skewedAccelerator reports one frequency short
type skewedAccelerator struct {
	*accel.SoftAccelerator
}

func (this skewedAccelerator) ReadFrequency(symbol byte) (uint32, error) {
	f, err := this.SoftAccelerator.ReadFrequency(symbol)

	if f > 0 {
		f--
	}

	return f, err
}

func TestFrequencySum(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(4, 0))
	_, _, err := compress(t, store, skewedAccelerator{accel.NewSoftAccelerator()}, DefaultCompressionOptions())

	var se *StageError

	if errors.As(err, &se) == false || se.Kind != KindConsistency || errors.Is(err, ErrFrequencySum) == false {
		t.Errorf("Expected a frequency sum failure, got %v", err)
	}
}

func newStageState(t *testing.T, store rbtz.StagingStore, c *engine, name string) *StageState {
	return &StageState{
		run:    newRun(COMPRESSION, testInput, "encr.bin"),
		store:  store,
		acc:    c.acc,
		opts:   &c.opts,
		logger: c.opts.Logger,
		notify: c.notify,
		name:   name,
	}
}

func TestCodebookConsistency(t *testing.T) {
	tests := []struct {
		symbols string
		counts  string
		kind    ErrorKind
		err     error
	}{
		{"00000010\n00000001\n", "3\n4\n", KindConsistency, ErrSymbolOrder},
		{"00000001\n00000001\n", "3\n4\n", KindConsistency, ErrSymbolOrder},
		{"00000001\n00000010\n", "3\n", KindConsistency, record.ErrRowCountMismatch},
		{"", "", KindValidation, ErrEmptyPayload},
	}

	for i, tt := range tests {
		store := staging.NewMemStore()
		c, err := NewCompressor(store, accel.NewSoftAccelerator(), DefaultCompressionOptions(), DefaultCompressionNames())

		if err != nil {
			t.Fatalf("Cannot create compressor: %v", err)
		}

		store.Put("symbols.txt", []byte(tt.symbols))
		store.Put("counts.txt", []byte(tt.counts))
		err = c.codebook(newStageState(t, store, &c.engine, "codebook"))

		if err == nil {
			t.Errorf("Test %d: expected failure", i)
			continue
		}

		se := classify("codebook", err)

		if se.Kind != tt.kind || errors.Is(se, tt.err) == false {
			t.Errorf("Test %d: expected %v (%v), got %v", i, tt.err, tt.kind, se)
		}
	}
}

func TestCodeTooLong(t *testing.T) {
	store := staging.NewMemStore()
	c, _ := NewCompressor(store, accel.NewSoftAccelerator(), DefaultCompressionOptions(), DefaultCompressionNames())
	var syms, counts strings.Builder
	a, b := uint32(1), uint32(1)

	for s := 0; s < 18; s++ {
		syms.WriteString(record.FormatSymbol(byte(s)) + "\n")
		counts.WriteString(fmt.Sprintf("%d\n", a))
		a, b = b, a+b
	}

	store.Put("symbols.txt", []byte(syms.String()))
	store.Put("counts.txt", []byte(counts.String()))
	err := c.codebook(newStageState(t, store, &c.engine, "codebook"))

	if se := classify("codebook", err); err == nil || se.Kind != KindValidation {
		t.Errorf("Expected a validation failure, got %v", err)
	}
}

// cipherBundle enciphers a plain text bundle with the default key
func cipherBundle(lines ...string) []byte {
	res := []byte(strings.Join(lines, "\n") + "\n")

	for i := range res {
		res[i] ^= rbtz.DEFAULT_KEY
	}

	return res
}

func TestDroppedGroup(t *testing.T) {
	cipher := cipherBundle("Xilinx ASCII Bitstream", "Bits: 40",
		record.CODEBOOK_HEADER, record.CODEBOOK_SEPARATOR,
		"01000001   0                     1",
		"01000010   1                     1",
		"0", "1", "0", "1", "0")
	store, run, err := decompress(t, cipher, accel.NewSoftAccelerator(), DefaultDecompressionOptions())

	if err != nil {
		t.Fatalf("Decompression failed: %v", err)
	}

	if run.DroppedSyms != 1 {
		t.Errorf("Expected 1 dropped symbol, got %d", run.DroppedSyms)
	}

	output, _ := store.Bytes("decomp.rbt")
	expected := "Xilinx ASCII Bitstream\nBits: 40\n" + record.FormatBits(0x41424142, 32) + "\n"

	if string(output) != expected {
		t.Errorf("Expected %q, got %q", expected, output)
	}
}

func TestCodewordTooLong(t *testing.T) {
	cipher := cipherBundle("Xilinx ASCII Bitstream", "Bits: 32",
		record.CODEBOOK_HEADER, record.CODEBOOK_SEPARATOR,
		"01000001   01010101010101010     17",
		"0")
	store, run, err := decompress(t, cipher, accel.NewSoftAccelerator(), DefaultDecompressionOptions())

	var se *StageError

	if errors.As(err, &se) == false || se.Stage != "regen-codebook" || se.Kind != KindValidation {
		t.Fatalf("Expected a validation failure, got %v", err)
	}

	if errors.Is(err, record.ErrCodewordTooLong) == false {
		t.Errorf("Expected a codeword too long failure, got %v", err)
	}

	if run.Cleaned == true {
		t.Errorf("Unexpected cleanup after failure")
	}

	if _, err := store.Size("dcodebook.txt"); err != nil {
		t.Errorf("Missing intermediate artifact")
	}
}

func TestSplitter(t *testing.T) {
	lines := []struct {
		line    string
		section Section
	}{
		{"Xilinx ASCII Bitstream", SECTION_HEADER},
		{"Bits: 64", SECTION_HEADER},
		{"0101", SECTION_HEADER},
		{"  " + record.CODEBOOK_HEADER + " ", SECTION_CODEBOOK},
		{record.CODEBOOK_SEPARATOR, SECTION_CODEBOOK},
		{"01000001   0                     1", SECTION_CODEBOOK},
		{"", SECTION_CODEBOOK},
		{"10", SECTION_OUTPUT},
		{record.CODEBOOK_HEADER, SECTION_OUTPUT},
		{"anything", SECTION_OUTPUT},
	}

	splitter := NewSplitter()

	for i, l := range lines {
		if s := splitter.Classify(l.line); s != l.section {
			t.Errorf("Line %d (%q): expected %v, got %v", i, l.line, l.section, s)
		}
	}

	if splitter.Lines(SECTION_HEADER) != 3 || splitter.Lines(SECTION_CODEBOOK) != 4 || splitter.Lines(SECTION_OUTPUT) != 3 {
		t.Errorf("Unexpected section counts")
	}
}

type eventRecorder struct {
	events  []*rbtz.Event
	onStart func()
}

func (this *eventRecorder) ProcessEvent(evt *rbtz.Event) {
	this.events = append(this.events, evt)

	if evt.Type() == rbtz.EVT_RUN_START && this.onStart != nil {
		this.onStart()
	}
}

func TestEvents(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(8, 0))
	c, err := NewCompressor(store, accel.NewSoftAccelerator(), DefaultCompressionOptions(), DefaultCompressionNames())

	if err != nil {
		t.Fatalf("Cannot create compressor: %v", err)
	}

	listener := &eventRecorder{}
	c.AddListener(listener)

	if _, err = c.Compress(testInput); err != nil {
		t.Fatalf("Compression failed: %v", err)
	}

	stages := c.Stages()

	if len(listener.events) != 2*len(stages)+2 {
		t.Fatalf("Expected %d events, got %d", 2*len(stages)+2, len(listener.events))
	}

	if listener.events[0].Type() != rbtz.EVT_RUN_START || listener.events[len(listener.events)-1].Type() != rbtz.EVT_RUN_END {
		t.Errorf("Unexpected run events")
	}

	for i, name := range stages {
		start, end := listener.events[1+2*i], listener.events[2+2*i]

		if start.Type() != rbtz.EVT_STAGE_START || end.Type() != rbtz.EVT_STAGE_END || start.Stage() != name || end.Id() != i {
			t.Errorf("Unexpected events for stage %v: %v, %v", name, start, end)
		}
	}

	if c.RemoveListener(listener) == false || c.RemoveListener(listener) == true {
		t.Errorf("Unexpected listener removal result")
	}
}

func TestBusy(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(4, 0))
	c, _ := NewCompressor(store, accel.NewSoftAccelerator(), DefaultCompressionOptions(), DefaultCompressionNames())
	var nested error
	listener := &eventRecorder{}
	listener.onStart = func() { _, nested = c.Compress(testInput) }
	c.AddListener(listener)

	if _, err := c.Compress(testInput); err != nil {
		t.Fatalf("Compression failed: %v", err)
	}

	if errors.Is(nested, rbtz.ErrBusy) == false {
		t.Errorf("Expected a busy failure, got %v", nested)
	}

	c.RemoveListener(listener)

	if _, err := c.Compress(testInput); err != nil {
		t.Errorf("Compression failed after a busy failure: %v", err)
	}
}

func TestInvalidParams(t *testing.T) {
	store := staging.NewMemStore()
	acc := accel.NewSoftAccelerator()

	if _, err := NewCompressor(nil, acc, DefaultCompressionOptions(), DefaultCompressionNames()); err == nil {
		t.Errorf("Expected failure for null store")
	}

	if _, err := NewDecompressor(store, nil, DefaultDecompressionOptions(), DefaultDecompressionNames()); err == nil {
		t.Errorf("Expected failure for null accelerator")
	}

	opts := DefaultCompressionOptions()
	opts.LineEnding = "\r"

	if _, err := NewCompressor(store, acc, opts, DefaultCompressionNames()); err == nil {
		t.Errorf("Expected failure for invalid line ending")
	}

	names := DefaultCompressionNames()
	names.Counts = names.Symbols

	if _, err := NewCompressor(store, acc, DefaultCompressionOptions(), names); err == nil {
		t.Errorf("Expected failure for duplicate artifact names")
	}

	c, _ := NewCompressor(store, acc, DefaultCompressionOptions(), DefaultCompressionNames())

	if _, err := c.Compress("parsed.txt"); err == nil {
		t.Errorf("Expected failure for input colliding with an artifact")
	}
}

func TestManifest(t *testing.T) {
	store := staging.NewMemStore()
	store.Put(testInput, bitstream(8, 0))
	_, run, err := compress(t, store, accel.NewSoftAccelerator(), DefaultCompressionOptions())

	if err != nil {
		t.Fatalf("Compression failed: %v", err)
	}

	m, err := NewManifest(run, store)

	if err != nil {
		t.Fatalf("Cannot create manifest: %v", err)
	}

	var buf bytes.Buffer

	if err = m.Write(&buf); err != nil {
		t.Fatalf("Cannot write manifest: %v", err)
	}

	m2, err := ReadManifest(&buf)

	if err != nil {
		t.Fatalf("Cannot read manifest: %v", err)
	}

	if m2.RunID != run.ID || m2.Status != "success" || m2.LineEnding != "lf" || len(m2.Stages) != 6 || len(m2.Artifacts) != len(run.Artifacts) {
		t.Errorf("Unexpected manifest %+v", m2)
	}

	digest, size, _ := staging.Digest(store, "encr.bin")

	for _, a := range m2.Artifacts {
		if a.Name == "encr.bin" && (a.Blake3 != digest || a.Size != size) {
			t.Errorf("Unexpected digest for %v", a.Name)
		}
	}

	// A failed run reports the failed stage and its exit code
	store.Put(testInput, []byte("Bits: 0\n"))
	_, run, _ = compress(t, store, accel.NewSoftAccelerator(), DefaultCompressionOptions())
	m, _ = NewManifest(run, store)

	if m.Status != "failed" || m.ExitCode != rbtz.ERR_VALIDATION {
		t.Errorf("Unexpected failed manifest status %v (%d)", m.Status, m.ExitCode)
	}
}
