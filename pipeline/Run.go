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
	"log/slog"
	"time"

	"github.com/google/uuid"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/huffman"
	"github.com/flanglet/rbtz/staging"
)

// PROGRESS_INTERVAL is the number of records between two progress events
const PROGRESS_INTERVAL = 500000

const (
	COMPRESSION   = "compression"
	DECOMPRESSION = "decompression"
)

// StageResult  Outcome of one executed stage
type StageResult struct {
	Name     string
	Records  int64
	Skipped  int64
	Duration time.Duration
	Err      *StageError
}

// Run  The state of one pipeline execution. A run is created by every call
// to Compress or Decompress and is never shared between executions.
type Run struct {
	ID        string
	Direction string
	Input     string
	Output    string
	Started   time.Time
	Elapsed   time.Duration
	Stages    []StageResult
	Artifacts []string // in creation order
	Cleaned   bool

	// LineEnding terminates the lines of the written artifacts. It is the
	// ending of the input, Options.LineEnding if the input has none.
	LineEnding string

	// Payload state
	Freqs       huffman.FrequencyTable
	Table       huffman.CodeTable
	Symbols     int64 // symbols streamed through the counter
	PaddingBits uint  // zero bits appended to the last parsed word
	DroppedSyms int   // symbols of an incomplete merge group
	Entropy1024 int   // order 0 entropy of the payload, bits per symbol * 1024

	builder *huffman.Builder
	created map[string]bool
}

func newRun(direction, input, output string) *Run {
	this := &Run{}
	this.ID = uuid.NewString()
	this.Direction = direction
	this.Input = input
	this.Output = output
	this.Started = time.Now()
	this.builder = huffman.NewBuilder()
	this.created = make(map[string]bool)
	return this
}

// Failed returns the error of the failed stage, nil if the run succeeded
func (this *Run) Failed() *StageError {
	for i := range this.Stages {
		if this.Stages[i].Err != nil {
			return this.Stages[i].Err
		}
	}

	return nil
}

func (this *Run) addArtifact(name string) {
	if this.created[name] == false {
		this.created[name] = true
		this.Artifacts = append(this.Artifacts, name)
	}
}

// StageState  Gives a stage access to the run and its collaborators and
// accounts for the records the stage processes
type StageState struct {
	run     *Run
	store   rbtz.StagingStore
	acc     rbtz.Accelerator
	opts    *Options
	logger  *slog.Logger
	notify  func(*rbtz.Event)
	index   int
	name    string
	records int64
	skipped int64
}

// Record accounts for one processed record and emits a progress event
// every PROGRESS_INTERVAL records
func (this *StageState) Record() {
	this.records++

	if this.records%PROGRESS_INTERVAL == 0 {
		this.notify(rbtz.NewEvent(rbtz.EVT_STAGE_PROGRESS, this.index, this.name, this.records, time.Time{}))
	}
}

// Skip accounts for a malformed record that was ignored
func (this *StageState) Skip(artifact string, line int64, reason string) {
	this.skipped++
	this.logger.Debug("skipped record", "run", this.run.ID, "stage", this.name,
		"artifact", artifact, "line", line, "reason", reason)
}

func (this *StageState) openLines(name string) (*staging.LineReader, error) {
	r, err := staging.OpenLineReader(this.store, name)
	return r, storage(err)
}

// detectEnding sets the line ending of the run artifacts from the first
// line of the named artifact
func (this *StageState) detectEnding(name string) error {
	ending, ok, err := staging.DetectEnding(this.store, name)

	if err != nil {
		return storage(err)
	}

	if ok == false {
		ending = this.opts.LineEnding
	}

	if ending != this.opts.LineEnding {
		this.logger.Info("line ending taken from input", "artifact", name, "crlf", ending == staging.CRLF)
	}

	this.run.LineEnding = ending
	return nil
}

func (this *StageState) createLines(name string) (*staging.LineWriter, error) {
	ending := this.run.LineEnding

	if len(ending) == 0 {
		ending = this.opts.LineEnding
	}

	w, err := staging.CreateLineWriter(this.store, name, ending)

	if err != nil {
		return nil, storage(err)
	}

	this.run.addArtifact(name)
	return w, nil
}

// artifacts collects the artifacts opened by a stage and closes them when
// the stage returns. The first close error of a writer is reported.
type artifacts struct {
	st      *StageState
	readers []*staging.LineReader
	writers []*staging.LineWriter
}

func (this *StageState) artifacts() *artifacts {
	return &artifacts{st: this}
}

func (this *artifacts) open(name string) (*staging.LineReader, error) {
	r, err := this.st.openLines(name)

	if err == nil {
		this.readers = append(this.readers, r)
	}

	return r, err
}

func (this *artifacts) create(name string) (*staging.LineWriter, error) {
	w, err := this.st.createLines(name)

	if err == nil {
		this.writers = append(this.writers, w)
	}

	return w, err
}

func (this *artifacts) close(err *error) {
	for _, r := range this.readers {
		r.Close()
	}

	for _, w := range this.writers {
		if err2 := w.Close(); *err == nil && err2 != nil {
			*err = storage(err2)
		}
	}
}
