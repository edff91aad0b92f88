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
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/staging"
)

// DEFAULT_SENTINEL is the prefix of the last header line of a bitstream
const DEFAULT_SENTINEL = "Bits:"

// Options  Settings of an orchestrator
type Options struct {
	Key        byte
	Sentinel   string
	LineEnding string // used when the input holds no line break
	Cleanup    bool
	Logger     *slog.Logger
}

// DefaultCompressionOptions keeps the intermediate artifacts
func DefaultCompressionOptions() Options {
	return Options{Key: rbtz.DEFAULT_KEY, Sentinel: DEFAULT_SENTINEL, LineEnding: staging.LF, Cleanup: false}
}

// DefaultDecompressionOptions deletes the intermediate artifacts of a successful run
func DefaultDecompressionOptions() Options {
	return Options{Key: rbtz.DEFAULT_KEY, Sentinel: DEFAULT_SENTINEL, LineEnding: staging.LF, Cleanup: true}
}

func (this *Options) validate() error {
	if len(strings.TrimSpace(this.Sentinel)) == 0 {
		return errors.New("Invalid empty header sentinel")
	}

	if this.LineEnding != staging.LF && this.LineEnding != staging.CRLF {
		return errors.New("Invalid line ending: must be LF or CRLF")
	}

	if this.Logger == nil {
		this.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return nil
}

// Stage  A named step of a pipeline
type Stage struct {
	Name string
	Run  func(st *StageState) error
}

// engine runs a fixed sequence of stages over a staging store. It rejects
// concurrent executions.
type engine struct {
	store     rbtz.StagingStore
	acc       rbtz.Accelerator
	opts      Options
	listeners []rbtz.Listener
	stages    []Stage
	running   sync.Mutex
}

func (this *engine) init(store rbtz.StagingStore, acc rbtz.Accelerator, opts Options) error {
	if store == nil {
		return errors.New("Invalid null staging store parameter")
	}

	if acc == nil {
		return errors.New("Invalid null accelerator parameter")
	}

	if err := opts.validate(); err != nil {
		return err
	}

	this.store = store
	this.acc = acc
	this.opts = opts
	this.listeners = make([]rbtz.Listener, 0)
	return nil
}

// AddListener adds an event listener.
// Returns true if the listener has been added.
func (this *engine) AddListener(bl rbtz.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener.
// Returns true if the listener has been removed.
func (this *engine) RemoveListener(bl rbtz.Listener) bool {
	for i, e := range this.listeners {
		if e == bl {
			this.listeners = append(this.listeners[:i], this.listeners[i+1:]...)
			return true
		}
	}

	return false
}

// Stages returns the names of the stages in execution order
func (this *engine) Stages() []string {
	res := make([]string, len(this.stages))

	for i := range this.stages {
		res[i] = this.stages[i].Name
	}

	return res
}

func (this *engine) notify(evt *rbtz.Event) {
	defer func() {
		//nolint
		if r := recover(); r != nil {
			// Ignore panics in listeners
		}
	}()

	for _, bl := range this.listeners {
		bl.ProcessEvent(evt)
	}
}

// execute runs the stages in order and stops at the first failure. The
// intermediate artifacts are removed only if every stage succeeded and
// the cleanup option is set.
func (this *engine) execute(run *Run, intermediates []string) error {
	if this.running.TryLock() == false {
		return rbtz.ErrBusy
	}

	defer this.running.Unlock()
	logger := this.opts.Logger.With("run", run.ID, "direction", run.Direction)

	if r, ok := this.acc.(rbtz.Resetter); ok {
		if err := r.Reset(); err != nil {
			se := &StageError{Stage: "reset", Kind: KindDevice, Err: err}
			run.Stages = append(run.Stages, StageResult{Name: se.Stage, Err: se})
			logger.Error("accelerator reset failed", "error", err)
			return se
		}
	}

	this.notify(rbtz.NewEventFromString(rbtz.EVT_RUN_START, -1, "", time.Time{}))
	defer func() {
		run.Elapsed = time.Since(run.Started)
		this.notify(rbtz.NewEvent(rbtz.EVT_RUN_END, -1, "", int64(len(run.Stages)), time.Time{}))
	}()

	for i, stage := range this.stages {
		st := &StageState{
			run:    run,
			store:  this.store,
			acc:    this.acc,
			opts:   &this.opts,
			logger: logger,
			notify: this.notify,
			index:  i,
			name:   stage.Name,
		}

		this.notify(rbtz.NewEvent(rbtz.EVT_STAGE_START, i, stage.Name, 0, time.Time{}))
		before := time.Now()
		err := stage.Run(st)
		res := StageResult{Name: stage.Name, Records: st.records, Skipped: st.skipped, Duration: time.Since(before)}

		if st.skipped > 0 {
			logger.Warn("malformed records skipped", "stage", stage.Name, "count", st.skipped)
		}

		if err != nil {
			res.Err = classify(stage.Name, err)
			run.Stages = append(run.Stages, res)
			logger.Error("stage failed", "stage", stage.Name, "kind", res.Err.Kind.String(), "error", res.Err.Err)
			this.notify(rbtz.NewEvent(rbtz.EVT_STAGE_FAILED, i, stage.Name, st.records, time.Time{}))
			return res.Err
		}

		run.Stages = append(run.Stages, res)
		this.notify(rbtz.NewEvent(rbtz.EVT_STAGE_END, i, stage.Name, st.records, time.Time{}))
	}

	if this.opts.Cleanup == true {
		this.cleanup(run, intermediates, logger)
	}

	return nil
}

func (this *engine) cleanup(run *Run, names []string, logger *slog.Logger) {
	for _, name := range names {
		if name == run.Input || name == run.Output {
			continue
		}

		if err := this.store.Remove(name); err != nil {
			logger.Warn("cannot remove intermediate artifact", "artifact", name, "error", err)
		}
	}

	run.Cleaned = true
}
