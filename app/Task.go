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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/accel"
	"github.com/flanglet/rbtz/pipeline"
	"github.com/flanglet/rbtz/staging"
)

const _SNIFF_SIZE = 64

// task  Common state of a compression or decompression job
type task struct {
	verbosity    uint
	overwrite    bool
	inputName    string
	outputName   string
	workDir      string
	manifestName string
	cfg          *Config
	listeners    []rbtz.Listener
	tempDir      bool
}

func newTask(argsMap map[string]any, cfg *Config) (*task, error) {
	if cfg == nil {
		return nil, errors.New("Invalid null configuration parameter")
	}

	this := &task{cfg: cfg}
	this.listeners = make([]rbtz.Listener, 0)
	this.inputName = argsMap["inputName"].(string)
	delete(argsMap, "inputName")
	this.outputName = argsMap["outputName"].(string)
	delete(argsMap, "outputName")

	if len(this.inputName) == 0 {
		return nil, errors.New("Missing input file name")
	}

	if force, prst := argsMap["overwrite"]; prst == true {
		this.overwrite = force.(bool)
		delete(argsMap, "overwrite")
	}

	if verbose, prst := argsMap["verbosity"]; prst == true {
		this.verbosity = verbose.(uint)
		delete(argsMap, "verbosity")
	} else {
		this.verbosity = 1
	}

	if manifest, prst := argsMap["manifest"]; prst == true {
		this.manifestName = manifest.(string)
		delete(argsMap, "manifest")
	}

	this.workDir = cfg.WorkDir

	for k := range argsMap {
		log.Println("Ignoring invalid option ["+k+"]", this.verbosity > 0)
	}

	return this, nil
}

// AddListener adds an event listener to this task.
// Returns true if the listener has been added.
func (this *task) AddListener(bl rbtz.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this task.
// Returns true if the listener has been removed.
func (this *task) RemoveListener(bl rbtz.Listener) bool {
	for i, e := range this.listeners {
		if e == bl {
			this.listeners = append(this.listeners[:i], this.listeners[i+1:]...)
			return true
		}
	}

	return false
}

// sniff returns the magic type of the input file
func (this *task) sniff(key byte) (uint, int) {
	f, err := os.Open(this.inputName)

	if err != nil {
		fmt.Printf("Cannot open input file '%v': %v\n", this.inputName, err)
		return rbtz.NO_MAGIC, rbtz.ERR_OPEN_FILE
	}

	defer f.Close()
	buf := make([]byte, _SNIFF_SIZE)
	n, err := io.ReadFull(f, buf)

	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		fmt.Printf("Cannot read input file '%v': %v\n", this.inputName, err)
		return rbtz.NO_MAGIC, rbtz.ERR_OPEN_FILE
	}

	if n == 0 {
		fmt.Printf("Input file '%v' is empty\n", this.inputName)
		return rbtz.NO_MAGIC, rbtz.ERR_INVALID_FILE
	}

	return rbtz.GetMagicType(buf[:n], key), 0
}

// checkOutput verifies that the output file can be written
func (this *task) checkOutput() int {
	if _, err := os.Stat(this.outputName); err == nil {
		if this.overwrite == false {
			fmt.Printf("File '%v' exists and the 'force' command ", this.outputName)
			fmt.Println("line option has not been provided")
			return rbtz.ERR_OVERWRITE_FILE
		}

		path1, _ := filepath.Abs(this.inputName)
		path2, _ := filepath.Abs(this.outputName)

		if path1 == path2 {
			fmt.Println("The input and output files must be different")
			return rbtz.ERR_CREATE_FILE
		}
	}

	return 0
}

// openStore imports the input file into the staging directory
func (this *task) openStore(name string) (*staging.DirStore, int) {
	if len(this.workDir) == 0 {
		dir, err := os.MkdirTemp("", "rbtz-")

		if err != nil {
			fmt.Printf("Cannot create work directory: %v\n", err)
			return nil, rbtz.ERR_CREATE_FILE
		}

		this.workDir = dir
		this.tempDir = true
	}

	store, err := staging.NewDirStore(this.workDir)

	if err != nil {
		fmt.Printf("Cannot create work directory '%v': %v\n", this.workDir, err)
		return nil, rbtz.ERR_CREATE_FILE
	}

	log.Println("Work directory set to '"+store.Root()+"'", this.verbosity > 2)
	input, err := os.Open(this.inputName)

	if err != nil {
		fmt.Printf("Cannot open input file '%v': %v\n", this.inputName, err)
		return nil, rbtz.ERR_OPEN_FILE
	}

	defer input.Close()

	if _, err = staging.Import(store, name, input); err != nil {
		fmt.Printf("Cannot stage input file '%v': %v\n", this.inputName, err)
		return nil, rbtz.ERR_STORAGE
	}

	return store, 0
}

// closeStore removes a temporary work directory once its artifacts were
// cleaned up, otherwise the directory is kept for inspection
func (this *task) closeStore(run *pipeline.Run) {
	if this.tempDir == false {
		return
	}

	if run != nil && run.Cleaned == true && run.Failed() == nil {
		os.RemoveAll(this.workDir)
		return
	}

	log.Println("Artifacts kept in '"+this.workDir+"'", this.verbosity > 0)
}

// openDevice returns the accelerator selected by the configuration and a
// function releasing it
func openDevice(cfg *Config, regs accel.RegisterMap) (rbtz.Accelerator, func() error, error) {
	release := func() error { return nil }

	if cfg.Device.Kind == DEVICE_SOFT {
		return accel.NewSoftAccelerator(), release, nil
	}

	timeouts, err := cfg.Timeouts()

	if err != nil {
		return nil, release, err
	}

	var bus accel.Bus

	switch cfg.Device.Kind {
	case DEVICE_SIM:
		bus = accel.NewSimulatedBus(regs)

	case DEVICE_DEVMEM:
		dm, err := accel.NewDevMemBus(cfg.Device.Path, regs)

		if err != nil {
			return nil, release, err
		}

		bus = dm
		release = dm.Close

	default:
		return nil, release, fmt.Errorf("Unknown device kind '%v'", cfg.Device.Kind)
	}

	acc, err := accel.NewRegisterAccelerator(bus, regs, timeouts)

	if err != nil {
		release()
		return nil, func() error { return nil }, err
	}

	return acc, release, nil
}

// export copies the output artifact to the output file
func (this *task) export(store rbtz.StagingStore, name string) (int64, int) {
	output, err := os.Create(this.outputName)

	if err != nil && this.overwrite == true {
		// Attempt to create the full folder hierarchy to file
		if err = os.MkdirAll(filepath.Dir(this.outputName), os.ModePerm); err == nil {
			output, err = os.Create(this.outputName)
		}
	}

	if err != nil {
		fmt.Printf("Cannot open output file '%v' for writing: %v\n", this.outputName, err)
		return 0, rbtz.ERR_CREATE_FILE
	}

	n, err := staging.Export(store, name, output)

	if err2 := output.Close(); err == nil {
		err = err2
	}

	if err != nil {
		fmt.Printf("Cannot write output file '%v': %v\n", this.outputName, err)
		return n, rbtz.ERR_STORAGE
	}

	return n, 0
}

// writeManifest writes the run manifest if one was requested
func (this *task) writeManifest(run *pipeline.Run, store rbtz.StagingStore) {
	if len(this.manifestName) == 0 || run == nil {
		return
	}

	m, err := pipeline.NewManifest(run, store)

	if err != nil {
		fmt.Printf("Warning: cannot create manifest: %v\n", err)
		return
	}

	f, err := os.Create(this.manifestName)

	if err != nil {
		fmt.Printf("Warning: cannot create manifest file '%v': %v\n", this.manifestName, err)
		return
	}

	defer f.Close()

	if err = m.Write(f); err != nil {
		fmt.Printf("Warning: cannot write manifest file '%v': %v\n", this.manifestName, err)
		return
	}

	log.Println("Manifest written to '"+this.manifestName+"'", this.verbosity > 1)
}

// exitCode returns the process exit code of a pipeline failure
func exitCode(err error) int {
	var se *pipeline.StageError

	if errors.As(err, &se) {
		return se.ErrorCode()
	}

	if errors.Is(err, rbtz.ErrBusy) {
		return rbtz.ERR_BUSY
	}

	return rbtz.ERR_UNKNOWN
}

// formatElapsed renders a duration as m:ss
func formatElapsed(d time.Duration) string {
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func (this *task) report(direction string, run *pipeline.Run, read, written int64) {
	printFlag := this.verbosity > 1

	if run == nil {
		return
	}

	msg := fmt.Sprintf("%v %v: %v => %v bytes in %v", direction, this.inputName, read, written, formatElapsed(run.Elapsed))
	log.Println(msg, this.verbosity == 1)
	log.Println("", printFlag)
	log.Println(fmt.Sprintf("Run id:            %v", run.ID), printFlag)
	log.Println(fmt.Sprintf("Input size:        %d", read), printFlag)
	log.Println(fmt.Sprintf("Output size:       %d", written), printFlag)

	if read > 0 {
		log.Println(fmt.Sprintf("Ratio:             %f", float64(written)/float64(read)), printFlag)
	}

	if len(run.Table) > 0 {
		log.Println(fmt.Sprintf("Symbols:           %d distinct, %d total", len(run.Table), run.Symbols), printFlag)
		log.Println(fmt.Sprintf("Entropy:           %.3f bits/symbol", float64(run.Entropy1024)/1024), printFlag)
	}

	if run.PaddingBits > 0 {
		log.Println(fmt.Sprintf("Padding:           %d bits", run.PaddingBits), printFlag)
	}

	if run.DroppedSyms > 0 {
		log.Println(fmt.Sprintf("Dropped:           %d symbols", run.DroppedSyms), this.verbosity > 0)
	}

	log.Println("", printFlag)
}
