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
	"fmt"
	"log/slog"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/pipeline"
)

const _COMP_INPUT_ARTIFACT = "input.rbt"

// BitstreamCompressor main bitstream compressor struct
type BitstreamCompressor struct {
	*task
	logger *slog.Logger
}

// NewBitstreamCompressor creates a new instance of BitstreamCompressor given
// a map of argument name/value pairs and the configuration.
func NewBitstreamCompressor(argsMap map[string]any, cfg *Config, logger *slog.Logger) (*BitstreamCompressor, error) {
	t, err := newTask(argsMap, cfg)

	if err != nil {
		return nil, err
	}

	if len(t.outputName) == 0 {
		t.outputName = t.inputName + ".rbz"
	}

	this := &BitstreamCompressor{task: t, logger: logger}
	return this, nil
}

// Compress runs the compression pipeline on the input file.
// Returns the exit code and the run (nil if it never started).
func (this *BitstreamCompressor) Compress() (int, *pipeline.Run) {
	printFlag := this.verbosity > 2
	log.Println("Input file name set to '"+this.inputName+"'", printFlag)
	log.Println("Output file name set to '"+this.outputName+"'", printFlag)
	log.Println("Device set to '"+this.cfg.Device.Kind+"'", printFlag)
	opts, err := this.cfg.Options(pipeline.COMPRESSION)

	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return rbtz.ERR_CONFIG, nil
	}

	opts.Logger = this.logger
	magic, code := this.sniff(opts.Key)

	if code != 0 {
		return code, nil
	}

	switch magic {
	case rbtz.BIT_MAGIC:
		fmt.Printf("Input file '%v' is a binary bitstream: an ASCII bitstream is required\n", this.inputName)
		return rbtz.ERR_INVALID_FILE, nil

	case rbtz.BUNDLE_MAGIC:
		fmt.Printf("Input file '%v' is already compressed\n", this.inputName)
		return rbtz.ERR_INVALID_FILE, nil

	case rbtz.NO_MAGIC:
		log.Println("Warning: input file '"+this.inputName+"' has no ASCII bitstream banner", this.verbosity > 0)
	}

	if code = this.checkOutput(); code != 0 {
		return code, nil
	}

	store, code := this.openStore(_COMP_INPUT_ARTIFACT)

	if code != 0 {
		return code, nil
	}

	acc, release, err := openDevice(this.cfg, this.cfg.Device.Compression)

	if err != nil {
		fmt.Printf("Cannot open accelerator: %v\n", err)
		return rbtz.ERR_DEVICE, nil
	}

	defer release()
	c, err := pipeline.NewCompressor(store, acc, opts, this.cfg.CompressionArtifacts)

	if err != nil {
		fmt.Printf("Failed to create compressor: %v\n", err)
		return rbtz.ERR_CONFIG, nil
	}

	for _, bl := range this.listeners {
		c.AddListener(bl)
	}

	log.Println("\nEncoding "+this.inputName+" ...", this.verbosity > 1)
	run, err := c.Compress(_COMP_INPUT_ARTIFACT)
	defer this.closeStore(run)
	defer this.writeManifest(run, store)

	if err != nil {
		fmt.Printf("%v\n", err)
		return exitCode(err), run
	}

	written, code := this.export(store, c.Names().Encrypted)

	if code != 0 {
		return code, run
	}

	read, _ := store.Size(_COMP_INPUT_ARTIFACT)

	if run.Cleaned == true {
		store.Remove(_COMP_INPUT_ARTIFACT)
	}

	this.report("Encoding", run, read, written)
	return 0, run
}
