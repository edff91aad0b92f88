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
	"strings"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/pipeline"
)

const _DECOMP_INPUT_ARTIFACT = "input.rbz"

// BitstreamDecompressor main bitstream decompressor struct
type BitstreamDecompressor struct {
	*task
	logger *slog.Logger
}

// NewBitstreamDecompressor creates a new instance of BitstreamDecompressor
// given a map of argument name/value pairs and the configuration.
func NewBitstreamDecompressor(argsMap map[string]any, cfg *Config, logger *slog.Logger) (*BitstreamDecompressor, error) {
	t, err := newTask(argsMap, cfg)

	if err != nil {
		return nil, err
	}

	if len(t.outputName) == 0 {
		if strings.HasSuffix(t.inputName, ".rbz") {
			t.outputName = strings.TrimSuffix(t.inputName, ".rbz")
		} else {
			t.outputName = t.inputName + ".rbt"
		}
	}

	this := &BitstreamDecompressor{task: t, logger: logger}
	return this, nil
}

// Decompress runs the decompression pipeline on the input file.
// Returns the exit code and the run (nil if it never started).
func (this *BitstreamDecompressor) Decompress() (int, *pipeline.Run) {
	printFlag := this.verbosity > 2
	log.Println("Input file name set to '"+this.inputName+"'", printFlag)
	log.Println("Output file name set to '"+this.outputName+"'", printFlag)
	log.Println("Device set to '"+this.cfg.Device.Kind+"'", printFlag)
	opts, err := this.cfg.Options(pipeline.DECOMPRESSION)

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
	case rbtz.RBT_MAGIC, rbtz.BIT_MAGIC:
		fmt.Printf("Input file '%v' is not compressed\n", this.inputName)
		return rbtz.ERR_INVALID_FILE, nil

	case rbtz.NO_MAGIC:
		log.Println("Warning: input file '"+this.inputName+"' does not decipher to an ASCII bitstream banner (wrong key ?)",
			this.verbosity > 0)
	}

	if code = this.checkOutput(); code != 0 {
		return code, nil
	}

	store, code := this.openStore(_DECOMP_INPUT_ARTIFACT)

	if code != 0 {
		return code, nil
	}

	acc, release, err := openDevice(this.cfg, this.cfg.Device.Decompression)

	if err != nil {
		fmt.Printf("Cannot open accelerator: %v\n", err)
		return rbtz.ERR_DEVICE, nil
	}

	defer release()
	d, err := pipeline.NewDecompressor(store, acc, opts, this.cfg.DecompressionArtifacts)

	if err != nil {
		fmt.Printf("Failed to create decompressor: %v\n", err)
		return rbtz.ERR_CONFIG, nil
	}

	for _, bl := range this.listeners {
		d.AddListener(bl)
	}

	log.Println("\nDecoding "+this.inputName+" ...", this.verbosity > 1)
	run, err := d.Decompress(_DECOMP_INPUT_ARTIFACT)
	defer this.closeStore(run)
	defer this.writeManifest(run, store)

	if err != nil {
		fmt.Printf("%v\n", err)
		return exitCode(err), run
	}

	written, code := this.export(store, d.Names().Final)

	if code != 0 {
		return code, run
	}

	read, _ := store.Size(_DECOMP_INPUT_ARTIFACT)

	if run.Cleaned == true {
		store.Remove(_DECOMP_INPUT_ARTIFACT)
	}

	this.report("Decoding", run, read, written)
	return 0, run
}
