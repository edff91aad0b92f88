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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/pflag"

	rbtz "github.com/flanglet/rbtz"
)

const APP_HEADER = "Rbtz 1.0 (C) 2018,  Frederic Langlet"

var (
	mutex sync.Mutex
	log   = Printer{os: bufio.NewWriter(os.Stdout)}
)

// cmdLine  Values of the command line options
type cmdLine struct {
	compress   bool
	decompress bool
	inputName  string
	outputName string
	workDir    string
	key        string
	verbose    int
	cleanup    bool
	device     string
	manifest   string
	config     string
	overwrite  bool
	help       bool
}

func main() {
	start := time.Now()
	status := run(os.Args[1:])
	log.Println("Elapsed: "+formatElapsed(time.Since(start)), status != 0 || verbosityOf(os.Args[1:]) > 0)
	os.Exit(status)
}

// verbosityOf returns the verbosity requested on the command line, 1 if the
// command line cannot be parsed
func verbosityOf(args []string) int {
	flags, cl := newFlagSet()
	flags.SetOutput(io.Discard)

	if err := flags.Parse(args); err != nil {
		return 1
	}

	return cl.verbose
}

func newFlagSet() (*pflag.FlagSet, *cmdLine) {
	cl := &cmdLine{}
	flags := pflag.NewFlagSet("rbtz", pflag.ContinueOnError)
	flags.BoolVarP(&cl.compress, "compress", "c", false, "compress an ASCII bitstream")
	flags.BoolVarP(&cl.decompress, "decompress", "d", false, "decompress a bundle")
	flags.StringVarP(&cl.inputName, "input", "i", "", "mandatory name of the input file")
	flags.StringVarP(&cl.outputName, "output", "o", "", "name of the output file (defaults to <input>.rbz or <input>.rbt)")
	flags.StringVarP(&cl.workDir, "work-dir", "w", "", "directory of the staging artifacts (defaults to a temporary directory)")
	flags.StringVarP(&cl.key, "key", "k", "", "cipher key, decimal or 0x prefixed hexadecimal (default 0x5A)")
	flags.IntVarP(&cl.verbose, "verbose", "v", 1, "verbosity level [0..5]")
	flags.BoolVar(&cl.cleanup, "cleanup", false, "remove the intermediate artifacts after a successful run")
	flags.StringVar(&cl.device, "device", "", "accelerator: soft, sim or devmem (default soft)")
	flags.StringVar(&cl.manifest, "manifest", "", "write a YAML manifest of the run artifacts to this file")
	flags.StringVar(&cl.config, "config", "", "YAML configuration file")
	flags.BoolVarP(&cl.overwrite, "force", "f", false, "overwrite the output file if it already exists")
	flags.BoolVarP(&cl.help, "help", "h", false, "display this message")
	return flags, cl
}

func run(args []string) int {
	flags, cl := newFlagSet()

	if err := flags.Parse(args); err != nil {
		fmt.Printf("%v: try --help or -h\n", err)
		return rbtz.ERR_INVALID_PARAM
	}

	if cl.help == true {
		printHelp(flags)
		return 0
	}

	if cl.verbose < 0 || cl.verbose > 5 {
		fmt.Printf("Invalid verbosity level provided on command line: %v\n", cl.verbose)
		return rbtz.ERR_INVALID_PARAM
	}

	if cl.compress == cl.decompress {
		if cl.compress == true {
			fmt.Println("Both compression and decompression options were provided.")
			return rbtz.ERR_INVALID_PARAM
		}

		fmt.Println("Missing arguments: try --help or -h")
		return rbtz.ERR_MISSING_PARAM
	}

	if len(cl.inputName) == 0 {
		fmt.Println("Missing input file name: try --help or -h")
		return rbtz.ERR_MISSING_PARAM
	}

	cfg, err := loadConfig(flags, cl)

	if err != nil {
		fmt.Printf("%v\n", err)
		return rbtz.ERR_CONFIG
	}

	verbosity := uint(cl.verbose)
	log.Println("\n"+APP_HEADER+"\n", verbosity >= 1)
	argsMap := map[string]any{
		"inputName":  cl.inputName,
		"outputName": cl.outputName,
		"overwrite":  cl.overwrite,
		"verbosity":  verbosity,
	}

	if len(cl.manifest) > 0 {
		argsMap["manifest"] = cl.manifest
	}

	return execute(cl.compress, argsMap, cfg, newLogger(verbosity, os.Stderr))
}

// loadConfig reads the configuration file, then applies the command line
// options that override it
func loadConfig(flags *pflag.FlagSet, cl *cmdLine) (*Config, error) {
	cfg := DefaultConfig()

	if len(cl.config) > 0 {
		var err error

		if cfg, err = LoadConfig(cl.config); err != nil {
			return nil, err
		}
	}

	if flags.Changed("key") {
		cfg.Key = cl.key
	}

	if flags.Changed("device") {
		cfg.Device.Kind = cl.device
	}

	if flags.Changed("work-dir") {
		cfg.WorkDir = cl.workDir
	}

	if flags.Changed("cleanup") {
		if cl.compress == true {
			cfg.Cleanup.Compression = cl.cleanup
		} else {
			cfg.Cleanup.Decompression = cl.cleanup
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid option: %w", err)
	}

	return cfg, nil
}

func newLogger(verbosity uint, w io.Writer) *slog.Logger {
	level := slog.LevelWarn

	switch {
	case verbosity == 0:
		level = slog.LevelError

	case verbosity >= 4:
		level = slog.LevelDebug

	case verbosity >= 2:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func execute(compress bool, argsMap map[string]any, cfg *Config, logger *slog.Logger) (code int) {
	verbosity := argsMap["verbosity"].(uint)

	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("An unexpected error occured: %v\n", r)
			code = rbtz.ERR_UNKNOWN
		}
	}()

	type_ := uint(DECODING)

	if compress == true {
		type_ = ENCODING
	}

	var listener rbtz.Listener

	if verbosity > 1 {
		listener, _ = NewInfoPrinter(verbosity, type_, os.Stdout)
	}

	if compress == true {
		bc, err := NewBitstreamCompressor(argsMap, cfg, logger)

		if err != nil {
			fmt.Printf("Failed to create bitstream compressor: %v\n", err)
			return rbtz.ERR_INVALID_PARAM
		}

		if listener != nil {
			bc.AddListener(listener)
		}

		code, _ = bc.Compress()
		return code
	}

	bd, err := NewBitstreamDecompressor(argsMap, cfg, logger)

	if err != nil {
		fmt.Printf("Failed to create bitstream decompressor: %v\n", err)
		return rbtz.ERR_INVALID_PARAM
	}

	if listener != nil {
		bd.AddListener(listener)
	}

	code, _ = bd.Decompress()
	return code
}

func printHelp(flags *pflag.FlagSet) {
	log.Println("", true)
	log.Println("Usage: rbtz -c|-d -i <input> [options]", true)
	log.Println("", true)
	log.Println(flags.FlagUsages(), true)
	log.Println("Verbosity: 0=silent, 1=default, 2=display details and progress,", true)
	log.Println("3=display configuration and stage timings, 4=display debug logs, 5=display events", true)
	log.Println("", true)
	log.Println("EG. rbtz -c -i design.rbt -o design.rbz -v 3", true)
	log.Println("EG. rbtz -d -i design.rbz -o design.rbt --device devmem --manifest run.yaml -f", true)
	log.Println("EG. rbtz --compress --input=design.rbt --config=rbtz.yaml --work-dir=/tmp/rbtz --cleanup", true)
	log.Println("", true)
}

type Printer struct {
	os *bufio.Writer
}

func (this *Printer) Println(msg string, print bool) {
	if print == true {
		mutex.Lock()

		// Best effort, ignore error
		if w, _ := this.os.Write([]byte(msg + "\n")); w > 0 {
			_ = this.os.Flush()
		}

		mutex.Unlock()
	}
}
