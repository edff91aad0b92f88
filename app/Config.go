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
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/accel"
	"github.com/flanglet/rbtz/pipeline"
	"github.com/flanglet/rbtz/staging"
)

const (
	DEVICE_SOFT   = "soft"
	DEVICE_SIM    = "sim"
	DEVICE_DEVMEM = "devmem"
)

// Config  Settings loaded from the optional YAML file. Command line options
// override them.
type Config struct {
	// Key is the cipher key, decimal or 0x prefixed hexadecimal
	Key string `yaml:"key"`

	// Sentinel is the prefix of the last header line
	Sentinel string `yaml:"sentinel"`

	// LineEnding of the artifacts written when the input holds no line
	// break: lf or crlf
	LineEnding string `yaml:"line_ending"`

	// WorkDir holds the staging artifacts. A temporary directory is used
	// when empty.
	WorkDir string `yaml:"work_dir"`

	Cleanup CleanupConfig `yaml:"cleanup"`
	Device  DeviceConfig  `yaml:"device"`

	CompressionArtifacts   pipeline.CompressionNames   `yaml:"compression_artifacts"`
	DecompressionArtifacts pipeline.DecompressionNames `yaml:"decompression_artifacts"`
}

// CleanupConfig  Removal of the intermediate artifacts after a successful run
type CleanupConfig struct {
	Compression   bool `yaml:"compression"`
	Decompression bool `yaml:"decompression"`
}

// DeviceConfig  Accelerator selection
type DeviceConfig struct {
	// Kind: soft (software model), sim (simulated registers) or devmem
	Kind string `yaml:"kind"`

	// Path of the physical memory device for kind devmem
	Path string `yaml:"path"`

	Compression   accel.RegisterMap `yaml:"compression"`
	Decompression accel.RegisterMap `yaml:"decompression"`
	Timeouts      TimeoutsConfig    `yaml:"timeouts"`
}

// TimeoutsConfig  Handshake budgets as duration strings (EG. 100ms)
type TimeoutsConfig struct {
	PollInterval string `yaml:"poll_interval"`
	Count        string `yaml:"count"`
	Load         string `yaml:"load"`
	Encode       string `yaml:"encode"`
}

// DefaultConfig returns the configuration used when no file is provided
func DefaultConfig() *Config {
	c := pipeline.DefaultCompressionOptions()
	d := pipeline.DefaultDecompressionOptions()
	t := accel.DefaultTimeouts()

	return &Config{
		Key:        fmt.Sprintf("0x%02X", rbtz.DEFAULT_KEY),
		Sentinel:   c.Sentinel,
		LineEnding: "lf",
		Cleanup: CleanupConfig{
			Compression:   c.Cleanup,
			Decompression: d.Cleanup,
		},
		Device: DeviceConfig{
			Kind:          DEVICE_SOFT,
			Path:          "/dev/mem",
			Compression:   accel.CompressionMap(),
			Decompression: accel.DecompressionMap(),
			Timeouts: TimeoutsConfig{
				PollInterval: t.PollInterval.String(),
				Count:        t.Count.String(),
				Load:         t.Load.String(),
				Encode:       t.Encode.String(),
			},
		},
		CompressionArtifacts:   pipeline.DefaultCompressionNames(),
		DecompressionArtifacts: pipeline.DefaultDecompressionNames(),
	}
}

// LoadConfig overlays the YAML file on the defaults and validates the result
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("Invalid configuration file '%v': %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid configuration file '%v': %w", path, err)
	}

	return cfg, nil
}

// Validate checks every value of the configuration
func (this *Config) Validate() error {
	if _, err := this.KeyByte(); err != nil {
		return err
	}

	if len(strings.TrimSpace(this.Sentinel)) == 0 {
		return errors.New("Empty header sentinel")
	}

	if _, err := this.Ending(); err != nil {
		return err
	}

	switch this.Device.Kind {
	case DEVICE_SOFT, DEVICE_SIM:

	case DEVICE_DEVMEM:
		if len(this.Device.Path) == 0 {
			return errors.New("Empty device path")
		}

	default:
		return fmt.Errorf("Unknown device kind '%v': must be %v, %v or %v", this.Device.Kind,
			DEVICE_SOFT, DEVICE_SIM, DEVICE_DEVMEM)
	}

	if _, err := this.Timeouts(); err != nil {
		return err
	}

	if len(this.Device.Compression.Bases()) == 0 || len(this.Device.Decompression.Bases()) == 0 {
		return errors.New("Empty register map")
	}

	return nil
}

// KeyByte returns the cipher key
func (this *Config) KeyByte() (byte, error) {
	k, err := strconv.ParseUint(strings.TrimSpace(this.Key), 0, 8)

	if err != nil {
		return 0, fmt.Errorf("Invalid key '%v': must be a byte value", this.Key)
	}

	return byte(k), nil
}

// Ending returns the line terminator of the artifacts
func (this *Config) Ending() (string, error) {
	switch strings.ToLower(this.LineEnding) {
	case "lf":
		return staging.LF, nil

	case "crlf":
		return staging.CRLF, nil
	}

	return "", fmt.Errorf("Invalid line ending '%v': must be lf or crlf", this.LineEnding)
}

// Timeouts returns the handshake budgets
func (this *Config) Timeouts() (accel.Timeouts, error) {
	var res accel.Timeouts
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"poll_interval", this.Device.Timeouts.PollInterval, &res.PollInterval},
		{"count", this.Device.Timeouts.Count, &res.Count},
		{"load", this.Device.Timeouts.Load, &res.Load},
		{"encode", this.Device.Timeouts.Encode, &res.Encode},
	}

	for _, f := range fields {
		d, err := time.ParseDuration(f.value)

		if err != nil {
			return res, fmt.Errorf("Invalid %v timeout '%v': %w", f.name, f.value, err)
		}

		if d < 0 || (d == 0 && f.name != "poll_interval") {
			return res, fmt.Errorf("Invalid %v timeout '%v': must be positive", f.name, f.value)
		}

		*f.dst = d
	}

	return res, nil
}

// Options returns the orchestrator options of a direction
func (this *Config) Options(direction string) (pipeline.Options, error) {
	var opts pipeline.Options

	if direction == pipeline.COMPRESSION {
		opts = pipeline.DefaultCompressionOptions()
		opts.Cleanup = this.Cleanup.Compression
	} else {
		opts = pipeline.DefaultDecompressionOptions()
		opts.Cleanup = this.Cleanup.Decompression
	}

	var err error

	if opts.Key, err = this.KeyByte(); err != nil {
		return opts, err
	}

	if opts.LineEnding, err = this.Ending(); err != nil {
		return opts, err
	}

	opts.Sentinel = this.Sentinel
	return opts, nil
}
