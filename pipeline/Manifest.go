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
	"os"
	"time"

	"gopkg.in/yaml.v3"

	rbtz "github.com/flanglet/rbtz"
	"github.com/flanglet/rbtz/staging"
)

// ManifestArtifact  An artifact left in the staging store by a run
type ManifestArtifact struct {
	Name   string `yaml:"name"`
	Size   int64  `yaml:"size"`
	Blake3 string `yaml:"blake3"`
}

// ManifestStage  Outcome of one stage
type ManifestStage struct {
	Name     string `yaml:"name"`
	Records  int64  `yaml:"records"`
	Skipped  int64  `yaml:"skipped,omitempty"`
	Duration string `yaml:"duration"`
	Kind     string `yaml:"error_kind,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// Manifest  A description of a run and of the artifacts it left behind,
// so that a failed run can be diagnosed from its intermediates
type Manifest struct {
	RunID       string             `yaml:"run_id"`
	Direction   string             `yaml:"direction"`
	Input       string             `yaml:"input"`
	Output      string             `yaml:"output"`
	Started     time.Time          `yaml:"started"`
	Elapsed     string             `yaml:"elapsed"`
	Status      string             `yaml:"status"`
	ExitCode    int                `yaml:"exit_code"`
	Cleaned     bool               `yaml:"cleaned"`
	LineEnding  string             `yaml:"line_ending,omitempty"`
	Symbols     int                `yaml:"symbols,omitempty"`
	PaddingBits uint               `yaml:"padding_bits,omitempty"`
	DroppedSyms int                `yaml:"dropped_symbols,omitempty"`
	Stages      []ManifestStage    `yaml:"stages"`
	Artifacts   []ManifestArtifact `yaml:"artifacts"`
}

// NewManifest describes the run and digests every artifact it created that
// is still present in the store
func NewManifest(run *Run, store rbtz.StagingStore) (*Manifest, error) {
	if run == nil || store == nil {
		return nil, errors.New("Invalid null parameter")
	}

	this := &Manifest{
		RunID:       run.ID,
		Direction:   run.Direction,
		Input:       run.Input,
		Output:      run.Output,
		Started:     run.Started,
		Elapsed:     run.Elapsed.Round(time.Millisecond).String(),
		Status:      "success",
		Cleaned:     run.Cleaned,
		Symbols:     len(run.Table),
		PaddingBits: run.PaddingBits,
		DroppedSyms: run.DroppedSyms,
		Stages:      make([]ManifestStage, 0, len(run.Stages)),
		Artifacts:   make([]ManifestArtifact, 0, len(run.Artifacts)),
	}

	switch run.LineEnding {
	case staging.LF:
		this.LineEnding = "lf"

	case staging.CRLF:
		this.LineEnding = "crlf"
	}

	for _, s := range run.Stages {
		ms := ManifestStage{Name: s.Name, Records: s.Records, Skipped: s.Skipped,
			Duration: s.Duration.Round(time.Microsecond).String()}

		if s.Err != nil {
			ms.Kind = s.Err.Kind.String()
			ms.Error = s.Err.Err.Error()
			this.Status = "failed"
			this.ExitCode = s.Err.ErrorCode()
		}

		this.Stages = append(this.Stages, ms)
	}

	for _, name := range run.Artifacts {
		digest, size, err := staging.Digest(store, name)

		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, err
		}

		this.Artifacts = append(this.Artifacts, ManifestArtifact{Name: name, Size: size, Blake3: digest})
	}

	return this, nil
}

// Write encodes the manifest as YAML
func (this *Manifest) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(this); err != nil {
		return err
	}

	return enc.Close()
}

// ReadManifest decodes a YAML manifest
func ReadManifest(r io.Reader) (*Manifest, error) {
	res := &Manifest{}

	if err := yaml.NewDecoder(r).Decode(res); err != nil {
		return nil, err
	}

	return res, nil
}
