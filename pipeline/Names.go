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
	"fmt"
)

// CompressionNames  Artifacts produced by the compression stages
type CompressionNames struct {
	Header    string `yaml:"header"`
	Parsed    string `yaml:"parsed"`
	FreqRep   string `yaml:"frequency_report"`
	Symbols   string `yaml:"symbols"`
	Counts    string `yaml:"counts"`
	SymIn     string `yaml:"symbol_table"`
	CodewIn   string `yaml:"codeword_table"`
	CodeLen   string `yaml:"length_table"`
	Codebook  string `yaml:"codebook"`
	Encoded   string `yaml:"encoded"`
	Bundle    string `yaml:"bundle"`
	Encrypted string `yaml:"encrypted"`
}

func DefaultCompressionNames() CompressionNames {
	return CompressionNames{
		Header:    "header.txt",
		Parsed:    "parsed.txt",
		FreqRep:   "freq.txt",
		Symbols:   "symbols.txt",
		Counts:    "counts.txt",
		SymIn:     "symin.txt",
		CodewIn:   "codewin.txt",
		CodeLen:   "codelen.txt",
		Codebook:  "codebook.txt",
		Encoded:   "output.txt",
		Bundle:    "comp.bin",
		Encrypted: "encr.bin",
	}
}

// Intermediates returns every artifact except the cipher text
func (this CompressionNames) Intermediates() []string {
	return []string{this.Header, this.Parsed, this.FreqRep, this.Symbols, this.Counts, this.SymIn,
		this.CodewIn, this.CodeLen, this.Codebook, this.Encoded, this.Bundle}
}

func (this CompressionNames) all() []string {
	return append(this.Intermediates(), this.Encrypted)
}

// DecompressionNames  Artifacts produced by the decompression stages
type DecompressionNames struct {
	Decrypted string `yaml:"decrypted"`
	Header    string `yaml:"header"`
	Codebook  string `yaml:"codebook"`
	Encoded   string `yaml:"encoded"`
	SymIn     string `yaml:"symbol_table"`
	CodewIn   string `yaml:"codeword_table"`
	CodeLen   string `yaml:"length_table"`
	OccCode   string `yaml:"occurrence_codewords"`
	OccLen    string `yaml:"occurrence_lengths"`
	SymStream string `yaml:"symbol_stream"`
	Merged    string `yaml:"merged"`
	Final     string `yaml:"final"`
}

func DefaultDecompressionNames() DecompressionNames {
	return DecompressionNames{
		Decrypted: "dcomp.bin",
		Header:    "dheader.txt",
		Codebook:  "dcodebook.txt",
		Encoded:   "doutput.txt",
		SymIn:     "dsymin.txt",
		CodewIn:   "dcodewin.txt",
		CodeLen:   "dcodelen.txt",
		OccCode:   "otcw.txt",
		OccLen:    "otlen.txt",
		SymStream: "rgn.txt",
		Merged:    "merged.txt",
		Final:     "decomp.rbt",
	}
}

// Intermediates returns every artifact except the reconstructed output
func (this DecompressionNames) Intermediates() []string {
	return []string{this.Decrypted, this.Header, this.Codebook, this.Encoded, this.SymIn, this.CodewIn,
		this.CodeLen, this.OccCode, this.OccLen, this.SymStream, this.Merged}
}

func (this DecompressionNames) all() []string {
	return append(this.Intermediates(), this.Final)
}

// checkNames verifies that names are not empty and pairwise distinct
func checkNames(names []string) error {
	seen := make(map[string]bool, len(names))

	for _, n := range names {
		if len(n) == 0 {
			return fmt.Errorf("Invalid empty artifact name")
		}

		if seen[n] == true {
			return fmt.Errorf("Invalid artifact names: '%v' used twice", n)
		}

		seen[n] = true
	}

	return nil
}
