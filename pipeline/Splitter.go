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
	"strings"

	"github.com/flanglet/rbtz/record"
)

// Section  Part of a bundle a line belongs to. The splitter state is the
// section of the last classified line.
type Section int

const (
	SECTION_HEADER Section = iota
	SECTION_CODEBOOK
	SECTION_OUTPUT
)

func (this Section) String() string {
	switch this {
	case SECTION_HEADER:
		return "header"

	case SECTION_CODEBOOK:
		return "codebook"

	case SECTION_OUTPUT:
		return "output"
	}

	return "unknown"
}

// Splitter  Recovers the sections of an unframed bundle line by line.
//
// The header ends with the codebook title line, which belongs to the
// codebook. The codebook ends with the first line made of a single binary
// token, which belongs to the output. Everything after is output.
// A codebook line that happens to hold a single binary token is classified
// as output, and so is the rest of the codebook.
type Splitter struct {
	state Section
	lines [3]int64
}

func NewSplitter() *Splitter {
	return &Splitter{state: SECTION_HEADER}
}

var splitTransitions = [...]func(line string) Section{
	SECTION_HEADER:   fromHeader,
	SECTION_CODEBOOK: fromCodebook,
	SECTION_OUTPUT:   fromOutput,
}

func fromHeader(line string) Section {
	if record.IsCodebookHeader(line) {
		return SECTION_CODEBOOK
	}

	return SECTION_HEADER
}

func fromCodebook(line string) Section {
	tokens := strings.Fields(line)

	if len(tokens) == 1 && record.IsBinary(tokens[0]) {
		return SECTION_OUTPUT
	}

	return SECTION_CODEBOOK
}

func fromOutput(line string) Section {
	return SECTION_OUTPUT
}

// Classify returns the section of the line and moves to it
func (this *Splitter) Classify(line string) Section {
	this.state = splitTransitions[this.state](line)
	this.lines[this.state]++
	return this.state
}

// State returns the section of the last classified line
func (this *Splitter) State() Section {
	return this.state
}

// Lines returns the number of lines classified in the section
func (this *Splitter) Lines(s Section) int64 {
	return this.lines[s]
}
