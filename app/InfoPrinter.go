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
	"sync"
	"time"

	rbtz "github.com/flanglet/rbtz"
)

// An implementation of Listener to display stage information (verbose option
// of the BitstreamCompressor/BitstreamDecompressor)

const (
	ENCODING = 0
	DECODING = 1
)

type StageInfo struct {
	name  string
	start time.Time
}

type InfoPrinter struct {
	writer io.Writer
	type_  uint
	map_   map[int]StageInfo
	lock   sync.RWMutex
	level  uint
	start  time.Time
}

func NewInfoPrinter(infoLevel, type_ uint, writer io.Writer) (*InfoPrinter, error) {
	if writer == nil {
		return nil, errors.New("Invalid null writer parameter")
	}

	this := new(InfoPrinter)
	this.type_ = type_ & 1
	this.level = infoLevel
	this.writer = writer
	this.map_ = make(map[int]StageInfo)
	return this, nil
}

func (this *InfoPrinter) ProcessEvent(evt *rbtz.Event) {
	if this.level >= 5 {
		fmt.Fprintln(this.writer, evt)
	}

	switch evt.Type() {
	case rbtz.EVT_RUN_START:
		this.lock.Lock()
		this.start = evt.Time()
		this.lock.Unlock()

	case rbtz.EVT_STAGE_START:
		this.lock.Lock()
		this.map_[evt.Id()] = StageInfo{name: evt.Stage(), start: evt.Time()}
		this.lock.Unlock()

		if this.level >= 4 {
			fmt.Fprintf(this.writer, "Stage %d (%s) started\n", evt.Id()+1, evt.Stage())
		}

	case rbtz.EVT_STAGE_PROGRESS:
		if this.level >= 4 {
			fmt.Fprintf(this.writer, "Stage %d (%s): %d records\n", evt.Id()+1, evt.Stage(), evt.Size())
		} else if this.level >= 2 {
			fmt.Fprintf(this.writer, "%s: %s\n", this.progressLabel(evt.Stage()), formatCount(evt.Size()))
		}

	case rbtz.EVT_STAGE_END, rbtz.EVT_STAGE_FAILED:
		this.lock.Lock()
		si, exists := this.map_[evt.Id()]
		delete(this.map_, evt.Id())
		this.lock.Unlock()

		if exists == false {
			return
		}

		durationMS := evt.Time().Sub(si.start).Nanoseconds() / int64(time.Millisecond)

		if evt.Type() == rbtz.EVT_STAGE_FAILED {
			if this.level >= 1 {
				fmt.Fprintf(this.writer, "Stage %d (%s) failed after %d records [%d ms]\n",
					evt.Id()+1, si.name, evt.Size(), durationMS)
			}

			return
		}

		if this.level >= 3 {
			fmt.Fprintf(this.writer, "Stage %d (%s): %d records [%d ms]\n", evt.Id()+1, si.name, evt.Size(), durationMS)
		}

	case rbtz.EVT_RUN_END:
		this.lock.RLock()
		start := this.start
		this.lock.RUnlock()

		if this.level >= 3 && start.IsZero() == false {
			durationMS := evt.Time().Sub(start).Nanoseconds() / int64(time.Millisecond)
			fmt.Fprintf(this.writer, "%d stages executed [%d ms]\n", evt.Size(), durationMS)
		}
	}
}

// progressLabel names what a stage counts in its progress messages
func (this *InfoPrinter) progressLabel(stage string) string {
	switch stage {
	case "parse":
		return "Words parsed"

	case "count":
		return "Symbols counted"

	case "encode":
		return "Symbols encoded"

	case "decode":
		return "Codewords decoded"

	case "merge-bytes":
		return "Words merged"

	case "encrypt", "decrypt":
		return "Bytes ciphered"
	}

	if this.type_ == ENCODING {
		return "Records encoded"
	}

	return "Records decoded"
}

// formatCount renders a record count with thousands separators
func formatCount(n int64) string {
	s := fmt.Sprintf("%d", n)

	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}

	return s
}
