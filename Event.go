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

package rbtz

import (
	"fmt"
	"time"
)

const (
	EVT_RUN_START      = 0
	EVT_STAGE_START    = 1
	EVT_STAGE_PROGRESS = 2
	EVT_STAGE_END      = 3
	EVT_STAGE_FAILED   = 4
	EVT_RUN_END        = 5
)

type Event struct {
	eventType int
	id        int
	stage     string
	size      int64
	eventTime time.Time
	msg       string
}

func NewEventFromString(evtType, id int, msg string, evtTime time.Time) *Event {
	if evtTime.IsZero() {
		evtTime = time.Now()
	}

	return &Event{eventType: evtType, id: id, size: 0, msg: msg, eventTime: evtTime}
}

// NewEvent creates a stage event. The id is the stage index (-1 for run
// events) and size the number of records processed so far.
func NewEvent(evtType, id int, stage string, size int64, evtTime time.Time) *Event {
	if evtTime.IsZero() {
		evtTime = time.Now()
	}

	return &Event{eventType: evtType, id: id, stage: stage, size: size, eventTime: evtTime}
}

func (this *Event) Type() int {
	return this.eventType
}

func (this *Event) Id() int {
	return this.id
}

func (this *Event) Stage() string {
	return this.stage
}

func (this *Event) Time() time.Time {
	return this.eventTime
}

func (this *Event) Size() int64 {
	return this.size
}

func (this *Event) String() string {
	if len(this.msg) > 0 {
		return this.msg
	}

	t := ""
	id := ""
	stage := ""

	if this.id >= 0 {
		id = fmt.Sprintf(", \"id\": %d", this.id)
	}

	if len(this.stage) > 0 {
		stage = fmt.Sprintf(", \"stage\": \"%s\"", this.stage)
	}

	switch this.eventType {
	case EVT_RUN_START:
		t = "RUN_START"

	case EVT_STAGE_START:
		t = "STAGE_START"

	case EVT_STAGE_PROGRESS:
		t = "STAGE_PROGRESS"

	case EVT_STAGE_END:
		t = "STAGE_END"

	case EVT_STAGE_FAILED:
		t = "STAGE_FAILED"

	case EVT_RUN_END:
		t = "RUN_END"
	}

	return fmt.Sprintf("{ \"type\":\"%s\"%s%s, \"size\":%d, \"time\":%d }", t, id, stage, this.size,
		this.eventTime.UnixNano()/1000000)
}

type Listener interface {
	ProcessEvent(evt *Event)
}
