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
	"strings"
	"testing"
	"time"
)

func TestLog2_1024(t *testing.T) {
	values := map[uint32]uint32{1: 0, 2: 1024, 4: 2048, 256: 8192, 1 << 20: 20480}

	for x, expected := range values {
		if v, err := Log2_1024(x); err != nil || v != expected {
			t.Errorf("log2(%d): expected %d, got %d (%v)", x, expected, v, err)
		}
	}

	// 1024*log2(3) = 1623.0
	if v, _ := Log2_1024(3); v < 1621 || v > 1625 {
		t.Errorf("log2(3): unexpected value %d", v)
	}

	if _, err := Log2_1024(0); err == nil {
		t.Errorf("Expected failure for null value")
	}
}

func TestEntropy(t *testing.T) {
	histo := make([]uint32, MAX_SYMBOLS)

	if e := ComputeFirstOrderEntropy1024(0, histo); e != 0 {
		t.Errorf("Expected null entropy for empty histogram, got %d", e)
	}

	histo[7] = 1000

	if e := ComputeFirstOrderEntropy1024(1000, histo); e != 0 {
		t.Errorf("Expected null entropy for a single symbol, got %d", e)
	}

	// 4 equiprobable symbols: 2 bits per symbol
	for i := 0; i < 4; i++ {
		histo[i] = 1 << 30
	}

	histo[7] = 0

	if e := ComputeFirstOrderEntropy1024(4<<30, histo); e < 2040 || e > 2056 {
		t.Errorf("Expected 2048 for 4 equiprobable symbols, got %d", e)
	}
}

func TestMagic(t *testing.T) {
	banner := []byte("Xilinx ASCII Bitstream\nCreated by Bitstream P.20131013\n")
	ciphered := make([]byte, len(banner))

	for i := range banner {
		ciphered[i] = banner[i] ^ DEFAULT_KEY
	}

	tests := []struct {
		src      []byte
		key      byte
		expected uint
	}{
		{banner, DEFAULT_KEY, RBT_MAGIC},
		{ciphered, DEFAULT_KEY, BUNDLE_MAGIC},
		{ciphered, 0x11, NO_MAGIC},
		{[]byte{0x00, 0x09, 0x0F, 0xF0, 0x0F, 0xF0}, DEFAULT_KEY, BIT_MAGIC},
		{[]byte("Xil"), DEFAULT_KEY, NO_MAGIC},
		{[]byte("00000000000000000000000000000000\n"), DEFAULT_KEY, NO_MAGIC},
	}

	for i, tt := range tests {
		if m := GetMagicType(tt.src, tt.key); m != tt.expected {
			t.Errorf("Test %d: expected magic %X, got %X", i, tt.expected, m)
		}
	}
}

func TestEvent(t *testing.T) {
	now := time.Now()
	evt := NewEvent(EVT_STAGE_END, 2, "codebook", 42, now)

	if evt.Type() != EVT_STAGE_END || evt.Id() != 2 || evt.Stage() != "codebook" || evt.Size() != 42 || evt.Time() != now {
		t.Errorf("Unexpected event accessors: %v", evt)
	}

	s := evt.String()

	for _, part := range []string{"\"type\":\"STAGE_END\"", "\"id\": 2", "\"stage\": \"codebook\"", "\"size\":42"} {
		if strings.Contains(s, part) == false {
			t.Errorf("Missing %q in %v", part, s)
		}
	}

	if NewEventFromString(EVT_RUN_START, -1, "started", time.Time{}).String() != "started" {
		t.Errorf("Expected the event message")
	}

	if NewEvent(EVT_RUN_END, -1, "", 0, time.Time{}).Time().IsZero() {
		t.Errorf("Expected the current time for a null event time")
	}
}
