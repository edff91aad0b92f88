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

package huffman

import (
	"errors"
	"math/rand"
	"testing"
)

func TestCLRSExample(t *testing.T) {
	var freqs FrequencyTable
	freqs['A'] = 5
	freqs['B'] = 9
	freqs['C'] = 12
	freqs['D'] = 13
	freqs['E'] = 16
	freqs['F'] = 45

	table, err := NewBuilder().Build(&freqs)

	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	expected := map[byte]string{'A': "1100", 'B': "1101", 'C': "100", 'D': "101", 'E': "111", 'F': "0"}

	if len(table) != len(expected) {
		t.Fatalf("Expected %v entries, got %v", len(expected), len(table))
	}

	for _, e := range table {
		if e.Bits() != expected[e.Symbol] {
			t.Errorf("Symbol %c: expected code %v, got %v", e.Symbol, expected[e.Symbol], e.Bits())
		}

		if e.Symbol != 'F' && e.Length < 3 {
			t.Errorf("Symbol %c: expected a length of at least 3, got %v", e.Symbol, e.Length)
		}
	}

	if w := table.WeightedLength(&freqs); w != 224 {
		t.Errorf("Expected a weighted length of 224, got %v", w)
	}
}

func TestPrefixFreeAndKraft(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	builder := NewBuilder()

	for test := 0; test < 200; test++ {
		var freqs FrequencyTable
		n := 2 + r.Intn(255)

		for i := 0; i < n; i++ {
			freqs[r.Intn(256)] = uint32(1 + r.Intn(1000))
		}

		if freqs.Present() < 2 {
			continue
		}

		table, err := builder.Build(&freqs)

		if err != nil {
			t.Fatalf("Iteration %v: build failed: %v", test, err)
		}

		if len(table) != freqs.Present() {
			t.Errorf("Iteration %v: expected %v entries, got %v", test, freqs.Present(), len(table))
		}

		if table.IsPrefixFree() == false {
			t.Errorf("Iteration %v: table is not prefix free", test)
		}

		if k := table.KraftSum(); k > 1.0 {
			t.Errorf("Iteration %v: Kraft sum %v > 1", test, k)
		}

		for i := 1; i < len(table); i++ {
			if table[i-1].Symbol >= table[i].Symbol {
				t.Errorf("Iteration %v: entries not ordered by symbol", test)
				break
			}
		}
	}
}

func TestDegenerateTables(t *testing.T) {
	builder := NewBuilder()
	var freqs FrequencyTable

	table, err := builder.Build(&freqs)

	if err != nil || len(table) != 0 {
		t.Errorf("Expected an empty table, got %v (%v)", table, err)
	}

	freqs[0x42] = 1000
	table, err = builder.Build(&freqs)

	if err != nil || len(table) != 1 {
		t.Fatalf("Expected one entry, got %v (%v)", table, err)
	}

	if table[0].Symbol != 0x42 || table[0].Length != 0 || table[0].Bits() != "" {
		t.Errorf("Unexpected single symbol entry %+v", table[0])
	}

	if _, err = builder.Build(nil); err == nil {
		t.Errorf("Expected an error for a null table")
	}
}

func TestCodeTooLong(t *testing.T) {
	builder := NewBuilder()

	for _, n := range []int{17, 18} {
		var freqs FrequencyTable
		a, b := uint32(1), uint32(1)

		for i := 0; i < n; i++ {
			freqs[i] = a
			a, b = b, a+b
		}

		table, err := builder.Build(&freqs)

		if n == 17 {
			if err != nil || table.MaxLength() != 16 {
				t.Errorf("%v symbols: expected a max length of 16, got %v (%v)", n, table.MaxLength(), err)
			}

			continue
		}

		if errors.Is(err, ErrCodeTooLong) == false {
			t.Errorf("%v symbols: expected ErrCodeTooLong, got %v", n, err)
		}
	}
}

func TestBuilderReuse(t *testing.T) {
	builder := NewBuilder()
	var freqs FrequencyTable

	for i := range freqs {
		freqs[i] = uint32(i + 1)
	}

	t1, err1 := builder.Build(&freqs)
	t2, err2 := builder.Build(&freqs)

	if err1 != nil || err2 != nil || len(t1) != 256 || len(t2) != 256 {
		t.Fatalf("Build failed: %v %v", err1, err2)
	}

	for i := range t1 {
		if t1[i] != t2[i] {
			t.Errorf("Builds differ at entry %v: %+v vs %+v", i, t1[i], t2[i])
			break
		}
	}

	if e, ok := t1.Lookup(200); ok == false || e.Symbol != 200 {
		t.Errorf("Lookup failed: %+v", e)
	}
}
