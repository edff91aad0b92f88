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
	"container/heap"
	"errors"
	"fmt"

	rbtz "github.com/flanglet/rbtz"
)

const (
	MAX_NODES = 2*rbtz.MAX_SYMBOLS - 1
	_NO_CHILD = -1
)

// ErrCodeTooLong is returned when the distribution requires a code wider
// than the codeword record
var ErrCodeTooLong = errors.New("Code length exceeds codeword width")

// node of the code tree. Leaves have no children, internal nodes have two.
type node struct {
	freq   uint64
	seq    int
	symbol byte
	left   int
	right  int
}

func (this *node) isLeaf() bool {
	return this.left == _NO_CHILD
}

// nodeHeap min-heap of arena indexes ordered by (frequency, creation rank)
type nodeHeap struct {
	arena []node
	items []int
}

func (this *nodeHeap) Len() int { return len(this.items) }

func (this *nodeHeap) Less(i, j int) bool {
	a := &this.arena[this.items[i]]
	b := &this.arena[this.items[j]]

	if a.freq != b.freq {
		return a.freq < b.freq
	}

	return a.seq < b.seq
}

func (this *nodeHeap) Swap(i, j int) {
	this.items[i], this.items[j] = this.items[j], this.items[i]
}

func (this *nodeHeap) Push(x any) {
	this.items = append(this.items, x.(int))
}

func (this *nodeHeap) Pop() any {
	n := len(this.items) - 1
	x := this.items[n]
	this.items = this.items[:n]
	return x
}

// Builder  Huffman tree construction and code assignment.
// The node arena is owned by the builder and reset by every build, so
// a builder must not be shared by concurrent runs.
//
// Ties between nodes of equal frequency are broken by creation rank:
// leaves are created by increasing symbol value, then internal nodes in
// the order they are merged. The older node is extracted first and the
// first extracted node becomes the left child (bit 0).
type Builder struct {
	arena []node
	heap  nodeHeap
	stack []walkItem
}

type walkItem struct {
	index int
	code  uint32
	depth int
}

func NewBuilder() *Builder {
	this := &Builder{}
	this.arena = make([]node, 0, MAX_NODES)
	this.heap.items = make([]int, 0, rbtz.MAX_SYMBOLS)
	this.stack = make([]walkItem, 0, 64)
	return this
}

func (this *Builder) reset() {
	this.arena = this.arena[:0]
	this.heap.items = this.heap.items[:0]
	this.stack = this.stack[:0]
}

func (this *Builder) newNode(freq uint64, symbol byte, left, right int) int {
	idx := len(this.arena)
	this.arena = append(this.arena, node{freq: freq, seq: idx, symbol: symbol, left: left, right: right})
	return idx
}

// Build returns the code table for the frequencies. An empty table is
// returned when no symbol is present and a single entry of length 0 when
// exactly one symbol is present.
func (this *Builder) Build(freqs *FrequencyTable) (CodeTable, error) {
	if freqs == nil {
		return nil, errors.New("Invalid null frequency table parameter")
	}

	this.reset()

	for s, f := range freqs {
		if f > 0 {
			this.newNode(uint64(f), byte(s), _NO_CHILD, _NO_CHILD)
		}
	}

	count := len(this.arena)

	if count == 0 {
		return CodeTable{}, nil
	}

	if count == 1 {
		return CodeTable{{Symbol: this.arena[0].symbol, Code: 0, Length: 0}}, nil
	}

	for i := 0; i < count; i++ {
		this.heap.items = append(this.heap.items, i)
	}

	this.heap.arena = this.arena
	heap.Init(&this.heap)

	for this.heap.Len() > 1 {
		left := heap.Pop(&this.heap).(int)
		right := heap.Pop(&this.heap).(int)
		freq := this.arena[left].freq + this.arena[right].freq
		idx := this.newNode(freq, 0, left, right)

		this.heap.arena = this.arena
		heap.Push(&this.heap, idx)
	}

	root := heap.Pop(&this.heap).(int)
	return this.assignCodes(root, count)
}

func (this *Builder) assignCodes(root, count int) (CodeTable, error) {
	var entries [rbtz.MAX_SYMBOLS]CodeEntry
	var present [rbtz.MAX_SYMBOLS]bool
	this.stack = append(this.stack, walkItem{index: root})

	for len(this.stack) > 0 {
		item := this.stack[len(this.stack)-1]
		this.stack = this.stack[:len(this.stack)-1]
		n := &this.arena[item.index]

		if n.isLeaf() {
			entries[n.symbol] = CodeEntry{Symbol: n.symbol, Code: item.code, Length: uint8(item.depth)}
			present[n.symbol] = true
			continue
		}

		if item.depth+1 > rbtz.MAX_CODE_LEN {
			return nil, fmt.Errorf("%w: more than %d bits required", ErrCodeTooLong, rbtz.MAX_CODE_LEN)
		}

		this.stack = append(this.stack, walkItem{index: n.right, code: item.code<<1 | 1, depth: item.depth + 1})
		this.stack = append(this.stack, walkItem{index: n.left, code: item.code << 1, depth: item.depth + 1})
	}

	res := make(CodeTable, 0, count)

	for s := range entries {
		if present[s] == true {
			res = append(res, entries[s])
		}
	}

	return res, nil
}
