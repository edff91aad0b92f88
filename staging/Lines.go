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

package staging

import (
	"bufio"
	"errors"
	"io"
	"strings"

	rbtz "github.com/flanglet/rbtz"
)

const (
	LF   = "\n"
	CRLF = "\r\n"

	_BUFFER_SIZE = 64 * 1024
)

// LineReader reads an artifact one line at a time. The LF or CRLF
// terminator is stripped from the returned lines.
type LineReader struct {
	src   io.ReadSeekCloser
	br    *bufio.Reader
	lines int64
}

// OpenLineReader opens the named artifact for line reading
func OpenLineReader(store rbtz.StagingStore, name string) (*LineReader, error) {
	src, err := store.Open(name)

	if err != nil {
		return nil, err
	}

	return NewLineReader(src)
}

func NewLineReader(src io.ReadSeekCloser) (*LineReader, error) {
	if src == nil {
		return nil, errors.New("Invalid null source parameter")
	}

	this := &LineReader{}
	this.src = src
	this.br = bufio.NewReaderSize(src, _BUFFER_SIZE)
	return this, nil
}

// ReadLine returns the next line or io.EOF at the end of the artifact.
// A last line without terminator is returned normally.
func (this *LineReader) ReadLine() (string, error) {
	line, err := this.br.ReadString('\n')

	if err != nil {
		if err != io.EOF || len(line) == 0 {
			return "", err
		}
	}

	this.lines++
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// DetectEnding returns the terminator of the first line of the named
// artifact. It returns false if the artifact holds no line break.
func DetectEnding(store rbtz.StagingStore, name string) (string, bool, error) {
	src, err := store.Open(name)

	if err != nil {
		return "", false, err
	}

	defer src.Close()
	line, err := bufio.NewReaderSize(src, _BUFFER_SIZE).ReadString('\n')

	if err == io.EOF {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	if strings.HasSuffix(line, CRLF) {
		return CRLF, true, nil
	}

	return LF, true, nil
}

// Rewind moves the read position back to the beginning of the artifact
func (this *LineReader) Rewind() error {
	if _, err := this.src.Seek(0, io.SeekStart); err != nil {
		return err
	}

	this.br.Reset(this.src)
	this.lines = 0
	return nil
}

// Lines returns the number of lines read since the last rewind
func (this *LineReader) Lines() int64 {
	return this.lines
}

func (this *LineReader) Close() error {
	return this.src.Close()
}

// LineWriter writes lines to an artifact with a fixed line terminator
type LineWriter struct {
	dst    io.WriteCloser
	bw     *bufio.Writer
	ending string
	lines  int64
	closed bool
}

// CreateLineWriter creates (or truncates) the named artifact for line writing
func CreateLineWriter(store rbtz.StagingStore, name, ending string) (*LineWriter, error) {
	dst, err := store.Create(name)

	if err != nil {
		return nil, err
	}

	return NewLineWriter(dst, ending)
}

func NewLineWriter(dst io.WriteCloser, ending string) (*LineWriter, error) {
	if dst == nil {
		return nil, errors.New("Invalid null destination parameter")
	}

	if ending != LF && ending != CRLF {
		return nil, errors.New("Invalid line ending: must be LF or CRLF")
	}

	this := &LineWriter{}
	this.dst = dst
	this.bw = bufio.NewWriterSize(dst, _BUFFER_SIZE)
	this.ending = ending
	return this, nil
}

// WriteLine appends line followed by the line terminator
func (this *LineWriter) WriteLine(line string) error {
	if this.closed == true {
		return errors.New("Stream closed")
	}

	if _, err := this.bw.WriteString(line); err != nil {
		return err
	}

	if _, err := this.bw.WriteString(this.ending); err != nil {
		return err
	}

	this.lines++
	return nil
}

// Lines returns the number of lines written
func (this *LineWriter) Lines() int64 {
	return this.lines
}

// Close flushes pending data and closes the artifact
func (this *LineWriter) Close() error {
	if this.closed == true {
		return nil
	}

	this.closed = true
	err := this.bw.Flush()

	if err2 := this.dst.Close(); err == nil {
		err = err2
	}

	return err
}
