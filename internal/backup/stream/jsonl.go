// Package stream reads and writes JSON Lines members of a zip archive.
package stream

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
)

// ErrFileNotFound reports an archive without the requested member.
var ErrFileNotFound = errors.New("file not found in backup")

// maxLineSize bounds one line. A ledger line holds a whole account history.
const maxLineSize = 16 << 20

// Writer appends values of type T, one JSON document per line.
type Writer[T any] struct {
	enc *json.Encoder
	n   int
}

// Create adds member name to zw and returns a writer for it.
func Create[T any](zw *zip.Writer, name string) (*Writer[T], error) {
	w, err := zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &Writer[T]{enc: json.NewEncoder(w)}, nil
}

// Write appends v as one line.
func (w *Writer[T]) Write(v T) error {
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of lines written.
func (w *Writer[T]) Count() int { return w.n }

// Open opens member name of zr.
func Open(zr *zip.Reader, name string) (io.ReadCloser, error) {
	f, err := zr.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return f, err
}

// LineError is a line that failed to decode.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// Lines decodes r line by line. Blank lines are skipped; a line that fails
// to decode yields a *LineError and decoding carries on with the next one.
func Lines[T any](r io.Reader) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

		var zero T
		for n := 1; scanner.Scan(); n++ {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				if !yield(zero, &LineError{Line: n, Err: err}) {
					return
				}
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(zero, err)
		}
	}
}
