// Package codec converts record collections to and from the string values
// held by the key-value backend.
package codec

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/subaccounts/notes-server/internal/errors"
)

// Codec encodes and decodes a list of T. Decoding fails open: a missing or
// unreadable value yields an empty list and a logged warning.
type Codec[T any] struct {
	logger   *slog.Logger
	validate func(T) error
	name     string
}

// Option configures a Codec.
type Option[T any] func(*Codec[T])

// WithValidator rejects a decoded collection when any element fails fn.
func WithValidator[T any](fn func(T) error) Option[T] {
	return func(c *Codec[T]) {
		c.validate = fn
	}
}

// New creates a codec. name identifies the collection in log output.
func New[T any](name string, logger *slog.Logger, opts ...Option[T]) *Codec[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Codec[T]{name: name, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode parses raw. ok=false (absent key) and blank input both yield an empty list.
func (c *Codec[T]) Decode(raw string, ok bool) []T {
	items, err := c.DecodeStrict(raw, ok)
	if err != nil {
		c.logger.Warn("discarding malformed persisted data",
			slog.String("collection", c.name),
			slog.Int("bytes", len(raw)),
			slog.String("error", err.Error()))
		return []T{}
	}
	return items
}

// DecodeStrict parses raw and reports malformed data instead of discarding it.
func (c *Codec[T]) DecodeStrict(raw string, ok bool) ([]T, error) {
	if !ok || strings.TrimSpace(raw) == "" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, errors.MalformedData(err, c.name+": invalid JSON")
	}
	if items == nil {
		return []T{}, nil
	}

	if c.validate != nil {
		for i, item := range items {
			if err := c.validate(item); err != nil {
				return nil, errors.MalformedData(err, c.name+": schema mismatch").
					WithDetails(map[string]int{"index": i})
			}
		}
	}
	return items, nil
}

// Encode serializes items in the order given. A nil list encodes as "[]".
func (c *Codec[T]) Encode(items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeInternal, "%s: encode", c.name)
	}
	return string(data), nil
}
