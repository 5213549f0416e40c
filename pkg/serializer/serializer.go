package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// ErrTrailingData is returned when an encoded argument holds more than one JSON value.
var ErrTrailingData = errors.New("serializer: unexpected data after top-level value")

// Serializer converts values to and from their wire text.
type Serializer interface {
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v, which is a non-nil pointer.
	Unmarshal(data []byte, v any) error
}

// JSON is a Serializer backed by encoding/json.
type JSON struct {
	useNumber             bool
	disallowUnknownFields bool
}

// JSONOption configures a JSON serializer.
type JSONOption interface {
	applyJSON(*JSON)
}

type jsonOptionFunc func(*JSON)

func (f jsonOptionFunc) applyJSON(j *JSON) { f(j) }

// UseNumber decodes numbers inside untyped values as json.Number instead of float64.
func UseNumber() JSONOption {
	return jsonOptionFunc(func(j *JSON) {
		j.useNumber = true
	})
}

// DisallowUnknownFields rejects objects carrying keys that the target struct does not declare.
func DisallowUnknownFields() JSONOption {
	return jsonOptionFunc(func(j *JSON) {
		j.disallowUnknownFields = true
	})
}

// NewJSON creates a JSON serializer with the given policy.
func NewJSON(opts ...JSONOption) *JSON {
	j := &JSON{}
	for _, opt := range opts {
		opt.applyJSON(j)
	}
	return j
}

var defaultJSON = NewJSON()

// Default returns the plain JSON policy.
func Default() Serializer {
	return defaultJSON
}

// Marshal encodes v as JSON.
func (j *JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes exactly one JSON value from data into v.
func (j *JSON) Unmarshal(data []byte, v any) error {
	if !j.useNumber && !j.disallowUnknownFields {
		return json.Unmarshal(data, v)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if j.useNumber {
		dec.UseNumber()
	}
	if j.disallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}
