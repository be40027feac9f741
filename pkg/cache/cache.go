// Package cache remembers previous conversions so unchanged inputs can be
// skipped.
//
// A [Cache] is a byte store with optional expiry. The [Keyer] derives keys
// from the input path and every option that changes the output, and a
// [Record] describes what a finished conversion produced.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TTLConversion is how long a conversion record stays valid.
const TTLConversion = 30 * 24 * time.Hour

// Cache stores opaque values by key.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// ConversionKeyOpts holds the options that change conversion output.
type ConversionKeyOpts struct {
	Output      string `json:"output"`
	Tables      string `json:"tables,omitempty"`
	Format      string `json:"format"`
	Compression string `json:"compression"`
	References  string `json:"references"`
	Build       string `json:"build"`
}

// Keyer derives cache keys.
type Keyer interface {
	// ConversionKey returns the key for converting input with opts.
	ConversionKey(input string, opts ConversionKeyOpts) string
}

// DefaultKeyer hashes the input path together with the options.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ConversionKey implements Keyer.
func (DefaultKeyer) ConversionKey(input string, opts ConversionKeyOpts) string {
	return hashKey("convert", input, opts)
}

// Record describes the outputs of a finished conversion.
type Record struct {
	RunID      string    `json:"run_id"`
	InputHash  string    `json:"input_hash"`
	OutputHash string    `json:"output_hash"`
	TablesHash string    `json:"tables_hash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Marshal encodes r for storage.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRecord decodes a stored record.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	err := json.Unmarshal(data, &r)
	return r, err
}
