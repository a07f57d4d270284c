package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Job is a reserved unit of work. ID is the queue-assigned handle and is
// only meaningful to the connection that reserved it.
type Job struct {
	ID   uint64
	Body []byte
}

// Payload is the job body: the currency pair and the two attempt counters,
// plus every other field the producer sent. Unknown fields travel through
// requeues untouched.
type Payload struct {
	From           string
	To             string
	SuccessAttempt uint
	FailedAttempt  uint

	fields map[string]json.RawMessage
}

// NewPayload builds a fresh payload for a pair with zeroed counters.
// extra fields are carried as-is; from and to always win over extra.
func NewPayload(from, to string, extra map[string]json.RawMessage) *Payload {
	fields := make(map[string]json.RawMessage, len(extra)+2)
	for k, v := range extra {
		fields[k] = v
	}
	delete(fields, FieldSuccessAttempt)
	delete(fields, FieldFailedAttempt)
	fields[FieldFrom] = mustMarshal(from)
	fields[FieldTo] = mustMarshal(to)

	return &Payload{From: from, To: to, fields: fields}
}

// DecodePayload parses a job body. Missing or null counters read as 0.
func DecodePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Payload) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: payload must be a JSON object", ErrInvalidPayload)
	}

	success, err := decodeCounter(fields, FieldSuccessAttempt)
	if err != nil {
		return err
	}
	failed, err := decodeCounter(fields, FieldFailedAttempt)
	if err != nil {
		return err
	}

	*p = Payload{
		From:           decodeString(fields, FieldFrom),
		To:             decodeString(fields, FieldTo),
		SuccessAttempt: success,
		FailedAttempt:  failed,
		fields:         fields,
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Original fields are written back
// as received; only the counters are replaced.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.fields)+4)
	for k, v := range p.fields {
		out[k] = v
	}
	if _, ok := out[FieldFrom]; !ok {
		out[FieldFrom] = mustMarshal(p.From)
	}
	if _, ok := out[FieldTo]; !ok {
		out[FieldTo] = mustMarshal(p.To)
	}
	out[FieldSuccessAttempt] = mustMarshal(p.SuccessAttempt)
	out[FieldFailedAttempt] = mustMarshal(p.FailedAttempt)

	return json.Marshal(out)
}

// Field returns the raw value of a payload field
func (p *Payload) Field(name string) (json.RawMessage, bool) {
	v, ok := p.fields[name]
	return v, ok
}

// Clone returns a deep copy
func (p *Payload) Clone() *Payload {
	c := *p
	c.fields = make(map[string]json.RawMessage, len(p.fields))
	for k, v := range p.fields {
		c.fields[k] = append(json.RawMessage(nil), v...)
	}
	return &c
}

func decodeString(fields map[string]json.RawMessage, name string) string {
	var s string
	if raw, ok := fields[name]; ok {
		// a non-string value leaves s empty and fails currency validation later
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func decodeCounter(fields map[string]json.RawMessage, name string) (uint, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, nil
	}

	invalid := fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidPayload, name)

	// json.Number would accept a quoted number
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return 0, invalid
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, invalid
	}

	// Integral values written as 1.0 or 2e0 count
	d, err := decimal.NewFromString(n.String())
	if err != nil || !d.IsInteger() || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, invalid
	}
	return uint(d.IntPart()), nil
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// ValidateCurrencyCode checks that code is exactly CurrencyCodeLength characters
func ValidateCurrencyCode(code string) error {
	if utf8.RuneCountInString(code) != CurrencyCodeLength {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return nil
}

// ValidatePair validates both codes of a pair independently
func ValidatePair(from, to string) error {
	if err := ValidateCurrencyCode(from); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := ValidateCurrencyCode(to); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	return nil
}

// RateResult is one parsed rate sample. Rate is a fixed two-decimal
// string; CreatedAt is stamped when the sample is persisted.
type RateResult struct {
	ID        int64     `db:"id" json:"id,omitempty"`
	From      string    `db:"from_currency" json:"from"`
	To        string    `db:"to_currency" json:"to"`
	Rate      string    `db:"rate" json:"rate"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
