package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visitor represents one tracked event as stored in data/visitors.json.
// The caller chooses the keys; values are kept as raw JSON so that a record
// comes back out of the store exactly as it went in.  The server adds two
// keys at ingest time.
//
// Well-known keys:
//
//	id              – "<unix millis>-<random suffix>", set by the server.
//	serverTimestamp – ISO-8601 UTC time of ingest, set by the server.
//	ip, deviceType, browser, country, city – supplied by the tracking script.
type Visitor map[string]json.RawMessage

const (
	FieldID              = "id"
	FieldServerTimestamp = "serverTimestamp"
	FieldIP              = "ip"
	FieldDeviceType      = "deviceType"
	FieldBrowser         = "browser"
	FieldCountry         = "country"
	FieldCity            = "city"
)

// Undefined labels a field the visitor record does not carry.
const Undefined = "undefined"

// TimestampLayout renders times the way browsers print Date.toISOString().
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp formats t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewVisitorID returns "<unix millis>-<9 random hex chars>".
func NewVisitorID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// Stamp assigns a fresh id and serverTimestamp, overwriting any values the
// caller sent, and returns the id.
func (v Visitor) Stamp(now time.Time) string {
	id := NewVisitorID(now)
	v[FieldID] = quote(id)
	v[FieldServerTimestamp] = quote(FormatTimestamp(now))
	return id
}

// Label renders a field as a plain string: the content of a JSON string,
// "null", the literal text of numbers and booleans, compact JSON for arrays
// and objects, and Undefined when the field is absent.
func (v Visitor) Label(field string) string {
	raw, ok := v[field]
	if !ok {
		return Undefined
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Undefined
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	return string(trimmed)
}

// Location is the "city, country" pair used in log lines.
func (v Visitor) Location() string {
	return v.Label(FieldCity) + ", " + v.Label(FieldCountry)
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// ErrNotObject is returned by ParseVisitor for JSON that is not an object.
var ErrNotObject = errors.New("body is not a JSON object")

// ParseVisitor decodes a request body into a Visitor.  An empty body yields
// an empty Visitor; anything other than a JSON object is rejected.
func ParseVisitor(body []byte) (Visitor, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Visitor{}, nil
	}
	if trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var v Visitor
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}
