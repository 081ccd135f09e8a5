// Package qr encodes and decodes the visitor QR payload and renders it as a
// PNG image.
package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CurrentVersion is the schema version written by Encode.
// Version 0 denotes a legacy payload that carries no "v" field.
const CurrentVersion = 1

// ErrInvalidPayload is returned when scanned data is not a visitor payload.
var ErrInvalidPayload = errors.New("invalid QR payload")

// Payload is the snapshot of registration fields embedded in a visitor's QR code.
// Unknown fields are ignored on decode so newer payloads stay readable.
// Timestamp is informational; a value Decode cannot read is left zero.
type Payload struct {
	Version     int       `json:"v"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	Email       string    `json:"email"`
	ArrivalDate string    `json:"arrivalDate"`
	ArrivalTime string    `json:"arrivalTime"`
	HostName    string    `json:"hostName"`
	Timestamp   time.Time `json:"timestamp"`
}

// Encode serializes p at CurrentVersion.
func Encode(p Payload) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}
	p.Version = CurrentVersion

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	return string(data), nil
}

// UnmarshalJSON reads a payload, accepting an RFC 3339 string, epoch
// milliseconds, a JavaScript Date string or nothing for timestamp.
func (p *Payload) UnmarshalJSON(data []byte) error {
	type plain Payload
	aux := struct {
		*plain
		Timestamp json.RawMessage `json:"timestamp"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Timestamp = parseTimestamp(aux.Timestamp)
	return nil
}

// jsDateLayout matches the prefix of JavaScript's Date.prototype.toString.
const jsDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"

func parseTimestamp(raw json.RawMessage) time.Time {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}
	}

	if s[0] != '"' {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}
		}
		// Values this large are milliseconds; smaller ones are seconds.
		if n > 1e11 || n < -1e11 {
			return time.UnixMilli(int64(n)).UTC()
		}
		return time.Unix(int64(n), 0).UTC()
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return time.Time{}
	}
	str = strings.TrimSpace(str)
	if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
		return t
	}
	if len(str) >= len(jsDateLayout) {
		if t, err := time.Parse(jsDateLayout, str[:len(jsDateLayout)]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Decode parses scanned data. Legacy payloads decode with Version 0.
func Decode(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Version < 0 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidPayload, p.Version)
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}

	return &p, nil
}
