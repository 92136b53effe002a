package census

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Payload is the decoded metadata API response for one item. Optional
// scalar fields keep their raw JSON so they can be copied verbatim and so
// presence can be told apart from zero values.
type Payload struct {
	Dir        *string         `json:"dir"`
	IsDark     json.RawMessage `json:"is_dark"`
	NoDownload json.RawMessage `json:"nodownload"`
	Metadata   PayloadMetadata `json:"metadata"`
	Files      []PayloadFile   `json:"files"`
}

// PayloadMetadata is the metadata sub-object of a payload.
type PayloadMetadata struct {
	Collection json.RawMessage `json:"collection"`
	PublicDate json.RawMessage `json:"publicdate"`
	NoIndex    json.RawMessage `json:"noindex"`
	Identifier json.RawMessage `json:"identifier"`
}

// PayloadFile is one entry of the payload's file list.
type PayloadFile struct {
	Source  string          `json:"source"`
	Name    string          `json:"name"`
	Format  string          `json:"format"`
	Size    json.RawMessage `json:"size"`
	Private json.RawMessage `json:"private"`
	MD5     json.RawMessage `json:"md5"`
	SHA1    json.RawMessage `json:"sha1"`
}

// Hash returns the raw hash field for kind.
func (f *PayloadFile) Hash(kind HashKind) json.RawMessage {
	switch kind {
	case MD5:
		return f.MD5
	case SHA1:
		return f.SHA1
	}
	return nil
}

// DecodePayload parses a metadata API response body.
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &p, nil
}

// projection copies one optional raw field from a typed source onto an Item
// when the source carries it.
type projection[S any] struct {
	key  string
	from func(*S) json.RawMessage
	to   func(*Item) *json.RawMessage
}

var payloadProjections = []projection[Payload]{
	{"is_dark", func(p *Payload) json.RawMessage { return p.IsDark }, func(it *Item) *json.RawMessage { return &it.IsDark }},
	{"nodownload", func(p *Payload) json.RawMessage { return p.NoDownload }, func(it *Item) *json.RawMessage { return &it.NoDownload }},
}

var metadataProjections = []projection[PayloadMetadata]{
	{"collection", func(m *PayloadMetadata) json.RawMessage { return m.Collection }, func(it *Item) *json.RawMessage { return &it.Collection }},
	{"publicdate", func(m *PayloadMetadata) json.RawMessage { return m.PublicDate }, func(it *Item) *json.RawMessage { return &it.PublicDate }},
	{"noindex", func(m *PayloadMetadata) json.RawMessage { return m.NoIndex }, func(it *Item) *json.RawMessage { return &it.NoIndex }},
}

// project copies every present field in fields from src to dst and returns
// the keys it copied.
func project[S any](src *S, dst *Item, fields []projection[S]) []string {
	var copied []string
	for _, f := range fields {
		value := f.from(src)
		if value == nil {
			continue
		}
		*f.to(dst) = slices.Clone(value)
		copied = append(copied, f.key)
	}
	return copied
}

// parseSize accepts the API's string sizes as well as JSON numbers. Absent,
// null, and empty values are zero.
func parseSize(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return 0, nil
		}
	}
	size, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %s: %w", raw, err)
	}
	return size, nil
}

type hashState int

const (
	hashPresent hashState = iota
	hashMissing
	hashConflicting
)

// hashValue accepts only a single non-empty JSON string.
func hashValue(raw json.RawMessage) (string, hashState) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", hashMissing
	}
	if raw[0] != '"' {
		return "", hashConflicting
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", hashConflicting
	}
	if value == "" {
		return "", hashMissing
	}
	return value, hashPresent
}

// identifierValue returns a copy of the metadata identifier when it is set
// and differs from id. Null, "", [] and {} count as unset; lists and
// other shapes are kept.
func identifierValue(raw json.RawMessage, id string) json.RawMessage {
	var compact bytes.Buffer
	if len(bytes.TrimSpace(raw)) == 0 || json.Compact(&compact, raw) != nil {
		return nil
	}
	value := compact.Bytes()
	switch string(value) {
	case "null", `""`, "[]", "{}":
		return nil
	}
	if value[0] == '"' {
		var s string
		if err := json.Unmarshal(value, &s); err == nil && s == id {
			return nil
		}
	}
	return value
}
