package census

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a marker field persisted as the string "true" and omitted when
// unset. Decoding also accepts JSON booleans.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"true"`), nil
	}
	return []byte(`"false"`), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case `"true"`, `true`:
		*f = true
	case `"false"`, `false`, `null`:
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

// Item is one harvested census record.
type Item struct {
	ID                 string          `json:"id"`
	NoDir              Flag            `json:"no_dir,omitempty"`
	IsDark             json.RawMessage `json:"is_dark,omitempty"`
	Files              []FileEntry     `json:"files,omitempty"`
	TotalSize          *int64          `json:"total_size,omitempty"`
	SomePrivate        Flag            `json:"some_private,omitempty"`
	NoDownload         json.RawMessage `json:"nodownload,omitempty"`
	Collection         json.RawMessage `json:"collection,omitempty"`
	PublicDate         json.RawMessage `json:"publicdate,omitempty"`
	NoIndex            json.RawMessage `json:"noindex,omitempty"`
	MetadataIdentifier json.RawMessage `json:"metadata_identifier,omitempty"`
	Dir                *string         `json:"dir,omitempty"`
}

// FileEntry is one retained file. Hash values stay empty until reconciled.
type FileEntry struct {
	Name    string          `json:"name"`
	Format  string          `json:"format"`
	MD5     string          `json:"md5,omitempty"`
	SHA1    string          `json:"sha1,omitempty"`
	Size    int64           `json:"size"`
	Private json.RawMessage `json:"private,omitempty"`
}

// Hash returns the file's value for kind, or "" when unset.
func (f *FileEntry) Hash(kind HashKind) string {
	switch kind {
	case MD5:
		return f.MD5
	case SHA1:
		return f.SHA1
	}
	return ""
}

// SetHash stores value for kind and reports whether the stored value changed.
func (f *FileEntry) SetHash(kind HashKind, value string) bool {
	var dst *string
	switch kind {
	case MD5:
		dst = &f.MD5
	case SHA1:
		dst = &f.SHA1
	default:
		return false
	}
	if *dst == value {
		return false
	}
	*dst = value
	return true
}

// EncodeRecord serializes item as one compact JSON line terminated by '\n'.
// HTML characters are left unescaped so filenames are stored verbatim.
func EncodeRecord(item *Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(item); err != nil {
		return nil, fmt.Errorf("encode record %s: %w", item.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeRecord parses one record line. Unknown keys are rejected so that a
// rewrite never silently drops data.
func DecodeRecord(line []byte) (*Item, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	var item Item
	if err := dec.Decode(&item); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if strings.TrimSpace(item.ID) == "" {
		return nil, fmt.Errorf("decode record: missing id")
	}
	return &item, nil
}
