package census

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"census/internal/logging"
	"census/internal/nameenc"
)

// Result is the output of building one item.
type Result struct {
	Item      *Item
	Tier      Tier
	HashLines map[HashKind][]HashLine

	// MissingHashes counts retained files without a usable value, summed
	// over hash kinds. ConflictingHashes is the subset whose value was
	// present but not a single string.
	MissingHashes     int
	ConflictingHashes int
}

// Builder converts decoded payloads into census records.
type Builder struct {
	kinds  []HashKind
	logger *slog.Logger
}

// NewBuilder returns a Builder emitting hash lines for kinds.
func NewBuilder(kinds []HashKind, logger *slog.Logger) *Builder {
	return &Builder{
		kinds:  append([]HashKind(nil), kinds...),
		logger: logging.NewComponentLogger(logger, "builder"),
	}
}

// Build converts the payload fetched for id. A status other than 200 yields
// ErrSkippedItem and no result. A nil payload is treated as empty.
func (b *Builder) Build(id string, status int, payload *Payload) (*Result, error) {
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: upstream status %d", ErrSkippedItem, id, status)
	}
	if payload == nil {
		payload = &Payload{}
	}

	item := &Item{ID: id}
	logger := b.logger.With(logging.String(logging.FieldItemID, id))

	if payload.Dir == nil {
		item.NoDir = true
	} else if parts := strings.Split(*payload.Dir, "/"); len(parts) < 4 || parts[3] != id {
		dir := *payload.Dir
		item.Dir = &dir
	}

	copied := project(payload, item, payloadProjections)
	copied = append(copied, project(&payload.Metadata, item, metadataProjections)...)

	item.MetadataIdentifier = identifierValue(payload.Metadata.Identifier, id)

	result := &Result{Item: item, HashLines: make(map[HashKind][]HashLine, len(b.kinds))}
	filesXML := id + "_files.xml"
	var total int64
	for i := range payload.Files {
		src := &payload.Files[i]
		if src.Source == "derivative" || src.Name == filesXML {
			continue
		}

		size, err := parseSize(src.Size)
		if err != nil {
			logging.WarnWithContext(logger, "unparsable file size", "invalid_size",
				logging.String(logging.FieldFile, src.Name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "size recorded as 0"))
		}
		entry := FileEntry{Name: src.Name, Format: src.Format, Size: size}
		if src.Private != nil {
			entry.Private = append(entry.Private, src.Private...)
			item.SomePrivate = true
		}
		item.Files = append(item.Files, entry)
		total += size

		b.collectHashes(logger, result, src)
	}

	if len(item.Files) > 0 {
		item.TotalSize = &total
	}
	result.Tier = Classify(item)

	logger.Debug("built record",
		logging.String(logging.FieldTier, result.Tier.String()),
		logging.Int("files", len(item.Files)),
		logging.String("projected", strings.Join(copied, ",")))
	return result, nil
}

func (b *Builder) collectHashes(logger *slog.Logger, result *Result, src *PayloadFile) {
	encoded := nameenc.Encode(src.Name)
	for _, kind := range b.kinds {
		value, state := hashValue(src.Hash(kind))
		switch state {
		case hashPresent:
			result.HashLines[kind] = append(result.HashLines[kind], HashLine{ID: result.Item.ID, Name: encoded, Value: value})
			continue
		case hashMissing:
			logging.WarnWithContext(logger, "missing hash", "missing_hash",
				logging.String(logging.FieldFile, src.Name),
				logging.String(logging.FieldHashKind, string(kind)),
				logging.String(logging.FieldImpact, "hash line omitted"),
				logging.String(logging.FieldErrorHint, "compute the hash out of band and reconcile"))
		case hashConflicting:
			result.ConflictingHashes++
			logging.WarnWithContext(logger, "conflicting hash values", "conflicting_hash",
				logging.String(logging.FieldFile, src.Name),
				logging.String(logging.FieldHashKind, string(kind)),
				logging.String("value", string(src.Hash(kind))),
				logging.String(logging.FieldImpact, "hash line omitted"),
				logging.String(logging.FieldErrorHint, "compute the hash out of band and reconcile"))
		}
		result.MissingHashes++
	}
}
