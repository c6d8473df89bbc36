package work

import "encoding/json"

// SchemaVersion is the current shape of stored work items: a list of attachments.
// Version 1 records carried a single optional `file`.
const SchemaVersion = 2

// Record is a work item as persisted. It may be in any known schema version.
// Version 1 records were written in camelCase: `createdAt`, and `mimeType` on attachments.
type Record struct {
	Item
	SchemaVersion   int   `json:"schema_version,omitempty"`
	File            *File `json:"file,omitempty"`      // legacy, version 1
	LegacyCreatedAt int64 `json:"createdAt,omitempty"` // legacy, version 1
}

// UnmarshalJSON also accepts the camelCase `mimeType` of version 1 records.
func (f *File) UnmarshalJSON(data []byte) error {
	type file File
	var v struct {
		file
		LegacyMimeType string `json:"mimeType"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = File(v.file)
	if f.MimeType == "" {
		f.MimeType = v.LegacyMimeType
	}
	return nil
}

// MigrateRecord lifts rec to the current schema version. It is pure and idempotent.
func MigrateRecord(rec Record) Record {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = rec.LegacyCreatedAt
	}
	rec.LegacyCreatedAt = 0
	if len(rec.Files) == 0 {
		rec.Files = nil
		if rec.File != nil {
			rec.Files = []File{*rec.File}
		}
	}
	rec.File = nil
	rec.SchemaVersion = SchemaVersion
	return rec
}

// MigrateRecords applies MigrateRecord to every record.
func MigrateRecords(recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, MigrateRecord(rec))
	}
	return out
}

// DecodeItems decodes a stored JSON array of work items of any schema version into current items.
func DecodeItems(raw []byte) ([]Item, error) {
	if len(raw) == 0 {
		return []Item{}, nil
	}
	var recs []Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(recs))
	for _, rec := range MigrateRecords(recs) {
		items = append(items, rec.Item)
	}
	return items, nil
}

// EncodeItems encodes items in the current schema version.
func EncodeItems(items []Item) ([]byte, error) {
	recs := make([]Record, 0, len(items))
	for _, it := range items {
		recs = append(recs, Record{Item: it, SchemaVersion: SchemaVersion})
	}
	return json.Marshal(recs)
}
