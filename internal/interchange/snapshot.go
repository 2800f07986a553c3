package interchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ppcp-backend/internal/models"
	"ppcp-backend/internal/timeutil"
)

// SnapshotVersion is written into every backup. Backups without a version
// field predate versioning and are read as version 0.
const SnapshotVersion = 1

// Snapshot is a full-collection backup
type Snapshot struct {
	Version   int            `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Entries   []models.Entry `json:"entries"`
}

// EncodeSnapshot serialises entries with the generation time. Dates stay canonical.
func EncodeSnapshot(entries []models.Entry, at time.Time) ([]byte, error) {
	if entries == nil {
		entries = []models.Entry{}
	}
	return json.Marshal(Snapshot{
		Version:   SnapshotVersion,
		Timestamp: at.UTC(),
		Entries:   entries,
	})
}

// DecodeSnapshot parses and validates a backup. Any problem fails the whole
// document: a malformed blob, a missing entries key, an unsupported version,
// an invalid entry or a repeated id.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var raw struct {
		Version   *int            `json:"version"`
		Timestamp string          `json:"timestamp"`
		Entries   *[]models.Entry `json:"entries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Source: "snapshot", Err: err}
	}
	if raw.Entries == nil {
		return nil, &ParseError{Source: "snapshot", Err: errors.New("missing entries")}
	}

	snap := &Snapshot{Entries: *raw.Entries}
	if raw.Version != nil {
		snap.Version = *raw.Version
	}
	if snap.Version < 0 || snap.Version > SnapshotVersion {
		return nil, &ParseError{Source: "snapshot", Err: fmt.Errorf("unsupported version %d", snap.Version)}
	}
	if raw.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
			snap.Timestamp = ts
		}
	}

	seen := make(map[string]bool, len(snap.Entries))
	for i, e := range snap.Entries {
		if err := e.Validate(); err != nil {
			return nil, &ParseError{Source: "snapshot", Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		if seen[e.ID] {
			return nil, &ParseError{Source: "snapshot", Err: fmt.Errorf("entry %d: duplicate id %q", i, e.ID)}
		}
		seen[e.ID] = true
	}
	return snap, nil
}

// BackupFilename is the download name for a backup generated at t
func BackupFilename(t time.Time) string {
	return fmt.Sprintf("ppcp_backup_%s.json", t.In(timeutil.Local).Format(timeutil.FileStampLayout))
}
