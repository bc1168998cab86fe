// Package roster implements the persistent "known players" roster: a
// durable map of player id to annotation record (friend/blocked status
// plus free-text notes), with derived friend/blocked id-sets kept
// consistent under mutation.
package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status is the friend/blocked marker on a record. A record carries at
// most one status; the zero value means no status is assigned.
type Status string

const (
	StatusNone    Status = ""
	StatusFriend  Status = "friend"
	StatusBlocked Status = "blocked"
)

var jsonNull = []byte("null")

// MarshalJSON encodes StatusNone as JSON null to match the persisted
// wire shape ("friend" | "blocked" | null).
func (s Status) MarshalJSON() ([]byte, error) {
	if s == StatusNone {
		return jsonNull, nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON decodes JSON null as StatusNone.
func (s *Status) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*s = StatusNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}
	switch Status(raw) {
	case StatusFriend, StatusBlocked, StatusNone:
		*s = Status(raw)
	default:
		return fmt.Errorf("unknown status %q", raw)
	}
	return nil
}

// Record is a single player annotation. ID is the opaque identifier
// issued by the host system and is the primary key. Name is an advisory
// cache of the last-known display name, not authoritative. Notes
// distinguishes "no note" (nil) from an explicit empty note ("").
type Record struct {
	ID     string  `json:"id"`
	Name   *string `json:"name"`
	Status Status  `json:"status"`
	Notes  *string `json:"notes"`
}

// IsEmpty reports whether the record carries no user-assigned meaning.
// Empty records are never persisted.
func (r Record) IsEmpty() bool {
	return r.Status == StatusNone && r.Notes == nil
}

// DisplayName returns the cached name, or the id when no name is known.
func (r Record) DisplayName() string {
	if r.Name != nil && *r.Name != "" {
		return *r.Name
	}
	return r.ID
}

// NoteText returns the note as a plain string, "" when unset.
func (r Record) NoteText() string {
	if r.Notes == nil {
		return ""
	}
	return *r.Notes
}
