// Package model provides the data structures for Sahayak visual aids.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// VisualAid represents a single teaching visual aid record.
//
// The remote document store is the authority for every field here.
// Counters (UsageCount, RatingCount) and the running AverageRating are
// mutated only through library operations, never by direct overwrite.
type VisualAid struct {
	// ID is assigned by the remote store on creation. A record that has
	// never been written remotely has an empty ID.
	ID string `json:"id,omitempty"`

	// Ownership and classification.
	TeacherID  string `json:"teacher_id"`
	Subject    string `json:"subject"`
	Topic      string `json:"topic"`
	GradeLevel string `json:"grade_level"`
	Language   string `json:"language"`

	// Content.
	VisualContent string `json:"visual_content"`
	Explanation   string `json:"explanation,omitempty"`

	// Provenance.
	AIGenerated bool      `json:"ai_generated"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`

	// Engagement statistics. UsageCount and RatingCount only ever grow;
	// AverageRating is the arithmetic mean of all ratings submitted so
	// far and Effectiveness is that mean rounded to the nearest integer.
	UsageCount    int64   `json:"usage_count"`
	RatingCount   int64   `json:"rating_count"`
	AverageRating float64 `json:"average_rating"`
	Effectiveness int64   `json:"effectiveness"`

	// Visibility. IsPublic is set true only by an explicit share and is
	// never reverted.
	IsPublic bool       `json:"is_public"`
	SharedAt *time.Time `json:"shared_at,omitempty"`

	// Tags are derived from (Subject, Topic) at creation time.
	Tags []string `json:"tags,omitempty"`
}

// Validate checks that the record has the fields a write requires.
// System-assigned fields (ID, GeneratedAt, counters) are not checked;
// they are filled in by the write path.
func (v *VisualAid) Validate() error {
	if v.TeacherID == "" {
		return fmt.Errorf("teacher_id is required")
	}
	if v.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if v.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if v.VisualContent == "" {
		return fmt.Errorf("visual_content is required")
	}
	if v.UsageCount < 0 {
		return fmt.Errorf("usage_count must not be negative (got %d)", v.UsageCount)
	}
	if v.RatingCount < 0 {
		return fmt.Errorf("rating_count must not be negative (got %d)", v.RatingCount)
	}
	return nil
}

// SetDefaults applies the initial values a new record carries before
// its first remote write: zeroed counters, private visibility, and
// derived tags. The engagement and visibility fields are assigned
// unconditionally; counters only grow through library operations and
// a record becomes public only through an explicit share, so caller
// supplied values there are discarded.
func (v *VisualAid) SetDefaults() {
	if v.Tags == nil {
		v.Tags = DeriveTags(v.Subject, v.Topic)
	}
	if v.Language == "" {
		v.Language = "en"
	}
	v.UsageCount = 0
	v.RatingCount = 0
	v.AverageRating = 0
	v.Effectiveness = 0
	v.IsPublic = false
	v.SharedAt = nil
}

// Filename returns the canonical spool filename for this record.
func (v *VisualAid) Filename() string {
	return fmt.Sprintf("%s.json", v.ID)
}

// CacheEntry is a local mirror of a record that was successfully
// written to the remote store, keyed by the remote-assigned ID.
type CacheEntry struct {
	Record   VisualAid `json:"record"`
	CachedAt time.Time `json:"cached_at"`
}

// QueueEntry is a record of an attempted write that has not yet reached
// the remote store. Entries are keyed by insertion order (Seq) and are
// never mixed with cache entries: a queue entry has no remote ID.
type QueueEntry struct {
	Seq           int64     `json:"seq"`
	Record        VisualAid `json:"record"`
	QueuedForSync bool      `json:"queued_for_sync"`
	QueuedAt      time.Time `json:"queued_at"`
}

// ReadRecordFile reads and parses a visual-aid JSON file from the given
// path. Returns the parsed record or an error if reading, parsing, or
// validation fails.
func ReadRecordFile(path string) (*VisualAid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file %s: %w", path, err)
	}

	var rec VisualAid
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record file %s: %w", path, err)
	}

	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record file %s: %w", path, err)
	}

	return &rec, nil
}

// WriteRecordFile writes a record to dir as pretty-printed JSON.
// Used by the CLI and by tests to produce spool files.
func WriteRecordFile(dir string, rec *VisualAid) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid record: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	name := rec.Filename()
	if rec.ID == "" {
		name = fmt.Sprintf("%s-%s.json", sanitize(rec.Subject), sanitize(rec.Topic))
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write record file %s: %w", path, err)
	}

	return nil
}

// sanitize makes a string safe for use in a filename.
func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	return strings.Trim(s, "-")
}
