package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is a single logged memory record. The engine treats entries as
// immutable input; all mutation happens here at the storage boundary.
type Entry struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Importance float64    `json:"importance"`
	Tags       []string   `json:"tags"`
	Category   string     `json:"category,omitempty"`
}

// Validate checks required fields and normalizes defaults. Called once at
// the storage boundary so scoring code never has to re-check shapes.
func (e *Entry) Validate() error {
	if e.Content == "" {
		return fmt.Errorf("entry content is required")
	}
	if e.StartTime.IsZero() {
		return fmt.Errorf("entry start_time is required")
	}
	if e.Importance < 0 || e.Importance > 1 {
		return fmt.Errorf("entry importance %v out of range [0,1]", e.Importance)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return nil
}

// InsertEntry validates and stores a new entry. A missing ID is generated,
// a zero importance is left as stored (use 0.5 for "unset" at the caller).
func (db *DB) InsertEntry(e *Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate entry: %w", err)
	}

	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	var endTime any
	if e.EndTime != nil {
		endTime = e.EndTime.UnixMilli()
	}

	_, err = db.Exec(`
		INSERT INTO entries (id, content, start_time, end_time, importance, tags, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Content, e.StartTime.UnixMilli(), endTime, e.Importance, string(tags), e.Category,
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry with the given ID, or nil if not found.
func (db *DB) GetEntry(id string) (*Entry, error) {
	row := db.QueryRow(`
		SELECT id, content, start_time, end_time, importance, tags, category
		FROM entries WHERE id = ?
	`, id)

	e, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// ListRecent returns entries whose start time falls within the trailing
// number of days, newest first. days <= 0 returns everything.
func (db *DB) ListRecent(days int) ([]Entry, error) {
	q := `
		SELECT id, content, start_time, end_time, importance, tags, category
		FROM entries
	`
	args := []any{}
	if days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()
		q += " WHERE start_time >= ?"
		args = append(args, cutoff)
	}
	q += " ORDER BY start_time DESC"

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// TouchEntry records a retrieval of the given entry in the access log.
func (db *DB) TouchEntry(id string) error {
	_, err := db.Exec(
		"INSERT INTO access_log (entry_id, accessed_at) VALUES (?, ?)",
		id, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("touch entry: %w", err)
	}
	return nil
}

// AccessCounts returns the number of logged retrievals per entry ID.
// Entries that have never been accessed are absent from the map.
func (db *DB) AccessCounts() (map[string]int, error) {
	rows, err := db.Query("SELECT entry_id, COUNT(*) FROM access_log GROUP BY entry_id")
	if err != nil {
		return nil, fmt.Errorf("access counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan access count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Frequencies implements engine.FrequencyProvider against the access log.
// Entries with no recorded accesses map to zero.
func (db *DB) Frequencies(entries []Entry) (map[string]int, error) {
	counts, err := db.AccessCounts()
	if err != nil {
		return nil, err
	}
	freq := make(map[string]int, len(entries))
	for _, e := range entries {
		freq[e.ID] = counts[e.ID]
	}
	return freq, nil
}

type scanFunc func(dest ...any) error

func scanEntry(scan scanFunc) (*Entry, error) {
	var e Entry
	var start int64
	var end sql.NullInt64
	var tags string

	if err := scan(&e.ID, &e.Content, &start, &end, &e.Importance, &tags, &e.Category); err != nil {
		return nil, err
	}

	e.StartTime = time.UnixMilli(start)
	if end.Valid {
		t := time.UnixMilli(end.Int64)
		e.EndTime = &t
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &e, nil
}
