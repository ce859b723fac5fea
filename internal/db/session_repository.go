package db

import (
	"database/sql"
	"fmt"

	"github.com/jhead/phantom/internal/session"
)

// SessionRepository stores finished relay sessions, trimming history to a
// bounded number of records.
type SessionRepository struct {
	db         *Database
	maxRecords int
}

// NewSessionRepository creates a session repository keeping at most
// maxRecords rows.
func NewSessionRepository(db *Database, maxRecords int) *SessionRepository {
	if maxRecords <= 0 {
		maxRecords = 100
	}
	return &SessionRepository{
		db:         db,
		maxRecords: maxRecords,
	}
}

// Create inserts a finished session and trims history past the limit.
func (r *SessionRepository) Create(rec session.Record) error {
	query := `
		INSERT INTO sessions (id, client_addr, upstream_port, bytes_up, bytes_down, packets_up, packets_down, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endTime interface{}
	if !rec.EndTime.IsZero() {
		endTime = rec.EndTime
	}

	_, err := r.db.DB().Exec(query,
		rec.ID,
		rec.ClientAddr,
		rec.UpstreamPort,
		rec.BytesUp,
		rec.BytesDown,
		rec.PacketsUp,
		rec.PacketsDown,
		rec.StartTime,
		endTime,
	)
	if err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}

	return r.Cleanup()
}

// GetByID retrieves one session record.
func (r *SessionRepository) GetByID(id string) (session.Record, error) {
	query := `
		SELECT id, client_addr, upstream_port, bytes_up, bytes_down, packets_up, packets_down, start_time, end_time
		FROM sessions WHERE id = ?
	`
	return scanRecord(r.db.DB().QueryRow(query, id))
}

// List retrieves session records newest first, with pagination.
func (r *SessionRepository) List(limit, offset int) ([]session.Record, error) {
	query := `
		SELECT id, client_addr, upstream_port, bytes_up, bytes_down, packets_up, packets_down, start_time, end_time
		FROM sessions ORDER BY start_time DESC LIMIT ? OFFSET ?
	`

	rows, err := r.db.DB().Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return records, nil
}

// Count returns the number of stored session records.
func (r *SessionRepository) Count() (int, error) {
	var count int
	if err := r.db.DB().QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count session records: %w", err)
	}
	return count, nil
}

// Delete removes one session record by ID.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.DB().Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Cleanup removes the oldest records past the configured limit.
func (r *SessionRepository) Cleanup() error {
	count, err := r.Count()
	if err != nil {
		return err
	}
	if count <= r.maxRecords {
		return nil
	}

	query := `
		DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions ORDER BY start_time ASC LIMIT ?
		)
	`
	if _, err := r.db.DB().Exec(query, count-r.maxRecords); err != nil {
		return fmt.Errorf("failed to trim session history: %w", err)
	}
	return nil
}

// ClearHistory removes all stored session records.
func (r *SessionRepository) ClearHistory() error {
	if _, err := r.db.DB().Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear session history: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (session.Record, error) {
	var rec session.Record
	var endTime sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.ClientAddr,
		&rec.UpstreamPort,
		&rec.BytesUp,
		&rec.BytesDown,
		&rec.PacketsUp,
		&rec.PacketsDown,
		&rec.StartTime,
		&endTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan session record: %w", err)
	}

	if endTime.Valid {
		rec.EndTime = endTime.Time
	}
	return rec, nil
}
