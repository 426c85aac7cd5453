package gateway

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/attendance"
)

// Repository persists gateway-side state in Postgres: refresh tokens and the
// submission audit trail. Attendance and schedule data stay upstream; nothing
// here is an offline copy of either.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, representativeID, token string, expiresAt time.Time) error {
	if representativeID == "" {
		return errors.New("representative id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (representative_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, representativeID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

// Submission is one audited attendance submission.
type Submission struct {
	ID               string            `json:"id"`
	RepresentativeID string            `json:"representative_id"`
	SessionID        string            `json:"session_id"`
	Date             string            `json:"date"`
	Status           attendance.Status `json:"status"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// InsertSubmission appends one row to the audit trail.
func (r *Repository) InsertSubmission(ctx context.Context, sub Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (id, representative_id, session_id, class_date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sub.ID, sub.RepresentativeID, sub.SessionID, sub.Date, string(sub.Status), sub.Notes)
	return err
}

// ListSubmissions returns a representative's recent submissions, newest first.
func (r *Repository) ListSubmissions(ctx context.Context, representativeID string, limit, offset int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, representative_id, session_id, class_date, status, notes, created_at
		FROM submissions
		WHERE representative_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, representativeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Submission
	for rows.Next() {
		var sub Submission
		var status string
		var classDate time.Time
		if err := rows.Scan(&sub.ID, &sub.RepresentativeID, &sub.SessionID, &classDate, &status, &sub.Notes, &sub.CreatedAt); err != nil {
			return nil, err
		}
		// DATE column comes back as a midnight timestamp; keep the wire format.
		sub.Date = classDate.Format("2006-01-02")
		sub.Status = attendance.Status(status)
		res = append(res, sub)
	}
	return res, rows.Err()
}
