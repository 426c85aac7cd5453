package attendance

import (
	"time"

	"github.com/google/uuid"

	"classtrack/internal/schedule"
)

// Mark describes one attendance decision for a session on a date. Session
// must be the resolved ClassSchedule for SessionID; callers that cannot
// resolve it must not reconcile.
type Mark struct {
	SessionID string
	Session   schedule.ClassSchedule
	Date      string // YYYY-MM-DD
	Status    Status
	Notes     string
	MarkedBy  Marker
	Arrival   string // honored only when Status is late
}

// Times resolves the arrival and departure for the mark. A late status uses
// the supplied arrival, falling back to the session's nominal start; every
// other status uses the nominal start and end. The rule is the same on insert
// and update.
func (m Mark) Times() (arrival, departure string) {
	arrival = m.Session.StartTime
	if m.Status == StatusLate && m.Arrival != "" {
		arrival = m.Arrival
	}
	return arrival, m.Session.EndTime
}

// Request builds the campus creation payload for the mark, splitting the
// derived session id back to the raw schedule id the backend expects.
func (m Mark) Request() Request {
	arrival, departure := m.Times()
	return Request{
		Schedule:      schedule.RawID(m.SessionID),
		Date:          m.Date,
		Status:        m.Status,
		Notes:         m.Notes,
		ArrivalTime:   arrival,
		DepartureTime: departure,
		Teacher:       m.Session.Teacher.ID,
		Course:        m.Session.Course.ID,
		MarkedBy:      m.MarkedBy.ID,
	}
}

// Reconcile merges the mark into the record collection by (session id, date)
// key and returns the resulting collection. A missing key appends exactly one
// synthesized record; an existing key replaces that record in place, keeping
// length and relative order. The input slice is never mutated.
func Reconcile(records []Attendance, m Mark, now time.Time) []Attendance {
	arrival, departure := m.Times()

	for i, rec := range records {
		if rec.Schedule != m.SessionID || rec.Date != m.Date {
			continue
		}
		out := make([]Attendance, len(records))
		copy(out, records)
		rec.Status = m.Status
		rec.Notes = m.Notes
		rec.ArrivalTime = arrival
		rec.DepartureTime = departure
		rec.MarkedAt = now
		out[i] = rec
		return out
	}

	out := make([]Attendance, len(records), len(records)+1)
	copy(out, records)
	return append(out, Attendance{
		ID:            uuid.NewString(),
		Schedule:      m.SessionID,
		Teacher:       m.Session.Teacher,
		Course:        m.Session.Course,
		Date:          m.Date,
		Status:        m.Status,
		MarkedBy:      m.MarkedBy,
		MarkedAt:      now,
		Notes:         m.Notes,
		ArrivalTime:   arrival,
		DepartureTime: departure,
	})
}

// Matches reports whether the record belongs to the session on the given
// date. Records fetched from the campus API carry the raw schedule id, while
// locally reconciled ones carry the derived session id; both forms match.
func Matches(rec Attendance, sessionID, date string) bool {
	if rec.Date != date {
		return false
	}
	return rec.Schedule == sessionID || rec.Schedule == schedule.RawID(sessionID)
}
