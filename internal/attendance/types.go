package attendance

import (
	"time"

	"classtrack/internal/schedule"
)

// Status is one attendance decision state. Pending is explicit: a session with
// no recorded decision reports StatusPending instead of a missing record.
type Status string

const (
	StatusPresent    Status = "present"
	StatusLate       Status = "late"
	StatusAbsent     Status = "absent"
	StatusSubstitute Status = "substitute"
	StatusPending    Status = "pending"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusSubstitute, StatusPending:
		return true
	}
	return false
}

// Decided reports whether s is an explicit representative decision. Any
// decided status may be re-entered on resubmission; none is terminal.
func (s Status) Decided() bool {
	return s.Valid() && s != StatusPending
}

// Marker identifies the user who marked a record.
type Marker struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// Attendance is one decision for a specific session on a specific date.
// (Schedule, Date) is the matching key; the same session on different dates
// are independent records.
type Attendance struct {
	ID            string           `json:"_id"`
	Schedule      string           `json:"schedule"`
	Teacher       schedule.Teacher `json:"teacher"`
	Course        schedule.Course  `json:"course"`
	Date          string           `json:"date"`
	Status        Status           `json:"status"`
	MarkedBy      Marker           `json:"markedBy"`
	MarkedAt      time.Time        `json:"markedAt"`
	Notes         string           `json:"notes,omitempty"`
	ArrivalTime   string           `json:"arrivalTime,omitempty"`
	DepartureTime string           `json:"departureTime,omitempty"`
}

// Request is the campus API's attendance creation payload. Schedule carries
// the raw schedule id recovered by splitting the derived session id at its
// first dash.
type Request struct {
	Schedule      string `json:"schedule"`
	Date          string `json:"date"`
	Status        Status `json:"status"`
	Notes         string `json:"notes,omitempty"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	DepartureTime string `json:"departureTime,omitempty"`
	Teacher       string `json:"teacher"`
	Course        string `json:"course"`
	MarkedBy      string `json:"markedBy"`
}
