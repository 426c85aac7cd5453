package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/campus"
	"classtrack/internal/queue"
	"classtrack/internal/schedule"
)

// ErrSessionNotFound is returned when a submitted session id does not resolve
// against the group's expanded schedule.
var ErrSessionNotFound = errors.New("session not found in schedule")

// Service coordinates the campus API, the schedule cache, the reconciler and
// the reschedule queue. It owns the attendance collection handed to callers;
// collections are replaced by value, never shared mutably.
type Service struct {
	campus *campus.Client
	cache  *schedule.Cache
	repo   *Repository
	q      queue.Queue
	demo   bool
	now    func() time.Time

	// demo-mode attendance boards, one per representative
	mu     sync.Mutex
	boards map[string][]attendance.Attendance
}

// NewService creates a gateway service. cache, repo and q may be nil; demo
// switches attendance marking from upstream creation to local reconciliation.
func NewService(campusClient *campus.Client, cache *schedule.Cache, repo *Repository, q queue.Queue, demo bool) *Service {
	return &Service{
		campus: campusClient,
		cache:  cache,
		repo:   repo,
		q:      q,
		demo:   demo,
		now:    time.Now,
		boards: make(map[string][]attendance.Attendance),
	}
}

// Sessions returns every expanded session for the group in the semester.
func (s *Service) Sessions(ctx context.Context, groupID, semester string) ([]schedule.ClassSchedule, error) {
	resp, err := s.groupSchedule(ctx, groupID, semester)
	if err != nil {
		return nil, err
	}
	return schedule.ExpandAll(resp.Entries), nil
}

func (s *Service) groupSchedule(ctx context.Context, groupID, semester string) (*schedule.ScheduleResponse, error) {
	if resp, ok := s.cache.Get(ctx, groupID, semester); ok {
		return resp, nil
	}
	resp, err := s.campus.GroupSchedule(ctx, groupID, semester, true)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, groupID, semester, resp); err != nil {
		log.Printf("schedule cache write failed: %v", err)
	}
	return resp, nil
}

// SessionView pairs a session with its attendance decision for one date.
// Sessions with no record carry an explicit pending status.
type SessionView struct {
	Session schedule.ClassSchedule `json:"session"`
	Status  attendance.Status      `json:"status"`
	Record  *attendance.Attendance `json:"record,omitempty"`
}

// DaySchedule returns the date's sessions, earliest first, each merged with
// the representative's attendance decision for that date.
func (s *Service) DaySchedule(ctx context.Context, repID, groupID, semester string, date time.Time) ([]SessionView, error) {
	sessions, err := s.Sessions(ctx, groupID, semester)
	if err != nil {
		return nil, err
	}
	day := schedule.ForDay(sessions, date.Weekday().String())

	records, err := s.Records(ctx, repID)
	if err != nil {
		return nil, err
	}

	dateStr := date.Format("2006-01-02")
	views := make([]SessionView, 0, len(day))
	for _, sess := range day {
		view := SessionView{Session: sess, Status: attendance.StatusPending}
		for i := range records {
			if attendance.Matches(records[i], sess.ID, dateStr) {
				view.Status = records[i].Status
				view.Record = &records[i]
				break
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Records returns the representative's attendance collection: the upstream
// list, or the locally reconciled board in demo mode.
func (s *Service) Records(ctx context.Context, repID string) ([]attendance.Attendance, error) {
	if s.demo {
		s.mu.Lock()
		defer s.mu.Unlock()
		board := s.boards[repID]
		out := make([]attendance.Attendance, len(board))
		copy(out, board)
		return out, nil
	}
	return s.campus.ListAttendance(ctx, repID)
}

// MarkInput is one attendance submission.
type MarkInput struct {
	RepresentativeID string
	GroupID          string
	Semester         string
	SessionID        string
	Date             string // YYYY-MM-DD
	Status           attendance.Status
	Notes            string
	Arrival          string
}

// Mark records an attendance decision and returns the refreshed collection.
// An unresolvable session id is an explicit error, not a silent skip. In demo
// mode the decision is reconciled into the local board; otherwise it is
// created upstream and the collection re-fetched.
func (s *Service) Mark(ctx context.Context, in MarkInput) ([]attendance.Attendance, error) {
	if !in.Status.Decided() {
		return nil, fmt.Errorf("status %q is not a markable status", in.Status)
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", in.Date)
	}

	sessions, err := s.Sessions(ctx, in.GroupID, in.Semester)
	if err != nil {
		return nil, err
	}
	var session *schedule.ClassSchedule
	for i := range sessions {
		if sessions[i].ID == in.SessionID {
			session = &sessions[i]
			break
		}
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, in.SessionID)
	}

	m := attendance.Mark{
		SessionID: in.SessionID,
		Session:   *session,
		Date:      in.Date,
		Status:    in.Status,
		Notes:     in.Notes,
		MarkedBy:  attendance.Marker{ID: in.RepresentativeID},
		Arrival:   in.Arrival,
	}

	if s.demo {
		s.mu.Lock()
		board := attendance.Reconcile(s.boards[in.RepresentativeID], m, s.now().UTC())
		s.boards[in.RepresentativeID] = board
		out := make([]attendance.Attendance, len(board))
		copy(out, board)
		s.mu.Unlock()
		s.audit(ctx, in)
		return out, nil
	}

	created, err := s.campus.CreateAttendance(ctx, m.Request())
	if err != nil {
		return nil, err
	}
	s.audit(ctx, in)

	records, err := s.campus.ListAttendance(ctx, in.RepresentativeID)
	if err != nil {
		// The submission went through; surface at least the created record.
		log.Printf("attendance refresh failed: %v", err)
		return []attendance.Attendance{*created}, nil
	}
	return records, nil
}

func (s *Service) audit(ctx context.Context, in MarkInput) {
	if s.repo == nil {
		return
	}
	err := s.repo.InsertSubmission(ctx, Submission{
		RepresentativeID: in.RepresentativeID,
		SessionID:        in.SessionID,
		Date:             in.Date,
		Status:           in.Status,
		Notes:            in.Notes,
	})
	if err != nil {
		log.Printf("submission audit insert failed: %v", err)
	}
}

// Statistics aggregates the representative's records over the range.
func (s *Service) Statistics(ctx context.Context, repID string, r attendance.Range) (attendance.Summary, error) {
	records, err := s.Records(ctx, repID)
	if err != nil {
		return attendance.Summary{}, err
	}
	return attendance.Summarize(records, r, s.now()), nil
}

// StudentGroups lists the active student groups.
func (s *Service) StudentGroups(ctx context.Context) ([]schedule.StudentGroup, error) {
	return s.campus.ListStudentGroups(ctx)
}

// RequestReschedule asks the campus backend to reschedule a session. When a
// queue is configured the request is published for the worker to forward;
// otherwise it goes upstream directly.
func (s *Service) RequestReschedule(ctx context.Context, groupID, semester, sessionID string) error {
	sessions, err := s.Sessions(ctx, groupID, semester)
	if err != nil {
		return err
	}
	var session *schedule.ClassSchedule
	for i := range sessions {
		if sessions[i].ID == sessionID {
			session = &sessions[i]
			break
		}
	}
	if session == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if s.q == nil {
		return s.campus.AskReschedule(ctx, *session)
	}
	body, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.q.Publish(ctx, queue.Message{Type: queue.TypeReschedule, Body: body})
}
