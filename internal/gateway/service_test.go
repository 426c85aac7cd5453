package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/campus"
	"classtrack/internal/queue"
	"classtrack/internal/schedule"
)

func upstreamSchedule() schedule.ScheduleResponse {
	return schedule.ScheduleResponse{
		StudentGroup: schedule.StudentGroup{ID: "g1", Department: "Computer Science"},
		Entries: []schedule.Schedule{{
			ID: "sch1",
			Activity: schedule.Activity{
				Course:       schedule.Course{ID: "c1", Name: "Data Structures"},
				Lecture:      schedule.Lecture{ID: "t1", Name: "Dr. Robert Smith"},
				StudentGroup: schedule.StudentGroup{ID: "g1"},
			},
			ReservedTimeslots: []schedule.Timeslot{
				{Day: "Monday", StartTime: "09:00", EndTime: "10:30", Duration: 90},
				{Day: "Wednesday", StartTime: "14:00", EndTime: "15:00", Duration: 60},
			},
			Room: schedule.Room{ID: "r1", Name: "CS-101", Department: "Computer Science"},
		}},
	}
}

func demoService(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/schedule/group/g1":
			json.NewEncoder(w).Encode(upstreamSchedule())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return NewService(campus.New(srv.URL, time.Second), nil, nil, nil, true), srv
}

func TestMarkDemoReconcilesLocally(t *testing.T) {
	svc, _ := demoService(t)
	ctx := context.Background()

	in := MarkInput{
		RepresentativeID: "rep1",
		GroupID:          "g1",
		Semester:         "Fall 2026",
		SessionID:        "sch1-Monday",
		Date:             "2026-08-31",
		Status:           attendance.StatusLate,
		Notes:            "traffic",
		Arrival:          "09:15",
	}

	records, err := svc.Mark(ctx, in)
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].ArrivalTime != "09:15" || records[0].Status != attendance.StatusLate {
		t.Errorf("record = %+v", records[0])
	}

	// Resubmission replaces rather than appends.
	in.Status = attendance.StatusPresent
	records, err = svc.Mark(ctx, in)
	if err != nil {
		t.Fatalf("Mark again: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("resubmission appended: %d records", len(records))
	}
	if records[0].Status != attendance.StatusPresent || records[0].ArrivalTime != "09:00" {
		t.Errorf("record after resubmission = %+v", records[0])
	}
}

func TestMarkUnknownSessionIsError(t *testing.T) {
	svc, _ := demoService(t)

	_, err := svc.Mark(context.Background(), MarkInput{
		RepresentativeID: "rep1",
		GroupID:          "g1",
		Semester:         "Fall 2026",
		SessionID:        "nope-Friday",
		Date:             "2026-08-31",
		Status:           attendance.StatusPresent,
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestMarkRejectsUndecidedStatus(t *testing.T) {
	svc, _ := demoService(t)

	for _, status := range []attendance.Status{attendance.StatusPending, "bogus"} {
		_, err := svc.Mark(context.Background(), MarkInput{
			RepresentativeID: "rep1",
			GroupID:          "g1",
			Semester:         "Fall 2026",
			SessionID:        "sch1-Monday",
			Date:             "2026-08-31",
			Status:           status,
		})
		if err == nil {
			t.Errorf("status %q accepted", status)
		}
	}
}

func TestDayScheduleMergesStatuses(t *testing.T) {
	svc, _ := demoService(t)
	ctx := context.Background()
	monday := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	views, err := svc.DaySchedule(ctx, "rep1", "g1", "Fall 2026", monday)
	if err != nil {
		t.Fatalf("DaySchedule: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1 monday session", len(views))
	}
	if views[0].Status != attendance.StatusPending || views[0].Record != nil {
		t.Errorf("unmarked session = %+v, want explicit pending", views[0])
	}

	if _, err := svc.Mark(ctx, MarkInput{
		RepresentativeID: "rep1",
		GroupID:          "g1",
		Semester:         "Fall 2026",
		SessionID:        "sch1-Monday",
		Date:             "2026-08-31",
		Status:           attendance.StatusAbsent,
	}); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	views, err = svc.DaySchedule(ctx, "rep1", "g1", "Fall 2026", monday)
	if err != nil {
		t.Fatalf("DaySchedule: %v", err)
	}
	if views[0].Status != attendance.StatusAbsent || views[0].Record == nil {
		t.Errorf("marked session = %+v", views[0])
	}

	// The same session a week later is independent and pending again.
	nextMonday := monday.AddDate(0, 0, 7)
	views, err = svc.DaySchedule(ctx, "rep1", "g1", "Fall 2026", nextMonday)
	if err != nil {
		t.Fatalf("DaySchedule: %v", err)
	}
	if views[0].Status != attendance.StatusPending {
		t.Errorf("next week status = %s, want pending", views[0].Status)
	}
}

func TestMarkNetworkedCreatesUpstream(t *testing.T) {
	var gotReq attendance.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/schedule/group/g1":
			json.NewEncoder(w).Encode(upstreamSchedule())
		case r.URL.Path == "/representatives/attendance" && r.Method == http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			json.NewEncoder(w).Encode(attendance.Attendance{
				ID:       "a1",
				Schedule: gotReq.Schedule,
				Date:     gotReq.Date,
				Status:   gotReq.Status,
			})
		case r.URL.Path == "/representatives/attendance":
			json.NewEncoder(w).Encode([]attendance.Attendance{{
				ID: "a1", Schedule: "sch1", Date: "2026-08-31", Status: attendance.StatusPresent,
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewService(campus.New(srv.URL, time.Second), nil, nil, nil, false)
	records, err := svc.Mark(context.Background(), MarkInput{
		RepresentativeID: "rep1",
		GroupID:          "g1",
		Semester:         "Fall 2026",
		SessionID:        "sch1-Monday",
		Date:             "2026-08-31",
		Status:           attendance.StatusPresent,
	})
	if err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if gotReq.Schedule != "sch1" {
		t.Errorf("upstream schedule id = %q, want raw sch1", gotReq.Schedule)
	}
	if gotReq.ArrivalTime != "09:00" || gotReq.DepartureTime != "10:30" {
		t.Errorf("upstream times = %s/%s", gotReq.ArrivalTime, gotReq.DepartureTime)
	}
	if gotReq.Teacher != "t1" || gotReq.Course != "c1" || gotReq.MarkedBy != "rep1" {
		t.Errorf("upstream context = %+v", gotReq)
	}
	if len(records) != 1 || records[0].ID != "a1" {
		t.Errorf("refreshed records = %+v", records)
	}
}

func TestRequestReschedulePublishesToQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/schedule/group/g1" {
			json.NewEncoder(w).Encode(upstreamSchedule())
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	q := queue.NewInMemory(1)
	svc := NewService(campus.New(srv.URL, time.Second), nil, nil, q, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.RequestReschedule(ctx, "g1", "Fall 2026", "sch1-Monday"); err != nil {
		t.Fatalf("RequestReschedule: %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case msg := <-msgs:
		if msg.Type != queue.TypeReschedule {
			t.Errorf("message type = %q, want %q", msg.Type, queue.TypeReschedule)
		}
		var session schedule.ClassSchedule
		if err := json.Unmarshal(msg.Body, &session); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		if session.ID != "sch1-Monday" || session.Course.Name != "Data Structures" {
			t.Errorf("queued session = %+v", session)
		}
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}

	if err := svc.RequestReschedule(ctx, "g1", "Fall 2026", "nope-Friday"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown session err = %v, want ErrSessionNotFound", err)
	}
}

func TestRequestRescheduleWithoutQueueGoesUpstream(t *testing.T) {
	var got struct {
		Reschedule schedule.ClassSchedule `json:"reschedule"`
	}
	asked := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/schedule/group/g1":
			json.NewEncoder(w).Encode(upstreamSchedule())
		case "/representatives/askReschedule":
			asked = true
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewService(campus.New(srv.URL, time.Second), nil, nil, nil, true)
	if err := svc.RequestReschedule(context.Background(), "g1", "Fall 2026", "sch1-Monday"); err != nil {
		t.Fatalf("RequestReschedule: %v", err)
	}
	if !asked {
		t.Fatal("upstream askReschedule never called")
	}
	if got.Reschedule.ID != "sch1" {
		t.Errorf("upstream session id = %q, want raw sch1", got.Reschedule.ID)
	}
}

func TestEmptyScheduleGroupHasNoSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r) // no schedule published yet
	}))
	defer srv.Close()

	svc := NewService(campus.New(srv.URL, time.Second), nil, nil, nil, true)
	sessions, err := svc.Sessions(context.Background(), "g1", "Fall 2026")
	if err != nil {
		t.Fatalf("Sessions must treat 404 as empty: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions))
	}
}
