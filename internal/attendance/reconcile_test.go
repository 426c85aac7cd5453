package attendance

import (
	"testing"
	"time"

	"classtrack/internal/schedule"
)

var testSession = schedule.ClassSchedule{
	ID:        "sch1-Monday",
	Course:    schedule.Course{ID: "c1", Name: "Data Structures"},
	Teacher:   schedule.Teacher{ID: "t1", Name: "Dr. Robert Smith"},
	Room:      "CS-101",
	Day:       "Monday",
	StartTime: "09:00",
	EndTime:   "10:30",
}

func markFor(status Status, arrival string) Mark {
	return Mark{
		SessionID: testSession.ID,
		Session:   testSession,
		Date:      "2026-08-31",
		Status:    status,
		Notes:     "quiz day",
		MarkedBy:  Marker{ID: "rep1"},
		Arrival:   arrival,
	}
}

func TestReconcileInsertsWhenAbsent(t *testing.T) {
	existing := []Attendance{
		{ID: "a1", Schedule: "other-Monday", Date: "2026-08-31", Status: StatusPresent},
	}
	now := time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC)

	got := Reconcile(existing, markFor(StatusPresent, ""), now)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != existing[0] {
		t.Errorf("existing record changed: %+v", got[0])
	}
	rec := got[1]
	if rec.ID == "" {
		t.Error("new record has no id")
	}
	if rec.Schedule != testSession.ID || rec.Date != "2026-08-31" {
		t.Errorf("key = (%s, %s)", rec.Schedule, rec.Date)
	}
	if rec.Teacher.ID != "t1" || rec.Course.ID != "c1" {
		t.Errorf("context not copied from session: %+v", rec)
	}
	if !rec.MarkedAt.Equal(now) {
		t.Errorf("markedAt = %v, want %v", rec.MarkedAt, now)
	}
	if rec.ArrivalTime != "09:00" || rec.DepartureTime != "10:30" {
		t.Errorf("times = %s/%s, want nominal 09:00/10:30", rec.ArrivalTime, rec.DepartureTime)
	}
}

func TestReconcileReplacesExisting(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC)
	existing := []Attendance{
		{ID: "a1", Schedule: "other-Monday", Date: "2026-08-31", Status: StatusPresent},
		{ID: "a2", Schedule: testSession.ID, Date: "2026-08-31", Status: StatusPresent, MarkedBy: Marker{ID: "rep1"}},
		{ID: "a3", Schedule: testSession.ID, Date: "2026-09-07", Status: StatusAbsent},
	}

	got := Reconcile(existing, markFor(StatusAbsent, ""), now)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != existing[0] || got[2] != existing[2] {
		t.Error("unrelated records changed")
	}
	if got[1].ID != "a2" {
		t.Errorf("replaced record kept id %q, want a2", got[1].ID)
	}
	if got[1].Status != StatusAbsent || got[1].Notes != "quiz day" {
		t.Errorf("record not updated: %+v", got[1])
	}
	// Same session on a different date stays independent.
	if got[2].Status != StatusAbsent || got[2].Date != "2026-09-07" {
		t.Errorf("different-date record touched: %+v", got[2])
	}
	// Input collection untouched.
	if existing[1].Status != StatusPresent {
		t.Error("input slice mutated")
	}
}

func TestReconcileLateArrivalRule(t *testing.T) {
	now := time.Now().UTC()

	late := Reconcile(nil, markFor(StatusLate, "09:15"), now)
	if late[0].ArrivalTime != "09:15" {
		t.Errorf("late arrival = %q, want 09:15", late[0].ArrivalTime)
	}
	if late[0].DepartureTime != "10:30" {
		t.Errorf("late departure = %q, want 10:30", late[0].DepartureTime)
	}

	// Late with no supplied arrival falls back to the nominal start.
	fallback := Reconcile(nil, markFor(StatusLate, ""), now)
	if fallback[0].ArrivalTime != "09:00" {
		t.Errorf("late fallback arrival = %q, want 09:00", fallback[0].ArrivalTime)
	}

	// Present ignores any arrival value passed.
	present := Reconcile(nil, markFor(StatusPresent, "09:15"), now)
	if present[0].ArrivalTime != "09:00" {
		t.Errorf("present arrival = %q, want nominal 09:00", present[0].ArrivalTime)
	}
}

func TestReconcileIdempotentResubmission(t *testing.T) {
	first := time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC)
	second := first.Add(10 * time.Minute)

	once := Reconcile(nil, markFor(StatusPresent, ""), first)
	twice := Reconcile(once, markFor(StatusPresent, ""), second)

	if len(twice) != len(once) {
		t.Fatalf("resubmission changed length: %d -> %d", len(once), len(twice))
	}
	if twice[0].ID != once[0].ID {
		t.Error("resubmission changed record identity")
	}
	if !twice[0].MarkedAt.Equal(second) {
		t.Errorf("markedAt = %v, want %v", twice[0].MarkedAt, second)
	}
	if twice[0].Status != once[0].Status || twice[0].Notes != once[0].Notes {
		t.Error("resubmission changed more than markedAt")
	}
}

func TestMarkRequestSplitsSessionID(t *testing.T) {
	req := markFor(StatusLate, "09:15").Request()
	if req.Schedule != "sch1" {
		t.Errorf("request schedule = %q, want raw id sch1", req.Schedule)
	}
	if req.Teacher != "t1" || req.Course != "c1" || req.MarkedBy != "rep1" {
		t.Errorf("request context = %+v", req)
	}
	if req.ArrivalTime != "09:15" || req.DepartureTime != "10:30" {
		t.Errorf("request times = %s/%s", req.ArrivalTime, req.DepartureTime)
	}
}

func TestMatchesRawAndDerivedIDs(t *testing.T) {
	derived := Attendance{Schedule: "sch1-Monday", Date: "2026-08-31"}
	raw := Attendance{Schedule: "sch1", Date: "2026-08-31"}
	if !Matches(derived, "sch1-Monday", "2026-08-31") {
		t.Error("derived id did not match")
	}
	if !Matches(raw, "sch1-Monday", "2026-08-31") {
		t.Error("raw id did not match")
	}
	if Matches(raw, "sch1-Monday", "2026-09-01") {
		t.Error("matched across dates")
	}
}
