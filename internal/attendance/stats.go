package attendance

import (
	"math"
	"sort"
	"time"

	"classtrack/internal/schedule"
)

// Range selects a statistics reporting window. Weeks start on Monday.
type Range string

const (
	RangeWeek      Range = "week"
	RangeMonth     Range = "month"
	RangeLastWeek  Range = "last_week"
	RangeLastMonth Range = "last_month"
)

// Valid reports whether r is a known range.
func (r Range) Valid() bool {
	switch r {
	case RangeWeek, RangeMonth, RangeLastWeek, RangeLastMonth:
		return true
	}
	return false
}

// Window returns the inclusive date bounds of the range relative to today.
func (r Range) Window(today time.Time) (start, end time.Time) {
	today = dateOnly(today)
	switch r {
	case RangeMonth:
		return startOfMonth(today), endOfMonth(today)
	case RangeLastWeek:
		lastWeek := today.AddDate(0, 0, -7)
		return startOfWeek(lastWeek), startOfWeek(lastWeek).AddDate(0, 0, 6)
	case RangeLastMonth:
		lastMonth := startOfMonth(today).AddDate(0, -1, 0)
		return lastMonth, endOfMonth(lastMonth)
	default:
		return startOfWeek(today), startOfWeek(today).AddDate(0, 0, 6)
	}
}

// Breakdown counts decided records per status with rounded percentages.
type Breakdown struct {
	Total             int `json:"total"`
	Present           int `json:"present"`
	Late              int `json:"late"`
	Absent            int `json:"absent"`
	Substitute        int `json:"substitute"`
	PresentPercent    int `json:"presentPercent"`
	LatePercent       int `json:"latePercent"`
	AbsentPercent     int `json:"absentPercent"`
	SubstitutePercent int `json:"substitutePercent"`
}

// TeacherBreakdown is one teacher's slice of the window.
type TeacherBreakdown struct {
	Teacher schedule.Teacher `json:"teacher"`
	Breakdown
}

// SubjectIssue counts late and absent records for one subject.
type SubjectIssue struct {
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// Summary is the aggregate attendance view for one reporting window.
type Summary struct {
	Range     Range              `json:"range"`
	Start     string             `json:"start"`
	End       string             `json:"end"`
	Overall   Breakdown          `json:"overall"`
	Teachers  []TeacherBreakdown `json:"teachers"`
	TopIssues []SubjectIssue     `json:"topIssues"`
}

// Summarize aggregates the records falling inside the range's window:
// overall counts, a per-teacher breakdown in first-seen order, and the top
// three subjects by late+absent issue count.
func Summarize(records []Attendance, r Range, today time.Time) Summary {
	start, end := r.Window(today)

	var window []Attendance
	for _, rec := range records {
		d, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			continue
		}
		if !d.Before(start) && !d.After(end) {
			window = append(window, rec)
		}
	}

	sum := Summary{
		Range:   r,
		Start:   start.Format("2006-01-02"),
		End:     end.Format("2006-01-02"),
		Overall: breakdown(window),
	}

	var teacherOrder []string
	byTeacher := map[string][]Attendance{}
	for _, rec := range window {
		if rec.Teacher.ID == "" {
			continue
		}
		if _, ok := byTeacher[rec.Teacher.ID]; !ok {
			teacherOrder = append(teacherOrder, rec.Teacher.ID)
		}
		byTeacher[rec.Teacher.ID] = append(byTeacher[rec.Teacher.ID], rec)
	}
	for _, id := range teacherOrder {
		recs := byTeacher[id]
		sum.Teachers = append(sum.Teachers, TeacherBreakdown{
			Teacher:   recs[0].Teacher,
			Breakdown: breakdown(recs),
		})
	}

	var subjectOrder []string
	issues := map[string]int{}
	for _, rec := range window {
		if rec.Status != StatusLate && rec.Status != StatusAbsent {
			continue
		}
		name := rec.Course.Name
		if name == "" {
			continue
		}
		if _, ok := issues[name]; !ok {
			subjectOrder = append(subjectOrder, name)
		}
		issues[name]++
	}
	sort.SliceStable(subjectOrder, func(i, j int) bool {
		return issues[subjectOrder[i]] > issues[subjectOrder[j]]
	})
	for _, name := range subjectOrder {
		sum.TopIssues = append(sum.TopIssues, SubjectIssue{Subject: name, Count: issues[name]})
	}
	if len(sum.TopIssues) > 3 {
		sum.TopIssues = sum.TopIssues[:3]
	}

	return sum
}

func breakdown(records []Attendance) Breakdown {
	b := Breakdown{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			b.Present++
		case StatusLate:
			b.Late++
		case StatusAbsent:
			b.Absent++
		case StatusSubstitute:
			b.Substitute++
		}
	}
	b.PresentPercent = percent(b.Present, b.Total)
	b.LatePercent = percent(b.Late, b.Total)
	b.AbsentPercent = percent(b.Absent, b.Total)
	b.SubstitutePercent = percent(b.Substitute, b.Total)
	return b
}

func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfWeek(t time.Time) time.Time {
	t = dateOnly(t)
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return t.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, -1)
}
