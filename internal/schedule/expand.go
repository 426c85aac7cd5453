package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Expand converts one raw schedule entry into day-specific sessions, one per
// distinct day found in the reserved timeslots. Each session's window runs
// from the earliest start to the last end of that day's slots; gaps between
// slots are spanned, not split. An empty timeslot set yields no sessions.
//
// Day names are not validated here. A slot with an unrecognized day still
// produces a session for that day; downstream weekday matching simply never
// selects it.
func Expand(s Schedule) []ClassSchedule {
	if len(s.ReservedTimeslots) == 0 {
		return nil
	}

	slots := make([]Timeslot, len(s.ReservedTimeslots))
	copy(slots, s.ReservedTimeslots)
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		return startMinutes(slots[i].StartTime) < startMinutes(slots[j].StartTime)
	})

	teacher := Teacher{
		ID:         s.Activity.Lecture.ID,
		Name:       s.Activity.Lecture.Name,
		Department: s.Room.Department,
		Subject:    s.Activity.Course.Name,
	}

	var out []ClassSchedule
	for i := 0; i < len(slots); {
		j := i
		for j < len(slots) && slots[j].Day == slots[i].Day {
			j++
		}
		first, last := slots[i], slots[j-1]
		out = append(out, ClassSchedule{
			ID:         fmt.Sprintf("%s-%s", s.ID, first.Day),
			Course:     s.Activity.Course,
			Teacher:    teacher,
			Room:       s.Room.Name,
			Day:        first.Day,
			StartTime:  first.StartTime,
			EndTime:    last.EndTime,
			ClassGroup: s.Activity.StudentGroup,
			CreatedBy:  s.CreatedBy,
		})
		i = j
	}
	return out
}

// ExpandAll flattens every raw entry of a group schedule into sessions.
func ExpandAll(entries []Schedule) []ClassSchedule {
	var out []ClassSchedule
	for _, entry := range entries {
		out = append(out, Expand(entry)...)
	}
	return out
}

// ForDay returns the sessions held on the named weekday, earliest first.
func ForDay(sessions []ClassSchedule, day string) []ClassSchedule {
	var out []ClassSchedule
	for _, s := range sessions {
		if s.Day == day {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return startMinutes(out[i].StartTime) < startMinutes(out[j].StartTime)
	})
	return out
}

// RawID recovers the originating schedule id from a derived session id of the
// form "{scheduleID}-{day}". The campus API expects the raw id on attendance
// and reschedule submissions.
func RawID(sessionID string) string {
	id, _, _ := strings.Cut(sessionID, "-")
	return id
}

// startMinutes converts "HH:MM" to minutes since midnight so that hours past
// 9 order numerically rather than lexically. Malformed values sort first.
func startMinutes(t string) int {
	hh, mm, ok := strings.Cut(t, ":")
	if !ok {
		return 0
	}
	h, herr := strconv.Atoi(hh)
	m, merr := strconv.Atoi(mm)
	if herr != nil || merr != nil {
		return 0
	}
	return h*60 + m
}
