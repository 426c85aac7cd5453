package schedule

import (
	"fmt"
	"time"
)

// CurrentSemester names the semester containing t. Fall runs August through
// December, Spring the rest of the year.
func CurrentSemester(t time.Time) string {
	if t.Month() >= time.August {
		return fmt.Sprintf("Fall %d", t.Year())
	}
	return fmt.Sprintf("Spring %d", t.Year())
}
