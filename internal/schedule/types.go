package schedule

// Types mirror the campus timetable API's JSON documents. The backend owns
// these shapes; the gateway treats them as read-only input.

// Timeslot is one weekly recurring time reservation belonging to a Schedule.
type Timeslot struct {
	ID        string `json:"_id"`
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Duration  int    `json:"duration"`
}

// Course identifies a taught course.
type Course struct {
	ID         string `json:"_id"`
	CourseCode string `json:"courseCode"`
	Name       string `json:"name"`
}

// Lecture identifies the lecturer assigned to an activity.
type Lecture struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	MaxLoad int    `json:"maxLoad"`
}

// CreatedBy records which backend user created a document.
type CreatedBy struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// StudentGroup is one class group of students.
type StudentGroup struct {
	ID                 string `json:"_id"`
	Department         string `json:"department"`
	Year               int    `json:"year"`
	Section            string `json:"section"`
	ExpectedEnrollment int    `json:"expectedEnrollment"`
	IsDeleted          bool   `json:"isDeleted,omitempty"`
}

// Room is a teaching room.
type Room struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	Type       string `json:"type"`
	Department string `json:"department"`
	Building   string `json:"building,omitempty"`
}

// Activity is one teaching assignment: a course taught by a lecturer to a
// student group within a semester.
type Activity struct {
	ID              string       `json:"_id"`
	Course          Course       `json:"course"`
	Lecture         Lecture      `json:"lecture"`
	StudentGroup    StudentGroup `json:"studentGroup"`
	Semester        string       `json:"semester"`
	RoomRequirement string       `json:"roomRequirement"`
	TotalDuration   int          `json:"totalDuration"`
	Split           int          `json:"split"`
	CreatedBy       CreatedBy    `json:"createdBy"`
	IsDeleted       bool         `json:"isDeleted"`
}

// Schedule is one raw recurring entry: an activity with its reserved weekly
// timeslots and the room it was placed in. An activity may recur multiple
// times per week, including twice on the same day for split sessions.
type Schedule struct {
	ID                string       `json:"_id"`
	Activity          Activity     `json:"activity"`
	ReservedTimeslots []Timeslot   `json:"reservedTimeslots"`
	TotalDuration     int          `json:"totalDuration"`
	Room              Room         `json:"room"`
	StudentGroup      StudentGroup `json:"studentGroup"`
	CreatedBy         CreatedBy    `json:"createdBy"`
	Semester          string       `json:"semester"`
	IsDeleted         bool         `json:"isDeleted"`
}

// Teacher is the denormalized lecturer view carried on expanded sessions.
type Teacher struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Subject    string `json:"subject"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// ClassSchedule is one expanded day-specific session derived from a Schedule.
// Its id is "{scheduleID}-{day}" and its window spans the earliest start to
// the latest end of that day's timeslots.
type ClassSchedule struct {
	ID         string       `json:"_id"`
	Course     Course       `json:"course"`
	Teacher    Teacher      `json:"teacher"`
	Room       string       `json:"room"`
	Day        string       `json:"day"`
	StartTime  string       `json:"startTime"`
	EndTime    string       `json:"endTime"`
	ClassGroup StudentGroup `json:"classGroup"`
	CreatedBy  CreatedBy    `json:"createdBy"`
}

// ScheduleResponse is the campus API's group schedule payload.
type ScheduleResponse struct {
	StudentGroup StudentGroup `json:"studentGroup"`
	Entries      []Schedule   `json:"entries"`
}
