package campus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/schedule"
)

// User is the representative account returned by token verification.
type User struct {
	ID           string                `json:"_id"`
	Name         string                `json:"name"`
	StudentGroup schedule.StudentGroup `json:"studentGroup"`
}

// Client calls the campus timetable backend. Failures are returned as-is; the
// handlers surface them without retry or backoff.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// VerifyToken exchanges a sign-in token for the representative it belongs to.
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, fmt.Errorf("token required")
	}
	var out struct {
		User User `json:"user"`
	}
	if err := c.post(ctx, "/auth/verify", map[string]string{"token": token}, &out); err != nil {
		return nil, err
	}
	if out.User.ID == "" {
		return nil, fmt.Errorf("verify returned no user")
	}
	return &out.User, nil
}

// ListAttendance returns the attendance records marked by a representative.
func (c *Client) ListAttendance(ctx context.Context, representativeID string) ([]attendance.Attendance, error) {
	path := "/representatives/attendance?representativeId=" + url.QueryEscape(representativeID)
	var out []attendance.Attendance
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAttendance submits a new attendance record. Every submission is a new
// server-side creation; the backend does not overwrite by key.
func (c *Client) CreateAttendance(ctx context.Context, req attendance.Request) (*attendance.Attendance, error) {
	var out attendance.Attendance
	if err := c.post(ctx, "/representatives/attendance", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GroupSchedule fetches the raw recurring schedule for a student group. A 404
// means the group has no schedule yet and is mapped to an empty-entries
// response rather than an error.
func (c *Client) GroupSchedule(ctx context.Context, groupID, semester string, own bool) (*schedule.ScheduleResponse, error) {
	path := "/schedule/group/" + url.PathEscape(groupID) +
		"?semester=" + url.QueryEscape(semester) +
		"&own=" + strconv.FormatBool(own)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("campus request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &schedule.ScheduleResponse{
			StudentGroup: schedule.StudentGroup{ID: groupID, Department: "Unknown", Section: "N/A"},
		}, nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("campus error %s: %s", resp.Status, string(body))
	}

	var out schedule.ScheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode schedule response: %w", err)
	}
	return &out, nil
}

// ListStudentGroups returns all active student groups.
func (c *Client) ListStudentGroups(ctx context.Context) ([]schedule.StudentGroup, error) {
	var out []schedule.StudentGroup
	if err := c.get(ctx, "/student-groups?isDeleted=false", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AskReschedule requests rescheduling of a session. The backend expects the
// session with its id rewritten back to the raw schedule id.
func (c *Client) AskReschedule(ctx context.Context, session schedule.ClassSchedule) error {
	session.ID = schedule.RawID(session.ID)
	return c.post(ctx, "/representatives/askReschedule", map[string]any{"reschedule": session}, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("campus request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("campus error %s: %s", resp.Status, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
