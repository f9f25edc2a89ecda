package issue

import (
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of an issue. The values are the Japanese
// labels stored verbatim in the backend.
type Status string

const (
	StatusOpen          Status = "未対応"
	StatusInProgress    Status = "対応中"
	StatusPendingReview Status = "確認待ち"
	StatusDone          Status = "完了"
	StatusOnHold        Status = "保留"
)

// statusRank orders statuses by workflow progression, not alphabetically.
var statusRank = map[Status]int{
	StatusOpen:          1,
	StatusInProgress:    2,
	StatusPendingReview: 3,
	StatusDone:          4,
	StatusOnHold:        5,
}

// Statuses lists all statuses in workflow order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusPendingReview, StatusDone, StatusOnHold}
}

// Rank returns the workflow position of the status, starting at 1.
// Unknown statuses sort after all known ones.
func (s Status) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return len(statusRank) + 1
}

// Valid reports whether the status is one of the enumerated values.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// ParseStatus validates a raw string at the input boundary.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q (expected one of %s)", raw, joinStatuses())
	}
	return s, nil
}

func joinStatuses() string {
	var names []string
	for _, s := range Statuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// Priority is the urgency of an issue, again stored as the Japanese label.
type Priority string

const (
	PriorityHigh   Priority = "高"
	PriorityMedium Priority = "中"
	PriorityLow    Priority = "低"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// Rank returns the priority position, high first.
func (p Priority) Rank() int {
	if rank, ok := priorityRank[p]; ok {
		return rank
	}
	return len(priorityRank) + 1
}

// Valid reports whether the priority is one of the enumerated values.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// ParsePriority validates a raw string at the input boundary.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.TrimSpace(raw))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q (expected 高, 中 or 低)", raw)
	}
	return p, nil
}

// MaxScreenshotBytes caps the encoded screenshot payload.
const MaxScreenshotBytes = 5 * 1024 * 1024

// Issue is a single trackable item of work as stored in the backend
// collection. ID, CreatedAt and UpdatedAt are assigned server-side.
type Issue struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category"`
	Assignee    string    `json:"assignee,omitempty"`
	PageURL     string    `json:"page_url,omitempty"`
	DueDate     *Date     `json:"due_date"`
	Screenshot  string    `json:"screenshot,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// IsOverdue reports whether the issue's due date lies strictly before
// the calendar day of now. An issue due today is not overdue, regardless
// of the timezone now carries. Issues without a due date are never
// overdue.
func (i Issue) IsOverdue(now time.Time) bool {
	if i.DueDate == nil {
		return false
	}
	return i.DueDate.Before(DateOf(now))
}

// Draft is the client-controlled portion of an issue, used for creation
// and for full-form updates. The zero DueDate serializes as null so the
// backend clears the column on resubmission.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	Category    string   `json:"category"`
	Assignee    string   `json:"assignee"`
	PageURL     string   `json:"page_url"`
	DueDate     *Date    `json:"due_date"`
	Screenshot  string   `json:"screenshot"`
}

// Validate checks the draft before it is allowed near the network.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("category must not be empty")
	}
	if !d.Status.Valid() {
		return fmt.Errorf("unknown status %q", d.Status)
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", d.Priority)
	}
	if len(d.Screenshot) > MaxScreenshotBytes {
		return fmt.Errorf("screenshot is %.2f MB encoded, the limit is 5 MB", float64(len(d.Screenshot))/(1024*1024))
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched by the
// backend; the inline status changer sends a Patch with only Status set.
type Patch struct {
	Status   *Status   `json:"status,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
}
