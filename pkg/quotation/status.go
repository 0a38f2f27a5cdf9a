package quotation

import (
	"fmt"
	"strings"
)

// Status is where a quotation request is in the sales workflow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusContacted Status = "contacted"
	StatusConverted Status = "converted"
	StatusClosed    Status = "closed"
)

var statuses = []Status{StatusPending, StatusContacted, StatusConverted, StatusClosed}

// Statuses returns every status in workflow order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStatus parses a status name. "all" and "" parse to the empty status,
// which filters nothing.
func ParseStatus(v string) (Status, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "all" {
		return "", nil
	}

	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown quotation status %q", v)
	}
	return s, nil
}
