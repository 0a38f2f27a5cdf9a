// Package quotation models the quotation requests submitted from the
// site's service pages and the back-office workflow around them.
package quotation

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingFields is returned by Validate when a required field is blank.
var ErrMissingFields = errors.New("missing required fields")

// Request is the payload posted by the quotation form.
type Request struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"companyName,omitempty"`
	ServiceID   string `json:"serviceId"`
	ServiceName string `json:"serviceName"`
	Notes       string `json:"notes,omitempty"`
}

// Validate checks that every required field is present.
func (r *Request) Validate() error {
	for _, v := range []string{r.FullName, r.Email, r.Phone, r.ServiceID, r.ServiceName} {
		if strings.TrimSpace(v) == "" {
			return ErrMissingFields
		}
	}
	return nil
}

// Record is a stored quotation request.
type Record struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CompanyName string    `json:"company_name,omitempty"`
	ServiceID   string    `json:"service_id"`
	ServiceName string    `json:"service_name"`
	Notes       string    `json:"notes,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows ListQuotations. The zero value matches everything.
type Filter struct {
	// Status limits results to one status. Empty means any.
	Status Status

	// Limit caps the number of records. Zero means no limit.
	Limit int
}

// Matches reports whether r passes the status filter.
func (f Filter) Matches(r *Record) bool {
	return f.Status == "" || r.Status == f.Status
}

// Summary counts quotations per status. Every status is present, zero or
// not.
type Summary map[Status]int

// Summarize counts records per status.
func Summarize(records []*Record) Summary {
	s := make(Summary, len(statuses))
	for _, st := range statuses {
		s[st] = 0
	}
	for _, r := range records {
		s[r.Status]++
	}
	return s
}
