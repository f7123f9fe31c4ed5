package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Issue is the flat {code, message} pair consumed by downstream alerting.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusChange struct {
	SKU       string `json:"sku"`
	Variant   string `json:"variant"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason"`
}

// Report aggregates everything a batch pass wants to tell people about.
// It is owned by the goroutine driving the batch.
type Report struct {
	ID            uuid.UUID      `json:"id"`
	Kind          string         `json:"kind"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at,omitempty"`
	Processed     int            `json:"processed"`
	ITErrors      []Issue        `json:"it_errors"`
	Attention     []Issue        `json:"attention"`
	StatusChanges []StatusChange `json:"status_changes"`
}

func New(kind string, startedAt time.Time) *Report {
	return &Report{
		ID:            uuid.New(),
		Kind:          kind,
		StartedAt:     startedAt,
		ITErrors:      make([]Issue, 0),
		Attention:     make([]Issue, 0),
		StatusChanges: make([]StatusChange, 0),
	}
}

// Add routes err to its channel. Errors that are not *Error are reported
// as IT errors under the given code.
func (r *Report) Add(code string, err error) {
	if err == nil {
		return
	}
	var re *Error
	if !errors.As(err, &re) {
		r.ITErrors = append(r.ITErrors, Issue{Code: code, Message: "SYSTEM | " + err.Error()})
		return
	}
	issue := re.Issue()
	if issue.Code == "" {
		issue.Code = code
	}
	switch re.Kind.Channel() {
	case ChannelAttention:
		r.Attention = append(r.Attention, issue)
	default:
		r.ITErrors = append(r.ITErrors, issue)
	}
}

func (r *Report) AddStatusChange(change StatusChange) {
	r.StatusChanges = append(r.StatusChanges, change)
}

func (r *Report) Finish(at time.Time) {
	r.FinishedAt = at
}

func (r *Report) Empty() bool {
	return len(r.ITErrors) == 0 && len(r.Attention) == 0 && len(r.StatusChanges) == 0
}
