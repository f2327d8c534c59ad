// Package report implements the user-facing intake of a misinformation
// report: the Report accumulator and the workflow that fills it.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/modwatch/internal/dialog"
	"github.com/ppiankov/modwatch/internal/model"
)

// State is the intake state of a report
type State int

const (
	StateStart State = iota
	StateAwaitingLink
	StateMessageIdentified
	StateComplete
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAwaitingLink:
		return "awaiting-link"
	case StateMessageIdentified:
		return "message-identified"
	case StateComplete:
		return "complete"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Transcript field keys
const (
	FieldReportID        = "Report ID"
	FieldDate            = "Date"
	FieldReportingUser   = "Reporting User"
	FieldReportedUser    = "Reported User"
	FieldReportedPost    = "Reported Post"
	FieldReportedPostURL = "Reported Post URL"
	FieldReportSeverity  = "Report Severity"
)

// DateLayout renders submission times in transcripts and queue listings
const DateLayout = "01/02/2006, 15:04:05"

// Field is one transcript entry
type Field struct {
	Key   string
	Value string
}

// Report accumulates the answers of one intake. Fields keep insertion
// order; setting an existing key overwrites its value in place.
type Report struct {
	id          string
	state       State
	fields      []Field
	index       map[string]int
	severity    int
	submittedAt time.Time
	reporterID  string
	message     dialog.MessageRef
	category    model.MisinfoType
	finished    bool
}

// New creates a report for a reporter and records its id
func New(reporterID string) *Report {
	r := &Report{
		id:         uuid.NewString(),
		index:      make(map[string]int),
		reporterID: reporterID,
	}
	r.Set(FieldReportID, r.id)
	return r
}

// ID returns the report id
func (r *Report) ID() string { return r.id }

// State returns the intake state
func (r *Report) State() State { return r.state }

// ReporterID returns the id of the reporting user
func (r *Report) ReporterID() string { return r.reporterID }

// Message returns the reported message
func (r *Report) Message() dialog.MessageRef { return r.message }

// Category returns the abuse category chosen by the reporter, if any
func (r *Report) Category() model.MisinfoType { return r.category }

// Complete reports whether intake finished successfully
func (r *Report) Complete() bool { return r.state == StateComplete }

// Canceled reports whether the reporter canceled
func (r *Report) Canceled() bool { return r.state == StateCanceled }

// Ended reports whether the workflow is over: canceled, or complete and
// confirmed with the finish keyword.
func (r *Report) Ended() bool {
	return r.state == StateCanceled || (r.state == StateComplete && r.finished)
}

// Set records a field
func (r *Report) Set(key, value string) {
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Field returns the value recorded under key
func (r *Report) Field(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Fields returns a copy of the recorded fields in insertion order
func (r *Report) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Severity returns the accumulated severity. It panics before completion.
func (r *Report) Severity() int {
	r.mustBeComplete("severity")
	return r.severity
}

// SubmittedAt returns the completion time. It panics before completion.
func (r *Report) SubmittedAt() time.Time {
	r.mustBeComplete("submission time")
	return r.submittedAt
}

// Transcript renders one "key: value" line per field. It panics before
// completion.
func (r *Report) Transcript() string {
	r.mustBeComplete("transcript")
	lines := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		lines = append(lines, f.Key+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

func (r *Report) mustBeComplete(what string) {
	if r.state != StateComplete {
		panic(fmt.Errorf("report %s: %s read in state %s: %w", r.id, what, r.state, model.ErrReportIncomplete))
	}
}

func (r *Report) complete(at time.Time) {
	r.state = StateComplete
	r.submittedAt = at
	r.Set(FieldDate, at.Format(DateLayout))
	r.Set(FieldReportSeverity, strconv.Itoa(r.severity))
}

// Completed builds a report that is already complete with the given
// severity and submission time. Queue and review tests use it to get
// severities the intake tree cannot produce.
func Completed(reporterID string, msg dialog.MessageRef, severity int, at time.Time) *Report {
	r := New(reporterID)
	r.message = msg
	r.severity = severity
	r.Set(FieldReportedUser, msg.Author)
	r.Set(FieldReportedPost, msg.Content)
	r.complete(at)
	r.finished = true
	return r
}
