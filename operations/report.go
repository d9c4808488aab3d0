package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report records one run of an operation or a sequence.
type Report[IN, OUT any] struct {
	ID        string       `json:"id"`
	Def       Definition   `json:"definition"`
	Output    OUT          `json:"output"`
	Input     IN           `json:"input"`
	Timestamp *time.Time   `json:"timestamp"`
	Err       *ReportError `json:"error"`
	// IDs of the reports of the operations a sequence ran.
	ChildOperationReports []string `json:"childOperationReports"`
	// Forced is set when the run ignored a previous successful report.
	Forced bool `json:"forced,omitempty"`
}

// ToGenericReport drops the type parameters of the report.
func (r Report[IN, OUT]) ToGenericReport() Report[any, any] {
	return genericReport(r)
}

// SequenceReport is the report of a sequence plus the reports of everything it executed.
type SequenceReport[IN, OUT any] struct {
	Report[IN, OUT]

	ExecutionReports []Report[any, any]
}

// NewReport creates a report with a fresh ID. childReportsID only applies to sequences.
func NewReport[IN, OUT any](
	def Definition, input IN, output OUT, err error, childReportsID ...string,
) Report[IN, OUT] {
	now := time.Now().UTC()
	r := Report[IN, OUT]{
		ID:                    uuid.New().String(),
		Def:                   def,
		Output:                output,
		Input:                 input,
		Timestamp:             &now,
		ChildOperationReports: childReportsID,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// ReportError is the serializable form of an error in a Report.
type ReportError struct {
	Message string `json:"message"`
}

func (o ReportError) Error() string {
	return o.Message
}

var ErrReportNotFound = errors.New("report not found")

// Reporter stores reports.
type Reporter interface {
	GetReport(id string) (Report[any, any], error)
	GetReports() ([]Report[any, any], error)
	AddReport(report Report[any, any]) error
	GetExecutionReports(reportID string) ([]Report[any, any], error)
}

// MemoryReporter keeps reports in memory. It is safe for concurrent use.
type MemoryReporter struct {
	reports []Report[any, any]
	mu      sync.RWMutex
}

type MemoryReporterOption func(*MemoryReporter)

// WithReports seeds the reporter, typically with reports loaded from a previous run.
func WithReports(reports []Report[any, any]) MemoryReporterOption {
	return func(mr *MemoryReporter) {
		mr.reports = slices.Clone(reports)
	}
}

func NewMemoryReporter(options ...MemoryReporterOption) *MemoryReporter {
	reporter := &MemoryReporter{}
	for _, opt := range options {
		opt(reporter)
	}

	return reporter
}

func (e *MemoryReporter) AddReport(report Report[any, any]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reports = append(e.reports, report)

	return nil
}

// GetReports returns a copy of all reports in insertion order.
func (e *MemoryReporter) GetReports() ([]Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Clone(e.reports), nil
}

func (e *MemoryReporter) GetReport(id string) (Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.find(id)
}

func (e *MemoryReporter) find(id string) (Report[any, any], error) {
	for _, report := range e.reports {
		if report.ID == id {
			return report, nil
		}
	}

	return Report[any, any]{}, fmt.Errorf("report_id %s: %w", id, ErrReportNotFound)
}

// GetExecutionReports returns the report with the given ID and, depth first, every report it
// links as a child. Children come before their parent.
func (e *MemoryReporter) GetExecutionReports(seqID string) ([]Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var all []Report[any, any]

	var collect func(id string) error
	collect = func(id string) error {
		report, err := e.find(id)
		if err != nil {
			return err
		}
		for _, childID := range report.ChildOperationReports {
			if err := collect(childID); err != nil {
				return err
			}
		}
		all = append(all, report)

		return nil
	}

	if err := collect(seqID); err != nil {
		return nil, err
	}

	return all, nil
}

// RecentReporter wraps a Reporter and remembers the reports added through it.
type RecentReporter struct {
	Reporter
	recentReports []Report[any, any]
	mu            sync.RWMutex
}

func NewRecentMemoryReporter(reporter Reporter) *RecentReporter {
	return &RecentReporter{
		Reporter:      reporter,
		recentReports: []Report[any, any]{},
	}
}

func (e *RecentReporter) AddReport(report Report[any, any]) error {
	if err := e.Reporter.AddReport(report); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.recentReports = append(e.recentReports, report)

	return nil
}

// GetRecentReports returns the reports added since the RecentReporter was created.
func (e *RecentReporter) GetRecentReports() []Report[any, any] {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return slices.Clone(e.recentReports)
}

func genericReport[IN, OUT any](r Report[IN, OUT]) Report[any, any] {
	return Report[any, any]{
		ID:                    r.ID,
		Def:                   r.Def,
		Output:                r.Output,
		Input:                 r.Input,
		Timestamp:             r.Timestamp,
		Err:                   r.Err,
		ChildOperationReports: r.ChildOperationReports,
		Forced:                r.Forced,
	}
}

// typeReport converts a generic report back to its types. Reports loaded from disk hold maps
// and float64s, so input and output go through a JSON round trip.
func typeReport[IN, OUT any](r Report[any, any]) (Report[IN, OUT], bool) {
	var input IN
	if !convert(r.Input, &input) {
		return Report[IN, OUT]{}, false
	}

	var output OUT
	if !convert(r.Output, &output) {
		return Report[IN, OUT]{}, false
	}

	return Report[IN, OUT]{
		ID:                    r.ID,
		Def:                   r.Def,
		Output:                output,
		Input:                 input,
		Timestamp:             r.Timestamp,
		Err:                   r.Err,
		ChildOperationReports: r.ChildOperationReports,
		Forced:                r.Forced,
	}, true
}

func convert(from any, to any) bool {
	b, err := json.Marshal(from)
	if err != nil {
		return false
	}

	return json.Unmarshal(b, to) == nil
}
