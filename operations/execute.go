package operations

import (
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
)

var ErrNotSerializable = errors.New("data cannot be safely written to disk without data lost, " +
	"avoid type that can't be serialized")

// ExecuteConfig is the configuration for the ExecuteOperation function.
type ExecuteConfig[IN, DEP any] struct {
	retryConfig RetryConfig[IN, DEP]
	force       bool
}

type ExecuteOption[IN, DEP any] func(*ExecuteConfig[IN, DEP])

type RetryConfig[IN, DEP any] struct {
	Enabled bool
	Policy  RetryPolicy
	// InputHook returns the input for the next attempt, for example with a raised gas limit.
	InputHook func(attempt uint, err error, input IN, deps DEP) IN
}

func newDisabledRetryConfig[IN, DEP any]() RetryConfig[IN, DEP] {
	return RetryConfig[IN, DEP]{
		Enabled: false,
		Policy: RetryPolicy{
			MaxAttempts: 10,
		},
	}
}

// RetryPolicy controls how often an operation is retried.
type RetryPolicy struct {
	MaxAttempts uint
}

func (p RetryPolicy) options() []retry.Option {
	return []retry.Option{
		retry.Attempts(p.MaxAttempts),
	}
}

// WithRetry enables the default retry policy.
func WithRetry[IN, DEP any]() ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig.Enabled = true
	}
}

// WithRetryInput enables the default retry policy and transforms the input before every retry.
func WithRetryInput[IN, DEP any](inputHookFunc func(uint, error, IN, DEP) IN) ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig.Enabled = true
		c.retryConfig.InputHook = inputHookFunc
	}
}

// WithRetryConfig replaces the retry configuration.
func WithRetryConfig[IN, DEP any](config RetryConfig[IN, DEP]) ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig = config
	}
}

// WithForceExecute runs the operation even when a successful report for the same input exists.
// The new report is marked as forced.
func WithForceExecute[IN, DEP any]() ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.force = true
	}
}

// ExecuteOperation runs an operation and records its report.
//
// A previous successful report with the same definition and input is returned instead of
// running the operation again, unless WithForceExecute is given. Skipped runs are not
// reported again.
//
// Operations are not retried by default. With WithRetry a failing operation is retried up to
// 10 times; return NewUnrecoverableError to stop early.
//
// Input and output must be JSON serializable, see IsSerializable.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
	opts ...ExecuteOption[IN, DEP],
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	executeConfig := &ExecuteConfig[IN, DEP]{
		retryConfig: newDisabledRetryConfig[IN, DEP](),
	}
	for _, opt := range opts {
		opt(executeConfig)
	}

	if !executeConfig.force {
		if previousReport, found := loadPreviousSuccessfulReport[IN, OUT](b, operation.def, input); found {
			b.Logger.Infow("Operation already executed. Returning previous result", "id", operation.def.ID,
				"version", operation.def.Version, "report_id", previousReport.ID)

			return previousReport, nil
		}
	}

	var (
		output OUT
		err    error
	)
	if executeConfig.retryConfig.Enabled {
		attemptInput := input

		retryOpts := executeConfig.retryConfig.Policy.options()
		retryOpts = append(retryOpts,
			retry.Context(b.GetContext()),
			retry.OnRetry(func(attempt uint, err error) {
				b.Logger.Infow("Operation failed. Retrying...",
					"operation", operation.def.ID, "attempt", attempt, "error", err)

				if executeConfig.retryConfig.InputHook != nil {
					attemptInput = executeConfig.retryConfig.InputHook(attempt, err, attemptInput, deps)
				}
			}),
		)

		output, err = retry.DoWithData(
			func() (OUT, error) {
				return operation.execute(b, deps, attemptInput)
			},
			retryOpts...,
		)
	} else {
		output, err = operation.execute(b, deps, input)
	}

	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := NewReport(operation.def, input, output, err)
	report.Forced = executeConfig.force
	if err = b.reporter.AddReport(genericReport(report)); err != nil {
		return Report[IN, OUT]{}, err
	}

	if report.Err != nil {
		return report, report.Err
	}

	return report, nil
}

// ExecuteSequence runs a sequence and returns its report together with the reports of every
// operation it executed. A previous successful run with the same input is returned instead of
// running again.
func ExecuteSequence[IN, OUT, DEP any](
	b Bundle, sequence *Sequence[IN, OUT, DEP], deps DEP, input IN,
) (SequenceReport[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s input: %w", sequence.def.ID, ErrNotSerializable)
	}

	if previousReport, found := loadPreviousSuccessfulReport[IN, OUT](b, sequence.def, input); found {
		executionReports, err := b.reporter.GetExecutionReports(previousReport.ID)
		if err != nil {
			return SequenceReport[IN, OUT]{}, err
		}
		b.Logger.Infow("Sequence already executed. Returning previous result", "id", sequence.def.ID,
			"version", sequence.def.Version, "report_id", previousReport.ID)

		return SequenceReport[IN, OUT]{previousReport, executionReports}, nil
	}

	b.Logger.Infow("Executing sequence", "id", sequence.def.ID,
		"version", sequence.def.Version, "description", sequence.def.Description)

	recentReporter := NewRecentMemoryReporter(b.reporter)
	seqBundle := Bundle{
		Logger:          b.Logger,
		GetContext:      b.GetContext,
		reporter:        recentReporter,
		reportHashCache: b.reportHashCache,
	}
	ret, err := sequence.handler(seqBundle, deps, input)
	if errors.Is(err, ErrNotSerializable) {
		return SequenceReport[IN, OUT]{}, err
	}

	if err == nil && !IsSerializable(b.Logger, ret) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s output: %w", sequence.def.ID, ErrNotSerializable)
	}

	recentReports := recentReporter.GetRecentReports()
	childReports := make([]string, 0, len(recentReports))
	for _, rep := range recentReports {
		childReports = append(childReports, rep.ID)
	}

	report := NewReport(sequence.def, input, ret, err, childReports...)
	if err = b.reporter.AddReport(genericReport(report)); err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	executionReports, err := b.reporter.GetExecutionReports(report.ID)
	if err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	if report.Err != nil {
		return SequenceReport[IN, OUT]{report, executionReports}, report.Err
	}

	return SequenceReport[IN, OUT]{report, executionReports}, nil
}

// NewUnrecoverableError wraps err so a retried operation fails immediately.
func NewUnrecoverableError(err error) error {
	return retry.Unrecoverable(err)
}

func loadPreviousSuccessfulReport[IN, OUT any](b Bundle, def Definition, input IN) (Report[IN, OUT], bool) {
	prevReports, err := b.reporter.GetReports()
	if err != nil {
		b.Logger.Errorw("Failed to get reports", "error", err)
		return Report[IN, OUT]{}, false
	}
	currentHash, err := constructUniqueHashFrom(b.reportHashCache, def, input)
	if err != nil {
		b.Logger.Errorw("Failed to construct unique hash", "error", err)
		return Report[IN, OUT]{}, false
	}

	for _, report := range prevReports {
		if report.Err != nil {
			continue
		}

		reportHash, err := constructUniqueHashFrom(b.reportHashCache, report.Def, report.Input)
		if err != nil {
			b.Logger.Errorw("Failed to construct unique hash for previous report", "error", err)
			continue
		}
		if reportHash != currentHash {
			continue
		}

		typedReport, ok := typeReport[IN, OUT](report)
		if !ok {
			b.Logger.Debugw("Previous execution found but its report does not match the types",
				"id", def.ID, "report_id", report.ID)

			continue
		}

		return typedReport, true
	}

	return Report[IN, OUT]{}, false
}
