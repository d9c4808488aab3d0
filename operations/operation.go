package operations

import (
	"context"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

// Bundle carries what every operation and sequence handler needs: a logger, the context of
// the run and the reporter the results are recorded in. Use NewBundle to create one.
type Bundle struct {
	Logger     logger.Logger
	GetContext func() context.Context
	reporter   Reporter
	// hashes of report inputs, so previous reports are not hashed on every lookup
	reportHashCache *sync.Map
}

// NewBundle creates a Bundle.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter) Bundle {
	return Bundle{
		Logger:          lggr,
		GetContext:      getContext,
		reporter:        reporter,
		reportHashCache: &sync.Map{},
	}
}

// Reporter returns the reporter of the bundle.
func (b Bundle) Reporter() Reporter {
	return b.reporter
}

// OperationHandler is the function signature of an operation handler.
type OperationHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Definition identifies an operation or a sequence. Two runs with the same definition and
// the same input are the same run.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// Operation is a single step with at most one side effect, such as sending one transaction.
type Operation[IN, OUT, DEP any] struct {
	def     Definition
	handler OperationHandler[IN, OUT, DEP]
}

// NewOperation creates a new operation.
func NewOperation[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler OperationHandler[IN, OUT, DEP],
) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{
		def: Definition{
			ID:          id,
			Version:     version,
			Description: description,
		},
		handler: handler,
	}
}

func (o *Operation[IN, OUT, DEP]) ID() string {
	return o.def.ID
}

func (o *Operation[IN, OUT, DEP]) Version() string {
	return o.def.Version.String()
}

func (o *Operation[IN, OUT, DEP]) Description() string {
	return o.def.Description
}

func (o *Operation[IN, OUT, DEP]) Def() Definition {
	return o.def
}

func (o *Operation[IN, OUT, DEP]) execute(b Bundle, deps DEP, input IN) (OUT, error) {
	b.Logger.Infow("Executing operation",
		"id", o.def.ID, "version", o.def.Version, "description", o.def.Description)

	return o.handler(b, deps, input)
}

// EmptyInput is the input of operations that take none.
type EmptyInput struct{}
