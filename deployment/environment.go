package deployment

import (
	"context"
	"io"
	"os"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/operations"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

// Environment is everything a migration or maintenance run needs for one named environment.
type Environment struct {
	Name              string
	Logger            logger.Logger
	Chain             evm.Chain
	ExistingAddresses AddressBook
	Artifacts         ArtifactsDir
	GetContext        func() context.Context
	OperationsBundle  operations.Bundle
	// Out receives the operator facing report lines.
	Out io.Writer
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// WithReporter replaces the memory reporter of the operations bundle, for example with one
// seeded from reports of a previous run.
func WithReporter(r operations.Reporter) EnvironmentOption {
	return func(e *Environment) {
		e.OperationsBundle = operations.NewBundle(e.GetContext, e.Logger, r)
	}
}

// WithOut sets the writer for report lines. Defaults to stdout.
func WithOut(w io.Writer) EnvironmentOption {
	return func(e *Environment) {
		e.Out = w
	}
}

// NewEnvironment creates an Environment.
func NewEnvironment(
	name string,
	lggr logger.Logger,
	chain evm.Chain,
	ab AddressBook,
	artifacts ArtifactsDir,
	ctx func() context.Context,
	opts ...EnvironmentOption,
) *Environment {
	e := &Environment{
		Name:              name,
		Logger:            lggr,
		Chain:             chain,
		ExistingAddresses: ab,
		Artifacts:         artifacts,
		GetContext:        ctx,
		OperationsBundle:  operations.NewBundle(ctx, lggr, operations.NewMemoryReporter()),
		Out:               os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}
