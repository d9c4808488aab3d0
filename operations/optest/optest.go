// Package optest provides helpers for testing operations.
package optest

import (
	"testing"

	"github.com/fluuu/partybeaver-deployments/operations"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

// NewBundle creates a bundle with a test logger and a memory reporter.
func NewBundle(t *testing.T) operations.Bundle {
	t.Helper()

	return operations.NewBundle(t.Context, logger.Test(t), operations.NewMemoryReporter())
}
