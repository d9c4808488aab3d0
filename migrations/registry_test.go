package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluuu/partybeaver-deployments/deployment"
)

var noop = MigrationFunc(func(*deployment.Environment, ApplyOptions) (Output, error) {
	return Output{}, nil
})

func TestRegistry_Add(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("0001_first", noop)
	r.Add("0002_second", noop)

	assert.Equal(t, []string{"0001_first", "0002_second"}, r.Keys())

	m, err := r.Get("0002_second")
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = r.Get("0003_missing")
	require.ErrorIs(t, err, ErrMigrationUnknown)
}

func TestRegistry_Add_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keys    []string
		wantErr string
	}{
		{
			name:    "no index",
			keys:    []string{"deploy_contracts"},
			wantErr: "could not parse index",
		},
		{
			name:    "no name",
			keys:    []string{"0002"},
			wantErr: "does not follow the format",
		},
		{
			name:    "not increasing",
			keys:    []string{"0002_deploy", "0002_other"},
			wantErr: "monotonically increasing",
		},
		{
			name:    "duplicate",
			keys:    []string{"0002_deploy", "0002_deploy"},
			wantErr: "already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRegistry()
			last := len(tt.keys) - 1
			for _, k := range tt.keys[:last] {
				r.Add(k, noop)
			}

			var recovered any
			func() {
				defer func() { recovered = recover() }()
				r.Add(tt.keys[last], noop)
			}()

			err, ok := recovered.(error)
			require.True(t, ok, "expected a panic with an error, got %v", recovered)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	r := Default("PartyBeaverUpgradeable", v100)
	assert.Equal(t, []string{DeployContractsKey}, r.Keys())
}
