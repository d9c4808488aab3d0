// Package migrations deploys and upgrades the PartyBeaver contract. Migrations are numbered,
// run in order and recorded per environment so each runs once.
package migrations

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/fluuu/partybeaver-deployments/deployment"
)

var (
	ErrAlreadyDeployed  = errors.New("contract is already deployed, use --force to redeploy")
	ErrVersionNotNewer  = errors.New("implementation version is not newer than the deployed one")
	ErrMigrationUnknown = errors.New("migration not found")
)

// ApplyOptions are passed to every migration.
type ApplyOptions struct {
	// Force redeploys contracts that are already recorded in the address book.
	Force bool
}

// Output holds the address book changes of a migration. The runner removes Superseded
// records and then merges AddressBook into the environment's address book.
type Output struct {
	AddressBook deployment.AddressBook
	Superseded  deployment.AddressBook
}

// Migration changes the on-chain state of an environment.
type Migration interface {
	Apply(e *deployment.Environment, opts ApplyOptions) (Output, error)
}

// MigrationFunc adapts a function to a Migration.
type MigrationFunc func(e *deployment.Environment, opts ApplyOptions) (Output, error)

func (f MigrationFunc) Apply(e *deployment.Environment, opts ApplyOptions) (Output, error) {
	return f(e, opts)
}

// Registry is an ordered set of migrations. Keys have the form "0002_deploy_contracts" and
// their numeric prefixes must increase in the order migrations are added.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]Migration
	keyHistory []string
}

func NewRegistry() *Registry {
	return &Registry{
		entries:    make(map[string]Migration),
		keyHistory: []string{},
	}
}

// Add registers a migration. It panics on a malformed or out of order key.
func (r *Registry) Add(key string, m Migration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateKey(key); err != nil {
		panic(fmt.Errorf("invalid migration key '%s': %w", key, err))
	}

	r.entries[key] = m
	r.keyHistory = append(r.keyHistory, key)
}

// Get returns the migration registered under key.
func (r *Registry) Get(key string) (Migration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.entries[key]
	if !ok {
		return nil, fmt.Errorf("migration '%s': %w", key, ErrMigrationUnknown)
	}

	return m, nil
}

// Keys returns the migration keys in order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.keyHistory)
}

func (r *Registry) validateKey(key string) error {
	if _, exists := r.entries[key]; exists {
		return errors.New("already registered")
	}

	currentIndex, err := extractIndexFromKey(key)
	if err != nil {
		return err
	}

	if len(r.keyHistory) > 0 {
		lastIndex, _ := extractIndexFromKey(r.keyHistory[len(r.keyHistory)-1])
		if currentIndex <= lastIndex {
			return fmt.Errorf("migration index must be monotonically increasing: got %d, previous was %d",
				currentIndex, lastIndex)
		}
	}

	return nil
}

// extractIndexFromKey parses the numeric prefix of "0002_deploy_contracts".
func extractIndexFromKey(key string) (int, error) {
	prefix, name, ok := strings.Cut(key, "_")
	if !ok || name == "" {
		return 0, fmt.Errorf("key '%s' does not follow the format 'index_name'", key)
	}

	index, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("could not parse index from key '%s': %w", key, err)
	}

	return index, nil
}
