// Package domain lays out the per environment deployment state on disk.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/operations"
)

const (
	AddressBookFileName = "addresses.json"
	MigrationsFileName  = "migrations.json"
	ReportsDirName      = "reports"
)

// EnvDir is the state directory of one environment, <root>/<env>.
type EnvDir struct {
	rootPath string
	key      string
}

// NewEnvDir creates an EnvDir.
func NewEnvDir(rootPath, key string) EnvDir {
	return EnvDir{rootPath: rootPath, key: key}
}

func (d EnvDir) String() string {
	return d.key
}

// Key returns the environment name.
func (d EnvDir) Key() string {
	return d.key
}

// DirPath returns the path to the environment directory.
func (d EnvDir) DirPath() string {
	return filepath.Join(d.rootPath, d.key)
}

// AddressBookFilePath returns the path of the address book file.
func (d EnvDir) AddressBookFilePath() string {
	return filepath.Join(d.DirPath(), AddressBookFileName)
}

// MigrationsFilePath returns the path of the migration log.
func (d EnvDir) MigrationsFilePath() string {
	return filepath.Join(d.DirPath(), MigrationsFileName)
}

// ReportsFilePath returns the path of the operation reports of a migration.
func (d EnvDir) ReportsFilePath(migrationKey string) string {
	return filepath.Join(d.DirPath(), ReportsDirName, migrationKey+".json")
}

// AddressBook loads the address book. An environment without deployments has an empty one.
func (d EnvDir) AddressBook() (*deployment.AddressBookMap, error) {
	return deployment.LoadAddressBook(d.AddressBookFilePath())
}

// SaveAddressBook replaces the address book file.
func (d EnvDir) SaveAddressBook(ab deployment.AddressBook) error {
	return deployment.SaveAddressBook(d.AddressBookFilePath(), ab)
}

// MigrationRecord is a completed migration.
type MigrationRecord struct {
	Key           string    `json:"key"`
	ChainSelector uint64    `json:"chainSelector"`
	CompletedAt   time.Time `json:"completedAt"`
	Forced        bool      `json:"forced,omitempty"`
}

// MigrationLog lists the completed migrations of an environment in the order they ran.
type MigrationLog struct {
	Completed []MigrationRecord `json:"completed"`
}

// IsCompleted reports whether the migration completed on the chain.
func (l *MigrationLog) IsCompleted(key string, chainSelector uint64) bool {
	return slices.ContainsFunc(l.Completed, func(r MigrationRecord) bool {
		return r.Key == key && r.ChainSelector == chainSelector
	})
}

// Record appends a completed migration.
func (l *MigrationLog) Record(r MigrationRecord) {
	l.Completed = append(l.Completed, r)
}

// LoadMigrationLog reads the migration log. A missing file is an empty log.
func (d EnvDir) LoadMigrationLog() (*MigrationLog, error) {
	log := &MigrationLog{}
	if err := readJSON(d.MigrationsFilePath(), log); err != nil {
		return nil, err
	}

	return log, nil
}

// SaveMigrationLog replaces the migration log file.
func (d EnvDir) SaveMigrationLog(log *MigrationLog) error {
	return writeJSON(d.MigrationsFilePath(), log)
}

// LoadReports reads the operation reports of a migration. A missing file means no reports.
// Numbers are kept as json.Number so large values such as chain selectors keep their
// precision and the loaded inputs hash like the typed ones.
func (d EnvDir) LoadReports(migrationKey string) ([]operations.Report[any, any], error) {
	path := d.ReportsFilePath(migrationKey)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var reports []operations.Report[any, any]
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err = dec.Decode(&reports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON %s: %w", path, err)
	}

	return reports, nil
}

// SaveReports replaces the operation reports of a migration.
func (d EnvDir) SaveReports(migrationKey string, reports []operations.Report[any, any]) error {
	return writeJSON(d.ReportsFilePath(migrationKey), reports)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if err = json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON %s: %w", path, err)
	}

	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return deployment.WriteFileAtomic(path, append(b, '\n'))
}
