package migrations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fluuu/partybeaver-deployments/chain/evm"
	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/domain"
	"github.com/fluuu/partybeaver-deployments/operations"
	"github.com/fluuu/partybeaver-deployments/pkg/logger"
)

// RunnerConfig holds what a Runner needs to apply migrations to one environment.
type RunnerConfig struct {
	Logger     logger.Logger
	Registry   *Registry
	EnvDir     domain.EnvDir
	Chain      evm.Chain
	Artifacts  deployment.ArtifactsDir
	GetContext func() context.Context
	// Optional: Out receives the report lines. Defaults to stdout.
	Out io.Writer
}

// Runner applies migrations and persists their results in the environment directory.
type Runner struct {
	cfg RunnerConfig
}

func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{cfg: cfg}
}

// RunOptions select which migrations run.
type RunOptions struct {
	// Force reruns completed migrations and redeploys recorded contracts.
	Force bool
	// Only runs the single migration with this key.
	Only string
}

// Run applies every migration that has not completed on the chain, in order, and returns the
// keys it applied. It stops at the first failure.
func (r *Runner) Run(opts RunOptions) ([]string, error) {
	keys := r.cfg.Registry.Keys()
	if opts.Only != "" {
		if _, err := r.cfg.Registry.Get(opts.Only); err != nil {
			return nil, err
		}
		keys = []string{opts.Only}
	}

	log, err := r.cfg.EnvDir.LoadMigrationLog()
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(keys))
	for _, key := range keys {
		if log.IsCompleted(key, r.cfg.Chain.Selector) && !opts.Force {
			if opts.Only != "" {
				return applied, fmt.Errorf("migration %s completed on %s: %w", key, r.cfg.Chain, ErrAlreadyDeployed)
			}
			r.cfg.Logger.Infow("Skipping completed migration", "migration", key, "chain", r.cfg.Chain.String())

			continue
		}

		m, _ := r.cfg.Registry.Get(key)
		if err = r.Apply(key, m, opts.Force, log); err != nil {
			return applied, fmt.Errorf("migration %s: %w", key, err)
		}
		applied = append(applied, key)
	}

	if len(applied) == 0 {
		r.cfg.Logger.Infow("No pending migrations", "environment", r.cfg.EnvDir.Key())
	}

	return applied, nil
}

// Upgrade applies an UpgradeContracts migration and records it like a registered one.
func (r *Runner) Upgrade(m UpgradeContracts, force bool) error {
	log, err := r.cfg.EnvDir.LoadMigrationLog()
	if err != nil {
		return err
	}

	return r.Apply(UpgradeKey(m.Version), m, force, log)
}

// Apply runs one migration. Operation reports are saved whether or not the migration
// succeeds, so a failed run resumes after its last successful operation. The address book
// and the migration log are only written on success.
func (r *Runner) Apply(key string, m Migration, force bool, log *domain.MigrationLog) error {
	lggr := r.cfg.Logger.Named(key)

	ab, err := r.cfg.EnvDir.AddressBook()
	if err != nil {
		return err
	}

	reporter := operations.NewMemoryReporter()
	if !force {
		prev, lerr := r.cfg.EnvDir.LoadReports(key)
		if lerr != nil {
			return lerr
		}
		reporter = operations.NewMemoryReporter(operations.WithReports(prev))
	}

	envOpts := []deployment.EnvironmentOption{deployment.WithReporter(reporter)}
	if r.cfg.Out != nil {
		envOpts = append(envOpts, deployment.WithOut(r.cfg.Out))
	}
	env := deployment.NewEnvironment(r.cfg.EnvDir.Key(), lggr, r.cfg.Chain, ab, r.cfg.Artifacts,
		r.cfg.GetContext, envOpts...)

	lggr.Infow("Applying migration", "chain", r.cfg.Chain.String(), "force", force)
	out, applyErr := m.Apply(env, ApplyOptions{Force: force})

	reports, err := reporter.GetReports()
	if err == nil {
		err = r.cfg.EnvDir.SaveReports(key, reports)
	}
	if applyErr != nil {
		return errors.Join(applyErr, err)
	}
	if err != nil {
		return fmt.Errorf("failed to save reports: %w", err)
	}

	if out.Superseded != nil {
		if err = ab.Remove(out.Superseded); err != nil {
			return fmt.Errorf("failed to remove superseded records: %w", err)
		}
	}
	if out.AddressBook != nil {
		if err = ab.Merge(out.AddressBook); err != nil {
			return fmt.Errorf("failed to merge address book: %w", err)
		}
	}
	if err = r.cfg.EnvDir.SaveAddressBook(ab); err != nil {
		return err
	}

	log.Record(domain.MigrationRecord{
		Key:           key,
		ChainSelector: r.cfg.Chain.Selector,
		CompletedAt:   time.Now().UTC(),
		Forced:        force,
	})
	if err = r.cfg.EnvDir.SaveMigrationLog(log); err != nil {
		return err
	}

	lggr.Infow("Migration completed", "chain", r.cfg.Chain.String())

	return nil
}
