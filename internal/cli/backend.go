package cli

import (
	"fmt"

	"github.com/mef-lab/coagula/internal/config"
	"github.com/mef-lab/coagula/internal/ledger"
)

// loadConfig resolves the effective configuration: the --config file
// when given, the documented defaults otherwise.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.Config == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFile(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load configuration", err)
	}
	return cfg, nil
}

// openBackend constructs the configured chain backend. The caller owns
// the returned backend and must Close it.
func openBackend(cfg config.Config) (ledger.Backend, error) {
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		return ledger.NewMemoryBackend(), nil
	case config.BackendSQLite:
		backend, err := ledger.OpenSQLite(cfg.Ledger.Path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open sqlite backend", err)
		}
		return backend, nil
	case config.BackendBadger:
		backend, err := ledger.OpenBadger(ledger.DefaultBadgerConfig(cfg.Ledger.Path))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open badger backend", err)
		}
		return backend, nil
	default:
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("unknown ledger backend %q", cfg.Ledger.Backend))
	}
}

// openLedger opens the configured backend and binds a ledger to it.
func openLedger(cfg config.Config) (*ledger.Ledger, ledger.Backend, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	led, err := ledger.Open(backend)
	if err != nil {
		backend.Close()
		return nil, nil, WrapExitError(ExitCommandError, "open ledger", err)
	}
	return led, backend, nil
}
