package config

import (
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/mef-lab/coagula/internal/operator"
)

// Compile parses a CUE value into a Config. Absent fields keep their
// defaults, so a configuration file only states what it changes.
//
// The CUE value is the configuration struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`engine: lambda: 0.9`)
//	cfg, err := config.Compile(v)
func Compile(v cue.Value) (Config, error) {
	if err := v.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	cfg := Default()

	if err := compileEngine(v.LookupPath(cue.ParsePath("engine")), &cfg.Engine); err != nil {
		return Config{}, err
	}
	if err := compileGate(v.LookupPath(cue.ParsePath("gate")), &cfg); err != nil {
		return Config{}, err
	}
	if err := compileOperators(v.LookupPath(cue.ParsePath("operators")), &cfg.Operators); err != nil {
		return Config{}, err
	}
	if err := compileLedger(v.LookupPath(cue.ParsePath("ledger")), &cfg.Ledger); err != nil {
		return Config{}, err
	}

	wv := v.LookupPath(cue.ParsePath("validity_window"))
	if wv.Exists() {
		s, err := wv.String()
		if err != nil {
			return Config{}, formatCUEError(err)
		}
		window, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, &CompileError{
				Field:   "validity_window",
				Message: err.Error(),
				Pos:     wv.Pos(),
			}
		}
		cfg.ValidityWindow = window
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CompileString compiles CUE source text into a Config.
func CompileString(src string) (Config, error) {
	ctx := cuecontext.New()
	return Compile(ctx.CompileString(src))
}

// LoadFile reads and compiles a CUE configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	ctx := cuecontext.New()
	return Compile(ctx.CompileBytes(data, cue.Filename(path)))
}

func compileEngine(v cue.Value, e *EngineConfig) error {
	if !v.Exists() {
		return nil
	}
	if err := floatField(v, "lambda", &e.Lambda); err != nil {
		return err
	}
	if err := floatField(v, "epsilon", &e.Epsilon); err != nil {
		return err
	}
	if err := intField(v, "max_iterations", &e.MaxIterations); err != nil {
		return err
	}
	return boolField(v, "record_history", &e.RecordHistory)
}

func compileGate(v cue.Value, cfg *Config) error {
	if !v.Exists() {
		return nil
	}
	if err := floatField(v, "epsilon_pi", &cfg.Gate.EpsilonPi); err != nil {
		return err
	}
	return floatField(v, "phi_star", &cfg.Gate.PhiStar)
}

func compileOperators(v cue.Value, p *operator.Params) error {
	if !v.Exists() {
		return nil
	}

	if dk := v.LookupPath(cue.ParsePath("double_kick")); dk.Exists() {
		if err := floatField(dk, "alpha1", &p.DoubleKick.Alpha1); err != nil {
			return err
		}
		if err := floatField(dk, "alpha2", &p.DoubleKick.Alpha2); err != nil {
			return err
		}
	}

	if sw := v.LookupPath(cue.ParsePath("sweep")); sw.Exists() {
		if err := floatField(sw, "tau0", &p.Sweep.Tau0); err != nil {
			return err
		}
		if err := floatField(sw, "beta", &p.Sweep.Beta); err != nil {
			return err
		}
		if err := floatField(sw, "delta_tau", &p.Sweep.DeltaTau); err != nil {
			return err
		}
		if err := intField(sw, "period", &p.Sweep.Period); err != nil {
			return err
		}
		if sv := sw.LookupPath(cue.ParsePath("schedule")); sv.Exists() {
			s, err := sv.String()
			if err != nil {
				return formatCUEError(err)
			}
			p.Sweep.Schedule = operator.Schedule(s)
		}
	}

	if pi := v.LookupPath(cue.ParsePath("path_invariance")); pi.Exists() {
		if err := floatField(pi, "tol", &p.PathInvariance.Tol); err != nil {
			return err
		}
	}

	if wt := v.LookupPath(cue.ParsePath("weight_transfer")); wt.Exists() {
		if err := floatField(wt, "gamma", &p.WeightTransfer.Gamma); err != nil {
			return err
		}
	}

	return nil
}

func compileLedger(v cue.Value, l *LedgerConfig) error {
	if !v.Exists() {
		return nil
	}
	if err := stringField(v, "backend", &l.Backend); err != nil {
		return err
	}
	return stringField(v, "path", &l.Path)
}

func floatField(v cue.Value, name string, dst *float64) error {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil
	}
	f, err := fv.Float64()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = f
	return nil
}

func intField(v cue.Value, name string, dst *int) error {
	iv := v.LookupPath(cue.ParsePath(name))
	if !iv.Exists() {
		return nil
	}
	n, err := iv.Int64()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = int(n)
	return nil
}

func boolField(v cue.Value, name string, dst *bool) error {
	bv := v.LookupPath(cue.ParsePath(name))
	if !bv.Exists() {
		return nil
	}
	b, err := bv.Bool()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = b
	return nil
}

func stringField(v cue.Value, name string, dst *string) error {
	sv := v.LookupPath(cue.ParsePath(name))
	if !sv.Exists() {
		return nil
	}
	s, err := sv.String()
	if err != nil {
		return formatCUEError(err)
	}
	*dst = s
	return nil
}

// CompileError represents a configuration error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
