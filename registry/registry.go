// Package registry holds the ordered set of checks for a run.
package registry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/devine-os/kern-acceptor/types"
)

// Check is a named, independently-failable unit of validation. Run returns
// nil on success, a *types.AssertionError for a normal identified violation,
// and any other error for faults outside the check's own logic.
type Check interface {
	Metadata() types.CheckMetadata
	Run(ctx context.Context) error
}

// Registry manages the ordered check registry
type Registry struct {
	config Config
	checks []Check
	mu     sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log            *zap.Logger
	Checks         []Check // registration order is execution order
	SuiteFile      string  // optional YAML suite file selecting/tuning checks
	DefaultTimeout time.Duration
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if len(cfg.Checks) == 0 {
		return nil, fmt.Errorf("at least one check is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	r := &Registry{config: cfg}
	if err := r.loadChecks(); err != nil {
		return nil, fmt.Errorf("failed to load checks: %w", err)
	}

	cfg.Log.Debug("Registry loaded", zap.Int("checks", len(r.checks)))
	return r, nil
}

func (r *Registry) loadChecks() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := make(map[string]Check, len(r.config.Checks))
	for _, chk := range r.config.Checks {
		meta := chk.Metadata()
		if meta.ID == "" {
			return fmt.Errorf("check with empty ID")
		}
		if _, dup := byID[meta.ID]; dup {
			return fmt.Errorf("duplicate check ID %q", meta.ID)
		}
		byID[meta.ID] = chk
	}

	if r.config.SuiteFile == "" {
		r.checks = r.applyDefaults(r.config.Checks)
		return nil
	}

	suite, err := loadSuiteConfig(r.config.SuiteFile)
	if err != nil {
		return err
	}
	if len(suite.Checks) == 0 {
		r.checks = r.applyDefaults(r.config.Checks)
		return nil
	}

	// The suite file selects and orders; unknown IDs are configuration
	// errors, not silent no-ops.
	var selected []Check
	for _, cc := range suite.Checks {
		chk, ok := byID[cc.ID]
		if !ok {
			return fmt.Errorf("suite file references unknown check %q", cc.ID)
		}
		if cc.Disabled {
			r.config.Log.Debug("Check disabled by suite file", zap.String("check", cc.ID))
			continue
		}
		if cc.Timeout != nil {
			meta := chk.Metadata()
			meta.Timeout = cc.Timeout.Std()
			meta.Suite = suite.Suite
			chk = &configuredCheck{Check: chk, meta: meta}
		} else if suite.Suite != "" {
			meta := chk.Metadata()
			meta.Suite = suite.Suite
			chk = &configuredCheck{Check: chk, meta: meta}
		}
		selected = append(selected, chk)
	}
	if len(selected) == 0 {
		return fmt.Errorf("suite file %q disables every check", r.config.SuiteFile)
	}
	r.checks = r.applyDefaults(selected)
	return nil
}

// applyDefaults fills in the registry-level default timeout for checks that
// carry none of their own.
func (r *Registry) applyDefaults(checks []Check) []Check {
	if r.config.DefaultTimeout <= 0 {
		return checks
	}
	out := make([]Check, len(checks))
	for i, chk := range checks {
		meta := chk.Metadata()
		if meta.Timeout == 0 {
			meta.Timeout = r.config.DefaultTimeout
			chk = &configuredCheck{Check: chk, meta: meta}
		}
		out[i] = chk
	}
	return out
}

// Checks returns all registered checks in execution order
func (r *Registry) Checks() []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checks
}

// Len returns the number of registered checks
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checks)
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// configuredCheck overlays suite-file metadata on a registered check
type configuredCheck struct {
	Check
	meta types.CheckMetadata
}

func (c *configuredCheck) Metadata() types.CheckMetadata {
	return c.meta
}

// loadSuiteConfig loads a suite config from a file
func loadSuiteConfig(path string) (*types.SuiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	var cfg types.SuiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing suite file: %w", err)
	}
	return &cfg, nil
}
