package config

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
)

// Validate checks policy names, the output format and the target.
func (c *Config) Validate() error {
	var errs []error

	switch dashboard.FailurePolicy(c.FailurePolicy) {
	case dashboard.FailAbort, dashboard.FailIsolate:
	default:
		errs = append(errs, fmt.Errorf("failure_policy must be %q or %q, got %q",
			dashboard.FailAbort, dashboard.FailIsolate, c.FailurePolicy))
	}

	switch dashboard.DatePolicy(c.DatePolicy) {
	case dashboard.DatesDrop, dashboard.DatesFlag:
	default:
		errs = append(errs, fmt.Errorf("date_policy must be %q or %q, got %q",
			dashboard.DatesDrop, dashboard.DatesFlag, c.DatePolicy))
	}

	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}

	if c.Target == nil {
		errs = append(errs, errors.New("target is required"))
	} else if err := c.Target.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid target configuration: %w", err))
	} else if c.Target.Database == "" {
		errs = append(errs, fmt.Errorf("target.database is required for %s", c.Target.Type))
	}

	return errors.Join(errs...)
}
