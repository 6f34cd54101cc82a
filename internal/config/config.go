// Package config reads the toolkit's environment-variable settings. CLI
// flags take precedence over everything here; the variables exist so CI
// environments can tune polling without flag plumbing.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Settings are the toolkit's ambient knobs.
type Settings struct {
	// ToolkitStackName names the per-environment toolkit stack.
	ToolkitStackName string `env:"CDK_TOOLKIT_STACK_NAME" envDefault:"CDKToolkit"`
	// StackPollInterval separates stack-status describe calls.
	StackPollInterval time.Duration `env:"CDK_STACK_POLL_INTERVAL" envDefault:"5s"`
	// ChangeSetPollInterval separates change-set describe calls.
	ChangeSetPollInterval time.Duration `env:"CDK_CHANGE_SET_POLL_INTERVAL" envDefault:"5s"`
	// MonitorInterval separates activity-monitor event fetches.
	MonitorInterval time.Duration `env:"CDK_MONITOR_INTERVAL" envDefault:"2s"`
	// Quiet suppresses progress output and the activity monitor.
	Quiet bool `env:"CDK_QUIET"`
}

// Load parses settings from the process environment.
func Load() (*Settings, error) {
	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("failed to parse environment settings: %w", err)
	}
	return settings, nil
}
