// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzconfig loads the engine's tunables — everything a
// deployment adjusts without recompiling: retry budgets, the
// mutational stage's iteration bounds, how often stats get reported.
// The core itself never reads a config file directly (spec.md §7 keeps
// config out of the core's surface); this package is the glue a binary
// wires between a config file and fuzzer.State/fuzzer.NewFuzzer calls.
package fuzzconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds engine tunables. Zero-value fields are filled from
// Default by Load.
type Config struct {
	// MaxRetries is a retry budget for RetryCountRestartHelper (§4.7).
	// Nothing in this module passes it to ShouldRestart; ClosureStage and
	// PushStageAdapter use NoRetry's fixed budget.
	MaxRetries int `yaml:"max_retries"`
	// MutationalMaxIterations caps StdMutationalPushStage's per-entry
	// iteration roll (§4.8); 0 falls back to DefaultMutationalMaxIterations.
	MutationalMaxIterations int `yaml:"mutational_max_iterations"`
	// StatsReportIntervalSeconds is a progress-report cadence. The push
	// stage driver (fuzzer.Next) does not read it; it passes a fixed
	// 15-second interval to EventManager.MaybeReportProgress.
	StatsReportIntervalSeconds int `yaml:"stats_report_interval_seconds"`
	// MaxConcurrentJobs bounds fuzzer.JobRunner's admitted job count.
	MaxConcurrentJobs int64 `yaml:"max_concurrent_jobs"`
}

// Default returns the engine's built-in tunables.
func Default() Config {
	return Config{
		MaxRetries:                 3,
		MutationalMaxIterations:    128,
		StatsReportIntervalSeconds: 15,
		MaxConcurrentJobs:          4,
	}
}

// Load reads a YAML config file at path, overlaying any fields it sets
// onto Default. A missing file is not an error — Load returns Default
// unchanged, matching the teacher's "config is an optional override"
// posture for tool-local settings.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Config{}, err
	}
	if overlay.MaxRetries != 0 {
		cfg.MaxRetries = overlay.MaxRetries
	}
	if overlay.MutationalMaxIterations != 0 {
		cfg.MutationalMaxIterations = overlay.MutationalMaxIterations
	}
	if overlay.StatsReportIntervalSeconds != 0 {
		cfg.StatsReportIntervalSeconds = overlay.StatsReportIntervalSeconds
	}
	if overlay.MaxConcurrentJobs != 0 {
		cfg.MaxConcurrentJobs = overlay.MaxConcurrentJobs
	}
	return cfg, nil
}
