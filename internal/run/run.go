// Package run holds the per-host results of a run and folds them into a
// single verdict.
package run

import (
	"time"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
)

// Result is the complete outcome of one host's participation in a run. A
// host that never connected has a nil-exit Result carrying the connection
// error.
type Result struct {
	Host     string
	Lines    []string
	ExitCode int
	Err      error
	Duration time.Duration
}

// OK reports whether the host completed with a zero exit status and no
// transport failure.
func (r *Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Failure attributes one host's failure for the final report.
type Failure struct {
	Host     string
	Reason   string
	Category errors.Category
}

// Verdict is the aggregated outcome of a run.
type Verdict struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  []Failure
	Duration  time.Duration
}

// OK reports whether every host succeeded.
func (v *Verdict) OK() bool {
	return v.Failed == 0
}

// Aggregate folds per-host results into a verdict, preserving result order
// in the failure list.
func Aggregate(results []*Result, duration time.Duration) *Verdict {
	v := &Verdict{Total: len(results), Duration: duration}
	for _, r := range results {
		if r.OK() {
			v.Succeeded++
			continue
		}
		v.Failed++
		v.Failures = append(v.Failures, failureOf(r))
	}
	return v
}

func failureOf(r *Result) Failure {
	if r.Err != nil {
		return Failure{
			Host:     r.Host,
			Reason:   r.Err.Error(),
			Category: errors.CategoryOf(r.Err),
		}
	}
	return Failure{
		Host:     r.Host,
		Reason:   "remote execution returned non-zero exit code",
		Category: errors.Execution,
	}
}

// Err maps the verdict onto a single categorized error, or nil when every
// host succeeded. An interrupted run dominates; otherwise any host that
// reached execution and failed makes this an execution failure, and only
// when no host got that far does the connection-phase category surface.
func (v *Verdict) Err() error {
	if v.OK() {
		return nil
	}

	collector := errors.NewCollector()
	for _, f := range v.Failures {
		collector.Add(&errors.Error{Category: f.Category, Host: f.Host, Message: f.Reason})
	}

	category := errors.Connection
	switch {
	case collector.HasCategory(errors.Interrupted):
		category = errors.Interrupted
	case collector.HasCategory(errors.Execution):
		category = errors.Execution
	case collector.HasCategory(errors.Auth):
		category = errors.Auth
	case collector.HasCategory(errors.HostKey):
		category = errors.HostKey
	}

	return errors.Newf(category, "%d of %d hosts failed", v.Failed, v.Total)
}
