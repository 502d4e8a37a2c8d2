package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
)

func TestAggregateAllSucceeded(t *testing.T) {
	results := []*Result{
		{Host: "web1", ExitCode: 0},
		{Host: "web2", ExitCode: 0},
	}
	v := Aggregate(results, time.Second)

	assert.True(t, v.OK())
	assert.Equal(t, 2, v.Total)
	assert.Equal(t, 2, v.Succeeded)
	assert.Zero(t, v.Failed)
	assert.NoError(t, v.Err())
}

func TestAggregateAttributesFailures(t *testing.T) {
	connErr := &errors.Error{Category: errors.Connection, Host: "db1", Message: "unable to reach remote server"}
	results := []*Result{
		{Host: "web1", ExitCode: 0},
		{Host: "web2", ExitCode: 3},
		{Host: "db1", Err: connErr},
	}
	v := Aggregate(results, time.Second)

	assert.False(t, v.OK())
	assert.Equal(t, 1, v.Succeeded)
	assert.Equal(t, 2, v.Failed)
	require.Len(t, v.Failures, 2)

	assert.Equal(t, "web2", v.Failures[0].Host)
	assert.Equal(t, errors.Execution, v.Failures[0].Category)
	assert.Equal(t, "db1", v.Failures[1].Host)
	assert.Equal(t, errors.Connection, v.Failures[1].Category)
}

func TestVerdictErrExecutionDominatesConnection(t *testing.T) {
	results := []*Result{
		{Host: "web1", Err: &errors.Error{Category: errors.Connection, Host: "web1", Message: "unreachable"}},
		{Host: "web2", ExitCode: 1},
	}
	v := Aggregate(results, time.Second)

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, errors.Execution, errors.CategoryOf(err))
	assert.Equal(t, 8, errors.ExitCode(err))
}

func TestVerdictErrConnectionOnly(t *testing.T) {
	results := []*Result{
		{Host: "web1", ExitCode: 0},
		{Host: "web2", Err: &errors.Error{Category: errors.Auth, Host: "web2", Message: "rejected"}},
	}
	v := Aggregate(results, time.Second)

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, errors.Auth, errors.CategoryOf(err))
	assert.Equal(t, 7, errors.ExitCode(err))
}

func TestVerdictErrInterruptedDominates(t *testing.T) {
	results := []*Result{
		{Host: "web1", ExitCode: 1},
		{Host: "web2", Err: errors.New(errors.Interrupted, "run interrupted")},
	}
	v := Aggregate(results, time.Second)

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, errors.Interrupted, errors.CategoryOf(err))
	assert.Equal(t, 100, errors.ExitCode(err))
}
