package lib

import (
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCronJob(t *testing.T) {
	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	NewScheduler(sched)
	defer func() {
		sched.Shutdown()
		NewScheduler(nil)
	}()

	id, err := CreateCronJob("reconcile", func(n int) {}, time.Minute, 3)
	require.NoError(t, err)
	require.NotNil(t, id)

	jobs := sched.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "reconcile", jobs[0].Name())
	assert.Equal(t, *id, jobs[0].ID().String())
}

func TestCreateCronJobRejectsBadTask(t *testing.T) {
	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	NewScheduler(sched)
	defer func() {
		sched.Shutdown()
		NewScheduler(nil)
	}()

	_, err = CreateCronJob("broken", "not a func", time.Minute)
	assert.Error(t, err)
}
