package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	briefdomain "github.com/kentsubra71/keystone/internal/brief/domain"
	credentialdomain "github.com/kentsubra71/keystone/internal/credential/domain"
	mailusecase "github.com/kentsubra71/keystone/internal/mail/usecase"
	nudgedomain "github.com/kentsubra71/keystone/internal/nudge/domain"
	sheetusecase "github.com/kentsubra71/keystone/internal/sheet/usecase"
	"github.com/kentsubra71/keystone/pkg/config"
	"github.com/kentsubra71/keystone/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct{ calls atomic.Int32 }

func (f *fakeReconciler) Reconcile(context.Context) (*sheetusecase.ReconcileResult, error) {
	f.calls.Add(1)
	return &sheetusecase.ReconcileResult{Success: true}, nil
}

type fakeTokens struct {
	tok *credentialdomain.AccessToken
	err error
}

func (f *fakeTokens) ValidAccessToken(context.Context) (*credentialdomain.AccessToken, error) {
	return f.tok, f.err
}

type fakeIngester struct {
	gotToken string
	gotOwner string
	calls    int
}

func (f *fakeIngester) Ingest(_ context.Context, accessToken, ownerEmail string) (*mailusecase.IngestResult, error) {
	f.calls++
	f.gotToken, f.gotOwner = accessToken, ownerEmail
	return &mailusecase.IngestResult{Success: true}, nil
}

type fakeNudges struct{}

func (fakeNudges) Generate(context.Context) ([]*nudgedomain.Nudge, error) { return nil, nil }

type fakeBriefs struct{}

func (fakeBriefs) Generate(context.Context) (*briefdomain.Brief, error) {
	return &briefdomain.Brief{ID: "b1"}, nil
}

func TestJobs_SyncMailUsesGuardToken(t *testing.T) {
	ing := &fakeIngester{}
	jobs := NewJobs(&fakeReconciler{}, &fakeTokens{tok: &credentialdomain.AccessToken{Token: "tok", OwnerEmail: "me@x.com"}}, ing, fakeNudges{}, fakeBriefs{}, logger.Discard())

	res, err := jobs.SyncMail(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "tok", ing.gotToken)
	assert.Equal(t, "me@x.com", ing.gotOwner)
}

func TestJobs_SyncMailWithoutCredential(t *testing.T) {
	ing := &fakeIngester{}
	jobs := NewJobs(&fakeReconciler{}, &fakeTokens{err: credentialdomain.ErrNoCredential}, ing, fakeNudges{}, fakeBriefs{}, logger.Discard())

	res, err := jobs.SyncMail(context.Background())

	require.ErrorIs(t, err, credentialdomain.ErrNoCredential)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "get access token")
	assert.Zero(t, ing.calls)
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	var runs atomic.Int32
	s := New(logger.Discard(), Task{Name: "t", Interval: 10 * time.Millisecond, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestScheduler_FailuresAndPanicsDoNotStopLoop(t *testing.T) {
	var runs atomic.Int32
	s := New(logger.Discard(), Task{Name: "flaky", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
		n := runs.Add(1)
		if n == 1 {
			panic("boom")
		}
		return errors.New("still failing")
	}})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_SkipsDisabledTasksAndStopsTwice(t *testing.T) {
	var runs atomic.Int32
	s := New(logger.Discard(), Task{Name: "off", Interval: 0, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	s.Start(context.Background())
	s.Stop()
	s.Stop()
	assert.Zero(t, runs.Load())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	s := New(logger.Discard(), Task{Name: "t", Interval: time.Hour, Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	s.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after cancel")
	}
}

func TestJobTasks(t *testing.T) {
	rec := &fakeReconciler{}
	jobs := NewJobs(rec, &fakeTokens{err: credentialdomain.ErrNoCredential}, &fakeIngester{}, fakeNudges{}, fakeBriefs{}, logger.Discard())

	tasks := JobTasks(jobs, config.SchedulerConfig{
		SheetInterval: time.Minute,
		GmailInterval: time.Minute,
		NudgeInterval: time.Hour,
		BriefInterval: 24 * time.Hour,
	})

	require.Len(t, tasks, 4)
	names := []string{}
	for _, task := range tasks {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{"sheet", "gmail", "nudges", "brief"}, names)

	require.NoError(t, tasks[0].Run(context.Background()))
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.ErrorIs(t, tasks[1].Run(context.Background()), credentialdomain.ErrNoCredential)
	assert.NoError(t, tasks[3].Run(context.Background()))
}
