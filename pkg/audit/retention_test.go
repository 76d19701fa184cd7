package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*Entry
	cutoffs []time.Time
	cleanupErr error
}

func (f *fakeAuditStore) Record(ctx context.Context, entry *Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Entry(nil), f.entries...), nil
}

func (f *fakeAuditStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cleanupErr != nil {
		return 0, f.cleanupErr
	}
	f.cutoffs = append(f.cutoffs, olderThan)
	return 3, nil
}

func TestRetentionRunOnce(t *testing.T) {
	store := &fakeAuditStore{}
	job := NewRetentionJob(store, RetentionPolicy{RetentionDays: 30}, nil)

	job.RunOnce(context.Background())

	require.Len(t, store.cutoffs, 1)
	wantCutoff := time.Now().AddDate(0, 0, -30)
	assert.WithinDuration(t, wantCutoff, store.cutoffs[0], time.Minute)
}

func TestRetentionSwallowsCleanupErrors(t *testing.T) {
	store := &fakeAuditStore{cleanupErr: errors.New("db down")}
	job := NewRetentionJob(store, DefaultRetentionPolicy(), nil)

	assert.NotPanics(t, func() { job.RunOnce(context.Background()) })
}

func TestRetentionDefaults(t *testing.T) {
	job := NewRetentionJob(&fakeAuditStore{}, RetentionPolicy{}, nil)
	assert.Equal(t, 90, job.policy.RetentionDays)
	assert.Equal(t, "0 3 * * *", job.policy.Schedule)
}

func TestRetentionStartStop(t *testing.T) {
	store := &fakeAuditStore{}
	job := NewRetentionJob(store, DefaultRetentionPolicy(), nil)

	require.NoError(t, job.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, job.Stop(ctx))
}
