package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apachehub/deudacero/internal/metrics"
	"github.com/apachehub/deudacero/internal/models"
	"github.com/apachehub/deudacero/internal/storage"
)

// stubBackend serves canned payloads and counts calls. Setting block makes
// GroupDetail wait until the channel is closed, which lets coalescing tests
// hold a refresh open.
type stubBackend struct {
	mu            sync.Mutex
	identityCalls int
	identityErr   error
	groupsErr     error
	detailErrs    map[int64]error
	block         chan struct{}

	groups  []models.GroupSummary
	details map[int64]*models.GroupDetail
}

func (b *stubBackend) Identity(_ context.Context, memberID int64) (*models.IdentityPayload, error) {
	b.mu.Lock()
	b.identityCalls++
	b.mu.Unlock()
	if b.identityErr != nil {
		return nil, b.identityErr
	}
	var identity models.IdentityPayload
	raw := fmt.Sprintf(`{"memberId": %d, "name": "Viewer"}`, memberID)
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (b *stubBackend) MemberGroups(context.Context, int64) ([]models.GroupSummary, error) {
	if b.groupsErr != nil {
		return nil, b.groupsErr
	}
	return b.groups, nil
}

func (b *stubBackend) GroupDetail(ctx context.Context, groupID int64) (*models.GroupDetail, error) {
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := b.detailErrs[groupID]; err != nil {
		return nil, err
	}
	detail, ok := b.details[groupID]
	if !ok {
		return nil, fmt.Errorf("no detail for group %d", groupID)
	}
	return detail, nil
}

func (b *stubBackend) refreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.identityCalls
}

// memStore is an in-memory storage.Store for service tests.
type memStore struct {
	mu        sync.Mutex
	snapshots map[int64]*storage.Snapshot
	replaces  int
}

func newMemStore() *memStore {
	return &memStore{snapshots: make(map[int64]*storage.Snapshot)}
}

func (m *memStore) ReplaceSnapshot(_ context.Context, snapshot *storage.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot.PullID = uuid.New().String()
	snapshot.FetchedAt = time.Now().UTC()
	m.snapshots[snapshot.MemberID] = snapshot
	m.replaces++
	return nil
}

func (m *memStore) Snapshot(_ context.Context, memberID int64) (*storage.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot, ok := m.snapshots[memberID]
	if !ok {
		return nil, storage.ErrNoSnapshot
	}
	return snapshot, nil
}

func (m *memStore) Close() error { return nil }

func decodeSummaries(t *testing.T, raw string) []models.GroupSummary {
	t.Helper()
	var summaries []models.GroupSummary
	require.NoError(t, json.Unmarshal([]byte(raw), &summaries))
	return summaries
}

func decodeDetail(t *testing.T, raw string) *models.GroupDetail {
	t.Helper()
	var detail models.GroupDetail
	require.NoError(t, json.Unmarshal([]byte(raw), &detail))
	return &detail
}

func newTestService(backend Backend, store storage.Store) *BalanceService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	return NewBalanceService(backend, store, m, logger, 5*time.Second)
}

const tripDetail = `{
	"members": [
		{"id": 1, "name": "Ana"},
		{"id": 2, "name": "Bruno"}
	],
	"expenses": [
		{"amount": 40, "payer": {"id": 1}, "splitAmong": [{"id": 1}, {"id": 2}], "date": "2026-08-20"}
	]
}`

func TestRefreshStoresSnapshot(t *testing.T) {
	backend := &stubBackend{
		groups:  decodeSummaries(t, `[{"groupId": 7, "name": "Trip"}]`),
		details: map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
	}
	store := newMemStore()
	svc := newTestService(backend, store)

	require.NoError(t, svc.Refresh(context.Background(), 1))

	snapshot, err := store.Snapshot(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snapshot.Groups, 1)
	assert.Equal(t, int64(7), snapshot.Groups[0].GroupID)
	assert.Equal(t, "Trip", snapshot.Groups[0].GroupName)
	assert.NotEmpty(t, snapshot.PullID)
}

func TestRefreshToleratesGroupFailure(t *testing.T) {
	backend := &stubBackend{
		groups: decodeSummaries(t, `[
			{"groupId": 7, "name": "Trip"},
			{"groupId": 8, "name": "Flat"}
		]`),
		details:    map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
		detailErrs: map[int64]error{8: errors.New("backend down")},
	}
	store := newMemStore()
	svc := newTestService(backend, store)

	require.NoError(t, svc.Refresh(context.Background(), 1))

	snapshot, err := store.Snapshot(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snapshot.Groups, 1, "failed branch drops, the rest survives")
	assert.Equal(t, int64(7), snapshot.Groups[0].GroupID)
}

func TestRefreshAllGroupsFailedKeepsCache(t *testing.T) {
	backend := &stubBackend{
		groups:     decodeSummaries(t, `[{"groupId": 7, "name": "Trip"}]`),
		details:    map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
		detailErrs: map[int64]error{7: errors.New("backend down")},
	}
	store := newMemStore()
	svc := newTestService(backend, store)

	require.Error(t, svc.Refresh(context.Background(), 1))

	_, err := store.Snapshot(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot, "empty pull must not replace the cache")
}

func TestRefreshIdentityFailureIsGlobal(t *testing.T) {
	backend := &stubBackend{identityErr: errors.New("unauthorized")}
	store := newMemStore()
	svc := newTestService(backend, store)

	err := svc.Refresh(context.Background(), 1)
	require.Error(t, err)

	_, err = store.Snapshot(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot, "failed pull must not touch the cache")
}

func TestRefreshGroupListFailureIsGlobal(t *testing.T) {
	backend := &stubBackend{groupsErr: errors.New("timeout")}
	store := newMemStore()
	svc := newTestService(backend, store)

	require.Error(t, svc.Refresh(context.Background(), 1))
}

func TestRefreshSkipsUnresolvableGroups(t *testing.T) {
	backend := &stubBackend{
		groups: decodeSummaries(t, `[
			{"name": "no id here"},
			{"groupId": 7, "name": "Trip"}
		]`),
		details: map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
	}
	store := newMemStore()
	svc := newTestService(backend, store)

	require.NoError(t, svc.Refresh(context.Background(), 1))

	snapshot, err := store.Snapshot(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snapshot.Groups, 1)
}

func TestRequestRefreshCoalescesBurst(t *testing.T) {
	block := make(chan struct{})
	backend := &stubBackend{
		groups:  decodeSummaries(t, `[{"groupId": 7, "name": "Trip"}]`),
		details: map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
		block:   block,
	}
	store := newMemStore()
	svc := newTestService(backend, store)

	svc.RequestRefresh(1)
	// Wait for the first run to reach the blocked detail fetch.
	require.Eventually(t, func() bool { return backend.refreshCount() == 1 },
		time.Second, 5*time.Millisecond)

	// A burst of triggers while the run is held open folds into one
	// trailing run.
	for i := 0; i < 10; i++ {
		svc.RequestRefresh(1)
	}
	close(block)

	require.Eventually(t, func() bool {
		gate := svc.gate(1)
		gate.mu.Lock()
		defer gate.mu.Unlock()
		return !gate.inFlight
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, backend.refreshCount(), "initial run plus exactly one trailing run")
}

func TestRequestRefreshIndependentPerMember(t *testing.T) {
	backend := &stubBackend{
		groups:  decodeSummaries(t, `[{"groupId": 7, "name": "Trip"}]`),
		details: map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
	}
	store := newMemStore()
	svc := newTestService(backend, store)

	svc.RequestRefresh(1)
	svc.RequestRefresh(2)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.snapshots) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestBreakdownsFromSnapshot(t *testing.T) {
	backend := &stubBackend{
		groups:  decodeSummaries(t, `[{"groupId": 7, "name": "Trip"}]`),
		details: map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
	}
	store := newMemStore()
	svc := newTestService(backend, store)
	require.NoError(t, svc.Refresh(context.Background(), 2))

	view, err := svc.Breakdowns(context.Background(), 2, models.DefaultFilter())
	require.NoError(t, err)

	// Ana paid 40 split evenly, so viewer 2 owes her 20.
	assert.InDelta(t, 20.0, view.Totals.YouOwe, 0.001)
	assert.InDelta(t, 0.0, view.Totals.OwedToYou, 0.001)
	require.Len(t, view.Groups, 1)
	assert.Equal(t, "All time • All groups", view.FilterSummary)
	assert.Equal(t, int64(2), view.MemberID)
	assert.False(t, view.FetchedAt.IsZero())
}

func TestBreakdownsRefreshesColdCache(t *testing.T) {
	backend := &stubBackend{
		groups:  decodeSummaries(t, `[{"groupId": 7, "name": "Trip"}]`),
		details: map[int64]*models.GroupDetail{7: decodeDetail(t, tripDetail)},
	}
	store := newMemStore()
	svc := newTestService(backend, store)

	view, err := svc.Breakdowns(context.Background(), 1, models.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.refreshCount(), "cold cache triggers a synchronous pull")
	assert.InDelta(t, 20.0, view.Totals.OwedToYou, 0.001)
}

func TestBreakdownsColdCacheRefreshFailure(t *testing.T) {
	backend := &stubBackend{identityErr: errors.New("unauthorized")}
	svc := newTestService(backend, newMemStore())

	_, err := svc.Breakdowns(context.Background(), 1, models.DefaultFilter())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestBreakdownsRejectsBadFilter(t *testing.T) {
	svc := newTestService(&stubBackend{}, newMemStore())

	cases := []models.FilterState{
		{DateRange: "yesterday"},
		{DateRange: models.RangeCustom, StartDate: "08/20/2026"},
		{DateRange: models.RangeAll, GroupID: -1},
	}
	for _, filter := range cases {
		_, err := svc.Breakdowns(context.Background(), 1, filter)
		assert.Error(t, err, "filter %+v", filter)
	}
}

func TestRefreshGateTrailingRun(t *testing.T) {
	var g refreshGate
	require.True(t, g.tryBegin())
	require.False(t, g.tryBegin(), "second trigger queues instead of running")
	require.False(t, g.tryBegin(), "further triggers fold into the same slot")
	require.True(t, g.finish(), "pending slot forces a trailing run")
	require.False(t, g.finish(), "trailing run drains the gate")
	require.True(t, g.tryBegin(), "gate is reusable afterwards")
	require.False(t, g.finish())
}
