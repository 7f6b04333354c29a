// Package service orchestrates refresh pulls and on-demand breakdown
// computation. Raw records are cached wholesale per member; computed views
// are always derived fresh from the latest cached pull.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/apachehub/deudacero/internal/calculator"
	"github.com/apachehub/deudacero/internal/metrics"
	"github.com/apachehub/deudacero/internal/models"
	"github.com/apachehub/deudacero/internal/storage"
)

// maxConcurrentGroupFetches bounds the per-refresh fan-out against the
// backend.
const maxConcurrentGroupFetches = 8

// ErrInvalidFilter marks filter states that fail validation.
var ErrInvalidFilter = errors.New("invalid filter")

// ErrNotReady marks a member with no cached pull whose initial refresh
// failed. There is nothing to serve until a pull succeeds.
var ErrNotReady = errors.New("balance not ready")

// Backend is the slice of the expense backend the service needs.
type Backend interface {
	Identity(ctx context.Context, memberID int64) (*models.IdentityPayload, error)
	MemberGroups(ctx context.Context, memberID int64) ([]models.GroupSummary, error)
	GroupDetail(ctx context.Context, groupID int64) (*models.GroupDetail, error)
}

// View is the computed balance response for one member under one filter.
type View struct {
	MemberID      int64                    `json:"memberId"`
	FetchedAt     time.Time                `json:"fetchedAt"`
	Filter        models.FilterState       `json:"filter"`
	FilterSummary string                   `json:"filterSummary"`
	Totals        models.Totals            `json:"totals"`
	Groups        []models.GroupBreakdown  `json:"groups"`
	People        []models.PersonBreakdown `json:"people"`
}

// BalanceService pulls raw records from the backend, caches them per member,
// and computes filtered breakdowns on demand.
type BalanceService struct {
	backend Backend
	store   storage.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	validate *validator.Validate

	// refreshTimeout bounds a background refresh started by RequestRefresh.
	refreshTimeout time.Duration

	mu    sync.Mutex
	gates map[int64]*refreshGate

	// now is stubbed in tests.
	now func() time.Time
}

// NewBalanceService creates a BalanceService.
func NewBalanceService(backend Backend, store storage.Store, m *metrics.Metrics, logger *slog.Logger, refreshTimeout time.Duration) *BalanceService {
	return &BalanceService{
		backend:        backend,
		store:          store,
		metrics:        m,
		logger:         logger,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		refreshTimeout: refreshTimeout,
		gates:          make(map[int64]*refreshGate),
		now:            time.Now,
	}
}

// Refresh pulls the member's groups from the backend, normalizes them and
// replaces the member's cached snapshot. Identity and group-list failures
// abort the whole pull; a single group's failure only drops that branch, and
// the run still succeeds with the groups that did load.
func (s *BalanceService) Refresh(ctx context.Context, memberID int64) error {
	start := s.now()
	err := s.refresh(ctx, memberID)
	s.metrics.RefreshDuration.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		s.metrics.RefreshTotal.WithLabelValues("error").Inc()
		return err
	}
	s.metrics.RefreshTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *BalanceService) refresh(ctx context.Context, memberID int64) error {
	identity, err := s.backend.Identity(ctx, memberID)
	if err != nil {
		return fmt.Errorf("refresh member %d: %w", memberID, err)
	}
	if id, ok := identity.MemberID.Value(); ok && id != memberID {
		return fmt.Errorf("refresh member %d: backend identity mismatch (%d)", memberID, id)
	}

	summaries, err := s.backend.MemberGroups(ctx, memberID)
	if err != nil {
		return fmt.Errorf("refresh member %d: %w", memberID, err)
	}

	type target struct {
		id   int64
		name string
	}
	targets := make([]target, 0, len(summaries))
	for _, summary := range summaries {
		id, ok := summary.ResolvedID()
		if !ok {
			s.logger.Warn("skipping group with unresolvable id", "member_id", memberID)
			s.metrics.RecordsSkipped.Inc()
			continue
		}
		name := summary.ResolvedName()
		if name == "" {
			name = fmt.Sprintf("Group %d", id)
		}
		targets = append(targets, target{id: id, name: name})
	}

	// Fan out the per-group detail fetches. Each failing branch is logged
	// and dropped; the remaining groups still make it into the snapshot.
	results := make([]*models.GroupRecords, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentGroupFetches)
	for i, t := range targets {
		g.Go(func() error {
			detail, err := s.backend.GroupDetail(gctx, t.id)
			if err != nil {
				s.logger.Warn("group detail fetch failed",
					"member_id", memberID, "group_id", t.id, "error", err)
				s.metrics.GroupFetchTotal.WithLabelValues("error").Inc()
				return nil
			}
			s.metrics.GroupFetchTotal.WithLabelValues("success").Inc()
			records := calculator.ExtractGroup(t.id, t.name, detail)
			results[i] = &records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh member %d: %w", memberID, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("refresh member %d: %w", memberID, err)
	}

	groups := make([]models.GroupRecords, 0, len(results))
	for _, r := range results {
		if r != nil {
			groups = append(groups, *r)
		}
	}
	// Losing every group is a backend outage, not a partial failure. Keep
	// the previous snapshot instead of caching an empty pull.
	if len(groups) == 0 && len(targets) > 0 {
		return fmt.Errorf("refresh member %d: all %d group fetches failed", memberID, len(targets))
	}

	snapshot := &storage.Snapshot{MemberID: memberID, Groups: groups}
	if err := s.store.ReplaceSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("refresh member %d: cache snapshot: %w", memberID, err)
	}

	s.logger.Info("refresh complete",
		"member_id", memberID, "groups", len(groups), "pull_id", snapshot.PullID)
	return nil
}

// RequestRefresh triggers a background refresh for the member. Triggers
// arriving while a refresh is already running collapse into a single trailing
// run, so a burst of events costs at most one extra pull.
func (s *BalanceService) RequestRefresh(memberID int64) {
	gate := s.gate(memberID)
	if !gate.tryBegin() {
		s.metrics.RefreshCoalesced.Inc()
		return
	}
	go func() {
		for {
			ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
			if err := s.Refresh(ctx, memberID); err != nil {
				s.logger.Error("background refresh failed", "member_id", memberID, "error", err)
			}
			cancel()
			if !gate.finish() {
				return
			}
		}
	}()
}

func (s *BalanceService) gate(memberID int64) *refreshGate {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[memberID]
	if !ok {
		g = &refreshGate{}
		s.gates[memberID] = g
	}
	return g
}

// Breakdowns computes the member's filtered balance view from the latest
// cached pull. When no pull is cached yet, a synchronous refresh fills the
// cache first.
func (s *BalanceService) Breakdowns(ctx context.Context, memberID int64, filter models.FilterState) (*View, error) {
	if err := s.validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	snapshot, err := s.store.Snapshot(ctx, memberID)
	if errors.Is(err, storage.ErrNoSnapshot) {
		if err := s.Refresh(ctx, memberID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
		}
		snapshot, err = s.store.Snapshot(ctx, memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for member %d: %w", memberID, err)
	}

	breakdowns := calculator.BuildBreakdowns(snapshot.Groups, filter, memberID, s.now())
	return &View{
		MemberID:      memberID,
		FetchedAt:     snapshot.FetchedAt,
		Filter:        filter,
		FilterSummary: calculator.FilterSummary(filter, snapshot.Groups),
		Totals:        calculator.ComputeTotals(breakdowns.Groups),
		Groups:        breakdowns.Groups,
		People:        breakdowns.People,
	}, nil
}
