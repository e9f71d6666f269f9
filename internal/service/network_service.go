package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vanshika/comptree/backend/internal/analytics"
	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/earnings"
	"github.com/vanshika/comptree/backend/internal/tree"
	"github.com/vanshika/comptree/backend/internal/withdrawal"
)

// NetworkDataSource is the fetch contract the engine consumes.
type NetworkDataSource interface {
	FetchMemberRecord(ctx context.Context, id string) (domain.MemberRecord, error)
	FetchEdges(ctx context.Context, rootID string, maxDepth int) ([]domain.Edge, error)
}

// BatchMemberFetcher is implemented by data sources that can load many members at once.
type BatchMemberFetcher interface {
	FetchMemberRecords(ctx context.Context, ids []string) ([]domain.MemberRecord, error)
}

var (
	// ErrNoData means the data source failed or returned nothing for a root.
	ErrNoData = errors.New("network data unavailable")
	// ErrSuperseded means a newer recomputation began before this one finished.
	ErrSuperseded = errors.New("recomputation superseded by a newer generation")
	// ErrMemberNotInNetwork means the member is not part of the requested network.
	ErrMemberNotInNetwork = errors.New("member not in network")
)

// NoDataError wraps the data source failure behind ErrNoData.
type NoDataError struct {
	RootID string
	Err    error
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data for network %q: %v", e.RootID, e.Err)
}

func (e *NoDataError) Unwrap() error { return e.Err }

func (e *NoDataError) Is(target error) bool { return target == ErrNoData }

// Options tunes the network service.
type Options struct {
	MaxDepth     int
	FetchTimeout time.Duration
	FetchWorkers int
	Metrics      *Metrics
	Ledger       *withdrawal.Ledger
	Generations  *Generations
}

// NetworkService fetches sponsor networks, runs them through the engine and keeps the
// latest snapshot per root. The data source is called once per recomputation, never retried.
type NetworkService struct {
	logger       *slog.Logger
	source       NetworkDataSource
	calc         *earnings.Calculator
	withdrawals  *withdrawal.Engine
	ledger       *withdrawal.Ledger
	generations  *Generations
	metrics      *Metrics
	maxDepth     int
	fetchTimeout time.Duration
	fetchWorkers int
	nowFn        func() time.Time
}

// NewNetworkService validates both policies and wires the engine.
func NewNetworkService(logger *slog.Logger, source NetworkDataSource, rewards domain.RewardPolicy, payouts domain.WithdrawalPolicy, opts Options) (*NetworkService, error) {
	if source == nil {
		return nil, errors.New("network data source is required")
	}
	calc, err := earnings.NewCalculator(rewards)
	if err != nil {
		return nil, err
	}
	engine, err := withdrawal.NewEngine(payouts)
	if err != nil {
		return nil, err
	}

	if opts.MaxDepth <= 0 {
		opts.MaxDepth = rewards.MaxDepth
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = domain.DefaultRewardPolicy().MaxDepth
	}
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 4
	}
	if opts.Ledger == nil {
		opts.Ledger = withdrawal.NewLedger()
	}
	if opts.Generations == nil {
		opts.Generations = NewGenerations()
	}

	return &NetworkService{
		logger:       logger.With("component", "network_service"),
		source:       source,
		calc:         calc,
		withdrawals:  engine,
		ledger:       opts.Ledger,
		generations:  opts.Generations,
		metrics:      opts.Metrics,
		maxDepth:     opts.MaxDepth,
		fetchTimeout: opts.FetchTimeout,
		fetchWorkers: opts.FetchWorkers,
		nowFn:        time.Now,
	}, nil
}

// WithClock overrides the time provider (used primarily in tests).
func (s *NetworkService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Policies returns the reward and withdrawal policies in effect.
func (s *NetworkService) Policies() (domain.RewardPolicy, domain.WithdrawalPolicy) {
	return s.calc.Policy(), s.withdrawals.Policy()
}

// TrackedRoots lists every root with an applied snapshot.
func (s *NetworkService) TrackedRoots() []string {
	return s.generations.Roots()
}

// Recompute fetches rootID, builds and annotates its tree, aggregates it and applies the
// result. If a newer recomputation of the same root began meanwhile, the result is
// returned alongside ErrSuperseded and not applied.
func (s *NetworkService) Recompute(ctx context.Context, rootID string) (Snapshot, error) {
	rootID = normalizeMemberID(rootID)
	if rootID == "" {
		return Snapshot{}, errors.New("root id is required")
	}

	start := s.nowFn()
	token := s.generations.Begin(rootID)
	snap, err := s.compute(ctx, rootID)
	if err != nil {
		s.generations.Abandon(rootID, token)
		s.metrics.recordRecompute(s.nowFn().Sub(start), "error")
		s.logger.Warn("network recompute failed", "root", rootID, "generation", token, "error", err)
		return Snapshot{}, err
	}

	if !s.generations.Apply(rootID, token, snap) {
		s.metrics.recordDiscarded()
		s.metrics.recordRecompute(s.nowFn().Sub(start), "superseded")
		s.logger.Debug("discarding superseded recompute", "root", rootID, "generation", token)
		return snap, ErrSuperseded
	}
	snap.Generation = token

	s.metrics.recordRecompute(s.nowFn().Sub(start), "ok")
	s.metrics.recordTreeSize(rootID, snap.Summary.TotalMembers)
	s.logger.Info("network recomputed",
		"root", rootID,
		"generation", token,
		"members", snap.Summary.TotalMembers,
		"duration_ms", s.nowFn().Sub(start).Milliseconds(),
	)
	return snap, nil
}

func (s *NetworkService) compute(ctx context.Context, rootID string) (Snapshot, error) {
	edges, records, err := s.fetch(ctx, rootID)
	if err != nil {
		return Snapshot{}, err
	}

	built, err := tree.Build(edges, tree.FromRecords(records))
	if err != nil {
		return Snapshot{}, fmt.Errorf("build network %s: %w", rootID, err)
	}
	annotated, err := s.calc.Annotate(built)
	if err != nil {
		return Snapshot{}, fmt.Errorf("annotate network %s: %w", rootID, err)
	}

	return Snapshot{
		RootID:  rootID,
		Tree:    annotated,
		Summary: analytics.Aggregate(annotated),
		BuiltAt: s.nowFn().UTC(),
	}, nil
}

func (s *NetworkService) fetch(ctx context.Context, rootID string) ([]domain.Edge, []domain.MemberRecord, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	edges, err := s.source.FetchEdges(ctx, rootID, s.maxDepth)
	if err != nil {
		return nil, nil, &NoDataError{RootID: rootID, Err: err}
	}
	if len(edges) == 0 {
		return nil, nil, &NoDataError{RootID: rootID, Err: domain.ErrEmptyNetwork}
	}

	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.MemberID)
	}

	var records []domain.MemberRecord
	if batch, ok := s.source.(BatchMemberFetcher); ok {
		records, err = batch.FetchMemberRecords(ctx, ids)
	} else {
		records, err = s.fetchEach(ctx, ids)
	}
	if err != nil {
		return nil, nil, &NoDataError{RootID: rootID, Err: err}
	}
	return edges, records, nil
}

// fetchEach loads members one by one over a bounded worker pool.
func (s *NetworkService) fetchEach(ctx context.Context, ids []string) ([]domain.MemberRecord, error) {
	records := make([]domain.MemberRecord, len(ids))
	var (
		mu       sync.Mutex
		firstErr error
	)
	err := runPool(ctx, s.fetchWorkers, len(ids), func(idx int) error {
		rec, err := s.source.FetchMemberRecord(ctx, ids[idx])
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			return err
		}
		records[idx] = rec
		return nil
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Snapshot returns the applied snapshot for rootID, recomputing when none exists yet.
func (s *NetworkService) Snapshot(ctx context.Context, rootID string) (Snapshot, error) {
	rootID = normalizeMemberID(rootID)
	if snap, ok := s.generations.Current(rootID); ok {
		return snap, nil
	}
	snap, err := s.Recompute(ctx, rootID)
	if errors.Is(err, ErrSuperseded) {
		if current, ok := s.generations.Current(rootID); ok {
			return current, nil
		}
		return snap, nil
	}
	return snap, err
}

// Filtered returns a pruned copy of the network and its re-aggregated summary.
func (s *NetworkService) Filtered(ctx context.Context, rootID string, params FilterParams) (FilteredView, error) {
	snap, err := s.Snapshot(ctx, rootID)
	if err != nil {
		return FilteredView{}, err
	}
	filtered := tree.Filter(snap.Tree, params.predicate())
	return FilteredView{Tree: filtered, Summary: analytics.Aggregate(filtered)}, nil
}

// Search finds members of the network by ID or name.
func (s *NetworkService) Search(ctx context.Context, rootID, query string, limit int) ([]*domain.Member, error) {
	snap, err := s.Snapshot(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return tree.Search(snap.Tree, query, limit), nil
}

// Member returns one member of the network with its path from the root.
func (s *NetworkService) Member(ctx context.Context, rootID, memberID string) (MemberView, error) {
	snap, err := s.Snapshot(ctx, rootID)
	if err != nil {
		return MemberView{}, err
	}
	memberID = normalizeMemberID(memberID)
	idx := tree.NewParentIndex(snap.Tree)
	m, ok := idx.Member(memberID)
	if !ok {
		return MemberView{}, fmt.Errorf("%w: %s", ErrMemberNotInNetwork, memberID)
	}
	progress, err := withdrawal.ProgressFor(s.withdrawals.Policy().Splits, m.DirectIntroductions)
	if err != nil {
		return MemberView{}, err
	}
	return MemberView{Member: m, Path: idx.Path(memberID), Progress: progress}, nil
}

// PreviewWithdrawal computes a split without recording it.
func (s *NetworkService) PreviewWithdrawal(req domain.WithdrawalRequest) (domain.WithdrawalBreakdown, error) {
	b, err := s.withdrawals.Compute(req)
	if err != nil {
		return domain.WithdrawalBreakdown{}, err
	}
	s.metrics.recordWithdrawal(b.TierName)
	return b, nil
}

// RecordWithdrawal computes a split for a member using its direct introductions from the
// current snapshot and appends it to the session ledger.
func (s *NetworkService) RecordWithdrawal(ctx context.Context, in WithdrawalInput) (withdrawal.Entry, error) {
	view, err := s.Member(ctx, in.RootID, in.MemberID)
	if err != nil {
		return withdrawal.Entry{}, err
	}
	b, err := s.PreviewWithdrawal(domain.WithdrawalRequest{
		Amount:              in.Amount,
		DirectIntroductions: view.Member.DirectIntroductions,
		AutoCompound:        in.AutoCompound,
	})
	if err != nil {
		return withdrawal.Entry{}, err
	}
	entry := s.ledger.Record(view.Member.ID, b)
	s.logger.Info("withdrawal recorded",
		"member", view.Member.ID,
		"entry", entry.ID,
		"amount", b.TotalAmount,
		"split", b.SplitLabel,
	)
	return entry, nil
}

// WithdrawalHistory returns the ledger entries for memberID and the fees collected overall.
func (s *NetworkService) WithdrawalHistory(memberID string) ([]withdrawal.Entry, float64) {
	return s.ledger.History(normalizeMemberID(memberID)), s.ledger.TotalFees()
}

// Forget drops the snapshot of rootID so the refresher stops tracking it.
func (s *NetworkService) Forget(rootID string) {
	s.generations.Forget(normalizeMemberID(rootID))
}
