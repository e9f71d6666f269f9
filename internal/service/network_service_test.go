package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/logging"
)

type stubSource struct {
	mu        sync.Mutex
	edges     []domain.Edge
	records   map[string]domain.MemberRecord
	edgesErr  error
	memberErr error
	onEdges   func(call int)
	edgeCalls int
	inFlight  int32
	maxFlight int32
}

func newStubSource() *stubSource {
	s := &stubSource{records: map[string]domain.MemberRecord{}}
	s.add("A", "", 250, true)
	s.add("B", "A", 250, true)
	s.add("C", "A", 250, false)
	s.add("D", "B", 250, true)
	return s
}

func (s *stubSource) add(id, sponsor string, volume float64, active bool) {
	s.edges = append(s.edges, domain.Edge{MemberID: id, SponsorID: sponsor})
	s.records[id] = domain.MemberRecord{
		ID: id,
		MemberAttributes: domain.MemberAttributes{
			Name:      "member " + id,
			Tier:      "Gold",
			Volume:    volume,
			IsActive:  active,
			JoinOrder: int64(len(s.edges)),
		},
	}
}

func (s *stubSource) FetchEdges(ctx context.Context, rootID string, maxDepth int) ([]domain.Edge, error) {
	s.mu.Lock()
	s.edgeCalls++
	call := s.edgeCalls
	hook := s.onEdges
	edges := append([]domain.Edge(nil), s.edges...)
	err := s.edgesErr
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func (s *stubSource) FetchMemberRecord(ctx context.Context, id string) (domain.MemberRecord, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		current := atomic.LoadInt32(&s.maxFlight)
		if n <= current || atomic.CompareAndSwapInt32(&s.maxFlight, current, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberErr != nil {
		return domain.MemberRecord{}, s.memberErr
	}
	rec, ok := s.records[id]
	if !ok {
		return domain.MemberRecord{}, errors.New("unknown member " + id)
	}
	return rec, nil
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func newTestService(t *testing.T, source NetworkDataSource, opts Options) *NetworkService {
	t.Helper()
	svc, err := NewNetworkService(logging.Discard(), source, domain.DefaultRewardPolicy(), domain.DefaultWithdrawalPolicy(), opts)
	if err != nil {
		t.Fatalf("unexpected error creating service: %v", err)
	}
	svc.WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })
	return svc
}

func TestRecomputeBuildsAnnotatedSnapshot(t *testing.T) {
	metrics := NewMetrics("")
	svc := newTestService(t, newStubSource(), Options{Metrics: metrics})

	snap, err := svc.Recompute(context.Background(), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Generation == 0 {
		t.Fatalf("expected a generation to be assigned")
	}
	if snap.Summary.TotalMembers != 4 || snap.Summary.ActiveMembers != 3 {
		t.Fatalf("unexpected totals: %+v", snap.Summary)
	}
	if !approx(snap.Summary.TotalEarnings, 400) {
		t.Fatalf("expected total earnings 400, got %v", snap.Summary.TotalEarnings)
	}
	if !approx(snap.Tree.Root.Rewards.DirectBonus, 100) {
		t.Fatalf("expected root direct bonus 100, got %v", snap.Tree.Root.Rewards.DirectBonus)
	}
	if !snap.BuiltAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected build time %v", snap.BuiltAt)
	}

	cached, err := svc.Snapshot(context.Background(), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached.Generation != snap.Generation {
		t.Fatalf("expected cached generation %d, got %d", snap.Generation, cached.Generation)
	}
	if roots := svc.TrackedRoots(); len(roots) != 1 || roots[0] != "A" {
		t.Fatalf("unexpected tracked roots %v", roots)
	}

	families, err := metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "comptree_network_recomputes_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected recompute counter to be registered")
	}
}

func TestRecomputeFetchesMembersConcurrently(t *testing.T) {
	source := newStubSource()
	for i := 0; i < 40; i++ {
		source.add("M"+string(rune('a'+i%26))+string(rune('a'+i/26)), "A", 10, true)
	}
	svc := newTestService(t, source, Options{FetchWorkers: 4})

	snap, err := svc.Recompute(context.Background(), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Summary.TotalMembers != 44 {
		t.Fatalf("expected 44 members, got %d", snap.Summary.TotalMembers)
	}
	if peak := atomic.LoadInt32(&source.maxFlight); peak > 4 {
		t.Fatalf("expected at most 4 concurrent fetches, saw %d", peak)
	}
}

func TestRecomputeReportsNoData(t *testing.T) {
	source := newStubSource()
	source.edgesErr = errors.New("connection refused")
	svc := newTestService(t, source, Options{})

	_, err := svc.Recompute(context.Background(), "A")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	var noData *NoDataError
	if !errors.As(err, &noData) || noData.RootID != "A" {
		t.Fatalf("expected NoDataError for root A, got %v", err)
	}

	empty := &stubSource{records: map[string]domain.MemberRecord{}}
	svc = newTestService(t, empty, Options{})
	if _, err := svc.Recompute(context.Background(), "A"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for empty network, got %v", err)
	}

	failing := newStubSource()
	failing.memberErr = errors.New("timeout")
	svc = newTestService(t, failing, Options{})
	if _, err := svc.Recompute(context.Background(), "A"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for member fetch failure, got %v", err)
	}
}

func TestFailedRecomputesAreNotTracked(t *testing.T) {
	source := newStubSource()
	source.edgesErr = errors.New("no such root")
	svc := newTestService(t, source, Options{})

	for _, root := range []string{"bogus-1", "bogus-2", "bogus-3"} {
		if _, err := svc.Snapshot(context.Background(), root); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData for %s, got %v", root, err)
		}
	}
	if roots := svc.TrackedRoots(); len(roots) != 0 {
		t.Fatalf("expected failed roots to be untracked, got %v", roots)
	}

	refresher, err := NewRefresher(logging.Discard(), svc, "@every 1h", time.Second)
	if err != nil {
		t.Fatalf("unexpected refresher error: %v", err)
	}
	before := source.edgeCalls
	if applied := refresher.RunOnce(context.Background()); applied != 0 {
		t.Fatalf("expected nothing applied, got %d", applied)
	}
	if source.edgeCalls != before {
		t.Fatalf("expected no refetches, got %d", source.edgeCalls-before)
	}

	source.edgesErr = nil
	if _, err := svc.Recompute(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected recompute error: %v", err)
	}
	source.edgesErr = errors.New("graph down")
	if _, err := svc.Recompute(context.Background(), "A"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if roots := svc.TrackedRoots(); len(roots) != 1 || roots[0] != "A" {
		t.Fatalf("expected A to stay tracked after a failed refresh, got %v", roots)
	}
	if _, err := svc.Snapshot(context.Background(), "A"); err != nil {
		t.Fatalf("expected last good snapshot, got %v", err)
	}
}

func TestRecomputeSurfacesStructuralErrors(t *testing.T) {
	source := newStubSource()
	source.edges = append(source.edges, domain.Edge{MemberID: "Z", SponsorID: "ghost"})
	source.records["Z"] = domain.MemberRecord{ID: "Z", MemberAttributes: domain.MemberAttributes{Tier: "Gold"}}
	svc := newTestService(t, source, Options{})

	_, err := svc.Recompute(context.Background(), "A")
	if !errors.Is(err, domain.ErrDanglingEdge) {
		t.Fatalf("expected dangling edge error, got %v", err)
	}
	if _, ok := svc.generations.Current("A"); ok {
		t.Fatalf("failed recompute must not be applied")
	}
}

func TestRecomputeDiscardsSupersededGeneration(t *testing.T) {
	source := newStubSource()
	svc := newTestService(t, source, Options{Metrics: NewMetrics("test")})

	var newer Snapshot
	var newerErr error
	source.onEdges = func(call int) {
		if call != 1 {
			return
		}
		source.mu.Lock()
		source.records["A"] = domain.MemberRecord{ID: "A", MemberAttributes: domain.MemberAttributes{Tier: "Gold", Volume: 500, IsActive: true}}
		source.mu.Unlock()
		newer, newerErr = svc.Recompute(context.Background(), "A")
	}

	_, err := svc.Recompute(context.Background(), "A")
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if newerErr != nil {
		t.Fatalf("newer recompute failed: %v", newerErr)
	}

	current, ok := svc.generations.Current("A")
	if !ok {
		t.Fatalf("expected newer snapshot to be applied")
	}
	if current.Generation != newer.Generation {
		t.Fatalf("expected generation %d, got %d", newer.Generation, current.Generation)
	}
	if current.Tree.Root.Volume != 500 {
		t.Fatalf("expected newer data to win, got root volume %v", current.Tree.Root.Volume)
	}
}

func TestFilteredSearchAndMember(t *testing.T) {
	svc := newTestService(t, newStubSource(), Options{})
	ctx := context.Background()

	view, err := svc.Filtered(ctx, "A", FilterParams{ActiveOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Summary.TotalMembers != 3 {
		t.Fatalf("expected 3 active members, got %d", view.Summary.TotalMembers)
	}

	results, err := svc.Search(ctx, "A", "member d", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "D" {
		t.Fatalf("unexpected search results %+v", results)
	}

	member, err := svc.Member(ctx, "A", "D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(member.Path) != 3 || member.Path[0] != "A" || member.Path[2] != "D" {
		t.Fatalf("unexpected path %v", member.Path)
	}

	root, err := svc.Member(ctx, "A", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Progress.Current.Name != "Starter" || root.Progress.ReferralsNeeded != 3 {
		t.Fatalf("unexpected progress %+v", root.Progress)
	}

	if _, err := svc.Member(ctx, "A", "nobody"); !errors.Is(err, ErrMemberNotInNetwork) {
		t.Fatalf("expected ErrMemberNotInNetwork, got %v", err)
	}
}

func TestRecordWithdrawalUsesNetworkDirects(t *testing.T) {
	svc := newTestService(t, newStubSource(), Options{})
	ctx := context.Background()

	entry, err := svc.RecordWithdrawal(ctx, WithdrawalInput{RootID: "A", MemberID: "A", Amount: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := entry.Breakdown
	if b.TierName != "Starter" || !approx(b.WithdrawAmount, 700) || !approx(b.AdminFee, 35) || !approx(b.ReinvestAmount, 300) {
		t.Fatalf("unexpected breakdown %+v", b)
	}
	if entry.MemberID != "A" || entry.ID == "" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	if _, err := svc.RecordWithdrawal(ctx, WithdrawalInput{RootID: "A", MemberID: "B", Amount: -1}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	history, fees := svc.WithdrawalHistory("A")
	if len(history) != 1 || !approx(fees, 35) {
		t.Fatalf("unexpected history %v fees %v", history, fees)
	}
}

func TestPreviewWithdrawalAutoCompound(t *testing.T) {
	svc := newTestService(t, newStubSource(), Options{})
	b, err := svc.PreviewWithdrawal(domain.WithdrawalRequest{Amount: 400, DirectIntroductions: 10, AutoCompound: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.UserReceives != 0 || !approx(b.CompoundBonus, 20) || !approx(b.TotalReinvest, 420) {
		t.Fatalf("unexpected breakdown %+v", b)
	}
}

func TestForgetStopsTracking(t *testing.T) {
	svc := newTestService(t, newStubSource(), Options{})
	if _, err := svc.Recompute(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Forget("A")
	if roots := svc.TrackedRoots(); len(roots) != 0 {
		t.Fatalf("expected no tracked roots, got %v", roots)
	}
}

func TestNewNetworkServiceRejectsInvalidPolicy(t *testing.T) {
	policy := domain.DefaultRewardPolicy()
	policy.DirectBonusRate = 0.9
	if _, err := NewNetworkService(logging.Discard(), newStubSource(), policy, domain.DefaultWithdrawalPolicy(), Options{}); !errors.Is(err, domain.ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
	if _, err := NewNetworkService(logging.Discard(), nil, domain.DefaultRewardPolicy(), domain.DefaultWithdrawalPolicy(), Options{}); err == nil {
		t.Fatalf("expected error for missing data source")
	}
}

func TestNormalizeMemberID(t *testing.T) {
	if got := normalizeMemberID("  0xABCdef "); got != "0xabcdef" {
		t.Fatalf("expected lowercased address, got %q", got)
	}
	if got := normalizeMemberID(" Alice "); got != "Alice" {
		t.Fatalf("expected trimmed id, got %q", got)
	}
}
