package cost

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/metrics"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/repository"

	"github.com/rs/zerolog"
)

type fakeUserRepo struct {
	users      map[string]*model.User
	getErr     error
	incrErr    error
	increments []float64
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.users[id], nil
}

func (f *fakeUserRepo) UpdateProfile(context.Context, string, repository.UserProfilePatch) error {
	return nil
}

func (f *fakeUserRepo) IncrementUsage(_ context.Context, _ string, cost float64) error {
	if f.incrErr != nil {
		return f.incrErr
	}
	f.increments = append(f.increments, cost)
	return nil
}

type fakeLedgerRepo struct {
	incrErr error
	entries []struct {
		day, userID, provider, agentID string
		cost                           float64
	}
}

func (f *fakeLedgerRepo) IncrementDaily(_ context.Context, day, userID, provider, agentID string, cost float64) error {
	if f.incrErr != nil {
		return f.incrErr
	}
	f.entries = append(f.entries, struct {
		day, userID, provider, agentID string
		cost                           float64
	}{day, userID, provider, agentID, cost})
	return nil
}

func (f *fakeLedgerRepo) GetDaily(context.Context, string) (*model.CostLedgerEntry, error) {
	return nil, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]model.AgentDefinition{{
		ID:                "invoice_parser",
		Providers:         []string{"vertex", "azure"},
		PreferredProvider: "vertex",
		CostPerRun:        0.50,
		IsActive:          true,
	}})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func newService(t *testing.T, users *fakeUserRepo, ledger *fakeLedgerRepo) Service {
	t.Helper()
	return NewService(testCatalog(t), users, ledger, metrics.New(), zerolog.Nop())
}

func TestEstimateCostSingleFile(t *testing.T) {
	s := newService(t, &fakeUserRepo{}, &fakeLedgerRepo{})
	got := s.EstimateCost("invoice_parser", model.JobInput{Files: []string{"a.pdf"}})
	if got != 0.50 {
		t.Errorf("EstimateCost = %v, want 0.50", got)
	}
}

func TestEstimateCostBulkDiscount(t *testing.T) {
	s := newService(t, &fakeUserRepo{}, &fakeLedgerRepo{})
	// 0.50 + 2 * (0.50 * 0.8) = 1.30
	got := s.EstimateCost("invoice_parser", model.JobInput{Files: []string{"a", "b", "c"}})
	if got != 1.30 {
		t.Errorf("EstimateCost = %v, want 1.30", got)
	}
}

func TestEstimateCostNoFiles(t *testing.T) {
	s := newService(t, &fakeUserRepo{}, &fakeLedgerRepo{})
	if got := s.EstimateCost("invoice_parser", model.JobInput{}); got != 0.50 {
		t.Errorf("EstimateCost = %v, want base 0.50", got)
	}
}

func TestEstimateCostUnknownAgent(t *testing.T) {
	s := newService(t, &fakeUserRepo{}, &fakeLedgerRepo{})
	if got := s.EstimateCost("nope", model.JobInput{}); got != 0 {
		t.Errorf("EstimateCost = %v, want 0 for unknown agent", got)
	}
}

func TestCanUserExecuteCeiling(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u1": {UserID: "u1", Role: model.RoleClientDemo, TotalCostThisMonth: 4.80},
	}}
	s := newService(t, users, &fakeLedgerRepo{})

	if s.CanUserExecute(context.Background(), "u1", 0.50) {
		t.Error("4.80 + 0.50 exceeds the demo ceiling of 5; want false")
	}
	if !s.CanUserExecute(context.Background(), "u1", 0.10) {
		t.Error("4.80 + 0.10 fits under the demo ceiling of 5; want true")
	}
}

func TestCanUserExecuteUnknownRoleUsesDemoCeiling(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u1": {UserID: "u1", Role: "mystery_tier", TotalCostThisMonth: 4.99},
	}}
	s := newService(t, users, &fakeLedgerRepo{})
	if s.CanUserExecute(context.Background(), "u1", 0.50) {
		t.Error("unknown role must fall back to the demo ceiling")
	}
}

func TestCanUserExecuteFailsClosed(t *testing.T) {
	s := newService(t, &fakeUserRepo{getErr: errors.New("store down")}, &fakeLedgerRepo{})
	if s.CanUserExecute(context.Background(), "u1", 0.01) {
		t.Error("load error must fail closed")
	}
	s = newService(t, &fakeUserRepo{}, &fakeLedgerRepo{})
	if s.CanUserExecute(context.Background(), "missing", 0.01) {
		t.Error("missing user must fail closed")
	}
}

func TestTrackCostIncrementsUserAndLedger(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{}}
	ledger := &fakeLedgerRepo{}
	s := newService(t, users, ledger)

	s.TrackCost(context.Background(), "u1", "job-1", "invoice_parser", "vertex", 0.50)

	if len(users.increments) != 1 || users.increments[0] != 0.50 {
		t.Errorf("user increments = %v, want [0.50]", users.increments)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(ledger.entries))
	}
	e := ledger.entries[0]
	if e.userID != "u1" || e.provider != "vertex" || e.agentID != "invoice_parser" || e.cost != 0.50 {
		t.Errorf("unexpected ledger entry: %+v", e)
	}
}

func TestTrackCostSwallowsPersistenceFailures(t *testing.T) {
	users := &fakeUserRepo{incrErr: errors.New("store down")}
	ledger := &fakeLedgerRepo{incrErr: errors.New("store down")}
	s := newService(t, users, ledger)

	// Must not panic and must not propagate; tracking is best-effort.
	s.TrackCost(context.Background(), "u1", "job-1", "invoice_parser", "vertex", 0.50)
}

func TestTrackCostCounter(t *testing.T) {
	m := metrics.New()
	users := &fakeUserRepo{users: map[string]*model.User{}}
	s := NewService(testCatalog(t), users, &fakeLedgerRepo{}, m, zerolog.Nop())

	s.TrackCost(context.Background(), "u1", "job-1", "invoice_parser", "vertex", 0.50)
	if got := testutil.ToFloat64(m.CostTrackedTotal); got != 1 {
		t.Errorf("CostTrackedTotal = %v after a successful write, want 1", got)
	}

	m = metrics.New()
	s = NewService(testCatalog(t), &fakeUserRepo{incrErr: errors.New("store down")}, &fakeLedgerRepo{}, m, zerolog.Nop())
	s.TrackCost(context.Background(), "u1", "job-1", "invoice_parser", "vertex", 0.50)
	if got := testutil.ToFloat64(m.CostTrackedTotal); got != 0 {
		t.Errorf("CostTrackedTotal = %v after a failed write, want 0", got)
	}
}

func TestGetUserMonthlyCost(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u1": {UserID: "u1", TotalCostThisMonth: 12.34},
	}}
	s := newService(t, users, &fakeLedgerRepo{})

	if got := s.GetUserMonthlyCost(context.Background(), "u1"); got != 12.34 {
		t.Errorf("GetUserMonthlyCost = %v, want 12.34", got)
	}
	if got := s.GetUserMonthlyCost(context.Background(), "missing"); got != 0 {
		t.Errorf("GetUserMonthlyCost = %v, want 0 for missing user", got)
	}

	s = newService(t, &fakeUserRepo{getErr: errors.New("store down")}, &fakeLedgerRepo{})
	if got := s.GetUserMonthlyCost(context.Background(), "u1"); got != 0 {
		t.Errorf("GetUserMonthlyCost = %v, want 0 on error", got)
	}
}
