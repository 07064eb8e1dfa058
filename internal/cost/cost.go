// Package cost estimates job cost before execution, records actual spend
// after execution, and enforces per-tier monthly spending ceilings.
package cost

import (
	"context"
	"math"
	"time"

	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/metrics"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/repository"

	"github.com/rs/zerolog"
)

// extraFileRate discounts each file beyond the first to 80% of a
// standard run.
const extraFileRate = 0.8

// Monthly spending ceilings in USD per role. Unknown roles get the demo
// ceiling.
var roleCeilings = map[model.Role]float64{
	model.RoleClientDemo:       5,
	model.RoleClientBasic:      50,
	model.RoleClientPro:        200,
	model.RoleClientEnterprise: 1000,
	model.RoleAdmin:            999999,
}

// CeilingForRole returns the monthly USD ceiling for a role. Unknown
// roles get the demo ceiling.
func CeilingForRole(role model.Role) float64 {
	if c, ok := roleCeilings[role]; ok {
		return c
	}
	return roleCeilings[model.RoleClientDemo]
}

type Service interface {
	// EstimateCost returns the projected USD cost of running the agent
	// against the input, or 0 for an unknown agent.
	EstimateCost(agentID string, input model.JobInput) float64
	// CanUserExecute reports whether the estimated cost fits under the
	// user's monthly ceiling. Fails closed on any load error.
	CanUserExecute(ctx context.Context, userID string, estimatedCost float64) bool
	// TrackCost records actual spend against the user and the daily
	// ledger. Best-effort: persistence failures are logged and swallowed,
	// never surfaced to the job pipeline.
	TrackCost(ctx context.Context, userID, jobID, agentID, provider string, actualCost float64)
	// GetUserMonthlyCost returns the user's running monthly total, or 0
	// if the user is missing or the load fails.
	GetUserMonthlyCost(ctx context.Context, userID string) float64
}

type service struct {
	catalog *catalog.Catalog
	users   repository.UserRepository
	ledger  repository.LedgerRepository
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(cat *catalog.Catalog, users repository.UserRepository, ledger repository.LedgerRepository, m *metrics.Metrics, logger zerolog.Logger) Service {
	return &service{
		catalog: cat,
		users:   users,
		ledger:  ledger,
		metrics: m,
		logger:  logger.With().Str("service", "CostService").Logger(),
	}
}

func (s *service) EstimateCost(agentID string, input model.JobInput) float64 {
	agent, ok := s.catalog.Get(agentID)
	if !ok {
		return 0
	}
	c := agent.CostPerRun
	if n := len(input.Files); n > 1 {
		c += float64(n-1) * agent.CostPerRun * extraFileRate
	}
	return round4(c)
}

func (s *service) CanUserExecute(ctx context.Context, userID string, estimatedCost float64) bool {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for spending check")
		return false
	}
	if user == nil {
		return false
	}
	return user.TotalCostThisMonth+estimatedCost <= CeilingForRole(user.Role)
}

func (s *service) TrackCost(ctx context.Context, userID, jobID, agentID, provider string, actualCost float64) {
	day := time.Now().UTC().Format(model.LedgerDayFormat)

	tracked := true
	if err := s.users.IncrementUsage(ctx, userID, actualCost); err != nil {
		tracked = false
		s.logger.Error().Err(err).
			Str("user_id", userID).Str("job_id", jobID).
			Msg("Failed to increment user usage; cost tracking is best-effort")
	}
	if err := s.ledger.IncrementDaily(ctx, day, userID, provider, agentID, actualCost); err != nil {
		tracked = false
		s.logger.Error().Err(err).
			Str("day", day).Str("job_id", jobID).
			Msg("Failed to increment daily cost ledger; cost tracking is best-effort")
	}
	if tracked {
		s.metrics.CostTrackedTotal.Inc()
	}

	s.logger.Info().
		Str("user_id", userID).Str("job_id", jobID).Str("agent_id", agentID).
		Str("provider", provider).Float64("cost", actualCost).
		Msg("Cost tracked")
}

func (s *service) GetUserMonthlyCost(ctx context.Context, userID string) float64 {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user monthly cost")
		return 0
	}
	if user == nil {
		return 0
	}
	return user.TotalCostThisMonth
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
