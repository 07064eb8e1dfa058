package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/cost"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/repository"
)

// UsageSummary is the caller-facing view of this month's consumption.
type UsageSummary struct {
	TotalCost     float64
	TotalRequests int
	Ceiling       float64
	Remaining     float64
}

// UserService exposes the authenticated user's own profile and usage.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, patch repository.UserProfilePatch) (*model.User, error)
	GetUsage(ctx context.Context, userID string) (*UsageSummary, error)
}

type userService struct {
	repo   repository.UserRepository
	logger zerolog.Logger
}

func NewUserService(repo repository.UserRepository, logger zerolog.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user profile")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to load profile", err)
	}
	if user == nil {
		return nil, apperror.New(apperror.KindUserNotFound, "user not found")
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, patch repository.UserProfilePatch) (*model.User, error) {
	if err := s.repo.UpdateProfile(ctx, userID, patch); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update user profile")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to update profile", err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *userService) GetUsage(ctx context.Context, userID string) (*UsageSummary, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	ceiling := cost.CeilingForRole(user.Role)
	remaining := ceiling - user.TotalCostThisMonth
	if remaining < 0 {
		remaining = 0
	}
	return &UsageSummary{
		TotalCost:     user.TotalCostThisMonth,
		TotalRequests: user.TotalRequestsThisMonth,
		Ceiling:       ceiling,
		Remaining:     remaining,
	}, nil
}
