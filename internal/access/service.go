// Package access provides admin and denylist checks for booking operations.
package access

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"slotbook/internal/database"
)

// AdminRepository answers whether a requester holds admin rights.
type AdminRepository interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
	AddAdmin(ctx context.Context, uid, addedBy string) error
}

// DenylistRepository manages requesters barred from booking.
type DenylistRepository interface {
	IsBlocked(ctx context.Context, uid string) (bool, error)
	GetBlockedRequester(ctx context.Context, uid string) (*database.BlockedRequester, error)
	BlockRequester(ctx context.Context, uid, reason, blockedBy string) error
	UnblockRequester(ctx context.Context, uid string) error
	ListBlockedRequesters(ctx context.Context) ([]database.BlockedRequester, error)
}

// Service implements access control over bookings.
type Service struct {
	admins   AdminRepository
	denylist DenylistRepository
	logger   zerolog.Logger
}

// NewService creates a new access control service.
func NewService(admins AdminRepository, denylist DenylistRepository, logger zerolog.Logger) *Service {
	return &Service{
		admins:   admins,
		denylist: denylist,
		logger:   logger.With().Str("component", "access").Logger(),
	}
}

// IsAdmin checks if a requester has administrative rights.
func (s *Service) IsAdmin(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	return s.admins.IsAdmin(ctx, uid)
}

// IsBlocked checks if a requester is on the denylist.
func (s *Service) IsBlocked(ctx context.Context, uid string) (bool, error) {
	return s.denylist.IsBlocked(ctx, uid)
}

// AddAdmin grants administrative rights. Only an existing admin may
// promote.
func (s *Service) AddAdmin(ctx context.Context, uid, addedBy string) error {
	isAdmin, err := s.admins.IsAdmin(ctx, addedBy)
	if err != nil {
		return fmt.Errorf("checking admin status: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("requester %s is not an admin", addedBy)
	}

	if err := s.admins.AddAdmin(ctx, uid, addedBy); err != nil {
		return err
	}

	s.logger.Info().Str("uid", uid).Str("added_by", addedBy).Msg("admin added")
	return nil
}

// BlockRequester adds a requester to the denylist. Only admins may block.
func (s *Service) BlockRequester(ctx context.Context, uid, reason, blockedBy string) error {
	isAdmin, err := s.admins.IsAdmin(ctx, blockedBy)
	if err != nil {
		return fmt.Errorf("checking admin status: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("requester %s is not an admin", blockedBy)
	}

	if err := s.denylist.BlockRequester(ctx, uid, reason, blockedBy); err != nil {
		return err
	}

	s.logger.Info().
		Str("uid", uid).
		Str("blocked_by", blockedBy).
		Str("reason", reason).
		Msg("requester blocked")

	return nil
}

// UnblockRequester removes a requester from the denylist.
func (s *Service) UnblockRequester(ctx context.Context, uid string) error {
	if err := s.denylist.UnblockRequester(ctx, uid); err != nil {
		return err
	}

	s.logger.Info().Str("uid", uid).Msg("requester unblocked")
	return nil
}

// ListBlocked returns all denylisted requesters.
func (s *Service) ListBlocked(ctx context.Context) ([]database.BlockedRequester, error) {
	return s.denylist.ListBlockedRequesters(ctx)
}
