package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type PinService struct {
	userRepo UserRepository
}

func NewPinService(userRepo UserRepository) *PinService {
	return &PinService{userRepo: userRepo}
}

// Add sets a transaction PIN for a user who has none yet.
func (s *PinService) Add(ctx context.Context, p model.PinSetRequest) error {
	if err := p.Validate(); err != nil {
		return err
	}

	user, err := s.findUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if user.HasPin() {
		return ErrPinAlreadySet
	}

	return s.storePin(ctx, p.UserID, p.Pin)
}

// Update rotates an existing PIN. The current PIN must verify and the new
// one must actually differ.
func (s *PinService) Update(ctx context.Context, p model.PinSetRequest) error {
	if err := p.Validate(); err != nil {
		return err
	}

	user, err := s.findUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if !user.HasPin() {
		return ErrPinNotSet
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PinHash), []byte(p.CurrentPin)); err != nil {
		return ErrPinMismatch
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PinHash), []byte(p.Pin)) == nil {
		return ErrPinUnchanged
	}

	return s.storePin(ctx, p.UserID, p.Pin)
}

func (s *PinService) findUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PinService) storePin(ctx context.Context, userID int64, pin string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.userRepo.UpdatePinHash(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("store pin: %w", err)
	}
	return nil
}
