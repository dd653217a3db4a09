package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/repository"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	UpdatePinHash(ctx context.Context, userID int64, pinHash string) error
}

// SessionRepository is the full till lifecycle surface the canteen and
// withdrawal services need on top of what the ledger uses.
type SessionRepository interface {
	Create(ctx context.Context, session *model.CanteenSession) (*model.CanteenSession, error)
	FindByID(ctx context.Context, id int64) (*model.CanteenSession, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*model.CanteenSession, error)
	FindOpenByOpener(ctx context.Context, openerID int64, from, to time.Time) (*model.CanteenSession, error)
	Fund(ctx context.Context, id int64, amount int64) (bool, error)
	AddToBalance(ctx context.Context, id int64, delta int64) error
	Close(ctx context.Context, id int64, at time.Time) error
	MarkSettled(ctx context.Context, id int64, at time.Time, note *string) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CanteenService struct {
	sessionRepo SessionRepository
	userRepo    UserRepository
	now         func() time.Time
}

func NewCanteenService(sessionRepo SessionRepository, userRepo UserRepository) *CanteenService {
	return &CanteenService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

// Open starts the opener's till for today. One open session per opener per
// calendar day.
func (s *CanteenService) Open(ctx context.Context, userID int64) (*model.CanteenSession, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.Role != model.RoleStaff && user.Role != model.RoleAdmin {
		return nil, ErrStaffRequired
	}

	dayStart, dayEnd := s.today()
	_, err = s.sessionRepo.FindOpenByOpener(ctx, userID, dayStart, dayEnd)
	if err == nil {
		return nil, ErrSessionAlreadyOpen
	}
	if !errors.Is(err, repository.ErrCanteenNotFound) {
		return nil, fmt.Errorf("check open session: %w", err)
	}

	session, err := s.sessionRepo.Create(ctx, &model.CanteenSession{
		OpenedBy: userID,
		OpenedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Fund records the initial float, once only.
func (s *CanteenService) Fund(ctx context.Context, userID int64, amount int64) (*model.CanteenSession, error) {
	if amount < 0 {
		return nil, errors.New("amount must not be negative")
	}

	dayStart, dayEnd := s.today()
	session, err := s.sessionRepo.FindOpenByOpener(ctx, userID, dayStart, dayEnd)
	if err != nil {
		if errors.Is(err, repository.ErrCanteenNotFound) {
			return nil, ErrNoOpenSession
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}
	if session.InitialBalance > 0 {
		return nil, ErrSessionAlreadyFunded
	}

	funded, err := s.sessionRepo.Fund(ctx, session.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("fund session: %w", err)
	}
	if !funded {
		// Lost a race with another Fund on the same session.
		return nil, ErrSessionAlreadyFunded
	}

	return s.sessionRepo.FindByID(ctx, session.ID)
}

// Close stops purchases on today's session.
func (s *CanteenService) Close(ctx context.Context, userID int64) (*model.CanteenSession, error) {
	dayStart, dayEnd := s.today()
	session, err := s.sessionRepo.FindOpenByOpener(ctx, userID, dayStart, dayEnd)
	if err != nil {
		if errors.Is(err, repository.ErrCanteenNotFound) {
			return nil, ErrNoOpenSession
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}

	if err := s.sessionRepo.Close(ctx, session.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrCanteenNotFound) {
			return nil, ErrSessionAlreadyClosed
		}
		return nil, fmt.Errorf("close session: %w", err)
	}

	return s.sessionRepo.FindByID(ctx, session.ID)
}

// SettleResult carries the books-closing figures.
type SettleResult struct {
	Session   *model.CanteenSession `json:"session"`
	NetProfit int64                 `json:"net_profit"`
}

// Settle closes the books on a session. Requires Close to have happened
// first; settlement is terminal.
func (s *CanteenService) Settle(ctx context.Context, userID, canteenID int64, note string) (*SettleResult, error) {
	var result SettleResult
	err := s.sessionRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		session, err := s.sessionRepo.FindByIDForUpdate(ctx, canteenID)
		if err != nil {
			if errors.Is(err, repository.ErrCanteenNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("find session: %w", err)
		}

		if session.OpenedBy != userID {
			return ErrNotSessionOwner
		}
		if !session.IsClosed() {
			return ErrSessionNotClosed
		}
		if session.IsSettled {
			return ErrSessionAlreadySettled
		}

		var notePtr *string
		if note != "" {
			notePtr = &note
		}
		if err := s.sessionRepo.MarkSettled(ctx, session.ID, s.now(), notePtr); err != nil {
			if errors.Is(err, repository.ErrCanteenNotFound) {
				return ErrSessionAlreadySettled
			}
			return fmt.Errorf("settle session: %w", err)
		}

		settled, err := s.sessionRepo.FindByID(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("reload session: %w", err)
		}

		result = SettleResult{Session: settled, NetProfit: settled.NetProfit()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *CanteenService) Get(ctx context.Context, canteenID int64) (*model.CanteenSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, canteenID)
	if err != nil {
		if errors.Is(err, repository.ErrCanteenNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

func (s *CanteenService) today() (time.Time, time.Time) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}
