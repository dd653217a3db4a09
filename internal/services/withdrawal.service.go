package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/repository"
)

// WithdrawalTransactionRepository is the transaction-log surface of the
// withdrawal state machine: Requested(pending) -> Approved(success) |
// Rejected(failed).
type WithdrawalTransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	FindPendingWithdrawal(ctx context.Context, requestID int64) (*model.Transaction, error)
	PendingWithdrawalExists(ctx context.Context, canteenID int64) (bool, error)
	MarkWithdrawalApproved(ctx context.Context, requestID, adminID int64) error
	MarkWithdrawalRejected(ctx context.Context, requestID, adminID int64, reason string) error
}

type WithdrawalService struct {
	sessionRepo     SessionRepository
	transactionRepo WithdrawalTransactionRepository
	userRepo        UserRepository
	now             func() time.Time
}

func NewWithdrawalService(sessionRepo SessionRepository, transactionRepo WithdrawalTransactionRepository, userRepo UserRepository) *WithdrawalService {
	return &WithdrawalService{
		sessionRepo:     sessionRepo,
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		now:             time.Now,
	}
}

// Request asks to move cash out of a closed till. No balance moves until an
// admin approves; at most one request may be in flight per session.
func (s *WithdrawalService) Request(ctx context.Context, p model.WithdrawalCreateRequest) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.FindByID(ctx, p.CanteenID)
	if err != nil {
		if errors.Is(err, repository.ErrCanteenNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	if session.OpenedBy != p.OpenerID {
		return nil, ErrNotSessionOwner
	}
	if !session.IsClosed() {
		return nil, ErrSessionNotClosed
	}
	if session.CurrentBalance < p.Amount {
		return nil, ErrCanteenInsufficientBalance
	}

	pending, err := s.transactionRepo.PendingWithdrawalExists(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("check pending withdrawal: %w", err)
	}
	if pending {
		return nil, ErrPendingWithdrawalExists
	}

	var note *string
	if p.Note != "" {
		note = &p.Note
	}
	request, err := s.transactionRepo.Create(ctx, &model.Transaction{
		UserID:    p.OpenerID,
		CanteenID: &session.ID,
		Type:      model.TransactionTypeWithdrawal,
		Status:    model.TransactionStatusPending,
		Amount:    p.Amount,
		Note:      note,
	})
	if err != nil {
		return nil, fmt.Errorf("create withdrawal request: %w", err)
	}
	return request, nil
}

// Approve moves the cash. The request row flips pending -> success and a
// second execution row records the actual movement, so the audit trail keeps
// "asked for" and "actually moved" apart.
func (s *WithdrawalService) Approve(ctx context.Context, p model.WithdrawalDecision) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, p.AdminID); err != nil {
		return nil, err
	}

	var execution *model.Transaction
	err := s.sessionRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		request, err := s.transactionRepo.FindPendingWithdrawal(ctx, p.RequestID)
		if err != nil {
			return mapRequestError(err)
		}
		if request.CanteenID == nil {
			return fmt.Errorf("withdrawal request %d has no session reference", request.ID)
		}

		session, err := s.sessionRepo.FindByIDForUpdate(ctx, *request.CanteenID)
		if err != nil {
			if errors.Is(err, repository.ErrCanteenNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("lock session: %w", err)
		}

		// Closed sessions should not drift, but re-check under the lock
		// before moving money.
		if session.CurrentBalance < request.Amount {
			return ErrCanteenInsufficientBalance
		}

		if err := s.sessionRepo.AddToBalance(ctx, session.ID, -request.Amount); err != nil {
			return fmt.Errorf("debit canteen: %w", err)
		}

		if err := s.transactionRepo.MarkWithdrawalApproved(ctx, request.ID, p.AdminID); err != nil {
			return mapRequestError(err)
		}

		execution, err = s.transactionRepo.Create(ctx, &model.Transaction{
			UserID:     request.UserID,
			CanteenID:  request.CanteenID,
			Type:       model.TransactionTypeWithdrawal,
			Status:     model.TransactionStatusSuccess,
			Amount:     request.Amount,
			RequestID:  &request.ID,
			ApprovedBy: &p.AdminID,
		})
		if err != nil {
			return fmt.Errorf("create execution transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return execution, nil
}

// Reject closes the request with a structured reason. No balance movement.
func (s *WithdrawalService) Reject(ctx context.Context, p model.WithdrawalDecision) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Reason == "" {
		return errors.New("reason is required")
	}

	if err := s.requireAdmin(ctx, p.AdminID); err != nil {
		return err
	}

	return s.sessionRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.transactionRepo.FindPendingWithdrawal(ctx, p.RequestID); err != nil {
			return mapRequestError(err)
		}
		if err := s.transactionRepo.MarkWithdrawalRejected(ctx, p.RequestID, p.AdminID, p.Reason); err != nil {
			return mapRequestError(err)
		}
		return nil
	})
}

func (s *WithdrawalService) requireAdmin(ctx context.Context, adminID int64) error {
	admin, err := s.userRepo.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find admin: %w", err)
	}
	if admin.Role != model.RoleAdmin {
		return ErrAdminRequired
	}
	return nil
}

func mapRequestError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTransactionNotFound):
		return ErrRequestNotFound
	case errors.Is(err, repository.ErrRequestNotPending):
		return ErrRequestNotPending
	default:
		return err
	}
}
