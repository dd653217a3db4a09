package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahpay/canteen-ledger/internal/model"
	"github.com/sekolahpay/canteen-ledger/internal/repository"
	"github.com/sekolahpay/canteen-ledger/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// PinThreshold is the purchase amount above which a PIN is mandatory.
const PinThreshold = 20000

type WalletRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	FindByUserIDForUpdate(ctx context.Context, userID int64) (*model.Wallet, error)
	Credit(ctx context.Context, walletID int64, amount int64) error
	Debit(ctx context.Context, walletID int64, amount int64) error
	GetBalance(ctx context.Context, walletID int64) (int64, error)
	MarkToppedUp(ctx context.Context, walletID int64, at time.Time) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CardRepository interface {
	FindActiveByUID(ctx context.Context, uid string) (*model.RfidCard, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	FindSuccessfulPurchase(ctx context.Context, id int64) (*model.Transaction, error)
	RefundExists(ctx context.Context, originalTransactionID int64) (bool, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type CanteenRepository interface {
	FindOpenByOpener(ctx context.Context, openerID int64, from, to time.Time) (*model.CanteenSession, error)
	AddToBalance(ctx context.Context, id int64, delta int64) error
}

type AttendanceRepository interface {
	FindCheckIn(ctx context.Context, userID int64, from, to time.Time) (*model.Attendance, error)
}

// EventPublisher is the queue side of the notification pipeline.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type LedgerService struct {
	walletRepo      WalletRepository
	cardRepo        CardRepository
	transactionRepo TransactionRepository
	canteenRepo     CanteenRepository
	attendanceRepo  AttendanceRepository
	events          EventPublisher
	now             func() time.Time
}

func NewLedgerService(
	walletRepo WalletRepository,
	cardRepo CardRepository,
	transactionRepo TransactionRepository,
	canteenRepo CanteenRepository,
	attendanceRepo AttendanceRepository,
	events EventPublisher,
) *LedgerService {
	return &LedgerService{
		walletRepo:      walletRepo,
		cardRepo:        cardRepo,
		transactionRepo: transactionRepo,
		canteenRepo:     canteenRepo,
		attendanceRepo:  attendanceRepo,
		events:          events,
		now:             time.Now,
	}
}

// TopUpResult reports the committed state back to the caller.
type TopUpResult struct {
	TransactionID int64 `json:"transaction_id"`
	Balance       int64 `json:"balance"`
}

func (s *LedgerService) TopUp(ctx context.Context, p model.TopUpRequest) (*TopUpResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	card, err := s.cardRepo.FindActiveByUID(ctx, p.CardUID)
	if err != nil {
		return nil, mapCardError(err)
	}

	wallet, err := s.walletRepo.FindByUserID(ctx, card.UserID)
	if err != nil {
		return nil, mapWalletError(err)
	}

	var result TopUpResult
	err = s.walletRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.walletRepo.Credit(ctx, wallet.ID, p.Amount); err != nil {
			return mapWalletError(err)
		}

		if err := s.walletRepo.MarkToppedUp(ctx, wallet.ID, s.now()); err != nil {
			return mapWalletError(err)
		}

		txn, err := s.transactionRepo.Create(ctx, &model.Transaction{
			UserID:     card.UserID,
			RfidCardID: &card.ID,
			Type:       model.TransactionTypeTopUp,
			Status:     model.TransactionStatusSuccess,
			Amount:     p.Amount,
		})
		if err != nil {
			return fmt.Errorf("create top-up transaction: %w", err)
		}

		balance, err := s.walletRepo.GetBalance(ctx, wallet.ID)
		if err != nil {
			return mapWalletError(err)
		}

		result = TopUpResult{TransactionID: txn.ID, Balance: balance}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindUnexpected {
			s.writeFailedAudit(ctx, card.UserID, &card.ID, nil, model.TransactionTypeTopUp, p.Amount, err)
		}
		return nil, err
	}

	s.notify(ctx, card, model.NotificationTopUp, p.Amount, result.Balance, result.TransactionID)
	return &result, nil
}

// PurchaseResult reports the committed state back to the caller.
type PurchaseResult struct {
	TransactionID int64 `json:"transaction_id"`
	Balance       int64 `json:"balance"`
	CanteenID     int64 `json:"canteen_id"`
}

// Purchase runs in two phases: an unlocked validation pass that can be
// retried without side effects, then an atomic apply under the wallet lock.
// The balance is re-checked under the lock; two taps racing past the
// unlocked pre-check cannot overdraw.
func (s *LedgerService) Purchase(ctx context.Context, p model.PurchaseRequest) (*PurchaseResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// Phase 1: validate, no locks held.
	card, err := s.cardRepo.FindActiveByUID(ctx, p.CardUID)
	if err != nil {
		return nil, mapCardError(err)
	}

	dayStart, dayEnd := s.today()
	attendance, err := s.attendanceRepo.FindCheckIn(ctx, card.UserID, dayStart, dayEnd)
	if err != nil {
		if errors.Is(err, repository.ErrAttendanceNotFound) {
			return nil, ErrNoCheckIn
		}
		return nil, fmt.Errorf("find check-in: %w", err)
	}
	if attendance.CheckedOutAt != nil {
		return nil, ErrAlreadyCheckedOut
	}

	session, err := s.canteenRepo.FindOpenByOpener(ctx, p.OpenerID, dayStart, dayEnd)
	if err != nil {
		if errors.Is(err, repository.ErrCanteenNotFound) {
			return nil, ErrNoOpenSession
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}

	wallet, err := s.walletRepo.FindByUserID(ctx, card.UserID)
	if err != nil {
		return nil, mapWalletError(err)
	}
	if wallet.Balance < p.Amount {
		return nil, ErrInsufficientBalance
	}

	// PIN gate sits between validation and locking so a bad PIN never
	// holds the wallet row.
	if p.Amount > PinThreshold {
		if err := s.verifyPin(card.User, p.Pin); err != nil {
			s.writeFailedAudit(ctx, card.UserID, &card.ID, &session.ID, model.TransactionTypePurchase, p.Amount, err)
			return nil, err
		}
	}

	// Phase 2: apply atomically under the wallet lock.
	var result PurchaseResult
	err = s.walletRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.walletRepo.FindByUserIDForUpdate(ctx, card.UserID)
		if err != nil {
			return mapWalletError(err)
		}
		if locked.Balance < p.Amount {
			return ErrInsufficientBalance
		}

		if err := s.walletRepo.Debit(ctx, locked.ID, p.Amount); err != nil {
			return mapWalletError(err)
		}

		if err := s.canteenRepo.AddToBalance(ctx, session.ID, p.Amount); err != nil {
			return fmt.Errorf("credit canteen: %w", err)
		}

		txn, err := s.transactionRepo.Create(ctx, &model.Transaction{
			UserID:     card.UserID,
			RfidCardID: &card.ID,
			CanteenID:  &session.ID,
			Type:       model.TransactionTypePurchase,
			Status:     model.TransactionStatusSuccess,
			Amount:     p.Amount,
		})
		if err != nil {
			return fmt.Errorf("create purchase transaction: %w", err)
		}

		result = PurchaseResult{
			TransactionID: txn.ID,
			Balance:       locked.Balance - p.Amount,
			CanteenID:     session.ID,
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindUnexpected {
			s.writeFailedAudit(ctx, card.UserID, &card.ID, &session.ID, model.TransactionTypePurchase, p.Amount, err)
		}
		return nil, err
	}

	s.notify(ctx, card, model.NotificationPurchase, p.Amount, result.Balance, result.TransactionID)
	return &result, nil
}

// RefundResult reports the committed state back to the caller.
type RefundResult struct {
	TransactionID int64 `json:"transaction_id"`
	Balance       int64 `json:"balance"`
}

// Refund reverses exactly one successful purchase. The pre-check on an
// existing refund gives a clean conflict; the unique constraint on
// original_transaction_id is what actually guarantees exactly-once when two
// refunds race.
func (s *LedgerService) Refund(ctx context.Context, p model.RefundRequest) (*RefundResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	original, err := s.transactionRepo.FindSuccessfulPurchase(ctx, p.TransactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("find purchase: %w", err)
	}

	refunded, err := s.transactionRepo.RefundExists(ctx, original.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing refund: %w", err)
	}
	if refunded {
		return nil, ErrAlreadyRefunded
	}

	dayStart, dayEnd := s.today()
	session, err := s.canteenRepo.FindOpenByOpener(ctx, p.OpenerID, dayStart, dayEnd)
	if err != nil {
		if errors.Is(err, repository.ErrCanteenNotFound) {
			return nil, ErrNoOpenSession
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}

	if original.CanteenID == nil || *original.CanteenID != session.ID {
		return nil, ErrRefundCrossSession
	}
	if session.CurrentBalance < original.Amount {
		return nil, ErrCanteenInsufficientBalance
	}

	var result RefundResult
	err = s.walletRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := s.walletRepo.FindByUserIDForUpdate(ctx, original.UserID)
		if err != nil {
			return mapWalletError(err)
		}

		if err := s.walletRepo.Credit(ctx, wallet.ID, original.Amount); err != nil {
			return mapWalletError(err)
		}

		if err := s.canteenRepo.AddToBalance(ctx, session.ID, -original.Amount); err != nil {
			return fmt.Errorf("debit canteen: %w", err)
		}

		var note *string
		if p.Note != "" {
			note = &p.Note
		}
		txn, err := s.transactionRepo.Create(ctx, &model.Transaction{
			UserID:                original.UserID,
			RfidCardID:            original.RfidCardID,
			CanteenID:             &session.ID,
			Type:                  model.TransactionTypeRefund,
			Status:                model.TransactionStatusSuccess,
			Amount:                original.Amount,
			Note:                  note,
			OriginalTransactionID: &original.ID,
		})
		if err != nil {
			// A racing refund can still beat us to the unique index.
			return fmt.Errorf("create refund transaction: %w", err)
		}

		result = RefundResult{
			TransactionID: txn.ID,
			Balance:       wallet.Balance + original.Amount,
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindUnexpected {
			s.writeFailedAudit(ctx, original.UserID, original.RfidCardID, &session.ID, model.TransactionTypeRefund, original.Amount, err)
		}
		return nil, err
	}

	s.notifyUser(ctx, original.UserID, nil, model.NotificationRefund, original.Amount, result.Balance, result.TransactionID)
	return &result, nil
}

// BalanceInfo is the read-only wallet inquiry result.
type BalanceInfo struct {
	UserID      int64      `json:"user_id"`
	CardUID     string     `json:"card_uid,omitempty"`
	Balance     int64      `json:"balance"`
	LastTopUpAt *time.Time `json:"last_top_up_at,omitempty"`
}

func (s *LedgerService) GetBalance(ctx context.Context, cardUID string) (*BalanceInfo, error) {
	card, err := s.cardRepo.FindActiveByUID(ctx, cardUID)
	if err != nil {
		return nil, mapCardError(err)
	}

	wallet, err := s.walletRepo.FindByUserID(ctx, card.UserID)
	if err != nil {
		return nil, mapWalletError(err)
	}

	return &BalanceInfo{
		UserID:      card.UserID,
		CardUID:     card.UID,
		Balance:     wallet.Balance,
		LastTopUpAt: wallet.LastTopUpAt,
	}, nil
}

// ListTransactions pages through the transaction log, newest first by
// default when the filter says so.
func (s *LedgerService) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	txns, total, err := s.transactionRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txns, total, nil
}

func (s *LedgerService) verifyPin(user *model.User, pin *string) error {
	if user == nil || !user.HasPin() {
		return ErrPinNotSet
	}
	if pin == nil || *pin == "" {
		return ErrPinRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PinHash), []byte(*pin)); err != nil {
		return ErrPinMismatch
	}
	return nil
}

// writeFailedAudit appends a failed transaction row after the unit of work
// rolled back. Best effort on a detached context; an audit miss is logged,
// never surfaced.
func (s *LedgerService) writeFailedAudit(ctx context.Context, userID int64, cardID, canteenID *int64, txType model.TransactionType, amount int64, cause error) {
	msg := cause.Error()
	_, err := s.transactionRepo.Create(context.WithoutCancel(ctx), &model.Transaction{
		UserID:     userID,
		RfidCardID: cardID,
		CanteenID:  canteenID,
		Type:       txType,
		Status:     model.TransactionStatusFailed,
		Amount:     amount,
		Note:       &msg,
	})
	if err != nil {
		logger.Error("failed to write audit transaction", "type", txType, "user_id", userID, "error", err)
	}
}

func (s *LedgerService) notify(ctx context.Context, card *model.RfidCard, kind model.NotificationKind, amount, balance, txnID int64) {
	s.notifyUser(ctx, card.UserID, card.User, kind, amount, balance, txnID)
}

// notifyUser publishes a transaction event, fire and forget. Notification
// failure never rolls back or fails the financial mutation.
func (s *LedgerService) notifyUser(ctx context.Context, userID int64, user *model.User, kind model.NotificationKind, amount, balance, txnID int64) {
	if s.events == nil {
		return
	}

	event := model.TransactionEvent{
		EventID:       uuid.NewString(),
		Kind:          kind,
		UserID:        userID,
		Amount:        amount,
		NewBalance:    balance,
		TransactionID: txnID,
		OccurredAt:    s.now(),
	}
	if user != nil {
		event.Email = user.Email
		event.Name = user.Name
	}

	if _, err := s.events.PublishJSON(ctx, event, nil); err != nil {
		logger.Error("failed to publish transaction event", "kind", kind, "user_id", userID, "error", err)
	}
}

func (s *LedgerService) today() (time.Time, time.Time) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}

func mapCardError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCardNotFound):
		return ErrCardNotFound
	case errors.Is(err, repository.ErrCardInactive):
		return ErrCardInactive
	default:
		return fmt.Errorf("card lookup: %w", err)
	}
}

func mapWalletError(err error) error {
	switch {
	case errors.Is(err, repository.ErrWalletNotFound):
		return ErrWalletNotFound
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientBalance
	case errors.Is(err, repository.ErrMaxRetriesExceeded):
		return ErrBusy
	default:
		return err
	}
}
