package services

import "errors"

// Every operation returns one of these sentinels at its boundary; raw storage
// errors never cross out of the service layer.
var (
	ErrCardNotFound        = errors.New("rfid card not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrSessionNotFound     = errors.New("canteen session not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRequestNotFound     = errors.New("withdrawal request not found")

	ErrCardInactive = errors.New("rfid card is not active")

	ErrSessionAlreadyOpen      = errors.New("a canteen session is already open today")
	ErrNoOpenSession           = errors.New("no open canteen session for this user today")
	ErrSessionAlreadyFunded    = errors.New("canteen session already funded")
	ErrSessionAlreadyClosed    = errors.New("canteen session already closed")
	ErrSessionNotClosed        = errors.New("canteen session must be closed first")
	ErrSessionAlreadySettled   = errors.New("canteen session already settled")
	ErrAlreadyRefunded         = errors.New("purchase has already been refunded")
	ErrRefundCrossSession      = errors.New("refund must go through the session the purchase was made in")
	ErrPendingWithdrawalExists = errors.New("a pending withdrawal already exists for this session")
	ErrRequestNotPending       = errors.New("withdrawal request is not pending")
	ErrNoCheckIn               = errors.New("no attendance check-in today")
	ErrAlreadyCheckedOut       = errors.New("user has already checked out today")
	ErrPinAlreadySet           = errors.New("pin is already set")
	ErrPinUnchanged            = errors.New("new pin must differ from the current one")

	ErrInsufficientBalance        = errors.New("insufficient wallet balance")
	ErrCanteenInsufficientBalance = errors.New("insufficient canteen balance")

	ErrPinRequired     = errors.New("pin required for this amount")
	ErrPinMismatch     = errors.New("pin does not match")
	ErrPinNotSet       = errors.New("no pin set for this user")
	ErrStaffRequired   = errors.New("staff role required")
	ErrAdminRequired   = errors.New("admin role required")
	ErrNotSessionOwner = errors.New("session belongs to another opener")

	ErrBusy = errors.New("operation is busy, try again")
)

// Kind is the stable machine-readable classification handed to callers.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindInactive
	KindConflict
	KindInsufficientFunds
	KindAuthorizationRequired
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInactive:
		return "inactive"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindAuthorizationRequired:
		return "authorization_required"
	case KindBusy:
		return "busy"
	default:
		return "unexpected"
	}
}

// KindOf classifies a service error. Anything unrecognized is Unexpected.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrCardNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrRequestNotFound):
		return KindNotFound
	case errors.Is(err, ErrCardInactive):
		return KindInactive
	case errors.Is(err, ErrSessionAlreadyOpen),
		errors.Is(err, ErrNoOpenSession),
		errors.Is(err, ErrSessionAlreadyFunded),
		errors.Is(err, ErrSessionAlreadyClosed),
		errors.Is(err, ErrSessionNotClosed),
		errors.Is(err, ErrSessionAlreadySettled),
		errors.Is(err, ErrAlreadyRefunded),
		errors.Is(err, ErrRefundCrossSession),
		errors.Is(err, ErrPendingWithdrawalExists),
		errors.Is(err, ErrRequestNotPending),
		errors.Is(err, ErrNoCheckIn),
		errors.Is(err, ErrAlreadyCheckedOut),
		errors.Is(err, ErrPinAlreadySet),
		errors.Is(err, ErrPinUnchanged):
		return KindConflict
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrCanteenInsufficientBalance):
		return KindInsufficientFunds
	case errors.Is(err, ErrPinRequired),
		errors.Is(err, ErrPinMismatch),
		errors.Is(err, ErrPinNotSet),
		errors.Is(err, ErrStaffRequired),
		errors.Is(err, ErrAdminRequired),
		errors.Is(err, ErrNotSessionOwner):
		return KindAuthorizationRequired
	case errors.Is(err, ErrBusy):
		return KindBusy
	default:
		return KindUnexpected
	}
}
