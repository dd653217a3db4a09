package model

import "errors"

// WithdrawalCreateRequest asks to move cash out of a closed till.
type WithdrawalCreateRequest struct {
	CanteenID int64
	OpenerID  int64
	Amount    int64
	Note      string
}

func (p WithdrawalCreateRequest) Validate() error {
	if p.CanteenID == 0 {
		return errors.New("canteen_id is required")
	}
	if p.OpenerID == 0 {
		return errors.New("opener_id is required")
	}
	if p.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// WithdrawalDecision approves or rejects one pending request.
type WithdrawalDecision struct {
	RequestID int64
	AdminID   int64
	Reason    string
}

func (p WithdrawalDecision) Validate() error {
	if p.RequestID == 0 {
		return errors.New("request_id is required")
	}
	if p.AdminID == 0 {
		return errors.New("admin_id is required")
	}
	return nil
}

// PinSetRequest creates or rotates a user's transaction PIN.
type PinSetRequest struct {
	UserID     int64
	Pin        string
	CurrentPin string
}

func (p PinSetRequest) Validate() error {
	if p.UserID == 0 {
		return errors.New("user_id is required")
	}
	if len(p.Pin) != 6 {
		return errors.New("pin must be exactly 6 digits")
	}
	for _, r := range p.Pin {
		if r < '0' || r > '9' {
			return errors.New("pin must be numeric")
		}
	}
	return nil
}
