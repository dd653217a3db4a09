package model

import (
	"errors"
	"time"
)

type TransactionType string

const (
	TransactionTypeTopUp      TransactionType = "top_up"
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction is one row of the append-only monetary log. Rows are never
// updated after insert except the pending -> success|failed transition on
// withdrawal requests.
//
// OriginalTransactionID back-references the purchase a refund reverses and is
// unique when set, which is what makes refunds exactly-once. RequestID links a
// withdrawal execution row to the pending request it fulfilled.
type Transaction struct {
	ID                    int64             `json:"id"            db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	UserID                int64             `json:"user_id"       db:"user_id"       gorm:"column:user_id;not null;index"`
	User                  *User             `json:"-"                                 gorm:"foreignKey:UserID;references:ID"`
	RfidCardID            *int64            `json:"rfid_card_id"  db:"rfid_card_id"  gorm:"column:rfid_card_id;index"`
	CanteenID             *int64            `json:"canteen_id"    db:"canteen_id"    gorm:"column:canteen_id;index"`
	Canteen               *CanteenSession   `json:"-"                                 gorm:"foreignKey:CanteenID;references:ID"`
	Type                  TransactionType   `json:"type"          db:"type"          gorm:"column:type;not null;index"`
	Status                TransactionStatus `json:"status"        db:"status"        gorm:"column:status;not null;index"`
	Amount                int64             `json:"amount"        db:"amount"        gorm:"column:amount;not null"`
	Note                  *string           `json:"note"          db:"note"          gorm:"column:note"`
	OriginalTransactionID *int64            `json:"original_transaction_id" db:"original_transaction_id" gorm:"column:original_transaction_id;uniqueIndex"`
	RequestID             *int64            `json:"request_id"    db:"request_id"    gorm:"column:request_id;index"`
	ApprovedBy            *int64            `json:"approved_by"   db:"approved_by"   gorm:"column:approved_by"`
	RejectedBy            *int64            `json:"rejected_by"   db:"rejected_by"   gorm:"column:rejected_by"`
	RejectReason          *string           `json:"reject_reason" db:"reject_reason" gorm:"column:reject_reason"`
	CreatedAt             time.Time         `json:"created_at"    db:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// TopUpRequest is the input for crediting a wallet.
type TopUpRequest struct {
	CardUID string
	Amount  int64
}

// MinTopUpAmount is the smallest unit an administrator can load.
const MinTopUpAmount = 500

func (p TopUpRequest) Validate() error {
	if p.CardUID == "" {
		return errors.New("card_uid is required")
	}
	if p.Amount < MinTopUpAmount {
		return errors.New("amount is below the minimum top-up unit")
	}
	return nil
}

// PurchaseRequest is the input for charging a wallet against a till.
type PurchaseRequest struct {
	CardUID  string
	Amount   int64
	OpenerID int64
	Pin      *string
}

func (p PurchaseRequest) Validate() error {
	if p.CardUID == "" {
		return errors.New("card_uid is required")
	}
	if p.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if p.OpenerID == 0 {
		return errors.New("opener_id is required")
	}
	return nil
}

// RefundRequest reverses one successful purchase.
type RefundRequest struct {
	TransactionID int64
	OpenerID      int64
	Note          string
}

func (p RefundRequest) Validate() error {
	if p.TransactionID == 0 {
		return errors.New("transaction_id is required")
	}
	if p.OpenerID == 0 {
		return errors.New("opener_id is required")
	}
	return nil
}

// TransactionFilter controls log queries.
type TransactionFilter struct {
	UserID    *int64
	CanteenID *int64
	Types     []TransactionType
	Statuses  []TransactionStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	Desc      bool
}
