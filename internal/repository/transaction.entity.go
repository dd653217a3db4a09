package repository

import (
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
)

type TransactionEntity struct {
	ID                    int64     `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	UserID                int64     `db:"user_id"      gorm:"column:user_id;not null;index"`
	RfidCardID            *int64    `db:"rfid_card_id" gorm:"column:rfid_card_id;index"`
	CanteenID             *int64    `db:"canteen_id"   gorm:"column:canteen_id;index"`
	Type                  string    `db:"type"         gorm:"column:type;not null;index"`
	Status                string    `db:"status"       gorm:"column:status;not null;index"`
	Amount                int64     `db:"amount"       gorm:"column:amount;not null"`
	Note                  *string   `db:"note"         gorm:"column:note"`
	OriginalTransactionID *int64    `db:"original_transaction_id" gorm:"column:original_transaction_id;uniqueIndex"`
	RequestID             *int64    `db:"request_id"   gorm:"column:request_id;index"`
	ApprovedBy            *int64    `db:"approved_by"  gorm:"column:approved_by"`
	RejectedBy            *int64    `db:"rejected_by"  gorm:"column:rejected_by"`
	RejectReason          *string   `db:"reject_reason" gorm:"column:reject_reason"`
	CreatedAt             time.Time `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:                    m.ID,
		UserID:                m.UserID,
		RfidCardID:            m.RfidCardID,
		CanteenID:             m.CanteenID,
		Type:                  string(m.Type),
		Status:                string(m.Status),
		Amount:                m.Amount,
		Note:                  m.Note,
		OriginalTransactionID: m.OriginalTransactionID,
		RequestID:             m.RequestID,
		ApprovedBy:            m.ApprovedBy,
		RejectedBy:            m.RejectedBy,
		RejectReason:          m.RejectReason,
		CreatedAt:             m.CreatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:                    e.ID,
		UserID:                e.UserID,
		RfidCardID:            e.RfidCardID,
		CanteenID:             e.CanteenID,
		Type:                  model.TransactionType(e.Type),
		Status:                model.TransactionStatus(e.Status),
		Amount:                e.Amount,
		Note:                  e.Note,
		OriginalTransactionID: e.OriginalTransactionID,
		RequestID:             e.RequestID,
		ApprovedBy:            e.ApprovedBy,
		RejectedBy:            e.RejectedBy,
		RejectReason:          e.RejectReason,
		CreatedAt:             e.CreatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
