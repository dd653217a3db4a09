package fixtures

import (
	"time"

	"github.com/sekolahpay/canteen-ledger/internal/model"
)

var (
	TestStudent = model.User{
		ID:    1,
		Name:  "Siti Rahma",
		Email: "siti.parent@example.test",
		Role:  model.RoleStudent,
	}

	TestStaff = model.User{
		ID:    2,
		Name:  "Pak Budi",
		Email: "budi@example.test",
		Role:  model.RoleStaff,
	}

	TestAdmin = model.User{
		ID:    3,
		Name:  "Bu Dewi",
		Email: "dewi@example.test",
		Role:  model.RoleAdmin,
	}
)

func NewTestCard(userID int64, uid string) *model.RfidCard {
	return &model.RfidCard{
		UserID:      userID,
		UID:         uid,
		IsActive:    true,
		ActivatedAt: time.Now(),
	}
}

func NewTestWallet(userID int64, balance int64) *model.Wallet {
	return &model.Wallet{
		UserID:  userID,
		Balance: balance,
	}
}

func TopUpRequest(cardUID string, amount int64) model.TopUpRequest {
	return model.TopUpRequest{
		CardUID: cardUID,
		Amount:  amount,
	}
}

func PurchaseRequest(cardUID string, amount, openerID int64) model.PurchaseRequest {
	return model.PurchaseRequest{
		CardUID:  cardUID,
		Amount:   amount,
		OpenerID: openerID,
	}
}

func PurchaseRequestWithPin(cardUID string, amount, openerID int64, pin string) model.PurchaseRequest {
	p := PurchaseRequest(cardUID, amount, openerID)
	p.Pin = &pin
	return p
}

func RefundRequest(transactionID, openerID int64, note string) model.RefundRequest {
	return model.RefundRequest{
		TransactionID: transactionID,
		OpenerID:      openerID,
		Note:          note,
	}
}

func WithdrawalRequest(canteenID, openerID, amount int64) model.WithdrawalCreateRequest {
	return model.WithdrawalCreateRequest{
		CanteenID: canteenID,
		OpenerID:  openerID,
		Amount:    amount,
	}
}

func WithdrawalDecision(requestID, adminID int64) model.WithdrawalDecision {
	return model.WithdrawalDecision{
		RequestID: requestID,
		AdminID:   adminID,
	}
}

var (
	ValidCardUIDs = []string{
		"04A1B2C3D4",
		"04FFEE0011",
		"049988AABB",
	}

	ValidPins = []string{
		"123456",
		"000000",
		"987654",
	}

	InvalidPins = []string{
		"",
		"123",
		"12345678",
		"abcdef",
	}
)

func FilterByUser(userID int64) model.TransactionFilter {
	return model.TransactionFilter{
		UserID: &userID,
		Limit:  50,
		Offset: 0,
		Desc:   true,
	}
}

func FilterByCanteen(canteenID int64) model.TransactionFilter {
	return model.TransactionFilter{
		CanteenID: &canteenID,
		Limit:     50,
		Offset:    0,
		Desc:      true,
	}
}

func FilterWithPagination(userID int64, limit, offset int) model.TransactionFilter {
	return model.TransactionFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
		Desc:   true,
	}
}

func FilterByTimeRange(userID int64, from, to time.Time) model.TransactionFilter {
	return model.TransactionFilter{
		UserID: &userID,
		From:   &from,
		To:     &to,
		Limit:  50,
		Offset: 0,
		Desc:   true,
	}
}
