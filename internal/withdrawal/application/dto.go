package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/venturelink/funding/internal/withdrawal/domain"
)

// WithdrawalDTO 提现请求视图
type WithdrawalDTO struct {
	WithdrawalID      string          `json:"withdrawal_id"`
	InvestmentID      string          `json:"investment_id"`
	InvestorID        string          `json:"investor_id"`
	Amount            decimal.Decimal `json:"amount"`
	BankName          string          `json:"bank_name"`
	BankAccountName   string          `json:"bank_account_name"`
	BankAccountNumber string          `json:"bank_account_number"`
	IFSCCode          string          `json:"ifsc_code"`
	Status            string          `json:"status"`
	RejectReason      string          `json:"reject_reason,omitempty"`
	DecidedBy         string          `json:"decided_by,omitempty"`
	DecidedAt         *time.Time      `json:"decided_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func toWithdrawalDTO(w *domain.WithdrawalRequest) *WithdrawalDTO {
	return &WithdrawalDTO{
		WithdrawalID:      w.WithdrawalID,
		InvestmentID:      w.InvestmentID,
		InvestorID:        w.InvestorID,
		Amount:            w.Amount,
		BankName:          w.BankName,
		BankAccountName:   w.BankAccountName,
		BankAccountNumber: w.BankAccountNumber,
		IFSCCode:          w.IFSCCode,
		Status:            string(w.Status),
		RejectReason:      w.RejectReason,
		DecidedBy:         w.DecidedBy,
		DecidedAt:         w.DecidedAt,
		CreatedAt:         w.CreatedAt,
	}
}
