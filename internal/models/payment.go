package models

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodDigitalWallet PaymentMethod = "digital_wallet"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
)

// Valid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodDigitalWallet, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// PaymentRecord is embedded in the ticket under the payment_* columns.
type PaymentRecord struct {
	Status        PaymentStatus `json:"status" gorm:"column:status;size:16;not null;default:pending"`
	Amount        *float64      `json:"amount,omitempty" gorm:"column:amount"`
	TransactionID string        `json:"transactionId,omitempty" gorm:"column:transaction_id;size:64"`
	Method        PaymentMethod `json:"paymentMethod,omitempty" gorm:"column:method;size:16"`
	ProcessedAt   *time.Time    `json:"processedAt,omitempty" gorm:"column:processed_at"`
}

// IsCompleted reports whether the payment has been settled.
func (p PaymentRecord) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
