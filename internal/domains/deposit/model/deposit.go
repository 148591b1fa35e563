package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrDepositNotFound = errors.New("deposit not found")

// Deposit is one recorded money movement into a bookmaker account.
// QualifyConditionID links it to the condition it was recorded against;
// nil means an independent deposit outside any promotion.
type Deposit struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	UserID             uuid.UUID       `json:"user_id" db:"user_id"`
	BookmakerAccountID uuid.UUID       `json:"bookmaker_account_id" db:"bookmaker_account_id"`
	QualifyConditionID *uuid.UUID      `json:"qualify_condition_id,omitempty" db:"qualify_condition_id"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	Code               *string         `json:"code,omitempty" db:"code"`
	DepositedAt        time.Time       `json:"deposited_at" db:"deposited_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// IndependentDepositRequest records a deposit not tied to any qualify
// condition: persist the record and credit the account, nothing else.
type IndependentDepositRequest struct {
	BookmakerID uuid.UUID       `json:"bookmaker_id"`
	Amount      decimal.Decimal `json:"amount"`
	Code        *string         `json:"code,omitempty"`
	DepositedAt time.Time       `json:"deposited_at"`
}

func (r IndependentDepositRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookmakerID, validation.Required),
		validation.Field(&r.Amount,
			validation.Required,
			validation.By(func(interface{}) error {
				if r.Amount.LessThanOrEqual(decimal.Zero) {
					return errors.New("amount must be greater than zero")
				}
				return nil
			}),
		),
		validation.Field(&r.DepositedAt, validation.Required),
	)
}
