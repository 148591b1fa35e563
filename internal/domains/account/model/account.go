package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound is the precondition failure of the deposit flow:
	// the user has no account at the bookmaker, and the engine never
	// creates one implicitly.
	ErrAccountNotFound      = errors.New("bookmaker account not found")
	ErrAccountAlreadyExists = errors.New("bookmaker account already exists for this user")
)

// BookmakerAccount is a user's account at one bookmaker. RealBalance tracks
// withdrawable money; BonusBalance tracks granted but restricted funds.
type BookmakerAccount struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	BookmakerID   uuid.UUID       `json:"bookmaker_id" db:"bookmaker_id"`
	BookmakerName string          `json:"bookmaker_name" db:"bookmaker_name"`
	Username      *string         `json:"username,omitempty" db:"username"`
	RealBalance   decimal.Decimal `json:"real_balance" db:"real_balance"`
	BonusBalance  decimal.Decimal `json:"bonus_balance" db:"bonus_balance"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateAccountRequest opens a bookmaker account record for a user.
type CreateAccountRequest struct {
	BookmakerID   uuid.UUID `json:"bookmaker_id"`
	BookmakerName string    `json:"bookmaker_name"`
	Username      *string   `json:"username,omitempty"`
}

func (r CreateAccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookmakerID, validation.Required),
		validation.Field(&r.BookmakerName, validation.Required, validation.Length(1, 200)),
	)
}
