package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"promotracker-backend/internal/domains/account/model"
	repo "promotracker-backend/internal/domains/account/repository"
	"promotracker-backend/pkg/logger"
)

// AccountService manages a user's bookmaker accounts.
type AccountService interface {
	CreateAccount(ctx context.Context, userID uuid.UUID, req model.CreateAccountRequest) (*model.BookmakerAccount, error)
	GetAccount(ctx context.Context, userID, bookmakerID uuid.UUID) (*model.BookmakerAccount, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]model.BookmakerAccount, error)
}

type accountService struct {
	accountRepo repo.AccountRepository
}

func NewAccountService(accountRepo repo.AccountRepository) AccountService {
	return &accountService{accountRepo: accountRepo}
}

func (s *accountService) CreateAccount(ctx context.Context, userID uuid.UUID, req model.CreateAccountRequest) (*model.BookmakerAccount, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account := &model.BookmakerAccount{
		ID:            uuid.New(),
		UserID:        userID,
		BookmakerID:   req.BookmakerID,
		BookmakerName: req.BookmakerName,
		Username:      req.Username,
		RealBalance:   decimal.Zero,
		BonusBalance:  decimal.Zero,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	logger.Info("bookmaker account created", map[string]interface{}{
		"account_id":   account.ID.String(),
		"bookmaker_id": account.BookmakerID.String(),
	})
	return account, nil
}

func (s *accountService) GetAccount(ctx context.Context, userID, bookmakerID uuid.UUID) (*model.BookmakerAccount, error) {
	return s.accountRepo.FindByUserAndBookmaker(ctx, userID, bookmakerID)
}

func (s *accountService) ListAccounts(ctx context.Context, userID uuid.UUID) ([]model.BookmakerAccount, error) {
	return s.accountRepo.ListByUser(ctx, userID)
}
