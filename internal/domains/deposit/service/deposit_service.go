package service

import (
	"context"

	"github.com/google/uuid"

	"promotracker-backend/internal/domains/deposit/model"
	repo "promotracker-backend/internal/domains/deposit/repository"
)

// DepositService is the read side of deposit history. Writes go through the
// qualification engine, which owns the transactional paths.
type DepositService interface {
	GetDeposit(ctx context.Context, id uuid.UUID) (*model.Deposit, error)
	ListUserDeposits(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Deposit, error)
	ListConditionDeposits(ctx context.Context, conditionID uuid.UUID) ([]model.Deposit, error)
}

type depositService struct {
	depositRepo repo.DepositRepository
}

func NewDepositService(depositRepo repo.DepositRepository) DepositService {
	return &depositService{depositRepo: depositRepo}
}

func (s *depositService) GetDeposit(ctx context.Context, id uuid.UUID) (*model.Deposit, error) {
	return s.depositRepo.GetByID(ctx, id)
}

func (s *depositService) ListUserDeposits(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Deposit, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.depositRepo.ListByUser(ctx, userID, limit, (page-1)*limit)
}

func (s *depositService) ListConditionDeposits(ctx context.Context, conditionID uuid.UUID) ([]model.Deposit, error) {
	return s.depositRepo.ListByCondition(ctx, conditionID)
}
