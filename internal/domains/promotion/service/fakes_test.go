package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	accountmodel "promotracker-backend/internal/domains/account/model"
	depositmodel "promotracker-backend/internal/domains/deposit/model"
	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/internal/domains/promotion/repository"
)

// In-memory doubles for the repository layer. A nil pgx.Tx stands in for a
// live transaction; the fakes only count lifecycle calls.

type fakeTxManager struct {
	begun      int
	committed  int
	rolledBack int
}

func (m *fakeTxManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	m.begun++
	return nil, nil
}

func (m *fakeTxManager) CommitTx(ctx context.Context, tx pgx.Tx) error {
	m.committed++
	return nil
}

func (m *fakeTxManager) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	m.rolledBack++
	return nil
}

type fakePromotionRepo struct {
	aggregate *model.Promotion
	created   []*model.Promotion
	applied   []repository.Update
	deleted   []uuid.UUID
	getCalls  int
}

func (r *fakePromotionRepo) CreateAggregate(ctx context.Context, promotion *model.Promotion) error {
	r.created = append(r.created, promotion)
	r.aggregate = promotion
	return nil
}

func (r *fakePromotionRepo) GetAggregate(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	r.getCalls++
	if r.aggregate == nil || r.aggregate.ID != id {
		return nil, model.ErrPromotionNotFound
	}
	return r.aggregate, nil
}

func (r *fakePromotionRepo) GetAggregateByConditionTx(ctx context.Context, tx pgx.Tx, conditionID uuid.UUID) (*model.Promotion, error) {
	if r.aggregate == nil {
		return nil, model.ErrConditionNotFound
	}
	if _, _, _, ok := r.aggregate.FindCondition(conditionID); !ok {
		return nil, model.ErrConditionNotFound
	}
	return r.aggregate, nil
}

func (r *fakePromotionRepo) List(ctx context.Context, limit, offset int) ([]model.Promotion, int, error) {
	if r.aggregate == nil {
		return nil, 0, nil
	}
	return []model.Promotion{*r.aggregate}, 1, nil
}

func (r *fakePromotionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakePromotionRepo) ApplyUpdatesTx(ctx context.Context, tx pgx.Tx, updates []repository.Update) error {
	r.applied = append(r.applied, updates...)
	return nil
}

func (r *fakePromotionRepo) ApplyUpdates(ctx context.Context, updates []repository.Update) error {
	r.applied = append(r.applied, updates...)
	return nil
}

func (r *fakePromotionRepo) findApplied(kind repository.EntityKind, id uuid.UUID) (repository.Update, bool) {
	for _, u := range r.applied {
		if u.Kind == kind && u.ID == id {
			return u, true
		}
	}
	return repository.Update{}, false
}

type accountKey struct {
	userID      uuid.UUID
	bookmakerID uuid.UUID
}

type balanceIncrement struct {
	accountID uuid.UUID
	amount    decimal.Decimal
}

type fakeAccountRepo struct {
	accounts   map[accountKey]*accountmodel.BookmakerAccount
	increments []balanceIncrement
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[accountKey]*accountmodel.BookmakerAccount{}}
}

func (r *fakeAccountRepo) add(account *accountmodel.BookmakerAccount) {
	r.accounts[accountKey{account.UserID, account.BookmakerID}] = account
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *accountmodel.BookmakerAccount) error {
	r.add(account)
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*accountmodel.BookmakerAccount, error) {
	for _, a := range r.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, accountmodel.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindByUserAndBookmaker(ctx context.Context, userID, bookmakerID uuid.UUID) (*accountmodel.BookmakerAccount, error) {
	account, ok := r.accounts[accountKey{userID, bookmakerID}]
	if !ok {
		return nil, accountmodel.ErrAccountNotFound
	}
	return account, nil
}

func (r *fakeAccountRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]accountmodel.BookmakerAccount, error) {
	var out []accountmodel.BookmakerAccount
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) FindByUserAndBookmakerTx(ctx context.Context, tx pgx.Tx, userID, bookmakerID uuid.UUID) (*accountmodel.BookmakerAccount, error) {
	return r.FindByUserAndBookmaker(ctx, userID, bookmakerID)
}

func (r *fakeAccountRepo) IncrementRealBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) error {
	r.increments = append(r.increments, balanceIncrement{accountID, amount})
	return nil
}

type fakeDepositRepo struct {
	deposits []*depositmodel.Deposit
}

func (r *fakeDepositRepo) CreateTx(ctx context.Context, tx pgx.Tx, deposit *depositmodel.Deposit) error {
	r.deposits = append(r.deposits, deposit)
	return nil
}

func (r *fakeDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*depositmodel.Deposit, error) {
	for _, d := range r.deposits {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, depositmodel.ErrDepositNotFound
}

func (r *fakeDepositRepo) ListByCondition(ctx context.Context, conditionID uuid.UUID) ([]depositmodel.Deposit, error) {
	var out []depositmodel.Deposit
	for _, d := range r.deposits {
		if d.QualifyConditionID != nil && *d.QualifyConditionID == conditionID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDepositRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]depositmodel.Deposit, error) {
	var out []depositmodel.Deposit
	for _, d := range r.deposits {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeCache struct {
	entries map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func (c *fakeCache) Ping(ctx context.Context) error {
	return nil
}
