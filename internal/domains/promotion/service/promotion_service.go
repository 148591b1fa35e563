package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/internal/domains/promotion/repository"
	"promotracker-backend/pkg/cache"
	"promotracker-backend/pkg/logger"
)

type promotionService struct {
	promotionRepo repository.PromotionRepository
	cache         cache.Cache
	cacheTTL      time.Duration
	resolver      *TimeframeResolver
	now           func() time.Time
}

func NewPromotionService(promotionRepo repository.PromotionRepository, cacheStore cache.Cache, cacheTTL time.Duration) PromotionService {
	return &promotionService{
		promotionRepo: promotionRepo,
		cache:         cacheStore,
		cacheTTL:      cacheTTL,
		resolver:      NewTimeframeResolver(),
		now:           time.Now,
	}
}

func promotionCacheKey(id uuid.UUID) string {
	return "promotion:" + id.String()
}

// CreatePromotion builds the whole aggregate in memory with all ids
// generated up front, validates it, and persists it as one nested-create
// transaction.
func (s *promotionService) CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	promotion, err := s.buildAggregate(req)
	if err != nil {
		return nil, err
	}
	promotion.SyncSinglePhase()
	promotion.RecomputeBalances()
	if err := promotion.Validate(); err != nil {
		return nil, err
	}

	if err := s.promotionRepo.CreateAggregate(ctx, promotion); err != nil {
		return nil, err
	}

	logger.Info("promotion created", map[string]interface{}{
		"promotion_id": promotion.ID,
		"bookmaker":    promotion.BookmakerName,
		"phases":       len(promotion.Phases),
	})
	return promotion, nil
}

func (s *promotionService) buildAggregate(req *model.CreatePromotionRequest) (*model.Promotion, error) {
	promotion := &model.Promotion{
		ID:               uuid.New(),
		BookmakerID:      req.BookmakerID,
		BookmakerName:    req.BookmakerName,
		Name:             req.Name,
		Description:      req.Description,
		Cardinality:      model.PromotionCardinality(req.Cardinality),
		ActivationMethod: model.ActivationMethod(req.ActivationMethod),
		Status:           model.StatusDraft,
		Timeframe:        model.AbsoluteTimeframe(req.Start, req.End),
	}

	for _, phaseReq := range req.Phases {
		phaseID := uuid.New()

		phaseTf, err := s.toTimeframe(phaseReq.Timeframe, anchorScope{
			promotionID: promotion.ID, phaseID: phaseID,
		})
		if err != nil {
			return nil, err
		}

		phase := model.Phase{
			ID:               phaseID,
			PromotionID:      promotion.ID,
			Name:             phaseReq.Name,
			Description:      phaseReq.Description,
			ActivationMethod: model.ActivationMethod(phaseReq.ActivationMethod),
			Status:           model.StatusDraft,
			Timeframe:        phaseTf,
			Position:         len(promotion.Phases),
		}

		for _, rewardReq := range phaseReq.Rewards {
			if err := rewardReq.Validate(); err != nil {
				return nil, err
			}
			reward, err := s.buildReward(promotion.ID, phaseID, rewardReq)
			if err != nil {
				return nil, err
			}
			phase.Rewards = append(phase.Rewards, *reward)
		}
		promotion.Phases = append(promotion.Phases, phase)
	}
	return promotion, nil
}

func (s *promotionService) buildReward(promotionID, phaseID uuid.UUID, req model.RewardRequest) (*model.Reward, error) {
	rewardID := uuid.New()

	reward := &model.Reward{
		ID:               rewardID,
		PhaseID:          phaseID,
		Type:             model.RewardType(req.Type),
		Name:             req.Name,
		ValueType:        model.RewardValueType(req.ValueType),
		ActivationMethod: model.ActivationMethod(req.ActivationMethod),
		ClaimMethod:      model.ClaimMethod(req.ClaimMethod),
		Status:           model.RewardStatusQualifying,
	}
	if req.Value != nil {
		reward.Value = *req.Value
	} else {
		reward.Value = decimal.Zero
	}

	// Byte-identical condition payloads within one reward collapse to a
	// single instance; the duplicate's position maps onto the kept one so
	// depends_on references still land.
	seen := map[[32]byte]int{}
	positionOf := make([]int, len(req.QualifyConditions))
	for i, condReq := range req.QualifyConditions {
		canonical, err := json.Marshal(condReq)
		if err != nil {
			return nil, fmt.Errorf("failed to hash qualify condition: %w", err)
		}
		hash := sha256.Sum256(canonical)
		if pos, dup := seen[hash]; dup {
			positionOf[i] = pos
			continue
		}

		conditionID := uuid.New()
		spec, err := condReq.ToSpec()
		if err != nil {
			return nil, err
		}
		condTf, err := s.toTimeframe(condReq.Timeframe, anchorScope{
			promotionID: promotionID, phaseID: phaseID,
			rewardID: rewardID, conditionID: conditionID,
		})
		if err != nil {
			return nil, err
		}

		seen[hash] = len(reward.QualifyConditions)
		positionOf[i] = len(reward.QualifyConditions)
		reward.QualifyConditions = append(reward.QualifyConditions, model.QualifyCondition{
			ID:         conditionID,
			RewardID:   rewardID,
			Type:       model.QualifyConditionType(condReq.Type),
			Conditions: spec,
			Timeframe:  condTf,
			Status:     model.ConditionStatusPending,
			Balance:    decimal.Zero,
		})
	}

	// Second pass: resolve index references to generated ids.
	for i, condReq := range req.QualifyConditions {
		if condReq.DependsOnIndex == nil {
			continue
		}
		idx := *condReq.DependsOnIndex
		if idx < 0 || idx >= len(req.QualifyConditions) || idx == i {
			return nil, fmt.Errorf("qualify condition %d: invalid depends_on_index %d", i, idx)
		}
		// Two collapsed duplicates can reference each other by request
		// index and resolve to the same instance.
		if positionOf[idx] == positionOf[i] {
			return nil, fmt.Errorf("qualify condition %d: depends_on_index %d resolves to itself", i, idx)
		}
		dependsOn := reward.QualifyConditions[positionOf[idx]].ID
		reward.QualifyConditions[positionOf[i]].DependsOnQualifyConditionID = &dependsOn
	}

	usageTf, err := s.toTimeframe(req.UsageConditions.Timeframe, anchorScope{
		promotionID: promotionID, phaseID: phaseID, rewardID: rewardID,
	})
	if err != nil {
		return nil, err
	}
	usage, err := req.UsageConditions.ToUsage(reward.Type, usageTf)
	if err != nil {
		return nil, err
	}
	reward.UsageConditions = usage
	return reward, nil
}

// anchorScope carries the generated ids available while building one
// branch of the tree, used to default anchors that omit an entity id.
type anchorScope struct {
	promotionID uuid.UUID
	phaseID     uuid.UUID
	rewardID    uuid.UUID
	conditionID uuid.UUID
}

// toTimeframe builds a timeframe from its request, defaulting a relative
// anchor's entity id to the nearest enclosing entity of that kind when the
// caller omitted it. At create time ids do not exist on the wire.
func (s *promotionService) toTimeframe(req model.TimeframeRequest, scope anchorScope) (model.Timeframe, error) {
	if model.TimeframeMode(req.Mode) == model.TimeframeModeRelative &&
		req.AnchorEntityID == nil && req.AnchorEntity != nil {
		var id uuid.UUID
		switch model.AnchorEntity(*req.AnchorEntity) {
		case model.AnchorEntityPromotion:
			id = scope.promotionID
		case model.AnchorEntityPhase:
			id = scope.phaseID
		case model.AnchorEntityReward:
			id = scope.rewardID
		case model.AnchorEntityQualifyCondition:
			id = scope.conditionID
		default:
			return model.Timeframe{}, fmt.Errorf("%w: anchor entity %q", model.ErrUnknownVariant, *req.AnchorEntity)
		}
		if id == uuid.Nil {
			return model.Timeframe{}, model.ErrTimeframeMissingAnchor
		}
		req.AnchorEntityID = &id
	}
	return req.ToTimeframe()
}

// GetPromotion loads the full aggregate through a read-through cache.
func (s *promotionService) GetPromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	key := promotionCacheKey(id)

	var cached model.Promotion
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn("promotion cache read failed", map[string]interface{}{
			"promotion_id": id,
			"error":        err.Error(),
		})
	}
	if found {
		return &cached, nil
	}

	promotion, err := s.promotionRepo.GetAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, promotion, s.cacheTTL); err != nil {
		logger.Warn("promotion cache write failed", map[string]interface{}{
			"promotion_id": id,
			"error":        err.Error(),
		})
	}
	return promotion, nil
}

func (s *promotionService) ListPromotions(ctx context.Context, page, limit int) ([]model.PromotionListItem, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	promotions, total, err := s.promotionRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	items := make([]model.PromotionListItem, 0, len(promotions))
	for i := range promotions {
		items = append(items, promotions[i].ToListItem())
	}
	return items, total, nil
}

func (s *promotionService) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	if err := s.promotionRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *promotionService) ActivatePromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, id, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		if err := p.Activate(now); err != nil {
			return err
		}
		updates.Add(repository.KindPromotion, p.ID, map[string]interface{}{
			"status":       p.Status,
			"activated_at": *p.ActivatedAt,
		})
		return nil
	})
}

func (s *promotionService) CompletePromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, id, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		if err := p.Complete(now); err != nil {
			return err
		}
		updates.Add(repository.KindPromotion, p.ID, map[string]interface{}{
			"status":       p.Status,
			"completed_at": *p.CompletedAt,
		})
		return nil
	})
}

// ExpirePromotion stamps EXPIRED from any non-terminal state, e.g. when
// the timeframe elapsed without completion.
func (s *promotionService) ExpirePromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, id, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		if err := p.Expire(now); err != nil {
			return err
		}
		updates.Add(repository.KindPromotion, p.ID, map[string]interface{}{
			"status":     p.Status,
			"expired_at": *p.ExpiredAt,
		})
		return nil
	})
}

func (s *promotionService) ActivatePhase(ctx context.Context, promotionID, phaseID uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, promotionID, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		phase := findPhase(p, phaseID)
		if phase == nil {
			return model.ErrPhaseNotFound
		}
		if err := phase.Activate(now); err != nil {
			return err
		}
		updates.Add(repository.KindPhase, phase.ID, map[string]interface{}{
			"status":       phase.Status,
			"activated_at": *phase.ActivatedAt,
		})
		return nil
	})
}

func (s *promotionService) CompletePhase(ctx context.Context, promotionID, phaseID uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, promotionID, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		phase := findPhase(p, phaseID)
		if phase == nil {
			return model.ErrPhaseNotFound
		}
		if err := phase.Complete(now); err != nil {
			return err
		}
		updates.Add(repository.KindPhase, phase.ID, map[string]interface{}{
			"status":       phase.Status,
			"completed_at": *phase.CompletedAt,
		})
		return nil
	})
}

func (s *promotionService) ExpirePhase(ctx context.Context, promotionID, phaseID uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, promotionID, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		phase := findPhase(p, phaseID)
		if phase == nil {
			return model.ErrPhaseNotFound
		}
		if err := phase.Expire(now); err != nil {
			return err
		}
		updates.Add(repository.KindPhase, phase.ID, map[string]interface{}{
			"status":     phase.Status,
			"expired_at": *phase.ExpiredAt,
		})
		return nil
	})
}

func (s *promotionService) AdvanceReward(ctx context.Context, promotionID, rewardID uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, promotionID, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		reward := findReward(p, rewardID)
		if reward == nil {
			return model.ErrRewardNotFound
		}
		if err := reward.Advance(now); err != nil {
			return err
		}

		fields := map[string]interface{}{"status": reward.Status}
		switch reward.Status {
		case model.RewardStatusPendingToClaim:
			fields["pending_to_claim_at"] = *reward.PendingToClaimAt
		case model.RewardStatusClaimed:
			fields["claimed_at"] = *reward.ClaimedAt
		case model.RewardStatusReceived:
			fields["received_at"] = *reward.ReceivedAt
		case model.RewardStatusInUse:
			fields["in_use_at"] = *reward.InUseAt
		case model.RewardStatusUsed:
			fields["used_at"] = *reward.UsedAt
		}
		updates.Add(repository.KindReward, reward.ID, fields)
		return nil
	})
}

func (s *promotionService) ExpireReward(ctx context.Context, promotionID, rewardID uuid.UUID) (*model.Promotion, error) {
	return s.transition(ctx, promotionID, func(p *model.Promotion, now time.Time, updates *repository.UpdateSet) error {
		reward := findReward(p, rewardID)
		if reward == nil {
			return model.ErrRewardNotFound
		}
		if err := reward.Expire(now); err != nil {
			return err
		}
		updates.Add(repository.KindReward, reward.ID, map[string]interface{}{
			"status":     reward.Status,
			"expired_at": *reward.ExpiredAt,
		})
		return nil
	})
}

// RecalculatePromotionTimeframes reruns the resolver against the stamped
// timestamps and persists only the timeframes that changed.
func (s *promotionService) RecalculatePromotionTimeframes(ctx context.Context, promotionID uuid.UUID) error {
	promotion, err := s.promotionRepo.GetAggregate(ctx, promotionID)
	if err != nil {
		return err
	}

	updates := s.resolver.Resolve(promotion)
	if updates.Empty() {
		return nil
	}
	if err := s.promotionRepo.ApplyUpdates(ctx, updates.Updates()); err != nil {
		return err
	}
	s.invalidate(ctx, promotionID)
	return nil
}

// transition loads the aggregate, applies one lifecycle mutation, reruns the
// resolver since the fresh timestamp may be an anchor, and persists the
// combined update set atomically.
func (s *promotionService) transition(ctx context.Context, promotionID uuid.UUID, mutate func(*model.Promotion, time.Time, *repository.UpdateSet) error) (*model.Promotion, error) {
	promotion, err := s.promotionRepo.GetAggregate(ctx, promotionID)
	if err != nil {
		return nil, err
	}

	updates := &repository.UpdateSet{}
	if err := mutate(promotion, s.now(), updates); err != nil {
		return nil, err
	}

	for _, u := range s.resolver.Resolve(promotion).Updates() {
		updates.Add(u.Kind, u.ID, u.Fields)
	}

	if err := s.promotionRepo.ApplyUpdates(ctx, updates.Updates()); err != nil {
		return nil, err
	}
	s.invalidate(ctx, promotionID)
	return promotion, nil
}

func (s *promotionService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, promotionCacheKey(id)); err != nil {
		logger.Warn("failed to invalidate promotion cache", map[string]interface{}{
			"promotion_id": id,
			"error":        err.Error(),
		})
	}
}

func findPhase(p *model.Promotion, phaseID uuid.UUID) *model.Phase {
	for i := range p.Phases {
		if p.Phases[i].ID == phaseID {
			return &p.Phases[i]
		}
	}
	return nil
}

func findReward(p *model.Promotion, rewardID uuid.UUID) *model.Reward {
	for pi := range p.Phases {
		for ri := range p.Phases[pi].Rewards {
			if p.Phases[pi].Rewards[ri].ID == rewardID {
				return &p.Phases[pi].Rewards[ri]
			}
		}
	}
	return nil
}
