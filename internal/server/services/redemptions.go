package services

import (
	"context"
	"database/sql"
	"encoding/base32"
	"errors"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/dbx"
	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"github.com/dmitrijs2005/gophrewards/internal/server/metrics"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	maxRedeemAttempts   = 3
	redemptionCodeBytes = 10
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// newRedemptionCode is a seam for tests.
var newRedemptionCode = generateRedemptionCode

// generateRedemptionCode returns "RWD-" followed by 16 base32 characters
// (80 random bits). Nothing about the account or reward is encoded.
func generateRedemptionCode() (string, error) {
	b, err := common.RandBytes(redemptionCodeBytes)
	if err != nil {
		return "", err
	}
	return common.RedemptionCodePrefix + "-" + base32.StdEncoding.EncodeToString(b), nil
}

// RedemptionService exchanges points for rewards.
type RedemptionService struct {
	ledger      *sql.DB
	wordpress   *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewRedemptionService(ledger, wordpress *sql.DB, m repomanager.RepositoryManager, mt *metrics.Metrics, logger logging.Logger) *RedemptionService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &RedemptionService{ledger: ledger, wordpress: wordpress, repomanager: m, metrics: mt, logger: logger}
}

// Redeem spends the cost of rewardID from accountID's balance and records
// the redemption with a fresh code. The balance check, the deduction and
// the insert share one transaction.
//
// Expected failures are common.ErrAccountNotFound, common.ErrNoLoyaltyRecord,
// common.ErrRewardNotFoundOrInactive and common.ErrInsufficientPoints; any
// other fault is reported as common.ErrorInternal.
func (s *RedemptionService) Redeem(ctx context.Context, accountID, rewardID int64) (*models.RedemptionResult, error) {
	if _, err := s.repomanager.Accounts(s.wordpress).GetByID(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.fail(ctx, common.ErrAccountNotFound)
		}
		s.logger.Error(ctx, "account lookup failed", "account_id", accountID, "error", err)
		return nil, s.fail(ctx, common.ErrorInternal)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRedeemAttempts; attempt++ {
		res, err := s.redeemOnce(ctx, accountID, rewardID)
		if err == nil {
			s.metrics.Redemption("ok")
			s.logger.Info(ctx, "reward redeemed", "account_id", accountID, "reward_id", rewardID,
				"redemption_id", res.RedemptionID, "balance", res.NewBalance)
			return res, nil
		}
		if !errors.Is(err, common.ErrorDuplicate) && !dbx.IsTransient(err) {
			return nil, s.fail(ctx, err)
		}
		s.logger.Warn(ctx, "redemption retried", "account_id", accountID, "attempt", attempt, "error", err)
		lastErr = err
	}
	return nil, s.fail(ctx, lastErr)
}

func (s *RedemptionService) redeemOnce(ctx context.Context, accountID, rewardID int64) (*models.RedemptionResult, error) {
	var res *models.RedemptionResult
	err := dbx.WithTx(ctx, s.ledger, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ledger := s.repomanager.Loyalty(tx)

		la, err := ledger.GetForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrNoLoyaltyRecord
			}
			return err
		}

		reward, err := s.repomanager.Rewards(tx).Get(ctx, rewardID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrRewardNotFoundOrInactive
			}
			return err
		}
		if !reward.Active {
			return common.ErrRewardNotFoundOrInactive
		}

		if la.Balance < reward.CostPoints {
			return common.ErrInsufficientPoints
		}

		balance, err := ledger.Deduct(ctx, accountID, reward.CostPoints)
		if err != nil {
			return err
		}

		code, err := newRedemptionCode()
		if err != nil {
			return err
		}
		rd := &models.Redemption{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			RewardID:    reward.ID,
			Code:        code,
			PointsSpent: reward.CostPoints,
		}
		if err := s.repomanager.Redemptions(tx).Create(ctx, rd); err != nil {
			return err
		}

		res = &models.RedemptionResult{RedemptionID: rd.ID, NewBalance: balance, Code: code}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// History lists the account's redemptions, newest first.
func (s *RedemptionService) History(ctx context.Context, accountID int64, limit int) ([]models.Redemption, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	list, err := s.repomanager.Redemptions(s.ledger).ListByAccount(ctx, accountID, limit)
	if err != nil {
		s.logger.Error(ctx, "redemption history failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}
	return list, nil
}

// fail maps err to the outcome reported to callers and counts it.
func (s *RedemptionService) fail(ctx context.Context, err error) error {
	for _, expected := range []struct {
		err   error
		label string
	}{
		{common.ErrAccountNotFound, "account_not_found"},
		{common.ErrNoLoyaltyRecord, "no_loyalty_record"},
		{common.ErrRewardNotFoundOrInactive, "reward_unavailable"},
		{common.ErrInsufficientPoints, "insufficient_points"},
	} {
		if errors.Is(err, expected.err) {
			s.metrics.Redemption(expected.label)
			return expected.err
		}
	}
	if !errors.Is(err, common.ErrorInternal) {
		s.logger.Error(ctx, "redemption failed", "error", err)
	}
	s.metrics.Redemption("error")
	return common.ErrorInternal
}
