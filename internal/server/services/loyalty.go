package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/repomanager"
)

// tierThresholds lists lifetime-point floors, lowest first.
var tierThresholds = []struct {
	tier  models.Tier
	floor int64
}{
	{models.TierBronze, 0},
	{models.TierSilver, 1000},
	{models.TierGold, 5000},
	{models.TierPlatinum, 10000},
}

// TierFor places lifetime points on the tier ladder. next is empty at the
// top tier; progress is the percentage covered towards next.
func TierFor(lifetime int64) (tier, next models.Tier, toNext int64, progress int) {
	idx := 0
	for i, t := range tierThresholds {
		if lifetime >= t.floor {
			idx = i
		}
	}
	tier = tierThresholds[idx].tier
	if idx == len(tierThresholds)-1 {
		return tier, "", 0, 100
	}
	floor, ceil := tierThresholds[idx].floor, tierThresholds[idx+1].floor
	next = tierThresholds[idx+1].tier
	toNext = ceil - lifetime
	progress = int((lifetime - floor) * 100 / (ceil - floor))
	return tier, next, toNext, progress
}

// LoyaltyService reads and credits point balances.
type LoyaltyService struct {
	ledger      *sql.DB
	wordpress   *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewLoyaltyService(ledger, wordpress *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *LoyaltyService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &LoyaltyService{ledger: ledger, wordpress: wordpress, repomanager: m, logger: logger}
}

// Summary returns balance, tier progress and the number of redemptions. Accounts without a ledger
// row yet see a zero balance.
func (s *LoyaltyService) Summary(ctx context.Context, accountID int64) (*models.Summary, error) {
	account, err := s.repomanager.Accounts(s.wordpress).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountNotFound
		}
		s.logger.Error(ctx, "account lookup failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}

	la, err := s.repomanager.Loyalty(s.ledger).Get(ctx, accountID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		la = &models.LoyaltyAccount{AccountID: accountID}
	case err != nil:
		s.logger.Error(ctx, "loyalty lookup failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}

	redeemed, err := s.repomanager.Redemptions(s.ledger).CountByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error(ctx, "redemption count failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}

	tier, next, toNext, progress := TierFor(la.LifetimePoints)
	return &models.Summary{
		AccountID:        accountID,
		DisplayName:      account.DisplayName,
		Balance:          la.Balance,
		LifetimePoints:   la.LifetimePoints,
		Tier:             tier,
		NextTier:         next,
		PointsToNextTier: toNext,
		Progress:         progress,
		Redemptions:      redeemed,
	}, nil
}

// Credit adds points to an existing WordPress account.
func (s *LoyaltyService) Credit(ctx context.Context, accountID int64, points int64) (*models.LoyaltyAccount, error) {
	if points <= 0 {
		return nil, common.ErrorValidation
	}
	if _, err := s.repomanager.Accounts(s.wordpress).GetByID(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountNotFound
		}
		s.logger.Error(ctx, "account lookup failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}

	la, err := s.repomanager.Loyalty(s.ledger).Credit(ctx, accountID, points)
	if err != nil {
		s.logger.Error(ctx, "credit failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}
	s.logger.Info(ctx, "points credited", "account_id", accountID, "points", points, "balance", la.Balance)
	return la, nil
}
