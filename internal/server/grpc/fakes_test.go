package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/services"
)

// ---- fakes ----

type fakeAuth struct {
	loginResp *services.TokenPair
	loginErr  error
	gotIP     string
}

func (f *fakeAuth) Login(ctx context.Context, identifier, secret, clientIP string) (*services.TokenPair, error) {
	f.gotIP = clientIP
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) AccountIDFromAccessToken(token string) (int64, error) {
	if token == "valid" {
		return 5, nil
	}
	return 0, common.ErrInvalidToken
}

type fakeLoyalty struct {
	sum *models.Summary
	err error
}

func (f *fakeLoyalty) Summary(ctx context.Context, accountID int64) (*models.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.sum
	s.AccountID = accountID
	return &s, nil
}

type fakeRewards struct {
	list []models.Reward
	err  error
}

func (f *fakeRewards) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	return f.list, f.err
}

type fakeRedemptions struct {
	res *models.RedemptionResult
	err error
}

func (f *fakeRedemptions) Redeem(ctx context.Context, accountID, rewardID int64) (*models.RedemptionResult, error) {
	return f.res, f.err
}

// ---- helpers ----

type fakes struct {
	auth        *fakeAuth
	loyalty     *fakeLoyalty
	rewards     *fakeRewards
	redemptions *fakeRedemptions
}

func newFakes() *fakes {
	return &fakes{
		auth:        &fakeAuth{loginResp: &services.TokenPair{AccessToken: "A", RefreshToken: "R"}},
		loyalty:     &fakeLoyalty{sum: &models.Summary{Balance: 700, Tier: models.TierBronze}},
		rewards:     &fakeRewards{},
		redemptions: &fakeRedemptions{},
	}
}

func newServer(f *fakes) *GRPCServer {
	s, _ := NewGRPCServer("127.0.0.1:0", logging.Nop{}, f.auth, f.loyalty, f.rewards, f.redemptions)
	return s
}
