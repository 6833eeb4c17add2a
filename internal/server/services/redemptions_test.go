package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/server/metrics"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^RWD-[A-Z2-7]{16}$`)

type redeemFixture struct {
	svc   *RedemptionService
	repos *fakeRepos
	mock  sqlmock.Sqlmock
}

func newRedeemFixture(t *testing.T, balance int64, cost int64) *redeemFixture {
	t.Helper()
	ledger, mock := newSQLMockDB(t)
	wordpress, _ := newSQLMockDB(t)

	repos := newFakeRepos()
	repos.accounts.add(&models.Account{ID: 5, Login: "alice"})
	repos.loyalty.rows[5] = &models.LoyaltyAccount{AccountID: 5, Balance: balance, LifetimePoints: balance}
	repos.rewards.rows[3] = &models.Reward{ID: 3, Name: "Free coffee", CostPoints: cost, Active: true}

	return &redeemFixture{
		svc:   NewRedemptionService(ledger, wordpress, repos, metrics.New(), nil),
		repos: repos,
		mock:  mock,
	}
}

func TestGenerateRedemptionCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := generateRedemptionCode()
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
		require.False(t, seen[code])
		seen[code] = true
	}
}

func TestRedeem_ExactBalance(t *testing.T) {
	f := newRedeemFixture(t, 500, 500)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Redeem(context.Background(), 5, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.NewBalance)
	assert.Regexp(t, codePattern, res.Code)
	assert.NotEmpty(t, res.RedemptionID)

	require.Len(t, f.repos.redemptions.rows, 1)
	rd := f.repos.redemptions.rows[0]
	assert.Equal(t, res.Code, rd.Code)
	assert.Equal(t, int64(500), rd.PointsSpent)
	assert.Equal(t, int64(0), f.repos.loyalty.rows[5].Balance)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRedeem_InsufficientPointsRollsBack(t *testing.T) {
	f := newRedeemFixture(t, 499, 500)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Redeem(context.Background(), 5, 3)
	require.ErrorIs(t, err, common.ErrInsufficientPoints)

	assert.Equal(t, int64(499), f.repos.loyalty.rows[5].Balance)
	assert.Equal(t, 0, f.repos.loyalty.deductCalls)
	assert.Empty(t, f.repos.redemptions.rows)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRedeem_SequentialCodesDiffer(t *testing.T) {
	f := newRedeemFixture(t, 1000, 300)
	for i := 0; i < 3; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}

	first, err := f.svc.Redeem(context.Background(), 5, 3)
	require.NoError(t, err)
	second, err := f.svc.Redeem(context.Background(), 5, 3)
	require.NoError(t, err)
	third, err := f.svc.Redeem(context.Background(), 5, 3)
	require.NoError(t, err)

	assert.NotEqual(t, first.Code, second.Code)
	assert.NotEqual(t, second.Code, third.Code)
	assert.Equal(t, []int64{700, 400, 100}, []int64{first.NewBalance, second.NewBalance, third.NewBalance})

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Redeem(context.Background(), 5, 3)
	assert.ErrorIs(t, err, common.ErrInsufficientPoints)
	assert.Len(t, f.repos.redemptions.rows, 3)
}

func TestRedeem_ExpectedFailures(t *testing.T) {
	tests := []struct {
		name      string
		accountID int64
		rewardID  int64
		prepare   func(f *redeemFixture)
		beginsTx  bool
		want      error
	}{
		{
			name: "unknown account", accountID: 99, rewardID: 3,
			want: common.ErrAccountNotFound,
		},
		{
			name: "no ledger row", accountID: 5, rewardID: 3, beginsTx: true,
			prepare: func(f *redeemFixture) { delete(f.repos.loyalty.rows, 5) },
			want:    common.ErrNoLoyaltyRecord,
		},
		{
			name: "unknown reward", accountID: 5, rewardID: 404, beginsTx: true,
			want: common.ErrRewardNotFoundOrInactive,
		},
		{
			name: "inactive reward", accountID: 5, rewardID: 3, beginsTx: true,
			prepare: func(f *redeemFixture) { f.repos.rewards.rows[3].Active = false },
			want:    common.ErrRewardNotFoundOrInactive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRedeemFixture(t, 1000, 500)
			if tt.prepare != nil {
				tt.prepare(f)
			}
			if tt.beginsTx {
				f.mock.ExpectBegin()
				f.mock.ExpectRollback()
			}

			_, err := f.svc.Redeem(context.Background(), tt.accountID, tt.rewardID)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.repos.redemptions.rows)
			assert.Equal(t, 0, f.repos.loyalty.deductCalls)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestRedeem_RetriesCodeCollision(t *testing.T) {
	f := newRedeemFixture(t, 1000, 500)
	dup := fmt.Errorf("%w: %w", common.ErrorDuplicate, &pgconn.PgError{Code: "23505"})
	f.repos.redemptions.createErrs = []error{dup}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	res, err := f.svc.Redeem(context.Background(), 5, 3)
	require.NoError(t, err)
	assert.Regexp(t, codePattern, res.Code)
	assert.Len(t, f.repos.redemptions.rows, 1)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRedeem_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newRedeemFixture(t, 5000, 500)
	dup := fmt.Errorf("%w: duplicate code", common.ErrorDuplicate)
	f.repos.redemptions.createErrs = []error{dup, dup, dup}

	for i := 0; i < maxRedeemAttempts; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()
	}

	_, err := f.svc.Redeem(context.Background(), 5, 3)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRedeem_InfrastructureFaultsAreGeneric(t *testing.T) {
	t.Run("account store down", func(t *testing.T) {
		f := newRedeemFixture(t, 1000, 500)
		f.repos.accounts.getErr = errors.New("dial tcp 10.0.0.3:3306: connection refused")

		_, err := f.svc.Redeem(context.Background(), 5, 3)
		assert.ErrorIs(t, err, common.ErrorInternal)
		assert.NotContains(t, err.Error(), "10.0.0.3")
	})

	t.Run("ledger read fails", func(t *testing.T) {
		f := newRedeemFixture(t, 1000, 500)
		f.repos.loyalty.getErr = errors.New("db error: conn reset")
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()

		_, err := f.svc.Redeem(context.Background(), 5, 3)
		assert.ErrorIs(t, err, common.ErrorInternal)
	})

	t.Run("begin fails", func(t *testing.T) {
		f := newRedeemFixture(t, 1000, 500)
		f.mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		_, err := f.svc.Redeem(context.Background(), 5, 3)
		assert.ErrorIs(t, err, common.ErrorInternal)
		assert.Empty(t, f.repos.redemptions.rows)
	})

	t.Run("code generator fails", func(t *testing.T) {
		f := newRedeemFixture(t, 1000, 500)
		orig := newRedemptionCode
		newRedemptionCode = func() (string, error) { return "", errors.New("entropy") }
		t.Cleanup(func() { newRedemptionCode = orig })

		f.mock.ExpectBegin()
		f.mock.ExpectRollback()

		_, err := f.svc.Redeem(context.Background(), 5, 3)
		assert.ErrorIs(t, err, common.ErrorInternal)
		assert.Empty(t, f.repos.redemptions.rows)
	})
}

func TestRedeem_RetriesTransientFailure(t *testing.T) {
	f := newRedeemFixture(t, 1000, 500)
	f.repos.redemptions.createErrs = []error{&pgconn.PgError{Code: "40P01"}}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.Redeem(context.Background(), 5, 3)
	require.NoError(t, err)
}

func TestHistory(t *testing.T) {
	f := newRedeemFixture(t, 1000, 100)
	for i := 0; i < 3; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		_, err := f.svc.Redeem(context.Background(), 5, 3)
		require.NoError(t, err)
	}

	list, err := f.svc.History(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.History(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	f.repos.redemptions.listErr = errors.New("boom")
	_, err = f.svc.History(context.Background(), 5, 10)
	assert.ErrorIs(t, err, common.ErrorInternal)
}
