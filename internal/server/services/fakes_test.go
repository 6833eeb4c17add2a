package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/dbx"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/loyalty"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/redemptions"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/rewards"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeRepos struct {
	accounts    *fakeAccounts
	loyalty     *fakeLoyalty
	rewards     *fakeRewards
	redemptions *fakeRedemptions
	refresh     *fakeRefresh
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		accounts:    &fakeAccounts{byID: map[int64]*models.Account{}},
		loyalty:     &fakeLoyalty{rows: map[int64]*models.LoyaltyAccount{}},
		rewards:     &fakeRewards{rows: map[int64]*models.Reward{}},
		redemptions: &fakeRedemptions{},
		refresh:     &fakeRefresh{rows: map[string]*models.RefreshToken{}},
	}
}

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepos) Accounts(dbx.DBTX) accounts.Repository { return f.accounts }
func (f *fakeRepos) Loyalty(dbx.DBTX) loyalty.Repository { return f.loyalty }
func (f *fakeRepos) Rewards(dbx.DBTX) rewards.Repository { return f.rewards }
func (f *fakeRepos) Redemptions(dbx.DBTX) redemptions.Repository { return f.redemptions }
func (f *fakeRepos) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return f.refresh }

type hashUpdate struct {
	id   int64
	hash string
}

type fakeAccounts struct {
	byID      map[int64]*models.Account
	getErr    error
	updateErr error
	updates   []hashUpdate
}

func (f *fakeAccounts) add(a *models.Account) { f.byID[a.ID] = a }

func (f *fakeAccounts) GetByLogin(_ context.Context, identifier string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.byID {
		if a.Login == identifier || strings.EqualFold(a.Email, identifier) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, hashUpdate{id, hash})
	if a, ok := f.byID[id]; ok {
		a.PasswordHash = hash
	}
	return nil
}

type fakeLoyalty struct {
	rows        map[int64]*models.LoyaltyAccount
	getErr      error
	deductCalls int
	creditErr   error
}

func (f *fakeLoyalty) Get(_ context.Context, id int64) (*models.LoyaltyAccount, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	la, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *la
	return &cp, nil
}

func (f *fakeLoyalty) GetForUpdate(ctx context.Context, id int64) (*models.LoyaltyAccount, error) {
	return f.Get(ctx, id)
}

func (f *fakeLoyalty) Deduct(_ context.Context, id int64, points int64) (int64, error) {
	f.deductCalls++
	la, ok := f.rows[id]
	if !ok || la.Balance < points {
		return 0, common.ErrInsufficientPoints
	}
	la.Balance -= points
	return la.Balance, nil
}

func (f *fakeLoyalty) Credit(_ context.Context, id int64, points int64) (*models.LoyaltyAccount, error) {
	if f.creditErr != nil {
		return nil, f.creditErr
	}
	la, ok := f.rows[id]
	if !ok {
		la = &models.LoyaltyAccount{AccountID: id}
		f.rows[id] = la
	}
	la.Balance += points
	la.LifetimePoints += points
	cp := *la
	return &cp, nil
}

type fakeRewards struct {
	rows      map[int64]*models.Reward
	listErr   error
	createErr error
}

func (f *fakeRewards) Get(_ context.Context, id int64) (*models.Reward, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRewards) List(_ context.Context, activeOnly bool) ([]models.Reward, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Reward
	for _, r := range f.rows {
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CostPoints < out[j].CostPoints })
	return out, nil
}

func (f *fakeRewards) Create(_ context.Context, r *models.Reward) (*models.Reward, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	r.ID = int64(len(f.rows) + 1)
	r.CreatedAt = time.Now()
	f.rows[r.ID] = r
	return r, nil
}

func (f *fakeRewards) SetActive(_ context.Context, id int64, active bool) error {
	r, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.Active = active
	return nil
}

type fakeRedemptions struct {
	rows []models.Redemption
	// createErrs are returned by successive Create calls before succeeding.
	createErrs []error
	listErr    error
	countErr   error
}

func (f *fakeRedemptions) Create(_ context.Context, r *models.Redemption) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return err
	}
	r.CreatedAt = time.Now()
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeRedemptions) ListByAccount(_ context.Context, id int64, limit int) ([]models.Redemption, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Redemption
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].AccountID == id {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeRedemptions) CountByAccount(_ context.Context, id int64) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	var n int64
	for _, r := range f.rows {
		if r.AccountID == id {
			n++
		}
	}
	return n, nil
}

type fakeRefresh struct {
	rows      map[string]*models.RefreshToken
	createErr error
	findErr   error
	delErr    error
}

func (f *fakeRefresh) Create(_ context.Context, id int64, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows[token] = &models.RefreshToken{AccountID: id, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefresh) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	rt, ok := f.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rt
	return &cp, nil
}

func (f *fakeRefresh) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.rows[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, token)
	return nil
}

func (f *fakeRefresh) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, rt := range f.rows {
		if rt.Expires.Before(now) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}
