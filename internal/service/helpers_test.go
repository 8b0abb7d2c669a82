package service

import (
	"testing"
	"time"

	"crowdfund_system/internal/db"
	"crowdfund_system/internal/dbtest"
	"crowdfund_system/internal/domain"
	"crowdfund_system/internal/notify"
	"crowdfund_system/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testEnv struct {
	gdb      *gorm.DB
	tokens   *TokenService
	accounts *AccountService
	ledger   *LedgerService
	catalog  *CatalogService
	mail     *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := dbtest.Open(t)
	runner := db.NewTxRunner(gdb, 5*time.Second, 2)
	mail := &notify.Recorder{}
	return &testEnv{
		gdb:    gdb,
		tokens: NewTokenService(runner, TokenConfig{Secret: testSecret, AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour}),
		accounts: NewAccountService(runner, mail, nil, AccountConfig{
			BcryptCost:    4,
			ResetTokenTTL: 24 * time.Hour,
			CacheTTL:      time.Minute,
		}),
		ledger:  NewLedgerService(runner, nil, LedgerConfig{FeePercent: 5, PointsPerUnit: 1}),
		catalog: NewCatalogService(runner),
		mail:    mail,
	}
}

// account inserts an Active account directly
func (e *testEnv) account(t *testing.T, email, password, role string, points int64) domain.Account {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	a := domain.Account{Email: email, PasswordHash: hash, Role: role, Status: domain.StatusActive, Points: points, Image: domain.DefaultImage}
	dbtest.Create(t, e.gdb, &a)
	return a
}

func (e *testEnv) campaign(t *testing.T, owner uint) domain.Campaign {
	t.Helper()
	c := domain.Campaign{AccountID: owner, Title: "Clean water", Goal: decimal.NewFromInt(1000), Status: domain.CampaignActive}
	dbtest.Create(t, e.gdb, &c)
	return c
}

func (e *testEnv) reward(t *testing.T, owner uint, cost, qty int64, status string) domain.Reward {
	t.Helper()
	r := domain.Reward{AccountID: owner, Name: "T-shirt", PointCost: cost, Quantity: qty, Status: status}
	dbtest.Create(t, e.gdb, &r)
	return r
}

func (e *testEnv) points(t *testing.T, id uint) int64 {
	t.Helper()
	var a domain.Account
	require.NoError(t, e.gdb.First(&a, id).Error)
	return a.Points
}

func admin(id uint) Principal { return Principal{AccountID: id, Role: domain.RoleAdmin} }
func user(id uint) Principal  { return Principal{AccountID: id, Role: domain.RoleUser} }
