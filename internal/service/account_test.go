package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"crowdfund_system/internal/apperr"
	"crowdfund_system/internal/dbtest"
	"crowdfund_system/internal/domain"
	"crowdfund_system/internal/notify"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func register(t *testing.T, env *testEnv, email string) *domain.Account {
	t.Helper()
	acct, err := env.accounts.Register(context.Background(), Profile{Email: email, Password: "password1", FirstName: "Ana"}, "http://app.test/")
	require.NoError(t, err)
	return acct
}

func TestRegister_FirstAccountIsAdmin(t *testing.T) {
	env := newTestEnv(t)
	first := register(t, env, "First@Example.com")
	second := register(t, env, "second@example.com")

	assert.Equal(t, domain.RoleAdmin, first.Role)
	assert.Equal(t, domain.RoleUser, second.Role)
	assert.Equal(t, "first@example.com", first.Email)
	assert.Equal(t, domain.StatusUnverified, first.Status)
	assert.Equal(t, domain.DefaultImage, first.Image)
	assert.NotEqual(t, "password1", first.PasswordHash)
}

func TestRegister_RetryRecomputesRole(t *testing.T) {
	env := newTestEnv(t)
	failed, inserted := false, false

	// First attempt sees an empty table, then hits a lock
	require.NoError(t, env.gdb.Callback().Create().Before("gorm:create").Register("test:lock_once", func(d *gorm.DB) {
		if acct, ok := d.Statement.Dest.(*domain.Account); ok && acct.Email == "second@example.com" && !failed {
			failed = true
			d.AddError(errors.New("database is locked"))
		}
	}))
	// Another registration commits before the retry counts accounts
	require.NoError(t, env.gdb.Callback().Query().Before("gorm:query").Register("test:concurrent_signup", func(d *gorm.DB) {
		if !failed || inserted || d.Statement.Table != "accounts" {
			return
		}
		inserted = true
		now := time.Now()
		err := d.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO accounts (email, password_hash, role, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			"first@example.com", "x", domain.RoleAdmin, domain.StatusActive, now, now,
		).Error
		if err != nil {
			d.AddError(err)
		}
	}))

	second := register(t, env, "second@example.com")
	assert.True(t, failed)
	assert.True(t, inserted)
	assert.Equal(t, domain.RoleUser, second.Role)

	var stored domain.Account
	require.NoError(t, env.gdb.First(&stored, second.ID).Error)
	assert.Equal(t, domain.RoleUser, stored.Role)
	assert.Equal(t, int64(1), dbtest.Count(t, env.gdb, &domain.Account{}, "role = ?", domain.RoleAdmin))
}

func TestRegister_SendsVerificationLink(t *testing.T) {
	env := newTestEnv(t)
	acct := register(t, env, "ana@example.com")

	msg, ok := env.mail.Last(notify.TypeVerifyEmail)
	require.True(t, ok)
	assert.Equal(t, acct.Email, msg.To)
	assert.Equal(t, "http://app.test/account/verify-email?token="+msg.Token, msg.Link)
	require.NotNil(t, acct.VerificationToken)
	assert.Equal(t, *acct.VerificationToken, msg.Token)
}

func TestRegister_EmailInUse(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "ana@example.com")

	_, err := env.accounts.Register(context.Background(), Profile{Email: "ANA@example.com", Password: "password1"}, "http://app.test")
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, int64(1), dbtest.Count(t, env.gdb, &domain.Account{}))
}

func TestVerifyEmail_IsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "ana@example.com")
	msg, _ := env.mail.Last(notify.TypeVerifyEmail)

	_, err := env.tokens.Authenticate(ctx, "ana@example.com", "password1", "")
	assert.ErrorIs(t, err, apperr.ErrAccountNotVerified)

	require.NoError(t, env.accounts.VerifyEmail(ctx, msg.Token))
	err = env.accounts.VerifyEmail(ctx, msg.Token)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	var acct domain.Account
	require.NoError(t, env.gdb.Where("email = ?", "ana@example.com").First(&acct).Error)
	assert.Equal(t, domain.StatusActive, acct.Status)
	assert.NotNil(t, acct.VerifiedAt)
	assert.Nil(t, acct.VerificationToken)

	_, err = env.tokens.Authenticate(ctx, "ana@example.com", "password1", "")
	assert.NoError(t, err)

	assert.ErrorIs(t, env.accounts.VerifyEmail(ctx, ""), apperr.ErrInvalidToken)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.accounts.ForgotPassword(context.Background(), "nobody@example.com", "http://app.test"))
	assert.Empty(t, env.mail.Messages())
}

func TestResetPassword_Flow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.account(t, "ana@example.com", "old-password", domain.RoleUser, 0)
	session, err := env.tokens.Authenticate(ctx, "ana@example.com", "old-password", "")
	require.NoError(t, err)

	require.NoError(t, env.accounts.ForgotPassword(ctx, "ana@example.com", "http://app.test"))
	msg, ok := env.mail.Last(notify.TypeResetPassword)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(msg.Link, "http://app.test/account/reset-password?token="))

	require.NoError(t, env.accounts.ValidateResetToken(ctx, msg.Token))
	assert.ErrorIs(t, env.accounts.ValidateResetToken(ctx, "bogus"), apperr.ErrInvalidOrExpiredTok)

	require.NoError(t, env.accounts.ResetPassword(ctx, msg.Token, "new-password"))

	// Token is spent and every session ended
	assert.ErrorIs(t, env.accounts.ValidateResetToken(ctx, msg.Token), apperr.ErrInvalidOrExpiredTok)
	assert.ErrorIs(t, env.accounts.ResetPassword(ctx, msg.Token, "again"), apperr.ErrInvalidOrExpiredTok)
	_, err = env.tokens.Refresh(ctx, session.RefreshToken, "")
	assert.ErrorIs(t, err, apperr.ErrTokenReuseDetected)

	_, err = env.tokens.Authenticate(ctx, "ana@example.com", "old-password", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = env.tokens.Authenticate(ctx, "ana@example.com", "new-password", "")
	assert.NoError(t, err)

	var acct domain.Account
	require.NoError(t, env.gdb.Where("email = ?", "ana@example.com").First(&acct).Error)
	assert.NotNil(t, acct.PasswordResetAt)
	assert.Nil(t, acct.ResetToken)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.account(t, "ana@example.com", "old-password", domain.RoleUser, 0)
	require.NoError(t, env.accounts.ForgotPassword(ctx, "ana@example.com", "http://app.test"))
	msg, _ := env.mail.Last(notify.TypeResetPassword)

	env.accounts.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	assert.ErrorIs(t, env.accounts.ValidateResetToken(ctx, msg.Token), apperr.ErrInvalidOrExpiredTok)
	assert.ErrorIs(t, env.accounts.ResetPassword(ctx, msg.Token, "new-password"), apperr.ErrInvalidOrExpiredTok)
}

func TestUpdatePoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.account(t, "ana@example.com", "password1", domain.RoleUser, 10)

	balance, err := env.accounts.UpdatePoints(ctx, acct.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)

	_, err = env.accounts.UpdatePoints(ctx, acct.ID, -20)
	assert.ErrorIs(t, err, apperr.ErrInsufficientBalance)
	assert.Equal(t, int64(15), env.points(t, acct.ID))

	balance, err = env.accounts.UpdatePoints(ctx, acct.ID, -15)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = env.accounts.UpdatePoints(ctx, 999, 1)
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
}

func TestUpdatePoints_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	acct := env.account(t, "ana@example.com", "password1", domain.RoleUser, 100)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.accounts.UpdatePoints(context.Background(), acct.ID, -20)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, apperr.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 5, ok)
	assert.Zero(t, env.points(t, acct.ID))
}

func TestGetByIDAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, "a@example.com", "password1", domain.RoleUser, 0)
	env.account(t, "b@example.com", "password1", domain.RoleUser, 0)
	env.account(t, "c@example.com", "password1", domain.RoleUser, 0)

	got, err := env.accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = env.accounts.GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)

	page, total, err := env.accounts.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "c@example.com", page[0].Email)
}

func TestCreate_ByAdminIsVerified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct, err := env.accounts.Create(ctx, Profile{Email: "staff@example.com", Password: "password1"}, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, acct.Status)
	assert.Equal(t, domain.RoleAdmin, acct.Role)
	assert.NotNil(t, acct.VerifiedAt)

	_, err = env.tokens.Authenticate(ctx, "staff@example.com", "password1", "")
	assert.NoError(t, err)

	_, err = env.accounts.Create(ctx, Profile{Email: "staff@example.com", Password: "x"}, domain.RoleUser)
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)
}

func TestUpdate_Permissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, "a@example.com", "password1", domain.RoleUser, 0)
	b := env.account(t, "b@example.com", "password1", domain.RoleUser, 0)
	boss := env.account(t, "boss@example.com", "password1", domain.RoleAdmin, 0)

	name := "Annie"
	got, err := env.accounts.Update(ctx, user(a.ID), a.ID, AccountUpdate{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.FirstName)

	_, err = env.accounts.Update(ctx, user(b.ID), a.ID, AccountUpdate{FirstName: &name})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	role := domain.RoleAdmin
	_, err = env.accounts.Update(ctx, user(a.ID), a.ID, AccountUpdate{Role: &role})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	taken := "B@example.com"
	_, err = env.accounts.Update(ctx, user(a.ID), a.ID, AccountUpdate{Email: &taken})
	assert.ErrorIs(t, err, apperr.ErrEmailInUse)

	bogus := "Sleeping"
	_, err = env.accounts.Update(ctx, admin(boss.ID), a.ID, AccountUpdate{Status: &bogus})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err = env.accounts.Update(ctx, admin(boss.ID), a.ID, AccountUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}

func TestUpdate_DisableEndsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, "a@example.com", "password1", domain.RoleUser, 0)
	boss := env.account(t, "boss@example.com", "password1", domain.RoleAdmin, 0)
	session, err := env.tokens.Authenticate(ctx, "a@example.com", "password1", "")
	require.NoError(t, err)

	disabled := domain.StatusDisabled
	_, err = env.accounts.Update(ctx, admin(boss.ID), a.ID, AccountUpdate{Status: &disabled})
	require.NoError(t, err)

	_, err = env.tokens.Refresh(ctx, session.RefreshToken, "")
	assert.ErrorIs(t, err, apperr.ErrTokenReuseDetected)
	_, err = env.tokens.Authenticate(ctx, "a@example.com", "password1", "")
	assert.ErrorIs(t, err, apperr.ErrAccountDisabled)
}

func TestDelete_CascadesAndChecksOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, "a@example.com", "password1", domain.RoleUser, 500)
	b := env.account(t, "b@example.com", "password1", domain.RoleUser, 0)
	boss := env.account(t, "boss@example.com", "password1", domain.RoleAdmin, 0)

	campaign := env.campaign(t, a.ID)
	_, err := env.ledger.RecordDonation(ctx, b.ID, campaign.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	_, err = env.ledger.RecordDonation(ctx, a.ID, campaign.ID, decimal.NewFromInt(20))
	require.NoError(t, err)
	reward := env.reward(t, boss.ID, 100, 5, domain.RewardActive)
	_, err = env.ledger.RedeemReward(ctx, reward.ID, a.ID, "1 Main St")
	require.NoError(t, err)
	_, err = env.tokens.Authenticate(ctx, "a@example.com", "password1", "")
	require.NoError(t, err)

	err = env.accounts.Delete(ctx, user(b.ID), a.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, env.accounts.Delete(ctx, user(a.ID), a.ID))

	for _, model := range []any{&domain.Campaign{}, &domain.Donation{}, &domain.Revenue{}, &domain.RedeemReward{}, &domain.RefreshToken{}} {
		assert.Zero(t, dbtest.Count(t, env.gdb, model), "%T rows left", model)
	}
	assert.Equal(t, int64(1), dbtest.Count(t, env.gdb, &domain.Reward{}))

	err = env.accounts.Delete(ctx, admin(boss.ID), a.ID)
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
}
