package db_test

import (
	"testing"
	"time"

	"crowdfund_system/internal/apperr"
	"crowdfund_system/internal/db"
	"crowdfund_system/internal/dbtest"
	"crowdfund_system/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type graph struct {
	account  domain.Account
	campaign domain.Campaign
	donation domain.Donation
	reward   domain.Reward
	event    domain.Event
}

// seedGraph creates an account owning one row of every kind, plus rows that
// other accounts attach to those parents
func seedGraph(t *testing.T, gdb *gorm.DB, email string, other *domain.Account) graph {
	t.Helper()
	g := graph{account: domain.Account{Email: email, PasswordHash: "x", Role: domain.RoleUser, Status: domain.StatusActive, Points: 50}}
	dbtest.Create(t, gdb, &g.account)

	g.campaign = domain.Campaign{AccountID: g.account.ID, Title: "Wells", Goal: decimal.NewFromInt(1000)}
	g.reward = domain.Reward{AccountID: g.account.ID, Name: "Mug", PointCost: 10, Quantity: 3, Status: domain.RewardActive}
	g.event = domain.Event{AccountID: g.account.ID, Name: "Gala", Date: time.Now().Add(24 * time.Hour), Status: 1}
	dbtest.Create(t, gdb, &g.campaign, &g.reward, &g.event)

	g.donation = domain.Donation{AccountID: g.account.ID, CampaignID: g.campaign.ID, Amount: decimal.NewFromInt(100)}
	dbtest.Create(t, gdb, &g.donation)

	first := domain.RefreshToken{AccountID: g.account.ID, TokenHash: email + "-1", ExpiresAt: time.Now().Add(time.Hour)}
	dbtest.Create(t, gdb, &first)
	second := domain.RefreshToken{AccountID: g.account.ID, TokenHash: email + "-2", ExpiresAt: time.Now().Add(time.Hour)}
	dbtest.Create(t, gdb, &second)
	require.NoError(t, gdb.Model(&first).Update("replaced_by_id", second.ID).Error)

	dbtest.Create(t, gdb,
		&domain.Revenue{DonationID: g.donation.ID, AccountID: g.account.ID, Amount: decimal.NewFromInt(5)},
		&domain.Withdraw{AccountID: g.account.ID, CampaignID: g.campaign.ID, Amount: decimal.NewFromInt(10), Status: domain.WithdrawPending},
		&domain.Comment{AccountID: g.account.ID, CampaignID: g.campaign.ID, Body: "good luck"},
		&domain.Like{AccountID: g.account.ID, CampaignID: g.campaign.ID},
		&domain.RedeemReward{AccountID: g.account.ID, RewardID: g.reward.ID, PointsPaid: 10},
		&domain.EventParticipant{AccountID: g.account.ID, EventID: g.event.ID, JoinedAt: time.Now()},
	)

	if other != nil {
		// Rows owned by someone else that hang off this account's parents
		donation := domain.Donation{AccountID: other.ID, CampaignID: g.campaign.ID, Amount: decimal.NewFromInt(20)}
		dbtest.Create(t, gdb, &donation)
		dbtest.Create(t, gdb,
			&domain.Revenue{DonationID: donation.ID, AccountID: other.ID, Amount: decimal.NewFromInt(1)},
			&domain.Comment{AccountID: other.ID, CampaignID: g.campaign.ID, Body: "+1"},
			&domain.Like{AccountID: other.ID, CampaignID: g.campaign.ID},
			&domain.RedeemReward{AccountID: other.ID, RewardID: g.reward.ID, PointsPaid: 10},
			&domain.EventParticipant{AccountID: other.ID, EventID: g.event.ID, JoinedAt: time.Now()},
		)
	}
	return g
}

func assertNoOrphans(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	checks := map[string]string{
		"refresh_tokens":     "account_id NOT IN (SELECT id FROM accounts)",
		"campaigns":          "account_id NOT IN (SELECT id FROM accounts)",
		"donations":          "account_id NOT IN (SELECT id FROM accounts) OR campaign_id NOT IN (SELECT id FROM campaigns)",
		"revenues":           "account_id NOT IN (SELECT id FROM accounts) OR donation_id NOT IN (SELECT id FROM donations)",
		"withdraws":          "account_id NOT IN (SELECT id FROM accounts) OR campaign_id NOT IN (SELECT id FROM campaigns)",
		"comments":           "account_id NOT IN (SELECT id FROM accounts) OR campaign_id NOT IN (SELECT id FROM campaigns)",
		"likes":              "account_id NOT IN (SELECT id FROM accounts) OR campaign_id NOT IN (SELECT id FROM campaigns)",
		"rewards":            "account_id NOT IN (SELECT id FROM accounts)",
		"redeem_rewards":     "account_id NOT IN (SELECT id FROM accounts) OR reward_id NOT IN (SELECT id FROM rewards)",
		"events":             "account_id NOT IN (SELECT id FROM accounts)",
		"event_participants": "account_id NOT IN (SELECT id FROM accounts) OR event_id NOT IN (SELECT id FROM events)",
	}
	for table, cond := range checks {
		var n int64
		require.NoError(t, gdb.Table(table).Where(cond).Count(&n).Error)
		assert.Zero(t, n, "orphans in %s", table)
	}
}

func TestDeleteAccount_CascadesEverything(t *testing.T) {
	gdb := dbtest.Open(t)
	keep := domain.Account{Email: "keep@example.com", PasswordHash: "x", Role: domain.RoleUser, Status: domain.StatusActive}
	dbtest.Create(t, gdb, &keep)
	g := seedGraph(t, gdb, "gone@example.com", &keep)

	err := gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteAccount(tx, g.account.ID) })
	require.NoError(t, err)

	assertNoOrphans(t, gdb)
	assert.Zero(t, dbtest.Count(t, gdb, &domain.RefreshToken{}))
	assert.Zero(t, dbtest.Count(t, gdb, &domain.Donation{}), "donations to the deleted campaign go too")
	assert.Equal(t, int64(1), dbtest.Count(t, gdb, &domain.Account{}))
}

func TestDeleteAccount_LeavesOtherAccountsIntact(t *testing.T) {
	gdb := dbtest.Open(t)
	a := seedGraph(t, gdb, "a@example.com", nil)
	b := seedGraph(t, gdb, "b@example.com", &a.account)

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteAccount(tx, b.account.ID) }))

	assertNoOrphans(t, gdb)
	assert.Equal(t, int64(1), dbtest.Count(t, gdb, &domain.Campaign{}, "account_id = ?", a.account.ID))
	assert.Equal(t, int64(1), dbtest.Count(t, gdb, &domain.Donation{}, "account_id = ?", a.account.ID))
	assert.Equal(t, int64(1), dbtest.Count(t, gdb, &domain.Revenue{}, "account_id = ?", a.account.ID))
	assert.Equal(t, int64(2), dbtest.Count(t, gdb, &domain.RefreshToken{}, "account_id = ?", a.account.ID))
}

func TestDeleteAccount_NotFound(t *testing.T) {
	gdb := dbtest.Open(t)
	err := gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteAccount(tx, 999) })
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
}

func TestForeignKeys_CascadeWithoutRoutine(t *testing.T) {
	gdb := dbtest.Open(t)
	keep := domain.Account{Email: "keep@example.com", PasswordHash: "x", Role: domain.RoleUser, Status: domain.StatusActive}
	dbtest.Create(t, gdb, &keep)
	g := seedGraph(t, gdb, "raw@example.com", &keep)

	// Constraint actions alone must keep the graph consistent
	require.NoError(t, gdb.Exec("DELETE FROM accounts WHERE id = ?", g.account.ID).Error)
	assertNoOrphans(t, gdb)
}

func TestDeleteCampaign(t *testing.T) {
	gdb := dbtest.Open(t)
	keep := domain.Account{Email: "keep@example.com", PasswordHash: "x", Role: domain.RoleUser, Status: domain.StatusActive}
	dbtest.Create(t, gdb, &keep)
	g := seedGraph(t, gdb, "owner@example.com", &keep)

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteCampaign(tx, g.campaign.ID) }))

	assertNoOrphans(t, gdb)
	assert.Zero(t, dbtest.Count(t, gdb, &domain.Revenue{}))
	assert.Equal(t, int64(2), dbtest.Count(t, gdb, &domain.Account{}))

	err := gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteCampaign(tx, g.campaign.ID) })
	assert.ErrorIs(t, err, apperr.ErrCampaignNotFound)
}

func TestDeleteEventAndReward(t *testing.T) {
	gdb := dbtest.Open(t)
	keep := domain.Account{Email: "keep@example.com", PasswordHash: "x", Role: domain.RoleUser, Status: domain.StatusActive}
	dbtest.Create(t, gdb, &keep)
	g := seedGraph(t, gdb, "owner@example.com", &keep)

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteEvent(tx, g.event.ID) }))
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteReward(tx, g.reward.ID) }))

	assert.Zero(t, dbtest.Count(t, gdb, &domain.EventParticipant{}))
	assert.Zero(t, dbtest.Count(t, gdb, &domain.RedeemReward{}))
	assertNoOrphans(t, gdb)

	err := gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteEvent(tx, g.event.ID) })
	assert.ErrorIs(t, err, apperr.ErrEventNotFound)
	err = gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteReward(tx, g.reward.ID) })
	assert.ErrorIs(t, err, apperr.ErrRewardNotFound)
}

func TestDeleteCategory_NullsCampaigns(t *testing.T) {
	gdb := dbtest.Open(t)
	g := seedGraph(t, gdb, "owner@example.com", nil)
	cat := domain.Category{Name: "Water"}
	dbtest.Create(t, gdb, &cat)
	require.NoError(t, gdb.Model(&g.campaign).Update("category_id", cat.ID).Error)

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error { return db.DeleteCategory(tx, cat.ID) }))

	var c domain.Campaign
	require.NoError(t, gdb.First(&c, g.campaign.ID).Error)
	assert.Nil(t, c.CategoryID)
}
