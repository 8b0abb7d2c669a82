package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"crowdfund_system/internal/apperr"
	"crowdfund_system/internal/dbtest"
	"crowdfund_system/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeAndPoints(t *testing.T) {
	l := &LedgerService{cfg: LedgerConfig{FeePercent: 5, PointsPerUnit: 2}}
	assert.True(t, l.Fee(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(5)))
	assert.True(t, l.Fee(decimal.RequireFromString("10.50")).Equal(decimal.RequireFromString("0.53")))
	assert.Equal(t, int64(20), l.EarnedPoints(decimal.RequireFromString("10.99")))
	assert.Zero(t, l.EarnedPoints(decimal.RequireFromString("0.75")))
}

func TestRecordDonation_WritesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.account(t, "owner@example.com", "password1", domain.RoleUser, 0)
	donor := env.account(t, "donor@example.com", "password1", domain.RoleUser, 3)
	campaign := env.campaign(t, owner.ID)

	donation, err := env.ledger.RecordDonation(ctx, donor.ID, campaign.ID, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.NotZero(t, donation.ID)

	var revenue domain.Revenue
	require.NoError(t, env.gdb.Where("donation_id = ?", donation.ID).First(&revenue).Error)
	assert.True(t, revenue.Amount.Equal(decimal.NewFromInt(5)), "got %s", revenue.Amount)
	assert.Equal(t, donor.ID, revenue.AccountID)

	var c domain.Campaign
	require.NoError(t, env.gdb.First(&c, campaign.ID).Error)
	assert.True(t, c.Raised.Equal(decimal.NewFromInt(100)), "got %s", c.Raised)
	assert.Equal(t, int64(103), env.points(t, donor.ID))
}

func TestRecordDonation_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.account(t, "owner@example.com", "password1", domain.RoleUser, 0)
	campaign := env.campaign(t, owner.ID)

	_, err := env.ledger.RecordDonation(ctx, owner.ID, campaign.ID, decimal.Zero)
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
	_, err = env.ledger.RecordDonation(ctx, owner.ID, campaign.ID, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
	for _, subCent := range []string{"0.001", "0.004"} {
		_, err = env.ledger.RecordDonation(ctx, owner.ID, campaign.ID, decimal.RequireFromString(subCent))
		assert.ErrorIs(t, err, apperr.ErrInvalidAmount, subCent)
	}
	_, err = env.ledger.RecordDonation(ctx, 999, campaign.ID, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
	_, err = env.ledger.RecordDonation(ctx, owner.ID, 999, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, apperr.ErrCampaignNotFound)

	assert.Zero(t, dbtest.Count(t, env.gdb, &domain.Donation{}))
	assert.Zero(t, dbtest.Count(t, env.gdb, &domain.Revenue{}))
}

func TestRedeemReward_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.account(t, "ana@example.com", "password1", domain.RoleUser, 150)
	reward := env.reward(t, acct.ID, 100, 2, domain.RewardActive)

	r, err := env.ledger.RedeemReward(ctx, reward.ID, acct.ID, "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, int64(100), r.PointsPaid)
	assert.Equal(t, "1 Main St", r.Address)

	assert.Equal(t, int64(50), env.points(t, acct.ID))
	var got domain.Reward
	require.NoError(t, env.gdb.First(&got, reward.ID).Error)
	assert.Equal(t, int64(1), got.Quantity)
}

func TestRedeemReward_FailuresChangeNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.account(t, "ana@example.com", "password1", domain.RoleUser, 50)
	active := env.reward(t, acct.ID, 100, 1, domain.RewardActive)
	inactive := env.reward(t, acct.ID, 10, 1, domain.RewardInactive)
	empty := env.reward(t, acct.ID, 10, 0, domain.RewardActive)
	// Inactive, empty and too expensive at once
	everything := env.reward(t, acct.ID, 1000, 0, domain.RewardInactive)

	cases := []struct {
		reward  uint
		account uint
		want    error
	}{
		{999, acct.ID, apperr.ErrRewardNotFound},
		{active.ID, 999, apperr.ErrAccountNotFound},
		{inactive.ID, acct.ID, apperr.ErrRewardInactive},
		{empty.ID, acct.ID, apperr.ErrRewardOutOfStock},
		{active.ID, acct.ID, apperr.ErrInsufficientPoints},
		{everything.ID, acct.ID, apperr.ErrRewardInactive},
	}
	for _, tc := range cases {
		_, err := env.ledger.RedeemReward(ctx, tc.reward, tc.account, "")
		assert.ErrorIs(t, err, tc.want)
	}

	assert.Equal(t, int64(50), env.points(t, acct.ID))
	assert.Zero(t, dbtest.Count(t, env.gdb, &domain.RedeemReward{}))
	assert.Equal(t, int64(1), dbtest.Count(t, env.gdb, &domain.Reward{}, "id = ? AND quantity = 1", active.ID))
}

func TestRedeemReward_LastUnitGoesToOneRedeemer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, "a@example.com", "password1", domain.RoleUser, 150)
	b := env.account(t, "b@example.com", "password1", domain.RoleUser, 150)
	reward := env.reward(t, a.ID, 100, 1, domain.RewardActive)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = env.ledger.RedeemReward(ctx, reward.ID, id, "")
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperr.ErrRewardOutOfStock)
		}
	}
	assert.Equal(t, 1, succeeded)

	var got domain.Reward
	require.NoError(t, env.gdb.First(&got, reward.ID).Error)
	assert.Zero(t, got.Quantity)
	assert.Equal(t, domain.RewardActive, got.Status)
	assert.Equal(t, int64(200), env.points(t, a.ID)+env.points(t, b.ID))
	assert.Equal(t, int64(1), dbtest.Count(t, env.gdb, &domain.RedeemReward{}))
}

func TestJoinEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.account(t, "ana@example.com", "password1", domain.RoleUser, 0)
	event := domain.Event{AccountID: acct.ID, Name: "Gala", Date: time.Now().Add(48 * time.Hour), Status: 1}
	dbtest.Create(t, env.gdb, &event)

	p, err := env.ledger.JoinEvent(ctx, acct.ID, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, p.EventID)
	assert.False(t, p.JoinedAt.IsZero())

	_, err = env.ledger.JoinEvent(ctx, acct.ID, event.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyJoined)
	_, err = env.ledger.JoinEvent(ctx, acct.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrEventNotFound)

	joined, err := env.ledger.JoinedEvents(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "Gala", joined[0].Name)

	participants, err := env.ledger.Participants(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	require.NotNil(t, participants[0].Account)
	assert.Equal(t, "ana@example.com", participants[0].Account.Email)

	_, err = env.ledger.Participants(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrEventNotFound)
}

func TestRevenueMaintenance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.account(t, "ana@example.com", "password1", domain.RoleUser, 0)
	campaign := env.campaign(t, acct.ID)
	donation, err := env.ledger.RecordDonation(ctx, acct.ID, campaign.ID, decimal.NewFromInt(200))
	require.NoError(t, err)

	revenues, err := env.ledger.Revenues(ctx)
	require.NoError(t, err)
	require.Len(t, revenues, 1)
	require.NotNil(t, revenues[0].Donation)
	assert.Equal(t, donation.ID, revenues[0].Donation.ID)
	assert.True(t, revenues[0].Amount.Equal(decimal.NewFromInt(10)))

	fixed, err := env.ledger.CorrectRevenue(ctx, revenues[0].ID, decimal.NewFromInt(12))
	require.NoError(t, err)
	assert.True(t, fixed.Amount.Equal(decimal.NewFromInt(12)))

	got, err := env.ledger.RevenueByID(ctx, revenues[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(12)))

	_, err = env.ledger.CorrectRevenue(ctx, revenues[0].ID, decimal.Zero)
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
	_, err = env.ledger.CorrectRevenue(ctx, revenues[0].ID, decimal.RequireFromString("0.004"))
	assert.ErrorIs(t, err, apperr.ErrInvalidAmount)
	got, err = env.ledger.RevenueByID(ctx, revenues[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(12)), "got %s", got.Amount)

	require.NoError(t, env.ledger.DeleteRevenue(ctx, revenues[0].ID))
	assert.ErrorIs(t, env.ledger.DeleteRevenue(ctx, revenues[0].ID), apperr.ErrRevenueNotFound)
	_, err = env.ledger.RevenueByID(ctx, revenues[0].ID)
	assert.ErrorIs(t, err, apperr.ErrRevenueNotFound)
	assert.Equal(t, int64(1), dbtest.Count(t, env.gdb, &domain.Donation{}), "donation outlives its revenue")
}
