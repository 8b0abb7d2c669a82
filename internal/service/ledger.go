package service

import (
	"context" // Request scope
	"errors"  // errors.Is
	"strings" // Outcome labels

	"crowdfund_system/internal/apperr"  // Typed core errors
	"crowdfund_system/internal/db"      // Transactions
	"crowdfund_system/internal/domain"  // Importing domain models
	"crowdfund_system/internal/metrics" // Prometheus counters

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact money amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// LedgerConfig configures money and point rules
type LedgerConfig struct {
	FeePercent    int64 // Platform share of each donation
	PointsPerUnit int64 // Points per whole currency unit donated
}

// LedgerService records donations and redemptions so balances, stock and
// revenue always move together
type LedgerService struct {
	tx    *db.TxRunner
	cache *redis.Client
	cfg   LedgerConfig
}

// NewLedgerService builds a LedgerService. cache may be nil.
func NewLedgerService(tx *db.TxRunner, cache *redis.Client, cfg LedgerConfig) *LedgerService {
	return &LedgerService{tx: tx, cache: cache, cfg: cfg}
}

// decimalExpr casts a bound amount so both dialects do exact arithmetic
const decimalExpr = "CAST(? AS DECIMAL(14,2))"

// Fee returns the platform revenue derived from a donation amount
func (s *LedgerService) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(s.cfg.FeePercent)).Div(decimal.NewFromInt(100)).Round(2)
}

// EarnedPoints returns the points credited for a donation amount
func (s *LedgerService) EarnedPoints(amount decimal.Decimal) int64 {
	return amount.Floor().IntPart() * s.cfg.PointsPerUnit
}

// RecordDonation stores a donation with its revenue, adds it to the
// campaign total and credits the donor points, all or nothing
func (s *LedgerService) RecordDonation(ctx context.Context, accountID, campaignID uint, amount decimal.Decimal) (*domain.Donation, error) {
	rounded := amount.Round(2) // Stored precision
	if !rounded.IsPositive() {
		return nil, apperr.ErrInvalidAmount.WithContext("amount", amount.String())
	}
	amount = rounded
	fee := s.Fee(amount)
	points := s.EarnedPoints(amount)

	var donation domain.Donation
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var account domain.Account
		if err := forUpdate(tx).First(&account, accountID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrAccountNotFound.WithContext("account_id", accountID)
			}
			return err
		}
		var campaign domain.Campaign
		if err := forUpdate(tx).First(&campaign, campaignID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrCampaignNotFound.WithContext("campaign_id", campaignID)
			}
			return err
		}

		donation = domain.Donation{AccountID: accountID, CampaignID: campaignID, Amount: amount}
		if err := tx.Create(&donation).Error; err != nil {
			return err
		}
		revenue := domain.Revenue{DonationID: donation.ID, AccountID: accountID, Amount: fee}
		if err := tx.Create(&revenue).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Campaign{}).Where("id = ?", campaignID).
			Update("raised", gorm.Expr("raised + "+decimalExpr, amount)).Error; err != nil {
			return err
		}
		if points > 0 {
			if err := tx.Model(&domain.Account{}).Where("id = ?", accountID).
				Update("points", gorm.Expr("points + ?", points)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("record donation", err)
	}
	metrics.DonationRecorded()
	dropAccountCache(ctx, s.cache, accountID)
	logrus.WithFields(logrus.Fields{
		"donation_id": donation.ID,     // Donation ID
		"account_id":  accountID,       // Donor
		"campaign_id": campaignID,      // Campaign
		"amount":      amount.String(), // Donated amount
		"revenue":     fee.String(),    // Platform fee
		"points":      points,          // Points credited
	}).Info("Donation recorded")
	return &donation, nil
}

// RedeemReward trades points for one unit of a reward. Stock decrement,
// point debit and the redemption record commit together or not at all.
func (s *LedgerService) RedeemReward(ctx context.Context, rewardID, accountID uint, address string) (*domain.RedeemReward, error) {
	var redemption domain.RedeemReward
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var reward domain.Reward
		if err := forUpdate(tx).First(&reward, rewardID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrRewardNotFound.WithContext("reward_id", rewardID)
			}
			return err
		}
		var account domain.Account
		if err := forUpdate(tx).First(&account, accountID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrAccountNotFound.WithContext("account_id", accountID)
			}
			return err
		}
		if reward.Status != domain.RewardActive {
			return apperr.ErrRewardInactive.WithContext("reward_id", rewardID)
		}
		if reward.Quantity <= 0 {
			return apperr.ErrRewardOutOfStock.WithContext("reward_id", rewardID)
		}
		if account.Points < reward.PointCost {
			return apperr.ErrInsufficientPoints.WithContext("points", account.Points, "cost", reward.PointCost)
		}

		// Guarded updates, SQLite ignores FOR UPDATE
		res := tx.Model(&domain.Reward{}).Where("id = ? AND quantity > 0", rewardID).
			Update("quantity", gorm.Expr("quantity - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrRewardOutOfStock.WithContext("reward_id", rewardID)
		}
		res = tx.Model(&domain.Account{}).Where("id = ? AND points >= ?", accountID, reward.PointCost).
			Update("points", gorm.Expr("points - ?", reward.PointCost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInsufficientPoints.WithContext("points", account.Points, "cost", reward.PointCost)
		}

		redemption = domain.RedeemReward{
			AccountID:  accountID,        // Redeeming account
			RewardID:   rewardID,         // Reward
			PointsPaid: reward.PointCost, // Cost at redemption time
			Address:    address,          // Shipping address
		}
		return tx.Create(&redemption).Error
	})
	if err != nil {
		metrics.Redemption(outcome(err))
		return nil, storeErr("redeem reward", err)
	}
	metrics.Redemption("success")
	dropAccountCache(ctx, s.cache, accountID)
	logrus.WithFields(logrus.Fields{
		"redemption_id": redemption.ID,         // Redemption ID
		"account_id":    accountID,             // Account
		"reward_id":     rewardID,              // Reward
		"points":        redemption.PointsPaid, // Points debited
	}).Info("Reward redeemed")
	return &redemption, nil
}

// outcome labels a failed redemption for metrics
func outcome(err error) string {
	for _, known := range []*apperr.Error{
		apperr.ErrRewardNotFound,
		apperr.ErrAccountNotFound,
		apperr.ErrRewardInactive,
		apperr.ErrRewardOutOfStock,
		apperr.ErrInsufficientPoints,
	} {
		if errors.Is(err, known) {
			return strings.ToLower(known.Code)
		}
	}
	return "error"
}

// JoinEvent registers an account as a participant of an event
func (s *LedgerService) JoinEvent(ctx context.Context, accountID, eventID uint) (*domain.EventParticipant, error) {
	var participant domain.EventParticipant
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var event domain.Event
		if err := tx.First(&event, eventID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrEventNotFound.WithContext("event_id", eventID)
			}
			return err
		}
		var account domain.Account
		if err := tx.First(&account, accountID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrAccountNotFound.WithContext("account_id", accountID)
			}
			return err
		}
		var joined int64
		if err := tx.Model(&domain.EventParticipant{}).
			Where("account_id = ? AND event_id = ?", accountID, eventID).Count(&joined).Error; err != nil {
			return err
		}
		if joined > 0 {
			return apperr.ErrAlreadyJoined.WithContext("event_id", eventID)
		}
		participant = domain.EventParticipant{AccountID: accountID, EventID: eventID, JoinedAt: utcNow()}
		if err := tx.Create(&participant).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperr.ErrAlreadyJoined.WithContext("event_id", eventID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("join event", err)
	}
	logrus.WithFields(logrus.Fields{
		"account_id": accountID, // Participant
		"event_id":   eventID,   // Event
	}).Info("Event joined")
	return &participant, nil
}

// JoinedEvents lists the events an account participates in
func (s *LedgerService) JoinedEvents(ctx context.Context, accountID uint) ([]domain.Event, error) {
	var events []domain.Event
	err := s.tx.DB(ctx).
		Joins("JOIN event_participants ON event_participants.event_id = events.id").
		Where("event_participants.account_id = ?", accountID).
		Order("events.date").
		Find(&events).Error
	if err != nil {
		return nil, storeErr("list joined events", err)
	}
	return events, nil
}

// Participants lists the participants of an event with their accounts
func (s *LedgerService) Participants(ctx context.Context, eventID uint) ([]domain.EventParticipant, error) {
	var event domain.Event
	if err := s.tx.DB(ctx).First(&event, eventID).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.ErrEventNotFound.WithContext("event_id", eventID)
		}
		return nil, storeErr("load event", err)
	}
	var participants []domain.EventParticipant
	if err := s.tx.DB(ctx).Preload("Account").Where("event_id = ?", eventID).Order("joined_at").Find(&participants).Error; err != nil {
		return nil, storeErr("list participants", err)
	}
	return participants, nil
}

// Revenues lists all revenue rows with their donations
func (s *LedgerService) Revenues(ctx context.Context) ([]domain.Revenue, error) {
	var revenues []domain.Revenue
	if err := s.tx.DB(ctx).Preload("Donation").Order("id").Find(&revenues).Error; err != nil {
		return nil, storeErr("list revenues", err)
	}
	return revenues, nil
}

// RevenueByID returns one revenue row
func (s *LedgerService) RevenueByID(ctx context.Context, id uint) (*domain.Revenue, error) {
	var revenue domain.Revenue
	if err := s.tx.DB(ctx).Preload("Donation").First(&revenue, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.ErrRevenueNotFound.WithContext("revenue_id", id)
		}
		return nil, storeErr("load revenue", err)
	}
	return &revenue, nil
}

// CorrectRevenue overwrites the amount of a revenue row
func (s *LedgerService) CorrectRevenue(ctx context.Context, id uint, amount decimal.Decimal) (*domain.Revenue, error) {
	rounded := amount.Round(2) // Stored precision
	if !rounded.IsPositive() {
		return nil, apperr.ErrInvalidAmount.WithContext("amount", amount.String())
	}
	amount = rounded
	var revenue domain.Revenue
	var old decimal.Decimal
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&revenue, id).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrRevenueNotFound.WithContext("revenue_id", id)
			}
			return err
		}
		old = revenue.Amount
		return tx.Model(&revenue).Update("amount", amount).Error
	})
	if err != nil {
		return nil, storeErr("correct revenue", err)
	}
	revenue.Amount = amount
	logrus.WithFields(logrus.Fields{
		"revenue_id": id,              // Revenue ID
		"from":       old.String(),    // Previous amount
		"to":         amount.String(), // Corrected amount
	}).Info("Revenue corrected")
	return &revenue, nil
}

// DeleteRevenue removes one revenue row
func (s *LedgerService) DeleteRevenue(ctx context.Context, id uint) error {
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Revenue{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrRevenueNotFound.WithContext("revenue_id", id)
		}
		return nil
	})
	if err != nil {
		return storeErr("delete revenue", err)
	}
	logrus.WithField("revenue_id", id).Info("Revenue deleted")
	return nil
}
