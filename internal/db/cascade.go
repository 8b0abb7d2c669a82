package db

import (
	"crowdfund_system/internal/apperr" // Typed core errors
	"crowdfund_system/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// The routines below delete a parent and every row that depends on it,
// children first. They must run inside a transaction and return raw driver
// errors so the runner can retry them.

// ownedOr matches rows owned by accountID or pointing at one of parentIDs
func ownedOr(accountID uint, parentCol string, parentIDs []uint) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if len(parentIDs) == 0 {
			return q.Where("account_id = ?", accountID)
		}
		return q.Where("account_id = ? OR "+parentCol+" IN ?", accountID, parentIDs)
	}
}

// DeleteAccount removes an account with everything it owns
func DeleteAccount(tx *gorm.DB, accountID uint) error {
	var campaignIDs, rewardIDs, eventIDs, donationIDs []uint
	if err := tx.Model(&domain.Campaign{}).Where("account_id = ?", accountID).Pluck("id", &campaignIDs).Error; err != nil {
		return err
	}
	if err := tx.Model(&domain.Reward{}).Where("account_id = ?", accountID).Pluck("id", &rewardIDs).Error; err != nil {
		return err
	}
	if err := tx.Model(&domain.Event{}).Where("account_id = ?", accountID).Pluck("id", &eventIDs).Error; err != nil {
		return err
	}
	// Donations made by the account or made to its campaigns
	if err := tx.Model(&domain.Donation{}).Scopes(ownedOr(accountID, "campaign_id", campaignIDs)).Pluck("id", &donationIDs).Error; err != nil {
		return err
	}
	steps := []struct {
		model any
		scope func(*gorm.DB) *gorm.DB
	}{
		{&domain.Revenue{}, ownedOr(accountID, "donation_id", donationIDs)},
		{&domain.Donation{}, ownedOr(accountID, "campaign_id", campaignIDs)},
		{&domain.Withdraw{}, ownedOr(accountID, "campaign_id", campaignIDs)},
		{&domain.Comment{}, ownedOr(accountID, "campaign_id", campaignIDs)},
		{&domain.Like{}, ownedOr(accountID, "campaign_id", campaignIDs)},
		{&domain.Campaign{}, ownedOr(accountID, "", nil)},
		{&domain.RedeemReward{}, ownedOr(accountID, "reward_id", rewardIDs)},
		{&domain.Reward{}, ownedOr(accountID, "", nil)},
		{&domain.EventParticipant{}, ownedOr(accountID, "event_id", eventIDs)},
		{&domain.Event{}, ownedOr(accountID, "", nil)},
		{&domain.RefreshToken{}, ownedOr(accountID, "", nil)},
	}
	for _, s := range steps {
		if err := tx.Scopes(s.scope).Delete(s.model).Error; err != nil {
			return err
		}
	}
	res := tx.Delete(&domain.Account{}, accountID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrAccountNotFound.WithContext("account_id", accountID)
	}
	return nil
}

// DeleteCampaign removes a campaign with its donations, revenues, withdraws,
// comments and likes
func DeleteCampaign(tx *gorm.DB, campaignID uint) error {
	var donationIDs []uint
	if err := tx.Model(&domain.Donation{}).Where("campaign_id = ?", campaignID).Pluck("id", &donationIDs).Error; err != nil {
		return err
	}
	if len(donationIDs) > 0 {
		if err := tx.Where("donation_id IN ?", donationIDs).Delete(&domain.Revenue{}).Error; err != nil {
			return err
		}
	}
	for _, model := range []any{&domain.Donation{}, &domain.Withdraw{}, &domain.Comment{}, &domain.Like{}} {
		if err := tx.Where("campaign_id = ?", campaignID).Delete(model).Error; err != nil {
			return err
		}
	}
	res := tx.Delete(&domain.Campaign{}, campaignID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrCampaignNotFound.WithContext("campaign_id", campaignID)
	}
	return nil
}

// DeleteEvent removes an event and its participants
func DeleteEvent(tx *gorm.DB, eventID uint) error {
	if err := tx.Where("event_id = ?", eventID).Delete(&domain.EventParticipant{}).Error; err != nil {
		return err
	}
	res := tx.Delete(&domain.Event{}, eventID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrEventNotFound.WithContext("event_id", eventID)
	}
	return nil
}

// DeleteReward removes a reward and its redemption records
func DeleteReward(tx *gorm.DB, rewardID uint) error {
	if err := tx.Where("reward_id = ?", rewardID).Delete(&domain.RedeemReward{}).Error; err != nil {
		return err
	}
	res := tx.Delete(&domain.Reward{}, rewardID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrRewardNotFound.WithContext("reward_id", rewardID)
	}
	return nil
}

// DeleteCategory removes a category and detaches its campaigns
func DeleteCategory(tx *gorm.DB, categoryID uint) error {
	if err := tx.Model(&domain.Campaign{}).Where("category_id = ?", categoryID).Update("category_id", nil).Error; err != nil {
		return err
	}
	res := tx.Delete(&domain.Category{}, categoryID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrCategoryNotFound.WithContext("category_id", categoryID)
	}
	return nil
}
