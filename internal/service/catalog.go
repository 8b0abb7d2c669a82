package service

import (
	"context" // Request scope
	"strings" // Name normalization
	"time"    // Event dates

	"crowdfund_system/internal/apperr" // Typed core errors
	"crowdfund_system/internal/db"     // Transactions and cascades
	"crowdfund_system/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Exact money amounts
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// CampaignInput carries the fields of a new campaign
type CampaignInput struct {
	Title       string
	Description string
	Goal        decimal.Decimal
	CategoryID  *uint
	Image       string
}

// EventInput carries the fields of a new event
type EventInput struct {
	Name        string
	Description string
	Date        time.Time
	Location    string
	Image       string
}

// RewardInput carries the fields of a new reward
type RewardInput struct {
	Name        string
	Description string
	PointCost   int64
	Quantity    int64
	Image       string
}

// RewardUpdate carries optional changes to a reward
type RewardUpdate struct {
	Name        *string
	Description *string
	PointCost   *int64
	Quantity    *int64
	Status      *string
	Image       *string
}

// CatalogService manages categories, campaigns, events, rewards and
// campaign interactions
type CatalogService struct {
	tx *db.TxRunner
}

// NewCatalogService builds a CatalogService
func NewCatalogService(tx *db.TxRunner) *CatalogService {
	return &CatalogService{tx: tx}
}

func imageOrDefault(image string) string {
	if image == "" {
		return domain.DefaultImage
	}
	return image
}

// CreateCategory adds a category with a unique name
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.ErrInvalidInput.WithContext("field", "name")
	}
	category := domain.Category{Name: name}
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		category.ID = 0
		if err := tx.Create(&category).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperr.ErrCategoryExists.WithContext("name", name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("create category", err)
	}
	logrus.WithField("category_id", category.ID).Info("Category created")
	return &category, nil
}

// Categories lists all categories
func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := s.tx.DB(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, storeErr("list categories", err)
	}
	return categories, nil
}

// DeleteCategory removes a category and detaches its campaigns
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	if err := s.tx.Run(ctx, func(tx *gorm.DB) error { return db.DeleteCategory(tx, id) }); err != nil {
		return storeErr("delete category", err)
	}
	logrus.WithField("category_id", id).Info("Category deleted")
	return nil
}

// CreateCampaign opens a campaign owned by the requester
func (s *CatalogService) CreateCampaign(ctx context.Context, requester Principal, in CampaignInput) (*domain.Campaign, error) {
	goal := in.Goal.Round(2) // Stored precision
	if !goal.IsPositive() {
		return nil, apperr.ErrInvalidAmount.WithContext("goal", in.Goal.String())
	}
	campaign := domain.Campaign{
		AccountID:   requester.AccountID,      // Owner
		CategoryID:  in.CategoryID,            // Optional category
		Title:       in.Title,                 // Title
		Description: in.Description,           // Description
		Goal:        goal,                     // Funding goal
		Raised:      decimal.Zero,             // Nothing raised yet
		Withdrawn:   decimal.Zero,             // Nothing withdrawn yet
		Status:      domain.CampaignActive,    // Accepting donations
		Image:       imageOrDefault(in.Image), // Cover image
	}
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		campaign.ID = 0
		if in.CategoryID != nil {
			var category domain.Category
			if err := tx.First(&category, *in.CategoryID).Error; err != nil {
				if db.IsNotFound(err) {
					return apperr.ErrCategoryNotFound.WithContext("category_id", *in.CategoryID)
				}
				return err
			}
		}
		return tx.Create(&campaign).Error
	})
	if err != nil {
		return nil, storeErr("create campaign", err)
	}
	logrus.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,         // Campaign ID
		"account_id":  requester.AccountID, // Owner
	}).Info("Campaign created")
	return &campaign, nil
}

// Campaign returns one campaign with its category
func (s *CatalogService) Campaign(ctx context.Context, id uint) (*domain.Campaign, error) {
	var campaign domain.Campaign
	if err := s.tx.DB(ctx).Preload("Category").First(&campaign, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.ErrCampaignNotFound.WithContext("campaign_id", id)
		}
		return nil, storeErr("load campaign", err)
	}
	return &campaign, nil
}

// Campaigns lists campaigns, newest first
func (s *CatalogService) Campaigns(ctx context.Context) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	if err := s.tx.DB(ctx).Preload("Category").Order("id DESC").Find(&campaigns).Error; err != nil {
		return nil, storeErr("list campaigns", err)
	}
	return campaigns, nil
}

// DeleteCampaign removes a campaign and everything attached to it. Only
// the owner or an Admin may delete.
func (s *CatalogService) DeleteCampaign(ctx context.Context, requester Principal, id uint) error {
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var campaign domain.Campaign
		if err := tx.First(&campaign, id).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrCampaignNotFound.WithContext("campaign_id", id)
			}
			return err
		}
		if !requester.CanActOn(campaign.AccountID) {
			return apperr.ErrForbidden.WithContext("campaign_id", id)
		}
		return db.DeleteCampaign(tx, id)
	})
	if err != nil {
		return storeErr("delete campaign", err)
	}
	logrus.WithFields(logrus.Fields{
		"campaign_id":  id,                  // Campaign ID
		"requester_id": requester.AccountID, // Caller
	}).Info("Campaign deleted")
	return nil
}

// CreateEvent schedules an event organized by the requester
func (s *CatalogService) CreateEvent(ctx context.Context, requester Principal, in EventInput) (*domain.Event, error) {
	if strings.TrimSpace(in.Name) == "" || in.Date.IsZero() {
		return nil, apperr.ErrInvalidInput.WithContext("field", "name/date")
	}
	event := domain.Event{
		AccountID:   requester.AccountID,      // Organizer
		Name:        in.Name,                  // Name
		Description: in.Description,           // Description
		Date:        in.Date.UTC(),            // When
		Location:    in.Location,              // Where
		Status:      1,                        // Open
		Image:       imageOrDefault(in.Image), // Image
	}
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		event.ID = 0
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, storeErr("create event", err)
	}
	logrus.WithFields(logrus.Fields{
		"event_id":   event.ID,            // Event ID
		"account_id": requester.AccountID, // Organizer
	}).Info("Event created")
	return &event, nil
}

// Events lists events by date
func (s *CatalogService) Events(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	if err := s.tx.DB(ctx).Order("date").Find(&events).Error; err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

// DeleteEvent removes an event and its participants. Only the organizer or
// an Admin may delete.
func (s *CatalogService) DeleteEvent(ctx context.Context, requester Principal, id uint) error {
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var event domain.Event
		if err := tx.First(&event, id).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrEventNotFound.WithContext("event_id", id)
			}
			return err
		}
		if !requester.CanActOn(event.AccountID) {
			return apperr.ErrForbidden.WithContext("event_id", id)
		}
		return db.DeleteEvent(tx, id)
	})
	if err != nil {
		return storeErr("delete event", err)
	}
	logrus.WithField("event_id", id).Info("Event deleted")
	return nil
}

// CreateReward adds a redeemable reward. Admin only.
func (s *CatalogService) CreateReward(ctx context.Context, requester Principal, in RewardInput) (*domain.Reward, error) {
	if !requester.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	if in.PointCost <= 0 || in.Quantity < 0 {
		return nil, apperr.ErrInvalidAmount.WithContext("point_cost", in.PointCost, "quantity", in.Quantity)
	}
	reward := domain.Reward{
		AccountID:   requester.AccountID,      // Managing admin
		Name:        in.Name,                  // Name
		Description: in.Description,           // Description
		PointCost:   in.PointCost,             // Cost
		Quantity:    in.Quantity,              // Stock
		Status:      domain.RewardActive,      // Redeemable
		Image:       imageOrDefault(in.Image), // Image
	}
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		reward.ID = 0
		return tx.Create(&reward).Error
	})
	if err != nil {
		return nil, storeErr("create reward", err)
	}
	logrus.WithField("reward_id", reward.ID).Info("Reward created")
	return &reward, nil
}

// Rewards lists rewards
func (s *CatalogService) Rewards(ctx context.Context) ([]domain.Reward, error) {
	var rewards []domain.Reward
	if err := s.tx.DB(ctx).Order("id").Find(&rewards).Error; err != nil {
		return nil, storeErr("list rewards", err)
	}
	return rewards, nil
}

// UpdateReward changes a reward. Admin only.
func (s *CatalogService) UpdateReward(ctx context.Context, requester Principal, id uint, u RewardUpdate) (*domain.Reward, error) {
	if !requester.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	changes := map[string]any{}
	setIf(changes, "name", u.Name)
	setIf(changes, "description", u.Description)
	setIf(changes, "image", u.Image)
	if u.PointCost != nil {
		if *u.PointCost <= 0 {
			return nil, apperr.ErrInvalidAmount.WithContext("point_cost", *u.PointCost)
		}
		changes["point_cost"] = *u.PointCost
	}
	if u.Quantity != nil {
		if *u.Quantity < 0 {
			return nil, apperr.ErrInvalidAmount.WithContext("quantity", *u.Quantity)
		}
		changes["quantity"] = *u.Quantity
	}
	if u.Status != nil {
		if *u.Status != domain.RewardActive && *u.Status != domain.RewardInactive {
			return nil, apperr.ErrInvalidInput.WithContext("status", *u.Status)
		}
		changes["status"] = *u.Status
	}
	var reward domain.Reward
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&reward, id).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrRewardNotFound.WithContext("reward_id", id)
			}
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&reward).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&reward, id).Error
	})
	if err != nil {
		return nil, storeErr("update reward", err)
	}
	logrus.WithFields(logrus.Fields{
		"reward_id": id,           // Reward ID
		"fields":    len(changes), // Changed columns
	}).Info("Reward updated")
	return &reward, nil
}

// DeleteReward removes a reward and its redemption records. Admin only.
func (s *CatalogService) DeleteReward(ctx context.Context, requester Principal, id uint) error {
	if !requester.IsAdmin() {
		return apperr.ErrForbidden
	}
	if err := s.tx.Run(ctx, func(tx *gorm.DB) error { return db.DeleteReward(tx, id) }); err != nil {
		return storeErr("delete reward", err)
	}
	logrus.WithField("reward_id", id).Info("Reward deleted")
	return nil
}

// AddComment posts a comment on a campaign
func (s *CatalogService) AddComment(ctx context.Context, requester Principal, campaignID uint, body string) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperr.ErrInvalidInput.WithContext("field", "body")
	}
	comment := domain.Comment{AccountID: requester.AccountID, CampaignID: campaignID, Body: body}
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		comment.ID = 0
		if err := requireCampaign(tx, campaignID); err != nil {
			return err
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, storeErr("add comment", err)
	}
	return &comment, nil
}

// Comments lists the comments of a campaign, oldest first
func (s *CatalogService) Comments(ctx context.Context, campaignID uint) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := s.tx.DB(ctx).Where("campaign_id = ?", campaignID).Order("id").Find(&comments).Error; err != nil {
		return nil, storeErr("list comments", err)
	}
	return comments, nil
}

// Like records that the requester likes a campaign. Liking twice returns
// the existing like with created false.
func (s *CatalogService) Like(ctx context.Context, requester Principal, campaignID uint) (*domain.Like, bool, error) {
	var like domain.Like
	created := false
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		created = false
		if err := requireCampaign(tx, campaignID); err != nil {
			return err
		}
		err := tx.Where("account_id = ? AND campaign_id = ?", requester.AccountID, campaignID).First(&like).Error
		if err == nil {
			return nil
		}
		if !db.IsNotFound(err) {
			return err
		}
		like = domain.Like{AccountID: requester.AccountID, CampaignID: campaignID}
		if err := tx.Create(&like).Error; err != nil {
			if !db.IsDuplicateKey(err) {
				return err
			}
			// Liked concurrently, return the committed row
			like = domain.Like{}
			return forUpdate(tx).Where("account_id = ? AND campaign_id = ?", requester.AccountID, campaignID).First(&like).Error
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, storeErr("like campaign", err)
	}
	return &like, created, nil
}

// RequestWithdraw asks to pay out part of the funds raised by a campaign.
// Only the owner may withdraw, never more than raised minus withdrawn.
func (s *CatalogService) RequestWithdraw(ctx context.Context, requester Principal, campaignID uint, amount decimal.Decimal) (*domain.Withdraw, error) {
	rounded := amount.Round(2) // Stored precision
	if !rounded.IsPositive() {
		return nil, apperr.ErrInvalidAmount.WithContext("amount", amount.String())
	}
	amount = rounded
	var withdraw domain.Withdraw
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var campaign domain.Campaign
		if err := forUpdate(tx).First(&campaign, campaignID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrCampaignNotFound.WithContext("campaign_id", campaignID)
			}
			return err
		}
		if campaign.AccountID != requester.AccountID {
			return apperr.ErrForbidden.WithContext("campaign_id", campaignID)
		}
		if amount.GreaterThan(campaign.Available()) {
			return apperr.ErrInsufficientFunds.WithContext("available", campaign.Available().String(), "amount", amount.String())
		}
		res := tx.Model(&domain.Campaign{}).
			Where("id = ? AND withdrawn + "+decimalExpr+" <= raised", campaignID, amount).
			Update("withdrawn", gorm.Expr("withdrawn + "+decimalExpr, amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInsufficientFunds.WithContext("campaign_id", campaignID)
		}
		withdraw = domain.Withdraw{
			AccountID:  requester.AccountID,    // Owner
			CampaignID: campaignID,             // Campaign
			Amount:     amount,                 // Requested amount
			Status:     domain.WithdrawPending, // Awaiting payout
		}
		return tx.Create(&withdraw).Error
	})
	if err != nil {
		return nil, storeErr("request withdraw", err)
	}
	logrus.WithFields(logrus.Fields{
		"withdraw_id": withdraw.ID,     // Withdraw ID
		"campaign_id": campaignID,      // Campaign
		"amount":      amount.String(), // Amount
	}).Info("Withdraw requested")
	return &withdraw, nil
}

func requireCampaign(tx *gorm.DB, campaignID uint) error {
	var n int64
	if err := tx.Model(&domain.Campaign{}).Where("id = ?", campaignID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrCampaignNotFound.WithContext("campaign_id", campaignID)
	}
	return nil
}
