package service

import (
	"context" // Request scope
	"strings" // Email normalization
	"time"    // Token expiry

	"crowdfund_system/internal/apperr"  // Typed core errors
	"crowdfund_system/internal/db"      // Transactions and cascades
	"crowdfund_system/internal/domain"  // Importing domain models
	"crowdfund_system/internal/metrics" // Prometheus counters
	"crowdfund_system/internal/notify"  // Account emails
	"crowdfund_system/internal/utils"   // Password, token and cache helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// accountTokenBytes is the entropy of verification and reset tokens
const accountTokenBytes = 40

// AccountConfig configures account lifecycle operations
type AccountConfig struct {
	BcryptCost    int           // bcrypt work factor
	ResetTokenTTL time.Duration // Password reset token lifetime
	CacheTTL      time.Duration // Account cache lifetime
}

// Profile carries the fields of a new account
type Profile struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Image     string
}

// AccountUpdate carries optional changes to an account. Role and Status
// may only be changed by an Admin.
type AccountUpdate struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Phone     *string
	Image     *string
	Role      *string
	Status    *string
}

// AccountService manages registration, verification, password reset and
// account records
type AccountService struct {
	tx       *db.TxRunner
	notifier notify.Notifier
	cache    *redis.Client
	cfg      AccountConfig
	now      func() time.Time
}

// NewAccountService builds an AccountService. cache may be nil.
func NewAccountService(tx *db.TxRunner, notifier notify.Notifier, cache *redis.Client, cfg AccountConfig) *AccountService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &AccountService{tx: tx, notifier: notifier, cache: cache, cfg: cfg, now: utcNow}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and sends the verification email.
// The first account ever registered becomes Admin.
func (s *AccountService) Register(ctx context.Context, p Profile, origin string) (*domain.Account, error) {
	hash, err := utils.HashPassword(p.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	token, err := utils.RandomToken(accountTokenBytes)
	if err != nil {
		return nil, apperr.Internal("generate verification token", err)
	}
	account := newAccount(p, hash)
	account.Status = domain.StatusUnverified
	account.VerificationToken = &token

	err = s.tx.Run(ctx, func(tx *gorm.DB) error {
		account.Role = domain.RoleUser // Recomputed on every attempt
		var total int64
		if err := tx.Model(&domain.Account{}).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 {
			account.Role = domain.RoleAdmin
		}
		return insertAccount(tx, &account)
	})
	if err != nil {
		return nil, storeErr("register account", err)
	}

	link := strings.TrimRight(origin, "/") + "/account/verify-email?token=" + token
	s.send(ctx, notify.NewMessage(notify.TypeVerifyEmail, account.Email, link, token))
	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,   // Account ID
		"role":       account.Role, // Assigned role
	}).Info("Account registered")
	return &account, nil
}

// VerifyEmail activates the account holding token. Tokens are single use.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperr.ErrInvalidToken
	}
	var account domain.Account
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("verification_token = ?", token).First(&account).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrInvalidToken
			}
			return err
		}
		status := account.Status
		if status == domain.StatusUnverified {
			status = domain.StatusActive
		}
		res := tx.Model(&domain.Account{}).
			Where("id = ? AND verification_token = ?", account.ID, token).
			Updates(map[string]any{
				"status":             status,
				"verified_at":        s.now(),
				"verification_token": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInvalidToken
		}
		return nil
	})
	if err != nil {
		return storeErr("verify email", err)
	}
	dropAccountCache(ctx, s.cache, account.ID)
	logrus.WithField("account_id", account.ID).Info("Email verified")
	return nil
}

// ForgotPassword issues a reset token. Unknown emails succeed silently.
func (s *AccountService) ForgotPassword(ctx context.Context, email, origin string) error {
	token, err := utils.RandomToken(accountTokenBytes)
	if err != nil {
		return apperr.Internal("generate reset token", err)
	}
	var account domain.Account
	found := false
	err = s.tx.Run(ctx, func(tx *gorm.DB) error {
		found = false
		if err := forUpdate(tx).Where("email = ?", normalizeEmail(email)).First(&account).Error; err != nil {
			if db.IsNotFound(err) {
				return nil // Never reveal which emails exist
			}
			return err
		}
		found = true
		expires := s.now().Add(s.cfg.ResetTokenTTL)
		return tx.Model(&domain.Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"reset_token":         token,
			"reset_token_expires": expires,
		}).Error
	})
	if err != nil {
		return storeErr("forgot password", err)
	}
	if !found {
		return nil
	}
	link := strings.TrimRight(origin, "/") + "/account/reset-password?token=" + token
	s.send(ctx, notify.NewMessage(notify.TypeResetPassword, account.Email, link, token))
	logrus.WithField("account_id", account.ID).Info("Password reset requested")
	return nil
}

// ValidateResetToken fails unless token is a live reset token
func (s *AccountService) ValidateResetToken(ctx context.Context, token string) error {
	_, err := s.findResetAccount(s.tx.DB(ctx), token)
	return storeErr("validate reset token", err)
}

// ResetPassword replaces the password of the account holding token and
// revokes its refresh tokens
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	var account *domain.Account
	var revoked int64
	err = s.tx.Run(ctx, func(tx *gorm.DB) error {
		var err error
		if account, err = s.findResetAccount(forUpdate(tx), token); err != nil {
			return err
		}
		now := s.now()
		res := tx.Model(&domain.Account{}).
			Where("id = ? AND reset_token = ?", account.ID, token).
			Updates(map[string]any{
				"password_hash":       hash,
				"reset_token":         nil,
				"reset_token_expires": nil,
				"password_reset_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInvalidOrExpiredTok
		}
		revoked, err = revokeAllTx(tx, account.ID, domain.ReasonPasswordReset, now)
		return err
	})
	if err != nil {
		return storeErr("reset password", err)
	}
	metrics.TokensRevoked(domain.ReasonPasswordReset, revoked)
	dropAccountCache(ctx, s.cache, account.ID)
	logrus.WithFields(logrus.Fields{
		"account_id":     account.ID, // Account ID
		"tokens_revoked": revoked,    // Sessions ended
	}).Info("Password reset")
	return nil
}

func (s *AccountService) findResetAccount(q *gorm.DB, token string) (*domain.Account, error) {
	if token == "" {
		return nil, apperr.ErrInvalidOrExpiredTok
	}
	var account domain.Account
	err := q.Where("reset_token = ? AND reset_token_expires > ?", token, s.now()).First(&account).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.ErrInvalidOrExpiredTok
		}
		return nil, err
	}
	return &account, nil
}

// UpdatePoints adds delta to an account balance and returns the new
// balance. The balance never goes negative.
func (s *AccountService) UpdatePoints(ctx context.Context, accountID uint, delta int64) (int64, error) {
	var balance int64
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var account domain.Account
		if err := forUpdate(tx).First(&account, accountID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrAccountNotFound.WithContext("account_id", accountID)
			}
			return err
		}
		res := tx.Model(&domain.Account{}).
			Where("id = ? AND points + ? >= 0", accountID, delta).
			Update("points", gorm.Expr("points + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInsufficientBalance.WithContext("account_id", accountID, "points", account.Points, "delta", delta)
		}
		return tx.Model(&domain.Account{}).Where("id = ?", accountID).Pluck("points", &balance).Error
	})
	if err != nil {
		return 0, storeErr("update points", err)
	}
	dropAccountCache(ctx, s.cache, accountID)
	logrus.WithFields(logrus.Fields{
		"account_id": accountID, // Account ID
		"delta":      delta,     // Change
		"balance":    balance,   // New balance
	}).Info("Points updated")
	return balance, nil
}

// GetByID returns one account, served from cache when possible
func (s *AccountService) GetByID(ctx context.Context, id uint) (*domain.Account, error) {
	key := utils.AccountCacheKey(id)
	var cached domain.Account
	if found, err := utils.GetCache(ctx, s.cache, key, &cached); err == nil && found {
		return &cached, nil
	} else if err != nil {
		logrus.WithError(err).Warn("Account cache read failed")
	}
	var account domain.Account
	if err := s.tx.DB(ctx).First(&account, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.ErrAccountNotFound.WithContext("account_id", id)
		}
		return nil, storeErr("load account", err)
	}
	if err := utils.SetCache(ctx, s.cache, key, account, s.cfg.CacheTTL); err != nil {
		logrus.WithError(err).Warn("Account cache write failed")
	}
	return &account, nil
}

// List returns one page of accounts and the total count
func (s *AccountService) List(ctx context.Context, page, pageSize int) ([]domain.Account, int64, error) {
	if page < 1 {
		page = 1 // Default page number
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20 // Default page size
	}
	var total int64
	if err := s.tx.DB(ctx).Model(&domain.Account{}).Count(&total).Error; err != nil {
		return nil, 0, storeErr("count accounts", err)
	}
	var accounts []domain.Account
	if err := s.tx.DB(ctx).Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&accounts).Error; err != nil {
		return nil, 0, storeErr("list accounts", err)
	}
	return accounts, total, nil
}

// Create adds an already verified account on behalf of an Admin
func (s *AccountService) Create(ctx context.Context, p Profile, role string) (*domain.Account, error) {
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	hash, err := utils.HashPassword(p.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	account := newAccount(p, hash)
	account.Role = role
	account.Status = domain.StatusActive
	verified := s.now()
	account.VerifiedAt = &verified

	if err := s.tx.Run(ctx, func(tx *gorm.DB) error { return insertAccount(tx, &account) }); err != nil {
		return nil, storeErr("create account", err)
	}
	logrus.WithFields(logrus.Fields{
		"account_id": account.ID,   // Account ID
		"role":       account.Role, // Role
	}).Info("Account created")
	return &account, nil
}

// Update applies changes to an account. Callers may update themselves;
// Admins may update anyone.
func (s *AccountService) Update(ctx context.Context, requester Principal, id uint, u AccountUpdate) (*domain.Account, error) {
	if !requester.CanActOn(id) {
		return nil, apperr.ErrUnauthorized
	}
	if (u.Role != nil || u.Status != nil) && !requester.IsAdmin() {
		return nil, apperr.ErrForbidden.WithContext("field", "role/status")
	}
	if u.Role != nil && *u.Role != domain.RoleUser && *u.Role != domain.RoleAdmin {
		return nil, apperr.ErrInvalidInput.WithContext("role", *u.Role)
	}
	if u.Status != nil && !validStatus(*u.Status) {
		return nil, apperr.ErrInvalidInput.WithContext("status", *u.Status)
	}
	changes := map[string]any{}
	if u.Password != nil && *u.Password != "" {
		hash, err := utils.HashPassword(*u.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, apperr.Internal("hash password", err)
		}
		changes["password_hash"] = hash
	}
	setIf(changes, "first_name", u.FirstName)
	setIf(changes, "last_name", u.LastName)
	setIf(changes, "phone", u.Phone)
	setIf(changes, "image", u.Image)
	setIf(changes, "role", u.Role)
	setIf(changes, "status", u.Status)

	var account domain.Account
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&account, id).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrAccountNotFound.WithContext("account_id", id)
			}
			return err
		}
		if u.Email != nil {
			email := normalizeEmail(*u.Email)
			if email != account.Email {
				var taken int64
				if err := tx.Model(&domain.Account{}).Where("email = ?", email).Count(&taken).Error; err != nil {
					return err
				}
				if taken > 0 {
					return apperr.ErrEmailInUse
				}
				changes["email"] = email
			}
		}
		if len(changes) > 0 {
			if err := tx.Model(&account).Updates(changes).Error; err != nil {
				if db.IsDuplicateKey(err) {
					return apperr.ErrEmailInUse
				}
				return err
			}
		}
		if u.Status != nil && *u.Status == domain.StatusDisabled {
			if _, err := revokeAllTx(tx, id, domain.ReasonDisabled, s.now()); err != nil {
				return err
			}
		}
		return tx.First(&account, id).Error
	})
	if err != nil {
		return nil, storeErr("update account", err)
	}
	dropAccountCache(ctx, s.cache, id)
	logrus.WithFields(logrus.Fields{
		"account_id":   id,                  // Account ID
		"requester_id": requester.AccountID, // Caller
		"fields":       len(changes),        // Changed columns
	}).Info("Account updated")
	return &account, nil
}

// Delete removes an account and everything it owns
func (s *AccountService) Delete(ctx context.Context, requester Principal, id uint) error {
	if !requester.CanActOn(id) {
		return apperr.ErrUnauthorized
	}
	if err := s.tx.Run(ctx, func(tx *gorm.DB) error { return db.DeleteAccount(tx, id) }); err != nil {
		return storeErr("delete account", err)
	}
	dropAccountCache(ctx, s.cache, id)
	logrus.WithFields(logrus.Fields{
		"account_id":   id,                  // Account ID
		"requester_id": requester.AccountID, // Caller
	}).Info("Account deleted")
	return nil
}

// send delivers a notification. Failures are logged, the operation that
// triggered it has already committed.
func (s *AccountService) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Notify(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"message_id": msg.ID,      // Message id
			"type":       msg.Type,    // Message type
			"error":      err.Error(), // Delivery error
		}).Error("Notification failed")
	}
}

func newAccount(p Profile, hash string) domain.Account {
	image := p.Image
	if image == "" {
		image = domain.DefaultImage
	}
	return domain.Account{
		Email:        normalizeEmail(p.Email), // Lowercase for uniqueness
		PasswordHash: hash,                    // bcrypt hash
		FirstName:    p.FirstName,             // Given name
		LastName:     p.LastName,              // Family name
		Phone:        p.Phone,                 // Phone number
		Image:        image,                   // Profile image
		Role:         domain.RoleUser,         // Default role
	}
}

// insertAccount creates account unless its email is taken
func insertAccount(tx *gorm.DB, account *domain.Account) error {
	account.ID = 0 // Fresh id on every attempt
	var taken int64
	if err := tx.Model(&domain.Account{}).Where("email = ?", account.Email).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return apperr.ErrEmailInUse
	}
	if err := tx.Create(account).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return apperr.ErrEmailInUse
		}
		return err
	}
	return nil
}

func validStatus(status string) bool {
	switch status {
	case domain.StatusUnverified, domain.StatusActive, domain.StatusDisabled:
		return true
	}
	return false
}

func setIf(changes map[string]any, column string, v *string) {
	if v != nil {
		changes[column] = *v
	}
}
