// Package service holds the core operations: token lifecycle, account
// lifecycle, ledger rules and catalog management. Every write runs through
// db.TxRunner and every failure surfaces as an *apperr.Error.
package service

import (
	"context" // Cache calls
	"errors"  // errors.As
	"time"    // Clock

	"crowdfund_system/internal/apperr" // Typed core errors
	"crowdfund_system/internal/domain" // Importing domain models
	"crowdfund_system/internal/utils"  // Cache helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
	"gorm.io/gorm/clause"          // Row locking
)

// Principal is the authenticated caller of an operation
type Principal struct {
	AccountID uint   // Caller account
	Role      string // Caller role
}

// IsAdmin reports whether the caller holds the Admin role
func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

// CanActOn reports whether the caller owns accountID or is an Admin
func (p Principal) CanActOn(accountID uint) bool {
	return p.AccountID == accountID || p.IsAdmin()
}

func utcNow() time.Time { return time.Now().UTC() }

// forUpdate locks the selected rows until the transaction ends
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// storeErr keeps typed errors and wraps anything else as Internal
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(op, err)
}

// dropAccountCache evicts cached copies of the given accounts
func dropAccountCache(ctx context.Context, rdb *redis.Client, ids ...uint) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, utils.AccountCacheKey(id))
	}
	if err := utils.DeleteCache(ctx, rdb, keys...); err != nil {
		logrus.WithError(err).Warn("Account cache invalidation failed")
	}
}
