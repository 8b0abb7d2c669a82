// Package apperr defines the error kinds surfaced by the core operations.
// Handlers map a Kind to a transport status; services never return raw
// storage errors.
package apperr

import (
	"errors" // errors.As for kind lookup
	"fmt"    // message formatting
	"sort"   // stable context ordering
	"strings"
)

// Kind classifies an error for the calling layer
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation_failed"
	KindConflict     Kind = "conflict"
	KindPrecondition Kind = "precondition_failed"
	KindExpired      Kind = "expired"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is a typed core error. Two errors are equal under errors.Is when
// their codes match, so context-enriched copies still compare equal to the
// predefined values below.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		b.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error { return e.Err }

// Is compares by code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithContext returns a copy carrying extra key/value pairs. Keys must be
// strings and come in pairs.
func (e *Error) WithContext(keyValues ...any) *Error {
	if len(keyValues)%2 != 0 {
		panic("WithContext requires key/value pairs")
	}
	ctx := make(map[string]any, len(e.Context)+len(keyValues)/2)
	for k, v := range e.Context {
		ctx[k] = v
	}
	for i := 0; i < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			panic(fmt.Sprintf("context key must be string, got %T", keyValues[i]))
		}
		ctx[key] = keyValues[i+1]
	}
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Context: ctx, Err: e.Err}
}

// Wrap returns a copy with cause attached
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// KindOf reports the kind of err; untyped errors are Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries kind k
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// Internal wraps an unexpected storage or library failure
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: op + " failed", Err: err}
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Authentication and token lifecycle
var (
	ErrInvalidCredentials  = newErr(KindUnauthorized, "INVALID_CREDENTIALS", "email or password is incorrect")
	ErrAccountNotVerified  = newErr(KindForbidden, "ACCOUNT_NOT_VERIFIED", "account not verified, check your email to verify your account")
	ErrAccountDisabled     = newErr(KindForbidden, "ACCOUNT_DISABLED", "account is disabled")
	ErrTokenNotFound       = newErr(KindNotFound, "TOKEN_NOT_FOUND", "refresh token not found")
	ErrTokenExpired        = newErr(KindExpired, "TOKEN_EXPIRED", "refresh token expired")
	ErrTokenReuseDetected  = newErr(KindConflict, "TOKEN_REUSE_DETECTED", "refresh token already used")
	ErrUnauthorized        = newErr(KindUnauthorized, "UNAUTHORIZED", "unauthorized")
	ErrForbidden           = newErr(KindForbidden, "FORBIDDEN", "forbidden")
	ErrInvalidAccessToken  = newErr(KindUnauthorized, "INVALID_ACCESS_TOKEN", "invalid access token")
	ErrAccessTokenExpired  = newErr(KindExpired, "ACCESS_TOKEN_EXPIRED", "access token expired")
	ErrEmailInUse          = newErr(KindConflict, "EMAIL_IN_USE", "email is already registered")
	ErrInvalidToken        = newErr(KindNotFound, "INVALID_TOKEN", "verification token is invalid")
	ErrInvalidOrExpiredTok = newErr(KindExpired, "INVALID_OR_EXPIRED_TOKEN", "reset token is invalid or expired")
)

// Accounts and ledger
var (
	ErrAccountNotFound     = newErr(KindNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	ErrInsufficientBalance = newErr(KindPrecondition, "INSUFFICIENT_BALANCE", "point balance cannot go negative")
	ErrCampaignNotFound    = newErr(KindNotFound, "CAMPAIGN_NOT_FOUND", "campaign not found")
	ErrCategoryNotFound    = newErr(KindNotFound, "CATEGORY_NOT_FOUND", "category not found")
	ErrCategoryExists      = newErr(KindConflict, "CATEGORY_EXISTS", "category already exists")
	ErrEventNotFound       = newErr(KindNotFound, "EVENT_NOT_FOUND", "event not found")
	ErrAlreadyJoined       = newErr(KindConflict, "ALREADY_JOINED", "account already joined this event")
	ErrRewardNotFound      = newErr(KindNotFound, "REWARD_NOT_FOUND", "reward not found")
	ErrRewardInactive      = newErr(KindPrecondition, "REWARD_INACTIVE", "reward is not active")
	ErrRewardOutOfStock    = newErr(KindPrecondition, "REWARD_OUT_OF_STOCK", "reward is out of stock")
	ErrInsufficientPoints  = newErr(KindPrecondition, "INSUFFICIENT_POINTS", "not enough points to redeem reward")
	ErrInvalidAmount       = newErr(KindValidation, "INVALID_AMOUNT", "amount must be greater than zero")
	ErrInvalidInput        = newErr(KindValidation, "INVALID_INPUT", "invalid input")
	ErrInsufficientFunds   = newErr(KindPrecondition, "INSUFFICIENT_FUNDS", "withdraw exceeds available campaign funds")
	ErrRevenueNotFound     = newErr(KindNotFound, "REVENUE_NOT_FOUND", "revenue not found")
	ErrUnavailable         = newErr(KindUnavailable, "UNAVAILABLE", "store temporarily unavailable")
)
