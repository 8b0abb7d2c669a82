package api

import (
	"net/http" // HTTP status codes

	"crowdfund_system/internal/metrics"    // Prometheus exposition
	"crowdfund_system/internal/middleware" // Auth, rate limit and observability
	"crowdfund_system/internal/service"    // Core services

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Deps holds everything the router wires into handlers
type Deps struct {
	Tokens      *service.TokenService   // Token lifecycle
	Accounts    *service.AccountService // Account lifecycle
	Ledger      *service.LedgerService  // Donations, redemptions, events, revenue
	Catalog     *service.CatalogService // Categories, campaigns, events, rewards
	Redis       *redis.Client           // Optional cache
	Cookie      CookieConfig            // Refresh cookie settings
	Origin      string                  // Public origin for email links
	RateLimiter *middleware.RateLimiter // Optional auth route limiter
	Ping        func() error            // Optional readiness probe
}

// NewRouter builds the gin engine with every route
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Observe())

	r.GET("/healthz", func(c *gin.Context) {
		if d.Ping != nil {
			if err := d.Ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := middleware.JWTAuthMiddleware(d.Tokens)
	adminOnly := middleware.AdminOnlyMiddleware()
	limited := func(c *gin.Context) { c.Next() }
	if d.RateLimiter != nil {
		limited = d.RateLimiter.Handler()
	}

	// Account lifecycle routes, rate limited
	accounts := r.Group("/accounts")
	accounts.POST("/authenticate", limited, AuthenticateHandler(d.Tokens, d.Cookie))
	accounts.POST("/refresh-token", limited, RefreshTokenHandler(d.Tokens, d.Cookie))
	accounts.POST("/revoke-token", auth, RevokeTokenHandler(d.Tokens))
	accounts.POST("/register", limited, RegisterHandler(d.Accounts, d.Origin))
	accounts.POST("/verify-email", limited, VerifyEmailHandler(d.Accounts))
	accounts.POST("/forgot-password", limited, ForgotPasswordHandler(d.Accounts, d.Origin))
	accounts.POST("/validate-reset-token", limited, ValidateResetTokenHandler(d.Accounts))
	accounts.POST("/reset-password", limited, ResetPasswordHandler(d.Accounts))

	// Account records (protected by JWT)
	accounts.GET("", auth, adminOnly, ListAccountsHandler(d.Accounts, d.Redis))
	accounts.POST("", auth, adminOnly, CreateAccountHandler(d.Accounts))
	accounts.GET("/:id", auth, GetAccountHandler(d.Accounts))
	accounts.PUT("/:id", auth, UpdateAccountHandler(d.Accounts))
	accounts.DELETE("/:id", auth, DeleteAccountHandler(d.Accounts))
	accounts.PUT("/:id/points", auth, adminOnly, UpdatePointsHandler(d.Accounts))
	accounts.GET("/:id/refresh-tokens", auth, ListRefreshTokensHandler(d.Tokens))
	accounts.GET("/:id/events", auth, JoinedEventsHandler(d.Ledger))

	// Public catalog reads
	r.GET("/categories", ListCategoriesHandler(d.Catalog))
	r.GET("/campaigns", ListCampaignsHandler(d.Catalog))
	r.GET("/campaigns/:id", GetCampaignHandler(d.Catalog))
	r.GET("/campaigns/:id/comments", ListCommentsHandler(d.Catalog))
	r.GET("/events", ListEventsHandler(d.Catalog))
	r.GET("/rewards", ListRewardsHandler(d.Catalog))

	// Member routes (protected by JWT)
	member := r.Group("", auth)
	member.POST("/donations", DonateHandler(d.Ledger))
	member.POST("/rewards/redeem", RedeemRewardHandler(d.Ledger))
	member.POST("/events/:id/join", JoinEventHandler(d.Ledger))
	member.GET("/events/:id/participants", ParticipantsHandler(d.Ledger))
	member.POST("/campaigns", CreateCampaignHandler(d.Catalog))
	member.DELETE("/campaigns/:id", DeleteCampaignHandler(d.Catalog))
	member.POST("/campaigns/:id/comments", AddCommentHandler(d.Catalog))
	member.POST("/campaigns/:id/likes", LikeHandler(d.Catalog))
	member.POST("/campaigns/:id/withdraws", WithdrawHandler(d.Catalog))
	member.POST("/events", CreateEventHandler(d.Catalog))
	member.DELETE("/events/:id", DeleteEventHandler(d.Catalog))
	member.POST("/rewards", CreateRewardHandler(d.Catalog))
	member.PUT("/rewards/:id", UpdateRewardHandler(d.Catalog))
	member.DELETE("/rewards/:id", DeleteRewardHandler(d.Catalog))

	// Admin routes (protected, admin only)
	admin := r.Group("", auth, adminOnly)
	admin.POST("/categories", CreateCategoryHandler(d.Catalog))
	admin.DELETE("/categories/:id", DeleteCategoryHandler(d.Catalog))
	admin.GET("/revenues", ListRevenuesHandler(d.Ledger))
	admin.GET("/revenues/:id", GetRevenueHandler(d.Ledger))
	admin.PUT("/revenues/:id", UpdateRevenueHandler(d.Ledger))
	admin.DELETE("/revenues/:id", DeleteRevenueHandler(d.Ledger))

	return r
}
