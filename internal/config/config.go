package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort            string        // Application port
	AppOrigin          string        // Public origin used in email links
	DBUser             string        // Database user
	DBPassword         string        // Database password
	DBHost             string        // Database host
	DBPort             string        // Database port
	DBName             string        // Database name
	JWTSecret          string        // JWT secret key
	AccessTokenTTL     time.Duration // Access token lifetime
	RefreshTokenTTL    time.Duration // Refresh token lifetime
	ResetTokenTTL      time.Duration // Password reset token lifetime
	BcryptCost         int           // bcrypt work factor
	PlatformFeePercent int64         // Revenue share of each donation
	PointsPerUnit      int64         // Points credited per whole currency unit donated
	TxTimeout          time.Duration // Upper bound for one transaction
	TxMaxRetries       int           // Retries for transient storage failures
	RateLimitRPS       float64       // Auth route requests per second per client
	RateLimitBurst     int           // Auth route burst per client
	RedisAddr          string        // Redis server address
	RedisPass          string        // Redis password
	RedisDB            int           // Redis database number
	CacheTTL           time.Duration // Account cache lifetime
	AMQPURL            string        // RabbitMQ URL, empty logs notifications instead
	AMQPExchange       string        // Exchange for notification events
	CookieSecure       bool          // Send the refresh cookie over HTTPS only
	LogLevel           string        // logrus level
	IsProd             bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	isProd := os.Getenv("IS_PROD") == "true"
	return &Config{
		AppPort:            getString("APP_PORT", "4000"),                         // Application port
		AppOrigin:          getString("APP_ORIGIN", "http://localhost:4000"),      // Origin for links
		DBUser:             os.Getenv("DB_USER"),                                  // Database user
		DBPassword:         os.Getenv("DB_PASSWORD"),                              // Database password
		DBHost:             getString("DB_HOST", "127.0.0.1"),                     // Database host
		DBPort:             getString("DB_PORT", "3306"),                          // Database port
		DBName:             os.Getenv("DB_NAME"),                                  // Database name
		JWTSecret:          os.Getenv("JWT_SECRET"),                               // JWT secret key
		AccessTokenTTL:     getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),       // Access token lifetime
		RefreshTokenTTL:    getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),      // Refresh token lifetime
		ResetTokenTTL:      getDuration("RESET_TOKEN_TTL", 24*time.Hour),          // Reset token lifetime
		BcryptCost:         getInt("BCRYPT_COST", 10),                             // bcrypt cost
		PlatformFeePercent: int64(getInt("PLATFORM_FEE_PERCENT", 5)),              // Fee percent
		PointsPerUnit:      int64(getInt("POINTS_PER_UNIT", 1)),                   // Points per unit
		TxTimeout:          getDuration("TX_TIMEOUT", 5*time.Second),              // Transaction timeout
		TxMaxRetries:       getInt("TX_MAX_RETRIES", 3),                           // Transaction retries
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 5),                         // Requests per second
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 10),                        // Burst size
		RedisAddr:          os.Getenv("REDIS_ADDR"),                               // Redis server address
		RedisPass:          os.Getenv("REDIS_PASS"),                               // Redis password
		RedisDB:            redisDB,                                               // Redis database number
		CacheTTL:           getDuration("CACHE_TTL", time.Minute),                 // Cache lifetime
		AMQPURL:            os.Getenv("AMQP_URL"),                                 // RabbitMQ URL
		AMQPExchange:       getString("AMQP_EXCHANGE", "crowdfund.notifications"), // Exchange name
		CookieSecure:       getBool("COOKIE_SECURE", isProd),                      // Secure cookie
		LogLevel:           getString("LOG_LEVEL", "info"),                        // Log level
		IsProd:             isProd,                                                // Is production environment
	}
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4&loc=UTC"
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// getDuration accepts Go durations ("15m") or plain seconds ("900")
func getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
