package config

import (
	"os"
	"strconv"
	"time"

	"wavechat/logger"
	security "wavechat/tools/security"
)

const defaultJWTSecret = "change-me-in-production"

// AppConfig is the process-wide configuration, loaded once at startup.
type AppConfig struct {
	Port int

	MongoURI    string
	MongoDB     string
	MaxPoolSize uint64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UserCacheTTL  time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigin string

	// Real-time transport liveness window.
	PingInterval time.Duration // server ping cadence
	PongTimeout  time.Duration // connection presumed dead after this

	LogLevel string
}

// Load reads configuration from the environment with development defaults.
func Load() AppConfig {
	cfg := AppConfig{
		Port:          envInt("PORT", 8080),
		MongoURI:      envStr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       envStr("MONGO_DB", "wavechat"),
		MaxPoolSize:   uint64(envInt("MONGO_MAX_POOL", 20)),
		RedisAddr:     envStr("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		UserCacheTTL:  envDur("USER_CACHE_TTL", 5*time.Minute),
		JWTSecret:     envStr("JWT_SECRET", defaultJWTSecret),
		JWTTTL:        envDur("JWT_TTL", 168*time.Hour),
		CORSOrigin:    envStr("CORS_ORIGIN", "http://localhost:5173"),
		PingInterval:  envDur("WS_PING_INTERVAL", 25*time.Second),
		PongTimeout:   envDur("WS_PONG_TIMEOUT", 60*time.Second),
		LogLevel:      envStr("LOG_LEVEL", "info"),
	}

	if cfg.JWTSecret == defaultJWTSecret {
		logger.Warnf("using default JWT secret, set JWT_SECRET in production")
	}
	return cfg
}

// JWTOptions derives the token signing options from the loaded config.
func (c AppConfig) JWTOptions() security.Options {
	opts := security.DefaultOptions([]byte(c.JWTSecret))
	opts.TTL = c.JWTTTL
	return opts
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger.Warnf("invalid %s=%q, using default %d", key, os.Getenv(key), def)
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logger.Warnf("invalid %s=%q, using default %s", key, os.Getenv(key), def)
	}
	return def
}
