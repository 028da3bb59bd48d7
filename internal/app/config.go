package app

import (
	"strings"
	"time"

	"github.com/orbitpath/orbitpath-backend/internal/logger"
	"github.com/orbitpath/orbitpath-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SessionTTL      time.Duration
	RedisEnabled    bool
	OpenAIEnabled   bool
	AllowOrigins    []string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	sessionTTLSeconds := utils.GetEnvAsInt("SESSION_TTL", 1800, log)
	redisEnabled := utils.GetEnv("REDIS_ENABLED", "false", log) == "true"
	openAIEnabled := utils.GetEnv("OPENAI_ENABLED", "false", log) == "true"

	var allowOrigins []string
	if raw := utils.GetEnv("ALLOW_ORIGINS", "", log); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowOrigins = append(allowOrigins, trimmed)
			}
		}
	}

	return Config{
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		SessionTTL:      time.Duration(sessionTTLSeconds) * time.Second,
		RedisEnabled:    redisEnabled,
		OpenAIEnabled:   openAIEnabled,
		AllowOrigins:    allowOrigins,
	}
}
