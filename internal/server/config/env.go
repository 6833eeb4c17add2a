package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/flagx"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "GOPHREWARDS_"

// parseEnv overlays GOPHREWARDS_* environment variables onto config.
func parseEnv(config *Config) error {
	flagx.EnvString(EnvPrefix+"HTTP_ADDR", &config.EndpointAddrHTTP)
	flagx.EnvString(EnvPrefix+"GRPC_ADDR", &config.EndpointAddrGRPC)
	flagx.EnvString(EnvPrefix+"DATABASE_DSN", &config.DatabaseDSN)
	flagx.EnvString(EnvPrefix+"WORDPRESS_DSN", &config.WordPressDSN)
	flagx.EnvString(EnvPrefix+"WORDPRESS_TABLE_PREFIX", &config.WordPressTablePrefix)
	flagx.EnvString(EnvPrefix+"WORDPRESS_LOGIN_URL", &config.WordPressLoginURL)
	flagx.EnvString(EnvPrefix+"SECRET_KEY", &config.SecretKey)
	flagx.EnvString(EnvPrefix+"REDIS_ADDR", &config.RedisAddr)
	flagx.EnvString(EnvPrefix+"S3_ROOT_USER", &config.S3RootUser)
	flagx.EnvString(EnvPrefix+"S3_ROOT_PASSWORD", &config.S3RootPassword)
	flagx.EnvString(EnvPrefix+"S3_BUCKET", &config.S3Bucket)
	flagx.EnvString(EnvPrefix+"S3_REGION", &config.S3Region)
	flagx.EnvString(EnvPrefix+"S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	flagx.EnvString(EnvPrefix+"LOG_BACKEND", &config.LogBackend)
	flagx.EnvString(EnvPrefix+"LOG_FORMAT", &config.LogFormat)
	flagx.EnvString(EnvPrefix+"LOG_LEVEL", &config.LogLevel)

	durations := map[string]*time.Duration{
		"REMOTE_FALLBACK_TIMEOUT": &config.RemoteFallbackTimeout,
		"ACCESS_TOKEN_VALIDITY":   &config.AccessTokenValidityDuration,
		"REFRESH_TOKEN_VALIDITY":  &config.RefreshTokenValidityDuration,
		"LOGIN_WINDOW":            &config.LoginWindow,
		"S3_PRESIGN_EXPIRY":       &config.S3PresignExpiry,
	}
	for name, dst := range durations {
		if err := flagx.EnvDuration(EnvPrefix+name, dst); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
	}

	if err := flagx.EnvInt(EnvPrefix+"BCRYPT_COST", &config.BcryptCost); err != nil {
		return fmt.Errorf("%sBCRYPT_COST: %w", EnvPrefix, err)
	}
	if err := flagx.EnvInt(EnvPrefix+"LOGIN_MAX_ATTEMPTS", &config.LoginMaxAttempts); err != nil {
		return fmt.Errorf("%sLOGIN_MAX_ATTEMPTS: %w", EnvPrefix, err)
	}

	if v, ok := os.LookupEnv(EnvPrefix + "CORS_ALLOWED_ORIGINS"); ok {
		config.CORSAllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvPrefix + "MIGRATE_ON_START"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sMIGRATE_ON_START: %w", EnvPrefix, err)
		}
		config.MigrateOnStart = b
	}

	return nil
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
