package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophrewards/internal/flagx"
	"github.com/dmitrijs2005/gophrewards/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations use
// timex.Duration so both "5s" and integer nanoseconds are accepted.
// Zero values leave the corresponding Config field untouched.
type FileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	WordPressDSN                 string         `json:"wordpress_dsn" yaml:"wordpress_dsn"`
	WordPressTablePrefix         string         `json:"wordpress_table_prefix" yaml:"wordpress_table_prefix"`
	WordPressLoginURL            string         `json:"wordpress_login_url" yaml:"wordpress_login_url"`
	RemoteFallbackTimeout        timex.Duration `json:"remote_fallback_timeout" yaml:"remote_fallback_timeout"`
	BcryptCost                   int            `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	LoginMaxAttempts             int            `json:"login_max_attempts" yaml:"login_max_attempts"`
	LoginWindow                  timex.Duration `json:"login_window" yaml:"login_window"`
	CORSAllowedOrigins           []string       `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3PresignExpiry              timex.Duration `json:"s3_presign_expiry" yaml:"s3_presign_expiry"`
	LogBackend                   string         `json:"log_backend" yaml:"log_backend"`
	LogFormat                    string         `json:"log_format" yaml:"log_format"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	MigrateOnStart               *bool          `json:"migrate_on_start" yaml:"migrate_on_start"`
}

// parseFile loads the file named by -c/-config, if any.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}
	return ApplyFile(config, path)
}

// ApplyFile overlays the JSON or YAML file at path onto config. The format
// is chosen by extension: .yaml/.yml is YAML, anything else JSON.
func ApplyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.WordPressDSN, fc.WordPressDSN)
	setString(&c.WordPressTablePrefix, fc.WordPressTablePrefix)
	setString(&c.WordPressLoginURL, fc.WordPressLoginURL)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.LogBackend, fc.LogBackend)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.LogLevel, fc.LogLevel)

	if fc.RemoteFallbackTimeout.Duration != 0 {
		c.RemoteFallbackTimeout = fc.RemoteFallbackTimeout.Duration
	}
	if fc.AccessTokenValidityDuration.Duration != 0 {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration.Duration != 0 {
		c.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	if fc.LoginWindow.Duration != 0 {
		c.LoginWindow = fc.LoginWindow.Duration
	}
	if fc.S3PresignExpiry.Duration != 0 {
		c.S3PresignExpiry = fc.S3PresignExpiry.Duration
	}
	if fc.BcryptCost != 0 {
		c.BcryptCost = fc.BcryptCost
	}
	if fc.LoginMaxAttempts != 0 {
		c.LoginMaxAttempts = fc.LoginMaxAttempts
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	if fc.MigrateOnStart != nil {
		c.MigrateOnStart = *fc.MigrateOnStart
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
