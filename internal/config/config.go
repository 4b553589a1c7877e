// Package config handles loading of the secrets manager's configuration
// from the process environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete runtime configuration for the service, sourced
// entirely from environment variables (there is no config file).
type Config struct {
	// EncryptionKey encrypts the on-disk SQLite container. Required.
	EncryptionKey string
	// AccessKeyID is the single configured SigV4 access key id. Required.
	AccessKeyID string
	// AccessKeySecret is the single configured SigV4 secret key. Required.
	AccessKeySecret string
	// DatabasePath is the filesystem path of the encrypted container.
	DatabasePath string
	// UseHTTPS enables TLS termination in the HTTP server.
	UseHTTPS bool
	// ServerAddress is the listen address, e.g. "0.0.0.0:8080".
	ServerAddress string
	// HTTPSCertificatePath is the TLS certificate path, used when UseHTTPS.
	HTTPSCertificatePath string
	// HTTPSPrivateKeyPath is the TLS private key path, used when UseHTTPS.
	HTTPSPrivateKeyPath string
	// LogLevel is the minimum slog level: "debug", "info", "warn", "error".
	LogLevel string
	// LogFormat is the slog handler format: "text" or "json".
	LogFormat string
}

// MissingFieldError reports that a required environment variable was not set.
type MissingFieldError struct {
	EnvVar string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required environment variable %s", e.EnvVar)
}

// InvalidFieldError reports that an environment variable's value could not
// be parsed into the type its field requires.
type InvalidFieldError struct {
	EnvVar string
	Value  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("environment variable %s=%q is invalid: %s", e.EnvVar, e.Value, e.Reason)
}

// Load reads configuration from the environment, applying the documented
// defaults for optional fields and failing fast if any required field is
// absent or unparseable.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_path", "secrets.db")
	v.SetDefault("use_https", false)
	v.SetDefault("https_certificate_path", "sm.cert.pem")
	v.SetDefault("https_private_key_path", "sm.key.pem")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	for _, key := range []string{
		"database_path", "use_https", "https_certificate_path",
		"https_private_key_path", "log_level", "log_format",
		"encryption_key", "access_key_id", "access_key_secret", "server_address",
	} {
		if err := v.BindEnv(key, "SM_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding SM_%s: %w", strings.ToUpper(key), err)
		}
	}

	encryptionKey := v.GetString("encryption_key")
	if encryptionKey == "" {
		return nil, &MissingFieldError{EnvVar: "SM_ENCRYPTION_KEY"}
	}

	accessKeyID := v.GetString("access_key_id")
	if accessKeyID == "" {
		return nil, &MissingFieldError{EnvVar: "SM_ACCESS_KEY_ID"}
	}

	accessKeySecret := v.GetString("access_key_secret")
	if accessKeySecret == "" {
		return nil, &MissingFieldError{EnvVar: "SM_ACCESS_KEY_SECRET"}
	}

	useHTTPS := v.GetBool("use_https")
	if raw := v.GetString("use_https"); raw != "" {
		if _, err := parseBool(raw); err != nil {
			return nil, &InvalidFieldError{EnvVar: "SM_USE_HTTPS", Value: raw, Reason: "must be a boolean"}
		}
	}

	serverAddress := v.GetString("server_address")
	if serverAddress == "" {
		if useHTTPS {
			serverAddress = "0.0.0.0:8443"
		} else {
			serverAddress = "0.0.0.0:8080"
		}
	}

	return &Config{
		EncryptionKey:        encryptionKey,
		AccessKeyID:          accessKeyID,
		AccessKeySecret:      accessKeySecret,
		DatabasePath:         v.GetString("database_path"),
		UseHTTPS:             useHTTPS,
		ServerAddress:        serverAddress,
		HTTPSCertificatePath: v.GetString("https_certificate_path"),
		HTTPSPrivateKeyPath:  v.GetString("https_private_key_path"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
	}, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", raw)
	}
}
