// Package config provides configuration loading for the repo-sync application.
// Settings come from REPO_SYNC_* environment variables and an optional config
// file. Access tokens come from the environment, HashiCorp Vault, or an
// interactive terminal prompt.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
	"github.com/spf13/viper"

	"github.com/MyCarrier-DevOps/repo-sync/internal/checksum"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Environment variable names.
const (
	// EnvPrefix is prepended to every setting key when reading the environment.
	EnvPrefix = "REPO_SYNC"

	// EnvConfigFile is the path to an optional yaml, json or toml config file.
	EnvConfigFile = "REPO_SYNC_CONFIG"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvSourceToken is the access token for the source repository.
	EnvSourceToken = "REPO_SYNC_SOURCE_TOKEN"

	// EnvDestinationToken is the access token for the destination repository.
	EnvDestinationToken = "REPO_SYNC_DESTINATION_TOKEN"

	// EnvVaultCredentialsPath is the path in Vault KV where repository tokens are stored.
	EnvVaultCredentialsPath = "VAULT_CREDENTIALS_PATH"

	// EnvVaultCredentialsMount is the Vault KV mount point (defaults to "secret").
	EnvVaultCredentialsMount = "VAULT_CREDENTIALS_MOUNT"
)

// Setting keys. Each is read from the environment as EnvPrefix + "_" + upper(key).
const (
	KeyRetry         = "retry"
	KeyBranch        = "branch"
	KeyGitExecutable = "git_executable"
	KeyScratchRoot   = "scratch_root"
	KeyChunkSize     = "chunk_size"
	KeyAlgorithm     = "algorithm"
	KeyGitHubToken   = "github_token"
)

// Vault secret keys.
const (
	VaultKeySourceToken      = "source_token"
	VaultKeyDestinationToken = "destination_token"
)

// Default values.
const (
	DefaultRetryLimit    = domain.DefaultRetryLimit
	DefaultGitExecutable = "git"
	DefaultChunkSize     = checksum.DefaultChunkSize
	DefaultAlgorithm     = checksum.SHA256
	DefaultLogLevel      = "info"
	DefaultLogAppName    = "repo-sync"
	DefaultVaultMount    = "secret"
)

// Configuration errors.
var (
	// ErrConfigFileNotFound indicates REPO_SYNC_CONFIG names a file that does not exist.
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrConfigInvalid indicates the configuration file or a setting could not be parsed.
	ErrConfigInvalid = errors.New("configuration is invalid")

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("repository credentials not found in Vault")

	// ErrVaultSecretInvalid indicates a token in the Vault secret is not a string.
	ErrVaultSecretInvalid = errors.New("repository credential in Vault is not a string")
)

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
// This is the default factory used in production.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
type Config struct {
	// RetryLimit is the number of attempts per clone or push phase.
	RetryLimit int

	// Branch is the branch to clone. Empty means the remote default.
	Branch string

	// GitExecutable is the external git binary.
	GitExecutable string

	// ScratchRoot is the parent directory of scratch clones.
	ScratchRoot string

	// ChunkSize is the number of bytes read per checksum step.
	ChunkSize int

	// Algorithm is the checksum digest function.
	Algorithm checksum.Algorithm

	// GitHubToken authenticates release API calls. Empty means anonymous.
	GitHubToken string

	// LogLevel is the logging level (debug, info, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string
}

// Load loads the application configuration from REPO_SYNC_* environment
// variables, layered over the file named by REPO_SYNC_CONFIG when set.
// Environment values take precedence over the file.
func Load() (*Config, error) {
	return LoadWithViper(viper.New())
}

// LoadWithViper loads configuration into v. This function enables tests to
// supply an isolated viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyRetry, DefaultRetryLimit)
	v.SetDefault(KeyBranch, "")
	v.SetDefault(KeyGitExecutable, DefaultGitExecutable)
	v.SetDefault(KeyScratchRoot, os.TempDir())
	v.SetDefault(KeyChunkSize, DefaultChunkSize)
	v.SetDefault(KeyAlgorithm, string(DefaultAlgorithm))
	v.SetDefault(KeyGitHubToken, "")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := readConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	algorithm, err := checksum.ParseAlgorithm(v.GetString(KeyAlgorithm))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigInvalid, KeyAlgorithm, err)
	}

	chunkSize := v.GetInt(KeyChunkSize)
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigInvalid, KeyChunkSize, domain.ErrInvalidChunkSize)
	}

	cfg := &Config{
		RetryLimit:    v.GetInt(KeyRetry),
		Branch:        v.GetString(KeyBranch),
		GitExecutable: v.GetString(KeyGitExecutable),
		ScratchRoot:   v.GetString(KeyScratchRoot),
		ChunkSize:     chunkSize,
		Algorithm:     algorithm,
		GitHubToken:   v.GetString(KeyGitHubToken),
		LogLevel:      os.Getenv(EnvLogLevel),
		LogAppName:    os.Getenv(EnvLogAppName),
	}

	if cfg.RetryLimit < 1 {
		cfg.RetryLimit = DefaultRetryLimit
	}
	if cfg.GitExecutable == "" {
		cfg.GitExecutable = DefaultGitExecutable
	}
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = os.TempDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogAppName == "" {
		cfg.LogAppName = DefaultLogAppName
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return fmt.Errorf("failed to stat configuration file %s: %w", path, err)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigInvalid, path, err)
	}
	return nil
}
