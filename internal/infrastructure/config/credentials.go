package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/MyCarrier-DevOps/repo-sync/internal/credential"
)

// ErrNotTerminal indicates a token prompt was requested without an interactive terminal.
var ErrNotTerminal = errors.New("token prompt requires an interactive terminal")

// PromptFunc reads one token for the named repository role without echo.
type PromptFunc func(role string) ([]byte, error)

// Credentials holds the repository tokens for one sync. Either may be nil,
// in which case the repository is accessed without authentication.
type Credentials struct {
	Source      *credential.Credential
	Destination *credential.Credential
}

// Close scrubs any token that was not revealed.
func (c *Credentials) Close() error {
	var errs []error
	if c.Source != nil {
		errs = append(errs, c.Source.Close())
	}
	if c.Destination != nil {
		errs = append(errs, c.Destination.Close())
	}
	return errors.Join(errs...)
}

// TerminalPrompt returns a PromptFunc that writes a label to out and reads a
// token from in with echo disabled. It fails with ErrNotTerminal when in is
// not a terminal.
func TerminalPrompt(in *os.File, out io.Writer) PromptFunc {
	return func(role string) ([]byte, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return nil, ErrNotTerminal
		}

		if _, err := fmt.Fprintf(out, "%s token: ", role); err != nil {
			return nil, fmt.Errorf("failed to write prompt: %w", err)
		}
		token, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s token: %w", role, err)
		}
		return token, nil
	}
}

// LoadCredentials resolves the source and destination tokens. Each token is
// taken from the first source that has it:
//
//   - REPO_SYNC_SOURCE_TOKEN / REPO_SYNC_DESTINATION_TOKEN
//   - Vault KV at VAULT_CREDENTIALS_PATH (keys source_token, destination_token),
//     mount VAULT_CREDENTIALS_MOUNT (optional, defaults to "secret")
//   - prompt, when non-nil
//
// Vault is only contacted when VAULT_CREDENTIALS_PATH is set and a token is
// still missing after the environment. If vaultClientFactory is nil,
// DefaultVaultClientFactory is used.
func LoadCredentials(
	ctx context.Context,
	vaultClientFactory VaultClientFactory,
	prompt PromptFunc,
) (*Credentials, error) {
	source := []byte(os.Getenv(EnvSourceToken))
	destination := []byte(os.Getenv(EnvDestinationToken))

	vaultPath := os.Getenv(EnvVaultCredentialsPath)
	if vaultPath != "" && (len(source) == 0 || len(destination) == 0) {
		if vaultClientFactory == nil {
			vaultClientFactory = DefaultVaultClientFactory
		}

		secretData, err := loadCredentialsFromVault(ctx, vaultClientFactory, vaultPath)
		if err != nil {
			clear(source)
			clear(destination)
			return nil, err
		}

		if len(source) == 0 {
			if source, err = vaultToken(secretData, VaultKeySourceToken); err != nil {
				clear(destination)
				return nil, err
			}
		}
		if len(destination) == 0 {
			if destination, err = vaultToken(secretData, VaultKeyDestinationToken); err != nil {
				clear(source)
				return nil, err
			}
		}
	}

	if prompt != nil {
		var err error
		if len(source) == 0 {
			if source, err = prompt("source"); err != nil {
				clear(destination)
				return nil, err
			}
		}
		if len(destination) == 0 {
			if destination, err = prompt("destination"); err != nil {
				clear(source)
				return nil, err
			}
		}
	}

	creds := &Credentials{}
	var err error
	if len(source) > 0 {
		if creds.Source, err = credential.FromBytes(source); err != nil {
			clear(destination)
			return nil, fmt.Errorf("failed to store source token: %w", err)
		}
	}
	if len(destination) > 0 {
		if creds.Destination, err = credential.FromBytes(destination); err != nil {
			_ = creds.Close()
			return nil, fmt.Errorf("failed to store destination token: %w", err)
		}
	}

	return creds, nil
}

func loadCredentialsFromVault(
	ctx context.Context,
	vaultClientFactory VaultClientFactory,
	vaultPath string,
) (map[string]interface{}, error) {
	client, err := vaultClientFactory(ctx)
	if err != nil {
		return nil, err
	}

	mount := os.Getenv(EnvVaultCredentialsMount)
	if mount == "" {
		mount = DefaultVaultMount
	}

	secretData, err := client.GetKVSecret(ctx, vaultPath, mount)
	if err != nil {
		return nil, fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, vaultPath, err)
	}
	if secretData == nil {
		return nil, fmt.Errorf("%w at path %s: secret is empty", ErrVaultSecretNotFound, vaultPath)
	}

	return secretData, nil
}

// vaultToken returns the token stored under key, or nil when the key is absent.
func vaultToken(secretData map[string]interface{}, key string) ([]byte, error) {
	value, ok := secretData[key]
	if !ok || value == nil {
		return nil, nil
	}
	token, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: key %s has type %T", ErrVaultSecretInvalid, key, value)
	}
	return []byte(token), nil
}
