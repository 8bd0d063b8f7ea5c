package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/repo-sync/internal/checksum"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Test mocks for dependency injection testing.

// mockLogger implements the Logger interface for testing.
type mockLogger struct{}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (m *mockLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// mockOutputWriter implements domain.OutputWriter for testing.
type mockOutputWriter struct {
	digests  []string
	results  []*domain.SyncOutput
	releases []domain.Release
	writeErr error
}

func (m *mockOutputWriter) WriteDigest(digest, name string) error {
	m.digests = append(m.digests, digest+"  "+name)
	return m.writeErr
}

func (m *mockOutputWriter) WriteSyncResult(result *domain.SyncOutput) error {
	m.results = append(m.results, result)
	return m.writeErr
}

func (m *mockOutputWriter) WriteRelease(release domain.Release) error {
	m.releases = append(m.releases, release)
	return m.writeErr
}

// testAppConfig returns the configuration Load produces with no overrides.
func testAppConfig(t *testing.T) *AppConfig {
	t.Helper()
	return &AppConfig{
		RetryLimit:    domain.DefaultRetryLimit,
		GitExecutable: "git",
		ScratchRoot:   t.TempDir(),
		ChunkSize:     checksum.DefaultChunkSize,
		Algorithm:     checksum.SHA256,
		LogLevel:      "info",
		LogAppName:    "repo-sync",
	}
}

// newTestDeps returns dependencies whose factories fail the test unless a
// test replaces them.
func newTestDeps(t *testing.T, cfg *AppConfig, writer *mockOutputWriter) *Dependencies {
	t.Helper()
	t.Setenv("LOG_LEVEL", "info")
	return &Dependencies{
		LoggerFactory: func() Logger { return &mockLogger{} },
		ConfigLoader: func() (*AppConfig, error) {
			return cfg, nil
		},
		CredentialLoader: func(_ context.Context, _ bool) (*SyncCredentials, error) {
			return &SyncCredentials{}, nil
		},
		SyncerFactory: func(_ *AppConfig, _ Logger) domain.Syncer {
			t.Fatal("unexpected SyncerFactory call")
			return nil
		},
		ReleaseSourceFactory: func(_ *AppConfig, _ Logger) (domain.ReleaseSource, error) {
			t.Fatal("unexpected ReleaseSourceFactory call")
			return nil, nil
		},
		StreamOpenerFactory: func(_ context.Context, _, _ string) (StreamOpener, error) {
			t.Fatal("unexpected StreamOpenerFactory call")
			return nil, nil
		},
		OutputWriterFactory: func() domain.OutputWriter { return writer },
		Stdin:               strings.NewReader(""),
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}
}

func execute(deps *Dependencies, args ...string) error {
	cmd := NewRootCmdWithDeps(deps)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestNewRootCmd(t *testing.T) {
	// Set default deps so NewRootCmd() works
	SetDefaultDependencies(&Dependencies{})
	cmd := NewRootCmd()

	require.NotNil(t, cmd)
	assert.Equal(t, "repo-sync", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.True(t, cmd.SilenceUsage)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"sync", "checksum", "releases"})
}

func TestNewRootCmd_HelpOutput(t *testing.T) {
	SetDefaultDependencies(&Dependencies{})
	cmd := NewRootCmd()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "repo-sync")
	assert.Contains(t, output, "sync")
	assert.Contains(t, output, "checksum")
	assert.Contains(t, output, "releases")
	assert.Contains(t, output, "--verbose")
}

func TestRootCmd_NilDependencies(t *testing.T) {
	tests := [][]string{
		{"sync", "https://github.com/octo/widgets", "https://github.com/octo/mirror"},
		{"checksum", "-"},
		{"releases", "https://github.com/octo/widgets"},
	}

	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			err := execute(nil, args...)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "dependencies not configured")
		})
	}
}

func TestRootCmd_ConfigLoadError(t *testing.T) {
	deps := newTestDeps(t, nil, &mockOutputWriter{})
	deps.ConfigLoader = func() (*AppConfig, error) {
		return nil, errors.New("failed to load config")
	}

	err := execute(deps, "checksum", "-")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestRootCmd_VerboseSetsDebugLevel(t *testing.T) {
	writer := &mockOutputWriter{}
	deps := newTestDeps(t, testAppConfig(t), writer)
	var levelAtLoggerCreation string
	deps.LoggerFactory = func() Logger {
		levelAtLoggerCreation = os.Getenv("LOG_LEVEL")
		return &mockLogger{}
	}

	err := execute(deps, "checksum", "--verbose", "-")

	require.NoError(t, err)
	assert.Equal(t, "debug", levelAtLoggerCreation)
}

func TestWriteWarningf(t *testing.T) {
	var buf bytes.Buffer

	writeWarningf(&buf, "warning: %s\n", "careful")

	assert.Equal(t, "warning: careful\n", buf.String())
}

func TestWriteWarningf_IgnoresWriteErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		writeWarningf(failingWriter{}, "warning: %d\n", 1)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}
