package process_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsadapter "github.com/MyCarrier-DevOps/repo-sync/internal/adapters/fs"
	gitadapter "github.com/MyCarrier-DevOps/repo-sync/internal/adapters/git"
	"github.com/MyCarrier-DevOps/repo-sync/internal/adapters/process"
	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
	"github.com/MyCarrier-DevOps/repo-sync/internal/usecases"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Info(_ context.Context, _ string, _ map[string]interface{})           {}
func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{})          {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})           {}
func (l *testLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "HOME="+dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
	return strings.TrimSpace(string(output))
}

// setupSourceRepo creates a bare repository with one commit on branch.
func setupSourceRepo(t *testing.T, root, branch string) (string, string) {
	t.Helper()

	work := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))
	runGit(t, work, "init", "--initial-branch", branch)
	runGit(t, work, "config", "user.email", "test@example.com")
	runGit(t, work, "config", "user.name", "Test User")
	require.NoError(t, os.WriteFile(filepath.Join(work, "README.md"), []byte("widgets"), 0o644))
	runGit(t, work, "add", ".")
	runGit(t, work, "commit", "-m", "Initial commit")
	head := runGit(t, work, "rev-parse", "HEAD")

	bare := filepath.Join(root, "widgets.git")
	runGit(t, root, "clone", "--bare", work, bare)
	return bare, head
}

func TestRepositorySync_LocalRepositories(t *testing.T) {
	requireGit(t)

	// Arrange
	root := t.TempDir()
	source, head := setupSourceRepo(t, root, "main")
	destination := filepath.Join(root, "mirror.git")
	runGit(t, root, "init", "--bare", destination)

	scratchRoot := filepath.Join(root, "scratch")
	require.NoError(t, os.MkdirAll(scratchRoot, 0o755))

	log := &testLogger{}
	syncer := usecases.NewRepositorySyncer(
		process.NewGitRunner(),
		fsadapter.NewScratchFS(nil),
		log,
		usecases.WithScratchRoot(scratchRoot),
		usecases.WithInspector(gitadapter.NewInspector(log)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Act
	output, err := syncer.Sync(ctx, domain.SyncInput{
		Source:      domain.ParseEndpoint("file://" + source),
		Destination: domain.ParseEndpoint("file://" + destination),
		Branch:      "main",
		RetryLimit:  2,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, head, output.HeadSHA)
	assert.Equal(t, "main", output.Branch)
	assert.Equal(t, 1, output.CloneAttempts)
	assert.Equal(t, 1, output.PushAttempts)
	assert.Equal(t, head, runGit(t, destination, "rev-parse", "refs/heads/main"))

	_, statErr := os.Stat(filepath.Join(scratchRoot, "widgets"))
	assert.True(t, os.IsNotExist(statErr), "scratch directory removed")
}

func TestRepositorySync_MissingBranchExhaustsClone(t *testing.T) {
	requireGit(t)

	root := t.TempDir()
	source, _ := setupSourceRepo(t, root, "main")
	destination := filepath.Join(root, "mirror.git")
	runGit(t, root, "init", "--bare", destination)

	syncer := usecases.NewRepositorySyncer(
		process.NewGitRunner(),
		fsadapter.NewScratchFS(nil),
		&testLogger{},
		usecases.WithScratchRoot(root),
	)

	_, err := syncer.Sync(context.Background(), domain.SyncInput{
		Source:      domain.ParseEndpoint("file://" + source),
		Destination: domain.ParseEndpoint("file://" + destination),
		Branch:      "does-not-exist",
		RetryLimit:  2,
	})

	var procErr *domain.ExternalProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, domain.PhaseClone, procErr.Phase)
	assert.Equal(t, 2, procErr.Attempts)
	assert.NotZero(t, procErr.ExitCode)
	assert.Contains(t, procErr.Stderr, "does-not-exist")
}
