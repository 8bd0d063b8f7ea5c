package credential

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// recordingBuffer keeps a reference to its storage so tests can observe
// the scrub after release.
type recordingBuffer struct {
	data       []byte
	releases   int
	releaseErr error
}

func (b *recordingBuffer) bytes() []byte { return b.data }

func (b *recordingBuffer) release() error {
	b.releases++
	clear(b.data)
	return b.releaseErr
}

func TestFromBytes_ZeroesSource(t *testing.T) {
	source := []byte("ghp_exampletoken")

	cred, err := FromBytes(source)
	require.NoError(t, err)
	defer cred.Close()

	assert.Equal(t, make([]byte, len(source)), source)

	plain, err := cred.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "ghp_exampletoken", plain)
}

func TestFromBytes_Empty(t *testing.T) {
	cred, err := FromBytes(nil)

	assert.Nil(t, cred)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReveal_OnlyOnce(t *testing.T) {
	cred, err := FromString("s3cret")
	require.NoError(t, err)

	first, err := cred.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", first)
	assert.True(t, cred.Consumed())

	second, err := cred.Reveal()
	assert.Empty(t, second)
	assert.ErrorIs(t, err, domain.ErrCredentialConsumed)
}

func TestReveal_ScrubsBuffer(t *testing.T) {
	buf := &recordingBuffer{data: []byte("token-value")}
	cred := &Credential{buf: buf}

	plain, err := cred.Reveal()

	require.NoError(t, err)
	assert.Equal(t, "token-value", plain)
	assert.Equal(t, 1, buf.releases)
	assert.Equal(t, make([]byte, len("token-value")), buf.data)
}

func TestReveal_ReleaseError(t *testing.T) {
	boom := errors.New("munmap: invalid argument")
	cred := &Credential{buf: &recordingBuffer{data: []byte("x"), releaseErr: boom}}

	_, err := cred.Reveal()

	assert.ErrorIs(t, err, boom)
	assert.True(t, cred.Consumed())
}

func TestClose_Idempotent(t *testing.T) {
	buf := &recordingBuffer{data: []byte("abc")}
	cred := &Credential{buf: buf}

	require.NoError(t, cred.Close())
	require.NoError(t, cred.Close())

	assert.Equal(t, 1, buf.releases)
	_, err := cred.Reveal()
	assert.ErrorIs(t, err, domain.ErrCredentialConsumed)
}

func TestCredential_NeverFormatsSecret(t *testing.T) {
	cred, err := FromString("hunter2")
	require.NoError(t, err)
	defer cred.Close()

	for _, verb := range []string{"%s", "%v", "%+v", "%#v"} {
		out := fmt.Sprintf(verb, cred)
		assert.NotContains(t, out, "hunter2", verb)
	}
	assert.Equal(t, "[REDACTED]", cred.String())
}

func TestReveal_ConcurrentCallersGetOneValue(t *testing.T) {
	cred, err := FromString("race")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cred.Reveal(); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}
