package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

func TestWriter_WriteDigest(t *testing.T) {
	tests := []struct {
		name       string
		digest     string
		input      string
		wantOutput string
	}{
		{
			name:       "file path",
			digest:     "d7a8fbb307d7809469ca9abcb0082e4f8d5651e46d3cdb762d02d0bf37c9e592",
			input:      "fox.txt",
			wantOutput: "d7a8fbb307d7809469ca9abcb0082e4f8d5651e46d3cdb762d02d0bf37c9e592  fox.txt\n",
		},
		{
			name:       "stdin",
			digest:     "16j7swfXgJRpypq8sAguT41WUeRtPNt2LQLQvzfJ5ZI=",
			input:      "-",
			wantOutput: "16j7swfXgJRpypq8sAguT41WUeRtPNt2LQLQvzfJ5ZI=  -\n",
		},
		{
			name:       "s3 object",
			digest:     "ABC",
			input:      "s3://bucket/key",
			wantOutput: "ABC  s3://bucket/key\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var buf bytes.Buffer
			writer := NewWriterWithOutput(&buf)

			// Act
			err := writer.WriteDigest(tt.digest, tt.input)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, buf.String())
		})
	}
}

func TestWriter_WriteSyncResult(t *testing.T) {
	tests := []struct {
		name       string
		result     *domain.SyncOutput
		wantOutput string
	}{
		{
			name: "full result",
			result: &domain.SyncOutput{
				Source:        "https://github.com/octo/widgets",
				Destination:   "https://dev.azure.com/contoso/platform/_git/widgets",
				Branch:        "main",
				HeadSHA:       "0123456789abcdef0123456789abcdef01234567",
				CloneAttempts: 2,
				PushAttempts:  1,
			},
			wantOutput: "source: https://github.com/octo/widgets\n" +
				"destination: https://dev.azure.com/contoso/platform/_git/widgets\n" +
				"branch: main\n" +
				"head: 0123456789abcdef0123456789abcdef01234567\n" +
				"clone_attempts: 2\n" +
				"push_attempts: 1\n",
		},
		{
			name: "optional fields omitted",
			result: &domain.SyncOutput{
				Source:        "file:///srv/a.git",
				Destination:   "file:///srv/b.git",
				CloneAttempts: 1,
				PushAttempts:  1,
			},
			wantOutput: "source: file:///srv/a.git\n" +
				"destination: file:///srv/b.git\n" +
				"clone_attempts: 1\n" +
				"push_attempts: 1\n",
		},
		{
			name:       "nil result",
			result:     nil,
			wantOutput: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			err := NewWriterWithOutput(&buf).WriteSyncResult(tt.result)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, buf.String())
		})
	}
}

func TestWriter_WriteRelease(t *testing.T) {
	tests := []struct {
		name       string
		release    domain.Release
		wantOutput string
	}{
		{
			name:       "published",
			release:    domain.Release{TagName: "v1.0.0", Name: "First", Assets: make([]domain.ReleaseAsset, 2)},
			wantOutput: "v1.0.0\tFirst\tpublished\t2\n",
		},
		{
			name:       "draft prerelease",
			release:    domain.Release{TagName: "v2.0.0-rc1", Name: "Next", Draft: true, Prerelease: true},
			wantOutput: "v2.0.0-rc1\tNext\tdraft,prerelease\t0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			err := NewWriterWithOutput(&buf).WriteRelease(tt.release)

			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, buf.String())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriter_PropagatesWriteErrors(t *testing.T) {
	writer := NewWriterWithOutput(failingWriter{})

	assert.Error(t, writer.WriteDigest("a", "b"))
	assert.Error(t, writer.WriteSyncResult(&domain.SyncOutput{}))
	assert.Error(t, writer.WriteRelease(domain.Release{}))
}

func TestNewWriter_UsesStdout(t *testing.T) {
	writer := NewWriter()
	assert.NotNil(t, writer)
	assert.NotNil(t, writer.out)
}
