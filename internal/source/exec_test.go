package source

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewExecSource_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ExecConfig
	}{
		{
			name: "empty program",
			cfg:  ExecConfig{},
		},
		{
			name: "invalid timeout",
			cfg:  ExecConfig{Program: []string{"true"}, Timeout: "soon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExecSource(zap.NewNop(), tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestExecSource_CapturesStdout(t *testing.T) {
	src, err := NewExecSource(zap.NewNop(), ExecConfig{
		Program: []string{"echo", "-n", "captured"},
	})
	require.NoError(t, err)
	assert.Equal(t, "exec(echo -n captured)", src.Name())

	reader, err := src.Open(t.Context())
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "captured", string(content))
}

func TestExecSource_Env(t *testing.T) {
	src, err := NewExecSource(zap.NewNop(), ExecConfig{
		Program: []string{"sh", "-c", "printf %s \"$GREETING\""},
		Env:     map[string]string{"GREETING": "hi"},
	})
	require.NoError(t, err)

	reader, err := src.Open(t.Context())
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(content))
}

func TestExecSource_FailureIncludesStderr(t *testing.T) {
	src, err := NewExecSource(zap.NewNop(), ExecConfig{
		Program: []string{"sh", "-c", "echo boom >&2; exit 3"},
	})
	require.NoError(t, err)

	_, err = src.Open(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestExecSource_Timeout(t *testing.T) {
	src, err := NewExecSource(zap.NewNop(), ExecConfig{
		Program: []string{"sleep", "5"},
		Timeout: "50ms",
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = src.Open(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecSource_DefaultTimeout(t *testing.T) {
	src, err := NewExecSource(zap.NewNop(), ExecConfig{
		Program: []string{"true"},
	})
	require.NoError(t, err)
	assert.Equal(t, defaultExecTimeout, src.timeout)
}
