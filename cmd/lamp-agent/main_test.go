package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigcntrl/lampagent/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariant(t *testing.T) {
	v, err := resolveVariant("sth")
	require.NoError(t, err)
	assert.Equal(t, "sth", v.Name)

	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bench\nchannels: [4, 5]\n"), 0o644))
	v, err = resolveVariant(path)
	require.NoError(t, err)
	assert.Equal(t, "bench", v.Name)

	_, err = resolveVariant("east")
	assert.ErrorIs(t, err, board.ErrUnknownVariant)
}

func TestResolveSupervisorFixedHost(t *testing.T) {
	c := defaultConfig()
	c.Host = "127.0.0.1"
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	addr, err := resolveSupervisor(context.Background(), c, logger)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:65433", addr.String())
}

func TestOpenCapture(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	c := defaultConfig()
	pl, closeFn, err := openCapture(c, logger)
	require.NoError(t, err)
	assert.Nil(t, pl)
	closeFn()

	c.CaptureFile = filepath.Join(t.TempDir(), "agent.llog")
	c.LogLevel = "debug"
	pl, closeFn, err = openCapture(c, logger)
	require.NoError(t, err)
	assert.NotNil(t, pl)
	closeFn()
	assert.FileExists(t, c.CaptureFile)
}
