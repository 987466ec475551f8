package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "", "serve", "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe_BadBackend(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "store:\n  backend: etcd\n")

	_, err := execute(t, "", "serve", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe_StartsAndStopsOnContextCancel(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "server:\n  listen: \"127.0.0.1:0\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve", "--config", cfg})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	// Give the listener a moment to come up, then stop it.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}
}
