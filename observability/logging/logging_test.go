package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Service: "tip20-cli", Env: "test", Level: "debug"})
	logger.Debug("token action submitted", slog.String("action", "mint"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "token action submitted", line["message"])
	require.Equal(t, "DEBUG", line["severity"])
	require.Equal(t, "tip20-cli", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "mint", line["action"])
	require.Contains(t, line, "timestamp")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Service: "svc", Level: "warn"})
	logger.Info("hidden")
	require.Zero(t, buf.Len())
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")
	logger, closer := Setup(Options{Service: "svc", File: path})
	logger.Info("hello")
	require.NoError(t, closer.Close())
	require.FileExists(t, path)
}

func TestMasking(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("authorization", "Bearer abc").Value.String())
	require.Equal(t, "text/plain", MaskField("Content-Type", "text/plain").Value.String())
	require.Equal(t, "", MaskField("authorization", "").Value.String())

	masked := MaskURL("https://user:pw@rpc.example.com/v3/secretkey?token=abc")
	require.True(t, strings.HasPrefix(masked, "https://"))
	require.Contains(t, masked, "rpc.example.com")
	for _, secret := range []string{"pw", "secretkey", "abc"} {
		require.NotContains(t, masked, secret)
	}
	require.Equal(t, "ws://localhost:8546", MaskURL("ws://localhost:8546"))

	var buf bytes.Buffer
	logger := New(&buf, Options{Service: "svc"})
	logger.Info("telemetry", MaskHeaders("headers", map[string]string{"Authorization": "Bearer x", "User-Agent": "cli"}))
	require.NotContains(t, buf.String(), "Bearer x")
	require.Contains(t, buf.String(), "cli")
}
