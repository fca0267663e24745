package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	api "github.com/oshokin/garage-sentinel/internal/api/grpc/garage"
	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/service/sentinel"
	"github.com/oshokin/garage-sentinel/internal/service/status"
)

// startSentinel runs the daemon on simulated hardware with a temporary config.
// Returns a stop function that cancels it and waits for it to exit.
func startSentinel(t *testing.T, addr string) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	cfg := config.Default()
	cfg.Status.ListenAddress = addr
	cfg.Window.Location = "UTC"
	require.NoError(t, config.Save(cfgPath, cfg))

	done := make(chan error, 1)

	go func() {
		done <- sentinel.Run(ctx, &sentinel.Options{
			ConfigPath:    cfgPath,
			AllowMultiple: true,
		})
	}()

	// Wait for the status API to accept connections.
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, 5*time.Second, 20*time.Millisecond)

	return func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("sentinel did not stop")
		}
	}
}

// reserveAddress returns a free loopback address.
func reserveAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// TestSentinel_StatusAPI starts the real daemon and reads it with the API client.
func TestSentinel_StatusAPI(t *testing.T) {
	t.Parallel()

	addr := reserveAddress(t)

	stop := startSentinel(t, addr)
	defer stop()

	client, err := api.Dial(addr, api.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = client.Close()
	}()

	ctx := context.Background()

	report, err := client.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, "closed", report.GetFields()["position"].GetStringValue())
	require.False(t, report.GetFields()["system_failure"].GetBoolValue())

	// Without an enable pin the poller reports the sentinel on after its first poll.
	require.Eventually(t, func() bool {
		report, err = client.GetStatus(ctx)

		return err == nil && report.GetFields()["user_enabled"].GetBoolValue()
	}, 3*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		serving, checkErr := client.Check(ctx)

		return checkErr == nil && serving == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 50*time.Millisecond)
}

// TestStatusClient_JSON runs garage-status against the real daemon.
func TestStatusClient_JSON(t *testing.T) {
	t.Parallel()

	addr := reserveAddress(t)

	stop := startSentinel(t, addr)
	defer stop()

	var out bytes.Buffer

	err := status.Run(context.Background(), &status.Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Address:    addr,
		JSON:       true,
		Timeout:    3 * time.Second,
		Out:        &out,
	})
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, "closed", decoded["position"])
	require.Equal(t, true, decoded["healthy"])
}
