package server

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/auth"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/config"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.LogLevel = "error"
	return c
}

func TestApp_PrintToken(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, app.PrintToken(&out, "+15550000001"))

	phone, err := auth.GetPhoneFromToken(strings.TrimSpace(out.String()), []byte("secretKey"))
	require.NoError(t, err)
	assert.Equal(t, "+15550000001", phone)

	require.ErrorIs(t, app.PrintToken(&out, ""), common.ErrorInvalidInput)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_BadLogBackend(t *testing.T) {
	c := testConfig()
	c.LogBackend = "carrier-pigeon"
	_, err := NewApp(c)
	require.Error(t, err)
}
