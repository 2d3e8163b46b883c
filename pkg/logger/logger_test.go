package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, Format: FormatJSON})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-9")
	log.Error(ctx, "order update failed", errors.New("db down"))

	out := buf.String()
	assert.Contains(t, out, `"service":"test"`)
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"order_id":"order-9"`)
	assert.Contains(t, out, `"error":"db down"`)
	assert.Contains(t, out, `"stack"`)
}

func TestFieldsDoNotLeakToParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	parent := log.WithUserID(context.Background(), "user-1")
	_ = log.WithFields(parent, map[string]any{"attempt": 2})
	log.Info(parent, "checked")

	assert.Contains(t, buf.String(), `"user_id":"user-1"`)
	assert.NotContains(t, buf.String(), `"attempt"`)
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, WarnStack: true, Format: FormatJSON})
	log.Warn(context.Background(), "slow gateway")
	require.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})
	quiet.Warn(context.Background(), "slow gateway")
	require.NotContains(t, buf.String(), `"stack"`)
}

func TestWithEventTagsBothFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})

	log.Info(log.WithEvent(context.Background(), "evt_1", "checkout.session.completed"), "webhook event applied")

	assert.Contains(t, buf.String(), `"event_id":"evt_1"`)
	assert.Contains(t, buf.String(), `"event_type":"checkout.session.completed"`)
}

func TestDebugIsFilteredAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatJSON})
	log.Debug(context.Background(), "noise")
	assert.Empty(t, buf.String())
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, Format: FormatConsole})
	log.Info(context.Background(), "order created from cart")
	assert.Contains(t, buf.String(), "order created from cart")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}
