package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccumulatesAttributes(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithPhase(ctx, "binaries")
	ctx = WithAsset(ctx, "images/logo.png")

	lc := GetContext(ctx)
	assert.Equal(t, "run-1", lc.RunID)
	assert.Equal(t, "binaries", lc.Phase)
	assert.Equal(t, "images/logo.png", lc.Asset)
}

func TestContextOverwriteKeepsSiblings(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithPhase(ctx, "binaries")
	ctx = WithPhase(ctx, "scripts")

	lc := GetContext(ctx)
	assert.Equal(t, "run-1", lc.RunID)
	assert.Equal(t, "scripts", lc.Phase)
}

func TestInfoContextEmitsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithPhase(WithRunID(context.Background(), "run-42"), "stylesheets")
	InfoContext(ctx, "Phase complete", slog.Int("assets", 3))

	out := buf.String()
	assert.Contains(t, out, "run.id=run-42")
	assert.Contains(t, out, "phase=stylesheets")
	assert.Contains(t, out, "assets=3")
	assert.Contains(t, out, "Phase complete")
}

func TestEmptyContextEmitsNoExtraAttrs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	WarnContext(context.Background(), "plain message")
	out := buf.String()
	assert.Contains(t, out, "plain message")
	assert.NotContains(t, out, "run.id")
	assert.NotContains(t, out, "phase=")
}
