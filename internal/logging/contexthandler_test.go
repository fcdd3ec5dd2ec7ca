package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/casefile/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, slog.LevelDebug, false).With(slog.String("source", "test"))

	ctx := logging.WithAttrs(context.Background(), slog.String("case_id", "c1"))
	sibling := logging.WithAttrs(ctx, slog.String("npc_id", "n1"))
	other := logging.WithAttrs(ctx, slog.String("npc_id", "n2"))

	logger.LogAttrs(sibling, slog.LevelInfo, "asked")
	require.Contains(t, buf.String(), "source=test")
	require.Contains(t, buf.String(), "case_id=c1")
	require.Contains(t, buf.String(), "npc_id=n1")

	buf.Reset()
	logger.LogAttrs(other, slog.LevelInfo, "asked")
	require.Contains(t, buf.String(), "npc_id=n2")
	require.NotContains(t, buf.String(), "npc_id=n1")

	buf.Reset()
	logger.LogAttrs(context.Background(), slog.LevelDebug, "plain")
	require.NotContains(t, buf.String(), "case_id")
}
