package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/larek-storefront/internal/domain/order"
	"github.com/xenking/larek-storefront/internal/journal"
)

func TestWriteEntries(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []journal.Entry{
		{ID: "order-2", Items: []string{"c"}, Total: decimal.NewFromInt(100), Payment: order.PaymentCash, CreatedAt: at.Add(time.Minute)},
		{ID: "order-1", Items: []string{"a", "b"}, Total: decimal.RequireFromString("2450.5"), Payment: order.PaymentCard, CreatedAt: at},
	}

	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, entries))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id":"order-2","created_at":"2024-05-01T10:01:00Z","payment":"cash","total":100,"items":["c"]}`, lines[0])
	assert.JSONEq(t, `{"id":"order-1","created_at":"2024-05-01T10:00:00Z","payment":"card","total":2450.5,"items":["a","b"]}`, lines[1])
}

func TestWriteEntries_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEntries(&buf, nil))
	assert.Empty(t, buf.String())
}
