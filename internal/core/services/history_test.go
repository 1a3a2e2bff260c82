package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

func TestHistoryCache_GetCaches(t *testing.T) {
	p := newMockPlatform()
	p.addFile("File:A.jpg", domain.FileHistory{{Timestamp: time.Unix(100, 0), User: "Alice"}})
	c := NewHistoryCache(p)

	for i := 0; i < 3; i++ {
		hist, err := c.Get(context.Background(), "File:A.jpg")
		require.NoError(t, err)
		require.Len(t, hist, 1)
	}
	assert.Equal(t, 1, p.historyCalls)
}

func TestHistoryCache_InvalidateRefetches(t *testing.T) {
	p := newMockPlatform()
	p.addFile("File:A.jpg", domain.FileHistory{{User: "Alice"}})
	c := NewHistoryCache(p)
	ctx := context.Background()

	_, err := c.Get(ctx, "File:A.jpg")
	require.NoError(t, err)

	p.addFile("File:A.jpg", domain.FileHistory{{User: "Bob"}, {User: "Alice"}})
	hist, err := c.Get(ctx, "File:A.jpg")
	require.NoError(t, err)
	assert.Len(t, hist, 1, "stale entry served until invalidated")

	hist, err = c.Refresh(ctx, "File:A.jpg")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
	assert.Equal(t, 2, p.historyCalls)
}

func TestHistoryCache_ErrorsNotCached(t *testing.T) {
	p := newMockPlatform()
	p.historyErr = errors.New("timeout")
	c := NewHistoryCache(p)
	ctx := context.Background()

	_, err := c.Get(ctx, "File:A.jpg")
	require.Error(t, err)

	p.historyErr = nil
	p.addFile("File:A.jpg", domain.FileHistory{{User: "Alice"}})
	hist, err := c.Get(ctx, "File:A.jpg")
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestHistoryCache_MissingPage(t *testing.T) {
	c := NewHistoryCache(newMockPlatform())

	_, err := c.Get(context.Background(), "File:Gone.jpg")
	assert.ErrorIs(t, err, domain.ErrPageMissing)
}
