package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/embedscan/internal/core/domain"
)

func seedAudit(t *testing.T, store *memory.AuditStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, store.Save(context.Background(), domain.AuditRecord{
			ID:          fmt.Sprintf("r%02d", i),
			Title:       fmt.Sprintf("File:%d.jpg", i%2),
			ProcessedAt: testNow.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestAuditService_Recent(t *testing.T) {
	store := memory.NewAuditStore()
	seedAudit(t, store, 30)
	s := NewAuditService(store)

	records, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "r29", records[0].ID)
}

func TestAuditService_Recent_DefaultLimit(t *testing.T) {
	store := memory.NewAuditStore()
	seedAudit(t, store, 30)
	s := NewAuditService(store)

	records, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, records, defaultAuditLimit)
}

func TestAuditService_ForTitle(t *testing.T) {
	store := memory.NewAuditStore()
	seedAudit(t, store, 6)
	s := NewAuditService(store)

	records, err := s.ForTitle(context.Background(), "File:1.jpg")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "File:1.jpg", r.Title)
	}
}

func TestAuditService_ForTitle_Empty(t *testing.T) {
	s := NewAuditService(memory.NewAuditStore())

	_, err := s.ForTitle(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// failingAuditStore fails every read.
type failingAuditStore struct {
	memory.AuditStore
}

func (*failingAuditStore) List(context.Context, int) ([]domain.AuditRecord, error) {
	return nil, errors.New("disk I/O error")
}

func TestAuditService_Recent_StoreError(t *testing.T) {
	s := NewAuditService(&failingAuditStore{})

	_, err := s.Recent(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
}
