package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

func testRecord(id, title string, at time.Time) domain.AuditRecord {
	return domain.AuditRecord{
		ID:                id,
		Title:             title,
		RevisionTimestamp: at.Add(-time.Hour),
		Uploader:          "Uploader",
		Digest:            "00000000deadbeef",
		Findings: []domain.Finding{
			{
				Offset:      1024,
				Exact:       true,
				MIME:        &domain.MIME{Type: "application", Subtype: "zip"},
				Description: "Zip archive data",
				Via:         []string{"raster"},
			},
		},
		Action:      domain.ActionOverwrite,
		Outcome:     domain.OutcomeOverwritten,
		ProcessedAt: at,
	}
}

func TestAuditStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t).AuditStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := testRecord("r1", "File:Example.jpg", at)
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, rec.Title, got.Title)
	assert.True(t, rec.RevisionTimestamp.Equal(got.RevisionTimestamp))
	assert.True(t, rec.ProcessedAt.Equal(got.ProcessedAt))
	assert.Equal(t, rec.Findings, got.Findings)
	assert.Equal(t, domain.ActionOverwrite, got.Action)
	assert.Equal(t, domain.OutcomeOverwritten, got.Outcome)
}

func TestAuditStore_SaveUpserts(t *testing.T) {
	store := setupTestStore(t).AuditStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := testRecord("r1", "File:Example.jpg", at)
	require.NoError(t, store.Save(ctx, rec))

	rec.Outcome = domain.OutcomeAbandoned
	rec.Error = "download corrupted"
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAbandoned, got.Outcome)
	assert.Equal(t, "download corrupted", got.Error)
}

func TestAuditStore_NoFindingsNoRevision(t *testing.T) {
	store := setupTestStore(t).AuditStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.AuditRecord{
		ID:      "bare",
		Title:   "File:Clean.png",
		Outcome: domain.OutcomeNoAction,
	}))

	got, err := store.Get(ctx, "bare")
	require.NoError(t, err)
	assert.Nil(t, got.Findings)
	assert.True(t, got.RevisionTimestamp.IsZero())
	assert.False(t, got.ProcessedAt.IsZero())
}

func TestAuditStore_GetMissing(t *testing.T) {
	store := setupTestStore(t).AuditStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditStore_SaveRequiresID(t *testing.T) {
	store := setupTestStore(t).AuditStore()

	err := store.Save(context.Background(), domain.AuditRecord{Title: "File:X.jpg"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuditStore_ListOrdering(t *testing.T) {
	store := setupTestStore(t).AuditStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, testRecord("old", "File:A.jpg", base)))
	require.NoError(t, store.Save(ctx, testRecord("mid", "File:B.jpg", base.Add(time.Minute))))
	require.NoError(t, store.Save(ctx, testRecord("new", "File:A.jpg", base.Add(2*time.Minute))))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].ID)

	byTitle, err := store.ListByTitle(ctx, "File:A.jpg")
	require.NoError(t, err)
	require.Len(t, byTitle, 2)
	assert.Equal(t, "new", byTitle[0].ID)
	assert.Equal(t, "old", byTitle[1].ID)

	none, err := store.ListByTitle(ctx, "File:None.jpg")
	require.NoError(t, err)
	assert.Empty(t, none)
}
