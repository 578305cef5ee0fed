package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/apperrors"
	"planforge/pkg/types"
)

func TestMemoryProjectStore_RoundTrip(t *testing.T) {
	store := NewMemoryProjectStore()
	ctx := context.Background()

	project := &types.Project{
		ProjectID: "p1",
		TenantID:  "t1",
		Status:    types.ProjectCreated,
		Steps: []types.WorkflowStep{
			{StepID: "p1-step-0", Kind: types.StepParseDocs, Status: types.StepPending},
		},
		ArtifactBag: map[types.StepKind]interface{}{},
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.SaveProject(ctx, project))

	fetched, err := store.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", fetched.ProjectID)
	assert.Len(t, fetched.Steps, 1)

	// The stored copy must be isolated from caller mutation
	fetched.Steps[0].Status = types.StepCompleted
	again, err := store.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, types.StepPending, again.Steps[0].Status)
}

func TestMemoryProjectStore_NotFound(t *testing.T) {
	store := NewMemoryProjectStore()

	_, err := store.GetProject(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	err = store.DeleteProject(context.Background(), "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestMemoryProjectStore_ListByTenant(t *testing.T) {
	store := NewMemoryProjectStore()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, tenant := range []string{"t1", "t2", "t1"} {
		require.NoError(t, store.SaveProject(ctx, &types.Project{
			ProjectID: string(rune('a' + i)),
			TenantID:  tenant,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	projects, err := store.ListProjects(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.True(t, projects[0].CreatedAt.Before(projects[1].CreatedAt))
}

func TestMemoryDocumentStore_RoundTripAndScope(t *testing.T) {
	store := NewMemoryDocumentStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.SaveDocument(ctx, &types.Document{
		DocumentID: "d1", TenantID: "t1", ProjectID: "p1", Name: "codes.txt", UploadedAt: now,
	}))
	require.NoError(t, store.SaveDocument(ctx, &types.Document{
		DocumentID: "d2", TenantID: "t1", ProjectID: "p2", Name: "site.txt", UploadedAt: now.Add(time.Second),
	}))

	doc, err := store.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "codes.txt", doc.Name)

	all, err := store.ListDocuments(ctx, "t1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := store.ListDocuments(ctx, "t1", "p2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "d2", scoped[0].DocumentID)

	require.NoError(t, store.DeleteDocument(ctx, "d1"))
	_, err = store.GetDocument(ctx, "d1")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}
