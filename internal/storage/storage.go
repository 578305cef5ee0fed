// Package storage defines the persistence interfaces for projects and
// documents plus in-memory implementations. The in-memory stores copy
// on read and write so callers never share mutable state.
package storage

import (
	"context"

	"planforge/pkg/types"
)

// ProjectStore persists workflow projects
type ProjectStore interface {
	SaveProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, projectID string) (*types.Project, error)
	ListProjects(ctx context.Context, tenantID string) ([]*types.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// DocumentStore persists uploaded document metadata
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, documentID string) (*types.Document, error)
	ListDocuments(ctx context.Context, tenantID, projectID string) ([]*types.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}
