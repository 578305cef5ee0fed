package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"planforge/internal/apperrors"
	"planforge/pkg/types"
)

// MemoryProjectStore is a mutex-guarded in-memory project store
type MemoryProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*types.Project
}

// NewMemoryProjectStore creates an empty project store
func NewMemoryProjectStore() *MemoryProjectStore {
	return &MemoryProjectStore{projects: make(map[string]*types.Project)}
}

// SaveProject stores a deep copy of the project
func (s *MemoryProjectStore) SaveProject(_ context.Context, project *types.Project) error {
	if project.ProjectID == "" {
		return apperrors.Validation("project_id", "must not be empty")
	}
	clone, err := cloneProject(project)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.projects[project.ProjectID] = clone
	s.mu.Unlock()
	return nil
}

// GetProject returns a deep copy of the project
func (s *MemoryProjectStore) GetProject(_ context.Context, projectID string) (*types.Project, error) {
	s.mu.RLock()
	project, ok := s.projects[projectID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "project not found").
			WithContext("project_id", projectID)
	}
	return cloneProject(project)
}

// ListProjects returns the tenant's projects ordered by creation time
func (s *MemoryProjectStore) ListProjects(_ context.Context, tenantID string) ([]*types.Project, error) {
	s.mu.RLock()
	var out []*types.Project
	for _, project := range s.projects {
		if project.TenantID != tenantID {
			continue
		}
		clone, err := cloneProject(project)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, clone)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteProject removes a project
func (s *MemoryProjectStore) DeleteProject(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return apperrors.New(apperrors.CodeNotFound, "project not found").
			WithContext("project_id", projectID)
	}
	delete(s.projects, projectID)
	return nil
}

func cloneProject(project *types.Project) (*types.Project, error) {
	raw, err := json.Marshal(project)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to clone project", err)
	}
	var clone types.Project
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to clone project", err)
	}
	return &clone, nil
}

// MemoryDocumentStore is a mutex-guarded in-memory document store
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]types.Document
}

// NewMemoryDocumentStore creates an empty document store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]types.Document)}
}

// SaveDocument stores a copy of the document metadata
func (s *MemoryDocumentStore) SaveDocument(_ context.Context, doc *types.Document) error {
	if doc.DocumentID == "" {
		return apperrors.Validation("document_id", "must not be empty")
	}
	s.mu.Lock()
	s.docs[doc.DocumentID] = *doc
	s.mu.Unlock()
	return nil
}

// GetDocument returns the document metadata by id
func (s *MemoryDocumentStore) GetDocument(_ context.Context, documentID string) (*types.Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[documentID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "document not found").
			WithContext("document_id", documentID)
	}
	return &doc, nil
}

// ListDocuments returns documents for a tenant, optionally scoped to a
// project, ordered by upload time
func (s *MemoryDocumentStore) ListDocuments(_ context.Context, tenantID, projectID string) ([]*types.Document, error) {
	s.mu.RLock()
	var out []*types.Document
	for _, doc := range s.docs {
		if doc.TenantID != tenantID {
			continue
		}
		if projectID != "" && doc.ProjectID != projectID {
			continue
		}
		clone := doc
		out = append(out, &clone)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

// DeleteDocument removes document metadata
func (s *MemoryDocumentStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[documentID]; !ok {
		return apperrors.New(apperrors.CodeNotFound, "document not found").
			WithContext("document_id", documentID)
	}
	delete(s.docs, documentID)
	return nil
}
