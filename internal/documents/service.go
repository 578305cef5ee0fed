package documents

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"planforge/internal/apperrors"
	"planforge/internal/config"
	"planforge/internal/langdetect"
	"planforge/internal/logging"
	"planforge/internal/storage"
	"planforge/pkg/types"
)

// Indexer is the RAG side of the document pipeline; nil disables
// retrieval indexing
type Indexer interface {
	IndexDocument(ctx context.Context, docID, content string, base types.ChunkMetadata) (int, error)
	RemoveDocument(ctx context.Context, docID string) error
}

// Service owns document uploads end to end: size check, parsing,
// on-disk storage, metadata persistence and RAG indexing
type Service struct {
	store   storage.DocumentStore
	indexer Indexer
	uploads *config.UploadConfig
	parsers []Parser
	logger  logging.Logger
}

// NewService wires the document service. indexer may be nil.
func NewService(store storage.DocumentStore, indexer Indexer, uploads *config.UploadConfig, logger logging.Logger) *Service {
	return &Service{
		store:   store,
		indexer: indexer,
		uploads: uploads,
		parsers: []Parser{NewPlainTextParser()},
		logger:  logger.WithComponent("documents"),
	}
}

// Upload stores one document and indexes its extracted text
func (s *Service) Upload(ctx context.Context, tenantID, projectID, name, documentType string, r io.Reader) (*types.Document, error) {
	if tenantID == "" {
		return nil, apperrors.Validation("tenant_id", "must not be empty")
	}
	if name == "" {
		return nil, apperrors.Validation("name", "must not be empty")
	}

	parser := s.parserFor(name)
	if parser == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "unsupported document format").
			WithContext("name", name)
	}

	// One byte past the limit distinguishes oversized from exact-size
	limited := io.LimitReader(r, s.uploads.MaxFileSize+1)
	content, err := parser.Parse(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > s.uploads.MaxFileSize {
		return nil, apperrors.New(apperrors.CodeOutOfRange, "document exceeds the upload size limit").
			WithContext("max_bytes", s.uploads.MaxFileSize)
	}

	docID := "doc_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	storedPath, err := s.persistFile(docID, name, content)
	if err != nil {
		return nil, err
	}

	doc := &types.Document{
		DocumentID:   docID,
		TenantID:     tenantID,
		ProjectID:    projectID,
		Name:         name,
		DocumentType: documentType,
		Language:     langdetect.Detect(content),
		StoredPath:   storedPath,
		SizeBytes:    int64(len(content)),
		UploadedAt:   time.Now().UTC(),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	chunks, err := s.index(ctx, doc, content)
	if err != nil {
		// The document is stored; indexing can be retried through the
		// workflow's index step
		s.logger.WarnContext(ctx, "document stored but indexing failed",
			"document_id", docID, "error", err.Error())
	}

	s.logger.InfoContext(ctx, "document uploaded",
		"document_id", docID,
		"tenant_id", tenantID,
		"size_bytes", doc.SizeBytes,
		"language", doc.Language,
		"chunks", chunks,
	)
	return doc, nil
}

// Get returns document metadata
func (s *Service) Get(ctx context.Context, documentID string) (*types.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// List returns a tenant's documents, optionally scoped to a project
func (s *Service) List(ctx context.Context, tenantID, projectID string) ([]*types.Document, error) {
	return s.store.ListDocuments(ctx, tenantID, projectID)
}

// Delete removes the document from the index, disk and metadata store
func (s *Service) Delete(ctx context.Context, documentID string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if s.indexer != nil {
		if err := s.indexer.RemoveDocument(ctx, documentID); err != nil {
			return err
		}
	}
	if doc.StoredPath != "" {
		if err := os.Remove(doc.StoredPath); err != nil && !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "failed to remove stored file",
				"document_id", documentID, "error", err.Error())
		}
	}
	return s.store.DeleteDocument(ctx, documentID)
}

// IndexProjectDocuments re-indexes every document of a project, used by
// the workflow's index step. Returns the number of documents indexed.
func (s *Service) IndexProjectDocuments(ctx context.Context, tenantID, projectID string) (int, error) {
	docs, err := s.store.ListDocuments(ctx, tenantID, projectID)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, doc := range docs {
		raw, err := os.ReadFile(doc.StoredPath)
		if err != nil {
			s.logger.WarnContext(ctx, "stored file unreadable, skipping",
				"document_id", doc.DocumentID, "error", err.Error())
			continue
		}
		if _, err := s.index(ctx, doc, string(raw)); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

func (s *Service) index(ctx context.Context, doc *types.Document, content string) (int, error) {
	if s.indexer == nil {
		return 0, nil
	}
	base := types.ChunkMetadata{
		Language:       doc.Language,
		IsBuildingCode: doc.DocumentType == "building_code",
	}
	return s.indexer.IndexDocument(ctx, doc.DocumentID, content, base)
}

func (s *Service) parserFor(name string) Parser {
	for _, parser := range s.parsers {
		if parser.Supports(name) {
			return parser
		}
	}
	return nil
}

func (s *Service) persistFile(docID, name, content string) (string, error) {
	dir := s.uploads.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "failed to create upload directory", err)
	}
	path := filepath.Join(dir, docID+filepath.Ext(name))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "failed to store upload", err)
	}
	return path, nil
}
