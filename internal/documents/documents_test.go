package documents

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/apperrors"
	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/internal/storage"
	"planforge/pkg/types"
)

// memIndexer records index calls without a real vector index
type memIndexer struct {
	mu      sync.Mutex
	indexed map[string]types.ChunkMetadata
	removed []string
}

func newMemIndexer() *memIndexer {
	return &memIndexer{indexed: make(map[string]types.ChunkMetadata)}
}

func (m *memIndexer) IndexDocument(_ context.Context, docID, content string, base types.ChunkMetadata) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed[docID] = base
	return 1, nil
}

func (m *memIndexer) RemoveDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexed, docID)
	m.removed = append(m.removed, docID)
	return nil
}

func newTestService(t *testing.T) (*Service, *memIndexer) {
	t.Helper()
	indexer := newMemIndexer()
	uploads := &config.UploadConfig{MaxFileSize: 1024, Dir: t.TempDir()}
	svc := NewService(storage.NewMemoryDocumentStore(), indexer, uploads, logging.NewNop())
	return svc, indexer
}

func TestPlainTextParser(t *testing.T) {
	parser := NewPlainTextParser()

	assert.True(t, parser.Supports("codes.txt"))
	assert.True(t, parser.Supports("NOTES.MD"))
	assert.False(t, parser.Supports("plan.dwg"))
	assert.False(t, parser.Supports("drawing.pdf"))

	text, err := parser.Parse(strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	_, err = parser.Parse(strings.NewReader(string([]byte{0xff, 0xfe, 0xfd})))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestUpload_StoresAndIndexes(t *testing.T) {
	svc, indexer := newTestService(t)
	ctx := context.Background()

	content := "Madde 5. Yatak odası alanı en az 9 metrekare olmalıdır."
	doc, err := svc.Upload(ctx, "t1", "p1", "yonetmelik.txt", "building_code", strings.NewReader(content))
	require.NoError(t, err)

	assert.NotEmpty(t, doc.DocumentID)
	assert.Equal(t, "tr", doc.Language)
	assert.Equal(t, int64(len(content)), doc.SizeBytes)
	assert.FileExists(t, doc.StoredPath)

	meta, ok := indexer.indexed[doc.DocumentID]
	require.True(t, ok, "upload must reach the index")
	assert.True(t, meta.IsBuildingCode)
	assert.Equal(t, "tr", meta.Language)

	fetched, err := svc.Get(ctx, doc.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "yonetmelik.txt", fetched.Name)
}

func TestUpload_Rejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "t1", "", "plan.dwg", "cad", strings.NewReader("binary"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = svc.Upload(ctx, "t1", "", "big.txt", "notes", strings.NewReader(strings.Repeat("a", 2048)))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeOutOfRange, apperrors.CodeOf(err))

	_, err = svc.Upload(ctx, "", "", "x.txt", "notes", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDelete_RemovesEverywhere(t *testing.T) {
	svc, indexer := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "t1", "", "notes.txt", "notes", strings.NewReader("site is flat"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, doc.DocumentID))
	assert.NoFileExists(t, doc.StoredPath)
	assert.Contains(t, indexer.removed, doc.DocumentID)

	_, err = svc.Get(ctx, doc.DocumentID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestIndexProjectDocuments(t *testing.T) {
	svc, indexer := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "t1", "p1", "a.txt", "notes", strings.NewReader("first document"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "t1", "p1", "b.txt", "notes", strings.NewReader("second document"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "t1", "other", "c.txt", "notes", strings.NewReader("different project"))
	require.NoError(t, err)

	indexed, err := svc.IndexProjectDocuments(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
	assert.Len(t, indexer.indexed, 3)
}
