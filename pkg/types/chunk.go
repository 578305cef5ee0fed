package types

import (
	"fmt"
	"time"
)

// ChunkMetadata carries retrieval-relevant attributes of a chunk
type ChunkMetadata struct {
	Language       string  `json:"language,omitempty"`
	SectionIndex   int     `json:"section_index"`
	ChunkType      string  `json:"chunk_type,omitempty"`
	QualityScore   float64 `json:"quality_score"`
	ContentLength  int     `json:"content_length"`
	IsBuildingCode bool    `json:"is_building_code,omitempty"`
}

// DocumentChunk is a bounded text span carved from a document, the unit
// of retrieval. ChunkID is derived from the document id and chunk index.
type DocumentChunk struct {
	ChunkID  string        `json:"chunk_id"`
	DocID    string        `json:"doc_id"`
	Index    int           `json:"index"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkID builds the canonical chunk id for a document and index
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// EmbeddingVector is a fixed-dimension vector for one chunk. Every indexed
// vector refers to an existing DocumentChunk by ChunkID.
type EmbeddingVector struct {
	ChunkID   string        `json:"chunk_id"`
	DocID     string        `json:"doc_id"`
	Vector    []float64     `json:"vector"`
	ModelID   string        `json:"model_id"`
	CreatedAt time.Time     `json:"created_at"`
	Meta      ChunkMetadata `json:"meta"`
}

// RankingFeatures exposes the components of a hit's final score
type RankingFeatures struct {
	Cosine  float64 `json:"cosine"`
	Quality float64 `json:"quality"`
	Length  float64 `json:"length"`
}

// SearchHit is one ranked passage returned by the retriever
type SearchHit struct {
	Chunk           DocumentChunk   `json:"chunk"`
	Score           float64         `json:"score"`
	RankingFeatures RankingFeatures `json:"ranking_features"`
}

// SearchFilters restrict a vector query by chunk metadata
type SearchFilters struct {
	Language         string          `json:"language,omitempty"`
	DocIDs           map[string]bool `json:"doc_ids,omitempty"`
	IsBuildingCode   *bool           `json:"is_building_code,omitempty"`
	MinContentLength int             `json:"min_content_length,omitempty"`
}

// Match reports whether metadata passes the filters
func (f *SearchFilters) Match(meta *ChunkMetadata) bool {
	if f == nil {
		return true
	}
	if f.Language != "" && meta.Language != f.Language {
		return false
	}
	if f.IsBuildingCode != nil && meta.IsBuildingCode != *f.IsBuildingCode {
		return false
	}
	if f.MinContentLength > 0 && meta.ContentLength < f.MinContentLength {
		return false
	}
	return true
}

// MatchDoc reports whether a document id passes the doc id filter
func (f *SearchFilters) MatchDoc(docID string) bool {
	if f == nil || len(f.DocIDs) == 0 {
		return true
	}
	return f.DocIDs[docID]
}
