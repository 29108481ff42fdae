// Package vectorstore defines the knowledge-source interface and its
// embedded implementation.
//
// A knowledge source is a named collection of embedded text chunks that can
// be searched by similarity. The analysis core treats it purely as a
// ranked-evidence provider; embedding algorithm and index structure are
// implementation details behind this interface.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	// Callers must distinguish this from an empty result set: "no evidence"
	// and "source doesn't exist" are different user-facing conditions.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when attempting to create an existing collection.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Document is a text chunk to be embedded and stored.
type Document struct {
	// ID is the unique identifier. Callers should provide explicit IDs.
	ID string

	// Content is the text to embed.
	Content string

	// Metadata carries provenance: at minimum "source" and "section";
	// statute documents additionally carry "jurisdiction".
	Metadata map[string]string
}

// SearchResult is one ranked hit from a similarity search.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]string
}

// CollectionInfo contains metadata about a collection.
type CollectionInfo struct {
	Name       string `json:"name"`
	PointCount int    `json:"point_count"`
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for knowledge-source storage and search.
type Store interface {
	// AddDocuments embeds and stores documents in a collection.
	// Returns the stored document IDs.
	AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error)

	// Search performs similarity search in a collection, returning up to k
	// results ordered best-first. An optional metadata filter restricts
	// results to documents matching all filter entries.
	// Returns ErrCollectionNotFound if the collection does not exist.
	Search(ctx context.Context, collection string, query string, k int, filter map[string]string) ([]SearchResult, error)

	// DeleteCollection deletes a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// CollectionExists reports whether a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollectionInfo returns metadata about a collection.
	// Returns ErrCollectionNotFound if the collection does not exist.
	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)

	// Close releases resources held by the store.
	Close() error
}
