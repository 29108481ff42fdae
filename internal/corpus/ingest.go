package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

// Ingestor loads leases and statute sets into the vector store. Each lease
// gets its own collection; statutes are embedded once per jurisdiction into a
// shared "<jurisdiction>_laws" collection.
type Ingestor struct {
	store     vectorstore.Store
	processor *LeaseProcessor
	logger    *zap.Logger
}

func NewIngestor(store vectorstore.Store, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:     store,
		processor: NewLeaseProcessor(logger),
		logger:    logger,
	}
}

// IngestLease chunks lease text and embeds it into a fresh collection.
// It returns the generated source ID, which doubles as the collection name.
func (i *Ingestor) IngestLease(ctx context.Context, text string, metadata map[string]string) (string, int, error) {
	docs, err := i.processor.Chunk(text, metadata)
	if err != nil {
		return "", 0, err
	}

	sourceID := newLeaseSourceID()
	if _, err := i.store.AddDocuments(ctx, sourceID, docs); err != nil {
		return "", 0, fmt.Errorf("ingesting lease: %w", err)
	}

	i.logger.Info("ingested lease",
		zap.String("source_id", sourceID),
		zap.Int("chunks", len(docs)))
	return sourceID, len(docs), nil
}

// LoadStatutes embeds the statute set for a jurisdiction. Loading is
// idempotent: an already-populated collection is left untouched.
func (i *Ingestor) LoadStatutes(ctx context.Context, jurisdiction string) (string, int, error) {
	statutes, err := StatutesFor(jurisdiction)
	if err != nil {
		return "", 0, err
	}

	collection := LawCollectionName(jurisdiction)
	exists, err := i.store.CollectionExists(ctx, collection)
	if err != nil {
		return "", 0, fmt.Errorf("checking law collection: %w", err)
	}
	if exists {
		i.logger.Debug("law collection already loaded", zap.String("collection", collection))
		return collection, 0, nil
	}

	docs := make([]vectorstore.Document, 0, len(statutes))
	for _, s := range statutes {
		docs = append(docs, vectorstore.Document{
			ID:      uuid.NewString(),
			Content: formatStatute(s),
			Metadata: map[string]string{
				"section":      s.Section,
				"title":        s.Title,
				"category":     s.Category,
				"state":        s.State,
				"jurisdiction": s.Jurisdiction,
			},
		})
	}
	if _, err := i.store.AddDocuments(ctx, collection, docs); err != nil {
		return "", 0, fmt.Errorf("loading statutes for %q: %w", jurisdiction, err)
	}

	i.logger.Info("loaded statutes",
		zap.String("collection", collection),
		zap.Int("sections", len(docs)))
	return collection, len(docs), nil
}

// LawCollectionName returns the collection name for a jurisdiction's
// statutes, normalized to the store's naming rules.
func LawCollectionName(jurisdiction string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(jurisdiction)), " ", "_")
	return key + "_laws"
}

// JurisdictionDisplay renders a jurisdiction for prompts: "new_york" →
// "New York".
func JurisdictionDisplay(jurisdiction string) string {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(jurisdiction)), "_", " ")
	return titleCase(normalized)
}

// formatStatute renders a statute as retrieval text. The jurisdiction banner
// helps the grader and analyzers tell state from federal law.
func formatStatute(s Statute) string {
	display := titleCase(strings.ReplaceAll(s.State, "_", " "))
	var b strings.Builder
	fmt.Fprintf(&b, "%s LAW - %s\n\n", strings.ToUpper(s.Jurisdiction), s.Title)
	fmt.Fprintf(&b, "%s Section %s\n\n", display, s.Section)
	b.WriteString(s.Text)
	fmt.Fprintf(&b, "\n\nCategory: %s\nJurisdiction: %s\nApplies to: %s", s.Category, s.Jurisdiction, display)
	return b.String()
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// newLeaseSourceID generates a collection-safe lease identifier.
func newLeaseSourceID() string {
	return "lease_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
