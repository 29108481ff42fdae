// Package corpus prepares documents for retrieval: lease text is split into
// section-tagged chunks, and the statute database is embedded per
// jurisdiction.
package corpus

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// headerPattern matches uppercase lease section headers such as
// "SECURITY DEPOSIT:" at the start of a line.
var headerPattern = regexp.MustCompile(`(?m)^\s*([A-Z][A-Z /&]{2,}):`)

// sectionVocabulary maps header keywords to canonical section names.
// Order matters: more specific keywords are checked before generic ones
// so "LATE PAYMENT" lands in late_fees rather than rent_payment.
var sectionVocabulary = []struct {
	name     string
	keywords []string
}{
	{"security_deposit", []string{"SECURITY DEPOSIT", "DEPOSIT"}},
	{"late_fees", []string{"LATE FEE", "LATE PAYMENT", "LATE CHARGE"}},
	{"entry_notice", []string{"LANDLORD ENTRY", "NOTICE OF ENTRY", "ENTRY", "ACCESS"}},
	{"termination", []string{"EARLY TERMINATION", "TERMINATION", "ENDING", "BREAKING"}},
	{"renewal", []string{"RENEWAL", "EXTENSION"}},
	{"pets", []string{"PETS", "ANIMALS"}},
	{"utilities", []string{"UTILITIES", "ELECTRIC", "WATER", "GAS"}},
	{"maintenance", []string{"MAINTENANCE", "REPAIRS", "UPKEEP"}},
	{"rent_payment", []string{"MONTHLY PAYMENT", "PAYMENT OF RENT", "RENT"}},
}

// section is a contiguous region of lease text under one detected header.
type section struct {
	name string
	text string
}

// LeaseProcessor splits raw lease text into embedding-ready chunks. Sections
// are detected first so related clauses stay together, then each section is
// chunked independently.
type LeaseProcessor struct {
	splitter textsplitter.RecursiveCharacter
	logger   *zap.Logger
}

// NewLeaseProcessor creates a processor with the default chunking geometry.
func NewLeaseProcessor(logger *zap.Logger) *LeaseProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseProcessor{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(defaultChunkSize),
			textsplitter.WithChunkOverlap(defaultChunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
		logger: logger,
	}
}

// detectSections partitions lease text at uppercase headers and classifies
// each region against the section vocabulary. Text under an unrecognized
// header is kept as "general" rather than dropped. A lease with no detected
// headers is a single "full_document" section.
func detectSections(text string) []section {
	matches := headerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []section{{name: "full_document", text: text}}
	}

	var sections []section
	if lead := strings.TrimSpace(text[:matches[0][0]]); lead != "" {
		sections = append(sections, section{name: "general", text: lead})
	}
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		header := text[m[2]:m[3]]
		sections = append(sections, section{
			name: classifySection(header),
			text: strings.TrimSpace(text[m[0]:end]),
		})
	}
	return sections
}

func classifySection(header string) string {
	upper := strings.ToUpper(header)
	for _, entry := range sectionVocabulary {
		for _, kw := range entry.keywords {
			if strings.Contains(upper, kw) {
				return entry.name
			}
		}
	}
	return "general"
}

// Chunk splits lease text into documents carrying section metadata plus any
// caller-supplied base metadata.
func (p *LeaseProcessor) Chunk(text string, base map[string]string) ([]vectorstore.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunking lease: %w", vectorstore.ErrEmptyDocuments)
	}

	var docs []vectorstore.Document
	sections := detectSections(text)
	for _, sec := range sections {
		parts, err := p.splitter.SplitText(sec.text)
		if err != nil {
			return nil, fmt.Errorf("splitting section %q: %w", sec.name, err)
		}
		for i, part := range parts {
			meta := make(map[string]string, len(base)+3)
			for k, v := range base {
				meta[k] = v
			}
			meta["section"] = sec.name
			meta["chunk_index"] = strconv.Itoa(i)
			meta["section_total_chunks"] = strconv.Itoa(len(parts))
			docs = append(docs, vectorstore.Document{
				ID:       uuid.NewString(),
				Content:  part,
				Metadata: meta,
			})
		}
	}

	p.logger.Debug("chunked lease",
		zap.Int("sections", len(sections)),
		zap.Int("chunks", len(docs)))
	return docs, nil
}
