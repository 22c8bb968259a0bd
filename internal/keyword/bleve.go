package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

var _ Index = (*BleveIndex)(nil)

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", text)
	docMapping.AddFieldMappingsAt("title", text)

	tag := bleve.NewTextFieldMapping()
	tag.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt("source_type", tag)

	im.AddDocumentMapping("knowledge", docMapping)
	im.DefaultType = "knowledge"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path builds an in-memory index.
// Remove the directory after changing the mapping to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces doc.
func (b *BleveIndex) Index(_ context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, map[string]interface{}{
		"title":       doc.Title,
		"content":     doc.Content,
		"source_type": string(doc.SourceType),
	})
}

// Search matches query against title and content, optionally restricted to one source type.
func (b *BleveIndex) Search(_ context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	titleBoost := 2.0
	fuzziness := 0
	var sourceType models.SourceType
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzziness = opts.Fuzziness
		sourceType = opts.SourceType
	}

	text := bleve.NewDisjunctionQuery(
		fieldQuery(query, "title", fuzziness, titleBoost),
		fieldQuery(query, "content", fuzziness, 1),
	)

	var q blevequery.Query = text
	if sourceType != "" {
		tq := bleve.NewTermQuery(string(sourceType))
		tq.SetField("source_type")
		q = bleve.NewConjunctionQuery(text, tq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"source_type"}
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		st, _ := hit.Fields["source_type"].(string)
		out = append(out, Result{ID: hit.ID, SourceType: models.SourceType(st), Score: hit.Score})
	}
	return out, nil
}

// fieldQuery builds a match query, or a disjunction of per-term fuzzy queries when fuzziness > 0.
func fieldQuery(query, field string, fuzziness int, boost float64) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if fuzziness <= 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}
	parts := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(strings.Trim(term, ".,;:!?\"'()"))
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		parts = append(parts, fq)
	}
	dq := bleve.NewDisjunctionQuery(parts...)
	dq.SetBoost(boost)
	return dq
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(_ context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
