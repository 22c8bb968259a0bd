// Package indexer loads advising knowledge into storage, the keyword index and the vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/embedding"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/extract"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/fileid"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/keyword"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/vector"
)

// ErrUnsupported is returned for files whose extension is not configured for ingestion.
var ErrUnsupported = errors.New("unsupported file type")

const (
	metaSourcePath  = "source_path"
	metaSourceMtime = "source_mtime"
	metaSourceSize  = "source_size"
)

// Indexer writes knowledge documents to every retrieval backend.
type Indexer struct {
	store     storage.Storage
	embedder  embedding.Embedder
	vectors   vector.Index
	keywords  keyword.Index
	chunker   *Chunker
	extractor *extract.Extractor
	entities  entity.Extractor
	logger    *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithChunking sets the chunk window for free-form files, in words.
func WithChunking(size, overlap int) Option {
	return func(idx *Indexer) { idx.chunker = NewChunker(size, overlap) }
}

// WithExtractor sets the file extractor and therefore the accepted extensions.
func WithExtractor(e *extract.Extractor) Option {
	return func(idx *Indexer) { idx.extractor = e }
}

// WithEntityExtractor sets the course-code extractor used to normalize catalog codes.
func WithEntityExtractor(e entity.Extractor) Option {
	return func(idx *Indexer) { idx.entities = e }
}

// New creates an indexer over the given backends.
func New(store storage.Storage, embedder embedding.Embedder, vectors vector.Index, keywords keyword.Index, opts ...Option) *Indexer {
	idx := &Indexer{
		store:     store,
		embedder:  embedder,
		vectors:   vectors,
		keywords:  keywords,
		chunker:   NewChunker(200, 30),
		extractor: extract.NewExtractor(),
		entities:  entity.NewExtractor(nil),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

// IndexDocument validates and indexes a single document.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	docs, err := idx.indexDocuments(ctx, []*models.DocumentInput{input}, "")
	if err != nil {
		return nil, err
	}
	return docs[0], nil
}

// IndexDocuments indexes a batch of documents with one embedding call.
func (idx *Indexer) IndexDocuments(ctx context.Context, inputs []*models.DocumentInput) (int, error) {
	docs, err := idx.indexDocuments(ctx, inputs, "")
	return len(docs), err
}

func (idx *Indexer) indexDocuments(ctx context.Context, inputs []*models.DocumentInput, origin string) ([]*models.Document, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	docs := make([]*models.Document, len(inputs))
	texts := make([]string, len(inputs))
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs[i] = &models.Document{
			ID:         in.ID,
			SourceType: in.SourceType,
			Title:      in.Title,
			Content:    strings.TrimSpace(in.Content),
			Metadata:   in.Metadata,
			Origin:     origin,
		}
		texts[i] = docs[i].Content
	}

	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	items := make([]vector.Item, len(docs))
	for i, doc := range docs {
		if err := idx.store.UpsertDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to store document: %w", err)
		}
		items[i] = vector.Item{ID: doc.ID, Tag: string(doc.SourceType), Vector: vectors[i]}
		if err := idx.keywords.Index(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to index keywords: %w", err)
		}
	}
	if err := idx.vectors.Upsert(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to index vectors: %w", err)
	}
	idx.logger.Debug("indexed documents", zap.Int("count", len(docs)), zap.String("origin", origin))
	return docs, nil
}

// IndexFile ingests one knowledge file and returns the number of documents written.
// YAML files are read as seed data, spreadsheets with a course-code column as a catalog,
// and everything else is extracted and chunked into policy documents. A file whose
// size and modification time match the last ingest is skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if !isSeedFile(ext) && !idx.extractor.Supports(absPath) {
		return 0, fmt.Errorf("%s: %w", absPath, ErrUnsupported)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", absPath)
	}

	previous, err := idx.store.DocumentIDsByOrigin(ctx, absPath)
	if err != nil {
		return 0, err
	}
	if idx.unchanged(ctx, previous, info) {
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return 0, nil
	}

	inputs, err := idx.documentsForFile(absPath, ext)
	if err != nil {
		return 0, err
	}
	mtime := strconv.FormatInt(info.ModTime().UnixNano(), 10)
	size := strconv.FormatInt(info.Size(), 10)
	for _, in := range inputs {
		if in.Metadata == nil {
			in.Metadata = make(map[string]interface{})
		}
		in.Metadata[metaSourcePath] = absPath
		in.Metadata[metaSourceMtime] = mtime
		in.Metadata[metaSourceSize] = size
	}

	docs, err := idx.indexDocuments(ctx, inputs, absPath)
	if err != nil {
		return 0, err
	}
	current := make(map[string]bool, len(docs))
	for _, d := range docs {
		current[d.ID] = true
	}
	for _, id := range previous {
		if !current[id] {
			if err := idx.DeleteDocument(ctx, id); err != nil {
				return len(docs), err
			}
		}
	}
	idx.logger.Info("indexed file", zap.String("path", absPath), zap.Int("documents", len(docs)))
	return len(docs), nil
}

func isSeedFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}

// unchanged reports whether the first document from the file carries the same size and mtime.
func (idx *Indexer) unchanged(ctx context.Context, ids []string, info os.FileInfo) bool {
	if len(ids) == 0 {
		return false
	}
	doc, err := idx.store.GetDocument(ctx, ids[0])
	if err != nil || doc.Metadata == nil {
		return false
	}
	// stored as strings: UnixNano does not survive a JSON float64
	return doc.Metadata[metaSourceMtime] == strconv.FormatInt(info.ModTime().UnixNano(), 10) &&
		doc.Metadata[metaSourceSize] == strconv.FormatInt(info.Size(), 10)
}

func (idx *Indexer) documentsForFile(absPath, ext string) ([]*models.DocumentInput, error) {
	if isSeedFile(ext) {
		seed, err := LoadSeed(absPath)
		if err != nil {
			return nil, err
		}
		return seed.Documents(), nil
	}
	if ext == ".xlsx" {
		content, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		courses, ok, err := ReadCourseCatalog(content, idx.entities)
		if err != nil {
			return nil, err
		}
		if ok {
			docs := make([]*models.DocumentInput, len(courses))
			for i, c := range courses {
				docs[i] = c.ToDocument()
			}
			return docs, nil
		}
	}

	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	chunks := idx.chunker.Chunk(Preprocess(text))
	title := humanTitle(filepath.Base(absPath))
	docs := make([]*models.DocumentInput, len(chunks))
	for i, chunk := range chunks {
		t := title
		if len(chunks) > 1 {
			t = fmt.Sprintf("%s (part %d)", title, i+1)
		}
		docs[i] = &models.DocumentInput{
			ID:         fileid.ChunkID(absPath, i),
			SourceType: models.SourcePolicy,
			Title:      t,
			Content:    chunk,
			Metadata: map[string]interface{}{
				"type":     string(models.SourcePolicy),
				"category": "document",
				"part":     i + 1,
			},
		}
	}
	return docs, nil
}

// RemoveFile deletes every document ingested from path.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	ids, err := idx.store.DocumentIDsByOrigin(ctx, absPath)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := idx.DeleteDocument(ctx, id); err != nil {
			return 0, err
		}
	}
	if len(ids) > 0 {
		idx.logger.Info("removed file", zap.String("path", absPath), zap.Int("documents", len(ids)))
	}
	return len(ids), nil
}

// IndexDirectory walks dir and ingests every supported file. Per-file failures are
// logged and joined into the returned error; the walk continues.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	var (
		total int
		errs  []error
	)
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != absDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !idx.Accepts(path) {
			return nil
		}
		n, err := idx.IndexFile(ctx, path)
		if err != nil {
			idx.logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
			errs = append(errs, err)
			return nil
		}
		total += n
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return total, errors.Join(errs...)
}

// Accepts reports whether path would be ingested by IndexFile.
func (idx *Indexer) Accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return isSeedFile(strings.ToLower(filepath.Ext(path))) || idx.extractor.Supports(path)
}

// DeleteDocument removes a document from all indices and storage.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if err := idx.keywords.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if err := idx.vectors.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := idx.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	idx.logger.Debug("document deleted", zap.String("id", id))
	return nil
}

// Rebuild re-embeds every stored document into the vector and keyword indices.
// Used when an index snapshot is missing or was built with another embedder.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	const page = 256
	total := 0
	for offset := 0; ; offset += page {
		docs, err := idx.store.ListDocuments(ctx, "", offset, page)
		if err != nil {
			return total, err
		}
		if len(docs) == 0 {
			break
		}
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Content
		}
		vecs, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return total, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		items := make([]vector.Item, len(docs))
		for i, d := range docs {
			items[i] = vector.Item{ID: d.ID, Tag: string(d.SourceType), Vector: vecs[i]}
			if err := idx.keywords.Index(ctx, d); err != nil {
				return total, fmt.Errorf("failed to index keywords: %w", err)
			}
		}
		if err := idx.vectors.Upsert(ctx, items); err != nil {
			return total, fmt.Errorf("failed to index vectors: %w", err)
		}
		total += len(docs)
		if len(docs) < page {
			break
		}
	}
	idx.logger.Info("rebuilt indices", zap.Int("documents", total))
	return total, nil
}
