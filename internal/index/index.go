package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charlielabs/charlie/internal/chunk"
	"github.com/charlielabs/charlie/internal/config"
	"github.com/charlielabs/charlie/internal/embed"
	"github.com/charlielabs/charlie/internal/scanner"
	"github.com/charlielabs/charlie/internal/store"
)

// Artifact file names inside the index directory.
const (
	VectorsFileName = "vectors.hnsw"
	ChunksFileName  = "chunks.db"
)

// Options configures BuildOrLoad.
type Options struct {
	// RootDir is the project root to index.
	RootDir string
	// Config supplies chunking, exclusion, and retrieval settings.
	Config *config.Config
	// Embedder generates vectors. The caller retains ownership.
	Embedder embed.Embedder
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Reindex discards all existing artifacts and rebuilds from scratch.
	Reindex bool
}

// SearchResult is one retrieval hit.
type SearchResult struct {
	Path    string
	Content string
	Score   float32
}

// Stats summarizes an index pass.
type Stats struct {
	FilesScanned   int
	FilesChanged   int
	FilesUnchanged int
	FilesDeleted   int
	FilesFailed    int
	ChunksEmbedded int
}

// Index is the retrieval façade over the vector and chunk stores.
type Index struct {
	root     string
	dir      string
	cfg      *config.Config
	embedder embed.Embedder
	splitter *chunk.Splitter
	vectors  *store.HNSWStore
	chunks   *store.ChunkStore
	log      *slog.Logger

	stats Stats
}

// BuildOrLoad opens the index for a project, bringing it up to date
// incrementally: only files whose content digest changed since the last
// pass are re-chunked and re-embedded, and files deleted from the
// project are purged. On a fresh project it builds everything.
func BuildOrLoad(ctx context.Context, opts Options) (*Index, error) {
	if opts.Config == nil {
		opts.Config = config.NewConfig()
	}
	if opts.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	root, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	if err := migrateLegacyDir(root); err != nil {
		return nil, err
	}

	dir := Dir(root)
	if opts.Reindex {
		if err := removeArtifacts(dir); err != nil {
			return nil, err
		}
	}

	vectorsPath := filepath.Join(dir, VectorsFileName)

	// A stored index built with a different embedding dimension cannot
	// be extended; rebuild it.
	if storedDims, err := store.ReadStoredDimensions(vectorsPath); err != nil {
		log.Warn("unreadable vector index, rebuilding", slog.String("error", err.Error()))
		if err := removeArtifacts(dir); err != nil {
			return nil, err
		}
	} else if storedDims != 0 && storedDims != opts.Embedder.Dimensions() {
		log.Warn("embedding dimension changed, rebuilding index",
			slog.Int("stored", storedDims),
			slog.Int("current", opts.Embedder.Dimensions()))
		if err := removeArtifacts(dir); err != nil {
			return nil, err
		}
	}

	splitter, err := chunk.NewSplitter(opts.Config.Index.ChunkSize, opts.Config.Index.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	vectors, err := store.NewHNSWStore(store.VectorStoreConfig{
		Dimensions: opts.Embedder.Dimensions(),
		Metric:     "cos",
	})
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(vectorsPath); statErr == nil {
		if err := vectors.Load(vectorsPath); err != nil {
			return nil, fmt.Errorf("failed to load vector index: %w", err)
		}
	}

	chunks, err := store.NewChunkStore(filepath.Join(dir, ChunksFileName))
	if err != nil {
		_ = vectors.Close()
		return nil, err
	}

	idx := &Index{
		root:     root,
		dir:      dir,
		cfg:      opts.Config,
		embedder: opts.Embedder,
		splitter: splitter,
		vectors:  vectors,
		chunks:   chunks,
		log:      log,
	}

	if err := idx.refresh(ctx); err != nil {
		_ = idx.Close()
		return nil, err
	}

	return idx, nil
}

// refresh runs one incremental index pass.
func (x *Index) refresh(ctx context.Context) error {
	prior := store.LoadMeta(x.dir)

	current, contents, err := x.scanAndFingerprint(ctx, prior)
	if err != nil {
		return err
	}

	plan := BuildPlan(current, prior)
	x.stats.FilesScanned = len(current)
	x.stats.FilesChanged = len(plan.Changed)
	x.stats.FilesUnchanged = len(plan.Unchanged)
	x.stats.FilesDeleted = len(plan.Deleted)

	x.log.Info("index pass planned",
		slog.Int("changed", len(plan.Changed)),
		slog.Int("unchanged", len(plan.Unchanged)),
		slog.Int("deleted", len(plan.Deleted)))

	// Deleted files: purge chunks and vectors, drop fingerprints.
	for _, path := range plan.Deleted {
		if err := x.purgeFile(ctx, path); err != nil {
			return err
		}
		delete(prior, path)
	}

	// Changed files: replace previous chunks, embed, store.
	for _, path := range plan.Changed {
		if err := x.reindexFile(ctx, path, contents[path]); err != nil {
			return err
		}
	}

	// Vectors persist before metadata. Metadata is the record of what
	// the vector index contains, so it must never claim files whose
	// vectors did not reach disk; a crash between the two writes only
	// costs a re-embed of this pass's delta on the next run.
	if err := x.vectors.Save(filepath.Join(x.dir, VectorsFileName)); err != nil {
		return err
	}

	// Metadata is written once, after the pass: unchanged entries keep
	// their prior digests, changed ones get fresh digests, deleted ones
	// are gone from the current map.
	if err := store.SaveMeta(x.dir, current); err != nil {
		return err
	}

	x.log.Info("index pass complete",
		slog.Int("files", x.stats.FilesScanned),
		slog.Int("chunks_embedded", x.stats.ChunksEmbedded),
		slog.Int("read_failures", x.stats.FilesFailed))

	return nil
}

// scanAndFingerprint walks the project and digests every indexable
// file. Content is retained only for files that need re-embedding.
// Files that cannot be read are logged and skipped.
func (x *Index) scanAndFingerprint(ctx context.Context, prior map[string]string) (map[string]string, map[string][]byte, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, nil, err
	}

	results, err := sc.Scan(ctx, &scanner.ScanOptions{
		RootDir:          x.root,
		ExcludePatterns:  x.cfg.Paths.Exclude,
		RespectGitignore: x.cfg.Index.RespectGitignore,
		MaxFileSize:      x.cfg.Index.MaxFileSize,
	})
	if err != nil {
		return nil, nil, err
	}

	current := make(map[string]string)
	contents := make(map[string][]byte)

	for r := range results {
		if r.Error != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", r.Error)
		}

		content, digest, err := fingerprintFile(r.File.AbsPath, r.File.Path)
		if err != nil {
			var readErr *ReadError
			if errors.As(err, &readErr) {
				x.stats.FilesFailed++
				x.log.Warn("skipping unreadable file",
					slog.String("path", readErr.Path),
					slog.String("error", readErr.Err.Error()))
				// Keep the prior fingerprint so a transient read failure
				// is not mistaken for a deletion.
				if digest, ok := prior[readErr.Path]; ok {
					current[readErr.Path] = digest
				}
				continue
			}
			return nil, nil, err
		}

		current[r.File.Path] = digest
		if prior[r.File.Path] != digest {
			contents[r.File.Path] = content
		}
	}

	return current, contents, nil
}

// purgeFile removes all traces of a file from both stores.
func (x *Index) purgeFile(ctx context.Context, path string) error {
	ids, err := x.chunks.DeleteFile(ctx, path)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return x.vectors.Delete(ctx, ids)
}

// reindexFile replaces a file's chunks and embeddings.
func (x *Index) reindexFile(ctx context.Context, path string, content []byte) error {
	if err := x.purgeFile(ctx, path); err != nil {
		return err
	}

	pieces := x.splitter.Split(&chunk.FileInput{
		Path:     path,
		Content:  content,
		Language: scanner.DetectLanguage(path),
	})
	if len(pieces) == 0 {
		return nil
	}

	texts := make([]string, len(pieces))
	ids := make([]string, len(pieces))
	for i, c := range pieces {
		texts[i] = c.Content
		ids[i] = c.ID
	}

	vecs, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %s: %w", path, err)
	}

	if err := x.chunks.Put(ctx, pieces); err != nil {
		return err
	}
	if err := x.vectors.Add(ctx, ids, vecs); err != nil {
		return err
	}

	x.stats.ChunksEmbedded += len(pieces)
	return nil
}

// Search embeds the query and returns the k most similar chunks with
// their source paths.
func (x *Index) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = x.cfg.Index.TopK
	}

	queryVec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := x.vectors.Search(ctx, queryVec, k)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		c, err := x.chunks.Get(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			// Vector without a chunk row; stores drifted, skip it.
			x.log.Warn("vector hit without chunk content", slog.String("id", hit.ID))
			continue
		}
		results = append(results, SearchResult{
			Path:    c.FilePath,
			Content: c.Content,
			Score:   hit.Score,
		})
	}

	return results, nil
}

// Stats returns counters from the last index pass.
func (x *Index) Stats() Stats {
	return x.stats
}

// ChunkCount returns the number of stored chunks.
func (x *Index) ChunkCount(ctx context.Context) (int, error) {
	return x.chunks.Count(ctx)
}

// Close releases the underlying stores. The embedder is not closed;
// the caller owns it.
func (x *Index) Close() error {
	var firstErr error
	if err := x.vectors.Close(); err != nil {
		firstErr = err
	}
	if err := x.chunks.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// removeArtifacts deletes index artifacts, keeping the directory itself.
func removeArtifacts(dir string) error {
	for _, name := range []string{
		VectorsFileName,
		VectorsFileName + ".meta",
		ChunksFileName,
		store.MetaFileName,
	} {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}
