package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/internal/store"
	"github.com/seanblong/contextselect/internal/vector"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// Progress receives one tick per processed file.
type Progress interface {
	Add(n int) error
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

var (
	DefaultIncludes = []string{"**/*.json"}
	DefaultExcludes = []string{"**/.git/**", "**/node_modules/**"}
)

// Ingester loads chunk files from a directory into the store.
type Ingester struct {
	Store      store.ChunkStore
	Root       string
	Includes   []string
	Excludes   []string
	Workers    int
	Walker     FileSystemWalker
	FileReader FileReader
	Progress   Progress
}

// Result summarizes one ingest run.
type Result struct {
	Files   int64
	Chunks  int64
	Skipped int64
	Failed  int64
	Removed int64
}

// New creates an Ingester for root with the default globs.
func New(s store.ChunkStore, root string) *Ingester {
	return NewWithDependencies(s, root, &DefaultFileSystemWalker{}, &DefaultFileReader{})
}

// NewWithDependencies creates an Ingester with custom dependencies for testing
func NewWithDependencies(s store.ChunkStore, root string, walker FileSystemWalker, fileReader FileReader) *Ingester {
	return &Ingester{
		Store:      s,
		Root:       root,
		Includes:   DefaultIncludes,
		Excludes:   DefaultExcludes,
		Walker:     walker,
		FileReader: fileReader,
	}
}

// hashContent returns the SHA-1 hash of the given content as a hex string.
func hashContent(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

type workItem struct {
	path string
	rel  string
	data []byte
}

type counters struct {
	files, chunks, skipped, failed, removed atomic.Int64
}

func (ig *Ingester) processWorkItem(ctx context.Context, item workItem, c *counters) error {
	docID, chunks, err := ParseChunkFile(item.rel, item.data)
	if err != nil {
		log.Warn().Err(err).Str("path", item.path).Msg("skipping invalid chunk file")
		c.failed.Add(1)
		return nil
	}
	c.files.Add(1)

	failed := false
	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		hash := hashContent(ch.Content)
		old, found, err := ig.Store.GetChunkHash(ctx, ch.DocumentID, ch.Metadata.ChunkIndex)
		if err != nil {
			log.Warn().Err(err).Str("document", docID).Int("chunk", ch.Metadata.ChunkIndex).Msg("hash lookup failed")
		} else if found && old == hash {
			c.skipped.Add(1)
			continue
		}

		ch.Vector = vector.Vectorize(ch.Content)
		log.Debug().Str("document", docID).
			Int("chunk", ch.Metadata.ChunkIndex).
			Str("section", ch.Location.Section).
			Msg("ingesting chunk")
		if err := ig.Store.UpsertChunk(ctx, ch, hash); err != nil {
			log.Error().Err(err).Str("path", item.path).Msg("upsert failed")
			c.failed.Add(1)
			failed = true
			continue
		}
		c.chunks.Add(1)
	}

	// rows past the new end belong to an older, longer version of the file
	if failed {
		return nil
	}
	n, err := ig.Store.TrimDocument(ctx, docID, len(chunks))
	if err != nil {
		log.Warn().Err(err).Str("document", docID).Msg("failed to remove stale chunks")
		return nil
	}
	if n > 0 {
		log.Info().Str("document", docID).Int64("removed", n).Msg("removed stale chunks")
		c.removed.Add(n)
	}
	return nil
}

func (ig *Ingester) workers() int {
	if ig.Workers > 0 {
		return ig.Workers
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}

// Run walks Root and ingests every matching file using a bounded pool of
// workers.
func (ig *Ingester) Run(ctx context.Context) (Result, error) {
	numWorkers := ig.workers()
	log.Info().Int("workers", numWorkers).Str("root", ig.Root).Msg("starting concurrent ingest")

	workChan := make(chan workItem, numWorkers*2)
	errorChan := make(chan error, 1)
	var c counters

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Debug().Int("worker", workerID).Msg("worker started")

			for item := range workChan {
				if err := ig.processWorkItem(ctx, item, &c); err != nil {
					select {
					case errorChan <- err:
					default:
						log.Error().Err(err).Str("path", item.path).Msg("worker processing error")
					}
				}
				if ig.Progress != nil {
					_ = ig.Progress.Add(1)
				}
			}

			log.Debug().Int("worker", workerID).Msg("worker finished")
		}(i)
	}

	walkErr := ig.Walker.Walk(ig.Root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			// de is nil when driven by a test walker.
			if de != nil && de.IsDir() {
				return nil
			}
			rel := relPath(ig.Root, path)
			if !ig.shouldInclude(rel) || ig.shouldExclude(rel) {
				return nil
			}

			b, err := ig.FileReader.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read file")
				return nil
			}

			select {
			case workChan <- workItem{path: path, rel: rel, data: b}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})

	close(workChan)
	wg.Wait()
	close(errorChan)

	res := Result{
		Files:   c.files.Load(),
		Chunks:  c.chunks.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
		Removed: c.removed.Load(),
	}

	if err, ok := <-errorChan; ok && err != nil {
		return res, err
	}
	return res, walkErr
}

func (ig *Ingester) shouldInclude(rel string) bool {
	return matchAny(ig.Includes, rel)
}

func (ig *Ingester) shouldExclude(rel string) bool {
	return matchAny(ig.Excludes, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, rel)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// relPath returns p relative to root using forward slashes, which is what
// the glob patterns are written against.
func relPath(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}
