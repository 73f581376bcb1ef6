package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/pkg/models"
)

var ErrNoChunks = errors.New("chunk file contains no chunks")

type chunkFile struct {
	DocumentID string         `json:"documentId"`
	Chunks     []models.Chunk `json:"chunks"`
}

// ParseChunkFile decodes a chunk file. The file is either a JSON array of
// chunks or an object with documentId and chunks. A file holds one document:
// its id comes from the object, else from the first chunk that names one,
// else from name without its extension.
// Empty chunks are dropped, chunk indexes are renumbered from zero in file
// order and missing or repeated ids are replaced with stable generated ones.
func ParseChunkFile(name string, data []byte) (string, []models.Chunk, error) {
	var f chunkFile
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return "", nil, ErrNoChunks
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &f.Chunks); err != nil {
			return "", nil, fmt.Errorf("decode chunk array %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return "", nil, fmt.Errorf("decode chunk file %s: %w", name, err)
		}
	}

	docID := strings.TrimSpace(f.DocumentID)
	for _, c := range f.Chunks {
		if docID != "" {
			break
		}
		docID = strings.TrimSpace(c.DocumentID)
	}
	if docID == "" {
		docID = strings.TrimSuffix(name, path.Ext(name))
	}

	out := make([]models.Chunk, 0, len(f.Chunks))
	seen := make(map[string]struct{}, len(f.Chunks))
	for _, c := range f.Chunks {
		if strings.TrimSpace(c.Content) == "" {
			log.Debug().Str("file", name).Str("id", c.ID).Msg("dropping empty chunk")
			continue
		}
		c.DocumentID = docID
		c.Metadata.ChunkIndex = len(out)
		c.RelevanceScore = 0

		if _, dup := seen[c.ID]; c.ID == "" || dup {
			if dup {
				log.Warn().Str("file", name).Str("id", c.ID).Msg("duplicate chunk id replaced")
			}
			c.ID = chunkID(c.DocumentID, c.Metadata.ChunkIndex)
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}

	if len(out) == 0 {
		return docID, nil, ErrNoChunks
	}
	return docID, out, nil
}

// ReadChunkFile reads and parses the chunk file at p.
func ReadChunkFile(p string) ([]models.Chunk, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	_, chunks, err := ParseChunkFile(filepath.Base(p), b)
	return chunks, err
}

// chunkID derives a name-based UUID from the chunk's document position so
// repeated ingests of the same file produce the same ids.
func chunkID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID+"#"+strconv.Itoa(index))).String()
}
