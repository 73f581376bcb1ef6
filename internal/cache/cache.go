package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seanblong/contextselect/pkg/models"
	"go.etcd.io/bbolt"
)

var bucketAnalyses = []byte("analyses")

// AnalysisCache persists question analyses in a bbolt file.
type AnalysisCache struct {
	db *bbolt.DB
}

func Open(path string) (*AnalysisCache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketAnalyses); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketAnalyses, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &AnalysisCache{db: db}, nil
}

// Key is the SHA-256 of the trimmed question.
func Key(question string) []byte {
	sum := sha256.Sum256([]byte(strings.TrimSpace(question)))
	return []byte(hex.EncodeToString(sum[:]))
}

// Get returns the cached analysis for question. The bool is false on a miss.
func (c *AnalysisCache) Get(question string) (models.QuestionAnalysis, bool, error) {
	var (
		qa    models.QuestionAnalysis
		found bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAnalyses).Get(Key(question))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &qa); err != nil {
			return fmt.Errorf("decode cached analysis: %w", err)
		}
		found = true
		return nil
	})
	return qa, found, err
}

func (c *AnalysisCache) Put(question string, qa models.QuestionAnalysis) error {
	data, err := json.Marshal(qa)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAnalyses).Put(Key(question), data)
	})
}

func (c *AnalysisCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketAnalyses).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *AnalysisCache) Close() error {
	return c.db.Close()
}
