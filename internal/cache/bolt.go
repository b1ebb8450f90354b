package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

const textBucket = "extracted_text"

// Entry is the text read from a document, stored under Key.
type Entry struct {
	Text       string    `json:"text"`
	Method     string    `json:"method"`
	Pages      int       `json:"pages"`
	Confidence float64   `json:"confidence"`
	StoredAt   time.Time `json:"stored_at"`
}

// Key is the hex SHA-256 of a document's content followed by its normalized
// extension. The same bytes read as .txt and as .rtf give different text, so
// the extension is part of the identity.
func Key(data []byte, ext string) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + ":" + constants.NormalizeExt(ext)
}

// BoltCache keeps extracted text in a bbolt file so repeated documents skip
// OCR. Only successful extractions are stored.
type BoltCache struct {
	db *bbolt.DB
}

func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening text cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(textBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating text cache bucket: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Get(_ context.Context, key string) (Entry, bool, error) {
	var (
		e     Entry
		found bool
	)
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(textBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &e)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading text cache: %w", err)
	}
	return e, found, nil
}

func (c *BoltCache) Put(_ context.Context, key string, e Entry) error {
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(textBucket)).Put([]byte(key), data)
	})
}

// Len reports how many documents are cached.
func (c *BoltCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(textBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}
