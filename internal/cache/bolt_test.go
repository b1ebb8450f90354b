package cache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text.db")
	c, err := NewBoltCache(path)
	require.NoError(t, err)

	ctx := context.Background()
	key := Key([]byte("receipt bytes"), ".png")
	assert.Len(t, key, 68)
	assert.True(t, strings.HasSuffix(key, ":png"))

	_, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, key, Entry{Text: "TOTAL 180.00 EUR", Method: "image-ocr", Pages: 1, Confidence: 0.9}))
	got, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "TOTAL 180.00 EUR", got.Text)
	assert.Equal(t, "image-ocr", got.Method)
	assert.False(t, got.StoredAt.IsZero())

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, c.Close())

	reopened, err := NewBoltCache(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, found, err = reopened.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestKeyIsContentAddressed(t *testing.T) {
	assert.Equal(t, Key([]byte("a"), ".pdf"), Key([]byte("a"), ".pdf"))
	assert.Equal(t, Key([]byte("a"), ".PDF"), Key([]byte("a"), "pdf"))
	assert.NotEqual(t, Key([]byte("a"), ".pdf"), Key([]byte("b"), ".pdf"))
	assert.NotEqual(t, Key([]byte("a"), ".txt"), Key([]byte("a"), ".rtf"))
}
