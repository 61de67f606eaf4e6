package reference

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"shorts-doc-pipeline/types"

	"github.com/rs/zerolog/log"
)

//go:embed schema.md
var embeddedSchema []byte

// Source fetches the raw reference text
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// EmbeddedSource serves the schema reference compiled into the binary
type EmbeddedSource struct{}

func (EmbeddedSource) Name() string { return "embedded" }

func (EmbeddedSource) Fetch(ctx context.Context) ([]byte, error) {
	return embeddedSchema, nil
}

// FileSource reads the reference from local disk
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	return os.ReadFile(s.Path)
}

// Cache holds the reference text for the life of the process.
// It loads on first use; a failed load is not remembered, so the next
// caller tries again. Once loaded the text never changes and is read
// without locking.
type Cache struct {
	src Source

	text atomic.Pointer[string]
	mu   sync.Mutex // serialises loads only
}

// NewCache returns an empty cache over src
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Text returns the reference text, loading it if needed
func (c *Cache) Text(ctx context.Context) (string, error) {
	if text := c.text.Load(); text != nil {
		return *text, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if text := c.text.Load(); text != nil {
		return *text, nil
	}

	data, err := c.src.Fetch(ctx)
	if err != nil {
		return "", &types.SchemaLoadError{Source: c.src.Name(), Err: err}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", &types.SchemaLoadError{Source: c.src.Name(), Err: fmt.Errorf("reference text is empty")}
	}

	c.text.Store(&text)
	log.Info().Str("stage", "reference").Str("source", c.src.Name()).Int("bytes", len(text)).Msg("schema reference loaded")
	return text, nil
}
