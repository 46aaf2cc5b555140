package wordfreq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/metrics"
	"github.com/kiranshivaraju/venter/pkg/models"
	"golang.org/x/sync/singleflight"
)

// Store records where an artifact's word-cloud file lives.
type Store interface {
	SetWordcloudData(ctx context.Context, id uuid.UUID, path string) error
}

// Builder computes a Doc from scratch.
type Builder func(ctx context.Context) (Doc, error)

// Cache keeps one word-cloud file per artifact. The file is built on first
// use and reused until Invalidate drops it.
type Cache struct {
	store   Store
	layout  artifact.Layout
	metrics *metrics.Metrics
	group   singleflight.Group
}

// NewCache creates a Cache. m may be nil.
func NewCache(st Store, layout artifact.Layout, m *metrics.Metrics) *Cache {
	return &Cache{store: st, layout: layout, metrics: m}
}

// Load returns the word-cloud document of a, calling build at most once per
// artifact across concurrent callers when no usable file exists. A
// document that cannot be written is still returned.
func (c *Cache) Load(ctx context.Context, a *models.Artifact, build Builder) (Doc, error) {
	path := c.path(a)
	if doc, ok := c.read(a, path); ok {
		c.metrics.WordcloudLookup(true)
		return doc, nil
	}

	v, err, _ := c.group.Do(a.ID.String(), func() (any, error) {
		if doc, ok := c.read(a, path); ok {
			return doc, nil
		}
		c.metrics.WordcloudLookup(false)

		doc, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("build word frequencies: %w", err)
		}
		c.persist(ctx, a, path, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Doc), nil
}

// Invalidate removes the word-cloud file of a and clears its recorded path so
// the next Load rebuilds it.
func (c *Cache) Invalidate(ctx context.Context, a *models.Artifact) error {
	c.group.Forget(a.ID.String())
	paths := []string{c.layout.WordcloudJSON(a)}
	if p := c.path(a); p != paths[0] {
		paths = append(paths, p)
	}
	for _, p := range paths {
		if err := artifact.RemoveFile(p); err != nil {
			return err
		}
	}
	if err := c.store.SetWordcloudData(ctx, a.ID, ""); err != nil {
		return fmt.Errorf("clear word-cloud path: %w", err)
	}
	return nil
}

func (c *Cache) path(a *models.Artifact) string {
	if a.WordcloudData != nil && *a.WordcloudData != "" {
		return *a.WordcloudData
	}
	return c.layout.WordcloudJSON(a)
}

func (c *Cache) read(a *models.Artifact, path string) (Doc, bool) {
	data, err := artifact.ReadFile(path)
	if errors.Is(err, artifact.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		slog.Warn("reading word-cloud cache", "artifact_id", a.ID, "path", path, "error", err)
		return nil, false
	}
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("word-cloud cache unreadable, rebuilding", "artifact_id", a.ID, "path", path, "error", err)
		return nil, false
	}
	return doc, true
}

func (c *Cache) persist(ctx context.Context, a *models.Artifact, path string, doc Doc) {
	data, err := json.Marshal(doc)
	if err == nil {
		err = artifact.WriteFileAtomic(path, data)
	}
	if err != nil {
		slog.Error("writing word-cloud cache", "artifact_id", a.ID, "path", path, "error", err)
		c.metrics.DerivedFailure("wordcloud")
		return
	}
	if err := c.store.SetWordcloudData(ctx, a.ID, path); err != nil {
		slog.Warn("recording word-cloud path", "artifact_id", a.ID, "error", err)
	}
}
