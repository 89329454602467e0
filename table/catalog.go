package table

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/utils"
)

// Catalog resolves declared table names to their sources.
type Catalog struct {
	tables  []config.TableSource
	filters []string
	s3cfg   config.S3Config
	log     *zap.Logger

	once   sync.Once
	client ObjectGetter
	err    error
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithS3Client makes s3:// paths use client instead of one built from the
// AWS default chain.
func WithS3Client(client ObjectGetter) Option {
	return func(c *Catalog) {
		c.once.Do(func() { c.client = client })
	}
}

// NewCatalog returns a catalog over cfg.Tables using cfg.Filters as the
// filter allow-list.
func NewCatalog(cfg *config.Config, log *zap.Logger, opts ...Option) *Catalog {
	filters := cfg.Filters
	if len(filters) == 0 {
		filters = DefaultFilters
	}
	c := &Catalog{
		tables:  cfg.Tables,
		filters: filters,
		s3cfg:   cfg.S3,
		log:     utils.OrNop(log),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Names returns the declared table names in configuration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.tables))
	for i, t := range c.tables {
		names[i] = t.Name
	}
	return names
}

// Filters returns the filter allow-list.
func (c *Catalog) Filters() []string { return c.filters }

// Source returns where the named table is read from.
func (c *Catalog) Source(ctx context.Context, name string) (Source, error) {
	for _, t := range c.tables {
		if t.Name != name {
			continue
		}
		bucket, key, ok := ParseS3URL(t.Path)
		if !ok {
			return FileSource{Path: t.Path}, nil
		}
		client, err := c.s3(ctx)
		if err != nil {
			return nil, err
		}
		return S3Source{Client: client, Bucket: bucket, Key: key}, nil
	}
	return nil, fmt.Errorf("%w: %q is not declared", ErrNotFound, name)
}

func (c *Catalog) s3(ctx context.Context) (ObjectGetter, error) {
	c.once.Do(func() {
		c.client, c.err = NewS3Client(ctx, c.s3cfg)
	})
	return c.client, c.err
}

// Load reads the named table. Tables are re-read on every call so edits to
// the files show up without a restart.
func (c *Catalog) Load(ctx context.Context, name string) (*Table, error) {
	src, err := c.Source(ctx, name)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		c.log.Warn("Table unavailable", zap.String("table", name), zap.Error(err))
		return nil, err
	}
	defer rc.Close()
	t, err := Parse(name, rc)
	if err != nil {
		return nil, err
	}
	c.log.Debug("Table loaded", zap.String("table", name), zap.Int("rows", t.Len()))
	return t, nil
}
