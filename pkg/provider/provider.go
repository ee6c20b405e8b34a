// Package provider hands out one index manager per name and owns their
// lifetime.
//
//	p := provider.New(provider.FileSystem{Root: root}, analysis.NewSelector())
//	defer p.Close()
//
//	idx, err := p.Get("catalog")
//
// Get returns the same *index.Manager for a name until that manager is
// closed, after which the next Get builds a fresh one.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/amansearch/internal/catalog"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/pkg/analysis"
	"github.com/Aman-CERP/amansearch/pkg/index"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger handed to the provider and its managers.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCatalog records index creation and commits in c. The caller keeps
// ownership of c.
func WithCatalog(c *catalog.Catalog) Option {
	return func(p *Provider) {
		p.catalog = c
	}
}

// WithIndexOptions appends options applied to every manager created.
func WithIndexOptions(opts ...index.Option) Option {
	return func(p *Provider) {
		p.indexOpts = append(p.indexOpts, opts...)
	}
}

// Provider is a registry of live index managers keyed by name.
type Provider struct {
	resolver  DirectoryResolver
	selector  *analysis.Selector
	logger    *slog.Logger
	catalog   *catalog.Catalog
	indexOpts []index.Option

	handles sync.Map // string -> *index.Manager
	group   singleflight.Group

	disposed  atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New returns an empty provider. A nil selector falls back to the standard
// analyzer for every index.
func New(resolver DirectoryResolver, selector *analysis.Selector, opts ...Option) *Provider {
	if selector == nil {
		selector = analysis.NewSelector()
	}
	p := &Provider{
		resolver: resolver,
		selector: selector,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the live manager for name, creating it on first use.
func (p *Provider) Get(name string) (*index.Manager, error) {
	if p.disposed.Load() {
		return nil, amerrors.Disposed("index provider")
	}
	if strings.Trim(name, ".") == "" || !validName.MatchString(name) {
		return nil, amerrors.InvalidName("index", name)
	}
	if m, ok := p.handles.Load(name); ok {
		return m.(*index.Manager), nil
	}

	v, err, _ := p.group.Do(name, func() (any, error) {
		if m, ok := p.handles.Load(name); ok {
			return m, nil
		}
		return p.create(name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Manager), nil
}

func (p *Provider) create(name string) (*index.Manager, error) {
	dir, err := p.resolver.Resolve(name)
	if err != nil {
		return nil, amerrors.DirectoryUnavailable(name, err)
	}

	opts := make([]index.Option, 0, len(p.indexOpts)+3)
	opts = append(opts, index.WithLogger(p.logger))
	opts = append(opts, p.indexOpts...)
	opts = append(opts, index.WithOnClose(func(m *index.Manager) {
		p.handles.CompareAndDelete(name, m)
	}))
	if p.catalog != nil {
		opts = append(opts, index.WithCommitObserver(p.recordCommit))
	}

	m := index.New(name, dir, p.selector.Get(name), opts...)
	p.handles.Store(name, m)

	// Close may have snapshotted the map before the store.
	if p.disposed.Load() {
		_ = m.Close()
		return nil, amerrors.Disposed("index provider")
	}

	if p.catalog != nil {
		if err := p.catalog.Touch(context.Background(), name); err != nil {
			p.logger.Warn("catalog_touch_failed",
				slog.String("index", name),
				slog.String("error", err.Error()))
		}
	}
	p.logger.Debug("index_handle_created",
		slog.String("index", name),
		slog.String("analyzer", m.Analyzer().Name()))
	return m, nil
}

func (p *Provider) recordCommit(s index.CommitStats) {
	if err := p.catalog.RecordCommit(context.Background(), s.Index, s.Inserted, s.Deleted); err != nil {
		p.logger.Warn("catalog_commit_failed",
			slog.String("index", s.Index),
			slog.String("error", err.Error()))
	}
}

// Names lists the live index names, sorted.
func (p *Provider) Names() []string {
	var names []string
	p.handles.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Close closes every live manager. It is safe to call more than once.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		p.disposed.Store(true)

		var live []*index.Manager
		p.handles.Range(func(_, v any) bool {
			live = append(live, v.(*index.Manager))
			return true
		})

		var g errgroup.Group
		for _, m := range live {
			g.Go(func() error {
				if err := m.Close(); err != nil {
					return fmt.Errorf("close index %s: %w", m.Name(), err)
				}
				return nil
			})
		}
		p.closeErr = g.Wait()
		p.logger.Debug("index_provider_closed", slog.Int("handles", len(live)))
	})
	return p.closeErr
}
