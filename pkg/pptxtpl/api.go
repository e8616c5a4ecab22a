// Package pptxtpl renders PowerPoint (.pptx) templates with Jinja2-style
// expressions. PowerPoint splits typed text into fragments at arbitrary
// points, tearing tags like {{ name }} apart across runs; the engine
// reconstitutes the fragments, resolves slide-level conditionals and
// loops, and hands clean markup to the expression engine.
//
// Basic usage:
//
//	tpl, err := pptxtpl.Open("template.pptx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = tpl.Render(pptxtpl.Context{
//	    "name":  "World",
//	    "items": []string{"one", "two"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tpl.Save("output.pptx"); err != nil {
//	    log.Fatal(err)
//	}
//
// Template syntax:
//
// Expressions: {{ name }}, {{ price * 1.2 }}, {{ customer.address }}
//
// Scoped directives act on the structural element around them:
// {%pp if ok %} on its paragraph, {%sp ... %} on its shape,
// {%tr ... %} and {%tc ... %} on table rows and cells.
//
// Slide directives decide which slides exist: {%slide if cond %} keeps or
// drops the whole slide, {%slide for item in items %} repeats the slide
// once per item with the item bound on each copy.
package pptxtpl

import (
	"bytes"
	"os"
	"time"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl/pptx"
)

// Engine ties together configuration and the template source cache.
// The zero-cost alternative is the package-level functions, which share
// a default engine.
type Engine struct {
	config *Config
	cache  *SourceCache
}

// New creates an engine with the global configuration.
func New() *Engine {
	return &Engine{
		config: GetGlobalConfig(),
		cache:  defaultCache,
	}
}

// NewWithConfig creates an engine with its own configuration and cache.
func NewWithConfig(config *Config) *Engine {
	return &Engine{
		config: config,
		cache: NewSourceCacheWithConfig(CacheConfig{
			MaxSize: config.CacheMaxSize,
			TTL:     config.CacheTTL,
		}),
	}
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithCache returns an option that sets the cache size (0 disables caching).
func WithCache(maxSize int) Option {
	return func(e *Engine) {
		e.config.CacheMaxSize = maxSize
	}
}

// WithStrictMode returns an option that makes leftover template delimiters
// in rendered output an error.
func WithStrictMode(strict bool) Option {
	return func(e *Engine) {
		e.config.StrictMode = strict
	}
}

// NewWithOptions creates an engine with the specified options.
func NewWithOptions(opts ...Option) *Engine {
	engine := New()
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Open loads a template, serving the file bytes from the engine's source
// cache when caching is enabled. Every call returns a fresh Template,
// since rendering mutates the instance.
func (e *Engine) Open(path string) (*Template, error) {
	var data []byte
	var err error
	if e.config.CacheMaxSize > 0 && e.cache != nil {
		data, err = e.cache.Load(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}

	pkg, err := pptx.OpenReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}
	tpl := FromPackage(pkg)
	tpl.config = e.config
	return tpl, nil
}

// RenderFile opens templatePath, renders it with ctx and writes the result
// to outputPath.
func (e *Engine) RenderFile(templatePath string, ctx Context, outputPath string) error {
	tpl, err := e.Open(templatePath)
	if err != nil {
		return err
	}
	if err := tpl.Render(ctx); err != nil {
		return err
	}
	return tpl.Save(outputPath)
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// SetConfig updates the engine's configuration.
func (e *Engine) SetConfig(config *Config) {
	e.config = config
}

// ClearCache removes all sources from the engine's cache.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// Close releases resources held by the engine.
func (e *Engine) Close() error {
	e.ClearCache()
	return nil
}

// DefaultEngine is the global default engine instance.
var DefaultEngine = New()

// Module-level convenience functions that use the default engine.

// OpenFile loads a template through the default engine's cache.
func OpenFile(path string) (*Template, error) {
	return DefaultEngine.Open(path)
}

// RenderFile renders templatePath with ctx into outputPath using the
// default engine.
func RenderFile(templatePath string, ctx Context, outputPath string) error {
	return DefaultEngine.RenderFile(templatePath, ctx, outputPath)
}

// ClearCache clears the global source cache.
func ClearCache() {
	DefaultEngine.ClearCache()
}

// SetCacheConfig updates the global cache configuration.
func SetCacheConfig(maxSize int, ttl time.Duration) {
	config := GetGlobalConfig()
	config.CacheMaxSize = maxSize
	config.CacheTTL = ttl
	SetGlobalConfig(config)
}
