// SPDX-License-Identifier: MPL-2.0

package locator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
)

const (
	// DefaultCacheSize bounds the identity -> path cache.
	DefaultCacheSize = 4096
)

// ErrNotFound is returned by fallbacks that cannot resolve an identity.
var ErrNotFound = errors.New("module not found")

// DefaultExtensions are the module file extensions probed in each directory.
var DefaultExtensions = []string{".dll", ".exe"}

type (
	// Fallback resolves identities the registered directories do not hold.
	Fallback interface {
		Resolve(identity string) (string, error)
	}

	// FallbackFunc adapts a function to the Fallback interface.
	FallbackFunc func(identity string) (string, error)

	// Locator maps module identities to file paths by probing registered
	// directories for "{simple name}{extension}". It is safe for concurrent
	// use.
	Locator struct {
		mu   sync.RWMutex
		dirs []string

		extensions []string
		fallback   Fallback
		cacheSize  int
		cache      *lru.Cache[string, string]
	}

	// Option configures a Locator.
	Option func(*Locator)
)

// Resolve calls f(id).
func (f FallbackFunc) Resolve(id string) (string, error) {
	return f(id)
}

// WithExtensions replaces the probed extensions. Each must include the
// leading dot.
func WithExtensions(exts ...string) Option {
	return func(l *Locator) {
		if len(exts) > 0 {
			l.extensions = append([]string(nil), exts...)
		}
	}
}

// WithFallback sets the resolver consulted on a directory miss.
func WithFallback(f Fallback) Option {
	return func(l *Locator) {
		l.fallback = f
	}
}

// WithCacheSize bounds the resolution cache.
func WithCacheSize(n int) Option {
	return func(l *Locator) {
		if n > 0 {
			l.cacheSize = n
		}
	}
}

// New creates a Locator searching dirs in order.
func New(dirs []string, opts ...Option) (*Locator, error) {
	l := &Locator{
		extensions: DefaultExtensions,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	cache, err := lru.New[string, string](l.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create resolution cache: %w", err)
	}
	l.cache = cache
	for _, dir := range dirs {
		l.AddPath(dir)
	}
	return l, nil
}

// AddPath registers a search directory and reports whether it was new.
// Directories are compared case-insensitively after cleaning.
func (l *Locator) AddPath(dir string) bool {
	dir = filepath.Clean(dir)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.dirs {
		if strings.EqualFold(existing, dir) {
			return false
		}
	}
	l.dirs = append(l.dirs, dir)
	return true
}

// Paths returns the registered directories in registration order.
func (l *Locator) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.dirs...)
}

// Resolve returns the file path of the module with the given identity.
// Directory hits are cached under the exact identity string; the first
// cached path for an identity is never replaced. Fallback failures yield
// not-found.
func (l *Locator) Resolve(id string) (string, bool) {
	if path, ok := l.cache.Get(id); ok {
		return path, true
	}

	if path, ok := l.probe(identity.SimpleName(id)); ok {
		if found, _ := l.cache.ContainsOrAdd(id, path); found {
			if cached, ok := l.cache.Get(id); ok {
				return cached, true
			}
		}
		return path, true
	}

	if l.fallback == nil {
		return "", false
	}
	path, err := l.fallback.Resolve(id)
	if err != nil {
		slog.Debug("fallback resolution failed", "identity", id, "error", err)
		return "", false
	}
	return path, true
}

func (l *Locator) probe(simpleName string) (string, bool) {
	if simpleName == "" {
		return "", false
	}
	for _, dir := range l.Paths() {
		for _, ext := range l.extensions {
			path := filepath.Join(dir, simpleName+ext)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, true
			}
		}
	}
	return "", false
}
