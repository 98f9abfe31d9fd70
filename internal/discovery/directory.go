// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/mdcatalog/mdcatalog/pkg/catalog"
)

// DefaultPatterns are the file patterns scanned by ScanDirectory when none
// are given.
var DefaultPatterns = []string{"*.dll", "*.exe"}

// ScanDirectory scans every file in dir matching one of the glob patterns
// and returns the composition modules sorted by path. Files that are absent
// or fail are reported as diagnostics instead of aborting the directory.
// The returned error is non-nil only for a bad pattern or when ctx ends.
func (d *Discovery) ScanDirectory(ctx context.Context, dir string, patterns ...string) (*DirectoryResult, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("match %q in %s: %w", pattern, dir, err)
		}
		for _, m := range matches {
			if key := pathKey(m); !seen[key] {
				seen[key] = true
				files = append(files, m)
			}
		}
	}
	slices.Sort(files)

	results := make([]*catalog.Assembly, len(files))
	failures := make([]error, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			result, err := d.ScanPath(file).Wait(gctx)
			if err != nil && gctx.Err() != nil {
				return err
			}
			results[i], failures[i] = result, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &DirectoryResult{Dir: dir}
	for i, file := range files {
		switch {
		case failures[i] != nil:
			out.Diagnostics = append(out.Diagnostics, Diagnostic{
				Severity: SeverityError,
				Code:     CodeScanFailed,
				Message:  failures[i].Error(),
				Path:     file,
				Cause:    failures[i],
			})
		case results[i] != nil:
			out.Assemblies = append(out.Assemblies, results[i])
		default:
			if cause := d.Cause(file); cause != nil {
				out.Diagnostics = append(out.Diagnostics, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeModuleUnreadable,
					Message:  fmt.Sprintf("skipped unreadable module: %v", cause),
					Path:     file,
					Cause:    cause,
				})
			}
		}
	}
	return out, nil
}
