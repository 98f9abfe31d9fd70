// SPDX-License-Identifier: MPL-2.0

package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
)

// frameworkPrefix marks version directories of the .NET 4 assembly cache.
const frameworkPrefix = "v4.0_"

// GACFallback resolves identities against global-assembly-cache style roots
// laid out as <root>/<name>/[v4.0_]<version>_<culture>_<token>/<name>.dll.
// Version, culture and token constrain the match when the identity carries
// them; otherwise the highest version wins.
type GACFallback struct {
	Roots []string
}

type gacEntry struct {
	version identity.Version
	culture string
	token   string
	path    string
}

// Resolve implements Fallback.
func (g *GACFallback) Resolve(id string) (string, error) {
	want, err := identity.Parse(id)
	if err != nil {
		return "", err
	}

	var best *gacEntry
	for _, root := range g.Roots {
		for _, e := range scanGACDir(filepath.Join(root, want.Name), want.Name) {
			if !matches(want, e) {
				continue
			}
			if best == nil || compareVersions(e.version, best.version) > 0 {
				best = &e
			}
		}
	}
	if best == nil {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return best.path, nil
}

func scanGACDir(dir, name string) []gacEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []gacEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		e, ok := parseGACEntry(entry.Name())
		if !ok {
			continue
		}
		e.path = filepath.Join(dir, entry.Name(), name+".dll")
		if _, err := os.Stat(e.path); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

// parseGACEntry parses "[v4.0_]1.2.3.4_culture_token".
func parseGACEntry(dirName string) (gacEntry, bool) {
	parts := strings.Split(strings.TrimPrefix(dirName, frameworkPrefix), "_")
	if len(parts) != 3 {
		return gacEntry{}, false
	}
	v, err := identity.ParseVersion(parts[0])
	if err != nil {
		return gacEntry{}, false
	}
	culture := parts[1]
	if culture == "" {
		culture = identity.NeutralCulture
	}
	return gacEntry{version: v, culture: culture, token: strings.ToLower(parts[2])}, true
}

func matches(want identity.Identity, e gacEntry) bool {
	if !want.Version.IsZero() && want.Version != e.version {
		return false
	}
	if want.Culture != "" && !strings.EqualFold(want.Culture, e.culture) {
		return false
	}
	if want.Token != "" && want.Token != identity.NullToken && want.Token != e.token {
		return false
	}
	return true
}

func compareVersions(a, b identity.Version) int {
	for _, pair := range [][2]uint16{{a.Major, b.Major}, {a.Minor, b.Minor}, {a.Build, b.Build}, {a.Revision, b.Revision}} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}
