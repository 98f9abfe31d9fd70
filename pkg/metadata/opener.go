// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"path/filepath"
	"strings"
)

// ExtensionOpener dispatches Open to an opener chosen by file extension,
// falling back to Default. Extensions are matched case-insensitively and
// include the leading dot (".cue").
type ExtensionOpener struct {
	Default     Opener
	ByExtension map[string]Opener
}

// Open implements Opener.
func (o *ExtensionOpener) Open(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for candidate, opener := range o.ByExtension {
		if strings.EqualFold(candidate, ext) {
			return opener.Open(path)
		}
	}
	return o.Default.Open(path)
}
