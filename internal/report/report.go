// SPDX-License-Identifier: MPL-2.0

package report

import (
	"cmp"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slices"

	"github.com/mdcatalog/mdcatalog/internal/discovery"
	"github.com/mdcatalog/mdcatalog/pkg/catalog"
)

type (
	// Member is one exported or imported member of a Type.
	Member struct {
		Kind  string `toml:"kind"`
		Token string `toml:"token"`
	}

	// Type is a classified type with its sorted members.
	Type struct {
		Name            string   `toml:"name"`
		Token           string   `toml:"token"`
		Exported        bool     `toml:"exported"`
		InheritedExport bool     `toml:"inherited_export,omitempty"`
		Exports         []Member `toml:"exports,omitempty"`
		Imports         []Member `toml:"imports,omitempty"`
	}

	// Module is the report entry for one scanned module.
	Module struct {
		Path          string   `toml:"path"`
		Identity      string   `toml:"identity,omitempty"`
		State         string   `toml:"state"`
		ExportMarkers []string `toml:"export_markers,omitempty"`
		ImportMarkers []string `toml:"import_markers,omitempty"`
		Types         []Type   `toml:"types,omitempty"`
	}

	// Problem is a module that was skipped or failed.
	Problem struct {
		Severity string `toml:"severity"`
		Code     string `toml:"code"`
		Path     string `toml:"path"`
		Message  string `toml:"message"`
	}

	// Report is a deterministic snapshot of scan results. Modules are
	// sorted by path, types by name and members by kind then token, so two
	// runs over the same inputs produce identical output.
	Report struct {
		Modules  []Module  `toml:"modules"`
		Problems []Problem `toml:"problems,omitempty"`
	}
)

// Build snapshots the given assemblies and diagnostics. Nil assemblies are
// skipped.
func Build(assemblies []*catalog.Assembly, diags []discovery.Diagnostic) *Report {
	r := &Report{Modules: []Module{}}
	for _, a := range assemblies {
		if a == nil {
			continue
		}
		r.Modules = append(r.Modules, newModule(a))
	}
	slices.SortFunc(r.Modules, func(a, b Module) int {
		return strings.Compare(a.Path, b.Path)
	})

	for _, d := range diags {
		r.Problems = append(r.Problems, Problem{
			Severity: string(d.Severity),
			Code:     d.Code,
			Path:     d.Path,
			Message:  d.Message,
		})
	}
	slices.SortFunc(r.Problems, func(a, b Problem) int {
		return cmp.Or(strings.Compare(a.Path, b.Path), strings.Compare(a.Code, b.Code))
	})
	return r
}

func newModule(a *catalog.Assembly) Module {
	m := Module{
		Path:          a.Path(),
		Identity:      a.Identity(),
		State:         a.State().String(),
		ExportMarkers: a.ExportMarkers().Names(),
		ImportMarkers: a.ImportMarkers().Names(),
	}
	for _, t := range a.Types() {
		m.Types = append(m.Types, Type{
			Name:            t.Name(),
			Token:           formatToken(t.Token()),
			Exported:        t.IsExported(),
			InheritedExport: t.HasInheritedExport(),
			Exports:         members(t.ExportedMembers()),
			Imports:         members(t.ImportedMembers()),
		})
	}
	slices.SortFunc(m.Types, func(a, b Type) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.Token, b.Token))
	})
	return m
}

func members(in []*catalog.Member) []Member {
	if len(in) == 0 {
		return nil
	}
	out := make([]Member, len(in))
	for i, m := range in {
		out[i] = Member{Kind: m.Kind.String(), Token: formatToken(m.Token())}
	}
	slices.SortFunc(out, func(a, b Member) int {
		return cmp.Or(strings.Compare(a.Kind, b.Kind), strings.Compare(a.Token, b.Token))
	})
	return out
}

func formatToken(token uint32) string {
	return fmt.Sprintf("0x%08X", token)
}

// String renders a member as "<kind> <token>".
func (m Member) String() string {
	return m.Kind + " " + m.Token
}

// exportsItself reports a type exported without any exported member, which
// only a type-level marker produces.
func (t Type) exportsItself() bool {
	return t.Exported && len(t.Exports) == 0
}

// Title returns the identity, or the path for modules without one.
func (m Module) Title() string {
	if m.Identity != "" {
		return m.Identity
	}
	return m.Path
}

// Counts returns the number of types, exported members and imported members.
func (m Module) Counts() (types, exports, imports int) {
	for _, t := range m.Types {
		exports += len(t.Exports)
		imports += len(t.Imports)
	}
	return len(m.Types), exports, imports
}

// WriteText writes the composition dump: each type followed by its sorted
// export and import lines.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	for i, m := range r.Modules {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "# %s\n", m.Title())
		for _, t := range m.Types {
			b.WriteString(t.Name + "\n")
			if t.exportsItself() {
				b.WriteString("  Export: type\n")
			}
			for _, e := range t.Exports {
				b.WriteString("  Export: " + e.String() + "\n")
			}
			for _, imp := range t.Imports {
				b.WriteString("  Import: " + imp.String() + "\n")
			}
		}
	}
	writeProblems(&b, r.Problems)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary writes each module with its type and member counts.
func (r *Report) WriteSummary(w io.Writer) error {
	var b strings.Builder
	for _, m := range r.Modules {
		types, exports, imports := m.Counts()
		fmt.Fprintf(&b, "%s\n  path: %s\n  types: %d, exports: %d, imports: %d\n", m.Title(), m.Path, types, exports, imports)
	}
	writeProblems(&b, r.Problems)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeProblems(b *strings.Builder, problems []Problem) {
	if len(problems) == 0 {
		return
	}
	b.WriteString("\nProblems:\n")
	for _, p := range problems {
		fmt.Fprintf(b, "  [%s] %s: %s\n", p.Severity, p.Path, p.Message)
	}
}

// WriteTOML encodes the report as TOML.
func (r *Report) WriteTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Markdown renders the composition dump as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Composition catalog\n")
	for _, m := range r.Modules {
		fmt.Fprintf(&b, "\n## %s\n\n`%s` (%s)\n", m.Title(), m.Path, m.State)
		for _, t := range m.Types {
			heading := t.Name
			if t.InheritedExport {
				heading += " (inherited export)"
			}
			fmt.Fprintf(&b, "\n### %s\n\n", heading)
			if t.exportsItself() {
				b.WriteString("- Export: type\n")
			}
			for _, e := range t.Exports {
				fmt.Fprintf(&b, "- Export: `%s`\n", e)
			}
			for _, imp := range t.Imports {
				fmt.Fprintf(&b, "- Import: `%s`\n", imp)
			}
		}
	}
	if len(r.Problems) > 0 {
		b.WriteString("\n## Problems\n\n")
		for _, p := range r.Problems {
			fmt.Fprintf(&b, "- **%s** `%s`: %s\n", p.Severity, p.Path, p.Message)
		}
	}
	return b.String()
}
