// SPDX-License-Identifier: MPL-2.0

package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdcatalog/mdcatalog/pkg/catalog"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

type (
	// References gives a scan access to the results of the modules it
	// references.
	References interface {
		// Await returns the completed results for the given canonical
		// identities, index-aligned with the input. Absent modules yield nil
		// entries. A non-nil error is fatal for the awaiting scan.
		Await(ctx context.Context, identities []string) ([]*catalog.Assembly, error)
	}

	// Scanner classifies one open module into a catalog.Assembly. A Scanner
	// is single-use and not safe for concurrent use.
	Scanner struct {
		reader metadata.Reader
		result *catalog.Assembly
		refs   References

		// classification memo tables, keyed by attribute type handle
		imports map[metadata.Handle]bool
		exports map[metadata.Handle]exportMatch
	}

	exportMatch struct {
		matched   bool
		inherited bool
	}
)

// New returns a Scanner that fills result from r. result must be unscanned.
func New(r metadata.Reader, result *catalog.Assembly, refs References) *Scanner {
	return &Scanner{
		reader:  r,
		result:  result,
		refs:    refs,
		imports: make(map[metadata.Handle]bool),
		exports: make(map[metadata.Handle]exportMatch),
	}
}

// Scan runs the classification passes and returns the frozen result. On
// error the result is moved to the failed state.
func (s *Scanner) Scan(ctx context.Context) (result *catalog.Assembly, err error) {
	start := time.Now()
	if err := s.result.Transition(catalog.StateScanning); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = s.result.Transition(catalog.StateFailed)
			slog.Debug("scan failed", "path", s.result.Path(), "error", err)
			result = nil
		}
	}()

	id, err := metadata.AssemblyIdentity(s.reader)
	if err != nil {
		return nil, err
	}
	if err := s.mergeReferences(ctx); err != nil {
		return nil, err
	}
	if err := s.classifyTypes(); err != nil {
		return nil, err
	}
	if err := s.classifyAttributes(); err != nil {
		return nil, err
	}

	s.result.SetIdentity(id)
	if err := s.result.Transition(catalog.StateScanned); err != nil {
		return nil, err
	}
	slog.Debug("scanned module",
		"path", s.result.Path(),
		"identity", id,
		"types", len(s.result.Types()),
		"elapsed", time.Since(start))
	return s.result, nil
}

// mergeReferences unions the marker sets of every referenced module that
// uses the composition model.
func (s *Scanner) mergeReferences(ctx context.Context) error {
	ids, err := metadata.ReferenceIdentities(s.reader)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	deps, err := s.refs.Await(ctx, ids)
	if err != nil {
		return fmt.Errorf("await references of %s: %w", s.result.Path(), err)
	}
	for _, dep := range deps {
		if dep == nil {
			continue
		}
		s.result.ExportMarkers().Union(dep.ExportMarkers())
		s.result.ImportMarkers().Union(dep.ImportMarkers())
		s.result.InheritedExportMarkers().Union(dep.InheritedExportMarkers())
	}
	return nil
}

// classifyAttributes walks the custom attribute table and records every
// marked type and member.
func (s *Scanner) classifyAttributes() error {
	for _, h := range s.reader.CustomAttributes() {
		ca, err := s.reader.CustomAttribute(h)
		if err != nil {
			return err
		}
		attrType, err := metadata.AttributeType(s.reader, ca)
		if err != nil {
			return err
		}

		isImport, err := s.isImportMarker(attrType)
		if err != nil {
			return err
		}
		if isImport {
			if err := s.recordImport(ca.Parent); err != nil {
				return err
			}
			continue
		}

		export, err := s.exportMarker(attrType)
		if err != nil {
			return err
		}
		if export.matched {
			if err := s.recordExport(ca.Parent, export.inherited); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scanner) recordImport(target metadata.Handle) error {
	switch target.Table() {
	case metadata.TableProperty, metadata.TableField:
		m, typ, err := s.member(target)
		if err != nil {
			return err
		}
		typ.AddImportedMember(m)
		return nil
	case metadata.TableParam:
		// constructor parameter imports are reconstructed by the host
		return nil
	default:
		return &ContractError{Op: "classify import", Handle: target, Err: ErrUnsupportedTarget}
	}
}

func (s *Scanner) recordExport(target metadata.Handle, inherited bool) error {
	switch target.Table() {
	case metadata.TableTypeDef:
		name, err := metadata.FullTypeName(s.reader, target)
		if err != nil {
			return err
		}
		typ := s.result.TypeFor(target, name)
		if inherited {
			typ.MarkInheritedExport()
		} else {
			typ.MarkExported()
		}
		return nil
	case metadata.TableProperty, metadata.TableField, metadata.TableMethodDef:
		m, typ, err := s.member(target)
		if err != nil {
			return err
		}
		typ.AddExportedMember(m)
		return nil
	default:
		return &ContractError{Op: "classify export", Handle: target, Err: ErrUnsupportedTarget}
	}
}
