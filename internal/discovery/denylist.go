// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// knownNonComposition lists framework and runtime modules that never use the
// composition model. Microsoft.VisualStudio.Text.Internal is deliberately
// absent: it does.
var knownNonComposition = []string{
	"Accessibility",
	"LibGit2Sharp",
	"Microsoft.Build.Framework",
	"Microsoft.Build.Tasks.v4.0",
	"Microsoft.Build.Utilities.v4.0",
	"Microsoft.JScript",
	"Microsoft.Language.Xml",
	"Microsoft.Transactions.Bridge",
	"Microsoft.VisualBasic",
	"Microsoft.VisualBasic.Activities.Compiler",
	"Microsoft.VisualStudio.CoreUtility",
	"Microsoft.VisualStudio.Language.Intellisense",
	"Microsoft.VisualStudio.Language.StandardClassification",
	"Microsoft.VisualStudio.Text.Data",
	"mscorlib",
	"PresentationCore",
	"PresentationFramework",
	"SMDiagnostics",
	"System",
	"System.Activities",
	"System.Activities.DurableInstancing",
	"System.ComponentModel.Composition",
	"System.ComponentModel.Composition.MetadataCatalog",
	"System.ComponentModel.DataAnnotations",
	"System.Configuration",
	"System.Configuration.Install",
	"System.Core",
	"System.Data",
	"System.Data.OracleClient",
	"System.Data.SqlXml",
	"System.Deployment",
	"System.Design",
	"System.DirectoryServices",
	"System.DirectoryServices.Protocols",
	"System.Drawing",
	"System.Drawing.Design",
	"System.EnterpriseServices",
	"System.IdentityModel",
	"System.IdentityModel.Selectors",
	"System.IO.Compression",
	"System.IO.Compression.FileSystem",
	"System.Management",
	"System.Messaging",
	"System.Net.Http",
	"System.Numerics",
	"System.Runtime",
	"System.Runtime.Caching",
	"System.Runtime.DurableInstancing",
	"System.Runtime.Remoting",
	"System.Runtime.Serialization",
	"System.Runtime.Serialization.Formatters.Soap",
	"System.ServiceModel",
	"System.ServiceModel.Activation",
	"System.ServiceModel.Internals",
	"System.ServiceProcess",
	"System.Security",
	"System.Transactions",
	"System.Web",
	"System.Web.ApplicationServices",
	"System.Web.RegularExpressions",
	"System.Web.Services",
	"System.Windows.Forms",
	"System.Windows.Input.Manipulations",
	"System.Xaml",
	"System.Xml",
	"System.Xml.Linq",
	"UIAutomationClient",
	"UIAutomationProvider",
	"UIAutomationTypes",
	"WindowsBase",
}

// Denylist is the set of module simple names that are never scanned. It is
// built once and read-only afterwards, so concurrent lookups need no lock.
// Names compare case-insensitively.
type Denylist struct {
	names map[string]string
}

// DefaultDenylist returns the built-in list of non-composition modules.
func DefaultDenylist() *Denylist {
	return NewDenylist(nil, nil)
}

// NewDenylist returns the built-in list extended with add and without
// remove.
func NewDenylist(add, remove []string) *Denylist {
	d := &Denylist{names: make(map[string]string, len(knownNonComposition)+len(add))}
	for _, name := range knownNonComposition {
		d.names[strings.ToLower(name)] = name
	}
	for _, name := range add {
		d.names[strings.ToLower(name)] = name
	}
	for _, name := range remove {
		delete(d.names, strings.ToLower(name))
	}
	return d
}

// Contains reports whether simpleName is listed.
func (d *Denylist) Contains(simpleName string) bool {
	if d == nil {
		return false
	}
	_, ok := d.names[strings.ToLower(simpleName)]
	return ok
}

// Names returns the listed names sorted case-insensitively.
func (d *Denylist) Names() []string {
	names := maps.Values(d.names)
	slices.SortFunc(names, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return names
}
