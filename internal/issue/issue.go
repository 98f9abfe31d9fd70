// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog issue.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	ModuleNotFoundId
	ModuleUnreadableId
	IdentityUnresolvedId
	ReferenceCycleId
	UnsupportedAttributeTargetId
	MissingDeclaringTypeId
	InvalidPatternId
)

type (
	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to look up the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink  // documentation for this issue type
		extLinks []HttpLink  // external references that might help
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue and its links as terminal Markdown using the
// glamour style at stylePath ("dark", "light", "notty" or a JSON file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

The configuration file exists but is not valid CUE or does not match the
configuration schema.

## Things you can try
- Print the effective configuration:
~~~
$ mdcatalog config show
~~~
- Compare your file with the defaults and remove unknown keys.
- Lists such as ` + "`search_paths`" + ` must be CUE lists of strings.`,
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found

The path given on the command line does not exist or is not a regular file.

## Things you can try
- Check the spelling of the path.
- Pass a directory instead to scan every ` + "`*.dll`" + ` and ` + "`*.exe`" + ` in it.`,
	}

	moduleUnreadableIssue = &Issue{
		id: ModuleUnreadableId,
		mdMsg: `
# Module could not be read

The file is not a managed module, or its metadata tables are malformed.
Unreadable modules are treated as absent: scans that reference them carry on
without their markers.

## Things you can try
- Native DLLs have no CLI header; they can be ignored.
- Rebuild the module if it was truncated during a copy.`,
		extLinks: []HttpLink{"https://ecma-international.org/publications-and-standards/standards/ecma-335/"},
	}

	identityUnresolvedIssue = &Issue{
		id: IdentityUnresolvedId,
		mdMsg: `
# Reference could not be resolved

No search path contains a file named after the referenced assembly, and no
fallback location matched its version, culture and public key token.

## Things you can try
- Add the directory holding the module with ` + "`--path`" + `:
~~~
$ mdcatalog scan --path ./lib ./bin/App.dll
~~~
- List extra search directories under ` + "`search_paths`" + ` in the configuration.`,
	}

	referenceCycleIssue = &Issue{
		id: ReferenceCycleId,
		mdMsg: `
# Reference cycle between modules

Two or more modules reference each other. A module's markers depend on the
markers of every module it references, so a cycle has no answer.

## Things you can try
- Look at the cycle printed with the error and break the reference.
- Add the framework module to ` + "`known_non_composition`" + ` if it was scanned by mistake.`,
	}

	unsupportedAttributeTargetIssue = &Issue{
		id: UnsupportedAttributeTargetId,
		mdMsg: `
# Unsupported attribute target

An import attribute was applied to something other than a field, property or
constructor parameter, or an export attribute to something other than a type,
field, property or method. The module does not follow the composition model's
contract.`,
	}

	missingDeclaringTypeIssue = &Issue{
		id: MissingDeclaringTypeId,
		mdMsg: `
# Member without declaring type

An attributed member could not be tied to the type that declares it. Properties
need at least one accessor method to be located.`,
	}

	invalidPatternIssue = &Issue{
		id: InvalidPatternId,
		mdMsg: `
# Invalid file pattern

A directory scan pattern is not a valid glob. Patterns use the syntax of
` + "`filepath.Match`" + `, for example ` + "`*.dll`" + `.`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():           configLoadFailedIssue,
		moduleNotFoundIssue.Id():             moduleNotFoundIssue,
		moduleUnreadableIssue.Id():           moduleUnreadableIssue,
		identityUnresolvedIssue.Id():         identityUnresolvedIssue,
		referenceCycleIssue.Id():             referenceCycleIssue,
		unsupportedAttributeTargetIssue.Id(): unsupportedAttributeTargetIssue,
		missingDeclaringTypeIssue.Id():       missingDeclaringTypeIssue,
		invalidPatternIssue.Id():             invalidPatternIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
