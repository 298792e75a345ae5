package options

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/StrategyComplex/congress-thetownhall/internal/logging"
)

// Kind is the value type of a declared flag.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
)

// Flag declares one named command-line flag. Aliases bind to the same
// destination as Name.
type Flag struct {
	Name    string
	Aliases []string
	Kind    Kind
	Choices []string
	Default string
	Usage   string
}

// AcceptsValue reports whether the flag takes a value (switches do not).
func (f Flag) AcceptsValue() bool { return f.Kind != KindBool }

// Names returns the canonical name followed by its aliases.
func (f Flag) Names() []string {
	return append([]string{f.Name}, f.Aliases...)
}

// Declared is the fixed set of validated flags. Anything else on the command
// line is still forwarded to the task through Raw.
var Declared = []Flag{
	{Name: "bill_id", Usage: "Bill ID to process (e.g., s968-112)"},
	{Name: "bulkdata", Usage: "Specify the bulk data type for govinfo (e.g., BILLSTATUS)"},
	{Name: "collections", Usage: "Specify the collection type for govinfo (e.g., STATUTES)"},
	{Name: "congress", Usage: "Specify the congress number (e.g., 112)"},
	{Name: "force", Kind: KindBool, Usage: "Suppress use of cache for network-retrieved resources"},
	{Name: "granules", Usage: "Specify the granule"},
	{Name: "limit", Kind: KindInt, Usage: "Limit the number of items to process"},
	{Name: "list", Kind: KindBool, Usage: "List of collection names"},
	{Name: "log", Choices: logging.Levels, Default: "info", Usage: "Set logging level"},
	{Name: "nomination-id", Usage: "Nomination ID to process (e.g., 112-1)"},
	{Name: "store", Choices: []string{"mods"}, Usage: "Specify the storage type (e.g.: pdf,mods,xml,txt)"},
	{Name: "volumes", Aliases: []string{"volume"}, Usage: "Specify the volume number for statutes, e.g. 65, 65-86"},
	{Name: "years", Aliases: []string{"year"}, Usage: "Specify the year for statutes, e.g. 1951, 1951-1972"},
	{Name: "textversions", Aliases: []string{"extracttext", "linkpdf"}, Usage: "Text handling for statutes"},
}

// LookupFlag finds a declared flag by its name or one of its aliases.
func LookupFlag(name string) (Flag, bool) {
	for _, f := range Declared {
		if f.Name == name || slices.Contains(f.Aliases, name) {
			return f, true
		}
	}
	return Flag{}, false
}

// Flags is the typed view of the declared flags.
type Flags struct {
	BillID       string
	BulkData     string
	Collections  string
	Congress     string
	Force        bool
	Granules     string
	Limit        int
	List         bool
	Log          string
	NominationID string
	Store        string
	Volumes      string
	Years        string
	TextVersions string
}

func (f *Flags) stringTarget(name string) *string {
	switch name {
	case "bill_id":
		return &f.BillID
	case "bulkdata":
		return &f.BulkData
	case "collections":
		return &f.Collections
	case "congress":
		return &f.Congress
	case "granules":
		return &f.Granules
	case "log":
		return &f.Log
	case "nomination-id":
		return &f.NominationID
	case "store":
		return &f.Store
	case "volumes":
		return &f.Volumes
	case "years":
		return &f.Years
	case "textversions":
		return &f.TextVersions
	}
	return nil
}

// Declare registers every declared flag on fs, bound to f. Aliases are hidden
// from help output but parse into the same field.
func Declare(fs *pflag.FlagSet, f *Flags) {
	for _, decl := range Declared {
		for i, name := range decl.Names() {
			switch {
			case !decl.AcceptsValue():
				switch decl.Name {
				case "force":
					fs.BoolVar(&f.Force, name, false, decl.Usage)
				case "list":
					fs.BoolVar(&f.List, name, false, decl.Usage)
				}
			case decl.Kind == KindInt:
				fs.IntVar(&f.Limit, name, 0, decl.Usage)
			default:
				usage := decl.Usage
				if len(decl.Choices) > 0 {
					usage = fmt.Sprintf("%s {%s}", usage, strings.Join(decl.Choices, ","))
				}
				fs.StringVar(f.stringTarget(decl.Name), name, decl.Default, usage)
			}
			if i > 0 {
				fs.MarkHidden(name)
			}
		}
	}
}

// Validate checks restricted-choice flags. An empty value means the flag was
// not supplied.
func (f *Flags) Validate() error {
	for _, decl := range Declared {
		if len(decl.Choices) == 0 {
			continue
		}
		v := *f.stringTarget(decl.Name)
		if v == "" || slices.Contains(decl.Choices, v) {
			continue
		}
		return fmt.Errorf("%w: --%s=%q (choose from %s)", ErrInvalidFlagValue, decl.Name, v, strings.Join(decl.Choices, ", "))
	}
	return nil
}
