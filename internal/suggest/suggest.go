// Package suggest holds the static completion table for usc-run flags. It is
// consulted only by shell completion; options.Parse alone decides validity.
package suggest

import (
	"strings"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
)

// Suggestion is the answer for one flag. An applicable suggestion with no
// candidates means free text is accepted.
type Suggestion struct {
	Candidates []string
	Applicable bool
}

// Inapplicable is returned when the flag does not apply to the data type.
var Inapplicable = Suggestion{}

// rule ties a flag to the data type it is meaningful for. An empty only
// applies to every data type.
type rule struct {
	only       options.DataType
	candidates []string
}

var rules = map[string]rule{
	"bill_id":       {only: options.Bills},
	"bulkdata":      {only: options.GovInfo, candidates: []string{"BILLSTATUS", "OTHERDATA"}},
	"collections":   {only: options.GovInfo, candidates: []string{"STATUTES", "OTHERCOLLECTIONS"}},
	"granules":      {only: options.GovInfo},
	"list":          {only: options.GovInfo},
	"nomination-id": {only: options.Nominations},
	"volumes":       {only: options.Statutes},
	"years":         {only: options.Statutes},
	"textversions":  {only: options.Statutes},
	"log":           {candidates: []string{"info", "debug", "error"}},
	"store":         {candidates: []string{"mods"}},
	"congress":      {},
	"limit":         {},
	"force":         {},
}

// Suggest returns completion candidates for flag (name or alias) when the
// current data type is dataType, keeping those that start with prefix.
func Suggest(flag string, dataType options.DataType, prefix string) Suggestion {
	decl, ok := options.LookupFlag(flag)
	if !ok {
		return Inapplicable
	}
	r, ok := rules[decl.Name]
	if !ok || (r.only != "" && r.only != dataType) {
		return Inapplicable
	}
	out := Suggestion{Applicable: true, Candidates: []string{}}
	for _, c := range r.candidates {
		if strings.HasPrefix(c, prefix) {
			out.Candidates = append(out.Candidates, c)
		}
	}
	return out
}

// DataTypeFor reports the data type a flag is restricted to, if any.
func DataTypeFor(flag string) (options.DataType, bool) {
	decl, ok := options.LookupFlag(flag)
	if !ok {
		return "", false
	}
	r := rules[decl.Name]
	return r.only, r.only != ""
}
