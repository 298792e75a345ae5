// Package options turns the usc-run argument vector into a Request: the
// validated data type and declared flags, plus the raw option list that is
// forwarded unchanged to the task handler.
package options

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

var (
	ErrInvalidDataType  = errors.New("invalid data type")
	ErrInvalidFlagValue = errors.New("invalid flag value")
)

// Request is one parsed invocation.
//
// TaskName is the first command-line token as typed and selects the handler.
// DataType is the validated first positional argument. The two usually agree
// but are derived independently.
type Request struct {
	TaskName string
	DataType DataType
	Flags    Flags
	Raw      *Raw
}

// Parse reads argv (without the program name).
func Parse(argv []string) (*Request, error) {
	if len(argv) == 0 {
		_, err := ParseDataType("")
		return nil, err
	}

	var flags Flags
	fs := pflag.NewFlagSet("usc-run", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	Declare(fs, &flags)

	if err := fs.Parse(declaredOnly(argv)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlagValue, err)
	}
	if err := missingValue(fs); err != nil {
		return nil, err
	}

	dt, err := ParseDataType(fs.Arg(0))
	if err != nil {
		return nil, err
	}
	if err := flags.Validate(); err != nil {
		return nil, err
	}

	return &Request{
		TaskName: argv[0],
		DataType: dt,
		Flags:    flags,
		Raw:      ParseRaw(argv[1:]),
	}, nil
}

// declaredOnly drops long flags that are not declared so the typed parse
// never rejects passthrough options such as --patch. Declared names are
// lower-cased to match the keys of the raw view.
func declaredOnly(argv []string) []string {
	out := make([]string, 0, len(argv))
	for _, tok := range argv {
		if strings.HasPrefix(tok, "--") && len(tok) > 2 {
			name, value, hasValue := strings.Cut(strings.TrimPrefix(tok, "--"), "=")
			name = strings.ToLower(name)
			if _, ok := LookupFlag(name); !ok {
				continue
			}
			tok = "--" + name
			if hasValue {
				tok += "=" + value
			}
		}
		out = append(out, tok)
	}
	return out
}

// missingValue rejects a value-taking flag that consumed the next --option
// as its value, as in "--congress --force".
func missingValue(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(pf *pflag.Flag) {
		decl, ok := LookupFlag(pf.Name)
		if err != nil || !ok || !decl.AcceptsValue() {
			return
		}
		if strings.HasPrefix(pf.Value.String(), "--") {
			err = fmt.Errorf("%w: --%s expected one argument", ErrInvalidFlagValue, pf.Name)
		}
	})
	return err
}

// Describe returns the status lines printed before a task runs.
func Describe(req *Request) []string {
	var lines []string
	switch {
	case req.DataType == GovInfo && req.Flags.BulkData != "":
		lines = append(lines, fmt.Sprintf("Processing govinfo with bulkdata=%s", req.Flags.BulkData))
	case req.DataType == GovInfo:
		lines = append(lines, "Processing govinfo without bulkdata")
	default:
		lines = append(lines, fmt.Sprintf("Processing %s", req.DataType))
	}
	if req.Flags.Force {
		lines = append(lines, "Force flag is enabled")
	}
	lines = append(lines, fmt.Sprintf("Log level set to %s", req.Flags.Log))
	return lines
}
