package options

import (
	"fmt"
	"strings"
)

// DataType names the kind of government data a run is about.
type DataType string

const (
	Bills             DataType = "bills"
	CommitteeMeetings DataType = "committee_meetings"
	GovInfo           DataType = "govinfo"
	Nominations       DataType = "nominations"
	Statutes          DataType = "statutes"
	Votes             DataType = "votes"
)

var dataTypes = []DataType{Bills, CommitteeMeetings, GovInfo, Nominations, Statutes, Votes}

// DataTypes returns the closed set of accepted data types in display order.
func DataTypes() []DataType {
	out := make([]DataType, len(dataTypes))
	copy(out, dataTypes)
	return out
}

// DataTypeNames is DataTypes as plain strings, for help text and completion.
func DataTypeNames() []string {
	names := make([]string, len(dataTypes))
	for i, dt := range dataTypes {
		names[i] = string(dt)
	}
	return names
}

// ParseDataType validates s against the closed set.
func ParseDataType(s string) (DataType, error) {
	for _, dt := range dataTypes {
		if string(dt) == s {
			return dt, nil
		}
	}
	if s == "" {
		return "", fmt.Errorf("%w: missing data type (choose from %s)", ErrInvalidDataType, strings.Join(DataTypeNames(), ", "))
	}
	return "", fmt.Errorf("%w: %q (choose from %s)", ErrInvalidDataType, s, strings.Join(DataTypeNames(), ", "))
}
