package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Role is the structural role of a variable in a wide data structure.
type Role string

const (
	RoleIdentifier Role = "identifier"
	RoleMeasure    Role = "measure"
	RoleAttribute  Role = "attribute"
)

// Roles recognised in assignments that have no structural component. They
// are accepted and dropped.
var ignoredRoles = []string{"contextual", "synthetic", "variablevalue", "variabledescriptor"}

// ErrUnknownRole is returned for a role assignment outside the known set.
var ErrUnknownRole = errors.New("unknown variable role")

// ParseRole parses a single role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleIdentifier, RoleMeasure, RoleAttribute:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// ApplyRoles replaces the role lists of m from an assignment map of variable
// name to a comma separated role list, e.g. {"id": "identifier"}. Variables
// absent from the map take defaultRole; an empty defaultRole leaves them
// unassigned. Assignment follows column order. Variables that are not
// columns of the dataset are skipped.
func (m *Metadata) ApplyRoles(assign map[string]string, defaultRole Role) error {
	ids, measures, attrs := []string{}, []string{}, []string{}
	for _, name := range m.ColumnNames {
		spec, ok := assign[name]
		if !ok {
			switch defaultRole {
			case RoleIdentifier:
				ids = append(ids, name)
			case RoleMeasure:
				measures = append(measures, name)
			case RoleAttribute:
				attrs = append(attrs, name)
			}
			continue
		}
		for _, part := range strings.Split(spec, ",") {
			part = strings.TrimSpace(part)
			if part == "" || slices.Contains(ignoredRoles, strings.ToLower(part)) {
				continue
			}
			role, err := ParseRole(part)
			if err != nil {
				return fmt.Errorf("variable %s: %w", name, err)
			}
			switch role {
			case RoleIdentifier:
				ids = append(ids, name)
			case RoleMeasure:
				measures = append(measures, name)
			case RoleAttribute:
				attrs = append(attrs, name)
			}
		}
	}
	m.IdentifierVars, m.MeasureVars, m.AttributeVars = ids, measures, attrs
	return nil
}

// Components returns the variables of each structural role, filtered to
// columns of the dataset and in column order. When MeasureVars is empty,
// every column that is neither an identifier nor an attribute is a measure.
func (m *Metadata) Components() (ids, attrs, measures []string) {
	ids = m.inColumnOrder(m.IdentifierVars)
	attrs = m.inColumnOrder(m.AttributeVars)
	if len(m.MeasureVars) > 0 {
		measures = m.inColumnOrder(m.MeasureVars)
		return ids, attrs, measures
	}
	for _, name := range m.ColumnNames {
		if !slices.Contains(m.IdentifierVars, name) && !slices.Contains(m.AttributeVars, name) {
			measures = append(measures, name)
		}
	}
	return ids, attrs, measures
}

func (m *Metadata) inColumnOrder(vars []string) []string {
	out := []string{}
	for _, name := range m.ColumnNames {
		if slices.Contains(vars, name) {
			out = append(out, name)
		}
	}
	return out
}
