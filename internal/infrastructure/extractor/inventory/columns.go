package inventory

import "strings"

type field int

const (
	fieldDepository field = iota
	fieldRegistered
	fieldEligible
	fieldTotal
)

type columnRule struct {
	needles []string
	field   field
}

// columnRules are evaluated in order against each lower-cased header cell.
var columnRules = []columnRule{
	{needles: []string{"depository", "warehouse"}, field: fieldDepository},
	{needles: []string{"registered"}, field: fieldRegistered},
	{needles: []string{"eligible"}, field: fieldEligible},
	{needles: []string{"total"}, field: fieldTotal},
}

// mapColumns binds each canonical field to at most one column. A cell is consumed by its
// first matching rule even when that field is already bound.
func mapColumns(header []string) map[field]int {
	cols := make(map[field]int, len(columnRules))
	for idx, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		rule, ok := matchRule(name)
		if !ok {
			continue
		}
		if _, bound := cols[rule.field]; bound {
			continue
		}
		cols[rule.field] = idx
	}
	return cols
}

func matchRule(name string) (columnRule, bool) {
	for _, rule := range columnRules {
		for _, needle := range rule.needles {
			if strings.Contains(name, needle) {
				return rule, true
			}
		}
	}
	return columnRule{}, false
}
