package graph

import (
	"sort"
	"strconv"
	"strings"
)

// valueRank classifies a property value into the five-tier merge-priority
// rank described for mergeProperty. Lower rank number wins (replaces higher
// numbers); ties keep the existing value (stability under concurrent writes
// in arbitrary order, §5).
//
//  1. concrete specific value (non-empty string matching a known enum, or a
//     parseable number)
//  2. any other non-null value
//  3. documented default/fallback placeholders (UNKNOWN, BOTH, UNSPECIFIED)
//  4. error strings (prefixed ERROR:)
//  5. N/A, empty, null
func valueRank(v PropertyValue) int {
	const (
		rankConcrete = iota
		rankOther
		rankPlaceholder
		rankError
		rankEmpty
	)

	if v == nil {
		return rankEmpty
	}

	s, isString := v.(string)
	if !isString {
		return rankOther
	}

	switch s {
	case "", ValueNotApplicable:
		return rankEmpty
	case ValueUnknown, ValueBoth, ValueUnspecified:
		return rankPlaceholder
	}

	if strings.HasPrefix(s, errorValuePrefix) {
		return rankError
	}

	if isKnownEnumValue(s) || isParseableNumber(s) {
		return rankConcrete
	}

	return rankOther
}

// isKnownEnumValue reports whether s matches one of the fixed enumerations
// the data model defines (currently classType and sourceType values).
func isKnownEnumValue(s string) bool {
	switch s {
	case ClassTypeAnnotation, ClassTypeInterface, ClassTypeEnum, ClassTypeRecord, ClassTypeClass,
		SourceTypeSource, SourceTypeBinary:
		return true
	default:
		return false
	}
}

func isParseableNumber(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}

	return false
}

// mergeValue applies the priority rule between the current value cur (which
// may be absent) and an incoming write next, returning the value that
// should be stored. A strictly better rank always wins; on a rank tie the
// existing value is kept so that merge order never affects the outcome
// (testable property 6: determinism independent of write order) — except
// when there is no existing value, in which case next is installed
// regardless of its rank.
func mergeValue(cur PropertyValue, curOK bool, next PropertyValue) PropertyValue {
	if !curOK {
		return next
	}

	curRank := valueRank(cur)
	nextRank := valueRank(next)

	if nextRank < curRank {
		return next
	}

	return cur
}

// fingerprintLocked builds the tag+property-key fingerprint string for a
// node. Callers must already hold n.mu.
func fingerprintLocked(n *Node) string {
	tags := make([]string, 0, len(n.Tags))
	for t := range n.Tags {
		tags = append(tags, t)
	}

	sort.Strings(tags)

	keys := make([]string, 0, len(n.Properties))
	for k := range n.Properties {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString("T:")
	b.WriteString(strings.Join(tags, ","))
	b.WriteString("|P:")
	b.WriteString(strings.Join(keys, ","))

	return b.String()
}
