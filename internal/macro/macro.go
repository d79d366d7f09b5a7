// Package macro implements the macro table (component C8): parsing of
// comma-separated name=value strings, with the program's
// compiled-in macro string parsed first and the caller-supplied
// string parsed second so the caller wins on a name conflict.
//
// Grounded on seq_mac.c (seqMacParse/seqMacParseName/seqMacParseValue/
// seqMacTblGet/seqMacValGet), ported from its array-of-structs linear
// scan to a map, since the original's manual free-list management is a
// C memory-management artifact rather than part of the override
// semantics being preserved.
package macro

import "strings"

// Table holds parsed name=value macro bindings.
type Table struct {
	values map[string]string
}

// New returns an empty table.
func New() *Table {
	return &Table{values: make(map[string]string)}
}

// Parse parses a comma-separated "name=value,name2=value2" string and
// merges it into the table. A name already present keeps its existing
// value (first writer wins within a single Parse call is not special;
// across two Parse calls, the first call's values win unless
// overwrite is requested via ParseOverwrite) — callers compose program
// vs. caller macro strings by calling Parse then ParseOverwrite.
func (t *Table) Parse(s string) {
	t.parse(s, false)
}

// ParseOverwrite parses s the same way but lets its values replace any
// existing binding of the same name. The program controller calls
// Parse with the program-embedded macro string first, then
// ParseOverwrite with the caller-supplied string, giving the caller
// priority on conflict per the program controller's documented
// precedence (spec §4.7).
func (t *Table) ParseOverwrite(s string) {
	t.parse(s, true)
}

func (t *Table) parse(s string, overwrite bool) {
	for _, pair := range splitTopLevel(s) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value := parseNameValue(pair)
		if name == "" {
			continue
		}
		if _, exists := t.values[name]; exists && !overwrite {
			continue
		}
		t.values[name] = value
	}
}

// splitTopLevel splits on commas that are not inside a quoted value,
// mirroring seqMacParseValue's handling of quoted macro values that
// may themselves contain commas.
func splitTopLevel(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

func parseNameValue(pair string) (name, value string) {
	idx := strings.IndexByte(pair, '=')
	if idx < 0 {
		return strings.TrimSpace(pair), ""
	}
	name = strings.TrimSpace(pair[:idx])
	value = strings.TrimSpace(pair[idx+1:])
	value = strings.Trim(value, `"`)
	return name, value
}

// Get returns the value bound to name, and whether it was present.
func (t *Table) Get(name string) (string, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Eval substitutes every "{name}" occurrence in s with its bound
// value (or "" if unbound), mirroring seqMacEval.
func (t *Table) Eval(s string) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '{' {
			end := strings.IndexByte(s[i:], '}')
			if end >= 0 {
				name := s[i+1 : i+end]
				v, _ := t.values[name]
				out.WriteString(v)
				i += end + 1
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

// String re-serializes the table to "name=value,..." form, in sorted
// key order for determinism (the original's allocation order is a
// memory-management artifact, not a semantic guarantee to preserve).
func (t *Table) String() string {
	if len(t.values) == 0 {
		return ""
	}
	names := make([]string, 0, len(t.values))
	for n := range t.values {
		names = append(names, n)
	}
	// simple insertion sort; macro tables are tiny (a handful of entries)
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	var b strings.Builder
	for i, n := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(t.values[n])
	}
	return b.String()
}
