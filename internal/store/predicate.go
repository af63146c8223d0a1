package store

import "strings"

// Predicate is a parameterized filter over note rows. Predicates render to a
// SQL fragment with bound arguments; user-controlled values (note paths in
// particular) are never interpolated into the expression text.
type Predicate struct {
	expr string
	args []any
}

// SQL returns the predicate's SQL fragment and its bound arguments.
func (p Predicate) SQL() (string, []any) {
	return p.expr, p.args
}

// IsZero reports whether the predicate matches everything (no constraint).
func (p Predicate) IsZero() bool {
	return p.expr == ""
}

// All matches every row.
func All() Predicate {
	return Predicate{}
}

// PathEquals matches rows whose note path equals path exactly.
func PathEquals(path string) Predicate {
	return Predicate{expr: "note_path = ?", args: []any{path}}
}

// PathPrefix matches rows whose note path starts with prefix.
func PathPrefix(prefix string) Predicate {
	// ESCAPE so that LIKE metacharacters in the prefix stay literal.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return Predicate{expr: `note_path LIKE ? ESCAPE '\'`, args: []any{escaped + "%"}}
}

// SubNoteEquals matches rows with the given sub-note index.
func SubNoteEquals(idx int) Predicate {
	return Predicate{expr: "sub_note_index = ?", args: []any{idx}}
}

// ContentEmpty matches rows with empty content when empty is true, and rows
// with non-empty content otherwise.
func ContentEmpty(empty bool) Predicate {
	if empty {
		return Predicate{expr: "content = ''"}
	}
	return Predicate{expr: "content != ''"}
}

// And combines predicates; zero-value predicates are skipped.
func And(preds ...Predicate) Predicate {
	var exprs []string
	var args []any
	for _, p := range preds {
		if p.IsZero() {
			continue
		}
		exprs = append(exprs, "("+p.expr+")")
		args = append(args, p.args...)
	}
	if len(exprs) == 0 {
		return Predicate{}
	}
	return Predicate{expr: strings.Join(exprs, " AND "), args: args}
}
