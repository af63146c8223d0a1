package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathEquals(t *testing.T) {
	pred := PathEquals("daily/2024-01-01.md")
	expr, args := pred.SQL()

	assert.Equal(t, "note_path = ?", expr)
	assert.Equal(t, []any{"daily/2024-01-01.md"}, args)
}

// Paths containing quotes or SQL operators must never alter the expression
// text; they travel as bound arguments.
func TestPathEqualsHostileInput(t *testing.T) {
	hostile := []string{
		`it's a note.md`,
		`a" OR "1"="1.md`,
		`x'; DROP TABLE notes; --.md`,
		`weird %_ chars.md`,
	}

	for _, path := range hostile {
		t.Run(path, func(t *testing.T) {
			pred := PathEquals(path)
			expr, args := pred.SQL()

			assert.Equal(t, "note_path = ?", expr, "expression must not change with input")
			assert.Equal(t, []any{path}, args)
		})
	}
}

func TestPathPrefixEscapesLikeMetacharacters(t *testing.T) {
	pred := PathPrefix(`100%_done\today`)
	expr, args := pred.SQL()

	assert.Equal(t, `note_path LIKE ? ESCAPE '\'`, expr)
	assert.Equal(t, []any{`100\%\_done\\today%`}, args)
}

func TestContentEmpty(t *testing.T) {
	expr, args := ContentEmpty(true).SQL()
	assert.Equal(t, "content = ''", expr)
	assert.Empty(t, args)

	expr, args = ContentEmpty(false).SQL()
	assert.Equal(t, "content != ''", expr)
	assert.Empty(t, args)
}

func TestSubNoteEquals(t *testing.T) {
	expr, args := SubNoteEquals(0).SQL()
	assert.Equal(t, "sub_note_index = ?", expr)
	assert.Equal(t, []any{0}, args)
}

func TestAnd(t *testing.T) {
	pred := And(PathEquals("a.md"), ContentEmpty(true))
	expr, args := pred.SQL()

	assert.Equal(t, "(note_path = ?) AND (content = '')", expr)
	assert.Equal(t, []any{"a.md"}, args)
}

func TestAndSkipsZeroPredicates(t *testing.T) {
	pred := And(All(), PathEquals("a.md"), All())
	expr, args := pred.SQL()

	assert.Equal(t, "(note_path = ?)", expr)
	assert.Equal(t, []any{"a.md"}, args)

	assert.True(t, And().IsZero())
	assert.True(t, And(All()).IsZero())
}

func TestAllIsZero(t *testing.T) {
	assert.True(t, All().IsZero())
	assert.False(t, PathEquals("a.md").IsZero())
}
