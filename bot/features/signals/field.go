package signals

import (
	"fmt"
	"strings"
)

const (
	fieldRows    = 4
	fieldColumns = 5

	apple   = "🍎"
	mystery = "❓"
)

// Field is one Apple of Fortune board, top row first
type Field [][]string

// GenerateField builds a board of rows. Each row holds one mystery cell at a
// random position; perm returns a random permutation of [0, n).
func GenerateField(rows int, perm func(n int) []int) Field {
	field := make(Field, rows)
	for i := range field {
		row := make([]string, fieldColumns)
		for j := range row {
			row[j] = apple
		}
		row[perm(fieldColumns)[1]] = mystery
		field[i] = row
	}
	return field
}

// Format renders the board in HTML parse mode
func (f Field) Format(round int) string {
	var b strings.Builder
	b.WriteString("🎰 <b>APPLE OF FORTUNE</b> 🎰\n")
	if round > 1 {
		fmt.Fprintf(&b, "Round %d\n", round)
	}
	b.WriteString("\n")
	for _, row := range f {
		fmt.Fprintf(&b, "<code>%s</code>\n", strings.Join(row, " "))
	}
	b.WriteString("\n⚡️ Press the button below to change the rows!")
	return b.String()
}
