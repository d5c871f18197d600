package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/pollbot/internal/bot/keyboard"
)

func TestMarkup_AddRowPreservesOrder(t *testing.T) {
	m := keyboard.NewMarkup().
		AddRow(keyboard.NewButton("A", "a"), keyboard.NewButton("B", "b")).
		AddRow(keyboard.NewButton("C", "c"))

	wire := m.Serialize()
	require.Len(t, wire.InlineKeyboard, 2)
	require.Len(t, wire.InlineKeyboard[0], 2)
	require.Len(t, wire.InlineKeyboard[1], 1)

	assert.Equal(t, "A", wire.InlineKeyboard[0][0].Text)
	assert.Equal(t, "a", wire.InlineKeyboard[0][0].Data)
	assert.Equal(t, "B", wire.InlineKeyboard[0][1].Text)
	assert.Equal(t, "b", wire.InlineKeyboard[0][1].Data)
	assert.Equal(t, "C", wire.InlineKeyboard[1][0].Text)
	assert.Equal(t, "c", wire.InlineKeyboard[1][0].Data)
}

func TestMarkup_AddButtonToRow(t *testing.T) {
	btn := keyboard.NewButton("X", "x")

	testCases := []struct {
		name     string
		rowIndex int
		want     [][]string
	}{
		{name: "last row", rowIndex: -1, want: [][]string{{"a"}, {"b", "x"}}},
		{name: "first row", rowIndex: 0, want: [][]string{{"a", "x"}, {"b"}}},
		{name: "negative from end", rowIndex: -2, want: [][]string{{"a", "x"}, {"b"}}},
		{name: "past the end is ignored", rowIndex: 2, want: [][]string{{"a"}, {"b"}}},
		{name: "too negative is ignored", rowIndex: -3, want: [][]string{{"a"}, {"b"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := keyboard.NewMarkup().
				AddRow(keyboard.NewButton("A", "a")).
				AddRow(keyboard.NewButton("B", "b"))

			m.AddButtonToRow(btn, tc.rowIndex)

			assert.Equal(t, tc.want, callbackData(m))
		})
	}
}

func TestMarkup_AddButtonToRowOnEmptyMarkup(t *testing.T) {
	m := keyboard.NewMarkup()

	assert.NotPanics(t, func() {
		m.AddButtonToRow(keyboard.NewButton("X", "x"), -1)
		m.AddButtonToRow(keyboard.NewButton("X", "x"), 0)
	})
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Serialize().InlineKeyboard)
}

func TestMarkup_RowsReturnsCopy(t *testing.T) {
	m := keyboard.NewMarkup().AddRow(keyboard.NewButton("A", "a"))

	rows := m.Rows()
	rows[0][0].Label = "mutated"

	assert.Equal(t, "A", m.Rows()[0][0].Label)
}

func TestFromRows(t *testing.T) {
	m := keyboard.FromRows([][]keyboard.Button{
		{keyboard.NewButton("Yes", "yes"), keyboard.NewButton("No", "no")},
		{keyboard.NewButton("Later", "later")},
	})

	assert.Equal(t, [][]string{{"yes", "no"}, {"later"}}, callbackData(m))
}

func TestMarkup_Validate(t *testing.T) {
	assert.NoError(t, keyboard.NewMarkup().AddRow(keyboard.NewButton("A", "a")).Validate())
	assert.Error(t, keyboard.NewMarkup().AddRow(keyboard.NewButton("", "a")).Validate())
	assert.Error(t, keyboard.NewMarkup().AddRow(keyboard.NewButton("A", "")).Validate())
	assert.Error(t, keyboard.NewMarkup().AddRow(keyboard.NewButton("A", strings.Repeat("x", 65))).Validate())
}

func TestPaginationRow(t *testing.T) {
	testCases := []struct {
		name  string
		page  int
		total int
		want  []string
	}{
		{name: "first page", page: 1, total: 3, want: []string{"list:1", "list:2"}},
		{name: "middle page", page: 2, total: 3, want: []string{"list:1", "list:2", "list:3"}},
		{name: "last page", page: 3, total: 3, want: []string{"list:2", "list:3"}},
		{name: "clamped", page: 9, total: 0, want: []string{"list:1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row, err := keyboard.PaginationRow("list", tc.page, tc.total)
			require.NoError(t, err)

			got := make([]string, 0, len(row))
			for _, btn := range row {
				got = append(got, btn.CallbackData)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func callbackData(m *keyboard.Markup) [][]string {
	out := make([][]string, 0, m.Len())
	for _, row := range m.Rows() {
		data := make([]string, 0, len(row))
		for _, btn := range row {
			data = append(data, btn.CallbackData)
		}
		out = append(out, data)
	}
	return out
}
