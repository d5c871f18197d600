package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"
)

// Button is a labeled inline button carrying callback data.
type Button struct {
	Label        string
	CallbackData string
}

// NewButton returns a Button with the given label and callback data.
func NewButton(label, callbackData string) Button {
	return Button{Label: label, CallbackData: callbackData}
}

// Markup accumulates rows of inline buttons. Row and button order is preserved into the wire form.
type Markup struct {
	rows [][]Button
}

// NewMarkup returns an empty Markup.
func NewMarkup() *Markup {
	return &Markup{rows: make([][]Button, 0)}
}

// FromRows builds a Markup with one row per element of rows.
func FromRows(rows [][]Button) *Markup {
	m := NewMarkup()
	for _, row := range rows {
		m.AddRow(row...)
	}
	return m
}

// AddRow appends a row. Rows are indexed in append order starting at zero.
func (m *Markup) AddRow(buttons ...Button) *Markup {
	row := make([]Button, len(buttons))
	copy(row, buttons)
	m.rows = append(m.rows, row)
	return m
}

// AddButtonToRow appends btn to the row at rowIndex. Negative indices count from the end
// (-1 is the last row); an index outside the existing rows leaves the markup unchanged.
func (m *Markup) AddButtonToRow(btn Button, rowIndex int) *Markup {
	if rowIndex < 0 {
		rowIndex += len(m.rows)
	}
	if rowIndex < 0 || rowIndex >= len(m.rows) {
		return m
	}

	m.rows[rowIndex] = append(m.rows[rowIndex], btn)
	return m
}

// Rows returns a copy of the current rows.
func (m *Markup) Rows() [][]Button {
	rows := make([][]Button, len(m.rows))
	for i, row := range m.rows {
		rows[i] = append([]Button(nil), row...)
	}
	return rows
}

// Len reports the number of rows.
func (m *Markup) Len() int {
	return len(m.rows)
}

// Validate checks every button against Bot API constraints.
func (m *Markup) Validate() error {
	for i, row := range m.rows {
		for j, btn := range row {
			if btn.Label == "" {
				return fmt.Errorf("button [%d][%d]: label is empty", i, j)
			}
			if btn.CallbackData == "" {
				return fmt.Errorf("button [%d][%d]: callback data is empty", i, j)
			}
			if err := checkCallbackSize(btn.CallbackData); err != nil {
				return fmt.Errorf("button [%d][%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

// Serialize renders the rows into inline reply markup.
func (m *Markup) Serialize() *telebot.ReplyMarkup {
	inlineKeyboard := make([][]telebot.InlineButton, len(m.rows))
	for i, row := range m.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			inlineKeyboard[i][j] = telebot.InlineButton{
				Text: btn.Label,
				Data: btn.CallbackData,
			}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}
}
