package keyboard

import (
	"fmt"
	"strconv"
)

const (
	paginationPrev = "◀️ Prev"
	paginationNext = "Next ▶️"
)

// PaginationRow returns up to three buttons (prev, current page, next) whose callback data
// is action encoded with the target page, e.g. "history:2".
func PaginationRow(action string, page, totalPages int) ([]Button, error) {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	buttons := make([]Button, 0, 3)
	add := func(label string, target int) error {
		data, err := EncodeCallback(action, strconv.Itoa(target))
		if err != nil {
			return err
		}
		buttons = append(buttons, NewButton(label, data))
		return nil
	}

	if page > 1 {
		if err := add(paginationPrev, page-1); err != nil {
			return nil, err
		}
	}
	if err := add(fmt.Sprintf("Page %d/%d", page, totalPages), page); err != nil {
		return nil, err
	}
	if page < totalPages {
		if err := add(paginationNext, page+1); err != nil {
			return nil, err
		}
	}

	return buttons, nil
}
