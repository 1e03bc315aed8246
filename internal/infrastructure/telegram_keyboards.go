package infrastructure

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"project_newsbot/internal/entities"
)

const keyboardColumns = 3

// CategoryKeyboard lays out one button per category followed by a menu button.
// Button data is the menu number, so a click behaves like typing it.
func CategoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, c := range entities.AllCategories() {
		data := CallbackPrefix + strconv.Itoa(int(c.ID))
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.DisplayName, data))
		if len(row) == keyboardColumns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Menu", CallbackPrefix+"menu"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
