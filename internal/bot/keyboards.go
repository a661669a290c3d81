package bot

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// Callback data.
const (
	cbMainMenu            = "main_menu"
	cbParserMenu          = "parser_menu"
	cbProfileMenu         = "profile_menu"
	cbAdminMenu           = "admin_menu"
	cbAdminParserSettings = "admin_parser_settings"
	cbAdminSetDiscount    = "admin_set_site_discount"
	cbAdminSetChannel     = "admin_set_channel_id"
	cbAdminClearTables    = "admin_clear_tables"
	cbAdminUsers          = "admin_users"
	cbAdminRestart        = "admin_restart_parser"
	cbAdminUpdatePrices   = "admin_update_prices"
	cbBulkAdd             = "parser_bulk_add"
	cbBulkEdit            = "parser_bulk_edit"
	cbExport              = "parser_export"
	cbEditPrice           = "parser_edit_price"
	cbMyProducts          = "parser_my_products"

	cbExportProductPrefix = "export_product_"
	cbEditPricePrefix     = "edit_price_"
)

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func mainMenuKeyboard(admin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button("🔍 Парсер", cbParserMenu)),
		tgbotapi.NewInlineKeyboardRow(button("👤 Профиль", cbProfileMenu)),
	}
	if admin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("🔧 Администратор", cbAdminMenu)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parserMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("📥 Массовое добавление", cbBulkAdd)),
		tgbotapi.NewInlineKeyboardRow(button("✏️ Массовое редактирование", cbBulkEdit)),
		tgbotapi.NewInlineKeyboardRow(button("📊 Экспорт по товару", cbExport)),
		tgbotapi.NewInlineKeyboardRow(button("✍️ Редактировать цену", cbEditPrice)),
		tgbotapi.NewInlineKeyboardRow(button("📋 Мои товары", cbMyProducts)),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Назад", cbMainMenu)),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("💵 Обновить цены", cbAdminUpdatePrices)),
		tgbotapi.NewInlineKeyboardRow(button("🧹 Очистить товары", cbAdminClearTables)),
		tgbotapi.NewInlineKeyboardRow(button("🔄 Перезапустить парсер", cbAdminRestart)),
		tgbotapi.NewInlineKeyboardRow(button("💰 Изменить скидку", cbAdminSetDiscount)),
		tgbotapi.NewInlineKeyboardRow(button("📢 Установить ID канала", cbAdminSetChannel)),
		tgbotapi.NewInlineKeyboardRow(button("👥 Пользователи", cbAdminUsers)),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Назад", cbMainMenu)),
	)
}

func settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("💰 Изменить скидку", cbAdminSetDiscount)),
		tgbotapi.NewInlineKeyboardRow(button("📢 Установить ID канала", cbAdminSetChannel)),
		tgbotapi.NewInlineKeyboardRow(button("🧹 Очистить товары", cbAdminClearTables)),
		tgbotapi.NewInlineKeyboardRow(button("🔄 Перезапустить парсер", cbAdminRestart)),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Назад", cbMainMenu)),
	)
}

func backKeyboard(data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Назад", data)),
	)
}

// productKeyboard lists one button per product followed by a back button.
// Labels are cut to width runes.
func productKeyboard(products []*model.GlobalProduct, icon, prefix string, width int) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		label := icon + " " + truncate(p.Name, width)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(label, prefix+strconv.FormatInt(p.ID, 10)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ Назад", cbParserMenu)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
