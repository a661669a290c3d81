package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbpricebot/wbwatch/internal/model"
)

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	user, err := b.authenticate(ctx, q.From)
	if err != nil {
		_ = b.answer(q, "", false)
		return err
	}
	if user == nil || q.Message == nil {
		return b.answer(q, "", false)
	}

	switch data := q.Data; {
	case data == cbMainMenu:
		kb := mainMenuKeyboard(user.IsAdmin)
		return b.editAndAnswer(q, textMainMenu, &kb)

	case data == cbProfileMenu:
		kb := backKeyboard(cbMainMenu)
		return b.editAndAnswer(q, profileText(user), &kb)

	case data == cbParserMenu, data == cbBulkAdd, data == cbBulkEdit,
		data == cbExport, data == cbEditPrice, data == cbMyProducts,
		strings.HasPrefix(data, cbExportProductPrefix),
		strings.HasPrefix(data, cbEditPricePrefix):
		if !user.HasAccess {
			return b.answer(q, textNoAccess, true)
		}
		return b.handleParserCallback(ctx, user, q)

	case strings.HasPrefix(data, "admin_"):
		if !user.IsAdmin {
			return b.answer(q, textNoAdminAccess, true)
		}
		return b.handleAdminCallback(ctx, user, q)
	}

	return b.answer(q, "", false)
}

func (b *Bot) handleParserCallback(ctx context.Context, user *model.User, q *tgbotapi.CallbackQuery) error {
	switch data := q.Data; {
	case data == cbParserMenu:
		kb := parserMenuKeyboard()
		return b.editAndAnswer(q, textParserMenu, &kb)
	case data == cbBulkAdd:
		return b.editAndAnswer(q, bulkAddText, nil)
	case data == cbBulkEdit:
		return b.sendBulkEditFile(ctx, user, q)
	case data == cbMyProducts:
		return b.showProducts(ctx, q)
	case data == cbExport:
		return b.showExportList(ctx, q)
	case data == cbEditPrice:
		return b.showEditPriceList(ctx, q)
	case strings.HasPrefix(data, cbExportProductPrefix):
		return b.startExport(ctx, q, strings.TrimPrefix(data, cbExportProductPrefix))
	case strings.HasPrefix(data, cbEditPricePrefix):
		return b.startPriceEdit(ctx, user, q, strings.TrimPrefix(data, cbEditPricePrefix))
	}
	return b.answer(q, "", false)
}

func (b *Bot) handleAdminCallback(ctx context.Context, user *model.User, q *tgbotapi.CallbackQuery) error {
	switch q.Data {
	case cbAdminMenu:
		text, err := b.adminPanelText(ctx)
		if err != nil {
			return err
		}
		kb := adminKeyboard()
		return b.editAndAnswer(q, text, &kb)
	case cbAdminParserSettings:
		return b.showParserSettings(ctx, q)
	case cbAdminSetDiscount:
		return b.promptSiteDiscount(ctx, user, q)
	case cbAdminSetChannel:
		return b.promptChannel(ctx, user, q)
	case cbAdminClearTables:
		return b.clearTables(ctx, q)
	case cbAdminUsers:
		return b.showUsers(ctx, q)
	case cbAdminRestart:
		b.monitor.Restart()
		b.monitor.Trigger()
		return b.answer(q, "✅ Парсер перезапускается и перечитывает товары...", false)
	case cbAdminUpdatePrices:
		b.states.set(user.TelegramID, state{step: stepPriceUpdate})
		return b.editAndAnswer(q, priceUpdatePrompt, nil)
	}
	return b.answer(q, "", false)
}

// editAndAnswer replaces the callback's message and acknowledges the query.
func (b *Bot) editAndAnswer(q *tgbotapi.CallbackQuery, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if err := b.edit(q.Message, text, markup); err != nil {
		_ = b.answer(q, "", false)
		return err
	}
	return b.answer(q, "", false)
}

// callbackID parses the numeric suffix of prefixed callback data.
func callbackID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
