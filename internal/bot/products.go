package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbpricebot/wbwatch/internal/export"
	"github.com/wbpricebot/wbwatch/internal/matcher"
	"github.com/wbpricebot/wbwatch/internal/model"
)

// maxPageLength keeps product list messages below Telegram's 4096 limit.
const maxPageLength = 4000

const (
	productsHeader    = "📋 **Глобальные товары:**\n\n"
	productsContinued = "📋 **Глобальные товары (продолжение):**\n\n"
)

const bulkAddText = `📥 **Массовое добавление товаров**

Отправьте Excel файл со следующими столбцами:
1. **Название** - название товара
2. **Пороговая цена** - минимальная цена для уведомления
3. **Слова исключения** - слова через запятую (например: подделка, брак)
4. **Ключевые слова** - доп. параметры через запятую (nano-SIM, 256GB и т.д.)

Пример:
| iPhone 15 Pro | 50000 | подделка,брак | nano-SIM |
| iPad | 30000 | | 256GB |
`

const priceRangePrompt = "✍️ **Редактирование цены:**\n\n%s\n\n" +
	"Введите новый диапазон цен в формате:\n" +
	"• `50000-60000` — min-max\n" +
	"• `60000` — одно число (будет использовано как верхняя граница, нижняя = верх - 18000)\n\n" +
	"Примеры: `54000-70000` или `134000`"

// productPages renders the watch list as messages of at most maxPageLength
// characters, one line per product.
func productPages(products []*model.GlobalProduct) []string {
	var pages []string
	current := productsHeader
	for i, p := range products {
		item := fmt.Sprintf("%d. %s – `%s` руб.\n", i+1, escape(truncate(p.Name, 50)), p.ThresholdLabel())
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(item) > maxPageLength {
			if current != productsHeader {
				pages = append(pages, current)
			}
			current = productsContinued + item
			continue
		}
		current += item
	}
	if current != productsHeader {
		pages = append(pages, current)
	}
	return pages
}

func (b *Bot) showProducts(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	products, err := b.store.GetGlobalProducts(ctx)
	if err != nil {
		return err
	}

	pages := productPages(products)
	if len(pages) == 0 {
		return b.editAndAnswer(q, textNoProductsYet, nil)
	}

	if err := b.editAndAnswer(q, pages[0], nil); err != nil {
		return err
	}
	for _, page := range pages[1:] {
		if err := b.reply(q.Message.Chat.ID, page, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) showEditPriceList(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	products, err := b.store.GetGlobalProducts(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return b.editAndAnswer(q, textNoProductsYet, nil)
	}

	kb := productKeyboard(products, "✏️", cbEditPricePrefix, 40)
	return b.editAndAnswer(q, "✍️ **Редактирование цены**\n\nВыберите товар для обновления диапазона цен:", &kb)
}

func (b *Bot) startPriceEdit(ctx context.Context, user *model.User, q *tgbotapi.CallbackQuery, suffix string) error {
	id, ok := callbackID(suffix)
	if !ok {
		return b.answer(q, "❌ Ошибка обработки выбора", true)
	}
	p, err := b.store.GetGlobalProduct(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return b.answer(q, "❌ Товар не найден", true)
	}

	b.states.set(user.TelegramID, state{step: stepPriceRange, productID: id})
	return b.editAndAnswer(q, fmt.Sprintf(priceRangePrompt, escape(p.Name)), nil)
}

// handlePriceRangeInput sets the window of the product picked in
// startPriceEdit. Malformed input keeps the prompt open.
func (b *Bot) handlePriceRangeInput(ctx context.Context, user *model.User, msg *tgbotapi.Message, productID int64) error {
	chatID := msg.Chat.ID
	if !user.IsAdmin {
		b.states.clear(user.TelegramID)
		return b.replyPlain(chatID, "❌ Нет доступа (требуются права администратора)")
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return b.replyPlain(chatID, "❌ Пустое сообщение. Введите диапазон цен, например: 50000-60000")
	}

	lo, hi, err := matcher.ParseRange(text)
	if err != nil {
		return b.reply(chatID, "❌ Неверный формат. Используйте `min-max` или одно число, например `60000`.", nil)
	}

	defer b.states.clear(user.TelegramID)

	p, err := b.store.GetGlobalProduct(ctx, productID)
	if err != nil {
		_ = b.replyPlain(chatID, "❌ Ошибка обновления")
		return err
	}
	if p == nil {
		return b.replyPlain(chatID, "❌ Товар не найден в БД.")
	}

	ok, err := b.store.UpdateThresholds(ctx, productID, lo, hi)
	if err != nil {
		_ = b.replyPlain(chatID, "❌ Ошибка обновления")
		return err
	}
	if !ok {
		return b.replyPlain(chatID, "❌ Товар не найден в БД.")
	}

	b.logger.Info("thresholds updated", "product", p.Name, "min", lo, "max", hi)
	text = fmt.Sprintf("✅ Диапазон для товара **%s** обновлён: `%d-%d`", escape(p.Name), lo, hi)
	if err := b.reply(chatID, text, nil); err != nil {
		return err
	}
	b.monitor.Trigger()
	return nil
}

// sendBulkEditFile sends the current watch list as a workbook and waits
// for the edited copy.
func (b *Bot) sendBulkEditFile(ctx context.Context, user *model.User, q *tgbotapi.CallbackQuery) error {
	if err := b.editAndAnswer(q, "📥 **Массовое редактирование** — формирую файл с вашими товарами. Отредактируйте и отправьте файл обратно.", nil); err != nil {
		return err
	}

	chatID := q.Message.Chat.ID
	products, err := b.store.GetGlobalProducts(ctx)
	if err != nil {
		_ = b.replyPlain(chatID, "❌ Ошибка при подготовке файла")
		return err
	}

	path, err := export.GlobalProducts(products)
	if errors.Is(err, export.ErrNoProducts) {
		return b.replyPlain(chatID, textNoProductsYet)
	}
	if err != nil {
		_ = b.replyPlain(chatID, "❌ Ошибка при подготовке файла")
		return err
	}
	defer b.removeTemp(path)

	name := "my_products_" + strconv.FormatInt(user.TelegramID, 10) + ".xlsx"
	if err := b.sendFile(chatID, path, name, "📥 Отредактируйте файл и отправьте его обратно в этот чат"); err != nil {
		return err
	}

	b.states.set(user.TelegramID, state{step: stepBulkEditUpload})
	return nil
}

// sendFile uploads the file at path under the given name.
func (b *Bot) sendFile(chatID int64, path, name, caption string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	return nil
}

func (b *Bot) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.logger.Warn("failed to remove temp file", "path", path, "error", err)
	}
}
