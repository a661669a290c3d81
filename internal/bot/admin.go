package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbpricebot/wbwatch/internal/matcher"
	"github.com/wbpricebot/wbwatch/internal/model"
)

// notFoundShown is how many unmatched price list lines are echoed back.
const notFoundShown = 5

const priceUpdatePrompt = `💵 **Обновление цен**

Отправьте список товаров в формате:

🇭🇰 Sim+eSim 17 Pro Max 512GB Blue — 134000₽
🇭🇰 Sim+eSim 17 Pro Max 512GB Orange — 128000₽

**Формат:**
• [ФЛАГ] [ТИП_SIM] [МОДЕЛЬ] [ПАМЯТЬ] [ЦВЕТ] — [ЦЕНА]₽

**Типы SIM:**
• Sim+eSim → nano-SIM+Esim (вычтем 8.5% от цены)
• eSim → Esim (вычтем 8.5% от цены)

**Бот:**
1. Сопоставит товары с БД (игнорируя флаги)
2. Вычтет 8.5% от цены
3. Установит конечную цену как потолок (threshold_max)
4. Установит начальную цену = конечная - 18000 (threshold_min)
`

const channelPrompt = `📢 **Введите ID канала для отправки найденных товаров**

Текущее значение: %s

**Примеры:**
• Приватный канал: ` + "`-1001234567890`" + `
• Публичный канал: ` + "`@channel_name`" + ` или ` + "`channel_name`" + `

**Как получить ID приватного канала:**
1. Добавьте бота в канал как администратора
2. Отправьте в канал сообщение
3. Пошлите боту команду ` + "`/debugid`" + `
4. Скопируйте ID из ответа
`

func (b *Bot) showParserSettings(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	discount, channel, err := b.parserSettings(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("⚙️ **Настройки парсера**\n\n💰 Глобальная скидка: %s%%\n📢 ID канала уведомлений: %s\n",
		escape(discount),
		escape(channel),
	)
	kb := settingsKeyboard()
	return b.editAndAnswer(q, text, &kb)
}

func (b *Bot) promptSiteDiscount(ctx context.Context, user *model.User, q *tgbotapi.CallbackQuery) error {
	current, err := b.store.GetSetting(ctx, model.SettingSiteBaseDiscount, strconv.Itoa(model.DefaultSiteBaseDiscount))
	if err != nil {
		return err
	}
	b.states.set(user.TelegramID, state{step: stepSiteDiscount})
	text := fmt.Sprintf("💰 **Введите глобальную скидку для парсинга (0-100%%)**\n\nТекущее значение: %s%%", escape(current))
	return b.editAndAnswer(q, text, nil)
}

func (b *Bot) promptChannel(ctx context.Context, user *model.User, q *tgbotapi.CallbackQuery) error {
	current, err := b.store.GetSetting(ctx, model.SettingNotificationChannel, textChannelNotSet)
	if err != nil {
		return err
	}
	b.states.set(user.TelegramID, state{step: stepChannelID})
	return b.editAndAnswer(q, fmt.Sprintf(channelPrompt, escape(current)), nil)
}

// handleSiteDiscountInput accepts "11", "11%" or " 11 % ". The prompt is
// closed whatever the outcome.
func (b *Bot) handleSiteDiscountInput(ctx context.Context, user *model.User, msg *tgbotapi.Message) error {
	defer b.states.clear(user.TelegramID)

	chatID := msg.Chat.ID
	if !user.IsAdmin {
		return b.replyPlain(chatID, textNoAdminAccess)
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, msg.Text)
	if digits == "" {
		return b.replyPlain(chatID, "❌ Введите целое число, например: 11 или 11%")
	}

	val, err := strconv.Atoi(digits)
	if err != nil || val < 0 || val > 100 {
		return b.replyPlain(chatID, "❌ Значение должно быть от 0 до 100")
	}

	if err := b.store.SetSetting(ctx, model.SettingSiteBaseDiscount, strconv.Itoa(val)); err != nil {
		_ = b.replyPlain(chatID, "❌ Ошибка сохранения настройки")
		return err
	}
	b.logger.Info("site discount changed", "user_id", user.TelegramID, "percent", val)
	return b.reply(chatID, fmt.Sprintf("✅ Глобальная скидка парсинга установлена: **%d%%**", val), nil)
}

// handleChannelInput stores the notification chat. An empty answer keeps
// the prompt open.
func (b *Bot) handleChannelInput(ctx context.Context, user *model.User, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if !user.IsAdmin {
		b.states.clear(user.TelegramID)
		return b.replyPlain(chatID, textNoAdminAccess)
	}

	channel := strings.TrimSpace(msg.Text)
	if channel == "" {
		return b.replyPlain(chatID, "❌ ID канала не может быть пустым")
	}
	defer b.states.clear(user.TelegramID)

	if err := b.store.SetSetting(ctx, model.SettingNotificationChannel, channel); err != nil {
		_ = b.replyPlain(chatID, fmt.Sprintf("❌ Ошибка: %v", err))
		return err
	}
	b.logger.Info("notification channel changed", "user_id", user.TelegramID, "channel", channel)
	return b.reply(chatID, fmt.Sprintf("✅ ID канала установлен: `%s`", channel), nil)
}

func (b *Bot) clearTables(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	n, err := b.store.DeleteAllGlobalProducts(ctx)
	if err != nil {
		_ = b.editAndAnswer(q, "❌ Ошибка очистки: "+escape(err.Error()), nil)
		return err
	}
	b.logger.Info("global products cleared", "count", n)
	return b.editAndAnswer(q, fmt.Sprintf("🧹 **Очищено:**\n📦 Глобальные товары: %d", n), nil)
}

func (b *Bot) showUsers(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("📋 **Список пользователей:**\n\n")
	for _, u := range users {
		status := "❌"
		if u.HasAccess {
			status = "✅"
		}
		badge := ""
		if u.IsAdmin {
			badge = "👑"
		}
		name := u.Username
		if name == "" {
			name = "нет имени"
		}
		fmt.Fprintf(&sb, "`%d` %s %s %s\n", u.TelegramID, status, badge, escape(name))
	}
	sb.WriteString("\nВыдать доступ: /grant <id>\nОтозвать доступ: /revoke <id>")

	kb := backKeyboard(cbAdminMenu)
	return b.editAndAnswer(q, sb.String(), &kb)
}

// handlePriceUpdateInput applies a supplier price list to matching products
// and wakes the monitor.
func (b *Bot) handlePriceUpdateInput(ctx context.Context, user *model.User, msg *tgbotapi.Message) error {
	defer b.states.clear(user.TelegramID)

	chatID := msg.Chat.ID
	if !user.IsAdmin {
		return b.replyPlain(chatID, textNoAdminAccess)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return b.replyPlain(chatID, "❌ Сообщение пусто")
	}

	entries := matcher.ParsePriceEntries(text)
	if len(entries) == 0 {
		return b.replyPlain(chatID, "❌ Не удалось распарсить ни одного товара. Проверьте формат.")
	}

	products, err := b.store.GetGlobalProducts(ctx)
	if err != nil {
		_ = b.replyPlain(chatID, "❌ Ошибка чтения товаров")
		return err
	}

	var (
		updated  int
		notFound []string
	)
	for _, entry := range entries {
		p := matcher.FindMatchingProduct(entry, products)
		if p == nil {
			notFound = append(notFound, entry.Original)
			continue
		}

		lo, hi := matcher.PriceUpdateWindow(entry.Price)
		ok, err := b.store.UpdateThresholds(ctx, p.ID, lo, hi)
		if err != nil {
			b.logger.Error("failed to update thresholds", "product", p.Name, "error", err)
			continue
		}
		if !ok {
			continue
		}
		updated++
		b.logger.Info("thresholds updated", "product", p.Name, "min", lo, "max", hi)
	}

	if err := b.reply(chatID, priceUpdateReport(updated, notFound), nil); err != nil {
		return err
	}
	b.monitor.Trigger()
	return nil
}

func priceUpdateReport(updated int, notFound []string) string {
	var sb strings.Builder
	sb.WriteString("✅ **Обновление цен завершено**\n\n")
	fmt.Fprintf(&sb, "📊 Обновлено товаров: **%d**\n", updated)

	if len(notFound) > 0 {
		fmt.Fprintf(&sb, "\n Не найдено в БД (%d):\n", len(notFound))
		for i, line := range notFound {
			if i == notFoundShown {
				fmt.Fprintf(&sb, "• ... и ещё %d\n", len(notFound)-notFoundShown)
				break
			}
			fmt.Fprintf(&sb, "• %s\n", escape(line))
		}
	}
	return sb.String()
}
