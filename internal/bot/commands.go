package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbpricebot/wbwatch/internal/model"
)

const (
	textNoAccess       = "❌ У вас нет доступа"
	textNoAdminAccess  = "❌ Нет доступа"
	textChannelNotSet  = "не установлен"
	textMainMenu       = "🎯 **Главное меню**"
	textParserMenu     = "🔍 **Меню парсера**"
	textNoProductsYet  = "📋 Глобальные товары ещё не добавлены"
	textStartGreeting  = "🎯 **WB Parser Bot**\n\nОтслеживание цен на товары в Wildberries с отправкой уведомлений в канал.\n"
	textAdminOnlyPanel = "❌ У вас нет доступа к панели администратора"
)

// handleMessage routes a message. Commands always win over a pending
// prompt and reset it.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.authenticate(ctx, msg.From)
	if err != nil || user == nil {
		return err
	}

	if msg.IsCommand() {
		b.states.clear(user.TelegramID)
		return b.handleCommand(ctx, user, msg)
	}

	if msg.Document != nil {
		return b.handleDocument(ctx, user, msg)
	}

	st := b.states.get(user.TelegramID)
	switch st.step {
	case stepSiteDiscount:
		return b.handleSiteDiscountInput(ctx, user, msg)
	case stepChannelID:
		return b.handleChannelInput(ctx, user, msg)
	case stepPriceUpdate:
		return b.handlePriceUpdateInput(ctx, user, msg)
	case stepPriceRange:
		return b.handlePriceRangeInput(ctx, user, msg, st.productID)
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, user *model.User, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.logger.Info("start command",
			"user_id", user.TelegramID,
			"is_admin", user.IsAdmin,
			"has_access", user.HasAccess,
		)
		kb := mainMenuKeyboard(user.IsAdmin)
		return b.reply(chatID, textStartGreeting, &kb)

	case "parser":
		if !user.HasAccess {
			return b.replyPlain(chatID, "❌ У вас нет доступа к парсеру")
		}
		kb := parserMenuKeyboard()
		return b.reply(chatID, textParserMenu, &kb)

	case "profile":
		kb := backKeyboard(cbMainMenu)
		return b.reply(chatID, profileText(user), &kb)

	case "admin":
		if !user.IsAdmin {
			return b.replyPlain(chatID, textAdminOnlyPanel)
		}
		text, err := b.adminPanelText(ctx)
		if err != nil {
			return err
		}
		kb := adminKeyboard()
		return b.reply(chatID, text, &kb)

	case "status":
		if !user.HasAccess {
			return b.replyPlain(chatID, textNoAccess)
		}
		text, err := b.statusText(ctx, user)
		if err != nil {
			return err
		}
		return b.reply(chatID, text, nil)

	case "debugid":
		return b.replyDebugID(msg.Chat)

	case "grant", "revoke":
		return b.handleAccessCommand(ctx, user, msg)
	}
	return nil
}

// handleChannelPost answers /debugid posted in a channel, which is the only
// way to learn the id of a private channel.
func (b *Bot) handleChannelPost(post *tgbotapi.Message) error {
	if post.Chat == nil || !post.IsCommand() || post.Command() != "debugid" {
		return nil
	}
	return b.replyDebugID(post.Chat)
}

func (b *Bot) replyDebugID(chat *tgbotapi.Chat) error {
	if chat == nil {
		return nil
	}
	text := fmt.Sprintf("🆔 ID этого чата: `%d`\nТип: %s", chat.ID, chat.Type)
	return b.reply(chat.ID, text, nil)
}

// handleAccessCommand serves "/grant <id>" and "/revoke <id>".
func (b *Bot) handleAccessCommand(ctx context.Context, user *model.User, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if !user.IsAdmin {
		return b.replyPlain(chatID, textNoAdminAccess)
	}

	target, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return b.replyPlain(chatID, fmt.Sprintf("Использование: /%s <telegram_id>", msg.Command()))
	}

	var changed bool
	if msg.Command() == "grant" {
		changed, err = b.store.GrantAccess(ctx, target)
	} else {
		changed, err = b.store.RevokeAccess(ctx, target)
	}
	if err != nil {
		return err
	}
	if !changed {
		return b.replyPlain(chatID, "❌ Пользователь не найден")
	}

	if msg.Command() == "grant" {
		return b.reply(chatID, fmt.Sprintf("✅ Доступ выдан: `%d`", target), nil)
	}
	return b.reply(chatID, fmt.Sprintf("✅ Доступ отозван: `%d`", target), nil)
}

func profileText(user *model.User) string {
	status := "❌ Нет доступа"
	if user.HasAccess {
		status = "✅ Активный"
	}
	badge := ""
	if user.IsAdmin {
		badge = "👑 АДМИН\n"
	}
	return fmt.Sprintf("👤 **Ваш профиль**\n\nID: `%d`\nИмя: %s\nСтатус: %s\n%sДата регистрации: %s\n",
		user.TelegramID,
		escape(user.DisplayName()),
		status,
		badge,
		user.CreatedAt.Format("02.01.2006"),
	)
}

func (b *Bot) statusText(ctx context.Context, user *model.User) (string, error) {
	products, err := b.store.GetGlobalProducts(ctx)
	if err != nil {
		return "", err
	}
	channel, err := b.store.GetSetting(ctx, model.SettingNotificationChannel, textChannelNotSet)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 **Статус парсинга**\n\n👤 Пользователь: `%d`\n\n📦 **Глобальных товаров для парсинга:** %d\n📢 Канал уведомлений: %s\n\n⏱️ **Парсер работает в фоне**\n",
		user.TelegramID,
		len(products),
		escape(channel),
	), nil
}

func (b *Bot) adminPanelText(ctx context.Context) (string, error) {
	discount, channel, err := b.parserSettings(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔧 **Панель администратора**\n\n⚙️ Настройки парсера\n\n💰 Глобальная скидка: %s%%\n📢 ID канала уведомлений: %s\n",
		escape(discount),
		escape(channel),
	), nil
}

func (b *Bot) parserSettings(ctx context.Context) (discount, channel string, err error) {
	discount, err = b.store.GetSetting(ctx, model.SettingSiteBaseDiscount, strconv.Itoa(model.DefaultSiteBaseDiscount))
	if err != nil {
		return "", "", err
	}
	channel, err = b.store.GetSetting(ctx, model.SettingNotificationChannel, textChannelNotSet)
	if err != nil {
		return "", "", err
	}
	return discount, channel, nil
}
