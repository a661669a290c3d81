package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbpricebot/wbwatch/internal/export"
	"github.com/wbpricebot/wbwatch/internal/model"
)

// problemsShown is how many import problems are reported back.
const problemsShown = 5

var errDownload = errors.New("failed to download document")

// handleDocument replaces the watch list with an uploaded workbook.
func (b *Bot) handleDocument(ctx context.Context, user *model.User, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if !user.IsAdmin {
		return b.replyPlain(chatID, "❌ Только админы могут загружать товары")
	}

	name := strings.ToLower(msg.Document.FileName)
	if !strings.HasSuffix(name, "xlsx") && !strings.HasSuffix(name, "xls") {
		return b.replyPlain(chatID, "❌ Загрузите файл Excel (.xlsx или .xls)")
	}
	b.states.clear(user.TelegramID)

	data, err := b.download(ctx, msg.Document.FileID)
	if err != nil {
		_ = b.replyPlain(chatID, fmt.Sprintf("❌ Ошибка при загрузке: %v", err))
		return err
	}

	products, problems, err := export.ImportGlobalProducts(bytes.NewReader(data))
	if err != nil {
		_ = b.replyPlain(chatID, fmt.Sprintf("❌ Ошибка при загрузке: %v", err))
		return err
	}

	deleted, err := b.store.ReplaceGlobalProducts(ctx, products)
	if err != nil {
		_ = b.replyPlain(chatID, fmt.Sprintf("❌ Ошибка при загрузке: %v", err))
		return err
	}
	b.logger.Info("global products replaced",
		"user_id", user.TelegramID,
		"deleted", deleted,
		"count", len(products),
		"problems", len(problems),
	)

	if err := b.reply(chatID, uploadReport(len(products), problems), nil); err != nil {
		return err
	}
	b.monitor.Trigger()
	return nil
}

func uploadReport(added int, problems []string) string {
	text := fmt.Sprintf("✅ **Добавлено товаров:** %d\n", added)
	if len(problems) > 0 {
		text += "\n⚠️ **Ошибки:**\n" + strings.Join(problems[:min(problemsShown, len(problems))], "\n")
	}
	return text
}

// download fetches a Telegram file. The direct URL embeds the bot token, so
// it never appears in returned errors.
func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDownload, err)
	}

	resp, err := b.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errDownload, strings.ReplaceAll(err.Error(), url, "<file url>"))
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", errDownload, resp.StatusCode())
	}
	return resp.Body(), nil
}
