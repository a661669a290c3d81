package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/wbpricebot/wbwatch/internal/export"
	"github.com/wbpricebot/wbwatch/internal/model"
	"github.com/wbpricebot/wbwatch/internal/wildberries"
)

func (b *Bot) showExportList(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	products, err := b.store.GetGlobalProducts(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return b.editAndAnswer(q, "📊 **Экспорт по товару**\n\nНет доступных товаров для экспорта", nil)
	}

	kb := productKeyboard(products, "📦", cbExportProductPrefix, 30)
	return b.editAndAnswer(q, "📊 **Экспорт по товару**\n\nВыберите товар для парсинга:", &kb)
}

// startExport acknowledges the choice and runs the export in the
// background so the update loop is not blocked by the search.
func (b *Bot) startExport(ctx context.Context, q *tgbotapi.CallbackQuery, suffix string) error {
	id, ok := callbackID(suffix)
	if !ok {
		return b.answer(q, "❌ Ошибка обработки выбора", true)
	}
	if b.newSearcher == nil {
		return b.answer(q, "❌ Экспорт недоступен", true)
	}

	p, err := b.store.GetGlobalProduct(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return b.answer(q, "❌ Товар не найден", true)
	}

	text := fmt.Sprintf("⏳ **Парсинг товара:** %s\n\nПодождите, идёт поиск результатов...", escape(p.Name))
	if err := b.editAndAnswer(q, text, nil); err != nil {
		return err
	}

	msg := q.Message
	b.background.Add(1)
	go func() {
		defer b.background.Done()
		b.exportProduct(ctx, msg, p)
	}()
	return nil
}

// exportProduct searches for p, writes the top results to a workbook and
// sends it to the chat of msg. Failures are reported by editing msg.
func (b *Bot) exportProduct(ctx context.Context, msg *tgbotapi.Message, p *model.GlobalProduct) {
	name := escape(p.Name)

	raws, err := b.exportSearch(ctx, p)
	if err != nil {
		b.logger.Error("export failed", "product", p.Name, "error", err)
		_ = b.edit(msg, fmt.Sprintf("❌ **Ошибка экспорта:** %s\n\n%s", name, escape(err.Error())), nil)
		return
	}
	if len(raws) == 0 {
		_ = b.edit(msg, fmt.Sprintf("❌ **Экспорт:** %s\n\nТовары не найдены", name), nil)
		return
	}

	top := raws[:min(exportTop, len(raws))]

	setting, err := b.store.GetSetting(ctx, model.SettingSiteBaseDiscount, "")
	if err != nil {
		b.logger.Warn("failed to read discount, using default", "error", err)
	}
	discount := wildberries.ParseDiscount(setting)

	path, err := export.FoundProducts(p.Name, top, discount)
	if err != nil {
		b.logger.Error("export failed", "product", p.Name, "error", err)
		_ = b.edit(msg, fmt.Sprintf("❌ **Ошибка экспорта:** %s\n\n%s", name, escape(err.Error())), nil)
		return
	}
	defer b.removeTemp(path)

	_ = b.edit(msg, fmt.Sprintf("✅ **Экспорт завершён:** %s", name), nil)

	caption := fmt.Sprintf("📊 **Результаты парсинга:** %s\n\n✅ Найдено товаров: %d\n📥 Топ-10 позиций", name, len(top))
	if err := b.sendFile(msg.Chat.ID, path, "export_"+p.Name+".xlsx", caption); err != nil {
		b.logger.Error("failed to send export", "product", p.Name, "error", err)
		return
	}
	b.logger.Info("export sent", "product", p.Name, "count", len(top))
}

// exportSearch returns recent results for the same search from the cache,
// otherwise searches with a fresh client.
func (b *Bot) exportSearch(ctx context.Context, p *model.GlobalProduct) ([]model.RawProduct, error) {
	key := exportKey(p)
	if raws, ok := b.exportCache.Get(key); ok {
		return raws, nil
	}

	s, err := b.newSearcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create searcher: %w", err)
	}
	raws, err := s.Search(ctx, p.Name, p.Keywords, p.Exclusions)
	if err != nil {
		return nil, err
	}
	if len(raws) > 0 {
		b.exportCache.Add(key, raws)
	}
	return raws, nil
}

func exportKey(p *model.GlobalProduct) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(p.Name)),
		model.EncodeWords(p.Keywords),
		model.EncodeWords(p.Exclusions),
	}, "\x00")
}
