package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/wbpricebot/wbwatch/internal/matcher"
	"github.com/wbpricebot/wbwatch/internal/metrics"
	"github.com/wbpricebot/wbwatch/internal/model"
	"github.com/wbpricebot/wbwatch/internal/wildberries"
)

// Offer is a found product that fits a watch row's window.
type Offer struct {
	Info  *model.ProductInfo
	Row   *model.GlobalProduct
	Price int64 // after the site discount
}

// FormatMessage renders the channel message for an offer.
// The text uses Telegram's legacy Markdown.
func FormatMessage(o Offer) string {
	_, hi := o.Row.Window()

	var b strings.Builder
	fmt.Fprintf(&b, "%s — %d шт.\n\n", o.Info.Name, o.Info.Stock)
	fmt.Fprintf(&b, "Цена: %d₽ -- ( %d ₽)\n", o.Price, hi-o.Price)
	fmt.Fprintf(&b, "Порог: %d₽ | %s\n", hi, o.Row.Name)

	if link := wildberries.SellerURL(o.Info.SupplierID); link != "" {
		fmt.Fprintf(&b, "\n🏪 **Продавец:** [%s](%s)\n", o.Info.Seller, link)
	} else {
		fmt.Fprintf(&b, "\n**Продавец:** %s\n", o.Info.Seller)
	}

	fmt.Fprintf(&b, "\nСсылка: %s", o.Info.URL)
	return b.String()
}

// Offers returns every (product, row) pair where the discounted price lies
// in the row's window and the product name carries the row's model.
// Products without a positive price are skipped.
func Offers(rows []*model.GlobalProduct, found []model.RawProduct, discount int) []Offer {
	var offers []Offer
	for _, raw := range found {
		info, ok := wildberries.ExtractProductInfo(raw)
		if !ok {
			continue
		}
		price := wildberries.ApplyDiscount(info.Price, discount)
		for _, row := range rows {
			if !matcher.ModelMatches(row.Name, info.Name) {
				continue
			}
			if !row.InWindow(price) {
				continue
			}
			offers = append(offers, Offer{Info: info, Row: row, Price: price})
		}
	}
	return offers
}

// handleResults turns one group's search results into notifications.
func (m *Monitor) handleResults(ctx context.Context, g Group, found []model.RawProduct) {
	setting, err := m.store.GetSetting(ctx, model.SettingSiteBaseDiscount, "")
	if err != nil {
		m.logger.Warn("failed to read discount setting", "error", err)
	}
	discount := wildberries.ParseDiscount(setting)

	offers := Offers(g.Rows, found, discount)
	if len(offers) == 0 {
		return
	}

	channel, err := m.store.GetSetting(ctx, model.SettingNotificationChannel, "")
	if err != nil {
		m.logger.Warn("failed to read channel setting", "error", err)
		return
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		m.logger.Debug("no notification channel configured", "query", g.Name, "count", len(offers))
		return
	}

	for _, o := range offers {
		if ctx.Err() != nil {
			return
		}
		if err := m.notify(ctx, channel, o); err != nil {
			m.logger.Warn("failed to send notification",
				"url", o.Info.URL,
				"error", err,
			)
		}
	}
}

// notify announces o unless the same URL was already announced at the same
// or a lower price. Sends are spaced by at least SendSpacing.
func (m *Monitor) notify(ctx context.Context, channel string, o Offer) error {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	prev, err := m.store.GetSentNotification(ctx, o.Info.URL)
	if err != nil {
		return fmt.Errorf("failed to read notification record: %w", err)
	}
	if !model.ShouldNotify(prev, o.Price) {
		return nil
	}

	if !m.lastSend.IsZero() {
		if wait := SendSpacing - m.now().Sub(m.lastSend); wait > 0 {
			if err := m.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	err = m.sender.SendMarkdown(ctx, channel, FormatMessage(o))
	m.lastSend = m.now()
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	metrics.NotificationsSent.Inc()

	m.logger.Info("notification sent",
		"product", o.Info.Name,
		"price", o.Price,
		"row", o.Row.Name,
	)

	if err := m.store.UpsertSentNotification(ctx, o.Info.URL, float64(o.Price), o.Info.Name, channel); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}
