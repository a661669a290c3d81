package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wbpricebot/wbwatch/internal/model"
)

const (
	// exportCacheSize is the number of recent export searches kept.
	exportCacheSize = 64
	// exportCacheTTL is how long an export search result is reused.
	exportCacheTTL = 5 * time.Minute
	// exportTop is the number of results written to an export workbook.
	exportTop = 10
)

// ErrNilDependency is returned by New when a required dependency is missing.
var ErrNilDependency = errors.New("bot dependency is nil")

// API is the part of the Telegram Bot API client the bot uses.
// *tgbotapi.BotAPI implements it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Store is the part of the database the bot needs.
type Store interface {
	GetOrCreateUser(ctx context.Context, telegramID int64, username string, admin bool) (*model.User, error)
	GetUser(ctx context.Context, telegramID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	GrantAccess(ctx context.Context, telegramID int64) (bool, error)
	RevokeAccess(ctx context.Context, telegramID int64) (bool, error)
	GetSetting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetGlobalProducts(ctx context.Context) ([]*model.GlobalProduct, error)
	GetGlobalProduct(ctx context.Context, id int64) (*model.GlobalProduct, error)
	UpdateThresholds(ctx context.Context, id, thrMin, thrMax int64) (bool, error)
	ReplaceGlobalProducts(ctx context.Context, products []*model.GlobalProduct) (int64, error)
	DeleteAllGlobalProducts(ctx context.Context) (int64, error)
}

// Controller is the monitor's signal interface.
type Controller interface {
	Trigger()
	Restart()
}

// Searcher runs a filtered catalogue search.
type Searcher interface {
	Search(ctx context.Context, query string, keywords, exclusions []string) ([]model.RawProduct, error)
}

// SearcherFactory creates the search client of one export. Exports get their
// own client so they never share cookies with the monitor.
type SearcherFactory func(ctx context.Context) (Searcher, error)

// Bot serves the Telegram interface: menus for users, the admin panel and
// channel notifications for the monitor.
type Bot struct {
	api         API
	store       Store
	monitor     Controller
	newSearcher SearcherFactory
	adminIDs    []int64

	logger *slog.Logger
	http   *resty.Client

	states      *states
	exportCache *expirable.LRU[string, []model.RawProduct]

	// background tracks update handlers and exports so Run can wait for them.
	background sync.WaitGroup
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithAdminIDs lists Telegram user ids that become admins on first contact.
func WithAdminIDs(ids []int64) Option {
	return func(b *Bot) {
		b.adminIDs = ids
	}
}

// WithController connects the bot to the monitor.
func WithController(c Controller) Option {
	return func(b *Bot) {
		b.monitor = c
	}
}

// WithSearcherFactory enables per-product exports.
func WithSearcherFactory(f SearcherFactory) Option {
	return func(b *Bot) {
		b.newSearcher = f
	}
}

// WithHTTPClient sets the client used to download uploaded documents.
func WithHTTPClient(c *resty.Client) Option {
	return func(b *Bot) {
		b.http = c
	}
}

// New creates a Bot.
func New(api API, store Store, opts ...Option) (*Bot, error) {
	if api == nil || store == nil {
		return nil, ErrNilDependency
	}

	b := &Bot{
		api:         api,
		store:       store,
		monitor:     noopController{},
		states:      newStates(),
		exportCache: expirable.NewLRU[string, []model.RawProduct](exportCacheSize, nil, exportCacheTTL),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.http == nil {
		b.http = resty.New().SetTimeout(time.Minute)
	}

	return b, nil
}

// SetController connects the bot to the monitor after both are created.
func (b *Bot) SetController(c Controller) {
	if c != nil {
		b.monitor = c
	}
}

// Run registers the command list and handles updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.registerCommands(); err != nil {
		b.logger.Warn("failed to register commands", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started")
	defer b.background.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.background.Add(1)
			go func() {
				defer b.background.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches one update. Errors are logged, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil:
		err = b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.ChannelPost != nil:
		err = b.handleChannelPost(update.ChannelPost)
	}
	if err != nil {
		b.logger.Error("failed to handle update",
			"update_id", update.UpdateID,
			"error", err,
		)
	}
}

// SendMarkdown sends text to a chat given as a numeric id, "@name" or "name".
func (b *Bot) SendMarkdown(_ context.Context, chatID, text string) error {
	chatID = strings.TrimSpace(chatID)

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		if !strings.HasPrefix(chatID, "@") {
			chatID = "@" + chatID
		}
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send to %s: %w", chatID, err)
	}
	return nil
}

func (b *Bot) registerCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "🚀 Главное меню"},
		tgbotapi.BotCommand{Command: "parser", Description: "🔍 Меню парсера"},
		tgbotapi.BotCommand{Command: "profile", Description: "👤 Профиль"},
		tgbotapi.BotCommand{Command: "admin", Description: "🔧 Панель администратора"},
		tgbotapi.BotCommand{Command: "status", Description: "📊 Статус парсинга"},
		tgbotapi.BotCommand{Command: "debugid", Description: "🆔 ID текущего чата"},
	)
	_, err := b.api.Request(cfg)
	return err
}

// authenticate creates the user on first contact and returns the stored record.
func (b *Bot) authenticate(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	if from == nil {
		return nil, nil
	}
	user, err := b.store.GetOrCreateUser(ctx, from.ID, from.UserName, b.isAdminID(from.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate %d: %w", from.ID, err)
	}
	fresh, err := b.store.GetUser(ctx, from.ID)
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		return fresh, nil
	}
	return user, nil
}

func (b *Bot) isAdminID(id int64) bool {
	for _, a := range b.adminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// reply sends a Markdown message to chatID.
func (b *Bot) reply(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := b.api.Send(msg)
	return err
}

// replyPlain sends text without formatting.
func (b *Bot) replyPlain(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// edit replaces the text (and keyboard) of a bot message.
func (b *Bot) edit(msg *tgbotapi.Message, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	var cfg tgbotapi.EditMessageTextConfig
	if markup != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text, *markup)
	} else {
		cfg = tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	}
	cfg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Request(cfg)
	return err
}

// answer acknowledges a callback query, optionally with an alert.
func (b *Bot) answer(q *tgbotapi.CallbackQuery, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(q.ID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(q.ID, text)
	}
	_, err := b.api.Request(cfg)
	return err
}

// escape makes user supplied text safe inside legacy Markdown.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

type noopController struct{}

func (noopController) Trigger() {}
func (noopController) Restart() {}
