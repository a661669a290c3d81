package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/wbpricebot/wbwatch/internal/database"
	"github.com/wbpricebot/wbwatch/internal/export"
	"github.com/wbpricebot/wbwatch/internal/model"
)

const (
	adminID = int64(1)
	userID  = int64(2)
)

// fakeAPI records every Send and Request in call order.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []tgbotapi.Chattable
	fileURL string
	updates chan tgbotapi.Update
	stopped atomic.Bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return tgbotapi.Message{MessageID: len(f.calls)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("no file")
	}
	return f.fileURL, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.stopped.Store(true)
}

func (f *fakeAPI) snapshot() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.calls...)
}

// texts returns the visible text of every recorded call.
func (f *fakeAPI) texts() []string {
	var out []string
	for _, c := range f.snapshot() {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, v.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, v.Text)
		case tgbotapi.CallbackConfig:
			if v.Text != "" {
				out = append(out, v.Text)
			}
		case tgbotapi.DocumentConfig:
			out = append(out, v.Caption)
		}
	}
	return out
}

func (f *fakeAPI) said(substr string) bool {
	for _, s := range f.texts() {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func (f *fakeAPI) documents() []tgbotapi.DocumentConfig {
	var out []tgbotapi.DocumentConfig
	for _, c := range f.snapshot() {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeAPI) alerts() []tgbotapi.CallbackConfig {
	var out []tgbotapi.CallbackConfig
	for _, c := range f.snapshot() {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok && cb.ShowAlert {
			out = append(out, cb)
		}
	}
	return out
}

type fakeController struct {
	triggers atomic.Int32
	restarts atomic.Int32
}

func (c *fakeController) Trigger() { c.triggers.Add(1) }
func (c *fakeController) Restart() { c.restarts.Add(1) }

type fakeSearcher struct {
	results []model.RawProduct
}

func (s *fakeSearcher) Search(context.Context, string, []string, []string) ([]model.RawProduct, error) {
	return s.results, nil
}

type testEnv struct {
	bot   *Bot
	api   *fakeAPI
	store *database.Store
	ctrl  *fakeController
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	store, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "parser.db"), database.Options{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	api := newFakeAPI()
	ctrl := &fakeController{}
	opts = append([]Option{WithAdminIDs([]int64{adminID}), WithController(ctrl)}, opts...)
	b, err := New(api, store, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{bot: b, api: api, store: store, ctrl: ctrl}
}

func (e *testEnv) handle(u tgbotapi.Update) {
	e.bot.HandleUpdate(context.Background(), u)
}

func (e *testEnv) addProduct(t *testing.T, name string, lo, hi int64) *model.GlobalProduct {
	t.Helper()

	p, err := e.store.AddGlobalProduct(context.Background(), &model.GlobalProduct{Name: name, ThresholdMin: lo, ThresholdMax: model.Threshold(hi)})
	if err != nil {
		t.Fatalf("AddGlobalProduct() error = %v", err)
	}
	return p
}

func message(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: "user" + strconv.FormatInt(from, 10)},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		n := strings.IndexByte(text+" ", ' ')
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: from}},
	}}
}

func document(from int64, name string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Document:  &tgbotapi.Document{FileID: "file", FileName: name},
	}}
}

func raw(id int64, name string, rubles int64) model.RawProduct {
	return model.RawProduct{
		"id":   float64(id),
		"name": name,
		"sizes": []any{
			map[string]any{"price": map[string]any{"product": float64(rubles * 100)}},
		},
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); !errors.Is(err, ErrNilDependency) {
		t.Errorf("expected ErrNilDependency, got %v", err)
	}
}

func TestSendMarkdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		chat        string
		wantID      int64
		wantChannel string
	}{
		{name: "numeric id", chat: " -100123 ", wantID: -100123},
		{name: "public channel", chat: "@deals", wantChannel: "@deals"},
		{name: "bare channel name", chat: "deals", wantChannel: "@deals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			if err := env.bot.SendMarkdown(context.Background(), tt.chat, "*hi*"); err != nil {
				t.Fatalf("SendMarkdown() error = %v", err)
			}

			calls := env.api.snapshot()
			if len(calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(calls))
			}
			msg, ok := calls[0].(tgbotapi.MessageConfig)
			if !ok {
				t.Fatalf("expected MessageConfig, got %T", calls[0])
			}
			if msg.ChatID != tt.wantID || msg.ChannelUsername != tt.wantChannel {
				t.Errorf("chat = (%d, %q), want (%d, %q)", msg.ChatID, msg.ChannelUsername, tt.wantID, tt.wantChannel)
			}
			if msg.ParseMode != tgbotapi.ModeMarkdown {
				t.Errorf("parse mode = %q", msg.ParseMode)
			}
		})
	}
}

func TestStartMenu(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from     int64
		wantRows int
	}{
		{name: "admin sees admin button", from: adminID, wantRows: 3},
		{name: "user does not", from: userID, wantRows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.handle(message(tt.from, "/start"))

			calls := env.api.snapshot()
			if len(calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(calls))
			}
			msg := calls[0].(tgbotapi.MessageConfig)
			kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
			if !ok {
				t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
			}
			if len(kb.InlineKeyboard) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(kb.InlineKeyboard), tt.wantRows)
			}
			if !strings.Contains(msg.Text, "WB Parser Bot") {
				t.Errorf("unexpected greeting %q", msg.Text)
			}
		})
	}
}

func TestFirstContactCreatesUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(message(adminID, "/profile"))
	env.handle(message(userID, "/profile"))

	admin, err := env.store.GetUser(context.Background(), adminID)
	if err != nil || admin == nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !admin.IsAdmin || !admin.HasAccess {
		t.Errorf("admin flags = %+v", admin)
	}

	user, err := env.store.GetUser(context.Background(), userID)
	if err != nil || user == nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.IsAdmin || user.HasAccess {
		t.Errorf("user flags = %+v", user)
	}
	if !env.api.said("❌ Нет доступа") || !env.api.said("user2") {
		t.Errorf("unexpected profile texts %q", env.api.texts())
	}
}

func TestAccessRules(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(message(userID, "/parser"))
	env.handle(message(userID, "/admin"))
	env.handle(message(userID, "/status"))
	env.handle(callback(userID, cbParserMenu))
	env.handle(callback(userID, cbAdminMenu))
	env.handle(callback(userID, cbExportProductPrefix+"1"))

	want := []string{
		"❌ У вас нет доступа к парсеру",
		textAdminOnlyPanel,
		textNoAccess,
		textNoAccess,
		textNoAdminAccess,
		textNoAccess,
	}
	if diff := cmp.Diff(want, env.api.texts()); diff != "" {
		t.Errorf("texts mismatch (-want +got):\n%s", diff)
	}
	if n := len(env.api.alerts()); n != 3 {
		t.Errorf("alerts = %d, want 3", n)
	}
}

func TestSiteDiscountInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		setting string
	}{
		{name: "plain number", input: "15", want: "**15%**", setting: "15"},
		{name: "with percent and spaces", input: " 7 % ", want: "**7%**", setting: "7"},
		{name: "no digits", input: "abc", want: "❌ Введите целое число", setting: "none"},
		{name: "out of range", input: "150", want: "❌ Значение должно быть от 0 до 100", setting: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.handle(callback(adminID, cbAdminSetDiscount))
			if got := env.bot.states.get(adminID).step; got != stepSiteDiscount {
				t.Fatalf("step = %v, want %v", got, stepSiteDiscount)
			}

			env.handle(message(adminID, tt.input))

			if !env.api.said(tt.want) {
				t.Errorf("expected reply containing %q, got %q", tt.want, env.api.texts())
			}
			got, err := env.store.GetSetting(context.Background(), model.SettingSiteBaseDiscount, "none")
			if err != nil {
				t.Fatalf("GetSetting() error = %v", err)
			}
			if got != tt.setting {
				t.Errorf("setting = %q, want %q", got, tt.setting)
			}
			if got := env.bot.states.get(adminID).step; got != stepNone {
				t.Errorf("prompt still open: %v", got)
			}
		})
	}
}

func TestChannelInput(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(callback(adminID, cbAdminSetChannel))
	if !env.api.said("/debugid") {
		t.Errorf("prompt does not mention /debugid: %q", env.api.texts())
	}

	env.handle(message(adminID, "   "))
	if !env.api.said("❌ ID канала не может быть пустым") {
		t.Error("expected empty channel rejection")
	}
	if got := env.bot.states.get(adminID).step; got != stepChannelID {
		t.Fatalf("prompt closed after empty input: %v", got)
	}

	env.handle(message(adminID, " -100555 "))
	got, err := env.store.GetSetting(context.Background(), model.SettingNotificationChannel, "")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if got != "-100555" {
		t.Errorf("channel = %q, want -100555", got)
	}
	if got := env.bot.states.get(adminID).step; got != stepNone {
		t.Errorf("prompt still open: %v", got)
	}
}

func TestCommandResetsPrompt(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(callback(adminID, cbAdminSetDiscount))
	env.handle(message(adminID, "/status"))
	env.handle(message(adminID, "42"))

	if got := env.bot.states.get(adminID).step; got != stepNone {
		t.Errorf("step = %v, want none", got)
	}
	got, err := env.store.GetSetting(context.Background(), model.SettingSiteBaseDiscount, "none")
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if got != "none" {
		t.Errorf("discount changed to %q after a command", got)
	}
	if !env.api.said("Статус парсинга") {
		t.Error("expected status reply")
	}
}

func TestPriceUpdate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	blue := env.addProduct(t, "iPhone 17 Pro Max 512GB Blue", 1, 2)
	other := env.addProduct(t, "iPhone 17 Pro Max 512GB Orange", 3, 4)

	env.handle(callback(adminID, cbAdminUpdatePrices))
	env.handle(message(adminID, strings.Join([]string{
		"🇭🇰 Sim+eSim 17 Pro Max 512GB Blue — 134000₽",
		"🇭🇰 eSim 16 Pro 128GB White — 90000₽",
		"no dash here",
	}, "\n")))

	got, err := env.store.GetGlobalProduct(context.Background(), blue.ID)
	if err != nil {
		t.Fatalf("GetGlobalProduct() error = %v", err)
	}
	if w := got.ThresholdLabel(); w != "104610-122610" {
		t.Errorf("window = %s, want 104610-122610", w)
	}

	untouched, err := env.store.GetGlobalProduct(context.Background(), other.ID)
	if err != nil {
		t.Fatalf("GetGlobalProduct() error = %v", err)
	}
	if w := untouched.ThresholdLabel(); w != "3-4" {
		t.Errorf("unmatched product changed: %s", w)
	}

	if !env.api.said("Обновлено товаров: **1**") || !env.api.said("Не найдено в БД (1)") {
		t.Errorf("unexpected report %q", env.api.texts())
	}
	if n := env.ctrl.triggers.Load(); n != 1 {
		t.Errorf("triggers = %d, want 1", n)
	}
}

func TestPriceUpdateUnparsable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(callback(adminID, cbAdminUpdatePrices))
	env.handle(message(adminID, "hello"))

	if !env.api.said("❌ Не удалось распарсить ни одного товара") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
	if n := env.ctrl.triggers.Load(); n != 0 {
		t.Errorf("triggers = %d, want 0", n)
	}
}

func TestPriceUpdateReport(t *testing.T) {
	t.Parallel()

	var notFound []string
	for i := range 7 {
		notFound = append(notFound, fmt.Sprintf("line_%d", i))
	}
	report := priceUpdateReport(2, notFound)

	if !strings.Contains(report, "• line\\_4\n") || strings.Contains(report, "line\\_5") {
		t.Errorf("expected the first 5 lines only:\n%s", report)
	}
	if !strings.Contains(report, "• ... и ещё 2") {
		t.Errorf("expected remainder line:\n%s", report)
	}
}

func TestPriceRangeEdit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	p := env.addProduct(t, "iPhone 16", 1, 2)

	env.handle(callback(adminID, cbEditPricePrefix+strconv.FormatInt(p.ID, 10)))
	st := env.bot.states.get(adminID)
	if st.step != stepPriceRange || st.productID != p.ID {
		t.Fatalf("state = %+v", st)
	}

	env.handle(message(adminID, "cheap"))
	if !env.api.said("❌ Неверный формат") {
		t.Error("expected format error")
	}
	if env.bot.states.get(adminID).step != stepPriceRange {
		t.Fatal("prompt closed after bad input")
	}

	env.handle(message(adminID, "70 000 - 54 000 ₽"))

	got, err := env.store.GetGlobalProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetGlobalProduct() error = %v", err)
	}
	if w := got.ThresholdLabel(); w != "54000-70000" {
		t.Errorf("window = %s, want 54000-70000", w)
	}
	if !env.api.said("`54000-70000`") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
	if env.bot.states.get(adminID).step != stepNone {
		t.Error("prompt still open")
	}
	if n := env.ctrl.triggers.Load(); n != 1 {
		t.Errorf("triggers = %d, want 1", n)
	}
}

func TestPriceEditUnknownProduct(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(callback(adminID, cbEditPricePrefix+"999"))
	env.handle(callback(adminID, cbEditPricePrefix+"abc"))

	alerts := env.api.alerts()
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(alerts))
	}
	if alerts[0].Text != "❌ Товар не найден" || alerts[1].Text != "❌ Ошибка обработки выбора" {
		t.Errorf("unexpected alerts %+v", alerts)
	}
}

func TestProductPages(t *testing.T) {
	t.Parallel()

	if pages := productPages(nil); len(pages) != 0 {
		t.Errorf("expected no pages, got %d", len(pages))
	}

	var products []*model.GlobalProduct
	for i := range 200 {
		products = append(products, &model.GlobalProduct{
			Name:         fmt.Sprintf("iPhone_%03d %s", i, strings.Repeat("x", 60)),
			ThresholdMin: 50000,
			ThresholdMax: model.Threshold(60000),
		})
	}

	pages := productPages(products)
	if len(pages) < 2 {
		t.Fatalf("expected several pages, got %d", len(pages))
	}

	lines := 0
	for i, page := range pages {
		if n := utf8.RuneCountInString(page); n > maxPageLength {
			t.Errorf("page %d has %d characters", i, n)
		}
		header := productsContinued
		if i == 0 {
			header = productsHeader
		}
		if !strings.HasPrefix(page, header) {
			t.Errorf("page %d has wrong header", i)
		}
		lines += strings.Count(page, "руб.\n")
	}
	if lines != len(products) {
		t.Errorf("listed %d products, want %d", lines, len(products))
	}
	if !strings.HasPrefix(strings.TrimPrefix(pages[0], productsHeader), "1. iPhone\\_000 ") {
		t.Errorf("unexpected first line in %q", pages[0][:120])
	}
	if !strings.Contains(pages[0], "`50000-60000` руб.") {
		t.Error("missing threshold label")
	}
}

func TestShowProducts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(callback(adminID, cbMyProducts))
	if !env.api.said(textNoProductsYet) {
		t.Errorf("unexpected texts %q", env.api.texts())
	}

	env.addProduct(t, "iPhone 16", 50000, 60000)
	env.handle(callback(adminID, cbMyProducts))
	if !env.api.said("1. iPhone 16 – `50000-60000` руб.") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
}

func workbook(t *testing.T, products []*model.GlobalProduct) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := export.WriteGlobalProducts(&buf, products); err != nil {
		t.Fatalf("WriteGlobalProducts() error = %v", err)
	}
	return buf.Bytes()
}

func TestDocumentUpload(t *testing.T) {
	t.Parallel()

	data := workbook(t, []*model.GlobalProduct{
		{Name: "iPhone 16", ThresholdMin: 50000, ThresholdMax: model.Threshold(60000), Exclusions: []string{"чехол"}},
		{Name: "iPhone 17", ThresholdMin: 70000, ThresholdMax: model.Threshold(80000)},
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	env := newTestEnv(t)
	env.api.fileURL = srv.URL + "/file/bot/list.xlsx"
	env.addProduct(t, "Old", 1, 2)

	env.handle(document(adminID, "List.XLSX"))

	products, err := env.store.GetGlobalProducts(context.Background())
	if err != nil {
		t.Fatalf("GetGlobalProducts() error = %v", err)
	}
	var names []string
	for _, p := range products {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"iPhone 16", "iPhone 17"}, names); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
	if !env.api.said("✅ **Добавлено товаров:** 2") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
	if n := env.ctrl.triggers.Load(); n != 1 {
		t.Errorf("triggers = %d, want 1", n)
	}
}

func TestDocumentUploadRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from int64
		file string
		want string
	}{
		{name: "not an admin", from: userID, file: "list.xlsx", want: "❌ Только админы могут загружать товары"},
		{name: "not a workbook", from: adminID, file: "list.csv", want: "❌ Загрузите файл Excel (.xlsx или .xls)"},
		{name: "download fails", from: adminID, file: "list.xlsx", want: "❌ Ошибка при загрузке"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.addProduct(t, "Keep", 1, 2)
			env.handle(document(tt.from, tt.file))

			if !env.api.said(tt.want) {
				t.Errorf("expected %q, got %q", tt.want, env.api.texts())
			}
			products, err := env.store.GetGlobalProducts(context.Background())
			if err != nil {
				t.Fatalf("GetGlobalProducts() error = %v", err)
			}
			if len(products) != 1 {
				t.Errorf("products = %d, want 1", len(products))
			}
		})
	}
}

func TestUploadReport(t *testing.T) {
	t.Parallel()

	problems := []string{"a", "b", "c", "d", "e", "f"}
	want := "✅ **Добавлено товаров:** 3\n\n⚠️ **Ошибки:**\na\nb\nc\nd\ne"
	if got := uploadReport(3, problems); got != want {
		t.Errorf("uploadReport() = %q, want %q", got, want)
	}
	if got := uploadReport(0, nil); got != "✅ **Добавлено товаров:** 0\n" {
		t.Errorf("uploadReport() = %q", got)
	}
}

func TestExportProduct(t *testing.T) {
	t.Parallel()

	var results []model.RawProduct
	for i := range 12 {
		results = append(results, raw(int64(100+i), fmt.Sprintf("iPhone 16 #%d", i), int64(80000+i)))
	}
	var created atomic.Int32
	factory := func(context.Context) (Searcher, error) {
		created.Add(1)
		return &fakeSearcher{results: results}, nil
	}

	env := newTestEnv(t, WithSearcherFactory(factory))
	p := env.addProduct(t, "iPhone 16", 70000, 90000)

	for range 2 {
		env.handle(callback(adminID, cbExportProductPrefix+strconv.FormatInt(p.ID, 10)))
		env.bot.background.Wait()
	}

	docs := env.api.documents()
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}
	file, ok := docs[0].File.(tgbotapi.FileBytes)
	if !ok {
		t.Fatalf("expected FileBytes, got %T", docs[0].File)
	}
	if file.Name != "export_iPhone 16.xlsx" || len(file.Bytes) == 0 {
		t.Errorf("unexpected file %q (%d bytes)", file.Name, len(file.Bytes))
	}
	if !strings.Contains(docs[0].Caption, "Найдено товаров: 10") {
		t.Errorf("unexpected caption %q", docs[0].Caption)
	}
	if n := created.Load(); n != 1 {
		t.Errorf("searchers created = %d, want 1 (second export is cached)", n)
	}
	if !env.api.said("✅ **Экспорт завершён:** iPhone 16") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
}

func TestExportNothingFound(t *testing.T) {
	t.Parallel()

	factory := func(context.Context) (Searcher, error) {
		return &fakeSearcher{}, nil
	}
	env := newTestEnv(t, WithSearcherFactory(factory))
	p := env.addProduct(t, "iPhone 16", 70000, 90000)

	env.handle(callback(adminID, cbExportProductPrefix+strconv.FormatInt(p.ID, 10)))
	env.bot.background.Wait()

	if !env.api.said("Товары не найдены") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
	if n := len(env.api.documents()); n != 0 {
		t.Errorf("documents = %d, want 0", n)
	}
}

func TestExportUnavailable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(callback(adminID, cbExportProductPrefix+"1"))

	alerts := env.api.alerts()
	if len(alerts) != 1 || alerts[0].Text != "❌ Экспорт недоступен" {
		t.Errorf("unexpected alerts %+v", alerts)
	}
}

func TestBulkEdit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addProduct(t, "iPhone 16", 50000, 60000)
	env.handle(callback(adminID, cbBulkEdit))

	docs := env.api.documents()
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	if file := docs[0].File.(tgbotapi.FileBytes); file.Name != "my_products_1.xlsx" {
		t.Errorf("file name = %q", file.Name)
	}
	if got := env.bot.states.get(adminID).step; got != stepBulkEditUpload {
		t.Errorf("step = %v, want %v", got, stepBulkEditUpload)
	}
}

func TestBulkEditEmpty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(callback(adminID, cbBulkEdit))

	if n := len(env.api.documents()); n != 0 {
		t.Errorf("documents = %d, want 0", n)
	}
	if !env.api.said(textNoProductsYet) {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
}

func TestAdminActions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addProduct(t, "iPhone 16", 1, 2)
	env.addProduct(t, "iPhone 17", 1, 2)

	env.handle(callback(adminID, cbAdminClearTables))
	if !env.api.said("📦 Глобальные товары: 2") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}

	env.handle(callback(adminID, cbAdminRestart))
	if env.ctrl.restarts.Load() != 1 || env.ctrl.triggers.Load() != 1 {
		t.Errorf("restarts = %d, triggers = %d", env.ctrl.restarts.Load(), env.ctrl.triggers.Load())
	}
	if !env.api.said("✅ Парсер перезапускается") {
		t.Error("expected restart answer")
	}

	env.handle(callback(adminID, cbAdminParserSettings))
	if !env.api.said("💰 Глобальная скидка: 11%") {
		t.Errorf("unexpected texts %q", env.api.texts())
	}
}

func TestUsersAndGrant(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(message(userID, "/start"))
	env.handle(message(adminID, "/grant abc"))
	env.handle(message(adminID, "/grant 2"))
	env.handle(message(userID, "/grant 2"))
	env.handle(message(adminID, "/revoke 77"))

	user, err := env.store.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !user.HasAccess {
		t.Error("access not granted")
	}
	for _, want := range []string{"Использование: /grant <telegram_id>", "✅ Доступ выдан: `2`", "❌ Пользователь не найден"} {
		if !env.api.said(want) {
			t.Errorf("missing %q in %q", want, env.api.texts())
		}
	}

	env.handle(callback(adminID, cbAdminUsers))
	if !env.api.said("`2` ✅  user2") {
		t.Errorf("unexpected users list %q", env.api.texts())
	}
}

func TestDebugIDInChannel(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.handle(tgbotapi.Update{ChannelPost: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: -100777, Type: "channel"},
		Text:     "/debugid",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Length: 8}},
	}})

	calls := env.api.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	msg := calls[0].(tgbotapi.MessageConfig)
	if msg.ChatID != -100777 || !strings.Contains(msg.Text, "`-100777`") {
		t.Errorf("unexpected reply %+v", msg)
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.bot.Run(ctx) }()

	env.api.updates <- message(adminID, "/start")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	if !env.api.stopped.Load() {
		t.Error("updates were not stopped")
	}
	calls := env.api.snapshot()
	if _, ok := calls[0].(tgbotapi.SetMyCommandsConfig); !ok {
		t.Errorf("first call = %T, want SetMyCommandsConfig", calls[0])
	}
	if !env.api.said("WB Parser Bot") {
		t.Error("update was not handled")
	}
}
