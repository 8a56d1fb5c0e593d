// Package transcript owns the visible message list and the single
// in-flight send. The transcript is a disposable view: it is rebuilt
// wholesale whenever a chat is loaded or a new chat started.
package transcript

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bookchat/internal/apiclient"
	"bookchat/internal/recommend"
	"bookchat/internal/session"
	"bookchat/pkg/domain"
)

// User-facing texts, carried over from the original client.
const (
	WelcomeText = "Добро пожаловать! Я помогу вам найти интересные книги. " +
		"Вы можете спросить меня о книгах по жанру, автору или просто рассказать, что вам нравится."
	NewChatGreeting    = "Начнем новый диалог! Чем могу помочь?"
	RegisteredGreeting = "Добро пожаловать! Вы успешно зарегистрировались. " +
		"Я готов помочь вам найти интересные книги. Чем могу помочь?"
	SendErrorText      = "Извините, произошла ошибка. Пожалуйста, попробуйте еще раз."
	SessionExpiredText = "Сессия истекла. Пожалуйста, войдите снова."
)

var (
	// ErrEmptyMessage is returned for empty or whitespace-only input.
	ErrEmptyMessage = errors.New("empty message")
	// ErrBusy is returned when a send is already in flight. The
	// attempted send is dropped, not queued.
	ErrBusy = errors.New("send already in flight")
)

// Controller appends user and bot messages and enforces the
// at-most-one-in-flight-send invariant.
type Controller struct {
	api     *apiclient.Client
	session *session.Controller
	panel   *recommend.Panel
	logger  *slog.Logger

	inFlight atomic.Bool

	mu       sync.Mutex
	messages []domain.ChatMessage
	typing   bool
	onTyping func(bool)
}

// NewController starts with the fixed welcome message installed.
func NewController(api *apiclient.Client, sess *session.Controller, panel *recommend.Panel, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{api: api, session: sess, panel: panel, logger: logger}
	c.Reset()
	return c
}

// OnTypingChange registers a hook fired whenever the typing indicator
// toggles.
func (c *Controller) OnTypingChange(fn func(bool)) {
	c.mu.Lock()
	c.onTyping = fn
	c.mu.Unlock()
}

// Messages returns a snapshot of the transcript in append order.
func (c *Controller) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Typing reports whether the typing indicator is shown.
func (c *Controller) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

// InFlight reports whether a send is currently in flight.
func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

// Send posts a user message. Empty or whitespace-only input and sends
// attempted while another is in flight are dropped without any network
// call or transcript mutation. The in-flight guard and the typing
// indicator are released on every exit path.
func (c *Controller) Send(ctx context.Context, text string) (apiclient.SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return apiclient.SendResult{}, ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return apiclient.SendResult{}, ErrBusy
	}
	defer func() {
		c.setTyping(false)
		c.inFlight.Store(false)
	}()

	// The user message lands immediately; only the reply can fail.
	c.append(domain.RoleUser, text)
	c.setTyping(true)

	res, err := c.api.SendMessage(ctx, c.session.Token(), text, c.session.CurrentChatID())
	if err != nil {
		if c.session.HandleAPIError(err) {
			// Forced logout already reset the transcript.
			c.append(domain.RoleBot, SessionExpiredText)
			return apiclient.SendResult{}, err
		}
		c.append(domain.RoleBot, sendFailureText(err))
		return apiclient.SendResult{}, err
	}

	c.append(domain.RoleBot, res.Response)
	c.panel.Replace(res.Recommendations)
	c.session.BumpMessageCount()
	return res, nil
}

// LoadChat replaces the transcript wholesale with the fetched chat's
// messages in stored order and binds the session to that chat. Fetch
// failures are logged and leave the transcript untouched.
func (c *Controller) LoadChat(ctx context.Context, chatID int64) error {
	c.session.SetCurrentChat(chatID)
	chat, err := c.api.FetchChat(ctx, c.session.Token(), chatID)
	if err != nil {
		if !c.session.HandleAPIError(err) {
			c.logger.Warn("load chat", "chat_id", chatID, "err", err)
		}
		return err
	}

	now := time.Now()
	loaded := make([]domain.ChatMessage, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		loaded = append(loaded, domain.ChatMessage{
			ID:        uuid.NewString(),
			Role:      domain.RoleFromWire(m.Role),
			Content:   m.Content,
			Timestamp: now,
		})
	}
	c.mu.Lock()
	c.messages = loaded
	c.mu.Unlock()
	c.panel.Clear()
	return nil
}

// StartNew clears the transcript to the short new-chat greeting and
// unbinds the current chat. It is dropped while a send is in flight.
func (c *Controller) StartNew() bool {
	if c.inFlight.Load() {
		return false
	}
	c.session.ClearCurrentChat()
	c.install(NewChatGreeting)
	c.panel.Clear()
	return true
}

// Reset installs the fixed welcome message. Used at startup and on
// every transition to Unauthenticated.
func (c *Controller) Reset() {
	c.install(WelcomeText)
}

// AppendNotice adds a bot-authored informational message, such as the
// post-registration greeting.
func (c *Controller) AppendNotice(text string) {
	c.append(domain.RoleBot, text)
}

func (c *Controller) install(greeting string) {
	welcome := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleBot,
		Content:   greeting,
		Timestamp: time.Now(),
	}
	c.mu.Lock()
	c.messages = []domain.ChatMessage{welcome}
	c.mu.Unlock()
}

func (c *Controller) append(role domain.Role, content string) {
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

func (c *Controller) setTyping(on bool) {
	c.mu.Lock()
	changed := c.typing != on
	c.typing = on
	hook := c.onTyping
	c.mu.Unlock()
	if changed && hook != nil {
		hook(on)
	}
}

// sendFailureText prefers the server-provided detail for chat sends
// and falls back to the generic error message.
func sendFailureText(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return SendErrorText
}
