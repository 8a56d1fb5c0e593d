// Package session owns the authentication state machine: which of the
// two top-level views is active, the current user, and the identity of
// the chat the transcript is bound to.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"bookchat/internal/apiclient"
	"bookchat/internal/tokenstore"
	"bookchat/internal/validate"
	"bookchat/pkg/domain"
)

// State is one of the two top-level client states.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Controller holds the session state. Invariant: user is non-nil only
// while token is non-empty; a 401 from any authenticated call clears
// both atomically.
type Controller struct {
	api    *apiclient.Client
	tokens *tokenstore.Store
	logger *slog.Logger

	mu            sync.Mutex
	token         string
	user          *domain.User
	currentChatID *int64
	chats         []domain.Chat
	historyLimit  int
	onChange      func(State)
}

// NewController starts in the Unauthenticated state; call Restore to
// pick up a persisted token.
func NewController(api *apiclient.Client, tokens *tokenstore.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{api: api, tokens: tokens, logger: logger}
}

// SetHistoryLimit caps the cached chat list at n entries. Zero means
// unlimited.
func (c *Controller) SetHistoryLimit(n int) {
	c.mu.Lock()
	c.historyLimit = n
	c.mu.Unlock()
}

// OnStateChange registers a hook fired after every state transition,
// outside the controller lock.
func (c *Controller) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State reports the current top-level state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.user != nil {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// Token returns the current bearer token, or "" when unauthenticated.
func (c *Controller) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// User returns a copy of the current user, or nil.
func (c *Controller) User() *domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// CurrentChatID returns the selected chat id, or nil for a new,
// unsaved chat.
func (c *Controller) CurrentChatID() *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentChatID == nil {
		return nil
	}
	id := *c.currentChatID
	return &id
}

// SetCurrentChat binds the transcript to a historical chat.
func (c *Controller) SetCurrentChat(id int64) {
	c.mu.Lock()
	c.currentChatID = &id
	c.mu.Unlock()
}

// ClearCurrentChat switches back to a new, unsaved chat.
func (c *Controller) ClearCurrentChat() {
	c.mu.Lock()
	c.currentChatID = nil
	c.mu.Unlock()
}

// Chats returns a snapshot of the loaded chat history list.
func (c *Controller) Chats() []domain.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Chat, len(c.chats))
	copy(out, c.chats)
	return out
}

// Restore enters Authenticated when a stored token exists and the
// current-user fetch succeeds; any failure clears the stale token and
// lands in Unauthenticated.
func (c *Controller) Restore(ctx context.Context) State {
	token, err := c.tokens.Get()
	if err != nil {
		if !errors.Is(err, tokenstore.ErrNoToken) {
			c.logger.Warn("read stored token", "err", err)
		}
		return StateUnauthenticated
	}
	user, err := c.api.CurrentUser(ctx, token)
	if err != nil {
		c.logger.Info("stored token rejected", "err", err)
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn("clear stale token", "err", err)
		}
		return StateUnauthenticated
	}
	c.enterAuthenticated(ctx, token, user)
	return StateAuthenticated
}

// Login validates the form, exchanges credentials for a token and
// loads the user profile. The session becomes Authenticated only when
// both calls succeed.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	if err := validate.Login(username, password); err != nil {
		return err
	}
	token, err := c.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := c.tokens.Set(token); err != nil {
		// The session still works for this run; only restarts lose it.
		c.logger.Warn("persist token", "err", err)
	}
	user, err := c.api.CurrentUser(ctx, token)
	if err != nil {
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn("clear token", "err", err)
		}
		return err
	}
	c.enterAuthenticated(ctx, token, user)
	return nil
}

// Register validates the form, creates the account and immediately
// logs in.
func (c *Controller) Register(ctx context.Context, username, email, password, passwordConfirm string) error {
	if err := validate.Registration(username, email, password, passwordConfirm); err != nil {
		return err
	}
	if _, err := c.api.Register(ctx, username, email, password); err != nil {
		return err
	}
	return c.Login(ctx, username, password)
}

// Logout clears the persisted token and all session state.
func (c *Controller) Logout() {
	c.forceLogout()
}

// HandleAPIError forces a logout when an authenticated call reported
// 401 and returns true in that case. The transition fires at most once
// per session: a second 401 against an already-terminated session is a
// no-op.
func (c *Controller) HandleAPIError(err error) bool {
	if !apiclient.IsUnauthorized(err) {
		return false
	}
	c.forceLogout()
	return true
}

// RefreshChats reloads the chat history list. Failures are logged and
// swallowed; the previous list stays visible.
func (c *Controller) RefreshChats(ctx context.Context) {
	token := c.Token()
	if token == "" {
		return
	}
	chats, err := c.api.ListChats(ctx, token)
	if err != nil {
		if c.HandleAPIError(err) {
			return
		}
		c.logger.Warn("load chat history", "err", err)
		return
	}
	c.mu.Lock()
	if c.historyLimit > 0 && len(chats) > c.historyLimit {
		chats = chats[:c.historyLimit]
	}
	c.chats = chats
	c.mu.Unlock()
}

// ClearHistory deletes all chats on the server, then empties the local
// list and unbinds the current chat.
func (c *Controller) ClearHistory(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if err := c.api.ClearChats(ctx, token); err != nil {
		c.HandleAPIError(err)
		return err
	}
	c.mu.Lock()
	c.chats = nil
	c.currentChatID = nil
	c.mu.Unlock()
	return nil
}

// RenameChat retitles a saved chat and refreshes the local list.
func (c *Controller) RenameChat(ctx context.Context, chatID int64, title string) error {
	token := c.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if _, err := c.api.RenameChat(ctx, token, chatID, title); err != nil {
		c.HandleAPIError(err)
		return err
	}
	c.RefreshChats(ctx)
	return nil
}

// DeleteChat removes one saved chat. When the deleted chat is the
// current one, the session unbinds from it.
func (c *Controller) DeleteChat(ctx context.Context, chatID int64) error {
	token := c.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if err := c.api.DeleteChat(ctx, token, chatID); err != nil {
		c.HandleAPIError(err)
		return err
	}
	c.mu.Lock()
	if c.currentChatID != nil && *c.currentChatID == chatID {
		c.currentChatID = nil
	}
	c.mu.Unlock()
	c.RefreshChats(ctx)
	return nil
}

// UpdateProfile applies a partial profile update and replaces the
// cached user with the server's answer.
func (c *Controller) UpdateProfile(ctx context.Context, update apiclient.UserUpdate) error {
	token := c.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	user, err := c.api.UpdateCurrentUser(ctx, token, update)
	if err != nil {
		c.HandleAPIError(err)
		return err
	}
	c.mu.Lock()
	c.user = &user
	c.mu.Unlock()
	return nil
}

// ListFavorites fetches the user's favorite books.
func (c *Controller) ListFavorites(ctx context.Context) ([]domain.Book, error) {
	token := c.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	books, err := c.api.ListFavorites(ctx, token)
	if err != nil {
		c.HandleAPIError(err)
		return nil, err
	}
	return books, nil
}

// AddFavorite stores a recommended book in the user's favorites.
func (c *Controller) AddFavorite(ctx context.Context, book domain.Book) error {
	token := c.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if err := c.api.AddFavorite(ctx, token, book); err != nil {
		c.HandleAPIError(err)
		return err
	}
	return nil
}

// RemoveFavorite deletes one book from the user's favorites.
func (c *Controller) RemoveFavorite(ctx context.Context, bookID string) error {
	token := c.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if err := c.api.RemoveFavorite(ctx, token, bookID); err != nil {
		c.HandleAPIError(err)
		return err
	}
	return nil
}

// BumpMessageCount increments the displayed sent-messages counter.
// The counter is optimistic: it is not re-read from the server after
// each send.
func (c *Controller) BumpMessageCount() {
	c.mu.Lock()
	if c.user != nil {
		c.user.MessagesSent++
	}
	c.mu.Unlock()
}

func (c *Controller) enterAuthenticated(ctx context.Context, token string, user domain.User) {
	c.mu.Lock()
	c.token = token
	c.user = &user
	c.currentChatID = nil
	hook := c.onChange
	c.mu.Unlock()

	c.RefreshChats(ctx)

	// The history load itself can come back 401 and terminate the
	// session; only announce Authenticated if it survived.
	c.mu.Lock()
	alive := c.token != ""
	c.mu.Unlock()
	if alive && hook != nil {
		hook(StateAuthenticated)
	}
}

func (c *Controller) forceLogout() {
	c.mu.Lock()
	if c.token == "" && c.user == nil {
		c.mu.Unlock()
		return
	}
	c.token = ""
	c.user = nil
	c.currentChatID = nil
	c.chats = nil
	hook := c.onChange
	c.mu.Unlock()

	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("clear stored token", "err", err)
	}
	if hook != nil {
		hook(StateUnauthenticated)
	}
}
