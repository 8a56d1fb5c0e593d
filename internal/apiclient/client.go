package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookchat/pkg/domain"
)

const defaultTimeout = 15 * time.Second

// Client calls the book-recommendation API over HTTP. Every operation
// is a single attempt: no retry, no backoff beyond the client timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a non-2xx API response. Detail carries the
// server-provided message from the {"detail": ...} body when present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.Status)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// New constructs a client for the given base URL, e.g.
// "http://localhost:8000/api/v1". A non-positive timeout selects the
// default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a bearer token. The token endpoint
// expects form-encoded fields, unlike every other operation.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out tokenResponse
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login: empty access token in response")
	}
	return out.AccessToken, nil
}

// Register creates a new account and returns the created user.
func (c *Client) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	payload := registerRequest{Username: username, Email: email, Password: password}
	var user domain.User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", payload, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", token, nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UserUpdate carries optional profile fields for UpdateCurrentUser.
type UserUpdate struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UpdateCurrentUser patches the authenticated user's profile.
func (c *Client) UpdateCurrentUser(ctx context.Context, token string, update UserUpdate) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodPut, "/users/me", token, update, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SendResult is the reply to a chat message. ChatID identifies the
// server-side chat the exchange was stored in; for a message sent with
// a nil chat id it names the chat the server created.
type SendResult struct {
	Response        string        `json:"response"`
	Recommendations []domain.Book `json:"recommendations"`
	ChatID          *int64        `json:"chat_id"`
}

// SendMessage posts a user message. A nil chatID asks the server to
// start a new chat.
func (c *Client) SendMessage(ctx context.Context, token, message string, chatID *int64) (SendResult, error) {
	payload := chatRequest{Message: message, ChatID: chatID}
	var out SendResult
	if err := c.doJSON(ctx, http.MethodPost, "/chat/", token, payload, &out); err != nil {
		return SendResult{}, err
	}
	return out, nil
}

// ListChats returns the user's chats, newest first, without messages.
func (c *Client) ListChats(ctx context.Context, token string) ([]domain.Chat, error) {
	var chats []domain.Chat
	if err := c.doJSON(ctx, http.MethodGet, "/chat/chats", token, nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// FetchChat returns one chat with its messages in stored order.
func (c *Client) FetchChat(ctx context.Context, token string, chatID int64) (domain.Chat, error) {
	var chat domain.Chat
	path := fmt.Sprintf("/chat/chats/%d", chatID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// FetchChatMessages returns only the messages of one chat.
func (c *Client) FetchChatMessages(ctx context.Context, token string, chatID int64) ([]domain.Message, error) {
	var messages []domain.Message
	path := fmt.Sprintf("/chat/chats/%d/messages", chatID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// RenameChat sets a chat's title. The title travels as a query
// parameter, matching the backend's route signature.
func (c *Client) RenameChat(ctx context.Context, token string, chatID int64, title string) (domain.Chat, error) {
	var chat domain.Chat
	path := fmt.Sprintf("/chat/chats/%d?title=%s", chatID, url.QueryEscape(title))
	if err := c.doJSON(ctx, http.MethodPut, path, token, nil, &chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// DeleteChat removes one chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, token string, chatID int64) error {
	path := fmt.Sprintf("/chat/chats/%d", chatID)
	return c.doJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

// ClearChats removes all of the user's chats. No response body is
// expected.
func (c *Client) ClearChats(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodDelete, "/chat/chats/", token, nil, nil)
}

// ListFavorites returns the user's favorite books.
func (c *Client) ListFavorites(ctx context.Context, token string) ([]domain.Book, error) {
	var books []domain.Book
	if err := c.doJSON(ctx, http.MethodGet, "/users/favorites", token, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// AddFavorite stores a recommended book in the user's favorites.
func (c *Client) AddFavorite(ctx context.Context, token string, book domain.Book) error {
	payload := favoriteRequest{
		ID:       book.ID,
		Title:    book.Title,
		Author:   book.Author,
		CoverURL: book.CoverURL,
	}
	return c.doJSON(ctx, http.MethodPost, "/users/favorites", token, payload, nil)
}

// RemoveFavorite deletes one book from the user's favorites.
func (c *Client) RemoveFavorite(ctx context.Context, token, bookID string) error {
	path := "/users/favorites/" + url.PathEscape(bookID)
	return c.doJSON(ctx, http.MethodDelete, path, token, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Detail: strings.TrimSpace(errResp.Detail)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
	ChatID  *int64 `json:"chat_id"`
}

type favoriteRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover_url,omitempty"`
}
