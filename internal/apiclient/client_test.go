package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookchat/pkg/domain"
)

func TestLoginSendsFormEncodedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %q, want form encoding", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostFormValue("username") != "alice" || r.PostFormValue("password") != "secret1" {
			t.Errorf("credentials = %q/%q", r.PostFormValue("username"), r.PostFormValue("password"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "T", "token_type": "bearer"})
	}))
	defer srv.Close()

	token, err := New(srv.URL, 0).Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "T" {
		t.Fatalf("token = %q, want %q", token, "T")
	}
}

func TestLoginErrorCarriesServerDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Неверное имя пользователя или пароль"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).Login(context.Background(), "alice", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", apiErr.Status)
	}
	if apiErr.Detail != "Неверное имя пользователя или пароль" {
		t.Fatalf("detail = %q", apiErr.Detail)
	}
	if !IsUnauthorized(err) {
		t.Fatalf("IsUnauthorized = false, want true")
	}
}

func TestAPIErrorFallsBackToStatusText(t *testing.T) {
	err := &APIError{Status: http.StatusBadGateway}
	if err.Error() != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestSendMessageRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer T" {
			t.Errorf("authorization = %q", auth)
		}
		var req struct {
			Message string `json:"message"`
			ChatID  *int64 `json:"chat_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Message != "привет" {
			t.Errorf("message = %q", req.Message)
		}
		if req.ChatID != nil {
			t.Errorf("chat_id = %v, want null for a new chat", *req.ChatID)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": "Hello!",
			"recommendations": []map[string]any{
				{"id": "1", "title": "Мастер и Маргарита", "author": "Михаил Булгаков", "genre": "Классика", "rating": 4.8},
			},
			"chat_id": 7,
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL, 0).SendMessage(context.Background(), "T", "привет", nil)
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if res.Response != "Hello!" {
		t.Fatalf("response = %q", res.Response)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].Title != "Мастер и Маргарита" {
		t.Fatalf("recommendations = %+v", res.Recommendations)
	}
	if res.ChatID == nil || *res.ChatID != 7 {
		t.Fatalf("chat_id = %v, want 7", res.ChatID)
	}
}

func TestSendMessageCarriesExistingChatID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ChatID *int64 `json:"chat_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ChatID == nil || *req.ChatID != 42 {
			t.Errorf("chat_id = %v, want 42", req.ChatID)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "ok", "recommendations": []any{}})
	}))
	defer srv.Close()

	id := int64(42)
	if _, err := New(srv.URL, 0).SendMessage(context.Background(), "T", "hi", &id); err != nil {
		t.Fatalf("send message: %v", err)
	}
}

func TestListAndFetchChats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/chats":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": 1, "title": "Фэнтези", "created_at": "2024-05-01T10:00:00Z", "last_message": "Вот что я нашел"},
			})
		case "/chat/chats/1":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 1, "title": "Фэнтези", "created_at": "2024-05-01T10:00:00Z",
				"messages": []map[string]any{
					{"id": 10, "chat_id": 1, "role": "user", "content": "привет"},
					{"id": 11, "chat_id": 1, "role": "assistant", "content": "здравствуйте"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, 0)
	chats, err := client.ListChats(context.Background(), "T")
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != 1 || chats[0].LastMessage != "Вот что я нашел" {
		t.Fatalf("chats = %+v", chats)
	}

	chat, err := client.FetchChat(context.Background(), "T", 1)
	if err != nil {
		t.Fatalf("fetch chat: %v", err)
	}
	if len(chat.Messages) != 2 {
		t.Fatalf("messages = %+v", chat.Messages)
	}
	if chat.Messages[0].Role != "user" || chat.Messages[1].Role != "assistant" {
		t.Fatalf("roles = %q/%q", chat.Messages[0].Role, chat.Messages[1].Role)
	}
}

func TestClearChatsAcceptsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/chat/chats/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL, 0).ClearChats(context.Background(), "T"); err != nil {
		t.Fatalf("clear chats: %v", err)
	}
}

func TestAddFavoritePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/favorites" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["id"] != "3" || req["title"] != "1984" || req["author"] != "Джордж Оруэлл" {
			t.Errorf("payload = %v", req)
		}
		if _, ok := req["genre"]; ok {
			t.Errorf("favorite payload must not carry the genre field")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer srv.Close()

	book := domain.Book{ID: "3", Title: "1984", Author: "Джордж Оруэлл", Genre: "Антиутопия", Rating: 4.6}
	if err := New(srv.URL, 0).AddFavorite(context.Background(), "T", book); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
}

func TestCurrentUserUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 0).CurrentUser(context.Background(), "stale")
	if !IsUnauthorized(err) {
		t.Fatalf("error = %v, want unauthorized", err)
	}
}

func TestFetchChatMessagesAndRename(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat/chats/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			t.Errorf("chat id = %q, want 7", r.PathValue("id"))
		}
		_ = json.NewEncoder(w).Encode([]domain.Message{
			{ID: 1, ChatID: 7, Role: "user", Content: "привет"},
			{ID: 2, ChatID: 7, Role: "assistant", Content: "здравствуйте"},
		})
	})
	mux.HandleFunc("PUT /chat/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("title"); got != "Фэнтези" {
			t.Errorf("title query = %q, want Фэнтези", got)
		}
		_ = json.NewEncoder(w).Encode(domain.Chat{ID: 7, Title: "Фэнтези"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, 0)
	messages, err := c.FetchChatMessages(context.Background(), "T", 7)
	if err != nil {
		t.Fatalf("fetch messages: %v", err)
	}
	if len(messages) != 2 || messages[1].Role != "assistant" {
		t.Fatalf("messages = %+v", messages)
	}

	chat, err := c.RenameChat(context.Background(), "T", 7, "Фэнтези")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if chat.Title != "Фэнтези" {
		t.Fatalf("renamed title = %q", chat.Title)
	}
}
