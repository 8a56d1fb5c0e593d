package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"bookchat/internal/apiclient"
	"bookchat/internal/recommend"
	"bookchat/internal/session"
	"bookchat/internal/tokenstore"
	"bookchat/internal/transcript"
	"bookchat/pkg/domain"
)

func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "T"})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.User{ID: 1, Username: "alice", BooksRead: 3, MessagesSent: 7})
	})
	mux.HandleFunc("GET /chat/chats", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Chat{})
	})
	mux.HandleFunc("POST /chat/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": "Советую Дюну.",
			"recommendations": []domain.Book{
				{ID: "b1", Title: "Дюна", Author: "Фрэнк Герберт", Rating: 4.5},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokens, err := tokenstore.New(filepath.Join(t.TempDir(), "access_token"))
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}
	api := apiclient.New(srv.URL, 0)
	sess := session.NewController(api, tokens, nil)
	panel := recommend.NewPanel()
	tc := transcript.NewController(api, sess, panel, nil)

	var out bytes.Buffer
	app := New(sess, tc, panel, nil, nil, strings.NewReader(input), &out)
	return app, &out
}

func TestRunLoginSendAndExit(t *testing.T) {
	app, out := newTestApp(t, "/login\nalice\nsecret1\nпосоветуй фэнтези\n/exit\n")
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "alice · Прочитано книг: 3 · Сообщений: 7") {
		t.Fatalf("user bar missing:\n%s", got)
	}
	if !strings.Contains(got, "Вы > посоветуй фэнтези") {
		t.Fatalf("user message missing:\n%s", got)
	}
	if !strings.Contains(got, "Книжный Бот > Советую Дюну.") {
		t.Fatalf("bot reply missing:\n%s", got)
	}
	if !strings.Contains(got, "1. Дюна — Фрэнк Герберт") {
		t.Fatalf("recommendation missing:\n%s", got)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	app, out := newTestApp(t, "/bogus\n/exit\n")
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Неизвестная команда /bogus") {
		t.Fatalf("unknown command not reported:\n%s", out.String())
	}
}

func TestRunEOFExits(t *testing.T) {
	app, _ := newTestApp(t, "")
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("run on EOF: %v", err)
	}
}

func TestPlainInputIsSentVerbatim(t *testing.T) {
	app, out := newTestApp(t, "привет\n/exit\n")
	if err := app.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Вы > привет") {
		t.Fatalf("optimistic user message missing:\n%s", out.String())
	}
}
