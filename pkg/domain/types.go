package domain

import "time"

// Role is the display role of a transcript entry. The server stores
// "user" and "assistant"; the client only distinguishes user and bot.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// RoleFromWire maps a stored message role onto a display role.
// "user" stays user, everything else renders as the bot.
func RoleFromWire(role string) Role {
	if role == "user" {
		return RoleUser
	}
	return RoleBot
}

// User mirrors the /users/me payload.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	BooksRead    int       `json:"books_read"`
	MessagesSent int       `json:"messages_sent"`
	CreatedAt    time.Time `json:"created_at"`
}

// Book is a recommendation returned alongside a chat reply. Books are
// never persisted client-side.
type Book struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Genre       string  `json:"genre"`
	Rating      float64 `json:"rating"`
	Year        int     `json:"year,omitempty"`
	Pages       int     `json:"pages,omitempty"`
	Description string  `json:"description,omitempty"`
	CoverURL    string  `json:"cover_url,omitempty"`
}

// Chat is a server-owned conversation. List responses omit messages.
type Chat struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	LastMessage string     `json:"last_message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Messages    []Message  `json:"messages,omitempty"`
}

// Message is the stored form of a chat message on the wire.
type Message struct {
	ID      int64  `json:"id"`
	ChatID  int64  `json:"chat_id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessage is a transcript entry as displayed by the client.
// Immutable once appended; ordering is append order.
type ChatMessage struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}
