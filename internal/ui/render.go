// Package ui renders chat state as plain text for the terminal. All
// functions are pure so they can be tested without a TTY.
package ui

import (
	"fmt"
	"strings"

	"bookchat/pkg/domain"
)

const (
	botName  = "Книжный Бот"
	userName = "Вы"

	// EmptyPanelText is shown while no recommendations are loaded.
	EmptyPanelText = "Здесь появятся рекомендации книг"
	// EmptyHistoryText is shown when the user has no saved chats.
	EmptyHistoryText = "Нет сохраненных чатов"
	// TypingText is shown while the bot is composing a reply.
	TypingText = "Книжный Бот печатает..."

	defaultRating = 4
)

// Suggestions returns the example queries offered on the welcome screen.
func Suggestions() []string {
	return []string{
		"Рекомендуй книги в жанре фэнтези",
		"Какие книги похожи на Гарри Поттера?",
		"Посоветуй что-то легкое для чтения",
		"Книги про любовь с хорошим концом",
	}
}

// RenderMessage formats a single transcript line, for example
//
//	[15:04] Вы > расскажи про фэнтези
func RenderMessage(m domain.ChatMessage) string {
	name := botName
	if m.Role == domain.RoleUser {
		name = userName
	}
	return fmt.Sprintf("[%s] %s > %s", m.Timestamp.Format("15:04"), name, m.Content)
}

// RenderTranscript formats the whole transcript, one message per line.
func RenderTranscript(messages []domain.ChatMessage) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(RenderMessage(m))
	}
	return b.String()
}

// RenderStars draws a five-star rating as ★, ⯨ and ☆. Missing ratings
// default to four stars.
func RenderStars(rating float64) string {
	if rating <= 0 {
		rating = defaultRating
	}
	full := int(rating)
	half := rating-float64(full) >= 0.5
	empty := 5 - full
	if half {
		empty--
	}
	var b strings.Builder
	for i := 0; i < full; i++ {
		b.WriteRune('★')
	}
	if half {
		b.WriteRune('⯨')
	}
	for i := 0; i < empty; i++ {
		b.WriteRune('☆')
	}
	return b.String()
}

// RenderBookCard formats one recommendation. The index is 1-based so
// the card can be addressed from commands.
func RenderBookCard(i int, book domain.Book) string {
	rating := book.Rating
	if rating <= 0 {
		rating = defaultRating
	}
	lines := []string{
		fmt.Sprintf("%d. %s — %s", i, book.Title, book.Author),
	}
	if book.Genre != "" {
		lines = append(lines, "   "+book.Genre)
	}
	lines = append(lines, fmt.Sprintf("   %s %g/5", RenderStars(book.Rating), rating))
	return strings.Join(lines, "\n")
}

// RenderBookDetails formats the expanded view of a single book.
func RenderBookDetails(book domain.Book) string {
	rating := book.Rating
	if rating <= 0 {
		rating = defaultRating
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", book.Title, book.Author)
	if book.Genre != "" {
		fmt.Fprintf(&b, "Жанр: %s\n", book.Genre)
	}
	fmt.Fprintf(&b, "Рейтинг: %s %g/5\n", RenderStars(book.Rating), rating)
	if book.Year > 0 {
		fmt.Fprintf(&b, "Год: %d\n", book.Year)
	}
	if book.Pages > 0 {
		fmt.Fprintf(&b, "Страниц: %d\n", book.Pages)
	}
	if book.Description != "" {
		fmt.Fprintf(&b, "Описание: %s\n", book.Description)
	} else {
		b.WriteString("Описание отсутствует.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPanel formats the recommendation panel.
func RenderPanel(books []domain.Book) string {
	if len(books) == 0 {
		return EmptyPanelText
	}
	cards := make([]string, 0, len(books))
	for i, book := range books {
		cards = append(cards, RenderBookCard(i+1, book))
	}
	return strings.Join(cards, "\n")
}

// RenderChatList formats the saved chat history, newest layout kept as
// delivered by the server.
func RenderChatList(chats []domain.Chat) string {
	if len(chats) == 0 {
		return EmptyHistoryText
	}
	var b strings.Builder
	for i, chat := range chats {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, chat.Title)
		if chat.LastMessage != "" {
			fmt.Fprintf(&b, " — %s", truncate(chat.LastMessage, 60))
		}
	}
	return b.String()
}

// RenderUserBar formats the logged-in header line.
func RenderUserBar(user *domain.User) string {
	if user == nil {
		return ""
	}
	return fmt.Sprintf("%s · Прочитано книг: %d · Сообщений: %d",
		user.Username, user.BooksRead, user.MessagesSent)
}

// RenderWelcome formats the greeting plus the suggestion chips.
func RenderWelcome(greeting string) string {
	var b strings.Builder
	b.WriteString(greeting)
	b.WriteString("\n\nПримеры запросов:")
	for _, s := range Suggestions() {
		b.WriteString("\n  - ")
		b.WriteString(s)
	}
	return b.String()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
