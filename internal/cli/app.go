// Package cli drives the terminal chat loop. Plain input goes to the
// bot; slash commands manage the session, chat history, favorites and
// the recommendation panel.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"bookchat/internal/apiclient"
	"bookchat/internal/recommend"
	"bookchat/internal/session"
	"bookchat/internal/speech"
	"bookchat/internal/transcript"
	"bookchat/internal/ui"
	"bookchat/internal/validate"
)

// App wires the controllers to a line-oriented terminal.
type App struct {
	session    *session.Controller
	transcript *transcript.Controller
	panel      *recommend.Panel
	recognizer speech.Recognizer
	logger     *slog.Logger

	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// New builds the app around the given streams. Pass os.Stdin and
// os.Stdout outside of tests.
func New(sess *session.Controller, tc *transcript.Controller, panel *recommend.Panel, rec speech.Recognizer, logger *slog.Logger, in io.Reader, out io.Writer) *App {
	if rec == nil {
		rec = speech.Unavailable{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		session:    sess,
		transcript: tc,
		panel:      panel,
		recognizer: rec,
		logger:     logger,
		in:         in,
		out:        out,
		reader:     bufio.NewReader(in),
	}
	sess.OnStateChange(a.onStateChange)
	tc.OnTypingChange(a.onTypingChange)
	return a
}

// Run restores a persisted session and processes input until EOF or
// the exit command.
func (a *App) Run(ctx context.Context) error {
	if a.session.Restore(ctx) == session.StateAuthenticated {
		fmt.Fprintln(a.out, ui.RenderUserBar(a.session.User()))
	} else {
		fmt.Fprintln(a.out, ui.RenderWelcome(transcript.WelcomeText))
		fmt.Fprintln(a.out, "\nВойдите (/login) или зарегистрируйтесь (/register). /help для списка команд.")
	}

	for {
		fmt.Fprint(a.out, "> ")
		line, err := a.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			a.send(ctx, line)
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		if done := a.dispatch(ctx, cmd, arg); done {
			return nil
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmd, arg string) bool {
	switch cmd {
	case "/exit", "/quit":
		return true
	case "/help":
		a.printHelp()
	case "/login":
		a.login(ctx)
	case "/register":
		a.register(ctx)
	case "/logout":
		a.session.Logout()
	case "/me":
		if bar := ui.RenderUserBar(a.session.User()); bar != "" {
			fmt.Fprintln(a.out, bar)
		} else {
			fmt.Fprintln(a.out, "Вы не вошли в систему.")
		}
	case "/chats":
		a.session.RefreshChats(ctx)
		fmt.Fprintln(a.out, ui.RenderChatList(a.session.Chats()))
	case "/open":
		a.openChat(ctx, arg)
	case "/rename":
		a.renameChat(ctx, arg)
	case "/delchat":
		a.deleteChat(ctx, arg)
	case "/profile":
		a.editProfile(ctx)
	case "/new":
		if a.transcript.StartNew() {
			a.redraw()
		}
	case "/clear":
		a.clearHistory(ctx)
	case "/books":
		fmt.Fprintln(a.out, ui.RenderPanel(a.panel.Books()))
	case "/book":
		a.showBook(arg)
	case "/fav":
		a.listFavorites(ctx)
	case "/favadd":
		a.addFavorite(ctx, arg)
	case "/unfav":
		a.removeFavorite(ctx, arg)
	case "/voice":
		a.voice(ctx)
	default:
		fmt.Fprintf(a.out, "Неизвестная команда %s. /help для списка команд.\n", cmd)
	}
	return false
}

func (a *App) printHelp() {
	fmt.Fprint(a.out, `Просто введите сообщение, чтобы поговорить с ботом.
Команды:
  /login            войти
  /register         зарегистрироваться
  /logout           выйти
  /me               текущий пользователь
  /chats            список сохраненных чатов
  /open N           открыть чат номер N
  /rename N title   переименовать чат
  /delchat N        удалить чат
  /new              начать новый диалог
  /profile          изменить профиль
  /clear            очистить всю историю чатов
  /books            показать рекомендации
  /book N           подробнее о книге номер N
  /fav              избранные книги
  /favadd N         добавить книгу N в избранное
  /unfav N          убрать книгу N из избранного
  /voice            голосовой ввод
  /exit             выход
`)
}

func (a *App) send(ctx context.Context, text string) {
	before := len(a.transcript.Messages())
	_, err := a.transcript.Send(ctx, text)
	switch {
	case errors.Is(err, transcript.ErrBusy):
		fmt.Fprintln(a.out, "Подождите, бот еще отвечает.")
		return
	case errors.Is(err, transcript.ErrEmptyMessage):
		return
	}
	// Errors surface inside the transcript as bot messages.
	a.printNewMessages(before)
	if err == nil && !a.panel.Empty() {
		fmt.Fprintln(a.out, "\nРекомендации:")
		fmt.Fprintln(a.out, ui.RenderPanel(a.panel.Books()))
	}
}

func (a *App) printNewMessages(from int) {
	messages := a.transcript.Messages()
	if from > len(messages) {
		// Transcript was reset mid-send.
		from = 0
	}
	for _, m := range messages[from:] {
		fmt.Fprintln(a.out, ui.RenderMessage(m))
	}
}

func (a *App) login(ctx context.Context) {
	username, err := a.promptLine("Имя пользователя")
	if err != nil {
		return
	}
	password, err := a.promptPassword("Пароль")
	if err != nil {
		return
	}
	if err := a.session.Login(ctx, username, password); err != nil {
		fmt.Fprintln(a.out, loginFailureText(err))
		return
	}
	fmt.Fprintln(a.out, ui.RenderUserBar(a.session.User()))
}

func (a *App) register(ctx context.Context) {
	username, err := a.promptLine("Имя пользователя")
	if err != nil {
		return
	}
	email, err := a.promptLine("Email")
	if err != nil {
		return
	}
	password, err := a.promptPassword("Пароль")
	if err != nil {
		return
	}
	confirm, err := a.promptPassword("Повторите пароль")
	if err != nil {
		return
	}
	if err := a.session.Register(ctx, username, email, password, confirm); err != nil {
		fmt.Fprintln(a.out, loginFailureText(err))
		return
	}
	a.transcript.AppendNotice(transcript.RegisteredGreeting)
	fmt.Fprintln(a.out, ui.RenderUserBar(a.session.User()))
	fmt.Fprintln(a.out, transcript.RegisteredGreeting)
}

func (a *App) openChat(ctx context.Context, arg string) {
	chats := a.session.Chats()
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(chats) {
		fmt.Fprintln(a.out, "Укажите номер чата из /chats.")
		return
	}
	if err := a.transcript.LoadChat(ctx, chats[idx-1].ID); err != nil {
		fmt.Fprintln(a.out, "Не удалось загрузить чат.")
		return
	}
	a.redraw()
}

func (a *App) renameChat(ctx context.Context, arg string) {
	num, title, _ := strings.Cut(arg, " ")
	title = strings.TrimSpace(title)
	chats := a.session.Chats()
	idx, err := strconv.Atoi(num)
	if err != nil || idx < 1 || idx > len(chats) || title == "" {
		fmt.Fprintln(a.out, "Использование: /rename N новое название")
		return
	}
	if err := a.session.RenameChat(ctx, chats[idx-1].ID, title); err != nil {
		fmt.Fprintln(a.out, apiFailureText(err, "Не удалось переименовать чат."))
		return
	}
	fmt.Fprintln(a.out, ui.RenderChatList(a.session.Chats()))
}

func (a *App) deleteChat(ctx context.Context, arg string) {
	chats := a.session.Chats()
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(chats) {
		fmt.Fprintln(a.out, "Укажите номер чата из /chats.")
		return
	}
	if !a.confirm(fmt.Sprintf("Удалить чат «%s»?", chats[idx-1].Title)) {
		return
	}
	if err := a.session.DeleteChat(ctx, chats[idx-1].ID); err != nil {
		fmt.Fprintln(a.out, apiFailureText(err, "Не удалось удалить чат."))
		return
	}
	fmt.Fprintln(a.out, ui.RenderChatList(a.session.Chats()))
}

// editProfile updates only the fields the user fills in.
func (a *App) editProfile(ctx context.Context) {
	if a.session.State() != session.StateAuthenticated {
		fmt.Fprintln(a.out, "Сначала войдите в систему.")
		return
	}
	fmt.Fprintln(a.out, "Оставьте поле пустым, чтобы не менять его.")
	var update apiclient.UserUpdate
	fmt.Fprint(a.out, "Email: ")
	if line, err := a.reader.ReadString('\n'); err == nil {
		if v := strings.TrimSpace(line); v != "" {
			update.Email = &v
		}
	}
	fmt.Fprint(a.out, "Полное имя: ")
	if line, err := a.reader.ReadString('\n'); err == nil {
		if v := strings.TrimSpace(line); v != "" {
			update.FullName = &v
		}
	}
	if password, err := a.promptPassword("Новый пароль"); err == nil && password != "" {
		if len([]rune(password)) < validate.MinPasswordLen {
			fmt.Fprintln(a.out, "Пароль должен быть не менее 6 символов")
			return
		}
		update.Password = &password
	}
	if update.Email == nil && update.FullName == nil && update.Password == nil {
		fmt.Fprintln(a.out, "Нечего менять.")
		return
	}
	if err := a.session.UpdateProfile(ctx, update); err != nil {
		fmt.Fprintln(a.out, apiFailureText(err, "Не удалось обновить профиль."))
		return
	}
	fmt.Fprintln(a.out, "Профиль обновлен.")
}

func (a *App) clearHistory(ctx context.Context) {
	if !a.confirm("Вы уверены, что хотите очистить всю историю чатов?") {
		return
	}
	if err := a.session.ClearHistory(ctx); err != nil {
		fmt.Fprintln(a.out, "Не удалось очистить историю.")
		return
	}
	fmt.Fprintln(a.out, ui.EmptyHistoryText)
}

func (a *App) showBook(arg string) {
	books := a.panel.Books()
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(books) {
		fmt.Fprintln(a.out, "Укажите номер книги из /books.")
		return
	}
	fmt.Fprintln(a.out, ui.RenderBookDetails(books[idx-1]))
}

func (a *App) listFavorites(ctx context.Context) {
	books, err := a.session.ListFavorites(ctx)
	if err != nil {
		fmt.Fprintln(a.out, favoriteFailureText(err))
		return
	}
	if len(books) == 0 {
		fmt.Fprintln(a.out, "Избранное пусто.")
		return
	}
	fmt.Fprintln(a.out, ui.RenderPanel(books))
}

func (a *App) addFavorite(ctx context.Context, arg string) {
	books := a.panel.Books()
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(books) {
		fmt.Fprintln(a.out, "Укажите номер книги из /books.")
		return
	}
	if err := a.session.AddFavorite(ctx, books[idx-1]); err != nil {
		fmt.Fprintln(a.out, favoriteFailureText(err))
		return
	}
	fmt.Fprintf(a.out, "«%s» добавлена в избранное.\n", books[idx-1].Title)
}

func (a *App) removeFavorite(ctx context.Context, arg string) {
	books, err := a.session.ListFavorites(ctx)
	if err != nil {
		fmt.Fprintln(a.out, favoriteFailureText(err))
		return
	}
	idx, convErr := strconv.Atoi(arg)
	if convErr != nil || idx < 1 || idx > len(books) {
		fmt.Fprintln(a.out, "Укажите номер книги из /fav.")
		return
	}
	if err := a.session.RemoveFavorite(ctx, books[idx-1].ID); err != nil {
		fmt.Fprintln(a.out, favoriteFailureText(err))
		return
	}
	fmt.Fprintf(a.out, "«%s» убрана из избранного.\n", books[idx-1].Title)
}

func (a *App) voice(ctx context.Context) {
	if !a.recognizer.Available() {
		fmt.Fprintln(a.out, "Голосовой ввод недоступен. Укажите speechCommand в config.yaml.")
		return
	}
	fmt.Fprintln(a.out, "Говорите...")
	recCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	text, err := a.recognizer.Recognize(recCtx)
	cancel()
	if err != nil {
		a.logger.Warn("speech recognition", "err", err)
		fmt.Fprintln(a.out, "Не удалось распознать речь.")
		return
	}
	fmt.Fprintf(a.out, "Распознано: %s\n", text)
	a.send(ctx, text)
}

// redraw reprints the transcript and the recommendation panel.
func (a *App) redraw() {
	fmt.Fprintln(a.out, ui.RenderTranscript(a.transcript.Messages()))
	if !a.panel.Empty() {
		fmt.Fprintln(a.out, "\nРекомендации:")
		fmt.Fprintln(a.out, ui.RenderPanel(a.panel.Books()))
	}
}

func (a *App) onStateChange(s session.State) {
	switch s {
	case session.StateAuthenticated:
		a.transcript.Reset()
		a.panel.Clear()
	case session.StateUnauthenticated:
		a.transcript.Reset()
		a.panel.Clear()
		fmt.Fprintln(a.out, "Вы вышли из системы.")
	}
}

func (a *App) onTypingChange(on bool) {
	if on {
		fmt.Fprintln(a.out, ui.TypingText)
	}
}

func loginFailureText(err error) string {
	var fieldErr *validate.FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Message
	}
	return apiFailureText(err, "Не удалось выполнить вход. Попробуйте еще раз.")
}

func favoriteFailureText(err error) string {
	if errors.Is(err, session.ErrNotAuthenticated) {
		return "Сначала войдите в систему."
	}
	return apiFailureText(err, "Не удалось обновить избранное.")
}

// apiFailureText prefers the server's detail message over the generic
// fallback.
func apiFailureText(err error, fallback string) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
