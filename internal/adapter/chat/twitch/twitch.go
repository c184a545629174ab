package twitch

import (
	"ChatSpamClient/internal/service/chat"
	"context"
	"strings"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
)

// Config хранит параметры подключения к Twitch IRC.
type Config struct {
	Username string
	OAuth    string // может быть с/без префикса oauth:
	Channel  string // без #, регистр не важен
}

// Gate: проверка сообщения и сигнал смены сессии.
type Gate interface {
	Check(ctx context.Context, msg chat.Message) (bool, error)
	SessionBoundary(ctx context.Context) error
}

// Окно, в котором одинаковое сообщение того же пользователя считается флудом.
const floodWindow = 5 * time.Second

// Run запускает клиент Twitch IRC и пропускает каждое сообщение через gate.
// Переподключение (повторный OnConnect или RECONNECT от сервера) считается границей сессии.
// Базовые реконнекты обеспечиваются клиентом; функция завершается по отмене ctx.
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg Config, gate Gate) error {
	if gate == nil {
		return nil
	}
	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	token := strings.TrimSpace(cfg.OAuth)
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if username == "" || token == "" || channel == "" {
		logger.Warnw("Twitch chat not configured: missing env", "username", username != "", "token", token != "", "channel", channel != "")
		return nil
	}
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := twitchirc.NewClient(username, token)
	h := newHandler(ctx, logger, gate)

	client.OnConnect(func() {
		logger.Infow("Twitch connected", "as", username, "join", channel)
		client.Join(channel)
		h.connected()
	})
	client.OnReconnectMessage(func(twitchirc.ReconnectMessage) {
		logger.Infow("Twitch asked to reconnect")
		h.boundary()
	})
	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		h.message(chat.Message{
			Type:    publicType(msg.User.Badges),
			Channel: msg.Channel,
			User:    msg.User.Name,
			Text:    msg.Message,
		})
	})
	client.OnWhisperMessage(func(msg twitchirc.WhisperMessage) {
		h.message(chat.Message{Type: chat.TypePrivate, User: msg.User.Name, Text: msg.Message})
	})

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
		return context.Canceled
	case err := <-errCh:
		if err != nil {
			logger.Errorw("twitch connect error", "error", err)
		}
		return err
	}
}

// publicType: сообщения модераторов и владельца канала идут как MODCHAT.
func publicType(badges map[string]int) chat.Type {
	if badges["moderator"] > 0 || badges["broadcaster"] > 0 {
		return chat.TypeMod
	}
	return chat.TypePublic
}

type lastMsg struct {
	text string
	at   time.Time
}

// handler отделён от IRC-клиента, чтобы его можно было проверить без сети.
type handler struct {
	ctx    context.Context
	logger *zap.SugaredLogger
	gate   Gate
	now    func() time.Time

	mu         sync.Mutex
	lastByUser map[string]lastMsg
	connects   int
}

func newHandler(ctx context.Context, logger *zap.SugaredLogger, gate Gate) *handler {
	return &handler{ctx: ctx, logger: logger, gate: gate, now: time.Now, lastByUser: map[string]lastMsg{}}
}

func (h *handler) connected() {
	h.mu.Lock()
	h.connects++
	reconnect := h.connects > 1
	h.mu.Unlock()
	if reconnect {
		h.boundary()
	}
}

func (h *handler) boundary() {
	if err := h.gate.SessionBoundary(h.ctx); err != nil {
		h.logger.Warnw("Session boundary failed", "error", err)
	}
}

func (h *handler) message(m chat.Message) {
	m.User = strings.TrimSpace(m.User)
	if strings.TrimSpace(m.Text) == "" || m.User == "" {
		return
	}
	if h.flood(m.User, m.Text) {
		return
	}
	blocked, err := h.gate.Check(h.ctx, m)
	if err != nil {
		h.logger.Warnw("Chat check failed", "user", m.User, "error", err)
		return
	}
	if blocked {
		h.logger.Debugw("Twitch message hidden", "user", m.User, "channel", m.Channel)
	}
}

// flood: одинаковый текст от того же пользователя в течение окна дропаем без проверки.
func (h *handler) flood(user, text string) bool {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	if lm, ok := h.lastByUser[user]; ok && lm.text == text && now.Sub(lm.at) <= floodWindow {
		return true
	}
	h.lastByUser[user] = lastMsg{text: text, at: now}
	return false
}
