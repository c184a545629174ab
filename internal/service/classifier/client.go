package classifier

import (
	"ChatSpamClient/internal/service/cache"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Ответ сервиса, означающий спам (без учёта регистра). Любой другой ответ означает «не спам».
const spamVerdict = "spam"

// Config параметры клиента классификации.
type Config struct {
	Addr             string
	Transport        string // tcp|ws
	WSPath           string
	DialTimeout      time.Duration
	QueryTimeout     time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	CacheSize        int
	// CacheFailureVerdicts кэширует вердикт «не спам», полученный из-за сбоя соединения.
	// Так вела себя исходная версия: один сбой отключает проверку этого текста до вытеснения.
	CacheFailureVerdicts bool
}

type querier interface {
	EnsureConnected(ctx context.Context) error
	Query(ctx context.Context, line string) (string, error)
	Close() error
}

// Client классифицирует сообщения: нормализует текст, смотрит в кэш и только затем идёт в сервис.
// Вызывается из одного контекста обработки событий, внутренней синхронизации нет.
type Client struct {
	conn          querier
	cache         *cache.Bounded[string, bool]
	logger        *zap.SugaredLogger
	cacheFailures bool
}

func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	tr, err := NewTransport(cfg.Transport, cfg.WSPath)
	if err != nil {
		return nil, err
	}
	conn := NewConnection(ConnConfig{
		Addr:             cfg.Addr,
		DialTimeout:      cfg.DialTimeout,
		QueryTimeout:     cfg.QueryTimeout,
		ReconnectInitial: cfg.ReconnectInitial,
		ReconnectMax:     cfg.ReconnectMax,
	}, tr, logger)
	return newClient(conn, cfg.CacheSize, cfg.CacheFailureVerdicts, logger)
}

func newClient(conn querier, cacheSize int, cacheFailures bool, logger *zap.SugaredLogger) (*Client, error) {
	verdicts, err := cache.New[string, bool](cacheSize, nil)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, cache: verdicts, logger: logger, cacheFailures: cacheFailures}, nil
}

// Start заранее открывает соединение. Недоступность сервиса не мешает запуску:
// подключение будет повторено лениво при первом запросе.
func (c *Client) Start(ctx context.Context) {
	if err := c.conn.EnsureConnected(ctx); err != nil {
		c.logger.Warnw("Classification service unavailable at start, messages will pass unfiltered until it is back", "error", err)
		return
	}
	c.logger.Infow("Classifier started")
}

// Stop закрывает соединение и очищает кэш. Безопасен при уже закрытом соединении.
func (c *Client) Stop() error {
	c.cache.Purge()
	return c.conn.Close()
}

// Classify возвращает true, если сервис считает текст спамом.
// При любой ошибке соединения сообщение считается не спамом (fail-open).
func (c *Client) Classify(ctx context.Context, raw string) bool {
	text := Sanitize(raw)
	if text == "" {
		return false
	}
	if spam, ok := c.cache.Get(text); ok {
		return spam
	}

	resp, err := c.conn.Query(ctx, text)
	if err != nil {
		// сбой уже залогирован соединением
		if c.cacheFailures {
			c.cache.Put(text, false)
		}
		return false
	}

	spam := strings.EqualFold(resp, spamVerdict)
	c.cache.Put(text, spam)
	return spam
}
