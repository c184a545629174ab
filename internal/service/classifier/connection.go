package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

var (
	// ErrNotConnected: соединение с сервисом не установлено и установить его не удалось.
	ErrNotConnected = errors.New("classifier: нет соединения с сервисом")
	// ErrBackoff: после неудачного подключения ещё не истекло окно ожидания, попытка не делалась.
	ErrBackoff = errors.New("classifier: повторное подключение отложено")
)

const (
	stateDisconnected = "disconnected"
	stateConnected    = "connected"

	eventConnect = "connect"
	eventDrop    = "drop"
)

// ConnConfig параметры соединения с сервисом классификации.
type ConnConfig struct {
	Addr         string
	DialTimeout  time.Duration // 0: без ограничения
	QueryTimeout time.Duration // ограничение на запись+чтение одного запроса, 0 без ограничения
	// Окно ожидания после неудачного подключения растёт экспоненциально от ReconnectInitial до ReconnectMax.
	// ReconnectInitial == 0 отключает ожидание: подключение пробуется при каждом запросе.
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// Connection владеет единственным соединением с сервисом классификации.
// Состояние Connected только при установленном транспорте; любая ошибка транспорта
// переводит его в Disconnected и освобождает соединение.
// Не предназначен для конкурентного использования.
type Connection struct {
	cfg       ConnConfig
	transport Transport
	logger    *zap.SugaredLogger

	state *fsm.FSM
	conn  LineConn

	retry   *backoff.ExponentialBackOff
	retryAt time.Time
	now     func() time.Time
}

func NewConnection(cfg ConnConfig, transport Transport, logger *zap.SugaredLogger) *Connection {
	if transport == nil {
		transport = TCPTransport{}
	}
	c := &Connection{cfg: cfg, transport: transport, logger: logger, now: time.Now}

	c.state = fsm.NewFSM(
		stateDisconnected,
		fsm.Events{
			{Name: eventConnect, Src: []string{stateDisconnected}, Dst: stateConnected},
			{Name: eventDrop, Src: []string{stateConnected}, Dst: stateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.logger.Infow("Classifier connection state", "from", e.Src, "to", e.Dst, "addr", c.cfg.Addr)
			},
		},
	)

	if cfg.ReconnectInitial > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.ReconnectInitial
		if cfg.ReconnectMax > 0 {
			b.MaxInterval = max(cfg.ReconnectMax, cfg.ReconnectInitial)
		}
		b.MaxElapsedTime = 0 // не сдаёмся никогда
		b.Reset()
		c.retry = b
	}
	return c
}

// Connected сообщает, установлено ли соединение.
func (c *Connection) Connected() bool { return c.state.Is(stateConnected) }

// EnsureConnected ничего не делает, если соединение уже установлено; иначе пытается подключиться.
// Неудача логируется и возвращается как ошибка, состояние остаётся Disconnected.
func (c *Connection) EnsureConnected(ctx context.Context) error {
	if c.Connected() {
		return nil
	}
	if c.retry != nil && c.now().Before(c.retryAt) {
		return ErrBackoff
	}

	dialCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.cfg.DialTimeout > 0 {
		dialCtx, cancel = context.WithTimeoutCause(ctx, c.cfg.DialTimeout, errors.New("classifier dial timeout"))
	}
	defer cancel()

	conn, err := c.transport.Dial(dialCtx, c.cfg.Addr)
	if err != nil {
		wait := c.scheduleRetry()
		c.logger.Warnw("Could not connect to classification service",
			"addr", c.cfg.Addr, "transport", c.transport.Name(), "retryIn", wait.String(), "error", err)
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	c.conn = conn
	if c.retry != nil {
		c.retry.Reset()
		c.retryAt = time.Time{}
	}
	if err := c.state.Event(ctx, eventConnect); err != nil {
		c.logger.Warnw("Unexpected classifier state transition", "event", eventConnect, "error", err)
	}
	return nil
}

// Query отправляет одну строку и читает одну строку ответа.
// При отсутствии соединения сначала вызывает EnsureConnected; если подключиться не удалось,
// ничего не отправляет. Ошибка записи, чтения, таймаут или отмена ctx разрывают соединение;
// повторов в рамках одного вызова нет.
func (c *Connection) Query(ctx context.Context, line string) (string, error) {
	if err := c.EnsureConnected(ctx); err != nil {
		return "", err
	}
	conn := c.conn
	deadline := c.deadline(ctx)

	// отмена контекста прерывает блокирующее чтение закрытием соединения
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	resp, op, err := exchange(conn, line, deadline)
	if !stop() {
		// AfterFunc уже отработал: соединение закрыто независимо от результата обмена
		cause := context.Cause(ctx)
		if err == nil {
			op, err = "cancel", cause
		} else {
			err = fmt.Errorf("%w: %w", cause, err)
		}
	}
	if err != nil {
		c.teardown(op, err)
		return "", fmt.Errorf("classifier %s: %w", op, err)
	}
	return resp, nil
}

func exchange(conn LineConn, line string, deadline time.Time) (resp, op string, err error) {
	if err = conn.WriteLine(line, deadline); err != nil {
		return "", "write", err
	}
	if resp, err = conn.ReadLine(deadline); err != nil {
		return "", "read", err
	}
	return resp, "", nil
}

// Close освобождает соединение. Повторный вызов безопасен.
// Следующий Query снова подключится лениво.
func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if c.Connected() {
		_ = c.state.Event(context.Background(), eventDrop)
	}
	return err
}

func (c *Connection) teardown(op string, cause error) {
	c.logger.Warnw("Classifier connection lost", "op", op, "addr", c.cfg.Addr, "error", cause)
	_ = c.Close()
}

func (c *Connection) deadline(ctx context.Context) time.Time {
	var d time.Time
	if c.cfg.QueryTimeout > 0 {
		d = time.Now().Add(c.cfg.QueryTimeout)
	}
	if cd, ok := ctx.Deadline(); ok && (d.IsZero() || cd.Before(d)) {
		d = cd
	}
	return d
}

func (c *Connection) scheduleRetry() time.Duration {
	if c.retry == nil {
		return 0
	}
	wait := c.retry.NextBackOff()
	if wait == backoff.Stop {
		wait = c.retry.MaxInterval
	}
	c.retryAt = c.now().Add(wait)
	return wait
}
