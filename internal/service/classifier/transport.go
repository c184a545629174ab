package classifier

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Transport открывает поток до сервиса классификации.
type Transport interface {
	Dial(ctx context.Context, addr string) (LineConn, error)
	Name() string
}

// LineConn: построчный обмен поверх установленного соединения.
// Нулевой deadline означает отсутствие ограничения.
type LineConn interface {
	WriteLine(line string, deadline time.Time) error
	// ReadLine возвращает строку без завершающего перевода строки.
	// Конец потока без полной строки даёт io.EOF.
	ReadLine(deadline time.Time) (string, error)
	Close() error
}

// NewTransport выбирает транспорт по имени из конфигурации: tcp|ws.
func NewTransport(name, wsPath string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tcp":
		return TCPTransport{}, nil
	case "ws", "websocket":
		return WSTransport{Path: wsPath}, nil
	default:
		return nil, fmt.Errorf("classifier: неизвестный транспорт %q (ожидается tcp|ws)", name)
	}
}

// TCPTransport: простой текстовый сокет, одна строка на запрос и на ответ.
type TCPTransport struct{}

func (TCPTransport) Name() string { return "tcp" }

func (TCPTransport) Dial(ctx context.Context, addr string) (LineConn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpConn{c: c, r: bufio.NewReader(c)}, nil
}

type tcpConn struct {
	c net.Conn
	r *bufio.Reader
}

func (t *tcpConn) WriteLine(line string, deadline time.Time) error {
	if err := t.c.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := t.c.Write([]byte(line + "\n"))
	return err
}

func (t *tcpConn) ReadLine(deadline time.Time) (string, error) {
	if err := t.c.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	s, err := t.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (t *tcpConn) Close() error { return t.c.Close() }

// WSTransport: тот же протокол поверх WebSocket: каждая строка передаётся отдельным текстовым фреймом.
type WSTransport struct {
	Path string
}

func (WSTransport) Name() string { return "ws" }

func (w WSTransport) Dial(ctx context.Context, addr string) (LineConn, error) {
	path := w.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: path}
	dialer := websocket.Dialer{
		Proxy:             http.ProxyFromEnvironment,
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: false,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws handshake %s: HTTP %d: %w", u.String(), resp.StatusCode, err)
		}
		return nil, err
	}
	return &wsConn{c: conn}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) WriteLine(line string, deadline time.Time) error {
	if err := w.c.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return w.c.WriteMessage(websocket.TextMessage, []byte(line))
}

func (w *wsConn) ReadLine(deadline time.Time) (string, error) {
	if err := w.c.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	for {
		msgType, data, err := w.c.ReadMessage()
		if err != nil {
			return "", err
		}
		// бинарные фреймы протоколом не предусмотрены
		if msgType != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (w *wsConn) Close() error {
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return w.c.Close()
}
