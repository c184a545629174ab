package classifier

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// fakeService: построчный сервис классификации для тестов.
// respond возвращает ответ; ok == false закрывает соединение без ответа.
type fakeService struct {
	ln      net.Listener
	respond func(line string) (resp string, ok bool)

	mu       sync.Mutex
	requests []string
	accepted int
	conns    []net.Conn
}

func startFakeService(t *testing.T, respond func(string) (string, bool)) *fakeService {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeService{ln: ln, respond: respond}
	go s.serve()
	t.Cleanup(s.close)
	return s
}

func (s *fakeService) Addr() string { return s.ln.Addr().String() }

func (s *fakeService) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepted++
		s.conns = append(s.conns, c)
		s.mu.Unlock()
		go s.handle(c)
	}
}

func (s *fakeService) handle(c net.Conn) {
	defer c.Close()
	r := bufio.NewReader(c)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\n")
		s.mu.Lock()
		s.requests = append(s.requests, line)
		s.mu.Unlock()
		resp, ok := s.respond(line)
		if !ok {
			return
		}
		if _, err := c.Write([]byte(resp + "\n")); err != nil {
			return
		}
	}
}

func (s *fakeService) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *fakeService) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

func (s *fakeService) close() {
	_ = s.ln.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
}

// unreachableAddr возвращает адрес, на котором гарантированно никто не слушает.
func unreachableAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

// startFakeWSService поднимает тот же протокол поверх WebSocket.
func startFakeWSService(t *testing.T, respond func(string) string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, []byte(respond(string(data)))); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func always(resp string) func(string) (string, bool) {
	return func(string) (string, bool) { return resp, true }
}
