package host

import (
	"ChatSpamClient/internal/config"
	"ChatSpamClient/internal/service/chat"
	"ChatSpamClient/internal/service/events"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Ensure interface compliance
var _ events.EventServer = (*Server)(nil)

// Gate: то, что хост может попросить у фильтра.
type Gate interface {
	Check(ctx context.Context, msg chat.Message) (bool, error)
	OverheadText(ctx context.Context, text string) (string, error)
	SessionBoundary(ctx context.Context) error
}

// Состояния игры, после которых журнал чата закрывается.
var boundaryStates = map[string]bool{
	"LOGIN_SCREEN": true,
	"HOPPING":      true,
}

// Server: HTTP-мост для игрового клиента: проверка сообщений, надписей над персонажами
// и сигналы смены состояния игры.
type Server struct {
	cfg     config.HostServerConfig
	gate    Gate
	srv     *http.Server
	logger  *zap.SugaredLogger
	running atomic.Bool
	addr    atomic.Value // фактический адрес после Listen
}

type chatRequest struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	User    string `json:"user,omitempty"`
	Text    string `json:"text"`
}

type chatResponse struct {
	Blocked bool `json:"blocked"`
}

type overheadRequest struct {
	Text string `json:"text"`
}

type overheadResponse struct {
	Text string `json:"text"`
}

type stateRequest struct {
	State string `json:"state"`
}

func NewServer(cfg config.HostServerConfig, gate Gate, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:3000"
	}
	s := &Server{cfg: cfg, gate: gate, logger: logger}
	s.addr.Store(cfg.BindAddr)

	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler возвращает маршруты моста; удобно для httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.auth(s.handleChat))
	mux.HandleFunc("POST /overhead", s.auth(s.handleOverhead))
	mux.HandleFunc("POST /state", s.auth(s.handleState))
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.addr.Store(ln.Addr().String())
	go func() {
		s.logger.Infow("Host bridge listening", "addr", s.Addr())
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Host bridge stopped with error", "error", err)
		} else {
			s.logger.Infow("Host bridge stopped")
		}
	}()

	// Watch for context cancellation to stop the server
	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("host-bridge shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.addr.Load().(string) }

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	if s.cfg.AuthToken == "" {
		return next
	}
	want := []byte(s.cfg.AuthToken)
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	blocked, err := s.gate.Check(r.Context(), chat.Message{
		Type:    chat.ParseType(req.Type),
		Channel: req.Channel,
		User:    req.User,
		Text:    req.Text,
	})
	if err != nil {
		// фильтр недоступен, сообщение показываем
		s.logger.Warnw("Chat check failed", "error", err)
	}
	writeJSON(w, chatResponse{Blocked: blocked})
}

func (s *Server) handleOverhead(w http.ResponseWriter, r *http.Request) {
	var req overheadRequest
	if !decode(w, r, &req) {
		return
	}
	text, err := s.gate.OverheadText(r.Context(), req.Text)
	if err != nil {
		s.logger.Warnw("Overhead check failed", "error", err)
		text = req.Text
	}
	writeJSON(w, overheadResponse{Text: text})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if !decode(w, r, &req) {
		return
	}
	state := strings.ToUpper(strings.TrimSpace(req.State))
	if boundaryStates[state] {
		if err := s.gate.SessionBoundary(r.Context()); err != nil {
			s.logger.Warnw("Session boundary failed", "state", state, "error", err)
		} else {
			s.logger.Infow("Session boundary", "state", state)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
