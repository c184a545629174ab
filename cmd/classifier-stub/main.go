package main

import (
	"ChatSpamClient/internal/config"
	"ChatSpamClient/internal/service/classifier"
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Простой сервис классификации для локальной отладки: на каждую строку отвечает
// "spam", если в ней встречается стоп-фраза, иначе "ham". Ничего больше.
func main() {
	cfg := config.NewConfig()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	v := newVerdicts(cfg.Stub.StopPhrases)

	ln, err := net.Listen("tcp", cfg.Stub.Addr)
	if err != nil {
		sugar.Fatalw("listen error", "addr", cfg.Stub.Addr, "error", err)
	}
	sugar.Infow("Classifier stub listening", "addr", ln.Addr().String(), "phrases", cfg.Stub.StopPhrases)
	go serveTCP(ln, v, sugar)

	var srv *http.Server
	if cfg.Stub.WSPath != "" {
		srv = newWSServer(cfg.Stub.WSAddr, cfg.Stub.WSPath, v, sugar)
		go func() {
			sugar.Infow("Classifier stub websocket listening", "addr", srv.Addr, "path", cfg.Stub.WSPath)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
				sugar.Errorw("websocket server error", "error", err)
			}
		}()
	}

	// Graceful shutdown on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	_ = ln.Close()
	if srv != nil {
		shCtx, cancel := context.WithTimeoutCause(context.Background(), 5*time.Second, errors.New("shutdown timeout"))
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			_ = srv.Close()
		}
	}
	sugar.Infow("Classifier stub stopped")
}

type verdicts struct {
	phrases []string
}

func newVerdicts(phrases []string) *verdicts {
	lower := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(classifier.Sanitize(p)); p != "" {
			lower = append(lower, p)
		}
	}
	return &verdicts{phrases: lower}
}

func (v *verdicts) verdict(line string) string {
	text := strings.ToLower(line)
	for _, p := range v.phrases {
		if strings.Contains(text, p) {
			return "spam"
		}
	}
	return "ham"
}

func serveTCP(ln net.Listener, v *verdicts, logger *zap.SugaredLogger) {
	for {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer c.Close()
			logger.Infow("client connected", "remote", c.RemoteAddr().String())
			sc := bufio.NewScanner(c)
			for sc.Scan() {
				line := sc.Text()
				resp := v.verdict(line)
				logger.Debugw("classified", "text", line, "verdict", resp)
				if _, err := c.Write([]byte(resp + "\n")); err != nil {
					return
				}
			}
			logger.Infow("client disconnected", "remote", c.RemoteAddr().String())
		}()
	}
}

func newWSServer(addr, path string, v *verdicts, logger *zap.SugaredLogger) *http.Server {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnw("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(v.verdict(string(data)))); err != nil {
				return
			}
		}
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
