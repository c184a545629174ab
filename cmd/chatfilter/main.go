package main

import (
	"ChatSpamClient/internal/adapter/chat/twitch"
	"ChatSpamClient/internal/app/filter"
	"ChatSpamClient/internal/config"
	"ChatSpamClient/internal/service/chat"
	"ChatSpamClient/internal/service/chatlog"
	"ChatSpamClient/internal/service/classifier"
	"ChatSpamClient/internal/service/events/host"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, sugar); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Starting chat filter",
		"DebugMode", cfg.DebugMode,
		"classifier", cfg.Classifier.Addr,
		"transport", cfg.Classifier.Transport,
		"chatLog", cfg.ChatLogPath,
	)

	cls, err := classifier.New(classifier.Config{
		Addr:                 cfg.Classifier.Addr,
		Transport:            cfg.Classifier.Transport,
		WSPath:               cfg.Classifier.WSPath,
		DialTimeout:          cfg.Classifier.DialTimeout,
		QueryTimeout:         cfg.Classifier.QueryTimeout,
		ReconnectInitial:     cfg.Classifier.ReconnectInitial,
		ReconnectMax:         cfg.Classifier.ReconnectMax,
		CacheSize:            cfg.Classifier.CacheSize,
		CacheFailureVerdicts: cfg.Classifier.CacheFailureVerdicts,
	}, sugar)
	if err != nil {
		return err
	}
	chatLog := chatlog.New(cfg.ChatLogPath, sugar)

	// Старт: соединение и журнал открываются заранее, недоступность не фатальна
	cls.Start(ctx)
	if err := chatLog.Open(); err != nil {
		sugar.Warnw("Could not open chat log, will retry on next message", "path", cfg.ChatLogPath, "error", err)
	}
	// Остановка выполняется после выхода из цикла фильтра, когда к ресурсам больше никто не обращается
	defer func() {
		if err := cls.Stop(); err != nil {
			sugar.Warnw("Classifier stop error", "error", err)
		}
		if err := chatLog.Close(); err != nil {
			sugar.Warnw("Chat log close error", "error", err)
		}
		sugar.Infow("Chat filter stopped")
	}()

	feed := chat.New(cfg.ChatMax)
	flt := filter.New(cls, chatLog, feed, sugar)

	go display(ctx, feed)

	if cfg.HostServer.Enabled {
		srv := host.NewServer(cfg.HostServer, flt, sugar)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("host bridge: %w", err)
		}
	}

	go func() {
		err := twitch.Run(ctx, sugar, twitch.Config{
			Username: cfg.TwitchUsername,
			OAuth:    cfg.TwitchOAuthToken,
			Channel:  cfg.TwitchChannel,
		}, flt)
		if err != nil && !errors.Is(err, context.Canceled) {
			sugar.Errorw("Twitch chat stopped", "error", err)
		}
	}()

	return flt.Run(ctx)
}

// display печатает принятые сообщения, как их увидел бы пользователь.
func display(ctx context.Context, feed *chat.Chat) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-feed.NotifyCh():
			ts := time.Now().Format("15:04:05")
			for _, line := range feed.Drain() {
				fmt.Printf("[%s] %s\n", ts, line)
			}
		}
	}
}
