package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` //Режим дебага

	// Сервис классификации
	Classifier ClassifierConfig

	// Журнал чата
	ChatLogPath string `env:"CHAT_LOG_PATH"` // Путь к журналу принятых сообщений, дописывается
	ChatMax     int    `env:"CHAT_MAX"`      // Максимум хранимых принятых сообщений для показа

	// Chat / Twitch
	TwitchUsername   string `env:"TWITCH_USERNAME"`    // Имя пользователя Twitch (логин)
	TwitchOAuthToken string `env:"TWITCH_OAUTH_TOKEN"` // OAuth токен Twitch (может быть без префикса oauth:)
	TwitchChannel    string `env:"TWITCH_CHANNEL"`     // Канал Twitch (один), без #

	// HostServer: HTTP-мост для игрового клиента
	HostServer HostServerConfig

	// Stub: локальный сервис классификации для разработки (cmd/classifier-stub)
	Stub StubConfig
}

// ClassifierConfig параметры клиента сервиса классификации.
type ClassifierConfig struct {
	Addr             string        `env:"CLASSIFIER_ADDR"`              // host:port сервиса
	Transport        string        `env:"CLASSIFIER_TRANSPORT"`         // tcp|ws
	WSPath           string        `env:"CLASSIFIER_WS_PATH"`           // путь для ws
	DialTimeout      time.Duration `env:"CLASSIFIER_DIAL_TIMEOUT"`      // Таймаут подключения
	QueryTimeout     time.Duration `env:"CLASSIFIER_QUERY_TIMEOUT"`     // Таймаут одного запроса (запись+чтение)
	ReconnectInitial time.Duration `env:"CLASSIFIER_RECONNECT_INITIAL"` // Пауза после неудачного подключения; 0 отключает паузу
	ReconnectMax     time.Duration `env:"CLASSIFIER_RECONNECT_MAX"`     // Максимальная пауза
	CacheSize        int           `env:"CACHE_SIZE"`                   // Ёмкость кэша вердиктов
	// Кэшировать «не спам» при сбое соединения, как делала исходная версия
	CacheFailureVerdicts bool `env:"CACHE_FAILURE_VERDICTS"`
}

// HostServerConfig конфигурация HTTP-моста.
type HostServerConfig struct {
	Enabled   bool   `env:"HOST_SERVER_ENABLED"`    // Главный флаг включения/выключения
	BindAddr  string `env:"HOST_SERVER_BIND_ADDR"`  // Адрес слушателя, напр. 127.0.0.1:3000
	AuthToken string `env:"HOST_SERVER_AUTH_TOKEN"` // Токен авторизации (опционально)
}

// StubConfig конфигурация тестового сервиса классификации.
type StubConfig struct {
	Addr        string   `env:"STUB_ADDR"`                          // Адрес слушателя
	StopPhrases []string `env:"STUB_STOP_PHRASES" envSeparator:";"` // Фразы, по которым текст считается спамом
	WSPath      string   `env:"STUB_WS_PATH"`                       // Если задан, дополнительно слушаем WebSocket по HTTP
	WSAddr      string   `env:"STUB_WS_ADDR"`                       // Адрес HTTP для WebSocket
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		Classifier: ClassifierConfig{
			Addr:             "127.0.0.1:6978",
			Transport:        "tcp",
			WSPath:           "/",
			DialTimeout:      time.Second,
			QueryTimeout:     2 * time.Second,
			ReconnectInitial: 500 * time.Millisecond,
			ReconnectMax:     30 * time.Second,
			CacheSize:        100,
		},
		ChatLogPath: "chat.log",
		ChatMax:     30,
		HostServer: HostServerConfig{
			Enabled:  false,
			BindAddr: "127.0.0.1:3000",
		},
		Stub: StubConfig{
			Addr:        "127.0.0.1:6978",
			StopPhrases: []string{"buy gold", "cheap gold", "free membership"},
			WSAddr:      "127.0.0.1:6979",
		},
	}
}

// NewConfig загружает конфигурацию приложения из .env, окружения и os.Args.
func NewConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load собирает конфигурацию: дефолты → .env → окружение → флаги args.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	fs := flag.NewFlagSet("chatfilter", flag.ContinueOnError)
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп. инфы")
	// Классификатор
	fs.StringVar(&cfg.Classifier.Addr, "classifier-addr", cfg.Classifier.Addr, "адрес сервиса классификации host:port")
	fs.StringVar(&cfg.Classifier.Transport, "classifier-transport", cfg.Classifier.Transport, "транспорт: tcp|ws")
	fs.StringVar(&cfg.Classifier.WSPath, "classifier-ws-path", cfg.Classifier.WSPath, "путь WebSocket для транспорта ws")
	fs.DurationVar(&cfg.Classifier.DialTimeout, "classifier-dial-timeout", cfg.Classifier.DialTimeout, "таймаут подключения, напр. 1s")
	fs.DurationVar(&cfg.Classifier.QueryTimeout, "classifier-query-timeout", cfg.Classifier.QueryTimeout, "таймаут ответа на один запрос, напр. 2s")
	fs.DurationVar(&cfg.Classifier.ReconnectInitial, "classifier-reconnect-initial", cfg.Classifier.ReconnectInitial, "пауза после неудачного подключения (0: пробовать при каждом сообщении)")
	fs.DurationVar(&cfg.Classifier.ReconnectMax, "classifier-reconnect-max", cfg.Classifier.ReconnectMax, "максимальная пауза между попытками подключения")
	fs.IntVar(&cfg.Classifier.CacheSize, "cache-size", cfg.Classifier.CacheSize, "ёмкость кэша вердиктов")
	fs.BoolVar(&cfg.Classifier.CacheFailureVerdicts, "cache-failure-verdicts", cfg.Classifier.CacheFailureVerdicts, "кэшировать «не спам» при сбое соединения (как в исходной версии)")
	// Журнал
	fs.StringVar(&cfg.ChatLogPath, "chat-log-path", cfg.ChatLogPath, "путь к журналу принятых сообщений")
	fs.IntVar(&cfg.ChatMax, "chat-max", cfg.ChatMax, "максимум хранимых принятых сообщений для показа")
	// Twitch
	fs.StringVar(&cfg.TwitchUsername, "twitch-username", cfg.TwitchUsername, "логин Twitch для подключения к чату")
	fs.StringVar(&cfg.TwitchOAuthToken, "twitch-oauth-token", cfg.TwitchOAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&cfg.TwitchChannel, "twitch-channel", cfg.TwitchChannel, "канал Twitch (без #)")
	// HostServer
	fs.BoolVar(&cfg.HostServer.Enabled, "host-server-enabled", cfg.HostServer.Enabled, "включить HTTP-мост для игрового клиента")
	fs.StringVar(&cfg.HostServer.BindAddr, "host-server-bind-addr", cfg.HostServer.BindAddr, "адрес для прослушивания моста (напр. 127.0.0.1:3000)")
	fs.StringVar(&cfg.HostServer.AuthToken, "host-server-auth-token", cfg.HostServer.AuthToken, "токен авторизации моста (опционально)")
	// Stub
	fs.StringVar(&cfg.Stub.Addr, "stub-addr", cfg.Stub.Addr, "адрес тестового сервиса классификации")
	stopPhrasesFlag := strings.Join(cfg.Stub.StopPhrases, ";")
	fs.StringVar(&stopPhrasesFlag, "stub-stop-phrases", stopPhrasesFlag, "стоп-фразы тестового сервиса, разделённые ';'")
	fs.StringVar(&cfg.Stub.WSPath, "stub-ws-path", cfg.Stub.WSPath, "путь WebSocket тестового сервиса (пусто: без WebSocket)")
	fs.StringVar(&cfg.Stub.WSAddr, "stub-ws-addr", cfg.Stub.WSAddr, "адрес HTTP для WebSocket тестового сервиса")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Stub.StopPhrases = parseListFlag(stopPhrasesFlag, nil)

	if cfg.Classifier.CacheSize <= 0 {
		return nil, fmt.Errorf("config: CACHE_SIZE должен быть положительным, получено %d", cfg.Classifier.CacheSize)
	}
	if strings.TrimSpace(cfg.ChatLogPath) == "" {
		return nil, fmt.Errorf("config: CHAT_LOG_PATH не задан")
	}
	return cfg, nil
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
