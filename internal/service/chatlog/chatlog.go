package chatlog

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Log: журнал принятых сообщений чата: одна строка на сообщение, только дозапись.
// Файл открывается лениво при первой записи и закрывается на границе сессии
// (выход из игры, смена мира); следующая запись снова открывает его в режиме дозаписи.
// Не предназначен для конкурентного использования.
type Log struct {
	path   string
	logger *zap.SugaredLogger

	file    *os.File
	session string // идентификатор открытой сессии, только для логов
}

func New(path string, logger *zap.SugaredLogger) *Log {
	return &Log{path: path, logger: logger}
}

// Open открывает файл заранее. Если файл уже открыт, ничего не делает.
func (l *Log) Open() error {
	if l.file != nil {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	l.session = uuid.NewString()
	l.logger.Infow("Chat log opened", "path", l.path, "session", l.session)
	return nil
}

// IsOpen сообщает, удерживается ли сейчас дескриптор файла.
func (l *Log) IsOpen() bool { return l.file != nil }

// Append дописывает строку. Ошибка открытия или записи логируется, строка теряется;
// следующая запись снова попробует открыть файл.
func (l *Log) Append(line string) {
	if err := l.Open(); err != nil {
		l.logger.Errorw("Could not open chat log", "path", l.path, "error", err)
		return
	}
	// переводы строк внутри сообщения сломали бы формат «одно сообщение на строку»
	line = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(line)
	if _, err := l.file.WriteString(line + "\n"); err != nil {
		l.logger.Errorw("Could not write chat log", "path", l.path, "session", l.session, "error", err)
		l.release()
	}
}

// OnSessionBoundary закрывает файл, не удаляя и не обрезая его. Повторный вызов безопасен.
func (l *Log) OnSessionBoundary() {
	if l.file == nil {
		return
	}
	l.logger.Infow("Chat log session closed", "path", l.path, "session", l.session)
	l.release()
}

// Close освобождает файл при завершении работы. Безопасен для уже закрытого журнала.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.session = ""
	return err
}

func (l *Log) release() {
	if err := l.Close(); err != nil {
		l.logger.Warnw("Could not close chat log", "path", l.path, "error", err)
	}
}
