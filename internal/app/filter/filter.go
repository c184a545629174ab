package filter

import (
	"ChatSpamClient/internal/service/chat"
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrStopped: цикл обработки уже завершён.
var ErrStopped = errors.New("filter: остановлен")

// Текст, которым заменяется надпись над персонажем, признанная спамом.
const blankOverhead = " "

type Classifier interface {
	Classify(ctx context.Context, text string) bool
}

type SessionLog interface {
	Append(line string)
	OnSessionBoundary()
}

type jobKind int

const (
	jobCheck jobKind = iota + 1
	jobOverhead
	jobBoundary
)

type job struct {
	kind  jobKind
	ctx   context.Context
	msg   chat.Message
	reply chan result
}

type result struct {
	blocked bool
	text    string
}

// Filter: связка хоста с клиентом классификации и журналом.
// Все обращения к Classifier и SessionLog выполняются в одной горутине Run,
// поэтому сами они синхронизации не требуют.
type Filter struct {
	cls    Classifier
	log    SessionLog
	feed   *chat.Chat
	logger *zap.SugaredLogger

	jobs chan job
	done chan struct{}
}

// New создаёт фильтр. feed может быть nil, тогда принятые сообщения никуда не публикуются.
func New(cls Classifier, log SessionLog, feed *chat.Chat, logger *zap.SugaredLogger) *Filter {
	return &Filter{
		cls:    cls,
		log:    log,
		feed:   feed,
		logger: logger,
		jobs:   make(chan job),
		done:   make(chan struct{}),
	}
}

// Run обрабатывает события до отмены ctx.
func (f *Filter) Run(ctx context.Context) error {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case j := <-f.jobs:
			f.handle(j)
		}
	}
}

func (f *Filter) handle(j job) {
	switch j.kind {
	case jobCheck:
		blocked := j.msg.Type.Filtered() && f.cls.Classify(j.ctx, j.msg.Text)
		j.reply <- result{blocked: blocked}
		if blocked {
			f.logger.Infow("Blocked spam", "type", j.msg.Type.String(), "channel", j.msg.Channel, "user", j.msg.User)
			return
		}
		// запись в журнал откладывается до ответа вызывающему
		if j.msg.Type == chat.TypePublic {
			f.log.Append(j.msg.Text)
		}
		if f.feed != nil {
			f.feed.Add(displayLine(j.msg))
		}
	case jobOverhead:
		out := result{text: j.msg.Text}
		if f.cls.Classify(j.ctx, j.msg.Text) {
			out = result{blocked: true, text: blankOverhead}
		}
		j.reply <- out
	case jobBoundary:
		f.log.OnSessionBoundary()
		close(j.reply)
	}
}

// Check классифицирует сообщение и возвращает true, если его нужно скрыть.
// Принятые публичные сообщения дописываются в журнал.
func (f *Filter) Check(ctx context.Context, msg chat.Message) (bool, error) {
	out, err := f.submit(ctx, job{kind: jobCheck, msg: msg})
	if err != nil {
		return false, err
	}
	return out.blocked, nil
}

// OverheadText возвращает текст над персонажем: исходный или пустой, если это спам.
func (f *Filter) OverheadText(ctx context.Context, text string) (string, error) {
	out, err := f.submit(ctx, job{kind: jobOverhead, msg: chat.Message{Text: text}})
	if err != nil {
		return text, err
	}
	return out.text, nil
}

// SessionBoundary закрывает журнал текущей сессии.
func (f *Filter) SessionBoundary(ctx context.Context) error {
	_, err := f.submit(ctx, job{kind: jobBoundary})
	return err
}

func (f *Filter) submit(ctx context.Context, j job) (result, error) {
	j.ctx = ctx
	j.reply = make(chan result, 1)
	select {
	case f.jobs <- j:
	case <-ctx.Done():
		return result{}, context.Cause(ctx)
	case <-f.done:
		return result{}, ErrStopped
	}
	select {
	case out := <-j.reply:
		return out, nil
	case <-ctx.Done():
		return result{}, context.Cause(ctx)
	}
}

func displayLine(m chat.Message) string {
	if m.User == "" {
		return m.Text
	}
	return m.User + ": " + m.Text
}
