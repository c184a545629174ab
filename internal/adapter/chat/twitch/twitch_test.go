package twitch

import (
	"ChatSpamClient/internal/service/chat"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingGate struct {
	checked    []chat.Message
	boundaries int
}

func (g *recordingGate) Check(_ context.Context, msg chat.Message) (bool, error) {
	g.checked = append(g.checked, msg)
	return false, nil
}

func (g *recordingGate) SessionBoundary(context.Context) error {
	g.boundaries++
	return nil
}

func TestHandler_ReconnectIsSessionBoundary(t *testing.T) {
	g := &recordingGate{}
	h := newHandler(context.Background(), zap.NewNop().Sugar(), g)

	h.connected()
	assert.Equal(t, 0, g.boundaries)
	h.connected()
	h.connected()
	assert.Equal(t, 2, g.boundaries)
}

func TestHandler_DropsFloodWithinWindow(t *testing.T) {
	g := &recordingGate{}
	h := newHandler(context.Background(), zap.NewNop().Sugar(), g)
	now := time.Unix(1_700_000_000, 0)
	h.now = func() time.Time { return now }

	msg := chat.Message{Type: chat.TypePublic, User: "bot", Text: "buy gold"}
	h.message(msg)
	h.message(msg)
	now = now.Add(floodWindow + time.Second)
	h.message(msg)
	h.message(chat.Message{Type: chat.TypePublic, User: "other", Text: "buy gold"})

	assert.Len(t, g.checked, 3)
}

func TestHandler_SkipsEmpty(t *testing.T) {
	g := &recordingGate{}
	h := newHandler(context.Background(), zap.NewNop().Sugar(), g)

	h.message(chat.Message{Type: chat.TypePublic, User: "bot", Text: "   "})
	h.message(chat.Message{Type: chat.TypePublic, User: "", Text: "hi"})

	assert.Empty(t, g.checked)
}

func TestPublicType(t *testing.T) {
	assert.Equal(t, chat.TypePublic, publicType(nil))
	assert.Equal(t, chat.TypePublic, publicType(map[string]int{"subscriber": 12}))
	assert.Equal(t, chat.TypeMod, publicType(map[string]int{"moderator": 1}))
	assert.Equal(t, chat.TypeMod, publicType(map[string]int{"broadcaster": 1}))
}

func TestRun_NotConfigured(t *testing.T) {
	err := Run(context.Background(), zap.NewNop().Sugar(), Config{}, &recordingGate{})
	assert.NoError(t, err)
}
