package chat

import (
	"strings"
	"sync"
)

// Type: тип сообщения чата в терминах хоста.
type Type int

const (
	TypeOther Type = iota
	TypePublic
	TypeMod
	TypeAutotyper
	TypePrivate
	TypeModPrivate
	TypeFriends
)

var typeNames = map[Type]string{
	TypeOther:      "OTHER",
	TypePublic:     "PUBLICCHAT",
	TypeMod:        "MODCHAT",
	TypeAutotyper:  "AUTOTYPER",
	TypePrivate:    "PRIVATECHAT",
	TypeModPrivate: "MODPRIVATECHAT",
	TypeFriends:    "FRIENDSCHAT",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return typeNames[TypeOther]
}

// ParseType разбирает имя типа (регистр не важен); неизвестные имена дают TypeOther.
func ParseType(s string) Type {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t
		}
	}
	return TypeOther
}

// Filtered сообщает, проверяется ли сообщение такого типа на спам.
// Системные и прочие сообщения показываются без проверки.
func (t Type) Filtered() bool {
	switch t {
	case TypePublic, TypeMod, TypeAutotyper, TypePrivate, TypeModPrivate, TypeFriends:
		return true
	default:
		return false
	}
}

// Message: одно сообщение, пришедшее от хоста.
type Message struct {
	Type    Type
	Channel string
	User    string
	Text    string
}

// Chat: потокобезопасный буфер фиксированной ёмкости для принятых (показанных) сообщений.
type Chat struct {
	cap      int
	messages []string
	mu       sync.Mutex
	notify   chan struct{}
}

func New(capacity int) *Chat {
	if capacity <= 0 {
		capacity = 30
	}
	return &Chat{cap: capacity, messages: make([]string, 0, capacity), notify: make(chan struct{}, 1)}
}

// Add добавляет сообщение, при переполнении удаляет самое старое.
func (c *Chat) Add(text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	if len(c.messages) == c.cap {
		// удалить самое старое
		copy(c.messages, c.messages[1:])
		c.messages = c.messages[:c.cap-1]
	}
	c.messages = append(c.messages, text)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Drain возвращает все сообщения и очищает буфер.
func (c *Chat) Drain() []string {
	c.mu.Lock()
	msgs := make([]string, len(c.messages))
	copy(msgs, c.messages)
	c.messages = c.messages[:0]
	c.mu.Unlock()
	return msgs
}

func (c *Chat) Len() int {
	c.mu.Lock()
	l := len(c.messages)
	c.mu.Unlock()
	return l
}

func (c *Chat) NotifyCh() <-chan struct{} { return c.notify }
