package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChat_DropsOldestWhenFull(t *testing.T) {
	c := New(2)
	c.Add("a")
	c.Add("")
	c.Add("b")
	c.Add("c")

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"b", "c"}, c.Drain())
	assert.Equal(t, 0, c.Len())
}

func TestChat_Notifies(t *testing.T) {
	c := New(0)
	c.Add("a")
	c.Add("b")

	select {
	case <-c.NotifyCh():
	default:
		t.Fatal("ожидалось уведомление")
	}
}

func TestParseType(t *testing.T) {
	assert.Equal(t, TypePublic, ParseType("publicchat"))
	assert.Equal(t, TypeModPrivate, ParseType(" MODPRIVATECHAT "))
	assert.Equal(t, TypeOther, ParseType("GAMEMESSAGE"))
	assert.Equal(t, "FRIENDSCHAT", TypeFriends.String())
}

func TestType_Filtered(t *testing.T) {
	for _, ty := range []Type{TypePublic, TypeMod, TypeAutotyper, TypePrivate, TypeModPrivate, TypeFriends} {
		assert.True(t, ty.Filtered(), ty.String())
	}
	assert.False(t, TypeOther.Filtered())
}
