package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "hello", "hello"},
		{"trim", "  hello  ", "hello"},
		{"color tag", "<col=ff0000>buy gold</col>", "buy gold"},
		{"icon tag", "<img=2>Mod: hi", "Mod: hi"},
		{"nbsp", "buy\u00a0gold\u00a0now", "buy gold now"},
		{"newline", "line1\nline2\r\n", "line1 line2"},
		{"tabs and runs", "a\t\t b   c", "a b c"},
		{"nested brackets", "<<a>b>", "b>"},
		{"unclosed", "a < b", "a < b"},
		{"only markup", "<br><br>", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "<<a>b>", "<a<b>c>d", "x<\n>y", " <col=1> a\u0000b ", "a >< b", "<<<>>>",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func FuzzSanitize(f *testing.F) {
	for _, seed := range []string{"", "hello", "<col=ff0000>x</col>", "a b", "<<a>b>", "\t\n"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, in string) {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	})
}
