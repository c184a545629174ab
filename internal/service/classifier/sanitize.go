package classifier

import (
	"regexp"
	"strings"
	"unicode"
)

// Теги форматирования клиента: <col=ff0000>, <img=12>, <br> и т.п.
var tagRe = regexp.MustCompile(`<[^>]*>`)

// Sanitize приводит сырой текст к каноническому виду: ключу кэша и телу запроса.
// Удаляет теги, заменяет NBSP и управляющие символы пробелом, схлопывает пробелы и обрезает края.
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string) string {
	s := tagRe.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if r == '\u00a0' || unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
