package unfurl

import (
	"strconv"
	"strings"
)

// namedEntities are the five named entities plus nbsp that decodeEntities
// recognizes (spec §4.5 step 4); anything else is left untouched.
var namedEntities = map[string]string{
	"amp":  "&",
	"lt":   "<",
	"gt":   ">",
	"quot": "\"",
	"apos": "'",
	"nbsp": " ",
}

// decodeEntities decodes numeric character references (&#NNN; and
// &#xHHHH;) and the five named entities plus &nbsp;.
func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			b.WriteByte(s[i])
			continue
		}

		end := strings.IndexByte(s[i:], ';')
		if end == -1 || end > 12 {
			b.WriteByte(s[i])
			continue
		}
		token := s[i+1 : i+end]

		if decoded, ok := decodeEntityToken(token); ok {
			b.WriteString(decoded)
			i += end
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func decodeEntityToken(token string) (string, bool) {
	if v, ok := namedEntities[token]; ok {
		return v, true
	}

	if strings.HasPrefix(token, "#x") || strings.HasPrefix(token, "#X") {
		n, err := strconv.ParseInt(token[2:], 16, 32)
		if err != nil {
			return "", false
		}
		return string(rune(n)), true
	}

	if strings.HasPrefix(token, "#") {
		n, err := strconv.ParseInt(token[1:], 10, 32)
		if err != nil {
			return "", false
		}
		return string(rune(n)), true
	}

	return "", false
}
