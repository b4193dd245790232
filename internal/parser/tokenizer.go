package parser

import (
	"github.com/dlclark/regexp2"

	"github.com/keshon/argconv/internal/convert"
)

// A token is a quoted span whose closing quote is followed by whitespace or
// the end of input, or else a run of non-whitespace.
var tokenRE = regexp2.MustCompile(`\G\s*(?:"(.+?)"(?=\s|$)|(\S+))`, regexp2.None)

// nextToken reads one token at rune offset cur and returns it with the
// offset just past it.
func nextToken(runes []rune, cur int) (string, int, bool) {
	if cur >= len(runes) {
		return "", cur, false
	}
	m, err := tokenRE.FindRunesMatchStartingAt(runes, cur)
	if err != nil || m == nil {
		return "", cur, false
	}
	tok := ""
	if g := m.GroupByNumber(1); len(g.Captures) > 0 {
		tok = g.String()
	} else {
		tok = m.GroupByNumber(2).String()
	}
	return tok, m.Index + m.Length, true
}

var (
	userMentionRE    = regexp2.MustCompile(`^<@!?(\d{7,21})>$`, regexp2.None)
	roleMentionRE    = regexp2.MustCompile(`^<@&(\d{7,21})>$`, regexp2.None)
	channelMentionRE = regexp2.MustCompile(`^<#(\d{7,21})>$`, regexp2.None)
	emojiMentionRE   = regexp2.MustCompile(`^<(a)?:(\w{2,32}):(\d{7,21})>$`, regexp2.None)
	snowflakeRE      = regexp2.MustCompile(`^\d{7,21}$`, regexp2.None)
)

func match(re *regexp2.Regexp, s string) *regexp2.Match {
	m, err := re.FindStringMatch(s)
	if err != nil {
		return nil
	}
	return m
}

func isSnowflake(s string) bool {
	ok, err := snowflakeRE.MatchString(s)
	return err == nil && ok
}

// mentionID extracts the id embedded in the mention syntax of kind.
// Emoji mentions also carry name and animation, returned as a partial emoji.
func mentionID(kind convert.Kind, tok string) (id string, partial any, ok bool) {
	var re *regexp2.Regexp
	switch kind {
	case convert.KindUser:
		re = userMentionRE
	case convert.KindRole:
		re = roleMentionRE
	case convert.KindChannel:
		re = channelMentionRE
	case convert.KindEmoji:
		m := match(emojiMentionRE, tok)
		if m == nil {
			return "", nil, false
		}
		e := partialEmoji(m.GroupByNumber(3).String(), m.GroupByNumber(2).String(), len(m.GroupByNumber(1).Captures) > 0)
		return e.ID, e, true
	default:
		return "", nil, false
	}
	m := match(re, tok)
	if m == nil {
		return "", nil, false
	}
	return m.GroupByNumber(1).String(), nil, true
}
