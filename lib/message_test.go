// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineTaggedPrefixedTrailing(t *testing.T) {
	msg, err := ParseLine("@badge=1 :user!user@host PRIVMSG #chan :hello there friend")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"badge": "1"}, msg.Tags)
	assert.Equal(t, "user!user@host", msg.Prefix)
	assert.Equal(t, "PRIVMSG", msg.Command)
	assert.Equal(t, []string{"#chan"}, msg.Params)
	assert.True(t, msg.HasTrailing)
	assert.Equal(t, "hello there friend", msg.Trailing)
	assert.Equal(t, "user", msg.Nick())
}

func TestParseLineVariants(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Message
	}{
		{
			name: "bare command",
			line: "PING",
			want: Message{Command: "PING"},
		},
		{
			name: "command with params",
			line: "JOIN #foo #bar",
			want: Message{Command: "JOIN", Params: []string{"#foo", "#bar"}},
		},
		{
			name: "empty trailing",
			line: "PRIVMSG #chan :",
			want: Message{Command: "PRIVMSG", Params: []string{"#chan"}, HasTrailing: true},
		},
		{
			name: "prefix only no tags",
			line: ":tmi.twitch.tv 001 someone :Welcome, GLHF!",
			want: Message{
				Prefix:      "tmi.twitch.tv",
				Command:     "001",
				Params:      []string{"someone"},
				Trailing:    "Welcome, GLHF!",
				HasTrailing: true,
			},
		},
		{
			name: "tags without values",
			line: "@solo;empty= PING",
			want: Message{Tags: map[string]string{"solo": "", "empty": ""}, Command: "PING"},
		},
		{
			name: "run of spaces between params",
			line: "MODE #chan  +o  someone",
			want: Message{Command: "MODE", Params: []string{"#chan", "+o", "someone"}},
		},
		{
			name: "unknown command passes through",
			line: ":tmi.twitch.tv WHISPERISH a b :c d",
			want: Message{
				Prefix:      "tmi.twitch.tv",
				Command:     "WHISPERISH",
				Params:      []string{"a", "b"},
				Trailing:    "c d",
				HasTrailing: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseLine(tt.line)
			require.NoError(t, err)
			tt.want.SourceLine = tt.line
			assert.Equal(t, &tt.want, msg)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty line", "", ErrEmptyCommand},
		{"tags then nothing", "@badge=1 ", ErrEmptyCommand},
		{"tag block with no closing space", "@badge=1", ErrMalformed},
		{"prefix with no command", ":user!user@host", ErrMalformed},
		{"prefix then nothing", ":user!user@host ", ErrEmptyCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseLineTagUnescaping(t *testing.T) {
	msg, err := ParseLine(`@system-msg=5\smonths!;semi=a\:b;back=a\\b;weird=a\zb PING`)
	require.NoError(t, err)

	assert.Equal(t, "5 months!", msg.Tags["system-msg"])
	assert.Equal(t, "a;b", msg.Tags["semi"])
	assert.Equal(t, `a\b`, msg.Tags["back"])
	// invalid escape drops the backslash
	assert.Equal(t, "azb", msg.Tags["weird"])
}

func TestLineEncoding(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "trailing form only when needed",
			msg:  Message{Command: "PRIVMSG", Params: []string{"#chan", "word"}},
			want: "PRIVMSG #chan word",
		},
		{
			name: "trailing with spaces",
			msg: Message{Command: "PRIVMSG", Params: []string{"#chan"},
				Trailing: "hello there", HasTrailing: true},
			want: "PRIVMSG #chan :hello there",
		},
		{
			name: "empty trailing keeps colon",
			msg: Message{Command: "PRIVMSG", Params: []string{"#chan"},
				Trailing: "", HasTrailing: true},
			want: "PRIVMSG #chan :",
		},
		{
			name: "single-word trailing still emitted plainly",
			msg: Message{Command: "PRIVMSG", Params: []string{"#chan"},
				Trailing: "word", HasTrailing: true},
			want: "PRIVMSG #chan word",
		},
		{
			name: "prefix and tags",
			msg: Message{Tags: map[string]string{"badge": "1"}, Prefix: "me!me@host",
				Command: "PRIVMSG", Params: []string{"#chan"},
				Trailing: "hi there", HasTrailing: true},
			want: "@badge=1 :me!me@host PRIVMSG #chan :hi there",
		},
		{
			name: "tag value escaping",
			msg: Message{Tags: map[string]string{"system-msg": "5 months; wow"},
				Command: "PING"},
			want: `@system-msg=5\smonths\:\swow PING`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := tt.msg.Line()
			require.NoError(t, err)
			assert.Equal(t, tt.want, line)
		})
	}
}

func TestLineRejectsInjection(t *testing.T) {
	bad := []Message{
		{Command: "PRIVMSG", Params: []string{"#chan"},
			Trailing: "hi\r\nQUIT", HasTrailing: true},
		{Command: "PRIVMSG", Params: []string{"#chan\n"}},
		{Command: "PRIVMSG\r", Params: []string{"#chan"}},
		{Command: "PING", Tags: map[string]string{"k": "v\n"}},
	}
	for _, msg := range bad {
		_, err := msg.Line()
		assert.ErrorIs(t, err, ErrLineTerminator)
	}
}

func TestLineRejectsUnencodableShapes(t *testing.T) {
	_, err := (&Message{}).Line()
	assert.ErrorIs(t, err, ErrEmptyCommand)

	// a middle parameter with a space cannot be represented
	msg := Message{Command: "PRIVMSG", Params: []string{"#a b", "x"}}
	_, err = msg.Line()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRoundTrip(t *testing.T) {
	// canonical forms: trailing is only spelled with a colon when needed
	lines := []string{
		"PING",
		"JOIN #somewhere",
		"PRIVMSG #chan :",
		"@badge=1 :user!user@host PRIVMSG #chan :hello there friend",
		`@system-msg=5\smonths! :tmi.twitch.tv USERNOTICE #chan`,
		":someone!someone@host PART #chan",
	}

	for _, line := range lines {
		msg, err := ParseLine(line)
		require.NoError(t, err)

		encoded, err := msg.Line()
		require.NoError(t, err)

		again, err := ParseLine(encoded)
		require.NoError(t, err)

		// compare modulo SourceLine
		msg.SourceLine = ""
		again.SourceLine = ""
		assert.Equal(t, msg, again, "round trip of %q", line)
	}
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "short", TruncateLine("short", 100))
	assert.Equal(t, "PRIVMSG #c", TruncateLine("PRIVMSG #chan :too long", 10))
	// partial UTF-8 sequence at the cut is dropped entirely
	assert.Equal(t, "ab", TruncateLine("abé", 3))
}

func TestText(t *testing.T) {
	msg, err := ParseLine("PRIVMSG #chan :hello there")
	require.NoError(t, err)
	assert.Equal(t, "hello there", msg.Text())

	msg, err = ParseLine("PONG tmi.twitch.tv token")
	require.NoError(t, err)
	assert.Equal(t, "token", msg.Text())
}
