// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Message is one decoded protocol line.
//
// Tags is nil when the line carried no tag block. Trailing is only
// meaningful when HasTrailing is set; it is semantically the last
// parameter and may contain spaces or be empty.
type Message struct {
	Tags        map[string]string
	Prefix      string
	Command     string
	Params      []string
	Trailing    string
	HasTrailing bool

	// SourceLine is the raw line this message was parsed from, empty for
	// messages constructed in-process.
	SourceLine string
}

// Nick returns the nick portion of the prefix ("nick!user@host").
func (msg *Message) Nick() string {
	nick, _, _ := strings.Cut(msg.Prefix, "!")
	return nick
}

// Text returns the trailing parameter if present, else the last parameter.
// Chat message bodies arrive in either form.
func (msg *Message) Text() string {
	if msg.HasTrailing {
		return msg.Trailing
	}
	if len(msg.Params) > 0 {
		return msg.Params[len(msg.Params)-1]
	}
	return ""
}

// ParseLine decodes one complete wire line, terminator already stripped.
//
// Unrecognized command verbs are not an error; they decode into ordinary
// messages and reach wildcard-subscribed plugins uninterpreted.
func ParseLine(line string) (*Message, error) {
	msg := &Message{SourceLine: line}
	rest := strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(rest, "@") {
		space := strings.IndexByte(rest, ' ')
		if space < 0 {
			return nil, fmt.Errorf("parsing %q: %w (tag block with no closing space)", line, ErrMalformed)
		}
		msg.Tags = parseTags(rest[1:space])
		rest = strings.TrimLeft(rest[space+1:], " ")
	}

	if strings.HasPrefix(rest, ":") {
		space := strings.IndexByte(rest, ' ')
		if space < 0 {
			return nil, fmt.Errorf("parsing %q: %w (prefix with no command)", line, ErrMalformed)
		}
		msg.Prefix = rest[1:space]
		rest = strings.TrimLeft(rest[space+1:], " ")
	}

	if rest == "" {
		return nil, fmt.Errorf("parsing %q: %w", line, ErrEmptyCommand)
	}

	command, rest, hasParams := strings.Cut(rest, " ")
	msg.Command = command
	if !hasParams {
		return msg, nil
	}

	for rest != "" {
		if strings.HasPrefix(rest, ":") {
			msg.Trailing = rest[1:]
			msg.HasTrailing = true
			break
		}
		var param string
		param, rest, _ = strings.Cut(rest, " ")
		if param == "" {
			// run of spaces
			continue
		}
		msg.Params = append(msg.Params, param)
	}

	return msg, nil
}

// Line encodes the message back into wire form, without terminator.
//
// The last parameter is emitted in trailing form only when it needs it
// (contains a space, is empty, or starts with a colon). Any CR, LF or NUL
// embedded in a field is rejected rather than spliced into the stream.
func (msg *Message) Line() (string, error) {
	if msg.Command == "" {
		return "", ErrEmptyCommand
	}
	if strings.ContainsAny(msg.Command, " ") || strings.ContainsAny(msg.Prefix, " ") {
		return "", fmt.Errorf("encoding: %w (space in command or prefix)", ErrMalformed)
	}
	for _, field := range append([]string{msg.Prefix, msg.Command, msg.Trailing}, msg.Params...) {
		if strings.ContainsAny(field, "\r\n\x00") {
			return "", ErrLineTerminator
		}
	}
	for key, value := range msg.Tags {
		if strings.ContainsAny(key+value, "\r\n\x00") {
			return "", ErrLineTerminator
		}
	}

	var buf strings.Builder

	if len(msg.Tags) > 0 {
		keys := make([]string, 0, len(msg.Tags))
		for key := range msg.Tags {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for i, key := range keys {
			if i == 0 {
				buf.WriteByte('@')
			} else {
				buf.WriteByte(';')
			}
			buf.WriteString(key)
			if value := msg.Tags[key]; value != "" {
				buf.WriteByte('=')
				buf.WriteString(escapeTagValue(value))
			}
		}
		buf.WriteByte(' ')
	}

	if msg.Prefix != "" {
		buf.WriteByte(':')
		buf.WriteString(msg.Prefix)
		buf.WriteByte(' ')
	}

	buf.WriteString(msg.Command)

	params := msg.Params
	last := ""
	hasLast := msg.HasTrailing
	if msg.HasTrailing {
		last = msg.Trailing
	} else if len(params) > 0 {
		last = params[len(params)-1]
		params = params[:len(params)-1]
		hasLast = true
	}

	for _, param := range params {
		if param == "" || strings.Contains(param, " ") || strings.HasPrefix(param, ":") {
			return "", fmt.Errorf("encoding: %w (space or colon in middle parameter)", ErrMalformed)
		}
		buf.WriteByte(' ')
		buf.WriteString(param)
	}

	if hasLast {
		buf.WriteByte(' ')
		if last == "" || strings.Contains(last, " ") || strings.HasPrefix(last, ":") {
			buf.WriteByte(':')
		}
		buf.WriteString(last)
	}

	return buf.String(), nil
}

// TruncateLine caps an encoded line at max bytes. Cutting happens from the
// end of the line, so only trailing text is ever lost, never the command.
// A partial UTF-8 sequence at the cut is dropped too.
func TruncateLine(line string, max int) string {
	if len(line) <= max {
		return line
	}
	line = line[:max]
	for len(line) > 0 && !utf8.ValidString(line) {
		line = line[:len(line)-1]
	}
	return line
}

func parseTags(block string) map[string]string {
	tags := make(map[string]string)
	for _, pair := range strings.Split(block, ";") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		tags[key] = unescapeTagValue(value)
	}
	return tags
}

var tagEscaper = strings.NewReplacer(
	"\\", "\\\\",
	";", "\\:",
	" ", "\\s",
	"\r", "\\r",
	"\n", "\\n",
)

func escapeTagValue(value string) string {
	return tagEscaper.Replace(value)
}

func unescapeTagValue(value string) string {
	if !strings.ContainsRune(value, '\\') {
		return value
	}
	var buf strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] != '\\' {
			buf.WriteByte(value[i])
			continue
		}
		i++
		if i == len(value) {
			// lone trailing backslash is dropped
			break
		}
		switch value[i] {
		case ':':
			buf.WriteByte(';')
		case 's':
			buf.WriteByte(' ')
		case 'r':
			buf.WriteByte('\r')
		case 'n':
			buf.WriteByte('\n')
		default:
			// invalid escape: the backslash is dropped
			buf.WriteByte(value[i])
		}
	}
	return buf.String()
}
