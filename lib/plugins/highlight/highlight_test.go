// Copyright (c) 2018 Mortal
// released under the MIT license

package pluginHighlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aioirc "github.com/Mortal/aio-irc/lib"
)

type notification struct {
	summary string
	body    string
}

func newHighlight(t *testing.T, username, pattern string) (aioirc.Plugin, *[]notification) {
	t.Helper()
	var notified []notification

	config := &aioirc.Config{}
	config.Auth.Username = username
	config.Highlight.Pattern = pattern

	plugin, err := New(aioirc.Capabilities{
		Notify: func(summary, body string) error {
			notified = append(notified, notification{summary, body})
			return nil
		},
		Config: config,
	})
	require.NoError(t, err)
	return plugin, &notified
}

func parse(t *testing.T, line string) *aioirc.Message {
	t.Helper()
	msg, err := aioirc.ParseLine(line)
	require.NoError(t, err)
	return msg
}

func TestMentionTriggersNotification(t *testing.T) {
	h, notified := newHighlight(t, "someone", "")

	msg := parse(t, ":viewer!viewer@host PRIVMSG #chan :hey Someone, you around?")
	require.NoError(t, h.HandleMessage(msg))

	require.Len(t, *notified, 1)
	assert.Equal(t, "From viewer in #chan", (*notified)[0].summary)
	assert.Equal(t, "hey Someone, you around?", (*notified)[0].body)
}

func TestWordBoundaryRespected(t *testing.T) {
	h, notified := newHighlight(t, "someone", "")

	// "someones" is a different word
	msg := parse(t, ":viewer!viewer@host PRIVMSG #chan :someones at the door")
	require.NoError(t, h.HandleMessage(msg))

	assert.Empty(t, *notified)
}

func TestConfiguredPatternOverridesUsername(t *testing.T) {
	h, notified := newHighlight(t, "someone", `\bdarb\w*\b`)

	require.NoError(t, h.HandleMessage(parse(t,
		":viewer!viewer@host PRIVMSG #chan :darbian is live")))
	require.NoError(t, h.HandleMessage(parse(t,
		":viewer!viewer@host PRIVMSG #chan :hi someone")))

	require.Len(t, *notified, 1)
	assert.Equal(t, "darbian is live", (*notified)[0].body)
}

func TestInvalidPatternFailsActivation(t *testing.T) {
	config := &aioirc.Config{}
	config.Highlight.Pattern = "(["

	_, err := New(aioirc.Capabilities{Config: config})
	assert.Error(t, err)
}
