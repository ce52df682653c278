// Copyright (c) 2018 Mortal
// released under the MIT license

package pluginChatlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aioirc "github.com/Mortal/aio-irc/lib"
)

func newChatlog(t *testing.T) *Chatlog {
	t.Helper()

	config := &aioirc.Config{}
	config.Chatlog.Path = filepath.Join(t.TempDir(), "chatlog.db")

	plugin, err := New(aioirc.Capabilities{Config: config})
	require.NoError(t, err)

	cl := plugin.(*Chatlog)
	t.Cleanup(func() { cl.Close() })

	// a stepping clock so every record gets a distinct, ordered key
	at := time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC)
	cl.now = func() time.Time {
		at = at.Add(time.Second)
		return at
	}
	return cl
}

func parse(t *testing.T, line string) *aioirc.Message {
	t.Helper()
	msg, err := aioirc.ParseLine(line)
	require.NoError(t, err)
	return msg
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	cl := newChatlog(t)

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, cl.HandleMessage(parse(t,
			":viewer!viewer@host PRIVMSG #somewhere :"+text)))
	}

	records, err := cl.Recent("#somewhere", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "third", records[0].Text)
	assert.Equal(t, "second", records[1].Text)
	assert.Equal(t, "viewer", records[0].Source)
}

func TestChannelsAreSeparate(t *testing.T) {
	cl := newChatlog(t)

	require.NoError(t, cl.HandleMessage(parse(t,
		":a!a@host PRIVMSG #one :here")))
	require.NoError(t, cl.HandleMessage(parse(t,
		":b!b@host PRIVMSG #two :there")))

	records, err := cl.Recent("#one", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "here", records[0].Text)
}

func TestUsernoticeFallsBackToSystemMsg(t *testing.T) {
	cl := newChatlog(t)

	require.NoError(t, cl.HandleMessage(parse(t,
		`@system-msg=somebody\sjust\ssubscribed! :tmi.twitch.tv USERNOTICE #somewhere`)))

	records, err := cl.Recent("#somewhere", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "somebody just subscribed!", records[0].Text)
}
