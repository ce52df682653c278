// Copyright (c) 2018 Mortal
// released under the MIT license

// Greets new subscribers with an emote line drawn from a weighted pool.
package pluginSubResponder

import (
	"math/rand"
	"strings"

	aioirc "github.com/Mortal/aio-irc/lib"
)

// Default pool; weights come from repetition. Overridden wholesale by the
// subresponder.messages config list.
var defaultMessages = buildPool(map[string]int{
	"darbSubPipe darbSubPipe darbSubPipe": 19,
	"darbSubPipe":                         15,
	"darbSubPipe darbSubPipe":             6,
	"darbSubPipe darbSubPipe darbSubPipe darbSubPipe darbSubPipe": 4,
	"darbSubPipe darbHR darbSubPipe":                              3,
	"darbSubPipe darbTasty darbSubPipe":                           1,
	"darbSubPipe darbHolyCow darbSubPipe":                         1,
})

func buildPool(weighted map[string]int) []string {
	var pool []string
	for msg, weight := range weighted {
		for i := 0; i < weight; i++ {
			pool = append(pool, msg)
		}
	}
	return pool
}

type SubResponder struct {
	caps     aioirc.Capabilities
	messages []string
	lastMsg  string
}

func New(caps aioirc.Capabilities) (aioirc.Plugin, error) {
	messages := caps.Config.Subresponder.Messages
	if len(messages) == 0 {
		messages = defaultMessages
	}
	return &SubResponder{caps: caps, messages: messages}, nil
}

func (sr *SubResponder) Name() string { return "subresponder" }

func (sr *SubResponder) Commands() []string {
	return []string{"USERNOTICE", "PRIVMSG"}
}

func (sr *SubResponder) HandleMessage(msg *aioirc.Message) error {
	if len(msg.Params) == 0 {
		return nil
	}
	channel := msg.Params[0]

	switch strings.ToUpper(msg.Command) {
	case "USERNOTICE":
		// resub announcements arrive as USERNOTICE with a system-msg tag
		if !strings.Contains(msg.Tags["system-msg"], "just subscribed") {
			return nil
		}
	case "PRIVMSG":
		// the legacy path: twitchnotify says "<name> just subscribed!"
		if msg.Nick() != "twitchnotify" ||
			!strings.Contains(msg.Text(), "just subscribed") {
			return nil
		}
	}

	return sr.caps.Say(channel, sr.nextMessage())
}

// nextMessage picks from the pool, never repeating the previous pick.
func (sr *SubResponder) nextMessage() string {
	msg := sr.messages[rand.Intn(len(sr.messages))]
	for len(sr.messages) > 1 && msg == sr.lastMsg {
		msg = sr.messages[rand.Intn(len(sr.messages))]
	}
	sr.lastMsg = msg
	return msg
}
