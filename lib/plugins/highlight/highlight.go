// Copyright (c) 2018 Mortal
// released under the MIT license

// Raises a desktop notification when a chat message mentions the operator.
package pluginHighlight

import (
	"fmt"
	"regexp"

	aioirc "github.com/Mortal/aio-irc/lib"
)

type Highlight struct {
	caps    aioirc.Capabilities
	pattern *regexp.Regexp
}

func New(caps aioirc.Capabilities) (aioirc.Plugin, error) {
	pattern := caps.Config.Highlight.Pattern
	if pattern == "" {
		pattern = `\b` + regexp.QuoteMeta(caps.Config.Auth.Username) + `\b`
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil, fmt.Errorf("highlight.pattern: %w", err)
	}
	return &Highlight{caps: caps, pattern: re}, nil
}

func (h *Highlight) Name() string { return "highlight" }

func (h *Highlight) Commands() []string { return []string{"PRIVMSG"} }

func (h *Highlight) HandleMessage(msg *aioirc.Message) error {
	if len(msg.Params) == 0 || !h.pattern.MatchString(msg.Text()) {
		return nil
	}
	summary := fmt.Sprintf("From %s in %s", msg.Nick(), msg.Params[0])
	return h.caps.Notify(summary, msg.Text())
}
