// Copyright (c) 2018 Mortal
// released under the MIT license

// Matches frequently-asked chat questions against a rule table and
// surfaces the canned chat command to answer with as a notification.
package pluginCanned

import (
	"fmt"
	"regexp"
	"sort"

	aioirc "github.com/Mortal/aio-irc/lib"
)

type rule struct {
	reply   string
	pattern *regexp.Regexp
}

type Canned struct {
	caps  aioirc.Capabilities
	rules []rule
}

func New(caps aioirc.Capabilities) (aioirc.Plugin, error) {
	configured := caps.Config.Canned.Rules
	rules := make([]rule, 0, len(configured))
	for reply, pattern := range configured {
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			return nil, fmt.Errorf("canned rule %q: %w", reply, err)
		}
		rules = append(rules, rule{reply: reply, pattern: re})
	}
	// deterministic match order regardless of map iteration
	sort.Slice(rules, func(i, j int) bool { return rules[i].reply < rules[j].reply })
	return &Canned{caps: caps, rules: rules}, nil
}

func (cn *Canned) Name() string { return "canned" }

func (cn *Canned) Commands() []string { return []string{"PRIVMSG"} }

func (cn *Canned) HandleMessage(msg *aioirc.Message) error {
	if len(msg.Params) == 0 {
		return nil
	}

	text := msg.Text()
	reply, ok := cn.match(text)
	if !ok {
		return nil
	}

	name := msg.Tags["display-name"]
	if name == "" {
		name = msg.Nick()
	}
	return cn.caps.Notify(
		fmt.Sprintf("%s @%s", reply, name),
		fmt.Sprintf("%s: %s", name, text))
}

func (cn *Canned) match(text string) (string, bool) {
	for _, r := range cn.rules {
		if r.pattern.MatchString(text) {
			return r.reply, true
		}
	}
	return "", false
}
