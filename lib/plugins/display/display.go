// Copyright (c) 2018 Mortal
// released under the MIT license

// Basic terminal rendering of chat traffic. Always active.
package pluginDisplay

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	aioirc "github.com/Mortal/aio-irc/lib"
)

var (
	chanColor   = color.New(color.FgCyan)
	nickColor   = color.New(color.FgGreen, color.Bold)
	noticeColor = color.New(color.FgYellow)
	subColor    = color.New(color.FgMagenta, color.Bold)
	dimColor    = color.New(color.Faint)
)

// commands we render; anything else is server chatter the operator does
// not need on screen (numerics, USERSTATE, cap acks...).
var rendered = map[string]bool{
	"PRIVMSG":    true,
	"NOTICE":     true,
	"USERNOTICE": true,
	"JOIN":       true,
	"PART":       true,
	"HOSTTARGET": true,
}

type Display struct {
	out io.Writer
}

func New(caps aioirc.Capabilities) (aioirc.Plugin, error) {
	return &Display{out: os.Stdout}, nil
}

func (d *Display) Name() string { return "display" }

func (d *Display) Commands() []string { return []string{aioirc.CommandWildcard} }

func (d *Display) HandleMessage(msg *aioirc.Message) error {
	command := strings.ToUpper(msg.Command)
	if !rendered[command] {
		return nil
	}

	target := ""
	if len(msg.Params) > 0 {
		target = msg.Params[0]
	}

	switch command {
	case "PRIVMSG":
		fmt.Fprintf(d.out, "%s %s: %s\n",
			chanColor.Sprint(target), nickColor.Sprint(displayName(msg)), msg.Text())
	case "USERNOTICE":
		if system := msg.Tags["system-msg"]; system != "" {
			fmt.Fprintf(d.out, "%s %s\n", chanColor.Sprint(target), subColor.Sprint(system))
		}
		if msg.HasTrailing && msg.Trailing != "" {
			fmt.Fprintf(d.out, "%s %s: %s\n",
				chanColor.Sprint(target), nickColor.Sprint(displayName(msg)), msg.Trailing)
		}
	case "NOTICE":
		fmt.Fprintf(d.out, "%s %s\n", chanColor.Sprint(target), noticeColor.Sprint(msg.Text()))
	case "JOIN", "PART":
		fmt.Fprintln(d.out, dimColor.Sprintf("* %s %sed %s",
			msg.Nick(), strings.ToLower(command), target))
	case "HOSTTARGET":
		fmt.Fprintln(d.out, dimColor.Sprintf("* %s host -> %s", target, msg.Text()))
	}
	return nil
}

func (d *Display) HandleLifecycle(event aioirc.LifecycleEvent) {
	fmt.Fprintln(d.out, dimColor.Sprintf("* %s", event.Kind))
}

// displayName prefers the display-name tag over the prefix nick; Twitch
// capitalization lives in the tag.
func displayName(msg *aioirc.Message) string {
	if name := msg.Tags["display-name"]; name != "" {
		return name
	}
	return msg.Nick()
}
