// Copyright (c) 2018 Mortal
// released under the MIT license

package plugins

import (
	aioirc "github.com/Mortal/aio-irc/lib"

	// Each trigger acts independently through the plugin contract
	"github.com/Mortal/aio-irc/lib/plugins/canned"
	"github.com/Mortal/aio-irc/lib/plugins/chatlog"
	"github.com/Mortal/aio-irc/lib/plugins/display"
	"github.com/Mortal/aio-irc/lib/plugins/highlight"
	"github.com/Mortal/aio-irc/lib/plugins/hostnotify"
	"github.com/Mortal/aio-irc/lib/plugins/say"
	"github.com/Mortal/aio-irc/lib/plugins/subresponder"
)

// Builtin returns the registry of all compiled-in plugins. display and
// say are required and always activate; the rest activate by name from
// the configured list.
func Builtin() *aioirc.Registry {
	registry := aioirc.NewRegistry()

	registry.Register("display", true, pluginDisplay.New)
	registry.Register("say", true, pluginSay.New)

	registry.Register("subresponder", false, pluginSubResponder.New)
	registry.Register("highlight", false, pluginHighlight.New)
	registry.Register("hostnotify", false, pluginHostNotify.New)
	registry.Register("canned", false, pluginCanned.New)
	registry.Register("chatlog", false, pluginChatlog.New)

	return registry
}
