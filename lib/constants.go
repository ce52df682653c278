// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"fmt"
)

const (
	// SemVer is the semantic version of aio-irc.
	SemVer = "0.2.0"
)

var (
	// Ver is the full version of aio-irc, used in the CLI and in logs.
	Ver = fmt.Sprintf("aio-irc-%s", SemVer)
)

// Default connection endpoint (Twitch chat).
const (
	DefaultHost = "irc.chat.twitch.tv"
	DefaultPort = 6697

	// DefaultCaps are requested during registration. Tags carry the
	// subscription/role metadata the plugins consume.
	DefaultCaps = "twitch.tv/tags twitch.tv/commands twitch.tv/membership"

	// AnonymousNickPrefix forms a justinfan login when no username is
	// configured; Twitch accepts any numeric suffix for read-only access.
	AnonymousNickPrefix = "justinfan"
	AnonymousPassword   = "blah"
)

// Commands and numerics the engine itself reacts to. Everything else is
// passed through to plugins uninterpreted.
const (
	RPL_WELCOME        = "001"
	ERR_PASSWDMISMATCH = "464"

	CmdPing    = "PING"
	CmdPong    = "PONG"
	CmdNotice  = "NOTICE"
	CmdPrivmsg = "PRIVMSG"
	CmdJoin    = "JOIN"

	// CommandWildcard subscribes a plugin to every dispatched message.
	CommandWildcard = "ALL"
)

// MaxLineLen is the default byte limit for one wire line, terminator
// excluded. Twitch lines with tag blocks run well past the RFC's 512.
const MaxLineLen = 4096
