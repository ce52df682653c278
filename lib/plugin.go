// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"log/slog"
)

// Plugin is one pluggable behavior (a "trigger"). Implementations declare
// which commands they want and receive each matching message in turn.
//
// Handlers run on the dispatch path and must not block on long work; the
// transport's liveness handling runs independently, but a stalled handler
// still delays every later plugin for that message.
type Plugin interface {
	// Name is the stable identity used in configuration and logs.
	Name() string
	// Commands lists the command verbs this plugin wants. An entry equal
	// to CommandWildcard subscribes to everything; an empty list means
	// the plugin only cares about lifecycle events.
	Commands() []string
	// HandleMessage processes one dispatched message. A returned error is
	// logged against the plugin and otherwise ignored.
	HandleMessage(msg *Message) error
}

// Capabilities is the narrow surface a plugin gets at construction time.
// Plugins never see the socket, the registry, or each other.
type Capabilities struct {
	// Say queues a chat message to a channel. Fails with ErrQueueFull
	// under backpressure.
	Say func(channel, text string) error
	// SendRaw queues a raw protocol line. Ephemeral: it is dropped
	// rather than held if the connection is down when it drains.
	SendRaw func(line string) error
	// Notify raises an OS-level desktop notification.
	Notify NotifyFunc
	// OpenURL opens a URL in the operator's browser.
	OpenURL OpenURLFunc
	// Config is the read-only engine configuration.
	Config *Config
	// Logger is scoped to the plugin's name.
	Logger *slog.Logger
}

// PluginFactory builds a plugin from its capability handles. Factories
// run at startup, before any connection attempt.
type PluginFactory func(caps Capabilities) (Plugin, error)

// Registry maps plugin names to factories. It is populated explicitly at
// startup (no dynamic loading) and read-only afterwards.
type Registry struct {
	factories map[string]PluginFactory
	required  []string
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]PluginFactory)}
}

// Register adds a factory under a stable name. Required plugins activate
// before and regardless of the configured list.
func (r *Registry) Register(name string, required bool, factory PluginFactory) {
	r.factories[name] = factory
	if required {
		r.required = append(r.required, name)
	}
}

// Activate resolves the configured activation list: required plugins
// first, then the configured names in order, duplicates skipped. A name
// the registry does not know fails the whole startup with
// UnknownPluginError -- misconfiguration is not silently ignored.
func (r *Registry) Activate(names []string, caps func(name string) Capabilities) ([]Plugin, error) {
	for _, name := range names {
		if _, ok := r.factories[name]; !ok {
			return nil, &UnknownPluginError{Name: name}
		}
	}

	var plugins []Plugin
	seen := make(map[string]bool)
	for _, name := range append(append([]string{}, r.required...), names...) {
		if seen[name] {
			continue
		}
		seen[name] = true

		plugin, err := r.factories[name](caps(name))
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, plugin)
	}
	return plugins, nil
}
