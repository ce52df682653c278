// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"fmt"
	"log/slog"
	"strings"
)

// LifecycleKind enumerates the connection lifecycle events plugins can
// observe alongside regular messages.
type LifecycleKind int

const (
	// LifecycleConnected fires once the transport is up, before
	// registration completes.
	LifecycleConnected LifecycleKind = iota
	// LifecycleRegistered fires when the server accepts registration and
	// the connection is usable.
	LifecycleRegistered
	// LifecycleDisconnected fires when a transport is torn down, before
	// any reconnect attempt starts. Plugins drop per-connection state here.
	LifecycleDisconnected
)

func (kind LifecycleKind) String() string {
	switch kind {
	case LifecycleConnected:
		return "connected"
	case LifecycleRegistered:
		return "registered"
	case LifecycleDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("lifecycle(%d)", int(kind))
}

// LifecycleEvent is delivered through DispatchLifecycle.
type LifecycleEvent struct {
	Kind LifecycleKind
}

// LifecycleHandler is implemented by plugins that care about connection
// lifecycle events in addition to (or instead of) messages.
type LifecycleHandler interface {
	HandleLifecycle(event LifecycleEvent)
}

type registration struct {
	plugin   Plugin
	all      bool
	commands map[string]bool
}

// Dispatcher routes decoded messages and lifecycle events to registered
// plugins, in registration order, isolating each handler's failures.
//
// The registration list is fixed after startup, so Dispatch reads it
// without locking.
type Dispatcher struct {
	logger *slog.Logger
	regs   []registration
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Register adds a plugin. Plugins registered earlier see each message
// first; ordering is deterministic so behavior is reproducible.
func (d *Dispatcher) Register(plugin Plugin) {
	reg := registration{plugin: plugin}

	interests := plugin.Commands()
	reg.commands = make(map[string]bool, len(interests))
	for _, command := range interests {
		if strings.EqualFold(command, CommandWildcard) {
			reg.all = true
		}
		reg.commands[strings.ToUpper(command)] = true
	}

	d.regs = append(d.regs, reg)
}

// Plugins returns the registered plugins in registration order.
func (d *Dispatcher) Plugins() []Plugin {
	plugins := make([]Plugin, len(d.regs))
	for i, reg := range d.regs {
		plugins[i] = reg.plugin
	}
	return plugins
}

// Dispatch hands the message to every interested plugin, sequentially. A
// fault in one handler is logged and does not reach the others, the
// caller, or the connection.
func (d *Dispatcher) Dispatch(msg *Message) {
	command := strings.ToUpper(msg.Command)
	for _, reg := range d.regs {
		if !reg.all && !reg.commands[command] {
			continue
		}
		d.invoke(reg.plugin, msg)
	}
}

// DispatchLifecycle delivers a lifecycle event to every plugin that
// implements LifecycleHandler, with the same ordering and isolation as
// Dispatch.
func (d *Dispatcher) DispatchLifecycle(event LifecycleEvent) {
	for _, reg := range d.regs {
		handler, ok := reg.plugin.(LifecycleHandler)
		if !ok {
			continue
		}
		func() {
			defer d.recoverPlugin(reg.plugin.Name(), event.Kind.String())
			handler.HandleLifecycle(event)
		}()
	}
}

func (d *Dispatcher) invoke(plugin Plugin, msg *Message) {
	defer d.recoverPlugin(plugin.Name(), msg.Command)

	if err := plugin.HandleMessage(msg); err != nil {
		pluginErr := &PluginError{Plugin: plugin.Name(), Command: msg.Command, Err: err}
		d.logger.Error("plugin handler failed",
			"plugin", pluginErr.Plugin,
			"command", pluginErr.Command,
			"error", pluginErr.Err)
	}
}

func (d *Dispatcher) recoverPlugin(name, context string) {
	if r := recover(); r != nil {
		d.logger.Error("plugin handler panicked",
			"plugin", name,
			"command", context,
			"panic", r)
	}
}
