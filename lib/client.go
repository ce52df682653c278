// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ConnectionState is the single finite-state value describing the
// connection. Only the Client mutates it; transitions are the only point
// where configuration (nick, token, channels) is applied.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateRegistering
	StateReady
	StateReconnecting
)

func (state ConnectionState) String() string {
	switch state {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateRegistering:
		return "registering"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("state(%d)", int(state))
}

// A connection that stayed up at least this long resets the backoff.
const stableConnTime = time.Minute

// Client owns the connection to the chat server: the socket, the
// registration handshake, the read loop, keepalive, and reconnection.
// Parsed messages flow out through the Dispatcher; plugin sends flow back
// in through the Queue.
type Client struct {
	Config     *Config
	Dispatcher *Dispatcher
	Queue      *OutboundQueue

	logger *slog.Logger
	clock  clockwork.Clock

	notify  NotifyFunc
	openURL OpenURLFunc

	stateMu sync.Mutex
	state   ConnectionState
	socket  *Socket
}

func NewClient(config *Config, logger *slog.Logger) *Client {
	clock := clockwork.NewRealClock()
	client := &Client{
		Config:     config,
		Dispatcher: NewDispatcher(logger),
		Queue: NewOutboundQueue(config.Queue.Size, config.RateLimit.Messages,
			config.RateLimit.Window.Value(), clock, logger),
		logger:  logger,
		clock:   clock,
		notify:  DesktopNotify,
		openURL: OpenBrowser,
	}
	return client
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Client) setState(state ConnectionState) {
	c.stateMu.Lock()
	old := c.state
	c.state = state
	c.stateMu.Unlock()
	if old != state {
		c.logger.Debug("connection state", "from", old.String(), "to", state.String())
	}
}

func (c *Client) setSocket(socket *Socket) {
	c.stateMu.Lock()
	c.socket = socket
	c.stateMu.Unlock()
}

func (c *Client) currentSocket() *Socket {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.socket
}

// Capabilities builds the handles handed to the named plugin at
// registration. Plugins talk to the world only through these.
func (c *Client) Capabilities(name string) Capabilities {
	return Capabilities{
		Say: func(channel, text string) error {
			return c.Queue.Enqueue(Outbound{Target: channel, Text: text})
		},
		SendRaw: func(line string) error {
			return c.Queue.Enqueue(Outbound{Text: line, Raw: true, Ephemeral: true})
		},
		Notify:  c.notify,
		OpenURL: c.openURL,
		Config:  c.Config,
		Logger:  c.logger.With("plugin", name),
	}
}

// ActivatePlugins resolves the configured plugin list against the
// registry and registers the result on the dispatch bus, in order. Fails
// fast on an unknown name, before any connection attempt.
func (c *Client) ActivatePlugins(registry *Registry) error {
	plugins, err := registry.Activate(c.Config.Plugins, c.Capabilities)
	if err != nil {
		return err
	}
	for _, plugin := range plugins {
		c.Dispatcher.Register(plugin)
		c.logger.Info("activated plugin", "plugin", plugin.Name())
	}
	return nil
}

// Run drives the connection until ctx is cancelled or registration is
// rejected. Transport failures reconnect with jittered exponential
// backoff; they never escape this loop.
func (c *Client) Run(ctx context.Context) error {
	c.Queue.Start(c.sendOutbound)
	defer c.Queue.Close()
	defer c.closePlugins()

	delay := c.Config.Reconnect.Base.Value()
	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateDisconnected)
			return err
		}

		c.setState(StateConnecting)
		socket := NewSocket(c.Config.Server.Host, c.Config.Server.Port, c.Config.Server.TLS)
		if err := socket.Connect(); err != nil {
			c.logger.Warn("connect failed", "host", c.Config.Server.Host, "error", err)
		} else {
			connectedAt := c.clock.Now()
			err := c.runConnection(ctx, socket)

			c.Queue.SetReady(false)
			c.Dispatcher.DispatchLifecycle(LifecycleEvent{Kind: LifecycleDisconnected})

			var regErr *RegistrationError
			if errors.As(err, &regErr) {
				c.setState(StateDisconnected)
				return err
			}
			if ctx.Err() != nil {
				c.setState(StateDisconnected)
				return ctx.Err()
			}
			c.logger.Warn("connection lost", "error", err)

			if c.clock.Since(connectedAt) >= stableConnTime {
				delay = c.Config.Reconnect.Base.Value()
			}
		}

		c.setState(StateReconnecting)
		c.logger.Info("reconnecting", "delay", delay)
		if !c.sleepBackoff(ctx, delay) {
			c.setState(StateDisconnected)
			return ctx.Err()
		}
		delay *= 2
		if max := c.Config.Reconnect.Max.Value(); delay > max {
			delay = max
		}
	}
}

// runConnection registers on a fresh transport and pumps it until it
// dies. The keepalive watcher lives exactly as long as the transport; no
// two transports are ever live at once.
func (c *Client) runConnection(ctx context.Context, socket *Socket) error {
	c.setSocket(socket)
	defer c.setSocket(nil)
	defer socket.Close()

	c.setState(StateRegistering)
	c.Dispatcher.DispatchLifecycle(LifecycleEvent{Kind: LifecycleConnected})

	if err := c.register(socket); err != nil {
		return &TransportError{Err: err}
	}

	ka := NewKeepalive(c.Config.Keepalive.Interval.Value(), c.Config.Keepalive.Grace.Value(),
		c.clock, c.logger, func() error {
			return socket.WriteLine("PING :%s", "aioirc")
		}, func() {
			socket.Close()
		})
	ka.Start()
	defer ka.Stop()

	return c.readLoop(ctx, socket, ka)
}

// register performs the authentication handshake: credentials first, then
// capability request, then nick -- before any other traffic. These writes
// bypass the queue; nothing else may be sent before them.
func (c *Client) register(socket *Socket) error {
	if err := socket.WriteLine("PASS %s", c.Config.Auth.Token); err != nil {
		return err
	}
	if err := socket.WriteLine("CAP REQ :%s", c.Config.Caps); err != nil {
		return err
	}
	return socket.WriteLine("NICK %s", c.Config.Auth.Username)
}

func (c *Client) readLoop(ctx context.Context, socket *Socket, ka *Keepalive) error {
	for {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-socket.Lines():
			if !ok {
				return &TransportError{Err: socket.ReadErr()}
			}
			line = l
		}

		ka.Touch()

		msg, err := ParseLine(line)
		if err != nil {
			// a single bad line is not fatal to the connection
			c.logger.Warn("skipping malformed line", "error", err)
			continue
		}

		// Server probes are answered before dispatch so a slow plugin
		// can never delay them past the server's timeout.
		if strings.EqualFold(msg.Command, CmdPing) {
			if err := socket.WriteLine("PONG :%s", msg.Text()); err != nil {
				return &TransportError{Err: err}
			}
		}

		if c.State() == StateRegistering {
			if err := c.handleRegistration(msg); err != nil {
				return err
			}
		}

		c.Dispatcher.Dispatch(msg)
	}
}

// handleRegistration watches for the welcome numeric or a credential
// rejection while in the Registering state.
func (c *Client) handleRegistration(msg *Message) error {
	switch {
	case msg.Command == RPL_WELCOME:
		c.setState(StateReady)
		c.logger.Info("registered", "nick", c.Config.Auth.Username)
		c.Queue.SetReady(true)
		c.Dispatcher.DispatchLifecycle(LifecycleEvent{Kind: LifecycleRegistered})
		for _, channel := range c.Config.Channels {
			if err := c.Queue.Enqueue(Outbound{Text: "JOIN " + channel, Raw: true}); err != nil {
				c.logger.Warn("could not queue join", "channel", channel, "error", err)
			}
		}
	case msg.Command == ERR_PASSWDMISMATCH:
		return &RegistrationError{Reason: msg.Text()}
	case strings.EqualFold(msg.Command, CmdNotice) &&
		strings.Contains(strings.ToLower(msg.Text()), "authentication failed"):
		// Twitch rejects bad tokens with a NOTICE instead of a numeric
		return &RegistrationError{Reason: msg.Text()}
	}
	return nil
}

// sendOutbound is the queue's delivery path: encode and write one command.
func (c *Client) sendOutbound(cmd Outbound) error {
	socket := c.currentSocket()
	if socket == nil {
		return ErrNotConnected
	}

	if cmd.Raw {
		return socket.WriteLine("%s", cmd.Text)
	}

	msg := &Message{
		Command:     CmdPrivmsg,
		Params:      []string{cmd.Target},
		Trailing:    cmd.Text,
		HasTrailing: true,
	}
	line, err := msg.Line()
	if err != nil {
		return err
	}
	return socket.WriteLine("%s", line)
}

func (c *Client) closePlugins() {
	for _, plugin := range c.Dispatcher.Plugins() {
		if closer, ok := plugin.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				c.logger.Warn("plugin close failed", "plugin", plugin.Name(), "error", err)
			}
		}
	}
}

// sleepBackoff waits for delay ±20% jitter. Returns false when ctx ended
// the wait.
func (c *Client) sleepBackoff(ctx context.Context, delay time.Duration) bool {
	jittered := delay + time.Duration((rand.Float64()*0.4-0.2)*float64(delay))
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(jittered):
		return true
	}
}
