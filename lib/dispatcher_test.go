// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePlugin records what it sees and optionally misbehaves.
type fakePlugin struct {
	name      string
	commands  []string
	seen      []*Message
	lifecycle []LifecycleKind
	fail      error
	panics    bool
}

func (p *fakePlugin) Name() string       { return p.name }
func (p *fakePlugin) Commands() []string { return p.commands }

func (p *fakePlugin) HandleMessage(msg *Message) error {
	p.seen = append(p.seen, msg)
	if p.panics {
		panic("boom")
	}
	return p.fail
}

func (p *fakePlugin) HandleLifecycle(event LifecycleEvent) {
	p.lifecycle = append(p.lifecycle, event.Kind)
}

func TestDispatchOrder(t *testing.T) {
	var order []string
	mk := func(name string) *orderPlugin {
		return &orderPlugin{name: name, order: &order}
	}
	a, b, c := mk("a"), mk("b"), mk("c")

	d := NewDispatcher(testLogger())
	d.Register(a)
	d.Register(b)
	d.Register(c)

	msg, err := ParseLine("PRIVMSG #chan :hi")
	require.NoError(t, err)
	d.Dispatch(msg)

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

type orderPlugin struct {
	name  string
	order *[]string
}

func (p *orderPlugin) Name() string       { return p.name }
func (p *orderPlugin) Commands() []string { return []string{"PRIVMSG"} }
func (p *orderPlugin) HandleMessage(msg *Message) error {
	*p.order = append(*p.order, p.name)
	return nil
}

func TestDispatchIsolatesFaults(t *testing.T) {
	a := &fakePlugin{name: "a", commands: []string{"PRIVMSG"}}
	b := &fakePlugin{name: "b", commands: []string{"PRIVMSG"}, panics: true}
	c := &fakePlugin{name: "c", commands: []string{"PRIVMSG"}, fail: errors.New("nope")}
	d := &fakePlugin{name: "d", commands: []string{"PRIVMSG"}}

	bus := NewDispatcher(testLogger())
	for _, p := range []*fakePlugin{a, b, c, d} {
		bus.Register(p)
	}

	msg, err := ParseLine("PRIVMSG #chan :hi")
	require.NoError(t, err)

	// must not panic, and every handler must run
	bus.Dispatch(msg)

	assert.Len(t, a.seen, 1)
	assert.Len(t, b.seen, 1)
	assert.Len(t, c.seen, 1)
	assert.Len(t, d.seen, 1)
}

func TestDispatchInterestFiltering(t *testing.T) {
	privmsg := &fakePlugin{name: "privmsg", commands: []string{"privmsg"}}
	wildcard := &fakePlugin{name: "wild", commands: []string{CommandWildcard}}
	lifecycleOnly := &fakePlugin{name: "quiet"}

	bus := NewDispatcher(testLogger())
	bus.Register(privmsg)
	bus.Register(wildcard)
	bus.Register(lifecycleOnly)

	msg, err := ParseLine(":tmi.twitch.tv FROBNICATE #chan :???")
	require.NoError(t, err)
	bus.Dispatch(msg)

	// unknown verbs reach wildcard subscribers unchanged
	require.Len(t, wildcard.seen, 1)
	assert.Equal(t, "FROBNICATE", wildcard.seen[0].Command)
	assert.Empty(t, privmsg.seen)
	assert.Empty(t, lifecycleOnly.seen)

	msg, err = ParseLine("PRIVMSG #chan :hello")
	require.NoError(t, err)
	bus.Dispatch(msg)

	// interest matching is case-insensitive
	assert.Len(t, privmsg.seen, 1)
	assert.Len(t, wildcard.seen, 2)
}

func TestDispatchLifecycle(t *testing.T) {
	p := &fakePlugin{name: "p", commands: []string{"PRIVMSG"}}
	bus := NewDispatcher(testLogger())
	bus.Register(p)

	bus.DispatchLifecycle(LifecycleEvent{Kind: LifecycleConnected})
	bus.DispatchLifecycle(LifecycleEvent{Kind: LifecycleRegistered})
	bus.DispatchLifecycle(LifecycleEvent{Kind: LifecycleDisconnected})

	assert.Equal(t, []LifecycleKind{
		LifecycleConnected, LifecycleRegistered, LifecycleDisconnected,
	}, p.lifecycle)
}
