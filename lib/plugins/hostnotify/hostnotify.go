// Copyright (c) 2018 Mortal
// released under the MIT license

// Desktop notifications for host-mode changes. When a watched channel
// leaves host mode it usually means the stream is starting, so after a
// short confirmation delay the channel is opened in the browser.
package pluginHostNotify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	aioirc "github.com/Mortal/aio-irc/lib"
)

const (
	// how long to wait for a host_target_went_offline notice before
	// deciding the host-mode exit was a stream start
	openDelay = time.Second
	// never open the browser more than once per this interval
	openThrottle = time.Minute
)

type HostNotify struct {
	caps  aioirc.Capabilities
	clock clockwork.Clock

	mu       sync.Mutex
	hostMode map[string]string
	lastOpen time.Time
}

func New(caps aioirc.Capabilities) (aioirc.Plugin, error) {
	return &HostNotify{
		caps:     caps,
		clock:    clockwork.NewRealClock(),
		hostMode: make(map[string]string),
	}, nil
}

func (hn *HostNotify) Name() string { return "hostnotify" }

func (hn *HostNotify) Commands() []string {
	return []string{"HOSTTARGET", "NOTICE"}
}

func (hn *HostNotify) HandleMessage(msg *aioirc.Message) error {
	if len(msg.Params) == 0 {
		return nil
	}

	switch strings.ToUpper(msg.Command) {
	case "HOSTTARGET":
		return hn.handleHostTarget(msg)
	case "NOTICE":
		hn.handleNotice(msg)
	}
	return nil
}

// HandleLifecycle drops host-mode state on disconnect; it describes the
// old connection, not the next one.
func (hn *HostNotify) HandleLifecycle(event aioirc.LifecycleEvent) {
	if event.Kind != aioirc.LifecycleDisconnected {
		return
	}
	hn.mu.Lock()
	hn.hostMode = make(map[string]string)
	hn.mu.Unlock()
}

func (hn *HostNotify) handleHostTarget(msg *aioirc.Message) error {
	hosting := strings.TrimPrefix(msg.Params[0], "#")
	target, _, _ := strings.Cut(msg.Text(), " ")

	if target == "-" {
		hn.setMode(hosting, "host_off")
		go hn.delayedOpen(hosting)
		return hn.caps.Notify(
			fmt.Sprintf("%s: Exit host mode", hosting),
			fmt.Sprintf("%s is no longer in host mode.", hosting))
	}

	hn.setMode(hosting, "host_on")
	return hn.caps.Notify(
		fmt.Sprintf("%s: Hosting %s", hosting, target),
		fmt.Sprintf("%s is now hosting %s.", hosting, target))
}

func (hn *HostNotify) handleNotice(msg *aioirc.Message) {
	msgID := msg.Tags["msg-id"]
	switch msgID {
	case "host_on", "host_off", "host_target_went_offline":
		hn.setMode(strings.TrimPrefix(msg.Params[0], "#"), msgID)
	}
}

func (hn *HostNotify) setMode(channel, mode string) {
	hn.mu.Lock()
	hn.hostMode[channel] = mode
	hn.mu.Unlock()
}

// delayedOpen waits out openDelay and opens the channel if host mode is
// still plainly off. A host_target_went_offline notice in the meantime
// means the hosted channel ended, not that this one went live.
func (hn *HostNotify) delayedOpen(channel string) {
	<-hn.clock.After(openDelay)

	hn.mu.Lock()
	stillOff := hn.hostMode[channel] == "host_off"
	throttled := !hn.lastOpen.IsZero() && hn.clock.Since(hn.lastOpen) < openThrottle
	if stillOff && !throttled {
		hn.lastOpen = hn.clock.Now()
	}
	hn.mu.Unlock()

	if stillOff && !throttled {
		if err := hn.caps.OpenURL("https://twitch.tv/" + channel); err != nil {
			hn.caps.Logger.Warn("could not open browser", "error", err)
		}
	}
}
