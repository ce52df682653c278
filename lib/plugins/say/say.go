// Copyright (c) 2018 Mortal
// released under the MIT license

// Console send capability: lines typed on stdin go to the configured
// channel; "/raw ..." lines go out verbatim. Always active.
package pluginSay

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"strings"

	aioirc "github.com/Mortal/aio-irc/lib"
)

type Say struct {
	caps   aioirc.Capabilities
	logger *slog.Logger
	input  io.Reader
}

func New(caps aioirc.Capabilities) (aioirc.Plugin, error) {
	s := &Say{caps: caps, logger: caps.Logger, input: os.Stdin}
	go s.readInput()
	return s, nil
}

// NewWithInput is the constructor used by tests; it does not start the
// background reader.
func NewWithInput(caps aioirc.Capabilities, input io.Reader) *Say {
	return &Say{caps: caps, logger: caps.Logger, input: input}
}

func (s *Say) Name() string { return "say" }

// No message interest: this plugin only produces outbound commands.
func (s *Say) Commands() []string { return nil }

func (s *Say) HandleMessage(msg *aioirc.Message) error { return nil }

func (s *Say) readInput() {
	scanner := bufio.NewScanner(s.input)
	for scanner.Scan() {
		s.HandleInput(scanner.Text())
	}
}

// HandleInput processes one console line.
func (s *Say) HandleInput(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}

	if raw, ok := strings.CutPrefix(line, "/raw "); ok {
		if err := s.caps.SendRaw(raw); err != nil {
			s.logger.Warn("could not queue raw line", "error", err)
		}
		return
	}

	config := s.caps.Config
	if strings.HasPrefix(config.Auth.Username, aioirc.AnonymousNickPrefix) {
		s.logger.Warn("not logged in, cannot send")
		return
	}
	if len(config.Channels) != 1 {
		s.logger.Warn("need exactly one configured channel to send",
			"channels", len(config.Channels))
		return
	}

	if err := s.caps.Say(config.Channels[0], line); err != nil {
		s.logger.Warn("could not queue message", "error", err)
	}
}
