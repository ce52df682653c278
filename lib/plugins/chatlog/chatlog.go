// Copyright (c) 2018 Mortal
// released under the MIT license

// Persists chat messages to a buntdb file, time-ordered per channel.
package pluginChatlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/buntdb"

	aioirc "github.com/Mortal/aio-irc/lib"
)

const defaultPath = "chatlog.db"

// Record is one stored chat line.
type Record struct {
	Time    time.Time `json:"time"`
	Channel string    `json:"channel"`
	Source  string    `json:"source"`
	Text    string    `json:"text"`
}

type Chatlog struct {
	caps aioirc.Capabilities
	db   *buntdb.DB
	now  func() time.Time
}

func New(caps aioirc.Capabilities) (aioirc.Plugin, error) {
	path := caps.Config.Chatlog.Path
	if path == "" {
		path = defaultPath
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chatlog: %w", err)
	}
	return &Chatlog{caps: caps, db: db, now: time.Now}, nil
}

func (cl *Chatlog) Name() string { return "chatlog" }

func (cl *Chatlog) Commands() []string {
	return []string{"PRIVMSG", "USERNOTICE"}
}

func (cl *Chatlog) HandleMessage(msg *aioirc.Message) error {
	if len(msg.Params) == 0 {
		return nil
	}

	// Text() falls back to the last parameter, which here would be the
	// channel itself when the body is absent.
	text := ""
	if msg.HasTrailing || len(msg.Params) > 1 {
		text = msg.Text()
	}
	if system := msg.Tags["system-msg"]; system != "" && text == "" {
		text = system
	}

	record := Record{
		Time:    cl.now().UTC(),
		Channel: msg.Params[0],
		Source:  msg.Nick(),
		Text:    text,
	}

	value, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key := recordKey(record.Channel, record.Time)
	return cl.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(value), nil)
		return err
	})
}

// Recent returns up to num most recent records for a channel, newest
// first.
func (cl *Chatlog) Recent(channel string, num int) ([]Record, error) {
	prefix := keyPrefix(channel)
	var records []Record
	err := cl.db.View(func(tx *buntdb.Tx) error {
		return tx.DescendKeys(prefix+"*", func(key, value string) bool {
			var record Record
			if err := json.Unmarshal([]byte(value), &record); err != nil {
				return true
			}
			records = append(records, record)
			return len(records) < num
		})
	})
	return records, err
}

func (cl *Chatlog) Close() error {
	return cl.db.Close()
}

// keyTimeLayout is RFC3339 with fixed-width nanoseconds so keys sort
// chronologically within a channel prefix.
const keyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func recordKey(channel string, at time.Time) string {
	return keyPrefix(channel) + at.Format(keyTimeLayout)
}

func keyPrefix(channel string) string {
	return "log:" + strings.ToLower(channel) + ":"
}
