// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Socket owns one TCP (optionally TLS) stream to the chat server and
// splits the inbound bytes into terminator-stripped lines. It belongs to
// the Client; nothing else touches it.
type Socket struct {
	Host        string
	Port        int
	TLS         bool
	TLSConfig   *tls.Config
	DialTimeout time.Duration
	MaxLineLen  int

	conn      net.Conn
	connLock  sync.Mutex
	connected bool

	lines     chan string
	closed    chan struct{}
	closeOnce sync.Once
	readErr   error
}

func NewSocket(host string, port int, useTLS bool) *Socket {
	return &Socket{
		Host:        host,
		Port:        port,
		TLS:         useTLS,
		DialTimeout: 30 * time.Second,
		MaxLineLen:  MaxLineLen,
		closed:      make(chan struct{}),
	}
}

// Connect dials the server and starts the background reader.
func (socket *Socket) Connect() error {
	destination := net.JoinHostPort(socket.Host, strconv.Itoa(socket.Port))

	dialer := &net.Dialer{Timeout: socket.DialTimeout}
	var conn net.Conn
	var err error
	if socket.TLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", destination, socket.TLSConfig)
	} else {
		conn, err = dialer.Dial("tcp", destination)
	}
	if err != nil {
		return err
	}

	socket.connLock.Lock()
	socket.conn = conn
	socket.connected = true
	socket.connLock.Unlock()

	socket.lines = make(chan string)
	go socket.readInput()

	return nil
}

// Lines yields inbound lines until the stream dies, then closes.
func (socket *Socket) Lines() <-chan string {
	return socket.lines
}

// ReadErr reports why the reader stopped. Only meaningful once Lines has
// closed.
func (socket *Socket) ReadErr() error {
	return socket.readErr
}

func (socket *Socket) readInput() {
	reader := bufio.NewReaderSize(socket.conn, socket.MaxLineLen)
	for {
		line, err := reader.ReadSlice('\n')
		if err != nil {
			// bufio.ErrBufferFull means the server exceeded our line
			// limit; either way the connection is done.
			socket.readErr = err
			break
		}
		select {
		case socket.lines <- strings.Trim(string(line), "\r\n"):
		case <-socket.closed:
			// nobody is reading lines anymore
		}
	}

	socket.connLock.Lock()
	socket.connected = false
	socket.connLock.Unlock()
	close(socket.lines)
}

// Close tears the stream down. The reader unblocks and Lines closes.
func (socket *Socket) Close() error {
	socket.closeOnce.Do(func() { close(socket.closed) })

	socket.connLock.Lock()
	defer socket.connLock.Unlock()

	if !socket.connected {
		return nil
	}
	socket.connected = false
	return socket.conn.Close()
}

// WriteLine writes one raw line, appending the terminator and truncating
// past MaxLineLen. Writes are serialized so concurrent callers (the queue
// drain and the keepalive path) never interleave partial lines.
func (socket *Socket) WriteLine(format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...)
	line = TruncateLine(strings.TrimRight(line, "\r\n"), socket.MaxLineLen)

	socket.connLock.Lock()
	defer socket.connLock.Unlock()

	if !socket.connected {
		return ErrNotConnected
	}
	_, err := socket.conn.Write([]byte(line + "\r\n"))
	return err
}
