package server

import (
	"bufio"
	"io"
	"log"
	"net"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ircd/irc"
)

// Conn is the transport capability a session writes through. The real
// implementation wraps a net.Conn; tests substitute a recorder.
type Conn interface {
	SendRaw(line string)
	Close() error
	RemoteAddr() net.Addr
}

// netConn adapts a net.Conn to the Conn capability with buffered,
// serialized writes.
type netConn struct {
	conn      net.Conn
	writer    *bufio.Writer
	writeLock sync.Mutex
}

func newNetConn(conn net.Conn) *netConn {
	return &netConn{
		conn:   conn,
		writer: bufio.NewWriter(conn),
	}
}

func (nc *netConn) SendRaw(line string) {
	nc.writeLock.Lock()
	defer nc.writeLock.Unlock()

	if _, err := nc.writer.WriteString(line + "\r\n"); err == nil {
		nc.writer.Flush()
	}
}

func (nc *netConn) Close() error {
	return nc.conn.Close()
}

func (nc *netConn) RemoteAddr() net.Addr {
	return nc.conn.RemoteAddr()
}

// Client represents one connected session. It begins in the registering
// state, turns active once NICK and USER have both arrived, and is
// destroyed by QUIT or connection closure. Channel membership is held as a
// set of folded channel names; the channels themselves live in the
// registry.
type Client struct {
	id     string
	server *Server
	conn   Conn
	sock   net.Conn // nil when the session is driven directly, as in tests

	mu         sync.RWMutex
	nickname   string
	username   string
	realname   string
	hostname   string
	channels   map[string]bool
	registered bool

	quit chan struct{}
}

// NewClient creates a session for a freshly accepted connection.
func NewClient(server *Server, conn net.Conn) *Client {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	return &Client{
		id:       uuid.New().String(),
		server:   server,
		conn:     newNetConn(conn),
		sock:     conn,
		hostname: host,
		channels: make(map[string]bool),
		quit:     make(chan struct{}),
	}
}

// ID returns the connection identifier assigned before registration.
func (c *Client) ID() string {
	return c.id
}

// Nick returns the session's nick, or the empty string before NICK.
func (c *Client) Nick() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname
}

// Username returns the username from the USER exchange.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// Realname returns the real name from the USER exchange.
func (c *Client) Realname() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.realname
}

// Host returns the session's resolved host.
func (c *Client) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hostname
}

// Registered reports whether the registration handshake has completed.
func (c *Client) Registered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registered
}

// Hostmask returns the username@host portion of the identity.
func (c *Client) Hostmask() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return irc.FormatHostmask(c.username, c.hostname)
}

// Identifier returns the nick!username@host message source.
func (c *Client) Identifier() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return irc.FormatIdentifier(c.nickname, c.username, c.hostname)
}

// Handle reads protocol lines until the connection drops, then tears the
// session down.
func (c *Client) Handle() {
	defer c.server.QuitClient(c, "Connection closed")

	log.Printf("[%s] *** New client connected", c.Host())

	// Unregistered connections get a deadline to finish the handshake
	c.sock.SetReadDeadline(time.Now().Add(60 * time.Second))

	reader := textproto.NewReader(bufio.NewReader(c.sock))
	for {
		line, err := reader.ReadLine()
		if err != nil {
			if err != io.EOF {
				log.Printf("[%s] Error reading from client: %v", c.Host(), err)
			}
			return
		}
		if line == "" {
			continue
		}
		c.HandleLine(line)

		select {
		case <-c.quit:
			return
		default:
		}
	}
}

// HandleLine parses and dispatches one raw protocol line.
func (c *Client) HandleLine(line string) {
	if c.server.config.Debug {
		log.Printf("[%s] <= %#v", c.Host(), line)
	}

	msg, err := irc.ParseMessage(line)
	if err != nil {
		return
	}
	c.handleMessage(msg)
}

// handleMessage routes a parsed message. The command set is closed: before
// registration only the handshake verbs are understood, afterwards exactly
// the session commands. Anything else is accepted and dropped without a
// reply.
func (c *Client) handleMessage(msg *irc.Message) {
	if !c.Registered() {
		switch msg.Command {
		case "NICK":
			c.handleNick(msg.Params)
		case "USER":
			c.handleUser(msg.Params)
		case "QUIT":
			c.server.QuitClient(c, quitReason(msg.Params))
		}
		return
	}

	switch msg.Command {
	case "PRIVMSG":
		c.handlePrivmsg(msg.Params)
	case "JOIN":
		c.handleJoin(msg.Params)
	case "PART":
		c.handlePart(msg.Params)
	case "QUIT":
		c.server.QuitClient(c, quitReason(msg.Params))
	case "NAMES":
		c.handleNames(msg.Params)
	case "TOPIC":
		c.handleTopic(msg.Params)
	case "WHO":
		c.handleWho(msg.Params)
	case "WHOIS":
		c.handleWhois(msg.Params)
	case "USER":
		c.sendNumeric(irc.ERR_ALREADYREGISTRED)
	}
}

func quitReason(params []string) string {
	if len(params) > 0 && params[0] != "" {
		return params[0]
	}
	return "Client Quit"
}

// handleNick claims a nick during registration.
func (c *Client) handleNick(params []string) {
	if len(params) < 1 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "NICK")
		return
	}
	nick := params[0]

	if err := c.server.RegisterNick(c, nick); err != nil {
		c.sendNumeric(irc.ERR_NICKNAMEINUSE, nick)
		return
	}

	c.mu.Lock()
	c.nickname = nick
	c.mu.Unlock()

	c.tryCompleteRegistration()
}

// handleUser records the username and real name during registration.
func (c *Client) handleUser(params []string) {
	if len(params) < 4 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "USER")
		return
	}

	c.mu.Lock()
	c.username = params[0]
	c.realname = params[3]
	c.mu.Unlock()

	c.tryCompleteRegistration()
}

// tryCompleteRegistration turns the session active once both halves of the
// handshake have arrived, and sends the welcome burst and MOTD.
func (c *Client) tryCompleteRegistration() {
	c.mu.Lock()
	if c.registered || c.nickname == "" || c.username == "" {
		c.mu.Unlock()
		return
	}
	c.registered = true
	c.mu.Unlock()

	if c.sock != nil {
		c.sock.SetReadDeadline(time.Time{})
	}
	c.server.OnRegister.Run(SessionEvent{Client: c})
	log.Printf("[%s] *** Client registered as %s", c.Host(), c.Identifier())

	cfg := c.server.config
	c.sendNumeric(irc.RPL_WELCOME, c.Nick(), c.Username(), c.Host())
	c.sendNumeric(irc.RPL_YOURHOST, cfg.Server.Name, cfg.Server.Version)
	c.sendNumeric(irc.RPL_CREATED, c.server.startTime.Format(time.RFC1123))
	c.sendNumeric(irc.RPL_MYINFO, cfg.Server.Name, cfg.Server.Version, "o", "klo")
	c.sendNumeric(irc.RPL_ISUPPORT, "CHANTYPES=# PREFIX=(o)@ NETWORK="+cfg.Server.Network)
	c.sendMOTD()
}

// sendMOTD sends the configured message of the day.
func (c *Client) sendMOTD() {
	c.sendNumeric(irc.RPL_MOTDSTART, c.server.config.Server.Name)
	for _, line := range c.server.motd {
		c.sendNumeric(irc.RPL_MOTD, line)
	}
	c.sendNumeric(irc.RPL_ENDOFMOTD)
}

// sendRaw writes one line to the session's connection.
func (c *Client) sendRaw(line string) {
	if c.server.config.Debug {
		log.Printf("[%s] => %s", c.Nick(), line)
	}
	c.conn.SendRaw(line)
}

// sendNumeric formats a catalog reply addressed to this session and sends
// it with the server hostname as source.
func (c *Client) sendNumeric(code int, args ...interface{}) {
	nick := c.Nick()
	if nick == "" {
		nick = "*"
	}
	c.sendRaw(irc.FormatNumeric(c.server.config.Server.Name, code, nick, args...))
	numericsSent.WithLabelValues(numericLabel(code)).Inc()
}

// sendPrivmsg delivers a private message from another session.
func (c *Client) sendPrivmsg(from *Client, text string) {
	msg := &irc.Message{
		Prefix:   from.Identifier(),
		Command:  "PRIVMSG",
		Params:   []string{c.Nick(), text},
		Trailing: true,
	}
	c.sendRaw(msg.String())
	messagesRouted.Inc()
}

// beginQuit moves the session into the quitting state. It returns false if
// a quit is already underway, making teardown idempotent.
func (c *Client) beginQuit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.quit:
		return false
	default:
		close(c.quit)
		return true
	}
}

// addChannel records a membership. It refuses once the session is
// quitting, so a concurrent QUIT never observes a half-joined state.
func (c *Client) addChannel(folded string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.quit:
		return false
	default:
	}
	c.channels[folded] = true
	return true
}

// removeChannel drops a membership record.
func (c *Client) removeChannel(folded string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, folded)
}

// channelNames returns the folded names of every joined channel, sorted.
func (c *Client) channelNames() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.channels))
	for name := range c.channels {
		names = append(names, name)
	}
	c.mu.RUnlock()

	sort.Strings(names)
	return names
}

// takeChannels empties the membership set and returns what it held. Only
// the quit path calls this.
func (c *Client) takeChannels() []string {
	c.mu.Lock()
	names := make([]string, 0, len(c.channels))
	for name := range c.channels {
		names = append(names, name)
	}
	c.channels = make(map[string]bool)
	c.mu.Unlock()

	sort.Strings(names)
	return names
}

// closeConn closes the underlying connection. The read loop unblocks and
// finds the quit flag set.
func (c *Client) closeConn() {
	if c.sock != nil {
		c.sock.SetReadDeadline(time.Now())
	}
	c.conn.Close()
}

// String describes the session for logs.
func (c *Client) String() string {
	if nick := c.Nick(); nick != "" {
		return nick
	}
	return strings.SplitN(c.id, "-", 2)[0]
}
