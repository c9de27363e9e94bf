package server

import (
	"fmt"
	"log"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"ircd/irc"
	"ircd/irc/config"
)

// Server owns every session and channel. Nick and channel names are unique
// and case-insensitive; entries exist in the registry exactly as long as a
// live session or channel does. All cross-entity operations (join, quit,
// whois, message routing) go through here.
type Server struct {
	config    *config.Config
	motd      []string
	startTime time.Time

	conns    sync.Map // connection ID -> *Client, every connection
	nicks    sync.Map // folded nick -> *Client, registered only
	channels sync.Map // folded name -> *Channel

	// OnRegister runs when a session completes the handshake, OnQuit when
	// one is torn down.
	OnRegister HookRegistry
	OnQuit     HookRegistry

	listener net.Listener
	botAPI   *BotAPI
	quit     chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server from a configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	motd, err := cfg.MOTDLines()
	if err != nil {
		return nil, err
	}

	srv := &Server{
		config:    cfg,
		motd:      motd,
		startTime: time.Now(),
		quit:      make(chan struct{}),
	}

	srv.OnRegister.Register(func(ev SessionEvent) error {
		clientsGauge.Inc()
		return nil
	})
	srv.OnQuit.Register(func(ev SessionEvent) error {
		if ev.Client.Registered() {
			clientsGauge.Dec()
		}
		return nil
	})

	if cfg.Bots.Enabled {
		api, err := NewBotAPI(srv, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize bot API: %v", err)
		}
		srv.botAPI = api
	}

	return srv, nil
}

// Start begins listening for IRC connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.ListenAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", s.config.ListenAddress(), err)
	}
	s.listener = listener
	log.Printf("Listening for IRC connections on %s", listener.Addr())

	if s.botAPI != nil {
		go func() {
			if err := s.botAPI.Start(); err != nil {
				log.Printf("Bot API stopped: %v", err)
			}
		}()
	}

	go s.acceptConnections()
	return nil
}

// Stop shuts the server down and disconnects every client. Safe to invoke
// more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.quit)

		if s.listener != nil {
			s.listener.Close()
		}
		if s.botAPI != nil {
			s.botAPI.Stop()
		}

		clients := make([]*Client, 0)
		s.conns.Range(func(_, value interface{}) bool {
			clients = append(clients, value.(*Client))
			return true
		})
		for _, client := range clients {
			s.QuitClient(client, "Server shutting down")
		}
	})
	return nil
}

// Addr returns the address the IRC listener is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Printf("Failed to accept connection: %v", err)
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	client := NewClient(s, conn)
	s.conns.Store(client.ID(), client)
	connectionsTotal.Inc()
	client.Handle()
}

// Client resolves a nick to its registered session.
func (s *Server) Client(nick string) (*Client, error) {
	value, ok := s.nicks.Load(irc.FoldName(nick))
	if !ok {
		return nil, &irc.UnknownTargetError{Name: nick}
	}
	return value.(*Client), nil
}

// Channel resolves a channel name to its live channel.
func (s *Server) Channel(name string) (*Channel, error) {
	value, ok := s.channels.Load(irc.FoldName(name))
	if !ok {
		return nil, &irc.UnknownTargetError{Name: name}
	}
	return value.(*Channel), nil
}

// Channels returns every live channel in sorted name order.
func (s *Server) Channels() []*Channel {
	channels := make([]*Channel, 0)
	s.channels.Range(func(_, value interface{}) bool {
		channels = append(channels, value.(*Channel))
		return true
	})
	sort.Slice(channels, func(i, j int) bool {
		return irc.FoldName(channels[i].Name()) < irc.FoldName(channels[j].Name())
	})
	return channels
}

// RegisterNick claims a nick for a client. Fails when the nick is taken by
// another live session.
func (s *Server) RegisterNick(c *Client, nick string) error {
	existing, loaded := s.nicks.LoadOrStore(irc.FoldName(nick), c)
	if loaded && existing.(*Client) != c {
		return fmt.Errorf("nickname %s is already in use", nick)
	}
	return nil
}

// JoinClientToChannel joins a client to a channel, creating the channel on
// first use. On success the join is announced to every member and the topic
// and names numerics are sent to the joiner.
func (s *Server) JoinClientToChannel(c *Client, name, key string) error {
	folded := irc.FoldName(name)

	// Creation and destruction race on the same name: the instance resolved
	// here may empty out and leave the registry before the join lands.
	// Retry until it lands on a live instance.
	var channel *Channel
	var wasMember bool
	for {
		value, loaded := s.channels.LoadOrStore(folded, NewChannel(s, name))
		channel = value.(*Channel)
		if !loaded {
			channelsGauge.Inc()
		}

		wasMember = channel.IsMember(c.Nick())
		err := channel.Join(c.Nick(), key)
		if err == errChannelGone {
			continue
		}
		if err != nil {
			s.dropChannelIfEmpty(channel)
			return err
		}
		break
	}
	if wasMember {
		return nil
	}
	if !c.addChannel(folded) {
		// The client quit while joining; roll the membership back
		channel.Remove(c.Nick())
		s.dropChannelIfEmpty(channel)
		return nil
	}

	join := &irc.Message{
		Prefix:  c.Identifier(),
		Command: "JOIN",
		Params:  []string{channel.Name()},
	}
	channel.Broadcast(join.String(), "")

	if topic, ok := channel.Topic(); ok {
		c.sendNumeric(irc.RPL_TOPIC, channel.Name(), topic)
	}
	channel.sendNames(c)
	return nil
}

// PartClientFromChannel removes a client from a channel, announcing the
// part to every member first. Empty channels are destroyed.
func (s *Server) PartClientFromChannel(c *Client, name, reason string) error {
	channel, err := s.Channel(name)
	if err != nil {
		return err
	}
	if !channel.IsMember(c.Nick()) {
		return &irc.NotAMemberError{Channel: channel.Name()}
	}

	part := &irc.Message{
		Prefix:   c.Identifier(),
		Command:  "PART",
		Params:   []string{channel.Name(), reason},
		Trailing: true,
	}
	channel.Broadcast(part.String(), "")

	channel.Remove(c.Nick())
	c.removeChannel(irc.FoldName(name))
	s.dropChannelIfEmpty(channel)
	return nil
}

// QuitClient removes a session from every channel and from the nick
// registry, then closes its connection. Safe to invoke more than once; only
// the first call does anything.
func (s *Server) QuitClient(c *Client, reason string) {
	if !c.beginQuit() {
		return
	}

	quitMsg := &irc.Message{
		Prefix:   c.Identifier(),
		Command:  "QUIT",
		Params:   []string{reason},
		Trailing: true,
	}
	for _, folded := range c.takeChannels() {
		value, ok := s.channels.Load(folded)
		if !ok {
			continue
		}
		channel := value.(*Channel)
		channel.Remove(c.Nick())
		channel.Broadcast(quitMsg.String(), "")
		s.dropChannelIfEmpty(channel)
	}

	s.OnQuit.Run(SessionEvent{Client: c, Reason: reason})
	if nick := c.Nick(); nick != "" {
		s.nicks.LoadAndDelete(irc.FoldName(nick))
	}
	s.conns.Delete(c.ID())

	log.Printf("[%s] *** Client disconnected (%s)", c.Host(), reason)
	c.closeConn()
}

// Whois emits the identity numerics for one nick to the asker.
func (s *Server) Whois(asker *Client, nick string) {
	target, err := s.Client(nick)
	if err != nil {
		asker.sendNumeric(irc.ERR_NOSUCHNICK, nick)
		return
	}

	asker.sendNumeric(irc.RPL_WHOISUSER, target.Nick(), target.Username(), target.Host(), target.Realname())
	asker.sendNumeric(irc.RPL_WHOISSERVER, target.Nick(), s.config.Server.Name,
		fmt.Sprintf("%s %s", s.config.Server.Network, s.config.Server.Version))

	names := make([]string, 0)
	for _, folded := range target.channelNames() {
		if value, ok := s.channels.Load(folded); ok {
			channel := value.(*Channel)
			name := channel.Name()
			if channel.IsOperator(target.Nick()) {
				name = "@" + name
			}
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		asker.sendNumeric(irc.RPL_WHOISCHANNELS, target.Nick(), strings.Join(names, " "))
	}

	asker.sendNumeric(irc.RPL_ENDOFWHOIS, target.Nick())
}

// dropChannelIfEmpty destroys an empty channel. The emptiness check, the
// dead mark and the registry removal happen under the channel lock, so a
// concurrent join either lands before destruction or sees the dead mark and
// retries on a fresh instance.
func (s *Server) dropChannelIfEmpty(channel *Channel) {
	channel.mu.Lock()
	defer channel.mu.Unlock()

	if channel.dead || len(channel.members) > 0 {
		return
	}
	channel.dead = true
	s.channels.LoadAndDelete(irc.FoldName(channel.name))
	channelsGauge.Dec()
	log.Printf("Channel %s destroyed", channel.name)
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config {
	return s.config
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// ClientCount returns the number of registered sessions.
func (s *Server) ClientCount() int {
	count := 0
	s.nicks.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// ChannelCount returns the number of live channels.
func (s *Server) ChannelCount() int {
	count := 0
	s.channels.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}
