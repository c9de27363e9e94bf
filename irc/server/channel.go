package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"ircd/irc"
)

// errChannelGone reports a join attempt against an instance that has been
// destroyed and removed from the registry. The caller re-resolves the name
// and retries.
var errChannelGone = errors.New("irc: channel destroyed")

// Channel represents one named IRC channel. Membership is stored as folded
// nicks; member sessions are resolved through the server registry at
// delivery time, so neither side holds a long-lived reference to the other.
type Channel struct {
	server *Server
	name   string // display form, original case

	mu      sync.RWMutex
	dead    bool // set under mu when the empty channel leaves the registry
	topic   string
	key     string
	limit   int
	members map[string]string // folded nick -> mode flags, e.g. "o"
}

// NewChannel creates an empty channel.
func NewChannel(server *Server, name string) *Channel {
	return &Channel{
		server:  server,
		name:    name,
		members: make(map[string]string),
	}
}

// Name returns the channel's display name.
func (ch *Channel) Name() string {
	return ch.name
}

// Join adds a nick to the membership. Joining a channel one is already a
// member of is a no-op. The first member of a fresh channel becomes channel
// operator.
func (ch *Channel) Join(nick, suppliedKey string) error {
	folded := irc.FoldName(nick)

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.dead {
		return errChannelGone
	}
	if _, ok := ch.members[folded]; ok {
		return nil
	}
	if ch.key != "" && suppliedKey != ch.key {
		return &irc.BadChannelKeyError{Channel: ch.name}
	}
	if ch.limit > 0 && len(ch.members) >= ch.limit {
		return &irc.ChannelFullError{Channel: ch.name}
	}

	modes := ""
	if len(ch.members) == 0 {
		modes = "o"
	}
	ch.members[folded] = modes
	return nil
}

// Remove drops a nick from the membership and reports whether the channel
// is now empty. Returns NotAMemberError when the nick was not a member.
func (ch *Channel) Remove(nick string) (empty bool, err error) {
	folded := irc.FoldName(nick)

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if _, ok := ch.members[folded]; !ok {
		return len(ch.members) == 0, &irc.NotAMemberError{Channel: ch.name}
	}
	delete(ch.members, folded)
	return len(ch.members) == 0, nil
}

// IsMember reports whether a nick belongs to the channel.
func (ch *Channel) IsMember(nick string) bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	_, ok := ch.members[irc.FoldName(nick)]
	return ok
}

// IsOperator reports whether a nick holds channel operator status.
func (ch *Channel) IsOperator(nick string) bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	modes, ok := ch.members[irc.FoldName(nick)]
	return ok && containsMode(modes, 'o')
}

// MemberCount returns the number of members.
func (ch *Channel) MemberCount() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	return len(ch.members)
}

// Members returns the member sessions in sorted nick order, resolved
// through the registry. Nicks currently quitting resolve to nothing and are
// skipped.
func (ch *Channel) Members() []*Client {
	nicks := ch.memberNicks()
	clients := make([]*Client, 0, len(nicks))
	for _, nick := range nicks {
		if c, err := ch.server.Client(nick); err == nil {
			clients = append(clients, c)
		}
	}
	return clients
}

// memberNicks returns the folded member nicks in sorted order.
func (ch *Channel) memberNicks() []string {
	ch.mu.RLock()
	nicks := make([]string, 0, len(ch.members))
	for nick := range ch.members {
		nicks = append(nicks, nick)
	}
	ch.mu.RUnlock()

	sort.Strings(nicks)
	return nicks
}

// SetTopic sets the topic and notifies every member, the setter included.
func (ch *Channel) SetTopic(from *Client, topic string) {
	ch.mu.Lock()
	ch.topic = topic
	ch.mu.Unlock()

	notice := &irc.Message{
		Prefix:   from.Identifier(),
		Command:  "TOPIC",
		Params:   []string{ch.name, topic},
		Trailing: true,
	}
	ch.Broadcast(notice.String(), "")
}

// Topic returns the current topic; ok is false when none is set.
func (ch *Channel) Topic() (topic string, ok bool) {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	return ch.topic, ch.topic != ""
}

// SetKey configures the join key. An empty key clears it.
func (ch *Channel) SetKey(key string) {
	ch.mu.Lock()
	ch.key = key
	ch.mu.Unlock()
}

// SetLimit configures the member limit. Zero clears it.
func (ch *Channel) SetLimit(limit int) {
	ch.mu.Lock()
	ch.limit = limit
	ch.mu.Unlock()
}

// Privmsg relays a message to every member except the sender.
func (ch *Channel) Privmsg(from *Client, text string) {
	relay := &irc.Message{
		Prefix:   from.Identifier(),
		Command:  "PRIVMSG",
		Params:   []string{ch.name, text},
		Trailing: true,
	}
	ch.Broadcast(relay.String(), irc.FoldName(from.Nick()))
	messagesRouted.Inc()
}

// Broadcast delivers a raw line to every member, skipping the folded nick
// given as except.
func (ch *Channel) Broadcast(line, except string) {
	for _, nick := range ch.memberNicks() {
		if nick == except {
			continue
		}
		if c, err := ch.server.Client(nick); err == nil {
			c.sendRaw(line)
		}
	}
}

// sendNames emits the member list numerics to a client.
func (ch *Channel) sendNames(to *Client) {
	names := ""
	for _, member := range ch.Members() {
		if names != "" {
			names += " "
		}
		if ch.IsOperator(member.Nick()) {
			names += "@"
		}
		names += member.Nick()
	}

	to.sendNumeric(irc.RPL_NAMREPLY, ch.name, names)
	to.sendNumeric(irc.RPL_ENDOFNAMES, ch.name)
}

// sendWho emits a status line per member followed by end-of-who.
func (ch *Channel) sendWho(to *Client) {
	for _, member := range ch.Members() {
		flags := "H"
		if ch.IsOperator(member.Nick()) {
			flags += "@"
		}
		to.sendNumeric(irc.RPL_WHOREPLY, ch.name, member.Username(), member.Host(),
			ch.server.config.Server.Name, member.Nick(), flags, member.Realname())
	}
	to.sendNumeric(irc.RPL_ENDOFWHO, ch.name)
}

// String describes the channel for logs.
func (ch *Channel) String() string {
	return fmt.Sprintf("%s(%d)", ch.name, ch.MemberCount())
}

func containsMode(modes string, mode rune) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}
