package server

import (
	"errors"
	"strings"

	"ircd/irc"
)

// Each handler opens with an explicit minimum-parameter guard: below the
// contractual minimum, one ERR_NEEDMOREPARAMS names the command and the
// handler body never runs.

// handlePrivmsg relays a message to each target independently. A failed
// lookup on one target is reported to the sender and does not block
// delivery to the others.
func (c *Client) handlePrivmsg(params []string) {
	if len(params) < 2 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "PRIVMSG")
		return
	}

	text := params[1]
	for _, target := range strings.Split(params[0], ",") {
		if irc.IsChannelName(target) {
			channel, err := c.server.Channel(target)
			if err != nil {
				c.sendNumeric(irc.ERR_NOSUCHCHANNEL, target)
				continue
			}
			channel.Privmsg(c, text)
		} else {
			peer, err := c.server.Client(target)
			if err != nil {
				c.sendNumeric(irc.ERR_NOSUCHNICK, target)
				continue
			}
			peer.sendPrivmsg(c, text)
		}
	}
}

// handleJoin joins each named channel with its positional key, creating
// unknown channels on first use.
func (c *Client) handleJoin(params []string) {
	if len(params) < 1 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "JOIN")
		return
	}

	channels := strings.Split(params[0], ",")
	keys := []string{}
	if len(params) > 1 {
		keys = strings.Split(params[1], ",")
	}

	for i, name := range channels {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}

		err := c.server.JoinClientToChannel(c, name, key)
		var badKey *irc.BadChannelKeyError
		var full *irc.ChannelFullError
		switch {
		case err == nil:
		case errors.As(err, &badKey):
			c.sendNumeric(irc.ERR_BADCHANNELKEY, name)
		case errors.As(err, &full):
			c.sendNumeric(irc.ERR_CHANNELISFULL, name)
		}
	}
}

// handlePart leaves each named channel. Unknown channels and channels the
// session never joined are ignored without a reply.
func (c *Client) handlePart(params []string) {
	if len(params) < 1 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "PART")
		return
	}

	reason := ""
	if len(params) > 1 {
		reason = params[1]
	}

	for _, name := range strings.Split(params[0], ",") {
		c.server.PartClientFromChannel(c, name, reason)
	}
}

// handleNames enumerates the named channels, or every channel when called
// without an argument.
func (c *Client) handleNames(params []string) {
	if len(params) < 1 {
		for _, channel := range c.server.Channels() {
			channel.sendNames(c)
		}
		return
	}

	for _, name := range strings.Split(params[0], ",") {
		if channel, err := c.server.Channel(name); err == nil {
			channel.sendNames(c)
		}
	}
}

// handleTopic queries or sets a channel topic.
func (c *Client) handleTopic(params []string) {
	if len(params) < 1 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "TOPIC")
		return
	}

	name := params[0]
	channel, err := c.server.Channel(name)
	if err != nil {
		c.sendNumeric(irc.ERR_NOSUCHCHANNEL, name)
		return
	}

	if len(params) < 2 {
		if topic, ok := channel.Topic(); ok {
			c.sendNumeric(irc.RPL_TOPIC, channel.Name(), topic)
		} else {
			c.sendNumeric(irc.RPL_NOTOPIC, channel.Name())
		}
		return
	}

	channel.SetTopic(c, params[1])
}

// handleWho enumerates a channel's members with a status line each.
func (c *Client) handleWho(params []string) {
	if len(params) < 1 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "WHO")
		return
	}

	name := params[0]
	channel, err := c.server.Channel(name)
	if err != nil {
		c.sendNumeric(irc.ERR_NOSUCHCHANNEL, name)
		return
	}
	channel.sendWho(c)
}

// handleWhois queries each nick in turn. Some clients send an extra
// leading server token; when the first token resolves to nothing at all it
// is skipped in favor of the next parameter.
func (c *Client) handleWhois(params []string) {
	if len(params) < 1 {
		c.sendNumeric(irc.ERR_NEEDMOREPARAMS, "WHOIS")
		return
	}

	targets := params[0]
	if len(params) > 1 {
		targets = params[1]
	}

	for _, nick := range strings.Split(targets, ",") {
		c.server.Whois(c, nick)
	}
}
