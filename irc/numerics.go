package irc

import (
	"fmt"
	"strings"
)

// Numeric reply codes sent by the server.
const (
	RPL_WELCOME       = 1
	RPL_YOURHOST      = 2
	RPL_CREATED       = 3
	RPL_MYINFO        = 4
	RPL_ISUPPORT      = 5
	RPL_WHOISUSER     = 311
	RPL_WHOISSERVER   = 312
	RPL_ENDOFWHO      = 315
	RPL_ENDOFWHOIS    = 318
	RPL_WHOISCHANNELS = 319
	RPL_NOTOPIC       = 331
	RPL_TOPIC         = 332
	RPL_WHOREPLY      = 352
	RPL_NAMREPLY      = 353
	RPL_ENDOFNAMES    = 366
	RPL_MOTDSTART     = 375
	RPL_MOTD          = 372
	RPL_ENDOFMOTD     = 376

	ERR_NOSUCHNICK       = 401
	ERR_NOSUCHCHANNEL    = 403
	ERR_NICKNAMEINUSE    = 433
	ERR_NEEDMOREPARAMS   = 461
	ERR_ALREADYREGISTRED = 462
	ERR_CHANNELISFULL    = 471
	ERR_BADCHANNELKEY    = 475
)

// numeric is one catalog entry: a message template with positional %s
// placeholders and a flag marking the final parameter as free-form. In a
// template, " :" separates the regular parameters from the trailing text;
// a template without it formats to a single trailing parameter.
type numeric struct {
	text       string
	finalMulti bool
}

var numerics = map[int]numeric{
	RPL_WELCOME:       {"Welcome to the Internet Relay Chat Network %s!%s@%s", true},
	RPL_YOURHOST:      {"Your host is %s, running version %s", true},
	RPL_CREATED:       {"This server was created %s", true},
	RPL_MYINFO:        {"%s %s %s %s", false},
	RPL_ISUPPORT:      {"%s :are supported by this server", true},
	RPL_WHOISUSER:     {"%s %s %s * :%s", true},
	RPL_WHOISSERVER:   {"%s %s :%s", true},
	RPL_ENDOFWHO:      {"%s :End of /WHO list", true},
	RPL_ENDOFWHOIS:    {"%s :End of /WHOIS list", true},
	RPL_WHOISCHANNELS: {"%s :%s", true},
	RPL_NOTOPIC:       {"%s :No topic is set", true},
	RPL_TOPIC:         {"%s :%s", true},
	RPL_WHOREPLY:      {"%s %s %s %s %s %s :0 %s", true},
	RPL_NAMREPLY:      {"= %s :%s", true},
	RPL_ENDOFNAMES:    {"%s :End of /NAMES list", true},
	RPL_MOTDSTART:     {"- %s Message of the day -", true},
	RPL_MOTD:          {"- %s", true},
	RPL_ENDOFMOTD:     {"End of /MOTD command", true},

	ERR_NOSUCHNICK:       {"%s :No such nick/channel", true},
	ERR_NOSUCHCHANNEL:    {"%s :No such channel", true},
	ERR_NICKNAMEINUSE:    {"%s :Nickname is already in use", true},
	ERR_NEEDMOREPARAMS:   {"%s :Not enough parameters", true},
	ERR_ALREADYREGISTRED: {"You may not reregister", true},
	ERR_CHANNELISFULL:    {"%s :Cannot join channel (+l)", true},
	ERR_BADCHANNELKEY:    {"%s :Cannot join channel (+k)", true},
}

// NumericMessage formats a catalog entry into a reply addressed to nick,
// with the server hostname as source. A code missing from the catalog is a
// programming error and panics.
func NumericMessage(server string, code int, nick string, args ...interface{}) *Message {
	n, ok := numerics[code]
	if !ok {
		panic(fmt.Sprintf("irc: numeric %03d not in catalog", code))
	}

	// The template is split before substitution; a trailing argument that
	// happens to contain " :" stays one parameter.
	params := []string{nick}
	if n.finalMulti {
		if lead, trail, found := strings.Cut(n.text, " :"); found {
			count := strings.Count(lead, "%s")
			params = append(params, strings.Split(fmt.Sprintf(lead, args[:count]...), " ")...)
			params = append(params, fmt.Sprintf(trail, args[count:]...))
		} else {
			params = append(params, fmt.Sprintf(n.text, args...))
		}
	} else {
		params = append(params, strings.Split(fmt.Sprintf(n.text, args...), " ")...)
	}

	return &Message{
		Prefix:   server,
		Command:  fmt.Sprintf("%03d", code),
		Params:   params,
		Trailing: n.finalMulti,
	}
}

// FormatNumeric returns the wire line for a numeric reply.
func FormatNumeric(server string, code int, nick string, args ...interface{}) string {
	return NumericMessage(server, code, nick, args...).String()
}
