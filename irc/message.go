package irc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyMessage is returned by ParseMessage for an empty line. It is the
// only way parsing can fail; anything else is handled as a one-token command.
var ErrEmptyMessage = errors.New("irc: empty message")

// Message represents a single IRC protocol line.
type Message struct {
	Prefix  string
	Command string
	Params  []string

	// Trailing marks the final parameter as free-form. It is serialized with
	// a leading colon even when it contains no spaces.
	Trailing bool
}

// ParseMessage parses a raw IRC line into a Message.
func ParseMessage(line string) (*Message, error) {
	if line == "" {
		return nil, ErrEmptyMessage
	}

	msg := &Message{
		Params: make([]string, 0),
	}

	// Strip the optional :<prefix> source
	if line[0] == ':' {
		parts := strings.SplitN(line[1:], " ", 2)
		msg.Prefix = parts[0]
		if len(parts) < 2 {
			return msg, nil
		}
		line = parts[1]
	}

	parts := strings.SplitN(line, " ", 2)
	msg.Command = strings.ToUpper(parts[0])
	if len(parts) > 1 {
		paramPart := parts[1]
		for paramPart != "" {
			// A colon starts the final parameter; it runs to end of line
			if paramPart[0] == ':' {
				msg.Params = append(msg.Params, paramPart[1:])
				msg.Trailing = true
				break
			}
			parts := strings.SplitN(paramPart, " ", 2)
			msg.Params = append(msg.Params, parts[0])
			if len(parts) < 2 {
				break
			}
			paramPart = parts[1]
		}
	}

	return msg, nil
}

// String returns the wire representation of the message.
func (m *Message) String() string {
	var builder strings.Builder

	if m.Prefix != "" {
		builder.WriteString(":")
		builder.WriteString(m.Prefix)
		builder.WriteString(" ")
	}

	builder.WriteString(m.Command)

	for i, param := range m.Params {
		builder.WriteString(" ")

		// The last parameter gets a colon when marked trailing, or when it
		// could not otherwise survive a round trip
		if i == len(m.Params)-1 && (m.Trailing || strings.Contains(param, " ") || strings.HasPrefix(param, ":") || param == "") {
			builder.WriteString(":")
		}
		builder.WriteString(param)
	}

	return builder.String()
}

// IsChannelName reports whether name refers to a channel rather than a nick.
func IsChannelName(name string) bool {
	return strings.HasPrefix(name, "#") || strings.HasPrefix(name, "&")
}

// FoldName normalizes a nick or channel name for case-insensitive lookups.
func FoldName(name string) string {
	return strings.ToLower(name)
}

// FormatHostmask formats the user@host portion of an identity.
func FormatHostmask(user, host string) string {
	return fmt.Sprintf("%s@%s", user, host)
}

// FormatIdentifier formats the full nick!user@host source of a message.
func FormatIdentifier(nick, user, host string) string {
	return fmt.Sprintf("%s!%s@%s", nick, user, host)
}

// ParseHostmask parses a nick!user@host identifier.
func ParseHostmask(hostmask string) (nick, user, host string) {
	nickParts := strings.SplitN(hostmask, "!", 2)
	if len(nickParts) < 2 {
		nick = hostmask
		return
	}
	nick = nickParts[0]

	userHostParts := strings.SplitN(nickParts[1], "@", 2)
	if len(userHostParts) < 2 {
		user = nickParts[1]
		return
	}
	user = userHostParts[0]
	host = userHostParts[1]

	return
}
