package irc

import "fmt"

// MissingParamsError reports a command received with fewer parameters than
// its contract requires.
type MissingParamsError struct {
	Command string
}

func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("irc: %s: not enough parameters", e.Command)
}

// UnknownTargetError reports a nick or channel name with no live entry in
// the registry.
type UnknownTargetError struct {
	Name string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("irc: no such nick/channel %s", e.Name)
}

// BadChannelKeyError reports a join attempt with a missing or wrong key.
type BadChannelKeyError struct {
	Channel string
}

func (e *BadChannelKeyError) Error() string {
	return fmt.Sprintf("irc: bad key for channel %s", e.Channel)
}

// ChannelFullError reports a join attempt against a channel at its member
// limit.
type ChannelFullError struct {
	Channel string
}

func (e *ChannelFullError) Error() string {
	return fmt.Sprintf("irc: channel %s is full", e.Channel)
}

// NotAMemberError reports an operation by a session that is not on the
// channel.
type NotAMemberError struct {
	Channel string
}

func (e *NotAMemberError) Error() string {
	return fmt.Sprintf("irc: not a member of channel %s", e.Channel)
}
