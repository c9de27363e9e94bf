package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericMessage(t *testing.T) {
	msg := NumericMessage("ircd.local", RPL_WELCOME, "alice", "alice", "ada", "example.com")
	assert.Equal(t, "ircd.local", msg.Prefix)
	assert.Equal(t, "001", msg.Command)
	require.Len(t, msg.Params, 2)
	assert.Equal(t, "alice", msg.Params[0])
	assert.Equal(t, "Welcome to the Internet Relay Chat Network alice!ada@example.com", msg.Params[1])
	assert.True(t, msg.Trailing)
}

func TestNumericMessageSplitsLeadingParams(t *testing.T) {
	msg := NumericMessage("ircd.local", RPL_TOPIC, "alice", "#go", "gophers only")
	assert.Equal(t, []string{"alice", "#go", "gophers only"}, msg.Params)
	assert.Equal(t, ":ircd.local 332 alice #go :gophers only", msg.String())
}

func TestNumericMessageNoTrailing(t *testing.T) {
	msg := NumericMessage("ircd.local", RPL_MYINFO, "alice", "ircd.local", "ircd-1.0", "o", "klo")
	assert.Equal(t, []string{"alice", "ircd.local", "ircd-1.0", "o", "klo"}, msg.Params)
	assert.False(t, msg.Trailing)
	assert.Equal(t, ":ircd.local 004 alice ircd.local ircd-1.0 o klo", msg.String())
}

func TestFormatNumeric(t *testing.T) {
	tests := []struct {
		code int
		args []interface{}
		want string
	}{
		{ERR_NEEDMOREPARAMS, []interface{}{"JOIN"}, ":ircd.local 461 alice JOIN :Not enough parameters"},
		{ERR_NOSUCHNICK, []interface{}{"bob"}, ":ircd.local 401 alice bob :No such nick/channel"},
		{ERR_NOSUCHCHANNEL, []interface{}{"#ghost"}, ":ircd.local 403 alice #ghost :No such channel"},
		{ERR_NICKNAMEINUSE, []interface{}{"alice"}, ":ircd.local 433 alice alice :Nickname is already in use"},
		{ERR_BADCHANNELKEY, []interface{}{"#vault"}, ":ircd.local 475 alice #vault :Cannot join channel (+k)"},
		{ERR_CHANNELISFULL, []interface{}{"#tiny"}, ":ircd.local 471 alice #tiny :Cannot join channel (+l)"},
		{RPL_NAMREPLY, []interface{}{"#go", "@alice bob"}, ":ircd.local 353 alice = #go :@alice bob"},
		{RPL_ENDOFNAMES, []interface{}{"#go"}, ":ircd.local 366 alice #go :End of /NAMES list"},
		{RPL_ENDOFMOTD, nil, ":ircd.local 376 alice :End of /MOTD command"},
		{RPL_WHOREPLY, []interface{}{"#go", "ada", "example.com", "ircd.local", "bob", "H", "Bob B"}, ":ircd.local 352 alice #go ada example.com ircd.local bob H :0 Bob B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumeric("ircd.local", tt.code, "alice", tt.args...))
	}
}

// A trailing argument containing " :" must survive as one parameter.
func TestNumericMessageTrailingKeepsColonSpace(t *testing.T) {
	assert.Equal(t, ":ircd.local 372 alice :- hello :)",
		FormatNumeric("ircd.local", RPL_MOTD, "alice", "hello :)"))

	msg := NumericMessage("ircd.local", RPL_TOPIC, "alice", "#go", "topic :with colon")
	assert.Equal(t, []string{"alice", "#go", "topic :with colon"}, msg.Params)
	assert.Equal(t, ":ircd.local 332 alice #go :topic :with colon", msg.String())
}

func TestNumericMessageUnknownCodePanics(t *testing.T) {
	assert.Panics(t, func() {
		NumericMessage("ircd.local", 999, "alice")
	})
}
