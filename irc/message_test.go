package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		prefix   string
		command  string
		params   []string
		trailing bool
	}{
		{
			name:    "bare command",
			line:    "QUIT",
			command: "QUIT",
			params:  []string{},
		},
		{
			name:    "command with params",
			line:    "JOIN #go #chat key1",
			command: "JOIN",
			params:  []string{"#go", "#chat", "key1"},
		},
		{
			name:     "trailing param",
			line:     "PRIVMSG #go :hello there world",
			command:  "PRIVMSG",
			params:   []string{"#go", "hello there world"},
			trailing: true,
		},
		{
			name:     "trailing without spaces",
			line:     "PRIVMSG alice :hi",
			command:  "PRIVMSG",
			params:   []string{"alice", "hi"},
			trailing: true,
		},
		{
			name:     "trailing with embedded colons",
			line:     "PRIVMSG #go :see: http://example.com",
			command:  "PRIVMSG",
			params:   []string{"#go", "see: http://example.com"},
			trailing: true,
		},
		{
			name:     "prefixed line",
			line:     ":alice!ada@example.com PRIVMSG #go :hey",
			prefix:   "alice!ada@example.com",
			command:  "PRIVMSG",
			params:   []string{"#go", "hey"},
			trailing: true,
		},
		{
			name:    "lowercase command is canonicalized",
			line:    "privmsg #go hi",
			command: "PRIVMSG",
			params:  []string{"#go", "hi"},
		},
		{
			name:     "empty trailing",
			line:     "TOPIC #go :",
			command:  "TOPIC",
			params:   []string{"#go", ""},
			trailing: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, msg.Prefix)
			assert.Equal(t, tt.command, msg.Command)
			assert.Equal(t, tt.params, msg.Params)
			assert.Equal(t, tt.trailing, msg.Trailing)
		})
	}
}

func TestParseMessageEmpty(t *testing.T) {
	msg, err := ParseMessage("")
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestMessageString(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "bare command",
			msg:  Message{Command: "QUIT"},
			want: "QUIT",
		},
		{
			name: "params only",
			msg:  Message{Command: "JOIN", Params: []string{"#go", "key1"}},
			want: "JOIN #go key1",
		},
		{
			name: "trailing flag forces colon",
			msg:  Message{Command: "PRIVMSG", Params: []string{"alice", "hi"}, Trailing: true},
			want: "PRIVMSG alice :hi",
		},
		{
			name: "space in last param forces colon",
			msg:  Message{Command: "PRIVMSG", Params: []string{"#go", "hello world"}},
			want: "PRIVMSG #go :hello world",
		},
		{
			name: "empty last param forces colon",
			msg:  Message{Command: "TOPIC", Params: []string{"#go", ""}},
			want: "TOPIC #go :",
		},
		{
			name: "prefix",
			msg:  Message{Prefix: "ircd.local", Command: "001", Params: []string{"alice", "Welcome"}},
			want: ":ircd.local 001 alice Welcome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.String())
		})
	}
}

// Serializing a parsed message and parsing it again must preserve it.
func TestMessageRoundTrip(t *testing.T) {
	lines := []string{
		"QUIT",
		"NICK alice",
		"JOIN #go,#chat key1",
		"PRIVMSG #go :hello there",
		"PRIVMSG alice :hi",
		":alice!ada@example.com PART #go :gone fishing",
		"TOPIC #go :",
	}

	for _, line := range lines {
		first, err := ParseMessage(line)
		require.NoError(t, err)
		second, err := ParseMessage(first.String())
		require.NoError(t, err)
		assert.Equal(t, first, second, "round trip of %q", line)
	}
}

func TestIsChannelName(t *testing.T) {
	assert.True(t, IsChannelName("#go"))
	assert.True(t, IsChannelName("&local"))
	assert.False(t, IsChannelName("alice"))
	assert.False(t, IsChannelName(""))
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "#golang", FoldName("#GoLang"))
	assert.Equal(t, FoldName("Alice"), FoldName("ALICE"))
}

func TestHostmaskHelpers(t *testing.T) {
	assert.Equal(t, "ada@example.com", FormatHostmask("ada", "example.com"))
	assert.Equal(t, "alice!ada@example.com", FormatIdentifier("alice", "ada", "example.com"))

	nick, user, host := ParseHostmask("alice!ada@example.com")
	assert.Equal(t, "alice", nick)
	assert.Equal(t, "ada", user)
	assert.Equal(t, "example.com", host)

	nick, user, host = ParseHostmask("alice")
	assert.Equal(t, "alice", nick)
	assert.Empty(t, user)
	assert.Empty(t, host)
}
