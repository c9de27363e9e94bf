package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ircd/irc/config"
)

func newTestServerWithBots(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Bots.Enabled = true
	cfg.Bots.BearerTokens = []string{"testtoken"}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	require.NotNil(t, srv.botAPI)
	return srv
}

func botRequest(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.botAPI.echo.ServeHTTP(rec, req)
	return rec
}

func TestBotAPIRequiresToken(t *testing.T) {
	srv := newTestServerWithBots(t)

	rec := botRequest(srv, http.MethodGet, "/api/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = botRequest(srv, http.MethodGet, "/api/stats", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = botRequest(srv, http.MethodGet, "/api/stats", "testtoken", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotAPIStats(t *testing.T) {
	srv := newTestServerWithBots(t)
	alice, _ := newRegisteredClient(t, srv, "alice")
	require.NoError(t, srv.JoinClientToChannel(alice, "#go", ""))

	rec := botRequest(srv, http.MethodGet, "/api/stats", "testtoken", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["clients"])
	assert.EqualValues(t, 1, stats["channels"])
	assert.Contains(t, stats, "uptime_seconds")
}

func TestBotAPISendToChannel(t *testing.T) {
	srv := newTestServerWithBots(t)
	alice, aliceRec := newRegisteredClient(t, srv, "alice")
	require.NoError(t, srv.JoinClientToChannel(alice, "#go", ""))
	aliceRec.Reset()

	rec := botRequest(srv, http.MethodPost, "/api/send", "testtoken",
		`{"from": "newsbot", "target": "#go", "text": "breaking news"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, aliceRec.Contains(":newsbot!bot@ircd.local PRIVMSG #go :breaking news"))
}

func TestBotAPISendToNick(t *testing.T) {
	srv := newTestServerWithBots(t)
	_, aliceRec := newRegisteredClient(t, srv, "alice")

	rec := botRequest(srv, http.MethodPost, "/api/send", "testtoken",
		`{"from": "newsbot", "target": "alice", "text": "psst"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, aliceRec.Contains(":newsbot!bot@ircd.local PRIVMSG alice :psst"))
}

func TestBotAPISendUnknownTarget(t *testing.T) {
	srv := newTestServerWithBots(t)

	rec := botRequest(srv, http.MethodPost, "/api/send", "testtoken",
		`{"from": "newsbot", "target": "#ghost", "text": "anyone?"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = botRequest(srv, http.MethodPost, "/api/send", "testtoken",
		`{"from": "newsbot", "target": "ghost", "text": "anyone?"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBotAPISendValidation(t *testing.T) {
	srv := newTestServerWithBots(t)

	rec := botRequest(srv, http.MethodPost, "/api/send", "testtoken",
		`{"target": "#go"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBotAPIWho(t *testing.T) {
	srv := newTestServerWithBots(t)
	alice, _ := newRegisteredClient(t, srv, "alice")
	bob, _ := newRegisteredClient(t, srv, "bob")
	require.NoError(t, srv.JoinClientToChannel(alice, "#go", ""))
	require.NoError(t, srv.JoinClientToChannel(bob, "#go", ""))

	rec := botRequest(srv, http.MethodGet, "/api/who?channel=%23go", "testtoken", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var who struct {
		Channel string   `json:"channel"`
		Members []string `json:"members"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &who))
	assert.Equal(t, "#go", who.Channel)
	assert.Equal(t, []string{"alice", "bob"}, who.Members)

	rec = botRequest(srv, http.MethodGet, "/api/who?channel=%23ghost", "testtoken", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = botRequest(srv, http.MethodGet, "/api/who", "testtoken", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBotAPIList(t *testing.T) {
	srv := newTestServerWithBots(t)
	alice, _ := newRegisteredClient(t, srv, "alice")
	require.NoError(t, srv.JoinClientToChannel(alice, "#go", ""))
	channel, err := srv.Channel("#go")
	require.NoError(t, err)
	channel.SetTopic(alice, "gophers only")

	rec := botRequest(srv, http.MethodGet, "/api/list", "testtoken", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var channels []struct {
		Name    string `json:"name"`
		Members int    `json:"members"`
		Topic   string `json:"topic"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &channels))
	require.Len(t, channels, 1)
	assert.Equal(t, "#go", channels[0].Name)
	assert.Equal(t, 1, channels[0].Members)
	assert.Equal(t, "gophers only", channels[0].Topic)
}

func TestBotAPIMetricsEndpoint(t *testing.T) {
	srv := newTestServerWithBots(t)

	// The metrics endpoint is unauthenticated
	rec := botRequest(srv, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ircd_")
}
