package server

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ircd/irc"
	"ircd/irc/config"
)

// BotAPI is the REST surface for bots: message injection and read-only
// views of the registry, plus the Prometheus metrics endpoint.
type BotAPI struct {
	server *Server
	echo   *echo.Echo
	tokens []string
}

// apiValidator plugs go-playground/validator into Echo's binding pipeline.
type apiValidator struct {
	validate *validator.Validate
}

func (v *apiValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// BotMessage is the request body for message injection.
type BotMessage struct {
	From   string `json:"from" validate:"required,max=32"`
	Target string `json:"target" validate:"required"`
	Text   string `json:"text" validate:"required"`
}

// NewBotAPI creates the bot API for a server.
func NewBotAPI(server *Server, cfg *config.Config) (*BotAPI, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &apiValidator{validate: validator.New()}

	api := &BotAPI{
		server: server,
		echo:   e,
		tokens: cfg.Bots.BearerTokens,
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(MetricsRegistry, promhttp.HandlerOpts{})))

	authed := e.Group("/api", api.requireBearerToken)
	authed.POST("/send", api.handleSend)
	authed.GET("/who", api.handleWho)
	authed.GET("/list", api.handleList)
	authed.GET("/stats", api.handleStats)

	return api, nil
}

// Start serves the bot API.
func (b *BotAPI) Start() error {
	return b.echo.Start(b.server.config.BotAPIListenAddress())
}

// Stop shuts the bot API down.
func (b *BotAPI) Stop() error {
	log.Println("Stopping bot API")
	return b.echo.Close()
}

// requireBearerToken authenticates requests against the configured tokens.
func (b *BotAPI) requireBearerToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}
		for _, valid := range b.tokens {
			if subtle.ConstantTimeCompare([]byte(token), []byte(valid)) == 1 {
				return next(c)
			}
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
}

// handleSend injects a message into a channel or delivers it to a nick,
// sourced from a virtual bot identity.
func (b *BotAPI) handleSend(c echo.Context) error {
	var message BotMessage
	if err := c.Bind(&message); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Bad request")
	}
	if err := c.Validate(&message); err != nil {
		return err
	}

	source := irc.FormatIdentifier(message.From, "bot", b.server.config.Server.Name)
	relay := &irc.Message{
		Prefix:   source,
		Command:  "PRIVMSG",
		Params:   []string{message.Target, message.Text},
		Trailing: true,
	}

	if irc.IsChannelName(message.Target) {
		channel, err := b.server.Channel(message.Target)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Channel not found")
		}
		channel.Broadcast(relay.String(), "")
	} else {
		target, err := b.server.Client(message.Target)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "Target not found")
		}
		target.sendRaw(relay.String())
	}
	messagesRouted.Inc()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// handleWho returns a channel's member nicks.
func (b *BotAPI) handleWho(c echo.Context) error {
	name := c.QueryParam("channel")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel is required")
	}

	channel, err := b.server.Channel(name)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Channel not found")
	}

	members := make([]string, 0)
	for _, member := range channel.Members() {
		members = append(members, member.Nick())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"channel": channel.Name(),
		"members": members,
	})
}

// handleList returns every channel with member count and topic.
func (b *BotAPI) handleList(c echo.Context) error {
	type channelInfo struct {
		Name    string `json:"name"`
		Members int    `json:"members"`
		Topic   string `json:"topic,omitempty"`
	}

	channels := make([]channelInfo, 0)
	for _, channel := range b.server.Channels() {
		topic, _ := channel.Topic()
		channels = append(channels, channelInfo{
			Name:    channel.Name(),
			Members: channel.MemberCount(),
			Topic:   topic,
		})
	}
	return c.JSON(http.StatusOK, channels)
}

// handleStats returns server counters.
func (b *BotAPI) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"uptime_seconds": int(b.server.Uptime().Seconds()),
		"clients":        b.server.ClientCount(),
		"channels":       b.server.ChannelCount(),
	})
}
