package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the daemon configuration.
type Config struct {
	Server struct {
		Name    string `yaml:"name" toml:"name" json:"name" env:"IRCD_SERVER_NAME"`
		Network string `yaml:"network" toml:"network" json:"network" env:"IRCD_NETWORK"`
		Version string `yaml:"version" toml:"version" json:"version" env:"IRCD_VERSION"`
		Host    string `yaml:"host" toml:"host" json:"host" env:"IRCD_HOST"`
		Port    int    `yaml:"port" toml:"port" json:"port" env:"IRCD_PORT"`
	} `yaml:"server" toml:"server" json:"server"`

	MOTD struct {
		File  string   `yaml:"file" toml:"file" json:"file" env:"IRCD_MOTD_FILE"`
		Lines []string `yaml:"lines" toml:"lines" json:"lines"`
	} `yaml:"motd" toml:"motd" json:"motd"`

	Bots struct {
		Enabled      bool     `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCD_BOTS_ENABLED"`
		Host         string   `yaml:"host" toml:"host" json:"host" env:"IRCD_BOTS_HOST"`
		Port         int      `yaml:"port" toml:"port" json:"port" env:"IRCD_BOTS_PORT"`
		BearerTokens []string `yaml:"bearer_tokens" toml:"bearer_tokens" json:"bearer_tokens" env:"IRCD_BOTS_TOKENS"`
	} `yaml:"bots" toml:"bots" json:"bots"`

	Debug bool `yaml:"debug" toml:"debug" json:"debug" env:"IRCD_DEBUG"`
}

// Default returns a configuration with defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Name = "ircd.local"
	cfg.Server.Network = "LocalNet"
	cfg.Server.Version = "ircd-1.0"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 6667
	cfg.Bots.Host = "127.0.0.1"
	cfg.Bots.Port = 8080
	return cfg
}

// Load loads configuration from a YAML, TOML or JSON file, chosen by
// extension, then applies IRCD_* environment variable overrides. An empty
// source yields the defaults with env overrides.
func Load(source string) (*Config, error) {
	cfg := Default()

	if source != "" {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		switch {
		case strings.HasSuffix(source, ".toml"):
			err = toml.Unmarshal(data, cfg)
		case strings.HasSuffix(source, ".json"):
			err = json.Unmarshal(data, cfg)
		default:
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %v", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// ListenAddress returns the IRC listener address.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BotAPIListenAddress returns the bot API listener address.
func (c *Config) BotAPIListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Bots.Host, c.Bots.Port)
}

// SplitListenAddress splits a host:port bind address. The host may be
// empty, meaning all interfaces.
func SplitListenAddress(addr string) (host string, port int, err error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %v", addr, err)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %v", portStr, err)
	}
	return host, port, nil
}

// MOTDLines returns the configured MOTD, reading the MOTD file when one is
// set. Inline lines take precedence over the file.
func (c *Config) MOTDLines() ([]string, error) {
	if len(c.MOTD.Lines) > 0 || c.MOTD.File == "" {
		return c.MOTD.Lines, nil
	}

	data, err := os.ReadFile(c.MOTD.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read MOTD file: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return lines, nil
}

// applyEnvOverrides walks the config struct and overrides any field with an
// env tag whose variable is set.
func applyEnvOverrides(cfg *Config) {
	applyEnvOverridesValue(reflect.ValueOf(cfg).Elem())
}

func applyEnvOverridesValue(v reflect.Value) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if field.PkgPath != "" {
			continue
		}

		if envTag := field.Tag.Get("env"); envTag != "" {
			if envValue, exists := os.LookupEnv(envTag); exists {
				setFieldFromEnv(fieldValue, envValue)
			}
		} else if field.Type.Kind() == reflect.Struct {
			applyEnvOverridesValue(fieldValue)
		}
	}
}

func setFieldFromEnv(field reflect.Value, envValue string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			field.SetInt(v)
		}
	case reflect.Bool:
		s := strings.ToLower(envValue)
		field.SetBool(s == "true" || s == "1" || s == "yes" || s == "y")
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(envValue, ",")
			slice := reflect.MakeSlice(field.Type(), len(values), len(values))
			for i, v := range values {
				slice.Index(i).SetString(strings.TrimSpace(v))
			}
			field.Set(slice)
		}
	}
}
