package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `toml:"bind_address"`
	// MeterPort is the path to the energy meter's serial port (e.g. "/dev/ttyUSB0")
	MeterPort string `toml:"meter_port"`
	// MeterBaud is the baud rate of the meter link (e.g. 2400)
	MeterBaud int `toml:"meter_baud"`
	// ModemPort is the path to the cellular modem's serial port (e.g. "/dev/ttyUSB1")
	ModemPort string `toml:"modem_port"`
	// ModemBaud is the baud rate of the modem link (e.g. 38400)
	ModemBaud int `toml:"modem_baud"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `toml:"log_level"`
	// APN is the access point name for the packet network
	APN string `toml:"apn"`
	// BaseURL is the collector endpoint readings are uploaded to
	BaseURL string `toml:"base_url"`
	// CommandDelayMs is the pause between bring-up AT commands, in milliseconds
	CommandDelayMs int `toml:"command_delay_ms"`
	// HTTPDelayMs is the pause between HTTP session steps, in milliseconds
	HTTPDelayMs int `toml:"http_delay_ms"`
	// PollIntervalMs is the meter polling period, in milliseconds
	PollIntervalMs int `toml:"poll_interval_ms"`
	// MQTTBroker enables local MQTT publishing when set (e.g. "tcp://localhost:1883")
	MQTTBroker string `toml:"mqtt_broker"`
	// MQTTClientID identifies this bridge to the MQTT broker
	MQTTClientID string `toml:"mqtt_client_id"`
	// MQTTTopic is the topic decoded readings are published to
	MQTTTopic string `toml:"mqtt_topic"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.MeterPort = "/dev/ttyUSB0"
		c.MeterBaud = 2400
		c.ModemPort = "/dev/ttyUSB1"
		c.ModemBaud = 38400
		c.LogLevel = "info"
		c.APN = "internet"
		c.CommandDelayMs = 2000
		c.HTTPDelayMs = 1500
		c.PollIntervalMs = 1000
		c.MQTTClientID = "meterbridge-1"
		c.MQTTTopic = "meter/readings"
		return nil
	}
}

// WithFile loads configuration from a TOML file. An empty path is a
// no-op so the file stays optional.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		if _, err := toml.DecodeFile(path, c); err != nil {
			return fmt.Errorf("decode config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if port := os.Getenv("METER_PORT"); port != "" {
			c.MeterPort = port
		}

		if baud := os.Getenv("METER_BAUD"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.MeterBaud = b
			}
		}

		if port := os.Getenv("MODEM_PORT"); port != "" {
			c.ModemPort = port
		}

		if baud := os.Getenv("MODEM_BAUD"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.ModemBaud = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if apn := os.Getenv("APN"); apn != "" {
			c.APN = apn
		}

		if url := os.Getenv("BASE_URL"); url != "" {
			c.BaseURL = url
		}

		if ms := os.Getenv("COMMAND_DELAY_MS"); ms != "" {
			if v, err := strconv.Atoi(ms); err == nil {
				c.CommandDelayMs = v
			}
		}

		if ms := os.Getenv("HTTP_DELAY_MS"); ms != "" {
			if v, err := strconv.Atoi(ms); err == nil {
				c.HTTPDelayMs = v
			}
		}

		if ms := os.Getenv("POLL_INTERVAL_MS"); ms != "" {
			if v, err := strconv.Atoi(ms); err == nil {
				c.PollIntervalMs = v
			}
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}

		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}

		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "meter-port":
				c.MeterPort = f.Value.String()
			case "meter-baud":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.MeterBaud = b
				}
			case "modem-port":
				c.ModemPort = f.Value.String()
			case "modem-baud":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.ModemBaud = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "apn":
				c.APN = f.Value.String()
			case "base-url":
				c.BaseURL = f.Value.String()
			case "command-delay-ms":
				if v, err := strconv.Atoi(f.Value.String()); err == nil {
					c.CommandDelayMs = v
				}
			case "http-delay-ms":
				if v, err := strconv.Atoi(f.Value.String()); err == nil {
					c.HTTPDelayMs = v
				}
			case "poll-interval-ms":
				if v, err := strconv.Atoi(f.Value.String()); err == nil {
					c.PollIntervalMs = v
				}
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "mqtt-client-id":
				c.MQTTClientID = f.Value.String()
			case "mqtt-topic":
				c.MQTTTopic = f.Value.String()
			}

		})
		return nil
	}

}
