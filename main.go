package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"i4.energy/across/meterbridge/bridge"
	"i4.energy/across/meterbridge/link"
	"i4.energy/across/meterbridge/meter"
)

func main() {
	flag.String("meter-port", "/dev/ttyUSB0", "Serial port to connect to the energy meter")
	flag.Int("meter-baud", 2400, "Baud rate for the meter link")
	flag.String("modem-port", "/dev/ttyUSB1", "Serial port to connect to the cellular modem")
	flag.Int("modem-baud", 38400, "Baud rate for the modem link")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("apn", "internet", "Access point name for the packet network")
	flag.String("base-url", "", "Collector endpoint readings are uploaded to")
	flag.Int("command-delay-ms", 2000, "Pause between bring-up AT commands, in milliseconds")
	flag.Int("http-delay-ms", 1500, "Pause between HTTP session steps, in milliseconds")
	flag.Int("poll-interval-ms", 1000, "Meter polling period, in milliseconds")
	flag.String("mqtt-broker", "", "MQTT broker URL (empty disables MQTT publishing)")
	flag.String("mqtt-client-id", "meterbridge-1", "MQTT client identifier")
	flag.String("mqtt-topic", "meter/readings", "MQTT topic readings are published to")
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if config.BaseURL == "" {
		slog.Error("A collector base URL is required (set --base-url or BASE_URL)")
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	meterLink, err := link.SerialDialer{
		PortName: config.MeterPort,
		BaudRate: config.MeterBaud,
	}.Dial()
	if err != nil {
		logger.Error("Failed to open meter port", "port", config.MeterPort, "error", err)
		os.Exit(1)
	}

	modemLink, err := link.SerialDialer{
		PortName: config.ModemPort,
		BaudRate: config.ModemBaud,
	}.Dial()
	if err != nil {
		logger.Error("Failed to open modem port", "port", config.ModemPort, "error", err)
		os.Exit(1)
	}

	server := NewServer(logger.With("component", "server"))

	var publisher *Publisher
	if config.MQTTBroker != "" {
		publisher, err = NewPublisher(config.MQTTBroker, config.MQTTClientID, config.MQTTTopic, logger.With("component", "mqtt"))
		if err != nil {
			logger.Error("Failed to connect to MQTT broker", "error", err)
			os.Exit(1)
		}
	}

	b := bridge.New(meterLink, modemLink, bridge.Options{
		APN:          config.APN,
		BaseURL:      config.BaseURL,
		CommandDelay: time.Duration(config.CommandDelayMs) * time.Millisecond,
		HTTPDelay:    time.Duration(config.HTTPDelayMs) * time.Millisecond,
		PollInterval: time.Duration(config.PollIntervalMs) * time.Millisecond,
		OnReading: func(reading meter.Reading) {
			server.Broadcast(reading)
			if publisher != nil {
				publisher.Publish(reading)
			}
		},
	}, logger.With("component", "bridge"))
	server.Bridge = b

	logger.Info("Starting meter bridge",
		"meter_port", config.MeterPort,
		"modem_port", config.ModemPort,
		"base_url", config.BaseURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Bridge stopped", "error", err)
			os.Exit(1)
		}
	}()

	httpServer := &http.Server{
		Addr:    config.BindAddress,
		Handler: server,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	cancel()

	logger.Info("Closing serial links")
	if err := meterLink.Close(); err != nil {
		logger.Error("Failed to close meter link", "error", err)
	}
	if err := modemLink.Close(); err != nil {
		logger.Error("Failed to close modem link", "error", err)
	}

	if publisher != nil {
		publisher.Close()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}
