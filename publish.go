package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"i4.energy/across/meterbridge/meter"
)

// Publisher pushes decoded readings to an MQTT broker. Publishing follows
// the same fire-and-forget policy as the uplink: failures are logged and
// the reading is dropped.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the broker and returns a ready Publisher
func NewPublisher(broker, clientID, topic string, logger *slog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("Lost connection to MQTT broker", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}

	logger.Info("Connected to MQTT broker", "broker", broker, "topic", topic)

	return &Publisher{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// Publish sends a reading to the configured topic without blocking the
// caller. Delivery failures are logged once the token resolves.
func (p *Publisher) Publish(reading meter.Reading) {
	payload, err := json.Marshal(reading)
	if err != nil {
		p.logger.Error("Failed to encode reading", "error", err)
		return
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Warn("Failed to publish reading", "error", token.Error())
		}
	}()
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
