package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lumen-remote/internal/infra/mqtt"
	"lumen-remote/internal/infra/node"

	"github.com/spf13/pflag"
)

// topics a WLED-style controller publishes under its base topic.
var topics = []string{
	"status",
	"v",
	"g",
	"c",
}

func main() {
	broker := pflag.String("broker", "tcp://localhost:1883", "MQTT broker url")
	topicBase := pflag.String("topic", "wled/remote", "controller base topic")
	username := pflag.String("username", "", "broker username")
	password := pflag.String("password", "", "broker password")
	pflag.Parse()

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{AddSource: true, Level: slog.LevelDebug})),
	)
	slog.Info("monitor starting", slog.String("broker", *broker), slog.String("topic", *topicBase))

	signalChannel := make(chan os.Signal, 2)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
	simpleClientOpts := mqtt.SimpleClientOpts{
		Broker:   *broker,
		ClientID: node.GetNodeInfo().ClientID() + "-monitor",
		Username: *username,
		Password: *password, //pragma: allowlist secret
	}
	mqttClient := mqtt.NewSimpleClient(simpleClientOpts)
	var (
		qos            byte = 0
		messageHandler      = func(_ mqtt.Client, msg mqtt.Message) {
			slog.Info("message received",
				slog.String("topic", msg.Topic()),
				slog.Uint64("message_id", uint64(msg.MessageID())),
				slog.String("payload", string(msg.Payload())),
			)
		}
	)

	for _, suffix := range topics {
		topic := fmt.Sprintf("%s/%s", *topicBase, suffix)
		slog.Debug("final topic", slog.String("value", topic))
		if err := mqttClient.Subscribe(topic, qos, messageHandler); err != nil {
			slog.Error("subscribing", slog.String("topic", topic), slog.Any("error", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := mqttClient.Connect(ctx)
	cancel()
	if err != nil {
		slog.Error("connecting to broker", slog.Any("error", err))
		os.Exit(1)
	}

	<-signalChannel
	mqttClient.Disconnect()
	slog.Info("good bye!!!")
	os.Exit(0)
}
