package mqtt_test

import (
	"context"
	"time"

	"lumen-remote/internal/infra/mqtt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("MQTT Client", func() {
	var client *mqtt.SimpleClient

	ginkgo.BeforeEach(func() {
		client = mqtt.NewSimpleClient(mqtt.SimpleClientOpts{
			Broker:         "tcp://127.0.0.1:1",
			ClientID:       "lumen-remote-test",
			ConnectTimeout: 200 * time.Millisecond,
		})
	})

	ginkgo.It("should not dial the broker on construction", func() {
		gomega.Expect(client.IsConnected()).To(gomega.BeFalse())
	})

	ginkgo.It("should fail to connect to an unreachable broker without panicking", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		gomega.Expect(client.Connect(ctx)).To(gomega.HaveOccurred())
		gomega.Expect(client.IsConnected()).To(gomega.BeFalse())
	})

	ginkgo.It("should defer subscriptions while disconnected", func() {
		err := client.Subscribe("wled/remote/status", 0, func(mqtt.Client, mqtt.Message) {})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})

	ginkgo.It("should refuse to publish while disconnected", func() {
		gomega.Expect(client.Publish(context.Background(), "wled/remote/api", []byte(`{"on":"t"}`))).To(gomega.HaveOccurred())
	})

	ginkgo.It("should accept paho messages as messages", func() {
		var _ mqtt.Message = (paho.Message)(nil)
	})
})
