package steps

import (
	"context"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"lumen-remote/cmd/config"
	"lumen-remote/cmd/remote/wire"
	"lumen-remote/internal/infra/async"
	"lumen-remote/test/functional/driver"

	"github.com/spf13/viper"
)

// remote is one in-process remote wired exactly as cmd/remote wires it,
// pointed at a fake controller over plain HTTP.
type remote struct {
	app    *wire.App
	broker *async.LocalBroker
	server *httptest.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func startRemote(controller *driver.FakeController) (*remote, error) {
	deviceURL, err := url.Parse(controller.URL())
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.Set("device.transport", config.TransportHTTP)
	v.Set("device.http_url", controller.URL())
	v.Set("device.link_address", deviceURL.Host)
	v.Set("device.reconnect_interval", time.Hour)
	v.Set("sync.schedule", "@every 1h")
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	broker := async.NewLocalBroker()
	app, err := wire.InitializeApp(cfg, broker)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &remote{
		app:    app,
		broker: broker,
		server: httptest.NewServer(app.Server.Handler()),
		cancel: cancel,
	}
	for _, worker := range app.Workers {
		r.wg.Add(1)
		go worker.Run(ctx, r.wg.Done)
	}
	return r, nil
}

func (r *remote) URL() string {
	return r.server.URL
}

func (r *remote) stop() {
	r.server.Close()
	r.cancel()
	for _, worker := range r.app.Workers {
		worker.Shutdown()
	}
	r.wg.Wait()
	r.app.Cache.Close()
	r.broker.Stop()
}
