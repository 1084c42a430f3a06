package driver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type APIDriver struct {
	baseURL string
	client  *http.Client
}

func NewAPIDriver(baseURL string) *APIDriver {
	return &APIDriver{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (d *APIDriver) PostIntent(kind string, value int) (*http.Response, error) {
	reqBody, err := json.Marshal(map[string]any{
		"kind":  kind,
		"value": value,
	})
	if err != nil {
		panic(err)
	}
	return d.client.Post(fmt.Sprintf("%s/v1/intents", d.baseURL), "application/json", bytes.NewBuffer(reqBody))
}

func (d *APIDriver) GetStats() (*http.Response, error) {
	return d.client.Get(fmt.Sprintf("%s/v1/stats", d.baseURL))
}

func (d *APIDriver) GetState() (*http.Response, error) {
	return d.client.Get(fmt.Sprintf("%s/v1/state", d.baseURL))
}

func (d *APIDriver) GetHealthz() (*http.Response, error) {
	return d.client.Get(fmt.Sprintf("%s/healthz", d.baseURL))
}
