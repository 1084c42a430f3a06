package driver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// FakeController stands in for the lighting controller's JSON API. It
// applies absolute writes to its state and records every request body.
type FakeController struct {
	server  *httptest.Server
	mu      sync.Mutex
	failing bool
	patches []map[string]any
	state   map[string]any
}

func NewFakeController() *FakeController {
	c := &FakeController{
		state: map[string]any{"on": false, "bri": float64(128), "ps": float64(-1), "pl": float64(-1)},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /json/state", c.handleState)
	c.server = httptest.NewServer(mux)
	return c
}

func (c *FakeController) URL() string {
	return c.server.URL
}

func (c *FakeController) Close() {
	c.server.Close()
}

func (c *FakeController) SetFailing(failing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = failing
}

func (c *FakeController) Patches() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.patches))
	copy(out, c.patches)
	return out
}

func (c *FakeController) handleState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	c.patches = append(c.patches, patch)
	c.apply(patch)

	w.Header().Set("Content-Type", "application/json")
	if patch["v"] == true {
		json.NewEncoder(w).Encode(c.state)
		return
	}
	w.Write([]byte(`{"success":true}`))
}

func (c *FakeController) apply(patch map[string]any) {
	if on, ok := patch["on"]; ok {
		if on == "t" {
			c.state["on"] = !(c.state["on"] == true)
		} else {
			c.state["on"] = on
		}
	}
	for _, key := range []string{"bri", "ps"} {
		if v, ok := patch[key].(float64); ok {
			c.state[key] = v
		}
	}
}
