package steps

import (
	"fmt"
	"strings"
	"time"
)

func (fc *FeatureContext) waitForDuration(duration string) error {
	d, err := time.ParseDuration(strings.TrimSpace(duration))
	if err != nil {
		return err
	}
	time.Sleep(d)
	return nil
}

func (fc *FeatureContext) theResponseStatusCodeShouldBe(code int) error {
	if fc.response == nil {
		return fmt.Errorf("no response recorded")
	}
	if fc.response.StatusCode != code {
		return fmt.Errorf("unexpected status code: got %d, want %d", fc.response.StatusCode, code)
	}
	return nil
}

// eventually polls check until it passes or the window, given as a
// duration string, runs out. The last failure is returned.
func eventually(window string, check func() error) error {
	d, err := time.ParseDuration(strings.TrimSpace(window))
	if err != nil {
		return err
	}
	deadline := time.Now().Add(d)
	for {
		err := check()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(20 * time.Millisecond)
	}
}
