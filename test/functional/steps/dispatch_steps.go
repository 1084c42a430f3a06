package steps

import (
	"fmt"
	"net/http"

	"lumen-remote/test/functional/driver"
)

func (fc *FeatureContext) aRemotePairedWithAReachableController() error {
	fc.controller = driver.NewFakeController()
	r, err := startRemote(fc.controller)
	if err != nil {
		return fmt.Errorf("starting remote: %w", err)
	}
	fc.remote = r
	fc.apiDriver = driver.NewAPIDriver(r.URL())
	return nil
}

func (fc *FeatureContext) theControllerStartsFailing() error {
	fc.controller.SetFailing(true)
	return nil
}

func (fc *FeatureContext) theControllerRecovers() error {
	fc.controller.SetFailing(false)
	return nil
}

func (fc *FeatureContext) iPressWithValue(kind string, value int) error {
	response, err := fc.apiDriver.PostIntent(kind, value)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	fc.response = response
	return nil
}

func (fc *FeatureContext) iPress(kind string) error {
	return fc.iPressWithValue(kind, 0)
}

func (fc *FeatureContext) theControllerShouldReceiveSetToWithin(field string, value int, window string) error {
	return eventually(window, func() error {
		for _, patch := range fc.controller.Patches() {
			if patch[field] == float64(value) {
				return nil
			}
		}
		return fmt.Errorf("controller never received %s=%d, got %v", field, value, fc.controller.Patches())
	})
}

func (fc *FeatureContext) theControllerShouldReceiveAPowerToggleWithin(window string) error {
	return eventually(window, func() error {
		for _, patch := range fc.controller.Patches() {
			if patch["on"] == "t" {
				return nil
			}
		}
		return fmt.Errorf("controller never received a power toggle, got %v", fc.controller.Patches())
	})
}

func (fc *FeatureContext) theControllerShouldNeverHaveReceivedSetTo(field string, value int) error {
	for _, patch := range fc.controller.Patches() {
		if patch[field] == float64(value) {
			return fmt.Errorf("controller received superseded %s=%d", field, value)
		}
	}
	return nil
}

func (fc *FeatureContext) stats() (map[string]any, error) {
	response, err := fc.apiDriver.GetStats()
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		response.Body.Close()
		return nil, fmt.Errorf("stats answered %d", response.StatusCode)
	}
	var data map[string]any
	if err := fc.decodeBody(response.Body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (fc *FeatureContext) theStatsShouldReportDeduplicatedCommands(count int) error {
	data, err := fc.stats()
	if err != nil {
		return err
	}
	if data["commands_deduplicated"] != float64(count) {
		return fmt.Errorf("commands_deduplicated = %v, want %d", data["commands_deduplicated"], count)
	}
	return nil
}

func (fc *FeatureContext) theTransportGuardShouldBeWithin(state, window string) error {
	return eventually(window, func() error {
		data, err := fc.stats()
		if err != nil {
			return err
		}
		guard, _ := data["guard"].(map[string]any)
		if guard["state"] != state {
			return fmt.Errorf("guard state = %v, want %s", guard["state"], state)
		}
		return nil
	})
}

func (fc *FeatureContext) theCachedDeviceStateShouldHaveSetToWithin(field string, value int, window string) error {
	return eventually(window, func() error {
		response, err := fc.apiDriver.GetState()
		if err != nil {
			return err
		}
		if response.StatusCode != http.StatusOK {
			response.Body.Close()
			return fmt.Errorf("state answered %d", response.StatusCode)
		}
		var data map[string]any
		if err := fc.decodeBody(response.Body, &data); err != nil {
			return err
		}
		if data[field] != float64(value) {
			return fmt.Errorf("cached %s = %v, want %d", field, data[field], value)
		}
		return nil
	})
}

func (fc *FeatureContext) theFeedbackIndicatorShouldShowSuccess() error {
	return eventually("1s", func() error {
		data, err := fc.stats()
		if err != nil {
			return err
		}
		indicator, _ := data["indicator"].(map[string]any)
		if indicator["last_success"] != true {
			return fmt.Errorf("indicator = %v, want last_success", indicator)
		}
		return nil
	})
}
