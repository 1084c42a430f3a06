package steps

import (
	"fmt"
)

func (fc *FeatureContext) iCallTheHealthzEndpoint() error {
	response, err := fc.apiDriver.GetHealthz()
	if err != nil {
		return err
	}
	fc.response = response
	return nil
}

func (fc *FeatureContext) theResponseShouldContainStatusInformation() error {
	var data map[string]any
	if err := fc.decodeBody(fc.response.Body, &data); err != nil {
		return err
	}

	for _, key := range []string{"status", "VERSION", "COMMIT_HASH"} {
		if _, ok := data[key]; !ok {
			return fmt.Errorf("%s should be present in %v", key, data)
		}
	}
	if data["status"] != "success" {
		return fmt.Errorf("status = %v, want success", data["status"])
	}

	fc.responseData = data
	return nil
}
