package steps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"lumen-remote/test/functional/driver"

	"github.com/cucumber/godog"
)

type FeatureContext struct {
	controller   *driver.FakeController
	remote       *remote
	apiDriver    *driver.APIDriver
	response     *http.Response
	responseData map[string]any
}

func NewFeatureContext() *FeatureContext {
	return &FeatureContext{}
}

func (fc *FeatureContext) RegisterSteps(ctx *godog.ScenarioContext) {
	// Generic steps
	ctx.Step(`^wait for (.*)$`, fc.waitForDuration)
	ctx.Then(`^the response status code should be (\d+)$`, fc.theResponseStatusCodeShouldBe)

	// Remote steps
	ctx.Given(`^a remote paired with a reachable controller$`, fc.aRemotePairedWithAReachableController)
	ctx.Given(`^the controller starts failing$`, fc.theControllerStartsFailing)
	ctx.When(`^the controller recovers$`, fc.theControllerRecovers)
	ctx.When(`^I press "([^"]*)" with value (-?\d+)$`, fc.iPressWithValue)
	ctx.When(`^I press "([^"]*)"$`, fc.iPress)
	ctx.Then(`^the controller should receive "([^"]*)" set to (\d+) within (.*)$`, fc.theControllerShouldReceiveSetToWithin)
	ctx.Then(`^the controller should receive a power toggle within (.*)$`, fc.theControllerShouldReceiveAPowerToggleWithin)
	ctx.Then(`^the controller should never have received "([^"]*)" set to (\d+)$`, fc.theControllerShouldNeverHaveReceivedSetTo)
	ctx.Then(`^the stats should report (\d+) deduplicated commands?$`, fc.theStatsShouldReportDeduplicatedCommands)
	ctx.Then(`^the transport guard should be "([^"]*)" within (.*)$`, fc.theTransportGuardShouldBeWithin)
	ctx.Then(`^the cached device state should have "([^"]*)" set to (\d+) within (.*)$`, fc.theCachedDeviceStateShouldHaveSetToWithin)
	ctx.Then(`^the feedback indicator should show success$`, fc.theFeedbackIndicatorShouldShowSuccess)

	// Health steps
	ctx.When(`^I call the healthz endpoint$`, fc.iCallTheHealthzEndpoint)
	ctx.Then(`^the response should contain status information$`, fc.theResponseShouldContainStatusInformation)

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		fc.reset()
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if fc.remote != nil {
			fc.remote.stop()
		}
		if fc.controller != nil {
			fc.controller.Close()
		}
		return ctx, err
	})
}

func (fc *FeatureContext) reset() {
	fc.controller = nil
	fc.remote = nil
	fc.apiDriver = nil
	fc.response = nil
	fc.responseData = nil
}

func (fc *FeatureContext) decodeBody(body io.ReadCloser, target any) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(target)
}
