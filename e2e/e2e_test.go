package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"

	"consentd/e2e/steps/consent"
)

// TestFeatures runs the feature files against a consentd instance at
// CONSENTD_E2E_URL.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("CONSENTD_E2E_URL")
	if baseURL == "" {
		t.Skip("CONSENTD_E2E_URL not set")
	}

	tc := NewTestContext(baseURL)
	suite := godog.TestSuite{
		Name: "consentd",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			consent.RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature tests failed")
	}
}
