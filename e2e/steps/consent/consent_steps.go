package consent

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario context the consent steps need.
type TestContext interface {
	Do(ctx context.Context, method, path string, body any) error
	DoRaw(ctx context.Context, method, path, body string) error
	Status() int
	Field(path string) (any, error)
}

// RegisterSteps registers consent-related step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consentSteps{tc: tc}

	ctx.Step(`^default consents "([^"]*)" are configured$`, steps.configureDefaults)
	ctx.Step(`^I set consents "([^"]*)"$`, steps.setConsents)
	ctx.Step(`^I send a consent update with body '([^']*)'$`, steps.sendRawUpdate)
	ctx.Step(`^I get the consents$`, steps.getConsents)
	ctx.Step(`^I get the shared state$`, steps.getSharedState)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response should have an event id$`, steps.shouldHaveEventID)
	ctx.Step(`^the error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^consent "([^"]*)" should be "([^"]*)"$`, steps.consentShouldBe)
	ctx.Step(`^consent "([^"]*)" should not be set$`, steps.consentShouldNotBeSet)
	ctx.Step(`^the consents should carry a timestamp$`, steps.shouldCarryTimestamp)
	ctx.Step(`^the shared state should be for "([^"]*)"$`, steps.sharedStateExtension)
}

type consentSteps struct {
	tc TestContext
}

// parseCategories turns "collect=y,adID=n" into an XDM categories tree.
func parseCategories(pairs string) (map[string]any, error) {
	categories := map[string]any{}
	for _, pair := range strings.Split(pairs, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad consent %q, want name=value", pair)
		}
		categories[name] = map[string]any{"val": value}
	}
	return categories, nil
}

func (s *consentSteps) configureDefaults(ctx context.Context, pairs string) error {
	categories, err := parseCategories(pairs)
	if err != nil {
		return err
	}
	body := map[string]any{
		"consent.default": map[string]any{"consents": categories},
	}
	if err := s.tc.Do(ctx, http.MethodPut, "/configuration", body); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, http.StatusAccepted)
}

func (s *consentSteps) setConsents(ctx context.Context, pairs string) error {
	categories, err := parseCategories(pairs)
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, http.MethodPost, "/consent", map[string]any{"consents": categories})
}

func (s *consentSteps) sendRawUpdate(ctx context.Context, body string) error {
	return s.tc.DoRaw(ctx, http.MethodPost, "/consent", body)
}

func (s *consentSteps) getConsents(ctx context.Context) error {
	return s.tc.Do(ctx, http.MethodGet, "/consent", nil)
}

func (s *consentSteps) getSharedState(ctx context.Context) error {
	return s.tc.Do(ctx, http.MethodGet, "/consent/shared-state", nil)
}

func (s *consentSteps) statusShouldBe(_ context.Context, status int) error {
	if got := s.tc.Status(); got != status {
		return fmt.Errorf("expected status %d, got %d", status, got)
	}
	return nil
}

func (s *consentSteps) shouldHaveEventID(_ context.Context) error {
	id, err := s.tc.Field("event_id")
	if err != nil {
		return err
	}
	if str, _ := id.(string); str == "" {
		return fmt.Errorf("event_id is empty")
	}
	return nil
}

func (s *consentSteps) errorShouldBe(_ context.Context, code string) error {
	got, err := s.tc.Field("error")
	if err != nil {
		return err
	}
	if got != code {
		return fmt.Errorf("expected error %q, got %v", code, got)
	}
	return nil
}

func (s *consentSteps) consentShouldBe(_ context.Context, category, value string) error {
	got, err := s.tc.Field("consents." + category + ".val")
	if err != nil {
		return err
	}
	if got != value {
		return fmt.Errorf("expected %s=%s, got %v", category, value, got)
	}
	return nil
}

func (s *consentSteps) consentShouldNotBeSet(_ context.Context, category string) error {
	if _, err := s.tc.Field("consents." + category); err == nil {
		return fmt.Errorf("expected %s to be unset", category)
	}
	return nil
}

func (s *consentSteps) shouldCarryTimestamp(_ context.Context) error {
	ts, err := s.tc.Field("consents.metadata.time")
	if err != nil {
		return err
	}
	if str, _ := ts.(string); str == "" {
		return fmt.Errorf("metadata.time is empty")
	}
	return nil
}

func (s *consentSteps) sharedStateExtension(_ context.Context, name string) error {
	got, err := s.tc.Field("extension")
	if err != nil {
		return err
	}
	if got != name {
		return fmt.Errorf("expected shared state for %q, got %v", name, got)
	}
	return nil
}
