package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	AuthenticateAdmin() error
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetLastResponseBody() []byte
	ResponseContains(field string) bool
}

// RegisterSteps registers cache administration step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^I am authenticated as an administrator$`, steps.authenticateAsAdmin)
	ctx.Step(`^I purge the cache for "([^"]*)" version "([^"]*)"$`, steps.purgeCacheEntry)
	ctx.Step(`^I purge the entire cache$`, steps.purgeEntireCache)
	ctx.Step(`^I purge the entire cache without credentials$`, steps.purgeWithoutCredentials)
	ctx.Step(`^I request cache statistics$`, steps.requestCacheStats)
	ctx.Step(`^I fetch the recent audit trail$`, steps.fetchAuditTrail)

	ctx.Step(`^the cache statistics should include hit and miss counts$`, steps.statsShouldIncludeCounts)
	ctx.Step(`^the audit trail should record a "([^"]*)" action$`, steps.auditTrailShouldRecord)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) authenticateAsAdmin(ctx context.Context) error {
	return s.tc.AuthenticateAdmin()
}

func (s *adminSteps) purgeCacheEntry(ctx context.Context, name, version string) error {
	body := map[string]interface{}{"name": name, "version": version}
	return s.tc.POST("/v1/admin/cache/purge", body)
}

func (s *adminSteps) purgeEntireCache(ctx context.Context) error {
	return s.tc.POST("/v1/admin/cache/purge-all", nil)
}

// purgeWithoutCredentials relies on the scenario never authenticating, so
// the request goes out bare.
func (s *adminSteps) purgeWithoutCredentials(ctx context.Context) error {
	return s.tc.POST("/v1/admin/cache/purge-all", nil)
}

func (s *adminSteps) requestCacheStats(ctx context.Context) error {
	return s.tc.GET("/v1/admin/cache/stats", nil)
}

func (s *adminSteps) fetchAuditTrail(ctx context.Context) error {
	return s.tc.GET("/v1/admin/audit/recent", nil)
}

func (s *adminSteps) statsShouldIncludeCounts(ctx context.Context) error {
	for _, field := range []string{"hit_count", "miss_count"} {
		if !s.tc.ResponseContains(field) {
			return fmt.Errorf("stats response has no field %q (body: %s)",
				field, s.tc.GetLastResponseBody())
		}
	}
	return nil
}

func (s *adminSteps) auditTrailShouldRecord(ctx context.Context, action string) error {
	var parsed struct {
		Events []struct {
			Action string `json:"action"`
		} `json:"events"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &parsed); err != nil {
		return fmt.Errorf("last response is not an audit trail: %w", err)
	}
	for _, event := range parsed.Events {
		if event.Action == action {
			return nil
		}
	}
	return fmt.Errorf("no %q event in trail of %d events", action, len(parsed.Events))
}
