package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetLastResponseBody() []byte
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers resolution-specific step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &resolveSteps{tc: tc}

	ctx.Step(`^I resolve "([^"]*)" version "([^"]*)"$`, steps.resolveWithVersion)
	ctx.Step(`^I resolve "([^"]*)" without a version$`, steps.resolveWithoutVersion)
	ctx.Step(`^I resolve the batch:$`, steps.resolveBatch)

	ctx.Step(`^the resolution status should be one of "([^"]*)"$`, steps.statusShouldBeOneOf)
	ctx.Step(`^the batch should contain (\d+) results$`, steps.batchShouldContainNResults)
	ctx.Step(`^every batch result should carry a status$`, steps.everyBatchResultHasStatus)
}

type resolveSteps struct {
	tc TestContext
}

func (s *resolveSteps) resolveWithVersion(ctx context.Context, name, version string) error {
	body := map[string]interface{}{"name": name, "version": version}
	return s.tc.POST("/v1/eol/resolve", body)
}

func (s *resolveSteps) resolveWithoutVersion(ctx context.Context, name string) error {
	return s.tc.POST("/v1/eol/resolve", map[string]interface{}{"name": name})
}

func (s *resolveSteps) resolveBatch(ctx context.Context, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("batch table needs a header row and at least one query")
	}

	var queries []map[string]interface{}
	for _, row := range table.Rows[1:] {
		query := map[string]interface{}{}
		for i, cell := range row.Cells {
			if header := table.Rows[0].Cells[i].Value; cell.Value != "" {
				query[header] = cell.Value
			}
		}
		queries = append(queries, query)
	}
	return s.tc.POST("/v1/eol/resolve-batch", map[string]interface{}{"queries": queries})
}

func (s *resolveSteps) statusShouldBeOneOf(ctx context.Context, allowed string) error {
	value, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	status := fmt.Sprintf("%v", value)
	for _, candidate := range strings.Split(allowed, ",") {
		if status == strings.TrimSpace(candidate) {
			return nil
		}
	}
	return fmt.Errorf("status %q is not one of %q", status, allowed)
}

func (s *resolveSteps) batchResults() ([]map[string]interface{}, error) {
	var parsed struct {
		Results []map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &parsed); err != nil {
		return nil, fmt.Errorf("last response is not a batch response: %w", err)
	}
	return parsed.Results, nil
}

func (s *resolveSteps) batchShouldContainNResults(ctx context.Context, expected int) error {
	results, err := s.batchResults()
	if err != nil {
		return err
	}
	if len(results) != expected {
		return fmt.Errorf("expected %d results, got %d", expected, len(results))
	}
	return nil
}

func (s *resolveSteps) everyBatchResultHasStatus(ctx context.Context) error {
	results, err := s.batchResults()
	if err != nil {
		return err
	}
	for i, result := range results {
		status, ok := result["status"].(string)
		if !ok || status == "" {
			return fmt.Errorf("result %d carries no status: %v", i, result)
		}
	}
	return nil
}
