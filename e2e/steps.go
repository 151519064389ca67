package e2e

import (
	"github.com/cucumber/godog"

	"sunset/e2e/steps/admin"
	"sunset/e2e/steps/common"
	"sunset/e2e/steps/resolve"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register resolution-specific steps
	resolve.RegisterSteps(ctx, tc)

	// Register cache administration steps
	admin.RegisterSteps(ctx, tc)
}
