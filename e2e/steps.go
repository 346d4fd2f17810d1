//go:build e2e

package e2e

import (
	"github.com/cucumber/godog"

	"screener/e2e/steps/common"
	"screener/e2e/steps/ratelimit"
	"screener/e2e/steps/screening"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (server lifecycle, status and header assertions)
	common.RegisterSteps(ctx, tc)

	screening.RegisterSteps(ctx, tc)

	ratelimit.RegisterSteps(ctx, tc)
}
