//go:build e2e

package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetLastResponseStatus() int
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) screening requests for "([^"]*)"$`, steps.sendN)
	ctx.Step(`^the first (\d+) responses should be (\d+)$`, steps.firstNShouldBe)
	ctx.Step(`^the remaining responses should be (\d+)$`, steps.remainingShouldBe)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) sendN(ctx context.Context, n int, symbol string) error {
	s.statuses = s.statuses[:0]
	body := map[string]any{
		"symbols": []string{symbol},
		"filters": map[string]any{"bds": map[string]any{"enabled": true}},
	}
	for range n {
		if err := s.tc.POST("/screen", body); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) firstNShouldBe(ctx context.Context, n, status int) error {
	if n > len(s.statuses) {
		return fmt.Errorf("only %d responses recorded", len(s.statuses))
	}
	for i, got := range s.statuses[:n] {
		if got != status {
			return fmt.Errorf("response %d: expected %d, got %d", i+1, status, got)
		}
	}
	return nil
}

func (s *ratelimitSteps) remainingShouldBe(ctx context.Context, status int) error {
	for i, got := range s.statuses {
		if got != 200 && got != status {
			return fmt.Errorf("response %d: expected 200 or %d, got %d", i+1, status, got)
		}
	}
	if len(s.statuses) == 0 {
		return fmt.Errorf("no responses recorded")
	}
	if last := s.statuses[len(s.statuses)-1]; last != status {
		return fmt.Errorf("last response: expected %d, got %d", status, last)
	}
	return nil
}
