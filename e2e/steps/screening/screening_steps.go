//go:build e2e

package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"screener/internal/screening/models"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers screening step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &screeningSteps{tc: tc}

	ctx.Step(`^I screen "([^"]*)"$`, steps.screen)
	ctx.Step(`^I screen "([^"]*)" with look-through$`, steps.screenWithLookThrough)
	ctx.Step(`^I screen "([^"]*)" with only the "([^"]*)" policy$`, steps.screenWithOnlyPolicy)
	ctx.Step(`^I send the screening request:$`, steps.sendRaw)
	ctx.Step(`^I fetch the stored result for "([^"]*)"$`, steps.fetchStoredResult)

	ctx.Step(`^the results should be in order "([^"]*)"$`, steps.resultsInOrder)
	ctx.Step(`^the result for "([^"]*)" should be "([^"]*)"$`, steps.resultVerdictShouldBe)
	ctx.Step(`^the result for "([^"]*)" should have confidence "([^"]*)"$`, steps.resultConfidenceShouldBe)
	ctx.Step(`^the result for "([^"]*)" should cite "([^"]*)"$`, steps.resultShouldCite)
	ctx.Step(`^there should be a "([^"]*)" warning for "([^"]*)"$`, steps.warningShouldExist)
	ctx.Step(`^the fetched result should be "([^"]*)"$`, steps.fetchedVerdictShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
}

type screeningSteps struct {
	tc   TestContext
	last *models.ScreenResponse
}

func splitSymbols(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (s *screeningSteps) post(req models.ScreenRequest) error {
	s.last = nil
	if err := s.tc.POST("/screen", req); err != nil {
		return err
	}
	return s.decode()
}

func (s *screeningSteps) decode() error {
	if s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	var resp models.ScreenResponse
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &resp); err != nil {
		return fmt.Errorf("decode screen response: %w", err)
	}
	s.last = &resp
	return nil
}

func (s *screeningSteps) screen(ctx context.Context, symbols string) error {
	return s.post(models.ScreenRequest{Symbols: splitSymbols(symbols), Filters: models.AllFilters()})
}

func (s *screeningSteps) screenWithLookThrough(ctx context.Context, symbols string) error {
	return s.post(models.ScreenRequest{
		Symbols: splitSymbols(symbols),
		Filters: models.AllFilters(),
		Options: models.Options{LookThrough: true, MaxDepth: 2},
	})
}

func (s *screeningSteps) screenWithOnlyPolicy(ctx context.Context, symbols, policy string) error {
	p, err := models.ParsePolicy(policy)
	if err != nil {
		return err
	}
	var filters models.Filters
	switch p {
	case models.PolicyBDS:
		filters.BDS.Enabled = true
	case models.PolicyDefense:
		filters.Defense = true
	case models.PolicySurveillance:
		filters.Surveillance = true
	case models.PolicyShariah:
		filters.Shariah = true
	}
	return s.post(models.ScreenRequest{Symbols: splitSymbols(symbols), Filters: filters})
}

func (s *screeningSteps) sendRaw(ctx context.Context, body *godog.DocString) error {
	s.last = nil
	if err := s.tc.POST("/screen", []byte(body.Content)); err != nil {
		return err
	}
	return s.decode()
}

func (s *screeningSteps) fetchStoredResult(ctx context.Context, symbol string) error {
	r, err := s.result(symbol)
	if err != nil {
		return err
	}
	return s.tc.GET("/screen/results/"+r.AuditID, nil)
}

func (s *screeningSteps) result(symbol string) (*models.ScreeningResult, error) {
	if s.last == nil {
		return nil, fmt.Errorf("no screening response (status %d): %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	for i := range s.last.Results {
		if s.last.Results[i].Symbol == symbol {
			return &s.last.Results[i], nil
		}
	}
	return nil, fmt.Errorf("no result for %s", symbol)
}

func (s *screeningSteps) resultsInOrder(ctx context.Context, list string) error {
	if s.last == nil {
		return fmt.Errorf("no screening response")
	}
	want := splitSymbols(list)
	got := make([]string, 0, len(s.last.Results))
	for _, r := range s.last.Results {
		got = append(got, r.Symbol)
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return fmt.Errorf("expected order %v, got %v", want, got)
	}
	return nil
}

func (s *screeningSteps) resultVerdictShouldBe(ctx context.Context, symbol, verdict string) error {
	r, err := s.result(symbol)
	if err != nil {
		return err
	}
	if string(r.FinalVerdict) != verdict {
		return fmt.Errorf("expected %s verdict %s, got %s (reasons %v)", symbol, verdict, r.FinalVerdict, r.Reasons)
	}
	return nil
}

func (s *screeningSteps) resultConfidenceShouldBe(ctx context.Context, symbol, confidence string) error {
	r, err := s.result(symbol)
	if err != nil {
		return err
	}
	if string(r.Confidence) != confidence {
		return fmt.Errorf("expected %s confidence %s, got %s", symbol, confidence, r.Confidence)
	}
	return nil
}

func (s *screeningSteps) resultShouldCite(ctx context.Context, symbol, url string) error {
	r, err := s.result(symbol)
	if err != nil {
		return err
	}
	for _, src := range r.Sources {
		if src.URL == url {
			return nil
		}
	}
	return fmt.Errorf("expected %s to cite %s, got %v", symbol, url, r.Sources)
}

func (s *screeningSteps) warningShouldExist(ctx context.Context, code, symbol string) error {
	if s.last == nil {
		return fmt.Errorf("no screening response")
	}
	for _, w := range s.last.Warnings {
		if string(w.Code) == code && w.Symbol == symbol {
			return nil
		}
	}
	return fmt.Errorf("no %s warning for %s in %v", code, symbol, s.last.Warnings)
}

func (s *screeningSteps) fetchedVerdictShouldBe(ctx context.Context, verdict string) error {
	var r models.ScreeningResult
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &r); err != nil {
		return fmt.Errorf("decode stored result: %w", err)
	}
	if string(r.FinalVerdict) != verdict {
		return fmt.Errorf("expected stored verdict %s, got %s", verdict, r.FinalVerdict)
	}
	return nil
}

func (s *screeningSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("decode error body: %w", err)
	}
	if body.Error != code {
		return fmt.Errorf("expected error code %q, got %q", code, body.Error)
	}
	return nil
}
