package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mihir369/legal-arena-ai/internal/arena"
	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// DefaultPollInterval is how often wait_for re-reads the battle
const DefaultPollInterval = 50 * time.Millisecond

// Runner executes integration tests against a running battle API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // bound on each wait_for
	PollInterval      time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		PollInterval:      DefaultPollInterval,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML or JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &suite); err != nil {
			return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
		}
	default:
		if err := json.Unmarshal(content, &suite); err != nil {
			return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
		}
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite. The battle is restarted first so
// suites do not depend on each other.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	resp, err := r.do(ctx, http.MethodPost, "restart", nil)
	if err != nil || resp.status != http.StatusOK {
		if err == nil {
			err = fmt.Errorf("restart returned %d: %s", resp.status, resp.errMsg)
		}
		result.Error = fmt.Errorf("failed to reset battle: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.BattleID = resp.view.BattleID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// actionResponse is what an action returned.
type actionResponse struct {
	status int
	view   *arena.View
	errMsg string
}

// runStep executes a single test step and checks expectations
func (r *Runner) runStep(ctx context.Context, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	var (
		resp actionResponse
		err  error
	)
	switch step.Action {
	case ActionView, ActionWait:
		resp, err = r.do(ctx, http.MethodGet, "", nil)
	case "":
		return fail(errors.New("step has no action"))
	default:
		resp, err = r.do(ctx, http.MethodPost, step.Action, step.Body)
	}
	if err != nil {
		return fail(err)
	}

	if step.WaitFor != nil {
		view, err := r.waitFor(ctx, *step.WaitFor)
		if err != nil {
			return fail(err)
		}
		// expectations after a wait apply to the state that satisfied it
		resp.view = view
	}

	if err := r.checkExpectations(ctx, step.Expectations, resp); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// waitFor polls the battle until exp holds or the runner timeout expires.
func (r *Runner) waitFor(ctx context.Context, exp Expectations) (*arena.View, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		resp, err := r.do(ctx, http.MethodGet, "", nil)
		if err == nil {
			lastErr = r.checkExpectations(ctx, exp, resp)
			if lastErr == nil {
				return resp.view, nil
			}
		}

		select {
		case <-ctx.Done():
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			return nil, fmt.Errorf("timeout waiting for battle state (waited %v): %w", r.Timeout, lastErr)
		case <-ticker.C:
		}
	}
}

// do sends a request to /v1/battle[/action]. Error statuses are returned,
// not treated as failures, so steps can expect them.
func (r *Runner) do(ctx context.Context, method, action string, body map[string]any) (actionResponse, error) {
	url := r.BaseURL + "/v1/battle"
	if action != "" {
		url += "/" + action
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return actionResponse{}, fmt.Errorf("failed to marshal %s body: %w", action, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return actionResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return actionResponse{}, fmt.Errorf("failed to send %s request: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return actionResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	out := actionResponse{status: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &errResp); err != nil {
			out.errMsg = string(data)
		} else {
			out.errMsg = errResp.Error
		}
		return out, nil
	}

	var view arena.View
	if err := json.Unmarshal(data, &view); err != nil {
		return actionResponse{}, fmt.Errorf("failed to decode battle view: %w", err)
	}
	out.view = &view
	return out, nil
}

func (r *Runner) transcriptLen(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/v1/battle/transcript?format=%s", r.BaseURL, transcript.FormatJSON)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create transcript request: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transcript: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("transcript endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var doc struct {
		Entries []transcript.Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return len(doc.Entries), nil
}

// checkExpectations validates the expectations against an action response
func (r *Runner) checkExpectations(ctx context.Context, exp Expectations, resp actionResponse) error {
	wantStatus := http.StatusOK
	if exp.Status != nil {
		wantStatus = *exp.Status
	}
	if resp.status != wantStatus {
		return fmt.Errorf("expected status %d, got %d (%s)", wantStatus, resp.status, resp.errMsg)
	}
	if exp.ErrorContains != "" && !strings.Contains(strings.ToLower(resp.errMsg), strings.ToLower(exp.ErrorContains)) {
		return fmt.Errorf("expected error to contain '%s', got '%s'", exp.ErrorContains, resp.errMsg)
	}
	if resp.view == nil {
		return nil
	}

	v := resp.view
	if exp.Phase != nil && string(v.State.Phase) != *exp.Phase {
		return fmt.Errorf("expected phase %s, got %s", *exp.Phase, v.State.Phase)
	}
	if exp.ActiveParty != nil && string(v.State.ActiveParty) != *exp.ActiveParty {
		return fmt.Errorf("expected active_party %s, got %s", *exp.ActiveParty, v.State.ActiveParty)
	}
	if exp.Round != nil && v.State.Round != *exp.Round {
		return fmt.Errorf("expected round %d, got %d", *exp.Round, v.State.Round)
	}
	if exp.Stage != nil && string(v.Stage) != *exp.Stage {
		return fmt.Errorf("expected stage %s, got %s", *exp.Stage, v.Stage)
	}
	if exp.Running != nil && v.Playback.Running != *exp.Running {
		return fmt.Errorf("expected running to be %t, got %t", *exp.Running, v.Playback.Running)
	}
	if exp.Rate != nil && v.Playback.Rate != *exp.Rate {
		return fmt.Errorf("expected rate %g, got %g", *exp.Rate, v.Playback.Rate)
	}
	if exp.DocumentUploaded != nil && v.DocumentUploaded != *exp.DocumentUploaded {
		return fmt.Errorf("expected document_uploaded to be %t, got %t", *exp.DocumentUploaded, v.DocumentUploaded)
	}
	if exp.Outcome != nil && string(v.State.Outcome) != *exp.Outcome {
		return fmt.Errorf("expected outcome %s, got %s", *exp.Outcome, v.State.Outcome)
	}
	if exp.MinProgress != nil && v.State.Progress < *exp.MinProgress {
		return fmt.Errorf("expected progress >= %g, got %g", *exp.MinProgress, v.State.Progress)
	}
	if exp.Objection != nil && v.State.CurrentStatement.IsObjection != *exp.Objection {
		return fmt.Errorf("expected objection to be %t, got %t", *exp.Objection, v.State.CurrentStatement.IsObjection)
	}

	if exp.TranscriptEntries != nil {
		n, err := r.transcriptLen(ctx)
		if err != nil {
			return err
		}
		if n != *exp.TranscriptEntries {
			return fmt.Errorf("expected %d transcript entries, got %d", *exp.TranscriptEntries, n)
		}
	}

	return nil
}
