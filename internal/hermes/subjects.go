package hermes

const (
	// SubjectAnalysisRequest carries inbound run requests from other services.
	SubjectAnalysisRequest = "arbiter.analysis.request"
	SubjectRunnerStats     = "arbiter.runner.stats"

	StreamName   = "ARBITER_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectRunQueued(runID string) string    { return "arbiter.run." + runID + ".queued" }
func SubjectRunStarted(runID string) string   { return "arbiter.run." + runID + ".started" }
func SubjectRunCompleted(runID string) string { return "arbiter.run." + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return "arbiter.run." + runID + ".failed" }
func SubjectRunTimeout(runID string) string   { return "arbiter.run." + runID + ".timeout" }
func SubjectRunRetry(runID string) string     { return "arbiter.run." + runID + ".retry" }

// Suite completions are also announced per scenario so consumers can follow
// one decision without tracking run ids.
func SubjectScenarioAnalyzed(scenarioID string) string {
	return "arbiter.scenario." + scenarioID + ".analyzed"
}
