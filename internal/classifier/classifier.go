// Package classifier decides whether a triaged report describes a bug, a
// feature request, or neither. The Heuristic classifier works from the user's
// feedback wording and the correlation outcome; richer classifiers, such as
// an LLM-backed one, can be plugged in behind the same interface.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/sekai-app/bug-analysis-agent/internal/common"
	"github.com/sekai-app/bug-analysis-agent/internal/correlate"
)

// Classifier produces an analysis verdict for a correlated report.
type Classifier interface {
	Classify(ctx context.Context, report *common.UserReport, result *correlate.Result) (*common.AnalysisResult, error)
}

// featureWords in the feedback suggest a feature request rather than a bug.
var featureWords = []string{"make", "add", "could", "can you", "feature"}

// Heuristic classifies with simple language and error-count rules. It never
// fails, which makes it the fallback when a richer classifier is down.
type Heuristic struct{}

// NewHeuristic creates the rule-based classifier.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Classify applies the rules: feature-request wording wins, then any detected
// frontend error means bug, otherwise the report is unclassifiable.
func (h *Heuristic) Classify(ctx context.Context, report *common.UserReport, result *correlate.Result) (*common.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feedback := ""
	if report != nil {
		feedback = strings.ToLower(report.Feedback)
	}

	frontendErrors := 0
	withBackend := 0
	kindCounts := make(map[string]int)
	if result != nil {
		frontendErrors = result.Events
		for _, r := range result.Records {
			if r.Backend != nil {
				withBackend++
			}
			kindCounts[r.Event.Kind]++
		}
	}

	analysis := &common.AnalysisResult{Confidence: 0.4}

	switch {
	case containsAny(feedback, featureWords):
		analysis.IssueType = common.IssueFeatureRequest
		analysis.Summary = "Appears to be a feature request based on user language patterns"
	case frontendErrors > 0:
		analysis.IssueType = common.IssueBug
		analysis.Summary = fmt.Sprintf("Likely bug - detected %d error(s) in frontend logs", frontendErrors)
	default:
		analysis.IssueType = common.IssueNeither
		analysis.Summary = "Unable to classify - no clear errors or feature requests detected"
	}

	if frontendErrors > 0 {
		analysis.Confidence = 0.6
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("Investigate %d error(s) found in logs", frontendErrors))
		if kind := mostCommonKind(kindCounts); kind != "" {
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("Focus on %s errors (most common)", kind))
		}
	}
	if withBackend > 0 {
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("Review %d backend correlation(s) for root cause", withBackend))
	}
	if analysis.IssueType == common.IssueFeatureRequest {
		analysis.Recommendations = append(analysis.Recommendations,
			"Consider user feedback for product roadmap planning")
	}
	analysis.Recommendations = append(analysis.Recommendations,
		"Manual review recommended for detailed analysis")

	return analysis, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// mostCommonKind picks the highest-count kind, breaking ties alphabetically
// so the verdict is stable.
func mostCommonKind(counts map[string]int) string {
	best := ""
	bestCount := 0
	for kind, n := range counts {
		if n > bestCount || (n == bestCount && kind < best) {
			best = kind
			bestCount = n
		}
	}
	return best
}
