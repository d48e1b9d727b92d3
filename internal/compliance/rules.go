package compliance

import (
	"fmt"
	"time"

	assessmentmodels "consentd/internal/assessment/models"
	breachmodels "consentd/internal/breach/models"
	catalogmodels "consentd/internal/catalog/models"
	consentmodels "consentd/internal/consent/models"
)

const (
	maxScore = 100

	// RecentBreachWindow is how far back a breach counts against the score.
	RecentBreachWindow = 30 * 24 * time.Hour

	minActivities = 3
)

// snapshot is the state a report is computed from.
type snapshot struct {
	now         time.Time
	consents    []*consentmodels.Consent
	activities  []*catalogmodels.Activity
	assessments []*assessmentmodels.Assessment
	breaches    []*breachmodels.Breach
	records     int
}

// rule yields zero or more findings. Every finding deducts from the score;
// a rule with at least one finding contributes exactly one recommendation,
// so score and prose cannot disagree.
type rule struct {
	name      string
	evaluate  func(snap *snapshot) []Finding
	recommend func(hits []Finding) string
}

func fixed(text string) func([]Finding) string {
	return func([]Finding) string { return text }
}

var rules = []rule{
	{
		name: "no_consents",
		evaluate: func(snap *snapshot) []Finding {
			if len(snap.consents) > 0 {
				return nil
			}
			return []Finding{{Deduction: 30, Detail: "no data subject consents are registered"}}
		},
		recommend: fixed("Implement consent collection: no data subject consents are registered"),
	},
	{
		name: "few_activities",
		evaluate: func(snap *snapshot) []Finding {
			if len(snap.activities) >= minActivities {
				return nil
			}
			return []Finding{{
				Deduction: 20,
				Detail:    fmt.Sprintf("only %d of at least %d activities are catalogued", len(snap.activities), minActivities),
			}}
		},
		recommend: func(hits []Finding) string {
			return "Document all processing activities: " + hits[0].Detail
		},
	},
	{
		name: "no_assessments",
		evaluate: func(snap *snapshot) []Finding {
			if len(snap.assessments) > 0 {
				return nil
			}
			return []Finding{{Deduction: 25, Detail: "no privacy impact assessments are on file"}}
		},
		recommend: fixed("Conduct privacy impact assessments for high-risk activities: none are on file"),
	},
	{
		name: "activity_without_assessment",
		evaluate: func(snap *snapshot) []Finding {
			assessed := make(map[string]bool, len(snap.assessments))
			for _, a := range snap.assessments {
				assessed[a.ActivityID.String()] = true
			}
			var out []Finding
			for _, act := range snap.activities {
				if assessed[act.ID.String()] {
					continue
				}
				out = append(out, Finding{
					Subject:   act.ID.String(),
					Deduction: 10,
					Detail:    fmt.Sprintf("activity %q has no privacy impact assessment", act.Name),
				})
			}
			return out
		},
		recommend: func(hits []Finding) string {
			return fmt.Sprintf("Assess %d %s that %s no privacy impact assessment",
				len(hits), plural(len(hits), "processing activity", "processing activities"), plural(len(hits), "has", "have"))
		},
	},
	{
		name: "recent_breach",
		evaluate: func(snap *snapshot) []Finding {
			cutoff := snap.now.Add(-RecentBreachWindow)
			var out []Finding
			for _, b := range snap.breaches {
				if b.DiscoveryDate.Before(cutoff) {
					continue
				}
				out = append(out, Finding{
					Subject:   b.ID.String(),
					Deduction: 15,
					Detail:    fmt.Sprintf("%s breach discovered %s", b.Severity, b.DiscoveryDate.Format(time.DateOnly)),
				})
			}
			return out
		},
		recommend: func(hits []Finding) string {
			return fmt.Sprintf("Review security measures: %d %s discovered in the last 30 days",
				len(hits), plural(len(hits), "breach", "breaches"))
		},
	},
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// evaluate runs every rule and returns the clamped score, one
// recommendation per rule that fired and the findings, all in rule order.
func evaluate(snap *snapshot) (int, []string, []Finding) {
	score := maxScore
	recommendations := []string{}
	findings := []Finding{}
	for _, r := range rules {
		hits := r.evaluate(snap)
		if len(hits) == 0 {
			continue
		}
		for _, f := range hits {
			f.Rule = r.name
			score -= f.Deduction
			findings = append(findings, f)
		}
		recommendations = append(recommendations, r.recommend(hits))
	}
	return min(max(score, 0), maxScore), recommendations, findings
}
