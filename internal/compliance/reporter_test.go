package compliance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	assessmentmodels "consentd/internal/assessment/models"
	breachmodels "consentd/internal/breach/models"
	catalogmodels "consentd/internal/catalog/models"
	consentmodels "consentd/internal/consent/models"
	id "consentd/pkg/domain"
	dErrors "consentd/pkg/domain-errors"
)

type fakeSources struct {
	consents    []*consentmodels.Consent
	activities  []*catalogmodels.Activity
	assessments []*assessmentmodels.Assessment
	breaches    []*breachmodels.Breach
	records     int
	err         error
}

type (
	consentList    struct{ f *fakeSources }
	activityList   struct{ f *fakeSources }
	assessmentList struct{ f *fakeSources }
	breachList     struct{ f *fakeSources }
	ledgerCount    struct{ f *fakeSources }
)

func (s consentList) List(context.Context) ([]*consentmodels.Consent, error) {
	return s.f.consents, nil
}

func (s activityList) List(context.Context) ([]*catalogmodels.Activity, error) {
	return s.f.activities, nil
}

func (s assessmentList) List(context.Context) ([]*assessmentmodels.Assessment, error) {
	return s.f.assessments, s.f.err
}

func (s breachList) List(context.Context) ([]*breachmodels.Breach, error) {
	return s.f.breaches, nil
}

func (s ledgerCount) Count(context.Context) (int, error) {
	return s.f.records, nil
}

func (f *fakeSources) sources() Sources {
	return Sources{
		Consents:    consentList{f},
		Activities:  activityList{f},
		Assessments: assessmentList{f},
		Breaches:    breachList{f},
		Ledger:      ledgerCount{f},
	}
}

type ReporterSuite struct {
	suite.Suite
	now      time.Time
	fake     *fakeSources
	reporter *Reporter
}

func TestReporterSuite(t *testing.T) {
	suite.Run(t, new(ReporterSuite))
}

func (s *ReporterSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.fake = &fakeSources{}
	s.reporter = NewReporter(s.fake.sources(), nil, WithClock(func() time.Time { return s.now }))
}

func (s *ReporterSuite) addActivities(n int) {
	for i := range n {
		s.fake.activities = append(s.fake.activities, &catalogmodels.Activity{
			ID:   id.ActivityID(fmt.Sprintf("activity_%d", i)),
			Name: fmt.Sprintf("Activity %d", i),
		})
	}
}

func (s *ReporterSuite) assess(activityID string) {
	s.fake.assessments = append(s.fake.assessments, &assessmentmodels.Assessment{
		ID:         id.AssessmentID("pia_" + activityID),
		ActivityID: id.ActivityID(activityID),
		Status:     assessmentmodels.StatusPending,
	})
}

func (s *ReporterSuite) addConsent(subjectID string, grants consentmodels.Grants) {
	s.fake.consents = append(s.fake.consents, &consentmodels.Consent{
		ID:        id.ConsentID("consent_" + subjectID),
		SubjectID: subjectID,
		Grants:    grants,
	})
}

func (s *ReporterSuite) breachDiscovered(ago time.Duration) {
	discovered := s.now.Add(-ago)
	s.fake.breaches = append(s.fake.breaches, &breachmodels.Breach{
		ID:            id.BreachID(fmt.Sprintf("breach_%d", len(s.fake.breaches))),
		BreachDate:    discovered.Add(-time.Hour),
		DiscoveryDate: discovered,
		Severity:      breachmodels.SeverityHigh,
	})
}

func (s *ReporterSuite) TestEmptyStoresScore25() {
	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)

	s.Equal(25, report.Score)
	s.Equal(s.now, report.GeneratedAt)
	s.Len(report.Recommendations, 3)
	s.Len(report.Findings, 3)
	s.Equal([]string{"no_consents", "few_activities", "no_assessments"},
		[]string{report.Findings[0].Rule, report.Findings[1].Rule, report.Findings[2].Rule})
	s.Zero(report.Summary.Consents)
	s.Len(report.Summary.ActiveGrants, len(consentmodels.AllGrants))
}

func (s *ReporterSuite) TestFullyCompliant() {
	s.addConsent("u1", consentmodels.Grants{consentmodels.GrantDataProcessing: true})
	s.addActivities(3)
	for _, a := range s.fake.activities {
		s.assess(a.ID.String())
	}
	s.fake.records = 7

	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)
	s.Equal(100, report.Score)
	s.Empty(report.Recommendations)
	s.Equal(7, report.Summary.ProcessingRecords)
	s.Equal(3, report.Summary.PendingAssessments)
}

func (s *ReporterSuite) TestDeductsPerUnassessedActivity() {
	s.addConsent("u1", consentmodels.Grants{consentmodels.GrantDataProcessing: true})
	s.addActivities(3)
	s.assess("activity_1")

	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)
	s.Equal(80, report.Score)
	var subjects []string
	for _, f := range report.Findings {
		s.Equal("activity_without_assessment", f.Rule)
		subjects = append(subjects, f.Subject)
	}
	s.Equal([]string{"activity_0", "activity_2"}, subjects)
}

func (s *ReporterSuite) TestOnlyRecentBreachesCount() {
	s.addConsent("u1", consentmodels.Grants{consentmodels.GrantDataProcessing: true})
	s.addActivities(3)
	for _, a := range s.fake.activities {
		s.assess(a.ID.String())
	}
	s.breachDiscovered(10 * 24 * time.Hour)
	s.breachDiscovered(40 * 24 * time.Hour)

	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)
	s.Equal(85, report.Score)
	s.Equal(2, report.Summary.Breaches)
	s.Equal(1, report.Summary.RecentBreaches)
}

func (s *ReporterSuite) TestOneRecommendationPerDeductionCategory() {
	s.addConsent("u1", consentmodels.Grants{consentmodels.GrantDataProcessing: true})
	s.addActivities(4)
	s.assess("activity_0")
	s.breachDiscovered(2 * 24 * time.Hour)
	s.breachDiscovered(5 * 24 * time.Hour)

	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)

	s.Equal(100-3*10-2*15, report.Score)
	s.Len(report.Findings, 5, "findings stay per entity")
	s.Equal([]string{
		"Assess 3 processing activities that have no privacy impact assessment",
		"Review security measures: 2 breaches discovered in the last 30 days",
	}, report.Recommendations)
}

func (s *ReporterSuite) TestSingleHitRecommendationIsSingular() {
	s.addConsent("u1", consentmodels.Grants{consentmodels.GrantDataProcessing: true})
	s.addActivities(3)
	s.assess("activity_0")
	s.assess("activity_1")

	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{"Assess 1 processing activity that has no privacy impact assessment"}, report.Recommendations)
	s.Require().Len(report.Findings, 1)
	s.Equal(`activity "Activity 2" has no privacy impact assessment`, report.Findings[0].Detail)
}

func (s *ReporterSuite) TestScoreClampedAtZero() {
	s.addActivities(1)
	for range 10 {
		s.breachDiscovered(time.Hour)
	}

	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)
	s.Equal(0, report.Score)
}

// TestScoreStaysInRange sweeps a grid of states and checks the score bound
// and that every deduction has a recommendation.
func (s *ReporterSuite) TestScoreStaysInRange() {
	for consents := range 2 {
		for activities := range 5 {
			for assessed := 0; assessed <= activities; assessed++ {
				for breaches := range 4 {
					s.fake = &fakeSources{}
					s.reporter = NewReporter(s.fake.sources(), nil, WithClock(func() time.Time { return s.now }))
					for i := range consents {
						s.addConsent(fmt.Sprintf("u%d", i), consentmodels.Grants{consentmodels.GrantAnalytics: true})
					}
					s.addActivities(activities)
					for i := range assessed {
						s.assess(fmt.Sprintf("activity_%d", i))
					}
					for range breaches {
						s.breachDiscovered(24 * time.Hour)
					}

					report, err := s.reporter.Generate(context.Background())
					s.Require().NoError(err)
					s.GreaterOrEqual(report.Score, 0)
					s.LessOrEqual(report.Score, 100)
					rulesFired := map[string]bool{}
					for _, f := range report.Findings {
						rulesFired[f.Rule] = true
					}
					s.Len(report.Recommendations, len(rulesFired))

					deducted := 0
					for _, f := range report.Findings {
						deducted += f.Deduction
					}
					s.Equal(max(100-deducted, 0), report.Score)
				}
			}
		}
	}
}

func (s *ReporterSuite) TestActiveGrantCounts() {
	s.addConsent("u1", consentmodels.Grants{consentmodels.GrantDataProcessing: true, consentmodels.GrantAnalytics: true})
	s.addConsent("u2", consentmodels.Grants{consentmodels.GrantDataProcessing: true, consentmodels.GrantAnalytics: false})

	report, err := s.reporter.Generate(context.Background())
	s.Require().NoError(err)
	s.Equal(2, report.Summary.ActiveGrants[consentmodels.GrantDataProcessing])
	s.Equal(1, report.Summary.ActiveGrants[consentmodels.GrantAnalytics])
	s.Equal(0, report.Summary.ActiveGrants[consentmodels.GrantMarketing])
}

func (s *ReporterSuite) TestSourceFailureIsInternal() {
	s.fake.err = errors.New("connection lost")

	_, err := s.reporter.Generate(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ReporterSuite) TestNilSourcePanics() {
	s.Panics(func() { NewReporter(Sources{}, nil) })
}
