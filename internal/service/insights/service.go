// Package insights composes the individual risk signals into
// severity-tagged findings for the reporting surface. Rules run in a
// fixed order and findings keep that order; nothing is re-sorted by
// severity.
package insights

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/speakup-platform/speakup-backend/internal/service/signals"
)

// Severity levels for findings.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

const (
	escalationRuleThreshold  = 25.0
	recurrenceRuleDays       = 14.0
	lowEvidenceRuleThreshold = 60.0
)

// Finding is one emitted insight.
type Finding struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Report is the composed insights document. Degraded lists the signal
// sections that failed and were skipped, so the UI never presents a
// partial report as authoritative.
type Report struct {
	Findings    []Finding `json:"findings"`
	Degraded    []string  `json:"degraded,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SignalSource is the slice of the signal service the rules consume.
type SignalSource interface {
	EscalationIndex(ctx context.Context) (*signals.EscalationIndex, error)
	DepartmentRisk(ctx context.Context, limit int) ([]signals.DepartmentRiskEntry, error)
	RepeatOffenders(ctx context.Context, limit int) ([]signals.RepeatOffender, error)
	TargetingAlerts(ctx context.Context, limit int) ([]signals.TargetingAlert, error)
	RiskAcceleration(ctx context.Context, limit int) ([]signals.RiskAccelerationEntry, error)
	LowEvidenceRatio(ctx context.Context) (*signals.LowEvidenceStats, error)
}

// Service evaluates the insight rules.
type Service interface {
	Generate(ctx context.Context, limit int) (*Report, error)
}

type service struct {
	source SignalSource
	now    func() time.Time
}

// NewService creates the insights rule engine.
func NewService(source SignalSource) Service {
	return &service{source: source, now: time.Now}
}

// inputs holds the settled sub-query results. A nil pointer or slice
// means that section failed and its rules are skipped.
type inputs struct {
	escalation   *signals.EscalationIndex
	departments  []signals.DepartmentRiskEntry
	offenders    []signals.RepeatOffender
	targeting    []signals.TargetingAlert
	acceleration []signals.RiskAccelerationEntry
	evidence     *signals.LowEvidenceStats
	degraded     []string
}

// Generate gathers all signals concurrently, waits for every
// sub-query to settle, then runs the rules in order. A failed
// sub-query only degrades its own rules.
func (s *service) Generate(ctx context.Context, limit int) (*Report, error) {
	in := s.gather(ctx, limit)

	findings := make([]Finding, 0, 6)

	if in.escalation != nil && in.escalation.PercentageChange > escalationRuleThreshold {
		findings = append(findings, Finding{
			Severity: SeverityHigh,
			Message: fmt.Sprintf("Complaint volume rose %.1f%% over the previous 30 days (%d vs %d)",
				in.escalation.PercentageChange, in.escalation.CurrentCount, in.escalation.PreviousCount),
		})
	}

	for _, dept := range in.departments {
		if dept.EscalationFlag {
			findings = append(findings, Finding{
				Severity: SeverityHigh,
				Message: fmt.Sprintf("Department %q risk score escalated %.1f%% since the previous snapshot",
					dept.Department, dept.RiskChangePercentage),
			})
			break
		}
	}

	// A zero interval is a genuine same-day repeat, not an absence of
	// data: the >=2 guard already excludes single-complaint profiles.
	for _, off := range in.offenders {
		if off.TotalComplaints >= 2 && off.RecurrenceIntervalDays <= recurrenceRuleDays {
			findings = append(findings, Finding{
				Severity: SeverityMedium,
				Message: fmt.Sprintf("Repeat pattern: accused entity %s draws a complaint every %.1f days on average",
					off.AccusedKey, off.RecurrenceIntervalDays),
			})
			break
		}
	}

	for _, alert := range in.targeting {
		if alert.AlertLevel == signals.AlertLevelHigh {
			findings = append(findings, Finding{
				Severity: SeverityHigh,
				Message: fmt.Sprintf("Possible targeting of %s: %d complaints, no guilty verdicts, mean reporter credibility %.0f",
					alert.AccusedKey, alert.ComplaintCount, alert.AvgCredibility),
			})
			break
		}
	}

	if len(in.acceleration) > 0 {
		findings = append(findings, Finding{
			Severity: SeverityMedium,
			Message: fmt.Sprintf("%d accused entities are accumulating complaints inside the 14-day window",
				len(in.acceleration)),
		})
	}

	if in.evidence != nil && in.evidence.OverallRatio >= lowEvidenceRuleThreshold {
		findings = append(findings, Finding{
			Severity: SeverityMedium,
			Message: fmt.Sprintf("%.0f%% of all complaints carry no evidence file",
				in.evidence.OverallRatio),
		})
	}

	if len(findings) == 0 {
		findings = append(findings, Finding{
			Severity: SeverityLow,
			Message:  "Nothing notable in the current reporting window",
		})
	}

	return &Report{
		Findings:    findings,
		Degraded:    in.degraded,
		GeneratedAt: s.now(),
	}, nil
}

func (s *service) gather(ctx context.Context, limit int) *inputs {
	in := &inputs{}

	var mu sync.Mutex
	var wg sync.WaitGroup
	fail := func(section string) {
		mu.Lock()
		in.degraded = append(in.degraded, section)
		mu.Unlock()
	}

	wg.Add(6)
	go func() {
		defer wg.Done()
		v, err := s.source.EscalationIndex(ctx)
		if err != nil {
			fail("escalation_index")
			return
		}
		in.escalation = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.source.DepartmentRisk(ctx, limit)
		if err != nil {
			fail("department_risk")
			return
		}
		in.departments = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.source.RepeatOffenders(ctx, limit)
		if err != nil {
			fail("repeat_offenders")
			return
		}
		in.offenders = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.source.TargetingAlerts(ctx, limit)
		if err != nil {
			fail("targeting_alerts")
			return
		}
		in.targeting = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.source.RiskAcceleration(ctx, limit)
		if err != nil {
			fail("risk_acceleration")
			return
		}
		in.acceleration = v
	}()
	go func() {
		defer wg.Done()
		v, err := s.source.LowEvidenceRatio(ctx)
		if err != nil {
			fail("low_evidence_ratio")
			return
		}
		in.evidence = v
	}()
	wg.Wait()

	return in
}
