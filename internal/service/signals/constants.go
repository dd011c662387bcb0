package signals

const (
	// escalationWindowDays sizes the two compared complaint-volume
	// windows.
	escalationWindowDays = 30
	// escalationTrendThreshold is the percentage change beyond which
	// the trend leaves "stable".
	escalationTrendThreshold = 5.0

	// evidenceTrendThreshold is the percentage-point difference beyond
	// which the low-evidence trend leaves "stable".
	evidenceTrendThreshold = 3.0

	// riskAccelerationWindowDays is fixed; it is part of the signal's
	// contract, not a knob.
	riskAccelerationWindowDays = 14
	riskAccelerationMinCount   = 2

	// departmentEscalationPct flags a department whose risk score grew
	// more than this against its previous snapshot.
	departmentEscalationPct = 20.0

	trendWeeks          = 12
	breakdownWeeks      = 8
	complainantHistoryN = 8

	// complainantRejectionPct is the rejected-complaint share a reporter
	// must exceed to read as suspicious.
	complainantRejectionPct = 50.0

	// Targeting alert thresholds.
	targetingHighCount       = 5
	targetingHighCredibility = 45.0
)
