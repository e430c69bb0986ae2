package risk

// Signal weights. Contributions are purely additive; the total is capped at
// 100 and there are no per-category caps.
const (
	pointsInvalidPhone      = 10
	pointsInvalidEmail      = 5
	pointsDisposableEmail   = 10
	pointsVoIPPhone         = 8
	pointsNewCustomer       = 5
	pointsPreviousFraud     = 15
	pointsUnusualAmount     = 15
	pointsUnknownMerchant   = 10
	pointsUnknownPlatform   = 15
	pointsLowReputation     = 10
	pointsHighFraudRate     = 10
	pointsHighChargebacks   = 5
	pointsVelocityHour      = 10
	pointsVelocityDay       = 8
	pointsFailedAttempts    = 12
	pointsMerchantSpread    = 8
	pointsLateNight         = 8
	pointsWeekend           = 3

	lowReputationThreshold = 50
	fraudRateThreshold     = 0.05
	chargebackThreshold    = 0.03
	maxTxPerHour           = 3
	maxTxPerDay            = 10
	maxFailedPerHour       = 2
	maxMerchantsPerDay     = 5
)

// contribution pairs one predicate with its points and reason string. Each
// predicate maps to exactly one reason, so reasons cannot duplicate.
type contribution struct {
	applies func(*Signals) bool
	points  int
	reason  string
}

// contributions is evaluated in this fixed order; reasons come out in the
// same priority order for human review.
var contributions = []contribution{
	{func(s *Signals) bool { return !s.Customer.PhoneValid }, pointsInvalidPhone,
		"phone number failed E.164 validation"},
	{func(s *Signals) bool { return s.Customer.EmailProvided && !s.Customer.EmailValid }, pointsInvalidEmail,
		"email address failed syntax validation"},
	{func(s *Signals) bool { return s.Customer.DisposableEmail }, pointsDisposableEmail,
		"email domain is a disposable provider"},
	{func(s *Signals) bool { return s.Customer.PhoneType == "voip" }, pointsVoIPPhone,
		"phone number classified as VoIP"},
	{func(s *Signals) bool { return s.Customer.IsNewCustomer }, pointsNewCustomer,
		"first-time customer"},
	{func(s *Signals) bool { return s.Customer.PreviousFraud }, pointsPreviousFraud,
		"customer has prior fraud-flagged assessments"},
	{func(s *Signals) bool { return s.Pattern.UnusualAmount }, pointsUnusualAmount,
		"amount is unusual for this merchant"},
	{func(s *Signals) bool { return !s.Pattern.MerchantKnown }, pointsUnknownMerchant,
		"merchant is not recognized"},
	{func(s *Signals) bool { return !s.Reputation.KnownPlatform }, pointsUnknownPlatform,
		"agent platform is not recognized"},
	{func(s *Signals) bool { return s.Reputation.KnownPlatform && s.Reputation.BaseScore < lowReputationThreshold },
		pointsLowReputation, "agent platform has low base reputation"},
	{func(s *Signals) bool { return s.Reputation.FraudRate > fraudRateThreshold }, pointsHighFraudRate,
		"agent platform has an elevated fraud rate"},
	{func(s *Signals) bool { return s.Reputation.ChargebackRate > chargebackThreshold }, pointsHighChargebacks,
		"agent platform has an elevated chargeback rate"},
	{func(s *Signals) bool { return s.Velocity.TxLastHour > maxTxPerHour }, pointsVelocityHour,
		"more than 3 transactions from this identity in the last hour"},
	{func(s *Signals) bool { return s.Velocity.TxLast24Hours > maxTxPerDay }, pointsVelocityDay,
		"more than 10 transactions from this identity in 24 hours"},
	{func(s *Signals) bool { return s.Velocity.FailedLastHour > maxFailedPerHour }, pointsFailedAttempts,
		"more than 2 failed attempts from this identity in the last hour"},
	{func(s *Signals) bool { return s.Velocity.DistinctMerchants24H > maxMerchantsPerDay }, pointsMerchantSpread,
		"more than 5 distinct merchants contacted in 24 hours"},
	{func(s *Signals) bool { return s.Temporal.LateNight }, pointsLateNight,
		"transaction initiated between 01:00 and 05:59"},
	{func(s *Signals) bool { return s.Temporal.Weekend }, pointsWeekend,
		"transaction initiated on a weekend"},
}

// Compose maps the signal snapshot to min(100, sum of triggered points) plus
// the triggered reasons in priority order. A block-list hit is handled
// upstream and never reaches here.
func Compose(s *Signals) (int, []string) {
	score := 0
	var reasons []string
	for _, c := range contributions {
		if c.applies(s) {
			score += c.points
			reasons = append(reasons, c.reason)
		}
	}
	if score > 100 {
		score = 100
	}
	return score, reasons
}

// Classify maps a score to its risk tier given the configured thresholds
// (defaults 50 and 80): below verify is low, at or above block is high,
// in between is medium.
func Classify(score, verifyThreshold, blockThreshold int) Level {
	switch {
	case score >= blockThreshold:
		return LevelHigh
	case score >= verifyThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
