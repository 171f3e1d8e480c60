package domain

import "time"

// RiskFlag is the denormalized risk bucket shown on a customer profile.
type RiskFlag string

const (
	RiskLow     RiskFlag = "Low Risk"
	RiskMedium  RiskFlag = "Medium Risk"
	RiskHigh    RiskFlag = "High Risk"
	RiskUnknown RiskFlag = "Unknown"
)

// Profile is the customer record that mirrors the current tier and its risk bucket.
type Profile struct {
	CustomerID     string
	Tier           Tier
	RiskFlag       RiskFlag
	StabilityScore float64
	UpdatedAt      time.Time
}

// ProfileFor maps a tier to its fixed risk flag and stability score.
func ProfileFor(customerID string, tier Tier, at time.Time) Profile {
	p := Profile{CustomerID: customerID, Tier: tier, UpdatedAt: at}
	switch tier {
	case TierGold, TierPlatinum:
		p.RiskFlag, p.StabilityScore = RiskLow, 0.8
	case TierSilver:
		p.RiskFlag, p.StabilityScore = RiskMedium, 0.5
	default:
		p.RiskFlag, p.StabilityScore = RiskHigh, 0.3
	}
	return p
}
