package entitlements

// Limits represents the entitlements derived from a subscription tier.
// Keep this small and stable: other services rely on these limits to enforce behavior.
type Limits struct {
	Tier               string `json:"tier"`
	MaxCards           int    `json:"max_cards"`
	MaxContacts        int    `json:"max_contacts"`
	MaxMonthlyMeetings int    `json:"max_monthly_meetings"`
}

func LimitsForTier(tier string) Limits {
	switch tier {
	case "starter":
		return Limits{
			Tier:               "starter",
			MaxCards:           3,
			MaxContacts:        500,
			MaxMonthlyMeetings: 100,
		}
	case "pro":
		return Limits{
			Tier:               "pro",
			MaxCards:           10,
			MaxContacts:        10000,
			MaxMonthlyMeetings: 2000,
		}
	default:
		return Limits{
			Tier:               "free",
			MaxCards:           1,
			MaxContacts:        50,
			MaxMonthlyMeetings: 20,
		}
	}
}
