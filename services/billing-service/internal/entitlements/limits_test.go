package entitlements

import "testing"

func TestLimitsForTier(t *testing.T) {
	cases := []struct {
		tier string
		want Limits
	}{
		{"starter", Limits{Tier: "starter", MaxCards: 3, MaxContacts: 500, MaxMonthlyMeetings: 100}},
		{"pro", Limits{Tier: "pro", MaxCards: 10, MaxContacts: 10000, MaxMonthlyMeetings: 2000}},
		{"free", Limits{Tier: "free", MaxCards: 1, MaxContacts: 50, MaxMonthlyMeetings: 20}},
	}
	for _, tc := range cases {
		got := LimitsForTier(tc.tier)
		if got != tc.want {
			t.Fatalf("LimitsForTier(%q) = %+v, want %+v", tc.tier, got, tc.want)
		}
	}
}

func TestUnknownTierFallsBackToFree(t *testing.T) {
	for _, tier := range []string{"", "enterprise", "FREE"} {
		got := LimitsForTier(tier)
		if got.Tier != "free" {
			t.Fatalf("LimitsForTier(%q).Tier = %q, want free", tier, got.Tier)
		}
	}
}
