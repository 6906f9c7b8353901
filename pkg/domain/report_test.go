package domain_test

import (
	"sitecheck/pkg/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLabelFromScore(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Label
	}{
		{0, domain.LabelLowQuality},
		{49, domain.LabelLowQuality},
		{50, domain.LabelSuspicious},
		{59, domain.LabelSuspicious},
		{60, domain.LabelSuspicious},
		{70, domain.LabelSuspicious},
		{71, domain.LabelGoodSafe},
		{100, domain.LabelGoodSafe},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, domain.LabelFromScore(tt.score), "score %d", tt.score)
	}
}

func TestReport_Verdict(t *testing.T) {
	r := domain.Report{
		Host:            "bit.ly",
		BaseDomain:      "bit.ly",
		FinalHost:       "www.amazon.com",
		FinalBaseDomain: "amazon.com",
		Trusted:         true,
		Score:           domain.TrustedScore,
		Label:           domain.LabelGoodSafe,
	}
	require.Equal(t, "bit.ly -> amazon.com: trusted (GOOD_SAFE, score 90)", r.Verdict())

	failed := domain.Report{Host: "down.example.com", BaseDomain: "example.com"}
	require.Equal(t, "example.com: not trusted", failed.Verdict())

	noBase := domain.Report{Host: "203.0.113.5", FinalHost: "203.0.113.5", Score: 55, Label: domain.LabelSuspicious}
	require.Equal(t, "203.0.113.5 -> 203.0.113.5: not trusted (SUSPICIOUS, score 55)", noBase.Verdict())
}
