package domain

import (
	"fmt"
	"strings"
)

// Label is the quality verdict assigned to a site.
type Label string

const (
	// LabelGoodSafe marks trusted or high scoring sites.
	LabelGoodSafe Label = "GOOD_SAFE"
	// LabelSuspicious marks sites scoring in the grey zone.
	LabelSuspicious Label = "SUSPICIOUS"
	// LabelLowQuality marks sites scoring below 50.
	LabelLowQuality Label = "LOW_QUALITY"
)

// TrustedScore is the score given to every allowlisted site.
const TrustedScore = 90

// LabelFromScore maps a 0-100 score to a Label. Scores between 60 and 70
// inclusive stay suspicious.
func LabelFromScore(score int) Label {
	switch {
	case score < 50:
		return LabelLowQuality
	case score < 60:
		return LabelSuspicious
	case score > 70:
		return LabelGoodSafe
	default:
		return LabelSuspicious
	}
}

// Signals are the page heuristics collected for untrusted sites.
type Signals struct {
	WordCount   int  `json:"word_count"`
	ThinContent bool `json:"thin_content"`
	LoremIpsum  bool `json:"lorem_ipsum"`
	NoHTTPS     bool `json:"no_https"`
}

// Report is the outcome of analyzing one input.
type Report struct {
	// Input is the raw value the user supplied.
	Input string `json:"input"`
	// Host and BaseDomain describe the input.
	Host       string `json:"host"`
	BaseDomain string `json:"base_domain"`

	// FinalURL is the URL reached after following redirects.
	FinalURL        string   `json:"final_url,omitempty"`
	FinalHost       string   `json:"final_host,omitempty"`
	FinalBaseDomain string   `json:"final_base_domain,omitempty"`
	Redirects       []string `json:"redirects,omitempty"`
	StatusCode      int      `json:"status_code,omitempty"`

	// Trusted is set when the input or the final domain is allowlisted.
	Trusted bool     `json:"forced_good"`
	Score   int      `json:"score"`
	Label   Label    `json:"label,omitempty"`
	Signals *Signals `json:"signals,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// TrustLabel renders the trust decision as text.
func (r Report) TrustLabel() string {
	if r.Trusted {
		return "trusted"
	}

	return "not trusted"
}

// Verdict renders a one line summary combining the original domain, the final
// domain and the trust decision, e.g.
// "bit.ly -> amazon.com: trusted (GOOD_SAFE, score 90)".
func (r Report) Verdict() string {
	var b strings.Builder
	b.WriteString(displayDomain(r.BaseDomain, r.Host))
	if final := displayDomain(r.FinalBaseDomain, r.FinalHost); final != "" {
		b.WriteString(" -> ")
		b.WriteString(final)
	}
	fmt.Fprintf(&b, ": %s", r.TrustLabel())
	if r.Label != "" {
		fmt.Fprintf(&b, " (%s, score %d)", r.Label, r.Score)
	}

	return b.String()
}

func displayDomain(base, host string) string {
	if base != "" {
		return base
	}

	return host
}
