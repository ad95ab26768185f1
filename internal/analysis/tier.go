package analysis

import "fmt"

// Tier is the stress band the overall mean falls into.
type Tier string

const (
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
)

// Thresholds bound the Moderate band. They assume the dataset's stress values
// sit on a roughly 0-10 scale; a dataset on another scale needs different
// values, which is why they are configuration and not constants.
type Thresholds struct {
	Low  float64 `mapstructure:"tier_low" yaml:"tier_low" json:"low"`
	High float64 `mapstructure:"tier_high" yaml:"tier_high" json:"high"`
}

// DefaultThresholds returns Low=4, High=6.
func DefaultThresholds() Thresholds { return Thresholds{Low: 4, High: 6} }

// Validate rejects inverted bands.
func (th Thresholds) Validate() error {
	if th.Low > th.High {
		return fmt.Errorf("invalid stress thresholds: low %.2f > high %.2f", th.Low, th.High)
	}
	return nil
}

// Classify maps a mean to a tier: High when mean > High, Moderate when
// Low <= mean <= High, Low otherwise. Both bounds belong to Moderate.
func (th Thresholds) Classify(mean float64) Tier {
	switch {
	case mean > th.High:
		return TierHigh
	case mean >= th.Low && mean <= th.High:
		return TierModerate
	default:
		return TierLow
	}
}

// Headline is the short label shown with a tier.
func (t Tier) Headline() string {
	switch t {
	case TierHigh:
		return "High Stress Detected"
	case TierModerate:
		return "Moderate Stress Levels"
	case TierLow:
		return "Low Stress Levels"
	}
	return ""
}

// Recommendations returns the advice attached to a tier.
func Recommendations(t Tier) []string {
	switch t {
	case TierHigh:
		return []string{
			"Prioritize adequate rest and regular exercise.",
			"Use relaxation apps for guided mindfulness.",
			"Talk to trusted mentors, counselors, or peers for support.",
		}
	case TierModerate:
		return []string{
			"Maintain a structured study schedule with frequent short breaks.",
			"Balance study with hobbies and physical activity.",
			"Stay socially connected and avoid burnout.",
		}
	case TierLow:
		return []string{
			"Keep practicing your healthy habits.",
			"Continue regular sleep and positive routines.",
			"Offer support to classmates who may be struggling.",
		}
	}
	return nil
}
