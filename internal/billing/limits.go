package billing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/oportunia/internal/model"
)

// Unlimited marks a feature with no usage cap.
const Unlimited = -1

// Limits holds the monthly allowance per tier and feature.
type Limits map[model.Tier]map[model.Feature]int

// DefaultLimits returns the built-in plan table.
func DefaultLimits() Limits {
	return Limits{
		model.TierFree: {
			model.FeatureNicheSearch:    5,
			model.FeatureAIAnalysis:     3,
			model.FeatureAICampaigns:    1,
			model.FeatureProductMonitor: 1,
		},
		model.TierPro: {
			model.FeatureNicheSearch:    50,
			model.FeatureAIAnalysis:     30,
			model.FeatureAICampaigns:    15,
			model.FeatureProductMonitor: 20,
		},
		model.TierElite: {
			model.FeatureNicheSearch:    Unlimited,
			model.FeatureAIAnalysis:     Unlimited,
			model.FeatureAICampaigns:    Unlimited,
			model.FeatureProductMonitor: Unlimited,
		},
	}
}

// Limit returns the allowance for a tier and feature. Unknown combinations
// get zero.
func (l Limits) Limit(tier model.Tier, feature model.Feature) int {
	features, ok := l[tier]
	if !ok {
		return 0
	}
	return features[feature]
}

type plansFile struct {
	Plans map[string]map[string]*int `yaml:"plans"`
}

// LoadLimitsFile reads plan overrides from a YAML file on top of the
// defaults. A null or negative value means unlimited:
//
//	plans:
//	  pro:
//	    niche_search: 100
//	  elite:
//	    ai_campaigns: ~
func LoadLimitsFile(path string) (Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	return ParseLimits(data)
}

func ParseLimits(data []byte) (Limits, error) {
	var f plansFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}

	limits := DefaultLimits()
	for tierName, features := range f.Plans {
		tier := model.Tier(tierName)
		if !tier.Valid() {
			return nil, fmt.Errorf("unknown tier %q in plans file", tierName)
		}
		for featureName, v := range features {
			feature := model.Feature(featureName)
			if !knownFeature(feature) {
				return nil, fmt.Errorf("unknown feature %q for tier %q", featureName, tierName)
			}
			if v == nil || *v < 0 {
				limits[tier][feature] = Unlimited
				continue
			}
			limits[tier][feature] = *v
		}
	}
	return limits, nil
}

func knownFeature(f model.Feature) bool {
	for _, known := range model.Features {
		if f == known {
			return true
		}
	}
	return false
}
