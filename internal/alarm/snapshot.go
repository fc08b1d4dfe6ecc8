package alarm

import (
	"github.com/fieldwatch/fieldwatch/internal/types"
)

type ruleKey struct {
	assetID string
	metric  string
}

// snapshot is an immutable view of the enabled rule set. Evaluation calls
// read whichever snapshot was current when they loaded it; Reload replaces
// the whole snapshot with a single pointer swap, never mutates one in place.
type snapshot struct {
	byKey map[ruleKey][]types.AlarmRule
	count int
}

func buildSnapshot(rules []types.AlarmRule) *snapshot {
	byKey := make(map[ruleKey][]types.AlarmRule)
	count := 0
	for _, rule := range rules {
		if !rule.Enabled || !rule.Condition.Valid() {
			continue
		}
		key := ruleKey{assetID: rule.AssetID, metric: rule.Metric}
		byKey[key] = append(byKey[key], rule)
		count++
	}
	return &snapshot{
		byKey: byKey,
		count: count,
	}
}

func (s *snapshot) match(assetID, metric string) []types.AlarmRule {
	return s.byKey[ruleKey{assetID: assetID, metric: metric}]
}
