package alerting

import "github.com/pcmindustrial/pcm/pkg/model"

// Matches reports whether a sensor value trips the rule. Unknown conditions
// never match, and OUTSIDE_RANGE without an upper bound never matches.
func Matches(rule model.AlertRule, value float64) bool {
	switch rule.Condition {
	case model.ConditionGreaterThan:
		return value > rule.Threshold
	case model.ConditionLessThan:
		return value < rule.Threshold
	case model.ConditionEqualTo:
		return value == rule.Threshold
	case model.ConditionNotEqualTo:
		return value != rule.Threshold
	case model.ConditionOutsideRange:
		if rule.ThresholdUpper == nil {
			return false
		}
		return value < rule.Threshold || value > *rule.ThresholdUpper
	}
	return false
}
