package qdrant

import "github.com/quiver-labs/quiver-cli/internal/core/domain"

// fieldCondition is one Qdrant field condition. The match map carries
// exactly one operator key; a map rather than a struct so that zero
// operands (chunk_index 0, empty strings) survive serialization.
type fieldCondition struct {
	Key   string         `json:"key"`
	Match map[string]any `json:"match"`
}

type queryFilter struct {
	Must []fieldCondition `json:"must"`
}

// serializeFilter converts translated domain conditions into the Qdrant
// filter DSL. All conditions land in the must clause. Nil in, nil out,
// so unfiltered requests omit the filter field entirely.
func serializeFilter(conditions []domain.FilterCondition) *queryFilter {
	if len(conditions) == 0 {
		return nil
	}
	must := make([]fieldCondition, 0, len(conditions))
	for _, condition := range conditions {
		fc := fieldCondition{Key: condition.Key}
		switch condition.Kind {
		case domain.MatchEquals:
			fc.Match = map[string]any{"value": condition.Value}
		case domain.MatchAny:
			fc.Match = map[string]any{"any": condition.Values}
		case domain.MatchText:
			fc.Match = map[string]any{"text": condition.Value}
		default:
			continue
		}
		must = append(must, fc)
	}
	return &queryFilter{Must: must}
}
