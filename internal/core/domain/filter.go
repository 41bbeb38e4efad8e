package domain

import "sort"

// MatchKind discriminates the condition variants of a translated filter.
type MatchKind string

const (
	// MatchEquals is an exact-value match.
	MatchEquals MatchKind = "equals"
	// MatchAny matches when the field equals any of the listed values.
	MatchAny MatchKind = "any"
	// MatchText is a full-text/substring match.
	MatchText MatchKind = "text"
)

// FilterCondition is one tagged condition of a translated filter.
// All conditions of a filter are combined with AND.
type FilterCondition struct {
	// Key is the full payload field path, e.g. "document_id" or
	// "metadata.category".
	Key  string
	Kind MatchKind
	// Value holds the operand for MatchEquals and MatchText.
	Value any
	// Values holds the operands for MatchAny.
	Values []any
}

// Equals builds an exact-match condition.
func Equals(key string, value any) FilterCondition {
	return FilterCondition{Key: key, Kind: MatchEquals, Value: value}
}

// AnyOf builds a match-any condition.
func AnyOf(key string, values []any) FilterCondition {
	return FilterCondition{Key: key, Kind: MatchAny, Values: values}
}

// TextMatch builds a full-text match condition.
func TextMatch(key string, text string) FilterCondition {
	return FilterCondition{Key: key, Kind: MatchText, Value: text}
}

// TranslateFilter converts a flat caller-facing filter map into tagged
// conditions per the reserved-key table:
//
//	document_id        exact match on the top-level field
//	title              text match on the top-level field
//	content, document  text match on the embedded chunk text
//	<anything else>    metadata-namespaced; lists become match-any,
//	                   scalars become exact match
//
// The translation is pure and deterministic: conditions are emitted in
// sorted key order. A nil or empty map yields nil.
func TranslateFilter(filter map[string]any) []FilterCondition {
	if len(filter) == 0 {
		return nil
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := make([]FilterCondition, 0, len(keys))
	for _, key := range keys {
		value := filter[key]
		switch key {
		case FieldDocumentID:
			conditions = append(conditions, Equals(FieldDocumentID, value))
		case FieldTitle:
			if s, ok := value.(string); ok {
				conditions = append(conditions, TextMatch(FieldTitle, s))
			}
		case "content", FieldDocument:
			if s, ok := value.(string); ok {
				conditions = append(conditions, TextMatch(FieldDocument, s))
			}
		default:
			fieldKey := key
			if len(key) <= len(MetadataPath) || key[:len(MetadataPath)+1] != MetadataPath+"." {
				fieldKey = MetadataPath + "." + key
			}
			if list := toAnySlice(value); list != nil {
				conditions = append(conditions, AnyOf(fieldKey, list))
			} else {
				conditions = append(conditions, Equals(fieldKey, value))
			}
		}
	}

	if len(conditions) == 0 {
		return nil
	}
	return conditions
}

func toAnySlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	default:
		return nil
	}
}
