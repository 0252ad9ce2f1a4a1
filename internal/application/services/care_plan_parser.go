package services

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
)

// CarePlanParser converts a raw model response into a validated
// CarePlanResult. It tries structured JSON decoding first and falls back
// to section-header scanning of free text. It never panics on malformed
// input; every failure comes back as a typed error.
type CarePlanParser struct{}

// NewCarePlanParser creates a new parser.
func NewCarePlanParser() *CarePlanParser {
	return &CarePlanParser{}
}

// Parse decodes raw into a CarePlanResult. The result is only returned
// when all four fields resolved to non-empty content; otherwise the error
// names every missing field.
func (p *CarePlanParser) Parse(raw string) (*entities.CarePlanResult, error) {
	cleaned := stripMarkdownFences(strings.TrimSpace(raw))
	if cleaned == "" {
		return nil, apperrors.NewMalformedError("empty model response")
	}

	result, ok := p.parseJSON(cleaned)
	if !ok {
		result = p.scanSections(cleaned)
	}

	if missing := missingFields(result); len(missing) > 0 {
		return nil, apperrors.NewMalformedError("incomplete care plan fields", missing...)
	}

	return result, nil
}

func (p *CarePlanParser) parseJSON(raw string) (*entities.CarePlanResult, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, false
	}

	return &entities.CarePlanResult{
		CarePlan:   coerceText(fields["care_plan"]),
		DietPlan:   coerceText(fields["diet_plan"]),
		Activities: coerceList(fields["activities"]),
		AIInsights: coerceText(fields["ai_insights"]),
	}, true
}

// coerceText flattens a JSON value into prose. The provider is asked for
// plain strings but has been seen returning arrays of bullets and nested
// objects of sections; all of those are recovered instead of discarded.
func coerceText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if text := coerceText(item); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			if text := coerceText(obj[key]); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	}

	return ""
}

func coerceList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		items := make([]string, 0, len(list))
		for _, item := range list {
			if text := coerceText(item); text != "" {
				items = append(items, text)
			}
		}
		return items
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var items []string
		for _, key := range keys {
			items = append(items, coerceList(obj[key])...)
		}
		return items
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return splitListText(s)
	}

	return nil
}

var sectionHeaderPattern = regexp.MustCompile(`(?i)(care\s*plan|diet(?:\s*plan)?|activities|(?:ai\s*)?insights)\s*:`)

// scanSections recovers the four fields from free text by locating
// section headers and taking the text between them.
func (p *CarePlanParser) scanSections(raw string) *entities.CarePlanResult {
	matches := sectionHeaderPattern.FindAllStringSubmatchIndex(raw, -1)
	sections := map[string]string{}

	for i, match := range matches {
		label := canonicalSection(raw[match[2]:match[3]])
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections[label] = strings.TrimSpace(raw[match[1]:end])
	}

	return &entities.CarePlanResult{
		CarePlan:   sections["care_plan"],
		DietPlan:   sections["diet_plan"],
		Activities: splitListText(sections["activities"]),
		AIInsights: sections["ai_insights"],
	}
}

func canonicalSection(label string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(label)), " ")
	switch normalized {
	case "care plan":
		return "care_plan"
	case "diet", "diet plan":
		return "diet_plan"
	case "activities":
		return "activities"
	case "insights", "ai insights":
		return "ai_insights"
	}
	return normalized
}

// splitListText breaks an activities section into items on semicolons,
// newlines and leading bullets.
func splitListText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ';' || r == '\n'
	})

	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		item = strings.TrimPrefix(item, "- ")
		item = strings.TrimPrefix(item, "* ")
		item = strings.TrimSuffix(item, ".")
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func missingFields(result *entities.CarePlanResult) []string {
	var missing []string
	if strings.TrimSpace(result.CarePlan) == "" {
		missing = append(missing, "care_plan")
	}
	if strings.TrimSpace(result.DietPlan) == "" {
		missing = append(missing, "diet_plan")
	}
	if len(result.Activities) == 0 {
		missing = append(missing, "activities")
	}
	if strings.TrimSpace(result.AIInsights) == "" {
		missing = append(missing, "ai_insights")
	}
	return missing
}

func stripMarkdownFences(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
