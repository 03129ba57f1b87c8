// =============================================================================
// Depot View - Transformation Engine
// =============================================================================
//
// This module cleans raw column values before they are mapped onto job
// records. Exports from different sources spell the same thing differently:
// EWC codes arrive as "20 01 01", "200101" or "20-01-01*", carrier names in
// upper case, depots with stray whitespace. Since the hierarchy groups on
// exact values, those differences would otherwise split one group into many.
//
// Rules are defined per source (see config.TransformationRule) and applied
// per column, action by action, in the order they are configured.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/types"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	digitsRe     = regexp.MustCompile(`\d+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies a source's transformation rules to table rows.
type Transformer struct {
	rules []compiledRule
	title cases.Caser
}

type compiledRule struct {
	field   string
	actions []compiledAction
}

type compiledAction struct {
	config.TransformationAction
	re *regexp.Regexp
}

// NewTransformer compiles rules. It fails on unknown action types and
// invalid regular expressions.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules: make([]compiledRule, 0, len(rules)),
		title: cases.Title(language.English),
	}

	for _, rule := range rules {
		cr := compiledRule{field: rule.Field}
		for _, action := range rule.Actions {
			ca := compiledAction{TransformationAction: action}
			if action.Type == "regex_replace" {
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("field '%s': invalid regex pattern: %w", rule.Field, err)
				}
				ca.re = re
			}
			cr.actions = append(cr.actions, ca)
		}
		t.rules = append(t.rules, cr)
	}

	return t, nil
}

// Len returns the number of rules.
func (t *Transformer) Len() int {
	return len(t.rules)
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// TransformRow applies every rule to a row and returns the transformed copy.
// Rules run in configuration order, and later rules see the results of
// earlier ones. Rules for columns the row lacks create the column.
func (t *Transformer) TransformRow(row types.Row) (types.Row, error) {
	if len(t.rules) == 0 {
		return row, nil
	}

	fields := make(map[string]string, len(row.Fields))
	for k, v := range row.Fields {
		fields[k] = v
	}

	for _, rule := range t.rules {
		value, err := t.apply(rule, fields[rule.field], fields)
		if err != nil {
			return row, fmt.Errorf("row %d: %w", row.Number, err)
		}
		fields[rule.field] = value
	}

	return types.Row{Number: row.Number, Fields: fields}, nil
}

// Transform applies the rules of fieldName to a single value.
//
// PARAMETERS:
//   - fieldName: The column header of the value.
//   - value: The current value.
//   - allFields: All fields in the current row (for if_empty_use_field).
//
// RETURNS:
//   - The transformed value. Fields without rules are returned unchanged.
//   - An error if any transformation fails.
func (t *Transformer) Transform(fieldName, value string, allFields map[string]string) (string, error) {
	for _, rule := range t.rules {
		if rule.field != fieldName {
			continue
		}
		var err error
		if value, err = t.apply(rule, value, allFields); err != nil {
			return "", err
		}
	}
	return value, nil
}

func (t *Transformer) apply(rule compiledRule, value string, allFields map[string]string) (string, error) {
	result := value
	for _, action := range rule.actions {
		var err error
		result, err = t.applyAction(result, action, allFields)
		if err != nil {
			return "", fmt.Errorf("field '%s': transformation '%s' failed: %w", rule.field, action.Type, err)
		}
	}
	return result, nil
}

// applyAction applies a single transformation action.
func (t *Transformer) applyAction(value string, action compiledAction, allFields map[string]string) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "title_case":
		// "ACME SKIP HIRE" -> "Acme Skip Hire"
		return t.title.String(strings.ToLower(value)), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(value, " ")), nil

	case "remove_spaces":
		// "20 01 01" -> "200101"
		return whitespaceRe.ReplaceAllString(value, ""), nil

	case "extract_digits":
		// "20-01-01*" -> "200101"
		return strings.Join(digitsRe.FindAllString(value, -1), ""), nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.re == nil {
			return value, nil
		}
		return action.re.ReplaceAllString(value, action.Value), nil

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		// "10101" with length 6 -> "010101"
		targetLength, err := strconv.Atoi(action.Value)
		if err != nil || targetLength <= 0 {
			return "", fmt.Errorf("invalid length %q", action.Value)
		}
		return PadLeft(value, targetLength, '0'), nil

	// =========================================================================
	// LOOKUP TABLE REPLACEMENTS
	// =========================================================================

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	// =========================================================================
	// EMPTY VALUE HANDLING
	// =========================================================================

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			if otherValue, exists := allFields[action.Value]; exists {
				return otherValue, nil
			}
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads s on the left with padChar up to length runes.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
