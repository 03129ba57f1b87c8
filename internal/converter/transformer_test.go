package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/depotview/internal/config"
	"github.com/ginjaninja78/depotview/internal/types"
)

func action(typ, value string) config.TransformationAction {
	return config.TransformationAction{Type: typ, Value: value}
}

func TestTransformer_Actions(t *testing.T) {
	tests := []struct {
		name   string
		action config.TransformationAction
		in     string
		want   string
	}{
		{"trim", action("trim", ""), "  x ", "x"},
		{"uppercase", action("uppercase", ""), "abc", "ABC"},
		{"lowercase", action("lowercase", ""), "ABC", "abc"},
		{"title case", action("title_case", ""), "ACME SKIP HIRE", "Acme Skip Hire"},
		{"normalize whitespace", action("normalize_whitespace", ""), " North   Depot\t", "North Depot"},
		{"remove spaces", action("remove_spaces", ""), "20 01 01", "200101"},
		{"extract digits", action("extract_digits", ""), "20-01-01*", "200101"},
		{"replace", config.TransformationAction{Type: "replace", Find: "-", Value: ""}, "20-01-01", "200101"},
		{"regex replace", config.TransformationAction{Type: "regex_replace", Find: `^(\d{2})(\d{2})(\d{2})$`, Value: "$1 $2 $3"}, "200101", "20 01 01"},
		{"prepend", action("prepend_string", "EPR/"), "AB1234", "EPR/AB1234"},
		{"append", action("append_string", "*"), "170503", "170503*"},
		{"pad zeros", action("pad_zeros_to_length", "6"), "10101", "010101"},
		{"pad zeros long value", action("pad_zeros_to_length", "3"), "10101", "10101"},
		{"lookup hit", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"GL": "Glass"}}, "GL", "Glass"},
		{"lookup miss", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"GL": "Glass"}}, "PA", "PA"},
		{"lookup default", config.TransformationAction{Type: "lookup_with_default", Value: "Other", LookupTable: map[string]string{"GL": "Glass"}}, "PA", "Other"},
		{"empty default", action("if_empty_use_default", "Unknown"), " ", "Unknown"},
		{"not empty default", action("if_empty_use_default", "Unknown"), "Acme", "Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransformer([]config.TransformationRule{{Field: "f", Actions: []config.TransformationAction{tt.action}}})
			require.NoError(t, err)

			got, err := tr.Transform("f", tt.in, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformer_TransformRow(t *testing.T) {
	tr, err := NewTransformer([]config.TransformationRule{
		{Field: "ewcCode", Actions: []config.TransformationAction{action("remove_spaces", "")}},
		{Field: "depotDispose", Actions: []config.TransformationAction{action("if_empty_use_field", "site")}},
		{Field: "supplierName", Actions: []config.TransformationAction{action("trim", ""), action("uppercase", "")}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Len())

	in := types.Row{Number: 7, Fields: map[string]string{
		"ewcCode":      "17 01 07",
		"depotDispose": "",
		"site":         "North",
		"supplierName": " acme ",
	}}

	out, err := tr.TransformRow(in)
	require.NoError(t, err)

	assert.Equal(t, 7, out.Number)
	assert.Equal(t, "170107", out.Fields["ewcCode"])
	assert.Equal(t, "North", out.Fields["depotDispose"])
	assert.Equal(t, "ACME", out.Fields["supplierName"])
	assert.Equal(t, "17 01 07", in.Fields["ewcCode"], "input row is not modified")
}

func TestTransformer_Errors(t *testing.T) {
	_, err := NewTransformer([]config.TransformationRule{{
		Field:   "f",
		Actions: []config.TransformationAction{{Type: "regex_replace", Find: "("}},
	}})
	assert.ErrorContains(t, err, "invalid regex")

	tr, err := NewTransformer([]config.TransformationRule{{
		Field:   "f",
		Actions: []config.TransformationAction{action("explode", "")},
	}})
	require.NoError(t, err)
	_, err = tr.TransformRow(types.Row{Number: 3, Fields: map[string]string{"f": "x"}})
	assert.ErrorContains(t, err, "row 3")
	assert.ErrorContains(t, err, "unknown transformation type")
}

func TestPadLeft(t *testing.T) {
	assert.Equal(t, "0042", PadLeft("42", 4, '0'))
	assert.Equal(t, "12345", PadLeft("12345", 4, '0'))
}
