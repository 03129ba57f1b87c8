package xmlwriter

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/depotview/internal/hierarchy"
	"github.com/ginjaninja78/depotview/internal/types"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func sampleGroups() []hierarchy.SupplierGroup {
	jobs := []types.JobRecord{
		{SupplierID: "1", SupplierName: "A & Sons", DepotDisposeID: "9", DepotDispose: "D1", WasteType: "W1", EWCCode: "01",
			DeliveryDate: date("2024-03-05"), LicenseNumber: "L1", LicenseExpiry: date("2025-01-01"), RowNumber: 2,
			Fields: map[string]string{"weight": "0.5", "notes": ""}},
		{SupplierID: "1", SupplierName: "A & Sons", DepotDisposeID: "9", DepotDispose: "D1", WasteType: "W1", EWCCode: "01",
			DeliveryDate: date("2024-01-10"), RowNumber: 3},
		{SupplierID: "1", SupplierName: "A & Sons", DepotDisposeID: "9", DepotDispose: "D1", WasteType: "W2", EWCCode: "02",
			RowNumber: 4},
	}
	return hierarchy.Flatten(hierarchy.Build(jobs, hierarchy.Options{}))
}

type report struct {
	XMLName   xml.Name `xml:"depotView"`
	Jobs      int      `xml:"jobs,attr"`
	Suppliers []struct {
		Name   string `xml:"name,attr"`
		Link   string `xml:"link,attr"`
		Span   int    `xml:"span,attr"`
		Expiry string `xml:"licenseExpiry,attr"`
		First  string `xml:"firstService,attr"`
		Depots []struct {
			Name       string `xml:"name,attr"`
			Span       int    `xml:"span,attr"`
			WasteTypes []struct {
				Name  string `xml:"name,attr"`
				Span  int    `xml:"span,attr"`
				Codes []struct {
					Code     string `xml:"code,attr"`
					First    string `xml:"firstService,attr"`
					Last     string `xml:"lastService,attr"`
					JobCount int    `xml:"jobCount,attr"`
					Jobs     []struct {
						Row    int `xml:"row,attr"`
						Fields []struct {
							Name  string `xml:"name,attr"`
							Value string `xml:",chardata"`
						} `xml:"field"`
					} `xml:"job"`
				} `xml:"ewcCode"`
			} `xml:"wasteType"`
		} `xml:"depot"`
	} `xml:"supplier"`
}

func TestGenerate(t *testing.T) {
	out, err := Generate(sampleGroups())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), xml.Header))

	var r report
	require.NoError(t, xml.Unmarshal(out, &r))

	assert.Equal(t, 3, r.Jobs)
	require.Len(t, r.Suppliers, 1)
	s := r.Suppliers[0]
	assert.Equal(t, "A & Sons", s.Name)
	assert.Equal(t, "/1", s.Link)
	assert.Equal(t, 2, s.Span)
	assert.Equal(t, "2025-01-01", s.Expiry)
	assert.Empty(t, s.First, "supplier carries no service range by default")

	require.Len(t, s.Depots, 1)
	require.Len(t, s.Depots[0].WasteTypes, 2)

	w1 := s.Depots[0].WasteTypes[0]
	require.Len(t, w1.Codes, 1)
	assert.Equal(t, "2024-01-10", w1.Codes[0].First)
	assert.Equal(t, "2024-03-05", w1.Codes[0].Last)
	assert.Equal(t, 2, w1.Codes[0].JobCount)
	require.Len(t, w1.Codes[0].Jobs, 2)
	assert.Equal(t, 2, w1.Codes[0].Jobs[0].Row)
	require.Len(t, w1.Codes[0].Jobs[0].Fields, 1, "empty passthrough fields are skipped")
	assert.Equal(t, "weight", w1.Codes[0].Jobs[0].Fields[0].Name)

	w2 := s.Depots[0].WasteTypes[1]
	assert.Empty(t, w2.Codes[0].First)
	assert.Empty(t, w2.Codes[0].Last)
}

func TestGenerateWithOptions(t *testing.T) {
	out, err := GenerateWithOptions(sampleGroups(), GenerateOptions{
		Indent:         "\t",
		RootElement:    "depotView",
		RootAttributes: map[string]string{"source": "PORTAL"},
		DateFormat:     "02/01/2006",
	})
	require.NoError(t, err)

	text := string(out)
	assert.False(t, strings.HasPrefix(text, "<?xml"))
	assert.Contains(t, text, `source="PORTAL"`)
	assert.Contains(t, text, `firstService="10/01/2024"`)
	assert.Contains(t, text, "\n\t<supplier ")
	assert.NotContains(t, text, "<job ")
}

func TestGenerate_Empty(t *testing.T) {
	out, err := GenerateWithOptions(nil, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, `<depotView jobs="0" suppliers="0"/>`+"\n", string(out))
}

func TestGenerateXSD(t *testing.T) {
	xsd := string(GenerateXSD(DefaultGenerateOptions()))
	assert.Contains(t, xsd, `<xs:element name="depotView">`)
	for _, name := range []string{"supplier", "depot", "wasteType", "ewcCode", "job"} {
		assert.Contains(t, xsd, `<xs:element name="`+name+`">`)
	}

	var doc struct{}
	assert.NoError(t, xml.Unmarshal([]byte(xsd), &doc), "schema is well-formed")
}
