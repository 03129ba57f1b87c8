// =============================================================================
// Depot View - XML Writer Module
// =============================================================================
//
// This module renders an aggregated supplier tree as an XML report.
//
// XML STRUCTURE:
//   The generated XML follows this nesting pattern:
//
//   <depotView jobs="3" suppliers="1">
//     <supplier name="A" link="/s-1" span="2" licenseNumber="L1" licenseExpiry="2025-01-01">
//       <depot name="D1" link="/d-1" span="2">
//         <wasteType name="W1" span="1">
//           <ewcCode code="01" span="1" firstService="2024-01-10" lastService="2024-03-05" jobCount="2">
//             <job row="2" deliveryDate="2024-03-05"/>
//             <job row="3" deliveryDate="2024-01-10">
//               <field name="weight">0.5</field>
//             </job>
//           </ewcCode>
//         </wasteType>
//       </depot>
//     </supplier>
//   </depotView>
//
// Attributes holding an empty value (a missing link, a null date) are left
// out. The span attribute equals the number of <ewcCode> elements below the
// element, which is what a row-merged rendering of the report needs.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/depotview/internal/hierarchy"
	"github.com/ginjaninja78/depotview/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement is the name of the document element.
	// Default: "depotView"
	RootElement string

	// RootAttributes are additional attributes for the root element.
	// Example: {"source": "PORTAL"}
	RootAttributes map[string]string

	// IncludeJobs writes one <job> element per job under each EWC code.
	// Default: true
	IncludeJobs bool

	// DateFormat is the layout dates are written with.
	// Default: "2006-01-02"
	DateFormat string
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "depotView",
		RootAttributes:        make(map[string]string),
		IncludeJobs:           true,
		DateFormat:            "2006-01-02",
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates an XML report from the supplier groups with default options.
func Generate(groups []hierarchy.SupplierGroup) ([]byte, error) {
	return GenerateWithOptions(groups, DefaultGenerateOptions())
}

// GenerateWithOptions creates an XML report with custom options.
//
// PARAMETERS:
//   - groups: The flattened supplier tree.
//   - options: The generation options. Empty fields fall back to defaults.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if generation fails.
func GenerateWithOptions(groups []hierarchy.SupplierGroup, options GenerateOptions) ([]byte, error) {
	options = withDefaults(options)

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	root := buildDocument(groups, options)
	if err := writeElement(&buffer, root, options.Indent, 0); err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}

	return buffer.Bytes(), nil
}

func withDefaults(options GenerateOptions) GenerateOptions {
	defaults := DefaultGenerateOptions()
	if options.Indent == "" {
		options.Indent = defaults.Indent
	}
	if options.RootElement == "" {
		options.RootElement = defaults.RootElement
	}
	if options.DateFormat == "" {
		options.DateFormat = defaults.DateFormat
	}
	return options
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// attr appends an attribute unless value is empty.
func (e *XMLElement) attr(name, value string) {
	if value == "" {
		return
	}
	e.Attributes = append(e.Attributes, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// buildDocument constructs the XML document structure.
func buildDocument(groups []hierarchy.SupplierGroup, options GenerateOptions) XMLElement {
	root := XMLElement{XMLName: xml.Name{Local: options.RootElement}}
	root.attr("jobs", strconv.Itoa(hierarchy.CountJobs(groups)))
	root.attr("suppliers", strconv.Itoa(len(groups)))

	keys := make([]string, 0, len(options.RootAttributes))
	for key := range options.RootAttributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		root.attr(key, options.RootAttributes[key])
	}

	for _, s := range groups {
		root.Children = append(root.Children, buildSupplierElement(s, options))
	}

	return root
}

// buildSupplierElement constructs a supplier element and its depots.
func buildSupplierElement(s hierarchy.SupplierGroup, options GenerateOptions) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: "supplier"}}
	element.attr("name", s.SupplierName)
	element.attr("link", s.Link)
	element.attr("span", strconv.Itoa(s.Span))
	element.attr("licenseNumber", s.LicenseNumber)
	element.attr("licenseExpiry", formatDate(s.LicenseExpiry, options.DateFormat))
	element.attr("firstService", formatDate(s.FirstService, options.DateFormat))
	element.attr("lastService", formatDate(s.LastService, options.DateFormat))

	for _, d := range s.Depots {
		depot := XMLElement{XMLName: xml.Name{Local: "depot"}}
		depot.attr("name", d.DepotDispose)
		depot.attr("link", d.Link)
		depot.attr("span", strconv.Itoa(d.Span))
		depot.attr("firstService", formatDate(d.FirstService, options.DateFormat))
		depot.attr("lastService", formatDate(d.LastService, options.DateFormat))

		for _, w := range d.WasteTypes {
			wasteType := XMLElement{XMLName: xml.Name{Local: "wasteType"}}
			wasteType.attr("name", w.WasteType)
			wasteType.attr("span", strconv.Itoa(w.Span))
			wasteType.attr("firstService", formatDate(w.FirstService, options.DateFormat))
			wasteType.attr("lastService", formatDate(w.LastService, options.DateFormat))

			for _, e := range w.EwcCodes {
				wasteType.Children = append(wasteType.Children, buildEwcElement(e, options))
			}
			depot.Children = append(depot.Children, wasteType)
		}
		element.Children = append(element.Children, depot)
	}

	return element
}

// buildEwcElement constructs a leaf element.
//
// STRUCTURE:
//
//	<ewcCode code="01" span="1" firstService="..." lastService="..." jobCount="2">
//	  <job row="2" deliveryDate="..." collectionDate="..."/>
//	</ewcCode>
func buildEwcElement(e hierarchy.EwcCodeGroup, options GenerateOptions) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: "ewcCode"}}
	element.attr("code", e.EwcCode)
	element.attr("span", strconv.Itoa(e.Span))
	element.attr("firstService", formatDate(e.FirstService, options.DateFormat))
	element.attr("lastService", formatDate(e.LastService, options.DateFormat))
	element.attr("jobCount", strconv.Itoa(len(e.Jobs)))

	if !options.IncludeJobs {
		return element
	}

	for _, job := range e.Jobs {
		element.Children = append(element.Children, buildJobElement(job, options))
	}

	return element
}

// buildJobElement writes the passthrough fields of a job in header order so
// that the report does not depend on map iteration.
func buildJobElement(job types.JobRecord, options GenerateOptions) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: "job"}}
	if job.RowNumber > 0 {
		element.attr("row", strconv.Itoa(job.RowNumber))
	}
	element.attr("deliveryDate", formatDate(job.DeliveryDate, options.DateFormat))
	element.attr("collectionDate", formatDate(job.CollectionDate, options.DateFormat))

	names := make([]string, 0, len(job.Fields))
	for name := range job.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := job.Fields[name]
		if value == "" {
			continue
		}
		field := XMLElement{XMLName: xml.Name{Local: "field"}, Value: value}
		field.attr("name", name)
		element.Children = append(element.Children, field)
	}

	return element
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func formatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) error {
	pad := strings.Repeat(indent, level)

	buffer.WriteString(pad)
	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)

	for _, attr := range element.Attributes {
		buffer.WriteString(" ")
		buffer.WriteString(attr.Name.Local)
		buffer.WriteString(`="`)
		if err := xml.EscapeText(buffer, []byte(attr.Value)); err != nil {
			return err
		}
		buffer.WriteString(`"`)
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return nil
	}

	buffer.WriteString(">")

	if element.Value != "" {
		if err := xml.EscapeText(buffer, []byte(element.Value)); err != nil {
			return err
		}
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			if err := writeElement(buffer, child, indent, level+1); err != nil {
				return err
			}
		}
		buffer.WriteString(pad)
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
	return nil
}

// =============================================================================
// XSD GENERATION
// =============================================================================

// GenerateXSD creates an XSD schema describing the report written by
// GenerateWithOptions with the same options.
func GenerateXSD(options GenerateOptions) []byte {
	options = withDefaults(options)

	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)
	buffer.WriteString(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
`)

	fmt.Fprintf(&buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="supplier" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="jobs" type="xs:nonNegativeInteger" use="required"/>
      <xs:attribute name="suppliers" type="xs:nonNegativeInteger" use="required"/>
      <xs:anyAttribute processContents="skip"/>
    </xs:complexType>
  </xs:element>

`, options.RootElement)

	writeXSDGroup(&buffer, "supplier", "depot", "name", "link", "licenseNumber", "licenseExpiry")
	writeXSDGroup(&buffer, "depot", "wasteType", "name", "link")
	writeXSDGroup(&buffer, "wasteType", "ewcCode", "name")
	writeXSDGroup(&buffer, "ewcCode", "job", "code", "jobCount")

	buffer.WriteString(`  <xs:element name="job">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="field" minOccurs="0" maxOccurs="unbounded">
          <xs:complexType>
            <xs:simpleContent>
              <xs:extension base="xs:string">
                <xs:attribute name="name" type="xs:string" use="required"/>
              </xs:extension>
            </xs:simpleContent>
          </xs:complexType>
        </xs:element>
      </xs:sequence>
      <xs:attribute name="row" type="xs:positiveInteger"/>
      <xs:attribute name="deliveryDate" type="xs:string"/>
      <xs:attribute name="collectionDate" type="xs:string"/>
    </xs:complexType>
  </xs:element>

</xs:schema>
`)

	return buffer.Bytes()
}

// writeXSDGroup writes the definition of a grouping element. Every grouping
// element carries a span and an optional service range.
func writeXSDGroup(buffer *bytes.Buffer, name, child string, attrs ...string) {
	fmt.Fprintf(buffer, `  <xs:element name="%s">
    <xs:complexType>
      <xs:sequence>
        <xs:element ref="%s" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="span" type="xs:positiveInteger" use="required"/>
      <xs:attribute name="firstService" type="xs:string"/>
      <xs:attribute name="lastService" type="xs:string"/>
`, name, child)

	for _, attr := range attrs {
		typ := "xs:string"
		if attr == "jobCount" {
			typ = "xs:positiveInteger"
		}
		fmt.Fprintf(buffer, "      <xs:attribute name=\"%s\" type=\"%s\"/>\n", attr, typ)
	}

	buffer.WriteString(`    </xs:complexType>
  </xs:element>

`)
}
