package schema

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adhoc "github.com/vast-data/go-adhoc"
)

func scannedDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := NewScanner(WithSkipDirs("generated")).ScanFS(t.Context(), moduleFS(), ".")
	require.NoError(t, err)
	return doc
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("yaml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEncodeDecode(t *testing.T) {
	doc := scannedDoc(t)
	for _, format := range []Format{FormatJSON, FormatMsgpack} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, doc, format))

			decoded, err := Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, doc.Module, decoded.Module)
			assert.Equal(t, doc.Issues, decoded.Issues)
			require.Len(t, decoded.Packs, len(doc.Packs))

			reading := packByName(t, decoded, "Reading")
			require.NotNil(t, reading.ID)
			assert.Equal(t, uint64(7), *reading.ID)
			assert.Equal(t, "-7|78", reading.Fields[0].Distribution.Bound.String())
			assert.Equal(t, adhoc.ShapeAscending, reading.Fields[0].Distribution.Shape)
			assert.Equal(t, "3|-3|~4", reading.Fields[1].Dims.String())
			assert.True(t, reading.Fields[1].Distribution.Unsigned)
			assert.True(t, reading.Fields[1].Distribution.Bound.Absent())
			assert.Equal(t, []adhoc.Marker{adhoc.DimsOpt, adhoc.UniformOpt}, reading.Fields[1].Markers)
			assert.True(t, packByName(t, decoded, "Perm").Bitflags)
		})
	}
}

func TestEncode_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, scannedDoc(t), FormatJSON))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, adhoc.CatalogVersion(), raw["catalogVersion"])

	packs := raw["packs"].([]any)
	reading := packs[0].(map[string]any)
	fields := reading["fields"].([]any)
	temp := fields[0].(map[string]any)
	dist := temp["distribution"].(map[string]any)
	assert.Equal(t, "ascending", dist["shape"])
	assert.Equal(t, "-7|78", dist["bound"])
	counts := fields[1].(map[string]any)
	assert.Equal(t, "3|-3|~4", counts["dims"])
}

func TestDecode_Incompatible(t *testing.T) {
	for _, version := range []string{"0.9.0", "99.0.0", "not-a-version"} {
		t.Run(version, func(t *testing.T) {
			doc := &Document{CatalogVersion: version}
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, doc, FormatJSON))
			_, err := Decode(&buf, FormatJSON)
			assert.ErrorIs(t, err, adhoc.ErrIncompatibleCatalog)
		})
	}
}

func TestDecode_WriteOnlyFormats(t *testing.T) {
	for _, format := range []Format{FormatOpenAPI, FormatTable, Format("xml")} {
		_, err := Decode(strings.NewReader("{}"), format)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	}
	assert.ErrorIs(t, Encode(&bytes.Buffer{}, &Document{}, Format("xml")), ErrUnsupportedFormat)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode(strings.NewReader("{"), FormatJSON)
	assert.Error(t, err)
}

func TestOpenAPI(t *testing.T) {
	spec := OpenAPI(scannedDoc(t))
	assert.Equal(t, "example.com/telemetry", spec.Info.Title)
	assert.Equal(t, adhoc.CatalogVersion(), spec.Info.Version)

	reading := spec.Components.Schemas["Reading"].Value
	require.NotNil(t, reading)
	assert.True(t, reading.Type.Is(openapi3.TypeObject))
	assert.Equal(t, uint64(7), reading.Extensions[extPackID])
	assert.ElementsMatch(t, []string{"Temp", "Latency", "Name"}, reading.Required)

	temp := reading.Properties["Temp"].Value
	require.NotNil(t, temp.Min)
	require.NotNil(t, temp.Max)
	assert.Equal(t, -7.0, *temp.Min)
	assert.Equal(t, 78.0, *temp.Max)
	assert.Equal(t, "ascending", temp.Extensions[extShape])

	counts := reading.Properties["Counts"].Value
	assert.True(t, counts.Nullable)
	assert.Equal(t, uint64(3), counts.MinItems)
	require.NotNil(t, counts.MaxItems)
	assert.Equal(t, uint64(3), *counts.MaxItems)
	middle := counts.Items.Value
	assert.Equal(t, uint64(0), middle.MinItems)
	require.NotNil(t, middle.MaxItems)
	assert.Equal(t, uint64(3), *middle.MaxItems)
	inner := middle.Items.Value
	assert.Nil(t, inner.MaxItems)
	assert.Equal(t, "~4", inner.Extensions[extAxis])
	elem := inner.Items.Value
	assert.True(t, elem.Type.Is(openapi3.TypeInteger))
	assert.Equal(t, true, elem.Extensions[extUnsigned])

	latency := reading.Properties["Latency"].Value
	assert.Equal(t, 1000.0, latency.Extensions[extValue])

	perm := spec.Components.Schemas["Perm"].Value
	assert.True(t, perm.Type.Is(openapi3.TypeInteger))
	assert.Equal(t, true, perm.Extensions[extBitflags])

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, scannedDoc(t), FormatOpenAPI))
	loaded, err := openapi3.NewLoader().LoadFromData(buf.Bytes())
	require.NoError(t, err)
	assert.Contains(t, loaded.Components.Schemas, "Login")
}

func TestOpenAPI_References(t *testing.T) {
	doc := &Document{
		CatalogVersion: adhoc.CatalogVersion(),
		Packs: []Pack{
			{Name: "Perm", Package: "a", Kind: "ident", Underlying: "uint8", Bitflags: true},
			{Name: "Perm", Package: "b", Kind: "ident", Underlying: "uint16", Bitflags: true},
			{Name: "User", Package: "a", Kind: "struct", Fields: []Field{
				{Name: "Perms", Type: "[]Perm", Markers: []adhoc.Marker{adhoc.DimsOpt},
					DimsMarker: adhoc.DimsOpt, Dims: adhoc.Dimensions{{Kind: adhoc.AxisVariable, Len: 8}}},
			}},
		},
	}
	spec := OpenAPI(doc)
	assert.Contains(t, spec.Components.Schemas, "a_Perm")
	assert.Contains(t, spec.Components.Schemas, "b_Perm")

	perms := spec.Components.Schemas["User"].Value.Properties["Perms"]
	require.NotNil(t, perms.Value)
	require.NotNil(t, perms.Value.MaxItems)
	assert.Equal(t, uint64(8), *perms.Value.MaxItems)
	assert.Equal(t, "#/components/schemas/a_Perm", perms.Value.Items.Ref)
}

func TestTable(t *testing.T) {
	out := Table(scannedDoc(t))
	assert.Contains(t, out, "example.com/telemetry.Reading [id=7]:")
	assert.Contains(t, out, "example.com/telemetry.Perm [flags]:")
	assert.Contains(t, out, "A ascending -7|78")
	assert.Contains(t, out, "D_ 3|-3|~4")
	assert.Contains(t, out, "issues:")
	assert.Contains(t, out, "adhoc:A=5")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, scannedDoc(t), FormatTable))
	assert.Equal(t, out, buf.String())
}

func TestCatalogTable(t *testing.T) {
	out := CatalogTable(adhoc.Catalog())
	for _, spec := range adhoc.Catalog() {
		assert.Contains(t, out, string(spec.Marker))
	}
	assert.Contains(t, out, "bound (optional)")
	assert.Contains(t, out, "dims")
}
