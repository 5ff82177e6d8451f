package markers

import (
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

// archiveFile returns the named file of a txtar archive.
func archiveFile(t *testing.T, archive *txtar.Archive, name string) []byte {
	t.Helper()
	for _, f := range archive.Files {
		if f.Name == name {
			return f.Data
		}
	}
	t.Fatalf("archive has no %s", name)
	return nil
}

func archiveLines(t *testing.T, archive *txtar.Archive, name string) []string {
	t.Helper()
	lines := []string{}
	for _, line := range strings.Split(string(archiveFile(t, archive, name)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// TestCollector_Txtar runs every testdata/*.txtar archive: input.go is collected
// and the applied markers and diagnostics are compared as "owner marker" lines.
func TestCollector_Txtar(t *testing.T) {
	fsys := os.DirFS("testdata")
	entries, err := fs.ReadDir(fsys, ".")
	require.NoError(t, err)

	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".txtar") {
			continue
		}
		t.Run(entry.Name(), func(t *testing.T) {
			content, err := fs.ReadFile(fsys, entry.Name())
			require.NoError(t, err)
			archive := txtar.Parse(content)

			collector := NewCollector(newTestRegistry(t), WithStructTag("test", "test"))
			info, err := collector.InspectSource("input.go", archiveFile(t, archive, "input.go"))
			require.NoError(t, err)

			applied := []string{}
			for _, typeInfo := range info.Types {
				names := make([]string, 0, len(typeInfo.Markers))
				for name, values := range typeInfo.Markers {
					for range values {
						names = append(names, name)
					}
				}
				sort.Strings(names)
				for _, name := range names {
					applied = append(applied, typeInfo.Name+" "+name)
				}
				for _, field := range typeInfo.Fields {
					for _, name := range field.Order {
						applied = append(applied, typeInfo.Name+"."+field.Name+" "+name)
					}
				}
			}

			diagnostics := []string{}
			for _, d := range info.Diagnostics {
				diagnostics = append(diagnostics, d.Owner+" "+d.Marker)
				assert.True(t, d.Position.IsValid(), "diagnostic %v has no position", d)
			}

			assert.ElementsMatch(t, archiveLines(t, archive, "markers.txt"), applied)
			assert.ElementsMatch(t, archiveLines(t, archive, "diagnostics.txt"), diagnostics)
		})
	}
}

func TestCollector_Diagnostics(t *testing.T) {
	collector := NewCollector(newTestRegistry(t), WithStructTag("test", "test"))

	source := `package sample

// +test:required
type Wrong struct {
	Field int ` + "`test:\"generate\"`" + `
}
`
	info, err := collector.InspectSource("wrong.go", source)
	require.NoError(t, err)
	require.Len(t, info.Types, 1)

	wrong := info.Types[0]
	require.Len(t, wrong.Diagnostics, 2)
	assert.Equal(t, len(info.Diagnostics), len(wrong.Diagnostics))

	typeDiag := wrong.Diagnostics[0]
	assert.Equal(t, "Wrong", typeDiag.Owner)
	assert.Equal(t, DescribesType, typeDiag.Target)
	assert.True(t, IsTargetErr(typeDiag), "want a target error, got %v", typeDiag.Err)
	assert.Equal(t, 3, typeDiag.Position.Line)
	assert.Contains(t, typeDiag.Error(), "wrong.go:3")
	assert.Contains(t, typeDiag.Error(), "describes a field, not a type")

	fieldDiag := wrong.Diagnostics[1]
	assert.Equal(t, "Wrong.Field", fieldDiag.Owner)
	assert.Equal(t, "test:generate", fieldDiag.Marker)
	assert.Equal(t, DescribesField, fieldDiag.Target)
	assert.True(t, IsTargetErr(fieldDiag))
}

func TestCollector_TagOrder(t *testing.T) {
	collector := NewCollector(newTestRegistry(t), WithStructTag("test", "test"))

	source := `package sample

type Shaped struct {
	// +test:weight=0.5
	Values []int16 ` + "`json:\"values\" test:\"required,text=3|4\"`" + `
}
`
	info, err := collector.InspectSource("shaped.go", source)
	require.NoError(t, err)
	require.Len(t, info.Types, 1)
	require.Len(t, info.Types[0].Fields, 1)

	field := info.Types[0].Fields[0]
	assert.Equal(t, []string{"test:weight", "test:required", "test:text"}, field.Order)
	assert.Equal(t, "[]int16", field.TypeExpr)
	assert.Equal(t, 0.5, field.Markers.Get("test:weight"))
	assert.Equal(t, rawText{Text: "3|4"}, field.Markers.Get("test:text"))

	fromTag := 0
	for _, m := range info.Markers {
		if m.FromTag {
			fromTag++
		}
	}
	assert.Equal(t, 2, fromTag)
}

func TestCollector_WithoutStructTag(t *testing.T) {
	collector := NewCollector(newTestRegistry(t))

	source := "package sample\n\ntype T struct {\n\tF int `test:\"nope\"`\n}\n"
	info, err := collector.InspectSource("t.go", source)
	require.NoError(t, err)
	assert.Empty(t, info.Markers)
	assert.Empty(t, info.Diagnostics)
}
