package markers

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// rawText records the argument text it was handed.
type rawText struct {
	Text string
}

func (r *rawText) UnmarshalText(b []byte) error {
	r.Text = string(b)
	return nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	registry.MustRegister("test:generate", DescribesType, struct{}{}, "Test generate marker")
	registry.MustRegister("test:id", DescribesType, uint64(0), "Test id marker")
	registry.MustRegister("test:required", DescribesField, struct{}{}, "Test required marker")
	registry.MustRegister("test:text", DescribesField, rawText{}, "Test text marker")
	registry.MustRegister("test:weight", DescribesField, float64(0), "Test weight marker")
	return registry
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	// Test registering a simple marker
	err := registry.Register("test:simple", DescribesType, struct{}{}, "Simple test marker")
	if err != nil {
		t.Fatalf("Failed to register simple marker: %v", err)
	}

	// Test registering a complex marker
	type ComplexMarker struct {
		Name    string `marker:"name"`
		Count   int    `marker:"count,optional"`
		Enabled bool   `marker:"enabled,optional"`
	}

	err = registry.Register("test:complex", DescribesField, ComplexMarker{}, "Complex test marker")
	if err != nil {
		t.Fatalf("Failed to register complex marker: %v", err)
	}

	if err := registry.Register("test:simple", DescribesType, struct{}{}, "again"); err == nil {
		t.Error("Register() accepted a duplicate name")
	}
	if err := registry.Register("test:decl", DescribesDeclaration, struct{}{}, "nowhere"); err == nil {
		t.Error("Register() accepted a declaration target")
	}
	if err := registry.Register("test:nil", DescribesType, nil, "nil"); err == nil {
		t.Error("Register() accepted a nil output type")
	}

	// Test lookup
	def, err := registry.Lookup("+test:simple", DescribesType)
	if err != nil {
		t.Fatalf("Failed to lookup registered marker: %v", err)
	}

	if def.Name != "test:simple" {
		t.Errorf("Expected marker name 'test:simple', got '%s'", def.Name)
	}

	if got, want := registry.Names(), []string{"test:complex", "test:simple"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_LookupErrors(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Lookup("+test:missing", DescribesType)
	if !errors.Is(err, ErrUnknownMarker) {
		t.Errorf("Lookup() error = %v, want ErrUnknownMarker", err)
	}

	_, err = registry.Lookup("+test:required", DescribesType)
	if !IsTargetErr(err) {
		t.Fatalf("Lookup() error = %v, want *TargetError", err)
	}
	var targetErr *TargetError
	errors.As(err, &targetErr)
	if targetErr.Want != DescribesField || targetErr.Got != DescribesType {
		t.Errorf("TargetError = %+v", targetErr)
	}

	_, err = registry.Lookup("+test:generate()", DescribesField)
	if !IsTargetErr(err) {
		t.Errorf("Lookup() error = %v, want *TargetError", err)
	}
}

func TestRegistry_Owns(t *testing.T) {
	registry := newTestRegistry(t)

	tests := []struct {
		text string
		want bool
	}{
		{"+test:generate", true},
		{"+test:anything=1", true},
		{"+kubebuilder:object:root=true", false},
		{"+build linux", false},
	}
	for _, tt := range tests {
		if got := registry.Owns(tt.text); got != tt.want {
			t.Errorf("Owns(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSplitMarker(t *testing.T) {
	tests := []struct {
		input  string
		name   string
		args   string
		parens bool
	}{
		{"+test:flags", "test:flags", "", false},
		{"+test:id=42", "test:id", "42", false},
		{"+test:A=-7|78", "test:A", "-7|78", false},
		{"+test:A=(-7 | 78)", "test:A", "(-7 | 78)", false},
		{"+test:A(-7 | 78)", "test:A", "-7 | 78", true},
		{"+test:I_()", "test:I_", "", true},
		{"  +test:D_ = 3|-3|~4 ", "test:D_", "3|-3|~4", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, args, parens := SplitMarker(tt.input)
			if name != tt.name || args != tt.args || parens != tt.parens {
				t.Errorf("SplitMarker() = (%q, %q, %v), want (%q, %q, %v)", name, args, parens, tt.name, tt.args, tt.parens)
			}
		})
	}
}

func TestDefinition_Parse(t *testing.T) {
	registry := NewRegistry()

	// Register test markers
	type TestMarker struct {
		Name    string `marker:"name"`
		Count   int    `marker:"count,optional"`
		Enabled bool   `marker:"enabled,optional"`
	}

	registry.MustRegister("test:marker", DescribesType, TestMarker{}, "Test marker")

	def := registry.GetDefinition("test:marker")
	if def == nil {
		t.Fatal("Test marker not found")
	}

	tests := []struct {
		name     string
		input    string
		expected TestMarker
		wantErr  bool
	}{
		{
			name:     "simple name",
			input:    "+test:marker=name=example",
			expected: TestMarker{Name: "example"},
		},
		{
			name:     "multiple args",
			input:    "+test:marker=name=example,count=5,enabled=true",
			expected: TestMarker{Name: "example", Count: 5, Enabled: true},
		},
		{
			name:     "quoted string",
			input:    `+test:marker=name="quoted example"`,
			expected: TestMarker{Name: "quoted example"},
		},
		{
			name:     "empty marker",
			input:    "+test:marker",
			expected: TestMarker{},
		},
		{
			name:    "missing required argument",
			input:   "+test:marker=count=5",
			wantErr: true,
		},
		{
			name:    "unknown argument",
			input:   "+test:marker=name=x,size=5",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := def.Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if !reflect.DeepEqual(result, tt.expected) {
					t.Errorf("Parse() = %+v, expected %+v", result, tt.expected)
				}
			}
		})
	}
}

func TestDefinition_ParseScalars(t *testing.T) {
	registry := newTestRegistry(t)

	tests := []struct {
		name     string
		marker   string
		input    string
		expected interface{}
		wantErr  bool
	}{
		{name: "uint", marker: "test:id", input: "+test:id=42", expected: uint64(42)},
		{name: "uint in parentheses", marker: "test:id", input: "+test:id(42)", expected: uint64(42)},
		{name: "negative uint", marker: "test:id", input: "+test:id=-1", wantErr: true},
		{name: "bare uint", marker: "test:id", input: "+test:id", expected: uint64(0)},
		{name: "float", marker: "test:weight", input: "+test:weight=2.5", expected: 2.5},
		{name: "text", marker: "test:text", input: "+test:text=-7|78", expected: rawText{Text: "-7|78"}},
		{name: "text in parentheses", marker: "test:text", input: "+test:text(-7 | 78)", expected: rawText{Text: "-7 | 78"}},
		{name: "text empty parentheses", marker: "test:text", input: "+test:text()", expected: rawText{Text: "()"}},
		{name: "text absent", marker: "test:text", input: "+test:text", expected: rawText{}},
		{name: "flag with argument", marker: "test:generate", input: "+test:generate=yes", wantErr: true},
		{name: "flag with empty parentheses", marker: "test:generate", input: "+test:generate()", expected: struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := registry.GetDefinition(tt.marker)
			if def == nil {
				t.Fatalf("Marker %s not found", tt.marker)
			}
			result, err := def.Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("Parse() = %#v, want %#v", result, tt.expected)
			}
		})
	}
}

func TestCollector_ParseSource(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister("test:generate", DescribesType, struct{}{}, "Test generate marker")
	registry.MustRegister("test:required", DescribesField, struct{}{}, "Test required marker")

	collector := NewCollector(registry)

	source := `package test

// +test:generate
type User struct {
	// +test:required
	Name string ` + "`json:\"name\"`" + `
}
`

	markers, err := collector.ParseSource("test.go", source)
	if err != nil {
		t.Fatalf("Failed to parse source: %v", err)
	}

	if len(markers) != 2 {
		t.Fatalf("Expected 2 markers, got %d", len(markers))
	}

	// Markers come back in source order
	if markers[0].Name != "test:generate" || markers[0].Target != DescribesType {
		t.Errorf("markers[0] = %s/%v, want test:generate/type", markers[0].Name, markers[0].Target)
	}
	if markers[1].Name != "test:required" || markers[1].Target != DescribesField {
		t.Errorf("markers[1] = %s/%v, want test:required/field", markers[1].Name, markers[1].Target)
	}
}

func TestCollector_EachType(t *testing.T) {
	registry := newTestRegistry(t)
	collector := NewCollector(registry)

	source := `package test

// User is a user.
// +test:generate
type User struct {
	// +test:required
	Name string ` + "`json:\"name\"`" + `

	Email string ` + "`json:\"email\"`" + `
	*Base
}

type Product struct {
	ID string
}

type Color uint8
`

	tmpFile := filepath.Join(t.TempDir(), "test_temp.go")
	if err := os.WriteFile(tmpFile, []byte(source), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	var foundTypes []string
	err := collector.EachType(tmpFile, func(typeInfo *TypeInfo) {
		foundTypes = append(foundTypes, typeInfo.Name)

		switch typeInfo.Name {
		case "User":
			// Check that User has the generate marker
			if !typeInfo.Markers.Has("test:generate") {
				t.Error("User type should have test:generate marker")
			}
			if typeInfo.Doc != "User is a user." {
				t.Errorf("Doc = %q, marker lines should be left out", typeInfo.Doc)
			}
			if typeInfo.Kind != "struct" {
				t.Errorf("Kind = %q, want struct", typeInfo.Kind)
			}

			if len(typeInfo.Fields) != 3 {
				t.Fatalf("Expected 3 fields for User, got %d", len(typeInfo.Fields))
			}

			// Check that Name field has required marker
			if !typeInfo.Fields[0].Markers.Has("test:required") {
				t.Error("Name field should have test:required marker")
			}
			if typeInfo.Fields[0].Tag.Get("json") != "name" {
				t.Errorf("Tag = %q", typeInfo.Fields[0].Tag)
			}
			if base := typeInfo.Fields[2]; base.Name != "Base" || !base.Embedded || base.TypeExpr != "*Base" {
				t.Errorf("embedded field = %+v", base)
			}
		case "Color":
			if typeInfo.Kind != "ident" || typeInfo.Underlying != "uint8" {
				t.Errorf("Color = %s/%s, want ident/uint8", typeInfo.Kind, typeInfo.Underlying)
			}
		}
	})

	if err != nil {
		t.Fatalf("EachType failed: %v", err)
	}

	expectedTypes := []string{"User", "Product", "Color"}
	if !reflect.DeepEqual(foundTypes, expectedTypes) {
		t.Errorf("Expected types %v, got %v", expectedTypes, foundTypes)
	}

	// Cached ParseFile results survive the file going away until cleared
	if _, err := collector.ParseFile(tmpFile); err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if err := os.Remove(tmpFile); err != nil {
		t.Fatal(err)
	}
	if _, err := collector.ParseFile(tmpFile); err != nil {
		t.Errorf("ParseFile() after removal should be served from cache: %v", err)
	}
	collector.ClearCache()
	if _, err := collector.ParseFile(tmpFile); err == nil {
		t.Error("ParseFile() after ClearCache should read the file again")
	}
}

func TestCollector_ParseDirectory(t *testing.T) {
	registry := newTestRegistry(t)
	collector := NewCollector(registry)

	dir := t.TempDir()
	files := map[string]string{
		"a.go": "package p\n\n// +test:generate\ntype A struct{}\n",
		"b.go": "package p\n\ntype B struct{}\n",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result, err := collector.ParseDirectory(dir)
	if err != nil {
		t.Fatalf("ParseDirectory() error = %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("ParseDirectory() returned %d files, want 1", len(result))
	}
	if markers := result[filepath.Join(dir, "a.go")]; len(markers) != 1 || markers[0].Name != "test:generate" {
		t.Errorf("a.go markers = %+v", markers)
	}
}

func TestArgumentTypes(t *testing.T) {
	registry := NewRegistry()

	type SliceMarker struct {
		Items []string `marker:"items"`
	}

	type MapMarker struct {
		Config map[string]string `marker:"config"`
	}

	registry.MustRegister("test:slice", DescribesType, SliceMarker{}, "Test slice marker")
	registry.MustRegister("test:map", DescribesType, MapMarker{}, "Test map marker")

	tests := []struct {
		name     string
		marker   string
		input    string
		expected interface{}
	}{
		{
			name:     "slice with braces",
			marker:   "test:slice",
			input:    "+test:slice=items={item1,item2,item3}",
			expected: SliceMarker{Items: []string{"item1", "item2", "item3"}},
		},
		{
			name:     "slice with semicolons",
			marker:   "test:slice",
			input:    "+test:slice=items=item1;item2;item3",
			expected: SliceMarker{Items: []string{"item1", "item2", "item3"}},
		},
		{
			name:     "map",
			marker:   "test:map",
			input:    "+test:map=config={key1:value1,key2:value2}",
			expected: MapMarker{Config: map[string]string{"key1": "value1", "key2": "value2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := registry.GetDefinition(tt.marker)
			if def == nil {
				t.Fatalf("Marker %s not found", tt.marker)
			}

			result, err := def.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("Expected %+v, got %+v", tt.expected, result)
			}
		})
	}
}

func TestSplitTag(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"A", []string{"A"}},
		{"A=-7|78,D_=3|-3|~4", []string{"A=-7|78", "D_=3|-3|~4"}},
		{" I_() , D=(3|4)", []string{"I_()", "D=(3|4)"}},
		{"text=(1, 2),required", []string{"text=(1, 2)", "required"}},
		{"A,,V", []string{"A", "V"}},
	}
	for _, tt := range tests {
		if got := SplitTag(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitTag(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMarkerValues_Methods(t *testing.T) {
	values := make(MarkerValues)
	values["test"] = []interface{}{"value1", "value2"}
	values["empty"] = []interface{}{}

	// Test Get
	if got := values.Get("test"); got != "value1" {
		t.Errorf("Get() = %v, expected 'value1'", got)
	}

	if got := values.Get("empty"); got != nil {
		t.Errorf("Get() for empty slice = %v, expected nil", got)
	}

	if got := values.Get("nonexistent"); got != nil {
		t.Errorf("Get() for nonexistent = %v, expected nil", got)
	}

	// Test GetAll
	if got := values.GetAll("test"); !reflect.DeepEqual(got, []interface{}{"value1", "value2"}) {
		t.Errorf("GetAll() = %v, expected ['value1', 'value2']", got)
	}

	// Test Has
	if !values.Has("test") {
		t.Error("Has() for existing key should return true")
	}

	if !values.Has("empty") {
		t.Error("Has() for empty slice should return true")
	}

	if values.Has("nonexistent") {
		t.Error("Has() for nonexistent key should return false")
	}

	if got := values.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}
