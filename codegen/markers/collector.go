package markers

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Collector collects and parses marker comments from Go source code.
type Collector struct {
	Registry *Registry

	// struct tag channel, disabled when tagKey is empty
	tagKey    string
	tagPrefix string

	// Cache parsed results by file path
	cache map[string][]MarkerValue
	mu    sync.RWMutex
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithStructTag makes the collector read the struct tag key as a list of field
// markers of the given prefix: `adhoc:"A=5,D=3|4"` with prefix "adhoc" is read
// as "+adhoc:A=5" and "+adhoc:D=3|4".
func WithStructTag(key, prefix string) CollectorOption {
	return func(c *Collector) {
		c.tagKey = key
		c.tagPrefix = prefix
	}
}

// NewCollector creates a new marker collector with the given registry.
func NewCollector(registry *Registry, opts ...CollectorOption) *Collector {
	c := &Collector{
		Registry: registry,
		cache:    make(map[string][]MarkerValue),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseFile parses all markers in a Go source file.
func (c *Collector) ParseFile(filename string) ([]MarkerValue, error) {
	// Check cache first
	c.mu.RLock()
	if cached, exists := c.cache[filename]; exists {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	info, err := c.InspectFile(filename)
	if err != nil {
		return nil, err
	}

	// Cache the results
	c.mu.Lock()
	c.cache[filename] = info.Markers
	c.mu.Unlock()

	return info.Markers, nil
}

// ParseSource parses markers from Go source code provided as a string.
func (c *Collector) ParseSource(filename string, src string) ([]MarkerValue, error) {
	info, err := c.InspectSource(filename, src)
	if err != nil {
		return nil, err
	}
	return info.Markers, nil
}

// ParseDirectory parses all Go files in a directory and returns markers grouped by file.
func (c *Collector) ParseDirectory(dir string) (map[string][]MarkerValue, error) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory %s: %w", dir, err)
	}

	result := make(map[string][]MarkerValue)

	for _, pkg := range pkgs {
		for filename, file := range pkg.Files {
			info := c.inspect(fset, filename, file)
			if len(info.Markers) > 0 {
				result[filename] = info.Markers
			}
		}
	}

	return result, nil
}

// InspectFile reads one Go file from disk.
func (c *Collector) InspectFile(filename string) (*FileInfo, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filename, err)
	}
	return c.inspect(fset, filename, file), nil
}

// InspectSource reads Go source given as a string, []byte or io.Reader.
func (c *Collector) InspectSource(filename string, src interface{}) (*FileInfo, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	return c.inspect(fset, filename, file), nil
}

// EachType calls the callback for each type found in the file with its markers.
func (c *Collector) EachType(filename string, callback TypeCallback) error {
	info, err := c.InspectFile(filename)
	if err != nil {
		return err
	}
	for _, typeInfo := range info.Types {
		callback(typeInfo)
	}
	return nil
}

// EachTypeSource is EachType for in-memory source.
func (c *Collector) EachTypeSource(filename string, src interface{}, callback TypeCallback) error {
	info, err := c.InspectSource(filename, src)
	if err != nil {
		return err
	}
	for _, typeInfo := range info.Types {
		callback(typeInfo)
	}
	return nil
}

// ClearCache clears the internal cache of parsed files.
func (c *Collector) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]MarkerValue)
}

// fileState accumulates results while one file is walked.
type fileState struct {
	fset *token.FileSet
	info *FileInfo
}

func (s *fileState) diagnose(d Diagnostic, pos token.Pos) Diagnostic {
	if s.fset != nil && pos.IsValid() {
		d.Position = s.fset.Position(pos)
	}
	s.info.Diagnostics = append(s.info.Diagnostics, d)
	return d
}

// inspect walks the top-level declarations of a parsed file.
func (c *Collector) inspect(fset *token.FileSet, filename string, file *ast.File) *FileInfo {
	state := &fileState{
		fset: fset,
		info: &FileInfo{Filename: filename, Package: file.Name.Name, RawFile: file, Fset: fset},
	}

	// Package level markers live in the file doc comment
	c.collectComments(state, file.Doc, DescribesPackage, file.Name.Name, file, make(MarkerValues), nil)

	for _, decl := range file.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			if decl.Tok == token.TYPE {
				if len(decl.Specs) > 1 {
					// A doc comment on a grouped declaration belongs to no single type
					c.collectComments(state, decl.Doc, DescribesDeclaration, "type group", decl, nil, nil)
				}
				for _, spec := range decl.Specs {
					if typeSpec, ok := spec.(*ast.TypeSpec); ok {
						state.info.Types = append(state.info.Types, c.buildTypeInfo(state, typeSpec, decl, file))
					}
				}
				continue
			}
			c.collectComments(state, decl.Doc, DescribesDeclaration, decl.Tok.String(), decl, nil, nil)
			for _, spec := range decl.Specs {
				if valueSpec, ok := spec.(*ast.ValueSpec); ok {
					owner := identNames(valueSpec.Names)
					c.collectComments(state, valueSpec.Doc, DescribesDeclaration, owner, valueSpec, nil, nil)
					c.collectComments(state, valueSpec.Comment, DescribesDeclaration, owner, valueSpec, nil, nil)
				}
			}
		case *ast.FuncDecl:
			c.collectComments(state, decl.Doc, DescribesDeclaration, decl.Name.Name, decl, nil, nil)
		}
	}

	sort.SliceStable(state.info.Markers, func(i, j int) bool {
		return state.info.Markers[i].Position < state.info.Markers[j].Position
	})
	return state.info
}

// buildTypeInfo creates a TypeInfo from an AST type spec.
func (c *Collector) buildTypeInfo(state *fileState, typeSpec *ast.TypeSpec, genDecl *ast.GenDecl, file *ast.File) *TypeInfo {
	typeInfo := &TypeInfo{
		Name:    typeSpec.Name.Name,
		Kind:    typeKind(typeSpec.Type),
		Markers: make(MarkerValues),
		Doc:     c.extractDoc(typeSpec.Doc),
		RawDecl: genDecl,
		RawSpec: typeSpec,
		RawFile: file,
	}
	if typeInfo.Kind != "struct" {
		typeInfo.Underlying = types.ExprString(typeSpec.Type)
	}

	// Also include markers from the GenDecl if it's a single type declaration
	if len(genDecl.Specs) == 1 {
		c.collectComments(state, genDecl.Doc, DescribesType, typeInfo.Name, typeSpec, typeInfo.Markers, &typeInfo.Diagnostics)
		if typeInfo.Doc == "" {
			typeInfo.Doc = c.extractDoc(genDecl.Doc)
		}
	}
	c.collectComments(state, typeSpec.Doc, DescribesType, typeInfo.Name, typeSpec, typeInfo.Markers, &typeInfo.Diagnostics)
	c.collectComments(state, typeSpec.Comment, DescribesType, typeInfo.Name, typeSpec, typeInfo.Markers, &typeInfo.Diagnostics)

	// Build field info if this is a struct
	structType, ok := typeSpec.Type.(*ast.StructType)
	if !ok || structType.Fields == nil {
		return typeInfo
	}
	for _, field := range structType.Fields.List {
		names := make([]string, 0, len(field.Names))
		for _, name := range field.Names {
			names = append(names, name.Name)
		}
		embedded := len(names) == 0
		if embedded {
			// Anonymous field
			names = append(names, embeddedName(field.Type))
		}

		for _, name := range names {
			fieldInfo := FieldInfo{
				Name:     name,
				Embedded: embedded,
				TypeExpr: types.ExprString(field.Type),
				Markers:  make(MarkerValues),
				Tag:      reflect.StructTag(c.parseStructTag(field.Tag)),
				Doc:      c.extractDoc(field.Doc),
				RawField: field,
			}
			owner := typeInfo.Name + "." + name
			c.collectComments(state, field.Doc, DescribesField, owner, field, fieldInfo.Markers, &typeInfo.Diagnostics, &fieldInfo.Order)
			c.collectComments(state, field.Comment, DescribesField, owner, field, fieldInfo.Markers, &typeInfo.Diagnostics, &fieldInfo.Order)
			c.collectTag(state, field, owner, fieldInfo.Markers, &typeInfo.Diagnostics, &fieldInfo.Order)
			typeInfo.Fields = append(typeInfo.Fields, fieldInfo)
		}
	}

	return typeInfo
}

// collectComments applies the marker comments of a comment group. Parsed values go
// to values, diagnostics to diags and marker names to the optional order list.
func (c *Collector) collectComments(state *fileState, group *ast.CommentGroup, target TargetType, owner string, node ast.Node, values MarkerValues, diags *[]Diagnostic, order ...*[]string) {
	if group == nil {
		return
	}
	for _, comment := range group.List {
		if !isMarkerComment(comment.Text) {
			continue
		}
		c.apply(state, extractMarkerText(comment.Text), target, owner, node, comment.Pos(), false, values, diags, order...)
	}
}

// collectTag applies the entries of the configured struct tag key.
func (c *Collector) collectTag(state *fileState, field *ast.Field, owner string, values MarkerValues, diags *[]Diagnostic, order ...*[]string) {
	if c.tagKey == "" || field.Tag == nil {
		return
	}
	tagValue, ok := reflect.StructTag(c.parseStructTag(field.Tag)).Lookup(c.tagKey)
	if !ok {
		return
	}
	for _, entry := range SplitTag(tagValue) {
		markerText := "+" + c.tagPrefix + ":" + entry
		c.apply(state, markerText, DescribesField, owner, field, field.Tag.Pos(), true, values, diags, order...)
	}
}

// apply resolves one marker. Markers of foreign prefixes are ignored; owned markers
// that are unknown, misplaced or malformed become diagnostics.
func (c *Collector) apply(state *fileState, markerText string, target TargetType, owner string, node ast.Node, pos token.Pos, fromTag bool, values MarkerValues, diags *[]Diagnostic, order ...*[]string) {
	if !c.Registry.Owns(markerText) {
		return
	}

	report := func(err error) {
		d := state.diagnose(Diagnostic{
			Marker: strings.TrimPrefix(markerText, "+"),
			Owner:  owner,
			Target: target,
			Err:    err,
		}, pos)
		if diags != nil {
			*diags = append(*diags, d)
		}
	}

	var def *Definition
	var err error
	if target == DescribesDeclaration {
		def = c.Registry.GetDefinition(c.Registry.extractMarkerName(markerText))
		if def == nil {
			report(fmt.Errorf("%w: %s", ErrUnknownMarker, c.Registry.extractMarkerName(markerText)))
			return
		}
		report(&TargetError{Marker: def.Name, Want: def.Target, Got: target})
		return
	}
	def, err = c.Registry.Lookup(markerText, target)
	if err != nil {
		report(err)
		return
	}

	value, err := def.Parse(markerText)
	if err != nil {
		report(err)
		return
	}

	if values != nil {
		values[def.Name] = append(values[def.Name], value)
	}
	for _, o := range order {
		*o = append(*o, def.Name)
	}
	state.info.Markers = append(state.info.Markers, MarkerValue{
		Name:     def.Name,
		Value:    value,
		Node:     node,
		Target:   target,
		Position: pos,
		FromTag:  fromTag,
	})
}

// SplitTag splits a marker struct tag value into its comma separated entries.
// Commas inside parentheses or braces do not split.
func SplitTag(value string) []string {
	var entries []string
	depth := 0
	start := 0
	flush := func(end int) {
		if entry := strings.TrimSpace(value[start:end]); entry != "" {
			entries = append(entries, entry)
		}
	}
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '(', '{':
			depth++
		case ')', '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(value))
	return entries
}

// parseStructTag parses a struct tag into a reflect.StructTag.
func (c *Collector) parseStructTag(tag *ast.BasicLit) string {
	if tag == nil {
		return ""
	}
	// Remove backticks
	tagStr := tag.Value
	if len(tagStr) >= 2 && tagStr[0] == '`' && tagStr[len(tagStr)-1] == '`' {
		return tagStr[1 : len(tagStr)-1]
	}
	return tagStr
}

// extractDoc extracts documentation text from a comment group, leaving out marker lines.
func (c *Collector) extractDoc(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}

	var lines []string
	for _, comment := range doc.List {
		if isMarkerComment(comment.Text) {
			continue
		}
		line := comment.Text
		if strings.HasPrefix(line, "//") {
			line = strings.TrimSpace(line[2:])
		} else if strings.HasPrefix(line, "/*") && strings.HasSuffix(line, "*/") {
			line = strings.TrimSpace(line[2 : len(line)-2])
		}
		if line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

func typeKind(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.StructType:
		return "struct"
	case *ast.InterfaceType:
		return "interface"
	case *ast.Ident, *ast.SelectorExpr:
		return "ident"
	default:
		return "other"
	}
}

func embeddedName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return embeddedName(e.X)
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(e.X)
	case *ast.IndexListExpr:
		return embeddedName(e.X)
	case *ast.Ident:
		return e.Name
	default:
		return types.ExprString(expr)
	}
}

func identNames(idents []*ast.Ident) string {
	names := make([]string, 0, len(idents))
	for _, ident := range idents {
		names = append(names, ident.Name)
	}
	return strings.Join(names, ", ")
}
