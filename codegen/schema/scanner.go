package schema

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/modfile"

	adhoc "github.com/vast-data/go-adhoc"
	"github.com/vast-data/go-adhoc/codegen/markers"
)

const (
	bitflagsMethod = "AdHocBitflags"
	packIDMethod   = "AdHocPackID"
)

var defaultSkipDirs = []string{"testdata", "vendor", "node_modules"}

// Scanner reads marker metadata from the Go files of a module.
type Scanner struct {
	prefix   string
	tagKey   string
	skipDirs map[string]struct{}
	logger   *zap.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPrefix sets the comment marker prefix, adhoc.DefaultPrefix by default.
func WithPrefix(prefix string) ScannerOption {
	return func(s *Scanner) {
		s.prefix = prefix
	}
}

// WithTagKey sets the struct tag key holding field markers. An empty key
// disables the struct tag channel.
func WithTagKey(key string) ScannerOption {
	return func(s *Scanner) {
		s.tagKey = key
	}
}

// WithSkipDirs adds directory names that are never descended into.
func WithSkipDirs(names ...string) ScannerOption {
	return func(s *Scanner) {
		for _, name := range names {
			s.skipDirs[name] = struct{}{}
		}
	}
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		prefix:   adhoc.DefaultPrefix,
		tagKey:   adhoc.TagKey,
		skipDirs: make(map[string]struct{}, len(defaultSkipDirs)),
		logger:   zap.NewNop(),
	}
	for _, name := range defaultSkipDirs {
		s.skipDirs[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scannedFile is one inspected file and the import path of its package.
type scannedFile struct {
	importPath string
	rel        string
	info       *markers.FileInfo
}

// methodMarkers are type markers declared through the method set.
type methodMarkers struct {
	bitflags bool
	id       *uint64
	issues   []Issue
}

// ScanDir scans the module rooted at dir.
func (s *Scanner) ScanDir(ctx context.Context, dir string) (*Document, error) {
	return s.ScanFS(ctx, os.DirFS(dir), ".")
}

// ScanFS scans every package below root. If root holds a go.mod its module path
// prefixes the package import paths. Test files, testdata, hidden and underscore
// directories, and nested modules are skipped.
func (s *Scanner) ScanFS(ctx context.Context, fsys fs.FS, root string) (*Document, error) {
	registry := markers.NewRegistry()
	if err := adhoc.RegisterMarkers(registry, s.prefix); err != nil {
		return nil, fmt.Errorf("register markers under %q: %w", s.prefix, err)
	}
	var opts []markers.CollectorOption
	if s.tagKey != "" {
		opts = append(opts, markers.WithStructTag(s.tagKey, s.prefix))
	}
	collector := markers.NewCollector(registry, opts...)

	doc := &Document{CatalogVersion: adhoc.CatalogVersion()}
	if goMod, err := fs.ReadFile(fsys, path.Join(root, "go.mod")); err == nil {
		doc.Module = modfile.ModulePath(goMod)
	} else {
		s.logger.Warn("no go.mod at scan root, import paths are relative", zap.String("root", root))
	}

	var files []scannedFile
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && s.skipDir(fsys, p, d.Name()) {
				s.logger.Debug("skipping directory", zap.String("dir", p))
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, ".go") || strings.HasSuffix(p, "_test.go") {
			return nil
		}

		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		info, err := collector.InspectSource(p, src)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		rel := relPath(root, p)
		files = append(files, scannedFile{
			importPath: importPath(doc.Module, path.Dir(rel)),
			rel:        rel,
			info:       info,
		})
		s.logger.Debug("inspected file",
			zap.String("file", rel),
			zap.Int("types", len(info.Types)),
			zap.Int("markers", len(info.Markers)),
			zap.Int("diagnostics", len(info.Diagnostics)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	methods := make(map[string]map[string]*methodMarkers)
	for _, file := range files {
		pkgMethods, ok := methods[file.importPath]
		if !ok {
			pkgMethods = make(map[string]*methodMarkers)
			methods[file.importPath] = pkgMethods
		}
		readMethods(file.info, pkgMethods)
	}

	for _, file := range files {
		for _, d := range file.info.Diagnostics {
			doc.Issues = append(doc.Issues, diagnosticIssue(file.importPath, d))
		}
		for _, typeInfo := range file.info.Types {
			pack, issues, marked := s.buildPack(typeInfo, methods[file.importPath][typeInfo.Name], file)
			doc.Issues = append(doc.Issues, issues...)
			if marked {
				doc.Packs = append(doc.Packs, pack)
			}
		}
	}

	s.logger.Info("scan complete",
		zap.String("module", doc.Module),
		zap.Int("files", len(files)),
		zap.Int("packs", len(doc.Packs)),
		zap.Int("issues", len(doc.Issues)))
	return doc, nil
}

func (s *Scanner) skipDir(fsys fs.FS, p, name string) bool {
	if _, skip := s.skipDirs[name]; skip {
		return true
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	// nested module
	if _, err := fs.Stat(fsys, path.Join(p, "go.mod")); err == nil {
		return true
	}
	return false
}

// buildPack turns one declared type into a Pack. marked is false when neither
// the type nor any of its fields carries a marker.
func (s *Scanner) buildPack(typeInfo *markers.TypeInfo, declared *methodMarkers, file scannedFile) (pack Pack, issues []Issue, marked bool) {
	pack = Pack{
		Name:       typeInfo.Name,
		Package:    file.importPath,
		File:       file.rel,
		Kind:       typeInfo.Kind,
		Underlying: typeInfo.Underlying,
		Doc:        typeInfo.Doc,
	}
	qualified := pack.QualifiedName()
	issue := func(field string, marker adhoc.Marker, err error) {
		issues = append(issues, Issue{Pack: qualified, Field: field, Marker: string(marker), Message: err.Error()})
	}

	if typeInfo.Markers.Has(s.name(adhoc.BitFlags)) {
		pack.Bitflags = true
		marked = true
	}
	for _, value := range typeInfo.Markers.GetAll(s.name(adhoc.PackID)) {
		marked = true
		ann, err := adhoc.AnnotationOf(adhoc.PackID, value)
		if err != nil {
			issue("", adhoc.PackID, err)
			continue
		}
		if pack.ID != nil && *pack.ID != *ann.ID {
			issue("", adhoc.PackID, fmt.Errorf("%w: id=%d and id=%d", adhoc.ErrConflictingMarkers, *pack.ID, *ann.ID))
			continue
		}
		pack.ID = ann.ID
	}

	if declared != nil {
		if declared.bitflags {
			pack.Bitflags = true
			marked = true
		}
		if declared.id != nil {
			marked = true
			if pack.ID != nil && *pack.ID != *declared.id {
				issue("", adhoc.PackID, fmt.Errorf("%w: id=%d and %s() returning %d",
					adhoc.ErrConflictingMarkers, *pack.ID, packIDMethod, *declared.id))
			} else {
				pack.ID = declared.id
			}
		}
		for _, methodIssue := range declared.issues {
			methodIssue.Pack = qualified
			issues = append(issues, methodIssue)
			marked = true
		}
	}

	for _, fieldInfo := range typeInfo.Fields {
		anns := make([]adhoc.Annotation, 0, len(fieldInfo.Order))
		seen := make(map[string]int, len(fieldInfo.Order))
		var failed bool
		for _, name := range fieldInfo.Order {
			values := fieldInfo.Markers.GetAll(name)
			if seen[name] >= len(values) {
				continue
			}
			value := values[seen[name]]
			seen[name]++
			marker := adhoc.Marker(strings.TrimPrefix(name, s.prefix+":"))
			ann, err := adhoc.AnnotationOf(marker, value)
			if err != nil {
				issue(fieldInfo.Name, marker, err)
				failed = true
				continue
			}
			anns = append(anns, ann)
		}
		if len(fieldInfo.Order) > 0 {
			marked = true
		}

		resolved, err := adhoc.ResolveField(anns)
		if err != nil {
			for _, e := range flatten(err) {
				var markerErr *adhoc.MarkerError
				var marker adhoc.Marker
				if errors.As(e, &markerErr) {
					marker = markerErr.Marker
				}
				issue(fieldInfo.Name, marker, e)
			}
			failed = true
			resolved = adhoc.FieldMarkers{}
		}
		if failed {
			// keep what was written so the generator still sees the field markers
			resolved.Markers = resolved.Markers[:0]
			for _, ann := range anns {
				resolved.Markers = append(resolved.Markers, ann.Marker)
			}
		}
		pack.Fields = append(pack.Fields, newField(fieldInfo.Name, fieldInfo.TypeExpr, resolved))
	}
	return pack, issues, marked
}

func (s *Scanner) name(marker adhoc.Marker) string {
	return s.prefix + ":" + string(marker)
}

// readMethods records AdHocBitflags and AdHocPackID declarations by receiver type.
// The pack id must be returned as an integer literal so it can be read without
// running the code.
func readMethods(info *markers.FileInfo, into map[string]*methodMarkers) {
	if info.RawFile == nil {
		return
	}
	for _, decl := range info.RawFile.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) != 1 {
			continue
		}
		if fn.Name.Name != bitflagsMethod && fn.Name.Name != packIDMethod {
			continue
		}
		recv := receiverName(fn.Recv.List[0].Type)
		if recv == "" {
			continue
		}
		m, ok := into[recv]
		if !ok {
			m = &methodMarkers{}
			into[recv] = m
		}

		switch fn.Name.Name {
		case bitflagsMethod:
			m.bitflags = true
		case packIDMethod:
			id, err := literalReturn(fn)
			if err != nil {
				m.issues = append(m.issues, Issue{
					Marker:   string(adhoc.PackID),
					Position: position(info.Fset, fn.Pos()),
					Message:  err.Error(),
				})
				continue
			}
			m.id = &id
		}
	}
}

// receiverName strips pointers and type parameters from a receiver type.
func receiverName(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func literalReturn(fn *ast.FuncDecl) (uint64, error) {
	if fn.Body == nil || len(fn.Body.List) != 1 {
		return 0, fmt.Errorf("%w: %s must be a single return statement", adhoc.ErrMalformedParam, packIDMethod)
	}
	ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return 0, fmt.Errorf("%w: %s must be a single return statement", adhoc.ErrMalformedParam, packIDMethod)
	}
	lit, ok := ret.Results[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.INT {
		return 0, fmt.Errorf("%w: %s must return an integer literal", adhoc.ErrMalformedParam, packIDMethod)
	}
	id, err := strconv.ParseUint(lit.Value, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s returns %s: %w", adhoc.ErrMalformedParam, packIDMethod, lit.Value, err)
	}
	return id, nil
}

func diagnosticIssue(importPath string, d markers.Diagnostic) Issue {
	issue := Issue{Marker: d.Marker, Message: d.Err.Error()}
	if d.Position.IsValid() {
		issue.Position = d.Position.String()
	}
	if d.Target == markers.DescribesPackage {
		issue.Pack = importPath
		if importPath == "" {
			issue.Pack = d.Owner
		}
		return issue
	}
	typeName, field, _ := strings.Cut(d.Owner, ".")
	issue.Pack = importPath + "." + typeName
	if importPath == "" {
		issue.Pack = typeName
	}
	issue.Field = field
	return issue
}

func position(fset *token.FileSet, pos token.Pos) string {
	if fset == nil || !pos.IsValid() {
		return ""
	}
	return fset.Position(pos).String()
}

// flatten splits an errors.Join result into its parts.
func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func relPath(root, p string) string {
	if root == "." || root == "" {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
}

func importPath(module, dir string) string {
	if dir == "." {
		dir = ""
	}
	if module == "" {
		return dir
	}
	return path.Join(module, dir)
}
