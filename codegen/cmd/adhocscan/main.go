// Command adhocscan prints the AdHoc marker catalog and scans Go modules for
// markers, emitting the document a binary-protocol generator consumes.
//
//	adhocscan [-config adhoc.toml] [-log-level debug] catalog [-format table|json]
//	adhocscan scan [-dir .] [-format table|json|msgpack|openapi] [-out -]
//	adhocscan validate [-dir .]
//	adhocscan version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	adhoc "github.com/vast-data/go-adhoc"
	"github.com/vast-data/go-adhoc/codegen/schema"
	"github.com/vast-data/go-adhoc/internal/config"
	"github.com/vast-data/go-adhoc/internal/logging"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var (
	errUsage   = errors.New("usage")
	errInvalid = errors.New("validation failed")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: adhocscan [-config file] [-log-level level] <command> [flags]

commands:
  catalog    print the marker catalog
  scan       scan a module and write the marker document
  validate   scan a module and check the markers against the field types
  version    print the catalog version

global flags:
`)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("adhocscan", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "TOML config file")
	logLevel := global.String("log-level", "", "debug, info, warn or error")
	global.Usage = func() {
		usage(stderr)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "adhocscan: %v\n", err)
		return exitFailure
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if cfg.Log.File == "" {
		cfg.Log.Console = stderr
	}
	logger, cleanup, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "adhocscan: %v\n", err)
		return exitFailure
	}
	defer cleanup()

	command, rest := global.Arg(0), global.Args()[1:]
	switch command {
	case "catalog":
		err = runCatalog(rest, stdout, stderr)
	case "scan":
		err = runScan(ctx, cfg, logger, rest, stdout, stderr)
	case "validate":
		err = runValidate(ctx, cfg, logger, rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, adhoc.CatalogVersion())
	default:
		fmt.Fprintf(stderr, "adhocscan: unknown command %q\n", command)
		global.Usage()
		return exitUsage
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, errInvalid):
		return exitFailure
	default:
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(stderr, "adhocscan %s: %v\n", command, err)
		return exitFailure
	}
}

// parseFlags wraps flag parse failures so run can exit with the usage code.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func runCatalog(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "table", "table or json")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	catalog := adhoc.Catalog()
	switch *format {
	case "table":
		_, err := io.WriteString(stdout, schema.CatalogTable(catalog))
		return err
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Version string       `json:"version"`
			Markers []adhoc.Spec `json:"markers"`
		}{adhoc.CatalogVersion(), catalog})
	default:
		fmt.Fprintf(stderr, "unknown catalog format %q\n", *format)
		return errUsage
	}
}

func runScan(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", ".", "module root to scan")
	formatName := fs.String("format", cfg.Format, "table, json, msgpack or openapi")
	out := fs.String("out", "-", "output file, - for stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	format, err := schema.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	doc, err := scan(ctx, cfg, logger, *dir)
	if err != nil {
		return err
	}

	w := stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := schema.Encode(w, doc, format); err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if len(doc.Issues) > 0 {
		logger.Warn("document has marker issues", zap.Int("issues", len(doc.Issues)))
	}
	return nil
}

func runValidate(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", ".", "module root to scan")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	doc, err := scan(ctx, cfg, logger, *dir)
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintln(stderr, line)
		}
		return errInvalid
	}
	fmt.Fprintf(stdout, "ok: %d packs\n", len(doc.Packs))
	return nil
}

func scan(ctx context.Context, cfg *config.Config, logger *zap.Logger, dir string) (*schema.Document, error) {
	opts := append(cfg.ScannerOptions(), schema.WithLogger(logger))
	return schema.NewScanner(opts...).ScanDir(ctx, dir)
}
