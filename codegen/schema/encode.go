package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	adhoc "github.com/vast-data/go-adhoc"
)

// Format is an output encoding of a Document.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	// FormatOpenAPI renders the packs as OpenAPI 3 component schemas. Write only.
	FormatOpenAPI Format = "openapi"
	// FormatTable renders a human readable grid. Write only.
	FormatTable Format = "table"
)

// ErrUnsupportedFormat is returned for unknown formats and for decoding a write only format.
var ErrUnsupportedFormat = errors.New("unsupported format")

var formats = []Format{FormatJSON, FormatMsgpack, FormatOpenAPI, FormatTable}

// Formats lists every known format.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

// ParseFormat accepts a format name in any case.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Encode writes doc to w in the given format.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(doc)
	case FormatOpenAPI:
		spec := OpenAPI(doc)
		data, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal openapi document: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatTable:
		_, err := io.WriteString(w, Table(doc))
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Decode reads a document written by Encode in the json or msgpack format and
// checks that its catalog version can be read by this build.
func Decode(r io.Reader, format Format) (*Document, error) {
	doc := &Document{}
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(doc)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(doc)
	default:
		return nil, fmt.Errorf("%w: cannot decode %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s document: %w", format, err)
	}
	if err := adhoc.Compatible(doc.CatalogVersion); err != nil {
		return nil, err
	}
	return doc, nil
}
