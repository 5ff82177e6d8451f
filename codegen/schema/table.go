package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bndr/gotabulate"

	adhoc "github.com/vast-data/go-adhoc"
)

const maxCellSize = 85

// Table renders every pack as a grid of its fields, followed by the issues.
func Table(doc *Document) string {
	var b strings.Builder
	for _, pack := range doc.Packs {
		header := pack.QualifiedName()
		var attrs []string
		if pack.ID != nil {
			attrs = append(attrs, "id="+strconv.FormatUint(*pack.ID, 10))
		}
		if pack.Bitflags {
			attrs = append(attrs, "flags")
		}
		if len(attrs) > 0 {
			header += " [" + strings.Join(attrs, " ") + "]"
		}
		b.WriteString(header)
		b.WriteString(":\n")
		if len(pack.Fields) == 0 {
			b.WriteString(pack.Kind)
			if pack.Underlying != "" {
				b.WriteString(" " + pack.Underlying)
			}
			b.WriteString("\n\n")
			continue
		}

		rows := make([][]any, 0, len(pack.Fields))
		for _, field := range pack.Fields {
			rows = append(rows, []any{
				field.Name,
				field.Type,
				strconv.FormatBool(field.Optional),
				distributionCell(field.Distribution),
				dimsCell(field),
			})
		}
		b.WriteString(render([]string{"field", "type", "optional", "distribution", "dims"}, rows))
		b.WriteString("\n")
	}

	if len(doc.Issues) > 0 {
		rows := make([][]any, 0, len(doc.Issues))
		for _, issue := range doc.Issues {
			owner := issue.Pack
			if issue.Field != "" {
				owner += "." + issue.Field
			}
			rows = append(rows, []any{owner, issue.Marker, issue.Position, issue.Message})
		}
		b.WriteString("issues:\n")
		b.WriteString(render([]string{"owner", "marker", "position", "message"}, rows))
	}
	return b.String()
}

// CatalogTable renders the marker catalog.
func CatalogTable(catalog []adhoc.Spec) string {
	rows := make([][]any, 0, len(catalog))
	for _, spec := range catalog {
		param := spec.Param.String()
		if spec.Param != adhoc.ParamNone && !spec.ParamRequired {
			param += " (optional)"
		}
		rows = append(rows, []any{string(spec.Marker), spec.Target.String(), param, spec.Description})
	}
	return render([]string{"marker", "target", "parameter", "description"}, rows)
}

func render(headers []string, rows [][]any) string {
	t := gotabulate.Create(rows)
	t.SetHeaders(headers)
	t.SetAlign("left")
	t.SetWrapStrings(true)
	t.SetMaxCellSize(maxCellSize)
	return t.Render("grid")
}

func distributionCell(dist *adhoc.Distribution) string {
	if dist == nil {
		return ""
	}
	cell := string(dist.Marker) + " " + dist.Shape.String()
	if !dist.Bound.Absent() {
		cell += " " + dist.Bound.String()
	}
	if dist.Unsigned {
		cell += " unsigned"
	}
	return cell
}

func dimsCell(field Field) string {
	if field.DimsMarker == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", field.DimsMarker, field.Dims)
}
