/*
Package markers provides utilities for parsing and processing "marker comments"
and marker struct tags from Go source code, in the spirit of controller-tools.

Marker comments are special comments that start with `// +` and attach
metadata to the declaration they document. The package never executes the
annotated code: everything is read from the AST.

# Basic Usage

	registry := markers.NewRegistry()

	// Register markers
	registry.MustRegister("adhoc:flags", markers.DescribesType, struct{}{}, "bit flag enum")
	registry.MustRegister("adhoc:id", markers.DescribesType, uint64(0), "pack identifier")

	// Parse a Go file
	collector := markers.NewCollector(registry, markers.WithStructTag("adhoc", "adhoc"))
	err := collector.EachType("example.go", func(info *markers.TypeInfo) { ... })

# Marker Syntax

Markers follow the general form:

	// +prefix:name
	// +prefix:name=value
	// +prefix:name(value)
	// +prefix:name()
	// +prefix:name=key=value,key2=value2

The empty parenthesised form is distinct from the bare form: it is handed to
the output type as the literal argument "()" when that type implements
encoding.TextUnmarshaler, and is otherwise equivalent to the bare form.

When a struct tag key is configured, each comma separated entry of that tag is
read as a marker of the configured prefix:

	Temp int16 `adhoc:"A=-7|78"`   // same as: // +adhoc:A=-7|78

# Supported Argument Types

- Strings: `name="value"` or `name=value`
- Integers: `count=42`, unsigned integers and floats
- Booleans: `enabled=true`
- Slices: `items={val1,val2,val3}` or `items=val1;val2;val3`
- Maps: `config={key1:value1,key2:value2}`
- Any type implementing encoding.TextUnmarshaler receives the raw argument text

# Target Types

Markers can target different Go constructs:

- DescribesPackage: Package-level markers
- DescribesType: Type declarations
- DescribesField: Struct field declarations

A registered marker found on the wrong kind of construct is reported as a
Diagnostic wrapping a *TargetError.
*/
package markers
