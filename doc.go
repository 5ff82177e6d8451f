/*
Package adhoc defines the AdHoc marker catalog: static metadata attached to Go
declarations and read by an external binary-protocol code generator. Markers have
no runtime behavior; the generator reads them without executing the annotated code.

Field markers describe how a field's values are distributed (A, A_, V, V_, X_, I, I_)
and whether the field is a multidimensional array (D, D_). Type markers declare an
enum as a bit flags set (flags) and assign a pack identifier (id).

Field markers are written as a struct tag or as a comment marker:

	type Reading struct {
		Temp   int16   `adhoc:"A=-7|78"`
		Counts []int32 `adhoc:"D_=3|-3|~4,I_"`

		// +adhoc:V=1000
		Latency uint32
	}

Type markers are written as comment markers or declared as methods, so that a
field marker cannot be attached to a type and a type marker cannot be attached to
a field:

	// +adhoc:flags
	type Perm uint8

	func (Perm) AdHocBitflags() {}

	// +adhoc:id=7
	type Login struct{ ... }

	func (Login) AdHocPackID() uint64 { return 7 }

Inspect reads the struct tag and method set channels through reflection. The
codegen/schema package reads all channels from source and produces the document
the generator consumes.
*/
package adhoc
