package adhoc

// Bitflags is the flags marker for enumerated types. A type opts in by declaring
// the method; only integer kinds may do so.
//
//	type Perm uint8
//
//	func (Perm) AdHocBitflags() {}
type Bitflags interface {
	AdHocBitflags()
}

// Identified is the id marker. The returned value must be constant for the type
// and unique within a schema.
//
//	func (Login) AdHocPackID() uint64 { return 7 }
type Identified interface {
	AdHocPackID() uint64
}
