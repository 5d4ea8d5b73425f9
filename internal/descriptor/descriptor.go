// Package descriptor defines the class and method descriptors shared by the
// registry, resolver, and report builder.
package descriptor

// Method describes one method declared directly in a class body.
// Values are never mutated after extraction.
type Method struct {
	Name      string
	Line      int // 1-based line of the def keyword
	Column    int // 0-based column
	EndLine   int
	EndColumn int

	IsAsync       bool
	IsAbstract    bool
	IsStatic      bool
	IsClassMethod bool
	IsProperty    bool

	// Decorator names in source order. Duplicates are kept.
	Decorators []string

	ClassName string // identity of the owning class
	FilePath  string
}

// Class describes one registered class.
type Class struct {
	Identity string
	File     string
	Line     int // 1-based line of the class keyword

	// MRO is the method-resolution order with the class itself first.
	// Entries after the first may be unresolved references.
	MRO []string

	// RawBases holds the direct base identifiers exactly as supplied at
	// registration time. They may be ambiguous or unresolved.
	RawBases []string

	Methods []Method
}
