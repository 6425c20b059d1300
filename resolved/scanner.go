package resolved

// Scanner is an opaque per-rule dependency scanner attached to the prepare-
// script scope before a rule with a matching ScannerHookName is applied.
// The original hard-codes exactly one such scanner (QtMocScanner, attached
// only for a rule literally named "QtCoreMocRule"); this generalizes it
// per SPEC_FULL.md §3 into a name-addressed registry so any rule can
// declare one.
type Scanner interface {
	// Name identifies the scanner for ScannerRegistry lookups and for the
	// scope binding name scripts see it under.
	Name() string
}

// ScannerRegistry resolves a Rule.ScannerHookName to a Scanner instance for
// a given product. Kept as an interface (rather than a concrete map)
// because scanner construction is typically product-specific (e.g. it
// needs to inspect the product's current artifact set).
type ScannerRegistry interface {
	Scanner(hookName string, product *ResolvedProduct) (Scanner, error)
}

