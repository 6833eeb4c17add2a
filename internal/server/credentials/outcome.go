package credentials

// Record is the stored credential of one account.
type Record struct {
	AccountID int64
	HashText  string
}

// Outcome is the result of one Verify call. Scheme is only meaningful
// when Matched is true.
type Outcome struct {
	Matched bool
	Scheme  Scheme
	// Rehash reports a canonical hash weaker than the configured cost.
	Rehash bool
}

// NeedsMigration reports whether the caller should store a fresh canonical
// hash of the verified secret.
func (o Outcome) NeedsMigration() bool {
	return o.Matched && (o.Scheme != CanonicalModern || o.Rehash)
}
