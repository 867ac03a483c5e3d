package label

// Interner shares a single string value across repeated observations of
// the same DID or create-timestamp, so a long replay's dominant cost is
// the effective map itself rather than duplicated string allocations.
//
// Grounded on original_source/src/main.rs, which keeps labeler_dids and
// latest_create_timestamp as Rc<str> for the same reason; a plain map
// is Go's equivalent of cheap shared ownership for short-lived strings.
type Interner struct {
	seen map[string]string
}

// NewInterner returns a ready-to-use Interner.
func NewInterner() *Interner {
	return &Interner{seen: make(map[string]string)}
}

// Intern returns a canonical copy of s: the first string equal to s
// ever passed to Intern, so repeated callers share one allocation.
func (in *Interner) Intern(s string) string {
	if s == "" {
		return s
	}
	if v, ok := in.seen[s]; ok {
		return v
	}
	in.seen[s] = s
	return s
}

// Len reports how many distinct strings are currently interned.
func (in *Interner) Len() int {
	return len(in.seen)
}
