package calendar

// Reconcile merges two calendars for the same year into a fresh one.
//
// Releases are only deduplicated on exact equality, so the same album seen
// by both sources with different metadata is kept twice.
func Reconcile(a, b *Calendar) *Calendar {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return b.Merge(nil)
	default:
		return a.Merge(b)
	}
}
