package event

// CanUpdate reports whether candidate may be recorded given the most recent
// stored event with the same ID, which is nil when none exists.
func CanUpdate(existing, candidate *StudyActivityEvent) bool {
	if candidate == nil {
		return false
	}
	if existing == nil {
		return true
	}
	switch candidate.UpdateType {
	case UpdateMutable:
		return !existing.Timestamp.Equal(candidate.Timestamp)
	case UpdateFutureOnly:
		return candidate.Timestamp.After(existing.Timestamp)
	default:
		return false
	}
}
