package ports

// ProcessingObserver records how each delivered entry was classified.
type ProcessingObserver interface {
	// IncrementEntriesByResult is called once per entry with one of
	// "unmatched", "attempt" or "alert".
	IncrementEntriesByResult(result string)
}
