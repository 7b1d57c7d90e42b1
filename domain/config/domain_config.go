package config

// DomainConfig holds the business limits applied while capturing items.
type DomainConfig struct {
	// Item constraints
	MaxContentLength int
	MaxTags          int
	MaxConcepts      int

	// Analysis and linking. MinItemsForLinking counts existing items only,
	// never the item being linked.
	AnalysisInputChars int
	MaxCandidatePool   int
	MaxConnections     int
	MinItemsForLinking int

	// Batch caps
	MaxBatchURLs        int
	MaxBookmarksPerFile int
	MaxUploadFiles      int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxContentLength: 50000,
		MaxTags:          5,
		MaxConcepts:      5,

		AnalysisInputChars: 1500,
		MaxCandidatePool:   10,
		MaxConnections:     3,
		MinItemsForLinking: 2,

		MaxBatchURLs:        50,
		MaxBookmarksPerFile: 100,
		MaxUploadFiles:      10,
	}
}
