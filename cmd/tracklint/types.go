package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIRule is a JSON-friendly finding kind.
type CLIRule struct {
	Kind string `json:"kind"`
	Doc  string `json:"doc"`
}

// CLIFile is a JSON-friendly cached file.
type CLIFile struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	Dialect    string `json:"dialect"`
	LastLinted string `json:"last_linted,omitempty"`
	// Current is false when the file's findings were invalidated and it
	// has not been linted since.
	Current bool `json:"current"`
}

// CLIKindCount is the number of findings of one kind.
type CLIKindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// CLIFileCount is the number of findings in one file.
type CLIFileCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// CLISummary is a JSON-friendly findings summary.
type CLISummary struct {
	Files    int            `json:"files"`
	Findings int            `json:"findings"`
	ByKind   []CLIKindCount `json:"by_kind"`
	ByFile   []CLIFileCount `json:"by_file"`
}
