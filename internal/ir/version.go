package ir

// Version constants for the descriptor format and the harness.
const (
	// IRVersion is the schema descriptor format version.
	IRVersion = "1"

	// HarnessVersion is the stiprobe harness version.
	HarnessVersion = "0.1.0"
)
