package defaults

// Process exit codes for the CLI.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitUsage      = 2
	ExitVulnerable = 3 // -fail-on-vuln and at least one positive result
)
