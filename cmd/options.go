package cmd

// Options holds the shared command-line options.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string
	// Verbosity is the -v count.
	Verbosity int
	// TUI is nil for auto-detect, true to force the inbox UI, false to
	// disable it.
	TUI *bool
}
