package buildinfo

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

var version = flag.Bool("version", false, "Show wedge version")

// Version must be set via -ldflags '-X'
var Version string

// Init must be called after flag.Parse call.
func Init() {
	if *version {
		printVersion()
		os.Exit(0)
	}
}

// ShortVersion returns the part of Version before the first '-', e.g. "v1.2.0".
func ShortVersion() string {
	if Version == "" {
		return "unknown"
	}
	v, _, _ := strings.Cut(Version, "-")
	return v
}

func printVersion() {
	fmt.Fprintf(flag.CommandLine.Output(), "%s\n", Version)
}
