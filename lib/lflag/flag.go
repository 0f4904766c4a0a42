package lflag

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

var (
	envFlagEnable = flag.Bool("envflag.enable", false, "Whether to read flag values from environment variables when they are not set on the command line. "+
		"The env var name is the flag name in upper case with dots replaced by underscores, prefixed by -envflag.prefix. For example, -db.url is read from WEDGE_DB_URL")
	envFlagPrefix = flag.String("envflag.prefix", "WEDGE_", "Prefix for environment variables if -envflag.enable is set")
)

// Parse parses the command line into flag.CommandLine.
//
// It must be used instead of flag.Parse.
func Parse() {
	ParseFlagSet(flag.CommandLine, os.Args[1:])
}

// ParseFlagSet parses args into fs after expanding %{ENV} placeholders.
// Flags left unset are then looked up in the environment if -envflag.enable is set.
func ParseFlagSet(fs *flag.FlagSet, args []string) {
	args = expandArgs(args)
	if err := fs.Parse(args); err != nil {
		log.Fatalf("cannot parse flags %q: %s", args, err)
	}
	if fs.NArg() > 0 {
		log.Fatalf("unprocessed command-line args left: %s; the most likely reason is missing `=` between boolean flag name and value", fs.Args())
	}
	if fs != flag.CommandLine || !*envFlagEnable {
		return
	}
	if err := applyEnv(fs, *envFlagPrefix, os.LookupEnv); err != nil {
		log.Fatalf("cannot apply flags from environment: %s", err)
	}
}

func applyEnv(fs *flag.FlagSet, prefix string, lookup func(string) (string, bool)) error {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || set[f.Name] {
			return
		}
		v, ok := lookup(EnvName(prefix, f.Name))
		if !ok {
			return
		}
		if e := fs.Set(f.Name, ReplaceString(v)); e != nil {
			err = fmt.Errorf("cannot set -%s from %s: %w", f.Name, EnvName(prefix, f.Name), e)
		}
	})
	return err
}

// EnvName returns the environment variable consulted for flag name.
func EnvName(prefix, name string) string {
	return prefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
}

func expandArgs(args []string) []string {
	dst := make([]string, 0, len(args))
	for _, arg := range args {
		if s := ReplaceString(arg); s != "" {
			dst = append(dst, s)
		}
	}
	return dst
}

// WriteFlags writes the explicitly set flags to w in name order, masking secret values.
func WriteFlags(w io.Writer) {
	var lines []string
	flag.Visit(func(f *flag.Flag) {
		value := f.Value.String()
		if IsSecretFlag(strings.ToLower(f.Name)) {
			value = "secret"
		}
		lines = append(lines, fmt.Sprintf("-%s=%q", f.Name, value))
	})
	sort.Strings(lines)
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, line)
	}
}

// Usage prints s followed by the defaults of all flags.
func Usage(s string) {
	_, _ = fmt.Fprintf(flag.CommandLine.Output(), "%s\n", s)
	flag.PrintDefaults()
}
