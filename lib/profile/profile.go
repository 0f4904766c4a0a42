package profile

import (
	"flag"
	"os"
	"strings"

	"github.com/pkg/profile"

	"wedge.io/wedge/lib/logger"
)

var (
	profileMode = flag.String("profile.mode", "", "Profile to record until shutdown: cpu, mem, mutex, block, goroutine or trace. "+
		"The PROFILING environment variable is used if empty. Profiling is disabled by default")
	profilePath = flag.String("profile.path", ".", "Directory to write profiles to")
)

type noop struct{}

// Stop is a noop
func (p noop) Stop() {}

// Profile starts the profile selected by -profile.mode or PROFILING.
//
// It must be called after flag.Parse. The returned value must be stopped on shutdown.
func Profile() interface {
	Stop()
} {
	mode := *profileMode
	if mode == "" {
		mode = os.Getenv("PROFILING")
	}
	opt := modeOption(mode)
	if opt == nil {
		if mode != "" {
			logger.Warnf("unsupported profile mode %q; profiling is disabled", mode)
		}
		return new(noop)
	}
	logger.Infof("recording %s profile to %s", mode, *profilePath)
	return profile.Start(opt, profile.ProfilePath(*profilePath), profile.NoShutdownHook, profile.Quiet)
}

func modeOption(mode string) func(*profile.Profile) {
	switch strings.ToLower(mode) {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "mutex":
		return profile.MutexProfile
	case "block":
		return profile.BlockProfile
	case "goroutine":
		return profile.GoroutineProfile
	case "trace":
		return profile.TraceProfile
	}
	return nil
}

// HelpMessage returns a string explaining how profiling works.
func HelpMessage() string {
	return `Profiling:
	Set -profile.mode=cpu or PROFILING=cpu to record a cpu profile until shutdown.
	Supported modes are cpu, mem, mutex, block, goroutine and trace; only one profile can be recorded at a time.`
}
