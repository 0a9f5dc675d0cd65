package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/grovetools/recorder/logging"
	"github.com/spf13/cobra"
)

// CobraProfiler wires the --timing, --cpu-profile and --mem-profile flags
// into a command tree.
type CobraProfiler struct {
	cpuProfile *os.File
	cpuPath    string
	memPath    string
	timing     bool
}

// NewCobraProfiler creates a profiler with no flags bound yet.
func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{}
}

// AddFlags registers the profiling flags as persistent flags of cmd.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Print how long each stage took")
	cmd.PersistentFlags().StringVar(&p.cpuPath, "cpu-profile", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&p.memPath, "mem-profile", "", "Write a heap profile to this file on exit")
}

// PreRun starts timing and CPU profiling as requested.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
	}
	if p.cpuPath != "" {
		f, err := os.Create(p.cpuPath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		p.cpuProfile = f
	}
	return nil
}

// PostRun writes the profiles and the timing summary to stderr.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) {
	logger := logging.NewLogger("profiling")
	out := cmd.ErrOrStderr()

	if p.cpuProfile != nil {
		pprof.StopCPUProfile()
		p.cpuProfile.Close()
		p.cpuProfile = nil
		fmt.Fprintf(out, "CPU profile written to %s\n", p.cpuPath)
	}

	if p.memPath != "" {
		f, err := os.Create(p.memPath)
		if err != nil {
			logger.WithError(err).Warn("Could not create heap profile")
		} else {
			runtime.GC()
			if err := pprof.WriteHeapProfile(f); err != nil {
				logger.WithError(err).Warn("Could not write heap profile")
			} else {
				fmt.Fprintf(out, "Heap profile written to %s\n", p.memPath)
			}
			f.Close()
		}
	}

	if p.timing {
		Summarize(out)
	}
}
