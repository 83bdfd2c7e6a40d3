package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo holds build-time information
type BuildInfo struct {
	Version   string
	BuildDate string
	Commit    string
	GoVersion string
	Platform  string
}

var buildInfo = BuildInfo{
	Version:   "dev",
	BuildDate: "unknown",
	Commit:    "unknown",
	GoVersion: runtime.Version(),
	Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
}

// SetBuildInfo sets build information (called from main.go)
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// RegisterVersion registers the version command.
func RegisterVersion(rootCmd *cobra.Command) {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the portchart version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "portchart version %s\n", buildInfo.Version)
			fmt.Fprintf(out, "Build date: %s\n", buildInfo.BuildDate)
			fmt.Fprintf(out, "Git commit: %s\n", buildInfo.Commit)
			fmt.Fprintf(out, "Go version: %s\n", buildInfo.GoVersion)
			fmt.Fprintf(out, "Platform: %s\n", buildInfo.Platform)
		},
	}

	rootCmd.AddCommand(versionCmd)
}
