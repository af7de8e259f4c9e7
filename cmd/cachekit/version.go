package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/cachekit/version"
)

var showDeps bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version, git commit, build time and Go version.`,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetVersionInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "cachekit version: %s\n", version.GetFullVersion())
		fmt.Fprintf(out, "  git commit: %s\n", info.GitCommit)
		fmt.Fprintf(out, "  build time: %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go version: %s\n", info.GoVersion)
		if info.Module != "" {
			fmt.Fprintf(out, "  module:     %s\n", info.Module)
		}
		if showDeps {
			fmt.Fprintln(out, "  deps:")
			for _, dep := range info.DepList() {
				fmt.Fprintf(out, "    %s\n", dep)
			}
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&showDeps, "deps", false, "list linked module versions")
	rootCmd.AddCommand(versionCmd)
}
