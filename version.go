package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const Package = "iwls"

// Set through -ldflags at build time.
var (
	GitCommit string
	Tag       string
	BuildTime string
	Authors   string
	BuildNo   string
)

func versionString() string {
	authors := strings.ReplaceAll(Authors, "SpAcE", " ")
	tag := strings.ReplaceAll(Tag, ";", "; ")
	if GitCommit == "" || Tag == "" || BuildTime == "" {
		return fmt.Sprintf("%s (development build, version variables not set)\n", Package)
	}
	return fmt.Sprintf("%s Version information:\n|| Authors: %s\n|| Commit: %s\n|| Tag: %s\n|| Build No: %s\n|| Build Date: %s\n",
		Package, authors, GitCommit, tag, BuildNo, BuildTime)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print detailed version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionString())
		},
	}
}
