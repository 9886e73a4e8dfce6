/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Command icesd is the Icecast source-client daemon: it reads a
// playlist, demuxes/decodes each track, runs the plugin chain
// (ReplayGain, crossfade), and streams to one or more configured
// Icecast/ICY destinations until the playlist is exhausted or stopped.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "icesd",
		Short: "Icecast source-client daemon",
	}

	root.AddCommand(runCmd, validateConfigCmd, probeCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
