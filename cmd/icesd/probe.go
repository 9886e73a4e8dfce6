/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir-ices/internal/inputstream"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Open and demux a single track, printing the metadata/capabilities the probe detected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := zerolog.Nop()
		in, err := inputstream.Open(log, args[0])
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		defer in.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "artist:       %s\n", in.Metadata.Artist)
		fmt.Fprintf(out, "title:        %s\n", in.Metadata.Title)
		fmt.Fprintf(out, "gain_db:      %.2f\n", in.Metadata.GainDB)
		fmt.Fprintf(out, "sample_rate:  %d\n", in.SampleRateHz)
		fmt.Fprintf(out, "channels:     %d\n", in.Channels)
		fmt.Fprintf(out, "bitrate_kbps: %d\n", in.BitrateKbps)
		fmt.Fprintf(out, "file_size:    %d\n", in.FileSize())
		fmt.Fprintf(out, "has_compressed_passthrough: %v\n", in.HasReadCompressed())
		return nil
	},
}
