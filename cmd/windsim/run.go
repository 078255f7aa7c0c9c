package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/storm-windfield/internal/adapter/jsonfile"
	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "run <scenario.json | ->",
		Short: "Simulate a scenario and write one JSON record per station",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger(nil)
			raw, err := readScenario(cmd, args[0])
			if err != nil {
				return err
			}
			builder, err := opts.builder(logger)
			if err != nil {
				return err
			}
			msgs, err := pipeline.NewSimulator(builder, logger).Simulate(cmd.Context(), raw)
			if err != nil {
				return err
			}
			writer, err := jsonfile.NewWriter(outputDir, logger)
			if err != nil {
				return err
			}
			if err := writer.LoadBatch(cmd.Context(), msgs); err != nil {
				return err
			}
			return printSummary(cmd, msgs, outputDir)
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "out", "directory for station record files")
	return cmd
}

// printSummary lists the written records with their peak speeds.
func printSummary(cmd *cobra.Command, msgs []domain.OutputMessage, dir string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REALIZATION\tSTATION\tFINITE\tPEAK (m/s)\tFILE")
	for _, msg := range msgs {
		rec, err := decodeRecord(msg)
		if err != nil {
			return err
		}
		peaks := make([]string, len(rec.PeakSpeeds))
		for i, v := range rec.PeakSpeeds {
			peaks[i] = strconv.FormatFloat(v, 'f', 2, 64)
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\n",
			rec.Realization, rec.StationID, rec.Finite, strings.Join(peaks, " "), jsonfile.FileName(msg))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d records written to %s\n", len(msgs), dir)
	return nil
}

func decodeRecord(msg domain.OutputMessage) (domain.StationRecord, error) {
	var rec domain.StationRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return rec, fmt.Errorf("decode record %s: %w", msg.Key, err)
	}
	return rec, nil
}
