package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go-vr-vision/internal/logview"
	"go-vr-vision/internal/repository"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logDir string

	rootCmd := &cobra.Command{
		Use:          "logview",
		Short:        "Inspect requests logged by the sketch classifier API",
		SilenceUsage: true,
	}

	defaultDir := os.Getenv("LOG_DIR")
	if defaultDir == "" {
		defaultDir = "api_logs"
	}
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", defaultDir, "Directory holding request logs")

	viewer := func(cmd *cobra.Command) (*logview.Viewer, error) {
		repo, err := repository.OpenFileRequestRepository(logDir)
		if err != nil {
			return nil, err
		}
		return logview.NewViewer(repo, cmd.OutOrStdout()), nil
	}

	listCmd := &cobra.Command{
		Use:   "list [limit]",
		Short: "List recent requests, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := logview.DefaultListLimit
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("limit must be a positive integer, got %q", args[0])
				}
				limit = n
			}
			v, err := viewer(cmd)
			if err != nil {
				return err
			}
			return v.List(cmd.Context(), limit)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view REQUEST_ID",
		Short: "Show one request in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := viewer(cmd)
			if err != nil {
				return err
			}
			return v.View(cmd.Context(), args[0])
		},
	}

	decodeCmd := &cobra.Command{
		Use:   "decode REQUEST_ID",
		Short: "Write the base64 payload of a request as a PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := viewer(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			_, err = v.Decode(cmd.Context(), args[0], output)
			return err
		},
	}
	decodeCmd.Flags().StringP("output", "o", "", "Output file (default decoded_<id>.png)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize every logged request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := viewer(cmd)
			if err != nil {
				return err
			}
			return v.Stats(cmd.Context())
		},
	}

	rootCmd.AddCommand(listCmd, viewCmd, decodeCmd, statsCmd)
	return rootCmd
}
