// Command scout runs the site scoring engine: it loads the input layers,
// scores and ranks candidate sites, and writes the GeoJSON export. With
// --serve it stays up afterward exposing health, metrics, and the run
// summary over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/bess-site-scout/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/bess-site-scout/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/bess-site-scout/internal/adapter/kafka"
	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/export"
	"github.com/couchcryptid/bess-site-scout/internal/observability"
	"github.com/couchcryptid/bess-site-scout/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scout",
		Short:         "Battery storage site scoring and ranking engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

type runFlags struct {
	paths       geojson.Paths
	scoringPath string
	outPath     string
	serve       bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score and rank candidate sites, writing the GeoJSON export",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScoring(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.paths.Nodes, "nodes", "", "grid node (substation) GeoJSON file (required)")
	cmd.Flags().StringVar(&flags.paths.Parcels, "parcels", "", "parcel GeoJSON file")
	cmd.Flags().StringVar(&flags.paths.Flood, "flood", "", "FEMA flood zone GeoJSON file")
	cmd.Flags().StringVar(&flags.paths.Contamination, "contamination", "", "contamination registry GeoJSON file")
	cmd.Flags().StringVar(&flags.paths.Habitats, "habitats", "", "wetland/critical habitat GeoJSON file")
	cmd.Flags().StringVar(&flags.paths.Generation, "generation", "", "generation fleet GeoJSON file")
	cmd.Flags().StringVar(&flags.paths.Solar, "solar", "", "solar resource GeoJSON file")
	cmd.Flags().StringVar(&flags.scoringPath, "scoring-config", "", "YAML scoring configuration (defaults apply when omitted)")
	cmd.Flags().StringVar(&flags.outPath, "out", "scored_sites.geojson", "output path for the export document")
	cmd.Flags().BoolVar(&flags.serve, "serve", false, "keep serving HTTP endpoints after the run completes")
	cobra.CheckErr(cmd.MarkFlagRequired("nodes"))

	return cmd
}

func newValidateCmd() *cobra.Command {
	var scoringPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a scoring configuration without running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scoring, err := config.LoadScoring(scoringPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scoring configuration valid (weights sum to %.4f)\n",
				scoring.Weights.Sum())
			return nil
		},
	}
	cmd.Flags().StringVar(&scoringPath, "scoring-config", "", "YAML scoring configuration (defaults when omitted)")
	return cmd
}

func runScoring(parent context.Context, flags runFlags) error {
	svc, err := config.LoadService()
	if err != nil {
		return err
	}
	scoring, err := config.LoadScoring(flags.scoringPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(svc)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := geojson.NewLoader(logger)
	data, err := loader.LoadDatasets(flags.paths)
	if err != nil {
		return err
	}

	p := pipeline.New(scoring, logger, metrics, svc.Workers)
	srv := httpadapter.NewServer(svc.HTTPAddr, p, logger)

	if flags.serve {
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	runID := uuid.New().String()
	logger.Info("starting scoring run", "run_id", runID)

	res, err := p.Run(ctx, data)
	if err != nil {
		return fmt.Errorf("scoring run: %w", err)
	}

	doc := export.NewDocument(runID, res)
	if err := export.WriteFile(flags.outPath, doc); err != nil {
		return err
	}
	logger.Info("export written", "path", flags.outPath,
		"ranked", res.Counters.Ranked, "eliminated", res.Counters.Eliminated)
	srv.SetSummary(doc.Run)

	if svc.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(svc, logger)
		features := append(append([]export.Feature{}, doc.Ranked.Features...), doc.Eliminated.Features...)
		if err := writer.Publish(ctx, runID, features); err != nil {
			logger.Error("kafka publish failed", "error", err)
		}
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	if !flags.serve {
		return nil
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), svc.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}
