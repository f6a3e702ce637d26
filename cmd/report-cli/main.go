package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"research-orchestrator/internal/di"
	"research-orchestrator/internal/infra"
	"research-orchestrator/internal/infra/config"
	"research-orchestrator/internal/infra/logger"
	"research-orchestrator/internal/usecase"
)

var (
	useMock         bool
	topics          []string
	includeDegraded bool
	budgetUSD       float64
)

var rootCmd = &cobra.Command{
	Use:   "report-cli",
	Short: "Generate and inspect client research documents",
	Long: `report-cli drives the document pipeline directly, without going
through the HTTP queue. It is meant for local runs and prompt iteration.

Example usage:
  report-cli generate <job-id>                 # generate a full document
  report-cli generate <job-id> --mock          # use the deterministic mock backend
  report-cli readiness <job-id>                # print the snapshot readiness summary`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate <job-id>",
	Short: "Run the full document pipeline for one research job",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var readinessCmd = &cobra.Command{
	Use:   "readiness <job-id>",
	Short: "Print the snapshot readiness summary for one research job",
	Args:  cobra.ExactArgs(1),
	RunE:  runReadiness,
}

func init() {
	generateCmd.Flags().BoolVar(&useMock, "mock", false, "use the deterministic mock generation backend")
	generateCmd.Flags().StringSliceVar(&topics, "topics", nil, "section topics to generate (default: all)")
	generateCmd.Flags().BoolVar(&includeDegraded, "include-degraded", false, "let degraded snapshots contribute to context")
	generateCmd.Flags().Float64Var(&budgetUSD, "budget", 0, "override the per-run budget in USD")

	readinessCmd.Flags().BoolVar(&includeDegraded, "include-degraded", false, "include degraded snapshots in the usable scope")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(readinessCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildComponents(cmd *cobra.Command) (*di.ApplicationComponents, func(), error) {
	cfg := config.Load()
	if cmd.Flags().Changed("mock") {
		cfg.Generation.UseMock = useMock
	}
	if cmd.Flags().Changed("budget") {
		cfg.Generation.BudgetUSD = budgetUSD
	}

	log := logger.New()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	components, err := di.NewApplicationComponents(cfg, pool, log)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return components, pool.Close, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	jobID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}

	components, closeDB, err := buildComponents(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	out, err := components.DocumentUsecase.Execute(cmd.Context(), usecase.GenerateDocumentInput{
		JobID:           jobID,
		Topics:          topics,
		IncludeDegraded: includeDegraded,
	})
	if err != nil {
		return err
	}

	type sectionSummary struct {
		Topic  string  `json:"topic"`
		Score  float64 `json:"score"`
		Status string  `json:"status"`
	}
	summary := struct {
		JobID        string           `json:"job_id"`
		Status       string           `json:"status"`
		AllowPersist bool             `json:"allow_persist"`
		ReasonCodes  []string         `json:"reason_codes"`
		TotalCostUSD float64          `json:"total_cost_usd"`
		Sections     []sectionSummary `json:"sections"`
	}{
		JobID:        jobID.String(),
		Status:       string(out.Status),
		AllowPersist: out.Decision.AllowPersist,
		ReasonCodes:  out.Decision.ReasonCodes,
		TotalCostUSD: out.TotalCostUSD,
	}
	for _, s := range out.Sections {
		summary.Sections = append(summary.Sections, sectionSummary{
			Topic:  s.Topic,
			Score:  s.Score,
			Status: string(s.Status),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func runReadiness(cmd *cobra.Command, args []string) error {
	jobID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", args[0], err)
	}

	components, closeDB, err := buildComponents(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	scope, err := components.ReadinessUsecase.Classify(cmd.Context(), jobID, includeDegraded)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(scope.Summary)
}
