package commands

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"evalgo.org/lixiv/internal/integrity"
	"evalgo.org/lixiv/internal/storage"
)

var (
	scanJSON       bool
	scanDuplicates bool
	scanEdges      bool
	scanSchemas    bool

	planOutput string
	planRisk   []string

	repairPlanFile string
	repairDryRun   bool
	repairRisk     []string
)

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Stored graph integrity checking and repair",
	Long: `Scan the stored graph for nodes sharing a name, edges hidden by
deduplication and nodes that no longer match the catalog, then plan and
execute repairs.`,
}

var integrityScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for integrity issues",
	Args:  cobra.NoArgs,
	RunE:  runIntegrityScan,
}

var integrityPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Create a repair plan",
	Args:  cobra.NoArgs,
	RunE:  runIntegrityPlan,
}

var integrityRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Execute repair operations",
	Long: `Execute a saved repair plan (--plan) or plan from a fresh scan.
Runs as a dry run unless --dry-run=false is given.`,
	Args: cobra.NoArgs,
	RunE: runIntegrityRepair,
}

func init() {
	integrityScanCmd.Flags().BoolVar(&scanJSON, "json", false, "output results as JSON")
	integrityScanCmd.Flags().BoolVar(&scanDuplicates, "duplicates", true, "scan for nodes sharing a name")
	integrityScanCmd.Flags().BoolVar(&scanEdges, "edges", true, "scan for collapsed edges")
	integrityScanCmd.Flags().BoolVar(&scanSchemas, "schemas", true, "validate stored nodes against the catalog")
	integrityScanCmd.Flags().BoolVar(&kindInherit, "inherit", false, "resolve fields across the parent chain")

	integrityPlanCmd.Flags().StringVarP(&planOutput, "output", "o", "", "save the plan to a file")
	integrityPlanCmd.Flags().StringSliceVar(&planRisk, "risk", []string{"low", "high"}, "risk levels to include (low, high)")

	integrityRepairCmd.Flags().StringVar(&repairPlanFile, "plan", "", "execute a saved plan")
	integrityRepairCmd.Flags().BoolVar(&repairDryRun, "dry-run", true, "report operations without changing anything")
	integrityRepairCmd.Flags().StringSliceVar(&repairRisk, "risk", []string{"low"}, "risk levels to include (low, high)")

	integrityCmd.AddCommand(integrityScanCmd)
	integrityCmd.AddCommand(integrityPlanCmd)
	integrityCmd.AddCommand(integrityRepairCmd)
}

// scan runs the selected checks against the configured database.
func scan(ctx context.Context, store *storage.Storage, svc *integrity.Service, options integrity.ScanOptions) (*integrity.ScanReport, error) {
	reg, err := store.LoadRegistry(ctx, registryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	report, err := svc.Scan(ctx, reg, options)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return report, nil
}

func runIntegrityScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, logger, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer store.Close()

	svc := integrity.NewService(store, logger)
	report, err := scan(ctx, store, svc, integrity.ScanOptions{
		ScanDuplicates: scanDuplicates,
		ScanEdges:      scanEdges,
		ScanSchemas:    scanSchemas,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if scanJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	// Exit with non-zero if issues found
	if report.Summary.TotalIssues > 0 {
		return fmt.Errorf("found %d integrity issues", report.Summary.TotalIssues)
	}
	return nil
}

func runIntegrityPlan(cmd *cobra.Command, args []string) error {
	riskFilter, err := parseRisk(planRisk)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, logger, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer store.Close()

	svc := integrity.NewService(store, logger)
	report, err := scan(ctx, store, svc, integrity.AllChecks())
	if err != nil {
		return err
	}

	plan := svc.CreateRepairPlan(report, riskFilter)
	if planOutput != "" {
		if err := integrity.SavePlanToFile(plan, planOutput); err != nil {
			return err
		}
	}

	printPlan(cmd.OutOrStdout(), plan)
	if planOutput != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Plan saved to %s\n", planOutput)
	}
	return nil
}

func runIntegrityRepair(cmd *cobra.Command, args []string) error {
	riskFilter, err := parseRisk(repairRisk)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, logger, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer store.Close()

	svc := integrity.NewService(store, logger)

	var plan *integrity.RepairPlan
	if repairPlanFile != "" {
		plan, err = integrity.LoadPlanFromFile(repairPlanFile)
		if err != nil {
			return err
		}
	} else {
		report, err := scan(ctx, store, svc, integrity.AllChecks())
		if err != nil {
			return err
		}
		plan = svc.CreateRepairPlan(report, riskFilter)
	}
	plan.DryRun = repairDryRun

	result, err := svc.ExecutePlan(ctx, plan)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	printRepairResult(cmd.OutOrStdout(), result)
	if result.FailureCount > 0 {
		return fmt.Errorf("%d repair operations failed", result.FailureCount)
	}
	return nil
}

func parseRisk(levels []string) ([]integrity.RiskLevel, error) {
	filter := make([]integrity.RiskLevel, 0, len(levels))
	for _, l := range levels {
		switch risk := integrity.RiskLevel(l); risk {
		case integrity.RiskLow, integrity.RiskHigh:
			filter = append(filter, risk)
		default:
			return nil, fmt.Errorf("unknown risk level %q (use low or high)", l)
		}
	}
	return filter, nil
}

// Color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
)

func scoreColor(score int) string {
	switch {
	case score >= 90:
		return colorGreen
	case score >= 70:
		return colorYellow
	default:
		return colorRed
	}
}

func severityColor(severity integrity.Severity) string {
	switch severity {
	case integrity.SeverityHigh:
		return colorRed
	case integrity.SeverityMedium:
		return colorYellow
	case integrity.SeverityLow:
		return colorGreen
	default:
		return colorReset
	}
}

func printReport(w io.Writer, report *integrity.ScanReport) {
	fmt.Fprintf(w, "Scan ID:       %s\n", report.ID)
	fmt.Fprintf(w, "Duration:      %v\n", report.Duration)
	fmt.Fprintf(w, "Nodes Scanned: %d\n", report.NodesScanned)
	fmt.Fprintf(w, "Edges Scanned: %d\n", report.EdgesScanned)
	fmt.Fprintf(w, "Issues Found:  %d\n", report.Summary.TotalIssues)
	fmt.Fprintf(w, "Health Score:  %s%d/100%s\n", scoreColor(report.Summary.HealthScore), report.Summary.HealthScore, colorReset)
	fmt.Fprintln(w)

	if len(report.IssuesFound) == 0 {
		fmt.Fprintln(w, "✅ No integrity issues found!")
		return
	}

	types := make([]string, 0, len(report.Summary.ByType))
	for t := range report.Summary.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	fmt.Fprintln(w, "Issues by Type:")
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d\n", t, report.Summary.ByType[integrity.IssueType(t)])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Detailed Issues:")
	for i, issue := range report.IssuesFound {
		if i >= 10 {
			fmt.Fprintf(w, "  ... and %d more issues\n", len(report.IssuesFound)-10)
			break
		}
		fmt.Fprintf(w, "  %d. [%s%s%s] %s: %s\n", i+1, severityColor(issue.Severity), issue.Severity, colorReset, issue.Type, issue.Description)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Next Steps:")
	fmt.Fprintln(w, "  1. Run 'lixiv integrity plan -o plan.json' to create a repair plan")
	fmt.Fprintln(w, "  2. Run 'lixiv integrity repair --plan plan.json --dry-run=false' to execute it")
}

func printPlan(w io.Writer, plan *integrity.RepairPlan) {
	fmt.Fprintf(w, "Plan ID:    %s\n", plan.ID)
	fmt.Fprintf(w, "Scan ID:    %s\n", plan.ScanID)
	fmt.Fprintf(w, "Operations: %d\n", len(plan.Operations))
	fmt.Fprintln(w)

	if len(plan.Operations) == 0 {
		fmt.Fprintln(w, "✅ No repair operations needed!")
		return
	}

	for i, op := range plan.Operations {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, op.Risk, op.Action)
	}
	fmt.Fprintln(w)
}

func printRepairResult(w io.Writer, result *integrity.RepairResult) {
	if result.DryRun {
		fmt.Fprintln(w, "Dry run, nothing was changed.")
	}
	fmt.Fprintf(w, "Plan ID:   %s\n", result.PlanID)
	fmt.Fprintf(w, "Duration:  %v\n", result.Duration)
	fmt.Fprintf(w, "Succeeded: %d\n", result.SuccessCount)
	fmt.Fprintf(w, "Failed:    %d\n", result.FailureCount)

	for _, op := range result.Operations {
		if op.Success {
			fmt.Fprintf(w, "  ✓ %s\n", op.Operation.Action)
			continue
		}
		fmt.Fprintf(w, "  ✗ %s: %s\n", op.Operation.Action, op.Error)
	}
}
