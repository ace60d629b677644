package integrity

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/kind"
	"evalgo.org/lixiv/internal/storage"
	"evalgo.org/lixiv/internal/validation"
	"evalgo.org/lixiv/models"
)

// Service scans and repairs the stored graph.
type Service struct {
	store  *storage.Storage
	logger *zap.Logger
}

// NewService creates an integrity service over store.
func NewService(store *storage.Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger.Named("integrity"),
	}
}

// ScanOptions configures what to scan for.
type ScanOptions struct {
	// ScanDuplicates checks for nodes sharing a name
	ScanDuplicates bool

	// ScanEdges checks for edges collapsed onto the same pair
	ScanEdges bool

	// ScanSchemas validates stored nodes against the catalog
	ScanSchemas bool
}

// AllChecks enables every scan.
func AllChecks() ScanOptions {
	return ScanOptions{ScanDuplicates: true, ScanEdges: true, ScanSchemas: true}
}

// Scan performs an integrity scan of the stored graph. reg is only
// consulted when ScanSchemas is set.
func (s *Service) Scan(ctx context.Context, reg *kind.Registry, options ScanOptions) (*ScanReport, error) {
	startTime := time.Now()

	nodes, edges, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}

	report := &ScanReport{
		ID:           uuid.New().String(),
		Timestamp:    startTime,
		NodesScanned: len(nodes),
		EdgesScanned: len(edges),
		IssuesFound:  []Issue{},
		Summary: ScanSummary{
			ByType:     make(map[IssueType]int),
			BySeverity: make(map[Severity]int),
		},
	}

	if options.ScanDuplicates {
		report.IssuesFound = append(report.IssuesFound, scanDuplicates(nodes, startTime)...)
	}
	if options.ScanEdges {
		report.IssuesFound = append(report.IssuesFound, scanCollapsedEdges(nodes, edges, startTime)...)
	}
	if options.ScanSchemas && reg != nil {
		issues, err := scanSchemas(reg, nodes, startTime)
		if err != nil {
			return nil, err
		}
		report.IssuesFound = append(report.IssuesFound, issues...)
	}

	report.Summary.TotalIssues = len(report.IssuesFound)
	for _, issue := range report.IssuesFound {
		report.Summary.ByType[issue.Type]++
		report.Summary.BySeverity[issue.Severity]++
	}
	report.Summary.HealthScore = calculateHealthScore(report)
	report.Duration = time.Since(startTime)

	s.logger.Info("Scan completed",
		zap.String("scan_id", report.ID),
		zap.Int("nodes", report.NodesScanned),
		zap.Int("edges", report.EdgesScanned),
		zap.Int("issues", report.Summary.TotalIssues),
		zap.Int("health_score", report.Summary.HealthScore),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// canonicalNodes maps every node id to the id of the first stored node with
// the same name, which is the node the graph view keeps.
func canonicalNodes(nodes []*models.NodeRecord) map[int64]int64 {
	first := make(map[string]int64, len(nodes))
	canonical := make(map[int64]int64, len(nodes))
	for _, n := range nodes {
		if id, ok := first[n.Name]; ok {
			canonical[n.ID] = id
			continue
		}
		first[n.Name] = n.ID
		canonical[n.ID] = n.ID
	}
	return canonical
}

func scanDuplicates(nodes []*models.NodeRecord, now time.Time) []Issue {
	groups := make(map[string][]*models.NodeRecord)
	var names []string
	for _, n := range nodes {
		if _, seen := groups[n.Name]; !seen {
			names = append(names, n.Name)
		}
		groups[n.Name] = append(groups[n.Name], n)
	}

	var issues []Issue
	for _, name := range names {
		group := groups[name]
		if len(group) < 2 {
			continue
		}

		keep := group[0]
		severity := SeverityLow
		risk := RiskLow
		kinds := map[string]bool{}
		ids := make([]int64, 0, len(group))
		ops := make([]RepairOperation, 0, len(group)-1)
		for i, n := range group {
			ids = append(ids, n.ID)
			kinds[n.KindTitle] = true
			if i == 0 {
				continue
			}
			// Merging drops the duplicate's fields.
			opRisk := RiskLow
			if !sameData(keep, n) {
				severity = SeverityMedium
				risk = RiskHigh
				opRisk = RiskHigh
			}
			ops = append(ops, RepairOperation{
				ID:       uuid.New().String(),
				Type:     OpMergeDuplicate,
				RecordID: n.ID,
				TargetID: keep.ID,
				Action:   fmt.Sprintf("move edges of node %d to node %d and delete node %d", n.ID, keep.ID, n.ID),
				Risk:     opRisk,
			})
		}

		issues = append(issues, Issue{
			ID:          uuid.New().String(),
			Type:        IssueTypeDuplicate,
			Severity:    severity,
			RecordIDs:   ids,
			Kind:        keep.KindTitle,
			Description: fmt.Sprintf("%d nodes named %q; the graph shows node %d", len(group), name, keep.ID),
			Details: map[string]interface{}{
				"name":  name,
				"kinds": len(kinds),
			},
			DetectedAt: now,
			SuggestedResolution: &Resolution{
				Strategy:    StrategyFirstWins,
				Risk:        risk,
				Description: fmt.Sprintf("Merge later duplicates into node %d", keep.ID),
				Operations:  ops,
			},
		})
	}
	return issues
}

func sameData(a, b *models.NodeRecord) bool {
	if a.KindTitle != b.KindTitle {
		return false
	}
	da, errA := models.DecodeData(a.Data)
	db, errB := models.DecodeData(b.Data)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(da, db)
}

func scanCollapsedEdges(nodes []*models.NodeRecord, edges []*models.EdgeRecord, now time.Time) []Issue {
	canonical := canonicalNodes(nodes)

	type pair struct{ src, dst int64 }
	groups := make(map[pair][]*models.EdgeRecord)
	var order []pair
	for _, e := range edges {
		p := pair{canonical[e.SourceNodeID], canonical[e.TargetNodeID]}
		if _, seen := groups[p]; !seen {
			order = append(order, p)
		}
		groups[p] = append(groups[p], e)
	}

	var issues []Issue
	for _, p := range order {
		group := groups[p]
		if len(group) < 2 {
			continue
		}

		kept := group[0]
		severity := SeverityLow
		risk := RiskLow
		ids := make([]int64, 0, len(group))
		labels := make([]string, 0, len(group))
		ops := make([]RepairOperation, 0, len(group)-1)
		for i, e := range group {
			ids = append(ids, e.ID)
			labels = append(labels, e.Label)
			if i == 0 {
				continue
			}
			opRisk := RiskLow
			if e.Label != kept.Label {
				// A different label is only kept in storage.
				severity = SeverityMedium
				risk = RiskHigh
				opRisk = RiskHigh
			}
			ops = append(ops, RepairOperation{
				ID:       uuid.New().String(),
				Type:     OpDeleteEdge,
				RecordID: e.ID,
				Action:   fmt.Sprintf("delete edge %d (%s)", e.ID, e.Label),
				Risk:     opRisk,
			})
		}

		issues = append(issues, Issue{
			ID:          uuid.New().String(),
			Type:        IssueTypeCollapsedEdge,
			Severity:    severity,
			RecordIDs:   ids,
			Description: fmt.Sprintf("%d edges from node %d to node %d; the graph shows %q", len(group), p.src, p.dst, kept.Label),
			Details: map[string]interface{}{
				"source_node_id": p.src,
				"target_node_id": p.dst,
				"labels":         labels,
			},
			DetectedAt: now,
			SuggestedResolution: &Resolution{
				Strategy:    StrategyFirstWins,
				Risk:        risk,
				Description: fmt.Sprintf("Delete edges hidden behind edge %d", kept.ID),
				Operations:  ops,
			},
		})
	}
	return issues
}

func scanSchemas(reg *kind.Registry, nodes []*models.NodeRecord, now time.Time) ([]Issue, error) {
	var issues []Issue
	for _, n := range nodes {
		inst, err := n.Instance()
		if err != nil {
			return nil, fmt.Errorf("decoding node %d: %w", n.ID, err)
		}

		errs := validation.Check(reg, inst)
		if len(errs) == 0 {
			continue
		}

		result := validation.Result(errs, inst)
		issues = append(issues, Issue{
			ID:          uuid.New().String(),
			Type:        IssueTypeInvalidSchema,
			Severity:    SeverityHigh,
			RecordIDs:   []int64{n.ID},
			Kind:        n.KindTitle,
			Description: fmt.Sprintf("node %d (%s) fails validation: %v", n.ID, n.Name, errs[0]),
			Details: map[string]interface{}{
				"errors": result.Errors,
			},
			DetectedAt: now,
			SuggestedResolution: &Resolution{
				Strategy:    StrategyManual,
				Risk:        RiskHigh,
				Description: "Fix the catalog or recreate the node",
			},
		})
	}
	return issues, nil
}

// calculateHealthScore computes a 0-100 health score based on issues found.
func calculateHealthScore(report *ScanReport) int {
	score := 100

	// Deduct for issues based on severity
	for severity, count := range report.Summary.BySeverity {
		switch severity {
		case SeverityHigh:
			score -= count * 10
		case SeverityMedium:
			score -= count * 3
		case SeverityLow:
			score -= count * 1
		}
	}

	if score < 0 {
		score = 0
	}

	return score
}
