package integrity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evalgo.org/lixiv/internal/storage"
)

// CreateRepairPlan collects the suggested operations of report. With a
// non-empty riskFilter only operations of those risk levels are kept.
// Plans start as dry runs.
func (s *Service) CreateRepairPlan(report *ScanReport, riskFilter []RiskLevel) *RepairPlan {
	plan := &RepairPlan{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		ScanID:     report.ID,
		Operations: []RepairOperation{},
		DryRun:     true,
		RiskFilter: riskFilter,
	}

	for _, issue := range report.IssuesFound {
		if issue.SuggestedResolution == nil {
			continue
		}
		for _, op := range issue.SuggestedResolution.Operations {
			if !allowed(op.Risk, riskFilter) {
				s.logger.Debug("Skipping operation due to risk filter",
					zap.String("issue_id", issue.ID),
					zap.String("risk", string(op.Risk)))
				continue
			}
			plan.Operations = append(plan.Operations, op)
		}
	}

	s.logger.Info("Repair plan created",
		zap.String("plan_id", plan.ID),
		zap.String("scan_id", plan.ScanID),
		zap.Int("operations", len(plan.Operations)))
	return plan
}

func allowed(risk RiskLevel, filter []RiskLevel) bool {
	if len(filter) == 0 {
		return true
	}
	for _, r := range filter {
		if r == risk {
			return true
		}
	}
	return false
}

// ExecutePlan runs the operations of plan in order. A failed operation is
// recorded and execution continues.
func (s *Service) ExecutePlan(ctx context.Context, plan *RepairPlan) (*RepairResult, error) {
	startTime := time.Now()
	result := &RepairResult{
		PlanID:     plan.ID,
		StartTime:  startTime,
		Operations: []OperationResult{},
		DryRun:     plan.DryRun,
	}

	for _, op := range plan.Operations {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		opResult := s.executeOperation(ctx, op, plan.DryRun)
		result.Operations = append(result.Operations, opResult)

		if opResult.Success {
			result.SuccessCount++
			continue
		}
		result.FailureCount++
		s.logger.Warn("Repair operation failed",
			zap.String("operation_id", op.ID),
			zap.String("type", string(op.Type)),
			zap.Int64("record_id", op.RecordID),
			zap.String("error", opResult.Error))
	}

	result.Duration = time.Since(startTime)

	s.logger.Info("Repair plan executed",
		zap.String("plan_id", plan.ID),
		zap.Bool("dry_run", plan.DryRun),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailureCount),
		zap.Duration("duration", result.Duration))

	return result, nil
}

func (s *Service) executeOperation(ctx context.Context, op RepairOperation, dryRun bool) OperationResult {
	result := OperationResult{Operation: op}

	if dryRun {
		result.Success = true
		return result
	}

	var err error
	switch op.Type {
	case OpMergeDuplicate:
		_, err = s.store.MergeNodes(ctx, op.TargetID, op.RecordID)
	case OpDeleteEdge:
		err = s.store.DeleteEdge(ctx, op.RecordID)
		if errors.Is(err, storage.ErrNotFound) {
			// Already gone with an earlier merge.
			err = nil
		}
	default:
		err = fmt.Errorf("unknown operation type: %s", op.Type)
	}

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

// SavePlanToFile saves a repair plan to a JSON file.
func SavePlanToFile(plan *RepairPlan, filename string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// LoadPlanFromFile loads a repair plan from a JSON file.
func LoadPlanFromFile(filename string) (*RepairPlan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	var plan RepairPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return &plan, nil
}
