// Package integrity audits the stored graph against the kind catalog and
// repairs what can be repaired without losing information.
//
// A scan looks for three things: stored nodes sharing a display name, which
// the graph view collapses into one; stored edges that collapse onto an
// already connected pair; and stored nodes that no longer validate against
// the catalog, for example after catalog.inherit_fields was switched off.
package integrity

import (
	"time"
)

// IssueType represents the type of integrity issue detected.
type IssueType string

const (
	// IssueTypeDuplicate indicates several stored nodes with the same name
	IssueTypeDuplicate IssueType = "duplicate"

	// IssueTypeCollapsedEdge indicates a stored edge hidden by deduplication
	IssueTypeCollapsedEdge IssueType = "collapsed_edge"

	// IssueTypeInvalidSchema indicates a node that doesn't match its kind
	IssueTypeInvalidSchema IssueType = "invalid_schema"
)

// Severity represents how critical an issue is.
type Severity string

const (
	// SeverityLow indicates a minor issue that doesn't affect functionality
	SeverityLow Severity = "low"

	// SeverityMedium indicates an issue that may cause problems
	SeverityMedium Severity = "medium"

	// SeverityHigh indicates a critical issue that needs immediate attention
	SeverityHigh Severity = "high"
)

// ResolutionStrategy determines how duplicates are resolved.
type ResolutionStrategy string

const (
	// StrategyFirstWins keeps the earliest stored node, matching the graph view
	StrategyFirstWins ResolutionStrategy = "first_wins"

	// StrategyManual flags the issue for human review
	StrategyManual ResolutionStrategy = "manual"
)

// RiskLevel indicates the risk of a repair operation.
type RiskLevel string

const (
	// RiskLow indicates operations that leave the graph view unchanged
	RiskLow RiskLevel = "low"

	// RiskHigh indicates operations that drop stored data
	RiskHigh RiskLevel = "high"
)

// ScanReport contains the results of an integrity scan.
type ScanReport struct {
	// ID uniquely identifies this scan
	ID string `json:"id"`

	// Timestamp when the scan was performed
	Timestamp time.Time `json:"timestamp"`

	// Duration of the scan
	Duration time.Duration `json:"duration"`

	// NodesScanned and EdgesScanned count the stored records checked
	NodesScanned int `json:"nodes_scanned"`
	EdgesScanned int `json:"edges_scanned"`

	// IssuesFound contains all detected issues
	IssuesFound []Issue `json:"issues_found"`

	// Summary provides aggregated statistics
	Summary ScanSummary `json:"summary"`
}

// ScanSummary provides aggregated scan statistics.
type ScanSummary struct {
	// TotalIssues is the count of all issues found
	TotalIssues int `json:"total_issues"`

	// ByType breaks down issues by type
	ByType map[IssueType]int `json:"by_type"`

	// BySeverity breaks down issues by severity
	BySeverity map[Severity]int `json:"by_severity"`

	// HealthScore is a 0-100 score indicating graph health
	HealthScore int `json:"health_score"`
}

// Issue represents a single integrity problem.
type Issue struct {
	// ID uniquely identifies this issue
	ID string `json:"id"`

	// Type categorizes the issue
	Type IssueType `json:"type"`

	// Severity indicates how critical this issue is
	Severity Severity `json:"severity"`

	// RecordIDs are the stored node or edge ids involved
	RecordIDs []int64 `json:"record_ids"`

	// Kind is the kind of the affected nodes, if any
	Kind string `json:"kind,omitempty"`

	// Description provides human-readable details
	Description string `json:"description"`

	// Details contains additional structured information
	Details map[string]interface{} `json:"details,omitempty"`

	// DetectedAt is when this issue was found
	DetectedAt time.Time `json:"detected_at"`

	// SuggestedResolution recommends how to fix this issue
	SuggestedResolution *Resolution `json:"suggested_resolution,omitempty"`
}

// Resolution describes how to fix an issue.
type Resolution struct {
	// Strategy indicates the resolution method
	Strategy ResolutionStrategy `json:"strategy"`

	// Risk indicates the risk level of this resolution
	Risk RiskLevel `json:"risk"`

	// Description explains what the resolution will do
	Description string `json:"description"`

	// Operations contains the specific steps to perform
	Operations []RepairOperation `json:"operations"`
}

// OperationType categorizes repair operations.
type OperationType string

const (
	// OpMergeDuplicate moves a duplicate's edges to the kept node and removes it
	OpMergeDuplicate OperationType = "merge_duplicate"

	// OpDeleteEdge removes a collapsed edge
	OpDeleteEdge OperationType = "delete_edge"
)

// RepairOperation represents a single repair action.
type RepairOperation struct {
	// ID uniquely identifies this operation
	ID string `json:"id"`

	// Type categorizes the operation
	Type OperationType `json:"type"`

	// RecordID is the node or edge to operate on
	RecordID int64 `json:"record_id"`

	// TargetID is the node that absorbs a merged duplicate
	TargetID int64 `json:"target_id,omitempty"`

	// Action describes what will be done
	Action string `json:"action"`

	// Risk indicates the risk level
	Risk RiskLevel `json:"risk"`
}

// RepairPlan contains a sequence of operations to fix issues.
type RepairPlan struct {
	// ID uniquely identifies this plan
	ID string `json:"id"`

	// Timestamp when the plan was created
	Timestamp time.Time `json:"timestamp"`

	// ScanID references the scan that generated this plan
	ScanID string `json:"scan_id"`

	// Operations to perform
	Operations []RepairOperation `json:"operations"`

	// DryRun indicates if this is a simulation
	DryRun bool `json:"dry_run"`

	// RiskFilter limits operations to certain risk levels
	RiskFilter []RiskLevel `json:"risk_filter"`
}

// RepairResult contains the outcome of executing a repair plan.
type RepairResult struct {
	// PlanID references the executed plan
	PlanID string `json:"plan_id"`

	// StartTime when execution began
	StartTime time.Time `json:"start_time"`

	// Duration of the execution
	Duration time.Duration `json:"duration"`

	// Operations contains results for each operation
	Operations []OperationResult `json:"operations"`

	// SuccessCount is the number of successful operations
	SuccessCount int `json:"success_count"`

	// FailureCount is the number of failed operations
	FailureCount int `json:"failure_count"`

	// DryRun indicates nothing was changed
	DryRun bool `json:"dry_run"`
}

// OperationResult is the outcome of a single repair operation.
type OperationResult struct {
	Operation RepairOperation `json:"operation"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}
