package analysis

import "context"

// External enrichment collaborators. Implementations live outside the core;
// see internal/enrichment for the HTTP client.

type Scorer interface {
	ScoreCall(ctx context.Context, resultID, operatorID string) (QualityScore, error)
}

type EngagementUpdater interface {
	UpdateEngagement(ctx context.Context, targetID string, event EngagementEvent) error
}

type InsightRecorder interface {
	RecordRejectionInsight(ctx context.Context, in Insight) error
}

type PivotAlerter interface {
	CheckPivotAlerts(ctx context.Context, projectID string) error
}
