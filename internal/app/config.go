package app

import (
	"strings"
	"time"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/utils"
)

type Config struct {
	Port         string
	AllowOrigins []string
	JWTSecretKey string

	BlobKey        string
	InlineMaxBytes int

	SignalDefinitionsPath string
	RetentionRulesPath    string

	DetectionLookback time.Duration

	Link     services.LinkConfig
	Score    services.ScoreConfig
	Issue    services.IssueConfig
	Coupling services.CouplingConfig
}

func LoadConfig(log *logger.Logger) Config {
	lookbackDays := utils.GetEnvAsInt("DETECTION_LOOKBACK_DAYS", 30, log)
	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	riskCategories := strings.Split(utils.GetEnv("COUPLING_RISK_CATEGORIES", "risk,deadline,payment", log), ",")
	for i := range riskCategories {
		riskCategories[i] = strings.TrimSpace(riskCategories[i])
	}

	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		AllowOrigins: origins,
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),

		BlobKey:        utils.GetEnv("BLOB_KEY", "", log),
		InlineMaxBytes: utils.GetEnvAsInt("ARTIFACT_INLINE_MAX_BYTES", 16*1024, log),

		SignalDefinitionsPath: utils.GetEnv("SIGNAL_DEFINITIONS_PATH", "configs/signal_definitions.yaml", log),
		RetentionRulesPath:    utils.GetEnv("RETENTION_RULES_PATH", "configs/retention.yaml", log),

		DetectionLookback: time.Duration(lookbackDays) * 24 * time.Hour,

		Link: services.LinkConfig{
			AutoConfirmThreshold: utils.GetEnvAsFloat("LINK_AUTO_CONFIRM_THRESHOLD", 0.85, log),
			AmbiguousThreshold:   utils.GetEnvAsFloat("LINK_AMBIGUOUS_THRESHOLD", 0.6, log),
		},
		Score: services.ScoreConfig{
			SeverityWeight:   utils.GetEnvAsFloat("SCORE_SEVERITY_WEIGHT", 15, log),
			CountWeight:      utils.GetEnvAsFloat("SCORE_COUNT_WEIGHT", 20, log),
			ConfidenceWeight: utils.GetEnvAsFloat("SCORE_CONFIDENCE_WEIGHT", 10, log),
			MaxScore:         utils.GetEnvAsFloat("SCORE_MAX", 100, log),
			TrendEpsilon:     utils.GetEnvAsFloat("SCORE_TREND_EPSILON", 0.5, log),
			MinProofExcerpts: utils.GetEnvAsInt("PROPOSAL_MIN_PROOF_EXCERPTS", 3, log),
		},
		Issue: services.IssueConfig{
			StaleDays:           utils.GetEnvAsInt("ISSUE_STALE_DAYS", 5, log),
			WatcherCadenceHours: utils.GetEnvAsInt("WATCHER_CADENCE_HOURS", 24, log),
			BlockerMaxAgeDays:   utils.GetEnvAsInt("BLOCKER_MAX_AGE_DAYS", 7, log),
		},
		Coupling: services.CouplingConfig{
			RiskCategories: riskCategories,
		},
	}
}
