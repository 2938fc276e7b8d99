package app

import (
	"gorm.io/gorm"

	rediscache "github.com/Fleezyflo/moh-time-os-sub004/internal/clients/redis"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/detectors"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/blobstore"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

type Services struct {
	Artifact services.ArtifactService
	Identity services.IdentityService
	Link     services.LinkService
	Signal   services.SignalService
	Proposal services.ProposalService
	Issue    services.IssueService
	Watcher  services.WatcherService
	Coupling services.CouplingService
	Policy   services.PolicyService
	Brief    services.BriefService
	Pipeline services.PipelineService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, blobs *blobstore.Store, cache rediscache.Cache) Services {
	log.Info("Wiring services...")
	artifact := services.NewArtifactService(db, log, r.Artifact, r.Excerpt, blobs, cfg.InlineMaxBytes)
	identity := services.NewIdentityService(db, log, r.IdentityProfile, r.IdentityClaim, r.IdentityOperation)
	link := services.NewLinkService(db, log, r.EntityLink, r.Artifact, r.FixData, cfg.Link)
	signal := services.NewSignalService(db, log, r.SignalDefinition, r.DetectorRun, r.Signal, r.SignalFeedback, r.ProtocolViolation)
	proposal := services.NewProposalService(db, log, r.Proposal, r.Signal, r.SignalDefinition, cfg.Score)
	issue := services.NewIssueService(db, log, r.Issue, r.Proposal, r.Signal, r.Watcher, r.Handoff, cfg.Issue)
	watcher := services.NewWatcherService(db, log, r.Watcher, r.Issue)
	coupling := services.NewCouplingService(db, log, r.Coupling, r.Signal, cfg.Coupling)
	policy := services.NewPolicyService(db, log, r.Policy, r.Artifact, r.Excerpt, r.EntityLink, blobs)
	brief := services.NewBriefService(db, log, r.Proposal, r.Issue, r.Signal, r.Coupling, r.FixData, cache)
	pipeline := services.NewPipelineService(log, signal, proposal, watcher, coupling, brief)

	signal.RegisterDetector(detectors.NewDeadlineDetector(r.Artifact, r.EntityLink, artifact))
	signal.RegisterDetector(detectors.NewClientHealthDetector(r.Artifact, r.EntityLink, artifact))
	signal.RegisterDetector(detectors.NewCommitmentDetector(r.Artifact, r.Commitment, artifact, artifact))
	signal.RegisterDetector(detectors.NewDataQualityDetector(r.Artifact, r.EntityLink, r.FixData))

	return Services{
		Artifact: artifact,
		Identity: identity,
		Link:     link,
		Signal:   signal,
		Proposal: proposal,
		Issue:    issue,
		Watcher:  watcher,
		Coupling: coupling,
		Policy:   policy,
		Brief:    brief,
		Pipeline: pipeline,
	}
}
