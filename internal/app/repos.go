package app

import (
	"gorm.io/gorm"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
)

type Repos struct {
	Artifact          repos.ArtifactRepo
	Blob              repos.BlobRepo
	Excerpt           repos.ExcerptRepo
	IdentityProfile   repos.IdentityProfileRepo
	IdentityClaim     repos.IdentityClaimRepo
	IdentityOperation repos.IdentityOperationRepo
	EntityLink        repos.EntityLinkRepo
	FixData           repos.FixDataRepo
	SignalDefinition  repos.SignalDefinitionRepo
	DetectorRun       repos.DetectorRunRepo
	Signal            repos.SignalRepo
	SignalFeedback    repos.SignalFeedbackRepo
	ProtocolViolation repos.ProtocolViolationRepo
	Proposal          repos.ProposalRepo
	Issue             repos.IssueRepo
	Watcher           repos.WatcherRepo
	Handoff           repos.HandoffRepo
	Coupling          repos.CouplingRepo
	Commitment        repos.CommitmentRepo
	Policy            repos.PolicyRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Artifact:          repos.NewArtifactRepo(db, log),
		Blob:              repos.NewBlobRepo(db, log),
		Excerpt:           repos.NewExcerptRepo(db, log),
		IdentityProfile:   repos.NewIdentityProfileRepo(db, log),
		IdentityClaim:     repos.NewIdentityClaimRepo(db, log),
		IdentityOperation: repos.NewIdentityOperationRepo(db, log),
		EntityLink:        repos.NewEntityLinkRepo(db, log),
		FixData:           repos.NewFixDataRepo(db, log),
		SignalDefinition:  repos.NewSignalDefinitionRepo(db, log),
		DetectorRun:       repos.NewDetectorRunRepo(db, log),
		Signal:            repos.NewSignalRepo(db, log),
		SignalFeedback:    repos.NewSignalFeedbackRepo(db, log),
		ProtocolViolation: repos.NewProtocolViolationRepo(db, log),
		Proposal:          repos.NewProposalRepo(db, log),
		Issue:             repos.NewIssueRepo(db, log),
		Watcher:           repos.NewWatcherRepo(db, log),
		Handoff:           repos.NewHandoffRepo(db, log),
		Coupling:          repos.NewCouplingRepo(db, log),
		Commitment:        repos.NewCommitmentRepo(db, log),
		Policy:            repos.NewPolicyRepo(db, log),
	}
}
