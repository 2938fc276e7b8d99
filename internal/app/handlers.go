package app

import (
	"github.com/Fleezyflo/moh-time-os-sub004/internal/handlers"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
)

type Handlers struct {
	Artifact *handlers.ArtifactHandler
	Identity *handlers.IdentityHandler
	Link     *handlers.LinkHandler
	Signal   *handlers.SignalHandler
	Proposal *handlers.ProposalHandler
	Issue    *handlers.IssueHandler
	Brief    *handlers.BriefHandler
	Admin    *handlers.AdminHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Artifact: handlers.NewArtifactHandler(log, s.Artifact),
		Identity: handlers.NewIdentityHandler(log, s.Identity),
		Link:     handlers.NewLinkHandler(log, s.Link),
		Signal:   handlers.NewSignalHandler(log, s.Signal),
		Proposal: handlers.NewProposalHandler(log, s.Proposal, s.Issue),
		Issue:    handlers.NewIssueHandler(log, s.Issue, s.Watcher),
		Brief:    handlers.NewBriefHandler(log, s.Brief, s.Coupling),
		Admin:    handlers.NewAdminHandler(log, s.Pipeline, s.Policy, s.Artifact, s.Identity, s.Link, s.Signal, s.Proposal, s.Issue),
	}
}
