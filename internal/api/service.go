package api

import (
	"context"
	"fmt"
	"sync"

	"linkctl/internal/links"
	"linkctl/internal/project"
	"linkctl/pkg/logging"
)

// ProjectLookup finds live projects by ID.
type ProjectLookup interface {
	Get(id string) (*project.Project, bool)
}

// URLResolver computes the address a target project is reachable at from
// other projects on the same backend.
type URLResolver interface {
	LinkURL(ctx context.Context, target *project.Project) (string, error)
}

// Notifier runs and reports the reconciliation following a link change.
type Notifier interface {
	HandleProjectRestartAndSocketEmit(ctx context.Context, p *project.Project, link links.Link, forceRebuild bool)
}

// AddLinkRequest is the body of POST .../links. A parentPFEURL makes the
// link REMOTE; its projectURL is then taken from the request because the
// target lives on another control plane.
type AddLinkRequest struct {
	TargetProjectID string `json:"targetProjectID"`
	EnvName         string `json:"envName"`
	ProjectName     string `json:"projectName,omitempty"`
	ProjectURL      string `json:"projectURL,omitempty"`
	ParentPFEURL    string `json:"parentPFEURL,omitempty"`
}

// UpdateLinkRequest is the body of PUT .../links.
type UpdateLinkRequest struct {
	EnvName        string `json:"envName"`
	UpdatedEnvName string `json:"updatedEnvName,omitempty"`
}

// DeleteLinkRequest is the body of DELETE .../links.
type DeleteLinkRequest struct {
	EnvName string `json:"envName"`
}

// LinkService applies link mutations and starts the follow-up reconciliation.
// Reconciliations run on the service's root context so they outlive the
// request that caused them.
type LinkService struct {
	ctx      context.Context
	projects ProjectLookup
	resolver URLResolver
	notifier Notifier
	wg       sync.WaitGroup
}

// NewLinkService creates a LinkService whose reconciliations stop when ctx is done.
func NewLinkService(ctx context.Context, projects ProjectLookup, resolver URLResolver, notifier Notifier) *LinkService {
	return &LinkService{ctx: ctx, projects: projects, resolver: resolver, notifier: notifier}
}

func (s *LinkService) project(id string) (*project.Project, error) {
	p, ok := s.projects.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return p, nil
}

// List returns the links of project id.
func (s *LinkService) List(id string) ([]links.Link, error) {
	p, err := s.project(id)
	if err != nil {
		return nil, err
	}
	return p.Links.GetAll(), nil
}

// Add creates a link on project id and reconciles it in the background.
func (s *LinkService) Add(ctx context.Context, id string, req AddLinkRequest) (links.Link, error) {
	p, err := s.project(id)
	if err != nil {
		return links.Link{}, err
	}

	link := links.Link{
		ProjectID:   req.TargetProjectID,
		ProjectName: req.ProjectName,
		EnvName:     req.EnvName,
		Type:        links.TypeLocal,
	}
	if req.ParentPFEURL != "" {
		link.Type = links.TypeRemote
		link.ParentPFEURL = req.ParentPFEURL
		link.ProjectURL = req.ProjectURL
	} else {
		if req.TargetProjectID == "" {
			return links.Link{}, links.WrapError(links.CodeInvalidParameters, req.EnvName, fmt.Errorf("targetProjectID is required"))
		}
		target, ok := s.projects.Get(req.TargetProjectID)
		if !ok {
			return links.Link{}, links.NewError(links.CodeTargetProjectNotFound, req.TargetProjectID)
		}
		url, err := s.resolver.LinkURL(ctx, target)
		if err != nil {
			return links.Link{}, err
		}
		link.ProjectURL = url
		if link.ProjectName == "" {
			link.ProjectName = target.Name
		}
	}

	if err := p.Links.Add(link); err != nil {
		return links.Link{}, err
	}
	logging.Info("LinkService", "Added link %s on project %s to %s", link.EnvName, p.ID, link.ProjectID)
	s.reconcile(p, link, false)
	return link, nil
}

// Update renames a link on project id. A rename forces a rebuild since the
// old variable has to disappear from the running project.
func (s *LinkService) Update(id string, req UpdateLinkRequest) (links.Link, error) {
	p, err := s.project(id)
	if err != nil {
		return links.Link{}, err
	}
	existing, err := p.Links.Get(req.EnvName)
	if err != nil {
		return links.Link{}, err
	}
	newName := req.UpdatedEnvName
	if newName == "" {
		newName = existing.EnvName
	}
	if err := p.Links.Update(req.EnvName, newName, existing.ProjectURL); err != nil {
		return links.Link{}, err
	}
	updated, err := p.Links.Get(newName)
	if err != nil {
		return links.Link{}, err
	}
	logging.Info("LinkService", "Updated link %s on project %s to %s", req.EnvName, p.ID, newName)
	s.reconcile(p, updated, newName != req.EnvName)
	return updated, nil
}

// Delete removes a link from project id and forces a rebuild, as only a
// fresh start proves the variable is gone.
func (s *LinkService) Delete(id string, req DeleteLinkRequest) (links.Link, error) {
	p, err := s.project(id)
	if err != nil {
		return links.Link{}, err
	}
	existing, err := p.Links.Get(req.EnvName)
	if err != nil {
		return links.Link{}, err
	}
	if err := p.Links.Delete(req.EnvName); err != nil {
		return links.Link{}, err
	}
	logging.Info("LinkService", "Deleted link %s from project %s", req.EnvName, p.ID)
	s.reconcile(p, existing, true)
	return existing, nil
}

func (s *LinkService) reconcile(p *project.Project, link links.Link, forceRebuild bool) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notifier.HandleProjectRestartAndSocketEmit(s.ctx, p, link, forceRebuild)
	}()
}

// Wait blocks until all background reconciliations have returned.
func (s *LinkService) Wait() {
	s.wg.Wait()
}
