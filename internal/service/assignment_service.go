package service

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-portal/pkg/util/errorutil"
)

const assigneeDirectoryLimit = 500

// AssignmentService offers assignment shortcuts on top of the lifecycle engine.
type AssignmentService struct {
	tickets  *TicketService
	profiles repository.ProfileRepository
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketService *TicketService
	ProfileRepo   repository.ProfileRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:  deps.TicketService,
		profiles: deps.ProfileRepo,
	}
}

// SelfAssign lets a helpdesk or admin caller pick a ticket up.
func (s *AssignmentService) SelfAssign(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	return s.tickets.Assign(ctx, caller, ticketID, caller.UserID)
}

// AutoAssign hands the ticket to a helpdesk agent chosen deterministically from the ticket id.
func (s *AssignmentService) AutoAssign(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	agents, err := s.profiles.List(ctx, repository.ProfileFilter{
		Roles: []domain.Role{domain.RoleHelpdesk},
		Limit: assigneeDirectoryLimit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(agents) == 0 {
		return nil, apperrors.NewInvalidTransition("no helpdesk agents available", map[string]any{"ticket_id": ticketID})
	}
	sort.Slice(agents, func(i, j int) bool {
		if !agents[i].CreatedAt.Equal(agents[j].CreatedAt) {
			return agents[i].CreatedAt.Before(agents[j].CreatedAt)
		}
		return agents[i].ID < agents[j].ID
	})
	assignee := agents[selectIndex(ticketID, len(agents))]
	return s.tickets.Assign(ctx, caller, ticketID, assignee.ID)
}

// ListAssignees returns the people a ticket can be assigned to.
func (s *AssignmentService) ListAssignees(ctx context.Context, caller domain.Caller) ([]domain.Profile, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	profiles, err := s.profiles.List(ctx, repository.ProfileFilter{
		Roles: []domain.Role{domain.RoleHelpdesk, domain.RoleAdmin},
		Limit: assigneeDirectoryLimit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].DisplayName() < profiles[j].DisplayName()
	})
	return profiles, nil
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
