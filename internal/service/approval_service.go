package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-portal/pkg/util/errorutil"
)

const pendingListLimit = 100

// ApprovalService gates tickets that need a manager decision before the helpdesk sees them.
type ApprovalService struct {
	store      repository.Store
	profiles   repository.ProfileRepository
	teams      repository.TeamRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// ApprovalDependencies bundles collaborators for approval service.
type ApprovalDependencies struct {
	Store       repository.Store
	ProfileRepo repository.ProfileRepository
	TeamRepo    repository.TeamRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = systemClock
	}
	return &ApprovalService{
		store:      deps.Store,
		profiles:   deps.ProfileRepo,
		teams:      deps.TeamRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// RequiresApproval reports whether tickets filed by caller must wait for a manager.
// It follows the approval policy of the caller's team.
func (s *ApprovalService) RequiresApproval(ctx context.Context, caller domain.Caller) (bool, error) {
	if caller.TeamID == nil || s.teams == nil {
		return false, nil
	}
	team, err := s.teams.GetByID(ctx, *caller.TeamID)
	if err != nil {
		if apperrors.HasCode(apperrors.MapError(err), apperrors.CodeNotFound) {
			return false, nil
		}
		return false, apperrors.MapError(err)
	}
	return team.RequiresApproval, nil
}

// Approve releases a pending ticket to the helpdesk queue. Approving an already
// approved ticket returns it unchanged.
func (s *ApprovalService) Approve(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	if err := requireManager(caller); err != nil {
		return nil, err
	}

	now := s.now()
	updated, evts, err := applyChange(ctx, s.store, ticketID, now, func(ctx context.Context, t *domain.Ticket) (change, error) {
		if err := s.checkTeam(ctx, caller, t); err != nil {
			return change{}, err
		}
		switch t.ApprovalStatus {
		case domain.ApprovalStatusApproved:
			return change{noop: true}, nil
		case domain.ApprovalStatusPending:
		default:
			return change{}, decidedError(t)
		}

		approved := domain.ApprovalStatusApproved
		open := domain.TicketStatusOpen
		c := change{patch: repository.TicketPatch{
			ApprovalStatus: &approved,
			ApprovedBy:     strPtr(caller.UserID),
			ApprovedAt:     &now,
			Status:         &open,
		}}
		c.activities = []domain.TicketActivity{
			newActivity(domain.ActionApproved, caller.UserID,
				strPtr(string(domain.ApprovalStatusPending)), strPtr(string(domain.ApprovalStatusApproved))),
		}
		c.notify = func(u *domain.Ticket) []events.Event {
			return []events.Event{{
				Type:     events.EventTicketApprovedForHelpdesk,
				TicketID: u.ID,
				ActorID:  strPtr(caller.UserID),
				Payload: events.TicketApprovedPayload{
					TicketRef:  ticketRef(u),
					ApprovedBy: caller.UserID,
				},
			}}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.dispatcher, s.logger, now, evts)
	return updated, nil
}

// Reject closes a pending ticket with a reason the submitter will see. Rejecting an
// already rejected ticket returns it unchanged.
func (s *ApprovalService) Reject(ctx context.Context, caller domain.Caller, ticketID, reason string) (*domain.Ticket, error) {
	if err := requireManager(caller); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("rejection reason is required", map[string]any{"field": "reason"})
	}

	now := s.now()
	updated, evts, err := applyChange(ctx, s.store, ticketID, now, func(ctx context.Context, t *domain.Ticket) (change, error) {
		if err := s.checkTeam(ctx, caller, t); err != nil {
			return change{}, err
		}
		switch t.ApprovalStatus {
		case domain.ApprovalStatusRejected:
			return change{noop: true}, nil
		case domain.ApprovalStatusPending:
		default:
			return change{}, decidedError(t)
		}

		rejected := domain.ApprovalStatusRejected
		closed := domain.TicketStatusClosed
		c := change{patch: repository.TicketPatch{
			ApprovalStatus:  &rejected,
			ApprovedBy:      strPtr(caller.UserID),
			ApprovedAt:      &now,
			RejectionReason: strPtr(reason),
			Status:          &closed,
			ClosedAt:        &now,
		}}
		c.activities = []domain.TicketActivity{
			newActivity(domain.ActionRejected, caller.UserID, strPtr(string(domain.ApprovalStatusPending)), strPtr(reason)),
		}
		c.notify = func(u *domain.Ticket) []events.Event {
			return []events.Event{{
				Type:     events.EventTicketRejected,
				TicketID: u.ID,
				ActorID:  strPtr(caller.UserID),
				Payload: events.TicketRejectedPayload{
					TicketRef:  ticketRef(u),
					RejectedBy: caller.UserID,
					Reason:     reason,
				},
			}}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.dispatcher, s.logger, now, evts)
	return updated, nil
}

// ListPending returns tickets awaiting the caller's decision, newest first.
func (s *ApprovalService) ListPending(ctx context.Context, caller domain.Caller) ([]domain.Ticket, error) {
	if err := requireManager(caller); err != nil {
		return nil, err
	}
	if caller.TeamID == nil {
		return []domain.Ticket{}, nil
	}
	tickets, err := s.store.Tickets().ListWithFilter(ctx, repository.TicketFilter{
		ApprovalStatuses: []domain.ApprovalStatus{domain.ApprovalStatusPending},
		SubmitterTeamID:  caller.TeamID,
		OrderByCreated:   true,
		Limit:            pendingListLimit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// checkTeam enforces that the manager belongs to the submitter's team.
func (s *ApprovalService) checkTeam(ctx context.Context, caller domain.Caller, t *domain.Ticket) error {
	if caller.TeamID == nil {
		return apperrors.NewForbidden("manager has no team")
	}
	same, err := submitterInTeam(ctx, s.profiles, t.CreatedBy, *caller.TeamID)
	if err != nil {
		return err
	}
	if !same {
		return apperrors.NewForbidden("ticket submitter is not on the manager's team")
	}
	return nil
}

func requireManager(caller domain.Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.HasRole(domain.RoleManager) {
		return apperrors.NewForbidden("manager role required")
	}
	return nil
}

func decidedError(t *domain.Ticket) error {
	if t.ApprovalStatus == domain.ApprovalStatusNone {
		return apperrors.NewInvalidTransition("ticket does not require approval", map[string]any{"ticket_id": t.ID})
	}
	return apperrors.NewInvalidTransition("approval already decided", map[string]any{
		"ticket_id":       t.ID,
		"approval_status": t.ApprovalStatus,
	})
}
