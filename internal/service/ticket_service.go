package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/activity"
	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-portal/pkg/util/errorutil"
)

// TicketService coordinates ticket lifecycle workflows.
type TicketService struct {
	store      repository.Store
	profiles   repository.ProfileRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	Store       repository.Store
	ProfileRepo repository.ProfileRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title        string
	Description  string
	MainCategory string
	SubCategory  string
	Priority     domain.TicketPriority
	ContactPhone string
}

// TicketListFilter describes listing filters accepted from callers.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssigneeID *string
	Unassigned bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// ActivityEntry is an audit record together with its rendered sentence.
type ActivityEntry struct {
	domain.TicketActivity
	ActorName   string
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = systemClock
	}
	return &TicketService{
		store:      deps.Store,
		profiles:   deps.ProfileRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create files a new ticket for the caller. When requiresApproval is set the ticket
// waits for a manager decision before the helpdesk can act on it.
func (s *TicketService) Create(ctx context.Context, caller domain.Caller, input TicketCreateInput, requiresApproval bool) (*domain.Ticket, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	now := s.now()
	ticket := &domain.Ticket{
		ExternalKey:      generateTicketKey(),
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		Category:         domain.Category{Main: strings.TrimSpace(input.MainCategory), Sub: strings.TrimSpace(input.SubCategory)},
		Priority:         priority,
		Status:           domain.TicketStatusOpen,
		RequiresApproval: requiresApproval,
		CreatedBy:        caller.UserID,
		ContactPhone:     strings.TrimSpace(input.ContactPhone),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if requiresApproval {
		ticket.ApprovalStatus = domain.ApprovalStatusPending
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		entry := newActivity(domain.ActionCreated, caller.UserID, nil, nil)
		entry.TicketID = ticket.ID
		entry.CreatedAt = now
		return tx.Activities().Create(ctx, &entry)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publishAll(ctx, s.dispatcher, s.logger, now, []events.Event{{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  strPtr(caller.UserID),
		Payload: events.TicketCreatedPayload{
			TicketRef:        ticketRef(ticket),
			RequiresApproval: requiresApproval,
		},
	}})
	return ticket, nil
}

// ChangeStatus moves the ticket to next. Privileged callers may set any status.
func (s *TicketService) ChangeStatus(ctx context.Context, caller domain.Caller, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": next})
	}

	now := s.now()
	updated, evts, err := applyChange(ctx, s.store, ticketID, now, func(_ context.Context, t *domain.Ticket) (change, error) {
		if err := rejectPending(t); err != nil {
			return change{}, err
		}
		if t.ApprovalStatus == domain.ApprovalStatusRejected {
			return change{}, apperrors.NewInvalidTransition("rejected tickets stay closed", map[string]any{"ticket_id": t.ID})
		}
		if t.Status == next {
			return change{}, apperrors.NewInvalidTransition("ticket already has this status", map[string]any{"status": next})
		}
		var c change
		previous := t.Status
		applyStatus(&c.patch, t, next, now)
		c.activities = []domain.TicketActivity{
			newActivity(domain.ActionStatusChanged, caller.UserID, strPtr(string(previous)), strPtr(string(next))),
		}
		c.notify = func(u *domain.Ticket) []events.Event {
			return []events.Event{statusChangedEvent(u, caller.UserID, previous, next)}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.dispatcher, s.logger, now, evts)
	return updated, nil
}

// Assign hands the ticket to assigneeID.
func (s *TicketService) Assign(ctx context.Context, caller domain.Caller, ticketID, assigneeID string) (*domain.Ticket, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, apperrors.NewValidationError("assignee is required", map[string]any{"field": "assignee_id"})
	}
	if err := s.ensureProfile(ctx, assigneeID, "assignee"); err != nil {
		return nil, err
	}

	now := s.now()
	updated, evts, err := applyChange(ctx, s.store, ticketID, now, func(_ context.Context, t *domain.Ticket) (change, error) {
		if err := rejectPending(t); err != nil {
			return change{}, err
		}
		if t.AssignedTo != nil && *t.AssignedTo == assigneeID {
			return change{}, apperrors.NewInvalidTransition("ticket already assigned to this person", map[string]any{"assignee_id": assigneeID})
		}
		previous := copyPtr(t.AssignedTo)
		c := change{patch: repository.TicketPatch{AssignedTo: strPtr(assigneeID)}}
		c.activities = []domain.TicketActivity{
			newActivity(domain.ActionAssigned, caller.UserID, previous, strPtr(assigneeID)),
		}
		c.notify = func(u *domain.Ticket) []events.Event {
			return []events.Event{{
				Type:     events.EventTicketAssigned,
				TicketID: u.ID,
				ActorID:  strPtr(caller.UserID),
				Payload: events.TicketAssignedPayload{
					TicketRef:     ticketRef(u),
					OldAssigneeID: previous,
					AssigneeID:    assigneeID,
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

// ChangePriority updates the ticket priority.
func (s *TicketService) ChangePriority(ctx context.Context, caller domain.Caller, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	updated, _, err := applyChange(ctx, s.store, ticketID, s.now(), func(_ context.Context, t *domain.Ticket) (change, error) {
		if err := rejectPending(t); err != nil {
			return change{}, err
		}
		if t.Priority == priority {
			return change{}, apperrors.NewInvalidTransition("ticket already has this priority", map[string]any{"priority": priority})
		}
		return change{
			patch: repository.TicketPatch{Priority: &priority},
			activities: []domain.TicketActivity{
				newActivity(domain.ActionPriorityChanged, caller.UserID, strPtr(string(t.Priority)), strPtr(string(priority))),
			},
		}, nil
	})
	return updated, err
}

// ChangeCategory sets the ticket's sub category.
func (s *TicketService) ChangeCategory(ctx context.Context, caller domain.Caller, ticketID, category string) (*domain.Ticket, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.NewValidationError("category is required", map[string]any{"field": "category"})
	}

	updated, _, err := applyChange(ctx, s.store, ticketID, s.now(), func(_ context.Context, t *domain.Ticket) (change, error) {
		if err := rejectPending(t); err != nil {
			return change{}, err
		}
		if t.Category.Sub == category {
			return change{}, apperrors.NewInvalidTransition("ticket already has this category", map[string]any{"category": category})
		}
		return change{
			patch: repository.TicketPatch{SubCategory: &category},
			activities: []domain.TicketActivity{
				newActivity(domain.ActionCategoryChanged, caller.UserID, copyPtr(&t.Category.Sub), strPtr(category)),
			},
		}, nil
	})
	return updated, err
}

// ChangeSubmitter reassigns who the ticket was filed by. The approval requirement is
// not re-evaluated for the new submitter.
func (s *TicketService) ChangeSubmitter(ctx context.Context, caller domain.Caller, ticketID, submitterID string) (*domain.Ticket, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	submitterID = strings.TrimSpace(submitterID)
	if submitterID == "" {
		return nil, apperrors.NewValidationError("submitter is required", map[string]any{"field": "submitter_id"})
	}
	if err := s.ensureProfile(ctx, submitterID, "submitter"); err != nil {
		return nil, err
	}

	updated, _, err := applyChange(ctx, s.store, ticketID, s.now(), func(_ context.Context, t *domain.Ticket) (change, error) {
		if err := rejectPending(t); err != nil {
			return change{}, err
		}
		if t.CreatedBy == submitterID {
			return change{}, apperrors.NewInvalidTransition("ticket already belongs to this submitter", map[string]any{"submitter_id": submitterID})
		}
		return change{
			patch: repository.TicketPatch{CreatedBy: strPtr(submitterID)},
			activities: []domain.TicketActivity{
				newActivity(domain.ActionSubmitterChanged, caller.UserID, strPtr(t.CreatedBy), strPtr(submitterID)),
			},
		}, nil
	})
	return updated, err
}

// PostMessage appends a reply to the ticket thread. A staff reply on an open ticket
// also moves it to in_progress in the same update.
func (s *TicketService) PostMessage(ctx context.Context, caller domain.Caller, ticketID, body string) (*domain.TicketMessage, *domain.Ticket, error) {
	if err := requireCaller(caller); err != nil {
		return nil, nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil, apperrors.NewValidationError("message body is required", map[string]any{"field": "body"})
	}
	privileged := caller.Privileged()
	msg := &domain.TicketMessage{AuthorID: caller.UserID, Body: body, IsAdminReply: privileged}

	now := s.now()
	updated, evts, err := applyChange(ctx, s.store, ticketID, now, func(_ context.Context, t *domain.Ticket) (change, error) {
		if !privileged && t.CreatedBy != caller.UserID {
			return change{}, apperrors.NewForbidden("cannot reply on another user's ticket")
		}
		if err := rejectPending(t); err != nil {
			return change{}, err
		}

		c := change{message: msg}
		action := domain.ActionRepliedUser
		if privileged {
			action = domain.ActionRepliedHelpdesk
		}
		c.activities = []domain.TicketActivity{newActivity(action, caller.UserID, nil, nil)}

		moved := privileged && t.Status == domain.TicketStatusOpen
		if moved {
			applyStatus(&c.patch, t, domain.TicketStatusInProgress, now)
			c.activities = append(c.activities, newActivity(domain.ActionStatusChanged, caller.UserID,
				strPtr(string(domain.TicketStatusOpen)), strPtr(string(domain.TicketStatusInProgress))))
		}

		c.notify = func(u *domain.Ticket) []events.Event {
			out := []events.Event{{
				Type:     events.EventTicketMessagePosted,
				TicketID: u.ID,
				ActorID:  strPtr(caller.UserID),
				Payload: events.TicketMessagePostedPayload{
					TicketRef:    ticketRef(u),
					MessageID:    msg.ID,
					AuthorID:     caller.UserID,
					IsAdminReply: privileged,
					BodyPreview:  stringPreview(body, 140),
				},
			}}
			if moved {
				out = append(out, statusChangedEvent(u, caller.UserID, domain.TicketStatusOpen, domain.TicketStatusInProgress))
			}
			return out
		}
		return c, nil
	})
	if err != nil {
		return nil, nil, err
	}
	publishAll(ctx, s.dispatcher, s.logger, now, evts)
	return msg, updated, nil
}

// Get returns a ticket the caller is allowed to see.
func (s *TicketService) Get(ctx context.Context, caller domain.Caller, ticketID string) (*domain.Ticket, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(ticketLookupError(err, ticketID))
	}
	visible, err := s.canView(ctx, caller, ticket)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apperrors.NewForbidden("ticket not visible to caller")
	}
	return ticket, nil
}

// List returns the helpdesk queue for privileged callers and the caller's own tickets otherwise.
func (s *TicketService) List(ctx context.Context, caller domain.Caller, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if caller.Privileged() {
		repoFilter.ExcludePending = true
		repoFilter.AssignedTo = filter.AssigneeID
		repoFilter.Unassigned = filter.Unassigned
	} else {
		repoFilter.CreatedBy = strPtr(caller.UserID)
	}
	tickets, err := s.store.Tickets().ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListMessages returns the ticket thread.
func (s *TicketService) ListMessages(ctx context.Context, caller domain.Caller, ticketID string) ([]domain.TicketMessage, error) {
	if _, err := s.Get(ctx, caller, ticketID); err != nil {
		return nil, err
	}
	messages, err := s.store.Messages().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

// ListActivities returns the audit trail in write order with rendered descriptions.
func (s *TicketService) ListActivities(ctx context.Context, caller domain.Caller, ticketID string) ([]ActivityEntry, error) {
	if _, err := s.Get(ctx, caller, ticketID); err != nil {
		return nil, err
	}
	records, err := s.store.Activities().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	names, err := s.resolveNames(ctx, records)
	if err != nil {
		return nil, err
	}
	lookup := activity.Names(names)
	entries := make([]ActivityEntry, 0, len(records))
	for _, record := range records {
		actor := "System"
		if record.ActorID != nil {
			actor = *record.ActorID
			if name, ok := names[*record.ActorID]; ok {
				actor = name
			}
		}
		entries = append(entries, ActivityEntry{
			TicketActivity: record,
			ActorName:      actor,
			Description:    activity.Describe(record, lookup),
		})
	}
	return entries, nil
}

func (s *TicketService) resolveNames(ctx context.Context, records []domain.TicketActivity) (map[string]string, error) {
	seen := map[string]struct{}{}
	ids := []string{}
	add := func(id *string) {
		if id == nil || *id == "" {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for _, record := range records {
		add(record.ActorID)
		if record.ActionType == domain.ActionAssigned || record.ActionType == domain.ActionSubmitterChanged {
			add(record.OldValue)
			add(record.NewValue)
		}
	}

	names := make(map[string]string, len(ids))
	if len(ids) == 0 || s.profiles == nil {
		return names, nil
	}
	profiles, err := s.profiles.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range profiles {
		names[profiles[i].ID] = profiles[i].DisplayName()
	}
	return names, nil
}

func (s *TicketService) canView(ctx context.Context, caller domain.Caller, t *domain.Ticket) (bool, error) {
	if caller.Privileged() {
		return true, nil
	}
	if t.CreatedBy == caller.UserID {
		return true, nil
	}
	if !caller.HasRole(domain.RoleManager) || caller.TeamID == nil {
		return false, nil
	}
	return submitterInTeam(ctx, s.profiles, t.CreatedBy, *caller.TeamID)
}

func (s *TicketService) ensureProfile(ctx context.Context, id, resource string) error {
	if s.profiles == nil {
		return nil
	}
	if _, err := s.profiles.GetByID(ctx, id); err != nil {
		if apperrors.HasCode(apperrors.MapError(err), apperrors.CodeNotFound) {
			return apperrors.NewNotFound(resource, map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// applyStatus fills the status fields of p for a move of t to next.
func applyStatus(p *repository.TicketPatch, t *domain.Ticket, next domain.TicketStatus, now time.Time) {
	p.Status = &next
	if next == domain.TicketStatusResolved && t.ResolvedAt == nil {
		p.ResolvedAt = &now
	}
	if next == domain.TicketStatusClosed {
		p.ClosedAt = &now
	} else if t.ClosedAt != nil {
		p.ClearClosedAt = true
	}
}

func statusChangedEvent(t *domain.Ticket, actorID string, previous, next domain.TicketStatus) events.Event {
	return events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: t.ID,
		ActorID:  strPtr(actorID),
		Payload: events.TicketStatusChangedPayload{
			TicketRef: ticketRef(t),
			OldStatus: previous,
			NewStatus: next,
		},
	}
}

func submitterInTeam(ctx context.Context, profiles repository.ProfileRepository, submitterID, teamID string) (bool, error) {
	if profiles == nil {
		return false, nil
	}
	submitter, err := profiles.GetByID(ctx, submitterID)
	if err != nil {
		if apperrors.HasCode(apperrors.MapError(err), apperrors.CodeNotFound) {
			return false, nil
		}
		return false, apperrors.MapError(err)
	}
	return submitter.TeamID != nil && *submitter.TeamID == teamID, nil
}
