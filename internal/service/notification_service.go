package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/config"
	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/mailer"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
)

const recipientLimit = 200

// NotificationService turns domain events into notification emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	mailer     mailer.Mailer
	profiles   repository.ProfileRepository
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, m mailer.Mailer, profiles repository.ProfileRepository) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		mailer:     m,
		profiles:   profiles,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketApprovedForHelpdesk, n.handleTicketApproved)
	n.dispatcher.Subscribe(events.EventTicketRejected, n.handleTicketRejected)
	n.dispatcher.Subscribe(events.EventUnassignedEscalation, n.handleUnassignedEscalation)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketMessagePosted, n.handleTicketMessagePosted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Bool("requires_approval", payload.RequiresApproval))

	if payload.RequiresApproval {
		to, err := n.teamManagerEmails(ctx, payload.SubmitterID)
		if err != nil {
			return err
		}
		return n.send(ctx, to,
			fmt.Sprintf("[%s] Approval needed: %s", payload.ExternalKey, payload.Title),
			fmt.Sprintf("A ticket from your team is waiting for your approval.\n\n%s", n.summary(event.TicketID, payload.TicketRef)))
	}

	to, err := n.roleEmails(ctx, domain.RoleHelpdesk)
	if err != nil {
		return err
	}
	return n.send(ctx, to,
		fmt.Sprintf("[%s] New ticket: %s", payload.ExternalKey, payload.Title),
		fmt.Sprintf("A new ticket was submitted.\n\n%s", n.summary(event.TicketID, payload.TicketRef)))
}

func (n *NotificationService) handleTicketApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketApprovedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	n.logger.Info("TicketApproved", zap.String("ticket_id", event.TicketID), zap.String("approved_by", payload.ApprovedBy))

	to, err := n.roleEmails(ctx, domain.RoleHelpdesk)
	if err != nil {
		return err
	}
	return n.send(ctx, to,
		fmt.Sprintf("[%s] Approved ticket: %s", payload.ExternalKey, payload.Title),
		fmt.Sprintf("A manager approved this ticket for the helpdesk queue.\n\n%s", n.summary(event.TicketID, payload.TicketRef)))
}

func (n *NotificationService) handleTicketRejected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRejectedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	n.logger.Info("TicketRejected", zap.String("ticket_id", event.TicketID), zap.String("rejected_by", payload.RejectedBy))

	to, err := n.profileEmails(ctx, payload.SubmitterID)
	if err != nil {
		return err
	}
	return n.send(ctx, to,
		fmt.Sprintf("[%s] Request rejected: %s", payload.ExternalKey, payload.Title),
		fmt.Sprintf("Your request was rejected by your manager.\n\nReason: %s\n\n%s", payload.Reason, n.summary(event.TicketID, payload.TicketRef)))
}

func (n *NotificationService) handleUnassignedEscalation(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UnassignedEscalationPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	n.logger.Info("UnassignedEscalation",
		zap.String("ticket_id", event.TicketID),
		zap.Int("business_days_open", payload.BusinessDaysOpen),
		zap.String("tier", string(payload.Tier)))

	to, err := n.roleEmails(ctx, domain.RoleHelpdesk, domain.RoleAdmin)
	if err != nil {
		return err
	}
	return n.send(ctx, to,
		fmt.Sprintf("[%s] Unassigned for %d business days: %s", payload.ExternalKey, payload.BusinessDaysOpen, payload.Title),
		fmt.Sprintf("This ticket has no assignee and has been open for %d business days (%s).\n\n%s",
			payload.BusinessDaysOpen, payload.Tier, n.summary(event.TicketID, payload.TicketRef)))
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))

	if payload.NewStatus != domain.TicketStatusResolved && payload.NewStatus != domain.TicketStatusClosed {
		return nil
	}
	to, err := n.profileEmails(ctx, payload.SubmitterID)
	if err != nil {
		return err
	}
	return n.send(ctx, to,
		fmt.Sprintf("[%s] Ticket %s: %s", payload.ExternalKey, strings.ReplaceAll(string(payload.NewStatus), "_", " "), payload.Title),
		fmt.Sprintf("Your ticket is now %s.\n\n%s", payload.NewStatus, n.summary(event.TicketID, payload.TicketRef)))
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.String("assignee_id", payload.AssigneeID))

	if event.ActorID != nil && *event.ActorID == payload.AssigneeID {
		return nil
	}
	to, err := n.profileEmails(ctx, payload.AssigneeID)
	if err != nil {
		return err
	}
	return n.send(ctx, to,
		fmt.Sprintf("[%s] Assigned to you: %s", payload.ExternalKey, payload.Title),
		fmt.Sprintf("A ticket was assigned to you.\n\n%s", n.summary(event.TicketID, payload.TicketRef)))
}

func (n *NotificationService) handleTicketMessagePosted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessagePostedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	n.logger.Info("TicketMessagePosted", zap.String("ticket_id", event.TicketID), zap.Bool("is_admin_reply", payload.IsAdminReply))

	if !payload.IsAdminReply || payload.AuthorID == payload.SubmitterID {
		return nil
	}
	to, err := n.profileEmails(ctx, payload.SubmitterID)
	if err != nil {
		return err
	}
	return n.send(ctx, to,
		fmt.Sprintf("[%s] New reply: %s", payload.ExternalKey, payload.Title),
		fmt.Sprintf("The helpdesk replied to your ticket:\n\n%s\n\n%s", payload.BodyPreview, n.summary(event.TicketID, payload.TicketRef)))
}

func (n *NotificationService) send(ctx context.Context, to []string, subject, body string) error {
	if n.mailer == nil {
		n.logger.Debug("no mailer configured", zap.String("subject", subject))
		return nil
	}
	if len(to) == 0 {
		n.logger.Debug("no recipients for notification", zap.String("subject", subject))
		return nil
	}
	return n.mailer.Send(ctx, mailer.Message{To: to, Subject: subject, Body: body})
}

func (n *NotificationService) summary(ticketID string, ref events.TicketRef) string {
	return fmt.Sprintf("Ticket: %s\nTitle: %s\nPriority: %s\nLink: %s/tickets/%s",
		ref.ExternalKey, ref.Title, ref.Priority, n.cfg.PortalURL, ticketID)
}

func (n *NotificationService) roleEmails(ctx context.Context, roles ...domain.Role) ([]string, error) {
	if n.profiles == nil {
		return nil, nil
	}
	profiles, err := n.profiles.List(ctx, repository.ProfileFilter{Roles: roles, Limit: recipientLimit})
	if err != nil {
		return nil, err
	}
	return emailsOf(profiles), nil
}

func (n *NotificationService) teamManagerEmails(ctx context.Context, submitterID string) ([]string, error) {
	if n.profiles == nil {
		return nil, nil
	}
	submitter, err := n.profiles.GetByID(ctx, submitterID)
	if err != nil {
		return nil, err
	}
	if submitter.TeamID == nil {
		return nil, nil
	}
	managers, err := n.profiles.List(ctx, repository.ProfileFilter{
		Roles:  []domain.Role{domain.RoleManager},
		TeamID: submitter.TeamID,
		Limit:  recipientLimit,
	})
	if err != nil {
		return nil, err
	}
	return emailsOf(managers), nil
}

func (n *NotificationService) profileEmails(ctx context.Context, ids ...string) ([]string, error) {
	if n.profiles == nil {
		return nil, nil
	}
	profiles, err := n.profiles.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return emailsOf(profiles), nil
}

func emailsOf(profiles []domain.Profile) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		email := strings.TrimSpace(p.Email)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
