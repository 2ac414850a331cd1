package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-portal/internal/config"
	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/sla"
)

func newNotifications(f *fixture, m *fakeMailer) *NotificationService {
	svc := NewNotificationService(f.dispatcher, nil, config.NotificationConfig{PortalURL: "https://help.example.com"}, m, f.profiles)
	svc.RegisterHandlers()
	return svc
}

func TestNotifyHelpdeskOnNewTicket(t *testing.T) {
	f := newFixture()
	m := &fakeMailer{}
	newNotifications(f, m)

	ticket := createTicket(t, f, f.otherUser, false)

	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"hana@example.com"}, m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, ticket.ExternalKey)
	assert.Contains(t, m.sent[0].Body, "https://help.example.com/tickets/"+ticket.ID)
}

func TestNotifyManagersWhenApprovalNeeded(t *testing.T) {
	f := newFixture()
	m := &fakeMailer{}
	newNotifications(f, m)

	createTicket(t, f, f.user, true)

	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"mia@example.com"}, m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "Approval needed")
}

func TestNotifyOnApprovalDecisions(t *testing.T) {
	f := newFixture()
	m := &fakeMailer{}
	newNotifications(f, m)
	ctx := context.Background()

	approved := createTicket(t, f, f.user, true)
	_, err := f.approvals.Approve(ctx, f.manager, approved.ID)
	require.NoError(t, err)
	last := m.sent[len(m.sent)-1]
	assert.Equal(t, []string{"hana@example.com"}, last.To)
	assert.Contains(t, last.Subject, "Approved ticket")

	rejected := createTicket(t, f, f.user, true)
	_, err = f.approvals.Reject(ctx, f.manager, rejected.ID, "Not in budget")
	require.NoError(t, err)
	last = m.sent[len(m.sent)-1]
	assert.Equal(t, []string{"alice@example.com"}, last.To)
	assert.Contains(t, last.Body, "Reason: Not in budget")
}

func TestNotifyEscalationToHelpdeskAndAdmins(t *testing.T) {
	f := newFixture()
	m := &fakeMailer{}
	svc := newNotifications(f, m)

	err := svc.handleUnassignedEscalation(context.Background(), events.Event{
		Type:     events.EventUnassignedEscalation,
		TicketID: "ticket-9",
		Payload: events.UnassignedEscalationPayload{
			TicketRef:        events.TicketRef{ExternalKey: "TCK-00000009", Title: "Printer jam", Priority: domain.TicketPriorityLow},
			BusinessDaysOpen: 12,
			Tier:             sla.TierCritical,
		},
	})
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.ElementsMatch(t, []string{"ada@example.com", "hana@example.com"}, m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "12 business days")
}

func TestNotifySubmitterOnStaffReplyOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := createTicket(t, f, f.otherUser, false)
	m := &fakeMailer{}
	newNotifications(f, m)

	_, _, err := f.tickets.PostMessage(ctx, f.otherUser, ticket.ID, "Any update?")
	require.NoError(t, err)
	assert.Empty(t, m.sent)

	_, _, err = f.tickets.PostMessage(ctx, f.agent, ticket.ID, "Replacement is on the way")
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"bob@example.com"}, m.sent[0].To)
	assert.Contains(t, m.sent[0].Body, "Replacement is on the way")
}

func TestNotifyAssigneeAndResolution(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ticket := createTicket(t, f, f.otherUser, false)
	m := &fakeMailer{}
	newNotifications(f, m)

	_, err := f.tickets.Assign(ctx, f.agent, ticket.ID, "u-hana")
	require.NoError(t, err)
	assert.Empty(t, m.sent, "self-assignment sends nothing")

	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, "u-ada")
	require.NoError(t, err)
	assert.Empty(t, m.sent)

	_, err = f.tickets.Assign(ctx, f.admin, ticket.ID, "u-hana")
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"hana@example.com"}, m.sent[0].To)

	_, err = f.tickets.ChangeStatus(ctx, f.agent, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Len(t, m.sent, 1)

	_, err = f.tickets.ChangeStatus(ctx, f.agent, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.Len(t, m.sent, 2)
	assert.Equal(t, []string{"bob@example.com"}, m.sent[1].To)
}

func TestMailerFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture()
	m := &fakeMailer{err: errors.New("smtp unavailable")}
	newNotifications(f, m)

	ticket, err := f.tickets.Create(context.Background(), f.otherUser, TicketCreateInput{Title: "Mouse"}, false)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, f.store.ticket(ticket.ID).Status)
}

func TestUnexpectedPayloadIsReported(t *testing.T) {
	f := newFixture()
	svc := newNotifications(f, &fakeMailer{})
	err := svc.handleTicketRejected(context.Background(), events.Event{Type: events.EventTicketRejected, Payload: "oops"})
	assert.Error(t, err)
}
