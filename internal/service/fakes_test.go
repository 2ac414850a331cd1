package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-portal/internal/domain"
	"github.com/spec-kit/helpdesk-portal/internal/events"
	"github.com/spec-kit/helpdesk-portal/internal/mailer"
	"github.com/spec-kit/helpdesk-portal/internal/repository"
)

// memState holds rows for the in-memory store.
type memState struct {
	tickets    map[string]domain.Ticket
	activities []domain.TicketActivity
	messages   []domain.TicketMessage
	seq        int64
}

func (s *memState) clone() *memState {
	out := &memState{
		tickets:    make(map[string]domain.Ticket, len(s.tickets)),
		activities: append([]domain.TicketActivity(nil), s.activities...),
		messages:   append([]domain.TicketMessage(nil), s.messages...),
		seq:        s.seq,
	}
	for k, v := range s.tickets {
		out.tickets[k] = v
	}
	return out
}

type memStore struct {
	mu       *sync.Mutex
	state    *memState
	profiles *memProfiles
	inTx     bool
	// activityErr, when set, fails every activity insert.
	activityErr error
}

func newMemStore(profiles *memProfiles) *memStore {
	return &memStore{
		mu:       &sync.Mutex{},
		state:    &memState{tickets: map[string]domain.Ticket{}},
		profiles: profiles,
	}
}

func (s *memStore) Tickets() repository.TicketRepository        { return &memTickets{s} }
func (s *memStore) Activities() repository.TicketActivityRepository { return &memActivities{s} }
func (s *memStore) Messages() repository.TicketMessageRepository  { return &memMessages{s} }

// WithinTx works on a copy of the state and swaps it in on success.
func (s *memStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memStore{mu: s.mu, state: s.state.clone(), profiles: s.profiles, inTx: true, activityErr: s.activityErr}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *memStore) put(t domain.Ticket) {
	s.state.tickets[t.ID] = t
}

func (s *memStore) ticket(id string) domain.Ticket {
	return s.state.tickets[id]
}

func (s *memStore) activitiesFor(id string) []domain.TicketActivity {
	var out []domain.TicketActivity
	for _, a := range s.state.activities {
		if a.TicketID == id {
			out = append(out, a)
		}
	}
	return out
}

type memTickets struct{ s *memStore }

func (r *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	r.s.state.seq++
	t.ID = fmt.Sprintf("ticket-%d", r.s.state.seq)
	r.s.state.tickets[t.ID] = *t
	return nil
}

func (r *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := r.s.state.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *memTickets) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTickets) Update(_ context.Context, id string, p repository.TicketPatch) (*domain.Ticket, error) {
	t, ok := r.s.state.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.SubCategory != nil {
		t.Category.Sub = *p.SubCategory
	}
	if p.AssignedTo != nil {
		v := *p.AssignedTo
		t.AssignedTo = &v
	}
	if p.CreatedBy != nil {
		t.CreatedBy = *p.CreatedBy
	}
	if p.ResolvedAt != nil {
		v := *p.ResolvedAt
		t.ResolvedAt = &v
	}
	if p.ClosedAt != nil {
		v := *p.ClosedAt
		t.ClosedAt = &v
	} else if p.ClearClosedAt {
		t.ClosedAt = nil
	}
	if p.ApprovalStatus != nil {
		t.ApprovalStatus = *p.ApprovalStatus
	}
	if p.ApprovedBy != nil {
		v := *p.ApprovedBy
		t.ApprovedBy = &v
	}
	if p.ApprovedAt != nil {
		v := *p.ApprovedAt
		t.ApprovedAt = &v
	}
	if p.RejectionReason != nil {
		v := *p.RejectionReason
		t.RejectionReason = &v
	}
	t.UpdatedAt = p.UpdatedAt
	r.s.state.tickets[id] = t
	return &t, nil
}

func (r *memTickets) ListWithFilter(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range r.s.state.tickets {
		if !r.matches(t, f) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].UpdatedAt, out[j].UpdatedAt
		if f.OrderByCreated {
			a, b = out[i].CreatedAt, out[j].CreatedAt
		}
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].ID < out[j].ID
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTickets) matches(t domain.Ticket, f repository.TicketFilter) bool {
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.Unassigned && t.AssignedTo != nil {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.ApprovalStatuses) > 0 {
		found := false
		for _, st := range f.ApprovalStatuses {
			if st == t.ApprovalStatus {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.ExcludePending && t.ApprovalStatus == domain.ApprovalStatusPending {
		return false
	}
	if f.SubmitterTeamID != nil {
		p, ok := r.s.profiles.byID[t.CreatedBy]
		if !ok || p.TeamID == nil || *p.TeamID != *f.SubmitterTeamID {
			return false
		}
	}
	if f.SearchTerm != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*f.SearchTerm)) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, st domain.TicketStatus) bool {
	for _, v := range list {
		if v == st {
			return true
		}
	}
	return false
}

type memActivities struct{ s *memStore }

func (r *memActivities) Create(_ context.Context, a *domain.TicketActivity) error {
	if r.s.activityErr != nil {
		return r.s.activityErr
	}
	r.s.state.seq++
	a.ID = fmt.Sprintf("activity-%d", r.s.state.seq)
	a.Seq = r.s.state.seq
	r.s.state.activities = append(r.s.state.activities, *a)
	return nil
}

func (r *memActivities) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketActivity, error) {
	out := r.s.activitiesFor(ticketID)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

type memMessages struct{ s *memStore }

func (r *memMessages) Create(_ context.Context, m *domain.TicketMessage) error {
	r.s.state.seq++
	m.ID = fmt.Sprintf("message-%d", r.s.state.seq)
	r.s.state.messages = append(r.s.state.messages, *m)
	return nil
}

func (r *memMessages) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	var out []domain.TicketMessage
	for _, m := range r.s.state.messages {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

type memProfiles struct {
	byID map[string]domain.Profile
}

func newMemProfiles(profiles ...domain.Profile) *memProfiles {
	m := &memProfiles{byID: map[string]domain.Profile{}}
	for _, p := range profiles {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (m *memProfiles) ListByIDs(_ context.Context, ids []string) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProfiles) List(_ context.Context, f repository.ProfileFilter) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, p := range m.byID {
		caller := domain.CallerFromProfile(&p)
		if len(f.Roles) > 0 && !caller.HasAnyRole(f.Roles...) {
			continue
		}
		if f.TeamID != nil && (p.TeamID == nil || *p.TeamID != *f.TeamID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTeams struct {
	byID map[string]domain.Team
}

func (m *memTeams) GetByID(_ context.Context, id string) (*domain.Team, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

// recordingDispatcher delivers synchronously and keeps every published event.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
	handlers  map[events.EventType][]events.EventHandler
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	handlers := append([]events.EventHandler(nil), d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, h := range handlers {
		_ = h(ctx, event)
	}
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = map[events.EventType][]events.EventHandler{}
	}
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *recordingDispatcher) Drain() {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.published))
	for i, e := range d.published {
		out[i] = e.Type
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Enabled() bool { return true }

type fakeMarker struct {
	marked map[string]bool
	err    error
}

func (m *fakeMarker) MarkOnce(_ context.Context, key string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.marked == nil {
		m.marked = map[string]bool{}
	}
	if m.marked[key] {
		return false, nil
	}
	m.marked[key] = true
	return true, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func teamID(s string) *string { return &s }

// fixture wires the services over the in-memory store with a standard cast of people.
type fixture struct {
	store      *memStore
	profiles   *memProfiles
	dispatcher *recordingDispatcher
	clock      *testClock
	tickets    *TicketService
	approvals  *ApprovalService

	user, otherUser, agent, admin, manager, otherManager domain.Caller
}

func newFixture() *fixture {
	people := []domain.Profile{
		{ID: "u-alice", FullName: "Alice User", Email: "alice@example.com", Roles: []domain.Role{domain.RoleUser}, TeamID: teamID("team-finance")},
		{ID: "u-bob", FullName: "Bob User", Email: "bob@example.com", Roles: []domain.Role{domain.RoleUser}, TeamID: teamID("team-sales")},
		{ID: "u-hana", FullName: "Hana Helpdesk", Email: "hana@example.com", Roles: []domain.Role{domain.RoleHelpdesk}},
		{ID: "u-ada", FullName: "Ada Admin", Email: "ada@example.com", Roles: []domain.Role{domain.RoleAdmin}},
		{ID: "u-mia", FullName: "Mia Manager", Email: "mia@example.com", Roles: []domain.Role{domain.RoleManager}, TeamID: teamID("team-finance")},
		{ID: "u-sam", FullName: "Sam Manager", Email: "sam@example.com", Roles: []domain.Role{domain.RoleManager}, TeamID: teamID("team-sales")},
	}
	profiles := newMemProfiles(people...)
	store := newMemStore(profiles)
	dispatcher := &recordingDispatcher{}
	// Monday 3 June 2024, 09:00 UTC.
	clock := &testClock{now: time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)}
	teams := &memTeams{byID: map[string]domain.Team{
		"team-finance": {ID: "team-finance", Name: "Finance", RequiresApproval: true},
		"team-sales":   {ID: "team-sales", Name: "Sales"},
	}}

	caller := func(id string) domain.Caller {
		p := profiles.byID[id]
		return domain.CallerFromProfile(&p)
	}
	return &fixture{
		store:      store,
		profiles:   profiles,
		dispatcher: dispatcher,
		clock:      clock,
		tickets: NewTicketService(TicketDependencies{
			Store: store, ProfileRepo: profiles, Dispatcher: dispatcher, Clock: clock.Now,
		}),
		approvals: NewApprovalService(ApprovalDependencies{
			Store: store, ProfileRepo: profiles, TeamRepo: teams, Dispatcher: dispatcher, Clock: clock.Now,
		}),
		user:         caller("u-alice"),
		otherUser:    caller("u-bob"),
		agent:        caller("u-hana"),
		admin:        caller("u-ada"),
		manager:      caller("u-mia"),
		otherManager: caller("u-sam"),
	}
}
