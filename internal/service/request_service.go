package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

// UnscheduledKey groups calendar entries without a scheduled date.
const UnscheduledKey = "unscheduled"

// RequestService owns the maintenance request lifecycle.
type RequestService struct {
	requests   repository.RequestRepository
	equipment  repository.EquipmentRepository
	users      repository.UserRepository
	history    repository.RequestHistoryRepository
	tx         repository.TxRunner
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators for RequestService.
type RequestDependencies struct {
	Repos      *repository.Repositories
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:   deps.Repos.Requests,
		equipment:  deps.Repos.Equipment,
		users:      deps.Repos.Users,
		history:    deps.Repos.History,
		tx:         deps.Repos.Tx,
		dispatcher: deps.Dispatcher,
		logger:     logger.Named("requests"),
	}
}

// CreateRequestInput describes request creation.
type CreateRequestInput struct {
	Subject       string
	Type          domain.RequestType
	EquipmentID   string
	ScheduledDate *time.Time
	Priority      domain.RequestPriority
	AIExplanation *string
}

// ListRequestsInput mirrors the admin listing query.
type ListRequestsInput struct {
	Statuses    []domain.RequestStatus
	Priorities  []domain.RequestPriority
	Type        *domain.RequestType
	TeamID      *string
	AssignedTo  *string
	EquipmentID *string
	Query       string
	Page        int
	PageSize    int
}

// Create opens a request on equipment, routed to the equipment's team.
func (s *RequestService) Create(ctx context.Context, caller domain.Caller, input CreateRequestInput) (*domain.Request, error) {
	equipmentID := strings.TrimSpace(input.EquipmentID)
	if equipmentID == "" {
		return nil, util.NewValidationError("equipment is required", nil)
	}
	eq, err := s.equipment.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, notFoundOr(err, "Equipment", map[string]any{"equipment_id": equipmentID})
	}
	if eq.TeamID == "" {
		return nil, util.NewNotFound("Team", map[string]any{"equipment_id": equipmentID})
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, util.NewValidationError("subject is required", nil)
	}
	if !input.Type.Valid() {
		return nil, util.NewValidationError("type must be one of corrective, preventive, predictive", map[string]any{"type": input.Type})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.RequestPriorityMedium
	}
	if !priority.Valid() {
		return nil, util.NewValidationError("priority must be one of low, medium, high", map[string]any{"priority": priority})
	}

	req := &domain.Request{
		Subject:       subject,
		Type:          input.Type,
		Priority:      priority,
		EquipmentID:   eq.ID,
		TeamID:        eq.TeamID,
		Status:        domain.RequestStatusNew,
		ScheduledDate: input.ScheduledDate,
		AIExplanation: input.AIExplanation,
		CreatedBy:     actorID(caller),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requests.Create(ctx, req); err != nil {
			return err
		}
		return s.history.Create(ctx, &domain.RequestHistory{
			RequestID:  req.ID,
			ActorID:    actorID(caller),
			ChangeType: domain.ChangeTypeCreated,
			NewValue: map[string]any{
				"status":   req.Status,
				"type":     req.Type,
				"priority": req.Priority,
			},
		})
	})
	if err != nil {
		return nil, notFoundOr(err, "Equipment", nil)
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		ActorID:   actorID(caller),
		Payload: events.RequestCreatedPayload{
			EquipmentID: req.EquipmentID,
			TeamID:      req.TeamID,
			Type:        req.Type,
			Priority:    req.Priority,
			Subject:     req.Subject,
		},
	})
	return req, nil
}

// AssignToSelf lets a technician claim a new request of their own team.
func (s *RequestService) AssignToSelf(ctx context.Context, caller domain.Caller, requestID string) (*domain.Request, error) {
	return s.transition(ctx, caller, requestID, domain.OpAssign, func(req *domain.Request) (*plannedTransition, error) {
		next, ok := domain.NextStatus(req.Status, domain.OpAssign)
		if !ok {
			return nil, util.NewInvalidState("Already assigned", nil)
		}
		if !caller.IsTechnician() {
			return nil, util.NewForbidden("Only technicians can take jobs")
		}
		if !caller.InTeam(req.TeamID) {
			return nil, util.NewForbidden("You are not in this team")
		}
		return &plannedTransition{
			guard:  repository.TransitionGuard{Status: req.Status},
			change: repository.TransitionChange{Status: next, AssignedTo: &caller.ID},
		}, nil
	})
}

// AssignToTechnician lets an admin hand a new request to a technician of the request's team.
func (s *RequestService) AssignToTechnician(ctx context.Context, caller domain.Caller, requestID, technicianID string) (*domain.Request, error) {
	return s.adminAssign(ctx, caller, requestID, technicianID, domain.OpAssignTo, "Only new requests can be assigned")
}

// Reassign moves an in-progress request to another technician of the same team.
func (s *RequestService) Reassign(ctx context.Context, caller domain.Caller, requestID, technicianID string) (*domain.Request, error) {
	return s.adminAssign(ctx, caller, requestID, technicianID, domain.OpReassign, "Only in-progress requests can be reassigned")
}

func (s *RequestService) adminAssign(ctx context.Context, caller domain.Caller, requestID, technicianID string, op domain.Operation, stateMsg string) (*domain.Request, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	technicianID = strings.TrimSpace(technicianID)
	if technicianID == "" {
		return nil, util.NewValidationError("technicianId is required", nil)
	}

	return s.transition(ctx, caller, requestID, op, func(req *domain.Request) (*plannedTransition, error) {
		next, ok := domain.NextStatus(req.Status, op)
		if !ok {
			return nil, util.NewInvalidState(stateMsg, map[string]any{"status": req.Status})
		}
		tech, err := s.users.GetByID(ctx, technicianID)
		if err != nil {
			return nil, notFoundOr(err, "Technician", map[string]any{"technician_id": technicianID})
		}
		if tech.Role != domain.RoleTechnician {
			return nil, util.NewValidationError("Selected user is not a technician", nil)
		}
		if tech.TeamID == nil || *tech.TeamID != req.TeamID {
			return nil, util.NewValidationError("Technician must belong to the request team", nil)
		}
		guard := repository.TransitionGuard{Status: req.Status}
		if op == domain.OpReassign {
			guard.MatchAssignee = true
			guard.AssignedTo = req.AssignedTo
		}
		return &plannedTransition{
			guard:  guard,
			change: repository.TransitionChange{Status: next, AssignedTo: &tech.ID},
		}, nil
	})
}

// Close marks an in-progress request repaired with the hours spent.
func (s *RequestService) Close(ctx context.Context, caller domain.Caller, requestID string, durationHours float64) (*domain.Request, error) {
	return s.transition(ctx, caller, requestID, domain.OpClose, func(req *domain.Request) (*plannedTransition, error) {
		if !caller.IsAdmin() {
			if !caller.IsTechnician() {
				return nil, util.NewForbidden("Not allowed to close requests")
			}
			if req.AssignedTo == nil || *req.AssignedTo != caller.ID {
				return nil, util.NewForbidden("Only the assigned technician can close this request")
			}
		}
		next, ok := domain.NextStatus(req.Status, domain.OpClose)
		if !ok {
			return nil, util.NewInvalidState("Only in-progress requests can be closed", map[string]any{"status": req.Status})
		}
		if math.IsNaN(durationHours) || math.IsInf(durationHours, 0) || durationHours <= 0 {
			return nil, util.NewValidationError("duration must be a positive number (hours)", nil)
		}
		d := durationHours
		return &plannedTransition{
			guard:  repository.TransitionGuard{Status: req.Status, MatchAssignee: true, AssignedTo: req.AssignedTo},
			change: repository.TransitionChange{Status: next, Duration: &d},
		}, nil
	})
}

type plannedTransition struct {
	guard  repository.TransitionGuard
	change repository.TransitionChange
}

// transition loads the request, validates it with plan and applies the
// result as a compare-and-swap. When the swap loses a race the request is
// re-read and re-validated so the caller sees the error matching the state
// that won.
func (s *RequestService) transition(ctx context.Context, caller domain.Caller, requestID string, op domain.Operation, plan func(*domain.Request) (*plannedTransition, error)) (*domain.Request, error) {
	before, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	p, err := plan(before)
	if err != nil {
		return nil, err
	}

	var after *domain.Request
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		updated, err := s.requests.Transition(ctx, before.ID, p.guard, p.change)
		if err != nil {
			return err
		}
		after = updated
		return s.history.Create(ctx, historyFor(caller, op, before, updated))
	})
	if errors.Is(err, repository.ErrStaleState) {
		current, lerr := s.load(ctx, requestID)
		if lerr != nil {
			return nil, lerr
		}
		if _, perr := plan(current); perr != nil {
			return nil, perr
		}
		return nil, util.NewInvalidState("Request changed concurrently, retry", nil)
	}
	if err != nil {
		return nil, util.MapError(err)
	}

	s.logger.Info("request transition",
		zap.String("request_id", after.ID),
		zap.String("op", string(op)),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)))
	publish(ctx, s.dispatcher, s.logger, eventFor(caller, op, before, after))
	return after, nil
}

func (s *RequestService) load(ctx context.Context, requestID string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, strings.TrimSpace(requestID))
	if err != nil {
		return nil, notFoundOr(err, "Request", map[string]any{"request_id": requestID})
	}
	return req, nil
}

func historyFor(caller domain.Caller, op domain.Operation, before, after *domain.Request) *domain.RequestHistory {
	h := &domain.RequestHistory{
		RequestID: after.ID,
		ActorID:   actorID(caller),
		OldValue:  map[string]any{"status": before.Status, "assigned_to": before.AssignedTo},
		NewValue:  map[string]any{"status": after.Status, "assigned_to": after.AssignedTo},
	}
	switch op {
	case domain.OpReassign:
		h.ChangeType = domain.ChangeTypeReassigned
	case domain.OpClose:
		h.ChangeType = domain.ChangeTypeClosed
		h.NewValue["duration"] = after.Duration
	default:
		h.ChangeType = domain.ChangeTypeAssigned
	}
	return h
}

func eventFor(caller domain.Caller, op domain.Operation, before, after *domain.Request) events.Event {
	event := events.Event{RequestID: after.ID, ActorID: actorID(caller)}
	switch op {
	case domain.OpClose:
		event.Type = events.EventRequestClosed
		payload := events.RequestClosedPayload{AssignedTo: after.AssignedTo}
		if after.Duration != nil {
			payload.DurationHours = *after.Duration
		}
		event.Payload = payload
		return event
	case domain.OpReassign:
		event.Type = events.EventRequestReassigned
	default:
		event.Type = events.EventRequestAssigned
	}
	payload := events.RequestAssignedPayload{TeamID: after.TeamID, PreviousUserID: before.AssignedTo}
	if after.AssignedTo != nil {
		payload.AssignedTo = *after.AssignedTo
	}
	event.Payload = payload
	return event
}

// Get returns one request if the caller may see it.
func (s *RequestService) Get(ctx context.Context, caller domain.Caller, requestID string) (*domain.Request, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(caller, req); err != nil {
		return nil, err
	}
	return req, nil
}

// History returns the audit trail of a request, oldest first.
func (s *RequestService) History(ctx context.Context, caller domain.Caller, requestID string) ([]domain.RequestHistory, error) {
	req, err := s.Get(ctx, caller, requestID)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return entries, nil
}

// Kanban partitions the caller's visible requests by status. Every status
// has a bucket, including scrap.
func (s *RequestService) Kanban(ctx context.Context, caller domain.Caller) (map[domain.RequestStatus][]domain.Request, error) {
	board := make(map[domain.RequestStatus][]domain.Request, len(domain.RequestStatuses))
	for _, st := range domain.RequestStatuses {
		board[st] = []domain.Request{}
	}

	filter, visible := visibilityFilter(caller)
	if !visible {
		return board, nil
	}
	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	for _, r := range reqs {
		board[r.Status] = append(board[r.Status], r)
	}
	return board, nil
}

// Calendar groups the caller's visible preventive requests by scheduled
// day (UTC, YYYY-MM-DD).
func (s *RequestService) Calendar(ctx context.Context, caller domain.Caller) (map[string][]domain.Request, error) {
	calendar := map[string][]domain.Request{}

	filter, visible := visibilityFilter(caller)
	if !visible {
		return calendar, nil
	}
	preventive := domain.RequestTypePreventive
	filter.Type = &preventive

	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	for _, r := range reqs {
		key := UnscheduledKey
		if r.ScheduledDate != nil {
			key = r.ScheduledDate.UTC().Format(time.DateOnly)
		}
		calendar[key] = append(calendar[key], r)
	}
	return calendar, nil
}

// List is the admin listing with filters and paging.
func (s *RequestService) List(ctx context.Context, caller domain.Caller, input ListRequestsInput) (*Page[domain.Request], error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	page, size := normalizePage(input.Page, input.PageSize, defaultRequestPageSize)
	filter := repository.RequestFilter{
		Statuses:    input.Statuses,
		Priorities:  input.Priorities,
		Type:        input.Type,
		TeamID:      input.TeamID,
		AssignedTo:  input.AssignedTo,
		EquipmentID: input.EquipmentID,
		Subject:     input.Query,
	}

	total, err := s.requests.Count(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size
	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, util.MapError(err)
	}
	if items == nil {
		items = []domain.Request{}
	}
	return &Page[domain.Request]{Items: items, Page: page, PageSize: size, Total: total}, nil
}

// visibilityFilter scopes technicians to their team. A technician without
// a team sees nothing.
func visibilityFilter(caller domain.Caller) (repository.RequestFilter, bool) {
	if !caller.IsTechnician() {
		return repository.RequestFilter{}, true
	}
	if caller.TeamID == nil {
		return repository.RequestFilter{}, false
	}
	team := *caller.TeamID
	return repository.RequestFilter{TeamID: &team}, true
}

func checkVisible(caller domain.Caller, req *domain.Request) error {
	if caller.IsTechnician() && !caller.InTeam(req.TeamID) {
		return util.NewForbidden("You are not in this team")
	}
	return nil
}
