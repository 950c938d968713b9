package review

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/internal/toolcall"
)

const defaultTTL = 30 * time.Minute

// ErrNotFound reports an unknown review id.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("review not found: %s", e.ID)
}

// Service orchestrates review ticket lifecycle operations.
type Service struct {
	store      *Store
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.Mutex
}

// NewService creates a service backed by <workspace>/state/reviews.json.
func NewService(workspace string) *Service {
	return &Service{
		store:      NewStore(workspace),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// Create opens a new pending review ticket and assigns its id.
func (s *Service) Create(input CreateInput) (Review, error) {
	agentID := strings.TrimSpace(input.AgentID)
	if agentID == "" {
		return Review{}, fmt.Errorf("agent_id is required")
	}
	if len(input.ToolChoice) == 0 {
		return Review{}, fmt.Errorf("tool_choice is required")
	}
	if _, err := toolcall.ParseJSON(input.ToolChoice); err != nil {
		return Review{}, fmt.Errorf("invalid tool_choice: %w", err)
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load()
	if err != nil {
		return Review{}, err
	}

	ticket := Review{
		ID:         uuid.NewString(),
		AgentID:    agentID,
		TaskState:  input.TaskState,
		ToolChoice: input.ToolChoice,
		Status:     StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	data.Reviews = append(data.Reviews, ticket)
	if err := s.store.Save(data); err != nil {
		return Review{}, err
	}
	return ticket, nil
}

// Get returns one review by id.
func (s *Service) Get(id string) (Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load()
	if err != nil {
		return Review{}, err
	}

	reviewID := strings.TrimSpace(id)
	for _, ticket := range data.Reviews {
		if ticket.ID == reviewID {
			return ticket, nil
		}
	}
	return Review{}, ErrNotFound{ID: reviewID}
}

// ListPending returns pending reviews, oldest first.
func (s *Service) ListPending() ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	pending := make([]Review, 0, len(data.Reviews))
	for _, ticket := range data.Reviews {
		if ticket.Status == StatusPending {
			pending = append(pending, ticket)
		}
	}
	return pending, nil
}

// Decide records a human decision on a pending review.
func (s *Service) Decide(id string, input DecideInput) (Review, error) {
	reviewID := strings.TrimSpace(id)
	if reviewID == "" {
		return Review{}, fmt.Errorf("id is required")
	}

	decision := strings.ToLower(strings.TrimSpace(input.Decision))
	switch decision {
	case DecisionApprove, DecisionReject, DecisionEscalate, DecisionTerminate:
	default:
		return Review{}, fmt.Errorf("invalid decision: %q", input.Decision)
	}

	if len(input.ModifiedToolCall) > 0 {
		if _, err := toolcall.ParseJSON(input.ModifiedToolCall); err != nil {
			return Review{}, fmt.Errorf("invalid modified_tool_call: %w", err)
		}
	}

	decidedBy := strings.TrimSpace(input.DecidedBy)
	if decidedBy == "" {
		decidedBy = "unknown"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load()
	if err != nil {
		return Review{}, err
	}

	now := s.now().UTC()
	for i := range data.Reviews {
		ticket := &data.Reviews[i]
		if ticket.ID != reviewID {
			continue
		}
		if ticket.Status != StatusPending {
			return Review{}, fmt.Errorf("review %s is not pending", reviewID)
		}

		ticket.Status = StatusDecided
		ticket.Decision = decision
		ticket.Explanation = strings.TrimSpace(input.Explanation)
		ticket.ModifiedToolCall = input.ModifiedToolCall
		ticket.DecidedBy = decidedBy
		ticket.DecidedAt = now

		if err := s.store.Save(data); err != nil {
			return Review{}, err
		}
		return *ticket, nil
	}

	return Review{}, ErrNotFound{ID: reviewID}
}

// ExpirePending marks pending reviews as expired when their TTL has elapsed.
func (s *Service) ExpirePending() ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	expired := make([]Review, 0)
	changed := false

	for i := range data.Reviews {
		ticket := &data.Reviews[i]
		if ticket.Status != StatusPending {
			continue
		}
		if ticket.ExpiresAt.IsZero() || ticket.ExpiresAt.After(now) {
			continue
		}

		ticket.Status = StatusExpired
		ticket.DecidedAt = now
		ticket.DecidedBy = "system"
		if ticket.Explanation == "" {
			ticket.Explanation = "expired by ttl"
		}
		expired = append(expired, *ticket)
		changed = true
	}

	if changed {
		if err := s.store.Save(data); err != nil {
			return nil, err
		}
	}
	return expired, nil
}
