package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"lineup_server/cache"
	"lineup_server/models"
)

// Coordinator states. Back exits to idle from anywhere.
const (
	StateIdle            = "idle"
	StateSearching       = "searching"
	StateResults         = "results"
	StateDetail          = "detail"
	StateChat            = "chat"
	StateRejection       = "rejection"
	StateCongratulations = "congratulations"
)

// ErrActionInProgress is returned when a guarded action is re-entered while a
// previous invocation still holds the guard.
var ErrActionInProgress = errors.New("action already in progress")

// ErrInvalidTransition is returned for an operation that does not apply to
// the user's current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// machine is one user's live speed-dating round.
type machine struct {
	State           string
	Session         *models.SpeedDatingSession
	Results         []models.ScoredCandidate
	SelectedID      string
	DetailEnteredAt time.Time
	Connection      *models.Connection
	Attempts        int
	LastError       string
	cancel          context.CancelFunc // stops the search goroutine
}

// Coordinator drives a user through searching → results → detail →
// chat|rejection → congratulations. All durable state lives in the store;
// the in-memory machine only mirrors where the user's screen is, so a process
// restart recovers from store documents and server-anchored countdowns.
type Coordinator struct {
	Sessions    *SpeedDatingService
	Connections *ConnectionService
	Guards      cache.GuardLocker

	SearchCountdown   time.Duration // visible search budget (300s)
	DetailCountdown   time.Duration // per-candidate dwell budget (5s)
	ChatCountdown     time.Duration // chat budget anchored to StartedAt (4h)
	SearchRetryDelay  time.Duration // delay between empty evaluation rounds
	SearchMaxAttempts int           // 0 = retry forever
	GuardTTL          time.Duration // guard safety timeout

	Now func() time.Time

	mu       sync.Mutex
	machines map[string]*machine
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Coordinator) machineFor(userID string) *machine {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machines == nil {
		c.machines = map[string]*machine{}
	}
	m, ok := c.machines[userID]
	if !ok {
		m = &machine{State: StateIdle}
		c.machines[userID] = m
	}
	return m
}

func (c *Coordinator) tryGuard(ctx context.Context, name string) (func(), error) {
	if c.Guards == nil {
		return func() {}, nil
	}
	ok, err := c.Guards.TryAcquire(ctx, name, c.GuardTTL)
	if err != nil {
		// A dead guard store must not deadlock the UI; proceed unguarded.
		log.Printf("⚠️ Guard %s unavailable: %v", name, err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrActionInProgress
	}
	return func() {
		if err := c.Guards.Release(context.Background(), name); err != nil {
			log.Printf("⚠️ Failed to release guard %s: %v", name, err)
		}
	}, nil
}

// StartSearch creates the user's session and kicks off the paced evaluation
// loop. Guarded against double-taps; the guard TTL is the safety timeout that
// frees it if this call never returns.
func (c *Coordinator) StartSearch(ctx context.Context, userID string, ageMin, ageMax int) (*models.SpeedDatingSession, error) {
	release, err := c.tryGuard(ctx, "modeSelection:"+userID)
	if err != nil {
		return nil, err
	}
	defer release()

	m := c.machineFor(userID)

	c.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	c.mu.Unlock()

	session, err := c.Sessions.StartSession(ctx, userID, ageMin, ageMax)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	m.State = StateSearching
	m.Session = session
	m.Results = nil
	m.Attempts = 0
	m.LastError = ""
	m.cancel = cancel
	c.mu.Unlock()

	go c.runSearch(searchCtx, userID, session.SyncGroup)
	return session, nil
}

// runSearch waits for the sync boundary, evaluates, and on an empty round
// sleeps a fixed delay and tries again. An empty pool is recoverable, not
// terminal, unless the configured attempt bound is hit.
func (c *Coordinator) runSearch(ctx context.Context, userID string, syncGroup int64) {
	delay := SyncDelay(syncGroup, c.now())
	log.Printf("⏳ Search for %s evaluates in %s", userID, delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	for {
		results, err := c.Sessions.FindMatches(ctx, userID)
		m := c.machineFor(userID)

		switch {
		case err == nil:
			c.mu.Lock()
			if m.State == StateSearching {
				m.State = StateResults
				m.Results = results
			}
			c.mu.Unlock()
			return

		case errors.Is(err, ErrNoUsersAvailable):
			c.mu.Lock()
			m.Attempts++
			attempts := m.Attempts
			m.LastError = err.Error()
			c.mu.Unlock()

			if c.SearchMaxAttempts > 0 && attempts >= c.SearchMaxAttempts {
				log.Printf("🛑 Search for %s gave up after %d empty rounds", userID, attempts)
				c.failSearch(ctx, userID, "no users available")
				return
			}
			log.Printf("🔄 No users available for %s, retrying in %s", userID, c.SearchRetryDelay)

			retry := time.NewTimer(c.SearchRetryDelay)
			select {
			case <-ctx.Done():
				retry.Stop()
				return
			case <-retry.C:
			}

		default:
			// Transient store failure: fall back to a safe state rather
			// than crash the round.
			log.Printf("❌ Matching failed for %s: %v", userID, err)
			c.failSearch(ctx, userID, "matching failed")
			return
		}
	}
}

func (c *Coordinator) failSearch(ctx context.Context, userID, reason string) {
	m := c.machineFor(userID)
	c.mu.Lock()
	if m.State == StateSearching {
		m.State = StateIdle
		m.LastError = reason
	}
	c.mu.Unlock()
	if err := c.Sessions.CancelSession(ctx, userID); err != nil {
		log.Printf("⚠️ Failed to clean up session for %s: %v", userID, err)
	}
}

// Status reports the user's state with recomputed countdowns. The detail
// auto-advance is applied here: remaining time is a pure function of the
// entry anchor, so an expired dwell flips back to results on the next poll
// even if no timer fired.
type CoordinatorStatus struct {
	State            string                   `json:"state"`
	SearchRemaining  int64                    `json:"searchRemainingSeconds,omitempty"`
	DetailRemaining  int64                    `json:"detailRemainingSeconds,omitempty"`
	ChatRemaining    int64                    `json:"chatRemainingSeconds,omitempty"`
	Results          []models.ScoredCandidate `json:"results,omitempty"`
	SelectedID       string                   `json:"selectedId,omitempty"`
	ConnectionID     string                   `json:"connectionId,omitempty"`
	Attempts         int                      `json:"attempts,omitempty"`
	LastError        string                   `json:"lastError,omitempty"`
}

func (c *Coordinator) Status(ctx context.Context, userID string) (*CoordinatorStatus, error) {
	m := c.machineFor(userID)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	status := &CoordinatorStatus{
		State:     m.State,
		Attempts:  m.Attempts,
		LastError: m.LastError,
	}

	switch m.State {
	case StateSearching:
		if m.Session != nil {
			if createdAt, err := time.Parse(time.RFC3339, m.Session.CreatedAt); err == nil {
				remaining := Remaining(createdAt, c.SearchCountdown, now)
				status.SearchRemaining = int64(remaining.Seconds())
				if remaining == 0 {
					// Search window expired; exit to idle.
					m.State = StateIdle
					m.LastError = "search timed out"
					if m.cancel != nil {
						m.cancel()
					}
					status.State = StateIdle
					go c.cleanupSession(userID)
				}
			}
		}
	case StateDetail:
		remaining := Remaining(m.DetailEnteredAt, c.DetailCountdown, now)
		status.DetailRemaining = int64(remaining.Seconds())
		if remaining == 0 {
			// No action taken on the candidate; bounce back to results.
			m.State = StateResults
			m.SelectedID = ""
			status.State = StateResults
		}
		status.SelectedID = m.SelectedID
		status.Results = m.Results
	case StateResults:
		status.Results = m.Results
	case StateChat:
		if m.Connection != nil {
			status.ConnectionID = m.Connection.ConnectionID
			if startedAt, err := time.Parse(time.RFC3339, m.Connection.StartedAt); err == nil {
				remaining := Remaining(startedAt, c.ChatCountdown, now)
				status.ChatRemaining = int64(remaining.Seconds())
				if remaining == 0 {
					// Chat window over; force the rejection flow and tear
					// the room down so the counterpart is signaled too.
					m.State = StateRejection
					status.State = StateRejection
					go c.teardownConnection(m.Connection.ConnectionID)
				}
			}
		}
	}

	return status, nil
}

func (c *Coordinator) cleanupSession(userID string) {
	// Fire and forget: correctness needs eventual deletion, not immediate.
	if err := c.Sessions.CancelSession(context.Background(), userID); err != nil {
		log.Printf("⚠️ Background session cleanup for %s failed: %v", userID, err)
	}
}

// teardownConnection marks the room rejected for the counterpart's
// subscription and then removes the room with its messages. Shared by the
// explicit end-chat action and the chat-window expiry.
func (c *Coordinator) teardownConnection(connectionID string) {
	ctx := context.Background()
	if err := c.Connections.Reject(ctx, connectionID); err != nil {
		// Room may already be gone; nothing to signal.
		log.Printf("⚠️ Could not mark %s rejected: %v", connectionID, err)
	}
	if err := c.Connections.EndChat(ctx, connectionID); err != nil {
		log.Printf("⚠️ Teardown of %s failed: %v", connectionID, err)
	}
}

// SelectCandidate enters the per-candidate detail view.
func (c *Coordinator) SelectCandidate(userID, candidateID string) error {
	m := c.machineFor(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.State != StateResults {
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, m.State)
	}
	for _, r := range m.Results {
		if r.Profile.UserID == candidateID {
			m.State = StateDetail
			m.SelectedID = candidateID
			m.DetailEnteredAt = c.now()
			return nil
		}
	}
	return fmt.Errorf("candidate %s not in results", candidateID)
}

// ConnectWith moves detail → chat: reuse or create the room, then retire the
// search session.
func (c *Coordinator) ConnectWith(ctx context.Context, userID string) (*models.Connection, error) {
	release, err := c.tryGuard(ctx, "sessionCheck:"+userID)
	if err != nil {
		return nil, err
	}
	defer release()

	m := c.machineFor(userID)
	c.mu.Lock()
	if m.State != StateDetail || m.SelectedID == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: connect from %s", ErrInvalidTransition, m.State)
	}
	targetID := m.SelectedID
	c.mu.Unlock()

	conn, _, err := c.Connections.Connect(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}

	if err := c.Sessions.MarkMatched(ctx, userID); err != nil {
		log.Printf("⚠️ Failed to mark session matched for %s: %v", userID, err)
	}
	go c.cleanupSession(userID)

	c.mu.Lock()
	m.State = StateChat
	m.Connection = conn
	c.mu.Unlock()
	return conn, nil
}

// ContinuePermanently records the user's opt-in; once both sides have opted
// in the room is promoted and the user lands on congratulations.
func (c *Coordinator) ContinuePermanently(ctx context.Context, userID string) (bool, error) {
	m := c.machineFor(userID)
	c.mu.Lock()
	if m.State != StateChat || m.Connection == nil {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: continue from %s", ErrInvalidTransition, m.State)
	}
	connectionID := m.Connection.ConnectionID
	c.mu.Unlock()

	_, promoted, err := c.Connections.SetContinuePermanently(ctx, connectionID, userID)
	if err != nil {
		return false, err
	}

	if promoted {
		c.mu.Lock()
		m.State = StateCongratulations
		c.mu.Unlock()
	}
	return promoted, nil
}

// EndChat is the leaving party's exit: mark the room rejected for the
// counterpart's subscription, tear down messages and room in the background,
// and land on the rejection screen to collect a reason.
func (c *Coordinator) EndChat(ctx context.Context, userID string) error {
	m := c.machineFor(userID)
	c.mu.Lock()
	if m.State != StateChat || m.Connection == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: end chat from %s", ErrInvalidTransition, m.State)
	}
	connectionID := m.Connection.ConnectionID
	m.State = StateRejection
	c.mu.Unlock()

	go c.teardownConnection(connectionID)
	return nil
}

// SubmitRejection stores the review (or skip) and returns the user to idle.
func (c *Coordinator) SubmitRejection(ctx context.Context, userID, reason string, skipped bool) error {
	m := c.machineFor(userID)
	c.mu.Lock()
	if m.State != StateRejection {
		c.mu.Unlock()
		return fmt.Errorf("%w: review from %s", ErrInvalidTransition, m.State)
	}
	var connectionID, partnerID string
	if m.Connection != nil {
		connectionID = m.Connection.ConnectionID
		partnerID = m.Connection.OtherUser(userID)
	}
	m.State = StateIdle
	m.Connection = nil
	c.mu.Unlock()

	return c.Connections.SubmitRejectionReview(ctx, models.RejectionReview{
		UserID:       userID,
		PartnerID:    partnerID,
		Reason:       reason,
		Skipped:      skipped,
		ConnectionID: connectionID,
	})
}

// Back exits the round from any state: stop timers, drop the session, reset
// to idle. In-flight store deletes finish in the background.
func (c *Coordinator) Back(ctx context.Context, userID string) error {
	m := c.machineFor(userID)
	c.mu.Lock()
	wasSearching := m.State == StateSearching || m.State == StateResults || m.State == StateDetail
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.State = StateIdle
	m.Results = nil
	m.SelectedID = ""
	m.Connection = nil
	c.mu.Unlock()

	if wasSearching {
		go c.cleanupSession(userID)
	}
	return nil
}
