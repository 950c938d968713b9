package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	stateFileMode = 0644
	stateDirMode  = 0755
)

// Message is one transcript entry.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Transcript is the execution-context snapshot source for one agent run.
// The approval chain reads it; only the surrounding caller appends to it.
type Transcript struct {
	AgentID   string    `json:"agent_id"`
	StartedAt time.Time `json:"started_at"`
	Messages  []Message `json:"messages"`

	mu sync.Mutex
}

// NewTranscript starts an empty transcript for the given agent.
func NewTranscript(agentID string) *Transcript {
	return &Transcript{
		AgentID:   agentID,
		StartedAt: time.Now().UTC(),
		Messages:  []Message{},
	}
}

// Append records one message.
func (t *Transcript) Append(role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Messages = append(t.Messages, Message{
		Role:    role,
		Content: content,
		Time:    time.Now().UTC(),
	})
}

// Snapshot returns the transcript as a plain key/value tree suitable for
// embedding in a review request. The returned tree shares no state with the
// transcript.
func (t *Transcript) Snapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	encoded, err := json.Marshal(struct {
		AgentID   string    `json:"agent_id"`
		StartedAt time.Time `json:"started_at"`
		Messages  []Message `json:"messages"`
	}{t.AgentID, t.StartedAt, t.Messages})
	if err != nil {
		return map[string]any{"agent_id": t.AgentID}
	}

	var tree map[string]any
	if err := json.Unmarshal(encoded, &tree); err != nil {
		return map[string]any{"agent_id": t.AgentID}
	}
	return tree
}

// Manager persists transcripts under <workspace>/state/transcript.json.
type Manager struct {
	path string
	mu   sync.Mutex
}

// NewManager creates a transcript manager rooted at workspace state.
func NewManager(workspace string) *Manager {
	return &Manager{
		path: filepath.Join(workspace, "state", "transcript.json"),
	}
}

// Load reads the persisted transcript, or starts a fresh one for agentID.
func (m *Manager) Load(agentID string) (*Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTranscript(agentID), nil
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	if transcript.AgentID != agentID {
		// A different run owns the stored transcript; start over.
		return NewTranscript(agentID), nil
	}
	if transcript.Messages == nil {
		transcript.Messages = []Message{}
	}
	return &transcript, nil
}

// Save writes the transcript to disk.
func (m *Manager) Save(t *Transcript) error {
	t.mu.Lock()
	encoded, err := json.MarshalIndent(struct {
		AgentID   string    `json:"agent_id"`
		StartedAt time.Time `json:"started_at"`
		Messages  []Message `json:"messages"`
	}{t.AgentID, t.StartedAt, t.Messages}, "", "  ")
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), stateDirMode); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(m.path, encoded, stateFileMode); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
