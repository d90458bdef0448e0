// Package a2a implements the Agent-to-Agent (A2A) Protocol surface of the
// quote agent: wire types for messages, tasks, lifecycle events and the
// agent card. HTTP+JSON transport, Section 3.2.3 of the A2A specification.
package a2a

import (
	"strings"
	"time"
)

// ============================================================================
// A2A PROTOCOL VERSION
// ============================================================================

const (
	ProtocolVersion = "1.0"
)

// ============================================================================
// AGENT CARD - Agent Discovery & Capability Advertisement
// ============================================================================

// AgentCard represents the agent's capabilities and metadata.
type AgentCard struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Description string `json:"description"`

	Provider *AgentProvider `json:"provider,omitempty"`

	PreferredTransport   string           `json:"preferredTransport"`
	AdditionalInterfaces []AgentInterface `json:"additionalInterfaces,omitempty"`

	Capabilities AgentCapabilities `json:"capabilities"`

	Skills []AgentSkill `json:"skills,omitempty"`

	DefaultInputModes  []string `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string `json:"defaultOutputModes,omitempty"`
}

// AgentProvider describes the provider of an agent.
type AgentProvider struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	URL          string `json:"url,omitempty"`
}

// AgentInterface defines an additional transport interface.
type AgentInterface struct {
	Transport string `json:"transport"` // "http+json", "sse", "websocket"
	URL       string `json:"url"`
}

// AgentCapabilities describes what the agent can do.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	MultiTurn         bool `json:"multiTurn"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentSkill describes a specific skill the agent possesses.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// ============================================================================
// MESSAGE - Conversation Messages
// ============================================================================

// Message represents a message in a conversation.
type Message struct {
	ID    string      `json:"id,omitempty"`
	Role  MessageRole `json:"role"`
	Parts []Part      `json:"parts"`
}

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleAgent MessageRole = "agent"
)

// Part represents a part of a message (union type).
type Part struct {
	Type PartType `json:"type"`

	Text string `json:"text,omitempty"`

	Data     interface{} `json:"data,omitempty"`
	DataType string      `json:"dataType,omitempty"`
}

// PartType represents the type of message part.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeData PartType = "data"
)

// NewTextMessage builds a single-part text message.
func NewTextMessage(role MessageRole, text string) Message {
	return Message{
		Role:  role,
		Parts: []Part{{Type: PartTypeText, Text: text}},
	}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ============================================================================
// TASK - Unit of Work
// ============================================================================

// Task represents a unit of work tracked by the agent. One task exists per
// accepted inbound message; ids are never reused.
type Task struct {
	ID      string     `json:"id"`
	Status  TaskStatus `json:"status"`
	Request Message    `json:"request"`
	Intent  string     `json:"intent,omitempty"`
	Result  string     `json:"result,omitempty"`
	Error   *TaskError `json:"error,omitempty"`
}

// TaskStatus represents the status of a task.
type TaskStatus struct {
	State     TaskState `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Reason    string    `json:"reason,omitempty"`
}

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input_required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
)

// Terminal reports whether the state admits no further transitions.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateCanceled
}

// TaskError represents an error during task execution.
type TaskError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ============================================================================
// STREAMING - Lifecycle Events
// ============================================================================

// Event is an immutable notification emitted on every state transition of a
// task. Sequence numbers increase strictly per task so subscribers can detect
// gaps and duplicates on delivery.
type Event struct {
	TaskID    string     `json:"taskId"`
	Sequence  uint64     `json:"sequence"`
	FromState TaskState  `json:"fromState"`
	ToState   TaskState  `json:"toState"`
	Payload   string     `json:"payload,omitempty"`
	Error     *TaskError `json:"error,omitempty"`
	Final     bool       `json:"final"`
	Timestamp time.Time  `json:"timestamp"`
}

// ============================================================================
// RPC METHOD PARAMETERS
// ============================================================================

// MessageSendParams represents parameters for message/send.
type MessageSendParams struct {
	Message Message `json:"message"`
}

// TaskQueryParams represents parameters for tasks/get.
type TaskQueryParams struct {
	TaskID string `json:"taskId"`
}

// TaskCancelParams represents parameters for tasks/cancel.
type TaskCancelParams struct {
	TaskID string `json:"taskId"`
	Reason string `json:"reason,omitempty"`
}

// SendMessageResponse is returned by the synchronous message/send binding.
type SendMessageResponse struct {
	Task Task `json:"task"`
}

// CancelResponse is returned by tasks/cancel.
type CancelResponse struct {
	TaskID   string `json:"taskId"`
	Canceled bool   `json:"canceled"`
}
