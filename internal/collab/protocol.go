package collab

import (
	"encoding/json"

	"github.com/inamate/composer/internal/document"
)

type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is in document coordinates so peers can render it at any zoom.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	UserID    string `json:"userId"`
	ServerSeq int64  `json:"serverSeq"`
}

type DocSyncPayload struct {
	Document  *document.Document `json:"document"`
	ServerSeq int64              `json:"serverSeq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation types accepted by DocumentState.
const (
	OpLayerTransform  = "layer.transform"
	OpLayerAdd        = "layer.add"
	OpLayerMove       = "layer.move"
	OpLayerGroup      = "layer.group"
	OpLayerUngroup    = "layer.ungroup"
	OpLayerDuplicate  = "layer.duplicate"
	OpLayerRemove     = "layer.remove"
	OpLayerVisibility = "layer.visibility"
	OpLayerLocked     = "layer.locked"
	OpLayerRename     = "layer.rename"
	OpLayerCollapsed  = "layer.collapsed"
)

// --- Operation Types ---

type TransformUpdate struct {
	LayerID   string             `json:"layerId"`
	Transform document.Transform `json:"transform"`
}

// Operation represents a document mutation
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`
	LayerID   string `json:"layerId,omitempty"`

	// For layer.transform
	Updates []TransformUpdate `json:"updates,omitempty"`

	// For layer.add
	Layer *document.Layer `json:"layer,omitempty"`

	// For layer.add / layer.move
	ParentID string `json:"parentId,omitempty"`
	Index    *int   `json:"index,omitempty"`

	// For layer.group
	LayerIDs []string `json:"layerIds,omitempty"`

	// For layer.group / layer.duplicate: ids for the created layers in
	// creation order. Clients may propose them; the server fills the rest.
	NewIDs []string `json:"newIds,omitempty"`

	// For layer.visibility / layer.locked / layer.collapsed
	Visible   *bool `json:"visible,omitempty"`
	Locked    *bool `json:"locked,omitempty"`
	Collapsed *bool `json:"collapsed,omitempty"`

	// For layer.rename
	Name string `json:"name,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string   `json:"operationId"`
	ServerSeq       int64    `json:"serverSeq"`
	ServerTimestamp int64    `json:"serverTimestamp"`
	NewIDs          []string `json:"newIds,omitempty"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}
