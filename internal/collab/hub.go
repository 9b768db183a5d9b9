package collab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inamate/composer/internal/document"
)

// DocumentLoader produces the initial document for a room the first time a
// client joins it.
type DocumentLoader func(documentID string) (*document.Document, error)

type Room struct {
	documentID string
	clients    map[string]*Client // clientID -> client
	presence   *PresenceManager
	state      *DocumentState
}

func NewRoom(documentID string, doc *document.Document) *Room {
	return &Room{
		documentID: documentID,
		clients:    make(map[string]*Client),
		presence:   NewPresenceManager(),
		state:      NewDocumentState(doc),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // documentID -> room
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
	loader     DocumentLoader
	logger     *slog.Logger
}

func NewHub(loader DocumentLoader, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		loader:     loader,
		logger:     logger,
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// Document returns the current state of a live room's document.
func (h *Hub) Document(documentID string) (*document.Document, bool) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	h.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return room.state.GetDocument(), true
}

func (h *Hub) room(documentID string) (*Room, error) {
	if room, ok := h.rooms[documentID]; ok {
		return room, nil
	}
	doc, err := h.loader(documentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}
	room := NewRoom(documentID, doc)
	h.rooms[documentID] = room
	return room, nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, err := h.room(client.DocumentID)
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("reject client", "error", err, "user", client.UserID)
		client.Send(errorMessage(err.Error()))
		client.closeSend()
		return
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(mustMessage(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		UserID:    client.UserID,
		ServerSeq: room.state.ServerSeq(),
	}))
	client.Send(syncMessage(room.state))

	// Send current presence state to new client
	stateMsg := room.presence.StateMessage()
	if stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinMsg := mustMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.DocumentID, joinMsg, client.ClientID)

	h.logger.Info("client joined", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Remove(client.UserID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.DocumentID)
	}
	h.mu.Unlock()

	// Broadcast leave to remaining clients
	leaveMsg := mustMessage(TypePresenceLeave, PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.DocumentID, leaveMsg, "")

	h.logger.Info("client left", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.closeSend()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	case TypeDocSync:
		if room := h.lookup(sender.DocumentID); room != nil {
			sender.Send(syncMessage(room.state))
		}
	default:
		h.logger.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) lookup(documentID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[documentID]
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		h.logger.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	room := h.lookup(sender.DocumentID)
	if room == nil {
		return
	}

	room.presence.Update(sender.UserID, &presence)

	// Broadcast to other clients in room
	outMsg := mustMessage(TypePresenceUpdate, presence)
	outMsg.UserID = sender.UserID
	h.broadcastToRoom(sender.DocumentID, outMsg, sender.ClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		h.logger.Warn("invalid op payload", "error", err, "user", sender.UserID)
		sender.Send(errorMessage("invalid op payload"))
		return
	}
	op := submit.Operation

	room := h.lookup(sender.DocumentID)
	if room == nil {
		return
	}

	seq, err := room.state.ApplyOperation(&op)
	if err != nil {
		h.logger.Debug("op rejected", "op", op.Type, "id", op.ID, "error", err)
		sender.Send(mustMessage(TypeOpNack, OperationNackPayload{
			OperationID: op.ID,
			Reason:      err.Error(),
		}))
		return
	}

	ack := mustMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
		NewIDs:          op.NewIDs,
	})
	ack.Seq = seq
	sender.Send(ack)

	out := mustMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	out.Seq = seq
	out.UserID = sender.UserID
	h.broadcastToRoom(sender.DocumentID, out, sender.ClientID)

	if op.Type == OpLayerRemove || op.Type == OpLayerUngroup {
		if room.presence.Prune(room.state.GetDocument().Layers) {
			if stateMsg := room.presence.StateMessage(); stateMsg != nil {
				h.broadcastToRoom(sender.DocumentID, stateMsg, "")
			}
		}
	}
}

func (h *Hub) broadcastToRoom(documentID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func syncMessage(state *DocumentState) *Message {
	seq := state.ServerSeq()
	msg := mustMessage(TypeDocSync, DocSyncPayload{
		Document:  state.GetDocument(),
		ServerSeq: seq,
	})
	msg.Seq = seq
	return msg
}

func errorMessage(text string) *Message {
	return mustMessage(TypeError, ErrorPayload{Message: text})
}

// mustMessage marshals payloads built from this package's own types, which
// always encode.
func mustMessage(typ string, payload any) *Message {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal %s payload: %v", typ, err))
	}
	return &Message{Type: typ, Payload: data}
}
