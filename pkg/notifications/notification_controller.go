package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/timeliness-app/assignment-tracker/pkg/assignments"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
)

// EventSync tells a client to reload the list
const EventSync = "sync"

// clientBuffer is the number of undelivered messages a slow client may queue
const clientBuffer = 8

// Message is sent to every connected client after the snapshot changed
type Message struct {
	ID    string            `json:"id"`
	Event string            `json:"event"`
	Stats assignments.Stats `json:"stats"`
	At    time.Time         `json:"at"`
}

// NotificationController pushes snapshot changes to connected clients as server-sent events
type NotificationController struct {
	Logger logger.Interface
	now    func() time.Time

	mu      sync.Mutex
	clients map[chan Message]struct{}
}

// NewNotificationController construct a NotificationController. now should return the store's time.
func NewNotificationController(logger logger.Interface, now func() time.Time) *NotificationController {
	return &NotificationController{
		Logger:  logger,
		now:     now,
		clients: map[chan Message]struct{}{},
	}
}

// OnSnapshotChanged gets called by the store after every mutation
func (n *NotificationController) OnSnapshotChanged(snapshot []assignments.Assignment) {
	now := n.now()
	message := Message{
		ID:    uuid.New().String(),
		Event: EventSync,
		Stats: assignments.ComputeStats(snapshot, now),
		At:    now,
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for client := range n.clients {
		select {
		case client <- message:
		default:
			n.Logger.Debug("Dropping notification for a slow client")
		}
	}
}

// Clients returns the number of connected clients
func (n *NotificationController) Clients() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.clients)
}

func (n *NotificationController) subscribe() chan Message {
	client := make(chan Message, clientBuffer)

	n.mu.Lock()
	n.clients[client] = struct{}{}
	n.mu.Unlock()

	return client
}

func (n *NotificationController) unsubscribe(client chan Message) {
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
}

// Register adds the event stream route to router
func (n *NotificationController) Register(router *mux.Router) {
	router.HandleFunc("/events", n.Events).Methods(http.MethodGet)
}

// Events streams messages until the client goes away
func (n *NotificationController) Events(writer http.ResponseWriter, request *http.Request) {
	flusher, ok := writer.(http.Flusher)
	if !ok {
		http.Error(writer, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := n.subscribe()
	defer n.unsubscribe(client)

	writer.Header().Set("Content-Type", "text/event-stream")
	writer.Header().Set("Cache-Control", "no-cache")
	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-request.Context().Done():
			return
		case message := <-client:
			binary, err := json.Marshal(message)
			if err != nil {
				n.Logger.Error("Could not marshal notification", err)
				continue
			}

			_, err = fmt.Fprintf(writer, "id: %s\nevent: %s\ndata: %s\n\n", message.ID, message.Event, binary)
			if err != nil {
				n.Logger.Error("Could not write notification", err)
				return
			}
			flusher.Flush()
		}
	}
}
