package notifications

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/timeliness-app/assignment-tracker/pkg/assignments"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"github.com/timeliness-app/assignment-tracker/pkg/storage"
)

var fixedNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *assignments.Store {
	t.Helper()

	s, err := assignments.NewStore(context.Background(), storage.NewMemory(), logger.Discard{}, assignments.Options{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func TestNotificationController_OnSnapshotChanged(t *testing.T) {
	n := NewNotificationController(logger.Discard{}, func() time.Time { return fixedNow })
	client := n.subscribe()

	s := newTestStore(t)
	s.Subscribe(n)

	_, err := s.Create(context.Background(), assignments.Input{Title: "Essay", DueDate: "2025-02-03T09:00"})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case message := <-client:
		want := assignments.Stats{Total: 1, Incomplete: 1, DueSoon: 1}
		if message.Event != EventSync || message.Stats != want || message.ID == "" {
			t.Errorf("message = %+v", message)
		}
	default:
		t.Fatal("no message delivered")
	}

	n.unsubscribe(client)
	if n.Clients() != 0 {
		t.Errorf("Clients() = %d after unsubscribe", n.Clients())
	}
}

func TestNotificationController_SlowClient(t *testing.T) {
	n := NewNotificationController(logger.Discard{}, func() time.Time { return fixedNow })
	client := n.subscribe()

	for i := 0; i < clientBuffer+5; i++ {
		n.OnSnapshotChanged(nil)
	}

	if len(client) != clientBuffer {
		t.Errorf("queued %d messages, want %d", len(client), clientBuffer)
	}
}

func TestNotificationController_Events(t *testing.T) {
	n := NewNotificationController(logger.Discard{}, func() time.Time { return fixedNow })
	router := mux.NewRouter()
	n.Register(router)

	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	request, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	response, err := server.Client().Do(request)
	if err != nil {
		t.Fatal(err)
	}
	defer response.Body.Close()

	if response.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", response.Header.Get("Content-Type"))
	}

	n.OnSnapshotChanged([]assignments.Assignment{{Title: "Done", Completed: true}})

	scanner := bufio.NewScanner(response.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	if event != EventSync {
		t.Errorf("event = %q", event)
	}

	var message Message
	if err := json.Unmarshal([]byte(data), &message); err != nil {
		t.Fatal(err)
	}
	if message.Stats.Total != 1 || message.Stats.Incomplete != 0 {
		t.Errorf("stats = %+v", message.Stats)
	}
}
