package assignments

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/communication"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
)

// Handler handles all assignment related API calls
type Handler struct {
	Store           *Store
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

// Register adds the assignment routes to router
func (handler *Handler) Register(router *mux.Router) {
	router.HandleFunc("/assignments", handler.AssignmentList).Methods(http.MethodGet)
	router.HandleFunc("/assignments", handler.AssignmentAdd).Methods(http.MethodPost)
	router.HandleFunc("/assignments/on/{date}", handler.AssignmentsOnDate).Methods(http.MethodGet)
	router.HandleFunc("/assignments/{assignmentID}", handler.AssignmentUpdate).Methods(http.MethodPatch)
	router.HandleFunc("/assignments/{assignmentID}", handler.AssignmentDelete).Methods(http.MethodDelete)
	router.HandleFunc("/assignments/{assignmentID}/toggle", handler.AssignmentToggle).Methods(http.MethodPost)
	router.HandleFunc("/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}", handler.CalendarMonth).Methods(http.MethodGet)
	router.HandleFunc("/stats", handler.StatsGet).Methods(http.MethodGet)
	router.HandleFunc("/classes", handler.ClassesGet).Methods(http.MethodGet)
}

// AssignmentList is the route for the filtered and sorted list
func (handler *Handler) AssignmentList(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	filter := Filter{
		Class:    queryValue(query.Get("class")),
		Priority: Priority(queryValue(query.Get("priority"))),
		Status:   Status(queryValue(query.Get("status"))),
	}

	if filter.Status != "" && filter.Status != StatusComplete && filter.Status != StatusIncomplete {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
			"status must be one of all, complete, incomplete", nil)
		return
	}

	now := handler.Store.Now()
	list := FilterAndSort(handler.Store.All(), filter, SortKey(query.Get("sortBy")))

	handler.ResponseManager.Respond(writer, NewViews(list, now))
}

// AssignmentAdd is the route for adding an assignment
func (handler *Handler) AssignmentAdd(writer http.ResponseWriter, request *http.Request) {
	input := Input{}

	err := json.NewDecoder(request.Body).Decode(&input)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	assignment, err := handler.Store.Create(request.Context(), input)
	if err != nil {
		handler.respondWithStoreError(writer, err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, NewView(assignment, handler.Store.Now()), http.StatusCreated)
}

// AssignmentUpdate is the route for patching an assignment
func (handler *Handler) AssignmentUpdate(writer http.ResponseWriter, request *http.Request) {
	assignmentID := mux.Vars(request)["assignmentID"]
	patch := Patch{}

	err := json.NewDecoder(request.Body).Decode(&patch)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	assignment, err := handler.Store.Update(request.Context(), assignmentID, patch)
	if err != nil {
		handler.respondWithStoreError(writer, err)
		return
	}

	handler.ResponseManager.Respond(writer, NewView(assignment, handler.Store.Now()))
}

// AssignmentDelete is the route for deleting an assignment, unknown ids are not an error
func (handler *Handler) AssignmentDelete(writer http.ResponseWriter, request *http.Request) {
	assignmentID := mux.Vars(request)["assignmentID"]

	err := handler.Store.Delete(request.Context(), assignmentID)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not delete assignment", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

// AssignmentToggle is the route for flipping the completed flag
func (handler *Handler) AssignmentToggle(writer http.ResponseWriter, request *http.Request) {
	assignmentID := mux.Vars(request)["assignmentID"]

	assignment, err := handler.Store.ToggleComplete(request.Context(), assignmentID)
	if err != nil {
		handler.respondWithStoreError(writer, err)
		return
	}

	handler.ResponseManager.Respond(writer, NewView(assignment, handler.Store.Now()))
}

// AssignmentsOnDate is the route for the assignments due on one day (YYYY-MM-DD)
func (handler *Handler) AssignmentsOnDate(writer http.ResponseWriter, request *http.Request) {
	day, err := time.ParseInLocation("2006-01-02", mux.Vars(request)["date"], handler.Store.Location())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Date must be YYYY-MM-DD", err)
		return
	}

	now := handler.Store.Now()
	handler.ResponseManager.Respond(writer, NewViews(OnDate(handler.Store.All(), day), now))
}

// CalendarMonth is the route for the month projection
func (handler *Handler) CalendarMonth(writer http.ResponseWriter, request *http.Request) {
	year, err := strconv.Atoi(mux.Vars(request)["year"])
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "No int as year", err)
		return
	}

	month, err := strconv.Atoi(mux.Vars(request)["month"])
	if err != nil || month < 1 || month > 12 {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Month must be between 1 and 12", err)
		return
	}

	days := Calendar(handler.Store.All(), year, time.Month(month), handler.Store.Now())

	handler.ResponseManager.Respond(writer, days)
}

// StatsGet is the route for the counters
func (handler *Handler) StatsGet(writer http.ResponseWriter, request *http.Request) {
	handler.ResponseManager.Respond(writer, ComputeStats(handler.Store.All(), handler.Store.Now()))
}

// ClassesGet returns the fixed class set, an empty list means free form classes
func (handler *Handler) ClassesGet(writer http.ResponseWriter, request *http.Request) {
	classes := handler.Store.Classes()
	if classes == nil {
		classes = []string{}
	}

	handler.ResponseManager.Respond(writer, classes)
}

func (handler *Handler) respondWithStoreError(writer http.ResponseWriter, err error) {
	var validationError *ValidationError

	switch {
	case errors.As(err, &validationError):
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, validationError.Error(), err)
	case errors.Is(err, ErrNotFound):
		handler.ResponseManager.RespondWithError(writer, http.StatusNotFound, "Couldn't find assignment", err)
	default:
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not persist assignment", err)
	}
}

// queryValue treats "all" like an absent filter
func queryValue(value string) string {
	if value == "all" {
		return ""
	}

	return value
}
