package canvas

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/assignments"
	"github.com/timeliness-app/assignment-tracker/pkg/communication"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
)

// Handler handles all Canvas related API calls
type Handler struct {
	Bridge          *Bridge
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

type connectResponse struct {
	Identity       *Identity             `json:"identity"`
	Courses        []Course              `json:"courses"`
	Message        communication.Status  `json:"message"`
	CoursesMessage *communication.Status `json:"coursesMessage,omitempty"`
}

type coursesResponse struct {
	Courses []Course             `json:"courses"`
	Message communication.Status `json:"message"`
}

type importResponse struct {
	Summary *ImportSummary       `json:"summary"`
	Message communication.Status `json:"message"`
}

type mappingRequest struct {
	Class string `json:"class"`
}

// Register adds the Canvas routes to router
func (handler *Handler) Register(router *mux.Router) {
	router.HandleFunc("/canvas", handler.StatusGet).Methods(http.MethodGet)
	router.HandleFunc("/canvas", handler.ConfigClear).Methods(http.MethodDelete)
	router.HandleFunc("/canvas/connect", handler.Connect).Methods(http.MethodPost)
	router.HandleFunc("/canvas/courses", handler.CoursesGet).Methods(http.MethodGet)
	router.HandleFunc("/canvas/courses/refresh", handler.CoursesRefresh).Methods(http.MethodPost)
	router.HandleFunc("/canvas/mappings/{courseID}", handler.MappingSet).Methods(http.MethodPut)
	router.HandleFunc("/canvas/import", handler.Import).Methods(http.MethodPost)
}

// StatusGet returns the bridge status
func (handler *Handler) StatusGet(writer http.ResponseWriter, request *http.Request) {
	handler.ResponseManager.Respond(writer, handler.Bridge.Status())
}

// Connect tests and stores a configuration, then loads the courses
func (handler *Handler) Connect(writer http.ResponseWriter, request *http.Request) {
	config := Config{}

	err := json.NewDecoder(request.Body).Decode(&config)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	identity, err := handler.Bridge.TestConnection(request.Context(), config)
	if err != nil {
		handler.respondWithBridgeError(writer, "Connection failed: ", err)
		return
	}

	response := connectResponse{
		Identity: identity,
		Courses:  []Course{},
		Message:  communication.Success(fmt.Sprintf("Successfully connected as %s!", identity.Name)),
	}

	courses, err := handler.Bridge.LoadCourses(request.Context())
	if err != nil {
		message := communication.Error("Failed to load courses: " + Describe(err))
		response.CoursesMessage = &message
	} else {
		response.Courses = courses
		if len(courses) == 0 {
			message := communication.Info("No active courses found in your Canvas account.")
			response.CoursesMessage = &message
		}
	}

	handler.ResponseManager.Respond(writer, response)
}

// CoursesGet lists the active courses
func (handler *Handler) CoursesGet(writer http.ResponseWriter, request *http.Request) {
	courses, err := handler.Bridge.LoadCourses(request.Context())
	if err != nil {
		handler.respondWithBridgeError(writer, "Failed to load courses: ", err)
		return
	}

	handler.respondWithCourses(writer, courses, communication.Success(fmt.Sprintf("%d course(s) loaded", len(courses))))
}

// CoursesRefresh lists the active courses bypassing the cache
func (handler *Handler) CoursesRefresh(writer http.ResponseWriter, request *http.Request) {
	courses, err := handler.Bridge.RefreshCourses(request.Context())
	if err != nil {
		handler.respondWithBridgeError(writer, "Failed to load courses: ", err)
		return
	}

	handler.respondWithCourses(writer, courses, communication.Success("Courses refreshed!"))
}

func (handler *Handler) respondWithCourses(writer http.ResponseWriter, courses []Course, message communication.Status) {
	if len(courses) == 0 {
		message = communication.Info("No active courses found in your Canvas account.")
	}

	handler.ResponseManager.Respond(writer, coursesResponse{Courses: courses, Message: message})
}

// MappingSet maps a course to a class, an empty class skips the course
func (handler *Handler) MappingSet(writer http.ResponseWriter, request *http.Request) {
	courseID := mux.Vars(request)["courseID"]
	body := mappingRequest{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	err = handler.Bridge.SetMapping(request.Context(), courseID, body.Class)
	if err != nil {
		handler.respondWithBridgeError(writer, "", err)
		return
	}

	handler.ResponseManager.Respond(writer, handler.Bridge.Mapping())
}

// Import runs an import of all mapped courses
func (handler *Handler) Import(writer http.ResponseWriter, request *http.Request) {
	summary, err := handler.Bridge.ImportAssignments(request.Context())
	if err != nil {
		handler.respondWithBridgeError(writer, "Import failed: ", err)
		return
	}

	handler.ResponseManager.Respond(writer, importResponse{
		Summary: summary,
		Message: communication.Success(summary.Message()),
	})
}

// ConfigClear forgets the configuration and the mapping
func (handler *Handler) ConfigClear(writer http.ResponseWriter, request *http.Request) {
	err := handler.Bridge.ClearConfig(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Could not clear Canvas settings", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"message": communication.Info("Canvas settings cleared."),
	})
}

func (handler *Handler) respondWithBridgeError(writer http.ResponseWriter, prefix string, err error) {
	var networkError *NetworkError

	switch {
	case errors.Is(err, ErrIncompleteConfig), errors.Is(err, ErrInvalidURL), errors.Is(err, assignments.ErrValidation):
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, Describe(err), err)
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNoMappedCourses):
		handler.ResponseManager.RespondWithError(writer, http.StatusConflict, Describe(err), err)
	case errors.As(err, &networkError):
		handler.ResponseManager.RespondWithError(writer, http.StatusBadGateway, Describe(err), err)
	case IsConnectionError(err):
		handler.ResponseManager.RespondWithError(writer, http.StatusBadGateway, prefix+Describe(err), err)
	default:
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, prefix+Describe(err), err)
	}
}
