package preferences

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/communication"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
)

// Handler handles the preference API calls
type Handler struct {
	Themes          *Themes
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

// Register adds the preference routes to router
func (handler *Handler) Register(router *mux.Router) {
	router.HandleFunc("/preferences/theme", handler.ThemeGet).Methods(http.MethodGet)
	router.HandleFunc("/preferences/theme", handler.ThemeSet).Methods(http.MethodPut)
	router.HandleFunc("/preferences/theme/toggle", handler.ThemeToggle).Methods(http.MethodPost)
}

// ThemeGet returns the current theme
func (handler *Handler) ThemeGet(writer http.ResponseWriter, request *http.Request) {
	theme, err := handler.Themes.Get(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not load theme", err)
		return
	}

	handler.ResponseManager.Respond(writer, ThemeUpdate{Theme: theme})
}

// ThemeSet changes the theme
func (handler *Handler) ThemeSet(writer http.ResponseWriter, request *http.Request) {
	body := ThemeUpdate{}

	err := json.NewDecoder(request.Body).Decode(&body)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	err = handler.Themes.Set(request.Context(), body.Theme)
	if errors.Is(err, ErrInvalidTheme) {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not store theme", err)
		return
	}

	handler.ResponseManager.Respond(writer, body)
}

// ThemeToggle switches between light and dark
func (handler *Handler) ThemeToggle(writer http.ResponseWriter, request *http.Request) {
	theme, err := handler.Themes.Toggle(request.Context())
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Could not store theme", err)
		return
	}

	handler.ResponseManager.Respond(writer, ThemeUpdate{Theme: theme})
}
