package preferences

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/timeliness-app/assignment-tracker/pkg/communication"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"github.com/timeliness-app/assignment-tracker/pkg/storage"
)

func TestThemes(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	themes := NewThemes(kv, logger.Discard{})

	if theme, _ := themes.Get(ctx); theme != ThemeLight {
		t.Errorf("default theme = %s, want light", theme)
	}

	if theme, _ := themes.Toggle(ctx); theme != ThemeDark {
		t.Errorf("Toggle() = %s, want dark", theme)
	}
	if raw, _, _ := kv.Get(ctx, storage.KeyTheme); raw != "dark" {
		t.Errorf("stored theme = %q", raw)
	}
	if theme, _ := themes.Toggle(ctx); theme != ThemeLight {
		t.Errorf("Toggle() = %s, want light", theme)
	}

	if err := themes.Set(ctx, "blue"); err != ErrInvalidTheme {
		t.Errorf("Set(blue) = %v", err)
	}
	if err := themes.Set(ctx, ThemeDark); err != nil {
		t.Fatal(err)
	}
	if theme, _ := NewThemes(kv, logger.Discard{}).Get(ctx); theme != ThemeDark {
		t.Errorf("reloaded theme = %s", theme)
	}

	_ = kv.Set(ctx, storage.KeyTheme, "sepia")
	if theme, _ := themes.Get(ctx); theme != ThemeLight {
		t.Errorf("unknown stored theme should read as light, got %s", theme)
	}
}

func TestHandler(t *testing.T) {
	handler := Handler{
		Themes:          NewThemes(storage.NewMemory(), logger.Discard{}),
		Logger:          logger.Discard{},
		ResponseManager: &communication.ResponseManager{Logger: logger.Discard{}},
	}
	router := mux.NewRouter()
	handler.Register(router)

	var handlerTests = []struct {
		method string
		body   string
		target string
		status int
		theme  Theme
	}{
		{http.MethodGet, "", "/preferences/theme", http.StatusOK, ThemeLight},
		{http.MethodPost, "", "/preferences/theme/toggle", http.StatusOK, ThemeDark},
		{http.MethodPut, `{"theme":"light"}`, "/preferences/theme", http.StatusOK, ThemeLight},
		{http.MethodPut, `{"theme":"neon"}`, "/preferences/theme", http.StatusBadRequest, ""},
		{http.MethodPut, `{`, "/preferences/theme", http.StatusBadRequest, ""},
		{http.MethodGet, "", "/preferences/theme", http.StatusOK, ThemeLight},
	}

	for _, tt := range handlerTests {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

		if recorder.Code != tt.status {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.target, recorder.Code, tt.status)
			continue
		}
		if tt.theme == "" {
			continue
		}

		var body ThemeUpdate
		_ = json.NewDecoder(recorder.Body).Decode(&body)
		if body.Theme != tt.theme {
			t.Errorf("%s %s theme = %s, want %s", tt.method, tt.target, body.Theme, tt.theme)
		}
	}
}
