package preferences

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"github.com/timeliness-app/assignment-tracker/pkg/storage"
)

// Theme is the display theme of the presentation layer
type Theme string

// Themes
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ErrInvalidTheme is returned for anything but light and dark
var ErrInvalidTheme = errors.New("theme must be one of light, dark")

// ThemeUpdate is the body of a theme change
type ThemeUpdate struct {
	Theme Theme `json:"theme" validate:"required,oneof=light dark"`
}

// Themes persists the theme preference
type Themes struct {
	kv       storage.Interface
	logger   logger.Interface
	validate *validator.Validate

	mu sync.Mutex
}

// NewThemes creates Themes backed by kv
func NewThemes(kv storage.Interface, log logger.Interface) *Themes {
	return &Themes{kv: kv, logger: log, validate: validator.New()}
}

// Get returns the stored theme, light if none or an unknown one is stored
func (t *Themes) Get(ctx context.Context) (Theme, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.get(ctx)
}

func (t *Themes) get(ctx context.Context) (Theme, error) {
	raw, ok, err := t.kv.Get(ctx, storage.KeyTheme)
	if err != nil {
		return "", errors.Wrap(err, "could not load theme")
	}
	if !ok {
		return ThemeLight, nil
	}

	theme := Theme(raw)
	if theme != ThemeLight && theme != ThemeDark {
		t.logger.Info("Ignoring unknown stored theme " + raw)
		return ThemeLight, nil
	}

	return theme, nil
}

// Set stores theme
func (t *Themes) Set(ctx context.Context, theme Theme) error {
	err := t.validate.Struct(ThemeUpdate{Theme: theme})
	if err != nil {
		return ErrInvalidTheme
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.set(ctx, theme)
}

func (t *Themes) set(ctx context.Context, theme Theme) error {
	err := t.kv.Set(ctx, storage.KeyTheme, string(theme))
	if err != nil {
		return errors.Wrap(err, "could not persist theme")
	}

	return nil
}

// Toggle switches between light and dark and returns the new theme
func (t *Themes) Toggle(ctx context.Context) (Theme, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.get(ctx)
	if err != nil {
		return "", err
	}

	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}

	err = t.set(ctx, next)
	if err != nil {
		return "", err
	}

	return next, nil
}
