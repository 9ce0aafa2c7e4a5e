package assignments

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/date"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"github.com/timeliness-app/assignment-tracker/pkg/storage"
)

// Options configure a Store
type Options struct {
	// Location is used for due dates without a zone and for calendar days. Defaults to time.Local.
	Location *time.Location
	// Classes is the fixed class set. Empty means free form classes.
	Classes []string
	// Now defaults to time.Now
	Now func() time.Time
}

// Store owns the assignment snapshot and persists it after every mutation
type Store struct {
	kv       storage.Interface
	logger   logger.Interface
	validate *validator.Validate
	location *time.Location
	classes  []string
	now      func() time.Time

	mu    sync.RWMutex
	items []Assignment

	subscribersMu sync.Mutex
	subscribers   []SnapshotObserver
}

// NewStore loads the persisted snapshot. Absent or unparseable data results in an empty store, only a failing
// storage backend is an error.
func NewStore(ctx context.Context, kv storage.Interface, log logger.Interface, options Options) (*Store, error) {
	s := &Store{
		kv:       kv,
		logger:   log,
		validate: newValidator(),
		location: options.Location,
		classes:  options.Classes,
		now:      options.Now,
	}

	if s.location == nil {
		s.location = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}

	raw, ok, err := kv.Get(ctx, storage.KeyAssignments)
	if err != nil {
		return nil, errors.Wrap(err, "could not load assignments")
	}
	if !ok {
		return s, nil
	}

	var items []Assignment
	err = json.Unmarshal([]byte(raw), &items)
	if err != nil {
		s.logger.Error("Stored assignments are unparseable, starting with an empty list", err)
		return s, nil
	}

	s.items = items
	return s, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return v
}

// Location returns the location calendar days are computed in
func (s *Store) Location() *time.Location {
	return s.location
}

// Now returns the store's current time in its location
func (s *Store) Now() time.Time {
	return s.now().In(s.location)
}

// Classes returns the fixed class set, nil if classes are free form
func (s *Store) Classes() []string {
	if len(s.classes) == 0 {
		return nil
	}

	return append([]string{}, s.classes...)
}

// All returns a copy of the current snapshot in insertion order
func (s *Store) All() []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyAssignments(s.items)
}

// Find returns the assignment with id
func (s *Store) Find(id string) (Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := indexOf(s.items, id)
	if index < 0 {
		return Assignment{}, errors.Wrap(ErrNotFound, id)
	}

	return s.items[index], nil
}

// Validate checks input without creating anything
func (s *Store) Validate(input Input) error {
	_, err := s.build(input)
	return err
}

// Create validates input, appends a new assignment and persists the snapshot
func (s *Store) Create(ctx context.Context, input Input) (Assignment, error) {
	created, err := s.CreateBatch(ctx, []Input{input})
	if err != nil {
		return Assignment{}, err
	}

	return created[0], nil
}

// CreateBatch appends all inputs in order with a single persist. If one input is invalid nothing is created.
func (s *Store) CreateBatch(ctx context.Context, inputs []Input) ([]Assignment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	created := make([]Assignment, 0, len(inputs))
	for _, input := range inputs {
		assignment, err := s.build(input)
		if err != nil {
			return nil, err
		}
		created = append(created, assignment)
	}

	s.mu.Lock()
	next := make([]Assignment, 0, len(s.items)+len(created))
	next = append(next, s.items...)
	next = append(next, created...)

	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.publish()
	return created, nil
}

// Update applies patch to the assignment with id and persists the snapshot
func (s *Store) Update(ctx context.Context, id string, patch Patch) (Assignment, error) {
	patch = trimPatch(patch)

	err := s.validate.Struct(patch)
	if err != nil {
		return Assignment{}, toValidationError(err)
	}

	var due time.Time
	if patch.DueDate != nil {
		due, err = date.Parse(*patch.DueDate, s.location)
		if err != nil {
			return Assignment{}, &ValidationError{Field: "dueDate", Message: "is not a valid date"}
		}
	}

	if patch.Class != nil {
		if err := s.CheckClass(*patch.Class); err != nil {
			return Assignment{}, err
		}
	}

	s.mu.Lock()
	index := indexOf(s.items, id)
	if index < 0 {
		s.mu.Unlock()
		return Assignment{}, errors.Wrap(ErrNotFound, id)
	}

	updated := s.items[index]
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Class != nil {
		updated.Class = *patch.Class
	}
	if patch.DueDate != nil {
		updated.DueDate = due
	}
	if patch.Priority != nil {
		updated.Priority = *patch.Priority
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Completed != nil {
		updated.Completed = *patch.Completed
	}

	err = s.replace(ctx, index, updated)
	s.mu.Unlock()
	if err != nil {
		return Assignment{}, err
	}

	s.publish()
	return updated, nil
}

// ToggleComplete flips the completed flag of the assignment with id
func (s *Store) ToggleComplete(ctx context.Context, id string) (Assignment, error) {
	s.mu.Lock()
	index := indexOf(s.items, id)
	if index < 0 {
		s.mu.Unlock()
		return Assignment{}, errors.Wrap(ErrNotFound, id)
	}

	updated := s.items[index]
	updated.Completed = !updated.Completed

	err := s.replace(ctx, index, updated)
	s.mu.Unlock()
	if err != nil {
		return Assignment{}, err
	}

	s.publish()
	return updated, nil
}

// Delete removes the assignment with id. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	index := indexOf(s.items, id)
	if index < 0 {
		s.mu.Unlock()
		return nil
	}

	next := make([]Assignment, 0, len(s.items)-1)
	next = append(next, s.items[:index]...)
	next = append(next, s.items[index+1:]...)

	err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish()
	return nil
}

// replace swaps the record at index, must be called with mu held
func (s *Store) replace(ctx context.Context, index int, updated Assignment) error {
	next := copyAssignments(s.items)
	next[index] = updated

	return s.commit(ctx, next)
}

// commit persists next and only then makes it the visible snapshot, must be called with mu held
func (s *Store) commit(ctx context.Context, next []Assignment) error {
	binary, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "could not marshal assignments")
	}

	err = s.kv.Set(ctx, storage.KeyAssignments, string(binary))
	if err != nil {
		return errors.Wrap(err, "could not persist assignments")
	}

	s.items = next
	return nil
}

func (s *Store) build(input Input) (Assignment, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Class = strings.TrimSpace(input.Class)
	input.DueDate = strings.TrimSpace(input.DueDate)

	err := s.validate.Struct(input)
	if err != nil {
		return Assignment{}, toValidationError(err)
	}

	due, err := date.Parse(input.DueDate, s.location)
	if err != nil {
		return Assignment{}, &ValidationError{Field: "dueDate", Message: "is not a valid date"}
	}

	if err := s.CheckClass(input.Class); err != nil {
		return Assignment{}, err
	}

	if input.Priority == "" {
		input.Priority = PriorityMedium
	}

	return Assignment{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Class:       input.Class,
		DueDate:     due,
		Priority:    input.Priority,
		Description: input.Description,
		Completed:   false,
		CreatedAt:   s.now(),
		SourceID:    input.SourceID,
	}, nil
}

// CheckClass enforces the fixed class set if there is one. Matching is exact.
func (s *Store) CheckClass(class string) error {
	if len(s.classes) == 0 {
		return nil
	}

	for _, c := range s.classes {
		if c == class {
			return nil
		}
	}

	return &ValidationError{Field: "class", Message: "is not a known class"}
}

func trimPatch(patch Patch) Patch {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.Class != nil {
		class := strings.TrimSpace(*patch.Class)
		patch.Class = &class
	}
	if patch.DueDate != nil {
		due := strings.TrimSpace(*patch.DueDate)
		patch.DueDate = &due
	}

	return patch
}

func toValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return errors.Wrap(err, "could not validate")
	}

	e := validationErrors[0]
	switch e.Tag() {
	case "required", "min":
		return &ValidationError{Field: e.Field(), Message: "is required"}
	case "oneof":
		return &ValidationError{Field: e.Field(), Message: "must be one of " + strings.ReplaceAll(e.Param(), " ", ", ")}
	default:
		return &ValidationError{Field: e.Field(), Message: "is invalid"}
	}
}

func indexOf(items []Assignment, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}

	return -1
}

func copyAssignments(items []Assignment) []Assignment {
	if items == nil {
		return []Assignment{}
	}

	return append(make([]Assignment, 0, len(items)), items...)
}
