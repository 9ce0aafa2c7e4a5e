package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/assignments"
	"github.com/timeliness-app/assignment-tracker/pkg/auth/encryption"
	"github.com/timeliness-app/assignment-tracker/pkg/locking"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"github.com/timeliness-app/assignment-tracker/pkg/storage"
)

// State of the connection to Canvas
type State string

// States of the Bridge. Failed states are only reported in Status.Failure.
const (
	StateUnconfigured      State = "unconfigured"
	StateTestingConnection State = "testing_connection"
	StateConnected         State = "connected"
	StateConnectionFailed  State = "connection_failed"
	StateLoadingCourses    State = "loading_courses"
	StateCoursesLoaded     State = "courses_loaded"
	StateLoadFailed        State = "load_failed"
	StateImporting         State = "importing"
	StateImportComplete    State = "import_complete"
)

const importLockKey = "canvas-import"

// Failure is the last failed attempt. The bridge itself reverts to the state it had before the attempt.
type Failure struct {
	State   State     `json:"state"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Status is a snapshot of the bridge for the presentation layer
type Status struct {
	State    State          `json:"state"`
	Endpoint string         `json:"endpoint,omitempty"`
	Identity *Identity      `json:"identity,omitempty"`
	Courses  []Course       `json:"courses"`
	Mapping  Mapping        `json:"mapping"`
	Failure  *Failure       `json:"failure,omitempty"`
	Summary  *ImportSummary `json:"summary,omitempty"`
}

// ImportSummary is the result of an import. Errored counts courses, not assignments.
type ImportSummary struct {
	Imported int                  `json:"imported"`
	Skipped  int                  `json:"skipped"`
	Errored  int                  `json:"errored"`
	Errors   []*ImportCourseError `json:"errors"`
}

// Message renders the summary for display
func (s *ImportSummary) Message() string {
	parts := []string{
		fmt.Sprintf("%d new assignment(s) imported", s.Imported),
		fmt.Sprintf("%d assignment(s) skipped (already exist)", s.Skipped),
	}
	if s.Errored > 0 {
		parts = append(parts, fmt.Sprintf("%d course(s) had errors", s.Errored))
	}

	return "Import complete: " + strings.Join(parts, ", ")
}

// storedConfig is the persisted Config with a sealed token
type storedConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// BridgeOptions are the collaborators of a Bridge. Only Cipher is required.
type BridgeOptions struct {
	HTTPClient *http.Client
	Rewrite    URLRewriter
	Cache      CourseCacheInterface
	Locker     locking.LockerInterface
	Cipher     *encryption.Cipher
}

// Bridge holds the Canvas configuration and imports remote assignments into the store
type Bridge struct {
	kv         storage.Interface
	store      *assignments.Store
	logger     logger.Interface
	httpClient *http.Client
	rewrite    URLRewriter
	cache      CourseCacheInterface
	locker     locking.LockerInterface
	cipher     *encryption.Cipher

	// operation serialises calls that talk to Canvas or storage
	operation sync.Mutex

	mu       sync.RWMutex
	state    State
	config   *Config
	identity *Identity
	courses  []Course
	mapping  Mapping
	failure  *Failure
	summary  *ImportSummary
}

// NewBridge restores config and mapping from kv. A config that cannot be read or unsealed leaves the bridge
// unconfigured.
func NewBridge(ctx context.Context, kv storage.Interface, store *assignments.Store, log logger.Interface,
	options BridgeOptions) (*Bridge, error) {
	if options.Cipher == nil {
		return nil, errors.New("a cipher is required to store the access token")
	}

	b := &Bridge{
		kv:         kv,
		store:      store,
		logger:     log,
		httpClient: options.HTTPClient,
		rewrite:    options.Rewrite,
		cache:      options.Cache,
		locker:     options.Locker,
		cipher:     options.Cipher,
		state:      StateUnconfigured,
		mapping:    Mapping{},
	}

	if b.cache == nil {
		cache, err := NewCourseCacheMemory()
		if err != nil {
			return nil, err
		}
		b.cache = cache
	}
	if b.locker == nil {
		b.locker = locking.NewLockerMemory()
	}

	config, err := b.loadConfig(ctx)
	if err != nil {
		b.logger.Error("Stored canvas configuration is unusable, starting unconfigured", err)
	} else if config != nil {
		b.config = config
		b.state = StateConnected
	}

	mapping, err := b.loadMapping(ctx)
	if err != nil {
		b.logger.Error("Stored course mappings are unusable, starting without mappings", err)
	} else {
		b.mapping = mapping
	}

	return b, nil
}

func (b *Bridge) loadConfig(ctx context.Context) (*Config, error) {
	raw, ok, err := b.kv.Get(ctx, storage.KeyCanvasConfig)
	if err != nil || !ok {
		return nil, err
	}

	stored := storedConfig{}
	err = json.Unmarshal([]byte(raw), &stored)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode canvas config")
	}

	token, err := b.cipher.Decrypt(stored.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not unseal access token")
	}

	config := Config{URL: stored.URL, Token: token}.Normalize()
	if config.URL == "" || config.Token == "" {
		return nil, ErrIncompleteConfig
	}

	return &config, nil
}

func (b *Bridge) loadMapping(ctx context.Context) (Mapping, error) {
	raw, ok, err := b.kv.Get(ctx, storage.KeyCourseMappings)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Mapping{}, nil
	}

	mapping := Mapping{}
	err = json.Unmarshal([]byte(raw), &mapping)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode course mappings")
	}

	return mapping, nil
}

// Status returns a copy of the bridge state
func (b *Bridge) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	status := Status{
		State:    b.state,
		Identity: b.identity,
		Courses:  append([]Course{}, b.courses...),
		Mapping:  b.mapping.Copy(),
		Failure:  b.failure,
		Summary:  b.summary,
	}
	if b.config != nil {
		status.Endpoint = b.config.URL
	}

	return status
}

// Mapping returns a copy of the course mapping
func (b *Bridge) Mapping() Mapping {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.mapping.Copy()
}

// TestConnection checks config against /api/v1/users/self and stores it on success. On failure nothing is
// persisted and the previous configuration stays in place.
func (b *Bridge) TestConnection(ctx context.Context, config Config) (*Identity, error) {
	config = config.Normalize()
	if config.URL == "" || config.Token == "" {
		return nil, ErrIncompleteConfig
	}

	b.operation.Lock()
	defer b.operation.Unlock()

	previous := b.transition(StateTestingConnection)

	identity, err := b.testConnection(ctx, config)
	if err != nil {
		b.fail(previous, StateConnectionFailed, err)
		return nil, err
	}

	b.mu.Lock()
	b.config = &config
	b.identity = identity
	b.courses = nil
	b.failure = nil
	b.state = StateConnected
	b.mu.Unlock()

	b.logger.Info(fmt.Sprintf("Connected to %s as %s", config.URL, identity.Name))
	return identity, nil
}

func (b *Bridge) testConnection(ctx context.Context, config Config) (*Identity, error) {
	client, err := b.client(ctx, config)
	if err != nil {
		return nil, err
	}

	identity, err := client.Self(ctx)
	if err != nil {
		return nil, err
	}

	sealed, err := b.cipher.Encrypt(config.Token)
	if err != nil {
		return nil, err
	}

	binary, err := json.Marshal(storedConfig{URL: config.URL, Token: sealed})
	if err != nil {
		return nil, errors.Wrap(err, "could not encode canvas config")
	}

	err = b.kv.Set(ctx, storage.KeyCanvasConfig, string(binary))
	if err != nil {
		return nil, errors.Wrap(err, "could not persist canvas config")
	}

	return identity, nil
}

// LoadCourses lists the active courses, served from the course cache when possible
func (b *Bridge) LoadCourses(ctx context.Context) ([]Course, error) {
	b.operation.Lock()
	defer b.operation.Unlock()

	return b.loadCourses(ctx, false)
}

// RefreshCourses invalidates the cached course list and loads it again
func (b *Bridge) RefreshCourses(ctx context.Context) ([]Course, error) {
	b.operation.Lock()
	defer b.operation.Unlock()

	return b.loadCourses(ctx, true)
}

func (b *Bridge) loadCourses(ctx context.Context, refresh bool) ([]Course, error) {
	config := b.currentConfig()
	if config == nil {
		return nil, ErrNotConfigured
	}

	key := courseCacheKey(*config)
	if refresh {
		if err := b.cache.Invalidate(ctx, key); err != nil {
			b.logger.Error("Could not invalidate course cache", err)
		}
	}

	previous := b.transition(StateLoadingCourses)

	courses, err := b.cache.Get(ctx, key)
	if err != nil {
		if err != ErrCacheMiss {
			b.logger.Error("Could not read course cache", err)
		}

		courses, err = b.fetchCourses(ctx, *config)
		if err != nil {
			b.fail(previous, StateLoadFailed, err)
			return nil, err
		}

		if err := b.cache.Add(ctx, key, courses); err != nil {
			b.logger.Error("Could not fill course cache", err)
		}
	}

	b.mu.Lock()
	b.courses = courses
	b.failure = nil
	b.state = StateCoursesLoaded
	b.mu.Unlock()

	return append([]Course{}, courses...), nil
}

func (b *Bridge) fetchCourses(ctx context.Context, config Config) ([]Course, error) {
	client, err := b.client(ctx, config)
	if err != nil {
		return nil, err
	}

	return client.Courses(ctx)
}

// SetMapping maps courseID to class and persists the mapping. An empty class removes the entry.
func (b *Bridge) SetMapping(ctx context.Context, courseID string, class string) error {
	courseID = strings.TrimSpace(courseID)
	class = strings.TrimSpace(class)
	if courseID == "" {
		return &assignments.ValidationError{Field: "courseId", Message: "is required"}
	}

	if class != "" {
		if err := b.store.CheckClass(class); err != nil {
			return err
		}
	}

	b.operation.Lock()
	defer b.operation.Unlock()

	next := b.Mapping()
	if class == "" {
		delete(next, courseID)
	} else {
		next[courseID] = class
	}

	binary, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "could not encode course mappings")
	}

	err = b.kv.Set(ctx, storage.KeyCourseMappings, string(binary))
	if err != nil {
		return errors.Wrap(err, "could not persist course mappings")
	}

	b.mu.Lock()
	b.mapping = next
	b.mu.Unlock()

	return nil
}

// ImportAssignments fetches the assignments of every mapped course and adds the ones not yet in the store.
// Failing courses are tallied in the summary, the only errors returned are unmet preconditions.
func (b *Bridge) ImportAssignments(ctx context.Context) (*ImportSummary, error) {
	b.operation.Lock()
	defer b.operation.Unlock()

	config := b.currentConfig()
	if config == nil {
		return nil, ErrNotConfigured
	}

	mapping := b.Mapping()
	courseIDs := mapping.CourseIDs()
	if len(courseIDs) == 0 {
		return nil, ErrNoMappedCourses
	}

	lock, err := b.locker.Acquire(ctx, importLockKey, 10*time.Minute)
	if err != nil {
		return nil, errors.Wrap(err, "another import is running")
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			b.logger.Error("Could not release import lock", err)
		}
	}()

	b.transition(StateImporting)
	b.logger.Info(fmt.Sprintf("Starting import for %d mapped course(s)", len(courseIDs)))

	summary := &ImportSummary{Errors: []*ImportCourseError{}}
	existing := map[dedupKey]bool{}
	for _, a := range b.store.All() {
		existing[dedupKey{title: a.Title, class: a.Class}] = true
		if a.SourceID != "" {
			existing[dedupKey{source: a.SourceID}] = true
		}
	}

	client, clientErr := b.client(ctx, *config)
	for _, courseID := range courseIDs {
		class := mapping[courseID]

		err := clientErr
		if err == nil {
			err = b.importCourse(ctx, client, courseID, class, existing, summary)
		}

		if err != nil {
			summary.Errored++
			summary.Errors = append(summary.Errors, newImportCourseError(courseID, class, err))
			b.logger.Error(fmt.Sprintf("Import of course %s failed", courseID), err)
		}
	}

	b.mu.Lock()
	b.summary = summary
	b.failure = nil
	b.state = StateImportComplete
	b.mu.Unlock()

	b.logger.Info(summary.Message())
	return summary, nil
}

// dedupKey is either a title and class pair or the id of the remote assignment
type dedupKey struct {
	title  string
	class  string
	source string
}

// importCourse adds the new assignments of one course with a single store write. Records queued earlier in the
// same run count as existing, so does a remote id that was imported before under another title.
func (b *Bridge) importCourse(ctx context.Context, client *Client, courseID string, class string,
	existing map[dedupKey]bool, summary *ImportSummary) error {
	remote, err := client.Assignments(ctx, courseID)
	if err != nil {
		return err
	}

	var inputs []assignments.Input
	var queued []dedupKey
	skipped := 0

	for _, r := range remote {
		if r.DueAt == nil || strings.TrimSpace(*r.DueAt) == "" {
			continue
		}

		key := dedupKey{title: strings.TrimSpace(r.Name), class: class}
		source := dedupKey{source: string(r.ID)}
		if existing[key] || (r.ID != "" && existing[source]) {
			skipped++
			continue
		}

		input := assignments.Input{
			Title:       r.Name,
			Class:       class,
			DueDate:     *r.DueAt,
			Priority:    assignments.PriorityMedium,
			Description: description(r.Description),
			SourceID:    string(r.ID),
		}
		if err := b.store.Validate(input); err != nil {
			b.logger.Info(fmt.Sprintf("Dropping remote assignment %s of course %s: %v", r.ID, courseID, err))
			continue
		}

		existing[key] = true
		queued = append(queued, key)
		if r.ID != "" {
			existing[source] = true
			queued = append(queued, source)
		}
		inputs = append(inputs, input)
	}

	_, err = b.store.CreateBatch(ctx, inputs)
	if err != nil {
		for _, key := range queued {
			delete(existing, key)
		}
		return err
	}

	summary.Imported += len(inputs)
	summary.Skipped += skipped
	return nil
}

// ClearConfig forgets config, mapping and cached courses
func (b *Bridge) ClearConfig(ctx context.Context) error {
	b.operation.Lock()
	defer b.operation.Unlock()

	config := b.currentConfig()

	err := b.kv.Remove(ctx, storage.KeyCanvasConfig)
	if err != nil {
		return errors.Wrap(err, "could not remove canvas config")
	}

	err = b.kv.Remove(ctx, storage.KeyCourseMappings)
	if err != nil {
		return errors.Wrap(err, "could not remove course mappings")
	}

	if config != nil {
		if err := b.cache.Invalidate(ctx, courseCacheKey(*config)); err != nil {
			b.logger.Error("Could not invalidate course cache", err)
		}
	}

	b.mu.Lock()
	b.config = nil
	b.identity = nil
	b.courses = nil
	b.mapping = Mapping{}
	b.failure = nil
	b.summary = nil
	b.state = StateUnconfigured
	b.mu.Unlock()

	return nil
}

func (b *Bridge) client(ctx context.Context, config Config) (*Client, error) {
	return NewClient(ctx, b.httpClient, config, b.rewrite, b.logger)
}

func (b *Bridge) currentConfig() *Config {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.config == nil {
		return nil
	}

	config := *b.config
	return &config
}

// transition enters a transient state and returns the state before
func (b *Bridge) transition(state State) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous := b.state
	b.state = state
	return previous
}

// fail records the failure and reverts to previous
func (b *Bridge) fail(previous State, failed State, err error) {
	b.logger.Error(fmt.Sprintf("Canvas %s", failed), err)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = previous
	b.failure = &Failure{State: failed, Message: Describe(err), At: time.Now()}
}
