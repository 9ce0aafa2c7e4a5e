package canvas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
)

func TestNextLink(t *testing.T) {
	var linkTests = []struct {
		header string
		want   string
	}{
		{``, ``},
		{`<https://c.example/api/v1/courses?page=2>; rel="next"`, `https://c.example/api/v1/courses?page=2`},
		{`<https://c.example/a?page=1>; rel="current", <https://c.example/a?page=2>; rel="next", <https://c.example/a?page=5>; rel="last"`,
			`https://c.example/a?page=2`},
		{`<https://c.example/a?page=5>; rel="last"`, ``},
		{`<https://c.example/a?page=3>; REL=next`, `https://c.example/a?page=3`},
		{`https://c.example/a?page=3; rel="next"`, ``},
	}

	for _, tt := range linkTests {
		if got := nextLink(tt.header); got != tt.want {
			t.Errorf("nextLink(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestConfig_Normalize(t *testing.T) {
	got := Config{URL: " https://canvas.example.edu// ", Token: "\ttoken\n"}.Normalize()
	want := Config{URL: "https://canvas.example.edu/", Token: "token"}

	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestCORSProxy(t *testing.T) {
	rewrite := CORSProxy("https://corsproxy.io/?")

	got := rewrite("https://canvas.example.edu/api/v1/courses?per_page=100")
	want := "https://corsproxy.io/?https%3A%2F%2Fcanvas.example.edu%2Fapi%2Fv1%2Fcourses%3Fper_page%3D100"
	if got != want {
		t.Errorf("CORSProxy() = %q, want %q", got, want)
	}
	if Direct("x") != "x" {
		t.Errorf("Direct must not rewrite")
	}
}

func TestClient_ThroughProxy(t *testing.T) {
	var proxied []string
	proxy := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		proxied = append(proxied, request.URL.RawQuery)
		_, _ = writer.Write([]byte(`{"id": "42", "name": "Sam"}`))
	}))
	defer proxy.Close()

	client, err := NewClient(context.Background(), nil, Config{URL: "https://canvas.example.edu", Token: "t"},
		CORSProxy(proxy.URL+"/?"), logger.Discard{})
	if err != nil {
		t.Fatal(err)
	}

	identity, err := client.Self(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if identity.ID != "42" || identity.Name != "Sam" {
		t.Errorf("identity = %+v", identity)
	}
	if len(proxied) != 1 || proxied[0] != "https%3A%2F%2Fcanvas.example.edu%2Fapi%2Fv1%2Fusers%2Fself" {
		t.Errorf("proxied = %v", proxied)
	}
}

func TestClient_PaginationStaysOnHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Link", `<https://elsewhere.example/api/v1/courses?page=2>; rel="next"`)
		_, _ = writer.Write([]byte(`[{"id": 1, "name": "Only page"}]`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), server.Client(), Config{URL: server.URL, Token: "t"}, nil,
		logger.Discard{})
	if err != nil {
		t.Fatal(err)
	}

	courses, err := client.Courses(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(courses, []Course{{ID: "1", Name: "Only page"}}) {
		t.Errorf("Courses() = %+v", courses)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client, err := NewClient(context.Background(), &http.Client{Timeout: 50 * time.Millisecond},
		Config{URL: server.URL, Token: "t"}, nil, logger.Discard{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Self(context.Background())
	var networkError *NetworkError
	if !errors.As(err, &networkError) {
		t.Errorf("expected NetworkError, got %v", err)
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var ids []ID
	if err := json.Unmarshal([]byte(`[12, "34", 5000000000123]`), &ids); err != nil {
		t.Fatal(err)
	}

	want := []ID{"12", "34", "5000000000123"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestRemoteError_Error(t *testing.T) {
	long := strings.Repeat("é", 250)

	var remoteErrorTests = []struct {
		err  RemoteError
		want string
	}{
		{RemoteError{Status: 500, Body: `{"errors": {"base": "broken"}}`}, `Canvas error: {"base":"broken"}`},
		{RemoteError{Status: 500, Body: `{"errors": null}`}, `Connection failed (HTTP 500)`},
		{RemoteError{Status: 503, Body: `{}`}, `Connection failed (HTTP 503)`},
		{RemoteError{Status: 502, Body: long}, `Connection failed (HTTP 502). Response: ` + strings.Repeat("é", 200)},
	}

	for _, tt := range remoteErrorTests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestMapping_CourseIDs(t *testing.T) {
	mapping := Mapping{"20": "B", "3": "A", "abc": "C", "100": "", "aaa": "D", "1000": "E"}

	want := []string{"3", "20", "1000", "aaa", "abc"}
	if got := mapping.CourseIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("CourseIDs() = %v, want %v", got, want)
	}
}

func TestCourseCacheMemory(t *testing.T) {
	cache, err := NewCourseCacheMemory()
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	courses := []Course{{ID: "1", Name: "Data Science"}}
	key := courseCacheKey(Config{URL: "https://canvas.example.edu", Token: "t"})

	if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("empty cache returned %v", err)
	}

	_ = cache.Add(ctx, key, courses)
	courses[0].Name = "changed"

	got, err := cache.Get(ctx, key)
	if err != nil || got[0].Name != "Data Science" {
		t.Errorf("Get() = %+v, %v", got, err)
	}

	now = now.Add(CourseCacheTTL)
	if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("expired entry returned %v", err)
	}

	_ = cache.Add(ctx, key, courses)
	_ = cache.Invalidate(ctx, key)
	if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("invalidated entry returned %v", err)
	}
}

func TestCourseCacheKey(t *testing.T) {
	a := courseCacheKey(Config{URL: "https://canvas.example.edu", Token: "one"})
	b := courseCacheKey(Config{URL: "https://canvas.example.edu", Token: "two"})

	if a == b {
		t.Errorf("different tokens must not share a cache entry")
	}
	if strings.Contains(a, "one") {
		t.Errorf("key %q leaks the token", a)
	}
}
