package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/timeliness-app/assignment-tracker/pkg/logger"
	"golang.org/x/oauth2"
)

const (
	perPage = "100"
	// maxPages bounds pagination of a single listing
	maxPages = 50
	// maxBodySize bounds a single response body
	maxBodySize = 10 << 20
)

// ID is a Canvas id, which the API sends as a number or, with string ids enabled, as a string
type ID string

// UnmarshalJSON accepts numbers and strings
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Identity is the authenticated Canvas user
type Identity struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Course is an active Canvas course
type Course struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	WorkflowState string `json:"workflow_state,omitempty"`
}

// RemoteAssignment is an assignment as the Canvas API returns it
type RemoteAssignment struct {
	ID          ID      `json:"id"`
	Name        string  `json:"name"`
	DueAt       *string `json:"due_at"`
	Description *string `json:"description"`
}

// Config is the endpoint and token of a Canvas instance
type Config struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// Normalize trims both fields and removes one trailing slash from the URL
func (c Config) Normalize() Config {
	c.URL = strings.TrimSuffix(strings.TrimSpace(c.URL), "/")
	c.Token = strings.TrimSpace(c.Token)

	return c
}

// URLRewriter maps an outbound URL to the URL that is actually requested
type URLRewriter func(rawURL string) string

// Direct requests URLs unchanged
func Direct(rawURL string) string {
	return rawURL
}

// CORSProxy prefixes the escaped URL, e.g. CORSProxy("https://corsproxy.io/?")
func CORSProxy(prefix string) URLRewriter {
	return func(rawURL string) string {
		return prefix + url.QueryEscape(rawURL)
	}
}

// Client talks to the Canvas REST API with a bearer token
type Client struct {
	endpoint *url.URL
	http     *http.Client
	rewrite  URLRewriter
	logger   logger.Interface
}

// NewClient builds a Client for config. base provides timeouts and transport, nil means http.DefaultClient.
func NewClient(ctx context.Context, base *http.Client, config Config, rewrite URLRewriter,
	log logger.Interface) (*Client, error) {
	endpoint, err := url.Parse(config.URL)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, errors.Wrapf(ErrInvalidURL, "%q", config.URL)
	}

	if base == nil {
		base = http.DefaultClient
	}
	if rewrite == nil {
		rewrite = Direct
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token}))
	client.Timeout = base.Timeout

	return &Client{
		endpoint: endpoint,
		http:     client,
		rewrite:  rewrite,
		logger:   log,
	}, nil
}

// Self fetches the authenticated user
func (c *Client) Self(ctx context.Context) (*Identity, error) {
	identity := Identity{}

	body, _, err := c.get(ctx, c.resolve("/api/v1/users/self", nil))
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &identity)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode user")
	}

	return &identity, nil
}

// Courses lists the active courses, concluded courses are filtered out
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	query := url.Values{}
	query.Set("enrollment_state", "active")
	query.Set("per_page", perPage)

	var all []Course
	err := c.list(ctx, c.resolve("/api/v1/courses", query), func(page []byte) error {
		var courses []Course
		if err := json.Unmarshal(page, &courses); err != nil {
			return errors.Wrap(err, "could not decode courses")
		}
		all = append(all, courses...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	active := make([]Course, 0, len(all))
	for _, course := range all {
		if course.WorkflowState == "concluded" {
			continue
		}
		active = append(active, course)
	}

	return active, nil
}

// Assignments lists the assignments of a course in API order
func (c *Client) Assignments(ctx context.Context, courseID string) ([]RemoteAssignment, error) {
	query := url.Values{}
	query.Set("per_page", perPage)

	var all []RemoteAssignment
	path := fmt.Sprintf("/api/v1/courses/%s/assignments", url.PathEscape(courseID))
	err := c.list(ctx, c.resolve(path, query), func(page []byte) error {
		var assignments []RemoteAssignment
		if err := json.Unmarshal(page, &assignments); err != nil {
			return errors.Wrap(err, "could not decode assignments")
		}
		all = append(all, assignments...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return all, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = query.Encode()

	return u.String()
}

// list follows rel="next" links on the same host
func (c *Client) list(ctx context.Context, rawURL string, page func([]byte) error) error {
	for i := 0; i < maxPages && rawURL != ""; i++ {
		body, header, err := c.get(ctx, rawURL)
		if err != nil {
			return err
		}

		if err := page(body); err != nil {
			return err
		}

		rawURL = nextLink(header.Get("Link"))
		if rawURL != "" && !c.sameHost(rawURL) {
			c.logger.Info(fmt.Sprintf("Not following pagination link to foreign host from %s", c.endpoint.Host))
			return nil
		}
	}

	return nil
}

func (c *Client) sameHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return u.Scheme == c.endpoint.Scheme && u.Host == c.endpoint.Host
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rewrite(rawURL), nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not build request")
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return nil, nil, &NetworkError{Endpoint: c.endpoint.String(), Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, nil, &NetworkError{Endpoint: c.endpoint.String(), Err: err}
	}

	c.logger.Debug(fmt.Sprintf("GET %s: %d", rawURL, response.StatusCode))

	switch {
	case response.StatusCode == http.StatusUnauthorized:
		return nil, nil, ErrAuth
	case response.StatusCode == http.StatusForbidden:
		return nil, nil, ErrPermission
	case response.StatusCode == http.StatusNotFound:
		return nil, nil, ErrEndpointNotFound
	case response.StatusCode < 200 || response.StatusCode > 299:
		return nil, nil, &RemoteError{Status: response.StatusCode, Body: string(body)}
	}

	return body, response.Header, nil
}

// nextLink extracts the rel="next" target of a Link header
func nextLink(header string) string {
	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}

		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		for _, param := range parts[1:] {
			key, value, ok := cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(key, "rel") {
				continue
			}

			for _, rel := range strings.Fields(strings.Trim(value, `"`)) {
				if strings.EqualFold(rel, "next") {
					return strings.Trim(target, "<>")
				}
			}
		}
	}

	return ""
}

// cut is strings.Cut, which needs go 1.18
func cut(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
