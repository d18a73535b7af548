package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"companywise/internal/problems"
)

const (
	DefaultRawBaseURL  = "https://raw.githubusercontent.com/jitendra-789/leetcode-company-wise-problems/main"
	DefaultContentsURL = "https://api.github.com/repos/jitendra-789/leetcode-company-wise-problems/contents/"

	defaultMaxBodySize = 16 << 20
)

// GitHubSource fetches data from the upstream repository over HTTP.
type GitHubSource struct {
	client      *http.Client
	rawBase     string
	contentsURL string
	limiter     *rate.Limiter
	userAgent   string
	maxBody     int64
}

// GitHubOptions configures a GitHubSource. Zero values select defaults.
type GitHubOptions struct {
	RawBaseURL  string
	ContentsURL string
	Timeout     time.Duration
	// RequestsPerSecond caps outgoing requests; 0 disables the limit.
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	// MaxBodyBytes rejects larger responses as unavailable.
	MaxBodyBytes int64
	Client       *http.Client
}

func NewGitHubSource(opts GitHubOptions) *GitHubSource {
	if opts.RawBaseURL == "" {
		opts.RawBaseURL = DefaultRawBaseURL
	}
	if opts.ContentsURL == "" {
		opts.ContentsURL = DefaultContentsURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "companywise"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodySize
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &GitHubSource{
		client:      client,
		rawBase:     strings.TrimSuffix(opts.RawBaseURL, "/"),
		contentsURL: opts.ContentsURL,
		limiter:     limiter,
		userAgent:   opts.UserAgent,
		maxBody:     opts.MaxBodyBytes,
	}
}

type contentEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Companies lists the directories at the repository root.
func (s *GitHubSource) Companies(ctx context.Context) ([]string, error) {
	body, err := s.get(ctx, s.contentsURL, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var entries []contentEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, unavailable("decode contents listing: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type == "dir" && !strings.HasPrefix(e.Name, ".") {
			names = append(names, e.Name)
		}
	}
	return sortedCopy(names), nil
}

func (s *GitHubSource) Table(ctx context.Context, company string, window problems.Window) ([]byte, error) {
	if err := ValidateCompany(company); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/%s/%s", s.rawBase, url.PathEscape(company), url.PathEscape(window.FileName))
	return s.get(ctx, u, "text/csv")
}

func (s *GitHubSource) get(ctx context.Context, u, accept string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, unavailable("build request: %v", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unavailable("GET %s: %v", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable("GET %s: status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, unavailable("read %s: %v", u, err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, unavailable("GET %s: body exceeds %d bytes", u, s.maxBody)
	}
	return body, nil
}
