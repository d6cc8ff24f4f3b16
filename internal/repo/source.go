package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/posture-dashboard/internal/models"
)

// maxPayloadBytes bounds a single dataset body.
const maxPayloadBytes = 8 << 20

// FailureKind classifies why a source attempt produced no payload.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureStatus    FailureKind = "status"
	FailureParse     FailureKind = "parse"
)

// FetchError records a failed attempt against one source.
type FetchError struct {
	Source  string
	Dataset string
	Kind    FailureKind
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s source %s failure for %s: %v", e.Source, e.Kind, e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the failure kind carried by err, or "" when err is not a FetchError.
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// RemoteSource queries the live metrics API, one path per dataset.
type RemoteSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteSource constructs a client targeting the configured metrics API.
func NewRemoteSource(baseURL string, timeout time.Duration) *RemoteSource {
	return &RemoteSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the source in notifications and metrics.
func (s *RemoteSource) Name() string { return "remote" }

// Fetch issues GET <base><RemoteQuery> and returns the JSON body.
func (s *RemoteSource) Fetch(ctx context.Context, d models.DatasetDescriptor) (json.RawMessage, error) {
	if s == nil || s.baseURL == "" {
		return nil, &FetchError{Source: "remote", Dataset: d.Name, Kind: FailureTransport, Err: errors.New("remote base URL not configured")}
	}
	endpoint, err := joinURL(s.baseURL, d.RemoteQuery)
	if err != nil {
		return nil, &FetchError{Source: "remote", Dataset: d.Name, Kind: FailureTransport, Err: err}
	}
	return getJSON(ctx, s.httpClient, "remote", d.Name, endpoint)
}

// FallbackSource serves the static demo payloads, addressed by fallback key.
type FallbackSource struct {
	fsys       fs.FS
	baseURL    string
	httpClient *http.Client
}

// NewFallbackSource resolves location as an http(s) base URL or a local directory.
func NewFallbackSource(location string, timeout time.Duration) *FallbackSource {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &FallbackSource{
			baseURL:    strings.TrimRight(location, "/"),
			httpClient: &http.Client{Timeout: timeout},
		}
	}
	return NewFallbackSourceFS(os.DirFS(location))
}

// NewFallbackSourceFS reads demo payloads from fsys.
func NewFallbackSourceFS(fsys fs.FS) *FallbackSource {
	return &FallbackSource{fsys: fsys}
}

// Name identifies the source in notifications and metrics.
func (s *FallbackSource) Name() string { return "fallback" }

// Fetch loads <FallbackKey>.json.
func (s *FallbackSource) Fetch(ctx context.Context, d models.DatasetDescriptor) (json.RawMessage, error) {
	file := d.FallbackKey + ".json"
	if s.baseURL != "" {
		endpoint, err := joinURL(s.baseURL, "/"+file)
		if err != nil {
			return nil, &FetchError{Source: "fallback", Dataset: d.Name, Kind: FailureTransport, Err: err}
		}
		return getJSON(ctx, s.httpClient, "fallback", d.Name, endpoint)
	}
	if s.fsys == nil {
		return nil, &FetchError{Source: "fallback", Dataset: d.Name, Kind: FailureTransport, Err: errors.New("fallback location not configured")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: "fallback", Dataset: d.Name, Kind: FailureTransport, Err: err}
	}
	f, err := s.fsys.Open(file)
	if err != nil {
		kind := FailureTransport
		if errors.Is(err, fs.ErrNotExist) {
			kind = FailureStatus
		}
		return nil, &FetchError{Source: "fallback", Dataset: d.Name, Kind: kind, Err: err}
	}
	defer f.Close()
	return readJSON(f, "fallback", d.Name)
}

func joinURL(base, query string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(query)
	if err != nil {
		return "", fmt.Errorf("parse dataset query: %w", err)
	}
	u.Path = path.Join("/", u.Path, ref.Path)
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func getJSON(ctx context.Context, client *http.Client, source, dataset, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Source: source, Dataset: dataset, Kind: FailureTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: source, Dataset: dataset, Kind: FailureTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		return nil, &FetchError{Source: source, Dataset: dataset, Kind: FailureStatus, Err: fmt.Errorf("returned %s", resp.Status)}
	}
	return readJSON(resp.Body, source, dataset)
}

func readJSON(r io.Reader, source, dataset string) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes+1))
	if err != nil {
		return nil, &FetchError{Source: source, Dataset: dataset, Kind: FailureTransport, Err: err}
	}
	if len(body) > maxPayloadBytes {
		return nil, &FetchError{Source: source, Dataset: dataset, Kind: FailureParse, Err: errors.New("payload too large")}
	}
	if !json.Valid(body) {
		return nil, &FetchError{Source: source, Dataset: dataset, Kind: FailureParse, Err: errors.New("body is not valid JSON")}
	}
	return json.RawMessage(body), nil
}
