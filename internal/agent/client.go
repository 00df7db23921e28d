package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/service"
	"github.com/hyperjump/vecsearch/pkg/utils"
)

// Store is what the agent calls to act on a plan. A non-nil error means the call could not
// be made; a failed call is reported in the outcome.
type Store interface {
	Add(ctx context.Context, sentences []string) (models.InsertOutcome, error)
	Search(ctx context.Context, query string, k int) (models.SearchOutcome, error)
}

// ServiceClient calls a running vecsearch server over HTTP.
type ServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewServiceClient returns a client for the server at baseURL (e.g. http://127.0.0.1:4000).
func NewServiceClient(baseURL string, timeout time.Duration) *ServiceClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ServiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

const maxErrorBody = 200

type serviceReply struct {
	Success     bool             `json:"success"`
	Count       int              `json:"count"`
	Message     string           `json:"message"`
	Kind        models.ErrorKind `json:"kind"`
	Error       string           `json:"error"`
	Query       string           `json:"query"`
	BestMatches []models.Match   `json:"best_matches"`
}

// Add posts sentences to /add-document.
func (c *ServiceClient) Add(ctx context.Context, sentences []string) (models.InsertOutcome, error) {
	body, err := json.Marshal(map[string][]string{"sentences": sentences})
	if err != nil {
		return models.InsertOutcome{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add-document", bytes.NewReader(body))
	if err != nil {
		return models.InsertOutcome{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, reply, err := c.do(req)
	if err != nil {
		return models.InsertOutcome{}, err
	}
	if status == http.StatusOK && reply.Success {
		return models.InsertOutcome{Success: true, Count: reply.Count, Message: reply.Message}, nil
	}
	msg := firstNonEmpty(reply.Error, reply.Message, http.StatusText(status))
	kind := kindOf(status, reply.Kind)
	return models.InsertOutcome{Message: msg, Kind: kind, Err: fmt.Errorf("add-document: %s (status %d)", msg, status)}, nil
}

// Search queries /search. k <= 0 leaves the server default.
func (c *ServiceClient) Search(ctx context.Context, query string, k int) (models.SearchOutcome, error) {
	params := url.Values{"query": {query}}
	if k > 0 {
		params.Set("k", strconv.Itoa(k))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return models.SearchOutcome{}, fmt.Errorf("failed to create request: %w", err)
	}

	status, reply, err := c.do(req)
	if err != nil {
		return models.SearchOutcome{}, err
	}
	if status == http.StatusOK {
		matches := reply.BestMatches
		if matches == nil {
			matches = []models.Match{}
		}
		return models.SearchOutcome{Query: reply.Query, Matches: matches}, nil
	}
	msg := firstNonEmpty(reply.Error, reply.Message, http.StatusText(status))
	return models.SearchOutcome{
		Query: query,
		Kind:  kindOf(status, reply.Kind),
		Err:   fmt.Errorf("search: %s (status %d)", msg, status),
	}, nil
}

func (c *ServiceClient) do(req *http.Request) (int, serviceReply, error) {
	var reply serviceReply
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, reply, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, reply, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		if resp.StatusCode == http.StatusOK {
			return resp.StatusCode, reply, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
		}
		// error bodies from middleware (timeouts, panics) are not JSON; the status decides the kind
		reply = serviceReply{Error: utils.Truncate(strings.TrimSpace(string(data)), maxErrorBody)}
	}
	return resp.StatusCode, reply, nil
}

// kindOf prefers the kind the server reported and falls back to the status code.
func kindOf(status int, reported models.ErrorKind) models.ErrorKind {
	if reported != "" {
		return reported
	}
	switch status {
	case http.StatusBadRequest:
		return models.KindValidation
	case http.StatusNotFound:
		return models.KindCollectionNotFound
	case http.StatusConflict:
		return models.KindSchemaConflict
	case http.StatusServiceUnavailable:
		return models.KindIndexNotReady
	case http.StatusGatewayTimeout:
		return models.KindTimeout
	default:
		return models.KindEngine
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// LocalStore runs plans against an in-process service.
type LocalStore struct {
	svc *service.Service
}

// NewLocalStore wraps svc.
func NewLocalStore(svc *service.Service) *LocalStore {
	return &LocalStore{svc: svc}
}

func (l *LocalStore) Add(ctx context.Context, sentences []string) (models.InsertOutcome, error) {
	return l.svc.Add(ctx, sentences), nil
}

func (l *LocalStore) Search(ctx context.Context, query string, k int) (models.SearchOutcome, error) {
	return l.svc.Search(ctx, query, k), nil
}
