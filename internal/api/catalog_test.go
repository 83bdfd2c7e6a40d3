package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const mockBase = "https://api.port.test"

// fakeTokens is a scripted TokenProvider.
type fakeTokens struct {
	mu           sync.Mutex
	token        string
	afterRefresh string
	awaitCalls   int
	refreshCalls int
}

func (f *fakeTokens) AwaitToken(ctx context.Context, maxWait time.Duration) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awaitCalls++
	return f.token
}

func (f *fakeTokens) Refresh(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	f.token = f.afterRefresh
	return f.token
}

func newMockCatalog(tokens TokenProvider) (*Catalog, *httpmock.MockTransport) {
	transport := httpmock.NewMockTransport()
	client := NewClient(mockBase, 0, WithHTTPClient(&http.Client{Transport: transport}))
	return NewCatalog(client, tokens, time.Second), transport
}

func TestCatalog_GetEntities(t *testing.T) {
	catalog, transport := newMockCatalog(&fakeTokens{token: "tok"})
	transport.RegisterResponder(http.MethodGet, mockBase+"/v1/blueprints/githubPullRequest/entities",
		httpmock.NewStringResponder(http.StatusOK, `{"ok":true,"entities":[{"identifier":"pr-1"},{"identifier":"pr-2"}]}`))

	entities, err := catalog.GetEntities(context.Background(), "githubPullRequest")
	if err != nil {
		t.Fatalf("GetEntities failed: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(entities))
	}
	if entities[0]["identifier"] != "pr-1" {
		t.Errorf("Expected first entity 'pr-1', got %v", entities[0]["identifier"])
	}
}

func TestCatalog_GetEntities_MissingField(t *testing.T) {
	catalog, transport := newMockCatalog(&fakeTokens{token: "tok"})
	transport.RegisterResponder(http.MethodGet, mockBase+"/v1/blueprints/service/entities",
		httpmock.NewStringResponder(http.StatusOK, `{"ok":true}`))

	entities, err := catalog.GetEntities(context.Background(), "service")
	if err != nil {
		t.Fatalf("GetEntities failed: %v", err)
	}
	if entities == nil || len(entities) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", entities)
	}
}

func TestCatalog_GetBlueprints(t *testing.T) {
	catalog, transport := newMockCatalog(&fakeTokens{token: "tok"})
	transport.RegisterResponder(http.MethodGet, mockBase+"/v1/blueprints",
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") != "Bearer tok" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"blueprints":[{"identifier":"githubPullRequest"}]}`), nil
		})

	blueprints, err := catalog.GetBlueprints(context.Background())
	if err != nil {
		t.Fatalf("GetBlueprints failed: %v", err)
	}
	if len(blueprints) != 1 || blueprints[0]["identifier"] != "githubPullRequest" {
		t.Errorf("Unexpected blueprints: %v", blueprints)
	}
}

func TestCatalog_NoTokenAvailable(t *testing.T) {
	catalog, transport := newMockCatalog(&fakeTokens{})

	_, err := catalog.GetBlueprints(context.Background())
	if !errors.Is(err, ErrNoTokenAvailable) {
		t.Fatalf("Expected ErrNoTokenAvailable, got %v", err)
	}
	if n := transport.GetTotalCallCount(); n != 0 {
		t.Errorf("Expected no upstream calls without a token, got %d", n)
	}
}

func TestCatalog_AuthFailure_RotatesAndRetriesOnce(t *testing.T) {
	tokens := &fakeTokens{token: "old", afterRefresh: "new"}
	catalog, transport := newMockCatalog(tokens)

	transport.RegisterResponder(http.MethodGet, mockBase+"/v1/blueprints",
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") == "Bearer new" {
				return httpmock.NewStringResponse(http.StatusOK, `{"blueprints":[{"identifier":"a"}]}`), nil
			}
			return httpmock.NewStringResponse(http.StatusUnauthorized, `{"error":"expired"}`), nil
		})

	blueprints, err := catalog.GetBlueprints(context.Background())
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if len(blueprints) != 1 {
		t.Errorf("Expected 1 blueprint, got %d", len(blueprints))
	}
	if tokens.refreshCalls != 1 {
		t.Errorf("Expected exactly one rotation, got %d", tokens.refreshCalls)
	}
	if n := transport.GetTotalCallCount(); n != 2 {
		t.Errorf("Expected original call plus one retry, got %d calls", n)
	}
}

func TestCatalog_AuthFailure_UnchangedTokenIsNotRetried(t *testing.T) {
	tokens := &fakeTokens{token: "same", afterRefresh: "same"}
	catalog, transport := newMockCatalog(tokens)

	transport.RegisterResponder(http.MethodGet, mockBase+"/v1/blueprints",
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":"forbidden"}`))

	_, err := catalog.GetBlueprints(context.Background())
	var upstreamErr *UpstreamRequestError
	if !errors.As(err, &upstreamErr) || upstreamErr.StatusCode != http.StatusForbidden {
		t.Fatalf("Expected the original 403 to surface, got %v", err)
	}
	if tokens.refreshCalls != 1 {
		t.Errorf("Expected exactly one rotation, got %d", tokens.refreshCalls)
	}
	if n := transport.GetTotalCallCount(); n != 1 {
		t.Errorf("Expected no retry with an unchanged token, got %d calls", n)
	}
}

func TestCatalog_AuthFailure_RetryFailureSurfacesVerbatim(t *testing.T) {
	tokens := &fakeTokens{token: "old", afterRefresh: "also-bad"}
	catalog, transport := newMockCatalog(tokens)

	transport.RegisterResponder(http.MethodGet, mockBase+"/v1/blueprints/svc/entities",
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") == "Bearer also-bad" {
				return httpmock.NewStringResponse(http.StatusForbidden, `{"message":"retry denied"}`), nil
			}
			return httpmock.NewStringResponse(http.StatusUnauthorized, `{"message":"first denied"}`), nil
		})

	_, err := catalog.GetEntities(context.Background(), "svc")
	var upstreamErr *UpstreamRequestError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected *UpstreamRequestError, got %T: %v", err, err)
	}
	if upstreamErr.StatusCode != http.StatusForbidden || string(upstreamErr.Body) != `{"message":"retry denied"}` {
		t.Errorf("Expected the retry's 403 to surface, got %d %s", upstreamErr.StatusCode, upstreamErr.Body)
	}
	if tokens.refreshCalls != 1 {
		t.Errorf("Expected exactly one rotation, got %d", tokens.refreshCalls)
	}
	if n := transport.GetTotalCallCount(); n != 2 {
		t.Errorf("Expected exactly two calls, got %d", n)
	}
}

func TestCatalog_NonAuthErrorDoesNotRotate(t *testing.T) {
	tokens := &fakeTokens{token: "tok", afterRefresh: "other"}
	catalog, transport := newMockCatalog(tokens)

	transport.RegisterResponder(http.MethodGet, mockBase+"/v1/blueprints",
		httpmock.NewStringResponder(http.StatusInternalServerError, `boom`))

	if _, err := catalog.GetBlueprints(context.Background()); err == nil {
		t.Fatal("Expected error for 500")
	}
	if tokens.refreshCalls != 0 {
		t.Errorf("Expected no rotation for a 500, got %d", tokens.refreshCalls)
	}
}
