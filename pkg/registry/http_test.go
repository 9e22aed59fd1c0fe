package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(HTTPConfig{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestHTTPClientSendsAuthToken(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		fmt.Fprint(w, `{"registered_limits": []}`)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL, AuthToken: "secret-token"})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	if _, err := client.ListRegisteredLimits(context.Background(), "compute", "r1", ""); err != nil {
		t.Fatalf("ListRegisteredLimits failed: %v", err)
	}
	if gotToken != "secret-token" {
		t.Fatalf("expected auth token header, got %q", gotToken)
	}
}

func TestHTTPClientGetEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/endpoints/e1":
			fmt.Fprint(w, `{"endpoint": {"id": "e1", "service_id": "compute", "region_id": "r1"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	endpoint, err := client.GetEndpoint(context.Background(), "e1")
	if err != nil {
		t.Fatalf("GetEndpoint failed: %v", err)
	}
	if endpoint.ServiceID != "compute" || endpoint.RegionID != "r1" {
		t.Fatalf("unexpected endpoint %+v", endpoint)
	}

	_, err = client.GetEndpoint(context.Background(), "missing")
	if !errors.Is(err, ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound for 404, got %v", err)
	}
}

func TestHTTPClientFollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "":
			resp := map[string]interface{}{
				"registered_limits": []map[string]interface{}{
					{"resource_name": "cores", "default_limit": 10},
				},
				"links": map[string]string{"next": server.URL + "/registered_limits?page=2"},
			}
			json.NewEncoder(w).Encode(resp)
		case "2":
			resp := map[string]interface{}{
				"registered_limits": []map[string]interface{}{
					{"resource_name": "ram_mb", "default_limit": 4096},
				},
				"links": map[string]string{"next": ""},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	limits, err := client.ListRegisteredLimits(context.Background(), "compute", "r1", "")
	if err != nil {
		t.Fatalf("ListRegisteredLimits failed: %v", err)
	}
	if len(limits) != 2 {
		t.Fatalf("expected limits from both pages, got %+v", limits)
	}
	if limits[0].ResourceName != "cores" || limits[1].ResourceName != "ram_mb" {
		t.Fatalf("unexpected limits %+v", limits)
	}
}

func TestHTTPClientListProjectLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("project_id") != "p1" || q.Get("resource_name") != "cores" {
			t.Errorf("unexpected query %v", q)
		}
		fmt.Fprint(w, `{"limits": [{"project_id": "p1", "resource_name": "cores", "resource_limit": 4}]}`)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	limits, err := client.ListProjectLimits(context.Background(), "compute", "r1", "cores", "p1")
	if err != nil {
		t.Fatalf("ListProjectLimits failed: %v", err)
	}
	if len(limits) != 1 || limits[0].ResourceLimit != 4 {
		t.Fatalf("unexpected limits %+v", limits)
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"registered_limits": []}`)
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL, MaxRetries: 1})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	if _, err := client.ListRegisteredLimits(context.Background(), "compute", "r1", ""); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "forbidden")
	}))
	defer server.Close()

	client, err := NewHTTPClient(HTTPConfig{BaseURL: server.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	_, err = client.ListRegisteredLimits(context.Background(), "compute", "r1", "")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", reqErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", calls.Load())
	}
}

func TestDialSurfacesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	dial := Dial(HTTPConfig{BaseURL: server.URL, AuthToken: "bad-token"})
	session := NewSession("e1", dial)

	_, err := session.Client(context.Background())
	if !errors.Is(err, ErrSessionInit) {
		t.Fatalf("expected ErrSessionInit, got %v", err)
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected wrapped 401, got %v", err)
	}
}

func TestAbsoluteURL(t *testing.T) {
	client, err := NewHTTPClient(HTTPConfig{BaseURL: "https://registry:5000/v3/"})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	tests := []struct {
		link string
		want string
	}{
		{"", ""},
		{"https://registry:5000/v3/limits?page=2", "https://registry:5000/v3/limits?page=2"},
		{"/limits?page=2", "https://registry:5000/v3/limits?page=2"},
		{"limits?page=2", "https://registry:5000/v3/limits?page=2"},
	}
	for _, tt := range tests {
		if got := client.absoluteURL(tt.link); got != tt.want {
			t.Errorf("absoluteURL(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}
