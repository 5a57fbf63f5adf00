package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/imoveisdeluxo/admsession/transport"
)

func TestDoDecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.OperationName != "Users" || req.Variables["page"] != float64(2) {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"data":{"users":[{"id":"1"},{"id":"2"}]}}`))
	}))
	defer srv.Close()

	var out struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
	}
	err := New(srv.URL, nil).Do(context.Background(), Request{
		Query:         "query Users($page: Int) { users(page: $page) { id } }",
		OperationName: "Users",
		Variables:     map[string]any{"page": 2},
	}, &out)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if len(out.Users) != 2 || out.Users[1].ID != "2" {
		t.Fatalf("unexpected data %+v", out)
	}
}

func TestDoReturnsGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"plan":null},"errors":[{"message":"plan not found","path":["plan"]}]}`))
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Do(context.Background(), Request{Query: "{ plan { id } }"}, nil)
	var gqlErrs Errors
	if !errors.As(err, &gqlErrs) || len(gqlErrs) != 1 || gqlErrs[0].Message != "plan not found" {
		t.Fatalf("expected graphql errors, got %v", err)
	}
}

func TestDoUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Do(context.Background(), Request{Query: "{ me { id } }"}, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestDoUsesBearerTransport(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	src := transport.TokenSourceFunc(func(context.Context) (string, bool) { return "abc", true })
	hc := transport.NewChain(transport.Bearer(src)).Client(nil)

	if err := New(srv.URL, hc).Do(context.Background(), Request{Query: "{ me { id } }"}, nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if auth != "Bearer abc" {
		t.Fatalf("expected bearer header, got %q", auth)
	}
}

func TestDoRejectsEmptyQuery(t *testing.T) {
	if err := New("http://unused", nil).Do(context.Background(), Request{}, nil); err == nil {
		t.Fatal("expected error for empty query")
	}
}
