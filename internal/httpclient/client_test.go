package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type quotePayload struct {
	OutAmount string `json:"outAmount"`
}

func TestRequest_EncodesQueryAndDecodesResult(t *testing.T) {
	var gotQuery, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"outAmount":"12345"}`))
	}))
	defer server.Close()

	client, err := New(WithBaseURL(server.URL), WithName("test"), WithHeader("x-api-key", "k1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var result quotePayload
	resp, err := client.NewRequest(WithEndpoint("quote")).
		SetQueryParam("inputMint", "So11111111111111111111111111111111111111112").
		SetQueryParam("amount", "1000").
		SetQueryParam("note", "a b&c").
		SetResult(&result).
		Get(context.Background(), "/swap/v1/quote")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if !resp.IsSuccess() || resp.Result() == nil {
		t.Fatalf("expected a decoded success, got %d", resp.StatusCode)
	}
	if result.OutAmount != "12345" {
		t.Errorf("expected outAmount 12345, got %q", result.OutAmount)
	}
	want := "amount=1000&inputMint=So11111111111111111111111111111111111111112&note=a+b%26c"
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
	if gotKey != "k1" {
		t.Errorf("default header not sent, got %q", gotKey)
	}
}

func TestRequest_EmptyHeaderValueIsSkipped(t *testing.T) {
	var present bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["X-Api-Key"]
	}))
	defer server.Close()

	client, err := New(WithBaseURL(server.URL), WithHeader("x-api-key", ""))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.NewRequest().Get(context.Background(), "/"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if present {
		t.Error("empty api key must not be sent")
	}
}

func TestRequest_JSONBody(t *testing.T) {
	var gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer server.Close()

	client, _ := New(WithBaseURL(server.URL))
	_, err := client.NewRequest().
		SetBody(map[string]any{"jsonrpc": "2.0", "id": 1}).
		Post(context.Background(), "/")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotType != "application/json" {
		t.Errorf("content type = %q", gotType)
	}
	if gotBody != `{"id":1,"jsonrpc":"2.0"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestRequest_UndecodableBodyLeavesResultNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	client, _ := New(WithBaseURL(server.URL))
	var result quotePayload
	resp, err := client.NewRequest().SetResult(&result).Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Result() != nil {
		t.Error("expected nil result for a non-JSON body")
	}
	if string(resp.Body()) != "<html>maintenance</html>" {
		t.Errorf("body = %q", resp.Body())
	}
}

func TestRequest_StatusErrorByDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client, err := New(WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.NewRequest().Get(context.Background(), "/price/v3")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", statusErr.HTTPStatus())
	}
	if statusErr.RetryAfter != 3*time.Second {
		t.Errorf("expected RetryAfter 3s, got %s", statusErr.RetryAfter)
	}
}

func TestRequest_CustomErrorHandlerWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := New(WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sentinel := errors.New("venue rejected request")
	_, err = client.NewRequest(
		WithErrorHandler(func(status int, _ http.Header, _ []byte) error {
			if status >= 400 {
				return sentinel
			}
			return nil
		}),
		WithEndpoint("swap"),
	).Post(context.Background(), "/swap/v1/swap")

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestRequest_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client, _ := New(WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))
	if _, err := client.NewRequest().Get(context.Background(), "/"); err == nil {
		t.Fatal("expected a timeout error")
	}
}
