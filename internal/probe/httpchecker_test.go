package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if out.Err != nil {
		t.Fatalf("want no transport error, got %v", out.Err)
	}
	if out.StatusCode != 200 || !Successful(out.StatusCode) {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if !strings.HasPrefix(out.Message, "200") {
		t.Fatalf("want message to start with 200, got %q", out.Message)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
}

func TestHTTPChecker_Status500IsAResponse(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if out.Err != nil {
		t.Fatalf("a 500 is not a transport failure, got %v", out.Err)
	}
	if out.StatusCode != 500 || Successful(out.StatusCode) {
		t.Fatalf("want unsuccessful 500, got %d", out.StatusCode)
	}
}

func TestHTTPChecker_TimeoutIsTransportError(t *testing.T) {
	// Server sleeps longer than client timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50 * time.Millisecond)
	out := chk.Check(context.Background(), s.URL)
	if out.Err == nil {
		t.Fatalf("want transport error due to timeout, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on transport error, got %d", out.StatusCode)
	}
}

func TestSuccessful(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{199, false}, {200, true}, {204, true}, {301, true}, {399, true}, {400, false}, {404, false}, {502, false},
	}
	for _, c := range cases {
		if got := Successful(c.code); got != c.want {
			t.Fatalf("Successful(%d)=%v want %v", c.code, got, c.want)
		}
	}
}
