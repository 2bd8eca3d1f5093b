package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateURL(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"https://example.com/hook", true},
		{"http://localhost:8080/x", true},
		{"ftp://example.com/hook", false},
		{"not a url", false},
		{"/relative/only", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidateURL(tc.raw)
		if tc.ok && err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", tc.raw, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", tc.raw)
		}
	}
}

func TestWebhookSink_DeliversSignedEvent(t *testing.T) {
	const secret = "shared-secret"
	var gotSig string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, secret)
	err := sink.Notify(context.Background(), Event{Kind: "loan.accepted", LoanID: "abc"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	if want := hex.EncodeToString(mac.Sum(nil)); gotSig != want {
		t.Fatalf("signature = %q, want %q", gotSig, want)
	}
}

func TestWebhookSink_PropagatesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "s")
	err := sink.Notify(context.Background(), Event{Kind: "loan.accepted"})
	if !errors.Is(err, ErrCallbackFailed) {
		t.Fatalf("err = %v, want ErrCallbackFailed", err)
	}
}

func TestWebhookSink_ConnectionErrorWrapped(t *testing.T) {
	sink := NewWebhookSink("http://127.0.0.1:1/unreachable", "s")
	err := sink.Notify(context.Background(), Event{})
	if !errors.Is(err, ErrCallbackFailed) {
		t.Fatalf("err = %v, want ErrCallbackFailed", err)
	}
}
