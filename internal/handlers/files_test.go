package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"interior-ledger/internal/realtime"
	"interior-ledger/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type fakeOpener struct {
	open func(ctx context.Context, token string) (io.ReadCloser, string, error)
}

func (f fakeOpener) Open(ctx context.Context, token string) (io.ReadCloser, string, error) {
	return f.open(ctx, token)
}

func TestDownloadProof(t *testing.T) {
	opener := fakeOpener{open: func(_ context.Context, token string) (io.ReadCloser, string, error) {
		switch token {
		case "good":
			return io.NopCloser(strings.NewReader("receipt bytes")), "receipt.pdf", nil
		case "gone":
			return nil, "", storage.ErrNotFound
		case "broken":
			return nil, "", errors.New("disk on fire")
		}
		return nil, "", storage.ErrInvalidToken
	}}
	r := gin.New()
	r.GET("/files", DownloadProof(opener, zap.NewNop()))

	tests := []struct {
		query  string
		status int
	}{
		{"", http.StatusBadRequest},
		{"?token=good", http.StatusOK},
		{"?token=expired", http.StatusForbidden},
		{"?token=gone", http.StatusNotFound},
		{"?token=broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/files"+tt.query, nil))
		if w.Code != tt.status {
			t.Errorf("%q: expected %d, got %d", tt.query, tt.status, w.Code)
		}
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/files?token=good", nil))
	if w.Body.String() != "receipt bytes" {
		t.Errorf("body %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type %q", ct)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing nosniff header")
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline;") {
		t.Errorf("disposition %q", cd)
	}
}

func TestDownloadProofServesUnknownTypesAsAttachment(t *testing.T) {
	ctx := context.Background()
	signer := storage.NewURLSigner("secret", time.Now)
	store, err := storage.NewLocalStore(t.TempDir(), "http://ledger.test", signer)
	if err != nil {
		t.Fatal(err)
	}
	// a file that predates upload validation, stored directly
	if _, err := store.Upload(ctx, storage.ProofsBucket, "1/abc.html", strings.NewReader("<script>alert(1)</script>")); err != nil {
		t.Fatal(err)
	}
	token, err := signer.Sign(storage.ProofsBucket, "1/abc.html", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/files", DownloadProof(store, zap.NewNop()))
	w := serve(r, httptest.NewRequest(http.MethodGet, "/files?token="+token, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("disposition %q", cd)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing nosniff header")
	}
}

type fakeSubscriber struct {
	ch        chan realtime.Event
	projectID chan uint
}

func (f *fakeSubscriber) Subscribe(_ context.Context, projectID uint) (<-chan realtime.Event, error) {
	f.projectID <- projectID
	return f.ch, nil
}

func TestLiveLedgerDisabled(t *testing.T) {
	r := gin.New()
	r.GET("/projects/:id/ledger/live", LiveLedger(nil, zap.NewNop()))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/projects/1/ledger/live", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestLiveLedgerStreamsEvents(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan realtime.Event, 1), projectID: make(chan uint, 1)}
	r := gin.New()
	r.GET("/projects/:id/ledger/live", LiveLedger(sub, zap.NewNop()))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/projects/12/ledger/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if id := <-sub.projectID; id != 12 {
		t.Fatalf("subscribed to project %d", id)
	}

	sub.ch <- realtime.Event{Type: realtime.EventPaymentRecorded, ProjectID: 12, EntityID: 5, ActorID: 2}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got realtime.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != realtime.EventPaymentRecorded || got.EntityID != 5 {
		t.Errorf("unexpected event: %+v", got)
	}
}
