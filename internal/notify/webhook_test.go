package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmylchreest/pagewatch/internal/models"
)

func TestWebhookNotifier_SignsPayloadAndSucceeds(t *testing.T) {
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Pagewatch-Signature-256")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg, _ := json.Marshal(WebhookConfig{URL: srv.URL, Secret: "s3cret"})
	n := NewWebhookNotifier()
	if err := n.Initialize(cfg); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	result := n.Notify(t.Context(), models.NotificationEvent{
		ProductID:  "p1",
		NewValue:   json.RawMessage(`{"amount":"19.99","currency":"USD"}`),
		ChangeType: "dec",
	})
	if !result.Success {
		t.Fatalf("Notify() failed: %s", result.Error)
	}

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(gotBody)
	wantSig := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != wantSig {
		t.Errorf("signature = %q, want %q", gotSig, wantSig)
	}
}

func TestWebhookNotifier_ValidateConfig_RequiresURL(t *testing.T) {
	n := NewWebhookNotifier()
	if err := n.ValidateConfig(json.RawMessage(`{}`)); err == nil {
		t.Error("ValidateConfig() with no url should fail")
	}
}
