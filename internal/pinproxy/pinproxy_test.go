package pinproxy

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fractalmind-ai/tokenizerd/internal/config"
	"github.com/fractalmind-ai/tokenizerd/pkg/protocol"
)

type upstreamCall struct {
	auth        string
	contentType string
	body        []byte
}

// newUpstream returns a fake pinning provider that records the last request
// and answers with the given status and JSON body.
func newUpstream(t *testing.T, status int, reply string) (*httptest.Server, *upstreamCall) {
	t.Helper()
	call := &upstreamCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call.auth = r.Header.Get("Authorization")
		call.contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("upstream failed to read body: %v", err)
		}
		call.body = body
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, call
}

func newTestServer(t *testing.T, cfg *config.PinConfig) *httptest.Server {
	t.Helper()
	s, err := NewServer(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(endpoint string) *config.PinConfig {
	return &config.PinConfig{
		Provider: "test",
		Providers: map[string]*config.PinProvider{
			"test": {
				Endpoint: endpoint,
				Token:    "secret",
				Gateway:  "https://gateway.example/ipfs",
			},
		},
	}
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var envelope protocol.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestPinJSONForwardsAndMapsCID(t *testing.T) {
	upstream, call := newUpstream(t, http.StatusOK, `{"cid":"bafytest"}`)
	srv := newTestServer(t, testConfig(upstream.URL))

	payload := `{"name":"manifest","size":3}`
	resp, err := http.Post(srv.URL+"/ipfs/pin_json", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var pin protocol.PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pin); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if pin.CID != "bafytest" {
		t.Errorf("expected cid bafytest, got %q", pin.CID)
	}
	if pin.URI != "ipfs://bafytest" {
		t.Errorf("expected ipfs uri, got %q", pin.URI)
	}
	if pin.GatewayURL != "https://gateway.example/ipfs/bafytest" {
		t.Errorf("unexpected gateway url: %q", pin.GatewayURL)
	}
	if string(call.body) != payload {
		t.Errorf("upstream body was not forwarded verbatim: %q", call.body)
	}
	if call.auth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", call.auth)
	}
	if call.contentType != "application/json" {
		t.Errorf("expected json content type, got %q", call.contentType)
	}
}

func TestPinJSONRejectsInvalidJSON(t *testing.T) {
	upstream, call := newUpstream(t, http.StatusOK, `{"cid":"never"}`)
	srv := newTestServer(t, testConfig(upstream.URL))

	resp, err := http.Post(srv.URL+"/ipfs/pin_json", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if call.body != nil {
		t.Error("invalid JSON must not reach the upstream")
	}
}

func TestPinFileForwardsMultipartContent(t *testing.T) {
	upstream, call := newUpstream(t, http.StatusOK, `{"cid":"bafyfile"}`)
	srv := newTestServer(t, testConfig(upstream.URL))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "artifact.bin")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write([]byte("file-bytes"))
	mw.Close()

	resp, err := http.Post(srv.URL+"/ipfs/pin_file", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var pin protocol.PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pin); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if pin.CID != "bafyfile" {
		t.Errorf("expected cid bafyfile, got %q", pin.CID)
	}
	if string(call.body) != "file-bytes" {
		t.Errorf("upstream did not receive file content: %q", call.body)
	}
}

func TestPinFileRequiresUpload(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusOK, `{"cid":"never"}`)
	srv := newTestServer(t, testConfig(upstream.URL))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "value")
	mw.Close()

	resp, err := http.Post(srv.URL+"/ipfs/pin_file", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpstreamFailureRelaysStatus(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusPaymentRequired, `quota exceeded`)
	srv := newTestServer(t, testConfig(upstream.URL))

	resp, err := http.Post(srv.URL+"/ipfs/pin_json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected upstream status relayed, got %d", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "quota exceeded" {
		t.Errorf("expected upstream message relayed, got %q", msg)
	}
}

func TestMissingCIDFieldIsBadGateway(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusOK, `{"hash":"bafyhidden"}`)
	srv := newTestServer(t, testConfig(upstream.URL))

	resp, err := http.Post(srv.URL+"/ipfs/pin_json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestCIDFieldIsConfigurable(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusOK, `{"IpfsHash":"bafycustom"}`)
	cfg := testConfig(upstream.URL)
	cfg.Providers["test"].CIDField = "IpfsHash"
	srv := newTestServer(t, cfg)

	resp, err := http.Post(srv.URL+"/ipfs/pin_json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var pin protocol.PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pin); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if pin.CID != "bafycustom" {
		t.Errorf("expected cid from configured field, got %q", pin.CID)
	}
}

func TestUnknownProviderRejected(t *testing.T) {
	cfg := &config.PinConfig{Provider: "nowhere"}
	srv := newTestServer(t, cfg)

	resp, err := http.Post(srv.URL+"/ipfs/pin_json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if msg := decodeError(t, resp); !strings.Contains(msg, "unsupported provider") {
		t.Errorf("unexpected error message: %q", msg)
	}
}

func TestVersionReportsProvider(t *testing.T) {
	srv := newTestServer(t, testConfig("http://unused"))

	resp, err := http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var ver protocol.PinVersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ver); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if ver.Service != Version {
		t.Errorf("expected service version %q, got %q", Version, ver.Service)
	}
	if ver.Provider != "test" {
		t.Errorf("expected provider test, got %q", ver.Provider)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig("http://unused"))

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health protocol.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !health.OK {
		t.Error("expected ok=true")
	}
}
