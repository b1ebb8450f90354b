package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

type capturedRequest struct {
	Auth string
	Body map[string]any
}

func newServer(t *testing.T, status int, content string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		got.Auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got.Body))
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{APIKey: "sk-test", BaseURL: baseURL + "/v1/", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	return c
}

func TestComplete(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, "  PASS: within the hotel limit  ")
	c := newTestClient(t, srv.URL)

	reply, err := c.Complete(context.Background(), "Is this compliant?", "=== T&E TICKET ANALYSIS ===")
	require.NoError(t, err)
	assert.Equal(t, "PASS: within the hotel limit", reply)
	assert.Equal(t, "Bearer sk-test", got.Auth)
	assert.Equal(t, "gpt-4o-mini", got.Body["model"])

	msgs, ok := got.Body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Is this compliant?", msgs[1].(map[string]any)["content"])
}

func TestCompleteWithoutContext(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, "ok")
	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), "hello", "  ")
	require.NoError(t, err)
	assert.Len(t, got.Body["messages"], 1)
}

func TestCompleteNon2xx(t *testing.T) {
	srv, _ := newServer(t, http.StatusTooManyRequests, "")
	c := newTestClient(t, srv.URL)

	_, err := c.Complete(context.Background(), "hello", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnavailable))
}

func TestExtractFields(t *testing.T) {
	srv, got := newServer(t, http.StatusOK,
		"```json\n{\"total\":\"180,00\",\"currency_code\":\"eur\",\"merchant_name\":\"Hotel Le Marais\",\"category\":\"hotel\",\"tx_date\":\"2024-03-18\",\"country\":\"FR\"}\n```")
	c := newTestClient(t, srv.URL)

	f, err := c.ExtractFields(context.Background(), "HOTEL LE MARAIS\nTOTAL 180,00 EUR")
	require.NoError(t, err)
	require.NotNil(t, f.Amount)
	assert.Equal(t, 180.0, *f.Amount)
	assert.Equal(t, "EUR", *f.Currency)
	assert.Equal(t, "Hotel Le Marais", *f.Vendor)
	assert.Equal(t, "hotel", *f.Category)
	assert.Equal(t, "2024-03-18", *f.Date)
	assert.Equal(t, "FR", *f.CountryCode)

	format, ok := got.Body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestExtractFieldsGarbageReply(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, "Sorry, I cannot help with that.")
	c := newTestClient(t, srv.URL)

	_, err := c.ExtractFields(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecode))
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}
