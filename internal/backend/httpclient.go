package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/genie"
	"sheetlink/cli/internal/tabular"
)

// DefaultTimeout bounds one relay call. It is longer than the relay's own upstream
// timeout so the relay gets to report upstream failures itself.
const DefaultTimeout = 90 * time.Second

// HTTP implements API over the relay's JSON endpoints.
type HTTP struct {
	// baseURL is the relay root (e.g., "http://localhost:3001")
	baseURL string
	// conn is attached to every request body
	conn Connection
	// client is the underlying HTTP client with configured timeout
	client *http.Client
}

// New creates a relay client. A non-positive timeout means DefaultTimeout.
func New(baseURL string, conn Connection, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		conn:    conn,
		client:  &http.Client{Timeout: timeout},
	}
}

// Connection returns the workspace the client sends requests for.
func (h *HTTP) Connection() Connection { return h.conn }

// Health calls GET /health.
func (h *HTTP) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/health", nil)
	if err != nil {
		return serrors.Wrap(serrors.Config, "invalid relay URL", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return serrors.Wrap(serrors.Transport, "relay unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return serrors.New(serrors.Remote, fmt.Sprintf("relay health check returned %s", resp.Status))
	}
	return nil
}

// QueryDatabricks posts to /query-databricks.
func (h *HTTP) QueryDatabricks(ctx context.Context, sql string) (tabular.Result, error) {
	body := map[string]string{
		"host":        h.conn.Host,
		"warehouseId": h.conn.WarehouseID,
		"accessToken": h.conn.Token,
		"sqlQuery":    sql,
	}
	var out struct {
		Data tabular.Result `json:"data"`
	}
	if err := h.post(ctx, "/query-databricks", body, &out); err != nil {
		return tabular.Result{}, err
	}
	return out.Data, nil
}

// StartConversation posts to /genie/start-conversation.
func (h *HTTP) StartConversation(ctx context.Context, spaceID, content string) (genie.Handle, error) {
	body := h.genieBody(spaceID)
	body["content"] = content
	var out genie.Handle
	err := h.post(ctx, "/genie/start-conversation", body, &out)
	return out, err
}

// CreateMessage posts to /genie/create-message and returns the new message id.
func (h *HTTP) CreateMessage(ctx context.Context, spaceID, conversationID, content string) (string, error) {
	body := h.genieBody(spaceID)
	body["conversationId"] = conversationID
	body["content"] = content
	var out struct {
		MessageID string `json:"message_id"`
	}
	if err := h.post(ctx, "/genie/create-message", body, &out); err != nil {
		return "", err
	}
	return out.MessageID, nil
}

// GetMessage posts to /genie/get-message.
func (h *HTTP) GetMessage(ctx context.Context, spaceID, conversationID, messageID string) (genie.Message, error) {
	body := h.genieBody(spaceID)
	body["conversationId"] = conversationID
	body["messageId"] = messageID
	var out genie.Message
	err := h.post(ctx, "/genie/get-message", body, &out)
	return out, err
}

// GetQueryResult posts to /genie/get-query-result.
func (h *HTTP) GetQueryResult(ctx context.Context, spaceID, conversationID, messageID, attachmentID string) (tabular.Result, error) {
	body := h.genieBody(spaceID)
	body["conversationId"] = conversationID
	body["messageId"] = messageID
	body["attachmentId"] = attachmentID
	var out tabular.Result
	err := h.post(ctx, "/genie/get-query-result", body, &out)
	return out, err
}

func (h *HTTP) genieBody(spaceID string) map[string]string {
	return map[string]string{
		"host":        h.conn.Host,
		"spaceId":     spaceID,
		"accessToken": h.conn.Token,
	}
}

// post sends a JSON body and decodes a JSON answer into out.
func (h *HTTP) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return serrors.Wrap(serrors.Config, "invalid relay URL", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return serrors.Wrap(serrors.Transport, "relay request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return serrors.Wrap(serrors.Transport, "reading relay response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return serrors.Wrap(serrors.Transport, "invalid relay response", err)
	}
	return nil
}

// remoteError prefers the relay's {"error": "..."} text, then the raw body, then the
// status line.
func remoteError(resp *http.Response, raw []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return serrors.New(serrors.Remote, payload.Error)
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 {
		return serrors.New(serrors.Remote, s)
	}
	return serrors.New(serrors.Remote, resp.Status)
}

var _ API = (*HTTP)(nil)
