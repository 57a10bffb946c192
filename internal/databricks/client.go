package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds one upstream call. Statement execution blocks server-side for
// up to the API's wait timeout before answering.
const DefaultTimeout = 60 * time.Second

// Client talks to Databricks REST endpoints.
type Client struct {
	client *http.Client
}

// New returns a Client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{client: &http.Client{Timeout: timeout}}
}

// ExecuteStatement runs sql on a SQL warehouse and returns the inline JSON result.
func (c *Client) ExecuteStatement(ctx context.Context, conn Conn, warehouseID, sql string) (StatementResponse, error) {
	body := map[string]string{
		"warehouse_id": warehouseID,
		"statement":    sql,
		"format":       "JSON",
	}
	var out StatementResponse
	err := c.do(ctx, conn, http.MethodPost, "/api/2.0/sql/statements", body, &out)
	return out, err
}

// StartConversation opens a Genie conversation with a first question.
func (c *Client) StartConversation(ctx context.Context, conn Conn, spaceID, content string) (conversationID, messageID string, err error) {
	var out struct {
		ConversationID string `json:"conversation_id"`
		MessageID      string `json:"message_id"`
	}
	path := fmt.Sprintf("/api/2.0/genie/spaces/%s/start-conversation", url.PathEscape(spaceID))
	if err := c.do(ctx, conn, http.MethodPost, path, map[string]string{"content": content}, &out); err != nil {
		return "", "", err
	}
	return out.ConversationID, out.MessageID, nil
}

// CreateMessage posts a follow-up question to a conversation.
func (c *Client) CreateMessage(ctx context.Context, conn Conn, spaceID, conversationID, content string) (string, error) {
	var out struct {
		MessageID string `json:"message_id"`
		ID        string `json:"id"`
	}
	if err := c.do(ctx, conn, http.MethodPost, messagesPath(spaceID, conversationID), map[string]string{"content": content}, &out); err != nil {
		return "", err
	}
	if out.MessageID == "" {
		return out.ID, nil
	}
	return out.MessageID, nil
}

// GetMessage returns the raw message payload so the relay can pass it through intact.
func (c *Client) GetMessage(ctx context.Context, conn Conn, spaceID, conversationID, messageID string) (json.RawMessage, error) {
	var out json.RawMessage
	path := messagesPath(spaceID, conversationID) + "/" + url.PathEscape(messageID)
	err := c.do(ctx, conn, http.MethodGet, path, nil, &out)
	return out, err
}

// GetQueryResult fetches the statement result behind a query attachment.
func (c *Client) GetQueryResult(ctx context.Context, conn Conn, spaceID, conversationID, messageID, attachmentID string) (QueryResult, error) {
	var out QueryResult
	path := fmt.Sprintf("%s/%s/attachments/%s/query-result",
		messagesPath(spaceID, conversationID), url.PathEscape(messageID), url.PathEscape(attachmentID))
	err := c.do(ctx, conn, http.MethodGet, path, nil, &out)
	return out, err
}

func messagesPath(spaceID, conversationID string) string {
	return fmt.Sprintf("/api/2.0/genie/spaces/%s/conversations/%s/messages",
		url.PathEscape(spaceID), url.PathEscape(conversationID))
}

// do sends one request. Non-2xx answers become *APIError; anything else that goes
// wrong is returned as is for the caller to report as a transport failure.
func (c *Client) do(ctx context.Context, conn Conn, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, BaseURL(conn.Host)+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+conn.Token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

// BaseURL trims trailing slashes and adds https:// when the host has no scheme.
func BaseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host != "" && !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}
