package databricks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteStatementSendsBearerAndBody(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write([]byte(`{
			"statement_id": "s1",
			"status": {"state": "SUCCEEDED"},
			"manifest": {"schema": {"columns": [{"name": "region", "position": 0}, {"name": "total", "position": 1}]}},
			"result": {"data_array": [["EMEA", "10"], ["APAC", null]]}
		}`))
	}))
	defer srv.Close()

	c := New(0)
	resp, err := c.ExecuteStatement(context.Background(), Conn{Host: srv.URL + "/", Token: "dapi-secret"}, "wh-1", "SELECT 1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer dapi-secret", gotAuth)
	assert.Equal(t, "/api/2.0/sql/statements", gotPath)
	assert.Equal(t, map[string]string{"warehouse_id": "wh-1", "statement": "SELECT 1", "format": "JSON"}, gotBody)

	rows, err := StatementRows(resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "total"}, rows.Columns)
	assert.Equal(t, [][]any{{"EMEA", "10"}, {"APAC", nil}}, rows.Matrix())
}

func TestAPIErrorCarriesMessageOrStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/2.0/sql/statements" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error_code":"PERMISSION_DENIED","message":"no access to warehouse"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(0)
	conn := Conn{Host: srv.URL, Token: "t"}

	_, err := c.ExecuteStatement(context.Background(), conn, "wh", "SELECT 1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "no access to warehouse", apiErr.Text())

	_, err = c.GetMessage(context.Background(), conn, "sp", "c", "m")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Text())
}

func TestGenieEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/2.0/genie/spaces/sp/start-conversation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"conversation_id":"c1","message_id":"m1","conversation":{},"message":{}}`))
	})
	mux.HandleFunc("POST /api/2.0/genie/spaces/sp/conversations/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"m2","status":"SUBMITTED"}`))
	})
	mux.HandleFunc("GET /api/2.0/genie/spaces/sp/conversations/c1/messages/m2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"m2","status":"COMPLETED","attachments":[{"attachment_id":"a1","query":{"query":"SELECT 1"}}]}`))
	})
	mux.HandleFunc("GET /api/2.0/genie/spaces/sp/conversations/c1/messages/m2/attachments/a1/query-result", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statement_response":{"manifest":{"schema":{"columns":[{"name":"one"}]}},"result":{"data_array":[["1"]]}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(0)
	conn := Conn{Host: srv.URL, Token: "t"}
	ctx := context.Background()

	cid, mid, err := c.StartConversation(ctx, conn, "sp", "hello")
	require.NoError(t, err)
	assert.Equal(t, "c1", cid)
	assert.Equal(t, "m1", mid)

	mid, err = c.CreateMessage(ctx, conn, "sp", cid, "more")
	require.NoError(t, err)
	assert.Equal(t, "m2", mid)

	raw, err := c.GetMessage(ctx, conn, "sp", cid, mid)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status":"COMPLETED"`)

	qr, err := c.GetQueryResult(ctx, conn, "sp", cid, mid, "a1")
	require.NoError(t, err)
	rows := GenieRows(qr)
	assert.Equal(t, [][]any{{"1"}}, rows.Matrix())
}

func TestRowsRequiresManifestAndResult(t *testing.T) {
	_, err := StatementRows(StatementResponse{Manifest: &Manifest{Schema: &Schema{}}})
	assert.ErrorIs(t, err, ErrInvalidFormat)

	res, err := Rows(&Manifest{Schema: &Schema{Columns: []Column{{Name: "a"}}}}, &ResultData{})
	require.NoError(t, err)
	assert.True(t, res.Empty())

	assert.True(t, GenieRows(QueryResult{}).Empty())
	assert.True(t, GenieRows(QueryResult{StatementResponse: &StatementResponse{}}).Empty())
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://adb-1.azuredatabricks.net", BaseURL("adb-1.azuredatabricks.net/"))
	assert.Equal(t, "http://localhost:8080", BaseURL(" http://localhost:8080// "))
	assert.Equal(t, "", BaseURL(""))
}
