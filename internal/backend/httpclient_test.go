package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlink/cli/internal/databricks"
	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/genie"
	"sheetlink/cli/internal/poller"
	"sheetlink/cli/internal/relay"
)

// stack wires a fake Databricks workspace behind a real relay and returns a client
// pointed at the relay.
func stack(t *testing.T, workspace http.Handler) *HTTP {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(workspace)
	t.Cleanup(upstream.Close)

	dbx := databricks.New(5 * time.Second)
	rs := httptest.NewServer(relay.New(dbx, dbx, relay.Options{RatePerMinute: 6000}).Handler())
	t.Cleanup(rs.Close)

	return New(rs.URL+"/", Connection{Host: upstream.URL, Token: "dapi-test", WarehouseID: "wh-1"}, 0)
}

func TestQueryDatabricksThroughRelay(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/2.0/sql/statements", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer dapi-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{
			"status": {"state": "SUCCEEDED"},
			"manifest": {"schema": {"columns": [{"name": "region"}, {"name": "amount"}]}},
			"result": {"data_array": [["EMEA", "12.5"], ["APAC", null]]}
		}`))
	})
	c := stack(t, mux)

	res, err := c.QueryDatabricks(context.Background(), "SELECT region, amount FROM sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "amount"}, res.Columns)
	assert.Equal(t, [][]any{{"EMEA", "12.5"}, {"APAC", nil}}, res.Matrix())
}

func TestRemoteAndTransportErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/2.0/sql/statements", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Invalid access token."}`))
	})
	c := stack(t, mux)

	_, err := c.QueryDatabricks(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.Remote))
	assert.Equal(t, "Databricks API error: Invalid access token.", serrors.MessageOf(err))

	dead := New("http://127.0.0.1:1", Connection{Host: "h", Token: "t"}, time.Second)
	_, err = dead.QueryDatabricks(context.Background(), "SELECT 1")
	assert.True(t, serrors.IsKind(err, serrors.Transport))
	assert.True(t, serrors.IsKind(dead.Health(context.Background()), serrors.Transport))
}

func TestGenieConversationThroughRelay(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/2.0/genie/spaces/sp/start-conversation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"conversation_id":"c1","message_id":"m1"}`))
	})
	mux.HandleFunc("GET /api/2.0/genie/spaces/sp/conversations/c1/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"id":"m1","status":"EXECUTING_QUERY"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"m1","status":"COMPLETED","attachments":[
			{"attachment_id":"a1","query":{"query":"SELECT count(*) AS n FROM sales","description":"Row count"}}
		]}`))
	})
	mux.HandleFunc("GET /api/2.0/genie/spaces/sp/conversations/c1/messages/m1/attachments/a1/query-result", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statement_response":{
			"manifest":{"schema":{"columns":[{"name":"n"}]}},
			"result":{"data_array":[["42"]]}
		}}`))
	})
	c := stack(t, mux)

	var phases []string
	conv := genie.NewConversation(c, genie.NewSession("sp"), poller.Options{Interval: time.Millisecond})
	conv.OnProgress = func(p string) { phases = append(phases, p) }

	ans, err := conv.Ask(context.Background(), "how many sales?")
	require.NoError(t, err)
	assert.Equal(t, genie.QueryAnswer, ans.Kind)
	assert.Equal(t, "SELECT count(*) AS n FROM sales", ans.SQL)
	require.True(t, ans.HasTable())
	assert.Equal(t, [][]any{{"42"}}, ans.Table.Matrix())
	assert.Equal(t, []string{"Executing query...", "Executing query..."}, phases)
	assert.Equal(t, genie.Handle{ConversationID: "c1", MessageID: "m1"}, conv.Session().Handle())
}

func TestHealth(t *testing.T) {
	c := stack(t, http.NewServeMux())
	assert.NoError(t, c.Health(context.Background()))
}
