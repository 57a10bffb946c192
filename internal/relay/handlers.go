// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sheetlink/cli/internal/databricks"
	"sheetlink/cli/internal/logging"
)

const msgMissing = "Missing required parameters"

type queryRequest struct {
	Host        string `json:"host"`
	WarehouseID string `json:"warehouseId"`
	AccessToken string `json:"accessToken"`
	SQLQuery    string `json:"sqlQuery"`
}

type genieRequest struct {
	Host           string `json:"host"`
	SpaceID        string `json:"spaceId"`
	AccessToken    string `json:"accessToken"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	AttachmentID   string `json:"attachmentId"`
	Content        string `json:"content"`
}

func (r genieRequest) conn() databricks.Conn {
	return databricks.Conn{Host: r.Host, Token: r.AccessToken}
}

func present(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// bind decodes the body into req. A body that cannot be decoded is answered like one
// with missing fields.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMissing})
		return false
	}
	return true
}

func missing(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msgMissing})
}

// fail maps an upstream error: API errors keep their status, anything else is a 500
// naming the action that failed.
func (s *Server) fail(c *gin.Context, api, action string, err error) {
	var apiErr *databricks.APIError
	if errors.As(err, &apiErr) {
		upstreamErrors.WithLabelValues(c.FullPath(), "remote").Inc()
		s.log.Warn("upstream error", s.log.Args("route", c.FullPath(), "status", apiErr.Status, "error", logging.Mask(apiErr.Text())))
		c.JSON(apiErr.Status, gin.H{"error": fmt.Sprintf("%s API error: %s", api, apiErr.Text())})
		return
	}
	upstreamErrors.WithLabelValues(c.FullPath(), "transport").Inc()
	s.log.Error("upstream call failed", s.log.Args("route", c.FullPath(), "error", logging.Mask(err.Error())))
	c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to %s: %s", action, err.Error())})
}

func (s *Server) queryDatabricks(c *gin.Context) {
	var req queryRequest
	if !bind(c, &req) {
		return
	}
	if !present(req.Host, req.AccessToken, req.SQLQuery) {
		missing(c)
		return
	}

	conn := databricks.Conn{Host: req.Host, Token: req.AccessToken}
	resp, err := s.warehouse.ExecuteStatement(c.Request.Context(), conn, req.WarehouseID, req.SQLQuery)
	if err != nil {
		s.fail(c, "Databricks", "execute query", err)
		return
	}
	if st := resp.Status; st != nil && st.State == "FAILED" {
		msg := "Statement failed"
		if st.Error != nil && st.Error.Message != "" {
			msg = st.Error.Message
		}
		upstreamErrors.WithLabelValues(c.FullPath(), "statement").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Databricks API error: " + msg})
		return
	}

	rows, err := databricks.StatementRows(resp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	rowsReturned.Observe(float64(rows.Len()))
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) startConversation(c *gin.Context) {
	var req genieRequest
	if !bind(c, &req) {
		return
	}
	if !present(req.Host, req.SpaceID, req.AccessToken, req.Content) {
		missing(c)
		return
	}
	convID, msgID, err := s.genie.StartConversation(c.Request.Context(), req.conn(), req.SpaceID, req.Content)
	if err != nil {
		s.fail(c, "Genie", "start conversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": convID, "message_id": msgID})
}

func (s *Server) createMessage(c *gin.Context) {
	var req genieRequest
	if !bind(c, &req) {
		return
	}
	if !present(req.Host, req.SpaceID, req.AccessToken, req.ConversationID, req.Content) {
		missing(c)
		return
	}
	msgID, err := s.genie.CreateMessage(c.Request.Context(), req.conn(), req.SpaceID, req.ConversationID, req.Content)
	if err != nil {
		s.fail(c, "Genie", "create message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": msgID})
}

func (s *Server) getMessage(c *gin.Context) {
	var req genieRequest
	if !bind(c, &req) {
		return
	}
	if !present(req.Host, req.SpaceID, req.AccessToken, req.ConversationID, req.MessageID) {
		missing(c)
		return
	}
	raw, err := s.genie.GetMessage(c.Request.Context(), req.conn(), req.SpaceID, req.ConversationID, req.MessageID)
	if err != nil {
		s.fail(c, "Genie", "get message", err)
		return
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) getQueryResult(c *gin.Context) {
	var req genieRequest
	if !bind(c, &req) {
		return
	}
	if !present(req.Host, req.SpaceID, req.AccessToken, req.ConversationID, req.MessageID, req.AttachmentID) {
		missing(c)
		return
	}
	qr, err := s.genie.GetQueryResult(c.Request.Context(), req.conn(), req.SpaceID, req.ConversationID, req.MessageID, req.AttachmentID)
	if err != nil {
		s.fail(c, "Genie", "get query result", err)
		return
	}
	rows := databricks.GenieRows(qr)
	rowsReturned.Observe(float64(rows.Len()))
	c.JSON(http.StatusOK, rows)
}
