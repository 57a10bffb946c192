// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

package genie

import (
	"context"

	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/poller"
	"sheetlink/cli/internal/tabular"
)

// API is the subset of the relay the conversation flow depends on.
type API interface {
	StartConversation(ctx context.Context, spaceID, content string) (Handle, error)
	CreateMessage(ctx context.Context, spaceID, conversationID, content string) (messageID string, err error)
	GetMessage(ctx context.Context, spaceID, conversationID, messageID string) (Message, error)
	GetQueryResult(ctx context.Context, spaceID, conversationID, messageID, attachmentID string) (tabular.Result, error)
}

// AnswerKind says how a completed message should be presented.
type AnswerKind int

const (
	// TextAnswer is a prose reply carried by a text attachment.
	TextAnswer AnswerKind = iota
	// QueryAnswer is a reply with generated SQL and, when available, its result table.
	QueryAnswer
	// ContentAnswer is a reply with no attachments.
	ContentAnswer
)

const (
	defaultProcessed = "Genie processed your question."
	defaultNoData    = "Genie processed your question, but no data was returned."
)

// Answer is the interpreted outcome of a completed message.
type Answer struct {
	Kind        AnswerKind
	Text        string
	SQL         string
	Description string

	// Table is set only when the query attachment had a result handle.
	Table   *tabular.Result
	Handle  Handle
	Message Message
}

// HasTable reports whether a result table was fetched, even an empty one.
func (a Answer) HasTable() bool { return a.Table != nil }

// Conversation drives ask, poll and interpret for one session. At most one poll is
// live: asking again supersedes the previous question.
type Conversation struct {
	api     API
	session *Session
	sup     poller.Supervisor
	opts    poller.Options

	// OnProgress receives the human-readable phase of a running message.
	OnProgress func(phase string)
}

// NewConversation binds an API to a session.
func NewConversation(api API, session *Session, opts poller.Options) *Conversation {
	return &Conversation{api: api, session: session, opts: opts}
}

// Session returns the session the conversation updates.
func (c *Conversation) Session() *Session { return c.session }

// Ask starts a new conversation with question, discarding any previous one.
func (c *Conversation) Ask(ctx context.Context, question string) (Answer, error) {
	t := c.sup.Start(ctx)
	defer t.Release()

	c.session.Reset()
	h, err := c.api.StartConversation(t.Context(), c.session.SpaceID, question)
	if err != nil {
		return Answer{}, err
	}
	if h.ConversationID == "" || h.MessageID == "" {
		return Answer{}, serrors.New(serrors.Remote, "Genie did not return a conversation id")
	}
	if !t.Do(func() { c.session.Begin(h) }) {
		return Answer{}, poller.ErrCanceled
	}
	return c.await(t, h)
}

// FollowUp adds question to the open conversation. Without one it behaves like Ask.
func (c *Conversation) FollowUp(ctx context.Context, question string) (Answer, error) {
	if !c.session.Active() {
		return c.Ask(ctx, question)
	}
	t := c.sup.Start(ctx)
	defer t.Release()

	convID := c.session.Handle().ConversationID
	msgID, err := c.api.CreateMessage(t.Context(), c.session.SpaceID, convID, question)
	if err != nil {
		return Answer{}, err
	}
	if msgID == "" {
		return Answer{}, serrors.New(serrors.Remote, "Genie did not return a message id")
	}
	if !t.Do(func() { c.session.Follow(msgID) }) {
		return Answer{}, poller.ErrCanceled
	}
	return c.await(t, Handle{ConversationID: convID, MessageID: msgID})
}

// Cancel stops the live poll silently.
func (c *Conversation) Cancel() { c.sup.Cancel() }

func (c *Conversation) await(t *poller.Ticket, h Handle) (Answer, error) {
	fetch := func(ctx context.Context) (Message, error) {
		return c.api.GetMessage(ctx, c.session.SpaceID, h.ConversationID, h.MessageID)
	}
	var progress func(Message)
	if c.OnProgress != nil {
		progress = func(m Message) { c.OnProgress(m.Phase()) }
	}

	var (
		final Message
		err   error
		done  bool
	)
	poller.Run(t, fetch, progress, c.opts, func(m Message, e error) {
		final, err, done = m, e, true
	})
	if !done {
		return Answer{}, poller.ErrCanceled
	}
	if err != nil {
		return Answer{}, err
	}
	return c.interpret(t.Context(), h, final)
}

func (c *Conversation) interpret(ctx context.Context, h Handle, m Message) (Answer, error) {
	ans := Answer{Handle: h, Message: m}
	if len(m.Attachments) == 0 {
		ans.Kind = ContentAnswer
		ans.Text = orDefault(m.Content, defaultNoData)
		return ans, nil
	}

	first := m.Attachments[0]
	if first.Text != nil {
		ans.Kind = TextAnswer
		ans.Text = orDefault(first.Text.Content, defaultProcessed)
		return ans, nil
	}

	ans.Kind = QueryAnswer
	ans.Text = orDefault(m.Content, defaultProcessed)
	if !first.HasQuery() {
		return ans, nil
	}
	ans.SQL = first.Query.SQL
	ans.Description = first.Query.Description
	if first.ID == "" {
		return ans, nil
	}
	res, err := c.api.GetQueryResult(ctx, c.session.SpaceID, h.ConversationID, h.MessageID, first.ID)
	if ctx.Err() != nil {
		return Answer{}, poller.ErrCanceled
	}
	if err != nil {
		return ans, err
	}
	ans.Table = &res
	return ans, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
