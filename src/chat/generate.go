package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/providers"
)

const (
	stoppedSuffix    = " [Stopped]"
	cancelledContent = "Request Cancelled"
	errorPrefix      = "Error: "

	compactInstruction = "Summarize the conversation so far. Keep every fact, decision, name, " +
		"code snippet and open question needed to continue it. Reply with the summary only."
	summaryPrefix = "Summary of the earlier conversation:\n\n"
)

// generation is a validated, ready-to-stream model binding.
type generation struct {
	res          models.Resolution
	client       aisdk.ModelClient
	systemPrompt string
	temperature  *float64
	maxTokens    *int
	topP         *float64
}

// prepare resolves modelID and builds its client. Nothing in the store
// changes when it fails.
func (s *Store) prepare(ctx context.Context, modelID string, withImages bool) (*generation, error) {
	res, err := s.resolve(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if withImages && !res.Model.Capabilities.Image {
		return nil, &ImagesUnsupportedError{Model: res.Model.Name}
	}
	key, err := s.settings.APIKey(ctx, res)
	if err != nil {
		return nil, err
	}
	pcfg, err := s.settings.ProviderConfig(ctx, res.Model.Provider)
	if err != nil {
		return nil, err
	}

	opts := providers.Options{BaseURL: pcfg.BaseURL}
	if res.Custom != nil {
		opts.BaseURL = res.Custom.BaseURL
	}
	provider, err := s.providers.Get(res.Model.Provider, key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", res.Model.Provider, err)
	}
	client, err := provider.Model(ctx, res.Upstream())
	if err != nil {
		return nil, fmt.Errorf("failed to create model client %s: %w", res.Upstream(), err)
	}

	g := &generation{
		res:          res,
		client:       client,
		systemPrompt: s.systemPrompt,
		temperature:  s.temperature,
		maxTokens:    s.maxTokens,
	}
	if pcfg.SystemPrompt != "" {
		g.systemPrompt = pcfg.SystemPrompt
	}
	if p := pcfg.Parameters; p != nil {
		if p.Temperature != nil {
			g.temperature = p.Temperature
		}
		if p.MaxTokens != nil {
			g.maxTokens = p.MaxTokens
		}
		g.topP = p.TopP
	}
	return g, nil
}

// request builds the provider request for history. Failed replies are left
// out of the context sent to the model.
func (g *generation) request(history []Message, extra ...aisdk.Message) *aisdk.ChatCompletionRequest {
	var msgs []aisdk.Message
	if g.systemPrompt != "" {
		msgs = append(msgs, aisdk.Message{Role: aisdk.RoleSystem, Content: aisdk.Text(g.systemPrompt)})
	}
	kept := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Status == StatusError {
			continue
		}
		kept = append(kept, m)
	}
	msgs = append(msgs, toProviderMessages(kept)...)
	msgs = append(msgs, extra...)
	msgs = aisdk.Sanitize(msgs, g.res.Model.Capabilities)

	req := &aisdk.ChatCompletionRequest{
		Model:       g.res.Upstream(),
		Messages:    make([]*aisdk.Message, len(msgs)),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		TopP:        g.topP,
	}
	for i := range msgs {
		req.Messages[i] = &msgs[i]
	}
	return req
}

// begin claims the single generation slot. The returned context is
// cancelled by Stop.
func (s *Store) begin(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Streaming {
		return nil, ErrGenerationInProgress
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.state.Streaming = true
	s.cancel = cancel
	return genCtx, nil
}

func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state.Streaming = false
}

// Stop cancels the in-flight generation. It is a no-op when idle.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.logger.Info("stopping generation")
		s.cancel()
	}
}

// SendMessage appends a user message to the active conversation, creating
// one if needed, and streams the assistant reply. Errors returned before
// any state change are validation errors; provider failures end up in the
// content of the returned message instead.
func (s *Store) SendMessage(ctx context.Context, req SendRequest) (Message, error) {
	if strings.TrimSpace(req.Text) == "" && len(req.Images) == 0 {
		return Message{}, ErrEmptyMessage
	}
	genCtx, err := s.begin(ctx)
	if err != nil {
		return Message{}, err
	}
	defer s.end()

	gen, err := s.prepare(ctx, s.Snapshot().SelectedModelID, len(req.Images) > 0)
	if err != nil {
		return Message{}, err
	}

	convID := s.Snapshot().ActiveConversationID
	if convID == "" {
		conv, err := s.createConversation(ctx, req.Title, req.FolderID)
		if err != nil {
			return Message{}, err
		}
		convID = conv.ID
	}

	user := Message{
		ID:             s.newID(),
		ConversationID: convID,
		Role:           aisdk.RoleUser,
		Content:        aisdk.BuildUserContent(req.Text, req.Images),
		Attachments:    req.Attachments,
		Timestamp:      s.now(),
		Status:         StatusCompleted,
		Metadata:       Metadata{TokenCount: aisdk.EstimateTokens(req.Text)},
	}
	err = s.apply(ctx, "send_message", func(st *Snapshot) error {
		user.Position = nextPosition(st.Messages)
		st.Messages = append(st.Messages, user)
		return nil
	}, func(ctx context.Context) error {
		row, err := messageToRow(user)
		if err != nil {
			return err
		}
		return s.repo.CreateMessage(ctx, row)
	})
	if err != nil {
		return Message{}, err
	}
	s.logger.Debug("user message saved", "conversation", convID, "message", user.ID)

	return s.stream(ctx, genCtx, gen, convID)
}

// stream runs one assistant reply to completion, abort or error.
func (s *Store) stream(ctx, genCtx context.Context, gen *generation, convID string) (Message, error) {
	snap := s.Snapshot()
	req := gen.request(snap.Messages)

	reply := Message{
		ID:             s.newID(),
		ConversationID: convID,
		Role:           aisdk.RoleAssistant,
		Content:        aisdk.Text(""),
		Attachments:    []aisdk.Attachment{},
		Timestamp:      s.now(),
		Status:         StatusPending,
		Metadata:       Metadata{Model: gen.res.Model.ID},
		Position:       nextPosition(snap.Messages),
	}
	s.mu.Lock()
	s.state.Messages = append(s.state.Messages, reply)
	s.mu.Unlock()
	s.events.streamStart(convID, reply.ID, gen.res.Model.ID)

	logger := s.logger.With("conversation", convID, "model", gen.res.Model.ID, "message", reply.ID)
	logger.Info("generation started", "messages", len(req.Messages))

	agg := aisdk.NewStreamAggregator()
	streamErr := func() error {
		st, err := gen.client.CreateChatCompletionStream(genCtx, req)
		if err != nil {
			return err
		}
		defer st.Close()
		for {
			chunk, err := st.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			agg.AddChunk(chunk)
			if chunk == nil || chunk.Delta == "" {
				continue
			}
			content := agg.Content()
			tokens := aisdk.EstimateTokens(content)
			s.updateReply(reply.ID, func(m *Message) {
				m.Content = aisdk.Text(content)
				m.Status = StatusStreaming
				m.Metadata.TokenCount = tokens
			})
			s.events.streamChunk(convID, reply.ID, chunk.Delta, tokens)
		}
	}()

	content := agg.Content()
	if streamErr == nil && errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		streamErr = genCtx.Err()
	}
	switch {
	case errors.Is(genCtx.Err(), context.Canceled):
		reply.Status = StatusAborted
		if content == "" {
			content = cancelledContent
		} else {
			content += stoppedSuffix
		}
		logger.Info("generation stopped", "chars", len(content))
	case streamErr != nil:
		reply.Status = StatusError
		content = errorPrefix + errorMessage(streamErr)
		logger.Error("generation failed", "error", streamErr)
		s.events.fail(convID, streamErr, "stream")
	default:
		reply.Status = StatusCompleted
		logger.Info("generation completed", "chunks", agg.Chunks, "finish_reason", agg.FinishReason)
	}
	reply.Content = aisdk.Text(content)
	reply.Metadata.TokenCount = aisdk.EstimateTokens(content)
	if agg.Usage != nil && agg.Usage.CompletionTokens > 0 && reply.Status == StatusCompleted {
		reply.Metadata.TokenCount = agg.Usage.CompletionTokens
	}
	s.updateReply(reply.ID, func(m *Message) { *m = reply })

	// The reply is saved even when the caller's context is gone.
	saveCtx := context.WithoutCancel(ctx)
	var saveErr error
	if row, err := messageToRow(reply); err != nil {
		saveErr = err
	} else if err := s.repo.CreateMessage(saveCtx, row); err != nil {
		saveErr = err
	} else if err := s.repo.TouchConversation(saveCtx, convID, s.now()); err != nil {
		logger.Warn("failed to touch conversation", "error", err)
	}
	s.events.streamEnd(reply)
	if saveErr != nil {
		logger.Error("failed to save reply", "error", saveErr)
		s.events.fail(convID, saveErr, "persist")
		return reply, fmt.Errorf("failed to save reply: %w", saveErr)
	}
	return reply, nil
}

func (s *Store) updateReply(id string, fn func(m *Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Messages {
		if s.state.Messages[i].ID == id {
			fn(&s.state.Messages[i])
			return
		}
	}
}

// errorMessage prefers the provider's own message over the wrapped chain.
func errorMessage(err error) string {
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func nextPosition(msgs []Message) int {
	if len(msgs) == 0 {
		return 0
	}
	return msgs[len(msgs)-1].Position + 1
}

func (s *Store) findMessage(id string) (Message, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.state.Messages {
		if m.ID == id {
			return m, i, true
		}
	}
	return Message{}, -1, false
}

// EditMessage replaces the text of a user message, keeping its images,
// drops everything after it and regenerates the reply.
func (s *Store) EditMessage(ctx context.Context, messageID, text string) (Message, error) {
	target, _, ok := s.findMessage(messageID)
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	if target.Role != aisdk.RoleUser {
		return Message{}, ErrNotEditable
	}
	images := target.Images()
	if strings.TrimSpace(text) == "" && len(images) == 0 {
		return Message{}, ErrEmptyMessage
	}
	return s.resend(ctx, target, aisdk.BuildUserContent(text, images))
}

// Regenerate produces a new reply for the user message messageID. When
// messageID is an assistant reply the user message before it is used.
func (s *Store) Regenerate(ctx context.Context, messageID string) (Message, error) {
	target, idx, ok := s.findMessage(messageID)
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	if target.Role != aisdk.RoleUser {
		snap := s.Snapshot()
		found := false
		for i := idx - 1; i >= 0; i-- {
			if snap.Messages[i].Role == aisdk.RoleUser {
				target, found = snap.Messages[i], true
				break
			}
		}
		if !found {
			return Message{}, fmt.Errorf("%w: no user message before %s", ErrMessageNotFound, messageID)
		}
	}
	return s.resend(ctx, target, target.Content)
}

func (s *Store) resend(ctx context.Context, target Message, content aisdk.Content) (Message, error) {
	genCtx, err := s.begin(ctx)
	if err != nil {
		return Message{}, err
	}
	defer s.end()

	gen, err := s.prepare(ctx, s.Snapshot().SelectedModelID, content.HasImages())
	if err != nil {
		return Message{}, err
	}
	stored, kind, err := encodeContent(content)
	if err != nil {
		return Message{}, err
	}

	err = s.apply(ctx, "edit_message", func(st *Snapshot) error {
		out := st.Messages[:0:0]
		for _, m := range st.Messages {
			if m.Position > target.Position {
				continue
			}
			if m.ID == target.ID {
				m.Content = content
				m.Metadata.TokenCount = aisdk.EstimateTokens(content.PlainText())
			}
			out = append(out, m)
		}
		st.Messages = out
		return nil
	}, func(ctx context.Context) error {
		if err := s.repo.DeleteMessagesAfter(ctx, target.ConversationID, target.Position); err != nil {
			return err
		}
		return s.repo.UpdateMessageContent(ctx, target.ID, stored, kind)
	})
	if err != nil {
		return Message{}, err
	}
	return s.stream(ctx, genCtx, gen, target.ConversationID)
}

// Rewind deletes messageID and everything after it.
func (s *Store) Rewind(ctx context.Context, messageID string) error {
	target, _, ok := s.findMessage(messageID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	return s.apply(ctx, "rewind", func(st *Snapshot) error {
		if st.Streaming {
			return ErrGenerationInProgress
		}
		out := st.Messages[:0:0]
		for _, m := range st.Messages {
			if m.Position < target.Position {
				out = append(out, m)
			}
		}
		st.Messages = out
		return nil
	}, func(ctx context.Context) error {
		return s.repo.DeleteMessagesFrom(ctx, target.ConversationID, target.Position)
	})
}

// Compact asks the selected model to summarize the active conversation and
// replaces its history with a single system message holding the summary.
// The history is left untouched when summarizing fails.
func (s *Store) Compact(ctx context.Context) (Message, error) {
	genCtx, err := s.begin(ctx)
	if err != nil {
		return Message{}, err
	}
	defer s.end()

	snap := s.Snapshot()
	if snap.ActiveConversationID == "" {
		return Message{}, ErrNoActiveConversation
	}
	if len(snap.Messages) == 0 {
		return Message{}, ErrNothingToCompact
	}
	gen, err := s.prepare(ctx, snap.SelectedModelID, false)
	if err != nil {
		return Message{}, err
	}

	req := gen.request(snap.Messages, aisdk.Message{Role: aisdk.RoleUser, Content: aisdk.Text(compactInstruction)})
	stream, err := gen.client.CreateChatCompletionStream(genCtx, req)
	if err != nil {
		return Message{}, fmt.Errorf("failed to summarize conversation: %w", err)
	}
	summary, err := aisdk.CollectStreamContent(stream)
	stream.Close()
	if err != nil {
		return Message{}, fmt.Errorf("failed to summarize conversation: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return Message{}, errors.New("failed to summarize conversation: empty summary")
	}

	first := snap.Messages[0].Position
	msg := Message{
		ID:             s.newID(),
		ConversationID: snap.ActiveConversationID,
		Role:           aisdk.RoleSystem,
		Content:        aisdk.Text(summaryPrefix + summary),
		Attachments:    []aisdk.Attachment{},
		Timestamp:      s.now(),
		Status:         StatusCompleted,
		Metadata:       Metadata{Model: gen.res.Model.ID},
		Position:       first - 1,
	}
	msg.Metadata.TokenCount = aisdk.EstimateTokens(msg.Content.String())

	err = s.apply(ctx, "compact", func(st *Snapshot) error {
		st.Messages = []Message{msg}
		return nil
	}, func(ctx context.Context) error {
		row, err := messageToRow(msg)
		if err != nil {
			return err
		}
		if err := s.repo.CreateMessage(ctx, row); err != nil {
			return err
		}
		return s.repo.DeleteMessagesFrom(ctx, msg.ConversationID, first)
	})
	if err != nil {
		return Message{}, err
	}
	s.logger.Info("conversation compacted", "conversation", msg.ConversationID,
		"messages", len(snap.Messages), "summary_tokens", msg.Metadata.TokenCount)
	return msg, nil
}
