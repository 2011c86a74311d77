package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/providers"
	"github.com/elee1766/mydrawer/src/settings"
	"github.com/elee1766/mydrawer/src/storage"
)

var errInjected = errors.New("injected failure")

// memRepo is an in-memory Repository. Setting fail[method] makes that
// method return errInjected.
type memRepo struct {
	mu       sync.Mutex
	folders  map[string]storage.Folder
	convs    map[string]storage.Conversation
	messages []storage.Message
	fail     map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		folders: map[string]storage.Folder{},
		convs:   map[string]storage.Conversation{},
		fail:    map[string]bool{},
	}
}

func (r *memRepo) failing(method string) error {
	if r.fail[method] {
		return fmt.Errorf("%s: %w", method, errInjected)
	}
	return nil
}

func (r *memRepo) ListFolders(ctx context.Context) ([]storage.Folder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storage.Folder, 0, len(r.folders))
	for _, f := range r.folders {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b storage.Folder) int { return a.OrderIndex - b.OrderIndex })
	return out, r.failing("ListFolders")
}

func (r *memRepo) CreateFolder(ctx context.Context, folder *storage.Folder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("CreateFolder"); err != nil {
		return err
	}
	r.folders[folder.ID] = *folder
	return nil
}

func (r *memRepo) RenameFolder(ctx context.Context, folderID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("RenameFolder"); err != nil {
		return err
	}
	f := r.folders[folderID]
	f.Name = name
	r.folders[folderID] = f
	return nil
}

func (r *memRepo) DeleteFolder(ctx context.Context, folderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("DeleteFolder"); err != nil {
		return err
	}
	delete(r.folders, folderID)
	for id, c := range r.convs {
		if c.FolderID != nil && *c.FolderID == folderID {
			c.FolderID = nil
			r.convs[id] = c
		}
	}
	return nil
}

func (r *memRepo) ReorderFolders(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("ReorderFolders"); err != nil {
		return err
	}
	for i, id := range ids {
		f := r.folders[id]
		f.OrderIndex = i
		r.folders[id] = f
	}
	return nil
}

func (r *memRepo) ListConversations(ctx context.Context) ([]storage.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storage.Conversation, 0, len(r.convs))
	for _, c := range r.convs {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b storage.Conversation) int { return a.OrderIndex - b.OrderIndex })
	return out, r.failing("ListConversations")
}

func (r *memRepo) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("CreateConversation"); err != nil {
		return err
	}
	r.convs[conv.ID] = *conv
	return nil
}

func (r *memRepo) RenameConversation(ctx context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("RenameConversation"); err != nil {
		return err
	}
	c := r.convs[id]
	c.Title = title
	r.convs[id] = c
	return nil
}

func (r *memRepo) UpdateConversationModel(ctx context.Context, id, modelID, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("UpdateConversationModel"); err != nil {
		return err
	}
	c := r.convs[id]
	c.ModelID, c.ProviderID = modelID, providerID
	r.convs[id] = c
	return nil
}

func (r *memRepo) TouchConversation(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("TouchConversation"); err != nil {
		return err
	}
	c := r.convs[id]
	c.UpdatedAt = at
	r.convs[id] = c
	return nil
}

func (r *memRepo) DeleteConversation(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("DeleteConversation"); err != nil {
		return err
	}
	delete(r.convs, id)
	r.messages = slices.DeleteFunc(r.messages, func(m storage.Message) bool { return m.ConversationID == id })
	return nil
}

func (r *memRepo) PlaceConversations(ctx context.Context, folderID *string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("PlaceConversations"); err != nil {
		return err
	}
	for i, id := range ids {
		c := r.convs[id]
		c.FolderID = folderID
		c.OrderIndex = i
		r.convs[id] = c
	}
	return nil
}

func (r *memRepo) ListMessages(ctx context.Context, conversationID string) ([]storage.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("ListMessages"); err != nil {
		return nil, err
	}
	var out []storage.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b storage.Message) int { return a.Position - b.Position })
	return out, nil
}

func (r *memRepo) CreateMessage(ctx context.Context, msg *storage.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("CreateMessage"); err != nil {
		return err
	}
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memRepo) UpdateMessageContent(ctx context.Context, id, content, kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("UpdateMessageContent"); err != nil {
		return err
	}
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Content = content
			r.messages[i].ContentKind = kind
		}
	}
	return nil
}

func (r *memRepo) DeleteMessagesAfter(ctx context.Context, conversationID string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("DeleteMessagesAfter"); err != nil {
		return err
	}
	r.messages = slices.DeleteFunc(r.messages, func(m storage.Message) bool {
		return m.ConversationID == conversationID && m.Position > position
	})
	return nil
}

func (r *memRepo) DeleteMessagesFrom(ctx context.Context, conversationID string, position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing("DeleteMessagesFrom"); err != nil {
		return err
	}
	r.messages = slices.DeleteFunc(r.messages, func(m storage.Message) bool {
		return m.ConversationID == conversationID && m.Position >= position
	})
	return nil
}

func (r *memRepo) storedMessages(conversationID string) []storage.Message {
	msgs, _ := r.ListMessages(context.Background(), conversationID)
	return msgs
}

type fakeSettings struct {
	custom  []models.CustomModel
	keys    map[string]string
	configs map[string]settings.ProviderSettings
}

func (f *fakeSettings) CustomModels(ctx context.Context) ([]models.CustomModel, error) {
	return f.custom, nil
}

func (f *fakeSettings) ProviderConfig(ctx context.Context, provider string) (settings.ProviderSettings, error) {
	return f.configs[provider], nil
}

func (f *fakeSettings) APIKey(ctx context.Context, res models.Resolution) (string, error) {
	if key, ok := f.keys[res.Model.Provider]; ok {
		return key, nil
	}
	return "", &settings.MissingKeyError{Provider: res.Model.Provider}
}

// scriptedStream replays chunks, then returns err (io.EOF when nil). When
// block is set, Read waits for ctx after the scripted chunks.
type scriptedStream struct {
	ctx    context.Context
	chunks []string
	err    error
	block  bool
	pos    int
	closed bool
}

func (s *scriptedStream) Read() (*aisdk.StreamChunk, error) {
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return &aisdk.StreamChunk{Delta: c}, nil
	}
	if s.block {
		<-s.ctx.Done()
		return nil, s.ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// fakeModel records every request and answers with the next script.
type fakeModel struct {
	mu        sync.Mutex
	name      string
	requests  []*aisdk.ChatCompletionRequest
	chunks    []string
	streamErr error
	openErr   error
	block     bool
	started   chan struct{}
}

func (m *fakeModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.openErr != nil {
		return nil, m.openErr
	}
	if m.started != nil {
		close(m.started)
		m.started = nil
	}
	return &scriptedStream{ctx: ctx, chunks: m.chunks, err: m.streamErr, block: m.block}, nil
}

func (m *fakeModel) ModelName() string { return m.name }

func (m *fakeModel) lastRequest() *aisdk.ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

type fakeProvider struct {
	id    string
	model *fakeModel
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) Model(ctx context.Context, name string) (aisdk.ModelClient, error) {
	p.model.name = name
	return p.model, nil
}

type fakeFactory struct {
	model *fakeModel
	calls []providers.Options
	keys  []string
}

func (f *fakeFactory) Get(providerID, apiKey string, opts providers.Options) (aisdk.Provider, error) {
	f.calls = append(f.calls, opts)
	f.keys = append(f.keys, apiKey)
	return &fakeProvider{id: providerID, model: f.model}, nil
}

type harness struct {
	store    *Store
	repo     *memRepo
	model    *fakeModel
	factory  *fakeFactory
	settings *fakeSettings

	mu     sync.Mutex
	events []Event
}

func (h *harness) recorded() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.events)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:  newMemRepo(),
		model: &fakeModel{chunks: []string{"Hello", ", world"}},
		settings: &fakeSettings{
			keys: map[string]string{
				models.ProviderOpenAI:    "sk-openai",
				models.ProviderAnthropic: "sk-ant",
				models.ProviderGoogle:    "g-key",
			},
			configs: map[string]settings.ProviderSettings{},
		},
	}
	h.factory = &fakeFactory{model: h.model}

	var seq int
	var tick int64
	h.store = New(Config{
		Repository: h.repo,
		Providers:  h.factory,
		Settings:   h.settings,
		Events: FuncEventSink(func(ev Event) {
			h.mu.Lock()
			h.events = append(h.events, ev)
			h.mu.Unlock()
		}),
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		Clock: func() time.Time {
			tick++
			return time.Unix(1700000000+tick, 0).UTC()
		},
	})
	return h
}
