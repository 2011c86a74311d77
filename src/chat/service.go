// Package chat is the conversation store: the in-memory tree of
// conversations and folders, the active conversation and the streaming
// lifecycle of assistant replies, written through to a repository.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/providers"
	"github.com/elee1766/mydrawer/src/settings"
	"github.com/elee1766/mydrawer/src/storage"
	"github.com/google/uuid"
)

// DefaultTitle is the title of new conversations.
const DefaultTitle = "New Chat"

// Service is the action surface of the store.
type Service interface {
	Sync(ctx context.Context) error
	Snapshot() Snapshot

	CreateConversation(ctx context.Context, title string) (Conversation, error)
	SetActiveConversation(ctx context.Context, id string) error
	RenameConversation(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error
	SetSelectedModel(ctx context.Context, modelID string) error

	SendMessage(ctx context.Context, req SendRequest) (Message, error)
	EditMessage(ctx context.Context, messageID, text string) (Message, error)
	Regenerate(ctx context.Context, messageID string) (Message, error)
	Rewind(ctx context.Context, messageID string) error
	Compact(ctx context.Context) (Message, error)
	Stop()

	CreateFolder(ctx context.Context, name string) (Folder, error)
	RenameFolder(ctx context.Context, id, name string) error
	DeleteFolder(ctx context.Context, id string) error
	MoveChatToFolder(ctx context.Context, chatID, folderID string) error
	MoveChatToRoot(ctx context.Context, chatID string) error
	ReorderFolders(ctx context.Context, order []string) error
	ReorderRootChats(ctx context.Context, order []string) error
	ReorderFolderChats(ctx context.Context, folderID string, order []string) error
}

// Repository is the durable store behind the Store.
type Repository interface {
	ListFolders(ctx context.Context) ([]storage.Folder, error)
	CreateFolder(ctx context.Context, folder *storage.Folder) error
	RenameFolder(ctx context.Context, folderID, name string) error
	DeleteFolder(ctx context.Context, folderID string) error
	ReorderFolders(ctx context.Context, ids []string) error

	ListConversations(ctx context.Context) ([]storage.Conversation, error)
	CreateConversation(ctx context.Context, conv *storage.Conversation) error
	RenameConversation(ctx context.Context, id, title string) error
	UpdateConversationModel(ctx context.Context, id, modelID, providerID string) error
	TouchConversation(ctx context.Context, id string, at time.Time) error
	DeleteConversation(ctx context.Context, id string) error
	PlaceConversations(ctx context.Context, folderID *string, ids []string) error

	ListMessages(ctx context.Context, conversationID string) ([]storage.Message, error)
	CreateMessage(ctx context.Context, msg *storage.Message) error
	UpdateMessageContent(ctx context.Context, id, content, kind string) error
	DeleteMessagesAfter(ctx context.Context, conversationID string, position int) error
	DeleteMessagesFrom(ctx context.Context, conversationID string, position int) error
}

// ProviderFactory builds providers from credentials.
type ProviderFactory interface {
	Get(providerID, apiKey string, opts providers.Options) (aisdk.Provider, error)
}

// Settings supplies user configuration and credentials.
type Settings interface {
	CustomModels(ctx context.Context) ([]models.CustomModel, error)
	ProviderConfig(ctx context.Context, provider string) (settings.ProviderSettings, error)
	APIKey(ctx context.Context, res models.Resolution) (string, error)
}

var (
	_ Service    = (*Store)(nil)
	_ Repository = (*storage.Repository)(nil)
	_ Settings   = (*settings.Manager)(nil)
)

// Config holds the dependencies of a Store.
type Config struct {
	Repository Repository
	Providers  ProviderFactory
	Settings   Settings
	Registry   *models.Registry
	Events     EventSink
	Logger     *slog.Logger

	// DefaultModel is selected until the user picks another one.
	DefaultModel string
	// SystemPrompt is prepended to every request unless the provider
	// settings carry their own.
	SystemPrompt string
	Temperature  *float64
	MaxTokens    *int

	Clock func() time.Time
	NewID func() string
}

// Store implements Service.
type Store struct {
	repo      Repository
	providers ProviderFactory
	settings  Settings
	registry  *models.Registry
	events    *emitter
	logger    *slog.Logger

	systemPrompt string
	temperature  *float64
	maxTokens    *int
	now          func() time.Time
	newID        func() string

	// mu guards state. Repository calls of structural operations run while
	// holding it so a rollback never clobbers a concurrent change.
	mu     sync.Mutex
	state  Snapshot
	cancel context.CancelFunc
}

// New creates a store. Call Sync to load the persisted tree.
func New(config Config) *Store {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "chat_store")

	registry := config.Registry
	if registry == nil {
		registry = models.Default()
	}
	model := config.DefaultModel
	if model == "" {
		model = models.DefaultModelID
	}
	clock := config.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	newID := config.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	var sink EventSink = nopSink{}
	if config.Events != nil {
		sink = config.Events
	}

	return &Store{
		repo:         config.Repository,
		providers:    config.Providers,
		settings:     config.Settings,
		registry:     registry,
		events:       &emitter{sink: sink, clock: clock, logger: logger},
		logger:       logger,
		systemPrompt: config.SystemPrompt,
		temperature:  config.Temperature,
		maxTokens:    config.MaxTokens,
		now:          clock,
		newID:        newID,
		state:        newSnapshot(model),
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// apply runs mutate on the state, then persist. When persist fails the
// previous state is restored and the error returned. The structure event is
// sent after the lock is released so sinks may read the store.
func (s *Store) apply(ctx context.Context, action string, mutate func(st *Snapshot) error, persist func(ctx context.Context) error) error {
	activeID, err := s.commit(ctx, action, mutate, persist)
	if err != nil {
		return err
	}
	s.events.structure(activeID, action)
	return nil
}

func (s *Store) commit(ctx context.Context, action string, mutate func(st *Snapshot) error, persist func(ctx context.Context) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.clone()
	if err := mutate(&s.state); err != nil {
		s.state = prev
		return "", err
	}
	if persist != nil {
		if err := persist(ctx); err != nil {
			s.state = prev
			s.logger.Error("persist failed, state rolled back", "action", action, "error", err)
			return "", fmt.Errorf("%s: %w", action, err)
		}
	}
	return s.state.ActiveConversationID, nil
}

// Sync replaces the tree with the persisted one.
func (s *Store) Sync(ctx context.Context) error {
	folders, err := s.repo.ListFolders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}
	convs, err := s.repo.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.clone()
	st.Conversations = make(map[string]Conversation, len(convs))
	st.Folders = make(map[string]Folder, len(folders))
	st.FolderOrder = make([]string, 0, len(folders))
	st.RootChatOrder = []string{}

	for _, f := range folders {
		st.Folders[f.ID] = Folder{ID: f.ID, Name: f.Name, ConversationIDs: []string{}, CreatedAt: f.CreatedAt}
		st.FolderOrder = append(st.FolderOrder, f.ID)
	}
	for _, row := range convs {
		c := conversationFromRow(row)
		if c.FolderID != nil {
			if f, ok := st.Folders[*c.FolderID]; ok {
				f.ConversationIDs = append(f.ConversationIDs, c.ID)
				st.Folders[f.ID] = f
				st.Conversations[c.ID] = c
				continue
			}
			c.FolderID = nil
		}
		st.RootChatOrder = append(st.RootChatOrder, c.ID)
		st.Conversations[c.ID] = c
	}

	if _, ok := st.Conversations[st.ActiveConversationID]; !ok && !st.Streaming {
		st.ActiveConversationID = ""
		st.Messages = []Message{}
	}
	s.state = st
	s.logger.Debug("synced", "folders", len(folders), "conversations", len(convs))
	return nil
}

// CreateConversation creates a conversation at the top of the root list and
// makes it active.
func (s *Store) CreateConversation(ctx context.Context, title string) (Conversation, error) {
	s.mu.Lock()
	if s.state.Streaming {
		s.mu.Unlock()
		return Conversation{}, ErrGenerationInProgress
	}
	s.mu.Unlock()
	return s.createConversation(ctx, title, "")
}

// createConversation creates a conversation at the top of the root list, or
// at the end of folderID when set, and makes it active.
func (s *Store) createConversation(ctx context.Context, title, folderID string) (Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}
	res, err := s.resolve(ctx, s.Snapshot().SelectedModelID)
	if err != nil {
		return Conversation{}, err
	}

	now := s.now()
	conv := Conversation{
		ID:         s.newID(),
		Title:      title,
		ModelID:    res.Model.ID,
		ProviderID: res.Model.Provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var members []string
	var placement *string
	if folderID != "" {
		placement = &folderID
	}
	err = s.apply(ctx, "create_conversation", func(st *Snapshot) error {
		if placement != nil {
			f, ok := st.Folders[folderID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrFolderNotFound, folderID)
			}
			fid := folderID
			conv.FolderID = &fid
			f.ConversationIDs = append(f.ConversationIDs, conv.ID)
			st.Folders[folderID] = f
			members = f.ConversationIDs
		} else {
			st.RootChatOrder = append([]string{conv.ID}, st.RootChatOrder...)
			members = st.RootChatOrder
		}
		st.Conversations[conv.ID] = conv
		st.ActiveConversationID = conv.ID
		st.Messages = []Message{}
		return nil
	}, func(ctx context.Context) error {
		if err := s.repo.CreateConversation(ctx, conversationToRow(conv)); err != nil {
			return err
		}
		if err := s.repo.PlaceConversations(ctx, placement, members); err != nil {
			if derr := s.repo.DeleteConversation(ctx, conv.ID); derr != nil {
				s.logger.Error("failed to remove conversation after placement error", "id", conv.ID, "error", derr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Conversation{}, err
	}
	s.logger.Info("conversation created", "id", conv.ID, "model", conv.ModelID)
	return conv, nil
}

// SetActiveConversation loads the messages of id and selects its model.
func (s *Store) SetActiveConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.state.Streaming {
		s.mu.Unlock()
		return ErrGenerationInProgress
	}
	conv, ok := s.state.Conversations[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	msgs, err := s.loadMessages(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveConversationID = id
	s.state.Messages = msgs
	if conv.ModelID != "" {
		s.state.SelectedModelID = conv.ModelID
	}
	return nil
}

func (s *Store) loadMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		m, err := messageFromRow(row)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *Store) RenameConversation(ctx context.Context, id, title string) error {
	if title == "" {
		return ErrEmptyName
	}
	return s.apply(ctx, "rename_conversation", func(st *Snapshot) error {
		c, ok := st.Conversations[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		c.Title = title
		c.UpdatedAt = s.now()
		st.Conversations[id] = c
		return nil
	}, func(ctx context.Context) error {
		return s.repo.RenameConversation(ctx, id, title)
	})
}

// DeleteConversation removes id from every ordering list and clears the
// active selection if it pointed at id.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.apply(ctx, "delete_conversation", func(st *Snapshot) error {
		if _, ok := st.Conversations[id]; !ok {
			return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
		}
		if st.Streaming && st.ActiveConversationID == id {
			return ErrGenerationInProgress
		}
		detach(st, id)
		delete(st.Conversations, id)
		if st.ActiveConversationID == id {
			st.ActiveConversationID = ""
			st.Messages = []Message{}
		}
		return nil
	}, func(ctx context.Context) error {
		return s.repo.DeleteConversation(ctx, id)
	})
}

// SetSelectedModel selects modelID and, when a conversation is active,
// switches that conversation to it.
func (s *Store) SetSelectedModel(ctx context.Context, modelID string) error {
	res, err := s.resolve(ctx, modelID)
	if err != nil {
		return err
	}
	var activeID string
	return s.apply(ctx, "select_model", func(st *Snapshot) error {
		if st.Streaming {
			return ErrGenerationInProgress
		}
		st.SelectedModelID = res.Model.ID
		activeID = st.ActiveConversationID
		if c, ok := st.Conversations[activeID]; ok {
			c.ModelID = res.Model.ID
			c.ProviderID = res.Model.Provider
			st.Conversations[activeID] = c
		}
		return nil
	}, func(ctx context.Context) error {
		if activeID == "" {
			return nil
		}
		return s.repo.UpdateConversationModel(ctx, activeID, res.Model.ID, res.Model.Provider)
	})
}

func (s *Store) resolve(ctx context.Context, modelID string) (models.Resolution, error) {
	custom, err := s.settings.CustomModels(ctx)
	if err != nil {
		return models.Resolution{}, err
	}
	return s.registry.Resolve(modelID, custom)
}
