package chat

import (
	"context"
	"testing"
	"time"

	"github.com/elee1766/mydrawer/src/models"
	"github.com/elee1766/mydrawer/src/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.store.CreateConversation(ctx, "")
	require.NoError(t, err)
	second, err := h.store.CreateConversation(ctx, "Plans")
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, first.Title)
	assert.Equal(t, models.DefaultModelID, first.ModelID)
	assert.Equal(t, models.ProviderOpenAI, first.ProviderID)

	snap := h.store.Snapshot()
	assert.Equal(t, []string{second.ID, first.ID}, snap.RootChatOrder)
	assert.Equal(t, second.ID, snap.ActiveConversationID)
	assert.Empty(t, snap.Messages)

	// order persisted
	assert.Equal(t, 0, h.repo.convs[second.ID].OrderIndex)
	assert.Equal(t, 1, h.repo.convs[first.ID].OrderIndex)
}

func TestCreateConversationRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	existing, err := h.store.CreateConversation(ctx, "kept")
	require.NoError(t, err)

	h.repo.fail["PlaceConversations"] = true
	_, err = h.store.CreateConversation(ctx, "lost")
	require.ErrorIs(t, err, errInjected)

	snap := h.store.Snapshot()
	assert.Equal(t, []string{existing.ID}, snap.RootChatOrder)
	assert.Len(t, snap.Conversations, 1)
	assert.Equal(t, existing.ID, snap.ActiveConversationID)
	assert.Len(t, h.repo.convs, 1, "orphan row removed")
}

func TestSyncPlacesConversations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	work := "f-work"
	gone := "f-gone"
	h.repo.folders[work] = storage.Folder{ID: work, Name: "Work", OrderIndex: 0}
	h.repo.convs["c1"] = storage.Conversation{ID: "c1", Title: "a", FolderID: &work, OrderIndex: 0}
	h.repo.convs["c2"] = storage.Conversation{ID: "c2", Title: "b", OrderIndex: 0}
	h.repo.convs["c3"] = storage.Conversation{ID: "c3", Title: "c", FolderID: &gone, OrderIndex: 1}

	require.NoError(t, h.store.Sync(ctx))
	snap := h.store.Snapshot()

	assert.Equal(t, []string{work}, snap.FolderOrder)
	assert.Equal(t, []string{"c1"}, snap.Folders[work].ConversationIDs)
	assert.Equal(t, []string{"c2", "c3"}, snap.RootChatOrder)
	assert.Nil(t, snap.Conversations["c3"].FolderID, "unknown folder falls back to root")
}

func TestSetActiveConversationFollowsModel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.repo.convs["c1"] = storage.Conversation{ID: "c1", Title: "a", ModelID: "claude-opus-4-6", ProviderID: models.ProviderAnthropic}
	h.repo.messages = []storage.Message{
		{ID: "m2", ConversationID: "c1", Role: "assistant", Content: "hi", ContentKind: storage.ContentKindText, Position: 1},
		{ID: "m1", ConversationID: "c1", Role: "user", Content: "hello", ContentKind: storage.ContentKindText, Position: 0},
	}
	require.NoError(t, h.store.Sync(ctx))

	require.NoError(t, h.store.SetActiveConversation(ctx, "c1"))
	snap := h.store.Snapshot()
	assert.Equal(t, "claude-opus-4-6", snap.SelectedModelID)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "m1", snap.Messages[0].ID)
	assert.Equal(t, StatusCompleted, snap.Messages[1].Status)

	err := h.store.SetActiveConversation(ctx, "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSetSelectedModel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	conv, err := h.store.CreateConversation(ctx, "")
	require.NoError(t, err)

	require.NoError(t, h.store.SetSelectedModel(ctx, "gemini-2.5-flash"))
	snap := h.store.Snapshot()
	assert.Equal(t, "gemini-2.5-flash", snap.SelectedModelID)
	assert.Equal(t, models.ProviderGoogle, snap.Conversations[conv.ID].ProviderID)
	assert.Equal(t, "gemini-2.5-flash", h.repo.convs[conv.ID].ModelID)

	err = h.store.SetSelectedModel(ctx, "no-such-model")
	assert.ErrorIs(t, err, models.ErrModelNotFound)
	assert.Equal(t, "gemini-2.5-flash", h.store.Snapshot().SelectedModelID)
}

func TestDeleteConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.store.CreateConversation(ctx, "a")
	require.NoError(t, err)
	b, err := h.store.CreateConversation(ctx, "b")
	require.NoError(t, err)
	folder, err := h.store.CreateFolder(ctx, "F")
	require.NoError(t, err)
	require.NoError(t, h.store.MoveChatToFolder(ctx, a.ID, folder.ID))

	require.NoError(t, h.store.DeleteConversation(ctx, a.ID))
	require.NoError(t, h.store.DeleteConversation(ctx, b.ID))

	snap := h.store.Snapshot()
	assert.Empty(t, snap.Conversations)
	assert.Empty(t, snap.RootChatOrder)
	assert.Empty(t, snap.Folders[folder.ID].ConversationIDs)
	assert.Empty(t, snap.ActiveConversationID)
	assert.Empty(t, h.repo.convs)

	assert.ErrorIs(t, h.store.DeleteConversation(ctx, a.ID), ErrConversationNotFound)
}

func TestRenameConversationRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	conv, err := h.store.CreateConversation(ctx, "before")
	require.NoError(t, err)

	h.repo.fail["RenameConversation"] = true
	err = h.store.RenameConversation(ctx, conv.ID, "after")
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, "before", h.store.Snapshot().Conversations[conv.ID].Title)

	assert.ErrorIs(t, h.store.RenameConversation(ctx, conv.ID, ""), ErrEmptyName)
}

func TestFolderMembership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c1, err := h.store.CreateConversation(ctx, "1")
	require.NoError(t, err)
	c2, err := h.store.CreateConversation(ctx, "2")
	require.NoError(t, err)
	c3, err := h.store.CreateConversation(ctx, "3")
	require.NoError(t, err)

	f1, err := h.store.CreateFolder(ctx, "one")
	require.NoError(t, err)
	f2, err := h.store.CreateFolder(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, []string{f1.ID, f2.ID}, h.store.Snapshot().FolderOrder)

	require.NoError(t, h.store.MoveChatToFolder(ctx, c1.ID, f1.ID))
	require.NoError(t, h.store.MoveChatToFolder(ctx, c2.ID, f1.ID))
	require.NoError(t, h.store.MoveChatToFolder(ctx, c2.ID, f2.ID))

	snap := h.store.Snapshot()
	assert.Equal(t, []string{c1.ID}, snap.Folders[f1.ID].ConversationIDs)
	assert.Equal(t, []string{c2.ID}, snap.Folders[f2.ID].ConversationIDs)
	assert.Equal(t, []string{c3.ID}, snap.RootChatOrder)
	assert.Equal(t, f2.ID, *snap.Conversations[c2.ID].FolderID)
	assert.Equal(t, f2.ID, *h.repo.convs[c2.ID].FolderID)

	require.NoError(t, h.store.MoveChatToRoot(ctx, c2.ID))
	snap = h.store.Snapshot()
	assert.Equal(t, []string{c2.ID, c3.ID}, snap.RootChatOrder)
	assert.Empty(t, snap.Folders[f2.ID].ConversationIDs)
	assert.Nil(t, snap.Conversations[c2.ID].FolderID)

	require.NoError(t, h.store.DeleteFolder(ctx, f1.ID))
	snap = h.store.Snapshot()
	assert.Equal(t, []string{c1.ID, c2.ID, c3.ID}, snap.RootChatOrder)
	assert.Equal(t, []string{f2.ID}, snap.FolderOrder)
	assert.NotContains(t, h.repo.folders, f1.ID)
	assert.Nil(t, h.repo.convs[c1.ID].FolderID)

	// every conversation appears exactly once
	seen := map[string]int{}
	for _, id := range snap.RootChatOrder {
		seen[id]++
	}
	for _, f := range snap.Folders {
		for _, id := range f.ConversationIDs {
			seen[id]++
		}
	}
	for id := range snap.Conversations {
		assert.Equal(t, 1, seen[id], id)
	}

	assert.ErrorIs(t, h.store.MoveChatToFolder(ctx, c1.ID, "nope"), ErrFolderNotFound)
	assert.ErrorIs(t, h.store.DeleteFolder(ctx, "nope"), ErrFolderNotFound)
	_, err = h.store.CreateFolder(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestMoveRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	conv, err := h.store.CreateConversation(ctx, "")
	require.NoError(t, err)
	folder, err := h.store.CreateFolder(ctx, "F")
	require.NoError(t, err)
	before := h.store.Snapshot()

	h.repo.fail["PlaceConversations"] = true
	err = h.store.MoveChatToFolder(ctx, conv.ID, folder.ID)
	require.ErrorIs(t, err, errInjected)

	after := h.store.Snapshot()
	assert.Equal(t, before.RootChatOrder, after.RootChatOrder)
	assert.Equal(t, before.Folders, after.Folders)
	assert.Nil(t, after.Conversations[conv.ID].FolderID)
}

func TestReorder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, _ := h.store.CreateConversation(ctx, "a")
	b, _ := h.store.CreateConversation(ctx, "b")
	f1, _ := h.store.CreateFolder(ctx, "1")
	f2, _ := h.store.CreateFolder(ctx, "2")

	require.NoError(t, h.store.ReorderRootChats(ctx, []string{a.ID, b.ID}))
	assert.Equal(t, []string{a.ID, b.ID}, h.store.Snapshot().RootChatOrder)
	assert.Equal(t, 0, h.repo.convs[a.ID].OrderIndex)

	require.NoError(t, h.store.ReorderFolders(ctx, []string{f2.ID, f1.ID}))
	assert.Equal(t, []string{f2.ID, f1.ID}, h.store.Snapshot().FolderOrder)
	assert.Equal(t, 0, h.repo.folders[f2.ID].OrderIndex)

	require.NoError(t, h.store.MoveChatToFolder(ctx, a.ID, f1.ID))
	require.NoError(t, h.store.MoveChatToFolder(ctx, b.ID, f1.ID))
	require.NoError(t, h.store.ReorderFolderChats(ctx, f1.ID, []string{b.ID, a.ID}))
	assert.Equal(t, []string{b.ID, a.ID}, h.store.Snapshot().Folders[f1.ID].ConversationIDs)

	tests := []struct {
		name  string
		order []string
	}{
		{"missing id", []string{b.ID}},
		{"unknown id", []string{b.ID, "x"}},
		{"duplicate", []string{b.ID, b.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.store.ReorderFolderChats(ctx, f1.ID, tt.order)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
	assert.ErrorIs(t, h.store.ReorderFolders(ctx, []string{f1.ID}), ErrInvalidOrder)
}

func TestStructureEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.store.CreateFolder(ctx, "F")
	require.NoError(t, err)

	events := h.recorded()
	require.NotEmpty(t, events)
	ev, ok := events[len(events)-1].(*StructureEvent)
	require.True(t, ok)
	assert.Equal(t, "create_folder", ev.Action)
	assert.Equal(t, EventStructure, ev.GetType())
}

func TestStructureSinkCanReadStore(t *testing.T) {
	ctx := context.Background()
	var store *Store
	var seen []int
	store = New(Config{
		Repository: newMemRepo(),
		Providers:  &fakeFactory{model: &fakeModel{}},
		Settings:   &fakeSettings{keys: map[string]string{models.ProviderOpenAI: "sk"}},
		Events: FuncEventSink(func(ev Event) {
			if ev.GetType() == EventStructure {
				seen = append(seen, len(store.Snapshot().FolderOrder))
			}
		}),
	})

	done := make(chan error, 1)
	go func() {
		_, err := store.CreateFolder(ctx, "Inbox")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("CreateFolder did not return while the sink read the store")
	}
	assert.Equal(t, []int{1}, seen)
}
