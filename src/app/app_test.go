package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/elee1766/mydrawer/src/chat"
	"github.com/elee1766/mydrawer/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	conf := config.DefaultConfig()
	conf.Data.DatabasePath = filepath.Join(t.TempDir(), "drawer.db")
	return conf
}

func TestNewReloadsTree(t *testing.T) {
	ctx := context.Background()
	conf := testConfig(t)

	a, err := New(ctx, AppConfig{Config: conf})
	require.NoError(t, err)

	folder, err := a.Chat.CreateFolder(ctx, "Work")
	require.NoError(t, err)
	conv, err := a.Chat.CreateConversation(ctx, "")
	require.NoError(t, err)
	require.NoError(t, a.Chat.MoveChatToFolder(ctx, conv.ID, folder.ID))
	require.NoError(t, a.Close())

	a, err = New(ctx, AppConfig{Config: conf})
	require.NoError(t, err)
	defer a.Close()

	snap := a.Chat.Snapshot()
	require.Len(t, snap.FolderOrder, 1)
	assert.Equal(t, []string{conv.ID}, snap.Folders[folder.ID].ConversationIDs)
	assert.Empty(t, snap.RootChatOrder)
	assert.Equal(t, conf.Chat.DefaultModel, snap.SelectedModelID)
}

func TestNewUsesConfigKeys(t *testing.T) {
	ctx := context.Background()
	conf := testConfig(t)
	p := conf.Providers["openai"]
	p.APIKey = "sk-config"
	conf.Providers["openai"] = p

	a, err := New(ctx, AppConfig{Config: conf})
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Registry.Resolve(conf.Chat.DefaultModel, nil)
	require.NoError(t, err)
	key, err := a.Settings.APIKey(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "sk-config", key)
}

func TestSendMessageSurvivesReopen(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"A small ", "red square."} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"model\":\"gpt-5.2\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"model\":\"gpt-5.2\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	ctx := context.Background()
	conf := testConfig(t)
	conf.Chat.DefaultModel = "gpt-5.2"
	p := conf.Providers["openai"]
	p.APIKey = "sk-test"
	p.BaseURL = srv.URL + "/v1"
	conf.Providers["openai"] = p

	a, err := New(ctx, AppConfig{Config: conf})
	require.NoError(t, err)

	reply, err := a.Chat.SendMessage(ctx, chat.SendRequest{
		Text:        "what is this?",
		Attachments: []aisdk.Attachment{{Path: "/tmp/square.png", Name: "square.png", Type: "image/png", Size: 8}},
		Images:      []aisdk.Part{aisdk.ImagePart("iVBORw0KGgo=", "image/png")},
	})
	require.NoError(t, err)
	require.Equal(t, chat.StatusCompleted, reply.Status)
	assert.Equal(t, "A small red square.", reply.Content.String())

	msgs := gotBody["messages"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)
	parts := last["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", img["url"])

	before := a.Chat.Snapshot().Messages
	require.Len(t, before, 2)
	require.NoError(t, a.Close())

	a, err = New(ctx, AppConfig{Config: conf})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Chat.SetActiveConversation(ctx, reply.ConversationID))
	after := a.Chat.Snapshot().Messages
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Role, after[i].Role)
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.Equal(t, before[i].Attachments, after[i].Attachments)
		want, err := json.Marshal(before[i].Content)
		require.NoError(t, err)
		got, err := json.Marshal(after[i].Content)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
	}
	assert.True(t, after[0].Content.HasImages())
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(config.NetworkConfig{}))

	l := newLimiter(config.NetworkConfig{RequestsPerMinute: 60, BurstSize: 5})
	require.NotNil(t, l)
	assert.Equal(t, rate.Limit(1), l.Limit())
	assert.Equal(t, 5, l.Burst())

	l = newLimiter(config.NetworkConfig{RequestsPerMinute: 30})
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
