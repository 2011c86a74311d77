package aisdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	textOnly := Capabilities{}
	vision := Capabilities{Image: true}

	tests := []struct {
		name string
		in   []Message
		caps Capabilities
		want []Message
	}{
		{
			name: "empty input",
			in:   nil,
			caps: vision,
			want: []Message{},
		},
		{
			name: "plain string passes through",
			in:   []Message{{Role: RoleUser, Content: Text("hello")}},
			caps: textOnly,
			want: []Message{{Role: RoleUser, Content: Text("hello")}},
		},
		{
			name: "image dropped for text model collapses to string",
			in: []Message{{Role: RoleUser, Content: Parts(
				TextPart("hi"),
				ImagePart("b64", "image/png"),
			)}},
			caps: textOnly,
			want: []Message{{Role: RoleUser, Content: Text("hi")}},
		},
		{
			name: "only image becomes placeholder",
			in: []Message{{Role: RoleUser, Content: Parts(
				ImagePart("b64", "image/png"),
			)}},
			caps: textOnly,
			want: []Message{{Role: RoleUser, Content: Text(ImageOmittedPlaceholder)}},
		},
		{
			name: "empty part list becomes placeholder",
			in:   []Message{{Role: RoleAssistant, Content: Parts()}},
			caps: vision,
			want: []Message{{Role: RoleAssistant, Content: Text(ImageOmittedPlaceholder)}},
		},
		{
			name: "images kept for vision model",
			in: []Message{{Role: RoleUser, Content: Parts(
				TextPart("look"),
				ImagePart("b64", "image/jpeg"),
			)}},
			caps: vision,
			want: []Message{{Role: RoleUser, Content: Parts(
				TextPart("look"),
				ImagePart("b64", "image/jpeg"),
			)}},
		},
		{
			name: "multiple text parts stay structured",
			in: []Message{{Role: RoleUser, Content: Parts(
				TextPart("a"),
				ImagePart("b64", "image/png"),
				TextPart("b"),
			)}},
			caps: textOnly,
			want: []Message{{Role: RoleUser, Content: Parts(
				TextPart("a"),
				TextPart("b"),
			)}},
		},
		{
			name: "single text part collapses",
			in:   []Message{{Role: RoleSystem, Content: Parts(TextPart("rules"))}},
			caps: vision,
			want: []Message{{Role: RoleSystem, Content: Text("rules")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in, tt.caps)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	in := []Message{{Role: RoleUser, Content: Parts(TextPart("hi"), ImagePart("b64", "image/png"))}}

	_ = Sanitize(in, Capabilities{})

	require.True(t, in[0].Content.IsStructured())
	assert.Len(t, in[0].Content.Parts(), 2)
}

func TestSanitizeNeverLeaksImagesToTextModels(t *testing.T) {
	in := []Message{
		{Role: RoleUser, Content: Parts(ImagePart("a", "image/png"), ImagePart("b", "image/png"))},
		{Role: RoleAssistant, Content: Text("ok")},
		{Role: RoleUser, Content: Parts(TextPart("x"), ImagePart("c", "image/gif"), TextPart("y"))},
	}

	for _, msg := range Sanitize(in, Capabilities{Audio: true, Tools: true}) {
		assert.False(t, msg.Content.HasImages(), "role %s kept an image", msg.Role)
	}
}
