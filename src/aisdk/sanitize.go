package aisdk

// ImageOmittedPlaceholder replaces structured content whose parts were all
// filtered out.
const ImageOmittedPlaceholder = "[Image not supported by current model]"

// Sanitize returns a provider-ready copy of messages for a model with the
// given capabilities. The input is never modified.
func Sanitize(messages []Message, caps Capabilities) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, Message{
			Role:    msg.Role,
			Content: sanitizeContent(msg.Content, caps),
		})
	}
	return out
}

func sanitizeContent(c Content, caps Capabilities) Content {
	if !c.IsStructured() {
		return c
	}

	kept := make([]Part, 0, len(c.parts))
	for _, p := range c.parts {
		switch p.Type {
		case PartTypeText:
			kept = append(kept, p)
		case PartTypeImage:
			if caps.Image {
				kept = append(kept, p)
			}
		}
	}

	if len(kept) == 0 {
		kept = append(kept, TextPart(ImageOmittedPlaceholder))
	}
	if len(kept) == 1 && kept[0].Type == PartTypeText {
		return Text(kept[0].Text)
	}
	return Parts(kept...)
}
