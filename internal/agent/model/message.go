// Package model defines the provider-agnostic message, request, and response
// types exchanged between the orchestration core and LLM provider adapters.
package model

type (
	// Role identifies the speaker of a Message.
	Role string

	// Part is a single content block within a message whose Content is a
	// part list rather than plain text.
	Part interface {
		isPart()
	}

	// TextPart is a plain text content block.
	TextPart struct {
		Text string
	}

	// ImagePart references image content attached to a message.
	ImagePart struct {
		// Format identifies the encoding, e.g. "png", "jpeg".
		Format string
		// URI locates the image; adapters normalize this to the provider's
		// expected shape (inline base64, file reference, or URL).
		URI string
		// Bytes carries inline image data when not referenced by URI.
		Bytes []byte
	}

	// Content is a tagged variant: either plain text (String non-empty,
	// Parts nil) or an ordered list of typed parts (Parts non-nil, String
	// empty). Exactly one form is populated; Message construction helpers
	// enforce this.
	Content struct {
		String string
		Parts  []Part
	}

	// Message is one entry in the ordered conversation log owned by the
	// session. Only the orchestrator mutates the log; every other component
	// receives a read view.
	Message struct {
		Role    Role
		Content Content
		Meta    map[string]any
	}
)

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (TextPart) isPart()  {}
func (ImagePart) isPart() {}

// NewTextMessage constructs a Message whose content is plain text.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: Content{String: text}}
}

// NewPartsMessage constructs a Message whose content is an ordered part list.
func NewPartsMessage(role Role, parts ...Part) Message {
	return Message{Role: role, Content: Content{Parts: parts}}
}

// IsText reports whether c holds the plain-text form.
func (c Content) IsText() bool { return c.Parts == nil }

// AsText renders c as a single string. Parts forms concatenate TextPart
// text and skip non-text parts (callers needing to preserve images should
// inspect c.Parts directly).
func (c Content) AsText() string {
	if c.IsText() {
		return c.String
	}
	var out string
	for _, p := range c.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// MergeContent combines two Content values produced for the same logical
// message (e.g., appending a streamed delta, or folding adjacent same-role
// messages). It is total and covers all four str/list combinations named in
// the design notes:
//
//   - str + str:   concatenate the two strings.
//   - list + str:  append a TextPart holding the string to the part list.
//   - str + list:  convert the leading string into a TextPart, then append.
//   - list + list: concatenate the two part lists, coalescing adjacent
//     TextParts so a partial-text stream doesn't fragment into many parts.
func MergeContent(a, b Content) Content {
	switch {
	case a.IsText() && b.IsText():
		return Content{String: a.String + b.String}
	case !a.IsText() && b.IsText():
		if b.String == "" {
			return a
		}
		return Content{Parts: coalesceText(append(append([]Part{}, a.Parts...), TextPart{Text: b.String}))}
	case a.IsText() && !b.IsText():
		lead := []Part{}
		if a.String != "" {
			lead = append(lead, TextPart{Text: a.String})
		}
		return Content{Parts: coalesceText(append(lead, b.Parts...))}
	default:
		return Content{Parts: coalesceText(append(append([]Part{}, a.Parts...), b.Parts...))}
	}
}

// coalesceText merges adjacent TextPart entries in parts into one, leaving
// non-text parts untouched and in order.
func coalesceText(parts []Part) []Part {
	if len(parts) == 0 {
		return parts
	}
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		if t, ok := p.(TextPart); ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(TextPart); ok {
				out[len(out)-1] = TextPart{Text: prev.Text + t.Text}
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
