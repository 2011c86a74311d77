package chat

import (
	"errors"
	"fmt"
)

var (
	ErrGenerationInProgress = errors.New("a generation is already in progress")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrFolderNotFound       = errors.New("folder not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidOrder         = errors.New("order is not a permutation of the current list")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrEmptyName            = errors.New("name is required")
	ErrNotEditable          = errors.New("only user messages can be edited")
	ErrNothingToCompact     = errors.New("conversation has no messages to compact")
	ErrImagesUnsupported    = errors.New("model does not support images")
)

// ImagesUnsupportedError is returned when images are sent to a model whose
// image capability is false.
type ImagesUnsupportedError struct {
	Model string
}

func (e *ImagesUnsupportedError) Error() string {
	return fmt.Sprintf("The selected model (%s) does not support images.", e.Model)
}

// Is matches ErrImagesUnsupported.
func (e *ImagesUnsupportedError) Is(target error) bool {
	return target == ErrImagesUnsupported
}
