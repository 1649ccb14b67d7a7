package ports

import "context"

// Publisher delivers count events to a downstream topic.
type Publisher interface {
	PublishRaw(ctx context.Context, payload []byte) error
}
