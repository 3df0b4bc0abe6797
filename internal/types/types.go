package types

import (
	"context"
	"io"
	"time"

	"github.com/xhad/duo/internal/models"
	"github.com/xhad/duo/pkg/client"
)

// Indexer turns a local PDF into a store identifier and answers questions
// against two of them.
type Indexer interface {
	Index(ctx context.Context, doc models.PreparedDocument) (string, error)
	ChatStream(ctx context.Context, req models.ChatRequest) (<-chan string, error)
}

// Ledger remembers which PDFs were indexed so identical uploads can reuse
// their store.
type Ledger interface {
	Record(ctx context.Context, doc models.IndexedDocument) error
	Lookup(ctx context.Context, sha256 string, since time.Time) (*models.IndexedDocument, error)
	Close()
}

// Backend is the remote service the front end uploads to and chats with.
type Backend interface {
	UploadDual(ctx context.Context, a, b client.File) (models.DualContext, error)
	ChatDual(ctx context.Context, req models.ChatRequest) (io.ReadCloser, error)
}
