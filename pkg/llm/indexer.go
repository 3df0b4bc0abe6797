package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xhad/duo/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const pdfMIMEType = "application/pdf"

var (
	// ErrUploadTimeout means the file never became usable within the
	// configured number of polls.
	ErrUploadTimeout = errors.New("upload timeout")
	ErrIndexFailed   = errors.New("indexing failed")
)

type fileService interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
}

// IndexerConfig controls how uploaded PDFs are polled until ready.
type IndexerConfig struct {
	PollInterval time.Duration
	PollAttempts int
}

// Indexer pushes PDFs into Gemini's file store and waits for them to
// become active.
type Indexer struct {
	config IndexerConfig
	files  fileService
}

func newIndexer(config IndexerConfig, files fileService) *Indexer {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.PollAttempts <= 0 {
		config.PollAttempts = 60
	}

	return &Indexer{
		config: config,
		files:  files,
	}
}

// Index uploads doc and returns the store identifier once the file is
// active.
func (ix *Indexer) Index(ctx context.Context, doc models.PreparedDocument) (string, error) {
	file, err := ix.files.UploadFromPath(ctx, doc.Path, &genai.UploadFileConfig{
		MIMEType:    pdfMIMEType,
		DisplayName: doc.Filename,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", doc.Label, err)
	}

	return ix.waitActive(ctx, file)
}

func (ix *Indexer) waitActive(ctx context.Context, file *genai.File) (string, error) {
	limiter := rate.NewLimiter(rate.Every(ix.config.PollInterval), 1)

	for attempt := 0; attempt < ix.config.PollAttempts; attempt++ {
		switch {
		case file.Error != nil:
			return "", fmt.Errorf("%w: %s", ErrIndexFailed, file.Error.Message)
		case file.State == genai.FileStateFailed:
			return "", fmt.Errorf("%w: %s", ErrIndexFailed, file.Name)
		case file.State == genai.FileStateActive:
			return file.Name, nil
		}

		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}

		next, err := ix.files.Get(ctx, file.Name, nil)
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", file.Name, err)
		}
		file = next
	}

	if file.State == genai.FileStateActive {
		return file.Name, nil
	}
	return "", fmt.Errorf("%w: %s not active after %d polls", ErrUploadTimeout, file.Name, ix.config.PollAttempts)
}
