package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/xhad/duo/internal/models"
	"google.golang.org/genai"
)

// ErrorChunkPrefix starts the final chunk of a stream whose generation
// failed after it began.
const ErrorChunkPrefix = "\n[ERROR] "

type contentGenerator interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type fileGetter interface {
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
}

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model          string
	Temperature    float64
	SystemTemplate string
}

// ChatEngine answers questions about two indexed PDFs.
type ChatEngine struct {
	config ChatConfig
	models contentGenerator
	files  fileGetter
}

func newChatEngine(config ChatConfig, models contentGenerator, files fileGetter) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = DefaultSystemTemplate
	}

	return &ChatEngine{
		config: config,
		models: models,
		files:  files,
	}, nil
}

// ChatStream starts generation and returns the answer as a channel of text
// chunks. A failure after streaming has begun is reported in-band as a
// final "\n[ERROR] ..." chunk. The channel closes when generation ends or
// ctx is cancelled.
func (ce *ChatEngine) ChatStream(ctx context.Context, req models.ChatRequest) (<-chan string, error) {
	fileA, err := ce.files.Get(ctx, req.StoreIDA, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document A: %w", err)
	}
	fileB, err := ce.files.Get(ctx, req.StoreIDB, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document B: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(fileA.URI, mimeOrPDF(fileA.MIMEType)),
			genai.NewPartFromURI(fileB.URI, mimeOrPDF(fileB.MIMEType)),
			genai.NewPartFromText(UserPrompt(req.Message)),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(ce.config.Temperature)),
		SystemInstruction: genai.NewContentFromText(SystemPrompt(ce.config.SystemTemplate, req.DualContext), genai.RoleUser),
	}

	resultChan := make(chan string)

	go func() {
		defer close(resultChan)

		send := func(s string) bool {
			select {
			case resultChan <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for resp, err := range ce.models.GenerateContentStream(ctx, ce.config.Model, contents, config) {
			if err != nil {
				if ctx.Err() == nil {
					send(ErrorChunkPrefix + err.Error())
				}
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !send(text) {
					return
				}
			}
		}
	}()

	return resultChan, nil
}

func mimeOrPDF(mime string) string {
	if mime == "" {
		return pdfMIMEType
	}
	return mime
}
