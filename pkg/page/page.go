package page

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/duo/internal/models"
	"github.com/xhad/duo/internal/types"
	"github.com/xhad/duo/pkg/client"
	"github.com/xhad/duo/pkg/session"
	"go.uber.org/zap"
)

const (
	MsgMissingFiles = "Please upload both PDFs"
	MsgProcessing   = "Processing..."
	MsgUploadFailed = "Upload failed"
	MsgThinking     = "Thinking..."
)

type Slot int

const (
	SlotA Slot = iota
	SlotB
)

func (s Slot) String() string {
	if s == SlotA {
		return "PDF A"
	}
	return "PDF B"
}

// FilePicker exposes the two file inputs of the upload surface.
type FilePicker interface {
	Selected(slot Slot) (client.File, bool)
}

// View is everything the handlers are allowed to change on screen.
type View interface {
	Alert(msg string)
	SetUploadStatus(text string)
	HideUpload()
	ShowMain()
	SetAnswer(text string)
}

type PageConfig struct {
	Backend types.Backend
	Files   FilePicker
	View    View
	Session *session.Session
	Logger  *zap.Logger
}

// Page wires the upload and chat handlers to one session and one view.
type Page struct {
	backend types.Backend
	files   FilePicker
	view    View
	session *session.Session
	logger  *zap.Logger
}

func NewWithConfig(config PageConfig) (*Page, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if config.Files == nil {
		return nil, fmt.Errorf("file picker is required")
	}
	if config.View == nil {
		return nil, fmt.Errorf("view is required")
	}
	if config.Session == nil {
		config.Session = session.New()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Page{
		backend: config.Backend,
		files:   config.Files,
		view:    config.View,
		session: config.Session,
		logger:  config.Logger,
	}, nil
}

func (p *Page) Session() *session.Session {
	return p.session
}

// Upload sends both selected PDFs and, on success, stores the returned
// identifiers and switches to the main surface.
func (p *Page) Upload(ctx context.Context) error {
	a, okA := p.files.Selected(SlotA)
	b, okB := p.files.Selected(SlotB)
	if !okA || !okB {
		p.view.Alert(MsgMissingFiles)
		return fmt.Errorf("%w: both PDFs are required", client.ErrValidation)
	}

	p.view.SetUploadStatus(MsgProcessing)

	dual, err := p.backend.UploadDual(ctx, a, b)
	if err != nil {
		p.logger.Warn("upload failed", zap.Error(err))
		p.view.SetUploadStatus(UploadFailureMessage(err))
		return err
	}

	p.session.Set(dual)
	p.logger.Info("upload complete",
		zap.String("storeIdA", dual.StoreIDA),
		zap.String("storeIdB", dual.StoreIDB))

	p.view.HideUpload()
	p.view.ShowMain()
	return nil
}

// Ask sends question with the session's documents and renders the answer
// as it streams in. An empty question does nothing. Asking again while an
// answer is streaming abandons the earlier one.
func (p *Page) Ask(ctx context.Context, question string) error {
	if question == "" {
		return nil
	}

	turn := p.session.BeginTurn(ctx)
	defer turn.End()

	dual, ready := p.session.Context()
	if !ready {
		p.logger.Debug("chat before upload, sending empty identifiers")
	}

	turn.Do(func() { p.view.SetAnswer(MsgThinking) })

	body, err := p.backend.ChatDual(turn.Ctx, models.ChatRequest{Message: question, DualContext: dual})
	if err != nil {
		if turn.Ctx.Err() != nil {
			return turn.Ctx.Err()
		}
		p.logger.Warn("chat request failed", zap.Error(err))
		turn.Do(func() { p.view.SetAnswer(ChatFailureMessage(err)) })
		return err
	}
	defer body.Close()

	text, err := readStream(turn.Ctx, body, func(text string) bool {
		return turn.Do(func() { p.view.SetAnswer(text) })
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		p.logger.Warn("chat stream interrupted", zap.Error(err), zap.Int("received", len(text)))
		turn.Do(func() {
			if text == "" {
				p.view.SetAnswer(ChatFailureMessage(err))
				return
			}
			p.view.SetAnswer(text + "\n\n" + ChatFailureMessage(err))
		})
		return err
	}

	return nil
}

// UploadFailureMessage is the status text shown for a failed upload.
func UploadFailureMessage(err error) string {
	var se *client.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("%s: server returned %d", MsgUploadFailed, se.Code)
	case client.IsDecode(err):
		return MsgUploadFailed + ": unexpected response from server"
	default:
		return MsgUploadFailed
	}
}

// ChatFailureMessage is the answer text shown for a failed chat.
func ChatFailureMessage(err error) string {
	var se *client.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("Chat failed: server returned %d", se.Code)
	case errors.Is(err, errStreamBroken):
		return "Chat failed: connection lost"
	case client.IsNetwork(err):
		return "Chat failed: could not reach the server"
	default:
		return "Chat failed"
	}
}
