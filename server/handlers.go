package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xhad/duo/internal/models"
	"github.com/xhad/duo/pkg/client"
	"github.com/xhad/duo/pkg/llm"
	"github.com/xhad/duo/pkg/processor"
	"go.uber.org/zap"
)

// multipartSlack covers form boundaries and headers around the two files.
const multipartSlack = 1 << 20

type chatDualRequest struct {
	Message   string `json:"message" binding:"required"`
	StoreIDA  string `json:"storeIdA" binding:"required"`
	StoreIDB  string `json:"storeIdB" binding:"required"`
	FilenameA string `json:"filenameA" binding:"required"`
	FilenameB string `json:"filenameB" binding:"required"`
}

func (r chatDualRequest) toModel() models.ChatRequest {
	return models.ChatRequest{
		Message: r.Message,
		DualContext: models.DualContext{
			StoreIDA:  r.StoreIDA,
			StoreIDB:  r.StoreIDB,
			FilenameA: r.FilenameA,
			FilenameB: r.FilenameB,
		},
	}
}

// uploadError carries the status and message an upload failure maps to.
type uploadError struct {
	status int
	msg    string
	err    error
}

func (e *uploadError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *uploadError) Unwrap() error { return e.err }

func (s *Server) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"api": "running"})
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) uploadDual(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*s.config.MaxUploadBytes+multipartSlack)

	headerA, errA := c.FormFile(client.FieldA)
	headerB, errB := c.FormFile(client.FieldB)
	for _, err := range []error{errA, errB} {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithClientError(c, http.StatusBadRequest, fmt.Sprintf("Each PDF must be under %dMB", s.config.MaxUploadBytes/(1024*1024)))
			return
		}
	}
	if errA != nil || errB != nil {
		respondWithClientError(c, http.StatusBadRequest, "Both fileA and fileB are required")
		return
	}

	ctx := c.Request.Context()

	storeA, nameA, err := s.ingest(ctx, "PDF A", headerA)
	if err != nil {
		s.respondUploadError(c, err)
		return
	}
	storeB, nameB, err := s.ingest(ctx, "PDF B", headerB)
	if err != nil {
		s.respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DualContext{
		StoreIDA:  storeA,
		StoreIDB:  storeB,
		FilenameA: nameA,
		FilenameB: nameB,
	})
}

func (s *Server) respondUploadError(c *gin.Context, err error) {
	var ue *uploadError
	if !errors.As(err, &ue) {
		respondWithError(c, http.StatusInternalServerError, err, "Upload failed", s.logger)
		return
	}
	if ue.status < http.StatusInternalServerError {
		respondWithClientError(c, ue.status, ue.msg)
		return
	}
	respondWithError(c, ue.status, ue.err, ue.msg, s.logger)
}

// ingest stages one uploaded file, indexes it and removes the staged copy.
func (s *Server) ingest(ctx context.Context, label string, header *multipart.FileHeader) (string, string, error) {
	if header.Size > s.config.MaxUploadBytes {
		return "", "", &uploadError{
			status: http.StatusBadRequest,
			msg:    fmt.Sprintf("%s exceeds %dMB", label, s.config.MaxUploadBytes/(1024*1024)),
			err:    processor.ErrTooLarge,
		}
	}

	f, err := header.Open()
	if err != nil {
		return "", "", &uploadError{status: http.StatusBadRequest, msg: "Invalid file", err: err}
	}
	doc, cleanup, err := s.processor.Prepare(label, header.Filename, f)
	f.Close()
	defer cleanup()

	switch {
	case errors.Is(err, processor.ErrInvalidFile):
		return "", "", &uploadError{status: http.StatusBadRequest, msg: "Invalid file", err: err}
	case errors.Is(err, processor.ErrTooLarge):
		return "", "", &uploadError{
			status: http.StatusBadRequest,
			msg:    fmt.Sprintf("%s exceeds %dMB", label, s.config.MaxUploadBytes/(1024*1024)),
			err:    err,
		}
	case err != nil:
		return "", "", &uploadError{status: http.StatusInternalServerError, msg: "Failed to save " + label, err: err}
	}

	storeID, err := s.indexDocument(ctx, doc)
	switch {
	case errors.Is(err, llm.ErrUploadTimeout), errors.Is(err, context.DeadlineExceeded):
		return "", "", &uploadError{status: http.StatusGatewayTimeout, msg: "Upload timeout", err: err}
	case err != nil:
		return "", "", &uploadError{status: http.StatusInternalServerError, msg: "Failed to index " + label, err: err}
	}

	return storeID, doc.Filename, nil
}

// indexDocument reuses a recent store for identical content when the ledger
// has one, and indexes otherwise.
func (s *Server) indexDocument(ctx context.Context, doc models.PreparedDocument) (string, error) {
	reuse := s.ledger != nil && s.config.ReuseWindow > 0

	if reuse {
		found, err := s.ledger.Lookup(ctx, doc.SHA256, time.Now().Add(-s.config.ReuseWindow))
		if err != nil {
			s.logger.Warn("ledger lookup failed", zap.Error(err))
		} else if found != nil {
			s.logger.Info("reusing indexed document",
				zap.String("label", doc.Label),
				zap.String("store_id", found.StoreID))
			return found.StoreID, nil
		}
	}

	storeID, err := s.indexer.Index(ctx, doc)
	if err != nil {
		return "", err
	}
	s.logger.Info("indexed document",
		zap.String("label", doc.Label),
		zap.String("filename", doc.Filename),
		zap.Int64("size", doc.Size),
		zap.String("store_id", storeID))

	if s.ledger != nil {
		err := s.ledger.Record(ctx, models.IndexedDocument{
			StoreID:   storeID,
			Filename:  doc.Filename,
			SHA256:    doc.SHA256,
			Size:      doc.Size,
			CreatedAt: time.Now(),
		})
		if err != nil {
			s.logger.Warn("ledger record failed", zap.Error(err))
		}
	}

	return storeID, nil
}

func (s *Server) chatDual(c *gin.Context) {
	var req chatDualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "Invalid chat request")
		return
	}

	stream, err := s.indexer.ChatStream(c.Request.Context(), req.toModel())
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err, "Chat failed", s.logger)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				return
			}
			if _, err := io.WriteString(c.Writer, chunk); err != nil {
				s.logger.Debug("client went away", zap.Error(err))
				return
			}
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
