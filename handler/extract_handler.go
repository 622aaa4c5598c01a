package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/service"
	"github.com/tieubaoca/pdf-quizbot/types"
	"github.com/tieubaoca/pdf-quizbot/utils"
)

// DocumentExtractor is satisfied by *service.PDFService.
type DocumentExtractor interface {
	ExtractDetailed(data []byte) (*types.Extraction, error)
}

type ExtractHandler struct {
	extractor DocumentExtractor
	maxSize   int64
	log       *zap.Logger
}

func NewExtractHandler(extractor DocumentExtractor, maxSize int64, log *zap.Logger) *ExtractHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExtractHandler{extractor: extractor, maxSize: maxSize, log: log}
}

// HandleExtract accepts a multipart "file" field and returns its text.
func (h *ExtractHandler) HandleExtract(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid file")
		return
	}
	if h.maxSize > 0 && header.Size > h.maxSize {
		h.sendError(c, http.StatusBadRequest, "File too large")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "Invalid file")
		return
	}
	defer file.Close()

	data, err := utils.ReadLimited(file, h.maxSize)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidatePDF(header.Header.Get("Content-Type"), data, h.maxSize); err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.extractor.ExtractDetailed(data)
	if err != nil {
		if errors.Is(err, service.ErrMalformedDocument) {
			h.sendError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error("extract failed", zap.String("file", header.Filename), zap.Error(err))
		h.sendError(c, http.StatusInternalServerError, "Extraction failed")
		return
	}

	h.log.Info("extracted document",
		zap.String("file", header.Filename),
		zap.Int("pages", res.Pages),
		zap.Int("empty_pages", len(res.EmptyPages)),
	)
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: res})
}

func (h *ExtractHandler) sendError(c *gin.Context, status int, message string) {
	c.JSON(status, types.DataResponse{Status: false, Message: message})
}
