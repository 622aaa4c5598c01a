package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tieubaoca/pdf-quizbot/types"
	"github.com/tieubaoca/pdf-quizbot/utils"
)

// DocumentHandler serves uploads kept in the upload directory. Each session
// keeps its files under <uploadDir>/<session>, and the session ID is required
// to read them.
type DocumentHandler struct {
	uploadDir string
}

func NewDocumentHandler(uploadDir string) *DocumentHandler {
	return &DocumentHandler{
		uploadDir: uploadDir,
	}
}

// ServeDocument streams ?session=<id>&file=<name>.pdf, resolving the newest
// stored copy saved as <name>_<unix>.pdf.
func (h *DocumentHandler) ServeDocument(c *gin.Context) {
	session, err := uuid.Parse(c.Query("session"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{Message: "Session parameter is required"})
		return
	}
	sessionDir := filepath.Join(h.uploadDir, session.String())

	requestedName := filepath.Base(c.Query("file"))
	if requestedName == "" || requestedName == "." {
		c.JSON(http.StatusBadRequest, types.DataResponse{Message: "File parameter is required"})
		return
	}
	if filepath.Ext(requestedName) != ".pdf" {
		c.JSON(http.StatusBadRequest, types.DataResponse{Message: "Only PDF files are allowed"})
		return
	}

	actualFile, err := findFileWithTimestamp(sessionDir, requestedName)
	if err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{Message: "File not found"})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", requestedName))
	c.File(filepath.Join(sessionDir, actualFile))
}

func findFileWithTimestamp(dir, requestedName string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	// stored names went through SanitizeFileName
	baseName := utils.SanitizeFileName(strings.TrimSuffix(requestedName, ".pdf"))
	var (
		best   string
		bestTS int64 = -1
	)
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".pdf") {
			continue
		}

		nameWithoutExt := strings.TrimSuffix(name, ".pdf")
		if nameWithoutExt == baseName && bestTS < 0 {
			best, bestTS = name, 0
			continue
		}
		lastUnderscoreIdx := strings.LastIndex(nameWithoutExt, "_")
		if lastUnderscoreIdx == -1 || nameWithoutExt[:lastUnderscoreIdx] != baseName {
			continue
		}

		// Unix timestamps are 10 digits (seconds) or 13 (milliseconds)
		timestampPart := nameWithoutExt[lastUnderscoreIdx+1:]
		if len(timestampPart) != 10 && len(timestampPart) != 13 {
			continue
		}
		ts, err := strconv.ParseInt(timestampPart, 10, 64)
		if err != nil {
			continue
		}
		if ts > bestTS {
			best, bestTS = name, ts
		}
	}

	if best == "" {
		return "", fmt.Errorf("file not found: %s", requestedName)
	}
	return best, nil
}
