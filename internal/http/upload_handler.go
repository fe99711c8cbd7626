package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"group-chat/internal/service"
)

// UploadHandler mantiene dependencias para el endpoint de chunks.
type UploadHandler struct {
	logger    *zap.Logger
	uploadSvc *service.UploadService
}

func NewUploadHandler(logger *zap.Logger, uploadSvc *service.UploadService) *UploadHandler {
	return &UploadHandler{logger: logger, uploadSvc: uploadSvc}
}

// UploadChunk maneja POST /upload_chunk (multipart). Mientras el archivo
// sigue juntándose responde un acuse por chunk; el chunk terminal devuelve
// la referencia final para usar en /send.
func (h *UploadHandler) UploadChunk(c *gin.Context) {
	fileHeader, err := c.FormFile("chunk_bytes")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File chunk error."})
		return
	}

	chunkIndex, errIdx := strconv.Atoi(c.PostForm("chunk_index"))
	totalChunks, errTotal := strconv.Atoi(c.PostForm("total_chunks"))
	originalFilename := c.PostForm("original_filename")
	uploadID := c.PostForm("upload_id")
	if errIdx != nil || errTotal != nil || originalFilename == "" || uploadID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing upload parameters."})
		return
	}

	chunk, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File chunk error."})
		return
	}
	defer chunk.Close()

	result, err := h.uploadSvc.AppendChunk(c.Request.Context(), uploadID, chunkIndex, totalChunks, originalFilename, chunk)
	if err != nil {
		if errors.Is(err, service.ErrChunkInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing upload parameters."})
			return
		}
		h.logger.Error("chunk write failed",
			zap.Error(err),
			zap.String("upload_id", uploadID),
			zap.Int("chunk_index", chunkIndex),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write chunk."})
		return
	}

	if result.Complete {
		c.JSON(http.StatusOK, gin.H{"success": true, "final_path": result.FinalPath})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Chunk %d/%d received.", result.ChunkIndex, result.TotalChunks),
	})
}
