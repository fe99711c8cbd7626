package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"group-chat/internal/domain"
)

// UploadService reconstruye un archivo a partir de chunks POSTeados en
// orden. Los bytes se acumulan en un artefacto temporal por identificador
// y el chunk terminal lo renombra atómicamente a su nombre definitivo.
//
// Las escrituras por identificador están serializadas con un lock por
// sesión: un retry concurrente no puede intercalar bytes a mitad de un
// append. El orden de los índices sigue siendo responsabilidad del caller,
// que sube los chunks secuencialmente.
type UploadService struct {
	logger       *zap.Logger
	dir          string
	publicPrefix string

	mu       sync.Mutex
	sessions map[string]*uploadSession
}

type uploadSession struct {
	mu          sync.Mutex
	totalChunks int
	tempPath    string
	safeName    string
}

var (
	ErrUploadNotConfigured = errors.New("upload service not configured")
	ErrChunkInvalid        = errors.New("invalid chunk parameters")
)

func NewUploadService(logger *zap.Logger, dir string) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		logger:       logger,
		dir:          dir,
		publicPrefix: filepath.Base(dir),
		sessions:     make(map[string]*uploadSession),
	}
}

// AppendChunk agrega los bytes de un chunk al artefacto temporal del
// identificador. En el chunk terminal (index == total) finaliza el archivo
// y devuelve la referencia estable; cualquier llamada previa devuelve un
// resultado "continue". Los errores de validación no tocan el filesystem.
func (s *UploadService) AppendChunk(ctx context.Context, uploadID string, index, total int, originalName string, data io.Reader) (domain.ChunkResult, error) {
	if s == nil || s.sessions == nil {
		return domain.ChunkResult{}, ErrUploadNotConfigured
	}
	if total < 1 || index < 1 || index > total {
		return domain.ChunkResult{}, ErrChunkInvalid
	}

	safeID := sanitizeIdentifier(uploadID)
	safeName := sanitizeFilename(originalName)
	if safeID == "" || safeName == "" {
		return domain.ChunkResult{}, ErrChunkInvalid
	}

	sess := s.session(safeID, total, safeName)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// El total se fija en el primer chunk; un cambio a mitad de camino es
	// un cliente confundido, no un retry legítimo.
	if sess.totalChunks != total {
		return domain.ChunkResult{}, ErrChunkInvalid
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.ChunkResult{}, fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.OpenFile(sess.tempPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return domain.ChunkResult{}, fmt.Errorf("open temp artifact: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		return domain.ChunkResult{}, fmt.Errorf("write chunk: %w", err)
	}
	if err := f.Close(); err != nil {
		return domain.ChunkResult{}, fmt.Errorf("close temp artifact: %w", err)
	}

	result := domain.ChunkResult{ChunkIndex: index, TotalChunks: total}
	if index < total {
		return result, nil
	}

	finalName := uuid.NewString() + strings.ToLower(filepath.Ext(sess.safeName))
	if err := os.Rename(sess.tempPath, filepath.Join(s.dir, finalName)); err != nil {
		return domain.ChunkResult{}, fmt.Errorf("finalize artifact: %w", err)
	}
	s.drop(safeID)

	s.logger.Info("upload finalized",
		zap.String("upload_id", safeID),
		zap.String("file", finalName),
		zap.Int("chunks", total),
	)

	result.Complete = true
	result.FinalPath = path.Join(s.publicPrefix, finalName)
	return result, nil
}

// session devuelve la sesión del identificador, creándola en el primer
// chunk con el total y el nombre saneado ya fijados.
func (s *UploadService) session(safeID string, total int, safeName string) *uploadSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[safeID]
	if !ok {
		sess = &uploadSession{
			totalChunks: total,
			tempPath:    filepath.Join(s.dir, safeID+"_"+safeName+".part"),
			safeName:    safeName,
		}
		s.sessions[safeID] = sess
	}
	return sess
}

func (s *UploadService) drop(safeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, safeID)
}

// sanitizeIdentifier reduce el identificador del cliente a [a-zA-Z0-9-]
// antes de usarlo en un nombre de archivo.
func sanitizeIdentifier(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizeFilename toma el basename y filtra todo lo que no sea
// [a-zA-Z0-9._-]; un resultado vacío o de puros puntos se descarta.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if strings.Trim(b.String(), ".") == "" {
		return ""
	}
	return b.String()
}
