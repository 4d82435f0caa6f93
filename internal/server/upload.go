package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/metrics"
	"github.com/dharsanguruparan/VidAI/internal/model"
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

var errMissingFile = errors.New("missing file part")

type tempUpload struct {
	f           *os.File
	size        int64
	contentType string
	extension   string
	filename    string
}

func (t *tempUpload) cleanup() {
	t.f.Close()
	os.Remove(t.f.Name())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r)
	case http.MethodGet:
		list, err := s.sessions.List(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		if list == nil {
			list = []model.Session{}
		}
		respondJSON(w, http.StatusOK, list)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// MaxBytesReader bounds the whole body; persistTemp enforces the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1<<20)
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form", "")
		return
	}
	tmp, modelID, err := s.readUpload(mr)
	if err != nil {
		metrics.RecordUpload("unknown", "rejected", 0)
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, errTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, status, err.Error(), "")
		return
	}
	defer tmp.cleanup()

	if !s.allowedType(tmp.contentType) {
		metrics.RecordUpload(tmp.contentType, "rejected", 0)
		respondError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("file type %s not allowed", tmp.contentType), "")
		return
	}
	opt, ok := s.catalog.Lookup(modelID)
	if !ok {
		metrics.RecordUpload(tmp.contentType, "rejected", 0)
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown model %q", modelID), "unknown_model")
		return
	}

	id := uuid.NewString()
	sess := &model.Session{
		ID:          id,
		FileName:    tmp.filename,
		ContentType: tmp.contentType,
		Size:        tmp.size,
		ObjectKey:   "videos/" + id + tmp.extension,
		Model:       opt.ID,
		Status:      model.StatusQueued,
	}
	if _, err := tmp.f.Seek(0, io.SeekStart); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to rewind upload", "")
		return
	}
	if err := s.videos.Put(ctx, sess.ObjectKey, tmp.f, tmp.size, tmp.contentType); err != nil {
		s.log.Error().Err(err).Msg("store video")
		respondError(w, http.StatusInternalServerError, "failed to store file", "")
		return
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.log.Error().Err(err).Msg("create session")
		_ = s.videos.Remove(ctx, sess.ObjectKey)
		respondError(w, http.StatusInternalServerError, "failed to store metadata", "")
		return
	}
	if err := s.dispatcher.Dispatch(ctx, id); err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("dispatch activation")
		_ = s.sessions.MarkFailed(ctx, id, media.KindUnclassified, "Upload failed: "+err.Error())
		respondErr(w, err)
		return
	}
	metrics.RecordUpload(tmp.contentType, "accepted", tmp.size)
	s.log.Info().Str("session_id", id).Str("type", tmp.contentType).Int64("size", tmp.size).Msg("video accepted")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": string(model.StatusQueued),
		"model":  opt.ID,
	})
}

// readUpload consumes every part: the "file" part is spooled to disk and the
// optional "model" field is returned alongside it.
func (s *Server) readUpload(mr *multipart.Reader) (*tempUpload, string, error) {
	var (
		tmp     *tempUpload
		modelID string
	)
	fail := func(err error) (*tempUpload, string, error) {
		if tmp != nil {
			tmp.cleanup()
		}
		return nil, "", err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("read upload: %w", err))
		}
		switch part.FormName() {
		case "file":
			if tmp != nil {
				part.Close()
				continue
			}
			tmp, err = s.persistTemp(part)
			part.Close()
			if err != nil {
				return fail(err)
			}
		case "model":
			b, err := io.ReadAll(io.LimitReader(part, 256))
			part.Close()
			if err != nil {
				return fail(fmt.Errorf("read model field: %w", err))
			}
			modelID = strings.TrimSpace(string(b))
		default:
			part.Close()
		}
	}
	if tmp == nil {
		return nil, "", errMissingFile
	}
	return tmp, modelID, nil
}

var errTooLarge = errors.New("file exceeds size limit")

func (s *Server) persistTemp(part *multipart.Part) (*tempUpload, error) {
	f, err := os.CreateTemp("", "vidai-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmp := &tempUpload{f: f}

	// Keep the first bytes for content sniffing while streaming to disk.
	head := &prefixBuffer{limit: sniffLen}
	n, err := io.Copy(io.MultiWriter(f, head), io.LimitReader(part, s.cfg.MaxFileSize+1))
	if err != nil {
		tmp.cleanup()
		return nil, fmt.Errorf("read file: %w", err)
	}
	if n > s.cfg.MaxFileSize {
		tmp.cleanup()
		return nil, fmt.Errorf("%w (%d bytes)", errTooLarge, s.cfg.MaxFileSize)
	}
	if n == 0 {
		tmp.cleanup()
		return nil, errors.New("empty file")
	}

	mt := mimetype.Detect(head.buf)
	tmp.size = n
	tmp.contentType = mt.String()
	tmp.extension = mt.Extension()
	tmp.filename = filepath.Base(part.FileName())
	if tmp.filename == "." || tmp.filename == "/" || tmp.filename == "" {
		tmp.filename = "video" + tmp.extension
	}
	return tmp, nil
}

func (s *Server) allowedType(contentType string) bool {
	mt := mimetype.Lookup(contentType)
	for _, allowed := range s.cfg.AllowedTypes {
		if allowed == contentType || (mt != nil && mt.Is(allowed)) {
			return true
		}
	}
	return false
}

// prefixBuffer is an io.Writer that keeps only the first limit bytes.
type prefixBuffer struct {
	buf   []byte
	limit int
}

func (p *prefixBuffer) Write(b []byte) (int, error) {
	if room := p.limit - len(p.buf); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		p.buf = append(p.buf, b[:room]...)
	}
	return len(b), nil
}
