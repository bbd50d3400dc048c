package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	messageNotFound        = "Not found"
	messageNoteNotFound    = "Note not found"
	messageInvalidJSON     = "Invalid JSON"
	messageContentRequired = "content is required"
	messageContentEmpty    = "content must not be empty"
	messageInternalError   = "Internal server error"
	defaultHeartbeat       = 25 * time.Second
)

var (
	errMissingNotesService = errors.New("notes service dependency required")
	errInvalidJSON         = errors.New("request body is not valid JSON")
)

// Dependencies wires the HTTP surface to its collaborators.
type Dependencies struct {
	NotesService *notes.Service
	Logger       *zap.Logger
	// Realtime enables the change feed when non-nil.
	Realtime *RealtimeDispatcher
	// BasePath prefixes every note route; empty serves them from the root.
	BasePath string
	// HeartbeatInterval spaces keep-alive events on the change feed.
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	handler := &httpHandler{
		notesService: deps.NotesService,
		realtime:     deps.Realtime,
		logger:       logger,
		heartbeat:    heartbeat,
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware())
	router.Use(gin.CustomRecovery(handler.recoverPanic))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": messageNotFound})
	})

	group := router.Group(deps.BasePath)
	group.GET("/notes", handler.handleListNotes)
	group.POST("/notes", handler.handleCreateNote)
	group.GET("/notes/events", handler.handleNoteEvents)
	group.GET("/notes/:id", handler.handleGetNote)
	group.PUT("/notes/:id", handler.handleUpdateNote)
	group.DELETE("/notes/:id", handler.handleDeleteNote)

	return router, nil
}

type httpHandler struct {
	notesService *notes.Service
	realtime     *RealtimeDispatcher
	logger       *zap.Logger
	heartbeat    time.Duration
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	stored, err := h.notesService.ListNotes(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, messageContentRequired)
		return
	}
	c.JSON(http.StatusOK, stored)
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	note, err := h.notesService.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, messageContentRequired)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	body, err := readJSONObject(c.Request.Body)
	if err != nil {
		h.respondBodyError(c, err)
		return
	}

	created, err := h.notesService.CreateNote(c.Request.Context(), newNoteFromBody(body))
	if err != nil {
		h.respondServiceError(c, err, messageContentRequired)
		return
	}
	h.publish(OperationCreate, created.ID)
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	body, err := readJSONObject(c.Request.Body)
	if err != nil {
		h.respondBodyError(c, err)
		return
	}

	updated, err := h.notesService.UpdateNote(c.Request.Context(), c.Param("id"), patchFromBody(body))
	if err != nil {
		h.respondServiceError(c, err, messageContentEmpty)
		return
	}
	h.publish(OperationUpdate, updated.ID)
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID := c.Param("id")
	if err := h.notesService.DeleteNote(c.Request.Context(), noteID); err != nil {
		h.respondServiceError(c, err, messageContentRequired)
		return
	}
	h.publish(OperationDelete, noteID)
	c.Status(http.StatusNoContent)
}

// respondServiceError maps anticipated failures onto 4xx and everything else
// onto a generic 500. invalidContent is the message used for validation errors.
func (h *httpHandler) respondServiceError(c *gin.Context, err error, invalidContent string) {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound), errors.Is(err, notes.ErrInvalidNoteID):
		c.JSON(http.StatusNotFound, gin.H{"error": messageNoteNotFound})
	case errors.Is(err, notes.ErrInvalidContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidContent})
	default:
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		}
		var serviceErr *notes.ServiceError
		if errors.As(err, &serviceErr) {
			fields = append(fields, zap.String("code", serviceErr.Code()))
		}
		h.logger.Error("request failed", fields...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": messageInternalError})
	}
}

func (h *httpHandler) respondBodyError(c *gin.Context, err error) {
	if errors.Is(err, errInvalidJSON) {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageInvalidJSON})
		return
	}
	h.logger.Error("failed to read request body", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": messageInternalError})
}

func (h *httpHandler) recoverPanic(c *gin.Context, recovered any) {
	h.logger.Error("panic while handling request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Any("panic", recovered))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": messageInternalError})
}

func (h *httpHandler) publish(operation, noteID string) {
	if h.realtime == nil {
		return
	}
	h.realtime.Publish(RealtimeMessage{
		EventType: RealtimeEventNoteChanged,
		Operation: operation,
		NoteIDs:   []string{noteID},
		Timestamp: time.Now().UTC(),
	})
}

// readJSONObject decodes a request body. An empty body and any JSON value
// that is not an object both yield an empty object.
func readJSONObject(body io.Reader) (map[string]any, error) {
	if body == nil {
		return map[string]any{}, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, errInvalidJSON
	}
	object, ok := decoded.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return object, nil
}

// Only string values are taken for title and content.
func newNoteFromBody(body map[string]any) notes.NewNote {
	input := notes.NewNote{}
	if title, ok := body["title"].(string); ok {
		input.Title = title
	}
	if content, ok := body["content"].(string); ok {
		input.Content = content
	}
	if tags, ok := stringElements(body["tags"]); ok {
		input.Tags = tags
	}
	return input
}

func patchFromBody(body map[string]any) notes.Patch {
	patch := notes.Patch{}
	if title, ok := body["title"].(string); ok {
		patch.Title = &title
	}
	if content, ok := body["content"].(string); ok {
		patch.Content = &content
	}
	if tags, ok := stringElements(body["tags"]); ok {
		patch.Tags = tags
		patch.SetTags = true
	}
	return patch
}

// stringElements accepts JSON arrays only; non-string elements are dropped.
func stringElements(value any) ([]string, bool) {
	elements, ok := value.([]any)
	if !ok {
		return nil, false
	}
	values := make([]string, 0, len(elements))
	for _, element := range elements {
		if text, ok := element.(string); ok {
			values = append(values, text)
		}
	}
	return values, true
}
