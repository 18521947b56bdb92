package documents

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"codeberg.org/docflow/server/api/rest/pagination"
	"codeberg.org/docflow/server/docflow/documents"
	"codeberg.org/docflow/server/internal/auth"
	"codeberg.org/docflow/server/internal/errors"
	"codeberg.org/docflow/server/internal/presence"
	ws "codeberg.org/docflow/server/internal/websocket"
)

// GetDocumentHandler godoc
// @Summary Get document
// @Description Returns the stored content of a document the caller can access
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} documents.Document
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/documents/{id} [get]
func GetDocumentHandler(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID, ok := authorize(c, reader)
		if !ok {
			return
		}

		doc, err := reader.GetDocument(c.Request.Context(), documentID)
		if stderrors.Is(err, documents.ErrNotFound) {
			errors.NotFound(c, "document")
			return
		}
		if err != nil {
			errors.InternalError(c, "failed to load document", err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// ListHistoryHandler godoc
// @Summary List document history
// @Description Returns recorded changes, newest first
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Param limit query int false "Max records (default 50, max 200)"
// @Success 200 {object} HistoryResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/documents/{id}/history [get]
func ListHistoryHandler(reader Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID, ok := authorize(c, reader)
		if !ok {
			return
		}

		limit := pagination.Limit(c, defaultHistoryLimit, maxHistoryLimit)

		history, err := reader.ListHistory(c.Request.Context(), documentID, limit)
		if err != nil {
			errors.InternalError(c, "failed to list history", err)
			return
		}

		if history == nil {
			history = []*documents.HistoryRecord{}
		}

		c.JSON(http.StatusOK, HistoryResponse{
			DocumentID: strconv.FormatInt(documentID, 10),
			History:    history,
			Limit:      limit,
		})
	}
}

// PresenceHandler godoc
// @Summary Live cursors
// @Description Returns the cursors currently present in the document room
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} PresenceResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/documents/{id}/presence [get]
func PresenceHandler(reader Reader, source PresenceSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentID, ok := authorize(c, reader)
		if !ok {
			return
		}

		cursors := source.Snapshot(documentID)
		if cursors == nil {
			cursors = []presence.CursorState{}
		}

		c.JSON(http.StatusOK, PresenceResponse{
			DocumentID: strconv.FormatInt(documentID, 10),
			Room:       ws.RoomName(documentID),
			Cursors:    cursors,
		})
	}
}

// parses the path id and checks the caller may read the document
func authorize(c *gin.Context, reader Reader) (int64, bool) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		errors.Unauthorized(c, "")
		return 0, false
	}

	raw, ok := errors.ValidatePathDocumentID(c, "id")
	if !ok {
		return 0, false
	}

	documentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errors.NotFound(c, "document")
		return 0, false
	}

	allowed, err := reader.UserHasAccess(c.Request.Context(), identity.UserID, documentID)
	if err != nil {
		errors.InternalError(c, "failed to check document access", err)
		return 0, false
	}

	if !allowed {
		errors.Forbidden(c, "no access to this document")
		return 0, false
	}

	return documentID, true
}
