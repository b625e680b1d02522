package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/packlist/internal/service"
)

// Lists 清单资源：按有效方法分发
// GET    /api/lists            所有清单
// GET    /api/lists?id=        单个清单
// GET    /api/lists?nextId=1   下一个 ID（不预留）
// POST   /api/lists            创建
// PUT    /api/lists?id=        更新（也可 POST + _method / X-HTTP-Method-Override）
// DELETE /api/lists?id=        删除
func (h *Handler) Lists(c *gin.Context) {
	body, err := parseListBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	method, ok := ResolveMethod(c.Request.Method, c.Request.URL.Query(), body.params, c.Request.Header)
	if !ok {
		MethodNotAllowed(c)
		return
	}

	rawID, hasID := resourceID(c, body)

	switch method {
	case MethodGet:
		switch {
		case hasID:
			h.getList(c, rawID)
		case hasQuery(c, "nextId"):
			h.nextID(c)
		default:
			h.allLists(c)
		}

	case MethodPost:
		h.createList(c, body.req)

	case MethodPut, MethodPatch:
		if !hasID {
			// POST 带覆盖但没有 id：按创建处理
			if c.Request.Method == http.MethodPost {
				h.createList(c, body.req)
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "No id provided for update"})
			return
		}
		h.updateList(c, rawID, body.req)

	case MethodDelete:
		if !hasID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No id provided for delete"})
			return
		}
		h.deleteList(c, rawID)
	}
}

func (h *Handler) allLists(c *gin.Context) {
	lists, err := h.lists.All(c.Request.Context())
	if err != nil {
		h.storageError(c, "Failed to list lists", err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *Handler) getList(c *gin.Context, rawID string) {
	id, ok := parseID(rawID)
	if !ok {
		notFound(c)
		return
	}

	list, err := h.lists.Get(c.Request.Context(), id)
	if err != nil {
		h.storageError(c, "Failed to get list", err, zap.Int64("list_id", id))
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) nextID(c *gin.Context) {
	next, err := h.lists.NextID(c.Request.Context())
	if err != nil {
		h.storageError(c, "Failed to get next id", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextId": next})
}

func (h *Handler) createList(c *gin.Context, req service.ListRequest) {
	list, err := h.lists.Create(c.Request.Context(), req)
	if err != nil {
		h.storageError(c, "Failed to create list", err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *Handler) updateList(c *gin.Context, rawID string, req service.ListRequest) {
	id, ok := parseID(rawID)
	if !ok {
		notFound(c)
		return
	}

	list, err := h.lists.Update(c.Request.Context(), id, req)
	if err != nil {
		h.storageError(c, "Failed to update list", err, zap.Int64("list_id", id))
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) deleteList(c *gin.Context, rawID string) {
	id, ok := parseID(rawID)
	if !ok {
		notFound(c)
		return
	}

	if err := h.lists.Delete(c.Request.Context(), id); err != nil {
		h.storageError(c, "Failed to delete list", err, zap.Int64("list_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

// hasQuery 参数存在即可，不要求有值（?nextId 与 ?nextId=1 等价）
func hasQuery(c *gin.Context, key string) bool {
	_, ok := c.GetQuery(key)
	return ok
}
