package credential

import (
	"strings"

	"github.com/firstword/responder/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/settings/api-key")
	g.GET("", h.get)
	g.PUT("", h.put)
	g.DELETE("", h.clear)
}

type statusResponse struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

type putDTO struct {
	APIKey string `json:"apiKey"`
}

func (h *Handler) get(c *gin.Context) {
	value, ok, err := h.store.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	ok = ok && strings.TrimSpace(value) != ""
	out := statusResponse{Configured: ok}
	if ok {
		out.Masked = Mask(value)
	}
	response.OK(c, out)
}

func (h *Handler) put(c *gin.Context) {
	var dto putDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Please enter a valid API key")
		return
	}
	value := strings.TrimSpace(dto.APIKey)
	if value == "" {
		response.BadRequest(c, "Please enter a valid API key")
		return
	}
	if err := h.store.Set(c.Request.Context(), value); err != nil {
		h.logger.Error("save api key failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	h.logger.Info("api key saved")
	response.NoContent(c)
}

func (h *Handler) clear(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		h.logger.Error("clear api key failed", zap.Error(err))
		response.InternalError(c, err)
		return
	}
	h.logger.Info("api key cleared")
	response.NoContent(c)
}
