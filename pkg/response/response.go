package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/store"
)

// Error types reported to clients
const (
	TypeSimulation = "simulation"
	TypeNotFound   = "not_found"
	TypeBadRequest = "bad_request"
	TypeRateLimit  = "rate_limit"
	TypeProg       = "prog"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Type    string      `json:"type,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, errType, message string) {
	c.AbortWithStatusJSON(code, Response{
		Code:    code,
		Message: message,
		Type:    errType,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, TypeBadRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, TypeNotFound, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, TypeProg, message)
}

// Fail classifies err and sends the matching error response. Domain errors
// keep their message, unexpected errors are reported generically.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var domainErr *models.DomainError
	switch {
	case errors.As(err, &domainErr):
		Error(c, http.StatusBadRequest, TypeSimulation, domainErr.Message)
	case errors.Is(err, store.ErrNotFound):
		NotFound(c, err.Error())
	default:
		InternalError(c, "Internal error")
	}
}
