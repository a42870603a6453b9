package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reservely/internal/shared/faults"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// Success writes the standard success envelope.
func Success(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// Error writes the standard error envelope, mapping the failure kind to the
// HTTP status so clients can reconstruct the same kind on their side.
func Error(c *gin.Context, err error) {
	code := faults.HTTPStatus(err)
	RespondJSON(c, "error", code, faults.MessageOf(err), nil, gin.H{
		"kind": string(faults.KindOf(err)),
	})
}

// ValidationError writes a 400 with field-level details.
func ValidationError(c *gin.Context, message string, details interface{}) {
	RespondJSON(c, "error", http.StatusBadRequest, message, nil, details)
}
