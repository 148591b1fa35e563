package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorCode is the machine-readable code carried in every error envelope.
type ErrorCode string

const (
	CodePromotionNotFound    ErrorCode = "PROMO_NOT_FOUND"       // 404
	CodeConditionNotFound    ErrorCode = "COND_NOT_FOUND"        // 404
	CodeDepositNotFound      ErrorCode = "DEPOSIT_NOT_FOUND"     // 404
	CodeAccountNotFound      ErrorCode = "ACC_NOT_FOUND"         // 404 on account CRUD, 422 as engine precondition
	CodeAccountAlreadyExists ErrorCode = "ACC_ALREADY_EXISTS"    // 409
	CodeInvalidState         ErrorCode = "BIZ_INVALID_STATE"     // 409
	CodeValidationFailed     ErrorCode = "VAL_INVALID_INPUT"     // 400
	CodeMalformedVariant     ErrorCode = "SYS_MALFORMED_VARIANT" // 500, data integrity
	CodeInternalError        ErrorCode = "SYS_INTERNAL_ERROR"    // 500
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type Meta struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
	Total int `json:"total,omitempty"`
}

// Success responses
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error responses
func ErrorResponse(c *gin.Context, statusCode int, code ErrorCode, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code ErrorCode, message string, details interface{}) {
	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
