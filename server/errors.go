package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and returns a short message
func respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	if logger != nil {
		fields = append(fields, zap.Error(technicalError), zap.String("request_id", requestID(c)))
		logger.Error("Request failed", fields...)
	}

	c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
}

// respondWithClientError is for validation failures, which are not logged
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
}
