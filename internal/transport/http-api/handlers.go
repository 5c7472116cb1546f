package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "loan-assistant/internal/common/errors"
	loanrepository "loan-assistant/internal/data-access/loan-repository"
	"loan-assistant/internal/models"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, apperrors.NewMessageInvalidError("invalid request body: "+err.Error()))
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.abort(c, apperrors.NewMessageInvalidError("message is empty"))
		return
	}
	if n := utf8.RuneCountInString(message); n > s.config.MaxMessageLength {
		stdErr := apperrors.NewMessageInvalidError(fmt.Sprintf("message has %d characters, limit is %d", n, s.config.MaxMessageLength))
		stdErr.Message = fmt.Sprintf("Message must be at most %d characters", s.config.MaxMessageLength)
		s.abort(c, stdErr)
		return
	}

	reply := s.deps.Chat.Reply(c.Request.Context(), message, req.SessionID)
	c.JSON(http.StatusOK, chatResponse{
		Response:  reply,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Server) loanDetails(c *gin.Context) {
	rec, ok := s.findLoan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec.Details())
}

func (s *Server) emiDetails(c *gin.Context) {
	rec, ok := s.findLoan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec.EMI())
}

// findLoan writes the response itself unless a record was found. A missing
// loan is answered with {"found": false}, not an error status.
func (s *Server) findLoan(c *gin.Context) (*models.LoanRecord, bool) {
	loanID := c.Param("loan_id")
	account := c.Param("account_number")

	rec, err := s.deps.Loans.FindLoan(c.Request.Context(), loanID, account)
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, loanrepository.ErrLoanNotFound):
		c.JSON(http.StatusOK, gin.H{"found": false})
	case errors.Is(err, loanrepository.ErrQueryTimeout):
		s.abort(c, apperrors.NewQueryTimeoutError("find_loan"))
	default:
		s.abort(c, apperrors.NewQueryExecutionFailedError("find_loan", err))
	}
	return nil, false
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) dbTest(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.deps.Loans.Ping(ctx); err != nil {
		s.abort(c, apperrors.NewDatabaseConnectionFailedError(err))
		return
	}

	loans, err := s.deps.Loans.SampleLoans(ctx, 5)
	if err != nil {
		s.abort(c, apperrors.NewQueryExecutionFailedError("sample_loans", err))
		return
	}

	sample := make([]models.LoanDetails, 0, len(loans))
	for _, rec := range loans {
		sample = append(sample, rec.Details())
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"message":     "Database connection successful",
		"sample_data": sample,
		"count":       len(sample),
	})
}

func (s *Server) listIntents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"intents": s.deps.Intents.Catalog().Tags()})
}

func (s *Server) addIntent(c *gin.Context) {
	var intent models.Intent
	if err := c.ShouldBindJSON(&intent); err != nil {
		s.abort(c, apperrors.NewIntentCatalogInvalidError("invalid request body: "+err.Error()))
		return
	}
	if intent.IsDefault() {
		s.abort(c, apperrors.NewDuplicateIntentError(intent.Tag))
		return
	}

	if err := s.deps.Intents.AddIntent(intent); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tag": intent.Tag})
}

// abort answers with the status mapped from the error code. Internal details
// are logged, never returned.
func (s *Server) abort(c *gin.Context, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"path":      c.FullPath(),
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields)
	} else {
		s.logger.Debug("request rejected", fields)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": stdErr.Message,
		"code":  stdErr.Code,
	})
}
