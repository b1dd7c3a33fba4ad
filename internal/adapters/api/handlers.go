package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/message"
	"github.com/mikey/phishgard/internal/urlmodel"
	"go.uber.org/zap"
)

// EmailRequest submits a message for analysis, either as the raw RFC 5322
// text or as already-extracted parts
type EmailRequest struct {
	UserID   string             `json:"user_id" binding:"required"`
	EmailID  string             `json:"email_id"`
	Raw      string             `json:"raw"`
	From     string             `json:"from"`
	To       []string           `json:"to"`
	Subject  string             `json:"subject"`
	Body     string             `json:"body"`
	HTMLBody string             `json:"html_body"`
	Headers  []core.HeaderField `json:"headers"`
}

// HeadersRequest submits a raw header block
type HeadersRequest struct {
	RawHeader string `json:"raw_header" binding:"required"`
}

// URLRequest submits a single URL. A missing scheme is taken as http.
type URLRequest struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "phishgard",
		"status":  "UP",
	})
}

func (s *Server) analyzeEmail(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, err.Error()))
		return
	}

	email, err := req.email()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, err.Error()))
		return
	}

	report, err := s.service.AnalyzeEmail(c.Request.Context(), req.UserID, email)
	if err != nil {
		s.logger.Error("Failed to analyze email",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody(c, err.Error()))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) analyzeHeaders(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var req HeadersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, err.Error()))
		return
	}

	report, err := s.service.AnalyzeHeaders(c.Request.Context(), req.RawHeader)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody(c, err.Error()))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) predictURL(c *gin.Context) {
	if s.urls == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "URL analysis disabled"))
		return
	}
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, err.Error()))
		return
	}
	c.JSON(http.StatusOK, s.urls.AnalyzeURL(c.Request.Context(), req.URL))
}

func (s *Server) urlContext(c *gin.Context) {
	if s.contexts == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody(c, "URL context analysis disabled"))
		return
	}
	var req URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, err.Error()))
		return
	}
	if _, err := urlmodel.NormalizeURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(c, err.Error()))
		return
	}

	report, err := s.contexts.Context(c.Request.Context(), req.URL)
	if err != nil {
		s.logger.Error("Failed to build URL context",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("url", req.URL),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody(c, err.Error()))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) lookup(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errorBody(c, "user_id is required"))
		return
	}

	report, err := s.service.Lookup(c.Request.Context(), userID, c.Param("email_id"))
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody(c, "analysis not found"))
	case err != nil:
		c.JSON(http.StatusInternalServerError, errorBody(c, err.Error()))
	default:
		c.JSON(http.StatusOK, report)
	}
}

// email builds the message to analyse. A raw message wins over the parts;
// explicit fields still override what was parsed from it.
func (r *EmailRequest) email() (*core.Email, error) {
	var email *core.Email
	if strings.TrimSpace(r.Raw) != "" {
		parsed, err := message.Parse([]byte(r.Raw))
		if err != nil {
			return nil, err
		}
		email = parsed
	} else {
		if len(r.Headers) == 0 && r.Body == "" && r.HTMLBody == "" {
			return nil, errors.New("either raw or headers and body are required")
		}
		email = &core.Email{Headers: r.Headers}
	}

	if r.EmailID != "" {
		email.ID = r.EmailID
	}
	if r.From != "" {
		email.From = r.From
	}
	if len(r.To) > 0 {
		email.To = r.To
	}
	if r.Subject != "" {
		email.Subject = r.Subject
	}
	if r.Body != "" {
		email.Body = r.Body
	}
	if r.HTMLBody != "" {
		email.HTMLBody = r.HTMLBody
	}
	return email, nil
}
