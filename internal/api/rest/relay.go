package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DukesR8/Camera-Database/internal/config"
	"github.com/DukesR8/Camera-Database/internal/metrics"
)

// SubmitRequest is the anonymous camera submission payload.
type SubmitRequest struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Body   string   `json:"body"`
}

// SubmitResponse is returned to the submitter.
type SubmitResponse struct {
	Success     bool   `json:"success"`
	IssueNumber int    `json:"issueNumber,omitempty"`
	IssueURL    string `json:"issueUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Relay forwards validated submissions to the issue tracker using the
// server-held credential. Stateless: no caching, no retries.
type Relay struct {
	cfg    config.RelayConfig
	client *http.Client
	logger *zap.Logger
}

// NewRelay creates a Relay.
func NewRelay(cfg config.RelayConfig, logger *zap.Logger) *Relay {
	return &Relay{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Submit handles POST /api/submit.
func (r *Relay) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, SubmitResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, SubmitResponse{Error: "title and body are required"})
		return
	}
	if r.cfg.Token == "" {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		r.logger.Error("Submission relay has no credential configured")
		c.JSON(http.StatusInternalServerError, SubmitResponse{Error: "relay is not configured"})
		return
	}

	payload, err := json.Marshal(map[string]any{
		"title":  req.Title,
		"labels": req.Labels,
		"body":   req.Body,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, SubmitResponse{Error: "could not encode submission"})
		return
	}

	upstream, err := http.NewRequestWithContext(c.Request.Context(),
		http.MethodPost, r.cfg.IssueAPIURL, bytes.NewReader(payload))
	if err != nil {
		c.JSON(http.StatusInternalServerError, SubmitResponse{Error: "could not build upstream request"})
		return
	}
	upstream.Header.Set("Accept", "application/vnd.github+json")
	upstream.Header.Set("Content-Type", "application/json")
	upstream.Header.Set("Authorization", "Bearer "+r.cfg.Token)

	resp, err := r.client.Do(upstream)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("upstream_error").Inc()
		r.logger.Error("Submission relay upstream call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, SubmitResponse{Error: "issue tracker unreachable"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		metrics.SubmissionsTotal.WithLabelValues("upstream_error").Inc()
		r.logger.Warn("Issue tracker rejected submission", zap.Int("status", resp.StatusCode))
		c.JSON(http.StatusBadGateway, SubmitResponse{
			Error: fmt.Sprintf("issue tracker returned status %d", resp.StatusCode),
		})
		return
	}

	var issue struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("upstream_error").Inc()
		c.JSON(http.StatusBadGateway, SubmitResponse{Error: "issue tracker response was malformed"})
		return
	}

	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	r.logger.Info("Submission relayed", zap.Int("issue", issue.Number))
	c.JSON(http.StatusOK, SubmitResponse{
		Success:     true,
		IssueNumber: issue.Number,
		IssueURL:    issue.HTMLURL,
	})
}
