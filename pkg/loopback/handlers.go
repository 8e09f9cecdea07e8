package loopback

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/entrhq/lookout/pkg/agent/tools"
	"github.com/entrhq/lookout/pkg/browser"
	"github.com/entrhq/lookout/pkg/browser/bridge"
	"github.com/entrhq/lookout/pkg/webview"
)

type openRequest struct {
	URL         string `json:"url" binding:"required"`
	ProjectPath string `json:"projectPath"`
}

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

type linksRequest struct {
	Filter string `json:"filter"`
}

type selectorRequest struct {
	Selector string `json:"selector" binding:"required"`
}

type fillRequest struct {
	Selector string `json:"selector" binding:"required"`
	Value    string `json:"value"`
}

type visibleRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

type lockRequest struct {
	AgentID string `json:"agentId"`
}

type toolCallRequest struct {
	Call string `json:"call" binding:"required"`
}

// requestContext carries the agent header into the browser call.
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if agent := strings.TrimSpace(c.GetHeader(AgentHeader)); agent != "" {
		ctx = browser.WithAgent(ctx, agent)
	}
	return ctx
}

// bindOptional decodes a JSON body that may be empty.
func bindOptional(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && err != io.EOF {
		badRequest(c, err)
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"browserOpen": s.browser.IsOpen(),
	})
}

func (s *Server) handleResult(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	env, err := bridge.DecodeEnvelope(body)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.browser.HandleResult(env)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.browser.GetState())
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.hub == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event stream is not enabled"})
		return
	}
	events, cancel := s.hub.Subscribe()
	defer cancel()

	c.SSEvent("state", s.browser.GetState())
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		}
	})
}

func (s *Server) handleOpen(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	projectPath := req.ProjectPath
	if projectPath == "" {
		projectPath = s.cfg.ProjectPath
	}
	result, err := s.browser.Open(requestContext(c), projectPath, req.URL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleNavigate(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := s.browser.Navigate(requestContext(c), req.URL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleExtract(c *gin.Context) {
	var req browser.ExtractOptions
	if !bindOptional(c, &req) {
		return
	}
	content, err := s.browser.ExtractContent(requestContext(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

func (s *Server) handleLinks(c *gin.Context) {
	var req linksRequest
	if !bindOptional(c, &req) {
		return
	}
	links, err := s.browser.GetLinks(requestContext(c), req.Filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (s *Server) handleInteractive(c *gin.Context) {
	elements, err := s.browser.GetInteractive(requestContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"elements": elements})
}

func (s *Server) handleClick(c *gin.Context) {
	var req selectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := s.browser.ClickElement(requestContext(c), req.Selector)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleFill(c *gin.Context) {
	var req fillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := s.browser.FillField(requestContext(c), req.Selector, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBounds(c *gin.Context) {
	var req webview.Bounds
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.browser.SetBounds(requestContext(c), req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleVisible(c *gin.Context) {
	var req visibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.browser.SetVisible(requestContext(c), *req.Visible); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClose(c *gin.Context) {
	if err := s.browser.Close(requestContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// lockAgent prefers the body's agentId over the header.
func lockAgent(c *gin.Context) (string, bool) {
	var req lockRequest
	if !bindOptional(c, &req) {
		return "", false
	}
	if id := strings.TrimSpace(req.AgentID); id != "" {
		return id, true
	}
	return strings.TrimSpace(c.GetHeader(AgentHeader)), true
}

func (s *Server) handleLock(c *gin.Context) {
	agent, ok := lockAgent(c)
	if !ok {
		return
	}
	if err := s.browser.AcquireLock(agent); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"holder": agent})
}

func (s *Server) handleUnlock(c *gin.Context) {
	agent, ok := lockAgent(c)
	if !ok {
		return
	}
	if err := s.browser.ReleaseLock(agent); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListTools(c *gin.Context) {
	visible := s.tools.Visible()
	out := make([]gin.H, 0, len(visible))
	for _, t := range visible {
		out = append(out, gin.H{
			"name":        t.Name(),
			"description": t.Description(),
			"schema":      t.Schema(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

func (s *Server) handleToolCall(c *gin.Context) {
	var req toolCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	call, _, err := tools.ParseToolCall(req.Call)
	if err != nil {
		badRequest(c, err)
		return
	}

	output, metadata, err := s.tools.Execute(requestContext(c), call)
	if err != nil {
		status, kind := statusFor(err)
		if kind == "internal" {
			status = http.StatusUnprocessableEntity
			kind = "tool_error"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind, "metadata": metadata})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tool": call.ToolName, "output": output, "metadata": metadata})
}
