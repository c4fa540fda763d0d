package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ibeckermayer/autobip/internal/app"
	"github.com/ibeckermayer/autobip/internal/types"
)

// API registers the endpoints under path
func (s *Server) API(router *gin.Engine, path string) {
	router.GET("/healthz", s.handleHealth)

	api := router.Group(path)

	api.GET("/activities", s.handleActivityList)
	api.POST("/activities", s.handleActivityImport)
	api.POST("/activities/:id/toggle", s.handleActivityToggle)

	api.GET("/drafts", s.handleDraftList)
	api.POST("/drafts/generate", s.handleDraftGenerate)
	api.POST("/drafts/research", s.handleDraftResearch)
	api.GET("/drafts/active", s.handleDraftActive)
	api.GET("/drafts/:id", s.handleDraftGet)
	api.PUT("/drafts/:id", s.handleDraftUpdate)
	api.PATCH("/drafts/:id", s.handleDraftEdit)
	api.POST("/drafts/:id/select", s.handleDraftSelect)
	api.POST("/drafts/:id/publish", s.handleDraftPublish)
	api.POST("/drafts/:id/enhance", s.handleDraftEnhance)
	api.POST("/drafts/:id/image", s.handleDraftImage)
	api.DELETE("/drafts/:id/image", s.handleDraftImageRemove)
	api.GET("/drafts/:id/preview", s.handleDraftPreview)

	api.GET("/notifications", s.handleNotificationList)
	api.POST("/notifications/detect", s.handleNotificationDetect)
	api.POST("/notifications/:id/act", s.handleNotificationAct)
	api.DELETE("/notifications/:id", s.handleNotificationDismiss)
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"message": message, "code": code})
}

// respondStoreError maps App input errors to status codes
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrDraftNotFound), errors.Is(err, app.ErrNotificationNotFound):
		respondError(c, 404, err.Error())
	case errors.Is(err, app.ErrNoActivities):
		respondError(c, 400, err.Error())
	case errors.Is(err, app.ErrInvalidTransition):
		respondError(c, 409, err.Error())
	default:
		respondError(c, 500, err.Error())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) handleActivityList(c *gin.Context) {
	c.JSON(200, gin.H{"data": s.app.Activities()})
}

type importRequest struct {
	Activities []types.Activity `json:"activities"`
}

func (s *Server) handleActivityImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, 400, err.Error())
		return
	}
	if len(req.Activities) == 0 {
		respondError(c, 400, "activities is required")
		return
	}
	c.JSON(201, gin.H{"data": s.app.ImportActivities(req.Activities)})
}

func (s *Server) handleActivityToggle(c *gin.Context) {
	if !s.app.ToggleActivitySelection(c.Param("id")) {
		respondError(c, 404, "activity not found")
		return
	}
	c.JSON(200, gin.H{"data": s.app.Activities()})
}

func (s *Server) handleDraftList(c *gin.Context) {
	tab := strings.ToUpper(strings.TrimSpace(c.Query("tab")))
	if tab == "" {
		c.JSON(200, gin.H{"data": s.app.Drafts()})
		return
	}
	c.JSON(200, gin.H{"data": s.app.VisibleDrafts(types.Tab(tab))})
}

type generateRequest struct {
	IDs      []string              `json:"ids"`
	Strategy types.ContentStrategy `json:"strategy"`
}

func (s *Server) handleDraftGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, 400, err.Error())
		return
	}
	switch req.Strategy {
	case "":
		req.Strategy = types.StrategyStandardUpdate
	case types.StrategyStandardUpdate, types.StrategyBuildInPublic:
	default:
		respondError(c, 400, "unknown strategy "+string(req.Strategy))
		return
	}

	d, err := s.app.GenerateDraftFromSelection(c.Request.Context(), req.IDs, req.Strategy)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(201, gin.H{"data": d})
}

type researchRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleDraftResearch(c *gin.Context) {
	var req researchRequest
	// an empty body researches the default topic
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, 400, err.Error())
			return
		}
	}
	c.JSON(201, gin.H{"data": s.app.ResearchTrend(c.Request.Context(), req.Topic)})
}

func (s *Server) handleDraftActive(c *gin.Context) {
	d, ok := s.app.ActiveDraft()
	if !ok {
		respondError(c, 404, "no active draft")
		return
	}
	c.JSON(200, gin.H{"data": d})
}

func (s *Server) handleDraftGet(c *gin.Context) {
	d, err := s.app.Draft(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(200, gin.H{"data": d})
}

func (s *Server) handleDraftUpdate(c *gin.Context) {
	var d types.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		respondError(c, 400, err.Error())
		return
	}
	d.ID = c.Param("id")
	if d.Status != "" && !d.Status.Valid() {
		respondError(c, 400, "unknown status "+string(d.Status))
		return
	}

	if err := s.app.UpdateDraft(d); err != nil {
		respondStoreError(c, err)
		return
	}
	s.handleDraftGet(c)
}

type editRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

func (s *Server) handleDraftEdit(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, 400, err.Error())
		return
	}

	id := c.Param("id")
	d, err := s.app.Draft(id)
	if req.Title != nil {
		d, err = s.app.UpdateDraftTitle(id, *req.Title)
	}
	if err == nil && req.Body != nil {
		d, err = s.app.UpdateDraftBody(id, *req.Body)
	}
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(200, gin.H{"data": d})
}

func (s *Server) handleDraftSelect(c *gin.Context) {
	if err := s.app.SelectDraft(c.Param("id")); err != nil {
		respondStoreError(c, err)
		return
	}
	s.handleDraftGet(c)
}

func (s *Server) handleDraftPublish(c *gin.Context) {
	if !s.app.PublishDraft(c.Param("id")) {
		respondStoreError(c, app.ErrDraftNotFound)
		return
	}
	s.handleDraftGet(c)
}

type enhanceRequest struct {
	Instruction string `json:"instruction"`
}

func (s *Server) handleDraftEnhance(c *gin.Context) {
	var req enhanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, 400, err.Error())
			return
		}
	}

	d, err := s.app.EnhanceDraft(c.Request.Context(), c.Param("id"), req.Instruction)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(200, gin.H{"data": d})
}

type imageRequest struct {
	Size types.ImageSize `json:"size"`
}

func (s *Server) handleDraftImage(c *gin.Context) {
	var req imageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, 400, err.Error())
			return
		}
	}
	if req.Size == "" {
		req.Size = types.ImageSize1K
	}
	if !req.Size.Valid() {
		respondError(c, 400, "size must be one of 1K, 2K, 4K")
		return
	}

	d, err := s.app.GenerateDraftImage(c.Request.Context(), c.Param("id"), req.Size)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(200, gin.H{"data": d})
}

func (s *Server) handleDraftImageRemove(c *gin.Context) {
	d, err := s.app.RemoveDraftImage(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(200, gin.H{"data": d})
}

func (s *Server) handleDraftPreview(c *gin.Context) {
	d, err := s.app.Draft(c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	p, err := s.preview.Build(d)
	if err != nil {
		respondError(c, 500, err.Error())
		return
	}
	c.Data(200, "text/html; charset=utf-8", []byte(p.HTMLBody))
}

func (s *Server) handleNotificationList(c *gin.Context) {
	c.JSON(200, gin.H{"data": s.app.Notifications()})
}

type detectRequest struct {
	Industry string `json:"industry"`
}

func (s *Server) handleNotificationDetect(c *gin.Context) {
	var req detectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, 400, err.Error())
			return
		}
	}
	added := s.app.DetectTrends(c.Request.Context(), req.Industry)
	c.JSON(200, gin.H{"added": added, "data": s.app.Notifications()})
}

func (s *Server) handleNotificationAct(c *gin.Context) {
	d, err := s.app.ActOnNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(201, gin.H{"data": d})
}

func (s *Server) handleNotificationDismiss(c *gin.Context) {
	if !s.app.DismissNotification(c.Param("id")) {
		respondStoreError(c, app.ErrNotificationNotFound)
		return
	}
	c.JSON(200, gin.H{"data": s.app.Notifications()})
}
