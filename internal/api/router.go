package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ime-hub/postscrape/internal/storage"
)

// Store is the read side the API serves from.
type Store interface {
	ListPosts(postType string, limit int, date string) ([]storage.IndexedPost, error)
	ListDates(limit int) ([]string, error)
}

type Server struct {
	store   Store
	trigger func()
}

// NewServer wires the read store and an optional manual collection trigger.
func NewServer(store Store, trigger func()) *Server {
	return &Server{store: store, trigger: trigger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/posts", s.listPosts)
		v1.GET("/posts/dates", s.listDates)
		v1.POST("/collect", s.collectNow)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listPosts(c *gin.Context) {
	postType := c.Query("type")
	date := c.Query("date")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	items, err := s.store.ListPosts(postType, limit, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listDates(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "31"))
	if err != nil || limit <= 0 {
		limit = 31
	}

	dates, err := s.store.ListDates(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    dates,
	})
}

// collectNow kicks off a collection round in the background.
func (s *Server) collectNow(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "unavailable",
			"message": "collection trigger not configured",
		})
		return
	}
	go s.trigger()
	c.JSON(http.StatusAccepted, gin.H{
		"code":    "ok",
		"message": "collection started",
	})
}
