package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"tiktok-scraper/internal/database"
	"tiktok-scraper/internal/database/models"
)

type Server struct {
	db     *database.DB
	logger *logrus.Logger
	port   string
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Count   int         `json:"count,omitempty"`
}

type CommentsResponse struct {
	Comments   []*models.Comment `json:"comments"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

func NewServer(db *database.DB, logger *logrus.Logger, port string) *Server {
	return &Server{
		db:     db,
		logger: logger,
		port:   port,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()
	s.logger.Infof("Starting API server on port %s", s.port)
	return http.ListenAndServe(":"+s.port, nil)
}

func (s *Server) setupRoutes() {
	// Enable CORS
	http.HandleFunc("/", s.corsMiddleware(s.handleRoot))
	http.HandleFunc("/api/comments", s.corsMiddleware(s.handleComments))
	http.HandleFunc("/api/comments/video/", s.corsMiddleware(s.handleCommentsByVideo))
	http.HandleFunc("/api/videos/user/", s.corsMiddleware(s.handleVideosByUser))
	http.HandleFunc("/api/stats", s.corsMiddleware(s.handleStats))
	http.HandleFunc("/api/health", s.corsMiddleware(s.handleHealth))
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := APIResponse{
		Success: true,
		Data: map[string]string{
			"message":   "TikTok Scraper API",
			"version":   "1.0.0",
			"endpoints": "/api/comments, /api/comments/video/{id}, /api/videos/user/{username}, /api/stats, /api/health",
		},
	}
	s.writeJSON(w, response)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	minLikes, _ := strconv.Atoi(r.URL.Query().Get("min_likes"))
	if minLikes < 0 {
		minLikes = 0
	}

	comments, err := s.db.GetCommentsWithPagination(page, pageSize, minLikes)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch comments: %v", err), http.StatusInternalServerError)
		return
	}

	totalCount, err := s.db.GetCommentsCount(minLikes)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to get total count: %v", err), http.StatusInternalServerError)
		return
	}

	response := APIResponse{
		Success: true,
		Data: CommentsResponse{
			Comments:   comments,
			TotalCount: totalCount,
			Page:       page,
			PageSize:   pageSize,
		},
		Count: len(comments),
	}

	s.writeJSON(w, response)
}

func (s *Server) handleCommentsByVideo(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Path[len("/api/comments/video/"):]
	if videoID == "" {
		s.writeError(w, "Video ID is required", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	comments, err := s.db.GetCommentsByVideo(videoID, limit)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch comments for video: %v", err), http.StatusInternalServerError)
		return
	}

	response := APIResponse{
		Success: true,
		Data:    comments,
		Count:   len(comments),
	}

	s.writeJSON(w, response)
}

func (s *Server) handleVideosByUser(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Path[len("/api/videos/user/"):]
	if username == "" {
		s.writeError(w, "Username is required", http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	videos, err := s.db.GetVideosByUser(username, limit)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch videos for user: %v", err), http.StatusInternalServerError)
		return
	}

	response := APIResponse{
		Success: true,
		Data:    videos,
		Count:   len(videos),
	}

	s.writeJSON(w, response)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetScrapingStats()
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to fetch stats: %v", err), http.StatusInternalServerError)
		return
	}

	response := APIResponse{
		Success: true,
		Data:    stats,
	}

	s.writeJSON(w, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Check database connection
	if err := s.db.Ping(); err != nil {
		s.writeError(w, "Database connection failed", http.StatusServiceUnavailable)
		return
	}

	response := APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"database":  "connected",
		},
	}

	s.writeJSON(w, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	json.NewEncoder(w).Encode(response)
}
