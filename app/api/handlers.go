package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"newshub/app/news"
	"newshub/app/sources"
)

const (
	defaultTake = 20
	maxTake     = 50
)

func NewHandler(aggregator *news.Aggregator, enricher *news.Enricher,
	recommender *news.Recommender, prefs news.PreferenceStore,
	configs *sources.Cache) *Handler {
	return &Handler{
		aggregator:  aggregator,
		enricher:    enricher,
		recommender: recommender,
		prefs:       prefs,
		configs:     configs,
	}
}

// GetNews serves the paginated, filterable listing. Upstream problems never
// surface here: worst case is stale or partial data with a 200.
func (h *Handler) GetNews(c *gin.Context) {
	skip, err := parseIntParam(c, "skip", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be an integer"})
		return
	}
	take, err := parseIntParam(c, "take", defaultTake)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "take must be an integer"})
		return
	}

	if skip < 0 {
		skip = 0
	}
	if take < 1 {
		take = 1
	}
	if take > maxTake {
		take = maxTake
	}

	items, err := h.aggregator.GetNews(c.Request.Context())
	if err != nil {
		slog.Warn("Aggregation aborted", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filtered := make([]news.Summary, 0, len(items))
		for _, item := range items {
			if strings.EqualFold(item.Category, category) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		needle := strings.ToLower(q)
		filtered := make([]news.Summary, 0, len(items))
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Title), needle) ||
				strings.Contains(strings.ToLower(item.Source), needle) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	page := paginate(items, skip, take)
	h.enricher.PopulateThumbnails(c.Request.Context(), page)

	c.Header("X-Total-Count", strconv.Itoa(len(items)))
	c.Header("X-Skip", strconv.Itoa(skip))
	c.Header("X-Take", strconv.Itoa(take))

	c.JSON(http.StatusOK, page)
}

// GetNewsDetail serves one article detail. The URL arrives base64-encoded;
// only a malformed encoding produces an error response.
func (h *Handler) GetNewsDetail(c *gin.Context) {
	encoded := c.Query("url")
	if encoded == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}

	url, err := decodeBase64URL(encoded)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url encoding"})
		return
	}

	detail, err := h.enricher.GetDetail(c.Request.Context(), url)
	if err != nil {
		slog.Warn("Detail fetch aborted", "url", url, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) PostFeedback(c *gin.Context) {
	var request FeedbackRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if strings.TrimSpace(request.UserID) == "" || strings.TrimSpace(request.NewsURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and newsUrl are required"})
		return
	}

	if request.Value != 1 && request.Value != -1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be 1 (like) or -1 (dislike)"})
		return
	}

	pref := news.Preference{
		UserID:  request.UserID,
		NewsURL: request.NewsURL,
		Value:   request.Value,
	}

	if err := h.prefs.Save(c.Request.Context(), pref); err != nil {
		slog.Error("Failed to save preference", "user", request.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId parameter is required"})
		return
	}

	recommendations, err := h.recommender.GetRecommendations(c.Request.Context(), userID)
	if err != nil {
		slog.Error("Recommendation error", "user", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build recommendations"})
		return
	}

	if recommendations == nil {
		recommendations = []news.Summary{}
	}
	c.JSON(http.StatusOK, recommendations)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.configs.GetConfigCount(),
	}

	if cached, err := h.aggregator.CachedList(c.Request.Context()); err == nil && cached != nil {
		health["cached_items"] = len(cached.Items)
		health["list_fetched_at"] = cached.FetchedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

func paginate(items []news.Summary, skip, take int) []news.Summary {
	if skip >= len(items) {
		return []news.Summary{}
	}
	end := skip + take
	if end > len(items) {
		end = len(items)
	}

	page := make([]news.Summary, end-skip)
	copy(page, items[skip:end])
	return page
}

func parseIntParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
