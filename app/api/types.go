package api

import (
	"newshub/app/news"
	"newshub/app/sources"
)

type Handler struct {
	aggregator  *news.Aggregator
	enricher    *news.Enricher
	recommender *news.Recommender
	prefs       news.PreferenceStore
	configs     *sources.Cache
}

type FeedbackRequest struct {
	UserID  string `json:"userId"`
	NewsURL string `json:"newsUrl"`
	Value   int    `json:"value"`
}
