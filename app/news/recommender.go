package news

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	recommendationCount = 10
	// The category-mix tier caps liked-category items so one topic never
	// starves the rest of the slate.
	likedCategoryCap = 5
)

// Recommender ranks unseen articles for a user. Quality degrades gracefully
// through three tiers as enrichment data becomes available: embedding
// similarity, then a category mix, then plain recency.
type Recommender struct {
	aggregator *Aggregator
	store      NewsStore
	prefs      PreferenceStore
}

func NewRecommender(aggregator *Aggregator, store NewsStore, prefs PreferenceStore) *Recommender {
	return &Recommender{
		aggregator: aggregator,
		store:      store,
		prefs:      prefs,
	}
}

// GetRecommendations returns up to ten summaries, most relevant first.
func (r *Recommender) GetRecommendations(ctx context.Context, userID string) ([]Summary, error) {
	allNews, err := r.aggregator.GetNews(ctx)
	if err != nil {
		return nil, err
	}

	preferences, err := r.prefs.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	var likes []Preference
	for _, pref := range preferences {
		if pref.Value > 0 {
			likes = append(likes, pref)
		}
	}

	if len(likes) == 0 {
		return takeFirst(allNews, recommendationCount), nil
	}

	var likeEmbeddings [][]float32
	for _, like := range likes {
		cached, err := r.store.GetDetail(ctx, like.NewsURL)
		if err != nil {
			continue
		}
		if cached != nil && len(cached.Embedding) > 0 {
			likeEmbeddings = append(likeEmbeddings, cached.Embedding)
		}
	}

	if len(likeEmbeddings) == 0 {
		return r.categoryMix(likes, allNews), nil
	}

	taste := averageEmbedding(likeEmbeddings)

	type scored struct {
		item  Summary
		score float64
	}
	var candidates []scored
	for _, item := range allNews {
		if isLiked(likes, item.Link) {
			continue
		}
		cached, err := r.store.GetDetail(ctx, item.Link)
		if err != nil || cached == nil {
			continue
		}
		if len(cached.Embedding) == 0 || len(cached.Embedding) != len(taste) {
			continue
		}
		candidates = append(candidates, scored{item: item, score: cosineSimilarity(taste, cached.Embedding)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	best := make([]Summary, 0, recommendationCount)
	for _, c := range candidates {
		if len(best) >= recommendationCount {
			break
		}
		best = append(best, c.item)
	}

	if len(best) == 0 {
		return takeFirst(allNews, recommendationCount), nil
	}
	return best, nil
}

// categoryMix is the middle fallback tier, used when likes exist but no
// embeddings do (provider unconfigured, or all liked articles pre-date
// enrichment): a few items from liked categories padded out with other
// categories to keep the slate diverse.
func (r *Recommender) categoryMix(likes []Preference, allNews []Summary) []Summary {
	likedCategories := make(map[string]bool)
	for _, like := range likes {
		for _, item := range allNews {
			if strings.EqualFold(item.Link, like.NewsURL) && item.Category != "" {
				likedCategories[strings.ToLower(item.Category)] = true
			}
		}
	}

	if len(likedCategories) == 0 {
		return takeFirst(allNews, recommendationCount)
	}

	mixed := make([]Summary, 0, recommendationCount)
	for _, item := range allNews {
		if len(mixed) >= likedCategoryCap {
			break
		}
		if likedCategories[strings.ToLower(item.Category)] && !isLiked(likes, item.Link) {
			mixed = append(mixed, item)
		}
	}

	for _, item := range allNews {
		if len(mixed) >= recommendationCount {
			break
		}
		if !likedCategories[strings.ToLower(item.Category)] && !isLiked(likes, item.Link) {
			mixed = append(mixed, item)
		}
	}

	return mixed
}

func isLiked(likes []Preference, link string) bool {
	for _, like := range likes {
		if strings.EqualFold(like.NewsURL, link) {
			return true
		}
	}
	return false
}

func takeFirst(items []Summary, n int) []Summary {
	if len(items) > n {
		items = items[:n]
	}
	result := make([]Summary, len(items))
	copy(result, items)
	return result
}

// averageEmbedding is the component-wise mean, the user's taste vector.
// The first embedding fixes the expected length; embeddings of any other
// length are skipped rather than partially folded in.
func averageEmbedding(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}

	length := len(embeddings[0])
	result := make([]float32, length)
	count := 0
	for _, embedding := range embeddings {
		if len(embedding) != length {
			continue
		}
		for i := range embedding {
			result[i] += embedding[i]
		}
		count++
	}
	for i := range result {
		result[i] /= float32(count)
	}
	return result
}

// cosineSimilarity is zero when either vector has zero norm or the lengths
// differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
