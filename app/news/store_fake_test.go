package news

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memStore is an in-memory NewsStore/PreferenceStore used across the package
// tests. Counters expose how often the caches were written.
type memStore struct {
	mu          sync.Mutex
	list        *CachedList
	details     map[string]CachedDetail
	preferences []Preference

	listWrites   int
	detailWrites int
}

func newMemStore() *memStore {
	return &memStore{details: make(map[string]CachedDetail)}
}

func (m *memStore) GetLatestList(ctx context.Context) (*CachedList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.list == nil {
		return nil, nil
	}
	entry := *m.list
	return &entry, nil
}

func (m *memStore) SaveLatestList(ctx context.Context, items []Summary, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = &CachedList{FetchedAt: fetchedAt, Items: items}
	m.listWrites++
	return nil
}

func (m *memStore) GetDetail(ctx context.Context, url string) (*CachedDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.details[strings.ToLower(url)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (m *memStore) GetDetails(ctx context.Context, urls []string) (map[string]CachedDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]CachedDetail)
	for _, u := range urls {
		if entry, ok := m.details[strings.ToLower(u)]; ok {
			result[strings.ToLower(u)] = entry
		}
	}
	return result, nil
}

func (m *memStore) SaveDetail(ctx context.Context, url string, detail Detail, fetchedAt time.Time, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[strings.ToLower(url)] = CachedDetail{FetchedAt: fetchedAt, Detail: detail, Embedding: embedding}
	m.detailWrites++
	return nil
}

func (m *memStore) Save(ctx context.Context, pref Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.preferences {
		if strings.EqualFold(m.preferences[i].UserID, pref.UserID) &&
			strings.EqualFold(m.preferences[i].NewsURL, pref.NewsURL) {
			m.preferences[i].Value = pref.Value
			m.preferences[i].CreatedAt = time.Now().UTC()
			return nil
		}
	}
	pref.CreatedAt = time.Now().UTC()
	m.preferences = append(m.preferences, pref)
	return nil
}

func (m *memStore) GetByUser(ctx context.Context, userID string) ([]Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Preference
	for _, pref := range m.preferences {
		if strings.EqualFold(pref.UserID, userID) {
			result = append(result, pref)
		}
	}
	return result, nil
}
