package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"CoinPilot/internal/domain/models"
	domsvc "CoinPilot/internal/domain/service"
	"CoinPilot/internal/service/cache"
	"CoinPilot/pkg/config"
	xhttp "CoinPilot/pkg/http"
)

// Learned classifies regimes through the external model service. Responses
// are cached per feature vector with a short TTL so dashboard refreshes do
// not multiply inference calls. Any failure returns an error; the caller
// falls back to the rule-based variant.
type Learned struct {
	baseURL  string
	client   *xhttp.Client
	cache    cache.BytesCache
	cacheTTL time.Duration
}

func NewLearned(cfg *config.Config, bc cache.BytesCache) *Learned {
	timeout := cfg.Model.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Learned{
		baseURL:  cfg.Model.ServiceURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cache:    bc,
		cacheTTL: cfg.Model.CacheTTL,
	}
}

type classifyRequest struct {
	Features map[string]float64 `json:"features"`
}

type classifyResponse struct {
	Code       int     `json:"code"`
	Confidence float64 `json:"confidence"`
}

func (l *Learned) Classify(ctx context.Context, candles []models.Candle, ind *models.IndicatorSnapshot) (models.MarketCondition, error) {
	if l.baseURL == "" {
		return models.MarketCondition{}, fmt.Errorf("model service not configured")
	}

	req := classifyRequest{Features: ExtractFeatures(candles, ind)}
	key := l.cacheKey(candles, req.Features)

	var cr classifyResponse
	if l.lookup(key, &cr) {
		return l.toCondition(cr), nil
	}

	err := l.postJSON(ctx, "/market/classify", req, &cr)
	if err != nil {
		return models.MarketCondition{}, fmt.Errorf("classify: %w", err)
	}

	l.store(key, cr)
	return l.toCondition(cr), nil
}

// Reload asks the model service to pick up a freshly trained model and
// drops any cached predictions from the previous one.
func (l *Learned) Reload(ctx context.Context) error {
	if l.baseURL == "" {
		return fmt.Errorf("model service not configured")
	}
	if err := l.postJSON(ctx, "/model/reload", struct{}{}, nil); err != nil {
		return fmt.Errorf("model reload: %w", err)
	}
	return nil
}

func (l *Learned) toCondition(cr classifyResponse) models.MarketCondition {
	return models.MarketCondition{
		Condition:  ConditionName(cr.Code),
		Confidence: cr.Confidence,
		Code:       cr.Code,
	}
}

func (l *Learned) postJSON(ctx context.Context, path string, payload, dest interface{}) error {
	return l.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     l.baseURL + path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, dest)
}

func (l *Learned) cacheKey(candles []models.Candle, features map[string]float64) string {
	b, _ := json.Marshal(features)
	h := fnv.New64a()
	_, _ = h.Write(b)
	var last int64
	if len(candles) > 0 {
		last = candles[len(candles)-1].Timestamp.Unix()
	}
	return fmt.Sprintf("classify:%d:%x", last, h.Sum64())
}

func (l *Learned) lookup(key string, dest *classifyResponse) bool {
	if l.cache == nil {
		return false
	}
	b, ok, err := l.cache.GetBytes(key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

func (l *Learned) store(key string, cr classifyResponse) {
	if l.cache == nil || l.cacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(cr)
	if err != nil {
		return
	}
	_ = l.cache.SetBytes(key, b, l.cacheTTL)
}

var (
	_ domsvc.MarketClassifier = (*Learned)(nil)
	_ domsvc.ModelAdmin       = (*Learned)(nil)
)
