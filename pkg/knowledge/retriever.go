package knowledge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/parley/pkg/embedders"
	"github.com/kadirpekel/parley/pkg/vector"
)

const (
	// DefaultMaxResults caps similarity search hits per retrieval.
	DefaultMaxResults = 5

	// SimilarityFloor drops weak matches.
	SimilarityFloor = 0.5

	// MaxFallbackSources bounds live fetches of unindexed sources.
	MaxFallbackSources = 3

	// FallbackFetchTimeout bounds each live fetch.
	FallbackFetchTimeout = 5 * time.Second

	// FallbackContentLimit truncates fetched page text.
	FallbackContentLimit = 2000
)

// RetrievalError wraps failures inside the retriever with enough context to
// diagnose them from logs.
type RetrievalError struct {
	Operation string
	Query     string
	Err       error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("[knowledge:%s] (query: %q): %v", e.Operation, e.Query, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Retriever turns a query into ranked context snippets via vector search,
// with a best-effort live fetch of unindexed sources as fallback.
type Retriever struct {
	store    vector.Provider
	embedder embedders.Provider
	fetcher  *http.Client
}

// NewRetriever creates a retriever over the given store and embedder.
func NewRetriever(store vector.Provider, embedder embedders.Provider) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	return &Retriever{
		store:    store,
		embedder: embedder,
		fetcher:  &http.Client{Timeout: FallbackFetchTimeout},
	}, nil
}

// collectionFor scopes indexed knowledge per agent.
func collectionFor(agentID string) string {
	return "kb_" + agentID
}

// Index embeds and stores one knowledge document for an agent.
func (r *Retriever) Index(ctx context.Context, agentID, docID, content string) error {
	if content == "" {
		return &RetrievalError{Operation: "Index", Err: fmt.Errorf("content cannot be empty")}
	}

	vec, err := r.embedder.Embed(ctx, content)
	if err != nil {
		return &RetrievalError{Operation: "Index", Err: err}
	}

	metadata := map[string]any{
		"content":     content,
		"agent_id":    agentID,
		"ingested_at": time.Now().Unix(),
	}

	if err := r.store.Upsert(ctx, collectionFor(agentID), docID, vec, metadata); err != nil {
		return &RetrievalError{Operation: "Index", Err: err}
	}

	return nil
}

// Retrieve returns up to max formatted snippets for the query, ordered by
// descending similarity. An embedding failure returns nil immediately;
// callers treat empty as "fall through to the next strategy", never as an
// error.
func (r *Retriever) Retrieve(ctx context.Context, agentID, query string, max int) []string {
	if max <= 0 {
		max = DefaultMaxResults
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		slog.Debug("Knowledge embedding failed, skipping retrieval",
			"agent", agentID,
			"error", err)
		return nil
	}

	results, err := r.store.Search(ctx, collectionFor(agentID), vec, max)
	if err != nil {
		slog.Debug("Knowledge search failed",
			"agent", agentID,
			"error", err)
		return nil
	}

	snippets := make([]string, 0, len(results))
	for _, res := range results {
		if res.Score < SimilarityFloor {
			continue
		}
		percent := int(math.Round(float64(res.Score) * 100))
		snippets = append(snippets, fmt.Sprintf("[Relevance: %d%%]\n%s", percent, res.Content))
	}

	return snippets
}

// FetchUnindexed fetches up to MaxFallbackSources URLs concurrently and
// returns their readable text. Sources that fail or serve non-text content
// are silently dropped; one failure never cancels the others.
func (r *Retriever) FetchUnindexed(ctx context.Context, urls []string) []string {
	if len(urls) > MaxFallbackSources {
		urls = urls[:MaxFallbackSources]
	}

	results := make([]string, len(urls))
	var wg sync.WaitGroup

	for i, sourceURL := range urls {
		wg.Add(1)
		go func(i int, sourceURL string) {
			defer wg.Done()

			text, err := r.fetchReadable(ctx, sourceURL)
			if err != nil {
				slog.Debug("Fallback source fetch failed",
					"url", sourceURL,
					"error", err)
				return
			}
			results[i] = text
		}(i, sourceURL)
	}

	wg.Wait()

	// Preserve source order, dropping failures
	out := make([]string, 0, len(results))
	for _, text := range results {
		if text != "" {
			out = append(out, text)
		}
	}

	return out
}

func (r *Retriever) fetchReadable(ctx context.Context, sourceURL string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, FallbackFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.fetcher.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/") &&
		!strings.Contains(contentType, "json") {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	text := StripMarkup(string(body))
	if text == "" {
		return "", fmt.Errorf("no readable text")
	}

	if len(text) > FallbackContentLimit {
		text = text[:FallbackContentLimit]
	}

	return text, nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]+>`)
)

// StripMarkup removes script/style blocks and all remaining tags, then
// collapses whitespace.
func StripMarkup(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
