package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rohmanhakim/domain-crawler/internal/metadata"
	"github.com/rohmanhakim/domain-crawler/pkg/failure"
)

type HtmlFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
}

func NewHtmlFetcher(
	metadataSink metadata.MetadataSink,
	userAgent string,
	timeout time.Duration,
) HtmlFetcher {
	return HtmlFetcher{
		metadataSink: metadataSink,
		httpClient:   &http.Client{Timeout: timeout},
		userAgent:    userAgent,
	}
}

// NewHtmlFetcherWithClient substitutes the HTTP client; useful for tests.
func NewHtmlFetcherWithClient(
	metadataSink metadata.MetadataSink,
	userAgent string,
	httpClient *http.Client,
) HtmlFetcher {
	return HtmlFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

func (h *HtmlFetcher) Fetch(ctx context.Context, rawURL string) (LinkSet, failure.ClassifiedError) {
	startTime := time.Now()

	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return nil, &FetchError{
			Message:   fmt.Sprintf("cannot fetch %q", rawURL),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if IsRetriableStatus(resp.StatusCode) {
			return nil, &FetchError{
				Message:    fmt.Sprintf("status %d for %s", resp.StatusCode, rawURL),
				Retryable:  true,
				StatusCode: resp.StatusCode,
				Cause:      ErrCauseRetriableStatus,
			}
		}
		return nil, &FetchError{
			Message:    fmt.Sprintf("status %d for %s", resp.StatusCode, rawURL),
			Retryable:  false,
			StatusCode: resp.StatusCode,
			Cause:      ErrCauseUnexpectedStatus,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return nil, &FetchError{
			Message:    fmt.Sprintf("content type %q for %s", contentType, rawURL),
			Retryable:  false,
			StatusCode: resp.StatusCode,
			Cause:      ErrCauseContentTypeInvalid,
		}
	}

	// Resolve relative hrefs against the final URL, after any redirects
	baseURL := resp.Request.URL
	links, parseErr := extractLinks(resp, baseURL)
	if parseErr != nil {
		return nil, parseErr
	}

	h.metadataSink.RecordFetch(rawURL, resp.StatusCode, time.Since(startTime), len(links))
	return links, nil
}

func extractLinks(resp *http.Response, baseURL *url.URL) (LinkSet, *FetchError) {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseBodyParseError,
		}
	}

	links := make(LinkSet)
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, ok := selection.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := baseURL.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if resolved.Host == "" {
			return
		}
		// fragments address positions within one page, not distinct pages
		resolved.Fragment = ""
		resolved.RawFragment = ""

		links[resolved.String()] = struct{}{}
	})
	return links, nil
}

func isHTMLContentType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mediaType, ";"); idx != -1 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
