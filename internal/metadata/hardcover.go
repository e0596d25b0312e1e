// file: internal/metadata/hardcover.go
// version: 2.0.0
// guid: e7e02554-8931-49ba-9528-d3d51279da1d

package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jdfalk/hardcover-provider/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultSearchURL  = "https://search.hardcover.app/multi_search"
	DefaultSearchKey  = "cf0jYiqkIXNYh2EnJr1RqHIYJbKOGoGk"
	DefaultGraphQLURL = "https://api.hardcover.app/v1/graphql"
	DefaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

	searchCollection = "Book_production"
	editionsLimit    = 25
	maxErrorBody     = 2048
)

// HardcoverOptions configures a HardcoverClient. Zero values use the public endpoints.
type HardcoverOptions struct {
	SearchURL         string
	SearchKey         string
	GraphQLURL        string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute int
}

// HardcoverClient resolves a query against the Hardcover typesense index and then
// fetches matching editions from the GraphQL API.
type HardcoverClient struct {
	httpClient *http.Client
	searchURL  string
	searchKey  string
	graphqlURL string
	userAgent  string
	limiter    *rate.Limiter
}

// NewHardcoverClient creates a client. Outbound calls are throttled to RequestsPerMinute.
func NewHardcoverClient(opts HardcoverOptions) *HardcoverClient {
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.SearchKey == "" {
		opts.SearchKey = DefaultSearchKey
	}
	if opts.GraphQLURL == "" {
		opts.GraphQLURL = DefaultGraphQLURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	return &HardcoverClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		searchURL:  strings.TrimRight(opts.SearchURL, "/"),
		searchKey:  opts.SearchKey,
		graphqlURL: strings.TrimRight(opts.GraphQLURL, "/"),
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.RequestsPerMinute),
	}
}

// Name returns the display name for this metadata source.
func (c *HardcoverClient) Name() string {
	return "Hardcover"
}

// Search finds books for q and returns one match per edition, best author match first.
// token authorizes the GraphQL call. ErrNoResults is returned when no book qualifies.
func (c *HardcoverClient) Search(ctx context.Context, q Query, token string) ([]BookMetadata, error) {
	docs, err := c.searchBooks(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	ids := rankByAuthor(docs, q.Author)
	if len(ids) == 0 {
		return nil, ErrNoResults
	}
	log.Printf("[DEBUG] Hardcover: %d of %d search hits kept for %q", len(ids), len(docs), q.Text)

	books, err := c.findEditions(ctx, ids, q, token)
	if err != nil {
		return nil, err
	}
	return editionsToMetadata(books), nil
}

// Typesense multi_search types

type multiSearchRequest struct {
	Searches []typesenseSearch `json:"searches"`
}

type typesenseSearch struct {
	PerPage              int    `json:"per_page"`
	PrioritizeExactMatch bool   `json:"prioritize_exact_match"`
	NumTypos             int    `json:"num_typos"`
	QueryBy              string `json:"query_by"`
	SortBy               string `json:"sort_by"`
	QueryByWeights       string `json:"query_by_weights"`
	Collection           string `json:"collection"`
	Q                    string `json:"q"`
	Page                 int    `json:"page"`
}

type multiSearchResponse struct {
	Results []struct {
		Hits []struct {
			Document searchDocument `json:"document"`
		} `json:"hits"`
	} `json:"results"`
}

type searchDocument struct {
	ID          flexibleID `json:"id"`
	Title       string     `json:"title"`
	AuthorNames []string   `json:"author_names"`
}

// flexibleID decodes a book id sent either as a JSON number or a numeric string.
type flexibleID int

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid book id %s: %w", b, err)
	}
	*f = flexibleID(n)
	return nil
}

func (c *HardcoverClient) searchBooks(ctx context.Context, text string) ([]searchDocument, error) {
	body := multiSearchRequest{Searches: []typesenseSearch{{
		PerPage:              30,
		PrioritizeExactMatch: true,
		NumTypos:             5,
		QueryBy:              "title,isbns,series_names,author_names,alternative_titles",
		SortBy:               "users_count:desc,_text_match:desc",
		QueryByWeights:       "5,5,3,2,1",
		Collection:           searchCollection,
		Q:                    text,
		Page:                 1,
	}}}

	endpoint := c.searchURL + "?x-typesense-api-key=" + c.searchKey
	var resp multiSearchResponse
	if err := c.postJSON(ctx, "search", endpoint, "", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	hits := resp.Results[0].Hits
	docs := make([]searchDocument, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.Document)
	}
	return docs, nil
}

// GraphQL editions query

const findEditionsQuery = `query FindEditionsForBook($bookId: [Int!]!, $limit: Int!, $offset: Int!, $formats: [Int!]!%s) {
  books(where: { id: { _in: $bookId } }, limit: 10, order_by: { users_count: desc }) {
    id
    title
    description
    contributions { author { name } }
    taggings { tag { tag } }
    book_series { position series { name } }
    editions(
      where: { book_id: { _in: $bookId }, reading_format_id: { _in: $formats }%s }
      order_by: { users_count: desc }
      limit: $limit
      offset: $offset
    ) {
      id
      title
      subtitle
      asin
      isbn13: isbn_13
      releaseYear: release_year
      description
      audioSeconds: audio_seconds
      cachedImage: cached_image
      language { language code2 }
      contributions { author { name } }
      publisher { id name }
    }
  }
}`

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data *struct {
		Books []hardcoverBook `json:"books"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type contribution struct {
	Author *struct {
		Name string `json:"name"`
	} `json:"author"`
}

type hardcoverBook struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Contributions []contribution `json:"contributions"`
	Taggings      []struct {
		Tag *struct {
			Tag string `json:"tag"`
		} `json:"tag"`
	} `json:"taggings"`
	BookSeries []struct {
		Position *float64 `json:"position"`
		Series   *struct {
			Name string `json:"name"`
		} `json:"series"`
	} `json:"book_series"`
	Editions []hardcoverEdition `json:"editions"`
}

type hardcoverEdition struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	ASIN         string `json:"asin"`
	ISBN13       string `json:"isbn13"`
	ReleaseYear  *int   `json:"releaseYear"`
	Description  string `json:"description"`
	AudioSeconds *int   `json:"audioSeconds"`
	CachedImage  *struct {
		URL string `json:"url"`
	} `json:"cachedImage"`
	Language *struct {
		Language string `json:"language"`
		Code2    string `json:"code2"`
	} `json:"language"`
	Contributions []contribution `json:"contributions"`
	Publisher     *struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

func (c *HardcoverClient) findEditions(ctx context.Context, ids []int, q Query, token string) ([]hardcoverBook, error) {
	vars := map[string]any{
		"bookId":  ids,
		"formats": q.Formats(),
		"limit":   editionsLimit,
		"offset":  0,
	}
	langDecl, langFilter := "", ""
	if code := q.LanguageCode(); code != "" {
		langDecl = ", $lang: String!"
		langFilter = ", language: { code2: { _eq: $lang } }"
		vars["lang"] = code
	}

	body := graphQLRequest{
		Query:         fmt.Sprintf(findEditionsQuery, langDecl, langFilter),
		OperationName: "FindEditionsForBook",
		Variables:     vars,
	}

	var resp graphQLResponse
	if err := c.postJSON(ctx, "graphql", c.graphqlURL, token, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: Hardcover GraphQL error: %s", ErrUpstream, resp.Errors[0].Message)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: Hardcover GraphQL response has no data", ErrUpstream)
	}
	return resp.Data.Books, nil
}

func editionsToMetadata(books []hardcoverBook) []BookMetadata {
	matches := make([]BookMetadata, 0)
	for _, book := range books {
		tags := make([]string, 0, len(book.Taggings))
		for _, t := range book.Taggings {
			if t.Tag != nil && t.Tag.Tag != "" {
				tags = append(tags, t.Tag.Tag)
			}
		}
		series := make([]SeriesMetadata, 0, len(book.BookSeries))
		for _, s := range book.BookSeries {
			if s.Series == nil || s.Series.Name == "" {
				continue
			}
			entry := SeriesMetadata{Series: s.Series.Name}
			if s.Position != nil {
				entry.Sequence = strconv.FormatFloat(*s.Position, 'f', -1, 64)
			}
			series = append(series, entry)
		}

		for _, ed := range book.Editions {
			authors := authorNames(ed.Contributions)
			if len(authors) == 0 {
				authors = authorNames(book.Contributions)
			}
			m := BookMetadata{
				Title:       firstNonEmpty(ed.Title, book.Title),
				Subtitle:    ed.Subtitle,
				Author:      strings.Join(authors, ", "),
				Description: firstNonEmpty(ed.Description, book.Description),
				ISBN:        ed.ISBN13,
				ASIN:        ed.ASIN,
				Tags:        tags,
				Series:      series,
			}
			if ed.Publisher != nil {
				m.Publisher = ed.Publisher.Name
			}
			if ed.ReleaseYear != nil {
				m.PublishedYear = strconv.Itoa(*ed.ReleaseYear)
			}
			if ed.CachedImage != nil {
				m.Cover = ed.CachedImage.URL
			}
			if ed.Language != nil {
				m.Language = ed.Language.Language
			}
			if ed.AudioSeconds != nil && *ed.AudioSeconds > 0 {
				m.Duration = *ed.AudioSeconds / 60
			}
			matches = append(matches, m)
		}
	}
	return matches
}

func authorNames(contribs []contribution) []string {
	names := make([]string, 0, len(contribs))
	for _, c := range contribs {
		if c.Author != nil && c.Author.Name != "" {
			names = append(names, c.Author.Name)
		}
	}
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// postJSON throttles, sends body as JSON and decodes a 200 response into out.
func (c *HardcoverClient) postJSON(ctx context.Context, call, endpoint, token string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("hardcover throttle: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal Hardcover %s request: %w", call, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create Hardcover %s request: %w", call, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveUpstream(call, time.Since(start))
	if err != nil {
		metrics.IncUpstreamError(call)
		return fmt.Errorf("%w: failed to query Hardcover %s: %v", ErrUpstream, call, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.IncUpstreamError(call)
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Printf("[ERROR] Hardcover %s returned status %d: %s", call, resp.StatusCode, snippet)
		return fmt.Errorf("%w: Hardcover %s returned status %d", ErrUpstream, call, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.IncUpstreamError(call)
		return fmt.Errorf("%w: failed to decode Hardcover %s response: %v", ErrUpstream, call, err)
	}
	return nil
}
