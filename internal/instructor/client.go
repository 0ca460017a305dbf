package instructor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultResultSelector     = "li.b_algo"
	DefaultLinkSelector       = "h2 a"
	DefaultRatingSelector     = "div[class*='RatingValue__Numerator']"
	DefaultDifficultySelector = "div[class*='FeedbackItem__FeedbackNumber']"
)

// Client resolves instructors by searching the web for a profile on a ratings
// site and scraping the rating and difficulty from that profile.
type Client struct {
	SearchURL     string
	RatingsDomain string
	HTTPClient    *http.Client
	UserAgent     string

	ResultSelector     string
	LinkSelector       string
	RatingSelector     string
	DifficultySelector string
}

// NewClient creates a ratings client
func NewClient(searchURL, ratingsDomain, userAgent string, timeout time.Duration) *Client {
	return &Client{
		SearchURL:     searchURL,
		RatingsDomain: ratingsDomain,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent:          userAgent,
		ResultSelector:     DefaultResultSelector,
		LinkSelector:       DefaultLinkSelector,
		RatingSelector:     DefaultRatingSelector,
		DifficultySelector: DefaultDifficultySelector,
	}
}

// Resolve searches for fullName and returns the first qualifying profile.
// A result qualifies when its title mentions both the first and last name and
// its link points at the ratings domain. Returns nil, nil when none does.
func (c *Client) Resolve(ctx context.Context, fullName string) (*Instructor, error) {
	first, last, ok := nameTokens(fullName)
	if !ok || strings.EqualFold(fullName, StaffName) {
		return nil, nil
	}

	profileURL, err := c.search(ctx, first, last)
	if err != nil {
		return nil, fmt.Errorf("searching for %s: %w", fullName, err)
	}
	if profileURL == "" {
		return nil, nil
	}

	inst := &Instructor{
		Name:        first + " " + last,
		First:       first,
		Last:        last,
		TID:         profileID(profileURL),
		LastUpdated: time.Now().UTC(),
	}

	if err := c.fetchRatings(ctx, profileURL, inst); err != nil {
		return nil, fmt.Errorf("fetching ratings for %s: %w", fullName, err)
	}

	return inst, nil
}

// search returns the profile URL of the first qualifying result, or ""
func (c *Client) search(ctx context.Context, first, last string) (string, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("site:%s %s %s", c.RatingsDomain, first, last))

	doc, err := c.get(ctx, fmt.Sprintf("%s?%s", c.SearchURL, params.Encode()))
	if err != nil {
		return "", err
	}

	firstNorm := strings.ToLower(first)
	lastNorm := strings.ToLower(last)

	var found string
	doc.Find(c.ResultSelector).EachWithBreak(func(i int, result *goquery.Selection) bool {
		link := result.Find(c.LinkSelector).First()
		title := strings.ToLower(link.Text())
		if !strings.Contains(title, firstNorm) || !strings.Contains(title, lastNorm) {
			return true
		}
		href, ok := link.Attr("href")
		if !ok || !strings.Contains(href, c.RatingsDomain) {
			return true
		}
		found = href
		return false
	})

	return found, nil
}

// fetchRatings fills the rating and difficulty of inst from its profile page
func (c *Client) fetchRatings(ctx context.Context, profileURL string, inst *Instructor) error {
	doc, err := c.get(ctx, profileURL)
	if err != nil {
		return err
	}

	if rating, ok := parseScore(doc.Find(c.RatingSelector).First().Text()); ok {
		inst.Rating = &rating
	}
	if difficulty, ok := parseScore(doc.Find(c.DifficultySelector).Last().Text()); ok {
		inst.Difficulty = &difficulty
	}

	return nil
}

func (c *Client) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// profileID extracts the numeric id from the last path segment of a profile URL
func profileID(profileURL string) int {
	u, err := url.Parse(profileURL)
	if err != nil {
		return 0
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil {
		return 0
	}
	return id
}

func parseScore(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
