package timetable

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultSubmitSelector = "input[value='Submit']"
	DefaultTimeout        = 30 * time.Second
)

// HTTPPage implements Page over plain HTTP. Form submission serializes the
// form enclosing the submit control the way a browser would.
type HTTPPage struct {
	client         *http.Client
	userAgent      string
	submitSelector string

	url      *url.URL
	doc      *goquery.Document
	selected map[string]string
}

// NewHTTPPage creates a page backed by an HTTP client with a cookie jar, so the
// remote session survives between navigation and submission.
func NewHTTPPage(timeout time.Duration, userAgent string) (*HTTPPage, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPPage{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		userAgent:      userAgent,
		submitSelector: DefaultSubmitSelector,
		selected:       make(map[string]string),
	}, nil
}

// SetSubmitSelector overrides the selector used to locate the submit control.
func (p *HTTPPage) SetSubmitSelector(selector string) {
	p.submitSelector = selector
}

// Navigate fetches pageURL and makes it the current document
func (p *HTTPPage) Navigate(ctx context.Context, pageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return p.load(req)
}

// URL returns the address of the current document after redirects
func (p *HTTPPage) URL() string {
	if p.url == nil {
		return ""
	}
	return p.url.String()
}

// Title returns the trimmed <title> text of the current document
func (p *HTTPPage) Title() string {
	if p.doc == nil {
		return ""
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// Document returns the current document
func (p *HTTPPage) Document() *goquery.Document {
	return p.doc
}

// Options lists the options of select#selectID
func (p *HTTPPage) Options(selectID string) ([]Option, error) {
	sel, err := p.findSelect(selectID)
	if err != nil {
		return nil, err
	}

	options := make([]Option, 0)
	sel.Find("option").Each(func(i int, opt *goquery.Selection) {
		label := strings.TrimSpace(opt.Text())
		value, ok := opt.Attr("value")
		if !ok {
			value = label
		}
		options = append(options, Option{Value: strings.TrimSpace(value), Label: label})
	})

	return options, nil
}

// Select records value as the choice for select#selectID
func (p *HTTPPage) Select(selectID, value string) error {
	options, err := p.Options(selectID)
	if err != nil {
		return err
	}
	if !containsValue(options, value) {
		return fmt.Errorf("option %q not offered by select#%s", value, selectID)
	}
	p.selected[selectID] = value
	return nil
}

// Submit sends the form that encloses the submit control and loads the response
func (p *HTTPPage) Submit(ctx context.Context) error {
	if p.doc == nil {
		return fmt.Errorf("%w: no page loaded", ErrStale)
	}

	button := p.doc.Find(p.submitSelector).First()
	if button.Length() == 0 {
		return fmt.Errorf("%w: submit control %s", ErrElementNotFound, p.submitSelector)
	}
	form := button.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("%w: form enclosing %s", ErrElementNotFound, p.submitSelector)
	}

	values := p.formValues(form, button)

	action, err := p.url.Parse(strings.TrimSpace(form.AttrOr("action", "")))
	if err != nil {
		return fmt.Errorf("resolving form action: %w", err)
	}

	var req *http.Request
	if strings.EqualFold(form.AttrOr("method", "get"), http.MethodPost) {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, action.String(), strings.NewReader(values.Encode()))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		action.RawQuery = values.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, action.String(), nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
	}
	req.Header.Set("Referer", p.URL())

	return p.load(req)
}

// formValues collects the fields a browser would send when button is clicked
func (p *HTTPPage) formValues(form, button *goquery.Selection) url.Values {
	values := url.Values{}

	form.Find("input").Each(func(i int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		value := input.AttrOr("value", "")

		switch strings.ToLower(input.AttrOr("type", "text")) {
		case "submit", "button", "image":
			if input.IsSelection(button) {
				values.Add(name, value)
			}
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); checked {
				values.Add(name, value)
			}
		default:
			values.Add(name, value)
		}
	})

	form.Find("select").Each(func(i int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		if chosen, ok := p.selected[sel.AttrOr("id", "")]; ok {
			values.Add(name, chosen)
			return
		}

		// Browser default: selected options, else the first option
		defaults := sel.Find("option[selected]")
		if defaults.Length() == 0 {
			if _, multiple := sel.Attr("multiple"); multiple {
				return
			}
			defaults = sel.Find("option").First()
		}
		defaults.Each(func(i int, opt *goquery.Selection) {
			values.Add(name, strings.TrimSpace(opt.AttrOr("value", opt.Text())))
		})
	})

	return values
}

func (p *HTTPPage) findSelect(selectID string) (*goquery.Selection, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("%w: no page loaded", ErrStale)
	}
	sel := p.doc.Find("select#" + selectID)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: select#%s", ErrElementNotFound, selectID)
	}
	return sel.First(), nil
}

// load executes req and replaces the current document with the response
func (p *HTTPPage) load(req *http.Request) error {
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching page: %v", ErrStale, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code: %d", ErrStale, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: parsing HTML: %v", ErrStale, err)
	}

	p.url = resp.Request.URL
	p.doc = doc
	p.selected = make(map[string]string)
	return nil
}
