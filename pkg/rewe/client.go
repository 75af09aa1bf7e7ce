// Package rewe is a client for the public REWE online-shop product search.
package rewe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://shop.rewe.de"
	defaultMarket   = "540528"
	defaultPageSize = 16
)

// Client searches the REWE product catalog.
type Client interface {
	SearchProducts(ctx context.Context, query string) (*ProductSearchResult, error)
}

// ProductSearchResult is the top-level search response.
type ProductSearchResult struct {
	Embedded ProductList `json:"_embedded"`
}

// ProductList nests the product array.
type ProductList struct {
	Products []Product `json:"products"`
}

// Product is one catalog hit.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"productName"`
	Media    Media           `json:"media"`
	Embedded ProductEmbedded `json:"_embedded"`
}

// Media holds product imagery.
type Media struct {
	Images []Image `json:"images"`
}

// Image is one product image with its link set.
type Image struct {
	Links ImageLinks `json:"_links"`
}

// ImageLinks holds the image's hyperlinks.
type ImageLinks struct {
	Self Link `json:"self"`
}

// Link is a single hyperlink.
type Link struct {
	Href string `json:"href"`
}

// ProductEmbedded nests the articles carrying listing data.
type ProductEmbedded struct {
	Articles []Article `json:"articles"`
}

// Article is one sellable article of a product.
type Article struct {
	Embedded ArticleEmbedded `json:"_embedded"`
}

// ArticleEmbedded nests the listing.
type ArticleEmbedded struct {
	Listing Listing `json:"listing"`
}

// Listing carries the pricing block.
type Listing struct {
	Pricing Pricing `json:"pricing"`
}

// Pricing is the price and grammage of an article. CurrentRetailPrice is in
// euro cents and may be absent when the market has no listing.
type Pricing struct {
	CurrentRetailPrice *int64 `json:"currentRetailPrice"`
	Grammage           string `json:"grammage"`
}

// Pricing returns the pricing of the product's first article, nil when the
// response carried no article.
func (p Product) Pricing() *Pricing {
	if len(p.Embedded.Articles) == 0 {
		return nil
	}
	return &p.Embedded.Articles[0].Embedded.Listing.Pricing
}

// FirstImageURL returns the first product image link, "" when there is none.
func (p Product) FirstImageURL() string {
	if len(p.Media.Images) == 0 {
		return ""
	}
	return p.Media.Images[0].Links.Self.Href
}

// DetailURL returns the public product detail page for the product id.
func DetailURL(productID string) string {
	return "https://www.rewe.de/produkte/" + productID
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default shop base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithMarket overrides the default market identifier.
func WithMarket(market string) Option {
	return func(c *httpClient) {
		c.market = market
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound search requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL string
	market  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a REWE search client. The default limiter allows two
// searches per second; the shop throttles unauthenticated clients hard.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		market:  defaultMarket,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchProducts(ctx context.Context, query string) (*ProductSearchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rewe: rate limit wait")
	}

	params := url.Values{}
	params.Set("objectsPerPage", strconv.Itoa(defaultPageSize))
	params.Set("page", "1")
	params.Set("search", query)
	params.Set("sorting", "RELEVANCE_DESC")
	params.Set("serviceTypes", "PICKUP")
	params.Set("market", c.market)
	params.Set("debug", "false")
	params.Set("autocorrect", "true")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/products?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "rewe: create request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "rewe: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "rewe: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("rewe: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ProductSearchResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "rewe: unmarshal response")
	}

	return &result, nil
}
