package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/pkg/config"
	"github.com/wonhee/sweep/pkg/httputil"
	"github.com/wonhee/sweep/pkg/logger"
)

// MasterClient scrapes the per-market instrument listing pages.
// ⭐ SSOT: 종목 마스터 수집은 이 클라이언트에서만
type MasterClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewMasterClient creates the instrument master scraper
func NewMasterClient(httpClient *httputil.Client, cfg config.FetchConfig, log *logger.Logger) *MasterClient {
	return &MasterClient{
		httpClient: httpClient,
		logger:     log.WithField("module", "master"),
		baseURL:    cfg.MasterBaseURL,
	}
}

// marketPageID maps market names to the listing page's sosok parameter
var marketPageID = map[string]string{
	"KOSPI":  "0",
	"KOSDAQ": "1",
}

var codeRe = regexp.MustCompile(`code=(\d{6})`)

// FetchMaster lists every instrument on one market by walking the
// paginated market-cap listing until an empty page
func (c *MasterClient) FetchMaster(ctx context.Context, market string) ([]contracts.Instrument, error) {
	sosok, ok := marketPageID[market]
	if !ok {
		return nil, fmt.Errorf("unknown market %q", market)
	}

	var instruments []contracts.Instrument
	seen := make(map[string]bool)

	// Listing is capped around 50 pages per market
	for page := 1; page <= 60; page++ {
		select {
		case <-ctx.Done():
			return instruments, ctx.Err()
		default:
		}

		url := fmt.Sprintf("%s/sise/sise_market_sum.naver?sosok=%s&page=%d", c.baseURL, sosok, page)
		body, err := c.httpClient.GetBody(ctx, url, chartHeaders)
		if err != nil {
			return instruments, fmt.Errorf("fetch master page %d: %w", page, err)
		}

		pageItems, err := parseMasterHTML(string(body), market)
		if err != nil {
			return instruments, fmt.Errorf("parse master page %d: %w", page, err)
		}
		if len(pageItems) == 0 {
			break
		}

		added := 0
		for _, inst := range pageItems {
			if !seen[inst.Code] {
				seen[inst.Code] = true
				instruments = append(instruments, inst)
				added++
			}
		}
		// A fully-duplicate page means the listing wrapped around
		if added == 0 {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"market": market,
		"count":  len(instruments),
	}).Info("Fetched instrument master")

	return instruments, nil
}

// parseMasterHTML extracts (code, name) pairs from one listing page
func parseMasterHTML(html, market string) ([]contracts.Instrument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var instruments []contracts.Instrument
	doc.Find("table.type_2 a.tltle").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := codeRe.FindStringSubmatch(href)
		if m == nil {
			return
		}
		name := strings.TrimSpace(sel.Text())
		if name == "" {
			return
		}
		instruments = append(instruments, contracts.Instrument{
			Code:   m[1],
			Name:   name,
			Market: market,
		})
	})

	return instruments, nil
}
