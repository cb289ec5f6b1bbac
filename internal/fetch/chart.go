package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonhee/sweep/internal/contracts"
	"github.com/wonhee/sweep/pkg/config"
	"github.com/wonhee/sweep/pkg/httputil"
	"github.com/wonhee/sweep/pkg/logger"
)

// ChartClient pulls daily bars from the chart JSON endpoint.
// ⭐ SSOT: 차트 API 호출은 이 클라이언트에서만
type ChartClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewChartClient creates a chart API client. The shared httputil client
// carries the rate limit toward the source.
func NewChartClient(httpClient *httputil.Client, cfg config.FetchConfig, log *logger.Logger) *ChartClient {
	return &ChartClient{
		httpClient: httpClient,
		logger:     log.WithField("module", "fetch"),
		baseURL:    cfg.ChartBaseURL,
	}
}

var chartHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Referer":    "https://finance.naver.com/",
}

// FetchSince fetches daily bars from `from` through today, ascending
func (c *ChartClient) FetchSince(ctx context.Context, code string, from time.Time) ([]contracts.Bar, error) {
	fromStr := from.Format("20060102")
	toStr := time.Now().Format("20060102")

	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.baseURL, code, fromStr, toStr,
	)

	body, err := c.httpClient.GetBody(ctx, fullURL, chartHeaders)
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", code, err)
	}

	bars, err := parseChartPayload(body)
	if err != nil {
		return nil, fmt.Errorf("parse chart for %s: %w", code, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"from":  from.Format("2006-01-02"),
		"count": len(bars),
	}).Debug("Fetched bars")

	return bars, nil
}

// parseChartPayload decodes the chart endpoint's quasi-JSON body. The
// endpoint quotes with single quotes; normalize, then fall back to regex
// row extraction when the JSON shape drifts.
func parseChartPayload(body []byte) ([]contracts.Bar, error) {
	text := strings.TrimSpace(string(body))
	text = strings.ReplaceAll(text, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(text), &rawData); err == nil {
		return parseChartRows(rawData), nil
	}

	bars := parseChartRegex(text)
	if len(bars) == 0 {
		return nil, fmt.Errorf("unrecognized chart payload (%d bytes)", len(body))
	}
	return bars, nil
}

func parseChartRows(rawData [][]interface{}) []contracts.Bar {
	var bars []contracts.Bar
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // skip header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		date, err := parseChartDate(strings.Trim(dateStr, "\""))
		if err != nil {
			continue
		}

		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   toFloat(row[1]),
			High:   toFloat(row[2]),
			Low:    toFloat(row[3]),
			Close:  toFloat(row[4]),
			Volume: toFloat(row[5]),
		})
	}
	return bars
}

var chartRowRe = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)`)

func parseChartRegex(text string) []contracts.Bar {
	matches := chartRowRe.FindAllStringSubmatch(text, -1)

	var bars []contracts.Bar
	for _, m := range matches {
		if len(m) < 7 {
			continue
		}
		date, err := parseChartDate(m[1])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(m[2], 64)
		high, _ := strconv.ParseFloat(m[3], 64)
		low, _ := strconv.ParseFloat(m[4], 64)
		cls, _ := strconv.ParseFloat(m[5], 64)
		volume, _ := strconv.ParseFloat(m[6], 64)

		bars = append(bars, contracts.Bar{
			Date: date, Open: open, High: high, Low: low, Close: cls, Volume: volume,
		})
	}
	return bars
}

func parseChartDate(s string) (time.Time, error) {
	if len(s) == 8 {
		s = s[:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	return time.Parse("2006-01-02", s)
}

// toFloat converts the mixed numeric types the decoder produces
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(strings.ReplaceAll(val, ",", ""), 64)
		return f
	default:
		return 0
	}
}
