package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChartPayload_JSON(t *testing.T) {
	// The endpoint emits single-quoted quasi-JSON with a header row
	body := []byte(`[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20260824", 70000, 71500, 69800, 71200, 1234567, 52.1],
["20260825", 71200, 72000, 70900, 71800, 987654, 52.3]
]`)

	bars, err := parseChartPayload(body)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 70000.0, bars[0].Open)
	assert.Equal(t, 71500.0, bars[0].High)
	assert.Equal(t, 69800.0, bars[0].Low)
	assert.Equal(t, 71200.0, bars[0].Close)
	assert.Equal(t, 1234567.0, bars[0].Volume)

	assert.Equal(t, 71800.0, bars[1].Close)
}

func TestParseChartPayload_RegexFallback(t *testing.T) {
	// Trailing chatter breaks strict JSON decoding; row extraction
	// still has to recover the bars
	body := []byte(`callback(
["20260824", 70000, 71500, 69800, 71200, 1234567],
["20260825", 71200, 72000, 70900, 71800, 987654]
);`)

	bars, err := parseChartPayload(body)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 71200.0, bars[0].Close)
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), bars[1].Date)
}

func TestParseChartPayload_Unrecognized(t *testing.T) {
	_, err := parseChartPayload([]byte("<html>blocked</html>"))
	assert.Error(t, err)
}

func TestParseChartPayload_SkipsMalformedRows(t *testing.T) {
	body := []byte(`[["날짜", "시가", "고가", "저가", "종가", "거래량"],
["notadate", 1, 2, 3, 4, 5],
["20260824", 70000, 71500, 69800, 71200, 1234567]
]`)

	bars, err := parseChartPayload(body)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 71200.0, bars[0].Close)
}

func TestParseMasterHTML(t *testing.T) {
	html := `<html><body>
	<table class="type_2">
	<tr><td><a class="tltle" href="/item/main.naver?code=005930">삼성전자</a></td></tr>
	<tr><td><a class="tltle" href="/item/main.naver?code=000660">SK하이닉스</a></td></tr>
	<tr><td><a href="/item/main.naver?code=999999">not a listing link</a></td></tr>
	</table>
	</body></html>`

	instruments, err := parseMasterHTML(html, "KOSPI")
	require.NoError(t, err)
	require.Len(t, instruments, 2)

	assert.Equal(t, "005930", instruments[0].Code)
	assert.Equal(t, "삼성전자", instruments[0].Name)
	assert.Equal(t, "KOSPI", instruments[0].Market)
	assert.Equal(t, "000660", instruments[1].Code)
}

func TestParseMasterHTML_EmptyPage(t *testing.T) {
	instruments, err := parseMasterHTML(`<html><table class="type_2"></table></html>`, "KOSDAQ")
	require.NoError(t, err)
	assert.Empty(t, instruments)
}
