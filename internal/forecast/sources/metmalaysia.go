package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/sony/gobreaker"
	"golang.org/x/net/html"

	"github.com/penang-weather/forecast-aggregation/internal/forecast"
)

// The MET page serves a trimmed-down document to clients without a
// browser user-agent, so the scrape announces itself as one.
const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/88.0.4324.96 Safari/537.36"

// The district page publishes at most this many forward forecast rows.
const metForecastRows = 6

var (
	minRe = regexp.MustCompile(`Min:\s*(\d+)`)
	maxRe = regexp.MustCompile(`Max:\s*(\d+)`)
)

// METMalaysiaSource scrapes the MET Malaysia district forecast page.
// The page publishes no explicit date per row; row N is interpreted as
// the forecast for run date + N days.
type METMalaysiaSource struct {
	tag     forecast.SourceTag
	pageURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	clk     clock.Clock
}

func NewMETMalaysiaSource(client *http.Client, pageURL string, clk clock.Clock) *METMalaysiaSource {
	return &METMalaysiaSource{
		tag:     forecast.SourceMETMalaysia,
		pageURL: pageURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("metmalaysia"),
		clk:     clk,
	}
}

func (s *METMalaysiaSource) Tag() forecast.SourceTag { return s.tag }
func (s *METMalaysiaSource) Unit() forecast.Unit { return forecast.UnitCelsius }
func (s *METMalaysiaSource) Precision() int { return 0 }
func (s *METMalaysiaSource) HasCurrent() bool { return true }

// Fetch retrieves the forecast page and yields, per parsed row, the min
// and max temperatures followed by their midpoint. The midpoint comes
// last so aggregation picks it up as the row's representative value.
func (s *METMalaysiaSource) Fetch(ctx context.Context) ([]forecast.RawObservation, error) {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, s.pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", scrapeUserAgent)
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, s.httpCfg, s.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid html document: %v", forecast.ErrParse, err)
	}

	table := findForecastTable(doc)
	if table == nil {
		return nil, fmt.Errorf("%w: forecast table not found", forecast.ErrParse)
	}

	now := s.clk.Now()
	runDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var obs []forecast.RawObservation
	for i, row := range tableRows(table) {
		if i >= metForecastRows {
			break
		}

		cells := rowCells(row)
		if len(cells) < 3 {
			continue
		}

		text := strings.TrimSpace(nodeText(cells[2]))
		minMatch := minRe.FindStringSubmatch(text)
		maxMatch := maxRe.FindStringSubmatch(text)
		if minMatch == nil || maxMatch == nil {
			continue
		}

		minTemp, err := strconv.ParseFloat(minMatch[1], 64)
		if err != nil {
			continue
		}
		maxTemp, err := strconv.ParseFloat(maxMatch[1], 64)
		if err != nil {
			continue
		}

		day := runDate.AddDate(0, 0, i)
		obs = append(obs,
			forecast.RawObservation{Timestamp: day, Value: minTemp},
			forecast.RawObservation{Timestamp: day, Value: maxTemp},
			forecast.RawObservation{Timestamp: day, Value: (minTemp + maxTemp) / 2},
		)
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no temperature data extracted", forecast.ErrParse)
	}
	return obs, nil
}

// findForecastTable locates the zebra-striped forecast table body.
func findForecastTable(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" && hasClass(n, "table-zebra") {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "tbody" {
				return c
			}
		}
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findForecastTable(c); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func tableRows(tbody *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tbody)
	return rows
}

func rowCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "td" {
			cells = append(cells, c)
		}
	}
	return cells
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
