// Package waterapi polls the water authority's level service for the sea and
// lake gauges at the barrage.
//
// The service answers GET {base}/levels?serviceKey=..&station=..&from=..&to=..
// with the public data portal's XML envelope:
//
//	<response>
//	  <header><resultCode>00</resultCode><resultMsg>NORMAL SERVICE.</resultMsg></header>
//	  <body>
//	    <station>sihwa</station>
//	    <items><item><obsTime>2024-07-01 09:00</obsTime><seaLevel>2.31</seaLevel><lakeLevel>0.92</lakeLevel></item></items>
//	  </body>
//	</response>
//
// obsTime is local station time (KST). resultCode 03 means no data.
package waterapi

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"tidal_efficiency/internal/config"
	"tidal_efficiency/internal/metrics"
	"tidal_efficiency/internal/model"
)

// ErrNoData is returned when the service has no observations for the window.
var ErrNoData = errors.New("waterapi: no observations")

// ErrService is returned when the envelope carries a failing result code.
var ErrService = errors.New("waterapi: service error")

// ErrNotConfigured is returned by a client without a base URL.
var ErrNotConfigured = errors.New("waterapi: base url not configured")

const (
	obsLayout = "2006-01-02 15:04"

	resultOK     = "00"
	resultNoData = "03"

	maxBodyBytes = 4 << 20
)

// KST is the zone of obs_time.
var KST = time.FixedZone("KST", 9*60*60)

// Level is one gauge observation.
type Level struct {
	Timestamp time.Time `json:"timestamp"`
	Sea       float64   `json:"sea"`
	Lake      float64   `json:"lake"`
}

// Head is the absolute level difference across the barrage.
func (l Level) Head() float64 {
	if l.Sea < l.Lake {
		return l.Lake - l.Sea
	}
	return l.Sea - l.Lake
}

// Readings expands the observation into sea, lake and head readings.
func (l Level) Readings() []model.Reading {
	out := make([]model.Reading, 0, 3)
	for _, c := range []struct {
		t model.SensorType
		v float64
	}{
		{model.SensorSeaLevel, l.Sea},
		{model.SensorLakeLevel, l.Lake},
		{model.SensorHead, l.Head()},
	} {
		out = append(out, model.Reading{
			Timestamp: l.Timestamp,
			SensorID:  string(c.t),
			Type:      c.t,
			Value:     c.v,
			Unit:      model.SensorCatalog[c.t].Unit,
		})
	}
	return out
}

type apiItem struct {
	ObsTime   string `xml:"obsTime"`
	SeaLevel  string `xml:"seaLevel"`
	LakeLevel string `xml:"lakeLevel"`
}

type apiResponse struct {
	XMLName    xml.Name  `xml:"response"`
	ResultCode string    `xml:"header>resultCode"`
	ResultMsg  string    `xml:"header>resultMsg"`
	Station    string    `xml:"body>station"`
	Items      []apiItem `xml:"body>items>item"`
}

// gauge parses a level field. Blank and "-" mark a missing reading.
func gauge(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Client fetches levels and remembers the last good observation so callers
// can fall back to it when the service is down.
type Client struct {
	baseURL    string
	serviceKey string
	station    string
	retries    int
	backoff    time.Duration
	http       *http.Client
	logger     *log.Logger
	now        func() time.Time

	mu   sync.Mutex
	last *Level
}

// New builds a client from the water_api config section.
func New(cfg config.WaterAPIConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		station:    cfg.Station,
		retries:    retries,
		backoff:    5 * time.Second,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Range returns the observations in [from, to], oldest first. Rows with a
// missing or unparseable gauge are dropped.
func (c *Client) Range(ctx context.Context, from, to time.Time) ([]Level, error) {
	data, err := c.fetch(ctx, from, to)
	metrics.IncWaterAPIRequest(err)
	if err != nil {
		return nil, err
	}

	levels := make([]Level, 0, len(data.Items))
	for _, it := range data.Items {
		sea, okSea := gauge(it.SeaLevel)
		lake, okLake := gauge(it.LakeLevel)
		if !okSea || !okLake {
			continue
		}
		ts, err := time.ParseInLocation(obsLayout, strings.TrimSpace(it.ObsTime), KST)
		if err != nil {
			c.logger.Printf("Water API: skipping observation %q: %v", it.ObsTime, err)
			continue
		}
		levels = append(levels, Level{Timestamp: ts.UTC(), Sea: sea, Lake: lake})
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Timestamp.Before(levels[j].Timestamp)
	})
	if len(levels) == 0 {
		return nil, ErrNoData
	}

	c.remember(levels[len(levels)-1])
	return levels, nil
}

// Latest returns the newest observation of the last hour.
func (c *Client) Latest(ctx context.Context) (Level, error) {
	now := c.now()
	levels, err := c.Range(ctx, now.Add(-time.Hour), now)
	if err != nil {
		return Level{}, err
	}
	return levels[len(levels)-1], nil
}

// LatestOrCached is Latest, falling back to the last good observation.
// stale reports whether the cached value was used.
func (c *Client) LatestOrCached(ctx context.Context) (lvl Level, stale bool, err error) {
	lvl, err = c.Latest(ctx)
	if err == nil {
		return lvl, false, nil
	}
	if cached, ok := c.Cached(); ok {
		c.logger.Printf("Water API unavailable, serving cached level from %s: %v",
			cached.Timestamp.Format(time.RFC3339), err)
		return cached, true, nil
	}
	return Level{}, false, err
}

// Cached returns the last good observation, if any.
func (c *Client) Cached() (Level, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Level{}, false
	}
	return *c.last, true
}

func (c *Client) remember(l Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil || !l.Timestamp.Before(c.last.Timestamp) {
		c.last = &l
	}
}

func (c *Client) requestURL(from, to time.Time) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("waterapi: parsing base url: %w", err)
	}
	u = u.JoinPath("levels")
	q := u.Query()
	q.Set("serviceKey", c.serviceKey)
	q.Set("station", c.station)
	q.Set("from", from.In(KST).Format(obsLayout))
	q.Set("to", to.In(KST).Format(obsLayout))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) fetch(ctx context.Context, from, to time.Time) (apiResponse, error) {
	target, err := c.requestURL(from, to)
	if err != nil {
		return apiResponse{}, err
	}

	for attempt := range c.retries {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return apiResponse{}, fmt.Errorf("building request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return apiResponse{}, fmt.Errorf("HTTP request: %w", err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		resp.Body.Close()
		if err != nil {
			return apiResponse{}, fmt.Errorf("reading body: %w", err)
		}
		if len(body) > maxBodyBytes {
			return apiResponse{}, fmt.Errorf("response exceeds %d bytes", maxBodyBytes)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			if attempt == c.retries-1 {
				break
			}
			wait := time.Duration(attempt+1) * c.backoff
			c.logger.Printf("Water API returned %d, waiting %s (attempt %d/%d)",
				resp.StatusCode, wait, attempt+1, c.retries)
			select {
			case <-ctx.Done():
				return apiResponse{}, ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return apiResponse{}, fmt.Errorf("API returned %d: %s", resp.StatusCode, body)
		}

		var data apiResponse
		if err := xml.Unmarshal(body, &data); err != nil {
			return apiResponse{}, fmt.Errorf("parsing XML: %w", err)
		}
		switch strings.TrimSpace(data.ResultCode) {
		case resultOK:
			return data, nil
		case resultNoData:
			return apiResponse{}, ErrNoData
		default:
			return apiResponse{}, fmt.Errorf("%w: %s %s", ErrService, data.ResultCode, strings.TrimSpace(data.ResultMsg))
		}
	}
	return apiResponse{}, fmt.Errorf("giving up after %d attempts", c.retries)
}
