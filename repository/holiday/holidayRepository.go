package holidayrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chokky-education/live-streaming-booking-system-2-sub001/model"
	"github.com/chokky-education/live-streaming-booking-system-2-sub001/util/httpx"
)

// Repo fetches public holiday dates for the pricing calculator. Optional: the
// static HOLIDAYS config list works without it.
type Repo interface {
	FetchYear(ctx context.Context, country string, year int) ([]time.Time, error)
}

type httpRepo struct {
	apiKey string
	base   string
	client *http.Client
}

func NewHTTP(apiKey string) Repo {
	return &httpRepo{
		apiKey: apiKey,
		base:   "https://api.api-ninjas.com/v1/holidays",
		client: httpx.Client(),
	}
}

func (r *httpRepo) FetchYear(ctx context.Context, country string, year int) ([]time.Time, error) {
	u := fmt.Sprintf("%s?country=%s&year=%d", r.base, url.QueryEscape(country), year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("holiday api: %s", resp.Status)
	}

	var raw []struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(raw))
	for _, h := range raw {
		d, err := time.Parse(model.DateFormat, h.Date)
		if err != nil {
			continue // skip entries the API returns in other formats
		}
		out = append(out, d)
	}
	return out, nil
}
