package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

// HealthDaySnapshot is one day's worth of health broker data, summed across
// the broker's buckets.
type HealthDaySnapshot struct {
	Steps          int
	DistanceMeters float64
	CaloriesBurned float64
}

// HealthService wraps the platform health data broker. It issues time-range
// aggregate queries for the three record kinds and sums the returned buckets
// client-side.
type HealthService struct {
	baseURL string
	token   string
	client  *http.Client

	mu            sync.RWMutex
	hasPermission bool
}

func NewHealthService() *HealthService {
	return &HealthService{
		baseURL:       os.Getenv("HEALTH_BROKER_URL"),
		token:         os.Getenv("HEALTH_BROKER_TOKEN"),
		client:        &http.Client{Timeout: 10 * time.Second},
		hasPermission: true,
	}
}

// HasPermission reports whether the last broker call was authorized. A denied
// broker degrades to zero values; this flag is the only surface of that state.
func (s *HealthService) HasPermission() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPermission
}

func (s *HealthService) setPermission(ok bool) {
	s.mu.Lock()
	s.hasPermission = ok
	s.mu.Unlock()
}

type aggregateResponse struct {
	Buckets []struct {
		Value float64 `json:"value"`
	} `json:"buckets"`
}

func (s *HealthService) sumRange(ctx context.Context, recordType string, start, end time.Time) (float64, error) {
	u := fmt.Sprintf("%s/v1/aggregate?type=%s&start=%s&end=%s",
		s.baseURL,
		url.QueryEscape(recordType),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create broker request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call health broker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		s.setPermission(false)
		return 0, fmt.Errorf("health broker access denied: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read broker response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("health broker API error %d: %s", resp.StatusCode, string(body))
	}

	var ar aggregateResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return 0, fmt.Errorf("failed to parse broker JSON: %w", err)
	}

	s.setPermission(true)

	var total float64
	for _, b := range ar.Buckets {
		total += b.Value
	}
	return total, nil
}

// DaySnapshot reads steps, distance and active energy for the calendar day
// containing t. A failed kind degrades that field to zero; the first error is
// returned so callers can log it.
func (s *HealthService) DaySnapshot(ctx context.Context, t time.Time) (HealthDaySnapshot, error) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := day.Add(24 * time.Hour)

	var snap HealthDaySnapshot
	var firstErr error

	if v, err := s.sumRange(ctx, "steps", day, end); err == nil {
		snap.Steps = int(v)
	} else {
		firstErr = err
	}
	if v, err := s.sumRange(ctx, "distance", day, end); err == nil {
		snap.DistanceMeters = v
	} else if firstErr == nil {
		firstErr = err
	}
	if v, err := s.sumRange(ctx, "active_energy", day, end); err == nil {
		snap.CaloriesBurned = v
	} else if firstErr == nil {
		firstErr = err
	}

	return snap, firstErr
}
