package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// UserDoc is the per-user profile document in the cloud mirror. Aggregates
// are overwritten wholesale by the sync loop. Unknown or missing fields
// decode to their zero values rather than failing the document.
type UserDoc struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	PhotoURL     string    `json:"photoUrl,omitempty"`
	TotalSteps   int64     `json:"totalSteps"`
	WeeklySteps  int64     `json:"weeklySteps"`
	MonthlySteps int64     `json:"monthlySteps"`
	DailyGoal    int       `json:"dailyGoal"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// ActivityDoc is the per-user-per-day activity document; its id is the
// derived userID_date record id.
type ActivityDoc struct {
	ID             string  `json:"id"`
	UserID         string  `json:"userId"`
	Date           string  `json:"date"`
	Steps          int     `json:"steps"`
	DistanceMeters float64 `json:"distanceMeters"`
	CaloriesBurned float64 `json:"caloriesBurned"`
	DisplayName    string  `json:"displayName,omitempty"`
	PhotoURL       string  `json:"photoUrl,omitempty"`
}

// CloudService wraps the cloud document store: per-user and per-day document
// upserts/reads, the greater-than count query and top-K query the ranking
// engine needs, and the live ordered subscription feeding the leaderboard.
type CloudService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCloudService() *CloudService {
	return &CloudService{
		baseURL: os.Getenv("CLOUD_MIRROR_URL"),
		apiKey:  os.Getenv("CLOUD_MIRROR_API_KEY"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CloudService) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create mirror request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call cloud mirror: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errDocNotFound
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mirror response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cloud mirror API error %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to parse mirror JSON: %w", err)
		}
	}
	return nil
}

var errDocNotFound = fmt.Errorf("document not found")

func (c *CloudService) UpsertUserDoc(ctx context.Context, doc UserDoc) error {
	return c.do(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(doc.ID), doc, nil)
}

// GetUserDoc returns nil without error when the document does not exist.
func (c *CloudService) GetUserDoc(ctx context.Context, id string) (*UserDoc, error) {
	var doc UserDoc
	err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, &doc)
	if err == errDocNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *CloudService) UpsertActivityDoc(ctx context.Context, doc ActivityDoc) error {
	return c.do(ctx, http.MethodPut, "/v1/activities/"+url.PathEscape(doc.ID), doc, nil)
}

// GetActivityDoc returns nil without error when the document does not exist.
func (c *CloudService) GetActivityDoc(ctx context.Context, id string) (*ActivityDoc, error) {
	var doc ActivityDoc
	err := c.do(ctx, http.MethodGet, "/v1/activities/"+url.PathEscape(id), nil, &doc)
	if err == errDocNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

type countResponse struct {
	Count int `json:"count"`
}

// CountUsersAbove counts profile documents whose field strictly exceeds value.
func (c *CloudService) CountUsersAbove(ctx context.Context, field string, value int64) (int, error) {
	var cr countResponse
	path := fmt.Sprintf("/v1/users/count?field=%s&gt=%d", url.QueryEscape(field), value)
	if err := c.do(ctx, http.MethodGet, path, nil, &cr); err != nil {
		return 0, err
	}
	return cr.Count, nil
}

// TopUsers reads the top-limit profile documents ordered descending by field.
func (c *CloudService) TopUsers(ctx context.Context, field string, limit int) ([]UserDoc, error) {
	var docs []UserDoc
	path := fmt.Sprintf("/v1/users/top?field=%s&limit=%d", url.QueryEscape(field), limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CountActivitiesAbove counts day documents for date with steps strictly
// above value.
func (c *CloudService) CountActivitiesAbove(ctx context.Context, date string, value int) (int, error) {
	var cr countResponse
	path := fmt.Sprintf("/v1/activities/count?date=%s&gt=%d", url.QueryEscape(date), value)
	if err := c.do(ctx, http.MethodGet, path, nil, &cr); err != nil {
		return 0, err
	}
	return cr.Count, nil
}

// TopActivities reads the top-limit day documents for date, descending by steps.
func (c *CloudService) TopActivities(ctx context.Context, date string, limit int) ([]ActivityDoc, error) {
	var docs []ActivityDoc
	path := fmt.Sprintf("/v1/activities/top?date=%s&limit=%d", url.QueryEscape(date), limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// RankedDoc is one entry of a live ordered snapshot frame.
type RankedDoc struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Value       int64  `json:"value"`
}

type liveFrame struct {
	Docs []RankedDoc `json:"docs"`
}

// LiveSubscription is a pushed ordered-query stream. Every frame is a full
// snapshot; positional rank is recomputed by the consumer on each frame.
// Close tears down the socket and stops the reader so no listener leaks.
type LiveSubscription struct {
	conn      *websocket.Conn
	frames    chan []RankedDoc
	done      chan struct{}
	closeOnce sync.Once
}

// Frames delivers snapshot frames until the subscription closes.
func (s *LiveSubscription) Frames() <-chan []RankedDoc {
	return s.frames
}

// Close tears down the socket and releases the reader, even one mid-send to a
// consumer that already went away.
func (s *LiveSubscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// SubscribeTop opens a live subscription over the given collection ("users"
// or "activities"), ordered descending by field, limited to limit documents.
func (c *CloudService) SubscribeTop(collection, field string, limit int) (*LiveSubscription, error) {
	wsBase := strings.Replace(c.baseURL, "http", "ws", 1)
	u := fmt.Sprintf("%s/v1/live?collection=%s&orderBy=%s&limit=%d",
		wsBase, url.QueryEscape(collection), url.QueryEscape(field), limit)

	header := http.Header{}
	header.Set("X-Api-Key", c.apiKey)

	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		return nil, fmt.Errorf("failed to open live subscription: %w", err)
	}

	sub := &LiveSubscription{
		conn:   conn,
		frames: make(chan []RankedDoc, 1),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.frames)
		for {
			var frame liveFrame
			if err := conn.ReadJSON(&frame); err != nil {
				sub.Close()
				return
			}
			select {
			case sub.frames <- frame.Docs:
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}
