// Package leetcode fetches user profiles and recent submissions from the
// LeetCode GraphQL API.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"leekbot/internal/model"
)

const graphqlURL = "https://leetcode.com/graphql"

// ErrUserNotFound means the requested username does not exist upstream, as
// opposed to a transient or malformed-response failure.
var ErrUserNotFound = errors.New("leetcode user not found")

// ErrMalformedResponse means the upstream reply did not match the expected
// schema.
var ErrMalformedResponse = errors.New("malformed leetcode response")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues GraphQL queries against LeetCode.
type Client struct {
	client  HTTPClient
	timeout time.Duration
}

// New creates a Client with the given HTTP client.
func New(client HTTPClient) *Client {
	return &Client{
		client:  client,
		timeout: 10 * time.Second,
	}
}

// One query serves both call types; profile stats and the recent submission
// list come back in the same envelope.
const userQuery = `query userData($username: String!) {
  matchedUser(username: $username) {
    submitStats {
      acSubmissionNum {
        difficulty
        count
      }
    }
    profile {
      ranking
    }
  }
  recentSubmissionList(username: $username) {
    id
    title
    titleSlug
    timestamp
    statusDisplay
    lang
  }
}`

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type queryResponse struct {
	Data *userData `json:"data"`
}

type userData struct {
	MatchedUser *struct {
		SubmitStats struct {
			AcSubmissionNum []struct {
				Difficulty string `json:"difficulty"`
				Count      int64  `json:"count"`
			} `json:"acSubmissionNum"`
		} `json:"submitStats"`
		Profile struct {
			Ranking int64 `json:"ranking"`
		} `json:"profile"`
	} `json:"matchedUser"`
	RecentSubmissionList []rawSubmission `json:"recentSubmissionList"`
}

type rawSubmission struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TitleSlug     string `json:"titleSlug"`
	Timestamp     string `json:"timestamp"`
	StatusDisplay string `json:"statusDisplay"`
	Lang          string `json:"lang"`
}

// FetchUser returns profile statistics for the given username.
// Returns ErrUserNotFound when the username does not exist upstream.
func (c *Client) FetchUser(ctx context.Context, username string) (*model.User, error) {
	data, err := c.queryUser(ctx, username)
	if err != nil {
		return nil, err
	}

	matched := data.MatchedUser
	if matched == nil {
		return nil, fmt.Errorf("%w: %q", ErrUserNotFound, username)
	}

	// acSubmissionNum order is fixed upstream: total, easy, medium, hard.
	counts := matched.SubmitStats.AcSubmissionNum
	if len(counts) < 4 {
		return nil, fmt.Errorf("%w: expected 4 solved counts, got %d", ErrMalformedResponse, len(counts))
	}

	return &model.User{
		Username:     username,
		TotalSolved:  counts[0].Count,
		EasySolved:   counts[1].Count,
		MediumSolved: counts[2].Count,
		HardSolved:   counts[3].Count,
		Ranking:      matched.Profile.Ranking,
		Streak:       0,
	}, nil
}

// FetchRecentSubmissions returns the user's recent submissions in upstream
// order. Entries with missing fields are skipped.
func (c *Client) FetchRecentSubmissions(ctx context.Context, username string) ([]model.Submission, error) {
	data, err := c.queryUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if data.RecentSubmissionList == nil {
		return nil, fmt.Errorf("%w: no recent submission list for %q", ErrMalformedResponse, username)
	}

	subs := make([]model.Submission, 0, len(data.RecentSubmissionList))
	for _, raw := range data.RecentSubmissionList {
		sub, ok := mapSubmission(username, raw)
		if !ok {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// FetchRecentlyCompleted returns only the accepted recent submissions.
func (c *Client) FetchRecentlyCompleted(ctx context.Context, username string) ([]model.Submission, error) {
	subs, err := c.FetchRecentSubmissions(ctx, username)
	if err != nil {
		return nil, err
	}
	completed := subs[:0]
	for _, sub := range subs {
		if sub.Accepted {
			completed = append(completed, sub)
		}
	}
	return completed, nil
}

func mapSubmission(username string, raw rawSubmission) (model.Submission, bool) {
	if raw.Title == "" || raw.TitleSlug == "" || raw.ID == "" {
		return model.Submission{}, false
	}
	seconds, err := strconv.ParseInt(raw.Timestamp, 10, 64)
	if err != nil {
		return model.Submission{}, false
	}

	return model.Submission{
		Problem: model.Problem{
			Title: raw.Title,
			Slug:  raw.TitleSlug,
			// recentSubmissionList carries no difficulty.
			Difficulty: "Unknown",
		},
		Username:  username,
		Language:  raw.Lang,
		Timestamp: seconds * 1000,
		Accepted:  raw.StatusDisplay == "Accepted",
		URL:       fmt.Sprintf("https://leetcode.com/problems/%s/submissions/%s/", raw.TitleSlug, raw.ID),
	}, true
}

func (c *Client) queryUser(ctx context.Context, username string) (*userData, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(requestBody{
		Query:     userQuery,
		Variables: map[string]any{"username": username},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://leetcode.com")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query leetcode: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var parsed queryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("%w: no data in response", ErrMalformedResponse)
	}
	return parsed.Data, nil
}
