package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ProblemRef 제출이 가리키는 문제 식별자
type ProblemRef struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
}

// Submission user.status 응답의 제출 레코드 (최신순)
type Submission struct {
	ID                  int64      `json:"id"`
	Problem             ProblemRef `json:"problem"`
	Verdict             string     `json:"verdict"`
	CreationTimeSeconds int64      `json:"creationTimeSeconds"`
}

// VerdictOK 정답 판정
const VerdictOK = "OK"

// statusResponse Codeforces API 공통 응답 래퍼
type statusResponse struct {
	Status  string       `json:"status"`
	Comment string       `json:"comment"`
	Result  []Submission `json:"result"`
}

// Client Codeforces API 클라이언트
type Client struct {
	baseURL    string
	fetchCount int
	httpClient *http.Client
}

// NewClient Codeforces API 클라이언트 생성
func NewClient(baseURL string, fetchCount int) *Client {
	return &Client{
		baseURL:    baseURL,
		fetchCount: fetchCount,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RecentSubmissions 핸들의 최근 제출을 주어진 문제로 필터링하여 반환.
// API가 주는 최신순 정렬을 그대로 유지
func (c *Client) RecentSubmissions(ctx context.Context, handle string, problem ProblemRef) ([]Submission, error) {
	endpoint := fmt.Sprintf("%s/user.status?handle=%s&from=1&count=%s",
		c.baseURL,
		url.QueryEscape(handle),
		strconv.Itoa(c.fetchCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if body.Status != "OK" {
		return nil, fmt.Errorf("api returned status %q: %s", body.Status, body.Comment)
	}

	var filtered []Submission
	for _, s := range body.Result {
		if s.Problem.ContestID == problem.ContestID && s.Problem.Index == problem.Index {
			filtered = append(filtered, s)
		}
	}

	return filtered, nil
}
