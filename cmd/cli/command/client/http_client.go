package client

// http_client.go = talks to the lecturehub REST API on behalf of the CLI.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"lecturehub/cmd/cli/dto"
	"lecturehub/internal/shared"
)

// APIError is a non-success answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: apiURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// BaseURL is the server root the client was built with.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if len(accept) == 0 {
		accept = []int{http.StatusOK}
	}
	ok := false
	for _, code := range accept {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Auth

func (c *HTTPClient) Login(ctx context.Context, request *dto.LoginRequest) (*dto.AuthResponse, error) {
	var result dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", request, &result); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) Register(ctx context.Context, request *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	var result dto.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", request, &result, http.StatusCreated); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) RefreshToken(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	var result dto.RefreshResponse
	body := dto.RefreshTokenRequest{RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &result); err != nil {
		return nil, fmt.Errorf("refresh failed: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) RevokeToken(ctx context.Context, refreshToken string) error {
	body := dto.RefreshTokenRequest{RefreshToken: refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/revoke", body, nil)
}

// Progress

func (c *HTTPClient) GetProgress(ctx context.Context, videoID string) (*dto.ProgressResponse, error) {
	var result dto.ProgressResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/progress/"+url.PathEscape(videoID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) UpdateProgress(ctx context.Context, videoID string, request *dto.UpdateProgressRequest) (*dto.ProgressResponse, error) {
	var result dto.ProgressResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/progress/"+url.PathEscape(videoID), request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveProgress lets the client act as the player's progress writer.
func (c *HTTPClient) SaveProgress(ctx context.Context, u shared.ProgressUpdate) error {
	fraction := u.WatchedFraction
	_, err := c.UpdateProgress(ctx, u.VideoID, &dto.UpdateProgressRequest{
		CourseID:       u.CourseID,
		Progress:       &fraction,
		WatchedSeconds: u.WatchedSeconds,
		LastPosition:   u.LastPosition,
	})
	return err
}

func (c *HTTPClient) ToggleComplete(ctx context.Context, videoID, courseID string) (*dto.ProgressResponse, error) {
	var result dto.ProgressResponse
	body := dto.ToggleCompleteRequest{CourseID: courseID}
	if err := c.do(ctx, http.MethodPost, "/api/v1/progress/"+url.PathEscape(videoID)+"/complete", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) RecentProgress(ctx context.Context, limit int) ([]dto.ProgressResponse, error) {
	var result dto.ProgressListResponse
	path := fmt.Sprintf("/api/v1/progress/recent?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *HTTPClient) ContinueWatching(ctx context.Context, limit int) ([]dto.ContinueWatchingItem, error) {
	var result dto.ContinueWatchingResponse
	path := fmt.Sprintf("/api/v1/progress/continue?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *HTTPClient) AllCoursesProgress(ctx context.Context) (*dto.AllCoursesResponse, error) {
	var result dto.AllCoursesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/progress/courses", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Courses

func (c *HTTPClient) ListCourses(ctx context.Context) ([]dto.CourseSummary, error) {
	var result dto.CourseListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/courses", nil, &result); err != nil {
		return nil, err
	}
	return result.Courses, nil
}

func (c *HTTPClient) Outline(ctx context.Context, courseID string) (shared.Outline, error) {
	var result shared.Outline
	err := c.do(ctx, http.MethodGet, "/api/v1/courses/"+url.PathEscape(courseID)+"/outline", nil, &result)
	return result, err
}

func (c *HTTPClient) CourseProgress(ctx context.Context, courseID string) (*dto.CourseProgressResponse, error) {
	var result dto.CourseProgressResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/courses/"+url.PathEscape(courseID)+"/progress", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) WeekStatuses(ctx context.Context, courseID string) (*dto.WeekStatusResponse, error) {
	var result dto.WeekStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/courses/"+url.PathEscape(courseID)+"/weeks/status", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Resolve(ctx context.Context, courseID, requested string) (*dto.Resolution, error) {
	var result dto.Resolution
	path := "/api/v1/courses/" + url.PathEscape(courseID) + "/resolve"
	if requested != "" {
		path += "?v=" + url.QueryEscape(requested)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ToggleCourse(ctx context.Context, courseID string) (*dto.BulkResponse, error) {
	var result dto.BulkResponse
	path := "/api/v1/courses/" + url.PathEscape(courseID) + "/complete"
	if err := c.do(ctx, http.MethodPost, path, nil, &result, http.StatusOK, http.StatusMultiStatus); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ToggleWeek(ctx context.Context, courseID, weekID string) (*dto.BulkResponse, error) {
	var result dto.BulkResponse
	path := "/api/v1/courses/" + url.PathEscape(courseID) + "/weeks/" + url.PathEscape(weekID) + "/complete"
	if err := c.do(ctx, http.MethodPost, path, nil, &result, http.StatusOK, http.StatusMultiStatus); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) Preferences(ctx context.Context) (*dto.PreferencesResponse, error) {
	var result dto.PreferencesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/preferences", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
