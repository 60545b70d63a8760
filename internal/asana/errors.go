package asana

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// NotFoundError は名前検索で1件も一致しなかったことを表す
type NotFoundError struct {
	ResourceType string
	Name         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the %s %q was not found", e.ResourceType, e.Name)
}

// DuplicateNameError は同じ名前が異なるgidで複数一致したことを表す
type DuplicateNameError struct {
	ResourceType string
	Name         string
	GIDs         [2]int64
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("the %s %q matched at least 2 gids: %d and %d",
		e.ResourceType, e.Name, e.GIDs[0], e.GIDs[1])
}

// MismatchedDataError は名前は一致したがgidが指定された期待値と異なることを表す
type MismatchedDataError struct {
	ResourceType string
	Name         string
	Found        int64
	Expected     int64
}

func (e *MismatchedDataError) Error() string {
	return fmt.Sprintf("the %s %q found gid %d, but expected gid %d",
		e.ResourceType, e.Name, e.Found, e.Expected)
}

// APIError はAsana APIからのエラーレスポンス
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("asana API error [%d]", e.StatusCode)
	}
	return fmt.Sprintf("asana API error [%d]: %s", e.StatusCode, e.Message)
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		apiErr.Message = strings.Join(msgs, "; ")
	}
	return apiErr
}
