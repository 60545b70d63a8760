package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/tkc/asana-rules/internal/domain"
)

// baseURL はAsana REST APIのベースURL
const baseURL = "https://app.asana.com/api/1.0"

// API はルールエンジンが利用するAsana操作の集合。
// テストではフェイク実装に差し替える
type API interface {
	GetWorkspaceGIDFromName(ctx context.Context, wsName string, expectedGID int64) (int64, error)
	GetProjectGIDFromName(ctx context.Context, wsGID int64, projName string, expectedGID int64, archived bool) (int64, error)
	GetUserTaskListGID(ctx context.Context, wsGID int64, isMe bool, userGID int64) (int64, error)
	GetSectionGIDFromName(ctx context.Context, projOrUTLGID int64, sectName string, expectedGID int64) (int64, error)
	GetSectionGIDsInProjectOrUTL(ctx context.Context, projOrUTLGID int64) ([]int64, error)
	GetTasks(ctx context.Context, params map[string]string, fields []string) ([]*domain.Task, error)
	MoveTaskToSection(ctx context.Context, taskGID, sectGID int64, moveToBottom bool) error
}

// Client はAsana REST APIクライアント
type Client struct {
	http *http.Client
	base string
}

var _ API = (*Client)(nil)

// NewClient は新しいClientを作成する
func NewClient(token string) *Client {
	src := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), src)
	return &Client{
		http: httpClient,
		base: baseURL,
	}
}

// User はAsanaユーザー
type User struct {
	GID   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NamedResource はgid/name/resource_typeを持つAsanaリソース
type NamedResource struct {
	GID          string `json:"gid"`
	Name         string `json:"name"`
	ResourceType string `json:"resource_type"`
}

// Me は自分自身のユーザー情報を取得する。API接続の確認に使う
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetWorkspaces はアクセス可能なワークスペースの一覧を取得する
func (c *Client) GetWorkspaces(ctx context.Context) ([]NamedResource, error) {
	return c.getList(ctx, "/workspaces", nil)
}

// GetProjects はワークスペース内のプロジェクト一覧を取得する
func (c *Client) GetProjects(ctx context.Context, wsGID int64, archived bool) ([]NamedResource, error) {
	query := url.Values{}
	query.Set("workspace", formatGID(wsGID))
	query.Set("archived", strconv.FormatBool(archived))
	return c.getList(ctx, "/projects", query)
}

// GetSections はプロジェクトまたはユーザータスクリストのセクション一覧を取得する。
// ユーザータスクリストのgidでもプロジェクトと同じエンドポイントが使える
func (c *Client) GetSections(ctx context.Context, projOrUTLGID int64) ([]NamedResource, error) {
	return c.getList(ctx, "/projects/"+formatGID(projOrUTLGID)+"/sections", nil)
}

// GetWorkspaceGIDFromName はワークスペース名からgidを取得する。
// 名前が一意であることを確認し、expectedGIDが非0ならその一致も確認する
func (c *Client) GetWorkspaceGIDFromName(ctx context.Context, wsName string, expectedGID int64) (int64, error) {
	workspaces, err := c.GetWorkspaces(ctx)
	if err != nil {
		return 0, err
	}
	return findGIDFromName(workspaces, "workspace", wsName, expectedGID)
}

// GetProjectGIDFromName はプロジェクト名からgidを取得する
func (c *Client) GetProjectGIDFromName(ctx context.Context, wsGID int64, projName string, expectedGID int64, archived bool) (int64, error) {
	projects, err := c.GetProjects(ctx, wsGID, archived)
	if err != nil {
		return 0, err
	}
	return findGIDFromName(projects, "project", projName, expectedGID)
}

// GetUserTaskListGID はユーザータスクリストの"プロジェクトID"を取得する。
// isMeか具体的なuserGIDのどちらか一方だけを指定すること
func (c *Client) GetUserTaskListGID(ctx context.Context, wsGID int64, isMe bool, userGID int64) (int64, error) {
	if isMe == (userGID != 0) {
		return 0, fmt.Errorf("must provide `is_me` or `user_gid`, but not both")
	}

	// APIドキュメントより、gidの代わりに'me'を使ってもアクセスは等価
	user := "me"
	if !isMe {
		user = formatGID(userGID)
	}
	query := url.Values{}
	query.Set("workspace", formatGID(wsGID))

	var utl NamedResource
	if err := c.get(ctx, "/users/"+user+"/user_task_list", query, &utl); err != nil {
		return 0, err
	}
	return parseGID(utl.GID)
}

// GetSectionGIDFromName はセクション名からgidを取得する
func (c *Client) GetSectionGIDFromName(ctx context.Context, projOrUTLGID int64, sectName string, expectedGID int64) (int64, error) {
	sections, err := c.GetSections(ctx, projOrUTLGID)
	if err != nil {
		return 0, err
	}
	return findGIDFromName(sections, "section", sectName, expectedGID)
}

// GetSectionGIDsInProjectOrUTL はプロジェクトまたはユーザータスクリスト内の
// 全セクションのgidを返す
func (c *Client) GetSectionGIDsInProjectOrUTL(ctx context.Context, projOrUTLGID int64) ([]int64, error) {
	sections, err := c.GetSections(ctx, projOrUTLGID)
	if err != nil {
		return nil, err
	}
	gids := make([]int64, 0, len(sections))
	for _, s := range sections {
		gid, err := parseGID(s.GID)
		if err != nil {
			return nil, err
		}
		gids = append(gids, gid)
	}
	return gids, nil
}

// wireTask はAPIのタスク表現
type wireTask struct {
	GID          string  `json:"gid"`
	Name         string  `json:"name"`
	ResourceType string  `json:"resource_type"`
	Completed    bool    `json:"completed"`
	DueOn        *string `json:"due_on"`
	DueAt        *string `json:"due_at"`
}

// GetTasks はパラメータに一致するタスクを取得する。fieldsで取得フィールドを
// 指定する（gidは常に返る）
func (c *Client) GetTasks(ctx context.Context, params map[string]string, fields []string) ([]*domain.Task, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	if len(fields) > 0 {
		query.Set("opt_fields", strings.Join(fields, ","))
	}

	raw, err := c.getListRaw(ctx, "/tasks", query)
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(raw))
	for _, item := range raw {
		var wt wireTask
		if err := json.Unmarshal(item, &wt); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		gid, err := parseGID(wt.GID)
		if err != nil {
			return nil, err
		}
		task := &domain.Task{
			GID:          gid,
			Name:         wt.Name,
			ResourceType: wt.ResourceType,
			Completed:    wt.Completed,
		}
		if wt.DueOn != nil {
			task.DueOn = *wt.DueOn
		}
		if wt.DueAt != nil {
			task.DueAt = *wt.DueAt
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// MoveTaskToSection はタスクを指定セクションへ移動する。
// セクション直付けの追加はデフォルトで先頭、プロジェクト+セクション経由の
// 追加はデフォルトで末尾になるAPIの性質を利用する
func (c *Client) MoveTaskToSection(ctx context.Context, taskGID, sectGID int64, moveToBottom bool) error {
	if moveToBottom {
		var section struct {
			GID     string `json:"gid"`
			Project struct {
				GID string `json:"gid"`
			} `json:"project"`
		}
		if err := c.get(ctx, "/sections/"+formatGID(sectGID), nil, &section); err != nil {
			return err
		}
		body := map[string]string{
			"project": section.Project.GID,
			"section": formatGID(sectGID),
		}
		return c.post(ctx, "/tasks/"+formatGID(taskGID)+"/addProject", body)
	}

	body := map[string]string{
		"task": formatGID(taskGID),
	}
	return c.post(ctx, "/sections/"+formatGID(sectGID)+"/addTask", body)
}

// findGIDFromName は一覧データから名前でgidを探す。名前の一意性を確認し、
// expectedGIDが非0なら一致も確認する
func findGIDFromName(data []NamedResource, resourceType, name string, expectedGID int64) (int64, error) {
	var foundGID int64
	found := false
	for _, entry := range data {
		if entry.ResourceType != resourceType || entry.Name != name {
			continue
		}
		gid, err := parseGID(entry.GID)
		if err != nil {
			return 0, err
		}
		if found && gid != foundGID {
			return 0, &DuplicateNameError{
				ResourceType: resourceType,
				Name:         name,
				GIDs:         [2]int64{foundGID, gid},
			}
		}
		foundGID = gid
		found = true
	}

	if !found {
		return 0, &NotFoundError{ResourceType: resourceType, Name: name}
	}
	if expectedGID != 0 && foundGID != expectedGID {
		return 0, &MismatchedDataError{
			ResourceType: resourceType,
			Name:         name,
			Found:        foundGID,
			Expected:     expectedGID,
		}
	}
	return foundGID, nil
}

// dataEnvelope はAsanaのレスポンスの外側
type dataEnvelope struct {
	Data     json.RawMessage `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	env, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

func (c *Client) getList(ctx context.Context, path string, query url.Values) ([]NamedResource, error) {
	raw, err := c.getListRaw(ctx, path, query)
	if err != nil {
		return nil, err
	}
	out := make([]NamedResource, 0, len(raw))
	for _, item := range raw {
		var res NamedResource
		if err := json.Unmarshal(item, &res); err != nil {
			return nil, fmt.Errorf("failed to decode response for %s: %w", path, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// getListRaw はページネーションを辿って全件を取得する
func (c *Client) getListRaw(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", "100")

	var all []json.RawMessage
	for {
		env, err := c.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return nil, err
		}
		var page []json.RawMessage
		if err := json.Unmarshal(env.Data, &page); err != nil {
			return nil, fmt.Errorf("failed to decode response for %s: %w", path, err)
		}
		all = append(all, page...)

		if env.NextPage == nil || env.NextPage.Offset == "" {
			return all, nil
		}
		query.Set("offset", env.NextPage.Offset)
	}
}

func (c *Client) post(ctx context.Context, path string, data map[string]string) error {
	_, err := c.do(ctx, http.MethodPost, path, nil, map[string]any{"data": data})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*dataEnvelope, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp)
	}

	var env dataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return &env, nil
}

func formatGID(gid int64) string {
	return strconv.FormatInt(gid, 10)
}

func parseGID(gid string) (int64, error) {
	n, err := strconv.ParseInt(gid, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected non-numeric gid %q", gid)
	}
	return n, nil
}
