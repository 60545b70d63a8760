package asana

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tkc/asana-rules/internal/domain"
)

// sectionFakeAPI はセクション解決とタスク取得だけを実装するテスト用API
type sectionFakeAPI struct {
	sections       map[string]int64
	allSectionGIDs []int64
	tasksBySection map[int64][]*domain.Task
}

func (f *sectionFakeAPI) GetWorkspaceGIDFromName(ctx context.Context, name string, expectedGID int64) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}

func (f *sectionFakeAPI) GetProjectGIDFromName(ctx context.Context, wsGID int64, name string, expectedGID int64, archived bool) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}

func (f *sectionFakeAPI) GetUserTaskListGID(ctx context.Context, wsGID int64, isMe bool, userGID int64) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}

func (f *sectionFakeAPI) GetSectionGIDFromName(ctx context.Context, projOrUTLGID int64, name string, expectedGID int64) (int64, error) {
	gid, ok := f.sections[name]
	if !ok {
		return 0, &NotFoundError{ResourceType: "section", Name: name}
	}
	return gid, nil
}

func (f *sectionFakeAPI) GetSectionGIDsInProjectOrUTL(ctx context.Context, projOrUTLGID int64) ([]int64, error) {
	return f.allSectionGIDs, nil
}

func (f *sectionFakeAPI) GetTasks(ctx context.Context, params map[string]string, fields []string) ([]*domain.Task, error) {
	var sectGID int64
	fmt.Sscanf(params["section"], "%d", &sectGID)
	return f.tasksBySection[sectGID], nil
}

func (f *sectionFakeAPI) MoveTaskToSection(ctx context.Context, taskGID, sectGID int64, moveToBottom bool) error {
	return fmt.Errorf("not implemented")
}

func newSectionFakeAPI() *sectionFakeAPI {
	return &sectionFakeAPI{
		sections:       map[string]int64{"a": 1, "b": 2, "c": 3},
		allSectionGIDs: []int64{1, 2, 3},
		tasksBySection: map[int64][]*domain.Task{},
	}
}

func gidsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGetNetIncludeSectionGIDs(t *testing.T) {
	ctx := context.Background()
	api := newSectionFakeAPI()

	// 包含も除外も無ければ全セクション
	got, err := GetNetIncludeSectionGIDs(ctx, api, 10, nil, nil, nil, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gidsEqual(got, []int64{1, 2, 3}) {
		t.Errorf("default include = %v, want [1 2 3]", got)
	}

	// defaultToIncludeが偽なら空集合
	got, err = GetNetIncludeSectionGIDs(ctx, api, 10, nil, nil, nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("no-default include = %v, want empty", got)
	}

	// 明示的な包含があればそれがすべて。除外は無関係
	got, err = GetNetIncludeSectionGIDs(ctx, api, 10,
		[]string{"a"}, []int64{3}, []string{"b"}, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gidsEqual(got, []int64{1, 3}) {
		t.Errorf("explicit include = %v, want [1 3]", got)
	}

	// 除外だけなら全セクションから差し引く
	got, err = GetNetIncludeSectionGIDs(ctx, api, 10,
		nil, nil, []string{"b"}, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gidsEqual(got, []int64{1, 3}) {
		t.Errorf("exclude-only = %v, want [1 3]", got)
	}
}

func TestGetNetIncludeSectionGIDsConflict(t *testing.T) {
	ctx := context.Background()
	api := newSectionFakeAPI()

	// 同じセクションが名前経由の包含とgid経由の除外で重なる
	_, err := GetNetIncludeSectionGIDs(ctx, api, 10,
		[]string{"a"}, nil, []string{"a"}, nil, true)
	var conflictErr *DataConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("error = %v, want DataConflictError", err)
	}
	if !gidsEqual(conflictErr.GIDs, []int64{1}) {
		t.Errorf("conflict gids = %v, want [1]", conflictErr.GIDs)
	}
}

func TestGetNetIncludeSectionGIDsMissing(t *testing.T) {
	ctx := context.Background()
	api := newSectionFakeAPI()

	_, err := GetNetIncludeSectionGIDs(ctx, api, 10,
		nil, []int64{99}, nil, nil, true)
	var missingErr *DataMissingError
	if !errors.As(err, &missingErr) {
		t.Fatalf("error = %v, want DataMissingError", err)
	}
	if !gidsEqual(missingErr.GIDs, []int64{99}) {
		t.Errorf("missing gids = %v, want [99]", missingErr.GIDs)
	}

	// 存在しないgidの除外は致命的ではない
	got, err := GetNetIncludeSectionGIDs(ctx, api, 10,
		nil, nil, nil, []int64{99}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gidsEqual(got, []int64{1, 2, 3}) {
		t.Errorf("exclude missing = %v, want [1 2 3]", got)
	}
}

func taskNames(tasks []*domain.Task) []string {
	names := make([]string, len(tasks))
	for i, task := range tasks {
		names[i] = task.Name
	}
	return names
}

func TestFilterTasksByDatetimeNilWindowIsIdentity(t *testing.T) {
	tasks := []*domain.Task{
		{Name: "x"},
		{Name: "y", DueOn: "2021-01-02"},
	}
	got, err := FilterTasksByDatetime(tasks, time.Time{}, nil, CompareGE, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(tasks) {
		t.Errorf("nil window filtered to %d tasks, want %d", len(got), len(tasks))
	}
}

func TestFilterTasksByDatetimeRequiresBase(t *testing.T) {
	window := &domain.RelativeDelta{}
	_, err := FilterTasksByDatetime(nil, time.Time{}, window, CompareGE, nil)
	if err == nil {
		t.Error("zero base with a window should be an error")
	}
}

func TestFilterTasksByDatetimeDateOnly(t *testing.T) {
	// 基準は2021-01-01T21:00-05:00。日付粒度の"今日"ウィンドウ
	est := time.FixedZone("EST", -5*3600)
	base := time.Date(2021, 1, 1, 21, 0, 0, 0, est)
	window := &domain.RelativeDelta{}

	tasks := []*domain.Task{
		{Name: "tomorrow", DueOn: "2021-01-02"},
		{Name: "past", DueOn: "2020-12-31"},
		{Name: "dateless"},
	}

	got, err := FilterTasksByDatetime(tasks, base, window, CompareGE, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := taskNames(got)
	if len(names) != 1 || names[0] != "tomorrow" {
		t.Errorf("ge filter = %v, want [tomorrow]", names)
	}

	// 同じ入力に同じフィルタを重ねても結果は変わらない
	again, err := FilterTasksByDatetime(got, base, window, CompareGE, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gidsEqual(taskGIDs(again), taskGIDs(got)) {
		t.Errorf("filter is not idempotent: %v vs %v", taskNames(again), names)
	}
}

func taskGIDs(tasks []*domain.Task) []int64 {
	gids := make([]int64, len(tasks))
	for i, task := range tasks {
		gids[i] = task.GID
	}
	return gids
}

// 同じタスク集合でも基準日時のタイムゾーン次第で結果が変わる。
// どのゾーンで"今日"を判断するかは呼び出し側の責任
func TestFilterTasksByDatetimeTimezoneSensitivity(t *testing.T) {
	window := &domain.RelativeDelta{}
	tasks := []*domain.Task{{Name: "due", DueOn: "2021-01-01"}}

	est := time.FixedZone("EST", -5*3600)
	instant := time.Date(2021, 1, 2, 2, 0, 0, 0, time.UTC)

	// UTCでは既に1月2日なので期日1月1日はge"今日"を満たさない
	got, err := FilterTasksByDatetime(tasks, instant, window, CompareGE, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("utc base should filter the task out, got %v", taskNames(got))
	}

	// ESTではまだ1月1日の21時なので同じタスクが通る
	got, err = FilterTasksByDatetime(tasks, instant.In(est), window, CompareGE, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("est base should keep the task, got %v", taskNames(got))
	}
}

func TestFilterTasksByDatetimeWithTimeComponent(t *testing.T) {
	base := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
	window := &domain.RelativeDelta{Hours: 6}

	tasks := []*domain.Task{
		{Name: "before", DueAt: "2021-01-01T15:00:00Z", DueOn: "2021-01-01"},
		{Name: "after", DueAt: "2021-01-01T20:00:00Z", DueOn: "2021-01-01"},
		{Name: "date-only", DueOn: "2021-01-01"},
	}

	// 時刻成分を持つウィンドウで想定時刻なし: due_atが無いタスクは対象外
	got, err := FilterTasksByDatetime(tasks, base, window, CompareLE, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := taskNames(got)
	if len(names) != 1 || names[0] != "before" {
		t.Errorf("le filter = %v, want [before]", names)
	}

	// 想定時刻があればdue_onだけのタスクも日時比較に乗る
	assumed := &domain.TimeOfDay{Hour: 17}
	got, err = FilterTasksByDatetime(tasks, base, window, CompareLE, assumed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names = taskNames(got)
	if len(names) != 2 || names[0] != "before" || names[1] != "date-only" {
		t.Errorf("le filter with assumed time = %v, want [before date-only]", names)
	}
}

func TestFilterTasksByDatetimeMalformedDueIsLoud(t *testing.T) {
	base := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
	window := &domain.RelativeDelta{}

	_, err := FilterTasksByDatetime([]*domain.Task{
		{Name: "bad", DueOn: "01/02/2021"},
	}, base, window, CompareGE, nil)
	if err == nil {
		t.Error("malformed due_on should be an error, not a silent skip")
	}
}

func TestFilterTasksByCompleted(t *testing.T) {
	tasks := []*domain.Task{
		{Name: "open"},
		{Name: "done", Completed: true},
	}

	got := FilterTasksByCompleted(tasks, nil)
	if len(got) != 2 {
		t.Errorf("nil filter = %v, want all", taskNames(got))
	}

	completed := false
	got = FilterTasksByCompleted(tasks, &completed)
	if len(got) != 1 || got[0].Name != "open" {
		t.Errorf("incomplete filter = %v, want [open]", taskNames(got))
	}
}

func TestGetFilteredTasksRequiresExactlyOneMode(t *testing.T) {
	ctx := context.Background()
	api := newSectionFakeAPI()

	_, err := GetFilteredTasks(ctx, api, TaskFilterOptions{SectionGID: 1})
	if err == nil {
		t.Error("neither mode should be a precondition error")
	}

	_, err = GetFilteredTasks(ctx, api, TaskFilterOptions{
		SectionGID:      1,
		MatchNoDueDate:  true,
		MinTimeUntilDue: &domain.RelativeDelta{},
	})
	if err == nil {
		t.Error("both modes should be a precondition error")
	}
}

func TestGetFilteredTasksNoDueDate(t *testing.T) {
	ctx := context.Background()
	api := newSectionFakeAPI()
	api.tasksBySection[1] = []*domain.Task{
		{Name: "dateless"},
		{Name: "due", DueOn: "2021-01-02"},
	}

	got, err := GetFilteredTasks(ctx, api, TaskFilterOptions{
		SectionGID:     1,
		MatchNoDueDate: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "dateless" {
		t.Errorf("no-due-date filter = %v, want [dateless]", taskNames(got))
	}
}

// 期日なし条件でも完了状態フィルタは最後に必ず適用される
func TestGetFilteredTasksNoDueDateAppliesCompletedFilter(t *testing.T) {
	ctx := context.Background()
	api := newSectionFakeAPI()
	api.tasksBySection[1] = []*domain.Task{
		{Name: "open dateless"},
		{Name: "done dateless", Completed: true},
		{Name: "due", DueOn: "2021-01-02"},
	}

	completed := false
	got, err := GetFilteredTasks(ctx, api, TaskFilterOptions{
		SectionGID:     1,
		MatchNoDueDate: true,
		Completed:      &completed,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "open dateless" {
		t.Errorf("no-due-date filter = %v, want [open dateless]", taskNames(got))
	}
}

func TestGetFilteredTasksWindow(t *testing.T) {
	ctx := context.Background()
	api := newSectionFakeAPI()
	api.tasksBySection[1] = []*domain.Task{
		{Name: "soon", DueOn: "2021-01-02"},
		{Name: "late", DueOn: "2021-02-15"},
		{Name: "past", DueOn: "2020-12-20"},
		{Name: "done", DueOn: "2021-01-02", Completed: true},
	}

	completed := false
	got, err := GetFilteredTasks(ctx, api, TaskFilterOptions{
		SectionGID:      1,
		MinTimeUntilDue: &domain.RelativeDelta{},
		MaxTimeUntilDue: &domain.RelativeDelta{Weeks: 1},
		Completed:       &completed,
		Location:        time.UTC,
		Now:             time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "soon" {
		t.Errorf("window filter = %v, want [soon]", taskNames(got))
	}
}
