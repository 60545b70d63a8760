package asana

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tkc/asana-rules/internal/domain"
)

// DataConflictError は同じデータが同時に包含と除外の両方に指定されたことを表す
type DataConflictError struct {
	GIDs  []int64
	Names []string
}

func (e *DataConflictError) Error() string {
	msg := "explicit names/gids cannot be simultaneously included and excluded." +
		" Check gids (some may not be explicitly in list if provided by name): " +
		joinGIDs(e.GIDs)
	if len(e.Names) > 0 {
		msg += ". Also check names: `" + strings.Join(e.Names, "`, `") + "`"
	}
	return msg
}

// DataMissingError は明示的に指定されたデータが実際には存在しないことを表す
type DataMissingError struct {
	GIDs []int64
}

func (e *DataMissingError) Error() string {
	return "explicitly included gids missing from project/user task list: " +
		joinGIDs(e.GIDs)
}

func joinGIDs(gids []int64) string {
	parts := make([]string, len(gids))
	for i, gid := range gids {
		parts[i] = fmt.Sprintf("%d", gid)
	}
	return strings.Join(parts, ", ")
}

// GetNetIncludeSectionGIDs はプロジェクトまたはユーザータスクリストの全セクション
// に対して包含/除外リストを適用し、正味の包含セクションgid集合を返す。
// 名前はすべてgidに解決してから包含・除外それぞれの和集合を取る。
//
// 明示的に包含されたgidが存在しなければDataMissingError、同じセクションが
// 包含と除外の両方に指定されていればDataConflictErrorになる。存在しないgidの
// 除外は無害だが怪しいので警告だけ出す。
//
// 明示的な包含が1つでもあれば結果はその包含集合そのもの。無ければ
// defaultToInclude次第で「全セクション−除外」か空集合になる。
func GetNetIncludeSectionGIDs(ctx context.Context, api API, projOrUTLGID int64,
	includeNames []string, includeGIDs []int64,
	excludeNames []string, excludeGIDs []int64,
	defaultToInclude bool) ([]int64, error) {

	allGIDs, err := api.GetSectionGIDsInProjectOrUTL(ctx, projOrUTLGID)
	if err != nil {
		return nil, err
	}
	allSet := make(map[int64]bool, len(allGIDs))
	for _, gid := range allGIDs {
		allSet[gid] = true
	}

	// 診断メッセージ用にgid→名前の逆引きを保持する
	nameForGID := make(map[int64]string)

	includeSet := make(map[int64]bool)
	for _, name := range includeNames {
		gid, err := api.GetSectionGIDFromName(ctx, projOrUTLGID, name, 0)
		if err != nil {
			return nil, err
		}
		includeSet[gid] = true
		nameForGID[gid] = name
	}
	for _, gid := range includeGIDs {
		includeSet[gid] = true
	}

	excludeSet := make(map[int64]bool)
	for _, name := range excludeNames {
		gid, err := api.GetSectionGIDFromName(ctx, projOrUTLGID, name, 0)
		if err != nil {
			return nil, err
		}
		excludeSet[gid] = true
		nameForGID[gid] = name
	}
	for _, gid := range excludeGIDs {
		excludeSet[gid] = true
	}

	var missing []int64
	for gid := range includeSet {
		if !allSet[gid] {
			missing = append(missing, gid)
		}
	}
	if len(missing) > 0 {
		sortGIDs(missing)
		return nil, &DataMissingError{GIDs: missing}
	}

	var suspicious []int64
	for gid := range excludeSet {
		if !allSet[gid] {
			suspicious = append(suspicious, gid)
		}
	}
	if len(suspicious) > 0 {
		sortGIDs(suspicious)
		fmt.Printf("⚠️  Excluded section gids not found in project/user task list"+
			" (harmless, but check config): %s\n", joinGIDs(suspicious))
	}

	var conflicts []int64
	var conflictNames []string
	for gid := range includeSet {
		if excludeSet[gid] {
			conflicts = append(conflicts, gid)
			if name, ok := nameForGID[gid]; ok {
				conflictNames = append(conflictNames, name)
			}
		}
	}
	if len(conflicts) > 0 {
		sortGIDs(conflicts)
		sort.Strings(conflictNames)
		return nil, &DataConflictError{GIDs: conflicts, Names: conflictNames}
	}

	// 明示的な包含があればそれが結果のすべて
	if len(includeSet) > 0 || !defaultToInclude {
		return setToSorted(includeSet), nil
	}

	net := make(map[int64]bool, len(allSet))
	for gid := range allSet {
		if !excludeSet[gid] {
			net[gid] = true
		}
	}
	return setToSorted(net), nil
}

func sortGIDs(gids []int64) {
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })
}

func setToSorted(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for gid := range set {
		out = append(out, gid)
	}
	sortGIDs(out)
	return out
}

// CompareOp は期日フィルタの比較演算子
type CompareOp int

const (
	// CompareGE は「閾値以降が期日」(due >= threshold)
	CompareGE CompareOp = iota
	// CompareLE は「閾値以前が期日」(due <= threshold)
	CompareLE
)

// FilterTasksByDatetime は基準日時+相対ウィンドウの閾値と期日を比較して
// タスクを絞り込む。windowがnilなら何もせず全タスクを返す。
//
// ウィンドウが日付粒度（時刻成分なし）なら期日(due_on)を日付として比較する。
// 時刻成分を含むなら期限日時(due_at)を優先して日時で比較し、無ければ
// assumedTime(想定時刻)をbaseのタイムゾーンでdue_onに合成する。期限日時も
// 想定時刻も無いタスクは日時比較の対象にできないので読み飛ばす。
//
// baseはタイムゾーンを決めた上で渡すこと。Asanaの日付はタスクを設定した
// 時点のゾーンに固定されているため、実行マシンのゾーンと一致するとは限らない。
func FilterTasksByDatetime(tasks []*domain.Task, base time.Time,
	window *domain.RelativeDelta, op CompareOp,
	assumedTime *domain.TimeOfDay) ([]*domain.Task, error) {

	if window == nil {
		return tasks, nil
	}
	if base.IsZero() {
		return nil, fmt.Errorf("base datetime must be an explicit, zone-aware time")
	}

	threshold := window.AddTo(base)
	dateOnly := window.IsDateOnly()

	var out []*domain.Task
	for _, task := range tasks {
		if !task.HasDueDate() {
			continue
		}

		if dateOnly {
			dueDate, err := time.ParseInLocation("2006-01-02", task.DueOn, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("task %d has malformed due_on %q: %w",
					task.GID, task.DueOn, err)
			}
			ty, tm, td := threshold.Date()
			thresholdDate := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
			if compare(dueDate, thresholdDate, op) {
				out = append(out, task)
			}
			continue
		}

		var due time.Time
		switch {
		case task.DueAt != "":
			parsed, err := time.Parse(time.RFC3339, task.DueAt)
			if err != nil {
				return nil, fmt.Errorf("task %d has malformed due_at %q: %w",
					task.GID, task.DueAt, err)
			}
			due = parsed
		case assumedTime != nil:
			dueDate, err := time.Parse("2006-01-02", task.DueOn)
			if err != nil {
				return nil, fmt.Errorf("task %d has malformed due_on %q: %w",
					task.GID, task.DueOn, err)
			}
			due = assumedTime.On(dueDate.Year(), dueDate.Month(), dueDate.Day(),
				base.Location())
		default:
			// 日付しか無く想定時刻も無いタスクは日時比較できない
			continue
		}

		if compare(due, threshold, op) {
			out = append(out, task)
		}
	}
	return out, nil
}

func compare(due, threshold time.Time, op CompareOp) bool {
	switch op {
	case CompareGE:
		return !due.Before(threshold)
	case CompareLE:
		return !due.After(threshold)
	}
	return false
}

// FilterTasksByCompleted は完了状態でタスクを絞り込む。completedがnilなら
// 何もせず全タスクを返す
func FilterTasksByCompleted(tasks []*domain.Task, completed *bool) []*domain.Task {
	if completed == nil {
		return tasks
	}
	var out []*domain.Task
	for _, task := range tasks {
		if task.Completed == *completed {
			out = append(out, task)
		}
	}
	return out
}

// TaskFilterOptions はGetFilteredTasksの絞り込み条件
type TaskFilterOptions struct {
	SectionGID        int64
	MatchNoDueDate    bool                  // 期日なしタスクだけに一致させる
	MinTimeUntilDue   *domain.RelativeDelta // 期日までの最小相対時間
	MaxTimeUntilDue   *domain.RelativeDelta // 期日までの最大相対時間
	AssumedTimeForMin *domain.TimeOfDay     // minの比較でdue_onに合成する想定時刻
	AssumedTimeForMax *domain.TimeOfDay     // maxの比較でdue_onに合成する想定時刻
	Completed         *bool                 // nilなら完了状態で絞らない
	Location          *time.Location        // "今"を支配するタイムゾーン。nilならローカル
	Now               time.Time             // ゼロ値ならtime.Now()
}

// taskFields は絞り込みに必要な取得フィールドの固定セット
var taskFields = []string{"due_at", "due_on", "name", "resource_type", "completed"}

// GetFilteredTasks はセクションのタスクをAPIから取得し、期日ウィンドウまたは
// 期日なし条件で絞り込む。MatchNoDueDateとmin/maxウィンドウは排他で、
// ちょうど一方を指定しなければならない
func GetFilteredTasks(ctx context.Context, api API, opts TaskFilterOptions) ([]*domain.Task, error) {
	windowGiven := opts.MinTimeUntilDue != nil || opts.MaxTimeUntilDue != nil
	if opts.MatchNoDueDate == windowGiven {
		return nil, fmt.Errorf("must specify either match-no-due-date or a" +
			" min/max time-until-due window, but not both")
	}

	params := map[string]string{
		"section": formatGID(opts.SectionGID),
	}
	tasks, err := api.GetTasks(ctx, params, taskFields)
	if err != nil {
		return nil, err
	}

	if opts.MatchNoDueDate {
		var out []*domain.Task
		for _, task := range tasks {
			if !task.HasDueDate() {
				out = append(out, task)
			}
		}
		return FilterTasksByCompleted(out, opts.Completed), nil
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	base := opts.Now
	if base.IsZero() {
		base = time.Now()
	}
	base = base.In(loc)

	tasks, err = FilterTasksByDatetime(tasks, base, opts.MinTimeUntilDue,
		CompareGE, opts.AssumedTimeForMin)
	if err != nil {
		return nil, err
	}
	tasks, err = FilterTasksByDatetime(tasks, base, opts.MaxTimeUntilDue,
		CompareLE, opts.AssumedTimeForMax)
	if err != nil {
		return nil, err
	}
	return FilterTasksByCompleted(tasks, opts.Completed), nil
}
