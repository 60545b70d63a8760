package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/tkc/asana-rules/internal/asana"
	"github.com/tkc/asana-rules/internal/config"
	"github.com/tkc/asana-rules/internal/domain"
)

// moveTasksParams はMove Tasksルールの全パラメータ。読み込み時に設定から
// 埋められ、同期検証で導出フィールドが一度だけ埋まる
type moveTasksParams struct {
	projectName     string
	projectGID      *int64
	isMyTasksList   *bool
	userTaskListGID *int64
	workspaceName   string
	workspaceGID    *int64

	minTimeUntilDueStr string
	minTimeUntilDue    *domain.RelativeDelta
	maxTimeUntilDueStr string
	maxTimeUntilDue    *domain.RelativeDelta
	assumedTimeForMin  *domain.TimeOfDay
	assumedTimeForMax  *domain.TimeOfDay
	matchNoDueDate     bool

	srcSectionsIncludeNames []string
	srcSectionsIncludeGIDs  []int64
	srcSectionsExcludeNames []string
	srcSectionsExcludeGIDs  []int64

	dstSectionName string
	dstSectionGID  *int64
	moveToBottom   bool
	timezone       string

	// 同期検証で導出される値
	effectiveProjectGID      int64
	srcNetIncludeSectionGIDs []int64
}

// MoveTasksRule は期日条件に一致したタスクを指定セクションへ移動するルール
type MoveTasksRule struct {
	ruleBase
	params moveTasksParams
	api    asana.API
	loc    *time.Location
}

// moveTasksTypeNames はルール定義ファイルの `rule type` として
// このルールを指せる名前の一覧
var moveTasksTypeNames = []string{
	"move tasks",
	"auto-promote tasks",
	"auto-promote",
	"auto promote tasks",
	"auto promote",
	"promote tasks",
}

func init() {
	registerRuleType(func(store *config.SectionStore, ruleID, ruleType string,
		api asana.API, loc *time.Location) Rule {
		if rule := loadMoveTasksFromConfig(store, ruleID, ruleType, api, loc); rule != nil {
			return rule
		}
		// 具象型のnilをそのまま返すと非nilインターフェースになる
		return nil
	}, moveTasksTypeNames...)
}

// newMoveTasksRule はパラメータの排他制約を検証してルールを作る。
// 制約違反ごとに固有のメッセージでConfigErrorを返す
func newMoveTasksRule(base ruleBase, params moveTasksParams, api asana.API,
	loc *time.Location) (*MoveTasksRule, error) {

	isMyTasks := params.isMyTasksList != nil && *params.isMyTasksList
	if isMyTasks && params.userTaskListGID != nil {
		return nil, newConfigError("Cannot specify 'for my tasks list' and" +
			" 'user task list gid' together.")
	}

	isProjectGiven := params.projectName != "" || params.projectGID != nil
	isUserTaskListGiven := isMyTasks || params.userTaskListGID != nil
	if isProjectGiven == isUserTaskListGiven {
		return nil, newConfigError("Must specify to use a project or user" +
			" task list, but not both.")
	}

	if params.workspaceName == "" && params.workspaceGID == nil {
		return nil, newConfigError("Must specify workspace.")
	}

	isTimeGiven := params.minTimeUntilDueStr != "" || params.maxTimeUntilDueStr != ""
	isTimeParsed := params.minTimeUntilDue != nil || params.maxTimeUntilDue != nil
	if isTimeGiven != isTimeParsed {
		return nil, newConfigError("Failed to parse min/max time until due" +
			" -- check format.")
	}
	if isTimeGiven == params.matchNoDueDate {
		return nil, newConfigError("Must specify either min/max time until" +
			" due or match no due date (but not both).")
	}

	if params.dstSectionName == "" && params.dstSectionGID == nil {
		return nil, newConfigError("Must specify dst section.")
	}

	return &MoveTasksRule{
		ruleBase: base,
		params:   params,
		api:      api,
		loc:      loc,
	}, nil
}

// loadMoveTasksFromConfig はルール定義ファイルのセクションからMove Tasks
// ルールを組み立てる。設定不備はエラー出力して nil を返す。読み込みの失敗は
// そのルールだけの失敗であり、他のルールの読み込みは続行される
func loadMoveTasksFromConfig(store *config.SectionStore, ruleID, ruleType string,
	api asana.API, loc *time.Location) *MoveTasksRule {

	testReportOnly, _, err := store.GetBool(ruleID, "test report only")
	if err != nil {
		fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
			" strong typed values.  Exception: %v\n", err)
		return nil
	}
	base := ruleBase{
		id:             ruleID,
		ruleType:       ruleType,
		testReportOnly: testReportOnly,
	}

	params := moveTasksParams{}
	params.projectName, _ = store.GetString(ruleID, "project name")
	params.workspaceName, _ = store.GetString(ruleID, "workspace name")
	params.dstSectionName, _ = store.GetString(ruleID, "dst section name")
	params.timezone, _ = store.GetString(ruleID, "timezone")

	intKeys := []struct {
		key string
		dst **int64
	}{
		{"project gid", &params.projectGID},
		{"user task list id", &params.userTaskListGID},
		{"workspace gid", &params.workspaceGID},
		{"dst section gid", &params.dstSectionGID},
	}
	for _, k := range intKeys {
		n, ok, err := store.GetInt(ruleID, k.key)
		if err != nil {
			fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
				" strong typed values.  Exception: %v\n", err)
			return nil
		}
		if ok {
			*k.dst = &n
		}
	}

	if v, ok, err := store.GetBool(ruleID, "for my tasks list"); err != nil {
		fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
			" strong typed values.  Exception: %v\n", err)
		return nil
	} else if ok {
		params.isMyTasksList = &v
	}
	if v, ok, err := store.GetBool(ruleID, "no due date"); err != nil {
		fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
			" strong typed values.  Exception: %v\n", err)
		return nil
	} else if ok {
		params.matchNoDueDate = v
	}
	if v, ok, err := store.GetBool(ruleID, "move to bottom"); err != nil {
		fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
			" strong typed values.  Exception: %v\n", err)
		return nil
	} else if ok {
		params.moveToBottom = v
	}

	params.minTimeUntilDueStr, _ = store.GetString(ruleID, "min time until due")
	params.maxTimeUntilDueStr, _ = store.GetString(ruleID, "max time until due")
	params.minTimeUntilDue, err = ParseTimedeltaArg(params.minTimeUntilDueStr)
	if err == nil {
		params.maxTimeUntilDue, err = ParseTimedeltaArg(params.maxTimeUntilDueStr)
	}
	if err != nil {
		fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
			" timeframe args.  Exception: %v\n", err)
		return nil
	}

	// 想定時刻はdue_onしか無いタスクの比較に使う。タイムゾーンは基準日時の
	// ものを使うため、ここでの指定は禁止
	assumedMinStr, _ := store.GetString(ruleID, "assumed time for min due")
	assumedMaxStr, _ := store.GetString(ruleID, "assumed time for max due")
	params.assumedTimeForMin, err = ParseTimeArg(assumedMinStr, TZProhibited)
	if err == nil {
		params.assumedTimeForMax, err = ParseTimeArg(assumedMaxStr, TZProhibited)
	}
	if err != nil {
		fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
			" time args.  Exception: %v\n", err)
		return nil
	}

	params.srcSectionsIncludeNames = store.GetStringList(ruleID,
		"src sections include names", true)
	params.srcSectionsIncludeGIDs = store.GetIntList(ruleID,
		"src sections include gids")
	params.srcSectionsExcludeNames = store.GetStringList(ruleID,
		"src sections exclude names", true)
	params.srcSectionsExcludeGIDs = store.GetIntList(ruleID,
		"src sections exclude gids")

	if params.timezone != "" {
		ruleLoc, err := time.LoadLocation(params.timezone)
		if err != nil {
			fmt.Printf("✗ Failed to parse Move Tasks Rule from config.  Check"+
				" time args.  Exception: %v\n", err)
			return nil
		}
		loc = ruleLoc
	}

	rule, err := newMoveTasksRule(base, params, api, loc)
	if err != nil {
		fmt.Printf("✗ Failed to create Move Tasks Rule from config: %v\n", err)
		return nil
	}
	return rule
}

// IsValid は初回呼び出しでAPIとの同期検証を行い、結果を固定して返す
func (r *MoveTasksRule) IsValid(ctx context.Context) bool {
	return r.isValidCached(func() bool {
		return r.syncAndValidateWithAPI(ctx)
	})
}

// syncAndValidateWithAPI は名前をgidに解決し、正味の移動元セクション集合と
// 移動先セクションを確定する。APIや解決のエラーはここで握ってfalseを返す。
// 同期できないルールは単に無効なだけで、プログラム全体の失敗ではない
func (r *MoveTasksRule) syncAndValidateWithAPI(ctx context.Context) bool {
	err := r.sync(ctx)
	if err != nil {
		fmt.Printf("✗ Failed to sync and validate rule %q with the API."+
			"  Skipping rule.  Exception: %v\n", r.id, err)
		return false
	}
	return true
}

func (r *MoveTasksRule) sync(ctx context.Context) error {
	p := &r.params

	// ワークスペース
	if p.workspaceName != "" {
		var expected int64
		if p.workspaceGID != nil {
			expected = *p.workspaceGID
		}
		gid, err := r.api.GetWorkspaceGIDFromName(ctx, p.workspaceName, expected)
		if err != nil {
			return err
		}
		p.workspaceGID = &gid
	}

	// ユーザータスクリスト
	if p.isMyTasksList != nil && *p.isMyTasksList {
		gid, err := r.api.GetUserTaskListGID(ctx, *p.workspaceGID, true, 0)
		if err != nil {
			return err
		}
		p.userTaskListGID = &gid
	}

	// プロジェクト
	if p.projectName != "" {
		var expected int64
		if p.projectGID != nil {
			expected = *p.projectGID
		}
		gid, err := r.api.GetProjectGIDFromName(ctx, *p.workspaceGID,
			p.projectName, expected, false)
		if err != nil {
			return err
		}
		p.projectGID = &gid
	}

	switch {
	case p.projectGID != nil:
		p.effectiveProjectGID = *p.projectGID
	case p.userTaskListGID != nil:
		p.effectiveProjectGID = *p.userTaskListGID
	}

	// 移動元セクションの正味集合
	netGIDs, err := asana.GetNetIncludeSectionGIDs(ctx, r.api,
		p.effectiveProjectGID,
		p.srcSectionsIncludeNames, p.srcSectionsIncludeGIDs,
		p.srcSectionsExcludeNames, p.srcSectionsExcludeGIDs, true)
	if err != nil {
		return err
	}
	p.srcNetIncludeSectionGIDs = netGIDs

	// 移動先セクション
	if p.dstSectionName != "" {
		var expected int64
		if p.dstSectionGID != nil {
			expected = *p.dstSectionGID
		}
		gid, err := r.api.GetSectionGIDFromName(ctx, p.effectiveProjectGID,
			p.dstSectionName, expected)
		if err != nil {
			return err
		}
		p.dstSectionGID = &gid
	}

	return nil
}

// Execute は条件に一致したタスクを移動先セクションへ移す。
// ドライラン時は移動せず、移動したであろうタスクを報告する
func (r *MoveTasksRule) Execute(ctx context.Context, forceTestReportOnly bool) bool {
	if !r.IsValid(ctx) {
		fmt.Printf("✗ Failed to execute %q since invalid.\n", r.id)
		return false
	}
	if !r.IsCriteriaMet() {
		fmt.Printf("Skipping execution of %q completely since criteria"+
			" not met.\n", r.id)
		return false
	}

	dryRun := r.testReportOnly || forceTestReportOnly
	p := &r.params
	notCompleted := false

	var tasks []*domain.Task
	for _, sectionGID := range p.srcNetIncludeSectionGIDs {
		fetched, err := asana.GetFilteredTasks(ctx, r.api, asana.TaskFilterOptions{
			SectionGID:        sectionGID,
			MatchNoDueDate:    p.matchNoDueDate,
			MinTimeUntilDue:   p.minTimeUntilDue,
			MaxTimeUntilDue:   p.maxTimeUntilDue,
			AssumedTimeForMin: p.assumedTimeForMin,
			AssumedTimeForMax: p.assumedTimeForMax,
			Completed:         &notCompleted,
			Location:          r.loc,
		})
		if err != nil {
			fmt.Printf("✗ Failed to get filtered tasks for rule %q: %v\n",
				r.id, err)
			return false
		}
		tasks = append(tasks, fetched...)
	}

	// 取得と逆順に処理することで、先頭への移動を繰り返しても
	// タスクの相対順序が保たれる
	success := true
	for i := len(tasks) - 1; i >= 0; i-- {
		task := tasks[i]
		if dryRun {
			fmt.Printf("📋 [dry-run] Would move task %q (%d) to section %d\n",
				task.Name, task.GID, *p.dstSectionGID)
			continue
		}
		err := r.api.MoveTaskToSection(ctx, task.GID, *p.dstSectionGID,
			p.moveToBottom)
		if err != nil {
			fmt.Printf("✗ Failed to move task %q (%d) for rule %q: %v\n",
				task.Name, task.GID, r.id, err)
			success = false
			continue
		}
		fmt.Printf("✓ Moved task %q (%d) to section %d\n",
			task.Name, task.GID, *p.dstSectionGID)
	}
	return success
}
