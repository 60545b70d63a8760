package domain

// Task はAsana APIから取得したタスクのスナップショットを表す。
// フィルタエンジンはこれを読み取り専用として扱い、変更しない。
type Task struct {
	GID          int64  // AsanaのタスクGID
	Name         string // タスク名
	ResourceType string // リソース種別（通常 "task"）
	Completed    bool   // 完了済みかどうか
	DueOn        string // 期日（YYYY-MM-DD）。未設定は空文字
	DueAt        string // 期限日時（RFC 3339、タイムゾーン付き）。未設定は空文字
}

// HasDueDate は期日か期限日時のいずれかが設定されているかを返す
func (t *Task) HasDueDate() bool {
	return t.DueOn != "" || t.DueAt != ""
}
