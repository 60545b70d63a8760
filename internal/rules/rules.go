package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tkc/asana-rules/internal/asana"
	"github.com/tkc/asana-rules/internal/config"
)

// ruleLoader はルール定義ファイルのセクションからルールを組み立てる。
// 設定不備は診断を出力してnilを返す
type ruleLoader func(store *config.SectionStore, ruleID, ruleType string,
	api asana.API, loc *time.Location) Rule

// ruleLoaders は `rule type` の別名からローダーへの対応表。
// 各ルール種別がinitでregisterRuleTypeを呼んで自分を登録する
var ruleLoaders = map[string]ruleLoader{}

func registerRuleType(load ruleLoader, typeNames ...string) {
	for _, name := range typeNames {
		ruleLoaders[name] = load
	}
}

// LoadAllFromConfig はルール定義ファイルの全セクションをルールに組み立てる。
// 種別不明や解析失敗のセクションは警告を出して読み飛ばし、残りの読み込みを
// 続行する。locは基準日時のタイムゾーン(ルール側のtimezoneキーが優先)
func LoadAllFromConfig(store *config.SectionStore, api asana.API,
	loc *time.Location) []Rule {

	var loaded []Rule
	for _, ruleID := range store.Sections() {
		ruleType, _ := store.GetString(ruleID, "rule type")
		ruleType = strings.TrimSpace(ruleType)

		load, ok := ruleLoaders[ruleType]
		if !ok {
			fmt.Printf("⚠️  Failed to match any rule type for rules file"+
				" section %q\n", ruleID)
			continue
		}

		rule := load(store, ruleID, ruleType, api, loc)
		if rule == nil {
			fmt.Printf("⚠️  Matched rule type but failed to parse for rules"+
				" file section %q\n", ruleID)
			continue
		}
		loaded = append(loaded, rule)
	}
	return loaded
}

// ExecuteRules は全ルールを順に実行する。途中で失敗しても残りのルールは
// 必ず実行し、全ルールが成功したときだけtrueを返す
func ExecuteRules(ctx context.Context, rules []Rule, forceTestReportOnly bool) bool {
	overall := true
	for _, rule := range rules {
		if !rule.Execute(ctx, forceTestReportOnly) {
			fmt.Printf("✗ Failure in fully executing %q.\n", rule.ID())
			overall = false
		}
	}
	return overall
}
