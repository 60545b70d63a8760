package rules

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tkc/asana-rules/internal/domain"
)

// Rule は自動化ルールの共通インターフェース。
// ルール種別ごとに設定の読み込み・検証・実行を実装する
type Rule interface {
	// ID はルール定義ファイルのセクション名として付けられたルールIDを返す
	ID() string
	// Type はルール種別タグを返す
	Type() string
	// TestReportOnly はドライラン専用ルールかどうかを返す
	TestReportOnly() bool
	// IsValid はAPIとの同期検証の結果を返す。初回呼び出しで一度だけ検証し、
	// 以後は結果を固定する
	IsValid(ctx context.Context) bool
	// IsCriteriaMet は実行条件（時間帯など）を満たしているかを返す
	IsCriteriaMet() bool
	// Execute はルールを実行する。ドライラン時は副作用の代わりに報告だけ行う
	Execute(ctx context.Context, forceTestReportOnly bool) bool
}

// ConfigError はルール設定の不正な組み合わせを表す
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return e.msg
}

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// TimeframeDupeError は同じ時間単位が複数回指定されたことを表す
type TimeframeDupeError struct {
	Count      int
	Indicators string
}

func (e *TimeframeDupeError) Error() string {
	return fmt.Sprintf("Could not parse time frame - Found %d entries for %s"+
		" when only 0-1 allowed.", e.Count, e.Indicators)
}

// validity は検証結果の三値状態
type validity int

const (
	validityUnchecked validity = iota
	validityValid
	validityInvalid
)

// ruleBase は全ルール種別が共有する土台
type ruleBase struct {
	id             string
	ruleType       string
	testReportOnly bool
	validity       validity
}

func (r *ruleBase) ID() string {
	return r.id
}

func (r *ruleBase) Type() string {
	return r.ruleType
}

func (r *ruleBase) TestReportOnly() bool {
	return r.testReportOnly
}

// IsCriteriaMet は既定で常に真。時間帯などの実行条件を持つルール種別が上書きする
func (r *ruleBase) IsCriteriaMet() bool {
	return true
}

// isValidCached は未検証なら一度だけsyncを呼んで結果を固定する。
// 検証はAPI呼び出しを伴うことがあるため、インスタンスごとに再試行しない
func (r *ruleBase) isValidCached(sync func() bool) bool {
	if r.validity == validityUnchecked {
		if sync() {
			r.validity = validityValid
		} else {
			r.validity = validityInvalid
		}
	}
	return r.validity == validityValid
}

// TimeframeIndicator は時間単位を表す表記とその大文字小文字の区別
type TimeframeIndicator struct {
	Pattern       string // 正規表現断片。例: "minutes?" や "m"
	CaseSensitive bool
}

// ParseTimeframe は時間量文字列からひとつの時間単位の整数値を取り出す。
// 一致なしなら0。同じ単位が2回以上現れたらTimeframeDupeError。
//
// 一致は「符号つき数字+任意の1空白+単位表記」で、一致の直前が行頭・空白・
// 英字・カンマ、単位表記の直後が空白・符号・数字・カンマ・行末である場合に
// 限る。この境界規則が "3 Mondays" の誤マッチ("3 M"→月)などを防いでいるので
// 変更してはならない
func ParseTimeframe(text string, indicators []TimeframeIndicator) (int, error) {
	type match struct {
		num string
	}
	var matches []match

	for _, ind := range indicators {
		expr := `([+-]?\d+)\s?` + ind.Pattern
		if !ind.CaseSensitive {
			expr = `(?i)` + expr
		}
		ptn := regexp.MustCompile(expr)

		for _, loc := range ptn.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if !boundaryBefore(text, start) || !boundaryAfter(text, end) {
				continue
			}
			matches = append(matches, match{num: text[loc[2]:loc[3]]})
		}
	}

	if len(matches) == 0 {
		return 0, nil
	}
	if len(matches) > 1 {
		names := make([]string, len(indicators))
		for i, ind := range indicators {
			names[i] = ind.Pattern
		}
		return 0, &TimeframeDupeError{
			Count:      len(matches),
			Indicators: strings.Join(names, "/"),
		}
	}

	n, err := strconv.Atoi(matches[0].num)
	if err != nil {
		return 0, fmt.Errorf("could not parse time frame number %q: %w",
			matches[0].num, err)
	}
	return n, nil
}

// boundaryBefore は一致の直前が行頭・空白・英字・カンマかどうかを返す
func boundaryBefore(text string, start int) bool {
	if start == 0 {
		return true
	}
	b := text[start-1]
	return isSpaceByte(b) || isLetterByte(b) || b == ','
}

// boundaryAfter は一致の直後が行末・空白・符号・数字・カンマかどうかを返す
func boundaryAfter(text string, end int) bool {
	if end == len(text) {
		return true
	}
	b := text[end]
	return isSpaceByte(b) || b == '+' || b == '-' || b == ',' ||
		(b >= '0' && b <= '9')
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func isLetterByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// timeframeUnits は各時間単位の表記。短縮形は大文字小文字を区別し、
// 完全形は区別しない(mが分、Mが月)
var timeframeUnits = []struct {
	indicators []TimeframeIndicator
	assign     func(delta *domain.RelativeDelta, n int)
}{
	{
		indicators: []TimeframeIndicator{{"minutes?", false}, {"m", true}},
		assign:     func(d *domain.RelativeDelta, n int) { d.Minutes = n },
	},
	{
		indicators: []TimeframeIndicator{{"hours?", false}, {"h", true}},
		assign:     func(d *domain.RelativeDelta, n int) { d.Hours = n },
	},
	{
		indicators: []TimeframeIndicator{{"days?", false}, {"d", true}},
		assign:     func(d *domain.RelativeDelta, n int) { d.Days = n },
	},
	{
		indicators: []TimeframeIndicator{{"weeks?", false}, {"w", true}},
		assign:     func(d *domain.RelativeDelta, n int) { d.Weeks = n },
	},
	{
		indicators: []TimeframeIndicator{{"months?", false}, {"M", true}},
		assign:     func(d *domain.RelativeDelta, n int) { d.Months = n },
	},
	{
		indicators: []TimeframeIndicator{{"years?", false}, {"y", true}},
		assign:     func(d *domain.RelativeDelta, n int) { d.Years = n },
	},
}

// ParseTimedeltaArg は "3d -2h" のような時間量文字列をカレンダー相対の
// 時間差に組み立てる。空文字列はnilを返す(指定なしの意味)
func ParseTimedeltaArg(arg string) (*domain.RelativeDelta, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}

	delta := &domain.RelativeDelta{}
	for _, unit := range timeframeUnits {
		n, err := ParseTimeframe(arg, unit.indicators)
		if err != nil {
			return nil, err
		}
		unit.assign(delta, n)
	}
	return delta, nil
}

// TZRequirement は時刻文字列にタイムゾーンを要求するか禁止するか
type TZRequirement int

const (
	// TZProhibited はタイムゾーンを含んではならない
	TZProhibited TZRequirement = iota
	// TZRequired はタイムゾーンを含まなければならない
	TZRequired
)

var timeLayoutsAware = []string{"15:04:05Z07:00", "15:04Z07:00"}
var timeLayoutsNaive = []string{"15:04:05", "15:04"}

// ParseTimeArg はISO-8601の時刻文字列を解析する。空文字列はnilを返す。
// タイムゾーンの有無がreqと矛盾するとエラーになる
func ParseTimeArg(arg string, req TZRequirement) (*domain.TimeOfDay, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(arg)

	for _, layout := range timeLayoutsAware {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if req == TZProhibited {
			return nil, fmt.Errorf("Timezone prohibited for time string, but"+
				" one was provided.  String: '%s', parsed: `%s`",
				arg, parsed.Format("15:04:05Z07:00"))
		}
		_, offset := parsed.Zone()
		return &domain.TimeOfDay{
			Hour:      parsed.Hour(),
			Minute:    parsed.Minute(),
			Second:    parsed.Second(),
			OffsetSec: &offset,
		}, nil
	}

	for _, layout := range timeLayoutsNaive {
		parsed, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if req == TZRequired {
			return nil, fmt.Errorf("Timezone required for time string, but"+
				" none was provided.  String: '%s', parsed: `%s`",
				arg, parsed.Format("15:04:05"))
		}
		return &domain.TimeOfDay{
			Hour:   parsed.Hour(),
			Minute: parsed.Minute(),
			Second: parsed.Second(),
		}, nil
	}

	return nil, fmt.Errorf("could not parse time string: '%s'", arg)
}
