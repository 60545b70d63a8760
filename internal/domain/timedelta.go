package domain

import "time"

// RelativeDelta はカレンダー基準の相対時間差を表す。
// 月・年は固定日数ではなく暦どおりに加算される（固定長のtime.Durationとは別物）。
type RelativeDelta struct {
	Minutes int
	Hours   int
	Days    int
	Weeks   int
	Months  int
	Years   int
}

// IsZero は全フィールドが0かどうかを返す
func (d RelativeDelta) IsZero() bool {
	return d == RelativeDelta{}
}

// IsDateOnly は時刻成分を持たない（日付粒度の）デルタかどうかを返す
func (d RelativeDelta) IsDateOnly() bool {
	return d.Hours == 0 && d.Minutes == 0
}

// AddTo は基準日時にこのデルタを適用した日時を返す。
// 年月を先に加算し（月末は丸める）、その後に日・週、最後に時刻成分を加える。
func (d RelativeDelta) AddTo(t time.Time) time.Time {
	t = addMonths(t, d.Years*12+d.Months)
	t = t.AddDate(0, 0, d.Days+7*d.Weeks)
	return t.Add(time.Duration(d.Hours)*time.Hour + time.Duration(d.Minutes)*time.Minute)
}

// addMonths は月を加算する。存在しない日付は対象月の末日に丸める
// （1月31日 + 1ヶ月 → 2月28日。AddDateの正規化だと3月3日になってしまう）。
func addMonths(t time.Time, months int) time.Time {
	if months == 0 {
		return t
	}
	y, m, day := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	first = first.AddDate(0, months, 0)
	if last := lastDayOfMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// TimeOfDay は日付を持たない時刻を表す。OffsetSecはUTCからのオフセット（秒）で、
// タイムゾーン表記を含まない時刻文字列から作られた場合はnil。
type TimeOfDay struct {
	Hour      int
	Minute    int
	Second    int
	OffsetSec *int
}

// HasTimezone はタイムゾーンオフセット付きで指定された時刻かどうかを返す
func (t TimeOfDay) HasTimezone() bool {
	return t.OffsetSec != nil
}

// On は指定した年月日とロケーションでこの時刻のtime.Timeを組み立てる。
// オフセット付きの時刻はロケーションよりオフセットを優先する。
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	if t.OffsetSec != nil {
		loc = time.FixedZone("", *t.OffsetSec)
	}
	return time.Date(year, month, day, t.Hour, t.Minute, t.Second, 0, loc)
}
