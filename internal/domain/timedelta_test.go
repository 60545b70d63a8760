package domain

import (
	"testing"
	"time"
)

func TestRelativeDeltaIsZero(t *testing.T) {
	if !(RelativeDelta{}).IsZero() {
		t.Error("empty delta should be zero")
	}
	if (RelativeDelta{Days: 1}).IsZero() {
		t.Error("delta with days should not be zero")
	}
}

func TestRelativeDeltaIsDateOnly(t *testing.T) {
	if !(RelativeDelta{Days: 3, Weeks: 1, Months: 2, Years: 1}).IsDateOnly() {
		t.Error("delta without time components should be date-only")
	}
	if (RelativeDelta{Hours: 1}).IsDateOnly() {
		t.Error("delta with hours should not be date-only")
	}
	if (RelativeDelta{Minutes: -4}).IsDateOnly() {
		t.Error("delta with minutes should not be date-only")
	}
}

func TestRelativeDeltaAddTo(t *testing.T) {
	base := time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		delta RelativeDelta
		want  time.Time
	}{
		{
			name:  "zero",
			delta: RelativeDelta{},
			want:  base,
		},
		{
			name:  "days and weeks",
			delta: RelativeDelta{Days: 3, Weeks: 1},
			want:  time.Date(2021, 3, 25, 12, 0, 0, 0, time.UTC),
		},
		{
			name:  "hours and minutes",
			delta: RelativeDelta{Hours: 3, Minutes: -4},
			want:  time.Date(2021, 3, 15, 14, 56, 0, 0, time.UTC),
		},
		{
			name:  "negative days",
			delta: RelativeDelta{Days: -20},
			want:  time.Date(2021, 2, 23, 12, 0, 0, 0, time.UTC),
		},
		{
			name:  "months and years",
			delta: RelativeDelta{Months: 2, Years: 1},
			want:  time.Date(2022, 5, 15, 12, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.delta.AddTo(base)
			if !got.Equal(tt.want) {
				t.Errorf("AddTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

// 月の加算は翌月の実在しない日へ繰り越さず、月末に切り詰める
func TestRelativeDeltaAddToClampsMonthEnd(t *testing.T) {
	jan31 := time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC)

	got := (RelativeDelta{Months: 1}).AddTo(jan31)
	want := time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Jan 31 + 1 month = %v, want %v", got, want)
	}

	leap := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	got = (RelativeDelta{Months: 1}).AddTo(leap)
	want = time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Jan 31 2020 + 1 month = %v, want %v", got, want)
	}

	got = (RelativeDelta{Months: -2}).AddTo(time.Date(2021, 5, 31, 0, 0, 0, 0, time.UTC))
	want = time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("May 31 - 2 months = %v, want %v", got, want)
	}
}

func TestTimeOfDayOn(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)

	tod := TimeOfDay{Hour: 21, Minute: 30}
	got := tod.On(2021, time.January, 2, est)
	want := time.Date(2021, 1, 2, 21, 30, 0, 0, est)
	if !got.Equal(want) {
		t.Errorf("On() = %v, want %v", got, want)
	}

	// 自前のオフセットを持つ場合は渡されたタイムゾーンより優先される
	offset := 0
	tod = TimeOfDay{Hour: 12, OffsetSec: &offset}
	got = tod.On(2021, time.January, 2, est)
	want = time.Date(2021, 1, 2, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("On() with offset = %v, want %v", got, want)
	}
	if !tod.HasTimezone() {
		t.Error("HasTimezone() should be true when offset is set")
	}
}

func TestTaskHasDueDate(t *testing.T) {
	dateless := Task{}
	if dateless.HasDueDate() {
		t.Error("task without due fields should have no due date")
	}
	dueOn := Task{DueOn: "2021-01-02"}
	if !dueOn.HasDueDate() {
		t.Error("task with due_on should have a due date")
	}
	dueAt := Task{DueAt: "2021-01-02T12:00:00Z"}
	if !dueAt.HasDueDate() {
		t.Error("task with due_at should have a due date")
	}
}
