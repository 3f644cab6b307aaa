package services

import (
	"sort"
	"time"
)

// activityDateLayout 是 activity_dates 中日期字符串的格式。
const activityDateLayout = "2006-01-02"

// DefaultMaxActivityDates 是活跃日期集合保留的上限。
const DefaultMaxActivityDates = 365

// CalendarDay 把时间截断为 loc 时区下的自然日（00:00）。
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// FormatActivityDate 返回自然日的 YYYY-MM-DD 表示。
func FormatActivityDate(day time.Time) string {
	return day.Format(activityDateLayout)
}

// ParseActivityDates 解析 YYYY-MM-DD 列表，无法解析的条目被跳过。
func ParseActivityDates(values []string, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		day, err := time.ParseInLocation(activityDateLayout, v, loc)
		if err != nil {
			continue
		}
		out = append(out, day)
	}
	return out
}

// ComputeStreak 根据活跃日期集合计算截至 today 的连续阅读天数。
//
// 日期按自然日去重并倒序排列；最近一天必须是今天或昨天，否则为 0。
// 之后逐个检查相邻日期是否恰好相差一天，遇到缺口即停止。
// 晚于 today 的日期被忽略。
func ComputeStreak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	loc := today.Location()
	todayDay := CalendarDay(today, loc)

	seen := make(map[string]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := CalendarDay(d, loc)
		if day.After(todayDay) {
			continue
		}
		key := FormatActivityDate(day)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	yesterday := todayDay.AddDate(0, 0, -1)
	if !sameDay(days[0], todayDay) && !sameDay(days[0], yesterday) {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if !sameDay(days[i], days[i-1].AddDate(0, 0, -1)) {
			break
		}
		streak++
	}
	return streak
}

// AddActivityDate 把 day 并入日期集合：去重、倒序并截断到 max 条。
func AddActivityDate(dates []string, day time.Time, max int) []string {
	if max <= 0 {
		max = DefaultMaxActivityDates
	}
	key := FormatActivityDate(day)
	out := make([]string, 0, len(dates)+1)
	out = append(out, key)
	seen := map[string]struct{}{key: {}}
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	// YYYY-MM-DD 的字典序与时间序一致
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
