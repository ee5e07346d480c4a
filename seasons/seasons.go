// Package seasons содержит календарную арифметику недельных сезонов.
// Сезон длится с понедельника по воскресенье; номер сезона считается
// от фиксированной опорной даты, поэтому не требует состояния в БД.
package seasons

import "time"

// FirstSeasonStart — понедельник перед первым турниром лиги, опорная точка
// отсчёта сезонов. Всё, что раньше — «предыстория», сезон 0.
var FirstSeasonStart = time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)

const week = 7 * 24 * time.Hour

// Number возвращает номер сезона для заданной даты (1-based).
func Number(at time.Time) int {
	day := truncateToDay(at)
	if day.Before(FirstSeasonStart) {
		return 0
	}
	return int(day.Sub(FirstSeasonStart)/week) + 1
}

// Dates возвращает границы сезона: понедельник и воскресенье включительно.
func Dates(number int) (start, end time.Time) {
	start = FirstSeasonStart.Add(time.Duration(number-1) * week)
	end = start.Add(6 * 24 * time.Hour)
	return start, end
}

// CurrentNumber возвращает номер текущего сезона.
func CurrentNumber(now time.Time) int {
	return Number(now)
}

// PreviousNumber возвращает номер предыдущего сезона (0, если текущий первый).
func PreviousNumber(now time.Time) int {
	return CurrentNumber(now) - 1
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
