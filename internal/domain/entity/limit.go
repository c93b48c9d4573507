package entity

// DateLayout формат даты дневного лимита.
const DateLayout = "2006-01-02"

// DailyLimit счётчик покупок за календарный день. Если LastDate не сегодня,
// счётчик считается нулевым.
type DailyLimit struct {
	ActorID  string
	EntryID  string
	Count    int
	LastDate string
}

// Remaining сколько ещё можно купить сегодня.
func (d DailyLimit) Remaining(limit int, today string) int {
	if limit <= 0 {
		return -1
	}

	if d.LastDate != today {
		return limit
	}

	return max(0, limit-d.Count)
}

// LifetimeLimit счётчик покупок за всё время, никогда не сбрасывается сам.
type LifetimeLimit struct {
	ActorID string
	EntryID string
	Count   int
}

func (l LifetimeLimit) Remaining(limit int) int {
	if limit <= 0 {
		return -1
	}

	return max(0, limit-l.Count)
}
