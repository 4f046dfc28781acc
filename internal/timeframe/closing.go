package timeframe

import "time"

// Closing returns the highest-priority active timeframe whose candle closes
// at the given UTC instant, which is expected to sit on a minute boundary.
// Precedence runs month > week > day > 4h > 1h > 30m > 15m > 5m > 1m and the
// first active match wins, so an hour boundary that is also a 15-minute
// boundary reports only the hour when both are enabled. An inactive
// timeframe never blocks a lower one from matching.
func Closing(t time.Time, active Set) (Key, bool) {
	t = t.UTC()
	day, hour, minute := t.Day(), t.Hour(), t.Minute()

	if day == 1 && hour == 0 && minute == 0 && active.Active(Mo1) {
		return Mo1, true
	}
	if t.Weekday() == time.Monday && hour == 0 && minute == 0 && active.Active(W1) {
		return W1, true
	}
	if hour == 0 && minute == 0 && active.Active(D1) {
		return D1, true
	}
	if hour%4 == 0 && minute == 0 && active.Active(H4) {
		return H4, true
	}
	if minute == 0 && active.Active(H1) {
		return H1, true
	}
	if minute%30 == 0 && active.Active(M30) {
		return M30, true
	}
	if minute%15 == 0 && active.Active(M15) {
		return M15, true
	}
	if minute%5 == 0 && active.Active(M5) {
		return M5, true
	}
	if active.Active(M1) {
		return M1, true
	}
	return "", false
}

// CloseMessage renders the close notification text for a timeframe.
func CloseMessage(key Key) string {
	switch key {
	case Mo1:
		return "Monthly candle closed!"
	case W1:
		return "WEEKLY candle closed!"
	case D1:
		return "Daily candle closed!"
	case H4:
		return "H4 candle closed!"
	case H1:
		return "Hourly candle closed!"
	case M30:
		return "30m candle closed!"
	case M15:
		return "15m candle closed!"
	case M5:
		return "5m candle closed!"
	case M1:
		return "1m candle closed!"
	default:
		return ""
	}
}
