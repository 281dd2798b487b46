package domain

import "time"

type OrderStatistics struct {
	Start     time.Time
	End       time.Time
	Unpaid    int
	Paid      int
	Shipped   int
	Completed int
	Closed    int
}

func (s *OrderStatistics) Add(status OrderStatus, count int) {
	switch status {
	case OrderStatusUnpaid:
		s.Unpaid += count
	case OrderStatusPaid:
		s.Paid += count
	case OrderStatusShipped:
		s.Shipped += count
	case OrderStatusCompleted:
		s.Completed += count
	case OrderStatusClosed:
		s.Closed += count
	}
}

// StatisticsWindow fills zero bounds with the default window (start of the
// day one week ago until now) and clamps end to now.
func StatisticsWindow(start, end, now time.Time) (time.Time, time.Time) {
	if start.IsZero() {
		y, m, d := now.AddDate(0, 0, -7).Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}
	if end.IsZero() || end.After(now) {
		end = now
	}
	return start, end
}
