package der

// Aggregate sums classified durations and normalizes them by scored
// reference speech. False alarm is normalized by reference time too, so it
// can exceed 100. A silent reference yields all zeros.
func Aggregate(intervals []ErrorInterval, scored float64) Metrics {
	m := Metrics{Scored: scored}
	for _, iv := range intervals {
		switch iv.Type {
		case MS:
			m.MissedTime += iv.Duration()
		case FA:
			m.FalseAlarmTime += iv.Duration()
		case SER:
			m.SpeakerErrorTime += iv.Duration()
		}
	}
	m.MS = percent(m.MissedTime, scored)
	m.FA = percent(m.FalseAlarmTime, scored)
	m.SER = percent(m.SpeakerErrorTime, scored)
	m.DER = m.MS + m.FA + m.SER
	return m
}

func percent(part, total float64) float64 {
	if total > 0 {
		return part / total * 100
	}
	return 0
}

// Totals pools several results into corpus-level metrics: times and scored
// speech are summed before normalizing, so long files weigh more.
func Totals(ms ...Metrics) Metrics {
	var t Metrics
	for _, m := range ms {
		t.Scored += m.Scored
		t.MissedTime += m.MissedTime
		t.FalseAlarmTime += m.FalseAlarmTime
		t.SpeakerErrorTime += m.SpeakerErrorTime
	}
	t.MS = percent(t.MissedTime, t.Scored)
	t.FA = percent(t.FalseAlarmTime, t.Scored)
	t.SER = percent(t.SpeakerErrorTime, t.Scored)
	t.DER = t.MS + t.FA + t.SER
	return t
}
