package advisory

import "errors"

// AlertsMap is the finalized per-PURL alert index for one gate session.
// Every requested PURL is a key in Alerts; a clean package maps to an empty
// list, never a missing one, so "known clean" and "not queried" stay
// distinguishable. PURLs whose fetch failed additionally appear in Unknown
// with the failure cause.
type AlertsMap struct {
	Alerts  map[string][]Alert
	Unknown map[string]error
}

// Aggregate drains a fetch stream to completion and folds it into an
// AlertsMap. It never exits early: policy evaluation must see every available
// result, or the verdict would depend on stream ordering. Results for PURLs
// that were not requested are dropped.
func Aggregate(purls []string, results <-chan Result) *AlertsMap {
	unique := Dedup(purls)
	m := &AlertsMap{
		Alerts:  make(map[string][]Alert, len(unique)),
		Unknown: make(map[string]error),
	}
	for _, p := range unique {
		m.Alerts[p] = []Alert{}
	}

	for res := range results {
		if _, requested := m.Alerts[res.PURL]; !requested {
			continue
		}
		if res.Err != nil {
			m.Unknown[res.PURL] = res.Err
			continue
		}
		// Pass wire duplicates through as-is; the service owns dedup.
		m.Alerts[res.PURL] = append(m.Alerts[res.PURL], res.Alerts...)
	}

	return m
}

// SessionFailed reports total outage: at least one PURL was requested and
// every single one failed with an unreachable-class error. Scattered per-PURL
// failures do not count.
func (m *AlertsMap) SessionFailed() bool {
	if len(m.Alerts) == 0 || len(m.Unknown) != len(m.Alerts) {
		return false
	}
	for _, err := range m.Unknown {
		if !errors.Is(err, ErrUnreachable) {
			return false
		}
	}
	return true
}
