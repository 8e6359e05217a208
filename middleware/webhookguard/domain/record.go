package domain

import "time"

type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
)

// ClientRecord é o histórico de requisições aceitas de um cliente.
// Timestamps seguem a ordem de chegada (mais recente no fim).
type ClientRecord struct {
	Timestamps []time.Time
}

// Prune descarta timestamps com uma hora ou mais em relação a now.
func (c *ClientRecord) Prune(now time.Time) {
	kept := c.Timestamps[:0]
	for _, ts := range c.Timestamps {
		if now.Sub(ts) < HistoryWindow {
			kept = append(kept, ts)
		}
	}
	c.Timestamps = kept
}

// CountWithin conta timestamps mais novos que window.
func (c *ClientRecord) CountWithin(now time.Time, window time.Duration) int {
	n := 0
	for _, ts := range c.Timestamps {
		if now.Sub(ts) < window {
			n++
		}
	}
	return n
}

// Check aplica a regra da janela deslizante: poda, conta e decide.
//
// Quando o limite é atingido a requisição atual NÃO entra no histórico
// (check-then-append nas duas janelas); o chamador deve impor o bloqueio.
func (c *ClientRecord) Check(now time.Time, lim Limits) Verdict {
	c.Prune(now)

	v := Verdict{
		MinuteCount: c.CountWithin(now, MinuteWindow),
		HourCount:   len(c.Timestamps),
	}
	switch {
	case v.MinuteCount+1 >= lim.PerMinute:
		v.Limited, v.Window = true, WindowMinute
	case v.HourCount+1 >= lim.PerHour:
		v.Limited, v.Window = true, WindowHour
	default:
		c.Timestamps = append(c.Timestamps, now)
	}
	return v
}

// Verdict é o resultado de uma checagem de taxa.
// MinuteCount/HourCount são as contagens pós-poda e pré-append.
type Verdict struct {
	Limited     bool
	Window      Window
	MinuteCount int
	HourCount   int
}

// BlockEntry marca quando o bloqueio de um cliente foi imposto.
type BlockEntry struct {
	ImposedAt time.Time
}

func (b BlockEntry) Active(now time.Time, d time.Duration) bool {
	return now.Sub(b.ImposedAt) < d
}
