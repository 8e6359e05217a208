// utilitário pequeno para formatação de valores numéricos em headers.
//    Evita puxar fmt só para formatação simples

package webhookguard

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// formatSeconds arredonda para cima: Retry-After nunca deve dizer "0" antes da hora.
func formatSeconds(d time.Duration) string {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return formatInt(s)
}
