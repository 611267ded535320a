package edge

import (
	"strconv"
	"time"
	"unicode/utf8"
)

// maxLoggedUserAgent limita o tamanho do user agent nos logs.
const maxLoggedUserAgent = 100

func formatInt(v int) string { return strconv.Itoa(v) }

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

// ceilSeconds arredonda a duração para cima em segundos inteiros.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}

// unixCeil devolve o instante em segundos unix, arredondado para cima.
func unixCeil(t time.Time) int64 {
	ms := t.UnixMilli()
	s := ms / 1000
	if ms%1000 > 0 {
		s++
	}
	return s
}

// isoTimestamp segue o formato de Date.toISOString (UTC, milissegundos).
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
