package utils

import "time"

// 100ns intervals between 1601-01-01 and 1970-01-01
const ntEpochDelta = 11644473600000 * 10000

// WindowsTime is an NT timestamp, 100ns intervals since 1601-01-01 UTC.
type WindowsTime struct {
	Stamp uint64
}

// UnixMilli returns the milliseconds since the unix epoch.
func (winTime WindowsTime) UnixMilli() int64 {
	return (int64(winTime.Stamp) - ntEpochDelta) / 10000
}

func (winTime WindowsTime) ToTime() time.Time {
	return time.UnixMilli(winTime.UnixMilli()).UTC()
}

func (winTime WindowsTime) ConvertToIsoTime() string {
	return winTime.ToTime().Format("2006-01-02T15:04:05.000Z")
}
