package configlib

import (
	"time"
)

var (
	// TimeConverter converts time.Time members to and from RFC3339 string
	// scalars:
	//
	//	started: 2023-10-05T12:00:00Z
	TimeConverter = NewConverter(serializeTime, deserializeTime)

	// DurationConverter converts time.Duration members to and from Go
	// duration string scalars:
	//
	//	timeout: 1h30m
	DurationConverter = NewConverter(serializeDuration, deserializeDuration)
)

// Stdlib bundles the standard library converters. Apply it when building a
// store:
//
//	store, _ := configlib.NewStore[Config](configlib.WithConverters(configlib.Stdlib()))
func Stdlib() Registration {
	return Group(TimeConverter, DurationConverter)
}

func serializeTime(t time.Time) (any, error) {
	return t.Format(time.RFC3339), nil
}

func deserializeTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, mismatch("an RFC3339 timestamp string", v)
	}
	return time.Parse(time.RFC3339, s)
}

func serializeDuration(d time.Duration) (any, error) {
	return d.String(), nil
}

func deserializeDuration(v any) (time.Duration, error) {
	s, ok := v.(string)
	if !ok {
		return 0, mismatch("a duration string", v)
	}
	return time.ParseDuration(s)
}
