// Package metadata encodes a small set of typed values into the single
// string that is carried through the signing provider and echoed back in
// every webhook.
//
// Two wire forms are supported. The tagged form
//
//	TYPE&tag&value|TYPE&tag&value
//
// round-trips every supported type exactly. The older pair form
//
//	Key=value|Key=value
//
// carries strings only.
//
// Values are a closed set of variants (Bool, Int32, Int64, Float, Double,
// String, Date, DateTime, Time, TimeSpan, Enum and ShortID); nothing else
// can be stored.
package metadata
