package data

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of JobStatus messages
const (
	pbStatusID protowire.Number = iota + 1
	pbStatusState
	pbStatusMessage
	pbStatusError
	pbStatusTime
)

// Field numbers of HostMetrics messages
const (
	pbMetricsHost protowire.Number = iota + 1
	pbMetricsCPU
	pbMetricsMem
	pbMetricsDisk
	pbMetricsLoad1
	pbMetricsBusy
	pbMetricsTime
)

// PbAppendString appends a string field, empty strings are omitted
func PbAppendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// PbAppendBytes appends a bytes field, empty values are omitted
func PbAppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func pbAppendDouble(b []byte, num protowire.Number, f float64) []byte {
	if f == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(f))
}

func pbAppendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// times are sint64 nanoseconds since the Unix epoch
func pbAppendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(t.UnixNano()))
}

func pbTime(v uint64) time.Time {
	return time.Unix(0, protowire.DecodeZigZag(v))
}

// PbRange calls fn for every field of a protobuf message. Varint and
// fixed64 values are passed in v, length delimited values in b. Fields of
// other wire types are skipped.
func PbRange(buf []byte, fn func(num protowire.Number, v uint64, b []byte)) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("decoding protobuf tag: %v: %w", protowire.ParseError(n), ErrParse)
		}
		buf = buf[n:]

		var v uint64
		var b []byte
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(buf)
		case protowire.Fixed64Type:
			v, n = protowire.ConsumeFixed64(buf)
		case protowire.BytesType:
			b, n = protowire.ConsumeBytes(buf)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
			if n >= 0 {
				buf = buf[n:]
				continue
			}
		}

		if n < 0 {
			return fmt.Errorf("decoding protobuf field %v: %v: %w", num, protowire.ParseError(n), ErrParse)
		}
		buf = buf[n:]

		fn(num, v, b)
	}

	return nil
}

// ToPb encodes a job status
func (s JobStatus) ToPb() []byte {
	var b []byte
	b = PbAppendString(b, pbStatusID, s.ID)
	b = PbAppendString(b, pbStatusState, string(s.State))
	b = PbAppendString(b, pbStatusMessage, s.Message)
	b = PbAppendString(b, pbStatusError, s.Error)
	b = pbAppendTime(b, pbStatusTime, s.Time)
	return b
}

// PbDecodeJobStatus decodes a protobuf job status
func PbDecodeJobStatus(buf []byte) (JobStatus, error) {
	var s JobStatus
	err := PbRange(buf, func(num protowire.Number, v uint64, b []byte) {
		switch num {
		case pbStatusID:
			s.ID = string(b)
		case pbStatusState:
			s.State = JobState(b)
		case pbStatusMessage:
			s.Message = string(b)
		case pbStatusError:
			s.Error = string(b)
		case pbStatusTime:
			s.Time = pbTime(v)
		}
	})
	return s, err
}

// ToPb encodes host metrics
func (m HostMetrics) ToPb() []byte {
	var b []byte
	b = PbAppendString(b, pbMetricsHost, m.Host)
	b = pbAppendDouble(b, pbMetricsCPU, m.CPUPercent)
	b = pbAppendDouble(b, pbMetricsMem, m.MemPercent)
	b = pbAppendDouble(b, pbMetricsDisk, m.DiskPercent)
	b = pbAppendDouble(b, pbMetricsLoad1, m.Load1)
	b = pbAppendBool(b, pbMetricsBusy, m.Busy)
	b = pbAppendTime(b, pbMetricsTime, m.Time)
	return b
}

// PbDecodeHostMetrics decodes protobuf host metrics
func PbDecodeHostMetrics(buf []byte) (HostMetrics, error) {
	var m HostMetrics
	err := PbRange(buf, func(num protowire.Number, v uint64, b []byte) {
		switch num {
		case pbMetricsHost:
			m.Host = string(b)
		case pbMetricsCPU:
			m.CPUPercent = math.Float64frombits(v)
		case pbMetricsMem:
			m.MemPercent = math.Float64frombits(v)
		case pbMetricsDisk:
			m.DiskPercent = math.Float64frombits(v)
		case pbMetricsLoad1:
			m.Load1 = math.Float64frombits(v)
		case pbMetricsBusy:
			m.Busy = protowire.DecodeBool(v)
		case pbMetricsTime:
			m.Time = pbTime(v)
		}
	})
	return m, err
}
