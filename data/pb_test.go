package data

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestPbJobStatus(t *testing.T) {
	s := JobStatus{
		ID:      "1234",
		State:   JobStateFailed,
		Message: "exporting",
		Error:   "studyrlt: no output",
		Time:    time.Date(2024, 3, 1, 10, 0, 0, 5, time.UTC),
	}

	// fields from a newer sender are skipped
	buf := s.ToPb()
	buf = protowire.AppendTag(buf, 42, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, 7)

	got, err := PbDecodeJobStatus(buf)
	if err != nil {
		t.Fatal("decode failed: ", err)
	}

	if diff := cmp.Diff(s, got); diff != "" {
		t.Fatal("status mismatch: ", diff)
	}

	if got, err := PbDecodeJobStatus(nil); err != nil || !got.Time.IsZero() {
		t.Fatal("empty status: ", got, err)
	}
}

func TestPbHostMetrics(t *testing.T) {
	m := HostMetrics{
		Host:        "ws12",
		CPUPercent:  12.5,
		MemPercent:  40,
		DiskPercent: 71.25,
		Load1:       0.5,
		Busy:        true,
		Time:        time.Unix(1700000000, 0),
	}

	got, err := PbDecodeHostMetrics(m.ToPb())
	if err != nil {
		t.Fatal("decode failed: ", err)
	}

	if diff := cmp.Diff(m, got); diff != "" {
		t.Fatal("metrics mismatch: ", diff)
	}
}

func TestPbRangeErrors(t *testing.T) {
	buf := JobStatus{ID: "1234"}.ToPb()

	if _, err := PbDecodeJobStatus(buf[:len(buf)-2]); !errors.Is(err, ErrParse) {
		t.Fatal("expected ErrParse for truncated message, got: ", err)
	}

	if _, err := PbDecodeJobStatus([]byte{0xff}); !errors.Is(err, ErrParse) {
		t.Fatal("expected ErrParse for bad tag, got: ", err)
	}
}
