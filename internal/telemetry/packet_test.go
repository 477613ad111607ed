package telemetry

import (
	"encoding/binary"
	"math"
	"testing"

	"trackerd/internal/quat"
)

func f32At(t *testing.T, b []byte, off int) float64 {
	t.Helper()
	if off+4 > len(b) {
		t.Fatalf("packet too short: len=%d need %d", len(b), off+4)
	}
	return float64(math.Float32frombits(binary.BigEndian.Uint32(b[off:])))
}

func i16At(t *testing.T, b []byte, off int) int16 {
	t.Helper()
	if off+2 > len(b) {
		t.Fatalf("packet too short: len=%d need %d", len(b), off+2)
	}
	return int16(binary.BigEndian.Uint16(b[off:]))
}

func TestEncodeRotation(t *testing.T) {
	q := quat.Quat{X: 0.5, Y: -0.25, Z: 0.125, W: 0.8125}
	b := encodeRotation(packetRotation, 3, q)

	if len(b) != 18 {
		t.Fatalf("len=%d want 18", len(b))
	}
	if b[0] != packetRotation || b[1] != 3 {
		t.Fatalf("header=%v want [%#x 3]", b[:2], packetRotation)
	}
	if got := f32At(t, b, 2); got != 0.5 {
		t.Fatalf("x=%v want 0.5", got)
	}
	if got := f32At(t, b, 6); got != -0.25 {
		t.Fatalf("y=%v want -0.25", got)
	}
	if got := f32At(t, b, 10); got != 0.125 {
		t.Fatalf("z=%v want 0.125", got)
	}
	if got := f32At(t, b, 14); got != 0.8125 {
		t.Fatalf("w=%v want 0.8125", got)
	}
}

func TestEncodeTemperature(t *testing.T) {
	b := encodeTemperature(1, 26.5)

	if len(b) != 6 {
		t.Fatalf("len=%d want 6", len(b))
	}
	if b[0] != packetTemperature || b[1] != 1 {
		t.Fatalf("header=%v want [%#x 1]", b[:2], packetTemperature)
	}
	if got := f32At(t, b, 2); got != 26.5 {
		t.Fatalf("celsius=%v want 26.5", got)
	}
}

func TestEncodeRawCalibration(t *testing.T) {
	b := encodeRawCalibration(2, CalGyro, [3]float64{1.5, -2.5, 3.5})

	if len(b) != 15 {
		t.Fatalf("len=%d want 15", len(b))
	}
	if b[0] != packetRawCalibration || b[1] != 2 || b[2] != byte(CalGyro) {
		t.Fatalf("header=%v want [%#x 2 %d]", b[:3], packetRawCalibration, CalGyro)
	}
	want := [3]float64{1.5, -2.5, 3.5}
	for i := range want {
		if got := f32At(t, b, 3+4*i); got != want[i] {
			t.Fatalf("sample[%d]=%v want %v", i, got, want[i])
		}
	}
}

func TestEncodeCalibrationFinished(t *testing.T) {
	b := encodeCalibrationFinished(0, CalAll)

	want := []byte{packetCalibrationFinished, 0, byte(CalAll)}
	if string(b) != string(want) {
		t.Fatalf("packet=%v want %v", b, want)
	}
}

func TestEncodeInspectionRaw(t *testing.T) {
	b := encodeInspectionRaw(4, 100, -200, 300, -32768, 32767, 0)

	if len(b) != 14 {
		t.Fatalf("len=%d want 14", len(b))
	}
	if b[0] != packetInspectionRaw || b[1] != 4 {
		t.Fatalf("header=%v want [%#x 4]", b[:2], packetInspectionRaw)
	}
	want := []int16{100, -200, 300, -32768, 32767, 0}
	for i, w := range want {
		if got := i16At(t, b, 2+2*i); got != w {
			t.Fatalf("axis[%d]=%d want %d", i, got, w)
		}
	}
}

func TestCalKindString(t *testing.T) {
	cases := []struct {
		kind CalKind
		want string
	}{
		{CalGyro, "gyro"},
		{CalAccel, "accel"},
		{CalAll, "all"},
		{CalKind(9), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.kind.String(); got != tc.want {
			t.Fatalf("CalKind(%d).String()=%q want %q", tc.kind, got, tc.want)
		}
	}
}
