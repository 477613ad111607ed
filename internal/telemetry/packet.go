package telemetry

import (
	"encoding/binary"
	"math"

	"trackerd/internal/quat"
)

// Binary packet layout used by the UDP sink. Multi-byte fields are
// big-endian; floats are IEEE-754 float32.
//
//	[type:1][sensor:1][payload...]
const (
	packetRotation            = 0x01 // payload: x y z w float32
	packetTemperature         = 0x02 // payload: celsius float32
	packetRawCalibration      = 0x03 // payload: kind:1, x y z float32
	packetCalibrationFinished = 0x04 // payload: kind:1
	packetInspectionRaw       = 0x05 // payload: ax ay az gx gy gz int16
	packetInspectionFused     = 0x06 // payload: x y z w float32
)

func appendF32(b []byte, v float64) []byte {
	return binary.BigEndian.AppendUint32(b, math.Float32bits(float32(v)))
}

func appendI16(b []byte, v int16) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(v))
}

func encodeRotation(typ byte, sensor byte, q quat.Quat) []byte {
	b := make([]byte, 0, 18)
	b = append(b, typ, sensor)
	b = appendF32(b, q.X)
	b = appendF32(b, q.Y)
	b = appendF32(b, q.Z)
	b = appendF32(b, q.W)
	return b
}

func encodeTemperature(sensor byte, celsius float64) []byte {
	b := make([]byte, 0, 6)
	b = append(b, packetTemperature, sensor)
	return appendF32(b, celsius)
}

func encodeRawCalibration(sensor byte, kind CalKind, sample [3]float64) []byte {
	b := make([]byte, 0, 15)
	b = append(b, packetRawCalibration, sensor, byte(kind))
	b = appendF32(b, sample[0])
	b = appendF32(b, sample[1])
	return appendF32(b, sample[2])
}

func encodeCalibrationFinished(sensor byte, kind CalKind) []byte {
	return []byte{packetCalibrationFinished, sensor, byte(kind)}
}

func encodeInspectionRaw(sensor byte, ax, ay, az, gx, gy, gz int16) []byte {
	b := make([]byte, 0, 14)
	b = append(b, packetInspectionRaw, sensor)
	for _, v := range [6]int16{ax, ay, az, gx, gy, gz} {
		b = appendI16(b, v)
	}
	return b
}
