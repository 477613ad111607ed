// Package fusion implements the gyro+accel orientation filters. Two variants
// are provided behind one interface; which one runs is a construction-time
// choice, not a runtime switch.
package fusion

import "fmt"

// Filter advances an orientation estimate from scaled sensor samples.
// Gyro rates are rad/s; accelerometer units are arbitrary because every
// variant normalizes the accel vector before use.
type Filter interface {
	Update(gx, gy, gz, ax, ay, az, dt float64)
	// Quaternion returns the estimate in the filter frame, w first.
	Quaternion() (w, x, y, z float64)
}

type Variant string

const (
	VariantMahony   Variant = "mahony"
	VariantMadgwick Variant = "madgwick"
)

func New(v Variant) (Filter, error) {
	switch v {
	case VariantMahony, "":
		return NewMahony(), nil
	case VariantMadgwick:
		return NewMadgwick(), nil
	default:
		return nil, fmt.Errorf("fusion: unknown filter variant %q", v)
	}
}
