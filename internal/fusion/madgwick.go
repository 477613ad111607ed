package fusion

import "math"

// Madgwick is the gradient-descent orientation filter: the gravity objective
// function's gradient, scaled by beta, is subtracted from the gyro-integrated
// quaternion rate.
type Madgwick struct {
	q0, q1, q2, q3 float64

	beta float64
}

func NewMadgwick() *Madgwick {
	// beta = sqrt(3/4) * gyro measurement error (40 deg/s as rad/s).
	return &Madgwick{
		q0:   1,
		beta: math.Sqrt(3.0/4.0) * (math.Pi * 40.0 / 180.0),
	}
}

func (m *Madgwick) Update(gx, gy, gz, ax, ay, az, dt float64) {
	q0, q1, q2, q3 := m.q0, m.q1, m.q2, m.q3

	// Quaternion rate from gyro.
	qDot0 := 0.5 * (-q1*gx - q2*gy - q3*gz)
	qDot1 := 0.5 * (q0*gx + q2*gz - q3*gy)
	qDot2 := 0.5 * (q0*gy - q1*gz + q3*gx)
	qDot3 := 0.5 * (q0*gz + q1*gy - q2*gx)

	if ax != 0 || ay != 0 || az != 0 {
		recip := 1.0 / math.Sqrt(ax*ax+ay*ay+az*az)
		ax *= recip
		ay *= recip
		az *= recip

		twoQ0 := 2.0 * q0
		twoQ1 := 2.0 * q1
		twoQ2 := 2.0 * q2
		twoQ3 := 2.0 * q3
		fourQ0 := 4.0 * q0
		fourQ1 := 4.0 * q1
		fourQ2 := 4.0 * q2
		eightQ1 := 8.0 * q1
		eightQ2 := 8.0 * q2
		q0q0 := q0 * q0
		q1q1 := q1 * q1
		q2q2 := q2 * q2
		q3q3 := q3 * q3

		// Gradient of the gravity objective function.
		s0 := fourQ0*q2q2 + twoQ2*ax + fourQ0*q1q1 - twoQ1*ay
		s1 := fourQ1*q3q3 - twoQ3*ax + 4.0*q0q0*q1 - twoQ0*ay - fourQ1 + eightQ1*q1q1 + eightQ1*q2q2 + fourQ1*az
		s2 := 4.0*q0q0*q2 + twoQ0*ax + fourQ2*q3q3 - twoQ3*ay - fourQ2 + eightQ2*q1q1 + eightQ2*q2q2 + fourQ2*az
		s3 := 4.0*q1q1*q3 - twoQ1*ax + 4.0*q2q2*q3 - twoQ2*ay

		// Zero gradient means the estimate already agrees with gravity.
		if n := math.Sqrt(s0*s0 + s1*s1 + s2*s2 + s3*s3); n > 0 {
			qDot0 -= m.beta * s0 / n
			qDot1 -= m.beta * s1 / n
			qDot2 -= m.beta * s2 / n
			qDot3 -= m.beta * s3 / n
		}
	}

	q0 += qDot0 * dt
	q1 += qDot1 * dt
	q2 += qDot2 * dt
	q3 += qDot3 * dt

	recip := 1.0 / math.Sqrt(q0*q0+q1*q1+q2*q2+q3*q3)
	m.q0 = q0 * recip
	m.q1 = q1 * recip
	m.q2 = q2 * recip
	m.q3 = q3 * recip
}

func (m *Madgwick) Quaternion() (w, x, y, z float64) {
	return m.q0, m.q1, m.q2, m.q3
}
