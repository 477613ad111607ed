package fusion

import "math"

// Mahony is a proportional+integral complementary filter: the error between
// the measured and estimated gravity direction feeds back into the gyro rates
// before quaternion integration.
type Mahony struct {
	q0, q1, q2, q3 float64

	kp float64
	ki float64

	// Integral feedback accumulators.
	ifbX, ifbY, ifbZ float64
}

func NewMahony() *Mahony {
	return &Mahony{
		q0: 1,
		kp: 2.0,
		ki: 0.01,
	}
}

func (m *Mahony) Update(gx, gy, gz, ax, ay, az, dt float64) {
	q0, q1, q2, q3 := m.q0, m.q1, m.q2, m.q3

	// Accel correction only when the vector is usable.
	if ax != 0 || ay != 0 || az != 0 {
		recip := 1.0 / math.Sqrt(ax*ax+ay*ay+az*az)
		ax *= recip
		ay *= recip
		az *= recip

		// Estimated gravity direction from the current quaternion.
		vx := 2.0 * (q1*q3 - q0*q2)
		vy := 2.0 * (q0*q1 + q2*q3)
		vz := q0*q0 - q1*q1 - q2*q2 + q3*q3

		// Error: cross product of measured and estimated gravity.
		ex := ay*vz - az*vy
		ey := az*vx - ax*vz
		ez := ax*vy - ay*vx

		if m.ki > 0 {
			m.ifbX += m.ki * ex * dt
			m.ifbY += m.ki * ey * dt
			m.ifbZ += m.ki * ez * dt
			gx += m.ifbX
			gy += m.ifbY
			gz += m.ifbZ
		}

		gx += m.kp * ex
		gy += m.kp * ey
		gz += m.kp * ez
	}

	// Integrate the quaternion rate.
	gx *= 0.5 * dt
	gy *= 0.5 * dt
	gz *= 0.5 * dt
	qa, qb, qc := q0, q1, q2
	q0 += -qb*gx - qc*gy - q3*gz
	q1 += qa*gx + qc*gz - q3*gy
	q2 += qa*gy - qb*gz + q3*gx
	q3 += qa*gz + qb*gy - qc*gx

	recip := 1.0 / math.Sqrt(q0*q0+q1*q1+q2*q2+q3*q3)
	m.q0 = q0 * recip
	m.q1 = q1 * recip
	m.q2 = q2 * recip
	m.q3 = q3 * recip
}

func (m *Mahony) Quaternion() (w, x, y, z float64) {
	return m.q0, m.q1, m.q2, m.q3
}
