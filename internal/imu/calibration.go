package imu

import (
	"fmt"
	"time"

	"trackerd/internal/calibstore"
	"trackerd/internal/telemetry"
)

type calPhase int

const (
	calSettle calPhase = iota
	calGyro
	calBlink
	calAccel
)

// session is one calibration run: rest-capture gyro bias, then rotate-capture
// accelerometer samples, fit, persist. Discarded when the run ends.
type session struct {
	phase calPhase

	// deadline gates the settle and blink waits.
	deadline time.Time

	gyroSum    [3]float64
	gyroN      int
	gyroOffset [3]float64

	accel       [][3]float64
	nextAccelAt time.Time

	// done receives the outcome when the session was requested through
	// Calibrate; nil for startup-triggered sessions.
	done chan error
}

func (s *Service) newSession(now time.Time, done chan error) *session {
	s.indicator.On()
	s.log.Debugf("Gathering raw data for device calibration...")
	s.log.Infof("Put down the device and wait for baseline gyro reading calibration")

	s.mu.Lock()
	s.snap.Calibrating = true
	s.mu.Unlock()

	return &session{
		phase:    calSettle,
		deadline: now.Add(settleDelay),
		accel:    make([][3]float64, 0, calibrationSamples),
		done:     done,
	}
}

// runSession drives a session to completion, one advance per poll interval.
// It owns the run goroutine for the whole session, so the normal tick never
// observes a half-built record. Close aborts between advances; partial data
// is discarded, nothing is applied.
func (s *Service) runSession(sess *session) {
	defer func() {
		s.mu.Lock()
		s.snap.Calibrating = false
		s.mu.Unlock()
	}()
	for {
		select {
		case <-s.stopCh:
			s.indicator.Off()
			if sess.done != nil {
				sess.done <- fmt.Errorf("imu: calibration aborted")
			}
			return
		default:
		}
		if s.advanceSession(sess, timeNow()) {
			return
		}
		sleep(s.cfg.PollInterval)
	}
}

// advanceSession runs one step of the phase machine and reports whether the
// session has ended. A failed read skips the step; the sample targets count
// successful reads only.
func (s *Service) advanceSession(sess *session, now time.Time) bool {
	switch sess.phase {
	case calSettle:
		if now.Before(sess.deadline) {
			return false
		}
		sess.phase = calGyro
		return false

	case calGyro:
		raw, err := s.sensor.ReadAxis6()
		if err != nil {
			s.log.Debugf("calibration read failed: %v", err)
			return false
		}
		g := [3]float64{float64(raw.Gx), float64(raw.Gy), float64(raw.Gz)}
		s.sink.SendRawCalibration(telemetry.CalGyro, g)
		for i := range g {
			sess.gyroSum[i] += g[i]
		}
		sess.gyroN++
		if sess.gyroN < calibrationSamples {
			return false
		}
		for i := range sess.gyroOffset {
			sess.gyroOffset[i] = sess.gyroSum[i] / calibrationSamples
		}
		s.log.Tracef("Gyro calibration results: %f %f %f", sess.gyroOffset[0], sess.gyroOffset[1], sess.gyroOffset[2])
		s.log.Infof("Gently rotate the device while it's gathering accelerometer data")
		s.indicator.Pattern(blinkCount, blinkPeriod, blinkDuty)
		sess.phase = calBlink
		sess.deadline = now.Add(time.Duration(blinkCount) * blinkPeriod)
		return false

	case calBlink:
		// Let the rotate-now blink play out before captures start toggling
		// the indicator off.
		if now.Before(sess.deadline) {
			return false
		}
		sess.phase = calAccel
		sess.nextAccelAt = now
		return false

	case calAccel:
		if now.Before(sess.nextAccelAt) {
			return false
		}
		raw, err := s.sensor.ReadAxis6()
		if err != nil {
			s.log.Debugf("calibration read failed: %v", err)
			return false
		}
		a := [3]float64{float64(raw.Ax), float64(raw.Ay), float64(raw.Az)}
		s.sink.SendRawCalibration(telemetry.CalAccel, a)
		sess.accel = append(sess.accel, a)
		s.indicator.Off()
		sess.nextAccelAt = now.Add(accelInterval)
		if len(sess.accel) < calibrationSamples {
			return false
		}
		s.finishSession(sess)
		return true
	}
	return true
}

// finishSession fits the accel batch, applies the combined record to the
// live state, and persists it.
func (s *Service) finishSession(sess *session) {
	s.log.Debugf("Calculating calibration data...")
	bias, m, err := s.fit(sess.accel)
	sess.accel = nil
	if err != nil {
		s.log.Errorf("Calibration failed: %v", err)
		s.indicator.Off()
		if sess.done != nil {
			sess.done <- err
		}
		return
	}
	s.log.Debugf("Finished Calculate Calibration data")
	s.log.Debugf("Accelerometer calibration matrix:")
	s.log.Debugf("{")
	for i := 0; i < 3; i++ {
		s.log.Debugf("  %f, %f, %f, %f", bias[i], m[0][i], m[1][i], m[2][i])
	}
	s.log.Debugf("}")
	s.log.Debugf("Saving the calibration data")

	rec := calibstore.Record{
		Type:            calibstore.RecordType,
		GyroOffset:      sess.gyroOffset,
		AccelBias:       bias,
		AccelCorrection: m,
	}
	// Gyro offset and accel terms go live together so the scaler never sees
	// half a calibration.
	s.calibration = rec
	s.store.SetCalibration(s.cfg.SensorID, rec)
	saveErr := s.store.Save()

	s.indicator.Off()
	s.sink.SendCalibrationFinished(telemetry.CalAll)
	if saveErr != nil {
		s.log.Errorf("Failed to save calibration data: %v", saveErr)
	} else {
		s.log.Debugf("Saved the calibration data")
	}
	s.log.Infof("Calibration data gathered")
	if sess.done != nil {
		sess.done <- saveErr
	}
}
