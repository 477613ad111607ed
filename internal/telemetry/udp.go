package telemetry

import (
	"fmt"
	"net"

	"trackerd/internal/logging"
	"trackerd/internal/quat"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

// UDP sends binary telemetry packets to one destination address.
type UDP struct {
	sensor byte
	log    logging.Logger
	conn   udpConn
}

// NewUDP resolves and connects the destination up front so a bad address
// fails at wiring time, not on the first sample.
func NewUDP(dest string, sensor byte, log logging.Logger) (*UDP, error) {
	return newUDP(dest, sensor, log, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newUDP(
	dest string,
	sensor byte,
	log logging.Logger,
	resolve func(network, address string) (*net.UDPAddr, error),
	dial func(network string, laddr, raddr *net.UDPAddr) (udpConn, error),
) (*UDP, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resolve dest: %w", err)
	}
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial udp: %w", err)
	}
	return &UDP{sensor: sensor, log: log, conn: conn}, nil
}

func (u *UDP) send(what string, packet []byte) {
	if len(packet) == 0 {
		return
	}
	if _, err := u.conn.Write(packet); err != nil {
		u.log.Debugf("send %s: %v", what, err)
	}
}

func (u *UDP) SendRotation(q quat.Quat) {
	u.send("rotation", encodeRotation(packetRotation, u.sensor, q))
}

func (u *UDP) SendTemperature(celsius float64) {
	u.send("temperature", encodeTemperature(u.sensor, celsius))
}

func (u *UDP) SendRawCalibration(kind CalKind, sample [3]float64) {
	u.send("raw calibration", encodeRawCalibration(u.sensor, kind, sample))
}

func (u *UDP) SendCalibrationFinished(kind CalKind) {
	u.send("calibration finished", encodeCalibrationFinished(u.sensor, kind))
}

func (u *UDP) SendInspectionRaw(ax, ay, az, gx, gy, gz int16) {
	u.send("inspection raw", encodeInspectionRaw(u.sensor, ax, ay, az, gx, gy, gz))
}

func (u *UDP) SendInspectionFused(q quat.Quat) {
	u.send("inspection fused", encodeRotation(packetInspectionFused, u.sensor, q))
}

func (u *UDP) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
