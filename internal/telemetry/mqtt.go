package telemetry

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"trackerd/internal/logging"
	"trackerd/internal/quat"
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes telemetry as JSON, one topic per event type under a common
// prefix. Rotation and temperature are retained so late subscribers see the
// latest state; calibration and inspection events are not.
type MQTT struct {
	sensor int
	prefix string
	log    logging.Logger
	client mqttClient
}

func NewMQTT(broker, clientID, prefix string, sensor byte, log logging.Logger) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: mqtt connect: %w", token.Error())
	}
	return newMQTT(client, prefix, sensor, log), nil
}

func newMQTT(client mqttClient, prefix string, sensor byte, log logging.Logger) *MQTT {
	if prefix == "" {
		prefix = "tracker"
	}
	return &MQTT{sensor: int(sensor), prefix: prefix, log: log, client: client}
}

func (m *MQTT) publish(topic string, retained bool, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		m.log.Debugf("marshal %s: %v", topic, err)
		return
	}
	full := m.prefix + "/" + topic
	if token := m.client.Publish(full, 0, retained, payload); token.Wait() && token.Error() != nil {
		m.log.Debugf("publish %s: %v", full, token.Error())
	}
}

type mqttRotation struct {
	Sensor int     `json:"sensor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	W      float64 `json:"w"`
}

func (m *MQTT) SendRotation(q quat.Quat) {
	m.publish("rotation", true, mqttRotation{Sensor: m.sensor, X: q.X, Y: q.Y, Z: q.Z, W: q.W})
}

func (m *MQTT) SendTemperature(celsius float64) {
	m.publish("temperature", true, struct {
		Sensor  int     `json:"sensor"`
		Celsius float64 `json:"celsius"`
	}{m.sensor, celsius})
}

func (m *MQTT) SendRawCalibration(kind CalKind, sample [3]float64) {
	m.publish("calibration/raw", false, struct {
		Sensor int        `json:"sensor"`
		Kind   string     `json:"kind"`
		Sample [3]float64 `json:"sample"`
	}{m.sensor, kind.String(), sample})
}

func (m *MQTT) SendCalibrationFinished(kind CalKind) {
	m.publish("calibration/finished", false, struct {
		Sensor int    `json:"sensor"`
		Kind   string `json:"kind"`
	}{m.sensor, kind.String()})
}

func (m *MQTT) SendInspectionRaw(ax, ay, az, gx, gy, gz int16) {
	m.publish("inspection/raw", false, struct {
		Sensor int   `json:"sensor"`
		Ax     int16 `json:"ax"`
		Ay     int16 `json:"ay"`
		Az     int16 `json:"az"`
		Gx     int16 `json:"gx"`
		Gy     int16 `json:"gy"`
		Gz     int16 `json:"gz"`
	}{m.sensor, ax, ay, az, gx, gy, gz})
}

func (m *MQTT) SendInspectionFused(q quat.Quat) {
	m.publish("inspection/fused", false, mqttRotation{Sensor: m.sensor, X: q.X, Y: q.Y, Z: q.Z, W: q.W})
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
