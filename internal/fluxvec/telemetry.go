package fluxvec

import "math/cmplx"

// Record is the telemetry of one tick. Speeds and angles are electrical.
type Record struct {
	Time      float64
	SpeedRef  float64
	Speed     float64
	Angle     float64
	Current   complex128
	Flux      complex128
	FluxRef   float64
	TorqueRef float64
	Torque    float64
	DCVoltage float64
	Voltage   complex128
}

// Recorder receives one record per tick.
type Recorder interface {
	Record(r Record)
}

// Log keeps every record in memory.
type Log struct {
	Records []Record
}

func (l *Log) Record(r Record) {
	l.Records = append(l.Records, r)
}

func (l *Log) Reset() {
	l.Records = l.Records[:0]
}

// Channel names of [Record.Values].
const (
	ChanSpeedRef  = "w_m_ref"
	ChanSpeed     = "w_m"
	ChanAngle     = "theta_m"
	ChanCurrentD  = "i_d"
	ChanCurrentQ  = "i_q"
	ChanFlux      = "psi_s"
	ChanFluxRef   = "psi_s_ref"
	ChanTorqueRef = "tau_M_ref"
	ChanTorque    = "tau_M"
	ChanDCVoltage = "u_dc"
	ChanVoltageD  = "u_d"
	ChanVoltageQ  = "u_q"
)

// Channels lists every channel in column order.
var Channels = []string{
	ChanSpeedRef, ChanSpeed, ChanAngle,
	ChanCurrentD, ChanCurrentQ,
	ChanFlux, ChanFluxRef,
	ChanTorqueRef, ChanTorque,
	ChanDCVoltage, ChanVoltageD, ChanVoltageQ,
}

// Values flattens the record into named real channels.
func (r Record) Values() map[string]float64 {
	return map[string]float64{
		ChanSpeedRef:  r.SpeedRef,
		ChanSpeed:     r.Speed,
		ChanAngle:     r.Angle,
		ChanCurrentD:  real(r.Current),
		ChanCurrentQ:  imag(r.Current),
		ChanFlux:      cmplx.Abs(r.Flux),
		ChanFluxRef:   r.FluxRef,
		ChanTorqueRef: r.TorqueRef,
		ChanTorque:    r.Torque,
		ChanDCVoltage: r.DCVoltage,
		ChanVoltageD:  real(r.Voltage),
		ChanVoltageQ:  imag(r.Voltage),
	}
}

// Last returns the most recent record.
func (l *Log) Last() (Record, bool) {
	if len(l.Records) == 0 {
		return Record{}, false
	}
	return l.Records[len(l.Records)-1], true
}
