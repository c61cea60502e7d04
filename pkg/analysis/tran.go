package analysis

import (
	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/circuit"
	"github.com/flebeau/GPAClib/pkg/util"
)

// Transient integrates a finalized circuit over [startTime, stopTime] with
// the classical fixed-step fourth-order Runge-Kutta scheme and records the
// output gate's value at every step boundary.
type Transient struct {
	BaseAnalysis
	startTime float64
	stopTime  float64
	timeStep  float64

	state []float64
}

func NewTransient(tStart, tStop, tStep float64) *Transient {
	return &Transient{
		BaseAnalysis: *NewBaseAnalysis(),
		startTime:    tStart,
		stopTime:     tStop,
		timeStep:     tStep,
	}
}

// Setup binds the circuit and seeds the state vector from the initial
// values. A non-finalized circuit is refused.
func (tr *Transient) Setup(ckt *circuit.Circuit) error {
	if !ckt.Finalized() {
		util.Warnf("circuit "+ckt.Name(), "refusing to simulate a circuit that is not finalized")
		return errors.Errorf("cannot simulate circuit %q: it is not finalized", ckt.Name())
	}
	if tr.timeStep == 0 {
		return errors.New("transient analysis needs a non-zero time step")
	}
	ckt.InitConstValues()
	y, err := ckt.StateVector()
	if err != nil {
		return err
	}
	tr.Circuit = ckt
	tr.state = y
	return nil
}

// Execute runs the integration. The observer record happens before every
// step and once after the last, so the series covers both interval ends.
func (tr *Transient) Execute() error {
	if tr.Circuit == nil {
		return errors.New("circuit not set")
	}
	ckt := tr.Circuit
	outName := ckt.Output()

	n := len(tr.state)
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	tmp := make([]float64, n)

	h := tr.timeStep
	if tr.stopTime < tr.startTime {
		h = -h
	}
	steps := int((tr.stopTime-tr.startTime)/h + 0.5)
	if steps < 1 {
		steps = 1
	}
	// Land exactly on stopTime.
	h = (tr.stopTime - tr.startTime) / float64(steps)

	record := func(t float64) error {
		if err := ckt.Derivatives(tr.state, k1, t); err != nil {
			return err
		}
		v, err := ckt.OutputValue()
		if err != nil {
			return err
		}
		tr.StoreTimeResult(t, outName, v)
		return nil
	}

	t := tr.startTime
	for s := 0; s < steps; s++ {
		if err := record(t); err != nil {
			return errors.Wrapf(err, "at t=%g", t)
		}
		// k1 already holds the derivatives at (t, state) from record.
		for i := range tmp {
			tmp[i] = tr.state[i] + 0.5*h*k1[i]
		}
		if err := ckt.Derivatives(tmp, k2, t+0.5*h); err != nil {
			return errors.Wrapf(err, "at t=%g", t)
		}
		for i := range tmp {
			tmp[i] = tr.state[i] + 0.5*h*k2[i]
		}
		if err := ckt.Derivatives(tmp, k3, t+0.5*h); err != nil {
			return errors.Wrapf(err, "at t=%g", t)
		}
		for i := range tmp {
			tmp[i] = tr.state[i] + h*k3[i]
		}
		if err := ckt.Derivatives(tmp, k4, t+h); err != nil {
			return errors.Wrapf(err, "at t=%g", t)
		}
		for i := range tr.state {
			tr.state[i] += h / 6.0 * (k1[i] + 2.0*k2[i] + 2.0*k3[i] + k4[i])
		}
		t = tr.startTime + float64(s+1)*h
	}
	return record(tr.stopTime)
}

// Output returns the recorded (time, output) series.
func (tr *Transient) Output() (times, values []float64) {
	return tr.results["TIME"], tr.results[tr.Circuit.Output()]
}
