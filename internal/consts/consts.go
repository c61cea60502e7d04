package consts

const (
	DefaultStopTime = 5.0   // Simulation upper bound (s)
	DefaultTimeStep = 0.001 // RK4 step

	DefaultSmoothing = 0.05 // delta for Abs, Max and Select
	DefaultSwitch    = 10.0 // alpha for L2
	// mu for Sgn, Ip1 and Lxh. Kept below ~18 so tanh(mu) stays strictly
	// inside (-1, 1) in float64 and the state can leave the plateaus.
	DefaultSharpness = 8.0
)
