package tasks

// NewPFPFlaskTask builds the PFPFlask variant: a Flask draw augmented with
// the PFP unload/evacuate choreography (buildPFP, wired into buildSample
// whenever Opts.PFP is set).
//
// Grounded on gspc/tasks/pfpflask.py's PFPFlask, which subclasses Flask and
// layers the extra PFP steps onto the inherited schedule.
func NewPFPFlaskTask(env *Env, ssvPosition, pfpSSV int) *SampleTask {
	return &SampleTask{Opts: SampleOptions{
		Env:         env,
		Type:        SampleFlask,
		SSVPosition: ssvPosition,
		Flow:        flaskFlowProfile(env, ssvPosition),
		PFP:         &PFPOptions{SSV: pfpSSV},
	}}
}
