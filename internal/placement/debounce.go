package placement

// Debouncer holds each side's reported verdict until the raw verdict has
// disagreed with it for a number of consecutive frames. With frames ≤ 1 it
// passes verdicts straight through.
type Debouncer struct {
	frames int
	state  map[Side]bool
	streak map[Side]int
}

// NewDebouncer creates a Debouncer requiring frames consecutive agreeing
// verdicts before a side flips.
func NewDebouncer(frames int) *Debouncer {
	return &Debouncer{
		frames: frames,
		state:  make(map[Side]bool),
		streak: make(map[Side]int),
	}
}

// Enabled reports whether the debouncer holds verdicts at all.
func (d *Debouncer) Enabled() bool {
	return d.frames > 1
}

// Apply feeds this frame's raw verdict for each side and returns the reported
// verdicts. Sides with no observation this frame count as incorrect.
func (d *Debouncer) Apply(results []Result) map[Side]bool {
	raw := map[Side]bool{Left: false, Right: false}
	for _, r := range results {
		if r.Correct() {
			raw[r.Side] = true
		}
	}

	if !d.Enabled() {
		return raw
	}

	out := make(map[Side]bool, len(raw))
	for side, v := range raw {
		if v == d.state[side] {
			d.streak[side] = 0
		} else if d.streak[side]++; d.streak[side] >= d.frames {
			d.state[side] = v
			d.streak[side] = 0
		}
		out[side] = d.state[side]
	}
	return out
}

// Status applies the debouncer and combines the reported verdicts.
func (d *Debouncer) Status(results []Result) Status {
	v := d.Apply(results)
	switch {
	case v[Left] && v[Right]:
		return Both
	case v[Left]:
		return OnlyLeft
	case v[Right]:
		return OnlyRight
	}
	return Neither
}

// Reset forgets all held verdicts.
func (d *Debouncer) Reset() {
	d.state = make(map[Side]bool)
	d.streak = make(map[Side]int)
}
