package uref

// ClockFreq is the clock frequency of every timestamp and duration
// attribute: 27 MHz ticks.
const ClockFreq = 27000000

// Duration returns k.duration.
func (u *Uref) Duration() (uint64, error) {
	return u.Dict.GetUnsigned("k.duration")
}

// SetDuration sets k.duration, in 27 MHz ticks.
func (u *Uref) SetDuration(d uint64, extraSize int) error {
	return u.Dict.SetUnsigned("k.duration", d, extraSize)
}

// SystimeRap returns k.systime.rap, the system time of the last random
// access point.
func (u *Uref) SystimeRap() (uint64, error) {
	return u.Dict.GetUnsigned("k.systime.rap")
}

// SetSystimeRap sets k.systime.rap.
func (u *Uref) SetSystimeRap(t uint64, extraSize int) error {
	return u.Dict.SetUnsigned("k.systime.rap", t, extraSize)
}

// VBVDelay returns k.vbvdelay, already converted to 27 MHz ticks.
func (u *Uref) VBVDelay() (uint64, error) {
	return u.Dict.GetUnsigned("k.vbvdelay")
}

// SetVBVDelay sets k.vbvdelay, in 27 MHz ticks.
func (u *Uref) SetVBVDelay(d uint64, extraSize int) error {
	return u.Dict.SetUnsigned("k.vbvdelay", d, extraSize)
}
