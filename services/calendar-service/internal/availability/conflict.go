package availability

const defaultMeetingMinutes = 60

// HasConflict reports whether a candidate slot of the given duration collides
// with any meeting on the same day once each meeting is padded by the buffer
// on both sides.
//
// The interval test is deliberately asymmetric: a slot ending exactly where a
// buffer window starts is allowed (back-to-back after the buffer is fine), but
// a slot starting exactly where the window ends still conflicts. Changing
// either comparison flips which boundary slot is bookable.
func HasConflict(slotTime string, durationMinutes int, meetings []Meeting, bufferMinutes int) bool {
	slotStart, ok := clockMinutes(slotTime)
	if !ok {
		return false
	}
	slotEnd := slotStart + durationMinutes

	for _, m := range meetings {
		if m.Start.IsZero() {
			continue
		}
		meetingStart := m.Start.Hour()*60 + m.Start.Minute()
		dur := m.DurationMinutes
		if dur <= 0 {
			dur = defaultMeetingMinutes
		}
		windowStart := meetingStart - bufferMinutes
		windowEnd := meetingStart + dur + bufferMinutes
		if slotStart <= windowEnd && slotEnd > windowStart {
			return true
		}
	}
	return false
}
