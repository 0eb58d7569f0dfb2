package scheduling

// GenerateSlots returns the candidate start times of a day at SlotDuration
// granularity: open <= t < close, skipping any t whose [t, t+SlotDuration)
// falls into the break. The result is recomputed on each call.
func GenerateSlots(day DayRules) []int {
	if !day.IsOpen || day.SlotDuration <= 0 || day.Close <= day.Open {
		return nil
	}

	slots := make([]int, 0, (day.Close-day.Open)/day.SlotDuration+1)
	for t := day.Open; t < day.Close; t += day.SlotDuration {
		if day.Break != nil && NewInterval(t, day.SlotDuration).Overlaps(*day.Break) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}
