package routeservice

import (
	"fmt"
	"strings"
)

// describeManeuver turns an osrm maneuver into the text the navigator
// announces when the vehicle reaches its anchor.
func describeManeuver(m osrmManeuver, streetName string) string {
	switch m.Type {
	case "depart":
		compass := bearingToCompass(m.BearingAfter)
		if isEmpty(streetName) {
			return fmt.Sprintf("Head %s", compass)
		}
		return fmt.Sprintf("Head %s toward %s", compass, streetName)

	case "arrive":
		return "you have arrived at your destination"

	case "roundabout", "rotary", "roundabout turn":
		if m.Exit > 0 {
			return fmt.Sprintf("At Roundabout, take the exit point %d", m.Exit)
		}
		return "Enter the roundabout"

	case "exit roundabout", "exit rotary":
		return "Leave the roundabout"

	case "new name", "continue":
		if m.Modifier != "" && m.Modifier != "straight" {
			break
		}
		if isEmpty(streetName) {
			return "Continue"
		}
		return fmt.Sprintf("Continue onto %s", streetName)

	case "merge", "on ramp", "off ramp", "fork":
		side := keepPhrase(m.Modifier)
		if side != "" {
			if isEmpty(streetName) {
				return side
			}
			return fmt.Sprintf("%s to continue on %s", side, streetName)
		}
	}

	dir := turnPhrase(m.Modifier)
	if dir == "" {
		if isEmpty(streetName) {
			return "Continue"
		}
		return fmt.Sprintf("Continue onto %s", streetName)
	}
	if isEmpty(streetName) {
		return dir
	}
	return fmt.Sprintf("%s onto %s", dir, streetName)
}

func turnPhrase(modifier string) string {
	switch modifier {
	case "uturn":
		return "Make U-turn"
	case "sharp left":
		return "Turn sharp left"
	case "left":
		return "Turn left"
	case "slight left":
		return "Turn slight left"
	case "slight right":
		return "Turn slight right"
	case "right":
		return "Turn right"
	case "sharp right":
		return "Turn sharp right"
	default:
		return ""
	}
}

func keepPhrase(modifier string) string {
	switch {
	case strings.Contains(modifier, "left"):
		return "Keep left"
	case strings.Contains(modifier, "right"):
		return "Keep right"
	default:
		return ""
	}
}

func bearingToCompass(bearing float64) string {
	if bearing < 0 {
		bearing += 360
	}
	if bearing < 22.5 {
		return "North"
	} else if bearing < 67.5 {
		return "North East"
	} else if bearing < 112.5 {
		return "East"
	} else if bearing < 157.5 {
		return "South East"
	} else if bearing < 202.5 {
		return "South"
	} else if bearing < 247.5 {
		return "South West"
	} else if bearing < 292.5 {
		return "West"
	} else if bearing < 337.5 {
		return "North West"
	} else {
		return "North"
	}
}

func isEmpty(str string) bool {
	return strings.TrimSpace(str) == ""
}
