package transit

// Interpret turns a node path into rider instructions. Paths shorter than
// two nodes yield no steps.
//
// The first pair is special: when both nodes share a station only the
// second is ridden, which collapses a synthetic entry node into the real
// first stop. A trailing Switch or Ensure is dropped because the node a
// search ends on at a transfer station is arbitrary.
func Interpret(path []Node) []Step {
	if len(path) < 2 {
		return nil
	}

	steps := make([]Step, 0, len(path))
	first, second := path[0], path[1]
	if first.Station == second.Station {
		steps = append(steps, NewRide(second.Station, second.Line))
	} else {
		steps = append(steps, NewRide(first.Station, first.Line))
		steps = appendTransition(steps, first, second)
	}
	for i := 2; i < len(path); i++ {
		steps = appendTransition(steps, path[i-1], path[i])
	}

	if last := steps[len(steps)-1]; last.Kind != StepRide {
		steps = steps[:len(steps)-1]
	}
	return steps
}

func appendTransition(steps []Step, prev, cur Node) []Step {
	switch {
	case prev.Line != cur.Line && prev.Station != cur.Station:
		return append(steps, NewEnsure(cur.Line), NewRide(cur.Station, cur.Line))
	case prev.Line != cur.Line:
		return append(steps, NewSwitch(prev.Line, cur.Line))
	default:
		return append(steps, NewRide(cur.Station, cur.Line))
	}
}
