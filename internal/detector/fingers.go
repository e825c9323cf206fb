package detector

// Digit names one finger of the hand.
type Digit string

const (
	Thumb  Digit = "Thumb"
	Index  Digit = "Index"
	Middle Digit = "Middle"
	Ring   Digit = "Ring"
	Pinky  Digit = "Pinky"
)

// Digits lists the five digits in landmark order.
var Digits = []Digit{Thumb, Index, Middle, Ring, Pinky}

// Digit group sizes.
const (
	NumDigits      = 5
	PointsPerDigit = 4
)

// DigitGroups maps each digit to its landmarks, ordered from knuckle to tip.
type DigitGroups map[Digit][]Point3D

// digitStart returns the first landmark index of a digit. The wrist (0) is
// not part of any digit.
func digitStart(d Digit) int {
	switch d {
	case Thumb:
		return ThumbCMC
	case Index:
		return IndexMCP
	case Middle:
		return MiddleMCP
	case Ring:
		return RingMCP
	case Pinky:
		return PinkyMCP
	}
	return -1
}

// DigitIndices returns the landmark indices of a digit, or nil for an unknown digit.
func DigitIndices(d Digit) []int {
	start := digitStart(d)
	if start < 0 {
		return nil
	}
	indices := make([]int, PointsPerDigit)
	for i := range indices {
		indices[i] = start + i
	}
	return indices
}

// GroupDigits partitions landmarks 1-20 into the five digit groups.
// Short input yields truncated groups; points past index 20 are ignored.
func GroupDigits(points []Point3D) DigitGroups {
	groups := make(DigitGroups, len(Digits))
	for _, d := range Digits {
		group := make([]Point3D, 0, PointsPerDigit)
		for _, idx := range DigitIndices(d) {
			if idx >= len(points) {
				break
			}
			group = append(group, points[idx])
		}
		groups[d] = group
	}
	return groups
}

// Digits groups the hand's landmarks by digit.
func (h *HandLandmarks) Digits() DigitGroups {
	return GroupDigits(h.Points[:])
}

// Thumb returns the thumb landmarks (CMC, MCP, IP, tip).
func (h *HandLandmarks) Thumb() []Point3D {
	return h.Points[ThumbCMC : ThumbTip+1]
}
