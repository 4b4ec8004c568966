package device

import (
	"fmt"
	"strconv"
	"strings"
)

// FrameSize is the sensor's framesize control code.
type FrameSize int

// Profiles that stream reliably over the camera's access point.
const (
	FrameSizeQVGA FrameSize = 3  // 320x240
	FrameSizeVGA  FrameSize = 5  // 640x480
	FrameSizeSVGA FrameSize = 10 // 800x600
	FrameSizeXGA  FrameSize = 11 // 1024x768
)

var frameSizeNames = map[FrameSize]string{
	FrameSizeQVGA: "QVGA",
	FrameSizeVGA:  "VGA",
	FrameSizeSVGA: "SVGA",
	FrameSizeXGA:  "XGA",
}

// FrameSizes lists the named profiles in ascending resolution.
func FrameSizes() []FrameSize {
	return []FrameSize{FrameSizeQVGA, FrameSizeVGA, FrameSizeSVGA, FrameSizeXGA}
}

// String returns the profile name, or the numeric code for unnamed sizes.
func (f FrameSize) String() string {
	if name, ok := frameSizeNames[f]; ok {
		return name
	}
	return strconv.Itoa(int(f))
}

// Dimensions returns width and height for named profiles.
func (f FrameSize) Dimensions() (width, height int) {
	switch f {
	case FrameSizeQVGA:
		return 320, 240
	case FrameSizeVGA:
		return 640, 480
	case FrameSizeSVGA:
		return 800, 600
	case FrameSizeXGA:
		return 1024, 768
	default:
		return 0, 0
	}
}

// ParseFrameSize accepts a profile name (case-insensitive) or a raw
// non-negative code.
func ParseFrameSize(s string) (FrameSize, error) {
	s = strings.TrimSpace(s)
	for code, name := range frameSizeNames {
		if strings.EqualFold(s, name) {
			return code, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("device: unknown frame size %q (want QVGA, VGA, SVGA, XGA or a code)", s)
	}
	return FrameSize(n), nil
}
