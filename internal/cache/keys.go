package cache

import (
	"fmt"
	"math"
	"strings"
)

// Rider positions are snapped to about 11 m so nearby requests share entries; stop
// positions are exact.
const riderGrid = 1e-4

func quantize(v float64) float64 {
	return math.Round(v/riderGrid) * riderGrid
}

// KeyGeocode normalizes case and spacing so trivially different spellings share an entry.
func KeyGeocode(address string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}

func KeyTravel(mode string, fromLat, fromLng, toLat, toLng float64) string {
	return fmt.Sprintf("travel:%s:%.4f,%.4f:%.6f,%.6f", mode, quantize(fromLat), quantize(fromLng), toLat, toLng)
}
