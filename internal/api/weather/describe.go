package weather

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

var wmoDescriptions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	56: "light freezing drizzle",
	57: "dense freezing drizzle",
	61: "light rain",
	63: "moderate rain",
	65: "heavy rain",
	66: "light freezing rain",
	67: "heavy freezing rain",
	71: "light snow",
	73: "moderate snow",
	75: "heavy snow",
	77: "snow grains",
	80: "light rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	85: "light snow showers",
	86: "heavy snow showers",
	95: "thunderstorm",
	96: "thunderstorm with light hail",
	99: "thunderstorm with heavy hail",
}

// DescribeWeatherCode maps a WMO weather code to words. Unknown codes
// yield an empty string.
func DescribeWeatherCode(code int) string {
	return wmoDescriptions[code]
}

// Summarize renders a snapshot as the one-line sentence stored on the
// pipeline state. A missing precipitation reading counts as 0%.
func Summarize(location string, s *types.WeatherSnapshot) string {
	precip := 0.0
	if s.PrecipitationProbability != nil {
		precip = *s.PrecipitationProbability
	}

	var b strings.Builder
	fmt.Fprintf(&b, "In %s it's currently %.1f°C with a %.1f%% chance of rain.", location, s.Temperature, precip)

	var extras []string
	if s.WeatherCode != nil {
		if desc := DescribeWeatherCode(*s.WeatherCode); desc != "" {
			extras = append(extras, "Conditions: "+desc)
		}
	}
	if s.Windspeed != nil {
		extras = append(extras, fmt.Sprintf("wind %.1f km/h", *s.Windspeed))
	}
	if len(extras) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(extras, ", "))
		b.WriteString(".")
	}
	return b.String()
}
