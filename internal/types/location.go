package types

// LocationData is a resolved place. It lives only for the duration of one
// pipeline run.
type LocationData struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// WeatherSnapshot is the current weather at a coordinate. Optional readings
// are nil when the upstream did not report them.
type WeatherSnapshot struct {
	Temperature              float64  `json:"temperature"`
	PrecipitationProbability *float64 `json:"precipitation_probability,omitempty"`
	Windspeed                *float64 `json:"windspeed,omitempty"`
	WeatherCode              *int     `json:"weather_code,omitempty"`
}
