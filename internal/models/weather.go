package models

import "time"

// Coordinates is a latitude/longitude pair as reported by the weather provider.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WeatherRecord is the flattened current-conditions payload for one city lookup.
// It is never mutated after the client builds it; a new lookup replaces it.
type WeatherRecord struct {
	RequestedCity string      `json:"requested_city"`
	ResolvedCity  string      `json:"resolved_city"`
	Country       string      `json:"country"`
	Temperature   float64     `json:"temperature"`
	FeelsLike     float64     `json:"feels_like"`
	Humidity      int         `json:"humidity"`
	Pressure      int         `json:"pressure"`
	Description   string      `json:"description"`
	WindSpeed     float64     `json:"wind_speed"` // m/s, two decimals
	Clouds        int         `json:"clouds"`
	Coordinates   Coordinates `json:"coordinates"`
	FetchedAt     time.Time   `json:"-"`
}
