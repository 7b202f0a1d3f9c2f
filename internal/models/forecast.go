package models

import "errors"

type ForecastPoint struct {
	Year             int     `json:"year"`
	ElectricityPrice float64 `json:"electricityPrice"`
	GasPrice         float64 `json:"gasPrice"`
}

// Forecast is the structured long-term outlook returned by the AI analyst.
type Forecast struct {
	ForecastData []ForecastPoint `json:"forecastData"`
	Analysis     string          `json:"analysis"`
}

// Validate checks only that the required fields are present.
func (f *Forecast) Validate() error {
	if f.ForecastData == nil {
		return errors.New("forecast data is missing")
	}
	if f.Analysis == "" {
		return errors.New("forecast analysis is missing")
	}
	return nil
}
