// Package ncei maps CDO v2 records onto typed Go values and offers one
// bulk query method per resource.
package ncei

import (
	"fmt"
	"time"
)

// Layouts used by the CDO API for dates.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05"
)

// Dataset is a record of the datasets endpoint.
type Dataset struct {
	UID          string  `json:"uid,omitempty"`
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`
	MinDate      string  `json:"mindate,omitempty"`
	MaxDate      string  `json:"maxdate,omitempty"`
	DataCoverage float64 `json:"datacoverage,omitempty"`
}

// DataCategory is a record of the datacategories endpoint.
type DataCategory struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DataType is a record of the datatypes endpoint.
type DataType struct {
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`
	MinDate      string  `json:"mindate,omitempty"`
	MaxDate      string  `json:"maxdate,omitempty"`
	DataCoverage float64 `json:"datacoverage,omitempty"`
}

// LocationCategory is a record of the locationcategories endpoint.
type LocationCategory struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Location is a record of the locations endpoint.
type Location struct {
	ID           string  `json:"id"`
	Name         string  `json:"name,omitempty"`
	MinDate      string  `json:"mindate,omitempty"`
	MaxDate      string  `json:"maxdate,omitempty"`
	DataCoverage float64 `json:"datacoverage,omitempty"`
}

// Station is a record of the stations endpoint.
type Station struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
	Elevation     float64 `json:"elevation,omitempty"`
	ElevationUnit string  `json:"elevationUnit,omitempty"`
	MinDate       string  `json:"mindate,omitempty"`
	MaxDate       string  `json:"maxdate,omitempty"`
	DataCoverage  float64 `json:"datacoverage,omitempty"`
}

// Observation is a record of the data endpoint: one value of one data
// type at one station on one date.
type Observation struct {
	Date       string  `json:"date"`
	DataType   string  `json:"datatype"`
	Station    string  `json:"station"`
	Attributes string  `json:"attributes,omitempty"`
	Value      float64 `json:"value"`
}

// Time parses Date.
func (o Observation) Time() (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, o.Date); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, o.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse observation date %q: %w", o.Date, err)
	}
	return t, nil
}

// Key returns the natural key station/datatype/date.
func (o Observation) Key() string {
	return o.Station + "/" + o.DataType + "/" + o.Date
}
