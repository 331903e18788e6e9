package chart

import (
	"levelview/internal/depth"
	"levelview/internal/hittest"
)

type LineStyle string

const (
	Solid  LineStyle = "solid"
	Dashed LineStyle = "dashed"
	Dotted LineStyle = "dotted"
)

type PriceLineOptions struct {
	Price float64   `json:"price"`
	Color string    `json:"color"`
	Style LineStyle `json:"style"`
	Width int       `json:"width"`
	Title string    `json:"title"`
	Key   string    `json:"key"`
}

// PriceLine is a handle to a drawn horizontal line.
type PriceLine int

// Surface is the charting collaborator a session draws on.
type Surface interface {
	hittest.CoordinateMapper
	SetSeries(points []depth.ChartPoint)
	CreatePriceLine(opts PriceLineOptions) PriceLine
	RemovePriceLine(l PriceLine)
	Resize(width, height float64)
	Fit()
	Close() error
}
