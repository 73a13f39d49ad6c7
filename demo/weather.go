package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/user/mcp-go-demo/capability"
)

// WeatherDescriptor describes a canned forecast tool. Results are cacheable
// for five minutes.
func WeatherDescriptor() capability.Descriptor {
	return capability.Descriptor{
		Name:        "get_weather_forecast",
		Kind:        capability.KindTool,
		Description: "Get weather forecast for a specific latitude/longitude",
		Category:    "weather",
		Tags:        []string{"weather", "forecast", "location"},
		Shape: capability.Shape{
			{Name: "latitude", Type: capability.Number, Description: "latitude in degrees"},
			{Name: "longitude", Type: capability.Number, Description: "longitude in degrees"},
		},
		Cacheable: true,
		CacheTTL:  300 * time.Second,
		Handler:   capability.HandlerFunc(handleWeather),
	}
}

func handleWeather(ctx context.Context, req capability.Request) (*capability.Response, error) {
	lat, err := numberParam(req.Params, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := numberParam(req.Params, "longitude")
	if err != nil {
		return nil, err
	}
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	return capability.TextResponse(fmt.Sprintf("Weather forecast for location (%f, %f): Sunny, 25°C", lat, lon)), nil
}
